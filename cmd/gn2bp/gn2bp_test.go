// Copyright 2023 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"testing"

	"github.com/syberia-project/platform-external-cronet/gn"
)

const hostToolchain = "//gn/standalone/toolchain:gcc_like_host"

func TestModuleName(t *testing.T) {
	testCases := []struct {
		in  string
		out string
	}{
		{"//base:base", "base_base"},
		{"//:cronet", "cronet"},
		{"//components/cronet/android:cronet_impl_native_java", "components_cronet_android_cronet_impl_native_java"},
		{"//net:net.something", "net_net_something"},
	}
	for _, testCase := range testCases {
		if out := moduleName(testCase.in); out != testCase.out {
			t.Errorf("moduleName(%q) = %q, want %q", testCase.in, out, testCase.out)
		}
	}
}

func TestLabelListToPaths(t *testing.T) {
	in := []string{"//app/main.cc", ":app_impl"}
	want := []string{"app/main.cc", ":app_impl"}
	got := labelListToPaths(in)
	if len(got) != len(want) {
		t.Fatalf("labelListToPaths(%v) = %v, want %v", in, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("labelListToPaths(%v)[%d] = %q, want %q", in, i, got[i], want[i])
		}
	}
}

// normalize runs bp text through the same parse/print pipeline the generator
// uses, so tests compare canonical forms instead of whitespace.
func normalize(t *testing.T, bp string) string {
	t.Helper()
	out, err := reformat([]byte(bp))
	if err != nil {
		t.Fatalf("normalize: %s", err)
	}
	return out
}

func checkGenerated(t *testing.T, got, expected string) {
	t.Helper()
	want := normalize(t, expected)
	if got != want {
		t.Errorf("generated Android.bp mismatch:")
		t.Errorf("  expected: %s", want)
		t.Errorf("       got: %s", got)
	}
}

func TestGenerateBpCcModules(t *testing.T) {
	desc := gn.Description{
		"//app:app": {
			Type: "executable", Toolchain: hostToolchain,
			Sources: []string{"//app/main.cc"},
			Deps:    []string{"//app:impl"},
		},
		"//app:impl": {
			Type: "source_set", Toolchain: hostToolchain,
			Sources: []string{"//app/impl.cc"},
			Cflags:  []string{"-O2"},
			Deps:    []string{"//base:base"},
		},
		"//base:base": {
			Type: "static_library", Toolchain: hostToolchain,
			Sources: []string{"//base/base.cc"},
			Defines: []string{"BASE_IMPL"},
		},
	}

	p := gn.NewParser(nil)
	if _, err := p.ParseGnDesc(desc, "//app:app"); err != nil {
		t.Fatal(err)
	}

	got, err := generateBp(p, []string{"//app:app"}, nil, []string{"-desc", "out.json"})
	if err != nil {
		t.Fatal(err)
	}

	checkGenerated(t, got, `
// Automatically generated with:
// gn2bp -desc out.json

cc_binary {
    name: "app_app",
    srcs: [
        ":app_impl",
        "app/main.cc",
    ],
    static_libs: ["base_base"],
}

filegroup {
    name: "app_impl",
    srcs: ["app/impl.cc"],
}

cc_library_static {
    name: "base_base",
    srcs: ["base/base.cc"],
    cflags: ["-DBASE_IMPL"],
}
`)
}

func TestGenerateBpJavaLibrary(t *testing.T) {
	desc := gn.Description{
		"//java:bar_java": {
			Type: "group", Toolchain: hostToolchain,
			Deps: []string{"//java:bar_aidl"},
		},
		"//java:bar_aidl": {
			Type: "action", Toolchain: hostToolchain,
			Script:  "//build/android/gyp/aidl.py",
			Sources: []string{"//java/src/org/chromium/IFoo.aidl"},
			Args:    []string{"--includes=[../../foo/bar,baz/qux]"},
		},
	}

	p := gn.NewParser(nil)
	if _, err := p.ParseGnDesc(desc, "//java:bar_java"); err != nil {
		t.Fatal(err)
	}

	got, err := generateBp(p, []string{"//java:bar_java"}, nil, []string{"-desc", "out.json"})
	if err != nil {
		t.Fatal(err)
	}

	checkGenerated(t, got, `
// Automatically generated with:
// gn2bp -desc out.json

java_library {
    name: "java_bar_java",
    srcs: ["java/src/org/chromium/IFoo.aidl"],
    aidl: {
        local_include_dirs: [
            "baz/qux",
            "foo/bar",
        ],
    },
}
`)
}

func TestGenerateBpSkipsBuiltins(t *testing.T) {
	desc := gn.Description{
		"//app:app": {
			Type: "executable", Toolchain: hostToolchain,
			Sources: []string{"//app/main.cc"},
			Deps:    []string{"//third_party/zlib:zlib"},
		},
		"//third_party/zlib:zlib": {
			Type: "static_library", Toolchain: hostToolchain,
		},
	}

	builtins := []string{"//third_party/zlib:zlib"}
	p := gn.NewParser(builtins)
	if _, err := p.ParseGnDesc(desc, "//app:app"); err != nil {
		t.Fatal(err)
	}

	got, err := generateBp(p, []string{"//app:app"}, builtins, []string{"-desc", "out.json"})
	if err != nil {
		t.Fatal(err)
	}

	checkGenerated(t, got, `
// Automatically generated with:
// gn2bp -desc out.json

cc_binary {
    name: "app_app",
    srcs: ["app/main.cc"],
    static_libs: ["third_party_zlib_zlib"],
}
`)
}
