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

package gn

import (
	"errors"
	"reflect"
	"testing"
)

func mustNewTarget(t *testing.T, name string, typ TargetType) *Target {
	t.Helper()
	target, err := NewTarget(name, typ)
	if err != nil {
		t.Fatalf("NewTarget(%q, %q): %s", name, typ, err)
	}
	return target
}

func TestNewTargetInvalidType(t *testing.T) {
	if _, err := NewTarget("//x:y", "banana"); !errors.Is(err, ErrInvalidTargetType) {
		t.Errorf("NewTarget with bogus type: got %v, want ErrInvalidTargetType", err)
	}
	// java_group is derived during parsing, never accepted from raw input.
	if _, err := NewTarget("//x:y", JavaGroup); !errors.Is(err, ErrInvalidTargetType) {
		t.Errorf("NewTarget(java_group): got %v, want ErrInvalidTargetType", err)
	}
}

func TestFinalizeCommonOnlyIsIdentity(t *testing.T) {
	target := mustNewTarget(t, "//x:y", StaticLibrary)
	target.Cflags().AddAll([]string{"-O2"})
	if err := target.Finalize(); err != nil {
		t.Fatal(err)
	}
	if got := target.Cflags().SortedList(); !reflect.DeepEqual(got, []string{"-O2"}) {
		t.Errorf("common cflags changed by finalize: %v", got)
	}
}

func TestFinalizeSetRoundTrip(t *testing.T) {
	target := mustNewTarget(t, "//x:y", StaticLibrary)
	armCflags := []string{"-O2", "-g", "-mthumb"}
	x86Cflags := []string{"-O2", "-g", "-msse3"}
	target.Archs["android_arm"] = newArch()
	target.Archs["android_arm"].Cflags.AddAll(armCflags)
	target.Archs["android_x86"] = newArch()
	target.Archs["android_x86"].Cflags.AddAll(x86Cflags)

	if err := target.Finalize(); err != nil {
		t.Fatal(err)
	}

	if got, want := target.Cflags().SortedList(), []string{"-O2", "-g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("common cflags = %v, want %v", got, want)
	}
	if got, want := target.Archs["android_arm"].Cflags.SortedList(), []string{"-mthumb"}; !reflect.DeepEqual(got, want) {
		t.Errorf("arm cflags = %v, want %v", got, want)
	}

	// Round-trip law: common + per-arch remainder equals the original set.
	for arch, original := range map[string][]string{"android_arm": armCflags, "android_x86": x86Cflags} {
		union := NewStringSet()
		union.Union(target.Cflags())
		union.Union(target.Archs[arch].Cflags)
		originalSet := NewStringSet(original...)
		if !reflect.DeepEqual(union, originalSet) {
			t.Errorf("%s: union %v does not round-trip to %v", arch, union.SortedList(), original)
		}
	}
}

func TestFinalizeSingleArchPromotesAll(t *testing.T) {
	target := mustNewTarget(t, "//x:y", StaticLibrary)
	target.Archs["host"] = newArch()
	target.Archs["host"].Defines.AddAll([]string{"FOO", "BAR"})

	if err := target.Finalize(); err != nil {
		t.Fatal(err)
	}

	// The intersection over a single architecture is the set itself.
	if got, want := target.Defines().SortedList(), []string{"BAR", "FOO"}; !reflect.DeepEqual(got, want) {
		t.Errorf("common defines = %v, want %v", got, want)
	}
	if got := target.Archs["host"].Defines.SortedList(); len(got) != 0 {
		t.Errorf("host defines not emptied: %v", got)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	target := mustNewTarget(t, "//x:y", SharedLibrary)
	target.Archs["android_arm"] = newArch()
	target.Archs["android_arm"].Cflags.AddAll([]string{"-O2", "-mthumb"})
	target.Archs["android_x86"] = newArch()
	target.Archs["android_x86"].Cflags.AddAll([]string{"-O2"})

	if err := target.Finalize(); err != nil {
		t.Fatal(err)
	}
	snapshot := map[string][]string{
		"common":      target.Cflags().SortedList(),
		"android_arm": target.Archs["android_arm"].Cflags.SortedList(),
		"android_x86": target.Archs["android_x86"].Cflags.SortedList(),
	}

	if err := target.Finalize(); err != nil {
		t.Fatal(err)
	}
	after := map[string][]string{
		"common":      target.Cflags().SortedList(),
		"android_arm": target.Archs["android_arm"].Cflags.SortedList(),
		"android_x86": target.Archs["android_x86"].Cflags.SortedList(),
	}
	if !reflect.DeepEqual(snapshot, after) {
		t.Errorf("finalize is not idempotent:")
		t.Errorf("  first:  %v", snapshot)
		t.Errorf("  second: %v", after)
	}
}

func TestFinalizeArgsPromotion(t *testing.T) {
	target := mustNewTarget(t, "//x:y_gen", Action)
	target.Archs["android_arm"] = newArch()
	target.Archs["android_arm"].Args = []string{"--foo", "--bar"}
	target.Archs["android_x86"] = newArch()
	target.Archs["android_x86"].Args = []string{"--foo", "--bar"}

	if err := target.Finalize(); err != nil {
		t.Fatal(err)
	}
	if got, want := target.Args(), []string{"--foo", "--bar"}; !reflect.DeepEqual(got, want) {
		t.Errorf("common args = %v, want %v", got, want)
	}
	// The per-arch copies stay; consumers read the common accessor.
	if got := target.Archs["android_arm"].Args; !reflect.DeepEqual(got, []string{"--foo", "--bar"}) {
		t.Errorf("arm args modified: %v", got)
	}
}

func TestFinalizeArgsDifferingStayLocal(t *testing.T) {
	target := mustNewTarget(t, "//x:y_gen", Action)
	target.Archs["android_arm"] = newArch()
	target.Archs["android_arm"].Args = []string{"--arch=arm"}
	target.Archs["android_x86"] = newArch()
	target.Archs["android_x86"].Args = []string{"--arch=x86"}

	if err := target.Finalize(); err != nil {
		t.Fatal(err)
	}
	if got := target.Args(); len(got) != 0 {
		t.Errorf("differing args promoted to common: %v", got)
	}
}

func TestFinalizeResponseFileContents(t *testing.T) {
	target := mustNewTarget(t, "//x:y_gen", Action)
	target.Archs["android_arm"] = newArch()
	target.Archs["android_arm"].ResponseFileContents = `--flag=\"a b\"`
	target.Archs["android_x86"] = newArch()
	target.Archs["android_x86"].ResponseFileContents = `--flag=\"a b\"`

	if err := target.Finalize(); err != nil {
		t.Fatal(err)
	}
	if got, want := target.ResponseFileContents(), `--flag=\"a b\"`; got != want {
		t.Errorf("common response_file_contents = %q, want %q", got, want)
	}
}

func TestFinalizeAttributeUnsupported(t *testing.T) {
	target := mustNewTarget(t, "//x:y", StaticLibrary)
	target.Archs["host"] = newArch()
	if err := target.finalizeAttribute("script"); !errors.Is(err, ErrUnsupportedAttributeType) {
		t.Errorf("finalizeAttribute(script): got %v, want ErrUnsupportedAttributeType", err)
	}
}

func TestUpdateBubblesGroupProperties(t *testing.T) {
	target := mustNewTarget(t, "//x:bin", Executable)
	target.Archs["host"] = newArch()

	group := mustNewTarget(t, "//x:config", Group)
	group.Archs["host"] = newArch()
	group.Cflags().Add("-fcommon")
	group.Deps().Add("//x:dep")
	group.Libs.Add("log")
	group.ProtoPaths.Add("x/protos")
	group.Archs["host"].Defines.Add("HOST_ONLY")

	target.update(group, "host")

	if !target.Cflags().Contains("-fcommon") {
		t.Error("common cflags not bubbled up")
	}
	if !target.Deps().Contains("//x:dep") {
		t.Error("common deps not bubbled up")
	}
	if !target.Libs.Contains("log") {
		t.Error("libs not bubbled up")
	}
	if !target.ProtoPaths.Contains("x/protos") {
		t.Error("proto paths not bubbled up")
	}
	if !target.Archs["host"].Defines.Contains("HOST_ONLY") {
		t.Error("arch defines not bubbled up")
	}
}

func TestIsLinkerUnitType(t *testing.T) {
	testCases := []struct {
		typ TargetType
		out bool
	}{
		{Executable, true},
		{SharedLibrary, true},
		{StaticLibrary, true},
		{SourceSet, true},
		{Group, false},
		{Action, false},
		{ProtoLibrary, false},
	}
	for _, testCase := range testCases {
		target := mustNewTarget(t, "//x:y", testCase.typ)
		if out := target.IsLinkerUnitType(); out != testCase.out {
			t.Errorf("IsLinkerUnitType(%s) = %t, want %t", testCase.typ, out, testCase.out)
		}
	}
}

func TestHostAndDeviceSupported(t *testing.T) {
	target := mustNewTarget(t, "//x:y", StaticLibrary)
	if target.HostSupported() || target.DeviceSupported() {
		t.Error("fresh target should support neither host nor device")
	}
	target.Archs["host"] = newArch()
	target.Archs["android_arm64"] = newArch()
	if !target.HostSupported() {
		t.Error("host arch not detected")
	}
	if !target.DeviceSupported() {
		t.Error("android arch not detected")
	}
}

func TestTargetName(t *testing.T) {
	target := mustNewTarget(t, "//src/ipc:ipc_gen", Action)
	if got := target.TargetName(); got != "ipc_gen" {
		t.Errorf("TargetName() = %q, want %q", got, "ipc_gen")
	}
}

func TestGetArchsExcludesCommon(t *testing.T) {
	target := mustNewTarget(t, "//x:y", StaticLibrary)
	target.Archs["host"] = newArch()
	archs := target.GetArchs()
	if _, ok := archs[archCommon]; ok {
		t.Error("GetArchs() must not include common")
	}
	if len(archs) != 1 {
		t.Errorf("GetArchs() = %d entries, want 1", len(archs))
	}
}
