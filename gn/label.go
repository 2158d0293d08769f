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
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// LabelToPath turns a GN path label (e.g. //some_dir/file.cc) into a path
// relative to the repository root.
func LabelToPath(label string) string {
	if !strings.HasPrefix(label, "//") {
		panic(fmt.Sprintf("not a GN label: %q", label))
	}
	if path := label[2:]; path != "" {
		return path
	}
	return "./"
}

// LabelWithoutToolchain strips the toolchain from a GN label.
//
// Returns a GN label (e.g //buildtools:protobuf(//gn/standalone/toolchain:
// gcc_like_host) without the parenthesised toolchain part.
func LabelWithoutToolchain(label string) string {
	return strings.SplitN(label, "(", 2)[0]
}

// splitLabelToolchain splits a GN label into the plain label and the
// parenthesised toolchain part, keeping the parentheses on the latter.
func splitLabelToolchain(label string) (name, toolchain string) {
	parts := strings.SplitN(label, "(", 2)
	if len(parts) == 2 {
		return parts[0], "(" + parts[1]
	}
	return parts[0], ""
}

func isJavaSource(src string) bool {
	return filepath.Ext(src) == ".java" && !strings.HasPrefix(src, "//out/")
}

// cleanString strips the escaping noise GN leaves in argument lists that
// embed other argument lists.
func cleanString(s string) string {
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.ReplaceAll(s, "../../", "")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(s)
}

var aidlIncludeDirsRegexp = regexp.MustCompile(`^--includes=\[(.*)\]`)

// extractIncludesFromAidlArgs pulls the local include directories out of an
// aidl action's --includes=[...] argument.
func extractIncludesFromAidlArgs(args []string) []string {
	for _, arg := range args {
		m := aidlIncludeDirsRegexp.FindStringSubmatch(arg)
		if m == nil {
			continue
		}
		var includes []string
		for _, include := range strings.Split(m[1], ",") {
			includes = append(includes, cleanString(include))
		}
		return includes
	}
	return nil
}
