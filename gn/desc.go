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

// Description is the parsed form of `gn desc //out/... "//*" --format=json`
// for one architecture: a map from fully qualified target label, including
// the toolchain parenthetical, to the raw target description.
type Description map[string]*TargetDescription

// TargetDescription is the raw JSON record gn emits for a single target.
// Only the fields consumed by the parser are declared.
type TargetDescription struct {
	Type                 string              `json:"type"`
	Toolchain            string              `json:"toolchain"`
	Testonly             bool                `json:"testonly"`
	Deps                 []string            `json:"deps"`
	Sources              []string            `json:"sources"`
	Inputs               []string            `json:"inputs"`
	Outputs              []string            `json:"outputs"`
	Args                 []string            `json:"args"`
	ResponseFileContents []string            `json:"response_file_contents"`
	Cflags               []string            `json:"cflags"`
	CflagsCC             []string            `json:"cflags_cc"`
	Defines              []string            `json:"defines"`
	IncludeDirs          []string            `json:"include_dirs"`
	Ldflags              []string            `json:"ldflags"`
	Libs                 []string            `json:"libs"`
	Script               string              `json:"script"`
	Public               []string            `json:"public"`
	OutputName           string              `json:"output_name"`
	Metadata             map[string][]string `json:"metadata"`
}
