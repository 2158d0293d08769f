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
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/syberia-project/platform-external-cronet/gn"
)

type stringListFlag []string

func (l *stringListFlag) String() string {
	return strings.Join(*l, " ")
}

func (l *stringListFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	descFiles   stringListFlag
	rootTargets stringListFlag
	testTargets stringListFlag
	builtinDeps stringListFlag
	outFile     = flag.String("out", "", "output Android.bp file (default stdout)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `gn2bp, a tool to create Android.bp files from gn desc json output

The tool resolves the gn target graph, propagating source_set and group
properties up to the linker units the way gn does internally, and emits one
Blueprint module per resolved target.

Usage: %s -desc <desc.json> [-desc ...] -target <label> [options]

  -desc <file>
     Path to the json output of gn desc for one architecture. Repeat once per
     architecture; properties shared by all of them are deduplicated.
  -target <label>
     Root GN target label to translate. May be repeated.
  -test-target <label>
     Root GN target label to translate as a test variant. May be repeated.
  -builtin-dep <label>
     GN label the Android tree already provides; kept as a leaf and not
     expanded. May be repeated.
  -out <file>
     Write the generated Android.bp to <file> instead of stdout.

`, os.Args[0])
	}

	flag.Var(&descFiles, "desc", "Path to a gn desc json file, one per architecture")
	flag.Var(&rootTargets, "target", "Root GN target label to translate")
	flag.Var(&testTargets, "test-target", "Root GN target label to translate as a test variant")
	flag.Var(&builtinDeps, "builtin-dep", "GN label satisfied by the Android tree")
	flag.Parse()

	if flag.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "Unused argument detected: %v\n", flag.Args())
		os.Exit(1)
	}
	if len(descFiles) == 0 {
		fmt.Fprintln(os.Stderr, "At least one -desc file is required")
		os.Exit(1)
	}
	if len(rootTargets) == 0 && len(testTargets) == 0 {
		fmt.Fprintln(os.Stderr, "At least one -target or -test-target is required")
		os.Exit(1)
	}

	parser := gn.NewParser(builtinDeps)
	for _, descFile := range descFiles {
		desc, err := loadDescription(descFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, root := range rootTargets {
			if _, err := parser.ParseGnDesc(desc, root); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %s\n", descFile, err)
				os.Exit(1)
			}
		}
		for _, root := range testTargets {
			if _, err := parser.ParseTestGnDesc(desc, root); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %s\n", descFile, err)
				os.Exit(1)
			}
		}
	}

	roots := make([]string, 0, len(rootTargets)+len(testTargets))
	for _, root := range rootTargets {
		roots = append(roots, gn.LabelWithoutToolchain(root))
	}
	for _, root := range testTargets {
		roots = append(roots, gn.LabelWithoutToolchain(root)+gn.TestingSuffix)
	}

	out, err := generateBp(parser, roots, builtinDeps, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *outFile == "" {
		os.Stdout.WriteString(out)
		return
	}
	if err := os.WriteFile(*outFile, []byte(out), 0666); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadDescription(path string) (gn.Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var desc gn.Description
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return desc, nil
}
