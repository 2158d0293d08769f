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
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/google/blueprint/parser"
	"github.com/google/blueprint/proptools"

	"github.com/syberia-project/platform-external-cronet/gn"
)

// bpModule is one module definition of the generated Android.bp.
type bpModule struct {
	Type             string
	Name             string
	Srcs             []string
	Cflags           []string
	LocalIncludeDirs []string
	Ldflags          []string
	StaticLibs       []string
	SharedLibs       []string
	AidlIncludeDirs  []string
}

var bpTemplate = template.Must(template.New("bp").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`
{{.Type}} {
    name: {{quote .Name}},
    {{- if .Srcs}}
    srcs: [
        {{- range .Srcs}}
        {{quote .}},
        {{- end}}
    ],
    {{- end}}
    {{- if .Cflags}}
    cflags: [
        {{- range .Cflags}}
        {{quote .}},
        {{- end}}
    ],
    {{- end}}
    {{- if .LocalIncludeDirs}}
    local_include_dirs: [
        {{- range .LocalIncludeDirs}}
        {{quote .}},
        {{- end}}
    ],
    {{- end}}
    {{- if .Ldflags}}
    ldflags: [
        {{- range .Ldflags}}
        {{quote .}},
        {{- end}}
    ],
    {{- end}}
    {{- if .StaticLibs}}
    static_libs: [
        {{- range .StaticLibs}}
        {{quote .}},
        {{- end}}
    ],
    {{- end}}
    {{- if .SharedLibs}}
    shared_libs: [
        {{- range .SharedLibs}}
        {{quote .}},
        {{- end}}
    ],
    {{- end}}
    {{- if .AidlIncludeDirs}}
    aidl: {
        local_include_dirs: [
            {{- range .AidlIncludeDirs}}
            {{quote .}},
            {{- end}}
        ],
    },
    {{- end}}
}
`))

var moduleNameReplacer = strings.NewReplacer("/", "_", ":", "_", ".", "_")

// moduleName mangles a GN label into a Soong module name, e.g.
// //base:base_java becomes base_base_java.
func moduleName(label string) string {
	name := strings.TrimPrefix(label, "//")
	name = strings.TrimPrefix(name, ":")
	return moduleNameReplacer.Replace(name)
}

// generateBp renders the subgraphs reachable from the given canonical root
// identities into Android.bp text. The output is passed through blueprint's
// parser for normalization, so it is syntax-checked by construction.
func generateBp(p *gn.Parser, roots []string, builtins []string, argv []string) (string, error) {
	builtinDeps := make(map[string]bool, len(builtins))
	for _, dep := range builtins {
		builtinDeps[dep] = true
	}

	visited := make(map[string]bool)
	queue := gn.CopyOf(roots)
	var modules []*bpModule
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true

		target, err := p.GetTarget(name)
		if err != nil {
			return "", err
		}
		if !builtinDeps[name] {
			if module := moduleForTarget(p, target); module != nil {
				modules = append(modules, module)
			}
		}
		queue = append(queue, targetDeps(target).SortedList()...)
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })

	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "// Automatically generated with:")
	fmt.Fprintln(buf, "// gn2bp", strings.Join(proptools.ShellEscapeList(argv), " "))
	for _, module := range modules {
		if err := bpTemplate.Execute(buf, module); err != nil {
			return "", fmt.Errorf("rendering %s: %w", module.Name, err)
		}
	}

	return reformat(buf.Bytes())
}

// targetDeps is the set of identities reachable one edge away from target,
// across every architecture.
func targetDeps(target *gn.Target) gn.StringSet {
	deps := gn.NewStringSet()
	deps.Union(target.Deps())
	deps.Union(target.SourceSetDeps())
	deps.Union(target.ProtoDeps)
	for _, arch := range target.GetArchs() {
		deps.Union(arch.Deps)
		deps.Union(arch.SourceSetDeps)
	}
	return deps
}

func moduleForTarget(p *gn.Parser, target *gn.Target) *bpModule {
	switch target.Type {
	case gn.SourceSet, gn.ProtoLibrary:
		return &bpModule{
			Type: "filegroup",
			Name: moduleName(target.Name),
			Srcs: labelListToPaths(allSources(target)),
		}
	case gn.StaticLibrary:
		return ccModule(p, target, "cc_library_static")
	case gn.SharedLibrary:
		return ccModule(p, target, "cc_library_shared")
	case gn.Executable:
		return ccModule(p, target, "cc_binary")
	case gn.JavaGroup:
		return javaModule(p, target)
	}
	// Groups are bubbled into their dependents; actions and copies are the
	// full generator's business.
	return nil
}

func ccModule(p *gn.Parser, target *gn.Target, moduleType string) *bpModule {
	module := &bpModule{
		Type:   moduleType,
		Name:   moduleName(target.Name),
		Cflags: allSet(target, func(a *gn.Arch) gn.StringSet { return a.Cflags }).SortedList(),
		LocalIncludeDirs: labelListToPaths(
			allSet(target, func(a *gn.Arch) gn.StringSet { return a.IncludeDirs }).SortedList()),
		Ldflags: allSet(target, func(a *gn.Arch) gn.StringSet { return a.Ldflags }).SortedList(),
	}
	for _, define := range allSet(target, func(a *gn.Arch) gn.StringSet { return a.Defines }).SortedList() {
		module.Cflags = append(module.Cflags, "-D"+define)
	}

	srcs := labelListToPaths(allSources(target))
	for _, depName := range targetDeps(target).SortedList() {
		dep := p.AllTargets()[depName]
		if dep == nil {
			continue
		}
		switch dep.Type {
		case gn.SourceSet, gn.ProtoLibrary:
			// Source sets and protos become filegroups; their compilation
			// happens in the linker unit that absorbs them.
			srcs = append(srcs, ":"+moduleName(dep.Name))
		case gn.StaticLibrary:
			module.StaticLibs = append(module.StaticLibs, moduleName(dep.Name))
		case gn.SharedLibrary:
			module.SharedLibs = append(module.SharedLibs, moduleName(dep.Name))
		}
	}
	module.Srcs = gn.FirstUniqueStrings(srcs)
	return module
}

func javaModule(p *gn.Parser, target *gn.Target) *bpModule {
	module := &bpModule{
		Type: "java_library",
		Name: moduleName(target.Name),
		Srcs: labelListToPaths(p.JavaSources()[target.Name].SortedList()),
	}
	for _, src := range module.Srcs {
		if strings.HasSuffix(src, ".aidl") {
			module.AidlIncludeDirs = p.AidlLocalIncludeDirs().SortedList()
			break
		}
	}
	return module
}

// allSources is the union of the target's sources across common and every
// architecture, sorted.
func allSources(target *gn.Target) []string {
	return allSet(target, func(a *gn.Arch) gn.StringSet { return a.Sources }).SortedList()
}

func allSet(target *gn.Target, get func(*gn.Arch) gn.StringSet) gn.StringSet {
	result := gn.NewStringSet()
	for _, arch := range target.Archs {
		result.Union(get(arch))
	}
	return result
}

func labelListToPaths(labels []string) []string {
	paths := make([]string, 0, len(labels))
	for _, label := range labels {
		if strings.HasPrefix(label, ":") || !strings.HasPrefix(label, "//") {
			paths = append(paths, label)
			continue
		}
		paths = append(paths, gn.LabelToPath(label))
	}
	return paths
}

// reformat runs the generated text through blueprint's parser and printer,
// the same pipeline bpfmt uses.
func reformat(src []byte) (string, error) {
	file, errs := parser.Parse("Android.bp", bytes.NewReader(src), parser.NewScope(nil))
	if len(errs) > 0 {
		messages := make([]string, 0, len(errs))
		for _, err := range errs {
			messages = append(messages, err.Error())
		}
		return "", fmt.Errorf("generated file does not parse: %s", strings.Join(messages, "; "))
	}
	parser.SortLists(file)
	out, err := parser.Print(file)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
