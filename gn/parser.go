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
	"regexp"
	"strings"
)

// TestingSuffix distinguishes the test variant of a target from the
// production variant of the same logical target in the target table.
const TestingSuffix = "__testing"

const (
	dexSuffix         = "__dex"
	compileJavaSuffix = "__compile_java"

	protocWrapperScript = "//tools/protoc_wrapper/protoc_wrapper.py"
)

// javaBannedScripts are the java toolchain scripts whose action targets mark
// a java compilation chain. Targets running them become java_groups instead
// of ordinary actions.
var javaBannedScripts = map[string]bool{
	"//build/android/gyp/turbine.py":            true,
	"//build/android/gyp/compile_java.py":       true,
	"//build/android/gyp/filter_zip.py":         true,
	"//build/android/gyp/dex.py":                true,
	"//build/android/gyp/write_build_config.py": true,
	"//build/android/gyp/create_r_java.py":      true,
	"//build/android/gyp/ijar.py":               true,
	"//build/android/gyp/bytecode_processor.py": true,
	"//build/android/gyp/prepare_resources.py":  true,
	"//build/android/gyp/aar.py":                true,
	"//build/android/gyp/zip.py":                true,
}

var toolchainArchs = map[string]string{
	"//build/toolchain/android:android_clang_x86":   "android_x86",
	"//build/toolchain/android:android_clang_x64":   "android_x86_64",
	"//build/toolchain/android:android_clang_arm":   "android_arm",
	"//build/toolchain/android:android_clang_arm64": "android_arm64",
}

var genOutputPrefix = regexp.MustCompile(`^//out/.+?/gen/`)
var protoInDirPrefix = regexp.MustCompile(`^\.\./\.\./`)

// Parser resolves a gn desc tree into Targets.
//
// Its main jobs:
//  1. Deal with the fact that Soong has no equivalent notion to GN's
//     source_set. Conversely to Soong's filegroups, GN source_sets expect
//     that dependencies, cflags and other properties propagate up to the
//     linker unit (static_library, executable or shared_library). The parser
//     simulates that behavior: group properties are bubbled into dependents
//     and the static-library dependency closure is flattened onto each
//     dependent, so a flat, non-transitive target model can consume the
//     result directly.
//  2. Detect and special-case protobuf targets, figuring out the
//     protoc-plugin being used.
//  3. Reclassify java compilation chains as java_groups, collecting their
//     java and aidl sources into one aggregate per group instead of linking
//     them per-target.
//
// A Parser may be fed multiple roots and multiple per-architecture
// descriptions; state accumulates across calls until the targets are
// queried through GetTarget.
type Parser struct {
	builtinDeps          map[string]bool
	allTargets           map[string]*Target
	javaSources          map[string]StringSet
	javaActions          map[string]StringSet
	aidlLocalIncludeDirs StringSet
}

// NewParser returns a Parser with an empty target table. builtinDeps lists
// canonical target identities that the Android tree already provides; they
// are treated as opaque leaves and never expanded.
func NewParser(builtinDeps []string) *Parser {
	deps := make(map[string]bool, len(builtinDeps))
	for _, dep := range builtinDeps {
		deps[dep] = true
	}
	return &Parser{
		builtinDeps:          deps,
		allTargets:           make(map[string]*Target),
		javaSources:          make(map[string]StringSet),
		javaActions:          make(map[string]StringSet),
		aidlLocalIncludeDirs: NewStringSet(),
	}
}

// AllTargets returns the full resolved target table, keyed by canonical
// identity.
func (p *Parser) AllTargets() map[string]*Target {
	return p.allTargets
}

// JavaSources maps a java_group identity to the java and aidl sources
// collected for it across the whole resolution.
func (p *Parser) JavaSources() map[string]StringSet {
	return p.javaSources
}

// JavaActions maps a java_group identity to the non-aidl action targets it
// depends on.
func (p *Parser) JavaActions() map[string]StringSet {
	return p.javaActions
}

// AidlLocalIncludeDirs is the set of include directories discovered across
// all aidl actions.
func (p *Parser) AidlLocalIncludeDirs() StringSet {
	return p.aidlLocalIncludeDirs
}

// GetTarget returns the finalized Target for a fully qualified GN target
// name. It requires that ParseGnDesc has already been called for a root
// reaching the target.
func (p *Parser) GetTarget(gnTargetName string) (*Target, error) {
	// Finalize everything every time, as ParseGnDesc can be called again at
	// any time; Finalize is idempotent.
	for _, target := range p.allTargets {
		if err := target.Finalize(); err != nil {
			return nil, err
		}
	}
	target, ok := p.allTargets[LabelWithoutToolchain(gnTargetName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, gnTargetName)
	}
	return target, nil
}

// ParseGnDesc parses a gn desc tree rooted at gnTargetName and resolves all
// target dependencies, bubbling up source_set and group properties as
// described in the type-level comment.
func (p *Parser) ParseGnDesc(gnDesc Description, gnTargetName string) (*Target, error) {
	return p.parseGnDesc(gnDesc, gnTargetName, "", false)
}

// ParseTestGnDesc is ParseGnDesc for a test root: every target in the
// subtree is recorded under its identity plus TestingSuffix, so test and
// production variants of the same logical target do not collide.
func (p *Parser) ParseTestGnDesc(gnDesc Description, gnTargetName string) (*Target, error) {
	return p.parseGnDesc(gnDesc, gnTargetName, "", true)
}

func (p *Parser) parseGnDesc(gnDesc Description, gnTargetName, javaGroupName string, isTestTarget bool) (*Target, error) {
	// Use the name without toolchain as identity, so that the variants of a
	// target built for multiple architectures merge.
	targetName := LabelWithoutToolchain(gnTargetName)
	desc, ok := gnDesc[gnTargetName]
	if !ok {
		return nil, fmt.Errorf("%w: no description for %s", ErrUnknownTarget, gnTargetName)
	}
	arch := archForToolchain(desc.Toolchain)

	if isJavaGroup(TargetType(desc.Type), targetName) {
		// Java/aidl sources discovered below this point attach to this
		// group, not to their immediate parent.
		javaGroupName = targetName
	}

	if isTestTarget {
		targetName += TestingSuffix
	}

	target := p.allTargets[targetName]
	if target == nil {
		created, err := NewTarget(targetName, TargetType(desc.Type))
		if err != nil {
			return nil, err
		}
		target = created
		p.allTargets[targetName] = target
	}

	if _, done := target.Archs[arch]; done {
		// Target already processed for this architecture.
		return target, nil
	}
	targetArch := newArch()
	target.Archs[arch] = targetArch

	if p.builtinDeps[target.Name] {
		// No need to parse any further, the module is a builtin.
		return target, nil
	}

	target.Testonly = desc.Testonly

	protoPlugin, protoDesc := p.protoTargetType(gnDesc, gnTargetName)
	switch {
	case protoPlugin != "":
		target.Type = ProtoLibrary
		target.ProtoPlugin = protoPlugin
		target.ProtoPaths.AddAll(protoPaths(protoDesc))
		target.ProtoExports.AddAll(protoExports(protoDesc))
		target.ProtoInDir = protoInDir(protoDesc)
		for _, depName := range protoDesc.Deps {
			dep, err := p.parseGnDesc(gnDesc, depName, "", false)
			if err != nil {
				return nil, err
			}
			target.Deps().Add(dep.Name)
		}
		targetArch.Sources.AddAll(protoDesc.Sources)
		for src := range targetArch.Sources {
			if !strings.HasSuffix(src, ".proto") {
				return nil, fmt.Errorf("proto target %s has non-proto source %q", target.Name, src)
			}
		}
	case target.IsLinkerUnitType():
		targetArch.Sources.AddAll(desc.Sources)
	case javaBannedScripts[desc.Script] || isJavaGroup(target.Type, target.Name):
		// java_group identifies the group target generated by the
		// android_library or java_library template. A java_group must not be
		// added as a dependency, but sources are collected.
		if target.Type == Action {
			// Java actions keep their inputs for later collection.
			target.Inputs().AddAll(desc.Inputs)
		}
		target.Type = JavaGroup
	case target.Type == Action || target.Type == ActionForeach:
		targetArch.Inputs.AddAll(desc.Inputs)
		targetArch.Sources.AddAll(desc.Sources)
		for _, out := range desc.Outputs {
			targetArch.Outputs.Add(genOutputPrefix.ReplaceAllString(out, ""))
		}
		// While the arguments might differ, an action always uses the same
		// script for every architecture; downstream consumers rely on this.
		target.Script = desc.Script
		targetArch.Args = CopyOf(desc.Args)
		targetArch.ResponseFileContents = responseFileContents(desc)
	case target.Type == Copy:
		// Copy rules are not implemented; passthrough.
	}

	// Default for 'public' is //* - all headers in 'sources' are public.
	for _, header := range desc.Public {
		if header != "*" {
			target.PublicHeaders.Add(header)
		}
	}

	targetArch.Cflags.AddAll(desc.Cflags)
	targetArch.Cflags.AddAll(desc.CflagsCC)
	target.Libs.AddAll(desc.Libs)
	targetArch.Ldflags.AddAll(desc.Ldflags)
	targetArch.Defines.AddAll(desc.Defines)
	targetArch.IncludeDirs.AddAll(desc.IncludeDirs)
	// Last writer wins across architecture visits, no conflict detection.
	target.OutputName = desc.OutputName
	if targetArch.Cflags.Contains("-frtti") {
		target.Rtti = true
	}

	// Recurse in dependencies.
	for _, depName := range desc.Deps {
		dep, err := p.parseGnDesc(gnDesc, depName, javaGroupName, isTestTarget)
		if err != nil {
			return nil, err
		}
		switch {
		case dep.Type == ProtoLibrary:
			target.ProtoDeps.Add(dep.Name)
			target.TransitiveProtoDeps.Add(dep.Name)
			target.ProtoPaths.Union(dep.ProtoPaths)
			target.TransitiveProtoDeps.Union(dep.TransitiveProtoDeps)
		case dep.Type == Group:
			// Bubble up the group's cflags/ldflags etc.
			target.update(dep, arch)
		case dep.Type == Action || dep.Type == ActionForeach || dep.Type == Copy:
			if protoPlugin == "" {
				targetArch.Deps.Add(dep.Name)
			}
		case dep.IsLinkerUnitType():
			targetArch.Deps.Add(dep.Name)
		case dep.Type == JavaGroup:
			// Explicitly break the dependency chain when a java_group is
			// reached. Java sources are collected and eventually compiled as
			// one large java_library.
		}

		if dep.Type == StaticLibrary || dep.Type == SourceSet {
			// Bubble up static_libs and source_sets, since Soong does not
			// propagate static_libs up the build tree. Source sets are later
			// translated to static libraries, so they reuse the same
			// closure.
			targetArch.TransitiveStaticLibsDeps.Add(dep.Name)
		}
		if depArch, ok := dep.Archs[arch]; ok {
			targetArch.TransitiveStaticLibsDeps.Union(depArch.TransitiveStaticLibsDeps)
			targetArch.Deps.Union(targetArch.TransitiveStaticLibsDeps)
		}

		// Java sources are kept inside the __compile_java target. That
		// target serves both host and device compilation; only collect the
		// sources destined for the device, i.e. when they feed a __dex
		// target. Prebuilt java dependencies are skipped and have to be
		// added manually when building the jar.
		if strings.HasSuffix(target.Name, dexSuffix) &&
			strings.HasSuffix(dep.Name, compileJavaSuffix) && !isTestTarget {
			// Collecting java sources for test targets is not implemented.
			for src := range dep.Inputs() {
				if isJavaSource(src) {
					p.javaSourcesFor(javaGroupName).Add(src)
				}
			}
		}

		if dep.Type == Action && target.Type == JavaGroup && !isTestTarget {
			// Collecting actions for test targets is not implemented either.
			if strings.Contains(dep.Name, "_aidl") {
				// GN runs aidl through an action, but Soong takes .aidl
				// files directly in srcs, so fold them into the group's
				// java sources.
				if depArch, ok := dep.Archs[arch]; ok {
					p.javaSourcesFor(javaGroupName).Union(depArch.Sources)
					p.aidlLocalIncludeDirs.AddAll(extractIncludesFromAidlArgs(depArch.Args))
				}
			} else {
				p.javaActionsFor(javaGroupName).Add(dep.Name)
			}
		}
	}
	return target, nil
}

func (p *Parser) javaSourcesFor(javaGroupName string) StringSet {
	sources := p.javaSources[javaGroupName]
	if sources == nil {
		sources = NewStringSet()
		p.javaSources[javaGroupName] = sources
	}
	return sources
}

func (p *Parser) javaActionsFor(javaGroupName string) StringSet {
	actions := p.javaActions[javaGroupName]
	if actions == nil {
		actions = NewStringSet()
		p.javaActions[javaGroupName] = actions
	}
	return actions
}

func archForToolchain(toolchain string) string {
	if arch, ok := toolchainArchs[toolchain]; ok {
		return arch
	}
	return "host"
}

// Per the Chromium java toolchain docs, java target names must end in
// "_java".
func isJavaGroup(typ TargetType, targetName string) bool {
	return typ == Group && strings.HasSuffix(targetName, "_java")
}

// responseFileContents reformats the list form
// ['--flags', '--flag=true && false'] into the single string
// `--flags --flag=\"true && false\"`, re-quoting key=value pairs so that
// values with spaces or && survive re-serialization as one token.
func responseFileContents(desc *TargetDescription) string {
	formatted := make([]string, 0, len(desc.ResponseFileContents))
	for _, flag := range desc.ResponseFileContents {
		if key, val, ok := strings.Cut(flag, "="); ok {
			formatted = append(formatted, fmt.Sprintf(`%s=\"%s\"`, key, val))
		} else {
			formatted = append(formatted, flag)
		}
	}
	return strings.Join(formatted, " ")
}

// protoTargetType checks whether the target is a proto library and, if so,
// returns the protoc plugin being used and the description that carries the
// .proto sources: the _gen companion action for generated protos, the
// target's own description for descriptor and metadata-declared source_set
// protos. Returns ("", nil) for non-proto targets.
func (p *Parser) protoTargetType(gnDesc Description, gnTargetName string) (string, *TargetDescription) {
	name, toolchain := splitLabelToolchain(gnTargetName)
	desc := gnDesc[gnTargetName]

	// Descriptor targets don't have a _gen target; instead we look for the
	// characteristic flag in the args of the target itself.
	if InList("--descriptor_set_out", desc.Args) {
		return "descriptor", desc
	}

	// Source set proto targets declare proto_library_sources in the metadata
	// of the description.
	if _, ok := desc.Metadata["proto_library_sources"]; ok {
		return "source_set", desc
	}

	// In all other cases the _gen target has the important information.
	genDesc, ok := gnDesc[name+"_gen"+toolchain]
	if !ok || genDesc.Type != string(Action) {
		return "", nil
	}
	if genDesc.Script != protocWrapperScript {
		return "", nil
	}
	plugin := "proto"
	for _, arg := range genDesc.Args {
		if !strings.HasPrefix(arg, "--plugin=") {
			continue
		}
		// The arg looks like
		//   --plugin=protoc-gen-plugin=gcc_like_host/protozero_plugin
		// and yields the plugin name "protozero".
		value := arg[strings.LastIndex(arg, "=")+1:]
		value = value[strings.LastIndex(value, "/")+1:]
		plugin = strings.TrimSuffix(value, "_plugin")
	}
	return plugin, genDesc
}

// exports in metadata will be available for source_set proto targets.
func protoExports(protoDesc *TargetDescription) []string {
	return protoDesc.Metadata["exports"]
}

// import_dirs in metadata will be available for source_set proto targets.
func protoPaths(protoDesc *TargetDescription) []string {
	return protoDesc.Metadata["import_dirs"]
}

// protoInDir returns the value of the generator's --proto-in-dir flag with
// the source-tree prefix stripped, or "" when the description carries no
// such flag (descriptor and metadata-declared protos).
func protoInDir(protoDesc *TargetDescription) string {
	for i, arg := range protoDesc.Args {
		if arg == "--proto-in-dir" && i+1 < len(protoDesc.Args) {
			return protoInDirPrefix.ReplaceAllString(protoDesc.Args[i+1], "")
		}
	}
	return ""
}
