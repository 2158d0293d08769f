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
	"fmt"
	"strings"
)

// TargetType is the gn rule kind of a target. JavaGroup and the
// proto_library refinement are derived during parsing, not present in the
// raw description.
type TargetType string

const (
	StaticLibrary TargetType = "static_library"
	SharedLibrary TargetType = "shared_library"
	Executable    TargetType = "executable"
	Group         TargetType = "group"
	Action        TargetType = "action"
	ActionForeach TargetType = "action_foreach"
	SourceSet     TargetType = "source_set"
	ProtoLibrary  TargetType = "proto_library"
	Copy          TargetType = "copy"
	JavaGroup     TargetType = "java_group"
)

// archCommon is the pseudo-architecture holding properties that are shared
// by, or promoted from, all real architectures. It makes handling of common
// vs architecture-specific properties uniform.
const archCommon = "common"

var validTypes = []TargetType{
	StaticLibrary, SharedLibrary, Executable, Group, Action, SourceSet,
	ProtoLibrary, Copy, ActionForeach,
}

var (
	ErrInvalidTargetType        = errors.New("invalid target type")
	ErrUnsupportedAttributeType = errors.New("unsupported attribute type")
	ErrUnknownTarget            = errors.New("unknown target")
)

// Arch holds the architecture-dependent properties of a target.
type Arch struct {
	Sources                  StringSet
	Cflags                   StringSet
	Defines                  StringSet
	IncludeDirs              StringSet
	Deps                     StringSet
	TransitiveStaticLibsDeps StringSet
	SourceSetDeps            StringSet
	Ldflags                  StringSet

	// These are valid only for action targets.
	Inputs               StringSet
	Outputs              StringSet
	Args                 []string
	ResponseFileContents string
}

func newArch() *Arch {
	return &Arch{
		Sources:                  NewStringSet(),
		Cflags:                   NewStringSet(),
		Defines:                  NewStringSet(),
		IncludeDirs:              NewStringSet(),
		Deps:                     NewStringSet(),
		TransitiveStaticLibsDeps: NewStringSet(),
		SourceSetDeps:            NewStringSet(),
		Ldflags:                  NewStringSet(),
		Inputs:                   NewStringSet(),
		Outputs:                  NewStringSet(),
	}
}

// setAttr maps a finalizable attribute name to the set holding it, if the
// attribute is set-valued.
func (a *Arch) setAttr(key string) (StringSet, bool) {
	switch key {
	case "sources":
		return a.Sources, true
	case "cflags":
		return a.Cflags, true
	case "defines":
		return a.Defines, true
	case "include_dirs":
		return a.IncludeDirs, true
	case "deps":
		return a.Deps, true
	case "source_set_deps":
		return a.SourceSetDeps, true
	case "inputs":
		return a.Inputs, true
	case "outputs":
		return a.Outputs, true
	case "ldflags":
		return a.Ldflags, true
	}
	return nil, false
}

// Target represents a single GN target, e.g. //src/ipc:ipc, identified by
// its label with the toolchain parenthetical stripped. The variants of one
// logical target built for multiple architectures merge into one Target,
// with per-architecture properties kept in Archs and deduplicated into the
// common entry by Finalize.
type Target struct {
	Name     string
	Type     TargetType
	Testonly bool

	// These are valid only for proto_library targets. ProtoPlugin is
	// typically 'proto', 'protozero', 'ipc' or 'descriptor'.
	ProtoPlugin  string
	ProtoPaths   StringSet
	ProtoExports StringSet
	ProtoInDir   string

	PublicHeaders StringSet

	// Script is valid only for action targets. An action uses the same
	// script for every architecture.
	Script string

	// These are propagated up when encountering a dependency on a
	// source_set target.
	Libs                StringSet
	ProtoDeps           StringSet
	TransitiveProtoDeps StringSet
	Rtti                bool

	// OutputName is last-write-wins across architecture visits.
	OutputName string

	// Archs maps an architecture name, or "common", to its properties.
	Archs map[string]*Arch

	finalized bool
}

// NewTarget validates the raw gn type and returns a Target with an empty
// common architecture entry.
func NewTarget(name string, typ TargetType) (*Target, error) {
	if !validType(typ) {
		return nil, fmt.Errorf("%w: %q for target %s", ErrInvalidTargetType, typ, name)
	}
	return &Target{
		Name:                name,
		Type:                typ,
		ProtoPaths:          NewStringSet(),
		ProtoExports:        NewStringSet(),
		PublicHeaders:       NewStringSet(),
		Libs:                NewStringSet(),
		ProtoDeps:           NewStringSet(),
		TransitiveProtoDeps: NewStringSet(),
		Archs:               map[string]*Arch{archCommon: newArch()},
	}, nil
}

func validType(typ TargetType) bool {
	for _, t := range validTypes {
		if typ == t {
			return true
		}
	}
	return false
}

func (t *Target) common() *Arch {
	return t.Archs[archCommon]
}

// Accessors forwarding to the common architecture entry. After Finalize
// these hold the properties shared by every architecture the target was
// visited under.

func (t *Target) Sources() StringSet     { return t.common().Sources }
func (t *Target) Cflags() StringSet      { return t.common().Cflags }
func (t *Target) Defines() StringSet     { return t.common().Defines }
func (t *Target) Deps() StringSet        { return t.common().Deps }
func (t *Target) IncludeDirs() StringSet { return t.common().IncludeDirs }
func (t *Target) Ldflags() StringSet     { return t.common().Ldflags }

func (t *Target) SourceSetDeps() StringSet { return t.common().SourceSetDeps }

// Inputs, Outputs, Args and ResponseFileContents are valid only for action
// targets.
func (t *Target) Inputs() StringSet            { return t.common().Inputs }
func (t *Target) Outputs() StringSet           { return t.common().Outputs }
func (t *Target) Args() []string               { return t.common().Args }
func (t *Target) ResponseFileContents() string { return t.common().ResponseFileContents }

func (t *Target) HostSupported() bool {
	_, ok := t.Archs["host"]
	return ok
}

func (t *Target) DeviceSupported() bool {
	for name := range t.Archs {
		if strings.HasPrefix(name, "android") {
			return true
		}
	}
	return false
}

func (t *Target) IsLinkerUnitType() bool {
	switch t.Type {
	case Executable, SharedLibrary, StaticLibrary, SourceSet:
		return true
	}
	return false
}

// TargetName returns the part of the label after the colon, e.g. "ipc" for
// //src/ipc:ipc.
func (t *Target) TargetName() string {
	return t.Name[strings.LastIndex(t.Name, ":")+1:]
}

// GetArchs returns the architecture entries excluding common.
func (t *Target) GetArchs() map[string]*Arch {
	archs := make(map[string]*Arch, len(t.Archs))
	for name, arch := range t.Archs {
		if name != archCommon {
			archs[name] = arch
		}
	}
	return archs
}

// archList returns the non-common architecture entries in name order.
func (t *Target) archList() []*Arch {
	archs := t.GetArchs()
	list := make([]*Arch, 0, len(archs))
	for _, name := range SortedStringKeys(archs) {
		list = append(list, archs[name])
	}
	return list
}

// update bubbles other's propagated properties into t for the given
// architecture. Groups are not linker units, so this is how a group's
// properties reach whatever depends on it.
func (t *Target) update(other *Target, arch string) {
	t.Cflags().Union(other.Cflags())
	t.Defines().Union(other.Defines())
	t.Deps().Union(other.Deps())
	t.IncludeDirs().Union(other.IncludeDirs())
	t.Ldflags().Union(other.Ldflags())
	t.SourceSetDeps().Union(other.SourceSetDeps())
	t.ProtoDeps.Union(other.ProtoDeps)
	t.TransitiveProtoDeps.Union(other.TransitiveProtoDeps)
	t.Libs.Union(other.Libs)
	t.ProtoPaths.Union(other.ProtoPaths)

	ta, oa := t.Archs[arch], other.Archs[arch]
	if ta == nil || oa == nil {
		return
	}
	ta.Cflags.Union(oa.Cflags)
	ta.Defines.Union(oa.Defines)
	ta.IncludeDirs.Union(oa.IncludeDirs)
	ta.SourceSetDeps.Union(oa.SourceSetDeps)
	ta.Ldflags.Union(oa.Ldflags)
}

var finalizeKeys = []string{
	"sources", "cflags", "defines", "include_dirs", "deps", "source_set_deps",
	"inputs", "outputs", "args", "response_file_contents", "ldflags",
}

// Finalize moves properties shared by every architecture out of the
// per-architecture entries into common. Set-valued properties promote their
// cross-architecture intersection and subtract it from each architecture;
// list- and string-valued properties promote only when identical and
// non-empty everywhere. Finalize is idempotent and a no-op on a target with
// no real architecture entries.
func (t *Target) Finalize() error {
	if t.finalized {
		return nil
	}
	t.finalized = true

	if len(t.Archs) == 1 {
		return nil
	}

	for _, key := range finalizeKeys {
		if err := t.finalizeAttribute(key); err != nil {
			return err
		}
	}
	return nil
}

func (t *Target) finalizeAttribute(key string) error {
	if _, ok := t.common().setAttr(key); ok {
		t.finalizeSetAttribute(key)
		return nil
	}
	switch key {
	case "args":
		archs := t.archList()
		args := archs[0].Args
		if len(args) == 0 {
			return nil
		}
		for _, arch := range archs[1:] {
			if !equalStrings(args, arch.Args) {
				return nil
			}
		}
		t.common().Args = CopyOf(args)
	case "response_file_contents":
		archs := t.archList()
		contents := archs[0].ResponseFileContents
		if contents == "" {
			return nil
		}
		for _, arch := range archs[1:] {
			if arch.ResponseFileContents != contents {
				return nil
			}
		}
		t.common().ResponseFileContents = contents
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAttributeType, key)
	}
	return nil
}

func (t *Target) finalizeSetAttribute(key string) {
	common, _ := t.common().setAttr(key)

	// Common gains the intersection of the arch-dependent values...
	sets := make([]StringSet, 0, len(t.Archs)-1)
	for _, arch := range t.archList() {
		set, _ := arch.setAttr(key)
		sets = append(sets, set)
	}
	common.Union(intersection(sets...))

	// ...and each architecture keeps only what common does not cover.
	for _, set := range sets {
		set.Subtract(common)
	}
}
