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

import "sort"

// StringSet is an unordered set of strings. Most target properties coming out
// of a gn desc (cflags, defines, deps, ...) are sets: duplicates carry no
// meaning and ordering is imposed only at emission time via SortedList.
type StringSet map[string]bool

func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	s.AddAll(items)
	return s
}

func (s StringSet) Add(item string) {
	s[item] = true
}

func (s StringSet) AddAll(items []string) {
	for _, item := range items {
		s[item] = true
	}
}

func (s StringSet) Union(other StringSet) {
	for item := range other {
		s[item] = true
	}
}

// Subtract removes every element of other from s.
func (s StringSet) Subtract(other StringSet) {
	for item := range other {
		delete(s, item)
	}
}

func (s StringSet) Contains(item string) bool {
	return s[item]
}

// SortedList returns the elements of s in ascending order.
func (s StringSet) SortedList() []string {
	list := make([]string, 0, len(s))
	for item := range s {
		list = append(list, item)
	}
	sort.Strings(list)
	return list
}

// intersection returns the elements common to all given sets. With no sets it
// returns an empty set.
func intersection(sets ...StringSet) StringSet {
	result := NewStringSet()
	if len(sets) == 0 {
		return result
	}
	for item := range sets[0] {
		inAll := true
		for _, other := range sets[1:] {
			if !other.Contains(item) {
				inAll = false
				break
			}
		}
		if inAll {
			result.Add(item)
		}
	}
	return result
}
