// Copyright (c) 2025 The go-modpack Authors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of go-modpack.
//
// go-modpack is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-modpack is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-modpack.  If not, see <https://www.gnu.org/licenses/>.

package archive

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// List is an ordered collection of entries, always sorted by the canonical
// comparator. The offset marks how many leading path bytes were consumed by
// prior directory navigation; sub-views returned by List share the backing
// entries with a larger offset instead of reallocating substrings.
type List struct {
	entries []Entry
	offset  int
}

// NewList sorts entries into canonical order and wraps them in a List.
func NewList(entries []Entry) *List {
	slices.SortFunc(entries, compareEntries)
	return &List{entries: entries}
}

// Compose merges several lists into one sorted List. Exact duplicates (same
// path, same kind) collapse into a single entry; this is expected when
// multiple sources share parent directory entries. Two sources disagreeing on
// file-vs-directory for the same path is a caller bug in prefix assignment,
// not a runtime condition, and panics.
func Compose(lists ...*List) *List {
	var entries []Entry
	for _, list := range lists {
		entries = append(entries, list.entries...)
	}

	slices.SortFunc(entries, compareEntries)
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.Path == prev.Path && cur.Kind != prev.Kind {
			panic(fmt.Sprintf("archive: conflicting kinds for path %q", cur.Path))
		}
	}
	entries = slices.Compact(entries)

	return &List{entries: entries}
}

// Len returns the number of entries in the current view.
func (l *List) Len() int {
	return len(l.entries)
}

// List looks up key as an immediate child directory of the current view and
// returns the sub-view of everything nested under it, excluding the matched
// directory entry itself. Returns nil if no such child directory exists.
// Lookup is a binary search plus the matched run, never a full rescan.
func (l *List) List(key string) *List {
	e := l.entries
	o := l.offset

	start, found := sort.Find(len(e), func(i int) int {
		return Compare(key, Dir, e[i].Path[o:], e[i].Kind)
	})
	if !found || !e[start].Kind.IsDir() {
		return nil
	}

	rest := e[start+1:]
	n := sort.Search(len(rest), func(i int) bool {
		return !hasSegmentPrefix(rest[i].Path[o:], key)
	})

	return &List{
		entries: rest[:n],
		offset:  o + len(key) + 1,
	}
}

// Walk calls fn for every entry in order, passing the entry's final path
// segment, its kind, and its depth below the current view (0 for immediate
// children). Callers render trees from this without recomputing substrings.
func (l *List) Walk(fn func(name string, kind Kind, depth int)) {
	for _, e := range l.entries {
		path := e.Path[l.offset:]
		depth := strings.Count(path, "/")
		name := path[strings.LastIndexByte(path, '/')+1:]
		fn(name, e.Kind, depth)
	}
}

// Prepend rewrites every path to sit under dir and synthesizes dir itself as
// the leading directory entry. Valid only on a freshly listed view.
func (l *List) Prepend(dir string) {
	if l.offset != 0 {
		panic("archive: Prepend on a borrowed sub-view")
	}
	prefix := dir + "/"
	for i := range l.entries {
		l.entries[i].Path = prefix + l.entries[i].Path
	}
	l.entries = slices.Insert(l.entries, 0, newEntry(dir, Dir))
}

// hasSegmentPrefix reports whether path starts with the segment key followed
// by a separator, compared ASCII-case-insensitively.
func hasSegmentPrefix(path, key string) bool {
	if len(path) <= len(key) || path[len(key)] != '/' {
		return false
	}
	for i := 0; i < len(key); i++ {
		if lowerASCII(path[i]) != lowerASCII(key[i]) {
			return false
		}
	}
	return true
}
