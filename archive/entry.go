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
	"cmp"
	"strings"
)

// Kind distinguishes directories from files. Dir orders before File wherever
// the canonical comparator tie-breaks on kind.
type Kind uint8

// Entry kinds.
const (
	Dir Kind = iota
	File
)

// IsDir reports whether the kind is Dir.
func (k Kind) IsDir() bool { return k == Dir }

// IsFile reports whether the kind is File.
func (k Kind) IsFile() bool { return k == File }

func (k Kind) String() string {
	switch k {
	case Dir:
		return "dir"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

// Entry is one virtual path plus its kind within a reader's listing. Paths
// are slash-delimited, relative to the reader's root, and never contain "..".
// Entries are immutable once listed.
type Entry struct {
	Kind Kind
	Path string
}

func newEntry(path string, kind Kind) Entry {
	return Entry{
		Kind: kind,
		Path: strings.ReplaceAll(path, "\\", "/"),
	}
}

// Compare defines the canonical total order over virtual paths. Segments
// (delimited by '/') are compared byte-wise after ASCII lowercasing. The
// order keeps everything nested under a directory contiguous and immediately
// after it, and pushes a file after any directory sharing its name prefix,
// since a file cannot contain children.
//
// Both sorting and binary-search lookup rely on this function; the two must
// never disagree, or directory listing silently returns wrong ranges.
func Compare(apath string, akind Kind, bpath string, bkind Kind) int {
	ac := strings.Count(apath, "/") + 1
	bc := strings.Count(bpath, "/") + 1

	// Walk segment pairs until one path runs out or a mismatch is found.
	ord := 0
	prefixMatch := true
	checked := 0
	ai, bi := 0, 0
	for ai <= len(apath) && bi <= len(bpath) {
		var aseg, bseg string
		aseg, ai = nextSegment(apath, ai)
		bseg, bi = nextSegment(bpath, bi)
		ord = compareSegments(aseg, bseg)
		checked++
		if ord != 0 {
			prefixMatch = false
			break
		}
	}

	count := cmp.Compare(ac, bc)
	kind := cmp.Compare(akind, bkind)

	switch {
	case count == 0 && checked == ac:
		// Both paths terminate at the compared segment: same-depth
		// siblings (or the same path), directories first.
		return firstNonZero(kind, ord)
	case prefixMatch:
		// One path is a strict ancestor of the other; the ancestor
		// sorts first, placing a directory before its descendants.
		return count
	case checked == ac || checked == bc:
		// The shorter side terminated at the mismatch point. Its kind
		// decides against Dir: files fall after any directory run
		// sharing their prefix.
		var prio int
		switch {
		case count < 0:
			prio = cmp.Compare(akind, Dir)
		case count > 0:
			prio = cmp.Compare(Dir, bkind)
		default:
			prio = kind
		}
		return firstNonZero(prio, ord)
	default:
		return firstNonZero(ord, count)
	}
}

func compareEntries(a, b Entry) int {
	return Compare(a.Path, a.Kind, b.Path, b.Kind)
}

// nextSegment returns the segment starting at i and the start of the segment
// after it. The returned index exceeds len(s) once the last segment has been
// consumed.
func nextSegment(s string, i int) (string, int) {
	if j := strings.IndexByte(s[i:], '/'); j >= 0 {
		return s[i : i+j], i + j + 1
	}
	return s[i:], len(s) + 1
}

// compareSegments compares two path segments byte-wise, ASCII-lowercased,
// shorter segment first on a common prefix.
func compareSegments(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if ord := cmp.Compare(lowerASCII(a[i]), lowerASCII(b[i])); ord != 0 {
			return ord
		}
	}
	return cmp.Compare(len(a), len(b))
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c | 0x20
	}
	return c
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}
