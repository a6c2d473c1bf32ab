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

package archive_test

import (
	"slices"
	"testing"

	"github.com/modworks/go-modpack/archive"
)

// walkNames flattens a view through Walk for easy comparison.
func walkNames(list *archive.List) []string {
	if list == nil {
		return nil
	}
	var out []string
	list.Walk(func(name string, kind archive.Kind, depth int) {
		entry := name
		if kind.IsDir() {
			entry += "/"
		}
		for i := 0; i < depth; i++ {
			entry = "  " + entry
		}
		out = append(out, entry)
	})
	return out
}

func TestListLookup(t *testing.T) {
	t.Parallel()

	list := archive.NewList([]archive.Entry{
		{Kind: archive.File, Path: "a/c"},
		{Kind: archive.Dir, Path: "a"},
		{Kind: archive.File, Path: "a/b"},
		{Kind: archive.Dir, Path: "z"},
	})

	sub := list.List("a")
	if sub == nil {
		t.Fatal(`List("a") = nil, want sub-view`)
	}

	// The trailing sibling "z" must not leak into the sub-view even though
	// it sorts after the whole "a" subtree.
	got := walkNames(sub)
	want := []string{"b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf(`List("a") = %v, want %v`, got, want)
	}

	if sub := list.List("z"); sub == nil || sub.Len() != 0 {
		t.Errorf(`List("z") = %v, want empty sub-view`, sub)
	}
}

func TestListLookupMisses(t *testing.T) {
	t.Parallel()

	list := archive.NewList([]archive.Entry{
		{Kind: archive.Dir, Path: "mods"},
		{Kind: archive.File, Path: "mods/readme"},
		{Kind: archive.File, Path: "notes"},
	})

	if sub := list.List("missing"); sub != nil {
		t.Errorf(`List("missing") = %v, want nil`, walkNames(sub))
	}
	// A file never has children, even with the right name.
	if sub := list.List("notes"); sub != nil {
		t.Errorf(`List("notes") = %v, want nil`, walkNames(sub))
	}
	// Only immediate children match, not nested paths.
	if sub := list.List("mods/readme"); sub != nil {
		t.Errorf(`List("mods/readme") = %v, want nil`, walkNames(sub))
	}
}

func TestListLookupNested(t *testing.T) {
	t.Parallel()

	list := archive.NewList([]archive.Entry{
		{Kind: archive.Dir, Path: "pack"},
		{Kind: archive.Dir, Path: "pack/mods"},
		{Kind: archive.Dir, Path: "pack/mods/alpha"},
		{Kind: archive.File, Path: "pack/mods/alpha/alpha.mod"},
		{Kind: archive.File, Path: "pack/mods/readme"},
		{Kind: archive.File, Path: "pack/notes"},
	})

	sub := list.List("pack")
	if sub == nil {
		t.Fatal(`List("pack") = nil`)
	}
	sub = sub.List("MODS") // lookup folds ASCII case
	if sub == nil {
		t.Fatal(`List("MODS") = nil`)
	}

	got := walkNames(sub)
	want := []string{"alpha/", "  alpha.mod", "readme"}
	if !slices.Equal(got, want) {
		t.Errorf("nested view = %v, want %v", got, want)
	}

	sub = sub.List("alpha")
	if sub == nil {
		t.Fatal(`List("alpha") = nil`)
	}
	if got := walkNames(sub); !slices.Equal(got, []string{"alpha.mod"}) {
		t.Errorf("leaf view = %v, want [alpha.mod]", got)
	}
}

func TestCompose(t *testing.T) {
	t.Parallel()

	a := archive.NewList([]archive.Entry{
		{Kind: archive.Dir, Path: "mods"},
		{Kind: archive.Dir, Path: "mods/alpha"},
		{Kind: archive.File, Path: "mods/alpha/alpha.mod"},
	})
	b := archive.NewList([]archive.Entry{
		{Kind: archive.Dir, Path: "mods"},
		{Kind: archive.Dir, Path: "mods/beta"},
		{Kind: archive.File, Path: "mods/beta/beta.mod"},
	})

	merged := archive.Compose(a, b)

	// The shared "mods" directory collapses to one entry.
	got := walkNames(merged)
	want := []string{
		"mods/",
		"  alpha/",
		"    alpha.mod",
		"  beta/",
		"    beta.mod",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Compose = %v, want %v", got, want)
	}
}

func TestComposeConflictPanics(t *testing.T) {
	t.Parallel()

	a := archive.NewList([]archive.Entry{{Kind: archive.Dir, Path: "thing"}})
	b := archive.NewList([]archive.Entry{{Kind: archive.File, Path: "thing"}})

	defer func() {
		if recover() == nil {
			t.Error("Compose with conflicting kinds did not panic")
		}
	}()
	archive.Compose(a, b)
}

func TestPrepend(t *testing.T) {
	t.Parallel()

	list := archive.NewList([]archive.Entry{
		{Kind: archive.Dir, Path: "alpha"},
		{Kind: archive.File, Path: "alpha/alpha.mod"},
	})
	list.Prepend("mods")

	got := walkNames(list)
	want := []string{"mods/", "  alpha/", "    alpha.mod"}
	if !slices.Equal(got, want) {
		t.Errorf("after Prepend = %v, want %v", got, want)
	}

	sub := list.List("mods")
	if sub == nil {
		t.Fatal(`List("mods") = nil after Prepend`)
	}
	if got := walkNames(sub); !slices.Equal(got, []string{"alpha/", "  alpha.mod"}) {
		t.Errorf("sub-view after Prepend = %v", got)
	}
}

func TestPrependSubViewPanics(t *testing.T) {
	t.Parallel()

	list := archive.NewList([]archive.Entry{
		{Kind: archive.Dir, Path: "a"},
		{Kind: archive.File, Path: "a/b"},
	})
	sub := list.List("a")

	defer func() {
		if recover() == nil {
			t.Error("Prepend on a sub-view did not panic")
		}
	}()
	sub.Prepend("mods")
}

// TestNewListIdempotentOrder sorts the same entries from two shuffles and
// expects identical traversal, exercising the comparator's totality.
func TestNewListIdempotentOrder(t *testing.T) {
	t.Parallel()

	entries := []archive.Entry{
		{Kind: archive.Dir, Path: "pack"},
		{Kind: archive.Dir, Path: "pack/Bin"},
		{Kind: archive.File, Path: "pack/Bin/tool"},
		{Kind: archive.Dir, Path: "pack/mods"},
		{Kind: archive.File, Path: "pack/mods/readme"},
		{Kind: archive.File, Path: "pack/notes"},
		{Kind: archive.Dir, Path: "zz"},
	}

	fwd := walkNames(archive.NewList(slices.Clone(entries)))

	rev := slices.Clone(entries)
	slices.Reverse(rev)
	if got := walkNames(archive.NewList(rev)); !slices.Equal(got, fwd) {
		t.Errorf("order depends on input permutation: %v vs %v", got, fwd)
	}
}
