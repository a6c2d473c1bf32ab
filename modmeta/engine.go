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

package modmeta

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"strings"
	"unicode"
)

// ErrDependencyCycle is returned by Engine.Sort when the declared ordering
// constraints cannot all be satisfied.
var ErrDependencyCycle = errors.New("modmeta: dependency cycle in load order")

// State classifies one mod's standing between the load-order file and the
// mods directory on disk.
type State int

const (
	// Enabled mods are listed in the load order and present on disk.
	Enabled State = iota
	// Disabled mods are listed commented out and present on disk.
	Disabled
	// MissingEntry mods are present on disk but absent from the load order.
	MissingEntry
	// NotInstalled mods are listed in the load order but absent on disk.
	NotInstalled
)

func (s State) String() string {
	switch s {
	case Enabled:
		return "enabled"
	case Disabled:
		return "disabled"
	case MissingEntry:
		return "missing entry"
	case NotInstalled:
		return "not installed"
	default:
		return "unknown"
	}
}

// Entry is one mod of the load order joined with whatever metadata Scan
// found for it.
type Entry struct {
	Meta  Metadata
	State State

	name string
}

// Name returns the mod's load-order name.
func (e *Entry) Name() string {
	return e.name
}

// MissingRequire reports a declared requirement that names no known mod.
type MissingRequire struct {
	Mod     string
	Require string
}

// Engine reconciles the game's load-order file with the metadata scanned
// from the mods directory. The zero value is ready to Load.
//
// The "base" and "dmf" entries are the loader's own bootstrap mods; they are
// managed by the game patch, never by the user, so the engine drops them on
// Load and Generate never emits them.
type Engine struct {
	// Header holds the leading block of "-- " comment lines verbatim,
	// trailing newline included.
	Header string
	Mods   []Entry
}

// Load parses the load-order text and merges in the scanned metadata.
// Mods found on disk but absent from the text are appended as MissingEntry;
// mods named in the text with no metadata on disk become NotInstalled.
func (e *Engine) Load(loadOrder string, found []Metadata) {
	e.Header = ""
	e.Mods = e.Mods[:0]

	inComments := true
	for _, line := range strings.Split(loadOrder, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if inComments && strings.HasPrefix(line, "-- ") {
			e.Header += line + "\n"
			continue
		}
		inComments = false
		if line == "" {
			continue
		}

		state := Enabled
		name := line
		if rest, ok := strings.CutPrefix(line, "--"); ok {
			state = Disabled
			name = strings.TrimLeftFunc(rest, unicode.IsSpace)
		}
		if name == "base" || name == "dmf" {
			continue
		}
		e.Mods = append(e.Mods, Entry{State: state, name: name})
	}

	for _, meta := range found {
		name, ok := meta.Name()
		if !ok || name == "base" || name == "dmf" {
			continue
		}
		i := slices.IndexFunc(e.Mods, func(m Entry) bool { return m.name == name })
		if i >= 0 {
			e.Mods[i].Meta = meta
		} else {
			e.Mods = append(e.Mods, Entry{Meta: meta, State: MissingEntry, name: name})
		}
	}

	for i := range e.Mods {
		if e.Mods[i].Meta.Path() == "" {
			e.Mods[i].State = NotInstalled
		}
	}
}

// Sort reorders Mods so every declared constraint is satisfied. Mods with no
// constraints in either direction keep alphabetical order after all
// constrained mods; constrained mods settle in resolution rounds, rounds tied
// alphabetically. Requirements that name no known mod are reported, not
// errors. Sort fails only on a dependency cycle.
func (e *Engine) Sort() ([]MissingRequire, error) {
	// dag maps each mod to the names that must load before it. Presence of
	// a key means the mod is not yet placed.
	dag := make(map[string][]string, len(e.Mods))
	for i := range e.Mods {
		dag[e.Mods[i].name] = nil
	}

	var missing []MissingRequire
	for i := range e.Mods {
		for _, name := range e.Mods[i].Meta.Require {
			if _, ok := dag[name]; !ok {
				missing = append(missing, MissingRequire{Mod: e.Mods[i].name, Require: name})
			}
		}
	}

	used := make(map[string]bool)
	for i := range e.Mods {
		m := &e.Mods[i]
		meta := &m.Meta
		if len(meta.LoadBefore) == 0 && len(meta.LoadAfter) == 0 && len(meta.Require) == 0 {
			continue
		}
		used[m.name] = true

		for _, name := range meta.LoadBefore {
			entry, ok := dag[name]
			if !ok {
				continue
			}
			if !slices.Contains(entry, m.name) {
				used[name] = true
				dag[name] = append(entry, m.name)
			}
		}

		entry := dag[m.name]
		for _, name := range meta.LoadAfter {
			if !slices.Contains(entry, name) {
				used[name] = true
				entry = append(entry, name)
			}
		}
		for _, name := range meta.Require {
			if !slices.Contains(meta.LoadBefore, name) && !slices.Contains(entry, name) {
				used[name] = true
				entry = append(entry, name)
			}
		}
		dag[m.name] = entry
	}

	type placement struct {
		round uint32
		index int
	}

	// Unconstrained mods never take part in resolution; they sort past
	// every real round.
	queue := make([]string, len(e.Mods))
	order := make([]placement, 0, len(e.Mods))
	for i := range e.Mods {
		name := e.Mods[i].name
		if used[name] {
			queue[i] = name
		} else {
			delete(dag, name)
			order = append(order, placement{round: math.MaxUint32, index: i})
		}
	}

	round := uint32(0)
	offset := -1
	for offset != len(order) {
		offset = len(order)
		for i, name := range queue {
			if name == "" {
				continue
			}
			resolved := true
			for _, dep := range dag[name] {
				if _, ok := dag[dep]; ok {
					resolved = false
					break
				}
			}
			if resolved {
				order = append(order, placement{round: round, index: i})
				queue[i] = ""
			}
		}
		for _, p := range order[offset:] {
			delete(dag, e.Mods[p.index].name)
		}
		round++
	}
	if offset != len(queue) {
		return nil, ErrDependencyCycle
	}

	slices.SortStableFunc(order, func(a, b placement) int {
		if c := cmp.Compare(a.round, b.round); c != 0 {
			return c
		}
		return compareFold(e.Mods[a.index].name, e.Mods[b.index].name)
	})

	mods := slices.Clone(e.Mods)
	for i, p := range order {
		e.Mods[i] = mods[p.index]
	}
	return missing, nil
}

// Generate serializes the engine back to load-order text. Disabled and
// not-installed mods are written commented out; mods missing a load-order
// entry are skipped until the user enables them.
func (e *Engine) Generate() string {
	var sb strings.Builder
	sb.WriteString(e.Header)
	for i := range e.Mods {
		m := &e.Mods[i]
		switch m.State {
		case MissingEntry:
			continue
		case Disabled, NotInstalled:
			sb.WriteString("--")
		}
		sb.WriteString(m.name)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// compareFold orders names byte-wise, ASCII case folded. A name that is a
// prefix of another compares equal; ties keep their resolution order.
func compareFold(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if c := cmp.Compare(foldByte(a[i]), foldByte(b[i])); c != 0 {
			return c
		}
	}
	return 0
}

func foldByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
