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

// Package modmeta reads mod metadata out of an installed mods directory and
// reconciles it with the game's load-order file. Metadata extraction is
// deliberately fuzzy: .mod files are scripts, and a full parse is neither
// possible nor needed to pull out the handful of declarative keys mods use
// to describe ordering constraints.
package modmeta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Metadata is the ordering information extracted from one mod's .mod file.
type Metadata struct {
	// LoadBefore names mods this mod must precede.
	LoadBefore []string
	// LoadAfter names mods this mod must follow.
	LoadAfter []string
	// Require names mods this mod depends on; a requirement implies
	// LoadAfter unless the mod also declares LoadBefore for it.
	Require []string
	// Version is the mod's declared version, if any.
	Version string

	path string // "<dir>/<name>.mod", slash-normalized
}

// NewMetadata returns an empty Metadata for the given .mod path. An empty
// path marks a mod that is named in the load order but not installed.
func NewMetadata(path string) Metadata {
	return Metadata{path: strings.ReplaceAll(path, "\\", "/")}
}

// ParseMetadata fuzzily extracts ordering keys from the contents of a .mod
// file. Keys that are absent or not in the expected shape are left empty;
// extraction never fails.
func ParseMetadata(path, file string) Metadata {
	m := NewMetadata(path)
	if _, list, isList, ok := findKeyValue(file, "load_before"); ok && isList {
		m.LoadBefore = list
	}
	if _, list, isList, ok := findKeyValue(file, "load_after"); ok && isList {
		m.LoadAfter = list
	}
	if _, list, isList, ok := findKeyValue(file, "require"); ok && isList {
		m.Require = list
	}
	if str, _, isList, ok := findKeyValue(file, "version"); ok && !isList {
		m.Version = str
	}
	return m
}

// Path returns the mod's .mod path relative to the mods directory, or ""
// when the mod is not installed.
func (m *Metadata) Path() string {
	return m.path
}

// Name derives the mod's name from its <name>/<name>.mod path.
func (m *Metadata) Name() (string, bool) {
	_, file, ok := strings.Cut(m.path, "/")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(file, ".mod")
	if !ok {
		return "", false
	}
	return name, true
}

// Scan reads one Metadata per direct subdirectory of dir that holds a
// matching <name>/<name>.mod file. Loose files and unreadable mods are
// skipped, not errors; a missing mods directory is an error.
func Scan(dir string) ([]Metadata, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read mods directory: %w", err)
	}

	var out []Metadata
	for _, de := range dirents {
		if !de.IsDir() {
			continue
		}

		sub := filepath.Join(dir, de.Name())
		files, err := os.ReadDir(sub)
		if err != nil {
			return nil, fmt.Errorf("read mod directory %s: %w", sub, err)
		}

		for _, f := range files {
			if filepath.Ext(f.Name()) != ".mod" {
				continue
			}
			if strings.TrimSuffix(f.Name(), ".mod") != de.Name() {
				continue
			}

			data, err := os.ReadFile(filepath.Join(sub, f.Name()))
			if err != nil {
				break
			}
			out = append(out, ParseMetadata(de.Name()+"/"+f.Name(), string(data)))
			break
		}
	}
	return out, nil
}

// findKeyValue scans file for occurrences of key until one is followed by a
// value it can parse: `= "string"` or `= {"a", "b"}`.
func findKeyValue(file, key string) (str string, list []string, isList, ok bool) {
	offset := 0
	for {
		i := strings.Index(file[offset:], key)
		if i < 0 {
			return "", nil, false, false
		}
		offset += i + len(key)
		if str, list, isList, ok = parseValue(file[offset:]); ok {
			return str, list, isList, true
		}
	}
}

func parseValue(text string) (str string, list []string, isList, ok bool) {
	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	text, ok = strings.CutPrefix(text, "=")
	if !ok {
		return "", nil, false, false
	}
	text = strings.TrimLeftFunc(text, unicode.IsSpace)

	if rest, hasQuote := strings.CutPrefix(text, `"`); hasQuote {
		name, _, closed := strings.Cut(rest, `"`)
		if !closed {
			return "", nil, false, false
		}
		return name, nil, false, true
	}

	rest, hasBrace := strings.CutPrefix(text, "{")
	if !hasBrace {
		return "", nil, false, false
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	for !strings.HasPrefix(rest, "}") {
		var opened, closed bool
		rest, opened = strings.CutPrefix(rest, `"`)
		if !opened {
			return "", nil, false, false
		}
		var name string
		name, rest, closed = strings.Cut(rest, `"`)
		if !closed {
			return "", nil, false, false
		}
		list = append(list, name)

		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		rest, _ = strings.CutPrefix(rest, ",")
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
	return "", list, true, true
}
