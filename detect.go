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

package modpack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modworks/go-modpack/archive"
)

// ErrUnknownLayout indicates a source's listing matches no recognized mod
// package shape.
var ErrUnknownLayout = errors.New("unrecognized mod package layout")

// DetectPrefix is the default Fixup. A source shaped like a game root (a
// top-level mods or binaries directory) keeps its paths as-is; a bare mod
// folder, recognized by a top-level directory <name> directly containing
// <name>.mod, is nested under mods/. Anything else is rejected.
func DetectPrefix(source string, list *archive.List) (Prefix, error) {
	if list.List("mods") != nil || list.List("binaries") != nil {
		return PrefixNone, nil
	}

	parent := ""
	found := false
	list.Walk(func(name string, _ archive.Kind, depth int) {
		switch depth {
		case 0:
			parent = name
		case 1:
			if stem, ok := strings.CutSuffix(name, ".mod"); ok && stem == parent {
				found = true
			}
		}
	})
	if found {
		return PrefixMods, nil
	}

	return PrefixNone, fmt.Errorf("%w: %s", ErrUnknownLayout, source)
}
