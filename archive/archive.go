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

// Package archive provides a uniform read-only view over mod package
// sources. A source is either a plain directory or a ZIP file; both expose
// the same contract: enumerate entries into a sorted List, or copy the
// entries to a destination directory on disk.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Reader enumerates and extracts one physical source. A Reader supports one
// operation at a time; List and Copy must not run concurrently on the same
// Reader.
type Reader interface {
	// List enumerates every entry of the source, checking monitor once
	// per unit of work. The returned List includes the source's root.
	List(monitor *Monitor) (*List, error)

	// Copy replays the source into dest, creating directories (tolerating
	// ones that already exist) and overwriting files. The first failure
	// aborts the copy; a partially populated destination is left as-is.
	Copy(monitor *Monitor, dest string) error

	// Close releases resources held by the reader.
	Close() error
}

// Open opens a reader for path: a directory reader for directories, a ZIP
// reader for regular files with a .zip extension. Anything else fails with
// ErrNotArchive.
func Open(path string) (Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}

	switch {
	case info.IsDir():
		return OpenDir(path)
	case info.Mode().IsRegular() && strings.EqualFold(filepath.Ext(path), ".zip"):
		return OpenZip(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotArchive, path)
	}
}

// mkdirTolerant creates a single directory, treating "already exists" as
// success. Pre-existing directories at a copy destination are expected when
// multiple sources share parents.
func mkdirTolerant(path string) error {
	if err := os.Mkdir(path, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}
