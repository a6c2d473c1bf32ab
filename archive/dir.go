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
	"io"
	"os"
	"path/filepath"
)

// DirReader reads a plain directory as a mod package source. Entries are
// rooted at the directory's own name, so a dropped folder lists as a single
// rooted subtree.
type DirReader struct {
	root string
}

// OpenDir opens a directory reader over path.
func OpenDir(path string) (*DirReader, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve directory: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotArchive, path)
	}
	return &DirReader{root: root}, nil
}

// walk visits the root and everything below it with an explicit stack,
// keeping stack depth flat on deep trees. rel is the slash-delimited path of
// the object relative to the root's parent, so the root itself is visited as
// its own base name. The monitor is checked before every filesystem step.
func (d *DirReader) walk(monitor *Monitor, fn func(path, rel string, kind Kind) error) error {
	parent := filepath.Dir(d.root)

	if err := monitor.Err(); err != nil {
		return err
	}
	if err := fn(d.root, filepath.Base(d.root), Dir); err != nil {
		return err
	}

	stack := []string{d.root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := monitor.Err(); err != nil {
			return err
		}
		dirents, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read directory: %w", err)
		}

		for _, de := range dirents {
			if err := monitor.Err(); err != nil {
				return err
			}

			path := filepath.Join(dir, de.Name())
			rel, err := filepath.Rel(parent, path)
			if err != nil {
				return fmt.Errorf("relativize %s: %w", path, err)
			}

			var kind Kind
			switch {
			case de.Type().IsRegular():
				kind = File
			case de.IsDir():
				kind = Dir
			default:
				return fmt.Errorf("unsupported file type at %s", path)
			}

			if err := fn(path, filepath.ToSlash(rel), kind); err != nil {
				return err
			}
			if kind.IsDir() {
				stack = append(stack, path)
			}
		}
	}
	return nil
}

// List enumerates the directory subtree.
func (d *DirReader) List(monitor *Monitor) (*List, error) {
	var entries []Entry
	err := d.walk(monitor, func(_, rel string, kind Kind) error {
		entries = append(entries, newEntry(rel, kind))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewList(entries), nil
}

// Copy replays the subtree into dest. Directories tolerate already-existing
// targets; files overwrite. The first failure aborts with no rollback, since
// a partial copy is recoverable by re-running.
func (d *DirReader) Copy(monitor *Monitor, dest string) error {
	return d.walk(monitor, func(path, rel string, kind Kind) error {
		target := filepath.Join(dest, filepath.FromSlash(rel))
		if kind.IsDir() {
			return mkdirTolerant(target)
		}
		return copyFile(path, target)
	})
}

// Close implements Reader. A directory reader holds no resources.
func (*DirReader) Close() error { return nil }

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy file data: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination file: %w", err)
	}
	return nil
}
