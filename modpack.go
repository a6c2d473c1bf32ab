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

// Package modpack inspects and installs game mod packages. An Archive
// composes one or more sources (directories or ZIP files) into a single
// merged read-only view that can be rendered as a tree and extracted into a
// game directory.
//
// Listing and copying run on worker goroutines and report through one-shot
// completion callbacks, so a UI thread driving a drag-drop interaction never
// blocks. The callback runs on the worker goroutine; callers must not assume
// it runs where View or Copy was called.
package modpack

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/modworks/go-modpack/archive"
)

// Prefix is a per-source path-remapping decision, made by the fixup hook
// after the source is listed and before the merge.
type Prefix int

const (
	// PrefixNone keeps the source's paths as listed; its copy lands
	// directly under the destination root.
	PrefixNone Prefix = iota

	// PrefixMods nests the source under a literal "mods/" segment in the
	// merged view and routes its copy into a mods subdirectory of the
	// destination.
	PrefixMods
)

// Fixup inspects one source's raw (pre-merge) listing and decides its
// Prefix. Returning an error signals that the source's internal layout is
// not a recognized mod package, which fails the whole listing pass.
type Fixup func(source string, list *archive.List) (Prefix, error)

type source struct {
	path   string
	reader archive.Reader
}

// inner is shared between the Archive and its outstanding workers; the last
// reference to drop closes the readers.
type inner struct {
	monitor *archive.Monitor
	sources []source
	fixup   Fixup
	refs    atomic.Int32
}

func (in *inner) release() {
	if in.refs.Add(-1) == 0 {
		for _, src := range in.sources {
			_ = src.reader.Close()
		}
	}
}

// Archive owns the opened sources of one inspection session. Sources are
// always processed in the order they were supplied.
type Archive struct {
	in     *inner
	closed atomic.Bool
}

// New opens one reader per path. A path that is neither a directory nor a
// recognized archive fails here, before any worker is spawned.
func New(paths []string, fixup Fixup) (*Archive, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		reader, err := archive.Open(path)
		if err != nil {
			for _, src := range sources {
				_ = src.reader.Close()
			}
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		sources = append(sources, source{path: path, reader: reader})
	}

	in := &inner{
		monitor: archive.NewMonitor(),
		sources: sources,
		fixup:   fixup,
	}
	in.refs.Store(1)
	return &Archive{in: in}, nil
}

// Close ends the session. In-flight work observes the cancellation within
// one unit of work and fails with archive.ErrCanceled; a view that was
// already delivered stays valid for reading. Close never blocks on workers.
func (a *Archive) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	a.in.monitor.Cancel()
	a.in.release()
	return nil
}

// Cancel aborts outstanding work without ending the session.
func (a *Archive) Cancel() {
	a.in.monitor.Cancel()
}

// View lists every source on a worker goroutine, applies the fixup hook and
// its prefix decision per source, and merges everything into one composed
// View. complete is invoked exactly once, from the worker: either with the
// finished view or with the first error. No partial view is ever delivered.
func (a *Archive) View(complete func(*View, error)) {
	in := a.in
	in.refs.Add(1)
	go func() {
		defer in.release()

		lists := make([]*archive.List, 0, len(in.sources))
		prefixes := make([]Prefix, 0, len(in.sources))
		for _, src := range in.sources {
			list, err := src.reader.List(in.monitor)
			if err != nil {
				complete(nil, err)
				return
			}

			prefix, err := in.fixup(src.path, list)
			if err != nil {
				complete(nil, err)
				return
			}
			if prefix == PrefixMods {
				list.Prepend("mods")
			}

			prefixes = append(prefixes, prefix)
			lists = append(lists, list)
		}

		complete(&View{
			in:       in,
			prefixes: prefixes,
			list:     archive.Compose(lists...),
		}, nil)
	}()
}

// View is the composed result of one listing pass: the merged entry list
// plus the per-source prefix decisions that will route a later copy.
type View struct {
	in       *inner
	prefixes []Prefix
	list     *archive.List
	copied   atomic.Bool
}

// List returns the merged entry list.
func (v *View) List() *archive.List {
	return v.list
}

// Copy replays each source into dest on a worker goroutine, in source order.
// PrefixMods sources land under a mods subdirectory, created lazily the
// first time it is needed; PrefixNone sources land directly under dest.
// complete receives the number of sources copied and the first error, if
// any; later sources are not attempted after a failure.
//
// Copy may be called at most once per view. A second call is a caller bug
// and panics.
func (v *View) Copy(dest string, complete func(copied int, err error)) {
	if v.copied.Swap(true) {
		panic("modpack: View.Copy called twice")
	}

	in := v.in
	in.refs.Add(1)
	go func() {
		defer in.release()

		modsDir := ""
		copied := 0
		for i, prefix := range v.prefixes {
			target := dest
			if prefix == PrefixMods {
				if modsDir == "" {
					modsDir = filepath.Join(dest, "mods")
					if err := os.MkdirAll(modsDir, 0o755); err != nil {
						complete(copied, fmt.Errorf("create mods directory: %w", err))
						return
					}
				}
				target = modsDir
			}

			if err := in.sources[i].reader.Copy(in.monitor, target); err != nil {
				complete(copied, err)
				return
			}
			copied++
		}
		complete(copied, nil)
	}()
}
