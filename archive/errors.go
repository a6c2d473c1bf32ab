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
	"errors"
	"fmt"
)

// MaxOutputSize is the highest aggregate uncompressed size a single source
// may declare or produce (4 GiB). Listing and copying each enforce it
// independently, which guards against central directories whose declared
// sizes disagree with what actually inflates.
const MaxOutputSize = 1 << 32

// Common errors for archive handling.
var (
	// ErrCanceled indicates the operation observed a canceled Monitor.
	ErrCanceled = errors.New("operation canceled")

	// ErrNotArchive indicates a path is neither a directory nor a
	// recognized archive file.
	ErrNotArchive = errors.New("not a directory or supported archive")

	// ErrTooLarge indicates a source's aggregate uncompressed content
	// exceeds MaxOutputSize.
	ErrTooLarge = errors.New("archive output larger than supported")
)

// MalformedError indicates an archive failed structural validation.
type MalformedError struct {
	Path   string // archive file path
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed archive %q: %s", e.Path, e.Reason)
}
