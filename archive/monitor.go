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

import "sync/atomic"

// Monitor is a shared cancellation flag for one archive session. A single
// Monitor is checked by every reader the session owns, once per unit of work
// (one filesystem entry, one ZIP record). It is never reset.
type Monitor struct {
	canceled atomic.Bool
}

// NewMonitor returns a Monitor in the running state.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Cancel flips the monitor to the canceled state. Safe to call from any
// goroutine, and more than once.
func (m *Monitor) Cancel() {
	m.canceled.Store(true)
}

// Err returns ErrCanceled once the monitor has been canceled, nil before.
func (m *Monitor) Err() error {
	if m.canceled.Load() {
		return ErrCanceled
	}
	return nil
}
