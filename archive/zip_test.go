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
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/flate"

	"github.com/modworks/go-modpack/archive"
)

// zipMember describes one member for the in-test ZIP builder. Directory
// members use a trailing slash and no data, matching common archivers.
type zipMember struct {
	name    string
	data    []byte
	dir     bool
	deflate bool
}

// buildZIP assembles a single-disk ZIP byte-for-byte: local headers, member
// data, central directory, end-of-central-directory trailer. The stdlib
// writer is no use here since it emits data descriptors and leaves the
// external attributes unset; the reader under test wants the strict layout.
// tweak, if non-nil, may corrupt the buffer before it is returned; it
// receives the central directory's offset for addressing records.
func buildZIP(t *testing.T, members []zipMember, tweak func(buf []byte, dirOffset int)) []byte {
	t.Helper()

	le := binary.LittleEndian
	var body, central bytes.Buffer

	for _, m := range members {
		comp := m.data
		method := uint16(0)
		if m.deflate {
			method = 8
			var cb bytes.Buffer
			fw, err := flate.NewWriter(&cb, flate.DefaultCompression)
			if err != nil {
				t.Fatalf("flate writer: %v", err)
			}
			if _, err := fw.Write(m.data); err != nil {
				t.Fatalf("compress member: %v", err)
			}
			if err := fw.Close(); err != nil {
				t.Fatalf("close flate writer: %v", err)
			}
			comp = cb.Bytes()
		}
		crc := crc32.ChecksumIEEE(m.data)
		offset := body.Len()

		hdr := make([]byte, 30)
		copy(hdr, "PK\x03\x04")
		le.PutUint16(hdr[4:], 0x14) // version needed
		le.PutUint16(hdr[8:], method)
		le.PutUint32(hdr[14:], crc)
		le.PutUint32(hdr[18:], uint32(len(comp)))
		le.PutUint32(hdr[22:], uint32(len(m.data)))
		le.PutUint16(hdr[26:], uint16(len(m.name)))
		body.Write(hdr)
		body.WriteString(m.name)
		body.Write(comp)

		rec := make([]byte, 46)
		copy(rec, "PK\x01\x02")
		le.PutUint16(rec[4:], 0x14) // version made by
		le.PutUint16(rec[6:], 0x14) // version needed
		le.PutUint16(rec[10:], method)
		le.PutUint32(rec[16:], crc)
		le.PutUint32(rec[20:], uint32(len(comp)))
		le.PutUint32(rec[24:], uint32(len(m.data)))
		le.PutUint16(rec[28:], uint16(len(m.name)))
		attrs := uint32(0x20)
		if m.dir {
			attrs = 0x10
		}
		le.PutUint32(rec[38:], attrs)
		le.PutUint32(rec[42:], uint32(offset))
		central.Write(rec)
		central.WriteString(m.name)
	}

	dirOffset := body.Len()
	body.Write(central.Bytes())

	eocd := make([]byte, 22)
	copy(eocd, "PK\x05\x06")
	le.PutUint16(eocd[8:], uint16(len(members)))
	le.PutUint16(eocd[10:], uint16(len(members)))
	le.PutUint32(eocd[12:], uint32(central.Len()))
	le.PutUint32(eocd[16:], uint32(dirOffset))
	body.Write(eocd)

	buf := body.Bytes()
	if tweak != nil {
		tweak(buf, dirOffset)
	}
	return buf
}

func writeTestZIP(t *testing.T, members []zipMember, tweak func(buf []byte, dirOffset int)) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pack.zip")
	if err := os.WriteFile(path, buildZIP(t, members, tweak), 0o644); err != nil {
		t.Fatalf("write test zip: %v", err)
	}
	return path
}

func TestZipRoundTrip(t *testing.T) {
	t.Parallel()

	modFile := []byte("return { run = function() end }\n")
	blob := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 64)
	path := writeTestZIP(t, []zipMember{
		{name: "MyMod/", dir: true},
		{name: "MyMod/MyMod.mod", data: modFile, deflate: true},
		{name: "MyMod/data.bin", data: blob},
		{name: "MyMod/empty", data: nil, deflate: true},
	}, nil)

	reader, err := archive.OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip: %v", err)
	}
	defer func() { _ = reader.Close() }()

	list, err := reader.List(archive.NewMonitor())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	sub := list.List("MyMod")
	if sub == nil {
		t.Fatalf("listing missing root; walk: %v", walkNames(list))
	}
	if got := walkNames(sub); len(got) != 3 {
		t.Errorf("root children = %v, want 3 entries", got)
	}

	dest := t.TempDir()
	if err := reader.Copy(archive.NewMonitor(), dest); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "MyMod", "MyMod.mod"))
	if err != nil {
		t.Fatalf("read extracted deflate member: %v", err)
	}
	if !bytes.Equal(got, modFile) {
		t.Errorf("deflate member = %q, want %q", got, modFile)
	}

	got, err = os.ReadFile(filepath.Join(dest, "MyMod", "data.bin"))
	if err != nil {
		t.Fatalf("read extracted stored member: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Error("stored member does not round-trip")
	}

	if data, err := os.ReadFile(filepath.Join(dest, "MyMod", "empty")); err != nil || len(data) != 0 {
		t.Errorf("empty member = %v, %v", data, err)
	}
}

// TestZipRootSynthesis opens an archive whose members never name the
// top-level directory itself; the reader must still surface it.
func TestZipRootSynthesis(t *testing.T) {
	t.Parallel()

	path := writeTestZIP(t, []zipMember{
		{name: "MyMod/MyMod.mod", data: []byte("return {}")},
	}, nil)

	reader, err := archive.OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip: %v", err)
	}
	defer func() { _ = reader.Close() }()

	list, err := reader.List(archive.NewMonitor())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.List("MyMod") == nil {
		t.Errorf("synthesized root missing; walk: %v", walkNames(list))
	}

	dest := t.TempDir()
	if err := reader.Copy(archive.NewMonitor(), dest); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "MyMod", "MyMod.mod")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

// TestZipTooLarge declares an aggregate uncompressed size past the ceiling;
// listing must fail on the declared sizes alone, before touching any member
// data (which here would not even inflate).
func TestZipTooLarge(t *testing.T) {
	t.Parallel()

	path := writeTestZIP(t, []zipMember{
		{name: "a/x", data: []byte("x")},
		{name: "a/y", data: []byte("y")},
	}, func(buf []byte, dirOffset int) {
		binary.LittleEndian.PutUint32(buf[dirOffset+24:], 0xfffffff0)
		second := dirOffset + 46 + len("a/x")
		binary.LittleEndian.PutUint32(buf[second+24:], 0xfffffff0)
	})

	reader, err := archive.OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip: %v", err)
	}
	defer func() { _ = reader.Close() }()

	if _, err := reader.List(archive.NewMonitor()); !errors.Is(err, archive.ErrTooLarge) {
		t.Errorf("List = %v, want ErrTooLarge", err)
	}
}

func TestZipCanceled(t *testing.T) {
	t.Parallel()

	path := writeTestZIP(t, []zipMember{
		{name: "a/x", data: []byte("x")},
	}, nil)

	reader, err := archive.OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip: %v", err)
	}
	defer func() { _ = reader.Close() }()

	monitor := archive.NewMonitor()
	monitor.Cancel()
	if _, err := reader.List(monitor); !errors.Is(err, archive.ErrCanceled) {
		t.Errorf("List after cancel = %v, want ErrCanceled", err)
	}
	if err := reader.Copy(monitor, t.TempDir()); !errors.Is(err, archive.ErrCanceled) {
		t.Errorf("Copy after cancel = %v, want ErrCanceled", err)
	}
}

func TestZipMalformed(t *testing.T) {
	t.Parallel()

	plain := []zipMember{{name: "a/x", data: []byte("x")}}

	tests := []struct {
		name    string
		members []zipMember
		tweak   func(buf []byte, dirOffset int)
		onOpen  bool // failure expected from OpenZip, not List
	}{
		{
			name:    "bad trailer signature",
			members: plain,
			tweak:   func(buf []byte, _ int) { buf[len(buf)-22] ^= 0xff },
			onOpen:  true,
		},
		{
			name:    "multi-disk trailer",
			members: plain,
			tweak:   func(buf []byte, _ int) { buf[len(buf)-22+4] = 1 },
			onOpen:  true,
		},
		{
			name:    "bad record signature",
			members: plain,
			tweak:   func(buf []byte, dirOffset int) { buf[dirOffset] ^= 0xff },
		},
		{
			name:    "unsupported version",
			members: plain,
			tweak:   func(buf []byte, dirOffset int) { buf[dirOffset+6] = 0x2d },
		},
		{
			name:    "general purpose flags set",
			members: plain,
			tweak:   func(buf []byte, dirOffset int) { buf[dirOffset+8] = 0x08 },
		},
		{
			name:    "unsupported compression method",
			members: plain,
			tweak:   func(buf []byte, dirOffset int) { buf[dirOffset+10] = 99 },
		},
		{
			name:    "unknown external attributes",
			members: plain,
			tweak:   func(buf []byte, dirOffset int) { buf[dirOffset+38] = 0 },
		},
		{
			name:    "non-ascii member name",
			members: []zipMember{{name: "a/\x80x", data: []byte("x")}},
		},
		{
			name:    "member name escapes root",
			members: []zipMember{{name: "../evil", data: []byte("x")}},
		},
		{
			name:    "absolute member name",
			members: []zipMember{{name: "/evil", data: []byte("x")}},
		},
		{
			name:    "backslash member name",
			members: []zipMember{{name: "a\\evil", data: []byte("x")}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeTestZIP(t, tt.members, tt.tweak)
			reader, err := archive.OpenZip(path)
			if tt.onOpen {
				var malformed *archive.MalformedError
				if !errors.As(err, &malformed) {
					t.Errorf("OpenZip = %v, want MalformedError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenZip: %v", err)
			}
			defer func() { _ = reader.Close() }()

			var malformed *archive.MalformedError
			if _, err := reader.List(archive.NewMonitor()); !errors.As(err, &malformed) {
				t.Errorf("List = %v, want MalformedError", err)
			}
		})
	}
}

// TestZipLocalHeaderMismatch corrupts the CRC in the local header only; the
// central directory stays valid, so listing succeeds and extraction fails
// the cross-check.
func TestZipLocalHeaderMismatch(t *testing.T) {
	t.Parallel()

	path := writeTestZIP(t, []zipMember{
		{name: "a/x", data: []byte("x")},
	}, func(buf []byte, _ int) { buf[14] ^= 0xff })

	reader, err := archive.OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip: %v", err)
	}
	defer func() { _ = reader.Close() }()

	if _, err := reader.List(archive.NewMonitor()); err != nil {
		t.Fatalf("List: %v", err)
	}

	var malformed *archive.MalformedError
	if err := reader.Copy(archive.NewMonitor(), t.TempDir()); !errors.As(err, &malformed) {
		t.Errorf("Copy = %v, want MalformedError", err)
	}
}

func TestOpenZipExtension(t *testing.T) {
	t.Parallel()

	path := writeTestZIP(t, []zipMember{{name: "a/x", data: []byte("x")}}, nil)

	reader, err := archive.Open(path)
	if err != nil {
		t.Fatalf("Open(.zip): %v", err)
	}
	if _, ok := reader.(*archive.ZipReader); !ok {
		t.Errorf("Open(.zip) = %T, want *archive.ZipReader", reader)
	}
	_ = reader.Close()
}
