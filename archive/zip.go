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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/modworks/go-modpack/internal/binary"
)

// ZIP structure sizes and signatures. Only plain single-disk archives with
// store or deflate members are supported; everything else (encryption, data
// descriptors, ZIP64, multi-disk) is rejected with an explicit error rather
// than silently mishandled.
const (
	eocdLen        = 22 // end of central directory record
	centralHdrLen  = 46 // central directory record fixed prefix
	localHdrLen    = 30 // local file header fixed prefix
	maxVersionNeed = 0x14

	methodStore   = 0
	methodDeflate = 8
)

var (
	magicCentral = []byte{0x50, 0x4b, 0x01, 0x02}
	magicLocal   = []byte{0x50, 0x4b, 0x03, 0x04}
	magicEOCD    = []byte{0x50, 0x4b, 0x05, 0x06}
)

// zipRecord is one parsed central directory record.
type zipRecord struct {
	crc      uint32
	compSize uint32
	size     uint32
	offset   uint32 // local file header offset
	method   uint16
	kind     Kind
	name     string // trailing slash stripped
}

// ZipReader reads a ZIP file as a mod package source. Construction parses
// only the end-of-central-directory trailer; records are parsed per
// operation and member data is inflated on demand.
type ZipReader struct {
	file       *os.File
	path       string
	numRecords int
	dirSize    int
	dirOffset  int64
}

// OpenZip opens path and locates its central directory.
func OpenZip(path string) (*ZipReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	z := &ZipReader{file: file, path: path}
	if err := z.init(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return z, nil
}

func (z *ZipReader) init() error {
	info, err := z.file.Stat()
	if err != nil {
		return fmt.Errorf("stat archive: %w", err)
	}
	if info.Size() < eocdLen {
		return z.malformed("missing end of central directory")
	}

	var trailer [eocdLen]byte
	if _, err := z.file.ReadAt(trailer[:], info.Size()-eocdLen); err != nil {
		return fmt.Errorf("read end of central directory: %w", err)
	}

	data := trailer[:]
	if !binary.HasMagic(data, magicEOCD) {
		return z.malformed("invalid end of central directory signature")
	}
	if binary.Uint16(data, 4) != 0 || binary.Uint16(data, 6) != 0 ||
		binary.Uint16(data, 8) != binary.Uint16(data, 10) {
		return z.malformed("multi-disk archives are not supported")
	}

	z.numRecords = int(binary.Uint16(data, 10))
	z.dirSize = int(binary.Uint32(data, 12))
	z.dirOffset = int64(binary.Uint32(data, 16))
	return nil
}

// Close closes the underlying file.
func (z *ZipReader) Close() error {
	return z.file.Close()
}

func (z *ZipReader) malformed(reason string) error {
	return &MalformedError{Path: z.path, Reason: reason}
}

// records reads the whole central directory in one read and invokes cb for
// every record, validating each fixed prefix before use.
func (z *ZipReader) records(cb func(rec *zipRecord) error) error {
	buf := make([]byte, z.dirSize)
	if _, err := z.file.ReadAt(buf, z.dirOffset); err != nil {
		return fmt.Errorf("read central directory: %w", err)
	}

	data := buf
	for i := 0; i < z.numRecords; i++ {
		if len(data) < centralHdrLen {
			return z.malformed("truncated central directory record")
		}
		if !binary.HasMagic(data, magicCentral) {
			return z.malformed("invalid central directory record signature")
		}
		if binary.Uint16(data, 6) > maxVersionNeed {
			return z.malformed("record needs an unsupported format version")
		}
		if binary.Uint16(data, 8) != 0 {
			return z.malformed("unsupported general purpose flags")
		}
		method := binary.Uint16(data, 10)
		if method != methodStore && method != methodDeflate {
			return z.malformed("unsupported compression method")
		}
		if binary.Uint16(data, 34) != 0 {
			return z.malformed("record on unexpected disk")
		}
		if binary.Uint16(data, 36) > 1 {
			return z.malformed("unsupported internal attributes")
		}

		var kind Kind
		switch binary.Uint32(data, 38) & 0xff {
		case 0x10:
			kind = Dir
		case 0x20:
			kind = File
		default:
			return z.malformed("unknown file kind in external attributes")
		}

		nameLen := int(binary.Uint16(data, 28))
		extraLen := int(binary.Uint16(data, 30))
		commentLen := int(binary.Uint16(data, 32))
		recordLen := centralHdrLen + nameLen + extraLen + commentLen
		if len(data) < recordLen {
			return z.malformed("truncated central directory record name")
		}

		name := strings.TrimSuffix(string(data[centralHdrLen:centralHdrLen+nameLen]), "/")
		if err := z.checkName(name); err != nil {
			return err
		}

		rec := &zipRecord{
			crc:      binary.Uint32(data, 16),
			compSize: binary.Uint32(data, 20),
			size:     binary.Uint32(data, 24),
			offset:   binary.Uint32(data, 42),
			method:   method,
			kind:     kind,
			name:     name,
		}
		if err := cb(rec); err != nil {
			return err
		}

		data = data[recordLen:]
	}
	return nil
}

// checkName rejects member names this reader will not handle: non-ASCII
// names are unsupported rather than transliterated, and anything that could
// escape the extraction root is treated as a malformed archive.
func (z *ZipReader) checkName(name string) error {
	switch {
	case name == "":
		return z.malformed("empty member name")
	case !binary.IsASCII(name):
		return z.malformed("only ascii member names are supported")
	case strings.HasPrefix(name, "/"):
		return z.malformed("absolute member name")
	case strings.Contains(name, "\\") || strings.Contains(name, ".."):
		return z.malformed("member name escapes the archive root")
	}
	return nil
}

// readRecord reads one member's bytes, validating the local header against
// the central directory record before trusting its payload. Decompression
// reuses scratch across calls; the returned slice aliases it and is only
// valid until the next call.
func (z *ZipReader) readRecord(rec *zipRecord, scratch *[]byte) ([]byte, error) {
	var header [localHdrLen]byte
	if _, err := z.file.ReadAt(header[:], int64(rec.offset)); err != nil {
		return nil, fmt.Errorf("read local file header: %w", err)
	}
	if !binary.HasMagic(header[:], magicLocal) {
		return nil, z.malformed("invalid local file header signature")
	}
	if m := binary.Uint16(header[:], 8); m != methodStore && m != methodDeflate {
		return nil, z.malformed("unsupported compression method")
	}
	if binary.Uint32(header[:], 14) != rec.crc {
		return nil, z.malformed("local header does not match central directory")
	}

	nameLen := int64(binary.Uint16(header[:], 26))
	extraLen := int64(binary.Uint16(header[:], 28))
	dataOffset := int64(rec.offset) + localHdrLen + nameLen + extraLen

	compSize := int(rec.compSize)
	size := int(rec.size)
	if need := compSize + size; cap(*scratch) < need {
		*scratch = make([]byte, need)
	}
	buf := (*scratch)[:compSize+size]

	compressed := buf[:compSize]
	if _, err := z.file.ReadAt(compressed, dataOffset); err != nil {
		return nil, fmt.Errorf("read member data: %w", err)
	}
	if rec.method == methodStore {
		return compressed, nil
	}

	out := buf[compSize:]
	fr := flate.NewReader(bytes.NewReader(compressed))
	n, err := io.ReadFull(fr, out)
	_ = fr.Close()
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, z.malformed("corrupt deflate stream")
	}
	if n != size {
		return nil, z.malformed("short deflate output")
	}
	return out, nil
}

// List enumerates the archive's members. When the members are not already
// rooted under a single top-level name, the first record's top path segment
// is synthesized as an extra root directory entry. Declared uncompressed
// sizes are summed and capped before any decompression happens.
func (z *ZipReader) List(monitor *Monitor) (*List, error) {
	var entries []Entry
	var total uint64
	first := true
	err := z.records(func(rec *zipRecord) error {
		if err := monitor.Err(); err != nil {
			return err
		}

		total += uint64(rec.size)
		if total >= MaxOutputSize {
			return fmt.Errorf("%w: %s", ErrTooLarge, z.path)
		}

		if first {
			first = false
			if root, _, ok := strings.Cut(rec.name, "/"); ok {
				entries = append(entries, newEntry(root, Dir))
			}
		}
		entries = append(entries, newEntry(rec.name, rec.kind))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewList(entries), nil
}

// Copy extracts the archive's members into dest. The size ceiling is
// re-validated against the bytes actually inflated, independently of the
// sizes the central directory declared during listing.
func (z *ZipReader) Copy(monitor *Monitor, dest string) error {
	var scratch []byte
	var total uint64
	first := true
	return z.records(func(rec *zipRecord) error {
		if err := monitor.Err(); err != nil {
			return err
		}

		if first {
			first = false
			if root, _, ok := strings.Cut(rec.name, "/"); ok {
				if err := mkdirTolerant(filepath.Join(dest, root)); err != nil {
					return err
				}
			}
		}

		target := filepath.Join(dest, filepath.FromSlash(rec.name))
		if rec.kind.IsDir() {
			return mkdirTolerant(target)
		}

		data, err := z.readRecord(rec, &scratch)
		if err != nil {
			return err
		}
		total += uint64(len(data))
		if total >= MaxOutputSize {
			return fmt.Errorf("%w: %s", ErrTooLarge, z.path)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return fmt.Errorf("write member: %w", err)
		}
		return nil
	})
}
