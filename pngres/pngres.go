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

// Package pngres pulls embedded PNG streams out of opaque resource blobs.
// Mod packages often carry icons and preview images packed inside larger
// binary resources with no index; the scanner finds them by signature and
// walks the chunk structure to recover each stream's extent and, when a
// tEXt chunk carries one, its original file name.
package pngres

import (
	"unicode/utf8"

	"github.com/modworks/go-modpack/internal/binary"
)

var pngHeader = []byte{137, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	chunkIEND = 0x49454E44
	chunkTEXT = 0x74455874

	fileNameKeyword = "File Name\x00"
)

// A Stream is one PNG found inside a resource blob. Data aliases the
// scanned buffer.
type Stream struct {
	Data []byte
	// Name is the original file name recorded in a tEXt chunk, or "".
	Name string
	// Index counts streams in scan order, from zero.
	Index int
}

// A Scanner walks a resource blob yielding embedded PNG streams.
type Scanner struct {
	buf    []byte
	offset int
	index  int
}

// NewScanner returns a Scanner over buf. The Scanner aliases buf.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// Next returns the next embedded PNG stream, or false when the blob is
// exhausted. A stream truncated by the end of the blob is returned as far
// as it goes.
func (s *Scanner) Next() (Stream, bool) {
	buf := s.buf
	offset := s.offset
	for offset+len(pngHeader) <= len(buf) {
		if !binary.HasMagic(buf[offset:], pngHeader) {
			offset++
			continue
		}

		start := offset
		offset += len(pngHeader)
		name := ""
		for offset+8 <= len(buf) {
			size := int(binary.Uint32BE(buf, offset))
			typ := binary.Uint32BE(buf, offset+4)
			offset += 8

			if typ == chunkIEND {
				offset = min(offset+4, len(buf))
				break
			}
			if typ == chunkTEXT && size > len(fileNameKeyword) && offset+size <= len(buf) {
				if n := textFileName(buf[offset : offset+size]); n != "" {
					name = n
				}
			}
			offset += size + 4
		}
		offset = min(offset, len(buf))

		s.offset = offset
		s.index++
		return Stream{Data: buf[start:offset], Name: name, Index: s.index - 1}, true
	}

	s.offset = len(buf)
	return Stream{}, false
}

// Extract returns every embedded PNG stream in buf.
func Extract(buf []byte) []Stream {
	var out []Stream
	s := NewScanner(buf)
	for {
		png, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, png)
	}
}

func textFileName(payload []byte) string {
	if string(payload[:len(fileNameKeyword)]) != fileNameKeyword {
		return ""
	}
	name := payload[len(fileNameKeyword):]
	if !utf8.Valid(name) {
		return ""
	}
	return string(name)
}
