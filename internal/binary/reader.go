// Package binary provides helpers for decoding fixed-width fields from
// archive and resource headers held in memory.
package binary

import (
	"bytes"
	"encoding/binary"
)

// Uint16 reads a little-endian uint16 from b at off.
func Uint16(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// Uint32 reads a little-endian uint32 from b at off.
func Uint32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// Uint32BE reads a big-endian uint32 from b at off.
func Uint32BE(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off : off+4])
}

// HasMagic reports whether b begins with the given signature bytes.
func HasMagic(b, magic []byte) bool {
	return len(b) >= len(magic) && bytes.Equal(b[:len(magic)], magic)
}

// IsASCII reports whether s contains only 7-bit ASCII bytes.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
