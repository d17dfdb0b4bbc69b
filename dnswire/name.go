// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import "strings"

const (
	// maxLabelLength is the maximum length of a single label.
	maxLabelLength = 63

	// maxNameLength is the maximum length of an encoded name.
	maxNameLength = 255
)

// decodeName reads a possibly-compressed name starting at off. It
// returns the name in presentation form with a trailing dot and the
// offset of the first byte after the name in the original buffer.
//
// Compression pointers are only followed backward: every pointer target
// must be strictly smaller than the position of the pointer itself and
// strictly smaller than any previously followed target. A forward or
// self-referential pointer yields [ErrBadPointer], so decoding always
// terminates.
func decodeName(buf []byte, off int) (string, int, error) {
	var (
		labels  []string
		total   int
		nextOff = -1 // offset after the name, -1 until the first pointer
	)

	// floor is the lowest position we have jumped from so far; every
	// new pointer target must be strictly below it.
	floor := len(buf)

	for {
		if off < 0 || off >= len(buf) {
			return "", 0, ErrShortMessage
		}
		b := buf[off]

		switch b & 0xc0 {
		// Ordinary label; a zero length is the root label and
		// terminates the name.
		case 0x00:
			if b == 0 {
				if nextOff < 0 {
					nextOff = off + 1
				}
				name := strings.Join(labels, ".") + "."
				return name, nextOff, nil
			}
			length := int(b)
			if off+1+length > len(buf) {
				return "", 0, ErrShortMessage
			}
			total += length + 1
			if total > maxNameLength {
				return "", 0, ErrNameTooLong
			}
			labels = append(labels, string(buf[off+1:off+1+length]))
			off += 1 + length

		// Compression pointer.
		case 0xc0:
			if off+1 >= len(buf) {
				return "", 0, ErrShortMessage
			}
			target := int(b&0x3f)<<8 | int(buf[off+1])
			if nextOff < 0 {
				nextOff = off + 2
			}
			if target >= off || target >= floor {
				return "", 0, ErrBadPointer
			}
			floor = target
			off = target

		// The 0x40 and 0x80 label types were never standardized.
		default:
			return "", 0, ErrBadRData
		}
	}
}
