// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import "errors"

// ErrDecode is the root cause of every decoder failure. Use
// [errors.Is] with this error to test whether a response was
// structurally malformed as opposed to, say, a transport failure.
var ErrDecode = errors.New("malformed DNS message")

// Specific decode failures, all wrapping [ErrDecode].
var (
	// ErrShortMessage means the buffer ended before the structure
	// being decoded was complete.
	ErrShortMessage = wrapDecode("unexpected end of message")

	// ErrBadPointer means a compressed name contained a pointer that
	// does not point strictly backward in the message.
	ErrBadPointer = wrapDecode("compression pointer not strictly backward")

	// ErrCountMismatch means a header count disagrees with the number
	// of entries actually present in the corresponding section.
	ErrCountMismatch = wrapDecode("section count does not match message body")

	// ErrBadRData means the rdata of a record does not have the shape
	// required by its type.
	ErrBadRData = wrapDecode("rdata inconsistent with record type")

	// ErrNameTooLong means a name exceeds the 255 octet limit or a
	// label exceeds the 63 octet limit.
	ErrNameTooLong = wrapDecode("name or label too long")

	// ErrTrailingGarbage means a length-delimited structure was not
	// consumed exactly to its declared boundary.
	ErrTrailingGarbage = wrapDecode("length-delimited structure not fully consumed")
)

// wrapDecode creates a named decode error wrapping [ErrDecode].
func wrapDecode(msg string) error {
	return &decodeError{msg}
}

// decodeError implements a decode error chained to [ErrDecode].
type decodeError struct {
	msg string
}

// Error implements error.
func (e *decodeError) Error() string {
	return ErrDecode.Error() + ": " + e.msg
}

// Unwrap allows [errors.Is] to match [ErrDecode].
func (e *decodeError) Unwrap() error {
	return ErrDecode
}
