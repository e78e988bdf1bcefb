package protocol

import "errors"

var (
	// ErrFraming marks a length prefix or block boundary that does not fit the
	// bytes left in the current message. The stream cannot be trusted afterwards.
	ErrFraming = errors.New("protocol: framing error")
	// ErrUnknownType marks a type tag with no registered reader.
	ErrUnknownType = errors.New("protocol: unknown type tag")
	// ErrUnexpectedValue marks a value that differs from the one the command expects.
	ErrUnexpectedValue = errors.New("protocol: unexpected value")
	ErrTruncated       = errors.New("protocol: truncated data")
)
