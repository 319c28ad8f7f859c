package format

import "errors"

var (
	// ErrSignatureMismatch indicates a structure had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrChecksumMismatch indicates a stored CRC32 did not match the computed one.
	ErrChecksumMismatch = errors.New("format: checksum mismatch")
	// ErrUnsupported indicates the structure or version is not supported.
	ErrUnsupported = errors.New("format: unsupported feature")
	// ErrRecordInvalid indicates a record failed its self-consistency checks.
	ErrRecordInvalid = errors.New("format: invalid record")
)
