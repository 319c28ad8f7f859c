// Package types defines the public API surface for reading Windows Event Log
// ("evtx") files: the normalized Event record, severity levels, typed errors
// with stable categories, open options, stream accounting and diagnostics.
//
// The concrete implementation lives in internal packages and provides
// mmap-backed, zero-copy parsing of chunks and records.
//
// Design goals:
//   - Zero-copy chunk and record views over the file buffer.
//   - Paranoid bounds checking; never panic on malformed input.
//   - Typed errors with stable categories (format/chunk/record/binxml).
//   - Partial-failure semantics: corruption skips items, never the stream.
//
// This package has no dependencies beyond the standard library.
package types
