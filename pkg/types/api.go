package types

import (
	"log/slog"
	"time"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindFormat ErrKind = iota // malformed file header (bad "ElfFile" magic, truncation)
	ErrKindChunk                 // chunk-level integrity failure (checksum mismatch)
	ErrKindRecord                // record-level integrity failure (sizes, ordering)
	ErrKindBinXml                // undecodable BinXML payload in one record
	ErrKindState                 // invalid operation for current state (e.g., closed)
)

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Sentinels commonly returned by implementations.
var (
	// ErrNotEvtx indicates the file lacks a valid "ElfFile" header.
	ErrNotEvtx = &Error{Kind: ErrKindFormat, Msg: "not an evtx file (bad ElfFile header)"}
	// ErrClosed indicates an operation on a closed reader or stream.
	ErrClosed = &Error{Kind: ErrKindState, Msg: "reader is closed"}
)

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// Level is the normalized event severity.
type Level int

const (
	LevelInfo Level = iota
	LevelCritical
	LevelError
	LevelWarning
)

// levelNames is ordered by the Level constants above.
var levelNames = [...]string{"info", "critical", "error", "warning"}

// String implements the Stringer interface for Level.
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "info"
	}
	return levelNames[l]
}

// LevelFromNumber maps the on-disk level number to a Level. The mapping is
// table-driven; unknown numbers fall back to info, and so does an absent
// level field.
func LevelFromNumber(n int) Level {
	switch n {
	case 1:
		return LevelCritical
	case 2:
		return LevelError
	case 3:
		return LevelWarning
	default: // 0, 4 and anything unknown
		return LevelInfo
	}
}

// ParseLevel resolves a severity name. The second result is false for
// unrecognized names.
func ParseLevel(s string) (Level, bool) {
	for i, name := range levelNames {
		if s == name {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// Event is one normalized event record. It holds no reference back into the
// chunk it was decoded from.
type Event struct {
	// RecordID is the record identifier from the record header, strictly
	// increasing within a chunk.
	RecordID uint64
	// EventID is the provider-scoped event identifier from System/EventID.
	EventID uint32
	// Level is the normalized severity; info when the record carries none.
	Level Level
	// Timestamp is TimeCreated's SystemTime attribute when present,
	// otherwise the record header's written time.
	Timestamp time.Time
	// Provider is the Provider element's Name attribute.
	Provider string
	// Message joins the EventData item values with " | ", truncated to
	// MaxMessageLen characters.
	Message string
}

// MaxMessageLen bounds Event.Message.
const MaxMessageLen = 200

// -----------------------------------------------------------------------------
// File metadata, options, stream accounting
// -----------------------------------------------------------------------------

// FileInfo summarizes the file header of an open log.
type FileInfo struct {
	MajorVersion uint16
	MinorVersion uint16
	ChunkCount   int
	NextRecordID uint64
	Flags        uint32
	// IsDirty reports the log was open for writing when captured; dirty
	// files carry a stale header checksum.
	IsDirty bool
	// IsFull reports the log reached its configured maximum size.
	IsFull bool
}

// OpenOptions tunes reader behavior. The zero value is ready to use.
type OpenOptions struct {
	// CollectDiagnostics records a per-offset diagnostic for every skipped
	// chunk and record, retrievable from the stream. Off by default;
	// the skip counters in Stats are always maintained.
	CollectDiagnostics bool

	// Logger receives warning-level notices for skipped chunks and records.
	// Nil disables logging.
	Logger *slog.Logger

	// MaxRecordSize rejects records whose declared size exceeds it.
	// Defaults to the chunk size, the format's natural upper bound.
	MaxRecordSize int
}

// EventStream is the pull-based iterator over decoded events:
//
//	for stream.Next() {
//		ev := stream.Event()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
//
// Iteration internally skips corrupt chunks and records; the skipped items
// are observable through Stats and, when collection is enabled, through
// Diagnostics.
type EventStream interface {
	// Next advances to the next decodable event, returning false at end of
	// stream or on a terminal error.
	Next() bool
	// Event returns the event produced by the last successful Next.
	Event() Event
	// Err returns the terminal error, nil when the stream ended cleanly.
	Err() error
	// Stats returns the skip counters accumulated so far.
	Stats() Stats
	// Diagnostics returns the detailed report, nil unless collection was
	// requested in the open options.
	Diagnostics() *DiagnosticReport
}

// Stats counts the items a stream skipped while iterating. The stream never
// aborts on partial corruption; these counters are the caller's window into
// what was dropped.
type Stats struct {
	// ChunksRead counts chunks whose records were enumerated.
	ChunksRead int
	// ChunksSkipped counts chunks dropped for checksum or header failures.
	ChunksSkipped int
	// RecordsRead counts records that produced an event.
	RecordsRead int
	// RecordsSkipped counts records dropped for integrity or BinXML
	// failures, records abandoned when enumeration stopped at a broken
	// record, and records without a System subtree.
	RecordsSkipped int
}
