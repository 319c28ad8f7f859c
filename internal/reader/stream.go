package reader

import (
	"github.com/intunewithnature/evtxkit/internal/binxml"
	"github.com/intunewithnature/evtxkit/internal/format"
	"github.com/intunewithnature/evtxkit/pkg/types"
)

// Stream is the pull-based event iterator. The consumer drives one record at
// a time; each call to Next advances through chunks and records, skipping
// corrupt chunks, stopping record enumeration of a chunk at the first broken
// record, and dropping records with undecodable payloads. Partial corruption
// never terminates the stream; only exhausting the file does.
type Stream struct {
	r     *Reader
	diag  *diagnosticCollector
	next  int // next chunk index to validate
	cur   *chunkCursor
	ev    types.Event
	err   error
	stats types.Stats
	done  bool
}

// chunkCursor tracks record enumeration within one validated chunk. The
// BinXML context, and with it the template and name caches, lives exactly as
// long as this cursor.
type chunkCursor struct {
	index  int
	data   []byte
	hdr    format.ChunkHeader
	ctx    *binxml.Context
	off    int
	lastID uint64
	haveID bool
}

// Next advances to the next decodable event. It returns false when the file
// is exhausted or the stream is in a terminal state; Err distinguishes.
func (s *Stream) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	for {
		if s.cur == nil {
			if !s.advanceChunk() {
				return false
			}
			continue
		}
		rec, start, ok := s.nextRecord()
		if !ok {
			s.cur = nil
			continue
		}
		node, err := s.cur.ctx.Decode(start+format.RecordHeaderSize, len(rec.Payload))
		if err != nil {
			// A BinXML failure aborts only this record.
			s.skipRecord(rec, start, "binxml", err)
			continue
		}
		ev, ok := extractEvent(node, rec)
		if !ok {
			// No System subtree; silently excluded from the output stream.
			s.stats.RecordsSkipped++
			continue
		}
		s.ev = ev
		s.stats.RecordsRead++
		return true
	}
}

// Event returns the event produced by the last successful Next.
func (s *Stream) Event() types.Event { return s.ev }

// Err returns the terminal error, nil when the stream ended cleanly.
func (s *Stream) Err() error { return s.err }

// Stats returns the skip counters accumulated so far.
func (s *Stream) Stats() types.Stats { return s.stats }

// Diagnostics returns the detailed report, nil unless collection was
// requested in the open options.
func (s *Stream) Diagnostics() *types.DiagnosticReport { return s.diag.getReport() }

// advanceChunk validates chunks until one is usable. Corrupt chunks are
// counted, reported and skipped; one bad chunk never fails the stream.
func (s *Stream) advanceChunk() bool {
	for s.next < s.r.chunkCount {
		i := s.next
		s.next++
		data, err := s.r.chunkAt(i)
		if err != nil {
			s.err = &types.Error{Kind: types.ErrKindFormat, Msg: "chunk view", Err: err}
			return false
		}
		fileOff := s.r.chunkOffset(i)
		if format.IsZeroChunk(data) {
			// Preallocated, never written. Common at the tail of a file.
			s.diag.record(types.Diagnostic{
				Severity: types.SevInfo, Offset: fileOff,
				Structure: "chunk", Issue: "unused chunk",
			})
			continue
		}
		hdr, err := format.ParseChunkHeader(data)
		if err == nil {
			err = format.ValidateChunk(data, hdr)
		}
		if err != nil {
			s.stats.ChunksSkipped++
			s.diag.record(types.Diagnostic{
				Severity: types.SevWarning, Offset: fileOff,
				Structure: "chunk", Issue: "integrity check failed", Err: err,
			})
			if l := s.r.opts.Logger; l != nil {
				l.Warn("skipping corrupt chunk", "chunk", i, "offset", fileOff, "err", err)
			}
			continue
		}
		s.cur = &chunkCursor{
			index: i,
			data:  data,
			hdr:   hdr,
			ctx:   binxml.NewContext(data),
			off:   format.RecordDataStart,
		}
		s.stats.ChunksRead++
		return true
	}
	if n := s.r.missingChunks; n > 0 {
		// The file header promised chunks the buffer does not hold; count
		// them as skipped so a truncated file is never silently short.
		s.stats.ChunksSkipped += n
		s.diag.record(types.Diagnostic{
			Severity:  types.SevWarning,
			Offset:    s.r.chunkOffset(s.r.chunkCount),
			Structure: "chunk",
			Issue:     "file truncated before declared chunk count",
		})
		if l := s.r.opts.Logger; l != nil {
			l.Warn("file truncated", "missing_chunks", n, "offset", s.r.chunkOffset(s.r.chunkCount))
		}
	}
	s.done = true
	return false
}

// nextRecord parses the record at the cursor. It returns ok=false when the
// chunk's record data is exhausted or a record fails self-consistency; in
// the latter case enumeration of this chunk stops (records are append-only,
// so a broken record usually marks the tail) but records already yielded
// stand.
func (s *Stream) nextRecord() (format.Record, int, bool) {
	cur := s.cur
	start := cur.off
	if start >= int(cur.hdr.FreeSpace) || start > int(cur.hdr.LastRecordOff) {
		return format.Record{}, 0, false
	}
	rec, err := format.ParseRecord(cur.data, start)
	if err == nil && int(rec.Size) > s.r.opts.MaxRecordSize {
		err = errRecordTooLarge(rec.Size, s.r.opts.MaxRecordSize)
	}
	if err == nil && start+int(rec.Size) > int(cur.hdr.FreeSpace) {
		err = errRecordPastFreeSpace(rec.Size, cur.hdr.FreeSpace)
	}
	if err == nil && cur.haveID && rec.ID <= cur.lastID {
		err = errRecordOrder(rec.ID, cur.lastID)
	}
	if err != nil {
		s.breakChunk(start, err)
		return format.Record{}, 0, false
	}
	cur.lastID = rec.ID
	cur.haveID = true
	cur.off = start + int(rec.Size)
	return rec, start, true
}

// breakChunk records a stop-at-break integrity failure for the current chunk.
func (s *Stream) breakChunk(off int, err error) {
	fileOff := s.r.chunkOffset(s.cur.index) + uint64(off)
	s.stats.RecordsSkipped++
	s.diag.record(types.Diagnostic{
		Severity: types.SevError, Offset: fileOff,
		Structure: "record", Issue: "integrity check failed, chunk enumeration stopped", Err: err,
	})
	if l := s.r.opts.Logger; l != nil {
		l.Warn("stopping record enumeration", "chunk", s.cur.index, "offset", fileOff, "err", err)
	}
}

// skipRecord records a single-record decode failure; enumeration continues
// with the next record.
func (s *Stream) skipRecord(rec format.Record, off int, structure string, err error) {
	fileOff := s.r.chunkOffset(s.cur.index) + uint64(off)
	s.stats.RecordsSkipped++
	s.diag.record(types.Diagnostic{
		Severity: types.SevWarning, Offset: fileOff,
		Structure: structure, Issue: "record dropped", Err: err,
	})
	if l := s.r.opts.Logger; l != nil {
		l.Warn("dropping record", "chunk", s.cur.index, "record", rec.ID, "offset", fileOff, "err", err)
	}
}
