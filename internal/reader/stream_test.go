package reader_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intunewithnature/evtxkit/internal/evtxtest"
	"github.com/intunewithnature/evtxkit/internal/format"
	"github.com/intunewithnature/evtxkit/internal/reader"
	"github.com/intunewithnature/evtxkit/pkg/types"
)

func drain(t *testing.T, s *reader.Stream) []types.Event {
	t.Helper()
	var out []types.Event
	for s.Next() {
		out = append(out, s.Event())
	}
	require.NoError(t, s.Err())
	return out
}

func TestStreamAllRecords(t *testing.T) {
	when := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	fb := evtxtest.NewFileBuilder()
	cb := fb.AddChunk()
	for i := 0; i < 5; i++ {
		cb.AddRecord(evtxtest.Record{
			Time: when.Add(time.Duration(i) * time.Second),
			EventID: uint16(100 + i), Level: 4,
			Provider: "TestProvider",
			Data:     []string{"payload"},
		})
	}

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	events := drain(t, r.Events())
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.RecordID)
		assert.Equal(t, uint32(100+i), ev.EventID)
		assert.Equal(t, "TestProvider", ev.Provider)
		assert.Equal(t, "payload", ev.Message)
		assert.True(t, ev.Timestamp.Equal(when.Add(time.Duration(i)*time.Second)),
			"timestamp of record %d", i+1)
	}

	stats := r.Events().Stats() // fresh stream, zeroed counters
	assert.Zero(t, stats.RecordsRead)
}

func TestStreamMultipleChunks(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	for c := 0; c < 3; c++ {
		cb := fb.AddChunk()
		cb.AddRecord(evtxtest.Record{EventID: 1, Provider: "A"})
		cb.AddRecord(evtxtest.Record{EventID: 2, Provider: "A"})
	}

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	events := drain(t, s)
	assert.Len(t, events, 6)
	// Record identifiers are file-global and strictly increasing.
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].RecordID, events[i-1].RecordID)
	}
	stats := s.Stats()
	assert.Equal(t, 3, stats.ChunksRead)
	assert.Equal(t, 6, stats.RecordsRead)
	assert.Zero(t, stats.ChunksSkipped)
	assert.Zero(t, stats.RecordsSkipped)
}

// A chunk failing its data checksum is skipped whole; surrounding chunks
// still stream.
func TestStreamSkipsCorruptChunk(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	fb.AddChunk().AddRecord(evtxtest.Record{EventID: 1, Provider: "A"})
	bad := fb.AddChunk()
	bad.AddRecord(evtxtest.Record{EventID: 2, Provider: "A"})
	bad.Corrupt = true
	fb.AddChunk().AddRecord(evtxtest.Record{EventID: 3, Provider: "A"})

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{CollectDiagnostics: true})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	events := drain(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, uint32(1), events[0].EventID)
	assert.Equal(t, uint32(3), events[1].EventID)

	stats := s.Stats()
	assert.Equal(t, 2, stats.ChunksRead)
	assert.Equal(t, 1, stats.ChunksSkipped)

	report := s.Diagnostics()
	require.NotNil(t, report)
	require.Len(t, report.ByStructure["chunk"], 1)
	assert.Equal(t, types.SevWarning, report.ByStructure["chunk"][0].Severity)
}

// A record with a mismatched trailing size stops enumeration of its chunk;
// records already yielded stand, and later chunks are unaffected.
func TestStreamStopsAtBrokenRecord(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	cb := fb.AddChunk()
	cb.AddRecord(evtxtest.Record{EventID: 1, Provider: "A"})
	cb.AddRecord(evtxtest.Record{EventID: 2, Provider: "A", CorruptTrailer: true})
	cb.AddRecord(evtxtest.Record{EventID: 3, Provider: "A"})
	fb.AddChunk().AddRecord(evtxtest.Record{EventID: 4, Provider: "A"})

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{CollectDiagnostics: true})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	events := drain(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, uint32(1), events[0].EventID)
	assert.Equal(t, uint32(4), events[1].EventID)

	report := s.Diagnostics()
	require.NotNil(t, report)
	require.Len(t, report.ByStructure["record"], 1)
	assert.Equal(t, types.SevError, report.ByStructure["record"][0].Severity)
	assert.True(t, report.HasErrors())
}

// Record identifiers must increase within a chunk; a regression marks
// overwritten or stitched data and stops the chunk.
func TestStreamStopsOnNonIncreasingIDs(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	cb := fb.AddChunk()
	cb.AddRecord(evtxtest.Record{ID: 10, EventID: 1, Provider: "A"})
	cb.AddRecord(evtxtest.Record{ID: 9, EventID: 2, Provider: "A"})

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	events := drain(t, s)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(10), events[0].RecordID)
	assert.Equal(t, 1, s.Stats().RecordsSkipped)
}

// MaxRecordSize bounds what a single record may claim; an oversize record is
// treated the same as any other broken record.
func TestStreamMaxRecordSize(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	cb := fb.AddChunk()
	cb.AddRecord(evtxtest.Record{EventID: 1, Provider: "A", Data: []string{strings.Repeat("x", 300)}})

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{MaxRecordSize: 128})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	assert.False(t, s.Next())
	require.NoError(t, s.Err())
	assert.Equal(t, 1, s.Stats().RecordsSkipped)
}

func TestStreamLevelMapping(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	cb := fb.AddChunk()
	for _, lvl := range []uint8{0, 1, 2, 3, 4, 99} {
		cb.AddRecord(evtxtest.Record{EventID: 1, Level: lvl, Provider: "A"})
	}

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	events := drain(t, r.Events())
	require.Len(t, events, 6)
	want := []types.Level{
		types.LevelInfo, types.LevelCritical, types.LevelError,
		types.LevelWarning, types.LevelInfo, types.LevelInfo,
	}
	for i, ev := range events {
		assert.Equal(t, want[i], ev.Level, "on-disk level %d", i)
	}
}

func TestStreamMessageJoinAndTruncation(t *testing.T) {
	long := strings.Repeat("b", 300)
	fb := evtxtest.NewFileBuilder()
	cb := fb.AddChunk()
	cb.AddRecord(evtxtest.Record{EventID: 1, Provider: "A", Data: []string{"one", "two", "three"}})
	cb.AddRecord(evtxtest.Record{EventID: 2, Provider: "A", Data: []string{long}})

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	events := drain(t, r.Events())
	require.Len(t, events, 2)
	assert.Equal(t, "one | two | three", events[0].Message)
	assert.Len(t, events[1].Message, types.MaxMessageLen)
	assert.Equal(t, strings.Repeat("b", types.MaxMessageLen), events[1].Message)
}

// A record without a System subtree is well-formed but carries no event
// metadata; it is silently excluded.
func TestStreamSkipsRecordWithoutSystem(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	cb := fb.AddChunk()
	cb.AddRecord(evtxtest.Record{EventID: 1, Provider: "A"})
	cb.AddRecord(evtxtest.Record{NoSystem: true, Data: []string{"orphan"}})
	cb.AddRecord(evtxtest.Record{EventID: 3, Provider: "A"})

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	events := drain(t, s)
	require.Len(t, events, 2)
	assert.Equal(t, 1, s.Stats().RecordsSkipped)
}

// Unused preallocated chunks (all zero) are not an error.
func TestStreamZeroChunkTail(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	fb.AddChunk().AddRecord(evtxtest.Record{EventID: 1, Provider: "A"})
	fb.AddChunk() // no records: header present but empty, still valid

	data := fb.Bytes()
	// Replace the empty second chunk with a fully zeroed region.
	for i := format.FileHeaderBlockSize + format.ChunkSize; i < len(data); i++ {
		data[i] = 0
	}

	r, err := reader.OpenBytes(data, types.OpenOptions{CollectDiagnostics: true})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	events := drain(t, s)
	assert.Len(t, events, 1)
	assert.Zero(t, s.Stats().ChunksSkipped)

	report := s.Diagnostics()
	require.NotNil(t, report)
	require.Len(t, report.ByStructure["chunk"], 1)
	assert.Equal(t, types.SevInfo, report.ByStructure["chunk"][0].Severity)
}

// A file cut mid-chunk still yields the whole chunks it holds, but the
// shortfall against the header's chunk count is visible in the skip counters
// and the diagnostics, never silent.
func TestStreamTruncatedFile(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	fb.AddChunk().AddRecord(evtxtest.Record{EventID: 1, Provider: "A"})
	fb.AddChunk().AddRecord(evtxtest.Record{EventID: 2, Provider: "A"})
	data := fb.Bytes()
	cut := format.FileHeaderBlockSize + format.ChunkSize + 1000

	r, err := reader.OpenBytes(data[:cut], types.OpenOptions{CollectDiagnostics: true})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	events := drain(t, s)
	require.Len(t, events, 1)
	assert.Equal(t, uint32(1), events[0].EventID)

	stats := s.Stats()
	assert.Equal(t, 1, stats.ChunksRead)
	assert.Equal(t, 1, stats.ChunksSkipped)

	report := s.Diagnostics()
	require.NotNil(t, report)
	require.Len(t, report.ByStructure["chunk"], 1)
	d := report.ByStructure["chunk"][0]
	assert.Equal(t, types.SevWarning, d.Severity)
	assert.Equal(t, uint64(format.FileHeaderBlockSize+format.ChunkSize), d.Offset)
}

func TestDiagnosticsNilWhenDisabled(t *testing.T) {
	data := evtxtest.SingleChunkFile(evtxtest.Record{EventID: 1, Provider: "A"})
	r, err := reader.OpenBytes(data, types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	s := r.Events()
	drain(t, s)
	assert.Nil(t, s.Diagnostics())
}

func TestOpenBytesNotEvtx(t *testing.T) {
	_, err := reader.OpenBytes(make([]byte, format.FileHeaderBlockSize), types.OpenOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotEvtx)

	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, types.ErrKindFormat, te.Kind)
}

func TestEventsAfterClose(t *testing.T) {
	data := evtxtest.SingleChunkFile(evtxtest.Record{EventID: 1, Provider: "A"})
	r, err := reader.OpenBytes(data, types.OpenOptions{})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close()) // idempotent

	s := r.Events()
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), types.ErrClosed)
}

func TestReaderInfo(t *testing.T) {
	fb := evtxtest.NewFileBuilder()
	fb.AddChunk().AddRecord(evtxtest.Record{EventID: 1, Provider: "A"})
	fb.AddChunk().AddRecord(evtxtest.Record{EventID: 2, Provider: "A"})

	r, err := reader.OpenBytes(fb.Bytes(), types.OpenOptions{})
	require.NoError(t, err)
	defer r.Close()

	info := r.Info()
	assert.Equal(t, uint16(format.SupportedMajorVersion), info.MajorVersion)
	assert.Equal(t, 2, info.ChunkCount)
	assert.Equal(t, uint64(3), info.NextRecordID)
	assert.False(t, info.IsDirty)
	assert.False(t, info.IsFull)
}
