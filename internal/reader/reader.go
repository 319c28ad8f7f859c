// Package reader provides the concrete EVTX reader: chunk validation, record
// enumeration and event extraction. The exported entry points are used by the
// public facade (pkg/evtx) to obtain an event stream without exposing the
// parsing machinery directly.
package reader

import (
	"errors"
	"fmt"

	"github.com/intunewithnature/evtxkit/internal/buf"
	"github.com/intunewithnature/evtxkit/internal/format"
	"github.com/intunewithnature/evtxkit/internal/mmfile"
	"github.com/intunewithnature/evtxkit/pkg/types"
)

// Open maps the log at path and returns a Reader.
func Open(path string, opts types.OpenOptions) (*Reader, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "open evtx", Err: err}
	}
	r, err := newReader(data, unmap, opts)
	if err != nil {
		if unmap != nil {
			_ = unmap()
		}
		return nil, err
	}
	return r, nil
}

// OpenBytes creates a reader backed by the provided buffer.
func OpenBytes(data []byte, opts types.OpenOptions) (*Reader, error) {
	return newReader(data, nil, opts)
}

// Reader is a read-only view over one EVTX file. Chunks are validated lazily
// as the stream reaches them; only the file header is checked at open time,
// so Open fails exactly when the header is malformed.
type Reader struct {
	buf    []byte
	unmap  func() error
	opts   types.OpenOptions
	head   format.FileHeader
	closed bool
	// chunkCount is the number of whole chunks actually present in the
	// buffer; trailing partial data is tolerated as padding.
	chunkCount int
	// missingChunks is how many chunks the header promises beyond what the
	// buffer holds. Streams report them as skipped when enumeration ends.
	missingChunks int
}

func newReader(data []byte, unmap func() error, opts types.OpenOptions) (*Reader, error) {
	head, err := format.ParseFileHeader(data)
	if err != nil {
		if errors.Is(err, format.ErrSignatureMismatch) {
			return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "evtx header", Err: types.ErrNotEvtx}
		}
		return nil, &types.Error{Kind: types.ErrKindFormat, Msg: "evtx header", Err: err}
	}
	if opts.MaxRecordSize <= 0 {
		opts.MaxRecordSize = format.ChunkSize
	}
	avail := (len(data) - format.FileHeaderBlockSize) / format.ChunkSize
	count := int(head.ChunkCount)
	missing := 0
	if count > avail {
		// The header promises more chunks than the buffer holds, typically a
		// copy cut mid-write. The whole chunks still present are readable, so
		// the reader enumerates them and reports the shortfall through the
		// stream's skip accounting rather than failing Open.
		missing = count - avail
		count = avail
	}
	return &Reader{
		buf:           data,
		unmap:         unmap,
		opts:          opts,
		head:          head,
		chunkCount:    count,
		missingChunks: missing,
	}, nil
}

// Close releases resources (unmaps the buffer if necessary).
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.unmap != nil {
		return r.unmap()
	}
	return nil
}

// Info summarizes the file header.
func (r *Reader) Info() types.FileInfo {
	return types.FileInfo{
		MajorVersion: r.head.MajorVersion,
		MinorVersion: r.head.MinorVersion,
		ChunkCount:   r.chunkCount,
		NextRecordID: r.head.NextRecordID,
		Flags:        r.head.Flags,
		IsDirty:      r.head.IsDirty(),
		IsFull:       r.head.IsFull(),
	}
}

// ChunkCount returns the number of whole chunks present in the buffer.
func (r *Reader) ChunkCount() int { return r.chunkCount }

// chunkAt returns the zero-copy view of chunk i.
func (r *Reader) chunkAt(i int) ([]byte, error) {
	off := format.FileHeaderBlockSize + i*format.ChunkSize
	b, ok := buf.Slice(r.buf, off, format.ChunkSize)
	if !ok {
		return nil, fmt.Errorf("chunk %d at 0x%X: %w", i, off, format.ErrTruncated)
	}
	return b, nil
}

// chunkOffset returns the absolute file offset of chunk i.
func (r *Reader) chunkOffset(i int) uint64 {
	return uint64(format.FileHeaderBlockSize + i*format.ChunkSize)
}

// Events returns a pull-based stream over all events in the file. The
// stream borrows the reader's buffer; close the reader only after the
// stream is exhausted.
func (r *Reader) Events() *Stream {
	if r.closed {
		return &Stream{r: r, err: types.ErrClosed}
	}
	s := &Stream{r: r}
	if r.opts.CollectDiagnostics {
		s.diag = newDiagnosticCollector()
	}
	return s
}
