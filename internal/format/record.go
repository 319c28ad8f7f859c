package format

import (
	"fmt"

	"github.com/intunewithnature/evtxkit/internal/buf"
)

// Record is a view of one event record inside a chunk. The layout is:
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x00    4    0x2A 0x2A 0x00 0x00
//	 0x04    4    Record size (header + payload + trailing size)
//	 0x08    8    Record identifier
//	 0x10    8    Written timestamp (FILETIME)
//	 0x18   ...   BinXML payload
//	 end-4   4    Copy of the record size
//
// The trailing size copy must equal the header size field; records are
// append-only, so a mismatch usually marks the valid tail of the chunk.
// Payload borrows from the chunk buffer, no copying.
type Record struct {
	Size    uint32
	ID      uint64
	TimeRaw uint64
	Payload []byte
}

// ParseRecord decodes the record starting at off within the chunk buffer b.
// It enforces the magic, the size bounds and the trailing-size self-check.
func ParseRecord(b []byte, off int) (Record, error) {
	hdr, ok := buf.Slice(b, off, RecordHeaderSize)
	if !ok {
		return Record{}, fmt.Errorf("record at 0x%X: %w", off, ErrTruncated)
	}
	if buf.U32LE(hdr) != RecordMagic {
		return Record{}, fmt.Errorf("record at 0x%X: %w", off, ErrSignatureMismatch)
	}
	r := Record{
		Size:    buf.U32LE(hdr[RecordSizeOffset:]),
		ID:      buf.U64LE(hdr[RecordIDOffset:]),
		TimeRaw: buf.U64LE(hdr[RecordTimestampOffset:]),
	}
	if r.Size < RecordMinSize {
		return Record{}, fmt.Errorf("record at 0x%X: size %d below minimum: %w",
			off, r.Size, ErrRecordInvalid)
	}
	body, ok := buf.Slice(b, off, int(r.Size))
	if !ok {
		return Record{}, fmt.Errorf("record at 0x%X: size %d exceeds chunk: %w",
			off, r.Size, ErrRecordInvalid)
	}
	if trailer := buf.U32LE(body[r.Size-4:]); trailer != r.Size {
		return Record{}, fmt.Errorf("record at 0x%X: trailing size %d != %d: %w",
			off, trailer, r.Size, ErrRecordInvalid)
	}
	r.Payload = body[RecordHeaderSize : r.Size-4]
	return r, nil
}
