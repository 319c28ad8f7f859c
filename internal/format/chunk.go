package format

import (
	"bytes"
	"fmt"
	"hash/crc32"

	"github.com/intunewithnature/evtxkit/internal/buf"
)

// ChunkHeader captures the chunk header fields required to enumerate and
// validate records. Each chunk is a fixed 64 KiB region laid out as:
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   8    'E' 'l' 'f' 'C' 'h' 'n' 'k' 0x00
//	 0x008   8    First record number in the chunk
//	 0x010   8    Last record number in the chunk
//	 0x018   8    First record identifier
//	 0x020   8    Last record identifier
//	 0x028   4    Header size (0x80)
//	 0x02C   4    Offset of the last record in the chunk
//	 0x030   4    Free space offset (end of record data)
//	 0x034   4    CRC32 of the record data region [0x200, free space)
//	 0x038  68    Unknown / reserved
//	 0x07C   4    CRC32 of bytes [0x000, 0x078) and [0x080, 0x200)
//	 0x080  256   Common string offset table (64 slots)
//	 0x180  128   Template offset table (32 slots)
//	 0x200  ...   Event records
type ChunkHeader struct {
	FirstRecordNum uint64
	LastRecordNum  uint64
	FirstRecordID  uint64
	LastRecordID   uint64
	HeaderSize     uint32
	LastRecordOff  uint32
	FreeSpace      uint32
	DataChecksum   uint32
	Checksum       uint32
}

// IsZeroChunk reports whether the 64 KiB region is an allocated-but-unused
// chunk (all-zero signature). Files are commonly preallocated with such tails.
func IsZeroChunk(b []byte) bool {
	if len(b) < ChunkSignatureSize {
		return false
	}
	for _, c := range b[:ChunkSignatureSize] {
		if c != 0 {
			return false
		}
	}
	return true
}

// ParseChunkHeader validates the signature and extracts the header fields of
// the chunk occupying b. b must hold a full chunk.
func ParseChunkHeader(b []byte) (ChunkHeader, error) {
	if len(b) < ChunkSize {
		return ChunkHeader{}, fmt.Errorf("chunk header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:ChunkSignatureSize], ChunkSignature) {
		return ChunkHeader{}, fmt.Errorf("chunk header: %w", ErrSignatureMismatch)
	}
	h := ChunkHeader{
		FirstRecordNum: buf.U64LE(b[ChunkFirstRecordNumOffset:]),
		LastRecordNum:  buf.U64LE(b[ChunkLastRecordNumOffset:]),
		FirstRecordID:  buf.U64LE(b[ChunkFirstRecordIDOffset:]),
		LastRecordID:   buf.U64LE(b[ChunkLastRecordIDOffset:]),
		HeaderSize:     buf.U32LE(b[ChunkHeaderSizeOffset:]),
		LastRecordOff:  buf.U32LE(b[ChunkLastRecordOffset:]),
		FreeSpace:      buf.U32LE(b[ChunkFreeSpaceOffset:]),
		DataChecksum:   buf.U32LE(b[ChunkDataChecksumOffset:]),
		Checksum:       buf.U32LE(b[ChunkChecksumOffset:]),
	}
	if h.FreeSpace < RecordDataStart || h.FreeSpace > ChunkSize {
		return ChunkHeader{}, fmt.Errorf("chunk header: free space offset 0x%X out of range: %w",
			h.FreeSpace, ErrTruncated)
	}
	return h, nil
}

// ValidateChunk recomputes the header and record-data CRC32 values of the
// chunk occupying b and compares them with the stored ones. A mismatch on
// either marks the whole chunk corrupt; the caller skips its records.
func ValidateChunk(b []byte, h ChunkHeader) error {
	computed := crc32.ChecksumIEEE(b[:ChunkChecksumRegion])
	computed = crc32.Update(computed, crc32.IEEETable, b[ChunkHeaderSize:RecordDataStart])
	if computed != h.Checksum {
		return fmt.Errorf("chunk header: stored 0x%08X computed 0x%08X: %w",
			h.Checksum, computed, ErrChecksumMismatch)
	}
	computed = crc32.ChecksumIEEE(b[RecordDataStart:h.FreeSpace])
	if computed != h.DataChecksum {
		return fmt.Errorf("chunk data: stored 0x%08X computed 0x%08X: %w",
			h.DataChecksum, computed, ErrChecksumMismatch)
	}
	return nil
}
