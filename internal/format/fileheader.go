package format

import (
	"bytes"
	"fmt"
	"hash/crc32"

	"github.com/intunewithnature/evtxkit/internal/buf"
)

// FileHeader captures the subset of the EVTX file header required to traverse
// the chunks. The diagram below highlights the offsets we care about.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   8    'E' 'l' 'f' 'F' 'i' 'l' 'e' 0x00
//	 0x008   8    First chunk number
//	 0x010   8    Last chunk number
//	 0x018   8    Next record identifier
//	 0x020   4    Header size (0x80)
//	 0x024   2    Minor format version
//	 0x026   2    Major format version (3)
//	 0x028   2    Header block size (0x1000)
//	 0x02A   2    Number of chunks
//	 0x02C  76    Unknown / reserved
//	 0x078   4    File flags (dirty, full)
//	 0x07C   4    CRC32 of bytes [0x000, 0x078)
//
// Windows stores the header in little-endian form.
type FileHeader struct {
	FirstChunk   uint64
	LastChunk    uint64
	NextRecordID uint64
	HeaderSize   uint32
	MinorVersion uint16
	MajorVersion uint16
	BlockSize    uint16
	ChunkCount   uint16
	Flags        uint32
	Checksum     uint32
}

// IsDirty reports whether the log was open for writing when captured. Dirty
// files carry a stale header checksum, so validation skips it.
func (h FileHeader) IsDirty() bool { return h.Flags&FileFlagDirty != 0 }

// IsFull reports whether the log reached its configured maximum size.
func (h FileHeader) IsFull() bool { return h.Flags&FileFlagFull != 0 }

// ParseFileHeader validates and extracts key fields from an EVTX file header.
func ParseFileHeader(b []byte) (FileHeader, error) {
	if len(b) < FileHeaderBlockSize {
		return FileHeader{}, fmt.Errorf("file header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:FileSignatureSize], FileSignature) {
		return FileHeader{}, fmt.Errorf("file header: %w", ErrSignatureMismatch)
	}
	h := FileHeader{
		FirstChunk:   buf.U64LE(b[FileFirstChunkOffset:]),
		LastChunk:    buf.U64LE(b[FileLastChunkOffset:]),
		NextRecordID: buf.U64LE(b[FileNextRecordIDOffset:]),
		HeaderSize:   buf.U32LE(b[FileHeaderSizeOffset:]),
		MinorVersion: buf.U16LE(b[FileMinorVersionOffset:]),
		MajorVersion: buf.U16LE(b[FileMajorVersionOffset:]),
		BlockSize:    buf.U16LE(b[FileBlockSizeOffset:]),
		ChunkCount:   buf.U16LE(b[FileChunkCountOffset:]),
		Flags:        buf.U32LE(b[FileFlagsOffset:]),
		Checksum:     buf.U32LE(b[FileChecksumOffset:]),
	}
	if h.MajorVersion != SupportedMajorVersion {
		return FileHeader{}, fmt.Errorf("file header: version %d.%d: %w",
			h.MajorVersion, h.MinorVersion, ErrUnsupported)
	}
	if !h.IsDirty() {
		computed := crc32.ChecksumIEEE(b[:FileChecksumRegion])
		if computed != h.Checksum {
			return FileHeader{}, fmt.Errorf("file header: stored 0x%08X computed 0x%08X: %w",
				h.Checksum, computed, ErrChecksumMismatch)
		}
	}
	return h, nil
}
