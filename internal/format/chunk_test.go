package format

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"
)

// validChunk builds an empty chunk (no records) with correct checksums.
func validChunk() []byte {
	b := make([]byte, ChunkSize)
	copy(b, ChunkSignature)
	binary.LittleEndian.PutUint32(b[ChunkHeaderSizeOffset:], ChunkHeaderSize)
	binary.LittleEndian.PutUint32(b[ChunkLastRecordOffset:], RecordDataStart)
	binary.LittleEndian.PutUint32(b[ChunkFreeSpaceOffset:], RecordDataStart)
	binary.LittleEndian.PutUint32(b[ChunkDataChecksumOffset:],
		crc32.ChecksumIEEE(b[RecordDataStart:RecordDataStart]))
	sum := crc32.ChecksumIEEE(b[:ChunkChecksumRegion])
	sum = crc32.Update(sum, crc32.IEEETable, b[ChunkHeaderSize:RecordDataStart])
	binary.LittleEndian.PutUint32(b[ChunkChecksumOffset:], sum)
	return b
}

func TestParseChunkHeader(t *testing.T) {
	b := validChunk()
	h, err := ParseChunkHeader(b)
	if err != nil {
		t.Fatalf("ParseChunkHeader: %v", err)
	}
	if h.HeaderSize != ChunkHeaderSize || h.FreeSpace != RecordDataStart {
		t.Fatalf("unexpected header: %+v", h)
	}
	if err := ValidateChunk(b, h); err != nil {
		t.Fatalf("ValidateChunk: %v", err)
	}
}

func TestParseChunkHeaderBadSignature(t *testing.T) {
	b := validChunk()
	b[0] = 'X'
	if _, err := ParseChunkHeader(b); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestParseChunkHeaderFreeSpaceOutOfRange(t *testing.T) {
	b := validChunk()
	binary.LittleEndian.PutUint32(b[ChunkFreeSpaceOffset:], ChunkSize+1)
	if _, err := ParseChunkHeader(b); err == nil {
		t.Fatalf("expected range error")
	}
	binary.LittleEndian.PutUint32(b[ChunkFreeSpaceOffset:], RecordDataStart-1)
	if _, err := ParseChunkHeader(b); err == nil {
		t.Fatalf("expected range error below record data")
	}
}

func TestValidateChunkHeaderCorruption(t *testing.T) {
	b := validChunk()
	h, err := ParseChunkHeader(b)
	if err != nil {
		t.Fatalf("ParseChunkHeader: %v", err)
	}
	b[0x40] ^= 0xFF // reserved area, still checksummed
	if err := ValidateChunk(b, h); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestValidateChunkDataCorruption(t *testing.T) {
	b := validChunk()
	binary.LittleEndian.PutUint32(b[ChunkFreeSpaceOffset:], RecordDataStart+16)
	binary.LittleEndian.PutUint32(b[ChunkDataChecksumOffset:],
		crc32.ChecksumIEEE(b[RecordDataStart:RecordDataStart+16]))
	sum := crc32.ChecksumIEEE(b[:ChunkChecksumRegion])
	sum = crc32.Update(sum, crc32.IEEETable, b[ChunkHeaderSize:RecordDataStart])
	binary.LittleEndian.PutUint32(b[ChunkChecksumOffset:], sum)

	h, err := ParseChunkHeader(b)
	if err != nil {
		t.Fatalf("ParseChunkHeader: %v", err)
	}
	if err := ValidateChunk(b, h); err != nil {
		t.Fatalf("ValidateChunk before corruption: %v", err)
	}
	b[RecordDataStart+3] ^= 0x01
	if err := ValidateChunk(b, h); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestIsZeroChunk(t *testing.T) {
	if !IsZeroChunk(make([]byte, ChunkSize)) {
		t.Fatalf("all-zero region not detected")
	}
	if IsZeroChunk(validChunk()) {
		t.Fatalf("signed chunk reported as zero")
	}
	if IsZeroChunk(nil) {
		t.Fatalf("short region reported as zero")
	}
}
