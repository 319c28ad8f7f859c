package format

// Signatures for the structures we traverse.
var (
	// FileSignature opens every EVTX file header block.
	FileSignature = []byte("ElfFile\x00")
	// ChunkSignature opens every 64 KiB chunk.
	ChunkSignature = []byte("ElfChnk\x00")
)

const (
	// FileSignatureSize is the length of the "ElfFile\x00" magic.
	FileSignatureSize = 8
	// ChunkSignatureSize is the length of the "ElfChnk\x00" magic.
	ChunkSignatureSize = 8

	// FileHeaderBlockSize is the size of the file header block; the first
	// chunk starts at this offset.
	FileHeaderBlockSize = 0x1000
	// FileHeaderSize is the size of the populated portion of the file header.
	FileHeaderSize = 0x80
	// FileChecksumRegion is the extent of the file header covered by its CRC32.
	FileChecksumRegion = 0x78

	// ChunkSize is the fixed size of every chunk.
	ChunkSize = 0x10000
	// ChunkHeaderSize is the size of the chunk header proper; the common
	// string table and template table follow it up to RecordDataStart.
	ChunkHeaderSize = 0x80
	// ChunkChecksumRegion is the extent of the chunk header covered by the
	// header CRC32 (the checksum field itself and the preceding unknown
	// dword are excluded; the string/template tables are included).
	ChunkChecksumRegion = 0x78
	// RecordDataStart is the chunk offset of the first event record.
	RecordDataStart = 0x200

	// StringBucketCount is the number of common-string-offset slots.
	StringBucketCount = 64
	// TemplateBucketCount is the number of template-offset slots.
	TemplateBucketCount = 32

	// RecordMagic opens every event record ("**\x00\x00" little-endian).
	RecordMagic = 0x00002A2A
	// RecordHeaderSize covers magic, size, record identifier and timestamp.
	RecordHeaderSize = 24
	// RecordMinSize is the smallest self-consistent record: header plus the
	// trailing size dword, with an empty payload.
	RecordMinSize = RecordHeaderSize + 4

	// SupportedMajorVersion is the only file format major version we decode.
	SupportedMajorVersion = 3
)

// File header field offsets (little-endian).
const (
	FileFirstChunkOffset   = 0x08
	FileLastChunkOffset    = 0x10
	FileNextRecordIDOffset = 0x18
	FileHeaderSizeOffset   = 0x20
	FileMinorVersionOffset = 0x24
	FileMajorVersionOffset = 0x26
	FileBlockSizeOffset    = 0x28
	FileChunkCountOffset   = 0x2A
	FileFlagsOffset        = 0x78
	FileChecksumOffset     = 0x7C
)

// File header flag bits.
const (
	// FileFlagDirty is set while the log is open for writing; the file
	// header checksum is only refreshed on clean close.
	FileFlagDirty = 0x1
	// FileFlagFull is set when the log has reached its maximum size.
	FileFlagFull = 0x2
)

// Chunk header field offsets (little-endian).
const (
	ChunkFirstRecordNumOffset = 0x08
	ChunkLastRecordNumOffset  = 0x10
	ChunkFirstRecordIDOffset  = 0x18
	ChunkLastRecordIDOffset   = 0x20
	ChunkHeaderSizeOffset     = 0x28
	ChunkLastRecordOffset     = 0x2C
	ChunkFreeSpaceOffset      = 0x30
	ChunkDataChecksumOffset   = 0x34
	ChunkChecksumOffset       = 0x7C
)

// Record field offsets relative to the record start.
const (
	RecordSizeOffset      = 0x04
	RecordIDOffset        = 0x08
	RecordTimestampOffset = 0x10
)
