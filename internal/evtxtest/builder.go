// Package evtxtest builds synthetic event log files for tests. The produced
// files carry real checksums and well-formed binary XML so the parsing paths
// under test see the same byte layout a live system would write.
package evtxtest

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/intunewithnature/evtxkit/internal/format"
)

// Record describes one synthetic event record.
type Record struct {
	ID       uint64
	Time     time.Time
	EventID  uint16
	Level    uint8
	Provider string
	Data     []string

	// NoSystem builds the record from a template without a System element,
	// producing a well-formed document that carries no event metadata.
	NoSystem bool

	// Mixed adds a Message element mixing CDATA, character reference,
	// entity reference and literal value tokens.
	Mixed bool

	// PI inserts a processing instruction among the Event children.
	PI bool

	// CorruptTrailer writes a mismatched trailing size copy. Chunk checksums
	// are computed over the corrupted bytes, so the damage surfaces at the
	// record layer rather than during chunk validation.
	CorruptTrailer bool
}

// FileBuilder assembles a complete log file from one or more chunks.
type FileBuilder struct {
	chunks       []*ChunkBuilder
	nextRecordID uint64
}

func NewFileBuilder() *FileBuilder {
	return &FileBuilder{nextRecordID: 1}
}

// AddChunk appends an empty chunk and returns its builder.
func (fb *FileBuilder) AddChunk() *ChunkBuilder {
	cb := &ChunkBuilder{file: fb}
	fb.chunks = append(fb.chunks, cb)
	return cb
}

// Bytes renders the file: a 4096-byte header block followed by the chunks.
func (fb *FileBuilder) Bytes() []byte {
	out := make([]byte, format.FileHeaderBlockSize, format.FileHeaderBlockSize+len(fb.chunks)*format.ChunkSize)
	copy(out, format.FileSignature)
	binary.LittleEndian.PutUint64(out[0x08:], 0) // first chunk number
	if n := len(fb.chunks); n > 0 {
		binary.LittleEndian.PutUint64(out[0x10:], uint64(n-1))
	}
	binary.LittleEndian.PutUint64(out[0x18:], fb.nextRecordID)
	binary.LittleEndian.PutUint32(out[0x20:], format.FileHeaderSize)
	binary.LittleEndian.PutUint16(out[0x24:], 1) // minor version
	binary.LittleEndian.PutUint16(out[0x26:], format.SupportedMajorVersion)
	binary.LittleEndian.PutUint16(out[0x28:], format.FileHeaderSize)
	binary.LittleEndian.PutUint16(out[0x2a:], uint16(len(fb.chunks)))
	binary.LittleEndian.PutUint32(out[0x7c:], crc32.ChecksumIEEE(out[:format.FileChecksumRegion]))

	for _, cb := range fb.chunks {
		out = append(out, cb.bytes()...)
	}
	return out
}

// ChunkBuilder assembles a single 64 KiB chunk.
type ChunkBuilder struct {
	file    *FileBuilder
	records []Record

	// Corrupt flips a byte in the record region after checksums are
	// computed, so chunk validation fails.
	Corrupt bool
}

// AddRecord appends a record. A zero ID is replaced with the file's next
// sequential record identifier.
func (cb *ChunkBuilder) AddRecord(r Record) {
	if r.ID == 0 {
		r.ID = cb.file.nextRecordID
	}
	if r.ID >= cb.file.nextRecordID {
		cb.file.nextRecordID = r.ID + 1
	}
	if r.Time.IsZero() {
		r.Time = time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	}
	cb.records = append(cb.records, r)
}

// templateKey identifies a template shape. Records sharing a shape reuse one
// definition through its chunk offset.
type templateKey struct {
	noSystem bool
	mixed    bool
	pi       bool
	nData    int
}

func (cb *ChunkBuilder) bytes() []byte {
	out := make([]byte, format.RecordDataStart, format.ChunkSize)
	defined := make(map[templateKey]uint32)
	nextTemplateID := uint32(1)

	lastRecordOff := format.RecordDataStart
	for _, r := range cb.records {
		lastRecordOff = len(out)
		out = append(out, buildRecord(len(out), r, defined, &nextTemplateID)...)
	}
	freeSpace := len(out)
	if freeSpace > format.ChunkSize {
		panic(fmt.Sprintf("evtxtest: chunk overflow, %d bytes of records", freeSpace))
	}
	out = out[:format.ChunkSize]

	copy(out, format.ChunkSignature)
	if len(cb.records) > 0 {
		first, last := cb.records[0].ID, cb.records[len(cb.records)-1].ID
		binary.LittleEndian.PutUint64(out[0x08:], first)
		binary.LittleEndian.PutUint64(out[0x10:], last)
		binary.LittleEndian.PutUint64(out[0x18:], first)
		binary.LittleEndian.PutUint64(out[0x20:], last)
	}
	binary.LittleEndian.PutUint32(out[0x28:], format.ChunkHeaderSize)
	binary.LittleEndian.PutUint32(out[0x2c:], uint32(lastRecordOff))
	binary.LittleEndian.PutUint32(out[0x30:], uint32(freeSpace))
	binary.LittleEndian.PutUint32(out[0x34:], crc32.ChecksumIEEE(out[format.RecordDataStart:freeSpace]))

	sum := crc32.ChecksumIEEE(out[:format.ChunkChecksumRegion])
	sum = crc32.Update(sum, crc32.IEEETable, out[format.ChunkHeaderSize:format.RecordDataStart])
	binary.LittleEndian.PutUint32(out[0x7c:], sum)

	if cb.Corrupt && freeSpace > format.RecordDataStart {
		out[format.RecordDataStart+8] ^= 0xff
	}
	return out
}

// buildRecord renders one record at the given chunk offset: the 24-byte
// header, a BinXML payload, and the trailing size copy.
func buildRecord(chunkOff int, r Record, defined map[templateKey]uint32, nextTemplateID *uint32) []byte {
	payloadStart := chunkOff + format.RecordHeaderSize
	w := newBinWriter(payloadStart)

	w.fragmentHeader()
	w.u8(0x0c) // template instance
	w.u8(1)

	key := templateKey{noSystem: r.NoSystem, mixed: r.Mixed, pi: r.PI, nData: len(r.Data)}
	defOff, cached := defined[key]
	if cached {
		w.u32(templateIDFor(defOff))
		w.u32(defOff)
	} else {
		id := *nextTemplateID
		*nextTemplateID++
		w.u32(id)
		defOff = uint32(w.pos() + 4) // definition follows the offset field
		defined[key] = defOff
		w.u32(defOff)
		writeTemplateDefinition(w, key, id)
	}
	writeInstanceData(w, r)

	payload := w.bytes()
	size := format.RecordHeaderSize + len(payload) + 4
	out := make([]byte, 0, size)
	var hdr [format.RecordHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], format.RecordMagic)
	binary.LittleEndian.PutUint32(hdr[4:], uint32(size))
	binary.LittleEndian.PutUint64(hdr[8:], r.ID)
	binary.LittleEndian.PutUint64(hdr[16:], uint64(format.TimeToFiletime(r.Time)))
	out = append(out, hdr[:]...)
	out = append(out, payload...)

	trailer := uint32(size)
	if r.CorruptTrailer {
		trailer++
	}
	var t [4]byte
	binary.LittleEndian.PutUint32(t[:], trailer)
	return append(out, t[:]...)
}

// templateIDFor derives a stable id for cached references. Readers key the
// cache on the definition offset, so any id works; reusing the offset keeps
// the stream self-consistent.
func templateIDFor(defOff uint32) uint32 { return defOff }

// writeTemplateDefinition emits a definition in place: next-offset, guid,
// body length, and the fragment body.
func writeTemplateDefinition(w *binWriter, key templateKey, id uint32) {
	w.u32(0) // next template with same bucket hash
	var guid [16]byte
	binary.LittleEndian.PutUint32(guid[:], id)
	w.raw(guid[:])

	// The body length is only known after rendering, but the body contains
	// chunk-relative name offsets, so it is rendered at its final position
	// by a nested writer starting past the length field.
	body := newBinWriter(w.pos() + 4)
	writeTemplateBody(body, key)
	w.u32(uint32(len(body.bytes())))
	w.raw(body.bytes())
}

// writeTemplateBody renders the fragment for a template shape. Substitution
// slots: 0 provider, 1 event id, 2 level, 3 time created, 4.. data strings.
func writeTemplateBody(w *binWriter, key templateKey) {
	w.fragmentHeader()
	w.openElement("Event", false)
	w.closeStart()

	if key.pi {
		w.pi("renderinfo", "cached")
	}

	if !key.noSystem {
		w.openElement("System", false)
		w.closeStart()

		w.openElement("Provider", true)
		w.attrText("EventSourceName", "SyntheticSource", false)
		w.attrSub("Name", 0, 0x01, true)
		w.closeEmpty()

		w.openElement("Channel", false)
		w.closeStart()
		w.valueText("Operational")
		w.endElement()

		w.openElement("EventID", false)
		w.closeStart()
		w.subst(1, 0x06, false)
		w.endElement()

		w.openElement("Level", false)
		w.closeStart()
		w.subst(2, 0x04, false)
		w.endElement()

		w.openElement("TimeCreated", true)
		w.attrSub("SystemTime", 3, 0x11, true)
		w.closeEmpty()

		w.endElement() // System
	}

	if key.mixed {
		w.openElement("Message", false)
		w.closeStart()
		w.cdata("raw ")
		w.charRef(0x2605) // ★
		w.entityRef("amp")
		w.valueText(" done")
		w.endElement()
	}

	if key.nData > 0 {
		w.openElement("EventData", false)
		w.closeStart()
		for i := 0; i < key.nData; i++ {
			w.openElement("Data", false)
			w.closeStart()
			w.subst(uint16(4+i), 0x01, false)
			w.endElement()
		}
		w.endElement()
	} else {
		w.openElement("EventData", false)
		w.closeEmpty()
	}

	w.endElement() // Event
	w.eof()
}

// writeInstanceData emits the substitution value array for a record.
func writeInstanceData(w *binWriter, r Record) {
	n := 4 + len(r.Data)
	w.u32(uint32(n))

	type val struct {
		typ     byte
		payload []byte
	}
	vals := make([]val, 0, n)

	prov := newBinWriter(0)
	prov.utf16chars(r.Provider)
	vals = append(vals, val{0x01, prov.bytes()})

	eid := make([]byte, 2)
	binary.LittleEndian.PutUint16(eid, r.EventID)
	vals = append(vals, val{0x06, eid})

	vals = append(vals, val{0x04, []byte{r.Level}})

	ftw := newBinWriter(0)
	ftw.u64(format.TimeToFiletime(r.Time))
	vals = append(vals, val{0x11, ftw.bytes()})

	for _, s := range r.Data {
		dw := newBinWriter(0)
		dw.utf16chars(s)
		vals = append(vals, val{0x01, dw.bytes()})
	}

	for _, v := range vals {
		w.u16(uint16(len(v.payload)))
		w.u8(v.typ)
		w.u8(0)
	}
	for _, v := range vals {
		w.raw(v.payload)
	}
}

// Chunk renders one standalone chunk, for tests operating below file level.
func Chunk(records ...Record) []byte {
	fb := NewFileBuilder()
	cb := fb.AddChunk()
	for _, r := range records {
		cb.AddRecord(r)
	}
	return cb.bytes()
}

// SingleChunkFile is a shorthand for a file holding one chunk of records.
func SingleChunkFile(records ...Record) []byte {
	fb := NewFileBuilder()
	cb := fb.AddChunk()
	for _, r := range records {
		cb.AddRecord(r)
	}
	return fb.Bytes()
}
