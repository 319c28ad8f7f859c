package evtxtest

import (
	"bytes"
	"encoding/binary"
	"unicode/utf16"
)

// binWriter emits BinXML token streams for synthetic records. It tracks the
// absolute chunk offset of every byte it writes because name and
// template-definition offsets on the wire are chunk-relative.
type binWriter struct {
	base int // chunk offset of the first byte written
	buf  bytes.Buffer
}

func newBinWriter(base int) *binWriter {
	return &binWriter{base: base}
}

// pos returns the chunk offset of the next byte to be written.
func (w *binWriter) pos() int { return w.base + w.buf.Len() }

func (w *binWriter) bytes() []byte { return w.buf.Bytes() }

func (w *binWriter) u8(v byte) { w.buf.WriteByte(v) }

func (w *binWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *binWriter) raw(b []byte) { w.buf.Write(b) }

// utf16chars writes the UTF-16LE code units of s without a terminator.
func (w *binWriter) utf16chars(s string) {
	for _, u := range utf16.Encode([]rune(s)) {
		w.u16(u)
	}
}

func utf16len(s string) int { return len(utf16.Encode([]rune(s))) }

// fragmentHeader writes the 4-byte fragment header token (version 1.1).
func (w *binWriter) fragmentHeader() {
	w.u8(0x0f)
	w.u8(1)
	w.u8(1)
	w.u8(0)
}

// name writes an inline name structure: the chunk-relative offset field
// pointing just past itself, a zero next-name offset, a zero hash, and the
// NUL-terminated length-prefixed UTF-16 characters.
func (w *binWriter) name(s string) {
	w.u32(uint32(w.pos() + 4))
	w.u32(0)
	w.u16(0)
	w.u16(uint16(utf16len(s)))
	w.utf16chars(s)
	w.u16(0)
}

// openElement writes an open-start-element token with an inline name.
func (w *binWriter) openElement(name string, hasAttrs bool) {
	tok := byte(0x01)
	if hasAttrs {
		tok |= 0x40
	}
	w.u8(tok)
	w.u16(0xffff) // dependency id, none
	w.u32(0)      // data size, unchecked by readers
	w.name(name)
	if hasAttrs {
		w.u32(0) // attribute list size, unchecked by readers
	}
}

// attrSub writes an attribute whose value is a substitution slot. last marks
// the final attribute of the list.
func (w *binWriter) attrSub(name string, idx uint16, typ byte, last bool) {
	tok := byte(0x06)
	if !last {
		tok |= 0x40
	}
	w.u8(tok)
	w.name(name)
	w.u8(0x0e) // optional substitution
	w.u16(idx)
	w.u8(typ)
}

// attrText writes an attribute with a literal string value.
func (w *binWriter) attrText(name, value string, last bool) {
	tok := byte(0x06)
	if !last {
		tok |= 0x40
	}
	w.u8(tok)
	w.name(name)
	w.valueText(value)
}

// valueText writes a value token holding a UTF-16 string.
func (w *binWriter) valueText(s string) {
	w.u8(0x05)
	w.u8(0x01) // string type
	w.u16(uint16(utf16len(s)))
	w.utf16chars(s)
}

// cdata writes a CDATA section token with a length-prefixed UTF-16 body.
func (w *binWriter) cdata(s string) {
	w.u8(0x07)
	w.u16(uint16(utf16len(s)))
	w.utf16chars(s)
}

// charRef writes a character reference token.
func (w *binWriter) charRef(r uint16) {
	w.u8(0x08)
	w.u16(r)
}

// entityRef writes an entity reference token with an inline name.
func (w *binWriter) entityRef(name string) {
	w.u8(0x09)
	w.name(name)
}

// pi writes a processing instruction: target token with an inline name,
// then a data token with a length-prefixed UTF-16 body.
func (w *binWriter) pi(target, data string) {
	w.u8(0x0a)
	w.name(target)
	w.u8(0x0b)
	w.u16(uint16(utf16len(data)))
	w.utf16chars(data)
}

// subst writes a substitution token.
func (w *binWriter) subst(idx uint16, typ byte, optional bool) {
	if optional {
		w.u8(0x0e)
	} else {
		w.u8(0x0d)
	}
	w.u16(idx)
	w.u8(typ)
}

func (w *binWriter) closeStart() { w.u8(0x02) }
func (w *binWriter) closeEmpty() { w.u8(0x03) }
func (w *binWriter) endElement() { w.u8(0x04) }
func (w *binWriter) eof()        { w.u8(0x00) }
