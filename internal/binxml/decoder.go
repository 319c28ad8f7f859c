package binxml

import (
	"fmt"

	"github.com/intunewithnature/evtxkit/internal/buf"
)

// decoder is a byte cursor over the chunk buffer. Positions are chunk
// offsets; end bounds the region the cursor may touch.
type decoder struct {
	ctx *Context
	pos int
	end int
}

func (d *decoder) remaining() int { return d.end - d.pos }

func (d *decoder) u8() (byte, error) {
	if d.pos >= d.end {
		return 0, fmt.Errorf("at 0x%X: %w", d.pos, ErrTruncated)
	}
	v := d.ctx.chunk[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.bytes(2)
	if err != nil {
		return 0, err
	}
	return buf.U16LE(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.bytes(4)
	if err != nil {
		return 0, err
	}
	return buf.U32LE(b), nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n || d.end > len(d.ctx.chunk) {
		return nil, fmt.Errorf("at 0x%X: %w", d.pos, ErrTruncated)
	}
	v := d.ctx.chunk[d.pos : d.pos+n]
	d.pos += n
	return v, nil
}

func (d *decoder) skip(n int) error {
	_, err := d.bytes(n)
	return err
}

// decodeFragment decodes one BinXML fragment: an optional fragment header
// followed by a template instance or an element. Returns nil for an empty
// fragment (a bare end-of-stream token).
func (d *decoder) decodeFragment() (Node, error) {
	for d.pos < d.end {
		t, err := d.u8()
		if err != nil {
			return nil, err
		}
		switch t & TokenKindMask {
		case TokenEOF:
			return nil, nil
		case TokenFragmentHeader:
			// major version, minor version, flags
			if err := d.skip(3); err != nil {
				return nil, err
			}
		case TokenTemplateInstance:
			return d.decodeTemplateInstance()
		case TokenOpenStartElement:
			return d.decodeElement(t&TokenMoreFlag != 0)
		case TokenValue:
			return d.decodeValueText()
		case TokenPITarget:
			if _, err := d.readName(); err != nil {
				return nil, err
			}
		case TokenPIData:
			if _, err := d.readPrefixedString(false); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("token 0x%02X at 0x%X: %w", t, d.pos-1, ErrUnknownToken)
		}
	}
	return nil, nil
}

// decodeElement decodes an open-start-element token body: dependency id,
// data size, interned name, optional attribute list, then either an empty
// close or child content up to the matching end-element token.
func (d *decoder) decodeElement(hasAttrs bool) (Node, error) {
	if err := d.skip(2 + 4); err != nil { // dependency id, data size
		return nil, err
	}
	name, err := d.readName()
	if err != nil {
		return nil, err
	}
	el := &Element{Name: name}
	if hasAttrs {
		if err := d.skip(4); err != nil { // attribute list size
			return nil, err
		}
		for {
			t, err := d.u8()
			if err != nil {
				return nil, err
			}
			if t&TokenKindMask != TokenAttribute {
				return nil, fmt.Errorf("token 0x%02X at 0x%X: %w", t, d.pos-1, ErrUnknownToken)
			}
			aname, err := d.readName()
			if err != nil {
				return nil, err
			}
			aval, err := d.decodeAttrValue()
			if err != nil {
				return nil, err
			}
			el.Attrs = append(el.Attrs, Attr{Name: aname, Value: aval})
			if t&TokenMoreFlag == 0 {
				break
			}
		}
	}
	t, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch t & TokenKindMask {
	case TokenCloseEmptyElement:
		return el, nil
	case TokenCloseStartElement:
	default:
		return nil, fmt.Errorf("token 0x%02X at 0x%X: %w", t, d.pos-1, ErrUnknownToken)
	}
	for {
		t, err := d.u8()
		if err != nil {
			return nil, err
		}
		switch t & TokenKindMask {
		case TokenEndElement:
			return el, nil
		case TokenOpenStartElement:
			child, err := d.decodeElement(t&TokenMoreFlag != 0)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case TokenValue:
			child, err := d.decodeValueText()
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case TokenNormalSubstitution, TokenOptionalSubstitution:
			child, err := d.decodeSubstitution(t&TokenKindMask == TokenOptionalSubstitution)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case TokenCDATASection:
			s, err := d.readPrefixedString(false)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, Text(s))
		case TokenCharRef:
			r, err := d.u16()
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, Text(rune(r)))
		case TokenEntityRef:
			name, err := d.readName()
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, Text(expandEntity(name)))
		case TokenTemplateInstance:
			child, err := d.decodeTemplateInstance()
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case TokenPITarget:
			// Processing instructions carry no character content.
			if _, err := d.readName(); err != nil {
				return nil, err
			}
		case TokenPIData:
			if _, err := d.readPrefixedString(false); err != nil {
				return nil, err
			}
		case TokenEOF:
			return nil, fmt.Errorf("unterminated element %q: %w", el.Name, ErrTruncated)
		default:
			return nil, fmt.Errorf("token 0x%02X at 0x%X: %w", t, d.pos-1, ErrUnknownToken)
		}
	}
}

// decodeAttrValue decodes the token following an attribute name: a literal
// value text or a substitution slot.
func (d *decoder) decodeAttrValue() (Node, error) {
	t, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch t & TokenKindMask {
	case TokenValue:
		return d.decodeValueText()
	case TokenNormalSubstitution, TokenOptionalSubstitution:
		return d.decodeSubstitution(t&TokenKindMask == TokenOptionalSubstitution)
	case TokenCharRef:
		r, err := d.u16()
		if err != nil {
			return nil, err
		}
		return Text(rune(r)), nil
	case TokenEntityRef:
		name, err := d.readName()
		if err != nil {
			return nil, err
		}
		return Text(expandEntity(name)), nil
	default:
		return nil, fmt.Errorf("token 0x%02X at 0x%X: %w", t, d.pos-1, ErrUnknownToken)
	}
}

// decodeValueText decodes a value token body: a one-byte value type followed
// by a length-prefixed UTF-16 string. Only string values appear in value
// tokens; all other types travel through substitutions.
func (d *decoder) decodeValueText() (Node, error) {
	typ, err := d.u8()
	if err != nil {
		return nil, err
	}
	if typ != ValueString {
		return nil, fmt.Errorf("value token type 0x%02X: %w", typ, ErrUnknownValueType)
	}
	s, err := d.readPrefixedString(false)
	if err != nil {
		return nil, err
	}
	return Text(s), nil
}

// decodeSubstitution decodes a substitution token body: slot index and
// declared value type.
func (d *decoder) decodeSubstitution(optional bool) (Node, error) {
	idx, err := d.u16()
	if err != nil {
		return nil, err
	}
	typ, err := d.u8()
	if err != nil {
		return nil, err
	}
	return &Sub{Index: idx, Type: typ, Optional: optional}, nil
}

// readPrefixedString reads a u16 character count followed by that many
// UTF-16LE code units, plus a NUL terminator when nullTerm is set.
func (d *decoder) readPrefixedString(nullTerm bool) (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	raw, err := d.bytes(int(n) * 2)
	if err != nil {
		return "", err
	}
	if nullTerm {
		if err := d.skip(2); err != nil {
			return "", err
		}
	}
	return decodeUTF16LE(raw), nil
}

// readName reads a chunk-relative name offset and resolves it through the
// per-chunk name cache. Names defined inline (offset equals the cursor
// position) are parsed in place so the cursor steps over the definition.
func (d *decoder) readName() (string, error) {
	off, err := d.u32()
	if err != nil {
		return "", err
	}
	if int(off) == d.pos {
		if s, ok := d.ctx.names[off]; ok {
			return s, d.skipName()
		}
		s, err := d.parseName()
		if err != nil {
			return "", err
		}
		d.ctx.names[off] = s
		return s, nil
	}
	return d.ctx.nameAt(off)
}

// parseName decodes a name structure at the cursor: next-name offset, name
// hash, then a NUL-terminated length-prefixed UTF-16 string.
func (d *decoder) parseName() (string, error) {
	if err := d.skip(4 + 2); err != nil { // next-name offset, hash
		return "", err
	}
	return d.readPrefixedString(true)
}

// skipName steps over a name structure without decoding the characters.
func (d *decoder) skipName() error {
	if err := d.skip(4 + 2); err != nil {
		return err
	}
	n, err := d.u16()
	if err != nil {
		return err
	}
	return d.skip(int(n)*2 + 2)
}

// decodeTemplateInstance decodes a template-instance token body: the
// template identifier and definition offset, then the per-record
// substitution value array, and finally expands the cached template tree
// with those values.
func (d *decoder) decodeTemplateInstance() (Node, error) {
	if err := d.skip(1); err != nil { // unknown, observed 0x01
		return nil, err
	}
	if err := d.skip(4); err != nil { // template identifier
		return nil, err
	}
	defOff, err := d.u32()
	if err != nil {
		return nil, err
	}
	tpl, err := d.ctx.templateAt(d, defOff)
	if err != nil {
		return nil, err
	}

	nvals, err := d.u32()
	if err != nil {
		return nil, err
	}
	if _, err := buf.CheckArrayBounds(d.end, d.pos, int(nvals), 4); err != nil {
		return nil, fmt.Errorf("substitution descriptors: %w", ErrTruncated)
	}
	type desc struct {
		size uint16
		typ  byte
	}
	descs := make([]desc, nvals)
	for i := range descs {
		size, err := d.u16()
		if err != nil {
			return nil, err
		}
		typ, err := d.u8()
		if err != nil {
			return nil, err
		}
		if err := d.skip(1); err != nil { // padding
			return nil, err
		}
		descs[i] = desc{size: size, typ: typ}
	}

	// The substitution value array is parsed once per record before the
	// template tree is walked.
	vals := make([]Node, nvals)
	for i, ds := range descs {
		v, err := decodeValue(d.ctx, ds.typ, d.pos, int(ds.size))
		if err != nil {
			return nil, err
		}
		if err := d.skip(int(ds.size)); err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return expand(tpl, vals)
}

// parseTemplateDefinition decodes a template definition at the cursor:
// next-definition offset, instance GUID, body length, then the fragment
// forming the template tree. The cursor lands exactly past the body.
func (d *decoder) parseTemplateDefinition() (Node, error) {
	if err := d.skip(4 + 16); err != nil { // next-definition offset, GUID
		return nil, err
	}
	bodyLen, err := d.u32()
	if err != nil {
		return nil, err
	}
	bodyStart := d.pos
	if !buf.Has(d.ctx.chunk, bodyStart, int(bodyLen)) {
		return nil, fmt.Errorf("template body at 0x%X: %w", bodyStart, ErrTruncated)
	}
	body := &decoder{ctx: d.ctx, pos: bodyStart, end: bodyStart + int(bodyLen)}
	tpl, err := body.decodeFragment()
	if err != nil {
		return nil, err
	}
	d.pos = bodyStart + int(bodyLen)
	return tpl, nil
}

// skipTemplateDefinition steps over an inline definition whose tree is
// already cached.
func (d *decoder) skipTemplateDefinition() error {
	if err := d.skip(4 + 16); err != nil {
		return err
	}
	bodyLen, err := d.u32()
	if err != nil {
		return err
	}
	return d.skip(int(bodyLen))
}

// expand walks a template tree replacing substitution slots with the
// record's decoded values. A nil result with nil error means the node is
// omitted (optional substitution with an absent value).
func expand(n Node, vals []Node) (Node, error) {
	switch x := n.(type) {
	case nil:
		return nil, nil
	case Text, *Value:
		return n, nil
	case *Sub:
		if int(x.Index) >= len(vals) {
			return nil, fmt.Errorf("index %d of %d: %w", x.Index, len(vals), ErrBadSubstitution)
		}
		v := vals[x.Index]
		if v == nil && !x.Optional {
			v = &Value{Kind: ValueNull}
		}
		return v, nil
	case *Element:
		out := &Element{Name: x.Name}
		for _, a := range x.Attrs {
			v, err := expand(a.Value, vals)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			out.Attrs = append(out.Attrs, Attr{Name: a.Name, Value: v})
		}
		for _, c := range x.Children {
			v, err := expand(c, vals)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			out.Children = append(out.Children, v)
		}
		return out, nil
	default:
		return n, nil
	}
}

// expandEntity maps the XML predefined entities; unknown references render
// in their textual form.
func expandEntity(name string) string {
	switch name {
	case "lt":
		return "<"
	case "gt":
		return ">"
	case "amp":
		return "&"
	case "quot":
		return "\""
	case "apos":
		return "'"
	default:
		return "&" + name + ";"
	}
}
