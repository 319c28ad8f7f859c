package binxml

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/intunewithnature/evtxkit/internal/buf"
	"github.com/intunewithnature/evtxkit/internal/format"
)

// decodeValue decodes one substitution value of the declared type from
// [off, off+size) of the chunk into a node. A nil node means the value is
// absent (null type); optional substitution slots with absent values are
// dropped on expansion. The value is addressed by chunk offset rather than
// by slice so nested BinXML payloads can resolve chunk-relative name and
// template references.
//
// All multi-byte integers are little-endian. FILETIME conversion stays in
// 64-bit integer arithmetic; no float intermediates.
func decodeValue(ctx *Context, typ byte, off, size int) (Node, error) {
	raw, ok := buf.Slice(ctx.chunk, off, size)
	if !ok {
		return nil, shortValue(typ)
	}
	switch typ {
	case ValueNull:
		return nil, nil
	case ValueString:
		return &Value{Kind: typ, V: trimNul(decodeUTF16LE(raw))}, nil
	case ValueAnsiString:
		s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("ansi string: %w", err)
		}
		return &Value{Kind: typ, V: strings.TrimRight(string(s), "\x00")}, nil
	case ValueInt8:
		if len(raw) < 1 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: int64(int8(raw[0]))}, nil
	case ValueUInt8:
		if len(raw) < 1 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: uint64(raw[0])}, nil
	case ValueInt16:
		if len(raw) < 2 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: int64(int16(buf.U16LE(raw)))}, nil
	case ValueUInt16:
		if len(raw) < 2 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: uint64(buf.U16LE(raw))}, nil
	case ValueInt32:
		if len(raw) < 4 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: int64(buf.I32LE(raw))}, nil
	case ValueUInt32:
		if len(raw) < 4 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: uint64(buf.U32LE(raw))}, nil
	case ValueInt64:
		if len(raw) < 8 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: buf.I64LE(raw)}, nil
	case ValueUInt64:
		if len(raw) < 8 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: buf.U64LE(raw)}, nil
	case ValueReal32:
		if len(raw) < 4 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: float64(math.Float32frombits(buf.U32LE(raw)))}, nil
	case ValueReal64:
		if len(raw) < 8 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: math.Float64frombits(buf.U64LE(raw))}, nil
	case ValueBool:
		// Width follows the descriptor, 1 to 8 bytes; nonzero is true.
		v := false
		for _, c := range raw {
			if c != 0 {
				v = true
				break
			}
		}
		return &Value{Kind: typ, V: v}, nil
	case ValueBinary:
		return &Value{Kind: typ, V: raw}, nil
	case ValueGUID:
		if len(raw) < 16 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: formatGUID(raw)}, nil
	case ValueSizeT:
		switch len(raw) {
		case 4:
			return &Value{Kind: typ, V: fmt.Sprintf("0x%X", buf.U32LE(raw))}, nil
		case 8:
			return &Value{Kind: typ, V: fmt.Sprintf("0x%X", buf.U64LE(raw))}, nil
		}
		return nil, shortValue(typ)
	case ValueFileTime:
		if len(raw) < 8 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: format.FiletimeToTime(buf.U64LE(raw))}, nil
	case ValueSysTime:
		if len(raw) < 16 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: decodeSystemTime(raw)}, nil
	case ValueSID:
		s, err := formatSID(raw)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: typ, V: s}, nil
	case ValueHexInt32:
		if len(raw) < 4 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: fmt.Sprintf("0x%08X", buf.U32LE(raw))}, nil
	case ValueHexInt64:
		if len(raw) < 8 {
			return nil, shortValue(typ)
		}
		return &Value{Kind: typ, V: fmt.Sprintf("0x%016X", buf.U64LE(raw))}, nil
	case ValueBinXml:
		// Nested fragment, decoded against the same chunk context so it can
		// reference interned names and cached templates.
		node, err := ctx.Decode(off, size)
		if err != nil {
			return nil, err
		}
		return &Value{Kind: typ, V: node}, nil
	case ValueStringArray:
		parts := strings.Split(trimNul(decodeUTF16LE(raw)), "\x00")
		return &Value{Kind: typ, V: parts}, nil
	default:
		return nil, fmt.Errorf("value type 0x%02X: %w", typ, ErrUnknownValueType)
	}
}

func shortValue(typ byte) error {
	return fmt.Errorf("value type 0x%02X: %w", typ, ErrTruncated)
}

// formatGUID renders 16 raw bytes in the canonical dashed form. The first
// three groups are little-endian, the rest byte-ordered.
func formatGUID(b []byte) string {
	return fmt.Sprintf("%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X",
		buf.U32LE(b), buf.U16LE(b[4:]), buf.U16LE(b[6:]),
		b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15])
}

// formatSID renders a Windows security identifier: revision byte, sub
// authority count, 48-bit big-endian identifier authority, then little-endian
// 32-bit sub authorities.
func formatSID(b []byte) (string, error) {
	if len(b) < 8 {
		return "", shortValue(ValueSID)
	}
	revision := b[0]
	count := int(b[1])
	if len(b) < 8+4*count {
		return "", shortValue(ValueSID)
	}
	authority := uint64(0)
	for _, c := range b[2:8] {
		authority = authority<<8 | uint64(c)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "S-%d-%d", revision, authority)
	for i := 0; i < count; i++ {
		fmt.Fprintf(&sb, "-%d", buf.U32LE(b[8+4*i:]))
	}
	return sb.String(), nil
}

// decodeSystemTime decodes a 16-byte SYSTEMTIME structure
// (year, month, day-of-week, day, hour, minute, second, milliseconds).
func decodeSystemTime(b []byte) time.Time {
	year := int(buf.U16LE(b))
	month := time.Month(buf.U16LE(b[2:]))
	day := int(buf.U16LE(b[6:]))
	hour := int(buf.U16LE(b[8:]))
	minute := int(buf.U16LE(b[10:]))
	sec := int(buf.U16LE(b[12:]))
	ms := int(buf.U16LE(b[14:]))
	return time.Date(year, month, day, hour, minute, sec, ms*int(time.Millisecond), time.UTC)
}
