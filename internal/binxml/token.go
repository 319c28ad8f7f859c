// Package binxml decodes the binary XML token stream embedded in EVTX event
// records into a generic node tree. Decoding is chunk-scoped: interned names
// and template definitions are resolved through a per-chunk Context so
// repeated structural content is decoded once.
package binxml

import "errors"

// Token kinds. The low bits of a token byte select the kind; 0x40 flags
// "has more" (further attributes follow, or an attribute value is present).
const (
	TokenEOF                  = 0x00
	TokenOpenStartElement     = 0x01 // (<)name>
	TokenCloseStartElement    = 0x02 // <name(>)
	TokenCloseEmptyElement    = 0x03 // <name(/>)
	TokenEndElement           = 0x04 // (</name>)
	TokenValue                = 0x05 // attribute = ''(value)''
	TokenAttribute            = 0x06 // (attribute) = ''value''
	TokenCDATASection         = 0x07
	TokenCharRef              = 0x08
	TokenEntityRef            = 0x09
	TokenPITarget             = 0x0a
	TokenPIData               = 0x0b
	TokenTemplateInstance     = 0x0c
	TokenNormalSubstitution   = 0x0d
	TokenOptionalSubstitution = 0x0e
	TokenFragmentHeader       = 0x0f

	// TokenKindMask extracts the kind from a token byte.
	TokenKindMask = 0x3f
	// TokenMoreFlag marks an open-start-element carrying attributes, or an
	// attribute that is not the last in its list.
	TokenMoreFlag = 0x40
)

// Substitution value types.
const (
	ValueNull        = 0x00
	ValueString      = 0x01 // UTF-16LE
	ValueAnsiString  = 0x02 // code page string, decoded as Windows-1252
	ValueInt8        = 0x03
	ValueUInt8       = 0x04
	ValueInt16       = 0x05
	ValueUInt16      = 0x06
	ValueInt32       = 0x07
	ValueUInt32      = 0x08
	ValueInt64       = 0x09
	ValueUInt64      = 0x0a
	ValueReal32      = 0x0b
	ValueReal64      = 0x0c
	ValueBool        = 0x0d
	ValueBinary      = 0x0e
	ValueGUID        = 0x0f
	ValueSizeT       = 0x10
	ValueFileTime    = 0x11
	ValueSysTime     = 0x12
	ValueSID         = 0x13
	ValueHexInt32    = 0x14
	ValueHexInt64    = 0x15
	ValueBinXml      = 0x21
	ValueStringArray = 0x81
)

var (
	// ErrUnknownToken indicates an unrecognized token kind in the stream.
	ErrUnknownToken = errors.New("binxml: unknown token")
	// ErrUnknownValueType indicates an unrecognized substitution value type.
	ErrUnknownValueType = errors.New("binxml: unknown value type")
	// ErrBadSubstitution indicates a substitution index outside the record's
	// value array.
	ErrBadSubstitution = errors.New("binxml: substitution index out of range")
	// ErrTruncated indicates the token stream ended inside a structure.
	ErrTruncated = errors.New("binxml: truncated stream")
)
