package binxml

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Node is one vertex of a decoded BinXML tree: an element, a text run, a
// typed substitution value, or (inside an unexpanded template) a
// substitution slot.
type Node interface {
	// Text renders the node's character content.
	Text() string
	node()
}

// Element is a decoded XML element with its attributes and children in
// document order.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node
}

// Attr is a single attribute. Value is a Text or Value node, or a Sub slot
// inside an unexpanded template.
type Attr struct {
	Name  string
	Value Node
}

func (e *Element) node() {}

// Text concatenates the character content of the element's children.
func (e *Element) Text() string {
	if len(e.Children) == 1 {
		return e.Children[0].Text()
	}
	var b strings.Builder
	for _, c := range e.Children {
		b.WriteString(c.Text())
	}
	return b.String()
}

// Child returns the first direct child element with the given name.
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && el.Name == name {
			return el
		}
	}
	return nil
}

// Attr returns the rendered value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name && a.Value != nil {
			return a.Value.Text(), true
		}
	}
	return "", false
}

// AttrNode returns the value node of the named attribute.
func (e *Element) AttrNode(name string) (Node, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, a.Value != nil
		}
	}
	return nil, false
}

// Text is a literal character run.
type Text string

func (t Text) node() {}

// Text returns the run itself.
func (t Text) Text() string { return string(t) }

// Sub is an unexpanded substitution slot inside a template definition tree.
// Expansion replaces it with the record's value at Index.
type Sub struct {
	Index    uint16
	Type     byte
	Optional bool
}

func (s *Sub) node() {}

// Text on an unexpanded slot renders empty; slots only appear in cached
// template trees, never in expanded record trees.
func (s *Sub) Text() string { return "" }

// Value is a decoded substitution value.
type Value struct {
	Kind byte
	V    any
}

func (v *Value) node() {}

// Text renders the value the way Windows renders it textually: decimal for
// integers, canonical GUID/SID forms, RFC 3339 for times, upper-case hex for
// binary payloads.
func (v *Value) Text() string {
	switch x := v.V.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return fmt.Sprintf("%X", x)
	case []string:
		return strings.Join(x, ", ")
	case Node:
		return x.Text()
	default:
		return fmt.Sprint(x)
	}
}
