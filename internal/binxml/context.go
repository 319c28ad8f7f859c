package binxml

// Context carries the chunk-scoped state consulted while decoding: the chunk
// buffer (name offsets and template-definition offsets in the token stream
// are chunk-relative) and the lazily populated name and template caches.
//
// A Context lives exactly as long as its chunk view and is never shared
// across chunks; templates are chunk-local definitions. The sequential
// decode path is the only writer, so no locking is needed. A concurrent
// extension would give each chunk its own Context, which is already the
// ownership model here.
type Context struct {
	chunk     []byte
	names     map[uint32]string
	templates map[uint32]Node
}

// NewContext returns a decode context for the given chunk buffer.
func NewContext(chunk []byte) *Context {
	return &Context{
		chunk:     chunk,
		names:     make(map[uint32]string),
		templates: make(map[uint32]Node),
	}
}

// Decode decodes the BinXML fragment occupying [off, off+size) of the chunk,
// typically a record's payload region.
func (c *Context) Decode(off, size int) (Node, error) {
	d := &decoder{ctx: c, pos: off, end: off + size}
	return d.decodeFragment()
}

// nameAt returns the interned name defined at the given chunk offset,
// parsing and caching it on first reference.
func (c *Context) nameAt(off uint32) (string, error) {
	if s, ok := c.names[off]; ok {
		return s, nil
	}
	d := &decoder{ctx: c, pos: int(off), end: len(c.chunk)}
	s, err := d.parseName()
	if err != nil {
		return "", err
	}
	c.names[off] = s
	return s, nil
}

// templateAt returns the template tree defined at the given chunk offset,
// parsing and caching the definition on first reference. The cursor d is
// advanced through the definition when it sits inline at the current
// position; otherwise a side cursor parses it in place.
func (c *Context) templateAt(d *decoder, off uint32) (Node, error) {
	if tpl, ok := c.templates[off]; ok {
		if int(off) == d.pos {
			// Inline definition already cached from a prior decode of the
			// same bytes; step over it without re-parsing the body.
			if err := d.skipTemplateDefinition(); err != nil {
				return nil, err
			}
		}
		return tpl, nil
	}
	var (
		tpl Node
		err error
	)
	if int(off) == d.pos {
		tpl, err = d.parseTemplateDefinition()
	} else {
		side := &decoder{ctx: c, pos: int(off), end: len(c.chunk)}
		tpl, err = side.parseTemplateDefinition()
	}
	if err != nil {
		return nil, err
	}
	c.templates[off] = tpl
	return tpl, nil
}
