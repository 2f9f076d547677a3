// Package serialize walks a parsed markup tree and renders it to the
// single XHTML payload a MOBI file carries as its text records, tracking
// every byte offset the rest of the writing pipeline needs: anchor
// targets for internal links, page-break positions, and (after a TOC
// entry's href is resolved against those anchors) the byte range each
// chapter or article occupies.
package serialize

// Element is a minimal DOM node: a tag with attributes, literal text, and
// children. mobi/ir builds this tree from parsed XHTML; this package never
// parses markup itself, only walks an already-built tree.
type Element struct {
	Tag             string
	Attrs           map[string]string
	Text            string
	Children        []*Element
	PageBreakBefore bool
}

// NewElement returns an empty element with an initialized attribute map.
func NewElement(tag string) *Element {
	return &Element{Tag: tag, Attrs: make(map[string]string)}
}

// NewText returns a bare text node (no tag, no attributes).
func NewText(text string) *Element {
	return &Element{Text: text}
}

// AddChild appends a child and returns it, for fluent tree construction.
func (e *Element) AddChild(c *Element) *Element {
	e.Children = append(e.Children, c)
	return c
}
