package serialize

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// filleposWidth is the fixed width of a filepos placeholder — ten decimal
// digits, zero-padded, wide enough for any realistic book and narrow
// enough that patching one in place never shifts a byte already recorded
// in IDOffsets or PageBreakOffsets.
const filleposWidth = 10

// LinkFixup records one href placeholder written into Body: its byte
// offset and the anchor id it must eventually resolve to. A link may
// target an id that appears later in document order, so every fixup is
// collected during the walk and resolved afterward in fixupLinks.
type LinkFixup struct {
	Offset int
	Target string
}

// GuideRef is one <guide><reference .../></guide> entry: a semantic
// pointer into the serialized body (the book's start of text, its inline
// table of contents, a periodical's masthead) that Kindle readers use to
// decide where to open a book or how to present it. Href is a "#id"
// fragment resolved against the same id offsets a regular href uses.
type GuideRef struct {
	Type  string
	Title string
	Href  string
}

// SerializedText is the serializer's complete output: the rendered body
// plus the bookkeeping the splitter, classifier, and indexer need.
type SerializedText struct {
	Body []byte

	// IDOffsets is keyed by "href#id" — the item href every id in this
	// document is recorded under, joined to the bare element id — matching
	// how a href target is addressed everywhere else in the pipeline.
	IDOffsets map[string]int64

	HrefOffsets      []LinkFixup
	PageBreakOffsets []int64

	// AnchorOffsetKindle is the byte offset immediately inside the opening
	// <body> tag — the position Kindle treats as "start of the document"
	// when nothing more specific is given.
	AnchorOffsetKindle int64
}

// Serialize walks root depth-first, rendering XHTML while recording id
// offsets, href placeholders, guide references, and page-break positions,
// then resolves every placeholder in a second pass. href is the item href
// every id and link target in this document is addressed under.
func Serialize(root *Element, href string, guide []GuideRef) *SerializedText {
	st := &SerializedText{IDOffsets: make(map[string]int64)}
	var buf bytes.Buffer

	buf.WriteString("<html>")
	serializeHead(&buf, guide, href, st)

	buf.WriteByte('<')
	buf.WriteString(root.Tag)
	serializeAttrs(&buf, root, href, st)
	buf.WriteByte('>')
	st.AnchorOffsetKindle = int64(buf.Len())
	writeText(&buf, root.Text, false)
	for _, c := range root.Children {
		serializeElem(&buf, c, href, st)
	}
	buf.WriteString("</")
	buf.WriteString(root.Tag)
	buf.WriteByte('>')

	buf.WriteString("</html>")
	st.Body = buf.Bytes()
	fixupLinks(st)
	return st
}

// serializeHead writes the <head> block. The only thing it ever carries is
// the guide — real chapter head metadata (title, stylesheet links) belongs
// to the OPF layer upstream of this package, not the text record payload.
func serializeHead(buf *bytes.Buffer, guide []GuideRef, href string, st *SerializedText) {
	buf.WriteString("<head>")
	if len(guide) > 0 {
		buf.WriteString("<guide>")
		for _, g := range guide {
			buf.WriteString(`<reference type="`)
			writeText(buf, strings.TrimPrefix(g.Type, "other."), true)
			buf.WriteByte('"')
			if g.Title != "" {
				buf.WriteString(` title="`)
				writeText(buf, g.Title, true)
				buf.WriteByte('"')
			}
			writeFileposAttr(buf, "href", strings.TrimPrefix(g.Href, "#"), href, st)
			// Space required or the Kindle refuses to parse it.
			buf.WriteString(" />")
		}
		buf.WriteString("</guide>")
	}
	buf.WriteString("</head>")
}

func serializeElem(buf *bytes.Buffer, e *Element, href string, st *SerializedText) {
	if e.Tag == "" {
		writeText(buf, e.Text, false)
		return
	}

	// An anchor with nothing in it — no attributes, no children, no text —
	// is dropped rather than written as an empty <a></a>.
	if e.Tag == "a" && len(e.Attrs) == 0 && len(e.Children) == 0 && e.Text == "" {
		return
	}

	if e.PageBreakBefore {
		st.PageBreakOffsets = append(st.PageBreakOffsets, int64(buf.Len()))
	}

	if id := e.Attrs["id"]; id != "" {
		st.IDOffsets[href+"#"+id] = int64(buf.Len())
	}

	buf.WriteByte('<')
	buf.WriteString(e.Tag)
	serializeAttrs(buf, e, href, st)
	if len(e.Children) == 0 && e.Text == "" {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	writeText(buf, e.Text, false)
	for _, c := range e.Children {
		serializeElem(buf, c, href, st)
	}
	buf.WriteString("</")
	buf.WriteString(e.Tag)
	buf.WriteByte('>')
}

// serializeAttrs writes attributes in sorted key order for deterministic
// output. A "href" value of the form "#target" is not written literally:
// it becomes a filepos placeholder, backpatched once every id in the
// document has been walked.
func serializeAttrs(buf *bytes.Buffer, e *Element, href string, st *SerializedText) {
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := e.Attrs[k]
		if k == "href" && len(v) > 1 && v[0] == '#' {
			writeFileposAttr(buf, k, v[1:], href, st)
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(k)
		buf.WriteString(`="`)
		writeText(buf, v, true)
		buf.WriteByte('"')
	}
}

// writeFileposAttr writes ` name="filepos=0000000000"` and registers a
// fixup that later patches the placeholder with frag's resolved offset
// within href's document.
func writeFileposAttr(buf *bytes.Buffer, name, frag, href string, st *SerializedText) {
	fmt.Fprintf(buf, ` %s="filepos=`, name)
	st.HrefOffsets = append(st.HrefOffsets, LinkFixup{Offset: buf.Len(), Target: href + "#" + frag})
	buf.WriteString(zeroPad(0, filleposWidth))
	buf.WriteByte('"')
}

// writeText escapes & < > for XML and strips the soft hyphen (U+00AD) —
// legacy word processors use it to mark an optional line-break point, but
// it has no meaning once text reflows onto a Kindle screen. When quot is
// set (attribute values), it also escapes the double quote.
func writeText(buf *bytes.Buffer, text string, quot bool) {
	const softHyphen = '\u00AD'
	for _, r := range text {
		switch r {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case softHyphen:
			// dropped, never round-tripped
		case '"':
			if quot {
				buf.WriteString("&quot;")
			} else {
				buf.WriteByte('"')
			}
		default:
			buf.WriteRune(r)
		}
	}
}

// fixupLinks patches every recorded href placeholder with its target's
// resolved byte offset. A target with no matching id (a dangling link)
// is left at its zero placeholder rather than failing the whole document.
func fixupLinks(st *SerializedText) {
	for _, fix := range st.HrefOffsets {
		target, ok := st.IDOffsets[fix.Target]
		if !ok {
			continue
		}
		copy(st.Body[fix.Offset:fix.Offset+filleposWidth], zeroPad(target, filleposWidth))
	}
}

func zeroPad(v int64, width int) string {
	return fmt.Sprintf("%0*d", width, v)
}
