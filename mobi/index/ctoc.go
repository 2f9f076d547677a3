package index

import (
	"bytes"

	"github.com/mobiwright/mobicore/varint"
)

const (
	ctocMaxPayload = 0xFBF8
	ctocBlock      = 0x10000
)

// CtocEntry is one compiled-TOC entry, in CTOC emission order.
type CtocEntry struct {
	Klass             string
	TitleOffset       uint32
	ClassOffset       uint32
	HasClassOffset    bool
	DescriptionOffset uint32
	HasDescription    bool
	AuthorOffset      uint32
	HasAuthor         bool
}

// CTOCBuilder accumulates the chunked 64KiB CTOC (CNCX) string table.
type CTOCBuilder struct {
	current     bytes.Buffer
	records     [][]byte
	recordBase  uint32 // offset of the record currently being filled
	classOffset map[string]uint32

	Entries []CtocEntry
}

// NewCTOCBuilder returns an empty builder.
func NewCTOCBuilder() *CTOCBuilder {
	return &CTOCBuilder{classOffset: make(map[string]uint32)}
}

// addString appends a VWI-length-prefixed string to the CTOC, rolling to a
// new 0x10000-aligned record when the current one would overflow
// ctocMaxPayload, and returns the string's address (record_base +
// offset_within_record).
func (b *CTOCBuilder) addString(s string) uint32 {
	need := 2 + len(s) // conservative: VWI length prefix is at most 2 bytes below payload cap
	if ctocMaxPayload-b.current.Len() < need {
		b.sealCurrentRecord()
	}

	offset := b.recordBase + uint32(b.current.Len())
	b.current.Write(varint.EncodeForward(uint32(len(s))))
	b.current.WriteString(s)
	return offset
}

func (b *CTOCBuilder) sealCurrentRecord() {
	padded := make([]byte, ctocMaxPayload)
	copy(padded, b.current.Bytes())
	b.records = append(b.records, padded)
	b.current.Reset()
	b.recordBase += ctocBlock
}

// classAddress returns the (cached) address of a class-name string,
// storing it once on first use, in whichever CNCX record is current at
// that point (AddStructuredNode stores the node's title first).
func (b *CTOCBuilder) classAddress(klass string) uint32 {
	if off, ok := b.classOffset[klass]; ok {
		return off
	}
	off := b.addString(klass)
	b.classOffset[klass] = off
	return off
}

// AddFlatNode adds a book-mode CTOC entry: only a title string, klass
// forced to "chapter" even for nodes the classifier marked "article".
func (b *CTOCBuilder) AddFlatNode(title string) CtocEntry {
	e := CtocEntry{Klass: "chapter", TitleOffset: b.addString(title)}
	b.Entries = append(b.Entries, e)
	return e
}

// AddStructuredNode adds a structured-periodical CTOC entry: title always,
// plus a class string (reused across nodes of the same klass) and, for
// articles, optional description/author strings.
func (b *CTOCBuilder) AddStructuredNode(n *TOCNode) CtocEntry {
	e := CtocEntry{
		Klass:          n.Klass,
		TitleOffset:    b.addString(n.Title),
		ClassOffset:    b.classAddress(n.Klass),
		HasClassOffset: true,
	}
	if n.Klass == "article" {
		if n.Description != "" {
			e.DescriptionOffset = b.addString(n.Description)
			e.HasDescription = true
		}
		if n.Author != "" {
			e.AuthorOffset = b.addString(n.Author)
			e.HasAuthor = true
		}
	}
	b.Entries = append(b.Entries, e)
	return e
}

// Finish zero-terminates and 4-byte-aligns the final record and returns
// the complete ordered list of sealed CTOC record buffers.
func (b *CTOCBuilder) Finish() [][]byte {
	b.current.WriteByte(0)
	align4(&b.current)
	final := make([]byte, b.current.Len())
	copy(final, b.current.Bytes())
	return append(b.records, final)
}

// align4 pads buf with zero bytes until its length is a multiple of 4.
func align4(buf *bytes.Buffer) {
	if extra := buf.Len() % 4; extra != 0 {
		buf.Write(make([]byte, 4-extra))
	}
}
