package index

import (
	"bytes"
	"encoding/binary"
)

const indxHeaderSize = 0xC0

// IndexRecord is one finished INDX0 or INDX1 PalmDB record, ready to be
// appended to the record list the record 0 assembler builds.
type IndexRecord struct {
	Body []byte
}

// writeIndxHeader writes the fixed 0xC0-byte INDX header shared by INDX0
// and INDX1: a magic, the header length, an index type, the IDXT table's
// own offset, an entry count, text encoding, a language code, the total
// entry count across the index group, and a CNCX record count. Fields this
// writer never populates (ORDT/LIGT offsets, multi-record continuation)
// stay at their "absent" sentinel, matching a single-block index.
func writeIndxHeader(indexType, idxtOffset, numEntries, encoding, language, totalEntries, cncxCount uint32) []byte {
	buf := make([]byte, indxHeaderSize)
	copy(buf[0x00:], "INDX")
	binary.BigEndian.PutUint32(buf[0x04:], indxHeaderSize)
	binary.BigEndian.PutUint32(buf[0x08:], 0)
	binary.BigEndian.PutUint32(buf[0x0C:], indexType)
	binary.BigEndian.PutUint32(buf[0x10:], idxtOffset)
	binary.BigEndian.PutUint32(buf[0x14:], numEntries)
	binary.BigEndian.PutUint32(buf[0x18:], encoding)
	binary.BigEndian.PutUint32(buf[0x1C:], language)
	binary.BigEndian.PutUint32(buf[0x20:], totalEntries)
	binary.BigEndian.PutUint32(buf[0x24:], 0xFFFFFFFF) // ordt offset: unused
	binary.BigEndian.PutUint32(buf[0x28:], 0xFFFFFFFF) // ligt offset: unused
	binary.BigEndian.PutUint32(buf[0x2C:], 0)           // number of ligt entries
	binary.BigEndian.PutUint32(buf[0x30:], cncxCount)
	return buf
}

// BuildINDX0 assembles the single INDX0 record: the 0xC0-byte header
// followed immediately by the TAGX tag dictionary for mobiType.
func BuildINDX0(mobiType MobiType, numEntries int) IndexRecord {
	tagx := tagxFor(mobiType)
	header := writeIndxHeader(0, 0, 0, 65001, 0xFFFFFFFF, uint32(numEntries), 0)
	body := append(header, tagx...)
	return IndexRecord{Body: body}
}

// BuildINDX1 assembles the single INDX1 record from a pre-built INDXT
// stream and its parallel IDXT offset table: header, INDXT bytes, "IDXT"
// marker, the 16-bit offsets, then zero-padding to a 4-byte boundary.
func BuildINDX1(numEntries int, cncxCount uint32, indxt, indices *bytes.Buffer) IndexRecord {
	idxtOffset := uint32(indxHeaderSize + indxt.Len())
	header := writeIndxHeader(0, idxtOffset, uint32(numEntries), 65001, 0xFFFFFFFF, uint32(numEntries), cncxCount)

	var out bytes.Buffer
	out.Write(header)
	out.Write(indxt.Bytes())
	out.WriteString("IDXT")
	out.Write(indices.Bytes())
	if extra := out.Len() % 4; extra != 0 {
		out.Write(make([]byte, 4-extra))
	}
	return IndexRecord{Body: out.Bytes()}
}

// BuildBookIndex emits the INDX0/INDX1 pair for a book-mode document: one
// chapter node per entry in chapters, addressed against their CTOC title
// offsets.
func BuildBookIndex(chapters []*Chapter, ctoc []CtocEntry) (IndexRecord, IndexRecord) {
	var indxt, indices bytes.Buffer
	for i, c := range chapters {
		writeChapterNode(&indxt, &indices, i, c.StartAddress, c.Length, ctoc[i].TitleOffset)
	}
	indx0 := BuildINDX0(MobiTypeBook, len(chapters))
	indx1 := BuildINDX1(len(chapters), uint32(len(ctoc)), &indxt, &indices)
	return indx0, indx1
}

// BuildPeriodicalIndex emits the INDX0/INDX1 pair for a periodical
// document (flat or structured): the periodical node, then every section
// node, then every article node, in that fixed order. mobiType must
// already reflect the final flat-vs-structured decision (0x102 once the
// section count is known to be exactly one).
func BuildPeriodicalIndex(mobiType MobiType, doc *Periodical, ctoc []CtocEntry) (IndexRecord, IndexRecord) {
	var indxt, indices bytes.Buffer

	count := 0
	writePeriodicalNode(&indxt, &indices, count, doc.StartAddress, doc.Length,
		ctoc[doc.MyCtocMapIndex].TitleOffset, ctoc[doc.MyCtocMapIndex].ClassOffset,
		doc.FirstSectionIndex, doc.LastSectionIndex)
	count++

	for _, s := range doc.SectionParents {
		writeSectionNode(&indxt, &indices, count, s.StartAddress, s.SectionLength,
			ctoc[s.MyCtocMapIndex].TitleOffset, ctoc[s.MyCtocMapIndex].ClassOffset,
			uint32(s.ParentIndex), uint32(s.FirstArticleIndex), uint32(s.LastArticleIndex))
		count++
	}

	for _, s := range doc.SectionParents {
		for _, a := range s.Articles {
			entry := ctoc[a.MyCtocMapIndex]
			var desc, author *uint32
			if entry.HasDescription {
				d := entry.DescriptionOffset
				desc = &d
			}
			if entry.HasAuthor {
				au := entry.AuthorOffset
				author = &au
			}
			writeArticleNode(&indxt, &indices, count, a.StartAddress, a.ArticleLength,
				entry.TitleOffset, entry.ClassOffset, uint32(a.SectionParentIndex), desc, author)
			count++
		}
	}

	indx0 := BuildINDX0(mobiType, count)
	indx1 := BuildINDX1(count, uint32(len(ctoc)), &indxt, &indices)
	return indx0, indx1
}
