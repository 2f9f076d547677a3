package index

import (
	"bytes"
	"testing"
)

func TestWriteIndxHeaderLayout(t *testing.T) {
	header := writeIndxHeader(0, 0x123, 7, 65001, 9, 42, 3)

	if len(header) != indxHeaderSize {
		t.Fatalf("header length = %d, want %d", len(header), indxHeaderSize)
	}
	if string(header[0:4]) != "INDX" {
		t.Fatalf("magic = %q, want INDX", header[0:4])
	}
	if got := be32(header, 0x04); got != indxHeaderSize {
		t.Errorf("header length field = %d, want %d", got, indxHeaderSize)
	}
	if got := be32(header, 0x10); got != 0x123 {
		t.Errorf("idxt offset = %#x, want 0x123", got)
	}
	if got := be32(header, 0x14); got != 7 {
		t.Errorf("num entries = %d, want 7", got)
	}
	if got := be32(header, 0x30); got != 3 {
		t.Errorf("cncx count = %d, want 3", got)
	}
}

func be32(b []byte, off int) uint32 {
	return uint32(b[off])<<24 | uint32(b[off+1])<<16 | uint32(b[off+2])<<8 | uint32(b[off+3])
}

func TestBuildINDX0ContainsTagx(t *testing.T) {
	rec := BuildINDX0(MobiTypeBook, 3)
	if len(rec.Body) <= indxHeaderSize {
		t.Fatalf("INDX0 body too short to contain a TAGX table: %d bytes", len(rec.Body))
	}
	tagx := rec.Body[indxHeaderSize:]
	if !bytes.Equal(tagx, tagxChapter) {
		t.Errorf("book-mode INDX0 should embed the chapter TAGX table")
	}

	periodicalRec := BuildINDX0(MobiTypeMagazine, 1)
	if !bytes.Equal(periodicalRec.Body[indxHeaderSize:], tagxPeriodical) {
		t.Errorf("periodical INDX0 should embed the periodical TAGX table")
	}
}

func TestBuildBookIndexOneEntryPerChapter(t *testing.T) {
	chapters := []*Chapter{
		{StartAddress: 0, Length: 100},
		{StartAddress: 100, Length: 50},
	}
	ctoc := []CtocEntry{
		{TitleOffset: 0},
		{TitleOffset: 10},
	}

	indx0, indx1 := BuildBookIndex(chapters, ctoc)

	if len(indx0.Body) != indxHeaderSize+len(tagxChapter) {
		t.Errorf("INDX0 size = %d, want %d", len(indx0.Body), indxHeaderSize+len(tagxChapter))
	}

	body := indx1.Body
	if !bytes.Contains(body, []byte("IDXT")) {
		t.Fatalf("INDX1 body missing IDXT marker")
	}
	if len(body)%4 != 0 {
		t.Errorf("INDX1 body length %d not 4-byte aligned", len(body))
	}
	if !bytes.Contains(body, []byte("0000")) || !bytes.Contains(body, []byte("0001")) {
		t.Errorf("INDX1 body should contain hex node names 0000 and 0001")
	}
}

func TestBuildPeriodicalIndexOrdersPeriodicalThenSectionsThenArticles(t *testing.T) {
	doc := &Document{MobiType: MobiTypeMagazine}
	periodical := &Periodical{MyIndex: doc.NextNode(), StartAddress: 0}
	section := periodical.AddSectionParent(doc, 1)
	article := NewArticle(section, 0, 40, 2)
	section.AddArticle(periodical, article)

	ctoc := []CtocEntry{
		{TitleOffset: 0, ClassOffset: 1, HasClassOffset: true},
		{TitleOffset: 5, ClassOffset: 1, HasClassOffset: true},
		{TitleOffset: 20, ClassOffset: 9, HasClassOffset: true},
	}

	indx0, indx1 := BuildPeriodicalIndex(MobiTypeMagazine, periodical, ctoc)

	if !bytes.Equal(indx0.Body[indxHeaderSize:], tagxPeriodical) {
		t.Errorf("structured periodical INDX0 should embed the periodical TAGX table")
	}

	body := indx1.Body
	names := [][]byte{[]byte("0000"), []byte("0001"), []byte("0002")}
	lastPos := -1
	for _, n := range names {
		pos := bytes.Index(body, n)
		if pos == -1 {
			t.Fatalf("missing node name %q in INDX1 body", n)
		}
		if pos < lastPos {
			t.Errorf("node %q emitted out of order (periodical, section, article)", n)
		}
		lastPos = pos
	}
}
