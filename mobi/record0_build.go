package mobi

import (
	"strings"

	idx "github.com/mobiwright/mobicore/mobi/index"
)

// buildRecord0 assembles the complete record 0 payload from the book's
// metadata and the layout decided by Write: record and image-record
// positions, the final mobiType, and whether indexing succeeded.
func (w *Writer) buildRecord0(
	textLength uint32,
	textRecordCount int,
	mobiType idx.MobiType,
	indexed bool,
	firstContentRec, lastContentRec uint16,
	firstImageRecord, primaryIndexRecord, secondaryIndexRecord, flisRecord, fcisRecord uint32,
) []byte {
	var exthBytes []byte
	if w.options.WithEXTH {
		exthBytes = w.buildEXTH(mobiType)
	}

	compression := uint16(w.options.CompressionType)
	if compression == 0 {
		compression = uint16(NoCompression)
	}

	exthFlags := uint32(0)
	if len(exthBytes) > 0 {
		exthFlags = 0x50
	}

	return BuildRecord0(Record0Params{
		Compression:        compression,
		TextLength:         textLength,
		TextRecordCount:    uint16(textRecordCount),
		MobiType:           uint32(mobiType),
		Encoding:           UTF8Encoding,
		UniqueID:           generateRandomID(),
		Language:           iana2mobi(w.book.Metadata.Language),
		SecondaryIndex:     secondaryIndexRecord,
		FirstImageRecord:   firstImageRecord,
		ExthFlags:          exthFlags,
		FirstContentRec:    firstContentRec,
		LastContentRec:     lastContentRec,
		FCISRecord:         fcisRecord,
		FLISRecord:         flisRecord,
		TrailingIndexable:  indexed,
		TrailingPageBreaks: w.options.WritePageBreaks,
		PrimaryIndexRecord: primaryIndexRecord,
		Title:              w.GetBookName(),
		EXTH:               exthBytes,
	})
}

// buildEXTH populates an EXTHWriter from the book's metadata. CDEType is
// only emitted for non-periodical output: periodicals are shelved by
// their mobiType, not by EXTH 501.
func (w *Writer) buildEXTH(mobiType idx.MobiType) []byte {
	ew := NewEXTHWriter()
	md := w.book.Metadata

	if authors := w.joinedAuthors(); authors != "" {
		ew.AddCreator(authors)
	}
	if md.Publisher != "" {
		ew.AddPublisher(md.Publisher)
	}
	if desc := firstNonEmpty(md.Annotation, md.Description); desc != "" {
		ew.AddDescription(desc)
	}
	if md.ISBN != "" {
		ew.AddISBN(md.ISBN)
	}
	if subject := firstNonEmpty(md.Subject, strings.Join(md.Genres, ", ")); subject != "" {
		ew.AddSubject(subject)
	}
	date := md.Year
	if date == "" && !md.PubDate.IsZero() {
		date = md.PubDate.Format("2006-01-02")
	}
	if date != "" {
		ew.AddPubDate(date)
	}
	if len(md.Contributors) > 0 {
		ew.AddContributor(strings.Join(md.Contributors, "; "))
	}
	if md.Rights != "" {
		ew.AddRights(md.Rights)
	}
	if md.Source != "" {
		ew.AddSource(md.Source)
	}
	if md.ASIN != "" {
		ew.AddASIN(md.ASIN)
	}
	if !mobiType.IsPeriodical() {
		ew.AddCDEType()
	}
	ew.AddTitle(w.GetBookName())

	return ew.Bytes()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// joinedAuthors renders every author's full name, semicolon-separated, in
// manifest order.
func (w *Writer) joinedAuthors() string {
	names := make([]string, 0, len(w.book.Metadata.Authors))
	for _, a := range w.book.Metadata.Authors {
		if a.FullName != "" {
			names = append(names, a.FullName)
		}
	}
	return strings.Join(names, "; ")
}

// iana2mobi maps an IANA/BCP-47 language tag to the MOBI LCID record 0
// expects. Unknown or absent tags default to English, matching readers'
// own fallback behavior.
func iana2mobi(lang string) uint32 {
	switch strings.ToLower(lang) {
	case "ru":
		return 0x19
	case "de":
		return 0x07
	case "fr":
		return 0x0C
	case "es":
		return 0x0A
	case "it":
		return 0x10
	case "pt":
		return 0x16
	case "nl":
		return 0x13
	case "uk":
		return 0x22
	default:
		return 0x09
	}
}
