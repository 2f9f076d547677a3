// Package mobi provides EXTH metadata generation.
package mobi

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/text/unicode/norm"
)

// EXTH record codes. Narrower than the full EXTH registry by design: every
// code a MOBI reader recognizes beyond this set belongs to the KF8/enhanced
// typesetting path, which this writer does not produce.
const (
	EXTHCreator     = 100
	EXTHPublisher   = 101
	EXTHDescription = 103
	EXTHIdentifier  = 104 // only emitted for an identifier with scheme=ISBN
	EXTHSubject     = 105
	EXTHPubDate     = 106
	EXTHContributor = 108
	EXTHRights      = 109
	EXTHType        = 111
	EXTHSource      = 112
	EXTHASIN        = 113
	EXTHCDEType     = 501
	EXTHTitle       = 503
)

// EXTHRecord is one typed key/value EXTH record.
type EXTHRecord struct {
	Code uint32
	Data []byte
}

// EXTHWriter accumulates EXTH records in insertion order.
type EXTHWriter struct {
	records []EXTHRecord
}

// NewEXTHWriter returns an empty writer.
func NewEXTHWriter() *EXTHWriter {
	return &EXTHWriter{}
}

// add appends a record, normalizing the value to NFKC first — mirrors the
// source's normalize() helper, applied to every metadata string it builds
// EXTH records from.
func (w *EXTHWriter) add(code uint32, value string) {
	w.records = append(w.records, EXTHRecord{Code: code, Data: []byte(norm.NFKC.String(value))})
}

// AddCreator adds the creator/author record (100).
func (w *EXTHWriter) AddCreator(creator string) { w.add(EXTHCreator, creator) }

// AddPublisher adds the publisher record (101).
func (w *EXTHWriter) AddPublisher(publisher string) { w.add(EXTHPublisher, publisher) }

// AddDescription adds the description record (103).
func (w *EXTHWriter) AddDescription(description string) { w.add(EXTHDescription, description) }

// AddISBN adds an identifier record (104) — only meaningful when the
// source identifier's scheme is ISBN; any other scheme must not call this.
func (w *EXTHWriter) AddISBN(isbn string) { w.add(EXTHIdentifier, isbn) }

// AddSubject adds a subject record (105).
func (w *EXTHWriter) AddSubject(subject string) { w.add(EXTHSubject, subject) }

// AddPubDate adds the publication date record (106).
func (w *EXTHWriter) AddPubDate(date string) { w.add(EXTHPubDate, date) }

// AddContributor adds a contributor record (108).
func (w *EXTHWriter) AddContributor(contributor string) { w.add(EXTHContributor, contributor) }

// AddRights adds a rights/copyright record (109).
func (w *EXTHWriter) AddRights(rights string) { w.add(EXTHRights, rights) }

// AddType adds a type record (111).
func (w *EXTHWriter) AddType(typ string) { w.add(EXTHType, typ) }

// AddSource adds a source record (112).
func (w *EXTHWriter) AddSource(source string) { w.add(EXTHSource, source) }

// AddASIN adds the Amazon ASIN/UUID record (113). buildEXTH calls it only
// when Metadata.ASIN is non-empty; with no ASIN the record is omitted and no
// fallback value is substituted.
func (w *EXTHWriter) AddASIN(asin string) { w.add(EXTHASIN, asin) }

// AddCDEType adds the Kindle content-type record (501). Only ever "EBOK":
// periodicals use their own mobiType instead of this record.
func (w *EXTHWriter) AddCDEType() { w.add(EXTHCDEType, "EBOK") }

// AddTitle adds the title record (503).
func (w *EXTHWriter) AddTitle(title string) { w.add(EXTHTitle, title) }

// Len reports the number of accumulated records.
func (w *EXTHWriter) Len() int { return len(w.records) }

// totalLength returns the unpadded EXTH block length: 12-byte header plus
// 8 bytes of overhead per record plus each record's data.
func (w *EXTHWriter) totalLength() int {
	total := 12
	for _, r := range w.records {
		total += 8 + len(r.Data)
	}
	return total
}

// Bytes renders the complete EXTH block: "EXTH" || u32(total_len) ||
// u32(record_count) || records, padded with zero bytes to a multiple of 4.
func (w *EXTHWriter) Bytes() []byte {
	unpadded := w.totalLength()
	padded := unpadded
	if extra := padded % 4; extra != 0 {
		padded += 4 - extra
	}

	out := make([]byte, 0, padded)
	out = append(out, 'E', 'X', 'T', 'H')
	out = appendU32(out, uint32(unpadded))
	out = appendU32(out, uint32(len(w.records)))
	for _, r := range w.records {
		out = appendU32(out, r.Code)
		out = appendU32(out, uint32(8+len(r.Data)))
		out = append(out, r.Data...)
	}
	for len(out) < padded {
		out = append(out, 0)
	}
	return out
}

// Write writes the EXTH block and returns its padded length.
func (w *EXTHWriter) Write(output io.Writer) (int, error) {
	data := w.Bytes()
	if _, err := output.Write(data); err != nil {
		return 0, fmt.Errorf("write EXTH block: %w", err)
	}
	return len(data), nil
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}
