// Package textrecord splits a document's serialized body into fixed-size
// PalmDOC text records and builds the page-break trailing-entry side
// channel that rides alongside each record.
package textrecord

import "unicode/utf8"

// RecordSize is the fixed uncompressed size of a PalmDOC text record.
const RecordSize = 4096

// Record is one fixed-size chunk of the serialized body, split out from
// its UTF-8 continuation overlap so a caller can compress Body alone —
// PalmDOC compression never runs over the overlap bytes or the trailing
// side-channel entries that follow them.
type Record struct {
	// Start is Body's offset in the original uncompressed document body.
	Start int64
	Body  []byte
	// Overlap holds the 0-3 bytes duplicated from the start of the next
	// record to avoid splitting a multi-byte UTF-8 rune across records.
	Overlap []byte
}

// Split divides data into RecordSize-byte records. When a record boundary
// falls inside a multi-byte UTF-8 rune, the bytes that complete that rune
// are carried in the record's Overlap — duplicated, not removed from the
// next record — so a reader can decode the record in isolation.
func Split(data []byte) []Record {
	if len(data) == 0 {
		return nil
	}
	var records []Record
	for start := 0; start < len(data); start += RecordSize {
		end := start + RecordSize
		if end > len(data) {
			end = len(data)
		}
		records = append(records, Record{
			Start:   int64(start),
			Body:    data[start:end],
			Overlap: overlapBytes(data, end),
		})
	}
	return records
}

// overlapBytes returns the trailing continuation bytes of the multi-byte
// rune that data[end] lands inside of, if any — 0 to 3 bytes copied from
// the following record so decoding never has to look across the
// boundary. Returns nil when end sits on a rune boundary or at EOF.
func overlapBytes(data []byte, end int) []byte {
	if end >= len(data) || data[end] < 0x80 || utf8.RuneStart(data[end]) {
		return nil
	}

	start := end
	for start > 0 && !utf8.RuneStart(data[start-1]) {
		start--
	}
	if start == 0 {
		return nil
	}
	start--

	r, size := utf8.DecodeRune(data[start:])
	if r == utf8.RuneError || start+size <= end {
		return nil
	}
	return data[end : start+size]
}
