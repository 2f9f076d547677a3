package textrecord

import "github.com/mobiwright/mobicore/varint"

// PageBreakTrailer builds the page-break trailing entry for one text
// record: for every page break whose global body offset falls inside
// [recordStart, recordStart+recordLen), a forward VWI of
// (pb-running)>>3, with running advancing by the decoded value<<3 after
// each entry (not by the raw offset) — page breaks are stored at 8-byte
// granularity. The entry always ends with a self-describing backward VWI
// giving its own byte length, even when the record carries no page
// break, so the trailer is never silently absent from the record.
func PageBreakTrailer(pageBreaks []int64, recordStart int64, recordLen int) []byte {
	var body []byte
	running := recordStart
	recordEnd := recordStart + int64(recordLen)

	for _, pb := range pageBreaks {
		if pb < recordStart || pb >= recordEnd {
			continue
		}
		value := uint32(pb-running) >> 3
		body = append(body, varint.EncodeForward(value)...)
		running += int64(value) << 3
	}
	return append(body, varint.SelfDescribingLength(len(body))...)
}
