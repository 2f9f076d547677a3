package index

// TAGX tag-dictionary tables, embedded byte-for-byte: readers match these
// fixed tag/bitmask/width triples to parse INDXT entries. subchapter and
// secondaryBook are kept as literal constants for completeness but are
// never selected by the active dispatch (see DESIGN.md).
var (
	tagxChapter = []byte{
		0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0x01, 0x00,
		0x02, 0x01, 0x02, 0x00, 0x03, 0x01, 0x04, 0x00,
		0x04, 0x01, 0x08, 0x00, 0x00, 0x00, 0x00, 0x01,
	}

	tagxSubchapter = []byte{
		0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0x01, 0x00,
		0x02, 0x01, 0x02, 0x00, 0x03, 0x01, 0x04, 0x00,
		0x04, 0x01, 0x08, 0x00, 0x05, 0x01, 0x10, 0x00,
		0x15, 0x01, 0x10, 0x00, 0x16, 0x01, 0x20, 0x00,
		0x17, 0x01, 0x40, 0x00, 0x00, 0x00, 0x00, 0x01,
	}

	tagxPeriodical = []byte{
		0x00, 0x00, 0x00, 0x02, 0x01, 0x01, 0x01, 0x00,
		0x02, 0x01, 0x02, 0x00, 0x03, 0x01, 0x04, 0x00,
		0x04, 0x01, 0x08, 0x00, 0x05, 0x01, 0x10, 0x00,
		0x15, 0x01, 0x20, 0x00, 0x16, 0x01, 0x40, 0x00,
		0x17, 0x01, 0x80, 0x00, 0x00, 0x00, 0x00, 0x01,
		0x45, 0x01, 0x01, 0x00, 0x46, 0x01, 0x02, 0x00,
		0x47, 0x01, 0x04, 0x00, 0x00, 0x00, 0x00, 0x01,
	}

	tagxSecondaryBook = []byte{
		0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0x01, 0x00,
		0x00, 0x00, 0x00, 0x01,
	}

	tagxSecondaryPeriodical = []byte{
		0x00, 0x00, 0x00, 0x01, 0x01, 0x01, 0x01, 0x00,
		0x0b, 0x03, 0x02, 0x00, 0x00, 0x00, 0x00, 0x01,
	}
)

// tagxFor returns the literal TAGX bytes for a primary INDX0, keyed by
// document type.
func tagxFor(mobiType MobiType) []byte {
	if mobiType.IsPeriodical() {
		return tagxPeriodical
	}
	return tagxChapter
}

var _ = tagxSubchapter
var _ = tagxSecondaryBook
