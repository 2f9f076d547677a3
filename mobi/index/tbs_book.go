package index

import (
	"bytes"

	"github.com/mobiwright/mobicore/varint"
)

// GenerateBookTBS produces one trailing byte sequence per text record for a
// book-mode (mobiType 0x002) document: before the first indexed record, a
// bare backward_vwi(1); the first record carrying nodes uses Type 2
// (singleton) or Type 6 (multi); every later record uses Type 2 (singleton
// close), Type 3 (span-only, no opening node), or Type 6 (multi), each
// carrying the continuation flag in its low-order bits.
func GenerateBookTBS(records []*HTMLRecordData) [][]byte {
	out := make([][]byte, len(records))
	started := false

	for i, rec := range records {
		nodeCount := rec.CurrentSectionNodeCount
		if nodeCount < 0 {
			nodeCount = 0
		}
		continuing := 0
		if rec.ContinuingNode != -1 {
			continuing = 1
		}
		hasOpening := rec.OpeningNode != -1
		hasAnyNode := hasOpening || continuing == 1

		if !hasAnyNode {
			out[i] = noNodesTBS()
			continue
		}

		var buf bytes.Buffer
		switch {
		case !started:
			started = true
			if nodeCount <= 1 {
				buf.Write(varint.EncodeForward(2))
				buf.Write(varint.EncodeForward(0))
			} else {
				buf.Write(varint.EncodeForward(6))
				buf.Write(varint.EncodeForward(0))
				buf.WriteByte(byte(nodeCount))
			}
		case continuing == 1 && !hasOpening:
			buf.Write(varint.EncodeForward(uint32(continuing<<3 | 3)))
			buf.Write(varint.EncodeForward(0))
			buf.WriteByte(0x80)
		case nodeCount <= 1:
			buf.Write(varint.EncodeForward(uint32(continuing<<3 | 2)))
			buf.Write(varint.EncodeForward(0))
		default:
			buf.Write(varint.EncodeForward(uint32(continuing<<3 | 6)))
			buf.Write(varint.EncodeForward(0))
			buf.WriteByte(byte(nodeCount))
		}

		out[i] = sealWithLength(&buf)
	}

	return out
}
