package index

import (
	"bytes"

	"github.com/mobiwright/mobicore/varint"
)

// GenerateStructuredPeriodicalTBS produces trailing byte sequences for a
// structured periodical (mobiType 0x101/0x103). Records where
// NextSectionNumber is set emit a Type 3 section-transition sequence,
// carrying the parent/article deltas needed to locate the next section's
// opening node (arg5's exact contribution is not fully characterized — see
// DESIGN.md). After the first transition, later non-transition records
// switch from Type 6 framing to Type 2, tracked by firstSectionConcluded.
func GenerateStructuredPeriodicalTBS(records []*HTMLRecordData, sectionCount int) [][]byte {
	out := make([][]byte, len(records))
	started := false
	firstSectionConcluded := false

	for i, rec := range records {
		nodeCount := rec.CurrentSectionNodeCount
		if nodeCount < 0 {
			nodeCount = 0
		}
		continuingParent := rec.ContinuingNodeParent
		continuingNode := rec.ContinuingNode
		hasOpening := rec.OpeningNode != -1
		continuing := continuingNode != -1
		isTransition := rec.NextSectionNumber != -1
		hasAnyNode := hasOpening || continuing || isTransition

		if !hasAnyNode {
			out[i] = noNodesTBS()
			continue
		}

		var buf bytes.Buffer

		if isTransition {
			started = true

			var parentTerm int64
			if continuingParent >= 0 {
				parentTerm = int64(continuingParent) + 1
			}
			sectionDelta := int64(sectionCount) - int64(continuingParent) - 1
			articleOffset := int64(continuingNode) + 1

			arg4Flags := int64(0)
			if rec.CurrentSectionNodeCount > 1 {
				arg4Flags = 4
			}
			arg6Flags := int64(0)
			if rec.NextSectionNodeCount > 1 {
				arg6Flags = 4
			}

			buf.Write(varint.EncodeForward(3))
			buf.Write(varint.EncodeForward(0))
			buf.Write(varint.EncodeForward(0))

			arg3 := uint32(parentTerm << 4)
			buf.Write(varint.EncodeForward(arg3))

			arg4 := uint32((sectionDelta+articleOffset)<<4 | arg4Flags)
			buf.Write(varint.EncodeForward(arg4))
			if arg4Flags == 4 {
				buf.WriteByte(byte(nodeCount))
			}

			adjust := int64(0)
			if nodeCount < 2 {
				adjust = 1
			}
			arg5 := uint32((sectionDelta+articleOffset-adjust)<<4 | 8)
			buf.Write(varint.EncodeForward(arg5))

			arg6 := uint32((sectionDelta+int64(rec.NextSectionOpeningNode))<<4 | arg6Flags)
			buf.Write(varint.EncodeForward(arg6))
			if arg6Flags == 4 {
				buf.WriteByte(byte(rec.NextSectionNodeCount))
			}

			firstSectionConcluded = true
			out[i] = sealWithLength(&buf)
			continue
		}

		switch {
		case !started:
			started = true
			buf.Write(varint.EncodeForward(6))
			buf.Write(varint.EncodeForward(0))
			buf.WriteByte(byte(nodeCount + 2))
		case firstSectionConcluded:
			flag := int64(0)
			if nodeCount > 0 {
				flag = 1
			}
			var parentTerm int64
			if continuingParent >= 0 {
				parentTerm = int64(continuingParent) + 1
			}
			arg2 := uint32(parentTerm<<4 | flag)
			buf.Write(varint.EncodeForward(2))
			buf.Write(varint.EncodeForward(arg2))
		default:
			buf.Write(varint.EncodeForward(6))
			buf.Write(varint.EncodeForward(0))
			buf.WriteByte(byte(nodeCount))
		}
		out[i] = sealWithLength(&buf)
	}

	return out
}
