package index

import (
	"bytes"

	"github.com/mobiwright/mobicore/varint"
)

// GenerateFlatPeriodicalTBS produces trailing byte sequences for a
// flat-periodical (mobiType 0x102) document: a single section. Framing
// mirrors the book generator but the continuation arg is packed as
// arg3 = ((continuing_node_parent+1) + continuing_node) << 4 | flags.
func GenerateFlatPeriodicalTBS(records []*HTMLRecordData) [][]byte {
	out := make([][]byte, len(records))
	started := false

	for i, rec := range records {
		nodeCount := rec.CurrentSectionNodeCount
		if nodeCount < 0 {
			nodeCount = 0
		}
		continuingParent := rec.ContinuingNodeParent
		continuingNode := rec.ContinuingNode
		hasOpening := rec.OpeningNode != -1
		continuing := continuingNode != -1
		hasAnyNode := hasOpening || continuing

		if !hasAnyNode {
			out[i] = noNodesTBS()
			continue
		}

		var buf bytes.Buffer

		if !started {
			started = true
			buf.Write(varint.EncodeForward(6))
			buf.Write(varint.EncodeForward(0))
			buf.WriteByte(byte(nodeCount + 2))
			out[i] = sealWithLength(&buf)
			continue
		}

		var parentTerm, nodeTerm int64
		if continuingParent >= 0 {
			parentTerm = int64(continuingParent) + 1
		}
		if continuing {
			nodeTerm = int64(continuingNode)
		}
		base := (parentTerm + nodeTerm) << 4

		switch {
		case continuing && !hasOpening:
			arg3 := uint32(base | 0x1)
			buf.Write(varint.EncodeForward(6))
			buf.Write(varint.EncodeForward(0))
			buf.Write(varint.EncodeForward(arg3))
		case nodeCount > 1:
			arg3 := uint32(base | 0x4)
			buf.Write(varint.EncodeForward(7))
			buf.Write(varint.EncodeForward(0))
			buf.Write(varint.EncodeForward(0))
			buf.Write(varint.EncodeForward(arg3))
			buf.WriteByte(byte(nodeCount))
		default:
			arg3 := uint32(base)
			buf.Write(varint.EncodeForward(6))
			buf.Write(varint.EncodeForward(0))
			buf.Write(varint.EncodeForward(arg3))
		}
		out[i] = sealWithLength(&buf)
	}

	return out
}
