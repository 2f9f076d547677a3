package index

import (
	"bytes"

	"github.com/mobiwright/mobicore/varint"
)

// BuildSecondaryIndex emits the secondary INDX0/INDX1 pair periodicals
// carry alongside the primary index: three fixed entries keyed "author",
// "description", and "mastheadImage", each pointing at the corresponding
// string stored in cncx.
func BuildSecondaryIndex(cncx *CTOCBuilder, author, description, mastheadImage string) (IndexRecord, IndexRecord) {
	keys := []string{"author", "description", "mastheadImage"}
	values := []string{author, description, mastheadImage}

	var indxt, indices bytes.Buffer
	for i, key := range keys {
		valueOffset := cncx.addString(values[i])
		writeSecondaryNode(&indxt, &indices, i, key, valueOffset)
	}

	header := writeIndxHeader(0, 0, 0, 65001, 0xFFFFFFFF, uint32(len(keys)), 0)
	indx0 := IndexRecord{Body: append(header, tagxSecondaryPeriodical...)}
	indx1 := BuildINDX1(len(keys), 0, &indxt, &indices)
	return indx0, indx1
}

// writeSecondaryNode emits one secondary-index entry: the literal key
// string as the node name, a 0x00 control byte (no tagxSecondaryPeriodical
// tag flagged), followed by the forward-VWI offset of the corresponding
// CNCX string.
func writeSecondaryNode(indxt, indices *bytes.Buffer, count int, key string, valueOffset uint32) {
	recordIndexPosition(indices, indxt)
	indxt.WriteByte(byte(len(key)))
	indxt.WriteString(key)
	indxt.WriteByte(0x00)
	indxt.Write(varint.EncodeForward(valueOffset))
}
