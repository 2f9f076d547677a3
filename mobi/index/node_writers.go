package index

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mobiwright/mobicore/varint"
)

// nodeName renders the INDXT sequence counter as a 4-digit uppercase hex
// string — the source's `"%04X" % count`.
func nodeName(count int) string {
	return fmt.Sprintf("%04X", count)
}

// recordIndexPosition appends the 16-bit big-endian IDXT offset of the
// entry about to be written (0xC0 is the fixed start of INDX1's body).
func recordIndexPosition(indices, indxt *bytes.Buffer) {
	var pos [2]byte
	binary.BigEndian.PutUint16(pos[:], uint16(0xC0+indxt.Len()))
	indices.Write(pos[:])
}

func writeNodeHeader(indxt *bytes.Buffer, count int, tag byte) {
	name := nodeName(count)
	indxt.WriteByte(byte(len(name)))
	indxt.WriteString(name)
	indxt.WriteByte(tag)
}

// writeChapterNode emits a book-mode chapter INDXT entry (tag 0x0F).
func writeChapterNode(indxt, indices *bytes.Buffer, count int, offset, length, titleOffset uint32) {
	recordIndexPosition(indices, indxt)
	writeNodeHeader(indxt, count, 0x0F)
	indxt.Write(varint.EncodeForward(offset))
	indxt.Write(varint.EncodeForward(length))
	indxt.Write(varint.EncodeForward(titleOffset))
	indxt.Write(varint.EncodeForward(0))
}

// writePeriodicalNode emits the single periodical INDXT entry (tag 0xDF).
func writePeriodicalNode(indxt, indices *bytes.Buffer, count int, offset, length, titleOffset, classOffset, firstSection, lastSection uint32) {
	recordIndexPosition(indices, indxt)
	writeNodeHeader(indxt, count, 0xDF)
	indxt.WriteByte(0x01)
	indxt.Write(varint.EncodeForward(offset))
	indxt.Write(varint.EncodeForward(length))
	indxt.Write(varint.EncodeForward(titleOffset))
	indxt.Write(varint.EncodeForward(0))
	indxt.Write(varint.EncodeForward(classOffset))
	indxt.Write(varint.EncodeForward(firstSection))
	indxt.Write(varint.EncodeForward(lastSection))
	indxt.Write(varint.EncodeForward(0))
}

// writeSectionNode emits a periodical section INDXT entry (tag 0xFF).
func writeSectionNode(indxt, indices *bytes.Buffer, count int, offset, length, titleOffset, classOffset, parentIndex, firstArticle, lastArticle uint32) {
	recordIndexPosition(indices, indxt)
	writeNodeHeader(indxt, count, 0xFF)
	indxt.WriteByte(0x00)
	indxt.Write(varint.EncodeForward(offset))
	indxt.Write(varint.EncodeForward(length))
	indxt.Write(varint.EncodeForward(titleOffset))
	indxt.Write(varint.EncodeForward(1))
	indxt.Write(varint.EncodeForward(classOffset))
	indxt.Write(varint.EncodeForward(parentIndex))
	indxt.Write(varint.EncodeForward(firstArticle))
	indxt.Write(varint.EncodeForward(lastArticle))
}

// writeArticleNode emits a periodical article INDXT entry (tag 0x3F).
// descOffset/authorOffset are nil when the article has no description or
// author.
func writeArticleNode(indxt, indices *bytes.Buffer, count int, offset, length, titleOffset, classOffset, parentIndex uint32, descOffset, authorOffset *uint32) {
	recordIndexPosition(indices, indxt)
	writeNodeHeader(indxt, count, 0x3F)

	var flags byte
	if authorOffset != nil {
		flags |= 4
	}
	if descOffset != nil {
		flags |= 2
	}
	indxt.WriteByte(flags)

	indxt.Write(varint.EncodeForward(offset))
	indxt.Write(varint.EncodeForward(length))
	indxt.Write(varint.EncodeForward(titleOffset))
	indxt.Write(varint.EncodeForward(2))
	indxt.Write(varint.EncodeForward(classOffset))
	indxt.Write(varint.EncodeForward(parentIndex))
	if descOffset != nil {
		indxt.Write(varint.EncodeForward(*descOffset))
	}
	if authorOffset != nil {
		indxt.Write(varint.EncodeForward(*authorOffset))
	}
}
