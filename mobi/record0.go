package mobi

import (
	"bytes"
	"encoding/binary"
)

const (
	MOBIHeaderSize     = 0xE8
	MOBIVersion        = 6
	NoCompression      = 1
	PalmDOCCompression = 2
	HuffCDCompression  = 17480
	UTF8Encoding       = 65001
	Latin1Encoding     = 1252

	record0PadTarget = 8192
)

// Record0Params carries every value the fixed-offset MOBI header needs.
// Fields that have no real value yet (no cover, no periodical, no
// secondary index) are expressed as their documented absent-sentinel
// default by the caller, not by this writer.
type Record0Params struct {
	Compression      uint16
	TextLength       uint32
	TextRecordCount  uint16
	MobiType         uint32
	Encoding         uint32
	UniqueID         uint32
	Language         uint32
	SecondaryIndex   uint32 // 0xFFFFFFFF if absent
	FirstImageRecord uint32 // 0 if no image records were placed
	ExthFlags        uint32
	FirstContentRec  uint16
	LastContentRec   uint16
	FCISRecord       uint32
	FLISRecord       uint32
	TrailingIndexable  bool
	TrailingPageBreaks bool
	PrimaryIndexRecord uint32 // 0xFFFFFFFF if unindexed
	Title              string
	EXTH               []byte
}

// BuildRecord0 assembles the complete record 0 payload: PalmDOC header,
// "MOBI" marker, the 0xE8-byte MOBI header at spec-fixed offsets, the EXTH
// block, the title, and zero padding out to at least record0PadTarget
// bytes past the header+EXTH+title boundary.
func BuildRecord0(p Record0Params) []byte {
	var buf bytes.Buffer
	buf.Grow(MOBIHeaderSize + len(p.EXTH) + len(p.Title) + record0PadTarget)

	// 0x00..0x0F PalmDOC header.
	writeU16(&buf, p.Compression)
	writeU16(&buf, 0)
	writeU32(&buf, p.TextLength)
	writeU16(&buf, p.TextRecordCount-1)
	writeU16(&buf, 0x1000)
	writeU32(&buf, 0)

	// 0x10..0x13
	buf.WriteString("MOBI")
	// 0x14..0x17
	writeU32(&buf, MOBIHeaderSize)
	// 0x18..0x1B
	writeU32(&buf, p.MobiType)
	// 0x1C..0x1F
	writeU32(&buf, p.Encoding)
	// 0x20..0x23
	writeU32(&buf, p.UniqueID)
	// 0x24..0x27
	writeU32(&buf, MOBIVersion)
	// 0x28..0x2F
	writeBytes(&buf, 0xFF, 8)
	// 0x30..0x33
	writeU32(&buf, p.SecondaryIndex)
	// 0x34..0x4F
	writeBytes(&buf, 0xFF, 28)
	// 0x50..0x53
	writeU32(&buf, uint32(p.TextRecordCount)+1)

	titleOffset := uint32(MOBIHeaderSize) + 16 + uint32(len(p.EXTH))
	// 0x54..0x5B
	writeU32(&buf, titleOffset)
	writeU32(&buf, uint32(len(p.Title)))
	// 0x5C..0x5F
	writeU32(&buf, p.Language)
	// 0x60..0x67
	writeZero(&buf, 8)
	// 0x68..0x6F
	writeU32(&buf, MOBIVersion)
	writeU32(&buf, p.FirstImageRecord)
	// 0x70..0x7F
	writeZero(&buf, 16)
	// 0x80..0x83
	writeU32(&buf, p.ExthFlags)
	// 0x84..0xA3
	writeZero(&buf, 32)
	// 0xA4..0xB3
	writeU32(&buf, 0xFFFFFFFF)
	writeU32(&buf, 0xFFFFFFFF)
	writeU32(&buf, 0)
	writeU32(&buf, 0)
	// 0xB4..0xBF
	writeZero(&buf, 12)
	// 0xC0..0xC3
	writeU16(&buf, p.FirstContentRec)
	writeU16(&buf, p.LastContentRec)
	// 0xC4..0xC7
	writeU32(&buf, 1)
	// 0xC8..0xD7
	writeU32(&buf, p.FCISRecord)
	writeU32(&buf, 1)
	writeU32(&buf, p.FLISRecord)
	writeU32(&buf, 1)
	// 0xD8..0xDF
	writeZero(&buf, 8)
	// 0xE0..0xEF
	writeU32(&buf, 0xFFFFFFFF)
	writeU32(&buf, 0)
	writeU32(&buf, 0xFFFFFFFF)
	writeU32(&buf, 0xFFFFFFFF)

	// 0xF0..0xF3
	flags := uint32(1)
	if p.TrailingIndexable {
		flags |= 2
	}
	if p.TrailingPageBreaks {
		flags |= 4
	}
	writeU32(&buf, flags)
	// 0xF4..0xF7
	writeU32(&buf, p.PrimaryIndexRecord)

	// 0xF8.. EXTH || title || zero-pad
	buf.Write(p.EXTH)
	buf.WriteString(p.Title)

	minLen := MOBIHeaderSize + 16 + len(p.EXTH) + len(p.Title) + record0PadTarget
	for buf.Len() < minLen {
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, value byte, n int) {
	for i := 0; i < n; i++ {
		buf.WriteByte(value)
	}
}

func writeZero(buf *bytes.Buffer, n int) {
	writeBytes(buf, 0, n)
}
