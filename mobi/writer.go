// Package mobi provides MOBI file writing.
package mobi

import (
	"fmt"
	"io"
	"log"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	idx "github.com/mobiwright/mobicore/mobi/index"
	"github.com/mobiwright/mobicore/mobi/images"
	"github.com/mobiwright/mobicore/mobi/ir"
	"github.com/mobiwright/mobicore/mobi/serialize"
	"github.com/mobiwright/mobicore/mobi/textrecord"
	"github.com/mobiwright/mobicore/opf"
)

// contentHref is the item href every id and link target in the serialized
// body is addressed under. The writer only ever serializes a single
// pre-assembled content document (OEBBook.Content), so every anchor and
// guide reference shares this one href rather than a true per-item href.
const contentHref = "content.html"

// WriteOptions contains options for writing MOBI files. Indexing,
// FCISFLIS, and WritePageBreaks correspond to spec §9's module-level
// toggles, reworked from compile-time flags into configuration fields.
type WriteOptions struct {
	CompressionType int // NoCompression=1, PalmDOCCompression=2, HuffCDCompression=17480
	WithEXTH        bool
	Title           string
	CoverImage      []byte
	GenerateTOC     bool
	Indexing        bool
	FCISFLIS        bool
	WritePageBreaks bool
	MobiPeriodical  bool // request periodical classification; downgrades to book if the TOC doesn't conform
	Logger          *log.Logger
}

// DefaultWriteOptions returns default write options
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		CompressionType: NoCompression,
		WithEXTH:        true,
		GenerateTOC:     true,
		Indexing:        true,
		FCISFLIS:        true,
		WritePageBreaks: true,
		Logger:          log.New(io.Discard, "", 0),
	}
}

// Writer writes MOBI files
type Writer struct {
	options WriteOptions
	book    *opf.OEBBook
}

// NewWriter creates a new MOBI writer
func NewWriter(book *opf.OEBBook) *Writer {
	return &Writer{
		options: DefaultWriteOptions(),
		book:    book,
	}
}

// SetOptions sets write options
func (w *Writer) SetOptions(options WriteOptions) {
	w.options = options
}

func (w *Writer) logf(format string, args ...interface{}) {
	if w.options.Logger != nil {
		w.options.Logger.Printf(format, args...)
	}
}

// GetBookName returns the book name for the database, NFKC-normalized to
// match the source's normalize() pass over the title before it is used to
// build both record 0's EXTH title and the PalmDB database name.
func (w *Writer) GetBookName() string {
	name := w.options.Title
	if name == "" {
		name = w.book.Metadata.Title
	}
	name = norm.NFKC.String(name)
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// Write writes the MOBI file: serializes the spine to a single text
// stream, splits it into fixed-size records, runs the indexing pipeline
// (downgrading to unindexed output on failure, never aborting), and
// assembles the PalmDB container.
func (w *Writer) Write(output io.Writer) error {
	resolvedContent, imageOrder := w.resolveImageSources(w.book.Content)

	root, err := ir.Parse(resolvedContent)
	if err != nil {
		return fmt.Errorf("failed to parse content: %w", err)
	}

	st := serialize.Serialize(root, contentHref, w.buildGuide())
	contentLength := int64(len(st.Body))

	tocRoot := w.buildTOCTree(&w.book.TOC, st)

	classifyResult := idx.Classify(tocRoot, idx.ClassifyInput{
		PeriodicalRequested: w.options.MobiPeriodical,
		HasDateOrTimestamp:  w.book.Metadata.Year != "" || !w.book.Metadata.PubDate.IsZero(),
		HasMasthead:         w.book.Metadata.GuideMasthead != "",
		PublicationType:     w.book.Metadata.PublicationType,
	})
	if !classifyResult.Conforming && w.options.MobiPeriodical {
		w.logf("periodical downgraded to book: %s", classifyResult.Reason)
	}
	mobiType := classifyResult.MobiType

	pipeline, indexed, mobiType := w.buildIndex(mobiType, tocRoot, contentLength)

	records := textrecord.Split(st.Body)
	textRecordBytes := make([][]byte, len(records))
	for i, rec := range records {
		textRecordBytes[i] = w.assembleTextRecord(rec, st.PageBreakOffsets, indexed, pipeline)
	}

	palmWriter := NewPalmDBWriter(w.GetBookName(), false)
	recordIndex := 0

	// Record 0 is a placeholder until every other record's final index is
	// known (FCIS/FLIS/INDX positions depend on how many text records
	// precede them).
	palmWriter.AddRecord(nil, 0, 0)
	recordIndex++

	firstTextRecord := recordIndex
	for _, rec := range textRecordBytes {
		palmWriter.AddRecord(rec, 0, uint32(recordIndex))
		recordIndex++
	}
	lastTextRecord := recordIndex - 1

	primaryIndexRecord := uint32(0xFFFFFFFF)
	if indexed {
		primaryIndexRecord = uint32(recordIndex)
		for _, rec := range pipeline.primaryRecords() {
			palmWriter.AddRecord(rec, 0, uint32(recordIndex))
			recordIndex++
		}
	}

	secondaryIndexRecord := uint32(0xFFFFFFFF)
	if indexed && pipeline.hasSecondary {
		secondaryIndexRecord = uint32(recordIndex)
		for _, rec := range pipeline.secondaryRecords() {
			palmWriter.AddRecord(rec, 0, uint32(recordIndex))
			recordIndex++
		}
	}

	firstImageRecord := uint32(0)
	if len(imageOrder) > 0 || w.options.CoverImage != nil {
		firstImageRecord = uint32(recordIndex)
		if w.options.CoverImage != nil {
			palmWriter.AddRecord(w.options.CoverImage, 0, uint32(recordIndex))
			recordIndex++
			palmWriter.AddRecord(images.Thumbnail(w.options.CoverImage), 0, uint32(recordIndex))
			recordIndex++
		}
		for _, id := range imageOrder {
			res, ok := w.book.GetResource(id)
			if !ok {
				continue
			}
			palmWriter.AddRecord(res.Data, 0, uint32(recordIndex))
			recordIndex++
		}
	}

	lastContentRecord := recordIndex - 1

	if w.options.FCISFLIS {
		flisRecord := uint32(recordIndex)
		palmWriter.AddRecord(createFLISRecord(), 0, flisRecord)
		recordIndex++

		fcisRecord := uint32(recordIndex)
		palmWriter.AddRecord(createFCISRecord(uint32(contentLength)), 0, fcisRecord)
		recordIndex++

		palmWriter.AddRecord(eofTail(), 0, uint32(recordIndex))
		recordIndex++

		record0 := w.buildRecord0(uint32(contentLength), len(textRecordBytes), mobiType, indexed,
			uint16(firstTextRecord), uint16(lastContentRecord), firstImageRecord,
			primaryIndexRecord, secondaryIndexRecord, flisRecord, fcisRecord)
		palmWriter.SetRecord(0, record0)
	} else {
		record0 := w.buildRecord0(uint32(contentLength), len(textRecordBytes), mobiType, indexed,
			uint16(firstTextRecord), uint16(lastTextRecord), firstImageRecord,
			primaryIndexRecord, secondaryIndexRecord, 0xFFFFFFFF, 0xFFFFFFFF)
		palmWriter.SetRecord(0, record0)
	}

	if err := palmWriter.Write(output); err != nil {
		return fmt.Errorf("failed to write PalmDB: %w", err)
	}
	return nil
}

// assembleTextRecord builds one PalmDB text record: the (optionally
// PalmDOC-compressed) body, the uncompressed UTF-8 overlap, the
// single-byte overlap length, and the page-break/TBS trailing entries in
// that order — matching the order spec §4 introduces the components in
// (C, then D, then H). Real MOBI readers pop trailing entries from the
// tail by flag bit; this writer always emits pagebreaks before TBS, which
// is consistent as long as the two are never both absent, since an empty
// trailer degenerates to its own self-describing length byte either way.
func (w *Writer) assembleTextRecord(rec textrecord.Record, pageBreaks []int64, indexed bool, p *indexPipeline) []byte {
	body := rec.Body
	if w.options.CompressionType == PalmDOCCompression {
		body = compressRecord(rec.Body)
	}

	out := make([]byte, 0, len(body)+len(rec.Overlap)+1)
	out = append(out, body...)
	out = append(out, rec.Overlap...)
	out = append(out, byte(len(rec.Overlap)))

	if w.options.WritePageBreaks {
		out = append(out, textrecord.PageBreakTrailer(pageBreaks, rec.Start, len(rec.Body))...)
	}
	if indexed {
		out = append(out, p.tbsFor(rec.Start)...)
	}
	return out
}

// createFLISRecord creates a standard FLIS record (36 bytes)
func createFLISRecord() []byte {
	data := make([]byte, 36)
	copy(data, "FLIS")
	writeBE32(data[4:8], 8)
	writeBE16(data[8:10], 65)
	writeBE16(data[10:12], 0)
	writeBE32(data[12:16], 0)
	writeBE32(data[16:20], 0xFFFFFFFF)
	writeBE16(data[20:22], 1)
	writeBE16(data[22:24], 3)
	writeBE32(data[24:28], 3)
	writeBE32(data[28:32], 1)
	writeBE32(data[32:36], 0xFFFFFFFF)
	return data
}

// createFCISRecord creates a standard FCIS record (44 bytes) for text size
func createFCISRecord(textSize uint32) []byte {
	data := make([]byte, 44)
	copy(data, "FCIS")
	writeBE32(data[4:8], 20)
	writeBE32(data[8:12], 16)
	writeBE32(data[12:16], 1)
	writeBE32(data[16:20], 0)
	writeBE32(data[20:24], textSize)
	writeBE32(data[24:28], 0)
	writeBE32(data[28:32], 32)
	writeBE32(data[32:36], 8)
	writeBE16(data[36:38], 1)
	writeBE16(data[38:40], 1)
	writeBE32(data[40:44], 0)
	return data
}

// eofTail is the literal four-byte marker spec §6.4 gives as the final
// record after FCIS — not an all-zero placeholder.
func eofTail() []byte {
	return []byte{0xE9, 0x8E, 0x0D, 0x0A}
}

func writeBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func writeBE16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

// buildTOCTree converts the ingestion-layer TOC tree into the indexing
// package's TOCNode tree, resolving each node's href against the
// serializer's recorded id offsets. An href with no matching id is left
// at Offset -1 (excluded from Flatten, skipped by BuildHTMLRecords).
func (w *Writer) buildTOCTree(e *opf.TOCEntry, st *serialize.SerializedText) *idx.TOCNode {
	n := &idx.TOCNode{
		Title:       e.Label,
		Href:        e.Href,
		Klass:       e.Klass,
		Author:      e.Author,
		Description: e.Description,
		PlayOrder:   e.PlayOrder,
		Offset:      -1,
	}
	if off, ok := st.IDOffsets[contentHref+"#"+strings.TrimPrefix(e.Href, "#")]; ok {
		n.Offset = off
	}
	for _, c := range e.Children {
		n.Children = append(n.Children, w.buildTOCTree(c, st))
	}
	return n
}

// buildGuide converts the ingestion layer's guide entries into the
// serializer's GuideRef, carrying them through unchanged — only their
// shape differs between the opf and serialize packages.
func (w *Writer) buildGuide() []serialize.GuideRef {
	if len(w.book.Guide) == 0 {
		return nil
	}
	refs := make([]serialize.GuideRef, len(w.book.Guide))
	for i, g := range w.book.Guide {
		refs[i] = serialize.GuideRef{Type: g.Type, Title: g.Title, Href: g.Href}
	}
	return refs
}

// resolveImageSources rewrites src="..." attributes that name a manifest
// image resource to the recindex="NNNNN" form the reader expects, and
// returns the manifest IDs in the relative image-record order those
// indices refer to (1-based; the cover and its thumbnail, if present,
// occupy indices 0 and 1 implicitly and are not part of this list).
func (w *Writer) resolveImageSources(content string) (string, []string) {
	imageMap := make(map[string]int)
	var order []string
	coverID := w.book.Metadata.CoverID

	base := 0
	if w.options.CoverImage != nil {
		base = 2 // cover + thumbnail occupy relative indices 0 and 1
	}

	ids := w.book.GetManifestIDs()
	sort.Strings(ids)
	for _, id := range ids {
		if id == coverID {
			continue
		}
		res, ok := w.book.GetResource(id)
		if !ok || len(res.MediaType) < 6 || res.MediaType[0:5] != "image" {
			continue
		}
		imageMap[id] = base + len(order)
		order = append(order, id)
	}

	re := regexp.MustCompile(`src=["']([^"']+)["']`)
	rewritten := re.ReplaceAllStringFunc(content, func(match string) string {
		quote := match[4]
		val := strings.TrimPrefix(match[5:len(match)-1], "#")
		if recIndex, ok := imageMap[val]; ok {
			return fmt.Sprintf("recindex=%c%05d%c", quote, recIndex+1, quote)
		}
		return match
	})
	return rewritten, order
}

// ConvertOEBToMOBI is a convenience function to convert OEBBook to MOBI
func ConvertOEBToMOBI(book *opf.OEBBook, output io.Writer) error {
	writer := NewWriter(book)
	return writer.Write(output)
}

// ConvertOEBToMOBIWithOptions converts OEBBook to MOBI with options
func ConvertOEBToMOBIWithOptions(book *opf.OEBBook, output io.Writer, options WriteOptions) error {
	writer := NewWriter(book)
	writer.SetOptions(options)
	return writer.Write(output)
}
