package mobi

import (
	idx "github.com/mobiwright/mobicore/mobi/index"
)

// indexPipeline carries every byproduct of a successful indexing run: the
// CTOC records, the primary (and, for periodicals, secondary) INDX
// records, and the per-text-record TBS blobs keyed by record start offset.
type indexPipeline struct {
	tbsList      [][]byte
	ctocRecords  [][]byte
	primaryIndx0 idx.IndexRecord
	primaryIndx1 idx.IndexRecord

	hasSecondary   bool
	secondaryIndx0 idx.IndexRecord
	secondaryIndx1 idx.IndexRecord
}

func (p *indexPipeline) primaryRecords() [][]byte {
	out := [][]byte{p.primaryIndx0.Body, p.primaryIndx1.Body}
	return append(out, p.ctocRecords...)
}

func (p *indexPipeline) secondaryRecords() [][]byte {
	return [][]byte{p.secondaryIndx0.Body, p.secondaryIndx1.Body}
}

// tbsFor returns the trailing byte sequence for the text record starting
// at the given body offset. BuildHTMLRecords always allocates more slots
// than the splitter ever produces records, so a miss here means the
// record falls past the last content recorded — degrade to nothing
// rather than panic.
func (p *indexPipeline) tbsFor(start int64) []byte {
	i := int(start / textRecordSize)
	if i < 0 || i >= len(p.tbsList) {
		return nil
	}
	return p.tbsList[i]
}

const textRecordSize = 0x1000

// buildIndex runs the classification-dependent indexing pipeline: book
// mode flattens the TOC to chapters, periodical mode walks the full
// periodical/section/article tree. Any continuity failure or empty
// resolvable TOC downgrades to unindexed output (spec §7) rather than
// aborting the write. Returns the final mobiType, which for periodicals
// may be refined from the classifier's choice to the flat-periodical
// value once the real section count is known.
func (w *Writer) buildIndex(mobiType idx.MobiType, tocRoot *idx.TOCNode, contentLength int64) (*indexPipeline, bool, idx.MobiType) {
	if !w.options.Indexing {
		return nil, false, mobiType
	}

	p := &indexPipeline{}

	if mobiType == idx.MobiTypeBook {
		chapters := idx.Flatten(tocRoot)
		if len(chapters) == 0 {
			w.logf("indexing disabled: no TOC entry resolved to a known offset")
			return nil, false, mobiType
		}
		idx.ResolveLengths(chapters, contentLength)
		htmlRecords, err := idx.BuildHTMLRecords(chapters, contentLength)
		if err != nil {
			w.logf("indexing disabled: %v", err)
			return nil, false, mobiType
		}

		ctoc := idx.NewCTOCBuilder()
		ctocEntries := make([]idx.CtocEntry, len(chapters))
		for i, c := range chapters {
			ctocEntries[i] = ctoc.AddFlatNode(c.Title)
		}
		p.ctocRecords = ctoc.Finish()

		doc := &idx.Document{MobiType: mobiType}
		book := &idx.Book{}
		for i, c := range chapters {
			book.AddChapter(&idx.Chapter{
				MyIndex:        doc.NextNode(),
				MyCtocMapIndex: i,
				StartAddress:   uint32(c.Offset),
				Length:         uint32(c.Length),
			})
		}
		p.primaryIndx0, p.primaryIndx1 = idx.BuildBookIndex(book.Chapters, ctocEntries)
		p.tbsList = idx.GenerateBookTBS(htmlRecords)
		return p, true, mobiType
	}

	flattened := tocRoot.Flattened()
	if len(flattened) == 0 || flattened[0].Klass != "periodical" {
		w.logf("indexing disabled: periodical TOC missing a root periodical node")
		return nil, false, mobiType
	}
	idx.ResolveLengths(flattened, contentLength)
	htmlRecords, err := idx.BuildHTMLRecords(flattened, contentLength)
	if err != nil {
		w.logf("indexing disabled: %v", err)
		return nil, false, mobiType
	}

	ctoc := idx.NewCTOCBuilder()
	doc := &idx.Document{MobiType: mobiType}
	periodical := &idx.Periodical{MyIndex: doc.NextNode(), MyCtocMapIndex: 0}

	ctocEntries := []idx.CtocEntry{ctoc.AddStructuredNode(flattened[0])}

	var currentSection *idx.Section
	for _, n := range flattened[1:] {
		switch n.Klass {
		case "section":
			ctocEntries = append(ctocEntries, ctoc.AddStructuredNode(n))
			currentSection = periodical.AddSectionParent(doc, len(ctocEntries)-1)
		case "article":
			if currentSection == nil {
				continue
			}
			ctocEntries = append(ctocEntries, ctoc.AddStructuredNode(n))
			article := idx.NewArticle(currentSection, uint32(n.Offset), uint32(n.Length), len(ctocEntries)-1)
			article.Author = n.Author
			article.Description = n.Description
			currentSection.AddArticle(periodical, article)
		}
	}

	finalType := mobiType
	if periodical.SectionCount() == 1 {
		finalType = idx.MobiTypeFlatPeriodical
	}

	if w.book.Metadata.GuideMasthead != "" {
		p.hasSecondary = true
		description := w.book.Metadata.Annotation
		if description == "" {
			description = w.book.Metadata.Description
		}
		p.secondaryIndx0, p.secondaryIndx1 = idx.BuildSecondaryIndex(ctoc, w.joinedAuthors(), description, w.book.Metadata.GuideMasthead)
	}
	p.ctocRecords = ctoc.Finish()

	p.primaryIndx0, p.primaryIndx1 = idx.BuildPeriodicalIndex(finalType, periodical, ctocEntries)
	if finalType == idx.MobiTypeFlatPeriodical {
		p.tbsList = idx.GenerateFlatPeriodicalTBS(htmlRecords)
	} else {
		p.tbsList = idx.GenerateStructuredPeriodicalTBS(htmlRecords, periodical.SectionCount())
	}
	return p, true, finalType
}
