package index

import "fmt"

const recordSize = 0x1000

// ContinuityError reports a gap or overlap between two consecutive
// article/chapter nodes detected while building the per-record indexing map.
type ContinuityError struct {
	NodeHref string
	Got      int64
	Want     int64
}

func (e *ContinuityError) Error() string {
	return fmt.Sprintf("TOC discontinuity at %q: offset %d, expected %d", e.NodeHref, e.Got, e.Want)
}

// BuildHTMLRecords computes the per-text-record indexing map: which TOC
// nodes open, continue, or close inside each fixed-size text record. nodes
// must be in TOC emission order (book: flattened chapters; periodical: full
// depth-first walk including periodical/section/article nodes).
// contentLength is the total serialized text length in bytes.
//
// Returns (nil, err) if a chapter/article-level continuity violation is
// found — the caller downgrades to unindexed output rather than treating
// this as fatal.
func BuildHTMLRecords(nodes []*TOCNode, contentLength int64) ([]*HTMLRecordData, error) {
	numRecords := int(contentLength/recordSize) + 2
	records := make([]*HTMLRecordData, numRecords)
	for i := range records {
		records[i] = NewHTMLRecordData()
	}

	nodeIndex := 0
	currentSectionIndex := -1
	var prevOffset, prevLength int64 = -1, -1
	havePrevLeaf := false

	for i, n := range nodes {
		if n.Klass != "article" && n.Klass != "chapter" && n.Klass != "section" {
			continue
		}

		offset := n.Offset
		var length int64
		if i+1 < len(nodes) {
			length = nextOffset(nodes, i) - offset
		} else {
			length = contentLength - offset
		}
		if length < 0 {
			length = contentLength - offset
		}

		if n.Klass == "section" {
			currentSectionIndex++
			startRecord := int(offset / recordSize)
			if startRecord < len(records) {
				records[startRecord].NextSectionNumber = currentSectionIndex
				records[startRecord].NextSectionOpeningNode = nodeIndex
			}
			continue
		}

		// article/chapter: continuity is checked only against the
		// previous article/chapter, never against section nodes.
		if havePrevLeaf && offset != prevOffset+prevLength {
			return nil, &ContinuityError{NodeHref: n.Href, Got: offset, Want: prevOffset + prevLength}
		}
		prevOffset, prevLength = offset, length
		havePrevLeaf = true

		startRecord := int(offset / recordSize)
		endRecord := int((offset + length) / recordSize)

		if startRecord < len(records) {
			rec := records[startRecord]
			if rec.OpeningNode == -1 {
				rec.OpeningNode = nodeIndex
				rec.OpeningNodeParent = currentSectionIndex
			}
			if rec.NextSectionNumber != -1 {
				if rec.NextSectionNodeCount < 0 {
					rec.NextSectionNodeCount = 1
				} else {
					rec.NextSectionNodeCount++
				}
			} else if rec.CurrentSectionNodeCount < 0 {
				rec.CurrentSectionNodeCount = 1
			} else {
				rec.CurrentSectionNodeCount++
			}
		}

		for r := startRecord + 1; r <= endRecord && r < len(records); r++ {
			records[r].ContinuingNode = nodeIndex
			records[r].ContinuingNodeParent = currentSectionIndex
			records[r].CurrentSectionNodeCount = 1
		}

		nodeIndex++
	}

	return records, nil
}

// ResolveLengths fills in Length for every article/chapter node from the
// offset of the following article/chapter, or from contentLength for the
// last one. Must run before BuildHTMLRecords and before a CTOCBuilder
// consumes these nodes, since both read Length.
func ResolveLengths(nodes []*TOCNode, contentLength int64) {
	for i, n := range nodes {
		if n.Klass != "article" && n.Klass != "chapter" {
			continue
		}
		end := nextOffset(nodes, i)
		if end < 0 {
			end = contentLength
		}
		n.Length = end - n.Offset
	}
}

// nextOffset finds the offset of the next article or chapter node
// after index i, falling back to -1 (caller treats as "use remaining
// length") if none exists.
func nextOffset(nodes []*TOCNode, i int) int64 {
	for j := i + 1; j < len(nodes); j++ {
		if nodes[j].Klass == "article" || nodes[j].Klass == "chapter" {
			return nodes[j].Offset
		}
	}
	return -1
}
