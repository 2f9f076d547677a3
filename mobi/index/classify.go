package index

// ClassifyInput carries the facts the classifier needs besides the TOC
// tree itself, kept deliberately narrow so this package never imports the
// OEB/OPF ingestion types.
type ClassifyInput struct {
	PeriodicalRequested bool
	HasDateOrTimestamp  bool
	HasMasthead         bool
	PublicationType     string // "newspaper" selects 0x101, anything else 0x103
}

// ClassifyResult is the outcome of running the classifier. A non-conforming
// periodical request downgrades to a book rather than failing.
type ClassifyResult struct {
	MobiType   MobiType
	Conforming bool // true only for the structured-periodical path
	Reason     string
}

// Classify decides book vs. periodical shape. Flat periodical (0x102) is
// not chosen here: it is the same conforming/structured shape, just with
// exactly one section, and the caller re-selects 0x102 once the section
// count is known.
func Classify(root *TOCNode, in ClassifyInput) ClassifyResult {
	if !in.PeriodicalRequested {
		return ClassifyResult{MobiType: MobiTypeBook, Reason: "periodical mode not requested"}
	}

	if !hasConformingShape(root) {
		return ClassifyResult{MobiType: MobiTypeBook, Reason: "TOC does not have periodical/section/article at depth 3/2/1"}
	}
	if !in.HasDateOrTimestamp {
		return ClassifyResult{MobiType: MobiTypeBook, Reason: "periodical metadata missing date/timestamp"}
	}
	if !in.HasMasthead {
		return ClassifyResult{MobiType: MobiTypeBook, Reason: "guide has no masthead reference"}
	}

	mobiType := MobiTypeMagazine
	if in.PublicationType == "newspaper" {
		mobiType = MobiTypeNewspaper
	}
	return ClassifyResult{MobiType: mobiType, Conforming: true, Reason: "conforming structured periodical"}
}

// hasConformingShape checks that the TOC has at least one node of each
// klass at the expected depth: periodical at 3, section at 2, article at 1.
func hasConformingShape(root *TOCNode) bool {
	var sawPeriodical, sawSection, sawArticle bool
	root.Walk(func(n *TOCNode) {
		switch n.Klass {
		case "periodical":
			if n.Depth() == 3 {
				sawPeriodical = true
			}
		case "section":
			if n.Depth() == 2 {
				sawSection = true
			}
		case "article":
			if n.Depth() == 1 {
				sawArticle = true
			}
		}
	})
	return sawPeriodical && sawSection && sawArticle
}
