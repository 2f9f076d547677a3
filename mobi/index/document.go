// Package index implements the MOBI indexing pipeline: TOC classification,
// the CTOC (CNCX) string table, per-record HTMLRecordData, the trailing byte
// sequence (TBS) generators, and the primary/secondary INDX emitters.
package index

// MobiType identifies the classified shape of a document's table of
// contents, matching the literal mobiType values written into record 0.
type MobiType uint32

const (
	MobiTypeBook                 MobiType = 0x002
	MobiTypeNewspaper            MobiType = 0x101
	MobiTypeFlatPeriodical       MobiType = 0x102
	MobiTypeMagazine             MobiType = 0x103
)

// IsPeriodical reports whether the mobiType denotes any periodical flavor.
func (t MobiType) IsPeriodical() bool {
	return t == MobiTypeNewspaper || t == MobiTypeFlatPeriodical || t == MobiTypeMagazine
}

// Document owns the monotone node-index counter shared by chapters,
// sections, and articles.
type Document struct {
	MobiType  MobiType
	Structure DocumentStructure
	nextNode  int
}

// NextNode allocates and returns the next node index, starting at 0.
func (d *Document) NextNode() int {
	n := d.nextNode
	d.nextNode++
	return n
}

// DocumentStructure is a tagged union: exactly one concrete implementation
// (Book or Periodical) is populated, selected by the owning Document's
// MobiType.
type DocumentStructure interface {
	isDocumentStructure()
}

// Book holds chapter nodes for MobiTypeBook documents.
type Book struct {
	Chapters []*Chapter
}

func (*Book) isDocumentStructure() {}

// AddChapter appends a chapter to the book.
func (b *Book) AddChapter(c *Chapter) {
	b.Chapters = append(b.Chapters, c)
}

// ChapterCount returns the number of chapters added so far.
func (b *Book) ChapterCount() int {
	return len(b.Chapters)
}

// Chapter is a single book-mode TOC entry.
type Chapter struct {
	MyIndex       int
	MyCtocMapIndex int
	StartAddress  uint32
	Length        uint32
}

// Periodical holds section nodes for a periodical document (flat or
// structured). StartAddress is set by the caller; Length and the
// First/LastSectionIndex fields are maintained by Section.AddArticle.
type Periodical struct {
	MyIndex          int
	MyCtocMapIndex   int // always 0: the periodical node is always the first CTOC entry
	SectionParents   []*Section
	StartAddress     uint32
	Length           uint32
	FirstSectionIndex uint32
	LastSectionIndex  uint32
}

func (*Periodical) isDocumentStructure() {}

// SectionCount returns the number of sections added so far.
func (p *Periodical) SectionCount() int {
	return len(p.SectionParents)
}

// AddSectionParent allocates a new section, owned by this periodical.
func (p *Periodical) AddSectionParent(doc *Document, ctocMapIndex int) *Section {
	s := &Section{
		MyMobiDoc:      doc,
		MyIndex:        doc.NextNode(),
		ParentIndex:    p.MyIndex,
		SectionIndex:   len(p.SectionParents),
		MyCtocMapIndex: ctocMapIndex,
	}
	p.SectionParents = append(p.SectionParents, s)
	return s
}

// Section is a periodical section node, owning an ordered run of articles.
type Section struct {
	MyMobiDoc        *Document
	MyIndex          int
	ParentIndex      int
	SectionIndex     int
	MyCtocMapIndex   int
	FirstArticleIndex int
	LastArticleIndex  int
	StartAddress      uint32
	SectionLength     uint32
	Articles          []*Article
}

// AddArticle appends an article, maintaining this section's and the owning
// periodical's length and index bookkeeping. The first article of node 1
// sets the periodical's Length measured from the periodical's own
// StartAddress; a section's first article sets its StartAddress (the
// periodical's while it is the only section, otherwise the article's);
// every later article only accumulates length.
func (s *Section) AddArticle(periodical *Periodical, article *Article) {
	s.Articles = append(s.Articles, article)

	if s.MyIndex == 1 && len(s.Articles) == 1 {
		periodical.FirstSectionIndex = uint32(s.MyIndex)
		periodical.LastSectionIndex = uint32(s.MyIndex)
		periodical.Length = article.ArticleLength + (article.StartAddress - periodical.StartAddress)
	} else {
		periodical.Length += article.ArticleLength
	}
	periodical.LastSectionIndex = uint32(s.MyIndex)

	if len(s.Articles) == 1 {
		s.FirstArticleIndex = article.MyIndex
		if len(periodical.SectionParents) == 1 {
			s.StartAddress = periodical.StartAddress
			s.SectionLength = article.ArticleLength + (article.StartAddress - periodical.StartAddress)
		} else {
			s.StartAddress = article.StartAddress
			s.SectionLength = article.ArticleLength
		}
	} else {
		s.SectionLength += article.ArticleLength
	}
	s.LastArticleIndex = article.MyIndex
}

// Article is a periodical article node, the leaf of the section hierarchy.
type Article struct {
	MyMobiDoc        *Document
	MyIndex          int
	MyCtocMapIndex   int
	SectionParentIndex int
	StartAddress     uint32
	ArticleLength    uint32
	Author           string
	Description      string
}

// NewArticle allocates an article under sectionParent, advancing the shared
// node counter.
func NewArticle(sectionParent *Section, startAddress, length uint32, ctocMapIndex int) *Article {
	return &Article{
		MyMobiDoc:          sectionParent.MyMobiDoc,
		MyIndex:            sectionParent.MyMobiDoc.NextNode(),
		MyCtocMapIndex:     ctocMapIndex,
		SectionParentIndex: sectionParent.MyIndex,
		StartAddress:       startAddress,
		ArticleLength:      length,
	}
}

// HTMLRecordData tracks, for one text record, which TOC nodes open,
// continue, or close inside it. All fields default to -1, meaning "none".
type HTMLRecordData struct {
	ContinuingNode          int
	ContinuingNodeParent    int
	OpeningNode             int
	OpeningNodeParent       int
	CurrentSectionNodeCount int
	NextSectionNumber       int
	NextSectionOpeningNode  int
	NextSectionNodeCount    int
}

// NewHTMLRecordData returns a record with every field defaulted to -1.
func NewHTMLRecordData() *HTMLRecordData {
	return &HTMLRecordData{
		ContinuingNode:          -1,
		ContinuingNodeParent:    -1,
		OpeningNode:             -1,
		OpeningNodeParent:       -1,
		CurrentSectionNodeCount: -1,
		NextSectionNumber:       -1,
		NextSectionOpeningNode:  -1,
		NextSectionNodeCount:    -1,
	}
}
