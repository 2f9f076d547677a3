package mobi

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mobiwright/mobicore/opf"
)

func TestNewWriter(t *testing.T) {
	book := opf.NewOEBBook()
	book.Metadata = opf.Metadata{
		Title: "Test Book",
	}

	writer := NewWriter(book)
	if writer == nil {
		t.Fatal("NewWriter() returned nil")
	}

	if writer.book != book {
		t.Error("Writer book not set correctly")
	}
}

func TestDefaultWriteOptions(t *testing.T) {
	opts := DefaultWriteOptions()

	if opts.CompressionType != NoCompression {
		t.Errorf("CompressionType = %v, want %d (NoCompression)", opts.CompressionType, NoCompression)
	}
	if !opts.WithEXTH {
		t.Error("WithEXTH should be true by default")
	}
	if !opts.GenerateTOC {
		t.Error("GenerateTOC should be true by default")
	}
	if !opts.Indexing {
		t.Error("Indexing should be true by default")
	}
	if !opts.FCISFLIS {
		t.Error("FCISFLIS should be true by default")
	}
}

func TestGetBookName(t *testing.T) {
	book := opf.NewOEBBook()
	book.Metadata = opf.Metadata{
		Title: "Test Book Title",
	}

	writer := NewWriter(book)

	name := writer.GetBookName()
	if name != "Test Book Title" {
		t.Errorf("GetBookName() = %v, want 'Test Book Title'", name)
	}

	writer.options.Title = "Custom Title"
	name = writer.GetBookName()
	if name != "Custom Title" {
		t.Errorf("GetBookName() with custom = %v, want 'Custom Title'", name)
	}

	book.Metadata.Title = "This is a very long book title that should be truncated to 31 characters"
	writer.options.Title = ""
	name = writer.GetBookName()
	if len(name) > 31 {
		t.Errorf("GetBookName() length = %v, want max 31", len(name))
	}
}

func TestJoinedAuthors(t *testing.T) {
	book := opf.NewOEBBook()
	book.Metadata.Authors = []opf.Author{
		opf.NewAuthor("John", "", "Doe", ""),
		opf.NewAuthor("Jane", "", "Roe", ""),
	}
	writer := NewWriter(book)

	got := writer.joinedAuthors()
	if !strings.Contains(got, "Doe") || !strings.Contains(got, "Roe") {
		t.Errorf("joinedAuthors() = %q, want both author names", got)
	}
}

func TestIana2Mobi(t *testing.T) {
	if got := iana2mobi("ru"); got != 0x19 {
		t.Errorf("iana2mobi(ru) = %#x, want 0x19", got)
	}
	if got := iana2mobi("xx"); got != 0x09 {
		t.Errorf("iana2mobi(xx) = %#x, want default 0x09 (English)", got)
	}
	if got := iana2mobi(""); got != 0x09 {
		t.Errorf("iana2mobi(\"\") = %#x, want default 0x09 (English)", got)
	}
}

func TestConvertOEBToMOBI(t *testing.T) {
	book := opf.NewOEBBook()
	book.Metadata = opf.Metadata{
		Title:      "Test Book",
		Language:   "en",
		Publisher:  "Test Publisher",
		ISBN:       "978-0-123456-78-9",
		Annotation: "Test annotation",
	}
	book.Metadata.Authors = []opf.Author{
		opf.NewAuthor("John", "", "Doe", ""),
	}
	book.Content = "<html><body><h1>Chapter 1</h1><p>Test content</p></body></html>"
	book.TOC.Children = []*opf.TOCEntry{
		{ID: "ch1", Label: "Chapter 1", Href: "#ch1"},
	}

	var output bytes.Buffer
	if err := ConvertOEBToMOBI(book, &output); err != nil {
		t.Fatalf("ConvertOEBToMOBI() error = %v", err)
	}

	if output.Len() == 0 {
		t.Fatal("ConvertOEBToMOBI() produced no output")
	}

	outputBytes := output.Bytes()
	if len(outputBytes) < 78 {
		t.Fatal("output too short to contain PalmDB header")
	}

	if typeStr := string(outputBytes[60:64]); typeStr != "BOOK" {
		t.Errorf("PalmDB type = %v, want 'BOOK'", typeStr)
	}
	if creatorStr := string(outputBytes[64:68]); creatorStr != "MOBI" {
		t.Errorf("PalmDB creator = %v, want 'MOBI'", creatorStr)
	}
}

func TestConvertOEBToMOBIWithOptionsNoIndexing(t *testing.T) {
	book := opf.NewOEBBook()
	book.Metadata = opf.Metadata{Title: "No Index Book"}
	book.Content = "<html><body><p>Just a paragraph, no headings.</p></body></html>"

	opts := DefaultWriteOptions()
	opts.Indexing = false
	opts.FCISFLIS = false

	var output bytes.Buffer
	if err := ConvertOEBToMOBIWithOptions(book, &output, opts); err != nil {
		t.Fatalf("ConvertOEBToMOBIWithOptions() error = %v", err)
	}
	if output.Len() == 0 {
		t.Error("ConvertOEBToMOBIWithOptions() produced no output")
	}
}

func TestEXTHWriter(t *testing.T) {
	writer := NewEXTHWriter()

	writer.AddCreator("Test Author")
	writer.AddPublisher("Test Publisher")
	writer.AddDescription("Test description")
	writer.AddISBN("978-0-123456-78-9")

	var buf bytes.Buffer
	n, err := writer.Write(&buf)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n == 0 {
		t.Error("Write() returned 0 bytes")
	}

	data := buf.Bytes()
	if len(data) < 4 {
		t.Fatal("EXTH data too short")
	}
	if string(data[0:4]) != "EXTH" {
		t.Errorf("EXTH identifier = %v, want 'EXTH'", string(data[0:4]))
	}
}

func TestPalmDOCCompression(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "Hello"},
		{"repeated", "AAAAABBBBBCCCCC"},
		{"spaces", "Hello World Test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := []byte(tt.input)
			compressed := CompressPalmDOC(input)

			if len(compressed) > len(input)*2 && len(input) > 100 {
				t.Errorf("compression ratio too poor: %d -> %d", len(input), len(compressed))
			}
			if len(input) == 0 && len(compressed) != 0 {
				t.Errorf("empty input should produce empty output, got %d bytes", len(compressed))
			}
		})
	}
}
