// Package fb2c provides FB2 to MOBI/EPUB conversion.
package fb2c

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/mobiwright/mobicore/b64"
	"github.com/mobiwright/mobicore/epub"
	"github.com/mobiwright/mobicore/fb2"
	"github.com/mobiwright/mobicore/mobi"
	"github.com/mobiwright/mobicore/opf"
)

// ConvertOptions contains options for FB2 to MOBI/EPUB conversion
type ConvertOptions struct {
	// Format options
	MobiType    string // "old" (MOBI 6) is the only supported value
	Compression bool   // Enable PalmDOC compression

	// Content options
	NoInlineTOC   bool // Don't generate inline TOC
	ExtractImages bool // Extract embedded images

	// Metadata overrides
	Title      string
	Authors    []string
	CoverImage string

	// Logger receives warnings surfaced by the MOBI writer's indexing
	// pipeline (TOC discontinuities, non-conforming periodicals, ...).
	// Defaults to a discarding logger when nil.
	Logger *log.Logger
}

// DefaultConvertOptions returns default conversion options
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		MobiType:      "old",
		Compression:   true,
		NoInlineTOC:   false,
		ExtractImages: true,
	}
}

// Converter handles FB2 to MOBI conversion
type Converter struct {
	options ConvertOptions
	parser  *fb2.Parser
}

// NewConverter creates a new converter
func NewConverter() *Converter {
	return &Converter{
		options: DefaultConvertOptions(),
		parser:  fb2.NewParser(),
	}
}

// SetOptions sets conversion options
func (c *Converter) SetOptions(options ConvertOptions) {
	c.options = options
}

// Convert converts an FB2 to supported formats
func (c *Converter) Convert(inputPath, outputPath string) error {
	fb2Data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read FB2 file: %w", err)
	}

	// Convert FB2 to UTF-8 if needed
	fb2Data, err = convertToUTF8(fb2Data)
	if err != nil {
		return fmt.Errorf("failed to convert FB2 to UTF-8: %w", err)
	}

	fb2Doc, err := c.parser.ParseBytes(fb2Data)
	if err != nil {
		return fmt.Errorf("failed to parse FB2: %w", err)
	}

	metadata, err := c.parser.ExtractMetadata(fb2Doc)
	if err != nil {
		return fmt.Errorf("failed to extract metadata: %w", err)
	}

	// Apply metadata overrides
	c.applyMetadataOverrides(metadata)

	// Transform to HTML
	transformer := fb2.NewTransformer()
	transformer.NoInlineTOC = c.options.NoInlineTOC

	html, _, _, err := transformer.ConvertBytes(fb2Data)
	if err != nil {
		return fmt.Errorf("failed to transform FB2: %w", err)
	}

	// Extract TOC from FB2 document
	tocData, err := c.parser.ExtractTOC(fb2Doc)
	if err != nil {
		return fmt.Errorf("failed to extract TOC: %w", err)
	}

	// Create OPF book
	book := c.createOPFBook(metadata, html, tocData, fb2Doc)

	// Detect output format from file extension
	ext := strings.ToLower(filepath.Ext(outputPath))

	// Write output based on format
	outputFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outputFile.Close()

	// EPUB format
	if ext == ".epub" {
		return c.writeEPUB(book, outputFile)
	}

	// MOBI format (default)
	switch c.options.MobiType {
	case "old", "6", "":
		return c.writeMOBI6(book, outputFile)
	default:
		return fmt.Errorf("unknown MOBI type: %s", c.options.MobiType)
	}
}

// ConvertStream converts FB2 from reader to MOBI writer
func (c *Converter) ConvertStream(input io.Reader, output io.Writer) error {
	// Read FB2
	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	// Parse FB2
	fb2Doc, err := c.parser.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("failed to parse FB2: %w", err)
	}

	// Extract metadata
	metadata, err := c.parser.ExtractMetadata(fb2Doc)
	if err != nil {
		return fmt.Errorf("failed to extract metadata: %w", err)
	}

	// Apply overrides
	c.applyMetadataOverrides(metadata)

	// Extract TOC from FB2 document
	tocData, err := c.parser.ExtractTOC(fb2Doc)
	if err != nil {
		return fmt.Errorf("failed to extract TOC: %w", err)
	}

	// Create OPF book
	book := c.createOPFBook(metadata, "", tocData, fb2Doc)

	// Write MOBI
	switch c.options.MobiType {
	case "old", "6", "":
		return c.writeMOBI6(book, output)
	default:
		return fmt.Errorf("unknown MOBI type: %s", c.options.MobiType)
	}
}

// applyMetadataOverrides applies user-specified metadata overrides
func (c *Converter) applyMetadataOverrides(metadata *fb2.Metadata) {
	if c.options.Title != "" {
		metadata.Title = c.options.Title
	}
	if len(c.options.Authors) > 0 {
		metadata.Authors = c.options.Authors
	}
}

// createOPFBook creates an OPF book from metadata and HTML
func (c *Converter) createOPFBook(metadata *fb2.Metadata, html string, tocData *fb2.TOCData, fb2Doc *fb2.FictionBook) *opf.OEBBook {
	book := opf.NewOEBBook()

	// Set metadata
	book.Metadata = opf.ConvertMetadataFromFB2(
		metadata.Title,
		metadata.Authors,
		metadata.AuthorSort,
		metadata.Publisher,
		metadata.ISBN,
		metadata.Year,
		metadata.Language,
		metadata.PubDate,
		metadata.Series,
		metadata.SeriesIndex,
		metadata.Genres,
		metadata.Keywords,
		metadata.Annotation,
		metadata.Cover,
		metadata.CoverID,
		metadata.CoverExt,
	)

	// Set content
	book.Content = html

	// Guide entries: "text" always points readers past the cover/TOC front
	// matter to where the book itself begins; "toc" is only meaningful when
	// an inline table of contents was actually generated into the content.
	if html != "" {
		book.AddGuideRef("text", "Start", "#fb2c-start")
		if !c.options.NoInlineTOC {
			book.AddGuideRef("toc", "Table of Contents", "#mobi-toc")
		}
	}

	// Build TOC from extracted data
	if tocData != nil && len(tocData.Entries) > 0 {
		c.buildOPFTOC(tocData, book)
	}

	// Add resources - first add cover if explicitly set
	if metadata.CoverID != "" && len(metadata.Cover) > 0 {
		// CoverID already includes the extension (e.g., "cover.jpg")
		book.AddResource(metadata.CoverID, metadata.CoverID,
			"image/"+metadata.CoverExt[1:], metadata.Cover)
	}

	// Add all embedded binaries as resources
	// This ensures that inline images (like in with_cover.fb2) are included
	if c.options.ExtractImages && fb2Doc != nil && len(fb2Doc.Binaries) > 0 {
		for _, binary := range fb2Doc.Binaries {
			if binary.ID == "" {
				continue
			}

			// Decode base64 data
			data, err := b64.Decode([]byte(binary.Data))
			if err != nil {
				continue
			}

			// Determine media type from content-type
			mediaType := binary.ContentType
			if mediaType == "" {
				// Default to jpeg if unknown
				mediaType = "image/jpeg"
			}

			// Use the binary ID as the resource ID (already has extension in most FB2 files)
			// The href will be the same for EPUB
			book.AddResource(binary.ID, binary.ID, mediaType, data)
		}
	}

	return book
}

// buildOPFTOC builds OPF TOC from extracted FB2 TOC data
func (c *Converter) buildOPFTOC(tocData *fb2.TOCData, book *opf.OEBBook) {
	// The OPF TOC starts with a root entry
	book.TOC.ID = "root"
	book.TOC.Label = book.Metadata.Title

	// Map to track parent entries
	entryMap := make(map[int]*opf.TOCEntry)

	// Add all entries to the TOC
	for _, fb2Entry := range tocData.Entries {
		// Add to parent or root
		if fb2Entry.Parent == nil || fb2Entry.Level == 1 {
			// Top-level entry, add directly to root
			book.TOC.AddChild(fb2Entry.ID, fb2Entry.Label, fb2Entry.Href)
			// Store the added child for reference
			if len(book.TOC.Children) > 0 {
				entryMap[fb2Entry.Level] = book.TOC.Children[len(book.TOC.Children)-1]
			}
		} else {
			// Find parent entry
			if parent, ok := entryMap[fb2Entry.Level-1]; ok {
				parent.AddChild(fb2Entry.ID, fb2Entry.Label, fb2Entry.Href)
				// Store this entry as potential parent
				if len(parent.Children) > 0 {
					entryMap[fb2Entry.Level] = parent.Children[len(parent.Children)-1]
				}
			}
		}
	}
}

// writeEPUB writes EPUB format
func (c *Converter) writeEPUB(book *opf.OEBBook, output io.Writer) error {
	return epub.ConvertOEBToEPUB(book, output)
}

// writeMOBI6 writes MOBI 6 format
func (c *Converter) writeMOBI6(book *opf.OEBBook, output io.Writer) error {
	opts := mobi.DefaultWriteOptions()
	if !c.options.Compression {
		opts.CompressionType = mobi.NoCompression
	}
	if c.options.Logger != nil {
		opts.Logger = c.options.Logger
	}
	if c.options.CoverImage != "" {
		cover, err := os.ReadFile(c.options.CoverImage)
		if err != nil {
			return fmt.Errorf("failed to read cover image: %w", err)
		}
		opts.CoverImage = cover
	}

	return mobi.ConvertOEBToMOBIWithOptions(book, output, opts)
}

// ConvertFile is a convenience function to convert an FB2 file to MOBI
func ConvertFile(inputPath, outputPath string) error {
	converter := NewConverter()
	return converter.Convert(inputPath, outputPath)
}

// ConvertFileWithOptions converts an FB2 file to MOBI with options
func ConvertFileWithOptions(inputPath, outputPath string, options ConvertOptions) error {
	converter := NewConverter()
	converter.SetOptions(options)
	return converter.Convert(inputPath, outputPath)
}

// ExtractMetadata extracts metadata from an FB2 file
func ExtractMetadata(path string) (*fb2.Metadata, error) {
	return fb2.GetMetadataFromFile(path)
}

// ExtractMetadataFromBytes extracts metadata from FB2 data
func ExtractMetadataFromBytes(data []byte) (*fb2.Metadata, error) {
	return fb2.GetMetadataFromBytes(data)
}

// convertToUTF8 converts FB2 data to UTF-8 encoding if needed
func convertToUTF8(data []byte) ([]byte, error) {
	// Extract encoding from XML declaration
	// <?xml version="1.0" encoding="windows-1251"?>
	encoding := detectEncoding(data)

	// If already UTF-8 or no encoding specified, return as-is
	if encoding == "" || encoding == "utf-8" || encoding == "UTF-8" {
		return data, nil
	}

	// Convert from detected encoding to UTF-8
	converted, err := decodeToUTF8(data, encoding)
	if err != nil {
		return nil, err
	}

	// Update XML declaration to UTF-8
	converted = updateXMLDeclaration(converted)

	return converted, nil
}

// updateXMLDeclaration updates the XML declaration to UTF-8 encoding
func updateXMLDeclaration(data []byte) []byte {
	xmlStart := bytes.Index(data, []byte("<?xml"))
	if xmlStart == -1 {
		return data
	}

	xmlEnd := bytes.Index(data[xmlStart:], []byte("?>"))
	if xmlEnd == -1 {
		return data
	}

	// Replace encoding="..." with encoding="utf-8"
	declaration := data[xmlStart : xmlStart+xmlEnd+2]

	// Find and replace encoding attribute
	newDecl := declaration
	if i := bytes.Index(declaration, []byte("encoding=")); i != -1 && i+10 < len(declaration) {
		q := declaration[i+9]
		if end := bytes.IndexByte(declaration[i+10:], q); (q == '"' || q == '\'') && end != -1 {
			newDecl = append(append(append([]byte{}, declaration[:i+10]...), "utf-8"...), declaration[i+10+end:]...)
		}
	}

	// Reconstruct data with new declaration
	result := make([]byte, 0, len(data))
	result = append(result, data[:xmlStart]...)
	result = append(result, newDecl...)
	result = append(result, data[xmlStart+xmlEnd+2:]...)

	return result
}

// detectEncoding extracts encoding from XML declaration
func detectEncoding(data []byte) string {
	// Look for <?xml version="1.0" encoding="..."?>
	xmlStart := bytes.Index(data, []byte("<?xml"))
	if xmlStart == -1 {
		return ""
	}

	xmlEnd := bytes.Index(data[xmlStart:], []byte("?>"))
	if xmlEnd == -1 {
		return ""
	}

	declaration := string(data[xmlStart : xmlStart+xmlEnd+2])

	// Find encoding=
	encStart := strings.Index(declaration, "encoding=")
	if encStart == -1 {
		return ""
	}

	// Extract encoding value (quoted)
	rest := declaration[encStart+9:] // Skip 'encoding='
	if len(rest) == 0 {
		return ""
	}

	quote := rest[0]
	if quote != '"' && quote != '\'' {
		return ""
	}

	encEnd := strings.Index(rest[1:], string(quote))
	if encEnd == -1 {
		return ""
	}

	encoding := rest[1 : encEnd+1]
	return strings.ToLower(encoding)
}

// legacyEncodings maps the encoding names an FB2 XML declaration carries to
// the charmap.Charmap that decodes them.
var legacyEncodings = map[string]*charmap.Charmap{
	"windows-1251": charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"1251":         charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"1252":         charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"koi8-r":       charmap.KOI8R,
}

// decodeToUTF8 converts data from the specified encoding to UTF-8 using
// golang.org/x/text/encoding/charmap's single-byte decoders.
func decodeToUTF8(data []byte, encoding string) ([]byte, error) {
	cm, ok := legacyEncodings[encoding]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding: %s (supported: windows-1251, windows-1252, iso-8859-1, koi8-r, utf-8)", encoding)
	}
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", encoding, err)
	}
	return out, nil
}

// ValidateFB2 validates an FB2 file
func ValidateFB2(path string) error {
	parser := fb2.NewParser()
	_, err := parser.ParseFile(path)
	return err
}
