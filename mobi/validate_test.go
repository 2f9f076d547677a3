package mobi

import (
	"bytes"
	"testing"

	idx "github.com/mobiwright/mobicore/mobi/index"
)

// buildTestMOBI assembles a minimal but real MOBI file through the same
// PalmDBWriter/BuildRecord0 pipeline the writer uses, so the fixture's byte
// layout always matches what validate.go actually checks.
func buildTestMOBI(t *testing.T, exth []byte) []byte {
	t.Helper()

	record0 := BuildRecord0(Record0Params{
		Compression:        NoCompression,
		TextLength:         100,
		TextRecordCount:    1,
		MobiType:           uint32(idx.MobiTypeBook),
		Encoding:           UTF8Encoding,
		UniqueID:           1,
		Language:           9,
		SecondaryIndex:     0xFFFFFFFF,
		ExthFlags:          exthFlag(exth),
		FirstContentRec:    1,
		LastContentRec:     1,
		FCISRecord:         0xFFFFFFFF,
		FLISRecord:         0xFFFFFFFF,
		PrimaryIndexRecord: 0xFFFFFFFF,
		Title:              "Test Book",
		EXTH:               exth,
	})

	w := NewPalmDBWriter("Test Book", false)
	w.AddRecord(record0, 0, 0)
	w.AddRecord(bytes.Repeat([]byte{'x'}, 100), 0, 0)

	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf.Bytes()
}

func exthFlag(exth []byte) uint32 {
	if len(exth) == 0 {
		return 0
	}
	return 0x40
}

func buildTestEXTH() []byte {
	w := NewEXTHWriter()
	w.AddCreator("Test Author")
	w.AddTitle("Test Book")
	w.AddCDEType()
	return w.Bytes()
}

// testRecord0Offset mirrors what PalmDBWriter.Write computes for a two-record
// file: header plus two 8-byte index entries.
const testRecord0Offset = PalmDBHeaderSize + 2*8

func TestValidateValidMOBI(t *testing.T) {
	mobi := buildTestMOBI(t, nil)
	validator := NewValidator(mobi)

	if !validator.Validate() {
		t.Errorf("Valid MOBI failed validation:\n%s", validator.String())
	}
}

func TestValidateInvalidType(t *testing.T) {
	mobi := buildTestMOBI(t, nil)
	// PalmDB type field occupies bytes 60-63.
	copy(mobi[60:64], "TEST")

	validator := NewValidator(mobi)
	validator.Validate()

	if !validator.HasErrors() {
		t.Error("Should have error for invalid type")
	}
}

func TestValidateInvalidCreator(t *testing.T) {
	mobi := buildTestMOBI(t, nil)
	// PalmDB creator field occupies bytes 64-67.
	copy(mobi[64:68], "TEST")

	validator := NewValidator(mobi)
	validator.Validate()

	if !validator.HasErrors() {
		t.Error("Should have error for invalid creator")
	}
}

func TestValidateShortFile(t *testing.T) {
	shortFile := []byte("TOO SHORT")
	validator := NewValidator(shortFile)

	validator.Validate()

	if !validator.HasErrors() {
		t.Error("Should have error for short file")
	}
}

func TestValidateWithEXTH(t *testing.T) {
	mobi := buildTestMOBI(t, buildTestEXTH())
	validator := NewValidator(mobi)

	if !validator.Validate() {
		t.Errorf("MOBI with EXTH failed validation:\n%s", validator.String())
	}
}

func TestValidateMissingEXTHRecords(t *testing.T) {
	w := NewEXTHWriter()
	w.AddCDEType() // no creator, no title
	mobi := buildTestMOBI(t, w.Bytes())

	validator := NewValidator(mobi)
	validator.Validate()

	if !validator.HasErrors() {
		t.Error("Should have error for missing title record")
	}
	if !validator.HasWarnings() {
		t.Error("Should have warning for missing author record")
	}
}

func TestValidateMissingMOBIHeader(t *testing.T) {
	mobi := buildTestMOBI(t, nil)
	mobiOffset := testRecord0Offset + 0x10
	copy(mobi[mobiOffset:mobiOffset+4], "JUNK")

	validator := NewValidator(mobi)
	validator.Validate()

	if !validator.HasErrors() {
		t.Error("Should have error for corrupted MOBI header")
	}
}

func TestValidateWrongEncoding(t *testing.T) {
	mobi := buildTestMOBI(t, nil)
	mobiOffset := testRecord0Offset + 0x10
	// Encoding field is at mobiOffset+0x0C.
	copy(mobi[mobiOffset+0x0C:mobiOffset+0x10], []byte{0, 0, 0, 0})

	validator := NewValidator(mobi)
	validator.Validate()

	if !validator.HasErrors() {
		t.Error("Should have error for non-UTF8 encoding")
	}
}

func TestValidatorString(t *testing.T) {
	mobi := buildTestMOBI(t, nil)
	validator := NewValidator(mobi)
	validator.Validate()

	report := validator.String()
	if report == "" {
		t.Error("String() should not be empty")
	}

	t.Logf("Validation report:\n%s", report)
}
