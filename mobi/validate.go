package mobi

import (
	"bytes"
	"encoding/binary"
	"fmt"

	idx "github.com/mobiwright/mobicore/mobi/index"
)

// Validator checks a written MOBI file against the exact record 0 layout
// BuildRecord0 produces, rather than heuristically scanning for magic
// bytes — this writer controls every offset in the file it emits, so the
// validator can read them directly instead of guessing.
type Validator struct {
	data     []byte
	errors   []string
	warnings []string
}

// NewValidator creates a new MOBI validator
func NewValidator(data []byte) *Validator {
	return &Validator{
		data:     data,
		errors:   make([]string, 0),
		warnings: make([]string, 0),
	}
}

// Validate performs all validation checks
func (v *Validator) Validate() bool {
	v.errors = make([]string, 0)
	v.warnings = make([]string, 0)

	if len(v.data) < PalmDBHeaderSize {
		v.addError("File too short to be a valid MOBI")
		return false
	}

	record0Offset, ok := v.validatePalmDBHeader()
	if !ok {
		return false
	}

	if !v.validateMOBIHeader(record0Offset) {
		return len(v.errors) == 0
	}
	v.validateEXTH(record0Offset)

	return len(v.errors) == 0
}

// validatePalmDBHeader checks the fixed 78-byte PalmDB header at its known
// offsets and returns the byte offset of record 0 (the first entry in the
// record index table, which always immediately follows the header).
func (v *Validator) validatePalmDBHeader() (int, bool) {
	name := bytes.TrimRight(v.data[0:32], "\x00")
	if len(name) == 0 {
		v.addWarning("Empty database name")
	}

	typ := string(v.data[60:64])
	if typ != PalmDBType {
		v.addError(fmt.Sprintf("PalmDB type = %q, want %q", typ, PalmDBType))
	}

	creator := string(v.data[64:68])
	if creator != PalmDBCreator {
		v.addError(fmt.Sprintf("PalmDB creator = %q, want %q", creator, PalmDBCreator))
	}

	numRecords := binary.BigEndian.Uint16(v.data[76:78])
	if numRecords == 0 {
		v.addError("PalmDB record index is empty")
		return 0, false
	}

	indexEnd := PalmDBHeaderSize + int(numRecords)*8
	if len(v.data) < indexEnd {
		v.addError("File too short for its own record index")
		return 0, false
	}

	record0Offset := int(binary.BigEndian.Uint32(v.data[PalmDBHeaderSize : PalmDBHeaderSize+4]))
	if record0Offset != indexEnd {
		v.addError(fmt.Sprintf("record 0 offset = %d, want %d (immediately after the record index)", record0Offset, indexEnd))
		return 0, false
	}
	if len(v.data) < record0Offset+MOBIHeaderSize {
		v.addError("File too short to contain record 0's MOBI header")
		return 0, false
	}

	return record0Offset, true
}

// validateMOBIHeader checks the 0xE8-byte MOBI header BuildRecord0 writes
// at fixed offsets starting at record0Offset+0x10.
func (v *Validator) validateMOBIHeader(record0Offset int) bool {
	mobiOffset := record0Offset + 0x10

	magic := string(v.data[mobiOffset : mobiOffset+4])
	if magic != "MOBI" {
		v.addError(fmt.Sprintf("MOBI magic at record 0 offset 0x10 = %q, want \"MOBI\"", magic))
		return false
	}

	headerLength := binary.BigEndian.Uint32(v.data[mobiOffset+0x04 : mobiOffset+0x08])
	if headerLength != MOBIHeaderSize {
		v.addError(fmt.Sprintf("MOBI header length = %d, want %d", headerLength, MOBIHeaderSize))
	}

	mobiType := idx.MobiType(binary.BigEndian.Uint32(v.data[mobiOffset+0x08 : mobiOffset+0x0C]))
	switch mobiType {
	case idx.MobiTypeBook, idx.MobiTypeNewspaper, idx.MobiTypeMagazine:
	default:
		v.addError(fmt.Sprintf("unrecognized mobiType: 0x%X", uint32(mobiType)))
	}

	encoding := binary.BigEndian.Uint32(v.data[mobiOffset+0x0C : mobiOffset+0x10])
	if encoding != UTF8Encoding {
		v.addError(fmt.Sprintf("encoding = %d, want %d (UTF-8) — this writer never emits anything else", encoding, UTF8Encoding))
	}

	version := binary.BigEndian.Uint32(v.data[mobiOffset+0x14 : mobiOffset+0x18])
	if version != MOBIVersion {
		v.addError(fmt.Sprintf("MOBI version = %d, want %d", version, MOBIVersion))
	}

	return true
}

// validateEXTH checks the EXTH block BuildRecord0 places immediately after
// the fixed-size MOBI header, when EXTH flag bit 0x40 says one is present.
func (v *Validator) validateEXTH(record0Offset int) {
	mobiOffset := record0Offset + 0x10
	exthFlags := binary.BigEndian.Uint32(v.data[mobiOffset+0x70 : mobiOffset+0x74])
	if exthFlags&0x40 == 0 {
		return // EXTH omitted: WriteOptions.WithEXTH was false
	}

	exthOffset := mobiOffset + MOBIHeaderSize
	if len(v.data) < exthOffset+12 {
		v.addError("EXTH flag set but file too short for an EXTH header")
		return
	}

	if magic := string(v.data[exthOffset : exthOffset+4]); magic != "EXTH" {
		v.addError(fmt.Sprintf("EXTH magic = %q, want \"EXTH\"", magic))
		return
	}

	exthLength := binary.BigEndian.Uint32(v.data[exthOffset+4 : exthOffset+8])
	if exthLength < 12 {
		v.addError(fmt.Sprintf("Invalid EXTH header length: %d (should be >= 12)", exthLength))
		return
	}

	recordCount := binary.BigEndian.Uint32(v.data[exthOffset+8 : exthOffset+12])
	if recordCount == 0 {
		v.addWarning("EXTH header has no records")
	}

	v.checkEXTHRecords(exthOffset+12, recordCount)
}

// checkEXTHRecords walks exactly recordCount EXTH records (rather than
// scanning until the bytes stop looking like one) and checks for a
// creator record (warning if absent) and a title record (error if
// absent). Other record types, EBOK included, are not checked.
func (v *Validator) checkEXTHRecords(offset int, recordCount uint32) {
	hasAuthor := false
	hasTitle := false

	pos := offset
	for i := uint32(0); i < recordCount; i++ {
		if pos+8 > len(v.data) {
			v.addError("EXTH record table truncated")
			return
		}

		recordType := binary.BigEndian.Uint32(v.data[pos : pos+4])
		recordLength := binary.BigEndian.Uint32(v.data[pos+4 : pos+8])
		if recordLength < 8 || pos+int(recordLength) > len(v.data) {
			v.addError(fmt.Sprintf("invalid EXTH record length %d at offset %d", recordLength, pos))
			return
		}

		switch recordType {
		case EXTHCreator:
			hasAuthor = true
		case EXTHTitle:
			hasTitle = true
		}

		pos += int(recordLength)
	}

	if !hasAuthor {
		v.addWarning("EXTH missing author record (100)")
	}
	if !hasTitle {
		v.addError("EXTH missing title record (503) — buildEXTH always writes one when WithEXTH is set")
	}
}

// addError adds an error
func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, msg)
}

// addWarning adds a warning
func (v *Validator) addWarning(msg string) {
	v.warnings = append(v.warnings, msg)
}

// Errors returns all errors
func (v *Validator) Errors() []string {
	return v.errors
}

// Warnings returns all warnings
func (v *Validator) Warnings() []string {
	return v.warnings
}

// HasErrors returns true if there are errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// HasWarnings returns true if there are warnings
func (v *Validator) HasWarnings() bool {
	return len(v.warnings) > 0
}

// String returns a formatted validation report
func (v *Validator) String() string {
	var buf bytes.Buffer

	buf.WriteString("MOBI Validation Report\n")
	buf.WriteString("=====================\n\n")

	if len(v.errors) == 0 && len(v.warnings) == 0 {
		buf.WriteString("File is valid and Kindle-compatible\n")
		return buf.String()
	}

	if len(v.errors) > 0 {
		buf.WriteString("Errors:\n")
		for _, err := range v.errors {
			buf.WriteString(fmt.Sprintf("  - %s\n", err))
		}
		buf.WriteString("\n")
	}

	if len(v.warnings) > 0 {
		buf.WriteString("Warnings:\n")
		for _, warn := range v.warnings {
			buf.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	if len(v.errors) > 0 {
		buf.WriteString("\nFile is NOT valid\n")
	} else {
		buf.WriteString("\nFile is valid (with warnings)\n")
	}

	return buf.String()
}
