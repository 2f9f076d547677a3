package mobi

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressPalmDOCShrinksRepetitiveText(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50))

	compressed := CompressPalmDOC(data)

	if len(compressed) >= len(data) {
		t.Errorf("compressed size %d not smaller than original %d", len(compressed), len(data))
	}
}

func TestCompressPalmDOCMultiRecordInput(t *testing.T) {
	data := bytes.Repeat([]byte{'a', 'b', 'c', 'd'}, 3000) // > 4096 bytes, no long run repeats
	compressed := CompressPalmDOC(data)
	if len(compressed) == 0 {
		t.Fatal("expected non-empty output for multi-record input")
	}
}

func TestCompressRecordMethodNone(t *testing.T) {
	data := []byte("hello world")
	out := CompressRecord(data, 0)
	if !bytes.Equal(out, data) {
		t.Errorf("method 0 should pass data through unchanged, got %q", out)
	}
}

func TestCompressRecordMethodPalmDOC(t *testing.T) {
	data := []byte(strings.Repeat("aaaa", 20))
	out := CompressRecord(data, 1)
	if bytes.Equal(out, data) {
		t.Error("method 1 should apply PalmDOC compression")
	}
}

func TestCompressionRatio(t *testing.T) {
	original := make([]byte, 100)
	compressed := make([]byte, 40)

	ratio := CompressionRatio(original, compressed)
	if ratio != 0.4 {
		t.Errorf("CompressionRatio = %v, want 0.4", ratio)
	}

	if r := CompressionRatio(nil, compressed); r != 0 {
		t.Errorf("CompressionRatio with empty original = %v, want 0", r)
	}
}
