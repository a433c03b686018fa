package isa

import (
	"testing"
)

// TestBinaryRoundTrip checks the record-oriented binary form
// against the same instruction inventory the textual round-trip uses: the
// decoded program must render the identical textual form, so the two wire
// formats can never drift apart on operand meaning.
func TestBinaryRoundTrip(t *testing.T) {
	orig := sampleProgram()

	data, err := EncodeProgram(orig)
	if err != nil {
		t.Fatalf("EncodeProgram: %v", err)
	}
	decoded, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("DecodeProgram: %v", err)
	}
	if decoded.Len() != orig.Len() {
		t.Fatalf("decoded %d instructions, want %d", decoded.Len(), orig.Len())
	}
	if got, want := decoded.String(), orig.String(); got != want {
		t.Errorf("binary round-trip drift:\n--- original ---\n%s\n--- decoded ---\n%s", want, got)
	}
}

func TestBinaryRejectsTruncatedInput(t *testing.T) {
	orig := sampleProgram()
	data, err := EncodeProgram(orig)
	if err != nil {
		t.Fatalf("EncodeProgram: %v", err)
	}
	if _, err := DecodeProgram(data[:len(data)/2]); err == nil {
		t.Error("expected an error decoding truncated input")
	}
}
