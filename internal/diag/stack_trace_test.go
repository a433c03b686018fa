package diag

import (
	"strings"
	"testing"
)

func TestStackFrameStringWithAndWithoutPosition(t *testing.T) {
	bare := StackFrame{Function: "FUNC_1"}
	if got := bare.String(); got != "FUNC_1" {
		t.Errorf("bare frame = %q, want FUNC_1", got)
	}

	positioned := StackFrame{Function: "main", Line: 4, Col: 7}
	if got := positioned.String(); got != "main [line: 4, column: 7]" {
		t.Errorf("positioned frame = %q", got)
	}
}

func TestStackTraceRendersNewestFirst(t *testing.T) {
	st := StackTrace{
		{Function: "main"},
		{Function: "FUNC_1"},
		{Function: "IFBODY_2", Line: 9, Col: 2},
	}
	got := st.String()
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), got)
	}
	if !strings.Contains(lines[0], "IFBODY_2") || !strings.Contains(lines[2], "main") {
		t.Errorf("frames not newest-first:\n%s", got)
	}
	if st.Depth() != 3 {
		t.Errorf("Depth = %d, want 3", st.Depth())
	}
}

func TestEmptyStackTraceRendersEmpty(t *testing.T) {
	var st StackTrace
	if got := st.String(); got != "" {
		t.Errorf("empty trace = %q, want empty", got)
	}
	if st.Depth() != 0 {
		t.Errorf("Depth = %d, want 0", st.Depth())
	}
}
