package translate

import (
	"strings"
	"testing"
)

func TestSplitSegmentsExact(t *testing.T) {
	content := "ሰላም<<<SEG>>>ዓለም<<<SEG>>>ደህና"
	got, err := splitSegments(content, 3)
	if err != nil {
		t.Fatalf("splitSegments: %v", err)
	}
	want := []string{"ሰላም", "ዓለም", "ደህና"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("segment %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSegmentsTrimsWhitespace(t *testing.T) {
	content := "  ሰላም \n<<<SEG>>>\n ዓለም  "
	got, err := splitSegments(content, 2)
	if err != nil {
		t.Fatalf("splitSegments: %v", err)
	}
	if got[0] != "ሰላም" || got[1] != "ዓለም" {
		t.Errorf("whitespace not trimmed: %q", got)
	}
}

func TestSplitSegmentsMergesExtra(t *testing.T) {
	// A model that invents an extra marker should not shift
	// translations onto the wrong blocks.
	content := "one<<<SEG>>>two<<<SEG>>>extra"
	got, err := splitSegments(content, 2)
	if err != nil {
		t.Fatalf("splitSegments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d segments, want 2", len(got))
	}
	if got[0] != "one" {
		t.Errorf("segment 0 = %q", got[0])
	}
	if !strings.Contains(got[1], "two") || !strings.Contains(got[1], "extra") {
		t.Errorf("extra segment not merged: %q", got[1])
	}
}

func TestSplitSegmentsTooFew(t *testing.T) {
	_, err := splitSegments("only one segment", 3)
	if err == nil {
		t.Fatal("expected error when markers are dropped")
	}
}

func TestSplitSegmentsSingle(t *testing.T) {
	got, err := splitSegments("ትርጉም", 1)
	if err != nil {
		t.Fatalf("splitSegments: %v", err)
	}
	if got[0] != "ትርጉም" {
		t.Errorf("got %q", got[0])
	}
}
