package skip

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func TestReportCounts(t *testing.T) {
	var r Report
	r.Add("a", BracketsNotFound)
	r.Add("b", TranslationMismatch)
	r.Add("c", BracketsNotFound)

	if r.Total() != 3 {
		t.Errorf("Total = %d", r.Total())
	}
	if r.Count(BracketsNotFound) != 2 || r.Count(TranslationMismatch) != 1 || r.Count(EntityNotFound) != 0 {
		t.Errorf("unexpected counts: %v", r.Counts())
	}
	counts := r.Counts()
	if len(counts) != 2 {
		t.Errorf("Counts should only hold non-zero reasons: %v", counts)
	}

	entries := r.Entries()
	if entries[0].ID != "a" || entries[1].ID != "b" || entries[2].ID != "c" {
		t.Errorf("entries out of order: %v", entries)
	}
}

func TestReportWriteTo(t *testing.T) {
	var r Report
	r.Add("id-1", TemplateTokenMismatch)
	r.Add("id-2", TranslationMismatch)

	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := "Sentence ID, Reason\nid-1, TemplateTokenMismatch\nid-2, MismatchedSentences\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestReasonCodesRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range Reasons() {
		code := r.Code()
		if code == "" || seen[code] {
			t.Errorf("reason %d has empty or duplicate code %q", r, code)
		}
		seen[code] = true
		back, err := ParseReason(code)
		if err != nil || back != r {
			t.Errorf("ParseReason(%q) = %v, %v", code, back, err)
		}
	}
	if len(seen) != 7 {
		t.Errorf("expected 7 reasons, got %d", len(seen))
	}
	if _, err := ParseReason("Nope"); err == nil {
		t.Error("unknown code should fail")
	}
}

func TestReasonOf(t *testing.T) {
	err := fmt.Errorf("sentence x: %w", Errorf(EntityNotFound, "placeholder %s", "Artist0"))
	r, ok := ReasonOf(err)
	if !ok || r != EntityNotFound {
		t.Errorf("ReasonOf = %v, %v", r, ok)
	}
	if !strings.Contains(err.Error(), "EntityNotFound: placeholder Artist0") {
		t.Errorf("error text = %q", err.Error())
	}
	if _, ok := ReasonOf(fmt.Errorf("plain")); ok {
		t.Error("plain error should not carry a reason")
	}
}

func TestSummary(t *testing.T) {
	var r Report
	r.Add("a", InvalidBracketing)
	lines := r.Summary(10)
	if lines[0] != "Skipped 1/10 sentences" {
		t.Errorf("first line = %q", lines[0])
	}
	if len(lines) != 1+len(Reasons()) {
		t.Errorf("expected one line per reason, got %d", len(lines))
	}
}
