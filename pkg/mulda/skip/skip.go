// Package skip classifies sentences that could not be realigned and keeps the
// per-run report of those skips.
package skip

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Reason is the closed set of per-sentence failure causes.
type Reason uint8

const (
	None Reason = iota
	BracketsNotFound
	InvalidBracketing
	TranslationMismatch
	TemplateTokenMismatch
	EntityNotFound
	EntityCountMismatch
	NotInCompanion

	numReasons
)

var reasonCodes = [numReasons]string{
	None:                  "",
	BracketsNotFound:      "BracketsNotFound",
	InvalidBracketing:     "InvalidBracketing",
	TranslationMismatch:   "MismatchedSentences",
	TemplateTokenMismatch: "TemplateTokenMismatch",
	EntityNotFound:        "EntityNotFound",
	EntityCountMismatch:   "EntityCountMismatch",
	NotInCompanion:        "NotInCompanion",
}

var reasonHelp = [numReasons]string{
	BracketsNotFound:      "brackets not being found",
	InvalidBracketing:     "invalid bracketing (usually from the original sentence containing the bracket characters)",
	TranslationMismatch:   "translations not matching",
	TemplateTokenMismatch: "template token mismatch (usually from punctuation added after an entity)",
	EntityNotFound:        "a placeholder missing from the translation",
	EntityCountMismatch:   "a placeholder found more than once or an entity count change",
	NotInCompanion:        "missing entity translations in the companion set",
}

// Code returns the stable identifier written to skip reports.
func (r Reason) Code() string {
	if r >= numReasons {
		return fmt.Sprintf("Reason(%d)", uint8(r))
	}
	return reasonCodes[r]
}

func (r Reason) String() string { return r.Code() }

// Reasons lists every failure reason in report order.
func Reasons() []Reason {
	out := make([]Reason, 0, numReasons-1)
	for r := BracketsNotFound; r < numReasons; r++ {
		out = append(out, r)
	}
	return out
}

// ParseReason maps a report code back to its Reason.
func ParseReason(code string) (Reason, error) {
	for r := BracketsNotFound; r < numReasons; r++ {
		if reasonCodes[r] == code {
			return r, nil
		}
	}
	return None, fmt.Errorf("unknown skip reason %q", code)
}

// Error carries a skip reason out of the encoder and realigner.
type Error struct {
	Reason Reason
	Detail string
}

// Errorf builds a skip error with a formatted detail message.
func Errorf(r Reason, format string, args ...any) *Error {
	return &Error{Reason: r, Detail: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "skip: " + e.Reason.Code()
	}
	return "skip: " + e.Reason.Code() + ": " + e.Detail
}

// ReasonOf extracts the skip reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason, true
	}
	return None, false
}

// Entry is one skipped sentence.
type Entry struct {
	ID     string
	Reason Reason
}

// Report is the append-only list of skips for one run.
type Report struct {
	entries []Entry
	counts  [numReasons]int
}

// Add records a skipped sentence.
func (r *Report) Add(id string, reason Reason) {
	r.entries = append(r.entries, Entry{ID: id, Reason: reason})
	if reason < numReasons {
		r.counts[reason]++
	}
}

// Entries returns a copy of the skips in the order they were added.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Total returns the number of skipped sentences.
func (r *Report) Total() int { return len(r.entries) }

// Count returns the number of skips for one reason.
func (r *Report) Count(reason Reason) int {
	if reason >= numReasons {
		return 0
	}
	return r.counts[reason]
}

// Counts returns the non-zero per-reason counts.
func (r *Report) Counts() map[Reason]int {
	out := make(map[Reason]int)
	for _, reason := range Reasons() {
		if n := r.counts[reason]; n > 0 {
			out[reason] = n
		}
	}
	return out
}

// WriteTo writes the CSV-like report: a header then "<id>, <code>" per skip.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("Sentence ID, Reason\n")
	for _, e := range r.entries {
		fmt.Fprintf(&b, "%s, %s\n", e.ID, e.Reason.Code())
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Summary renders one line for the total and one per reason.
func (r *Report) Summary(total int) []string {
	lines := []string{fmt.Sprintf("Skipped %d/%d sentences", r.Total(), total)}
	for _, reason := range Reasons() {
		lines = append(lines, fmt.Sprintf("Skipped %d sentences due to %s", r.counts[reason], reasonHelp[reason]))
	}
	return lines
}
