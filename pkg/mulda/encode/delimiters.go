package encode

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/mulda/pkg/mulda/internalerr"
)

// Delimiters mark an entity span in a bracketed surrogate. Start and End may
// be the same rune.
type Delimiters struct {
	Start rune
	End   rune
}

// DefaultDelimiters are square brackets.
var DefaultDelimiters = Delimiters{Start: '[', End: ']'}

// QuoteDelimiters wrap the span in double quotes.
var QuoteDelimiters = Delimiters{Start: '"', End: '"'}

// ParseDelimiters builds Delimiters from two single-rune strings.
func ParseDelimiters(start, end string) (Delimiters, error) {
	if utf8.RuneCountInString(start) != 1 || utf8.RuneCountInString(end) != 1 {
		return Delimiters{}, fmt.Errorf("delimiters %q %q must be single characters: %w", start, end, internalerr.ErrInvalidConfig)
	}
	s, _ := utf8.DecodeRuneInString(start)
	e, _ := utf8.DecodeRuneInString(end)
	if s == ' ' || e == ' ' {
		return Delimiters{}, fmt.Errorf("delimiters must not be spaces: %w", internalerr.ErrInvalidConfig)
	}
	return Delimiters{Start: s, End: e}, nil
}

func (d Delimiters) same() bool { return d.Start == d.End }

// Check reports whether s holds exactly one delimiter pair.
func (d Delimiters) Check(s string) bool {
	if d.same() {
		return strings.Count(s, string(d.Start)) == 2
	}
	if strings.Count(s, string(d.Start)) != 1 || strings.Count(s, string(d.End)) != 1 {
		return false
	}
	return strings.IndexRune(s, d.Start) < strings.IndexRune(s, d.End)
}

// Indexes returns the byte offsets of the start and end delimiters.
func (d Delimiters) Indexes(s string) (start, end int, ok bool) {
	if !d.Check(s) {
		return 0, 0, false
	}
	start = strings.IndexRune(s, d.Start)
	after := start + utf8.RuneLen(d.Start)
	end = after + strings.IndexRune(s[after:], d.End)
	return start, end, true
}

// Remove drops the two delimiters, keeping the span text in place.
func (d Delimiters) Remove(s string) (string, bool) {
	start, end, ok := d.Indexes(s)
	if !ok {
		return "", false
	}
	return s[:start] + s[start+utf8.RuneLen(d.Start):end] + s[end+utf8.RuneLen(d.End):], true
}

// Strip drops the delimiters and everything between them.
func (d Delimiters) Strip(s string) (string, bool) {
	start, end, ok := d.Indexes(s)
	if !ok {
		return "", false
	}
	return s[:start] + s[end+utf8.RuneLen(d.End):], true
}

// Span returns the text between the delimiters.
func (d Delimiters) Span(s string) (string, bool) {
	start, end, ok := d.Indexes(s)
	if !ok {
		return "", false
	}
	return s[start+utf8.RuneLen(d.Start) : end], true
}

// Wrap puts delimiters around the only occurrence of entity in s.
func (d Delimiters) Wrap(s, entity string) (string, error) {
	if entity == "" || strings.Count(s, entity) != 1 {
		return "", fmt.Errorf("did not find exactly one instance of %q in %q: %w", entity, s, internalerr.ErrInvalidInput)
	}
	return strings.Replace(s, entity, string(d.Start)+entity+string(d.End), 1), nil
}
