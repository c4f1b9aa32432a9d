package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/cognicore/mulda/pkg/mulda/internalerr"
)

const (
	// HeaderPrefix starts a sentence metadata line.
	HeaderPrefix = "# id"
	docStart     = "-DOCSTART-"
)

// "# id bb81b9a7-e73d-4977-b6a8-0f7937123dfe\tdomain=en"
var headerPattern = regexp.MustCompile(`^# id (?P<id>[a-zA-Z0-9-]+)\s+domain=(?P<domain>[a-z]+)$`)

// FormatError reports a malformed input line. Line is 1-based.
type FormatError struct {
	Line int
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ReadFile reads a tagged corpus from path.
func ReadFile(path string) ([]*Sentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	sentences, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return sentences, nil
}

// Read parses a line-delimited CoNLL corpus. The first malformed line aborts
// the read with a *FormatError.
func Read(r io.Reader) ([]*Sentence, error) {
	var (
		sentences []*Sentence
		current   = &Sentence{}
		lineNo    int
	)

	flush := func() {
		if current.Len() > 0 {
			sentences = append(sentences, current)
		}
		current = &Sentence{}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			flush()

		case strings.HasPrefix(line, docStart):
			continue

		case strings.HasPrefix(line, HeaderPrefix):
			if err := parseHeader(current, line); err != nil {
				return nil, &FormatError{Line: lineNo, Text: line, Err: err}
			}

		default:
			w, err := parseWord(line)
			if err != nil {
				return nil, &FormatError{Line: lineNo, Text: line, Err: err}
			}
			if current.ID() == "" {
				return nil, &FormatError{Line: lineNo, Text: line, Err: fmt.Errorf("word before id line: %w", internalerr.ErrInvalidInput)}
			}
			if err := current.Append(w); err != nil {
				return nil, &FormatError{Line: lineNo, Text: line, Err: err}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return sentences, nil
}

func parseHeader(s *Sentence, line string) error {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("malformed id line: %w", internalerr.ErrInvalidInput)
	}
	if s.ID() != "" {
		return fmt.Errorf("second id line for sentence %s: %w", s.ID(), internalerr.ErrDuplicate)
	}
	if s.Len() > 0 {
		return errors.New("id line after words")
	}
	domain, err := ParseDomain(m[headerPattern.SubexpIndex("domain")])
	if err != nil {
		return err
	}
	if err := s.SetID(m[headerPattern.SubexpIndex("id")]); err != nil {
		return err
	}
	return s.SetDomain(domain)
}

// parseWord parses "<token> _ _ <tag>".
func parseWord(line string) (Word, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Word{}, fmt.Errorf("expected 4 fields, got %d: %w", len(fields), internalerr.ErrInvalidInput)
	}
	if fields[1] != "_" || fields[2] != "_" {
		return Word{}, fmt.Errorf("middle columns must be _ _, got %s %s: %w", fields[1], fields[2], internalerr.ErrInvalidInput)
	}
	tag, err := ParseTag(fields[3])
	if err != nil {
		return Word{}, err
	}
	return Word{Token: fields[0], Tag: tag}, nil
}
