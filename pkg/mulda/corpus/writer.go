package corpus

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cognicore/mulda/pkg/mulda/internalerr"
)

// Writer serializes sentences in the CoNLL layout read by Read.
type Writer struct {
	w *bufio.Writer
	n int
}

// NewWriter wraps w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteSentence writes the id line, one line per word and a blank terminator.
func (w *Writer) WriteSentence(s *Sentence) error {
	if s.ID() == "" {
		return fmt.Errorf("write sentence without id: %w", internalerr.ErrInvalidInput)
	}
	if err := writeHeader(w.w, s.ID(), s.Domain()); err != nil {
		return err
	}
	for _, word := range s.words {
		if _, err := fmt.Fprintf(w.w, "%s _ _ %s\n", word.Token, word.Tag); err != nil {
			return err
		}
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	return nil
}

// Count returns the number of sentences written.
func (w *Writer) Count() int { return w.n }

// Flush flushes buffered output.
func (w *Writer) Flush() error { return w.w.Flush() }

func writeHeader(w io.Writer, id string, d Domain) error {
	_, err := fmt.Fprintf(w, "%s %s\tdomain=%s\n", HeaderPrefix, id, d)
	return err
}

// Write writes all sentences to w.
func Write(w io.Writer, sentences []*Sentence) error {
	cw := NewWriter(w)
	for _, s := range sentences {
		if err := cw.WriteSentence(s); err != nil {
			return err
		}
	}
	return cw.Flush()
}
