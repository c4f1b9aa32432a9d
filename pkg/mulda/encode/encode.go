// Package encode turns tagged sentences into surrogate strings that survive
// machine translation with their entity boundaries recoverable.
package encode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/internalerr"
	"github.com/cognicore/mulda/pkg/mulda/skip"
)

// Strategy selects how entities are marked before translation.
type Strategy uint8

const (
	// Placeholder replaces each entity span by "<category><index>".
	Placeholder Strategy = iota
	// Bracket produces one variant per entity with that span delimited.
	Bracket
)

func (s Strategy) String() string {
	if s == Bracket {
		return "bracket"
	}
	return "placeholder"
}

// ParseStrategy parses "placeholder" or "bracket".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "placeholder", "mulda":
		return Placeholder, nil
	case "bracket", "brackets":
		return Bracket, nil
	}
	return Placeholder, fmt.Errorf("strategy %q: %w", s, internalerr.ErrInvalidConfig)
}

// Form is the encoded shape of one sentence.
type Form struct {
	Strategy Strategy
	// Surrogates are the strings sent to the translator, in order.
	Surrogates []string
	// Entities are the original spans, index-aligned with the placeholders
	// or with the bracketed variants.
	Entities []corpus.Entity
}

// Encoder produces the surrogate strings of a sentence.
type Encoder interface {
	Encode(s *corpus.Sentence) (Form, error)
	Strategy() Strategy
}

// New returns the encoder for a strategy.
func New(strategy Strategy, delims Delimiters) Encoder {
	if strategy == Bracket {
		return BracketEncoder{Delims: delims}
	}
	return PlaceholderEncoder{}
}

// PlaceholderName returns the literal that stands for entity i, e.g. "Artist0".
func PlaceholderName(cat corpus.Category, i int) string {
	return cat.String() + strconv.Itoa(i)
}

// PlaceholderEncoder implements the MulDA encoding:
// "Jamie Valentine was born in London" -> "Artist0 was born in HumanSettlement1".
type PlaceholderEncoder struct{}

func (PlaceholderEncoder) Strategy() Strategy { return Placeholder }

// Encode emits a single surrogate with every span replaced by its placeholder.
func (PlaceholderEncoder) Encode(s *corpus.Sentence) (Form, error) {
	entities := s.Entities()
	parts := make([]string, 0, s.Len())
	next := 0
	for i := 0; i < s.Len(); i++ {
		w := s.Word(i)
		switch w.Tag.Position {
		case corpus.Begin:
			parts = append(parts, PlaceholderName(w.Tag.Category, next))
			next++
		case corpus.Inside:
		default:
			parts = append(parts, w.Token)
		}
	}
	return Form{
		Strategy:   Placeholder,
		Surrogates: []string{strings.Join(parts, " ")},
		Entities:   entities,
	}, nil
}

// BracketEncoder wraps one entity at a time in delimiters.
type BracketEncoder struct {
	Delims Delimiters
}

func (BracketEncoder) Strategy() Strategy { return Bracket }

// Encode emits one variant per entity. A sentence without entities yields its
// plain text so it still passes through translation. Text that already holds a
// delimiter character cannot be bracketed unambiguously and is rejected with
// skip.InvalidBracketing.
func (e BracketEncoder) Encode(s *corpus.Sentence) (Form, error) {
	entities := s.Entities()
	if len(entities) == 0 {
		return Form{Strategy: Bracket, Surrogates: []string{s.Text()}}, nil
	}

	tokens := s.Tokens()
	variants := make([]string, 0, len(entities))
	for _, ent := range entities {
		variant := e.bracket(tokens, ent)
		if !e.Delims.Check(variant) {
			return Form{}, skip.Errorf(skip.InvalidBracketing, "brackets were not done correctly in %q", variant)
		}
		variants = append(variants, variant)
	}
	return Form{Strategy: Bracket, Surrogates: variants, Entities: entities}, nil
}

func (e BracketEncoder) bracket(tokens []string, ent corpus.Entity) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i == ent.Start {
			b.WriteRune(e.Delims.Start)
		}
		b.WriteString(tok)
		if i == ent.End-1 {
			b.WriteRune(e.Delims.End)
		}
	}
	return b.String()
}
