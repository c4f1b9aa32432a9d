// Package realign rebuilds tagged sentences from translated surrogates.
//
// Every failure is a *skip.Error so callers can record the sentence and move
// on. Source sentences are never modified; results are new sentences carrying
// the source id and the target domain.
package realign

import (
	"strings"
	"unicode/utf8"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/encode"
	"github.com/cognicore/mulda/pkg/mulda/skip"
)

// Pair holds the two realigned views of one sentence. Orig keeps the
// original entity text inside the translated sentence; Trans carries the
// translated entity text.
type Pair struct {
	Orig  *corpus.Sentence
	Trans *corpus.Sentence
}

// Realigner maps translations back onto tagged words.
type Realigner struct {
	Target  corpus.Domain
	Delims  encode.Delimiters
	Matcher Matcher
}

// New returns a realigner for the target language.
func New(target corpus.Domain, delims encode.Delimiters, m Matcher) *Realigner {
	if m == nil {
		m = PlainMatcher{}
	}
	return &Realigner{Target: target, Delims: delims, Matcher: m}
}

// Placeholder realigns a translated placeholder surrogate. entityTexts holds
// the translated text of each entity, in entity order.
func (r *Realigner) Placeholder(s *corpus.Sentence, translated string, entityTexts []string) (Pair, error) {
	entities := s.Entities()
	if len(entityTexts) != len(entities) {
		return Pair{}, skip.Errorf(skip.EntityCountMismatch, "%d entity translations for %d entities", len(entityTexts), len(entities))
	}
	tokens := strings.Fields(translated)
	if len(tokens) == 0 {
		if len(entities) > 0 {
			return Pair{}, skip.Errorf(skip.EntityNotFound, "%s missing from an empty translation", encode.PlaceholderName(entities[0].Category, 0))
		}
		return Pair{}, skip.Errorf(skip.TranslationMismatch, "empty translation")
	}

	type hit struct {
		entity         int
		prefix, suffix string
	}
	hits := make([]*hit, len(tokens))
	m := r.matcher()
	for i, ent := range entities {
		name := encode.PlaceholderName(ent.Category, i)
		found := false
		for j, tok := range tokens {
			prefix, suffix, ok := m.Locate(tok, name)
			if !ok {
				continue
			}
			if found {
				return Pair{}, skip.Errorf(skip.EntityCountMismatch, "%s found in more than one token", name)
			}
			if hits[j] != nil {
				return Pair{}, skip.Errorf(skip.EntityCountMismatch, "token %q holds more than one placeholder", tok)
			}
			if _, _, again := m.Locate(suffix, name); again {
				return Pair{}, skip.Errorf(skip.EntityCountMismatch, "%s repeated in token %q", name, tok)
			}
			hits[j] = &hit{entity: i, prefix: prefix, suffix: suffix}
			found = true
		}
		if !found {
			return Pair{}, skip.Errorf(skip.EntityNotFound, "%s missing from %q", name, translated)
		}
	}

	b := newPairBuilder(s.ID(), r.Target)
	for j, tok := range tokens {
		h := hits[j]
		if h == nil {
			b.outside(tok)
			continue
		}
		ent := entities[h.entity]
		if h.prefix != "" {
			b.outside(h.prefix)
		}
		if err := b.entity(ent.Category, ent.Tokens(), strings.Fields(entityTexts[h.entity])); err != nil {
			return Pair{}, err
		}
		if h.suffix != "" {
			b.outside(h.suffix)
		}
	}
	return b.build(len(entities))
}

// Bracket realigns the translations of the bracketed variants of s.
func (r *Realigner) Bracket(s *corpus.Sentence, variants []string) (Pair, error) {
	entities := s.Entities()
	if len(entities) == 0 {
		return r.passThrough(s, variants)
	}

	spans, err := r.check(variants, len(entities))
	if err != nil {
		return Pair{}, err
	}
	reference := spans[0].reference

	for _, rn := range reference {
		if isSentinel(rn) {
			return Pair{}, skip.Errorf(skip.TemplateTokenMismatch, "translation holds reserved characters")
		}
	}

	// Replace each bracketed region of the reference text with its sentinel.
	// The offsets come from where the delimiters were, so repeated or
	// reordered entity text is assigned to the right entity.
	order := make([]int, len(spans))
	for i := range order {
		order[i] = i
	}
	sortByOffset(order, spans)
	var tmpl strings.Builder
	at := 0
	for _, i := range order {
		sp := spans[i]
		if sp.offset < at {
			return Pair{}, skip.Errorf(skip.TemplateTokenMismatch, "entity %d overlaps another entity", i)
		}
		tmpl.WriteString(reference[at:sp.offset])
		tmpl.WriteString(" " + sentinel(i) + " ")
		at = sp.offset + len(sp.raw)
	}
	tmpl.WriteString(reference[at:])

	b := newPairBuilder(s.ID(), r.Target)
	seen := make([]int, len(entities))
	for _, tok := range strings.Fields(tmpl.String()) {
		i, ok := sentinelIndex(tok)
		if !ok {
			if strings.ContainsFunc(tok, isSentinel) {
				return Pair{}, skip.Errorf(skip.TemplateTokenMismatch, "sentinel fused into token %q", tok)
			}
			b.outside(tok)
			continue
		}
		if i >= len(entities) {
			return Pair{}, skip.Errorf(skip.TemplateTokenMismatch, "unknown sentinel %d", i)
		}
		seen[i]++
		if err := b.entity(entities[i].Category, entities[i].Tokens(), strings.Fields(spans[i].text)); err != nil {
			return Pair{}, err
		}
	}
	for i, n := range seen {
		if n != 1 {
			return Pair{}, skip.Errorf(skip.TemplateTokenMismatch, "entity %d appears %d times in the template", i, n)
		}
	}
	return b.build(len(entities))
}

// Spans runs the bracket consistency checks and returns the translated text
// of each entity, in entity order.
func (r *Realigner) Spans(s *corpus.Sentence, variants []string) ([]string, error) {
	spans, err := r.check(variants, s.NumEntities())
	if err != nil {
		return nil, err
	}
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = sp.text
	}
	return out, nil
}

type span struct {
	// reference is the variant's text with the delimiters removed.
	reference string
	// offset is where the span starts in reference; raw is the exact text
	// between the delimiters and text the trimmed version.
	offset int
	raw    string
	text   string
}

func (r *Realigner) check(variants []string, n int) ([]span, error) {
	if len(variants) != n {
		return nil, skip.Errorf(skip.EntityCountMismatch, "%d bracketed translations for %d entities", len(variants), n)
	}
	out := make([]span, len(variants))
	for i, v := range variants {
		start, _, ok := r.Delims.Indexes(v)
		if !ok {
			return nil, skip.Errorf(skip.BracketsNotFound, "could not find brackets in translated sentence %q", v)
		}
		reference, _ := r.Delims.Remove(v)
		if i > 0 && reference != out[0].reference {
			return nil, skip.Errorf(skip.TranslationMismatch, "translation %q does not match %q", reference, out[0].reference)
		}
		raw, _ := r.Delims.Span(v)
		text := strings.Join(strings.Fields(raw), " ")
		if text == "" {
			return nil, skip.Errorf(skip.TemplateTokenMismatch, "empty entity in %q", v)
		}
		out[i] = span{reference: reference, offset: start, raw: raw, text: text}
	}
	return out, nil
}

func (r *Realigner) passThrough(s *corpus.Sentence, variants []string) (Pair, error) {
	if len(variants) != 1 {
		return Pair{}, skip.Errorf(skip.EntityCountMismatch, "%d translations for a sentence without entities", len(variants))
	}
	tokens := strings.Fields(variants[0])
	if len(tokens) == 0 {
		return Pair{}, skip.Errorf(skip.TranslationMismatch, "empty translation")
	}
	b := newPairBuilder(s.ID(), r.Target)
	for _, tok := range tokens {
		b.outside(tok)
	}
	return b.build(0)
}

func (r *Realigner) matcher() Matcher {
	if r.Matcher == nil {
		return PlainMatcher{}
	}
	return r.Matcher
}

const sentinelBase = 0xE000

func sentinel(i int) string { return string(rune(sentinelBase + i)) }

func isSentinel(r rune) bool { return r >= sentinelBase && r <= 0xF8FF }

func sentinelIndex(tok string) (int, bool) {
	r, size := utf8.DecodeRuneInString(tok)
	if size != len(tok) || !isSentinel(r) {
		return 0, false
	}
	return int(r - sentinelBase), true
}

func sortByOffset(order []int, spans []span) {
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && spans[order[j]].offset < spans[order[j-1]].offset; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}
