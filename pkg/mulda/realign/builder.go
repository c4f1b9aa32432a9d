package realign

import (
	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/skip"
)

// pairBuilder appends the same structure to both result sentences, differing
// only in entity text.
type pairBuilder struct {
	orig, trans *corpus.Sentence
	err         error
}

func newPairBuilder(id string, target corpus.Domain) *pairBuilder {
	b := &pairBuilder{}
	b.orig, b.err = corpus.NewSentence(id, target)
	if b.err == nil {
		b.trans, b.err = corpus.NewSentence(id, target)
	}
	return b
}

func (b *pairBuilder) outside(tok string) {
	if b.err != nil {
		return
	}
	w := corpus.Word{Token: tok, Tag: corpus.OutsideTag}
	if b.err = b.orig.Append(w); b.err == nil {
		b.err = b.trans.Append(w)
	}
}

func (b *pairBuilder) entity(cat corpus.Category, orig, trans []string) error {
	if len(trans) == 0 {
		return skip.Errorf(skip.EntityNotFound, "empty translation for %s entity", cat)
	}
	if b.err != nil {
		return b.err
	}
	if b.err = appendSpan(b.orig, cat, orig); b.err == nil {
		b.err = appendSpan(b.trans, cat, trans)
	}
	return b.err
}

func (b *pairBuilder) build(entities int) (Pair, error) {
	if b.err != nil {
		return Pair{}, b.err
	}
	if b.orig.NumEntities() != entities || b.trans.NumEntities() != entities {
		return Pair{}, skip.Errorf(skip.EntityCountMismatch, "realigned %d entities, expected %d", b.trans.NumEntities(), entities)
	}
	return Pair{Orig: b.orig, Trans: b.trans}, nil
}

func appendSpan(s *corpus.Sentence, cat corpus.Category, tokens []string) error {
	for i, tok := range tokens {
		pos := corpus.Inside
		if i == 0 {
			pos = corpus.Begin
		}
		tag, err := corpus.NewTag(pos, cat)
		if err != nil {
			return err
		}
		if err := s.Append(corpus.Word{Token: tok, Tag: tag}); err != nil {
			return err
		}
	}
	return nil
}
