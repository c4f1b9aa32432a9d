package mulda

import (
	"github.com/cognicore/mulda/pkg/mulda/config"
	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/encode"
)

// window is a range of surrogate strings in one translation set.
type window struct {
	start, n int
}

// unit is one sentence's share of the translation sets.
type unit struct {
	sentence *corpus.Sentence
	form     encode.Form
	// encodeErr is set when the sentence could not be encoded for the main set.
	encodeErr error
	main      window
	// companion is valid when hasCompanion is true.
	companion    window
	hasCompanion bool
}

// plan lays out every string to translate, in corpus order. Building the same
// plan twice from the same corpus yields identical sets, which is what lets
// the reconcile phase replay batches by key.
type plan struct {
	units     []unit
	main      []string
	companion []string
}

func (p *Pipeline) plan(sentences []*corpus.Sentence) *plan {
	ids := make(map[string]int, len(sentences))
	for _, s := range sentences {
		ids[s.ID()]++
	}

	mainEnc := encode.New(p.strategy, p.delims)
	bracketEnc := encode.BracketEncoder{Delims: p.delims}

	out := &plan{units: make([]unit, 0, len(sentences))}
	for _, s := range sentences {
		u := unit{sentence: s}
		form, err := mainEnc.Encode(s)
		if err != nil {
			u.encodeErr = err
			out.units = append(out.units, u)
			continue
		}
		u.form = form
		u.main = window{start: len(out.main), n: len(form.Surrogates)}
		out.main = append(out.main, form.Surrogates...)

		// Only placeholder runs need translated entity text from a second set.
		if p.strategy == encode.Placeholder && len(form.Entities) > 0 && s.ID() != "" && ids[s.ID()] == 1 {
			var extra []string
			switch p.companion {
			case config.CompanionIsolated:
				for _, ent := range form.Entities {
					extra = append(extra, ent.Text)
				}
			default:
				if bf, err := bracketEnc.Encode(s); err == nil {
					extra = bf.Surrogates
				}
			}
			if len(extra) > 0 {
				u.companion = window{start: len(out.companion), n: len(extra)}
				u.hasCompanion = true
				out.companion = append(out.companion, extra...)
			}
		}
		out.units = append(out.units, u)
	}
	return out
}
