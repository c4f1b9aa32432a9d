package realign

import (
	"reflect"
	"testing"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/encode"
	"github.com/cognicore/mulda/pkg/mulda/skip"
)

func jamie(t *testing.T) *corpus.Sentence {
	t.Helper()
	s, err := corpus.NewBuilder("s-1", corpus.English).
		Entity(corpus.Artist, "Jamie", "Valentine").
		Outside("was", "born", "in").
		Entity(corpus.HumanSettlement, "London").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return s
}

// words renders a sentence as token/tag pairs for comparison.
func words(s *corpus.Sentence) []string {
	out := make([]string, 0, s.Len())
	for _, w := range s.Words() {
		out = append(out, w.Token+"/"+w.Tag.String())
	}
	return out
}

func wantReason(t *testing.T, err error, want skip.Reason) {
	t.Helper()
	got, ok := skip.ReasonOf(err)
	if !ok {
		t.Fatalf("expected skip reason %s, got %v", want, err)
	}
	if got != want {
		t.Fatalf("reason = %s, want %s (%v)", got, want, err)
	}
}

func TestPlaceholderIdentityRoundTrip(t *testing.T) {
	s := jamie(t)
	form, _ := encode.PlaceholderEncoder{}.Encode(s)
	if form.Surrogates[0] != "Artist0 was born in HumanSettlement1" {
		t.Fatalf("surrogate = %q", form.Surrogates[0])
	}

	texts := []string{form.Entities[0].Text, form.Entities[1].Text}
	pair, err := New(corpus.English, encode.DefaultDelimiters, nil).Placeholder(s, form.Surrogates[0], texts)
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	want := []string{"Jamie/B-Artist", "Valentine/I-Artist", "was/O", "born/O", "in/O", "London/B-HumanSettlement"}
	if got := words(pair.Orig); !reflect.DeepEqual(got, want) {
		t.Errorf("orig = %v, want %v", got, want)
	}
	if got := words(pair.Trans); !reflect.DeepEqual(got, want) {
		t.Errorf("trans = %v, want %v", got, want)
	}
	if pair.Trans.ID() != "s-1" {
		t.Errorf("id = %q", pair.Trans.ID())
	}
	if !reflect.DeepEqual(pair.Orig.EntityStarts(), s.EntityStarts()) {
		t.Errorf("entity starts = %v, want %v", pair.Orig.EntityStarts(), s.EntityStarts())
	}
}

func TestPlaceholderTranslated(t *testing.T) {
	s := jamie(t)
	r := New(corpus.French, encode.DefaultDelimiters, nil)
	pair, err := r.Placeholder(s, "artist0, est né à HumanSettlement1.", []string{"Jamie Valentine", "Londres"})
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	wantTrans := []string{"Jamie/B-Artist", "Valentine/I-Artist", ",/O", "est/O", "né/O", "à/O", "Londres/B-HumanSettlement", "./O"}
	if got := words(pair.Trans); !reflect.DeepEqual(got, wantTrans) {
		t.Errorf("trans = %v, want %v", got, wantTrans)
	}
	wantOrig := []string{"Jamie/B-Artist", "Valentine/I-Artist", ",/O", "est/O", "né/O", "à/O", "London/B-HumanSettlement", "./O"}
	if got := words(pair.Orig); !reflect.DeepEqual(got, wantOrig) {
		t.Errorf("orig = %v, want %v", got, wantOrig)
	}
	if pair.Trans.Domain() != corpus.French {
		t.Errorf("domain = %s", pair.Trans.Domain())
	}
	if s.Len() != 6 {
		t.Error("source sentence was modified")
	}
}

func TestPlaceholderKeepsCurlyElision(t *testing.T) {
	s, err := corpus.NewBuilder("s-2", corpus.English).
		Outside("a", "friend", "of").
		Entity(corpus.OtherPER, "Bob").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	r := New(corpus.French, encode.DefaultDelimiters, FrenchMatcher{})
	pair, err := r.Placeholder(s, "un ami d’AutrePER0", []string{"Bob"})
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	want := []string{"un/O", "ami/O", "d’/O", "Bob/B-OtherPER"}
	if got := words(pair.Trans); !reflect.DeepEqual(got, want) {
		t.Errorf("trans = %v, want %v", got, want)
	}
}

func TestPlaceholderEmptyWithoutEntities(t *testing.T) {
	s, err := corpus.NewBuilder("s-3", corpus.English).Outside("hello").Build()
	if err != nil {
		t.Fatal(err)
	}
	_, err = New(corpus.French, encode.DefaultDelimiters, nil).Placeholder(s, "", nil)
	wantReason(t, err, skip.TranslationMismatch)
}

func TestPlaceholderFailures(t *testing.T) {
	s := jamie(t)
	r := New(corpus.French, encode.DefaultDelimiters, nil)
	texts := []string{"Jamie Valentine", "Londres"}

	tests := []struct {
		name       string
		translated string
		texts      []string
		want       skip.Reason
	}{
		{"missing", "Artist0 est né à Londres", texts, skip.EntityNotFound},
		{"duplicated", "Artist0 Artist0 est né à HumanSettlement1", texts, skip.EntityCountMismatch},
		{"fused", "Artist0HumanSettlement1 est né", texts, skip.EntityCountMismatch},
		{"repeated in token", "Artist0/Artist0 est né à HumanSettlement1", texts, skip.EntityCountMismatch},
		{"companion length", "Artist0 est né à HumanSettlement1", texts[:1], skip.EntityCountMismatch},
		{"empty", "   ", texts, skip.EntityNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Placeholder(s, tt.translated, tt.texts)
			wantReason(t, err, tt.want)
		})
	}
}

func TestPlaceholderDigitBoundary(t *testing.T) {
	b := corpus.NewBuilder("d", corpus.English)
	for i := 0; i < 11; i++ {
		b.Entity(corpus.Food, "dish").Outside("and")
	}
	s, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	form, _ := encode.PlaceholderEncoder{}.Encode(s)
	texts := make([]string, s.NumEntities())
	for i := range texts {
		texts[i] = "plat"
	}
	pair, err := New(corpus.French, encode.DefaultDelimiters, nil).Placeholder(s, form.Surrogates[0], texts)
	if err != nil {
		t.Fatalf("Food1 must not match Food10: %v", err)
	}
	if pair.Trans.NumEntities() != 11 {
		t.Errorf("entities = %d", pair.Trans.NumEntities())
	}
}

func TestBracketIdentityRoundTrip(t *testing.T) {
	s := jamie(t)
	form, err := encode.BracketEncoder{Delims: encode.DefaultDelimiters}.Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	pair, err := New(corpus.English, encode.DefaultDelimiters, nil).Bracket(s, form.Surrogates)
	if err != nil {
		t.Fatalf("Bracket: %v", err)
	}
	if got, want := words(pair.Orig), words(s); !reflect.DeepEqual(got, want) {
		t.Errorf("orig = %v, want %v", got, want)
	}
	if got, want := words(pair.Trans), words(s); !reflect.DeepEqual(got, want) {
		t.Errorf("trans = %v, want %v", got, want)
	}
}

func TestBracketReordered(t *testing.T) {
	s := jamie(t)
	r := New(corpus.French, encode.DefaultDelimiters, nil)
	pair, err := r.Bracket(s, []string{
		"À Londres est né [Jamie Valentine].",
		"À [Londres] est né Jamie Valentine.",
	})
	if err != nil {
		t.Fatalf("Bracket: %v", err)
	}
	wantTrans := []string{"À/O", "Londres/B-HumanSettlement", "est/O", "né/O", "Jamie/B-Artist", "Valentine/I-Artist", "./O"}
	if got := words(pair.Trans); !reflect.DeepEqual(got, wantTrans) {
		t.Errorf("trans = %v, want %v", got, wantTrans)
	}
	wantOrig := []string{"À/O", "London/B-HumanSettlement", "est/O", "né/O", "Jamie/B-Artist", "Valentine/I-Artist", "./O"}
	if got := words(pair.Orig); !reflect.DeepEqual(got, wantOrig) {
		t.Errorf("orig = %v, want %v", got, wantOrig)
	}
}

func TestBracketRepeatedEntityText(t *testing.T) {
	s, _ := corpus.NewBuilder("p", corpus.English).
		Entity(corpus.HumanSettlement, "Paris").
		Outside("and").
		Entity(corpus.HumanSettlement, "Paris", "Texas").
		Build()
	pair, err := New(corpus.French, encode.DefaultDelimiters, nil).Bracket(s, []string{
		"[Paris] et Paris Texas",
		"Paris et [Paris Texas]",
	})
	if err != nil {
		t.Fatalf("Bracket: %v", err)
	}
	want := []string{"Paris/B-HumanSettlement", "et/O", "Paris/B-HumanSettlement", "Texas/I-HumanSettlement"}
	if got := words(pair.Trans); !reflect.DeepEqual(got, want) {
		t.Errorf("trans = %v, want %v", got, want)
	}
}

func TestBracketFailures(t *testing.T) {
	s := jamie(t)
	r := New(corpus.French, encode.DefaultDelimiters, nil)

	tests := []struct {
		name     string
		variants []string
		want     skip.Reason
	}{
		{"missing brackets", []string{"[Jamie Valentine] est né à Londres", "Jamie Valentine est né à Londres"}, skip.BracketsNotFound},
		{"mismatched", []string{"[Jamie Valentine] est né à Londres", "Jamie Valentine est née à [Londres]"}, skip.TranslationMismatch},
		{"empty span", []string{"[] Jamie Valentine est né à Londres", "Jamie Valentine est né à [Londres]"}, skip.TemplateTokenMismatch},
		{"blank span", []string{"[ ]Jamie Valentine est né à Londres", "[ ]Jamie Valentine est né à Londres"}, skip.TemplateTokenMismatch},
		{"overlap", []string{"[Jamie Valentine] est né", "[Jamie] Valentine est né"}, skip.TemplateTokenMismatch},
		{"count", []string{"[Jamie Valentine] est né à Londres"}, skip.EntityCountMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := r.Bracket(s, tt.variants)
			wantReason(t, err, tt.want)
			if pair.Orig != nil || pair.Trans != nil {
				t.Error("failed realignment must not produce sentences")
			}
		})
	}
}

func TestBracketZeroEntities(t *testing.T) {
	s, _ := corpus.NewBuilder("z", corpus.English).Outside("no", "entities", "here").Build()
	r := New(corpus.German, encode.DefaultDelimiters, nil)
	pair, err := r.Bracket(s, []string{"keine Entitäten hier"})
	if err != nil {
		t.Fatalf("Bracket: %v", err)
	}
	want := []string{"keine/O", "Entitäten/O", "hier/O"}
	if got := words(pair.Trans); !reflect.DeepEqual(got, want) {
		t.Errorf("trans = %v", got)
	}
	if got := words(pair.Orig); !reflect.DeepEqual(got, want) {
		t.Errorf("orig = %v", got)
	}
	if _, err := r.Bracket(s, nil); err == nil {
		t.Error("missing translation should fail")
	}
}

func TestBracketQuoteDelimiters(t *testing.T) {
	s := jamie(t)
	r := New(corpus.French, encode.QuoteDelimiters, nil)
	pair, err := r.Bracket(s, []string{
		`"Jamie Valentine" est né à Londres`,
		`Jamie Valentine est né à "Londres"`,
	})
	if err != nil {
		t.Fatalf("Bracket: %v", err)
	}
	if pair.Trans.NumEntities() != 2 || pair.Trans.Entity(1).Text != "Londres" {
		t.Errorf("unexpected trans %v", words(pair.Trans))
	}
}

func TestSpans(t *testing.T) {
	s := jamie(t)
	r := New(corpus.French, encode.DefaultDelimiters, nil)
	spans, err := r.Spans(s, []string{
		"[Jamie  Valentine] est né à Londres",
		"Jamie  Valentine est né à [ Londres ]",
	})
	if err == nil {
		t.Fatalf("differing whitespace inside brackets changes the reference text, expected mismatch, got %v", spans)
	}

	spans, err = r.Spans(s, []string{
		"[Jamie Valentine] est né à Londres",
		"Jamie Valentine est né à [Londres]",
	})
	if err != nil {
		t.Fatalf("Spans: %v", err)
	}
	if !reflect.DeepEqual(spans, []string{"Jamie Valentine", "Londres"}) {
		t.Errorf("spans = %v", spans)
	}
}
