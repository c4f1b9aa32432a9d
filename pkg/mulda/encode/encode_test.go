package encode

import (
	"testing"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
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

func TestPlaceholderEncoding(t *testing.T) {
	form, err := PlaceholderEncoder{}.Encode(jamie(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(form.Surrogates) != 1 {
		t.Fatalf("expected 1 surrogate, got %d", len(form.Surrogates))
	}
	if got := form.Surrogates[0]; got != "Artist0 was born in HumanSettlement1" {
		t.Errorf("surrogate = %q", got)
	}
	if len(form.Entities) != 2 || form.Entities[0].Text != "Jamie Valentine" || form.Entities[1].Category != corpus.HumanSettlement {
		t.Errorf("entities = %+v", form.Entities)
	}
}

func TestPlaceholderNoEntities(t *testing.T) {
	s, _ := corpus.NewBuilder("p", corpus.English).Outside("nothing", "here", ".").Build()
	form, err := PlaceholderEncoder{}.Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	if form.Surrogates[0] != "nothing here ." || len(form.Entities) != 0 {
		t.Errorf("unexpected form %+v", form)
	}
}

func TestBracketEncoding(t *testing.T) {
	form, err := BracketEncoder{Delims: DefaultDelimiters}.Encode(jamie(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []string{
		"[Jamie Valentine] was born in London",
		"Jamie Valentine was born in [London]",
	}
	if len(form.Surrogates) != len(want) {
		t.Fatalf("got %d variants, want %d", len(form.Surrogates), len(want))
	}
	for i := range want {
		if form.Surrogates[i] != want[i] {
			t.Errorf("variant %d = %q, want %q", i, form.Surrogates[i], want[i])
		}
	}
}

func TestBracketEncodingQuotes(t *testing.T) {
	form, err := BracketEncoder{Delims: QuoteDelimiters}.Encode(jamie(t))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if form.Surrogates[0] != `"Jamie Valentine" was born in London` {
		t.Errorf("variant 0 = %q", form.Surrogates[0])
	}
}

func TestBracketEncodingRejectsDelimiterInText(t *testing.T) {
	s, _ := corpus.NewBuilder("q", corpus.English).
		Outside("the", "[", "remix", "]", "by").
		Entity(corpus.Artist, "Prince").
		Build()
	_, err := BracketEncoder{Delims: DefaultDelimiters}.Encode(s)
	if r, ok := skip.ReasonOf(err); !ok || r != skip.InvalidBracketing {
		t.Fatalf("expected InvalidBracketing, got %v", err)
	}

	q, _ := corpus.NewBuilder("q2", corpus.English).
		Outside(`"`, "Thriller", `"`, "by").
		Entity(corpus.Artist, "Jackson").
		Build()
	_, err = BracketEncoder{Delims: QuoteDelimiters}.Encode(q)
	if r, ok := skip.ReasonOf(err); !ok || r != skip.InvalidBracketing {
		t.Fatalf("expected InvalidBracketing with quotes, got %v", err)
	}
}

func TestBracketNoEntitiesPassThrough(t *testing.T) {
	s, _ := corpus.NewBuilder("p", corpus.English).Outside("nothing", "here").Build()
	form, err := BracketEncoder{Delims: DefaultDelimiters}.Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	if len(form.Surrogates) != 1 || form.Surrogates[0] != "nothing here" {
		t.Errorf("unexpected form %+v", form)
	}
}

func TestBracketThenSpanReturnsEntity(t *testing.T) {
	s := jamie(t)
	enc := BracketEncoder{Delims: DefaultDelimiters}
	form, err := enc.Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	for i, variant := range form.Surrogates {
		span, ok := enc.Delims.Span(variant)
		if !ok {
			t.Fatalf("variant %d has no span", i)
		}
		if want := s.Entity(i).Text; span != want {
			t.Errorf("span %d = %q, want %q", i, span, want)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"placeholder": Placeholder, "MulDA": Placeholder, "bracket": Bracket} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("inline"); err == nil {
		t.Error("unknown strategy should fail")
	}
	if New(Bracket, DefaultDelimiters).Strategy() != Bracket || New(Placeholder, DefaultDelimiters).Strategy() != Placeholder {
		t.Error("New returned the wrong encoder")
	}
}
