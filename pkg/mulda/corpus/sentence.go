package corpus

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/cognicore/mulda/pkg/mulda/internalerr"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// Word is a token with its tag.
type Word struct {
	Token string
	Tag   Tag
}

// NewWord validates the token and builds a Word.
func NewWord(token string, tag Tag) (Word, error) {
	if token == "" {
		return Word{}, fmt.Errorf("empty token: %w", internalerr.ErrInvalidInput)
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return Word{}, fmt.Errorf("token %q contains whitespace: %w", token, internalerr.ErrInvalidInput)
	}
	if _, err := NewTag(tag.Position, tag.Category); err != nil {
		return Word{}, err
	}
	return Word{Token: token, Tag: tag}, nil
}

func (w Word) String() string {
	return fmt.Sprintf("%s <%s>", w.Token, w.Tag)
}

// Entity is a contiguous entity span inside a sentence. End is exclusive.
type Entity struct {
	Start    int
	End      int
	Category Category
	Text     string
}

// Tokens returns the span text split on whitespace.
func (e Entity) Tokens() []string {
	return strings.Fields(e.Text)
}

// Sentence is an ordered list of words plus the index of the first word of
// every entity span.
type Sentence struct {
	id     string
	domain Domain
	words  []Word
	starts []int
}

// NewSentence creates an empty sentence in the given domain.
func NewSentence(id string, domain Domain) (*Sentence, error) {
	s := &Sentence{domain: domain}
	if id != "" {
		if err := s.SetID(id); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID returns the external identifier, or "" when unset.
func (s *Sentence) ID() string { return s.id }

// Domain returns the language domain.
func (s *Sentence) Domain() Domain { return s.domain }

// SetID assigns the identifier. It may be called only once.
func (s *Sentence) SetID(id string) error {
	if s.id != "" {
		return fmt.Errorf("sentence id already set to %q: %w", s.id, internalerr.ErrDuplicate)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("sentence id %q: %w", id, internalerr.ErrInvalidInput)
	}
	s.id = id
	return nil
}

// SetDomain assigns the language domain.
func (s *Sentence) SetDomain(d Domain) error {
	if !d.Valid() {
		return fmt.Errorf("domain %s: %w", d, internalerr.ErrInvalidInput)
	}
	s.domain = d
	return nil
}

// Append adds a word. An Inside word must continue an open span of the same
// category; malformed sequences are rejected rather than repaired.
func (s *Sentence) Append(w Word) error {
	if _, err := NewWord(w.Token, w.Tag); err != nil {
		return err
	}
	if w.Tag.Position == Inside {
		if len(s.words) == 0 {
			return fmt.Errorf("word %q: inside tag at sentence start: %w", w.Token, internalerr.ErrInvalidInput)
		}
		prev := s.words[len(s.words)-1].Tag
		if prev.Position == Outside {
			return fmt.Errorf("word %q: inside tag after outside word: %w", w.Token, internalerr.ErrInvalidInput)
		}
		if prev.Category != w.Tag.Category {
			return fmt.Errorf("word %q: inside tag %s continues a %s span: %w",
				w.Token, w.Tag, prev.Category, internalerr.ErrInvalidInput)
		}
	}
	s.words = append(s.words, w)
	if w.Tag.Position == Begin {
		s.starts = append(s.starts, len(s.words)-1)
	}
	return nil
}

// Len returns the number of words.
func (s *Sentence) Len() int { return len(s.words) }

// Word returns the i-th word.
func (s *Sentence) Word(i int) Word { return s.words[i] }

// Words returns a copy of the words.
func (s *Sentence) Words() []Word {
	out := make([]Word, len(s.words))
	copy(out, s.words)
	return out
}

// EntityStarts returns a copy of the Begin indexes, in increasing order.
func (s *Sentence) EntityStarts() []int {
	out := make([]int, len(s.starts))
	copy(out, s.starts)
	return out
}

// NumEntities returns the number of entity spans.
func (s *Sentence) NumEntities() int { return len(s.starts) }

// Entity returns the i-th entity span (0-based, left to right).
func (s *Sentence) Entity(i int) Entity {
	start := s.starts[i]
	end := start + 1
	for end < len(s.words) && s.words[end].Tag.Position == Inside {
		end++
	}
	tokens := make([]string, 0, end-start)
	for _, w := range s.words[start:end] {
		tokens = append(tokens, w.Token)
	}
	return Entity{
		Start:    start,
		End:      end,
		Category: s.words[start].Tag.Category,
		Text:     strings.Join(tokens, " "),
	}
}

// Entities returns every entity span in order.
func (s *Sentence) Entities() []Entity {
	out := make([]Entity, len(s.starts))
	for i := range s.starts {
		out[i] = s.Entity(i)
	}
	return out
}

// Tokens returns the surface tokens.
func (s *Sentence) Tokens() []string {
	out := make([]string, len(s.words))
	for i, w := range s.words {
		out[i] = w.Token
	}
	return out
}

// Text returns the tokens joined by single spaces.
func (s *Sentence) Text() string {
	return strings.Join(s.Tokens(), " ")
}

func (s *Sentence) String() string {
	parts := make([]string, len(s.words))
	for i, w := range s.words {
		parts[i] = w.String()
	}
	return strings.Join(parts, " ")
}

// Builder accumulates words into a new sentence, tagging entity tokens as a
// Begin followed by Insides.
type Builder struct {
	s   *Sentence
	err error
}

// NewBuilder starts a sentence with the given id and domain.
func NewBuilder(id string, domain Domain) *Builder {
	s, err := NewSentence(id, domain)
	if err == nil {
		err = s.SetDomain(domain)
	}
	return &Builder{s: s, err: err}
}

// Outside appends every token as an Outside word.
func (b *Builder) Outside(tokens ...string) *Builder {
	for _, tok := range tokens {
		if b.err != nil {
			return b
		}
		b.err = b.s.Append(Word{Token: tok, Tag: OutsideTag})
	}
	return b
}

// Entity appends tokens as one span of the given category.
func (b *Builder) Entity(cat Category, tokens ...string) *Builder {
	if b.err == nil && len(tokens) == 0 {
		b.err = fmt.Errorf("empty %s entity: %w", cat, internalerr.ErrInvalidInput)
	}
	for i, tok := range tokens {
		if b.err != nil {
			return b
		}
		pos := Inside
		if i == 0 {
			pos = Begin
		}
		b.err = b.s.Append(Word{Token: tok, Tag: Tag{Position: pos, Category: cat}})
	}
	return b
}

// Build returns the sentence or the first error encountered.
func (b *Builder) Build() (*Sentence, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.s, nil
}
