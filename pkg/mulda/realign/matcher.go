package realign

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
)

// Matcher finds a placeholder literal inside one translated token.
type Matcher interface {
	// Locate reports whether token holds placeholder and returns the text
	// before and after it.
	Locate(token, placeholder string) (prefix, suffix string, ok bool)
}

// PlainMatcher does case-insensitive containment on NFC-normalized tokens.
// A match followed by a digit is rejected so Artist1 never matches Artist10.
type PlainMatcher struct{}

func (PlainMatcher) Locate(token, placeholder string) (string, string, bool) {
	return locate(norm.NFC.String(token), placeholder)
}

func locate(token, placeholder string) (string, string, bool) {
	n := len(placeholder)
	if n == 0 {
		return "", "", false
	}
	for i := 0; i+n <= len(token); {
		if strings.EqualFold(token[i:i+n], placeholder) && !digitAt(token, i+n) {
			return token[:i], token[i+n:], true
		}
		_, size := utf8.DecodeRuneInString(token[i:])
		i += size
	}
	return "", "", false
}

func digitAt(s string, i int) bool {
	return i < len(s) && s[i] >= '0' && s[i] <= '9'
}

// frenchNames maps category fragments the translator tends to localize back
// to their English spelling.
var frenchNames = strings.NewReplacer(
	"AUTRE", "OTHER",
	"Autre", "Other",
	"autre", "other",
	"POLITICIEN", "POLITICIAN",
	"Politicien", "Politician",
	"politicien", "politician",
	"ARTISTE", "ARTIST",
	"Artiste", "Artist",
	"artiste", "artist",
)

// FrenchMatcher extends PlainMatcher for English to French output. It undoes
// localized category names and splits elided articles such as l' and d'.
type FrenchMatcher struct{}

func (FrenchMatcher) Locate(token, placeholder string) (string, string, bool) {
	token = norm.NFC.String(token)
	if prefix, suffix, ok := locate(token, placeholder); ok {
		return prefix, suffix, true
	}
	// The prefix keeps the token's own apostrophe, straight or curly.
	if i := strings.LastIndexAny(token, "'’"); i >= 0 {
		_, size := utf8.DecodeRuneInString(token[i:])
		if _, suffix, ok := locate(frenchNames.Replace(token[i+size:]), placeholder); ok {
			return token[:i+size], suffix, true
		}
	}
	return locate(frenchNames.Replace(token), placeholder)
}

// MatcherFor picks the matcher for a language pair.
func MatcherFor(source, target corpus.Domain) Matcher {
	if source == corpus.English && target == corpus.French {
		return FrenchMatcher{}
	}
	return PlainMatcher{}
}
