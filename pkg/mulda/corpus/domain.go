package corpus

import (
	"fmt"

	"github.com/cognicore/mulda/pkg/mulda/internalerr"
)

// Domain is the language code of a sentence.
type Domain uint8

const (
	NoDomain Domain = iota
	Bangla
	German
	English
	Spanish
	Farsi
	French
	Hindi
	Italian
	Portuguese
	Swedish
	Ukrainian
	Chinese

	numDomains
)

var domainCodes = [numDomains]string{
	NoDomain:   "",
	Bangla:     "bn",
	German:     "de",
	English:    "en",
	Spanish:    "es",
	Farsi:      "fa",
	French:     "fr",
	Hindi:      "hi",
	Italian:    "it",
	Portuguese: "pt",
	Swedish:    "sv",
	Ukrainian:  "uk",
	Chinese:    "zh",
}

// ParseDomain maps a two-letter language code to its Domain.
func ParseDomain(code string) (Domain, error) {
	for d := Bangla; d < numDomains; d++ {
		if domainCodes[d] == code {
			return d, nil
		}
	}
	return NoDomain, fmt.Errorf("domain %q: %w", code, internalerr.ErrInvalidInput)
}

// Domains lists the supported language domains.
func Domains() []Domain {
	out := make([]Domain, 0, numDomains-1)
	for d := Bangla; d < numDomains; d++ {
		out = append(out, d)
	}
	return out
}

// String returns the language code.
func (d Domain) String() string {
	if d >= numDomains {
		return fmt.Sprintf("Domain(%d)", uint8(d))
	}
	return domainCodes[d]
}

// Valid reports whether d is one of the supported domains.
func (d Domain) Valid() bool {
	return d > NoDomain && d < numDomains
}
