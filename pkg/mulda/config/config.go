package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/mulda/pkg/mulda/batch"
	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/encode"
	"github.com/cognicore/mulda/pkg/mulda/internalerr"
)

// Config is the YAML run configuration.
type Config struct {
	Source     string     `yaml:"source"`
	Target     string     `yaml:"target"`
	Strategy   string     `yaml:"strategy"`
	Companion  string     `yaml:"companion"`
	FixIssues  bool       `yaml:"fix_issues"`
	Delimiters Delimiters `yaml:"delimiters"`
	BatchSize  int        `yaml:"batch_size"`
	Input      string     `yaml:"input"`
	Output     string     `yaml:"output"`
	Store      string     `yaml:"store"`
	Translator Translator `yaml:"translator"`
}

// Delimiters are the bracketing characters, one rune each.
type Delimiters struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Translator configures the translation service client.
type Translator struct {
	Endpoint  string        `yaml:"endpoint"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	Backoff   time.Duration `yaml:"backoff"`
}

// DefaultEndpoint is the Cloud Translation v2 REST endpoint.
const DefaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source:     "en",
		Target:     "fr",
		Strategy:   "placeholder",
		Companion:  "bracket",
		Delimiters: Delimiters{Start: "[", End: "]"},
		BatchSize:  batch.DefaultSize,
		Input:      "data/en-train.conll",
		Output:     "output",
		Store:      "output/translations.db",
		Translator: Translator{
			Endpoint:  DefaultEndpoint,
			APIKeyEnv: "GOOGLE_TRANSLATE_API_KEY",
			Timeout:   30 * time.Second,
			Retries:   3,
			Backoff:   2 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, internalerr.ErrInvalidConfig)
	}
	return cfg, nil
}

// Companion selects where placeholder runs get translated entity text.
type Companion uint8

const (
	// CompanionBracket reads entity text out of the bracketed translations.
	CompanionBracket Companion = iota
	// CompanionIsolated translates every entity on its own.
	CompanionIsolated
)

func (c Companion) String() string {
	if c == CompanionIsolated {
		return "isolated"
	}
	return "bracket"
}

// ParseCompanion parses "bracket" or "isolated".
func ParseCompanion(s string) (Companion, error) {
	switch strings.ToLower(s) {
	case "", "bracket":
		return CompanionBracket, nil
	case "isolated":
		return CompanionIsolated, nil
	}
	return CompanionBracket, fmt.Errorf("companion %q: %w", s, internalerr.ErrInvalidConfig)
}

// Settings is a validated Config with every value parsed.
type Settings struct {
	Source    corpus.Domain
	Target    corpus.Domain
	Strategy  encode.Strategy
	Companion Companion
	FixIssues bool
	Delims    encode.Delimiters
	BatchSize int
	Input     string
	Output    string
	Store     string

	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Retry    batch.Retry
}

// Settings validates the configuration and parses its values.
func (c *Config) Settings() (*Settings, error) {
	source, err := corpus.ParseDomain(c.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	target, err := corpus.ParseDomain(c.Target)
	if err != nil {
		return nil, fmt.Errorf("target: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	if source == target {
		return nil, fmt.Errorf("source and target are both %s: %w", source, internalerr.ErrInvalidConfig)
	}
	strategy, err := encode.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, err
	}
	companion, err := ParseCompanion(c.Companion)
	if err != nil {
		return nil, err
	}
	delims, err := encode.ParseDelimiters(c.Delimiters.Start, c.Delimiters.End)
	if err != nil {
		return nil, err
	}
	if c.BatchSize < 1 || c.BatchSize > batch.MaxSize {
		return nil, fmt.Errorf("batch_size %d outside 1..%d: %w", c.BatchSize, batch.MaxSize, internalerr.ErrInvalidConfig)
	}
	if c.Translator.Retries < 0 || c.Translator.Timeout < 0 || c.Translator.Backoff < 0 {
		return nil, fmt.Errorf("translator retries, timeout and backoff must not be negative: %w", internalerr.ErrInvalidConfig)
	}

	s := &Settings{
		Source:    source,
		Target:    target,
		Strategy:  strategy,
		Companion: companion,
		FixIssues: c.FixIssues,
		Delims:    delims,
		BatchSize: c.BatchSize,
		Input:     c.Input,
		Output:    c.Output,
		Store:     c.Store,
		Endpoint:  c.Translator.Endpoint,
		Timeout:   c.Translator.Timeout,
		Retry:     batch.Retry{Attempts: c.Translator.Retries + 1, Backoff: c.Translator.Backoff},
	}
	if c.Translator.APIKeyEnv != "" {
		s.APIKey = os.Getenv(c.Translator.APIKeyEnv)
	}
	return s, nil
}

// Paths are the files a run reads and writes.
type Paths struct {
	Dir     string
	Orig    string
	Trans   string
	Skipped string
	Results string
}

// Paths derives the output file names from the language pair and strategy.
func (s *Settings) Paths() Paths {
	pair := s.Source.String() + "-" + s.Target.String()
	dir := filepath.Join(s.Output, pair)
	strategy := s.Strategy.String()
	return Paths{
		Dir:     dir,
		Orig:    filepath.Join(dir, pair+"-orig-"+strategy+"-mulda.conll"),
		Trans:   filepath.Join(dir, pair+"-trans-"+strategy+"-mulda.conll"),
		Skipped: filepath.Join(dir, strategy+"_skipped.csv"),
		Results: filepath.Join(dir, strategy+"_results.json"),
	}
}
