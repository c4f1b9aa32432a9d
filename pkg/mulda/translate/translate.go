// Package translate defines the translation service contract and the
// results file format shared by both pipeline phases.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
)

// Response is one translated string. Input echoes the submitted text.
type Response struct {
	TranslatedText string `json:"translatedText"`
	Input          string `json:"input"`
}

// Translator turns a batch of texts into the target language. Implementations
// must return exactly one response per input, in input order.
type Translator interface {
	Translate(ctx context.Context, texts []string, target, source corpus.Domain) ([]Response, error)
}

// Func adapts a plain function to the Translator interface.
type Func func(ctx context.Context, texts []string, target, source corpus.Domain) ([]Response, error)

func (f Func) Translate(ctx context.Context, texts []string, target, source corpus.Domain) ([]Response, error) {
	return f(ctx, texts, target, source)
}

// Identity returns every input unchanged. Used for dry runs and round-trip tests.
type Identity struct{}

func (Identity) Translate(ctx context.Context, texts []string, _, _ corpus.Domain) ([]Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Response, len(texts))
	for i, t := range texts {
		out[i] = Response{TranslatedText: t, Input: t}
	}
	return out, nil
}

// Texts returns the translated text of each response.
func Texts(responses []Response) []string {
	out := make([]string, len(responses))
	for i, r := range responses {
		out[i] = r.TranslatedText
	}
	return out
}

// WriteJSON writes responses as an indented JSON array.
func WriteJSON(w io.Writer, responses []Response) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if responses == nil {
		responses = []Response{}
	}
	return enc.Encode(responses)
}

// SaveJSON writes responses to path.
func SaveJSON(path string, responses []Response) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, responses); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// LoadJSON reads a results file. A JSON array is preferred; otherwise the
// file is read as JSON lines and malformed lines are skipped with a warning.
func LoadJSON(path string) ([]Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var out []Response
		if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return out, nil
	}

	var out []Response
	for i, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var r Response
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			slog.Warn("skipping malformed result line", "path", path, "line", i+1, "err", err)
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid results found in %s", path)
	}
	return out, nil
}
