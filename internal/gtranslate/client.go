package gtranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
	"github.com/cognicore/mulda/pkg/mulda/internalerr"
	"github.com/cognicore/mulda/pkg/mulda/translate"
)

// Client calls the Cloud Translation v2 REST endpoint.
type Client struct {
	Endpoint string
	APIKey   string

	HTTPClient *http.Client
}

type translateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate implements translate.Translator.
func (c *Client) Translate(ctx context.Context, texts []string, target, source corpus.Domain) ([]translate.Response, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("gtranslate: endpoint required: %w", internalerr.ErrInvalidConfig)
	}
	if len(texts) == 0 {
		return nil, nil
	}
	payload, err := c.send(ctx, translateRequest{
		Q:      texts,
		Source: source.String(),
		Target: target.String(),
		Format: "text",
	})
	if err != nil {
		return nil, err
	}
	got := payload.Data.Translations
	if len(got) != len(texts) {
		return nil, fmt.Errorf("gtranslate: sent %d texts, got %d translations: %w", len(texts), len(got), internalerr.ErrTranslation)
	}
	out := make([]translate.Response, len(texts))
	for i, tr := range got {
		out[i] = translate.Response{TranslatedText: html.UnescapeString(tr.TranslatedText), Input: texts[i]}
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, body translateRequest) (*translateResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	endpoint := c.Endpoint
	if c.APIKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var payload translateResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("gtranslate: HTTP %d: %w", resp.StatusCode, internalerr.ErrTranslation)
		}
		return nil, fmt.Errorf("gtranslate: decode response: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("gtranslate error %d: %s: %w", payload.Error.Code, payload.Error.Message, internalerr.ErrTranslation)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("gtranslate: HTTP %d: %w", resp.StatusCode, internalerr.ErrTranslation)
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
