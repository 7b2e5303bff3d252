// Package gemini is the gateway to the Google Generative Language REST API.
// It owns prompt construction, the synchronous generateContent call, response
// parsing, and failure classification.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pagemind/core/internal/modules/metrics"
)

// Length tiers accepted by Generate. Anything else falls back to medium.
const (
	LengthBrief    = "brief"
	LengthMedium   = "medium"
	LengthDetailed = "detailed"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-1.5-flash"
	defaultTimeout = 30 * time.Second
)

// Config controls the upstream endpoint. Zero values pick the production
// Gemini API; tests point BaseURL at a local server.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the generation API with a per-request credential. The API key
// travels with each call because rooms carry their own keys.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	metrics *metrics.Service
}

func New(cfg Config, m *metrics.Service) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
	}
}

// Options select the instruction verbosity and output language.
type Options struct {
	Length   string
	Language string
}

// Result is the structured form of one generation response.
type Result struct {
	Summary   string
	KeyPoints []string
}

// GenerationError wraps any failure of the upstream call so callers can
// distinguish it from their own faults. The detail carries the upstream
// message verbatim.
type GenerationError struct {
	Detail string
	Err    error
}

func (e *GenerationError) Error() string {
	return "failed to generate summary: " + e.Detail
}

func (e *GenerationError) Unwrap() error { return e.Err }

type generateRequest struct {
	Contents         []requestContent `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate runs one synchronous generation call and parses the free-form
// output into a summary plus key points. Every attempt bumps the call
// counter exactly once; every failure bumps the error counter and comes back
// as a *GenerationError.
func (c *Client) Generate(ctx context.Context, content string, opts Options, apiKey string) (*Result, error) {
	c.metrics.GenerationCall(ctx)

	body, err := json.Marshal(generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: buildPrompt(content, opts)}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: maxOutputTokens(opts.Length),
		},
	})
	if err != nil {
		return nil, c.fail(ctx, err.Error(), err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(ctx, err.Error(), err)
	}
	q := req.URL.Query()
	q.Set("key", apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.fail(ctx, err.Error(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(ctx, err.Error(), err)
	}

	var parsed generateResponse
	if resp.StatusCode >= http.StatusBadRequest {
		detail := fmt.Sprintf("generation API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		}
		return nil, c.fail(ctx, detail, nil)
	}

	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, c.fail(ctx, "invalid JSON from generation API", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, c.fail(ctx, "no summary generated", nil)
	}

	var full strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		full.WriteString(part.Text)
	}
	text := full.String()
	if strings.TrimSpace(text) == "" {
		return nil, c.fail(ctx, "no summary generated", nil)
	}

	summary, keyPoints := parseGenerated(text)
	return &Result{Summary: summary, KeyPoints: keyPoints}, nil
}

func (c *Client) fail(ctx context.Context, detail string, err error) *GenerationError {
	c.metrics.GenerationError(ctx)
	return &GenerationError{Detail: detail, Err: err}
}

func maxOutputTokens(length string) int {
	switch length {
	case LengthBrief:
		return 150
	case LengthDetailed:
		return 500
	default:
		return 300
	}
}

var languageDirectives = map[string]string{
	"id": "Please provide the summary in Indonesian (Bahasa Indonesia).",
	"es": "Please provide the summary in Spanish.",
	"fr": "Please provide the summary in French.",
	"de": "Please provide the summary in German.",
	"ja": "Please provide the summary in Japanese.",
	"zh": "Please provide the summary in Chinese.",
}

// buildPrompt assembles the instruction exactly the way the deployed clients
// expect: language directive, length directive, raw content, then the
// key-point request.
func buildPrompt(content string, opts Options) string {
	var lengthInstruction string
	switch opts.Length {
	case LengthBrief:
		lengthInstruction = "Provide a very brief summary (2-3 sentences) of the following content:"
	case LengthDetailed:
		lengthInstruction = "Provide a detailed summary with comprehensive analysis of the following content:"
	default:
		lengthInstruction = "Provide a clear and concise summary of the following content:"
	}

	languageInstruction, ok := languageDirectives[opts.Language]
	if !ok {
		// Unsupported codes degrade to English.
		languageInstruction = "Please provide the summary in English."
	}

	return languageInstruction + " " + lengthInstruction + "\n\n" + content +
		"\n\nAlso provide 3-5 key points from the content in a bullet list format."
}
