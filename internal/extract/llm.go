// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/pdiddy/litfiler/internal/httputil"
)

// parsePromptTmpl instructs the model to read the leading pages of a paper
// and return bibliographic metadata as strict JSON.
var parsePromptTmpl = template.Must(template.New("parse").Parse(`You are a bibliographic metadata extraction system. Read the following text from the first pages of an academic paper and extract its metadata.

Return a JSON object with these fields:
- title: the full paper title as printed (string, required; use "" if you cannot identify it)
- authors: the author names in order, each formatted as "Family, I." (array of strings; [] if unknown)
- year: the publication year (integer; 0 if unknown)
- abstract: the paper's abstract, verbatim (string; "" if not present in the text)
- keywords: the author-supplied keywords if listed (array of strings; [] if none)

Rules:
- Do not invent values. A field you cannot find must be its empty value.
- The title is the paper's title, never a journal name, section heading, or running header.
- Respond with the JSON object only, no text before or after it.

Paper text:
{{.Text}}
`))

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

// Completer submits a prompt to a text-completion service and returns the
// raw text of the response.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ClaudeBackend calls the Claude Messages API.
type ClaudeBackend struct {
	APIKey     string
	Model      string
	MaxRetries int
	Client     *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Complete sends one user message and returns the first text block of the
// reply.
func (c *ClaudeBackend) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := claudeRequest{
		Model:     c.Model,
		MaxTokens: 4096,
		Messages: []claudeMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claudeAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(bodyBytes)), nil
	}

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	for _, block := range cResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in Claude API response")
}

// parsedMetadata is the JSON shape the parse prompt demands.
type parsedMetadata struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     int      `json:"year"`
	Abstract string   `json:"abstract"`
	Keywords []string `json:"keywords"`
}

// LLMParser resolves metadata fields by prompting a completion service
// with the leading-page text.
type LLMParser struct {
	Backend  Completer
	MaxChars int
}

// Parse prompts the model and validates the reply. Validation failures
// return ErrInvalidModelOutput so the orchestrator treats the method's
// output as absent rather than aborting the paper.
func (p *LLMParser) Parse(ctx context.Context, doc *Document) (FieldValues, error) {
	var buf bytes.Buffer
	data := struct{ Text string }{Text: TruncateForLLM(doc.Text, p.MaxChars)}
	if err := parsePromptTmpl.Execute(&buf, data); err != nil {
		return FieldValues{}, fmt.Errorf("rendering parse prompt: %w", err)
	}

	raw, err := p.Backend.Complete(ctx, buf.String())
	if err != nil {
		return FieldValues{}, err
	}

	var parsed parsedMetadata
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return FieldValues{}, fmt.Errorf("%w: %v", ErrInvalidModelOutput, err)
	}

	fv := FieldValues{
		Authors:  cleanStrings(parsed.Authors),
		Abstract: NormalizeWhitespace(parsed.Abstract),
		Keywords: cleanStrings(parsed.Keywords),
	}
	if plausibleTitle(parsed.Title) {
		fv.Title = NormalizeWhitespace(parsed.Title)
	}
	if parsed.Year >= 1900 && parsed.Year <= time.Now().Year()+1 {
		fv.Year = parsed.Year
	}
	return fv, nil
}

// extractJSONObject trims everything outside the outermost braces. Models
// occasionally wrap JSON in code fences despite instructions.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		s = NormalizeWhitespace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
