// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockCompleter returns a canned response or a forced error.
type mockCompleter struct {
	response string
	err      error
	prompts  []string
}

func (m *mockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func TestLLMParserParse(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantTitle string
		wantYear  int
		wantErr   error
	}{
		{
			name:      "clean json",
			response:  `{"title": "Spectral prediction of soil organic carbon stocks", "authors": ["Smith, J."], "year": 2023, "abstract": "We predict carbon.", "keywords": ["vis-NIR"]}`,
			wantTitle: "Spectral prediction of soil organic carbon stocks",
			wantYear:  2023,
		},
		{
			name:      "json wrapped in code fence",
			response:  "```json\n{\"title\": \"Spectral prediction of soil organic carbon stocks\", \"authors\": [], \"year\": 0, \"abstract\": \"\", \"keywords\": []}\n```",
			wantTitle: "Spectral prediction of soil organic carbon stocks",
		},
		{
			name:     "not json",
			response: "I could not find any metadata in this text.",
			wantErr:  ErrInvalidModelOutput,
		},
		{
			name:      "implausible title dropped, rest kept",
			response:  `{"title": "References", "authors": ["Smith, J."], "year": 2021, "abstract": "", "keywords": []}`,
			wantTitle: "",
			wantYear:  2021,
		},
		{
			name:      "future year dropped",
			response:  `{"title": "Spectral prediction of soil organic carbon stocks", "authors": [], "year": 2099, "abstract": "", "keywords": []}`,
			wantTitle: "Spectral prediction of soil organic carbon stocks",
			wantYear:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &LLMParser{Backend: &mockCompleter{response: tt.response}}
			doc := &Document{Filename: "paper.pdf", Text: "some leading page text"}

			fv, err := parser.Parse(context.Background(), doc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if fv.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", fv.Title, tt.wantTitle)
			}
			if fv.Year != tt.wantYear {
				t.Errorf("Year = %d, want %d", fv.Year, tt.wantYear)
			}
		})
	}
}

func TestLLMParserTruncatesText(t *testing.T) {
	mock := &mockCompleter{response: `{"title": "Spectral prediction of soil organic carbon stocks", "authors": [], "year": 0, "abstract": "", "keywords": []}`}
	parser := &LLMParser{Backend: mock, MaxChars: 100}
	doc := &Document{Filename: "paper.pdf", Text: strings.Repeat("soil carbon measurement ", 50)}

	if _, err := parser.Parse(context.Background(), doc); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(mock.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(mock.prompts))
	}
	if !strings.Contains(mock.prompts[0], "[... text truncated ...]") {
		t.Error("prompt should contain the truncation marker")
	}
}

func TestClaudeBackendComplete(t *testing.T) {
	var gotKey, gotVersion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		fmt.Fprint(w, `{"content": [{"type": "text", "text": "hello from model"}]}`)
	}))
	defer srv.Close()

	orig := claudeAPIURL
	claudeAPIURL = srv.URL
	defer func() { claudeAPIURL = orig }()

	backend := &ClaudeBackend{APIKey: "ak_test", Model: "test-model", MaxRetries: 1}
	got, err := backend.Complete(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hello from model" {
		t.Errorf("Complete() = %q, want %q", got, "hello from model")
	}
	if gotKey != "ak_test" {
		t.Errorf("x-api-key = %q, want %q", gotKey, "ak_test")
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version = %q, want %q", gotVersion, "2023-06-01")
	}
}

func TestClaudeBackendRetriesOverload(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"content": [{"type": "text", "text": "ok"}]}`)
	}))
	defer srv.Close()

	orig := claudeAPIURL
	claudeAPIURL = srv.URL
	defer func() { claudeAPIURL = orig }()

	backend := &ClaudeBackend{APIKey: "ak_test", Model: "test-model", MaxRetries: 3}
	got, err := backend.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("Complete() = %q, want %q", got, "ok")
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}
