// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/pdiddy/litfiler/pkg/types"
)

// enhancePromptTmpl asks the model for a compact finding summary and topic
// suggestions drawn from a closed list.
var enhancePromptTmpl = template.Must(template.New("enhance").Parse(`You are a research librarian summarizing an academic paper for a filing system.

Paper title: {{.Title}}
{{if .Abstract}}Abstract: {{.Abstract}}{{end}}

Produce exactly two lines:

SUMMARY: a 4-6 word phrase in Title Case capturing the paper's central finding or contribution. No trailing period.
TOPICS: one to {{.MaxTopics}} topic slugs from the allowed list below, separated by " | ", most relevant first. Use only slugs from the list, exactly as written.

Allowed topics:
{{.TopicList}}

Respond with the two lines only.
`))

// SlugValidator validates topic slugs against the closed taxonomy.
type SlugValidator interface {
	// Contains reports whether the slug exists in the taxonomy.
	Contains(slug string) bool
	// PairingAllowed reports whether two slugs may be assigned together.
	PairingAllowed(a, b string) bool
	// FormatForPrompt renders the allowed slugs for inclusion in a prompt.
	FormatForPrompt() string
	// MaxTopics is the per-paper topic cap.
	MaxTopics() int
}

// Enhancer generates the short summary and suggested topics for a resolved
// record. Enhancement is best-effort: any failure leaves the fields empty
// and never fails the paper.
type Enhancer struct {
	Backend  Completer
	Taxonomy SlugValidator
}

// Enhance fills rec.Summary and rec.SuggestedTopics from the model. The
// returned error is ErrInvalidModelOutput (or a transport error) when the
// reply could not be used; the record is untouched in that case.
func (e *Enhancer) Enhance(ctx context.Context, rec *types.MetadataRecord) error {
	if rec.Title == "" {
		return fmt.Errorf("%w: record has no title", ErrInvalidModelOutput)
	}

	var buf bytes.Buffer
	data := struct {
		Title, Abstract, TopicList string
		MaxTopics                  int
	}{
		Title:     rec.Title,
		Abstract:  TruncateForLLM(rec.Abstract, 2000),
		TopicList: e.Taxonomy.FormatForPrompt(),
		MaxTopics: e.Taxonomy.MaxTopics(),
	}
	if err := enhancePromptTmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering enhance prompt: %w", err)
	}

	raw, err := e.Backend.Complete(ctx, buf.String())
	if err != nil {
		return err
	}

	summary, topics, err := e.parseReply(raw)
	if err != nil {
		return err
	}

	rec.Summary = summary
	rec.SuggestedTopics = topics
	return nil
}

func (e *Enhancer) parseReply(raw string) (string, []string, error) {
	var summary string
	var topics []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SUMMARY:"):
			summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "TOPICS:"):
			for _, slug := range strings.Split(strings.TrimPrefix(line, "TOPICS:"), "|") {
				slug = strings.ToLower(strings.TrimSpace(slug))
				if slug != "" {
					topics = append(topics, slug)
				}
			}
		}
	}

	if err := validateSummary(summary); err != nil {
		return "", nil, err
	}
	topics, err := e.validateTopics(topics)
	if err != nil {
		return "", nil, err
	}
	return summary, topics, nil
}

// validateSummary enforces the 4-6 word Title Case contract, with a word of
// slack either side for articles the model insists on.
func validateSummary(summary string) error {
	summary = strings.TrimSuffix(summary, ".")
	words := strings.Fields(summary)
	if len(words) < 3 || len(words) > 7 {
		return fmt.Errorf("%w: summary has %d words", ErrInvalidModelOutput, len(words))
	}
	capitalized := 0
	for _, w := range words {
		r := []rune(w)
		if unicode.IsUpper(r[0]) || unicode.IsDigit(r[0]) {
			capitalized++
		}
	}
	// Title Case leaves short connectives lowercase, so demand a majority,
	// not all.
	if capitalized*2 < len(words) {
		return fmt.Errorf("%w: summary not in Title Case: %q", ErrInvalidModelOutput, summary)
	}
	return nil
}

// validateTopics enforces the closed taxonomy, the pairing rules, and the
// cap. A single unknown slug invalidates the whole suggestion set since the
// model has shown it is not following the list.
func (e *Enhancer) validateTopics(topics []string) ([]string, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("%w: no topics suggested", ErrInvalidModelOutput)
	}
	if max := e.Taxonomy.MaxTopics(); len(topics) > max {
		topics = topics[:max]
	}

	seen := make(map[string]bool, len(topics))
	var out []string
	for _, slug := range topics {
		if seen[slug] {
			continue
		}
		if !e.Taxonomy.Contains(slug) {
			return nil, fmt.Errorf("%w: unknown topic slug %q", ErrInvalidModelOutput, slug)
		}
		seen[slug] = true
		out = append(out, slug)
	}

	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if !e.Taxonomy.PairingAllowed(out[i], out[j]) {
				return nil, fmt.Errorf("%w: topics %q and %q may not be paired", ErrInvalidModelOutput, out[i], out[j])
			}
		}
	}
	return out, nil
}
