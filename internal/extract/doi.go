// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdiddy/litfiler/internal/httputil"
	"github.com/pdiddy/litfiler/pkg/types"
)

// crossrefAPIBase is the CrossRef works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works/"

// doiPattern matches DOIs embedded in running text: "10.1145/1234567.89".
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[-._;()/:a-zA-Z0-9]+`)

// minDOILength filters truncated DOIs that appear in URLs and reference
// lists, e.g. "10.1073/pnas." cut off at a line break.
const minDOILength = 15

// FindDOI scans text for DOI patterns and returns the longest plausible
// match in normalized form, or "" when none is found.
func FindDOI(text string) string {
	matches := doiPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return ""
	}

	best := ""
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;)")
		if len(m) < minDOILength {
			continue
		}
		if len(m) > len(best) {
			best = m
		}
	}
	if best == "" {
		// Fall back to the longest raw match rather than none.
		for _, m := range matches {
			if len(m) > len(best) {
				best = m
			}
		}
	}
	return types.NormalizeDOI(best)
}

// DocumentDOI looks for a DOI in, in order: embedded properties (Subject
// and Keywords fields carry DOIs surprisingly often), the filename, and
// the leading-page text.
func DocumentDOI(doc *Document) string {
	for _, hay := range []string{doc.Info.Subject, doc.Info.Keywords, doc.Filename, doc.Text} {
		if doi := FindDOI(hay); doi != "" {
			return doi
		}
	}
	return ""
}

// crossrefResponse captures the fields we need from a CrossRef work record.
type crossrefResponse struct {
	Message crossrefMessage `json:"message"`
}

type crossrefMessage struct {
	Title           []string         `json:"title"`
	Abstract        string           `json:"abstract"`
	Author          []crossrefAuthor `json:"author"`
	Subject         []string         `json:"subject"`
	PublishedPrint  *crossrefDate    `json:"published-print"`
	PublishedOnline *crossrefDate    `json:"published-online"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

// LookupClient queries the bibliographic metadata service by DOI.
type LookupClient struct {
	Client *http.Client
	Config types.LookupConfig
}

// Lookup fetches metadata for a DOI. A 404 (unknown DOI) returns empty
// fields and nil error; transport failures and persistent 429/5xx return
// ErrLookupUnavailable so the orchestrator falls through the chain.
func (c *LookupClient) Lookup(ctx context.Context, doi string) (FieldValues, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+doi, nil)
	if err != nil {
		return FieldValues{}, fmt.Errorf("creating CrossRef request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent())

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, c.Config.MaxRetries)
	if err != nil {
		return FieldValues{}, fmt.Errorf("%w: %v", ErrLookupUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return FieldValues{}, nil
	default:
		return FieldValues{}, fmt.Errorf("%w: CrossRef returned HTTP %d", ErrLookupUnavailable, resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return FieldValues{}, fmt.Errorf("%w: parsing CrossRef response: %v", ErrLookupUnavailable, err)
	}

	fv := fieldsFromCrossref(cr.Message)
	if !plausibleTitle(fv.Title) {
		// A lookup that resolves to front matter or an erratum stub is
		// worse than no lookup.
		return FieldValues{}, nil
	}
	return fv, nil
}

func (c *LookupClient) userAgent() string {
	ua := c.Config.UserAgent
	if ua == "" {
		ua = "litfiler/0.1"
	}
	if c.Config.Email != "" {
		ua += " (mailto:" + c.Config.Email + ")"
	}
	return ua
}

// fixCaps repairs all-caps family names ("SMITH" to "Smith") while leaving
// mixed-case names like "McDonald" alone.
func fixCaps(name string) string {
	if name != strings.ToUpper(name) {
		return name
	}
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

func fieldsFromCrossref(msg crossrefMessage) FieldValues {
	var fv FieldValues

	if len(msg.Title) > 0 {
		fv.Title = NormalizeWhitespace(msg.Title[0])
	}

	for _, a := range msg.Author {
		if a.Family == "" {
			continue
		}
		family := fixCaps(a.Family)
		if a.Given != "" {
			fv.Authors = append(fv.Authors, fmt.Sprintf("%s, %s.", family, strings.ToUpper(a.Given[:1])))
		} else {
			fv.Authors = append(fv.Authors, family)
		}
	}

	published := msg.PublishedPrint
	if published == nil {
		published = msg.PublishedOnline
	}
	if published != nil && len(published.DateParts) > 0 && len(published.DateParts[0]) > 0 {
		fv.Year = published.DateParts[0][0]
	}

	if msg.Abstract != "" {
		// CrossRef abstracts often carry JATS XML tags.
		fv.Abstract = NormalizeWhitespace(xmlTagRe.ReplaceAllString(msg.Abstract, ""))
	}

	fv.Keywords = append(fv.Keywords, msg.Subject...)
	return fv
}

// badTitleStems flags lookup results that describe journal apparatus, not
// a paper.
var badTitleStems = []string{
	"acknowledgement", "references", "bibliography", "table of contents",
	"contents", "index", "appendix", "supplementary", "erratum",
	"corrigendum", "retraction", "front matter", "back matter",
}

// plausibleTitle rejects obviously bad titles: apparatus stems on short
// strings, bare numbers, and anything under 10 characters.
func plausibleTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if len(t) < 10 {
		return false
	}
	if len(t) < 50 {
		for _, bad := range badTitleStems {
			if strings.Contains(t, bad) {
				return false
			}
		}
	}
	digitsOnly := strings.NewReplacer(".", "", " ", "").Replace(t)
	if digitsOnly != "" && strings.Trim(digitsOnly, "0123456789") == "" {
		return false
	}
	return true
}
