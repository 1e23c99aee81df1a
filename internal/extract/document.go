// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DocInfo holds the embedded document-information properties of a PDF.
type DocInfo struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	CreationDate string
}

// Document is the locally recoverable view of one PDF: leading-page text
// plus embedded properties. Built once per pipeline run and shared by all
// extraction methods.
type Document struct {
	Path     string
	Filename string
	Text     string
	Info     DocInfo
	Pages    int
}

// LoadDocument opens a PDF and extracts the leading maxPages of text and
// the embedded properties. It returns ErrCorruptDocument when the file
// cannot be parsed as a PDF or yields no text at all.
func LoadDocument(path string, maxPages int) (*Document, error) {
	if maxPages <= 0 {
		maxPages = 3
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, filepath.Base(path), err)
	}
	defer f.Close()

	doc := &Document{
		Path:     path,
		Filename: filepath.Base(path),
		Pages:    r.NumPage(),
		Info:     readDocInfo(r),
	}

	if doc.Pages == 0 {
		return nil, fmt.Errorf("%w: %s: zero pages", ErrCorruptDocument, doc.Filename)
	}

	var parts []string
	for i := 1; i <= doc.Pages && i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	doc.Text = NormalizeWhitespace(strings.Join(parts, " "))

	// Properties alone can still carry a title; only a document with
	// neither text nor properties is terminally unreadable.
	if doc.Text == "" && doc.Info.Title == "" && doc.Info.Author == "" {
		return nil, fmt.Errorf("%w: %s", ErrCorruptDocument, doc.Filename)
	}

	return doc, nil
}

// readDocInfo pulls the /Info dictionary fields, tolerating malformed or
// absent entries.
func readDocInfo(r *pdf.Reader) DocInfo {
	defer func() { recover() }() // malformed xref entries panic inside the parser

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return DocInfo{}
	}
	return DocInfo{
		Title:        strings.TrimSpace(info.Key("Title").Text()),
		Author:       strings.TrimSpace(info.Key("Author").Text()),
		Subject:      strings.TrimSpace(info.Key("Subject").Text()),
		Keywords:     strings.TrimSpace(info.Key("Keywords").Text()),
		CreationDate: strings.TrimSpace(info.Key("CreationDate").Text()),
	}
}

// TruncateForLLM bounds text submitted to the completion service.
// Roughly 4 chars per token, so 16000 chars is about 4000 tokens.
func TruncateForLLM(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 16000
	}
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "\n\n[... text truncated ...]"
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeWhitespace collapses runs of whitespace to single spaces.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
