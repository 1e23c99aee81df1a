// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// softwareStrings are producer artifacts that show up in Title/Author
// properties when the authoring tool filled them in.
var softwareStrings = []string{
	"microsoft word", "adobe", "acrobat", "latex", "pdflatex", "xelatex",
	"ghostscript", "libreoffice", "openoffice", "pages", "powerpoint",
	"untitled", "print to pdf", "pdfcreator", "dvips", "texshop",
	"elsevier", "springer", "arbortext", "indesign",
}

// PropertiesFields reads the embedded document properties, applying the
// garble heuristics: a property value is used only when it is non-empty,
// mostly printable, and not a filename or authoring-software artifact.
func PropertiesFields(doc *Document) FieldValues {
	var fv FieldValues

	if usableTitle(doc.Info.Title, doc.Filename) {
		fv.Title = NormalizeWhitespace(doc.Info.Title)
	}
	if usableProperty(doc.Info.Author) {
		fv.Authors = splitAuthors(doc.Info.Author)
	}
	if y := yearFromPDFDate(doc.Info.CreationDate); y != 0 {
		fv.Year = y
	}
	if kw := strings.TrimSpace(doc.Info.Keywords); usableProperty(kw) && FindDOI(kw) == "" {
		fv.Keywords = splitKeywords(kw)
	}

	return fv
}

// usableTitle applies the title-specific heuristics on top of the general
// ones: the title must not be the filename (with or without extension) and
// must not look like a file path.
func usableTitle(title, filename string) bool {
	if !usableProperty(title) {
		return false
	}
	t := strings.ToLower(strings.TrimSpace(title))
	f := strings.ToLower(filename)
	if t == f || t == strings.TrimSuffix(f, ".pdf") {
		return false
	}
	if strings.HasSuffix(t, ".pdf") || strings.HasSuffix(t, ".doc") ||
		strings.HasSuffix(t, ".docx") || strings.HasSuffix(t, ".tex") {
		return false
	}
	if !plausibleTitle(title) {
		return false
	}
	return true
}

// usableProperty applies the general garble heuristics: non-empty after
// trimming, mostly printable characters, and not an authoring-software
// string.
func usableProperty(value string) bool {
	v := strings.TrimSpace(value)
	if len(v) < 3 {
		return false
	}

	printable := 0
	for _, r := range v {
		if unicode.IsPrint(r) && r != unicode.ReplacementChar {
			printable++
		}
	}
	if float64(printable) < 0.9*float64(len([]rune(v))) {
		return false
	}

	lower := strings.ToLower(v)
	for _, s := range softwareStrings {
		if strings.Contains(lower, s) {
			return false
		}
	}
	return true
}

// splitAuthors breaks an Author property on the common delimiters. Values
// like "John Smith; Jane Doe" or "Smith, J. and Doe, J." both appear in
// the wild.
func splitAuthors(value string) []string {
	var parts []string
	switch {
	case strings.Contains(value, ";"):
		parts = strings.Split(value, ";")
	case strings.Contains(value, " and "):
		parts = strings.Split(value, " and ")
	case strings.Contains(value, " & "):
		parts = strings.Split(value, " & ")
	default:
		parts = []string{value}
	}

	var authors []string
	for _, p := range parts {
		p = NormalizeWhitespace(p)
		if p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}

func splitKeywords(value string) []string {
	sep := ","
	if strings.Contains(value, ";") {
		sep = ";"
	}
	var keywords []string
	for _, k := range strings.Split(value, sep) {
		k = NormalizeWhitespace(k)
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

var pdfDateRe = regexp.MustCompile(`D:(\d{4})`)

// yearFromPDFDate pulls the year from a PDF date string ("D:20230115...").
// Years outside a plausible publication window are discarded since creation
// dates reflect when the file was produced, not necessarily published, but
// a wildly wrong year is worse than none.
func yearFromPDFDate(date string) int {
	m := pdfDateRe.FindStringSubmatch(date)
	if m == nil {
		return 0
	}
	year := 0
	for _, c := range m[1] {
		year = year*10 + int(c-'0')
	}
	if year < 1900 || year > time.Now().Year()+1 {
		return 0
	}
	return year
}
