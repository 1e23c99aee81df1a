// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/litfiler/pkg/types"
)

const shortTitleMaxWords = 8

// FormatAuthors renders the author list for a filename:
// none -> "Unknown", one -> "Smith", two -> "Smith & Jones",
// three or more -> "Smith et al.".
func FormatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return "Unknown"
	case 1:
		return lastName(authors[0])
	case 2:
		return lastName(authors[0]) + " & " + lastName(authors[1])
	default:
		return lastName(authors[0]) + " et al."
	}
}

// lastName extracts the family name from "Family, I." or "Given Family".
func lastName(name string) string {
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return name
	}
	return fields[len(fields)-1]
}

var trailingBreakRe = regexp.MustCompile(`[:\-—,;]+$`)

// ShortenTitle truncates a title to shortTitleMaxWords words, preferring a
// break at punctuation (a colon before the subtitle, typically) over a
// hard cut, and returns it in Title Case.
func ShortenTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Untitled"
	}

	words := strings.Fields(title)
	if len(words) <= shortTitleMaxWords {
		return titleCase(strings.Join(words, " "))
	}

	for i := shortTitleMaxWords; i >= 1; i-- {
		if strings.ContainsAny(words[i-1], ":-—,;") {
			short := trailingBreakRe.ReplaceAllString(strings.Join(words[:i], " "), "")
			return titleCase(short)
		}
	}

	return titleCase(strings.Join(words[:shortTitleMaxWords], " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		for j, c := range r {
			if j == 0 {
				r[j] = unicode.ToUpper(c)
			} else {
				r[j] = unicode.ToLower(c)
			}
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// filenameReplacer maps filesystem-hostile characters to safe equivalents.
var filenameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", " -",
	"*", "",
	"?", "",
	`"`, "'",
	"<", "",
	">", "",
	"|", "-",
)

var spacesRe = regexp.MustCompile(`\s+`)

// SanitizeFilename makes a filename filesystem-safe and bounds its length,
// preserving the extension when trimming.
func SanitizeFilename(filename string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = 200
	}

	filename = filenameReplacer.Replace(filename)

	var b strings.Builder
	for _, r := range filename {
		if unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	filename = spacesRe.ReplaceAllString(b.String(), " ")

	if len(filename) > maxLength {
		ext := filepath.Ext(filename)
		if ext != "" && len(ext) < maxLength {
			filename = filename[:maxLength-len(ext)] + ext
		} else {
			filename = filename[:maxLength]
		}
	}

	return strings.TrimSpace(filename)
}

// GenerateFilename builds the canonical library filename:
// "Author et al., Year - Short Title.pdf". A record with no year uses the
// current year; the enhancement summary never replaces the title here.
func GenerateFilename(rec *types.MetadataRecord, maxLength int) string {
	year := rec.Year
	if year == 0 {
		year = time.Now().Year()
	}
	name := fmt.Sprintf("%s, %d - %s.pdf", FormatAuthors(rec.Authors), year, ShortenTitle(rec.Title))
	return SanitizeFilename(name, maxLength)
}

// ResolveDuplicateFilename returns a path in destDir that does not exist
// yet, appending " (2)", " (3)", ... before the extension when needed.
func ResolveDuplicateFilename(destDir, filename string) string {
	path := filepath.Join(destDir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	for counter := 2; counter <= 100; counter++ {
		candidate := filepath.Join(destDir, fmt.Sprintf("%s (%d)%s", stem, counter, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}

	// Give up on counters; a timestamp is always unique enough.
	stamp := time.Now().Format("20060102_150405")
	return filepath.Join(destDir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
}
