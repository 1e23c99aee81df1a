// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// SourceMethod identifies which extraction method produced a field value.
type SourceMethod string

const (
	MethodLookup   SourceMethod = "doi_lookup"
	MethodPDFProps SourceMethod = "pdf_properties"
	MethodLLM      SourceMethod = "llm_parsing"
)

// Confidence returns the fixed trust score assigned to values produced by
// this method: 0.95 for bibliographic lookup, 0.70 for embedded PDF
// properties, 0.80 for LLM parsing.
func (m SourceMethod) Confidence() float64 {
	switch m {
	case MethodLookup:
		return 0.95
	case MethodPDFProps:
		return 0.70
	case MethodLLM:
		return 0.80
	default:
		return 0.0
	}
}

// FieldName names a metadata field that carries per-field provenance.
type FieldName string

const (
	FieldTitle    FieldName = "title"
	FieldAuthors  FieldName = "authors"
	FieldYear     FieldName = "year"
	FieldAbstract FieldName = "abstract"
)

// PrimaryFields lists the fields the extraction orchestrator resolves in
// priority order.
var PrimaryFields = []FieldName{FieldTitle, FieldAuthors, FieldYear, FieldAbstract}

// Provenance records which method supplied a field together with that
// method's confidence. The two always travel as a pair: a field is either
// unresolved (no Provenance entry) or carries both.
type Provenance struct {
	Method     SourceMethod `json:"method" yaml:"method"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
}

// MetadataRecord is the canonical description of one paper in the library.
type MetadataRecord struct {
	// DOI is the normalized DOI, empty when none was found. Unique key
	// when present.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors" yaml:"authors"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Summary is the LLM-generated short finding summary (4-6 words,
	// Title Case), empty when enhancement failed or was skipped.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// SuggestedTopics holds taxonomy slugs proposed by the enhancement
	// pass, already validated against the closed taxonomy.
	SuggestedTopics []string `json:"suggested_topics,omitempty" yaml:"suggested_topics,omitempty"`

	// Provenance maps each resolved field to the method that supplied it.
	Provenance map[FieldName]Provenance `json:"provenance" yaml:"provenance"`

	// Topics lists the taxonomy slugs the paper was filed under, in rank
	// order. Empty until a filing decision is applied.
	Topics []string `json:"topics,omitempty" yaml:"topics,omitempty"`

	// MatchScore is the adjusted score of the top matched topic.
	MatchScore float64 `json:"match_score,omitempty" yaml:"match_score,omitempty"`

	// Status is the terminal filing status of the last pipeline run.
	Status FilingStatus `json:"status,omitempty" yaml:"status,omitempty"`

	FilePath         string    `json:"file_path" yaml:"file_path"`
	FileHash         string    `json:"file_hash,omitempty" yaml:"file_hash,omitempty"`
	FileSize         int64     `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty" yaml:"original_filename,omitempty"`
	ProcessedAt      time.Time `json:"processed_at,omitempty" yaml:"processed_at,omitempty"`
}

// FieldConfidence returns the confidence of a field, or 0 when the field is
// unresolved.
func (r *MetadataRecord) FieldConfidence(f FieldName) float64 {
	p, ok := r.Provenance[f]
	if !ok {
		return 0
	}
	return p.Confidence
}

// FieldFilled reports whether the named field holds a non-empty value.
func (r *MetadataRecord) FieldFilled(f FieldName) bool {
	switch f {
	case FieldTitle:
		return r.Title != ""
	case FieldAuthors:
		return len(r.Authors) > 0
	case FieldYear:
		return r.Year != 0
	case FieldAbstract:
		return r.Abstract != ""
	default:
		return false
	}
}

// OverallConfidence is the weakest-link combination: the minimum confidence
// across the primary fields, with unresolved fields counted as 0.
func (r *MetadataRecord) OverallConfidence() float64 {
	min := 1.0
	for _, f := range PrimaryFields {
		c := 0.0
		if r.FieldFilled(f) {
			c = r.FieldConfidence(f)
		}
		if c < min {
			min = c
		}
	}
	return min
}

// ID returns the stable paper id: the normalized DOI when present,
// otherwise the content fingerprint.
func (r *MetadataRecord) ID() string {
	if r.DOI != "" {
		return NormalizeDOI(r.DOI)
	}
	return r.FileHash
}

// NormalizeDOI lowercases a DOI and strips resolver URL prefixes so that
// equality comparison is form-insensitive.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return doi
}
