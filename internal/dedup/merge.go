// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"github.com/pdiddy/litfiler/pkg/types"
)

// Merge folds the incoming record into the existing one, field by field.
// A field is replaced only when the incoming value carries strictly higher
// confidence, so merging can never lower any field's confidence. Identity
// and filing fields (path, topics, status) stay with the existing record;
// list-valued non-provenance fields are unioned.
func Merge(existing, incoming *types.MetadataRecord) {
	if existing.Provenance == nil {
		existing.Provenance = make(map[types.FieldName]types.Provenance)
	}

	if takes(existing, incoming, types.FieldTitle) {
		existing.Title = incoming.Title
		existing.Provenance[types.FieldTitle] = incoming.Provenance[types.FieldTitle]
	}
	if takes(existing, incoming, types.FieldAuthors) {
		existing.Authors = incoming.Authors
		existing.Provenance[types.FieldAuthors] = incoming.Provenance[types.FieldAuthors]
	}
	if takes(existing, incoming, types.FieldYear) {
		existing.Year = incoming.Year
		existing.Provenance[types.FieldYear] = incoming.Provenance[types.FieldYear]
	}
	if takes(existing, incoming, types.FieldAbstract) {
		existing.Abstract = incoming.Abstract
		existing.Provenance[types.FieldAbstract] = incoming.Provenance[types.FieldAbstract]
	}

	if existing.DOI == "" && incoming.DOI != "" {
		existing.DOI = types.NormalizeDOI(incoming.DOI)
	}
	if existing.Summary == "" {
		existing.Summary = incoming.Summary
	}
	existing.Keywords = unionStrings(existing.Keywords, incoming.Keywords)
	existing.SuggestedTopics = unionStrings(existing.SuggestedTopics, incoming.SuggestedTopics)
}

// takes reports whether the incoming record's field should replace the
// existing one: the incoming field must be filled and carry strictly
// higher confidence, or fill a gap the existing record has.
func takes(existing, incoming *types.MetadataRecord, f types.FieldName) bool {
	if !incoming.FieldFilled(f) {
		return false
	}
	if !existing.FieldFilled(f) {
		return true
	}
	return incoming.FieldConfidence(f) > existing.FieldConfidence(f)
}

func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	out := a
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
