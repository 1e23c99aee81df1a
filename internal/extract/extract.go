// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract resolves bibliographic metadata for a PDF by running a
// priority chain of methods: DOI lookup, embedded document properties,
// then LLM parsing of the leading-page text. Each resolved field carries
// the method that produced it and that method's confidence.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pdiddy/litfiler/pkg/types"
)

// FieldValues is one method's contribution: whichever fields the method
// could resolve, zero-valued where it could not.
type FieldValues struct {
	Title    string
	Authors  []string
	Year     int
	Abstract string
	Keywords []string
}

// filled reports whether the named field carries a value.
func (fv FieldValues) filled(f types.FieldName) bool {
	switch f {
	case types.FieldTitle:
		return fv.Title != ""
	case types.FieldAuthors:
		return len(fv.Authors) > 0
	case types.FieldYear:
		return fv.Year != 0
	case types.FieldAbstract:
		return fv.Abstract != ""
	default:
		return false
	}
}

// OutcomeStatus classifies how a method attempt ended.
type OutcomeStatus string

const (
	// OutcomeSuccess: the method produced field values (possibly partial).
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeUnavailable: the method could not run (no DOI found, service
	// down, no API key). The chain continues unaffected.
	OutcomeUnavailable OutcomeStatus = "unavailable"
	// OutcomeInvalid: the method ran but its output failed validation. Its
	// values are discarded; the chain continues.
	OutcomeInvalid OutcomeStatus = "invalid"
)

// MethodOutcome is the result of one extraction method attempt. Values is
// meaningful only when Status is OutcomeSuccess.
type MethodOutcome struct {
	Method types.SourceMethod
	Status OutcomeStatus
	Values FieldValues
	Err    error
}

// DOIResolver fetches metadata for a DOI from a bibliographic service.
type DOIResolver interface {
	Lookup(ctx context.Context, doi string) (FieldValues, error)
}

// TextParser resolves metadata from document text via a language model.
type TextParser interface {
	Parse(ctx context.Context, doc *Document) (FieldValues, error)
}

// Orchestrator runs the extraction chain for one document. Resolver and
// Parser may each be nil, in which case that method reports unavailable.
type Orchestrator struct {
	Resolver DOIResolver
	Parser   TextParser
	MaxPages int
}

// Extract loads the PDF and resolves its metadata. When no method yields a
// title the record is returned alongside ErrNoTitle so the caller can file
// it as unparseable; ErrCorruptDocument means the PDF itself is unreadable.
func (o *Orchestrator) Extract(ctx context.Context, path string) (*types.MetadataRecord, error) {
	doc, err := LoadDocument(path, o.MaxPages)
	if err != nil {
		return nil, err
	}
	return o.ExtractDocument(ctx, doc)
}

// ExtractDocument resolves metadata for an already-loaded document.
func (o *Orchestrator) ExtractDocument(ctx context.Context, doc *Document) (*types.MetadataRecord, error) {
	rec := &types.MetadataRecord{
		FilePath:         doc.Path,
		OriginalFilename: doc.Filename,
		Provenance:       make(map[types.FieldName]types.Provenance),
		ProcessedAt:      time.Now().UTC(),
	}
	if info, err := os.Stat(doc.Path); err == nil {
		rec.FileSize = info.Size()
	}

	doi := DocumentDOI(doc)
	rec.DOI = doi

	outcomes := []MethodOutcome{
		o.tryLookup(ctx, doi),
		o.tryProperties(doc),
	}
	Reduce(rec, outcomes)

	// The LLM runs only when cheaper methods left primary fields open.
	if missingPrimary(rec) {
		llm := o.tryParse(ctx, doc)
		Reduce(rec, []MethodOutcome{llm})
		outcomes = append(outcomes, llm)
	}

	if rec.Title == "" {
		return rec, fmt.Errorf("%w: %s", ErrNoTitle, doc.Filename)
	}
	return rec, nil
}

// Reduce merges method outcomes into the record in the order given. Each
// field keeps the first value offered for it, so earlier outcomes take
// priority; invalid and unavailable outcomes contribute nothing.
func Reduce(rec *types.MetadataRecord, outcomes []MethodOutcome) {
	for _, out := range outcomes {
		if out.Status != OutcomeSuccess {
			continue
		}
		prov := types.Provenance{Method: out.Method, Confidence: out.Method.Confidence()}

		if !rec.FieldFilled(types.FieldTitle) && out.Values.filled(types.FieldTitle) {
			rec.Title = out.Values.Title
			rec.Provenance[types.FieldTitle] = prov
		}
		if !rec.FieldFilled(types.FieldAuthors) && out.Values.filled(types.FieldAuthors) {
			rec.Authors = out.Values.Authors
			rec.Provenance[types.FieldAuthors] = prov
		}
		if !rec.FieldFilled(types.FieldYear) && out.Values.filled(types.FieldYear) {
			rec.Year = out.Values.Year
			rec.Provenance[types.FieldYear] = prov
		}
		if !rec.FieldFilled(types.FieldAbstract) && out.Values.filled(types.FieldAbstract) {
			rec.Abstract = out.Values.Abstract
			rec.Provenance[types.FieldAbstract] = prov
		}
		if len(rec.Keywords) == 0 && len(out.Values.Keywords) > 0 {
			rec.Keywords = out.Values.Keywords
		}
	}
}

func missingPrimary(rec *types.MetadataRecord) bool {
	for _, f := range types.PrimaryFields {
		if !rec.FieldFilled(f) {
			return true
		}
	}
	return false
}

func (o *Orchestrator) tryLookup(ctx context.Context, doi string) MethodOutcome {
	out := MethodOutcome{Method: types.MethodLookup}
	if doi == "" || o.Resolver == nil {
		out.Status = OutcomeUnavailable
		return out
	}

	fv, err := o.Resolver.Lookup(ctx, doi)
	switch {
	case err != nil:
		out.Status = OutcomeUnavailable
		out.Err = err
	case fv.Title == "":
		// Unknown DOI or implausible record.
		out.Status = OutcomeInvalid
	default:
		out.Status = OutcomeSuccess
		out.Values = fv
	}
	return out
}

func (o *Orchestrator) tryProperties(doc *Document) MethodOutcome {
	out := MethodOutcome{Method: types.MethodPDFProps}
	fv := PropertiesFields(doc)
	if fv.Title == "" && len(fv.Authors) == 0 && fv.Year == 0 {
		out.Status = OutcomeInvalid
		return out
	}
	out.Status = OutcomeSuccess
	out.Values = fv
	return out
}

func (o *Orchestrator) tryParse(ctx context.Context, doc *Document) MethodOutcome {
	out := MethodOutcome{Method: types.MethodLLM}
	if o.Parser == nil || doc.Text == "" {
		out.Status = OutcomeUnavailable
		return out
	}

	fv, err := o.Parser.Parse(ctx, doc)
	switch {
	case errors.Is(err, ErrInvalidModelOutput):
		out.Status = OutcomeInvalid
		out.Err = err
	case err != nil:
		out.Status = OutcomeUnavailable
		out.Err = err
	default:
		out.Status = OutcomeSuccess
		out.Values = fv
	}
	return out
}
