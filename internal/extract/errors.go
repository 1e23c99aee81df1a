// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "errors"

// Sentinel errors for routing extraction outcomes. Callers classify with
// errors.Is; none of these abort a batch on their own.
var (
	// ErrCorruptDocument marks a PDF with no extractable text at all
	// (unreadable or scanned-image). Terminal: no extraction method can
	// help.
	ErrCorruptDocument = errors.New("document has no extractable text")

	// ErrNoTitle marks a paper for which no method produced a usable
	// title. The paper cannot be named or matched.
	ErrNoTitle = errors.New("no extraction method produced a title")

	// ErrLookupUnavailable marks a transient lookup-service failure after
	// the retry budget is spent. The method falls through the priority
	// chain.
	ErrLookupUnavailable = errors.New("bibliographic lookup unavailable")

	// ErrInvalidModelOutput marks an LLM response that failed schema or
	// taxonomy validation. The method's output is treated as absent.
	ErrInvalidModelOutput = errors.New("model output failed validation")
)
