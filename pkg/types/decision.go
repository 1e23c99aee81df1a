// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// FilingStatus is the outcome of the topic matcher for one paper.
type FilingStatus string

const (
	// StatusAutoFiled means the paper was filed to its topic directory
	// without human confirmation.
	StatusAutoFiled FilingStatus = "auto_filed"

	// StatusNeedsReview means no sufficiently confident decision was
	// reached; the best suggestion is carried along for the reviewer.
	StatusNeedsReview FilingStatus = "needs_review"

	// StatusNeedsReviewNewTopic means no existing topic scored
	// meaningfully; the taxonomy itself may be missing a slug. Advisory
	// only, never auto-creates a taxonomy entry.
	StatusNeedsReviewNewTopic FilingStatus = "needs_review_new_topic"

	// StatusUnparseable means no extraction method produced a title; the
	// paper cannot be named or matched.
	StatusUnparseable FilingStatus = "unparseable"

	// StatusCorrupt means the document had no extractable text at all.
	StatusCorrupt FilingStatus = "corrupt"

	// StatusDuplicate means the paper was already present in the index.
	StatusDuplicate FilingStatus = "duplicate"
)

// TopicScore pairs a candidate topic with its adjusted match score.
type TopicScore struct {
	Slug  string  `json:"slug" yaml:"slug"`
	Score float64 `json:"score" yaml:"score"`
}

// FilingDecision is the transient output of the topic matcher.
type FilingDecision struct {
	Status FilingStatus `json:"status" yaml:"status"`

	// Topics holds 1-3 selected slugs in rank order. For needs_review it
	// carries the suggestion; empty for needs_review_new_topic.
	Topics []string `json:"topics,omitempty" yaml:"topics,omitempty"`

	// Scores lists the per-candidate adjusted scores that informed the
	// decision, highest first.
	Scores []TopicScore `json:"match_scores,omitempty" yaml:"match_scores,omitempty"`
}
