package executor

import (
	"strings"

	"go-reporting-orchestrator/internal/model"
)

// Rule maps a substring of the execution facility's native error text to a
// failure kind. Matching is case-insensitive; first match wins. And, when
// set, is a second substring that must also be present, so a compound rule
// like "schema" + "not found" can outrank a broader single-substring rule.
type Rule struct {
	Substring string            `json:"substring"`
	And       string            `json:"and,omitempty"`
	Kind      model.FailureKind `json:"kind"`
}

// Classifier is the ordered classification table. It is configuration, not
// inference: the table is fixed up front so retry eligibility is testable.
type Classifier []Rule

// DefaultClassifier covers the failure modes observed against the warehouse.
func DefaultClassifier() Classifier {
	return Classifier{
		// Retry the same code: the code is fine, the trip wasn't.
		{Substring: "network", Kind: model.FailureTransient},
		{Substring: "timeout", Kind: model.FailureTransient},
		{Substring: "timed out", Kind: model.FailureTransient},
		{Substring: "connection reset", Kind: model.FailureTransient},
		{Substring: "connection refused", Kind: model.FailureTransient},
		{Substring: "rate limit", Kind: model.FailureTransient},
		{Substring: "temporarily unavailable", Kind: model.FailureTransient},

		// Abort: retrying cannot acquire credentials or conjure a schema.
		{Substring: "authentication", Kind: model.FailureFatal},
		{Substring: "permission", Kind: model.FailureFatal},
		{Substring: "access denied", Kind: model.FailureFatal},
		{Substring: "unauthorized", Kind: model.FailureFatal},
		{Substring: "schema does not exist", Kind: model.FailureFatal},
		{Substring: "schema", And: "not found", Kind: model.FailureFatal},
		{Substring: "database does not exist", Kind: model.FailureFatal},

		// Regenerate with feedback.
		{Substring: "invalid identifier", Kind: model.FailureCodeDefect},
		{Substring: "not found", Kind: model.FailureCodeDefect},
		{Substring: "is not defined", Kind: model.FailureCodeDefect},
		{Substring: "no module named", Kind: model.FailureCodeDefect},
		{Substring: "missing package", Kind: model.FailureCodeDefect},
		{Substring: "keyerror", Kind: model.FailureCodeDefect},
		{Substring: "type mismatch", Kind: model.FailureCodeDefect},
		{Substring: "typeerror", Kind: model.FailureCodeDefect},
		{Substring: "syntax error", Kind: model.FailureCodeDefect},
	}
}

// Classify maps raw error text to a failure kind. Unmatched errors default to
// CodeDefect: for generated code, assuming repairability is the safer bet.
func (c Classifier) Classify(message string) model.FailureKind {
	lower := strings.ToLower(message)
	for _, r := range c {
		if !strings.Contains(lower, strings.ToLower(r.Substring)) {
			continue
		}
		if r.And != "" && !strings.Contains(lower, strings.ToLower(r.And)) {
			continue
		}
		return r.Kind
	}
	return model.FailureCodeDefect
}

// Failure builds a classified Failure from raw error text.
func (c Classifier) Failure(message string) *model.Failure {
	return &model.Failure{Kind: c.Classify(message), Message: message, RawDetail: message}
}
