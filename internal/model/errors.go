package model

import "fmt"

// FailureKind drives retry eligibility in the repair loop.
type FailureKind string

const (
	// FailureTransient means the same code should be retried as-is (network
	// blip, warehouse hiccup). Regenerating cannot fix it.
	FailureTransient FailureKind = "transient"
	// FailureCodeDefect means the generated code itself is wrong and a fresh
	// attempt informed by this failure may repair it.
	FailureCodeDefect FailureKind = "code_defect"
	// FailureFatal means no retry can help (credentials, missing schema).
	FailureFatal FailureKind = "fatal"
)

// Failure is a classified execution failure. RawDetail keeps the facility's
// native error text for diagnostics; Message is what gets fed back into the
// next synthesis prompt.
type Failure struct {
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	RawDetail string      `json:"rawDetail,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure builds a Failure with Message doubling as RawDetail.
func NewFailure(kind FailureKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message, RawDetail: message}
}
