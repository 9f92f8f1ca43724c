package model

import "time"

// AnalysisRequest is the struct for POST /api/v1/runs. Immutable once created.
type AnalysisRequest struct {
	Question    string    `json:"question"`
	MethodHint  string    `json:"methodHint,omitempty"` // e.g. propensity_score_matching, difference_in_differences
	RequestedAt time.Time `json:"requestedAt"`
}

// Column describes a single queryable column.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Table describes a single queryable table.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// SchemaContext is the static description of the data source's queryable shape.
// Loaded once per run and never mutated.
type SchemaContext struct {
	Tables []Table `json:"tables" yaml:"tables"`
}

// GeneratedCode is one synthesized analysis script. A new instance is created
// per attempt; superseded instances are kept in the attempt history for audit.
type GeneratedCode struct {
	Source          string   `json:"source"`
	AttemptNumber   int      `json:"attemptNumber"`
	BasedOnFeedback *Failure `json:"basedOnFeedback,omitempty"`
}

// Success holds the structured output of a completed remote execution.
// Metrics is a flat mapping of primitive values; anything nested lives in
// Diagnostics.
type Success struct {
	Metrics     map[string]interface{} `json:"metrics"`
	Diagnostics map[string]interface{} `json:"diagnostics,omitempty"`
}

// ExecutionResult is produced exactly once per executor invocation. Exactly one
// of Success or Failure is set.
type ExecutionResult struct {
	Success *Success `json:"success,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// RepairAttempt is one (generated code, execution result) pair in a run's
// self-healing history.
type RepairAttempt struct {
	Code   GeneratedCode   `json:"code"`
	Result ExecutionResult `json:"result"`
}

// DecisionStatus is the lifecycle of a human approval checkpoint.
type DecisionStatus string

const (
	DecisionPending  DecisionStatus = "pending"
	DecisionApproved DecisionStatus = "approved"
	DecisionRejected DecisionStatus = "rejected"
)

// ValidationDecision suspends a run until an external actor (or the timeout
// policy) resolves it. Created pending, resolved exactly once.
type ValidationDecision struct {
	ID        string         `json:"id"`
	RunID     string         `json:"runId"`
	Status    DecisionStatus `json:"status"`
	DecidedBy string         `json:"decidedBy,omitempty"`
	DecidedAt *time.Time     `json:"decidedAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ConfidenceLabel qualifies how much weight a finding should carry.
type ConfidenceLabel string

const (
	ConfidenceHigh         ConfidenceLabel = "High"
	ConfidenceModerate     ConfidenceLabel = "Moderate"
	ConfidenceLow          ConfidenceLabel = "Low"
	ConfidenceInconclusive ConfidenceLabel = "Inconclusive"
)

// Insight is the natural-language reading of a successful analysis.
type Insight struct {
	Narrative      string                 `json:"narrative"`
	KeyFindings    []string               `json:"keyFindings,omitempty"`
	Recommendation string                 `json:"recommendation,omitempty"`
	Confidence     ConfidenceLabel        `json:"confidence"`
	Metrics        map[string]interface{} `json:"metrics"`
}

// Persona is a stakeholder category with its own artifact format and channels.
type Persona string

const (
	PersonaCMO          Persona = "cmo"
	PersonaMarketingOps Persona = "marketing_ops"
	PersonaDataTeam     Persona = "data_team"
)

// AllPersonas lists every persona a run renders for, in delivery order.
var AllPersonas = []Persona{PersonaCMO, PersonaMarketingOps, PersonaDataTeam}

// Channel is a delivery mechanism.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
)

// Attachment is a binary blob shipped with an artifact.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// PersonaArtifact is one rendered report, one per persona per run.
type PersonaArtifact struct {
	Persona     Persona      `json:"persona"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"` // HTML
	Attachments []Attachment `json:"attachments,omitempty"`
}

// DeliveryStatus is the outcome of a single (persona, channel) send.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryRecord records one delivery attempt. Failures are recorded, never
// raised to abort sibling deliveries.
type DeliveryRecord struct {
	Persona   Persona        `json:"persona"`
	Channel   Channel        `json:"channel"`
	Status    DeliveryStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	SentAt    time.Time      `json:"sentAt"`
}

// RunStatus tracks a run through the pipeline. The last four are terminal.
type RunStatus string

const (
	RunPending          RunStatus = "pending"
	RunGenerating       RunStatus = "generating"
	RunExecuting        RunStatus = "executing"
	RunAwaitingApproval RunStatus = "awaiting_approval"
	RunInterpreting     RunStatus = "interpreting"
	RunRendering        RunStatus = "rendering"
	RunDistributing     RunStatus = "distributing"

	RunDelivered       RunStatus = "delivered"
	RunRejected        RunStatus = "rejected"
	RunRepairExhausted RunStatus = "repair_exhausted"
	RunFatalError      RunStatus = "fatal_error"
)

// Terminal reports whether a status ends the run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunDelivered, RunRejected, RunRepairExhausted, RunFatalError:
		return true
	}
	return false
}
