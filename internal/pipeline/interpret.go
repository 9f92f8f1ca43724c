package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"go-reporting-orchestrator/internal/llm"
	"go-reporting-orchestrator/internal/model"
)

const interpreterSystemPrompt = `You are a marketing analytics expert explaining a statistical analysis to business stakeholders.
Respond with a single JSON object and nothing else, using exactly these keys:
{"summary": "...", "key_findings": ["..."], "recommendation": "...", "confidence_level": "High|Moderate|Low|Inconclusive"}`

// Interpreter turns successful execution metrics into an Insight. The
// confidence label is computed deterministically from the thresholds; the
// narrative comes from the text-generation capability, with a plain
// threshold-only fallback so a narration failure never fails the run.
type Interpreter struct {
	Gen        llm.Generator
	Thresholds model.ConfidenceThresholds
	Log        *slog.Logger
}

func NewInterpreter(gen llm.Generator, thresholds model.ConfidenceThresholds, log *slog.Logger) *Interpreter {
	return &Interpreter{Gen: gen, Thresholds: thresholds, Log: log}
}

// Interpret derives an Insight from a successful execution. The returned
// Insight always carries the deterministic confidence label, whatever the
// narrative generation did.
func (i *Interpreter) Interpret(ctx context.Context, question string, success *model.Success) (model.Insight, error) {
	confidence := i.ConfidenceFor(success.Metrics)

	insight := model.Insight{
		Confidence: confidence,
		Metrics:    success.Metrics,
	}

	narrated, err := i.narrate(ctx, question, success, confidence)
	if err != nil {
		if i.Log != nil {
			i.Log.Warn("narrative generation failed, using deterministic fallback", "error", err)
		}
		insight.Narrative = fallbackNarrative(success.Metrics, confidence)
		return insight, nil
	}

	insight.Narrative = narrated.Summary
	insight.KeyFindings = narrated.KeyFindings
	insight.Recommendation = narrated.Recommendation
	if insight.Narrative == "" {
		insight.Narrative = fallbackNarrative(success.Metrics, confidence)
	}
	return insight, nil
}

// ConfidenceFor maps metrics to a confidence label. Deterministic: the same
// metrics always produce the same label, regardless of what the narrative
// model claims.
func (i *Interpreter) ConfidenceFor(metrics map[string]interface{}) model.ConfidenceLabel {
	pValue, okP := metricFloat(metrics, "p_value")
	effect, okE := metricFloat(metrics, "treatment_effect")
	if !okP || !okE {
		return model.ConfidenceInconclusive
	}

	switch {
	case pValue < i.Thresholds.PValueHigh && math.Abs(effect) >= i.Thresholds.MinEffect:
		return model.ConfidenceHigh
	case pValue < i.Thresholds.PValueModerate:
		return model.ConfidenceModerate
	default:
		return model.ConfidenceLow
	}
}

type narration struct {
	Summary        string   `json:"summary"`
	KeyFindings    []string `json:"key_findings"`
	Recommendation string   `json:"recommendation"`
	// confidence_level is accepted but ignored: the deterministic label wins.
	ConfidenceLevel string `json:"confidence_level"`
}

func (i *Interpreter) narrate(ctx context.Context, question string, success *model.Success, confidence model.ConfidenceLabel) (narration, error) {
	metricsJSON, err := json.Marshal(success.Metrics)
	if err != nil {
		return narration{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Business question: %s\n\n", question)
	fmt.Fprintf(&b, "Analysis metrics:\n%s\n\n", metricsJSON)
	if len(success.Diagnostics) > 0 {
		diagJSON, _ := json.Marshal(success.Diagnostics)
		fmt.Fprintf(&b, "Diagnostics:\n%s\n\n", diagJSON)
	}
	fmt.Fprintf(&b, "The statistical confidence level has been assessed as %s. ", confidence)
	b.WriteString("Summarize what these results mean for the business, list the key findings, and make one concrete recommendation.")

	raw, err := i.Gen.Generate(ctx, interpreterSystemPrompt, b.String())
	if err != nil {
		return narration{}, err
	}

	var n narration
	if err := json.Unmarshal([]byte(llm.ExtractFenced(raw)), &n); err != nil {
		return narration{}, fmt.Errorf("interpreter returned non-JSON output: %w", err)
	}
	return n, nil
}

// fallbackNarrative is the threshold-only summary used when narration fails.
func fallbackNarrative(metrics map[string]interface{}, confidence model.ConfidenceLabel) string {
	var b strings.Builder
	b.WriteString("Automated summary. ")

	if effect, ok := metricFloat(metrics, "treatment_effect"); ok {
		fmt.Fprintf(&b, "Estimated treatment effect: %.4f. ", effect)
	}
	if p, ok := metricFloat(metrics, "p_value"); ok {
		fmt.Fprintf(&b, "P-value: %.4f. ", p)
	}
	if lift, ok := metricFloat(metrics, "incremental_lift_pct"); ok {
		fmt.Fprintf(&b, "Incremental lift: %.1f%%. ", lift)
	}
	fmt.Fprintf(&b, "Confidence: %s.", confidence)
	return b.String()
}

// metricFloat reads a numeric metric regardless of how the decoder typed it.
func metricFloat(metrics map[string]interface{}, key string) (float64, bool) {
	switch v := metrics[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
