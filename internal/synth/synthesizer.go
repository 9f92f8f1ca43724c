// Package synth turns a business question plus a schema context into
// executable analysis code via the text-generation capability.
package synth

import (
	"context"
	"fmt"
	"log/slog"

	"go-reporting-orchestrator/internal/llm"
	"go-reporting-orchestrator/internal/model"
)

// Synthesizer produces one GeneratedCode per attempt. It is stateless between
// calls: everything an attempt depends on arrives through the arguments.
type Synthesizer struct {
	Gen      llm.Generator
	Packages []string
	Log      *slog.Logger
}

func NewSynthesizer(gen llm.Generator, packages []string, log *slog.Logger) *Synthesizer {
	return &Synthesizer{Gen: gen, Packages: packages, Log: log}
}

// Synthesize generates analysis code for the given attempt. priorFailure, when
// set, is included in the prompt verbatim. The returned code has passed the
// static checks; a static check failure is returned as a *model.Failure so the
// repair loop can treat it like any other code defect.
func (s *Synthesizer) Synthesize(ctx context.Context, req model.AnalysisRequest, sc model.SchemaContext, attempt int, priorFailure *model.Failure) (model.GeneratedCode, *model.Failure, error) {
	prompt := buildPrompt(req, sc, s.Packages, priorFailure)

	if s.Log != nil {
		s.Log.Info("synthesizing analysis code", "attempt", attempt, "withFeedback", priorFailure != nil)
	}

	raw, err := s.Gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return model.GeneratedCode{}, nil, fmt.Errorf("code generation failed: %w", err)
	}

	code := model.GeneratedCode{
		Source:          llm.ExtractFenced(raw),
		AttemptNumber:   attempt,
		BasedOnFeedback: priorFailure,
	}

	if f := Check(code.Source, sc, s.Packages); f != nil {
		if s.Log != nil {
			s.Log.Warn("generated code failed static checks", "attempt", attempt, "error", f.Message)
		}
		return code, f, nil
	}
	return code, nil, nil
}
