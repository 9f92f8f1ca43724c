package pipeline

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"go-reporting-orchestrator/internal/executor"
	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/store"
	"go-reporting-orchestrator/internal/synth"
)

// RepairOutcome is the terminal state of one repair loop run. Exactly one of
// Success or Failure is set; Exhausted marks the budget running out without a
// Success and without a Fatal.
type RepairOutcome struct {
	Code      model.GeneratedCode
	Success   *model.Success
	Failure   *model.Failure
	Exhausted bool
	Attempts  int
}

// RepairLoop drives the generate/execute/repair state machine. Transient
// failures retry the identical code inside a backoff sub-budget, code defects
// consume one regeneration attempt each, and a fatal failure stops everything.
type RepairLoop struct {
	Synth *synth.Synthesizer
	Exec  *executor.Executor
	Cfg   model.RepairConfig
	Clock clockwork.Clock
	Log   *slog.Logger
}

func NewRepairLoop(s *synth.Synthesizer, e *executor.Executor, cfg model.RepairConfig, clock clockwork.Clock, log *slog.Logger) *RepairLoop {
	return &RepairLoop{Synth: s, Exec: e, Cfg: cfg, Clock: clock, Log: log}
}

// Run executes up to Cfg.MaxAttempts generate-and-execute rounds. Every
// attempt, including ones that fail the pre-deployment checks, is recorded in
// the run's attempt history before the loop moves on.
func (r *RepairLoop) Run(ctx context.Context, runID string, req model.AnalysisRequest, sc model.SchemaContext) (RepairOutcome, error) {
	var priorFailure *model.Failure

	for attempt := 1; attempt <= r.Cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return RepairOutcome{}, err
		}

		if err := store.UpdateRunStatus(runID, model.RunGenerating); err != nil {
			r.logWarn("failed to update run status", runID, err)
		}
		code, checkFail, err := r.Synth.Synthesize(ctx, req, sc, attempt, priorFailure)
		if err != nil {
			return RepairOutcome{}, err
		}

		if checkFail != nil {
			// Pre-deployment check failed: consume the attempt and feed the
			// check's message back without a remote round-trip.
			result := model.ExecutionResult{Failure: checkFail}
			if err := store.SaveAttempt(runID, model.RepairAttempt{Code: code, Result: result}); err != nil {
				r.logWarn("failed to record attempt", runID, err)
			}
			priorFailure = checkFail
			continue
		}

		if err := store.UpdateRunStatus(runID, model.RunExecuting); err != nil {
			r.logWarn("failed to update run status", runID, err)
		}
		result := r.executeWithTransientRetries(ctx, runID, code)
		if err := store.SaveAttempt(runID, model.RepairAttempt{Code: code, Result: result}); err != nil {
			r.logWarn("failed to record attempt", runID, err)
		}

		if result.Success != nil {
			if r.Log != nil {
				r.Log.Info("analysis succeeded", "runId", runID, "attempt", attempt)
			}
			return RepairOutcome{Code: code, Success: result.Success, Attempts: attempt}, nil
		}

		switch result.Failure.Kind {
		case model.FailureFatal:
			if r.Log != nil {
				r.Log.Error("fatal failure, aborting repair loop", "runId", runID, "attempt", attempt, "error", result.Failure.Message)
			}
			return RepairOutcome{Code: code, Failure: result.Failure, Attempts: attempt}, nil

		case model.FailureTransient:
			// Sub-budget already spent inside executeWithTransientRetries.
			// Regenerating cannot fix a facility outage, so stop here.
			if r.Log != nil {
				r.Log.Error("transient retries exhausted", "runId", runID, "attempt", attempt, "error", result.Failure.Message)
			}
			return RepairOutcome{Code: code, Failure: result.Failure, Exhausted: true, Attempts: attempt}, nil

		default:
			if r.Log != nil {
				r.Log.Warn("code defect, regenerating", "runId", runID, "attempt", attempt, "error", result.Failure.Message)
			}
			priorFailure = result.Failure
		}
	}

	if r.Log != nil {
		r.Log.Error("repair budget exhausted", "runId", runID, "maxAttempts", r.Cfg.MaxAttempts)
	}
	return RepairOutcome{Failure: priorFailure, Exhausted: true, Attempts: r.Cfg.MaxAttempts}, nil
}

// executeWithTransientRetries runs the code once and, on transient failures,
// re-runs the identical code up to Cfg.TransientRetries more times with
// exponential backoff. Any other outcome returns immediately.
func (r *RepairLoop) executeWithTransientRetries(ctx context.Context, runID string, code model.GeneratedCode) model.ExecutionResult {
	result := r.Exec.Execute(ctx, runID, code)

	delay := r.Cfg.InitialBackoff
	for retry := 1; retry <= r.Cfg.TransientRetries; retry++ {
		if result.Failure == nil || result.Failure.Kind != model.FailureTransient {
			return result
		}
		if r.Log != nil {
			r.Log.Warn("transient failure, retrying same code", "runId", runID,
				"attempt", code.AttemptNumber, "retry", retry, "delay", delay, "error", result.Failure.Message)
		}

		select {
		case <-ctx.Done():
			return result
		case <-r.Clock.After(delay):
		}
		delay *= 2
		if delay > r.Cfg.MaxBackoff {
			delay = r.Cfg.MaxBackoff
		}

		result = r.Exec.Execute(ctx, runID, code)
	}
	return result
}

func (r *RepairLoop) logWarn(msg, runID string, err error) {
	if r.Log != nil {
		r.Log.Warn(msg, "runId", runID, "error", err)
	}
}
