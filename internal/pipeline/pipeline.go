// Package pipeline orchestrates an analysis run end to end: synthesize code,
// execute it remotely with self-healing retries, hold for human approval,
// interpret the metrics, render per-persona reports, and distribute them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"go-reporting-orchestrator/internal/executor"
	"go-reporting-orchestrator/internal/llm"
	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/schema"
	"go-reporting-orchestrator/internal/store"
	"go-reporting-orchestrator/internal/synth"
	"go-reporting-orchestrator/pkg/utils"
)

// Orchestrator wires the pipeline stages together. One Run call processes one
// AnalysisRequest to a terminal status.
type Orchestrator struct {
	Schema schema.Provider
	Repair *RepairLoop
	Gate   *ValidationGate
	Interp *Interpreter
	Render *Renderer
	Router *DistributionRouter
	Cfg    model.Config
	Log    *slog.Logger
}

// NewOrchestrator wires the full stage chain from its external collaborators.
func NewOrchestrator(cfg model.Config, provider schema.Provider, gen llm.Generator, wh executor.Warehouse, email EmailSender, webhook WebhookPoster, clock clockwork.Clock, log *slog.Logger) *Orchestrator {
	synthesizer := synth.NewSynthesizer(gen, cfg.Packages, log)
	exec := executor.New(wh, executor.DefaultClassifier(), cfg.Packages, log)
	out := utils.NewOutputManager(cfg.OutputDir)

	return &Orchestrator{
		Schema: provider,
		Repair: NewRepairLoop(synthesizer, exec, cfg.Repair, clock, log),
		Gate:   NewValidationGate(cfg.Gate, clock, log),
		Interp: NewInterpreter(gen, cfg.Thresholds, log),
		Render: NewRenderer(out, log),
		Router: NewDistributionRouter(email, webhook, cfg.Delivery, log),
		Cfg:    cfg,
		Log:    log,
	}
}

// Run drives a single analysis run to one of the terminal statuses. The
// returned error is non-nil only for infrastructure problems (store, schema
// fetch, context); analysis-level failures are expressed in the status.
func (o *Orchestrator) Run(ctx context.Context, runID string, req model.AnalysisRequest) (status model.RunStatus, err error) {
	start := time.Now()
	o.Log.Info("starting analysis run", "runId", runID, "question", req.Question)

	ctx, cancel := context.WithTimeout(ctx, o.Cfg.RunTimeout)
	defer cancel()

	defer func() {
		if err != nil {
			o.setStatus(runID, model.RunFatalError)
			o.stageLog(runID, "run", "error", err.Error())
			status = model.RunFatalError
		}
	}()

	// Schema fetch failure is fatal: without the schema no code can be
	// generated, and retrying the run will not change that.
	sc, err := o.Schema.GetSchema(ctx)
	if err != nil {
		return model.RunFatalError, fmt.Errorf("fetching schema context: %w", err)
	}
	o.stageLog(runID, "schema", "info", fmt.Sprintf("loaded schema with %d tables", len(sc.Tables)))

	outcome, err := o.Repair.Run(ctx, runID, req, sc)
	if err != nil {
		return model.RunFatalError, fmt.Errorf("repair loop: %w", err)
	}

	switch {
	case outcome.Success != nil:
		o.stageLog(runID, "execution", "info", fmt.Sprintf("analysis succeeded after %d attempt(s)", outcome.Attempts))
	case outcome.Failure != nil && outcome.Failure.Kind == model.FailureFatal:
		o.setStatus(runID, model.RunFatalError)
		o.stageLog(runID, "execution", "error", outcome.Failure.Message)
		return model.RunFatalError, nil
	default:
		o.setStatus(runID, model.RunRepairExhausted)
		msg := fmt.Sprintf("no success after %d attempt(s)", outcome.Attempts)
		if outcome.Failure != nil {
			msg = fmt.Sprintf("%s; last failure: %s", msg, outcome.Failure.Message)
		}
		o.stageLog(runID, "execution", "error", msg)
		return model.RunRepairExhausted, nil
	}

	o.setStatus(runID, model.RunAwaitingApproval)
	decisionID, err := o.Gate.Submit(runID)
	if err != nil {
		return model.RunFatalError, fmt.Errorf("submitting validation decision: %w", err)
	}
	decision, err := o.Gate.WaitForDecision(ctx, decisionID)
	if err != nil {
		return model.RunFatalError, fmt.Errorf("waiting for validation decision: %w", err)
	}
	if decision.Status != model.DecisionApproved {
		o.setStatus(runID, model.RunRejected)
		o.stageLog(runID, "validation", "warning", fmt.Sprintf("rejected by %s", decision.DecidedBy))
		return model.RunRejected, nil
	}
	o.stageLog(runID, "validation", "info", fmt.Sprintf("approved by %s", decision.DecidedBy))

	o.setStatus(runID, model.RunInterpreting)
	insight, err := o.Interp.Interpret(ctx, req.Question, outcome.Success)
	if err != nil {
		return model.RunFatalError, fmt.Errorf("interpreting results: %w", err)
	}
	if err := store.SaveInsight(runID, insight); err != nil {
		o.Log.Warn("failed to persist insight", "runId", runID, "error", err)
	}
	o.stageLog(runID, "interpretation", "info", fmt.Sprintf("confidence %s", insight.Confidence))

	o.setStatus(runID, model.RunRendering)
	artifacts, err := o.Render.RenderAll(runID, req, insight, outcome.Code)
	if err != nil {
		return model.RunFatalError, fmt.Errorf("rendering artifacts: %w", err)
	}
	o.stageLog(runID, "rendering", "info", fmt.Sprintf("rendered %d artifact(s)", len(artifacts)))

	o.setStatus(runID, model.RunDistributing)
	records := o.Router.Distribute(ctx, runID, artifacts)
	sent, failed := 0, 0
	for _, rec := range records {
		if rec.Status == model.DeliverySent {
			sent++
		} else {
			failed++
		}
	}
	o.stageLog(runID, "distribution", "info", fmt.Sprintf("%d sent, %d failed", sent, failed))

	o.setStatus(runID, model.RunDelivered)
	o.Log.Info("analysis run delivered", "runId", runID, "duration", time.Since(start), "sent", sent, "failed", failed)
	return model.RunDelivered, nil
}

func (o *Orchestrator) setStatus(runID string, status model.RunStatus) {
	if err := store.UpdateRunStatus(runID, status); err != nil {
		o.Log.Warn("failed to update run status", "runId", runID, "status", status, "error", err)
	}
}

func (o *Orchestrator) stageLog(runID, stage, level, message string) {
	if err := store.SaveRunLog(runID, stage, level, message, ""); err != nil {
		o.Log.Warn("failed to persist run log", "runId", runID, "stage", stage, "error", err)
	}
}
