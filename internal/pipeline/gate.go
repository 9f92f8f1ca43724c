package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"go-reporting-orchestrator/internal/model"
	"go-reporting-orchestrator/internal/store"
)

// ValidationGate suspends a run on a pending decision until an external actor
// resolves it. No decision within Cfg.Timeout resolves to Rejected: silence is
// never consent for outbound reports.
type ValidationGate struct {
	Cfg   model.GateConfig
	Clock clockwork.Clock
	Log   *slog.Logger
}

func NewValidationGate(cfg model.GateConfig, clock clockwork.Clock, log *slog.Logger) *ValidationGate {
	return &ValidationGate{Cfg: cfg, Clock: clock, Log: log}
}

// Submit creates a pending decision for the run and returns its ID. When the
// gate is disabled the decision is created pre-approved so scheduled runs
// proceed without a human in the loop.
func (g *ValidationGate) Submit(runID string) (string, error) {
	decisionID := uuid.New().String()
	if err := store.CreateDecision(decisionID, runID); err != nil {
		return "", err
	}

	if !g.Cfg.Enabled {
		if err := store.ResolveDecision(decisionID, model.DecisionApproved, "system:auto"); err != nil {
			return "", err
		}
		return decisionID, nil
	}

	if g.Log != nil {
		g.Log.Info("awaiting approval", "runId", runID, "decisionId", decisionID, "timeout", g.Cfg.Timeout)
	}
	return decisionID, nil
}

// WaitForDecision polls the store until the decision leaves the pending state
// or the timeout elapses. On timeout the decision is resolved Rejected with
// decided_by "system:timeout"; a concurrent human resolution wins the race
// because resolution happens at most once.
func (g *ValidationGate) WaitForDecision(ctx context.Context, decisionID string) (model.ValidationDecision, error) {
	deadline := g.Clock.Now().Add(g.Cfg.Timeout)

	for {
		d, err := store.GetDecision(decisionID)
		if err != nil {
			return model.ValidationDecision{}, err
		}
		if d.Status != model.DecisionPending {
			return d, nil
		}

		if !g.Clock.Now().Before(deadline) {
			if err := store.ResolveDecision(decisionID, model.DecisionRejected, "system:timeout"); err != nil {
				// Someone resolved it while we were deciding to time out.
				return store.GetDecision(decisionID)
			}
			if g.Log != nil {
				g.Log.Warn("approval timed out, rejecting", "decisionId", decisionID)
			}
			return store.GetDecision(decisionID)
		}

		select {
		case <-ctx.Done():
			return model.ValidationDecision{}, ctx.Err()
		case <-g.Clock.After(g.Cfg.PollInterval):
		}
	}
}
