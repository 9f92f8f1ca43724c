// Package executor deploys synthesized code into the remote execution
// facility and turns its outcome into a classified ExecutionResult.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go-reporting-orchestrator/internal/model"
)

// Warehouse is the remote execution facility boundary. One procedure is
// deployed per attempt, called once, and dropped regardless of outcome.
type Warehouse interface {
	DeployProcedure(ctx context.Context, name, source string, packages []string) error
	CallProcedure(ctx context.Context, name string) (map[string]interface{}, error)
	DropProcedure(ctx context.Context, name string) error
}

// Executor runs one GeneratedCode against the warehouse. No two attempts for
// the same run execute concurrently; the caller serializes attempts.
type Executor struct {
	Warehouse Warehouse
	Rules     Classifier
	Packages  []string
	Log       *slog.Logger
}

func New(wh Warehouse, rules Classifier, packages []string, log *slog.Logger) *Executor {
	return &Executor{Warehouse: wh, Rules: rules, Packages: packages, Log: log}
}

// Execute deploys the code as an ephemeral single-use procedure scoped to this
// attempt and runs it. The procedure is dropped unconditionally afterwards.
func (e *Executor) Execute(ctx context.Context, runID string, code model.GeneratedCode) model.ExecutionResult {
	procName := procedureName(runID, code.AttemptNumber)

	if e.Log != nil {
		e.Log.Info("deploying analysis procedure", "procedure", procName, "attempt", code.AttemptNumber)
	}

	if err := e.Warehouse.DeployProcedure(ctx, procName, code.Source, e.Packages); err != nil {
		return model.ExecutionResult{Failure: e.Rules.Failure(err.Error())}
	}
	defer func() {
		if err := e.Warehouse.DropProcedure(context.WithoutCancel(ctx), procName); err != nil && e.Log != nil {
			e.Log.Warn("failed to drop procedure", "procedure", procName, "error", err)
		}
	}()

	raw, err := e.Warehouse.CallProcedure(ctx, procName)
	if err != nil {
		return model.ExecutionResult{Failure: e.Rules.Failure(err.Error())}
	}

	return e.resultFromRaw(raw)
}

// resultFromRaw validates the raw procedure output. Metrics must be a flat
// mapping of primitives; the only nesting allowed is the diagnostics
// sub-mapping, because anything else cannot be serialized across the remote
// boundary reliably.
func (e *Executor) resultFromRaw(raw map[string]interface{}) model.ExecutionResult {
	if status, _ := raw["status"].(string); status == "error" {
		msg, _ := raw["error"].(string)
		if msg == "" {
			msg = "analysis script reported an error without a message"
		}
		return model.ExecutionResult{Failure: e.Rules.Failure(msg)}
	}

	metrics := make(map[string]interface{}, len(raw))
	var diagnostics map[string]interface{}

	for key, val := range raw {
		if key == "status" {
			continue
		}
		if key == "diagnostics" {
			if d, ok := val.(map[string]interface{}); ok {
				diagnostics = d
				continue
			}
		}
		switch val.(type) {
		case string, float64, int, int64, nil:
			metrics[key] = val
		default:
			return model.ExecutionResult{Failure: model.NewFailure(model.FailureCodeDefect,
				fmt.Sprintf("result key %q has non-primitive type %T; metrics must be a flat mapping", key, val))}
		}
	}

	if len(metrics) == 0 {
		return model.ExecutionResult{Failure: model.NewFailure(model.FailureCodeDefect,
			"analysis script returned no metrics")}
	}

	return model.ExecutionResult{Success: &model.Success{Metrics: metrics, Diagnostics: diagnostics}}
}

// procedureName builds a per-attempt unique procedure identifier.
func procedureName(runID string, attempt int) string {
	id := strings.ToUpper(strings.ReplaceAll(runID, "-", "_"))
	return fmt.Sprintf("RUN_ANALYSIS_%s_A%d", id, attempt)
}
