package store

import (
	"database/sql"
	"fmt"
	"time"

	"go-reporting-orchestrator/internal/model"
)

// CreateDecision inserts a new pending validation decision for a run.
func CreateDecision(id, runID string) error {
	_, err := db.Exec(`INSERT INTO decisions (id, run_id, status, created_at) VALUES (?, ?, ?, ?)`,
		id, runID, string(model.DecisionPending), time.Now().UTC())
	return err
}

// GetDecision fetches a decision by ID.
func GetDecision(id string) (model.ValidationDecision, error) {
	var d model.ValidationDecision
	var decidedBy sql.NullString
	var decidedAt sql.NullTime

	err := db.QueryRow(`SELECT id, run_id, status, decided_by, decided_at, created_at FROM decisions WHERE id = ?`, id).
		Scan(&d.ID, &d.RunID, &d.Status, &decidedBy, &decidedAt, &d.CreatedAt)
	if err != nil {
		return model.ValidationDecision{}, err
	}
	if decidedBy.Valid {
		d.DecidedBy = decidedBy.String
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		d.DecidedAt = &t
	}
	return d, nil
}

// GetDecisionByRun fetches the most recent decision for a run.
func GetDecisionByRun(runID string) (model.ValidationDecision, error) {
	var id string
	err := db.QueryRow(`SELECT id FROM decisions WHERE run_id = ? ORDER BY created_at DESC LIMIT 1`, runID).Scan(&id)
	if err != nil {
		return model.ValidationDecision{}, err
	}
	return GetDecision(id)
}

// ResolveDecision resolves a pending decision exactly once. Resolving an
// already-resolved decision is an error, not an overwrite.
func ResolveDecision(id string, status model.DecisionStatus, decidedBy string) error {
	if status != model.DecisionApproved && status != model.DecisionRejected {
		return fmt.Errorf("invalid decision status %q", status)
	}

	res, err := db.Exec(`UPDATE decisions SET status = ?, decided_by = ?, decided_at = ?
		WHERE id = ? AND status = ?`,
		string(status), decidedBy, time.Now().UTC(), id, string(model.DecisionPending))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("decision %s is not pending", id)
	}
	return nil
}
