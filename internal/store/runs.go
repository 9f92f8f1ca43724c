package store

import (
	"encoding/json"
	"time"

	"go-reporting-orchestrator/internal/model"
)

// SaveRun stores a new analysis run in pending state.
func SaveRun(runID string, req model.AnalysisRequest) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, request, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, reqJSON, string(model.RunPending), now, now)
	return err
}

// UpdateRunStatus updates a run's lifecycle status.
func UpdateRunStatus(runID string, status model.RunStatus) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, string(status), now, runID)
	return err
}

// GetRun fetches a run's request and status.
func GetRun(runID string) (map[string]interface{}, error) {
	var reqJSON, status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT request, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&reqJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var req model.AnalysisRequest
	if err := json.Unmarshal([]byte(reqJSON), &req); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        runID,
		"request":   req,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// GetRunStatus returns just the status of a run.
func GetRunStatus(runID string) (model.RunStatus, error) {
	var status string
	err := db.QueryRow(`SELECT status FROM runs WHERE id = ?`, runID).Scan(&status)
	return model.RunStatus(status), err
}

// ListRuns returns all runs with basic info, newest first.
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}
