package store

import (
	"encoding/json"
	"time"

	"go-reporting-orchestrator/internal/model"
)

// SaveAttempt appends one (code, result) pair to a run's repair history.
func SaveAttempt(runID string, attempt model.RepairAttempt) error {
	var feedback []byte
	if attempt.Code.BasedOnFeedback != nil {
		var err error
		feedback, err = json.Marshal(attempt.Code.BasedOnFeedback)
		if err != nil {
			return err
		}
	}
	result, err := json.Marshal(attempt.Result)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT INTO repair_attempts (run_id, attempt_number, source, feedback, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, attempt.Code.AttemptNumber, attempt.Code.Source, string(feedback), string(result), time.Now().UTC())
	return err
}

// GetAttempts returns a run's repair history in attempt order.
func GetAttempts(runID string) ([]model.RepairAttempt, error) {
	rows, err := db.Query(`SELECT attempt_number, source, feedback, result FROM repair_attempts
		WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.RepairAttempt
	for rows.Next() {
		var num int
		var source, feedback, result string
		if err := rows.Scan(&num, &source, &feedback, &result); err != nil {
			return nil, err
		}

		a := model.RepairAttempt{Code: model.GeneratedCode{Source: source, AttemptNumber: num}}
		if feedback != "" {
			var f model.Failure
			if err := json.Unmarshal([]byte(feedback), &f); err == nil {
				a.Code.BasedOnFeedback = &f
			}
		}
		if err := json.Unmarshal([]byte(result), &a.Result); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
