package store

import (
	"encoding/json"
	"time"

	"go-reporting-orchestrator/internal/model"
)

// SaveInsight stores the interpreted result for a run.
func SaveInsight(runID string, insight model.Insight) error {
	data, err := json.Marshal(insight)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT OR REPLACE INTO insights (run_id, insight, created_at) VALUES (?, ?, ?)`,
		runID, string(data), time.Now().UTC())
	return err
}

// GetInsight fetches the interpreted result for a run.
func GetInsight(runID string) (model.Insight, error) {
	var data string
	if err := db.QueryRow(`SELECT insight FROM insights WHERE run_id = ?`, runID).Scan(&data); err != nil {
		return model.Insight{}, err
	}
	var insight model.Insight
	err := json.Unmarshal([]byte(data), &insight)
	return insight, err
}
