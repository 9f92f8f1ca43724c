package store

import (
	"time"
)

// SaveRunLog appends a stage-level log entry for a run.
func SaveRunLog(runID, stage, level, message, details string) error {
	_, err := db.Exec(`INSERT INTO run_logs (run_id, stage, level, message, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, stage, level, message, details, time.Now().UTC())
	return err
}

// GetRunLogs returns a run's log entries in order.
func GetRunLogs(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT stage, level, message, details, created_at FROM run_logs
		WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []map[string]interface{}
	for rows.Next() {
		var stage, level, message, details string
		var createdAt time.Time
		if err := rows.Scan(&stage, &level, &message, &details, &createdAt); err != nil {
			return nil, err
		}
		entry := map[string]interface{}{
			"stage":     stage,
			"level":     level,
			"message":   message,
			"createdAt": createdAt,
		}
		if details != "" {
			entry["details"] = details
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// SaveArtifact records a rendered artifact's location on disk.
func SaveArtifact(runID, persona, subject, filePath string) error {
	_, err := db.Exec(`INSERT INTO artifacts (run_id, persona, subject, file_path, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		runID, persona, subject, filePath, time.Now().UTC())
	return err
}

// GetArtifacts returns the artifacts recorded for a run.
func GetArtifacts(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT persona, subject, file_path, created_at FROM artifacts
		WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []map[string]interface{}
	for rows.Next() {
		var persona, subject, filePath string
		var createdAt time.Time
		if err := rows.Scan(&persona, &subject, &filePath, &createdAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, map[string]interface{}{
			"persona":   persona,
			"subject":   subject,
			"filePath":  filePath,
			"createdAt": createdAt,
		})
	}
	return artifacts, rows.Err()
}
