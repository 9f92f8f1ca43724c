package store

import (
	"go-reporting-orchestrator/internal/model"
)

// SaveDeliveryRecord records one delivery outcome for a run.
func SaveDeliveryRecord(runID string, rec model.DeliveryRecord) error {
	_, err := db.Exec(`INSERT INTO delivery_records (run_id, persona, channel, status, error, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, string(rec.Persona), string(rec.Channel), string(rec.Status), rec.Error, rec.SentAt)
	return err
}

// GetDeliveries returns all delivery records for a run.
func GetDeliveries(runID string) ([]model.DeliveryRecord, error) {
	rows, err := db.Query(`SELECT persona, channel, status, error, sent_at FROM delivery_records
		WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.DeliveryRecord
	for rows.Next() {
		var r model.DeliveryRecord
		if err := rows.Scan(&r.Persona, &r.Channel, &r.Status, &r.Error, &r.SentAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// HasSentDelivery reports whether a (persona, channel) pair already has a
// successful delivery for this run. Used to keep re-dispatch idempotent.
func HasSentDelivery(runID string, persona model.Persona, channel model.Channel) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM delivery_records
		WHERE run_id = ? AND persona = ? AND channel = ? AND status = ?`,
		runID, string(persona), string(channel), string(model.DeliverySent)).Scan(&n)
	return n > 0, err
}
