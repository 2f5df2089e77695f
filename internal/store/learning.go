package store

// #region imports
import (
	"fmt"
	"time"
)

// #endregion imports

// #region record

// AddLearning appends an immutable learning record.
func (s *Store) AddLearning(rec *LearningRecord) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO learning_records
		 (id, incident_type, error_pattern, fix_pattern, human_decision, confidence_adjustment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.IncidentType, rec.ErrorPattern, rec.FixPattern,
		string(rec.HumanDecision), rec.ConfidenceAdjustment,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert learning record: %w", err)
	}
	return nil
}

// #endregion record

// #region approval-rate

// ApprovalRate returns how many records exist for a category and how
// many of them were approved. The confidence scorer only consumes this
// aggregate, never individual records.
func (s *Store) ApprovalRate(incidentType string) (approved, total int, err error) {
	err = s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN human_decision = ? THEN 1 ELSE 0 END), 0)
		 FROM learning_records WHERE incident_type = ?`,
		string(DecisionApproved), incidentType,
	).Scan(&total, &approved)
	if err != nil {
		return 0, 0, fmt.Errorf("approval rate for %s: %w", incidentType, err)
	}
	return approved, total, nil
}

// #endregion approval-rate

// #region list

// ListLearning returns the most recent learning records.
func (s *Store) ListLearning(limit int) ([]LearningRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, incident_type, error_pattern, fix_pattern, human_decision,
		        confidence_adjustment, created_at
		 FROM learning_records ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list learning records: %w", err)
	}
	defer rows.Close()

	var out []LearningRecord
	for rows.Next() {
		var rec LearningRecord
		var decision, createdAt string
		if err := rows.Scan(&rec.ID, &rec.IncidentType, &rec.ErrorPattern, &rec.FixPattern,
			&decision, &rec.ConfidenceAdjustment, &createdAt); err != nil {
			return nil, fmt.Errorf("scan learning record: %w", err)
		}
		rec.HumanDecision = Decision(decision)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion list
