package store

// #region imports
import (
	"database/sql"
	"fmt"
	"time"
)

// #endregion imports

// #region log-activity
// LogActivity writes an audit-trail entry and returns it with its
// assigned row id, so callers can broadcast the exact stored record.
func (s *Store) LogActivity(entry ActivityEntry) (ActivityEntry, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO activity_log (incident_id, actor, action, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.IncidentID), entry.Actor, entry.Action, entry.Detail,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return ActivityEntry{}, fmt.Errorf("log activity: %w", err)
	}
	entry.ID, _ = res.LastInsertId()
	return entry, nil
}

// #endregion log-activity

// #region list-activity
// ListActivity returns recent audit entries, newest first, optionally
// filtered to one incident.
func (s *Store) ListActivity(incidentID string, limit int) ([]ActivityEntry, error) {
	q := `SELECT id, incident_id, actor, action, detail, created_at FROM activity_log`
	args := []any{}
	if incidentID != "" {
		q += ` WHERE incident_id = ?`
		args = append(args, incidentID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var incID sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &incID, &e.Actor, &e.Action, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.IncidentID = incID.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-activity
