package store

// #region imports
import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/opsagent/internal/classify"
)

// #endregion imports

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	id                TEXT PRIMARY KEY,
	service_name      TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	severity          TEXT NOT NULL DEFAULT 'medium',
	approval_severity TEXT NOT NULL DEFAULT 'medium',
	status            TEXT NOT NULL DEFAULT 'detected',
	error_evidence    TEXT,
	root_cause        TEXT,
	reasoning         TEXT,
	proposed_fix      TEXT,
	fix_diff          TEXT,
	fix_code          TEXT,
	test_code         TEXT,
	confidence_score  REAL NOT NULL DEFAULT 0,
	safety_result     TEXT,
	safety_passed     INTEGER,
	auto_resolved     INTEGER NOT NULL DEFAULT 0,
	reported_by       TEXT NOT NULL DEFAULT '',
	assigned_to       TEXT NOT NULL DEFAULT '',
	cleared_by        TEXT NOT NULL DEFAULT '',
	cleared_at        TEXT,
	detected_at       TEXT NOT NULL,
	resolved_at       TEXT
);

CREATE INDEX IF NOT EXISTS idx_incidents_status ON incidents(status);

CREATE TABLE IF NOT EXISTS approvals (
	id          TEXT PRIMARY KEY,
	incident_id TEXT NOT NULL,
	user_name   TEXT NOT NULL,
	user_role   TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	comment     TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	FOREIGN KEY (incident_id) REFERENCES incidents(id)
);

CREATE TABLE IF NOT EXISTS comments (
	id          TEXT PRIMARY KEY,
	incident_id TEXT NOT NULL,
	user_name   TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (incident_id) REFERENCES incidents(id)
);

CREATE TABLE IF NOT EXISTS learning_records (
	id                    TEXT PRIMARY KEY,
	incident_type         TEXT NOT NULL,
	error_pattern         TEXT NOT NULL DEFAULT '',
	fix_pattern           TEXT NOT NULL DEFAULT '',
	human_decision        TEXT NOT NULL,
	confidence_adjustment REAL NOT NULL DEFAULT 0,
	created_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_learning_type ON learning_records(incident_type);

CREATE TABLE IF NOT EXISTS activity_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	incident_id TEXT,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	name            TEXT PRIMARY KEY,
	role            TEXT NOT NULL,
	password_hash   TEXT NOT NULL DEFAULT '',
	final_authority INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store manages the orchestrator's durable log in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// Open opens a SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region id
// NewID returns a short incident-style identifier.
func NewID() string {
	return uuid.NewString()[:8]
}

// #endregion id

// #region create-incident

// CreateIncident inserts a new incident. Fills ID and DetectedAt when unset.
func (s *Store) CreateIncident(inc *Incident) error {
	if inc.ID == "" {
		inc.ID = NewID()
	}
	if inc.DetectedAt.IsZero() {
		inc.DetectedAt = time.Now().UTC()
	}
	if inc.Status == "" {
		inc.Status = StatusDetected
	}

	_, err := s.db.Exec(
		`INSERT INTO incidents
		 (id, service_name, title, description, severity, approval_severity, status,
		  error_evidence, root_cause, reasoning, proposed_fix, fix_diff, fix_code, test_code,
		  confidence_score, safety_result, safety_passed, auto_resolved,
		  reported_by, assigned_to, cleared_by, cleared_at, detected_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.ServiceName, inc.Title, inc.Description,
		string(inc.Severity), string(inc.ApprovalSeverity), string(inc.Status),
		nullIfEmpty(inc.ErrorEvidence), nullIfEmpty(inc.RootCause), nullIfEmpty(inc.Reasoning),
		nullIfEmpty(inc.ProposedFix), nullIfEmpty(inc.FixDiff), nullIfEmpty(inc.FixCode),
		nullIfEmpty(inc.TestCode),
		inc.ConfidenceScore, nullIfEmpty(inc.SafetyResult), nullBool(inc.SafetyPassed),
		boolInt(inc.AutoResolved),
		inc.ReportedBy, inc.AssignedTo, inc.ClearedBy, nullTime(inc.ClearedAt),
		inc.DetectedAt.Format(time.RFC3339Nano), nullTime(inc.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// #endregion create-incident

// #region update-incident

// UpdateIncident writes back every mutable incident field.
func (s *Store) UpdateIncident(inc Incident) error {
	res, err := s.db.Exec(
		`UPDATE incidents SET
		   status = ?, root_cause = ?, reasoning = ?, proposed_fix = ?, fix_diff = ?,
		   fix_code = ?, test_code = ?, confidence_score = ?, safety_result = ?,
		   safety_passed = ?, auto_resolved = ?, assigned_to = ?, cleared_by = ?, cleared_at = ?, resolved_at = ?
		 WHERE id = ?`,
		string(inc.Status), nullIfEmpty(inc.RootCause), nullIfEmpty(inc.Reasoning),
		nullIfEmpty(inc.ProposedFix), nullIfEmpty(inc.FixDiff), nullIfEmpty(inc.FixCode),
		nullIfEmpty(inc.TestCode),
		inc.ConfidenceScore, nullIfEmpty(inc.SafetyResult), nullBool(inc.SafetyPassed),
		boolInt(inc.AutoResolved), inc.AssignedTo, inc.ClearedBy, nullTime(inc.ClearedAt), nullTime(inc.ResolvedAt),
		inc.ID,
	)
	if err != nil {
		return fmt.Errorf("update incident %s: %w", inc.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update incident %s: not found", inc.ID)
	}
	return nil
}

// #endregion update-incident

// #region get-incident

const incidentColumns = `id, service_name, title, description, severity, approval_severity, status,
	error_evidence, root_cause, reasoning, proposed_fix, fix_diff, fix_code, test_code,
	confidence_score, safety_result, safety_passed, auto_resolved,
	reported_by, assigned_to, cleared_by, cleared_at, detected_at, resolved_at`

// GetIncident retrieves one incident by ID.
func (s *Store) GetIncident(id string) (Incident, error) {
	row := s.db.QueryRow(`SELECT `+incidentColumns+` FROM incidents WHERE id = ?`, id)
	inc, err := scanIncident(row)
	if err != nil {
		return Incident{}, fmt.Errorf("get incident %s: %w", id, err)
	}
	return inc, nil
}

// ListIncidents returns the most recent incidents, newest first,
// optionally filtered by status.
func (s *Store) ListIncidents(status Status, limit int) ([]Incident, error) {
	q := `SELECT ` + incidentColumns + ` FROM incidents`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY detected_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// OpenIncidents returns every non-terminal incident, oldest first.
// Used to rebuild the dedup guard after a restart.
func (s *Store) OpenIncidents() ([]Incident, error) {
	rows, err := s.db.Query(
		`SELECT `+incidentColumns+` FROM incidents
		 WHERE status NOT IN (?, ?) ORDER BY detected_at ASC`,
		string(StatusResolved), string(StatusRejected),
	)
	if err != nil {
		return nil, fmt.Errorf("open incidents: %w", err)
	}
	defer rows.Close()

	var out []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// #endregion get-incident

// #region stats

// GetStats aggregates incident and learning counters.
func (s *Store) GetStats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status NOT IN (?, ?) THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN auto_resolved = 1 THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(CASE WHEN confidence_score > 0 THEN confidence_score END), 0)
		 FROM incidents`,
		string(StatusResolved), string(StatusRejected),
		string(StatusResolved), string(StatusAwaitingApproval),
	).Scan(&st.IncidentsTotal, &st.IncidentsOpen, &st.IncidentsResolved, &st.AwaitingApproval, &st.AutoResolved, &st.ConfidenceAvg)
	if err != nil {
		return Stats{}, fmt.Errorf("incident stats: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM learning_records`).Scan(&st.LearningRecords); err != nil {
		return Stats{}, fmt.Errorf("learning stats: %w", err)
	}
	return st, nil
}

// #endregion stats

// #region scan

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(r rowScanner) (Incident, error) {
	var inc Incident
	var severity, approvalSeverity, status string
	var evidence, rootCause, reasoning, fix, diff, code, test, safetyResult sql.NullString
	var safetyPassed sql.NullInt64
	var autoResolved int
	var clearedAt, resolvedAt sql.NullString
	var detectedAt string

	err := r.Scan(
		&inc.ID, &inc.ServiceName, &inc.Title, &inc.Description,
		&severity, &approvalSeverity, &status,
		&evidence, &rootCause, &reasoning, &fix, &diff, &code, &test,
		&inc.ConfidenceScore, &safetyResult, &safetyPassed, &autoResolved,
		&inc.ReportedBy, &inc.AssignedTo, &inc.ClearedBy, &clearedAt,
		&detectedAt, &resolvedAt,
	)
	if err != nil {
		return Incident{}, err
	}

	inc.Severity = classify.Severity(severity)
	inc.ApprovalSeverity = classify.ApprovalSeverity(approvalSeverity)
	inc.Status = Status(status)
	inc.ErrorEvidence = evidence.String
	inc.RootCause = rootCause.String
	inc.Reasoning = reasoning.String
	inc.ProposedFix = fix.String
	inc.FixDiff = diff.String
	inc.FixCode = code.String
	inc.TestCode = test.String
	inc.SafetyResult = safetyResult.String
	if safetyPassed.Valid {
		b := safetyPassed.Int64 != 0
		inc.SafetyPassed = &b
	}
	inc.AutoResolved = autoResolved != 0
	inc.DetectedAt, _ = time.Parse(time.RFC3339Nano, detectedAt)
	inc.ClearedAt = parseNullTime(clearedAt)
	inc.ResolvedAt = parseNullTime(resolvedAt)
	return inc, nil
}

// #endregion scan

// #region helpers

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
