package store

// #region imports
import (
	"fmt"
	"time"
)

// #endregion imports

// #region approvals

// AddApproval appends an immutable approval record. Fills ID and
// CreatedAt when unset.
func (s *Store) AddApproval(rec *ApprovalRecord) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO approvals (id, incident_id, user_name, user_role, action, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.IncidentID, rec.UserName, rec.UserRole,
		string(rec.Action), rec.Comment, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// ListApprovals returns an incident's approval records, newest first.
func (s *Store) ListApprovals(incidentID string) ([]ApprovalRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, incident_id, user_name, user_role, action, comment, created_at
		 FROM approvals WHERE incident_id = ? ORDER BY created_at DESC`, incidentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []ApprovalRecord
	for rows.Next() {
		var rec ApprovalRecord
		var action, createdAt string
		if err := rows.Scan(&rec.ID, &rec.IncidentID, &rec.UserName, &rec.UserRole,
			&action, &rec.Comment, &createdAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		rec.Action = Action(action)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion approvals

// #region comments

// AddComment appends a discussion comment.
func (s *Store) AddComment(c *Comment) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO comments (id, incident_id, user_name, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.IncidentID, c.UserName, c.Content, c.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListComments returns an incident's comments, oldest first.
func (s *Store) ListComments(incidentID string) ([]Comment, error) {
	rows, err := s.db.Query(
		`SELECT id, incident_id, user_name, content, created_at
		 FROM comments WHERE incident_id = ? ORDER BY created_at ASC`, incidentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.IncidentID, &c.UserName, &c.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// #endregion comments

// #region users

// UpsertUser inserts or updates a user row.
func (s *Store) UpsertUser(u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO users (name, role, password_hash, final_authority, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   role = excluded.role,
		   password_hash = excluded.password_hash,
		   final_authority = excluded.final_authority`,
		u.Name, u.Role, u.PasswordHash, boolInt(u.FinalAuthority),
		u.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.Name, err)
	}
	return nil
}

// GetUser retrieves a user by name.
func (s *Store) GetUser(name string) (User, error) {
	var u User
	var finalAuthority int
	var createdAt string
	err := s.db.QueryRow(
		`SELECT name, role, password_hash, final_authority, created_at FROM users WHERE name = ?`,
		name,
	).Scan(&u.Name, &u.Role, &u.PasswordHash, &finalAuthority, &createdAt)
	if err != nil {
		return User{}, fmt.Errorf("get user %s: %w", name, err)
	}
	u.FinalAuthority = finalAuthority != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return u, nil
}

// FinalAuthorityUsers returns every user flagged as final authority.
// They receive clearance reports when fixes are approved or overridden.
func (s *Store) FinalAuthorityUsers() ([]User, error) {
	rows, err := s.db.Query(
		`SELECT name, role, password_hash, final_authority, created_at
		 FROM users WHERE final_authority = 1 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("final authority users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var finalAuthority int
		var createdAt string
		if err := rows.Scan(&u.Name, &u.Role, &u.PasswordHash, &finalAuthority, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.FinalAuthority = finalAuthority != 0
		u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, u)
	}
	return out, rows.Err()
}

// #endregion users
