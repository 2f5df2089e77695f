package store

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/opsagent/internal/classify"
)

// #endregion imports

// #region status

// Status is an incident's lifecycle state. Only the orchestrator's
// state machine writes it.
type Status string

const (
	StatusDetected         Status = "detected"
	StatusDiagnosing       Status = "diagnosing"
	StatusFixProposed      Status = "fix_proposed"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusDeploying        Status = "deploying"
	StatusResolved         Status = "resolved"
	StatusRejected         Status = "rejected"
)

// Terminal reports whether a status ends the incident lifecycle.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// #endregion status

// #region incident

// Incident is one detected problem instance.
type Incident struct {
	ID               string
	ServiceName      string
	Title            string
	Description      string
	Severity         classify.Severity
	ApprovalSeverity classify.ApprovalSeverity
	Status           Status
	ErrorEvidence    string
	RootCause        string
	Reasoning        string // diagnosis JSON
	ProposedFix      string
	FixDiff          string
	FixCode          string
	TestCode         string
	ConfidenceScore  float64
	SafetyResult     string // gate result JSON
	SafetyPassed     *bool  // nil until the gate has run
	AutoResolved     bool
	ReportedBy       string
	AssignedTo       string
	ClearedBy        string
	ClearedAt        *time.Time
	DetectedAt       time.Time
	ResolvedAt       *time.Time
}

// #endregion incident

// #region approval

// Action is a human decision on an incident.
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionOverride       Action = "override"
	ActionRequestChanges Action = "request_changes"
)

// ApprovalRecord is the immutable log of one human decision.
type ApprovalRecord struct {
	ID         string
	IncidentID string
	UserName   string
	UserRole   string
	Action     Action
	Comment    string
	CreatedAt  time.Time
}

// #endregion approval

// #region comment

// Comment is a free-text discussion entry on an incident.
type Comment struct {
	ID         string
	IncidentID string
	UserName   string
	Content    string
	CreatedAt  time.Time
}

// #endregion comment

// #region learning

// Decision is the recorded outcome of a human action, aggregated per
// incident category to bias future confidence scores.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionModified Decision = "modified"
)

// LearningRecord is one immutable human-decision sample.
type LearningRecord struct {
	ID                   string
	IncidentType         string
	ErrorPattern         string
	FixPattern           string
	HumanDecision        Decision
	ConfidenceAdjustment float64
	CreatedAt            time.Time
}

// #endregion learning

// #region activity

// ActivityEntry is one row of the append-only audit trail.
type ActivityEntry struct {
	ID         int64
	IncidentID string // empty for system-wide events
	Actor      string // "agent" or a user name
	Action     string
	Detail     string
	CreatedAt  time.Time
}

// #endregion activity

// #region user

// User is a known human actor with an ordered role.
type User struct {
	Name           string
	Role           string
	PasswordHash   string
	FinalAuthority bool
	CreatedAt      time.Time
}

// #endregion user

// #region stats

// Stats summarizes the store for the agent status endpoint.
type Stats struct {
	IncidentsTotal    int
	IncidentsOpen     int
	IncidentsResolved int
	AwaitingApproval  int
	AutoResolved      int
	LearningRecords   int
	ConfidenceAvg     float64
}

// #endregion stats
