package server

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/opsagent/internal/store"
)

// #endregion imports

// #region incident-view

type incidentView struct {
	ID               string   `json:"id"`
	ServiceName      string   `json:"service_name"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Severity         string   `json:"severity"`
	ApprovalSeverity string   `json:"approval_severity"`
	Status           string   `json:"status"`
	ErrorEvidence    string   `json:"error_evidence,omitempty"`
	RootCause        string   `json:"root_cause,omitempty"`
	Reasoning        string   `json:"reasoning,omitempty"`
	ProposedFix      string   `json:"proposed_fix,omitempty"`
	FixDiff          string   `json:"fix_diff,omitempty"`
	FixCode          string   `json:"fix_code,omitempty"`
	TestCode         string   `json:"test_code,omitempty"`
	ConfidenceScore  float64  `json:"confidence_score"`
	SafetyResult     string   `json:"safety_result,omitempty"`
	SafetyPassed     *bool    `json:"safety_passed,omitempty"`
	AutoResolved     bool     `json:"auto_resolved"`
	ReportedBy       string   `json:"reported_by,omitempty"`
	AssignedTo       string   `json:"assigned_to,omitempty"`
	ClearedBy        string   `json:"cleared_by,omitempty"`
	ClearedAt        *string  `json:"cleared_at,omitempty"`
	DetectedAt       string   `json:"detected_at"`
	ResolvedAt       *string  `json:"resolved_at,omitempty"`
}

func viewIncident(inc store.Incident) incidentView {
	return incidentView{
		ID:               inc.ID,
		ServiceName:      inc.ServiceName,
		Title:            inc.Title,
		Description:      inc.Description,
		Severity:         string(inc.Severity),
		ApprovalSeverity: string(inc.ApprovalSeverity),
		Status:           string(inc.Status),
		ErrorEvidence:    inc.ErrorEvidence,
		RootCause:        inc.RootCause,
		Reasoning:        inc.Reasoning,
		ProposedFix:      inc.ProposedFix,
		FixDiff:          inc.FixDiff,
		FixCode:          inc.FixCode,
		TestCode:         inc.TestCode,
		ConfidenceScore:  inc.ConfidenceScore,
		SafetyResult:     inc.SafetyResult,
		SafetyPassed:     inc.SafetyPassed,
		AutoResolved:     inc.AutoResolved,
		ReportedBy:       inc.ReportedBy,
		AssignedTo:       inc.AssignedTo,
		ClearedBy:        inc.ClearedBy,
		ClearedAt:        stamp(inc.ClearedAt),
		DetectedAt:       inc.DetectedAt.Format(time.RFC3339),
		ResolvedAt:       stamp(inc.ResolvedAt),
	}
}

func viewIncidents(incs []store.Incident) []incidentView {
	out := make([]incidentView, 0, len(incs))
	for _, inc := range incs {
		out = append(out, viewIncident(inc))
	}
	return out
}

func stamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// #endregion incident-view

// #region record-views

type approvalView struct {
	ID         string `json:"id"`
	IncidentID string `json:"incident_id"`
	UserName   string `json:"user_name"`
	UserRole   string `json:"user_role"`
	Action     string `json:"action"`
	Comment    string `json:"comment,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func viewApprovals(recs []store.ApprovalRecord) []approvalView {
	out := make([]approvalView, 0, len(recs))
	for _, r := range recs {
		out = append(out, approvalView{
			ID:         r.ID,
			IncidentID: r.IncidentID,
			UserName:   r.UserName,
			UserRole:   r.UserRole,
			Action:     string(r.Action),
			Comment:    r.Comment,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

type commentView struct {
	ID         string `json:"id"`
	IncidentID string `json:"incident_id"`
	UserName   string `json:"user_name"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
}

func viewComments(comments []store.Comment) []commentView {
	out := make([]commentView, 0, len(comments))
	for _, c := range comments {
		out = append(out, commentView{
			ID:         c.ID,
			IncidentID: c.IncidentID,
			UserName:   c.UserName,
			Content:    c.Content,
			CreatedAt:  c.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

type activityView struct {
	ID         int64  `json:"id"`
	IncidentID string `json:"incident_id,omitempty"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	Detail     string `json:"detail,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func viewActivity(entries []store.ActivityEntry) []activityView {
	out := make([]activityView, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityView{
			ID:         e.ID,
			IncidentID: e.IncidentID,
			Actor:      e.Actor,
			Action:     e.Action,
			Detail:     e.Detail,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

type learningView struct {
	ID                   string  `json:"id"`
	IncidentType         string  `json:"incident_type"`
	ErrorPattern         string  `json:"error_pattern,omitempty"`
	FixPattern           string  `json:"fix_pattern,omitempty"`
	HumanDecision        string  `json:"human_decision"`
	ConfidenceAdjustment float64 `json:"confidence_adjustment"`
	CreatedAt            string  `json:"created_at"`
}

func viewLearning(recs []store.LearningRecord) []learningView {
	out := make([]learningView, 0, len(recs))
	for _, r := range recs {
		out = append(out, learningView{
			ID:                   r.ID,
			IncidentType:         r.IncidentType,
			ErrorPattern:         r.ErrorPattern,
			FixPattern:           r.FixPattern,
			HumanDecision:        string(r.HumanDecision),
			ConfidenceAdjustment: r.ConfidenceAdjustment,
			CreatedAt:            r.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}

// #endregion record-views
