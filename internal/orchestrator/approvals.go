package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/danielpatrickdp/opsagent/internal/auth"
	"github.com/danielpatrickdp/opsagent/internal/classify"
	"github.com/danielpatrickdp/opsagent/internal/diagnose"
	"github.com/danielpatrickdp/opsagent/internal/store"
)

// #endregion imports

// #region submit

// SubmitAction runs the approval state machine for one human decision.
// Actions are serialized per incident so two reviewers clicking at
// once cannot both clear the same fix.
func (o *Orchestrator) SubmitAction(ctx context.Context, incidentID, userName string, action store.Action, comment string) (store.Incident, error) {
	mu := o.lockIncident(incidentID)
	mu.Lock()
	defer mu.Unlock()

	user, err := o.store.GetUser(userName)
	if err != nil {
		return store.Incident{}, validationf("unknown user %q", userName)
	}
	inc, err := o.store.GetIncident(incidentID)
	if err != nil {
		return store.Incident{}, err
	}

	if inc.Status != store.StatusFixProposed && inc.Status != store.StatusAwaitingApproval {
		return store.Incident{}, validationf("incident %s is %s, no action can be taken", incidentID, inc.Status)
	}

	switch action {
	case store.ActionApprove, store.ActionOverride:
		if !auth.Allowed(user.Role, inc.ApprovalSeverity) {
			return store.Incident{}, &AuthorizationError{
				Action:   string(action),
				Role:     user.Role,
				Required: auth.MinLevel(inc.ApprovalSeverity),
			}
		}
	case store.ActionReject, store.ActionRequestChanges:
		// any known role may reject or ask for changes
	default:
		return store.Incident{}, validationf("unknown action %q", action)
	}
	if action == store.ActionRequestChanges && comment == "" {
		return store.Incident{}, validationf("request_changes needs a comment describing the change")
	}

	if err := o.store.AddApproval(&store.ApprovalRecord{
		IncidentID: incidentID,
		UserName:   user.Name,
		UserRole:   user.Role,
		Action:     action,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return store.Incident{}, fmt.Errorf("record approval: %w", err)
	}
	// a change request is feedback on the fix, not a verdict on
	// the diagnosis, so it leaves the approval history untouched
	if action != store.ActionRequestChanges {
		o.recordLearning(inc, action)
	}
	o.logActivity(incidentID, user.Name, string(action), comment)

	ft := classify.FromRootCause(inc.RootCause)
	switch action {
	case store.ActionApprove, store.ActionOverride:
		if action == store.ActionOverride && comment != "" {
			// the reviewer's text replaces the proposed fix wholesale
			inc.ProposedFix = comment
			inc.FixDiff = ""
			inc.FixCode = ""
		}
		now := time.Now().UTC()
		inc.ClearedBy = user.Name
		inc.ClearedAt = &now
		o.setStatus(&inc, store.StatusDeploying, ft, string(action)+" by "+user.Name)
		o.reportClearance(inc, user, action)
		// Deploy outlives the HTTP request that cleared it.
		deployed := inc
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[ORCH] deploy panicked for incident %s: %v", deployed.ID, r)
				}
			}()
			o.applyAndVerify(context.Background(), &deployed, ft)
		}()
	case store.ActionReject:
		o.setStatus(&inc, store.StatusRejected, ft, "rejected by "+user.Name)
		o.guard.Release(ft, inc.ID)
	case store.ActionRequestChanges:
		o.refineFix(ctx, &inc, ft, comment)
	}
	return inc, nil
}

// #endregion submit

// #region learning

var learningDecisions = map[store.Action]store.Decision{
	store.ActionApprove:  store.DecisionApproved,
	store.ActionOverride: store.DecisionModified,
	store.ActionReject:   store.DecisionRejected,
}

func (o *Orchestrator) recordLearning(inc store.Incident, action store.Action) {
	decision := learningDecisions[action]
	adjustment := -0.05
	if decision == store.DecisionApproved {
		adjustment = 0.05
	}
	pattern := inc.ErrorEvidence
	if len(pattern) > 500 {
		pattern = pattern[:500]
	}
	if err := o.store.AddLearning(&store.LearningRecord{
		IncidentType:         diagnosisCategory(inc),
		ErrorPattern:         pattern,
		FixPattern:           inc.ProposedFix,
		HumanDecision:        decision,
		ConfidenceAdjustment: adjustment,
		CreatedAt:            time.Now().UTC(),
	}); err != nil {
		log.Printf("[ORCH] record learning: %v", err)
	}
}

// diagnosisCategory reads the category back out of the stored
// diagnosis JSON. Learning records and the scorer's history lookups
// key on it, so an incident without a usable diagnosis files under
// unknown rather than inventing a category.
func diagnosisCategory(inc store.Incident) string {
	var d diagnose.Diagnosis
	if err := json.Unmarshal([]byte(inc.Reasoning), &d); err == nil && d.Category != "" {
		return d.Category
	}
	return "unknown"
}

// #endregion learning

// #region clearance

// reportClearance tells every final-authority user who cleared what,
// unless they cleared it themselves.
func (o *Orchestrator) reportClearance(inc store.Incident, actor store.User, action store.Action) {
	leads, err := o.store.FinalAuthorityUsers()
	if err != nil {
		log.Printf("[ORCH] clearance report: %v", err)
		return
	}
	for _, lead := range leads {
		if lead.Name == actor.Name {
			continue
		}
		o.hub.SendTo(lead.Name, "clearance_report", map[string]any{
			"incident_id": inc.ID,
			"title":       inc.Title,
			"action":      string(action),
			"by":          actor.Name,
			"role":        actor.Role,
			"severity":    string(inc.ApprovalSeverity),
		})
	}
}

// #endregion clearance

// #region refine

// refineFix reworks the proposal against reviewer feedback and puts
// the incident back in front of reviewers.
func (o *Orchestrator) refineFix(ctx context.Context, inc *store.Incident, ft classify.FaultType, feedback string) {
	fix, err := o.engine.Refine(ctx, o.currentFix(*inc), feedback)
	if err != nil {
		log.Printf("[ORCH] refine fix for incident %s: %v", inc.ID, err)
		return
	}
	inc.ProposedFix = fix.Description
	inc.FixDiff = fix.Diff
	inc.FixCode = fix.Code
	inc.TestCode = fix.Test
	o.setStatus(inc, store.StatusAwaitingApproval, ft, "fix revised per reviewer feedback")
	o.logActivity(inc.ID, "agent", "fix_revised", fix.Description)
}

// #endregion refine
