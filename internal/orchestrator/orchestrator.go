package orchestrator

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/danielpatrickdp/opsagent/internal/classify"
	"github.com/danielpatrickdp/opsagent/internal/confidence"
	"github.com/danielpatrickdp/opsagent/internal/diagnose"
	"github.com/danielpatrickdp/opsagent/internal/safety"
	"github.com/danielpatrickdp/opsagent/internal/store"
	"github.com/danielpatrickdp/opsagent/internal/target"
	"github.com/danielpatrickdp/opsagent/internal/voice"
)

// #endregion imports

// #region orchestrator-struct

// Orchestrator is the top-level coordinator: it watches the target,
// files incidents, runs diagnosis and fix generation, vets fixes
// through the safety gate, scores confidence, and routes each fix to
// auto-deploy or human approval.
type Orchestrator struct {
	cfg     Config
	store   *store.Store
	target  Target
	sandbox Sandbox
	engine  Engine
	safety  SafetyChecker
	scorer  *confidence.Scorer
	hub     Notifier
	voice   Announcer
	guard   *dedupGuard

	incMu sync.Mutex
	locks map[string]*sync.Mutex // per-incident action serialization

	runMu   sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// #endregion orchestrator-struct

// #region constructor

// New wires a fully assembled orchestrator. The announcer may be nil.
func New(cfg Config, st *store.Store, tgt Target, sb Sandbox, eng Engine, sc SafetyChecker, hub Notifier, announcer Announcer) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		store:   st,
		target:  tgt,
		sandbox: sb,
		engine:  eng,
		safety:  sc,
		scorer:  confidence.NewScorer(st),
		hub:     hub,
		voice:   announcer,
		guard:   newDedupGuard(),
		locks:   make(map[string]*sync.Mutex),
	}
}

// #endregion constructor

// #region lifecycle

func (o *Orchestrator) Enabled() bool { return o.cfg.Enabled }

func (o *Orchestrator) Running() bool {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	return o.running
}

// Start launches the monitor loop. It reloads the dedup guard from
// open incidents first so a restart never double-files faults that
// were already being worked.
func (o *Orchestrator) Start() error {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	if !o.cfg.Enabled {
		return validationf("orchestrator is disabled")
	}
	if o.running {
		return validationf("monitor already running")
	}
	if err := o.guard.Rebuild(o.store); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.running = true
	o.wg.Add(1)
	go o.run(ctx)
	log.Printf("[ORCH] monitor started (interval=%s)", o.cfg.MonitorInterval)
	o.hub.Broadcast("agent_status", map[string]any{"running": true})
	return nil
}

// Stop halts the monitor loop and waits for the in-flight tick.
func (o *Orchestrator) Stop() {
	o.runMu.Lock()
	if !o.running {
		o.runMu.Unlock()
		return
	}
	o.cancel()
	o.running = false
	o.runMu.Unlock()

	o.wg.Wait()
	log.Printf("[ORCH] monitor stopped")
	o.hub.Broadcast("agent_status", map[string]any{"running": false})
}

func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()
	ticker := time.NewTicker(o.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.tick(ctx)
		}
	}
}

// tick is crash-isolated: a panic in one pipeline run is logged and
// the loop keeps monitoring.
func (o *Orchestrator) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ORCH] tick panicked: %v", r)
		}
	}()
	h := o.target.HealthCheck(ctx)
	o.hub.Broadcast("health_update", h)
	if h.Healthy {
		return
	}
	o.handleUnhealthy(ctx, h)
}

// #endregion lifecycle

// #region pipeline

// handleUnhealthy runs the full detect-diagnose-propose pipeline for
// one unhealthy health report.
func (o *Orchestrator) handleUnhealthy(ctx context.Context, h target.Health) {
	ft := classify.Fault(h)
	id := store.NewID()
	if holder, claimed := o.guard.Claim(ft, id); !claimed {
		log.Printf("[ORCH] %s fault already tracked by incident %s, skipping", ft, holder)
		return
	}

	sev := classify.SeverityFor(ft)
	as := classify.ApprovalSeverityFor(ft, sev)
	logs := o.target.Logs(ctx, 50)

	inc := &store.Incident{
		ID:               id,
		ServiceName:      o.cfg.ServiceName,
		Title:            classify.Title(h),
		Description:      classify.Description(ft, h) + "\n\n" + classify.ImpactAnalysis(ft, sev, h),
		Severity:         sev,
		ApprovalSeverity: as,
		Status:           store.StatusDetected,
		ErrorEvidence:    classify.BuildEvidence(h, logs),
		ReportedBy:       "monitor",
		DetectedAt:       time.Now().UTC(),
	}
	if err := o.store.CreateIncident(inc); err != nil {
		o.guard.Release(ft, id)
		log.Printf("[ORCH] create incident: %v", err)
		return
	}
	log.Printf("[ORCH] incident %s detected: fault=%s severity=%s approval=%s", id, ft, sev, as)
	o.logActivity(id, "monitor", "incident_detected", inc.Title)
	o.broadcastIncident(*inc, ft, "")
	o.announce(ctx, *inc)

	// diagnose
	o.setStatus(inc, store.StatusDiagnosing, ft, "")
	ev := o.gatherEvidence(ctx, h, ft, logs)
	diag, err := o.engine.Diagnose(ctx, ev)
	if err != nil {
		log.Printf("[ORCH] diagnose incident %s: %v", id, err)
	}
	inc.RootCause = diag.RootCause
	inc.Reasoning = marshal(diag)

	// propose fix
	fix, err := o.engine.GenerateFix(ctx, diag, ev)
	if err != nil {
		log.Printf("[ORCH] generate fix for incident %s: %v", id, err)
	}
	inc.ProposedFix = fix.Description
	inc.FixDiff = fix.Diff
	inc.FixCode = fix.Code
	inc.TestCode = fix.Test
	o.setStatus(inc, store.StatusFixProposed, ft, fix.Description)
	o.logActivity(id, "agent", "fix_proposed", fix.Description)

	// sandbox
	applied := o.sandbox.Apply(ctx, fix.Code)
	tested := applied
	if applied.Applied {
		tested = o.sandbox.Run(ctx, fix.Test)
	}

	// safety gate
	fixText := fix.Description + "\n" + fix.Diff + "\n" + fix.Code
	sres := o.safety.Check(ctx, safety.Context{
		FaultType: string(ft),
		RootCause: diag.RootCause,
		Severity:  string(sev),
	}, fixText)
	passed := sres.Passed
	inc.SafetyResult = marshal(sres)
	inc.SafetyPassed = &passed

	// confidence
	score, factors := o.scorer.Score(confidence.Inputs{
		Category:     diag.Category,
		FileAtFault:  diag.FileAtFault != "",
		TestPassed:   tested.Passed,
		FixApplied:   applied.Applied,
		SafetyPassed: sres.Passed,
		SafetyScore:  sres.Score,
		Severity:     sev,
	})
	inc.ConfidenceScore = score
	log.Printf("[ORCH] incident %s scored %.3f across %d factors (safety=%v)", id, score, len(factors), sres.Passed)

	// route
	switch {
	case sres.Passed && tested.Passed && score >= o.cfg.AutoFixThreshold:
		inc.AutoResolved = true
		inc.ClearedBy = "agent"
		now := time.Now().UTC()
		inc.ClearedAt = &now
		o.setStatus(inc, store.StatusDeploying, ft, "auto-fix cleared")
		o.logActivity(id, "agent", "auto_fix", "confidence above threshold, deploying without approval")
		o.applyAndVerify(ctx, inc, ft)
	default:
		if score < o.cfg.EscalationThreshold {
			o.escalate(ctx, inc)
		}
		o.setStatus(inc, store.StatusAwaitingApproval, ft, "")
		o.logActivity(id, "agent", "awaiting_approval", inc.ProposedFix)
		o.announce(ctx, *inc)
	}
}

func (o *Orchestrator) gatherEvidence(ctx context.Context, h target.Health, ft classify.FaultType, logs string) diagnose.Evidence {
	return diagnose.Evidence{
		Health:        h,
		FaultType:     ft,
		Logs:          logs,
		HandlerFile:   o.cfg.HandlerFile,
		HandlerSource: o.target.ReadFile(ctx, o.cfg.HandlerFile),
		ConfigFile:    o.cfg.ConfigFile,
		ConfigSource:  o.target.ReadFile(ctx, o.cfg.ConfigFile),
	}
}

// escalate assigns a low-confidence incident to the highest authority
// on record and notifies them directly.
func (o *Orchestrator) escalate(ctx context.Context, inc *store.Incident) {
	leads, err := o.store.FinalAuthorityUsers()
	if err != nil || len(leads) == 0 {
		log.Printf("[ORCH] no final-authority user to escalate incident %s to", inc.ID)
		return
	}
	inc.AssignedTo = leads[0].Name
	o.logActivity(inc.ID, "agent", "escalated", "confidence below escalation threshold, assigned to "+inc.AssignedTo)
	for _, lead := range leads {
		o.hub.SendTo(lead.Name, "escalation", map[string]any{
			"incident_id": inc.ID,
			"title":       inc.Title,
			"confidence":  inc.ConfidenceScore,
		})
	}
}

// #endregion pipeline

// #region helpers

func (o *Orchestrator) setStatus(inc *store.Incident, st store.Status, ft classify.FaultType, detail string) {
	inc.Status = st
	if err := o.store.UpdateIncident(*inc); err != nil {
		log.Printf("[ORCH] update incident %s: %v", inc.ID, err)
		return
	}
	o.broadcastIncident(*inc, ft, detail)
}

func (o *Orchestrator) broadcastIncident(inc store.Incident, ft classify.FaultType, detail string) {
	o.hub.Broadcast("incident_update", incidentEvent{
		IncidentID: inc.ID,
		Status:     string(inc.Status),
		FaultType:  ft,
		Severity:   inc.Severity,
		Approval:   inc.ApprovalSeverity,
		Title:      inc.Title,
		Confidence: inc.ConfidenceScore,
		Detail:     detail,
	})
}

func (o *Orchestrator) logActivity(incidentID, actor, action, detail string) {
	entry, err := o.store.LogActivity(store.ActivityEntry{
		IncidentID: incidentID,
		Actor:      actor,
		Action:     action,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[ORCH] log activity: %v", err)
		return
	}
	o.hub.Broadcast("activity", entry)
}

// announce speaks an alert for incidents serious enough to interrupt
// someone. Lower severities stay silent.
func (o *Orchestrator) announce(ctx context.Context, inc store.Incident) {
	if o.voice == nil {
		return
	}
	if inc.Severity != classify.SeverityHigh && inc.Severity != classify.SeverityCritical {
		return
	}
	o.voice.Announce(ctx, voice.AlertScript(inc))
}

func (o *Orchestrator) lockIncident(id string) *sync.Mutex {
	o.incMu.Lock()
	defer o.incMu.Unlock()
	mu, ok := o.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		o.locks[id] = mu
	}
	return mu
}

func (o *Orchestrator) currentFix(inc store.Incident) diagnose.FixProposal {
	return diagnose.FixProposal{
		Description: inc.ProposedFix,
		Diff:        inc.FixDiff,
		Code:        inc.FixCode,
		Test:        inc.TestCode,
	}
}

// Inject asks the target to fault itself, for demos and drills. The
// monitor picks the fault up on its next tick.
func (o *Orchestrator) Inject(ctx context.Context, faultType string) (target.InjectResult, error) {
	res, err := o.target.InjectFault(ctx, faultType)
	if err != nil {
		return target.InjectResult{}, fmt.Errorf("inject %s: %w", faultType, err)
	}
	o.logActivity("", "operator", "fault_injected", faultType)
	return res, nil
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// #endregion helpers
