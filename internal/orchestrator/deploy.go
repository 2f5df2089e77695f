package orchestrator

// #region imports
import (
	"context"
	"log"
	"time"

	"github.com/danielpatrickdp/opsagent/internal/classify"
	"github.com/danielpatrickdp/opsagent/internal/store"
)

// #endregion imports

// #region deploy

// applyAndVerify recovers the target and polls health until it comes
// back. The incident never stays in deploying: it either resolves or
// drops back to fix_proposed for another round of review.
func (o *Orchestrator) applyAndVerify(ctx context.Context, inc *store.Incident, ft classify.FaultType) {
	log.Printf("[ORCH] deploying fix for incident %s (fault=%s)", inc.ID, ft)

	rec, err := o.target.Recover(ctx, string(ft))
	if err != nil {
		log.Printf("[ORCH] recover failed for incident %s: %v", inc.ID, err)
	} else if rec.Action != "" {
		o.logActivity(inc.ID, "agent", "recovery", rec.Action)
	}
	if ft != classify.FaultCrash {
		if err := o.target.Restart(ctx); err != nil {
			log.Printf("[ORCH] restart failed for incident %s: %v", inc.ID, err)
		}
	}

	select {
	case <-ctx.Done():
		o.revertToProposed(inc, ft, "deployment interrupted")
		return
	case <-time.After(o.cfg.VerifyDelay):
	}

	lastErr := ""
	for attempt := 1; attempt <= o.cfg.VerifyAttempts; attempt++ {
		h := o.target.HealthCheck(ctx)
		if h.Healthy {
			o.resolve(ctx, inc, ft, attempt)
			return
		}
		lastErr = h.Error
		log.Printf("[ORCH] verify attempt %d/%d for incident %s: still unhealthy (%s)",
			attempt, o.cfg.VerifyAttempts, inc.ID, h.Error)
		if attempt < o.cfg.VerifyAttempts {
			select {
			case <-ctx.Done():
				o.revertToProposed(inc, ft, "deployment interrupted")
				return
			case <-time.After(o.cfg.VerifyDelay):
			}
		}
	}
	o.revertToProposed(inc, ft, "verification failed after deploy: "+lastErr)
}

func (o *Orchestrator) resolve(ctx context.Context, inc *store.Incident, ft classify.FaultType, attempts int) {
	now := time.Now().UTC()
	inc.ResolvedAt = &now
	o.setStatus(inc, store.StatusResolved, ft, "")
	o.guard.Release(ft, inc.ID)
	log.Printf("[ORCH] incident %s resolved after %d verify attempt(s)", inc.ID, attempts)
	o.logActivity(inc.ID, "agent", "resolved", "fix verified against live health checks")
	o.announce(ctx, *inc)
}

// revertToProposed keeps the guard entry: the fault is still live and
// the monitor must not file a duplicate while humans reconsider.
func (o *Orchestrator) revertToProposed(inc *store.Incident, ft classify.FaultType, reason string) {
	inc.AutoResolved = false
	o.setStatus(inc, store.StatusFixProposed, ft, reason)
	log.Printf("[ORCH] incident %s reverted to %s: %s", inc.ID, store.StatusFixProposed, reason)
	o.logActivity(inc.ID, "agent", "verify_failed", reason)
}

// #endregion deploy
