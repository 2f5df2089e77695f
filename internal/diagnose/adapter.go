package diagnose

// #region imports
import (
	"context"
	"log"
	"time"
)

// #endregion imports

// #region adapter

// Adapter fronts an optional LLM engine with the deterministic rule
// engine. Every call tries the primary first and falls back on any
// error, recording the failure on the result so reviewers can see the
// answer came from the fallback path.
type Adapter struct {
	primary  Engine // nil when no reasoning backend is configured
	fallback *RuleEngine
	timeout  time.Duration
}

func NewAdapter(primary Engine) *Adapter {
	return &Adapter{primary: primary, fallback: NewRuleEngine(), timeout: 60 * time.Second}
}

func (a *Adapter) primaryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

// #endregion adapter

// #region diagnose

func (a *Adapter) Diagnose(ctx context.Context, ev Evidence) (Diagnosis, error) {
	if a.primary != nil {
		pctx, cancel := a.primaryCtx(ctx)
		d, err := a.primary.Diagnose(pctx, ev)
		cancel()
		if err == nil {
			return d, nil
		}
		log.Printf("[DIAG] reasoning engine failed (%v), using rule engine", err)
		d, _ = a.fallback.Diagnose(ctx, ev)
		d.EngineError = err.Error()
		return d, nil
	}
	return a.fallback.Diagnose(ctx, ev)
}

// #endregion diagnose

// #region fix

func (a *Adapter) GenerateFix(ctx context.Context, d Diagnosis, ev Evidence) (FixProposal, error) {
	if a.primary != nil {
		pctx, cancel := a.primaryCtx(ctx)
		f, err := a.primary.GenerateFix(pctx, d, ev)
		cancel()
		if err == nil {
			return f, nil
		}
		log.Printf("[DIAG] fix generation failed (%v), using rule engine", err)
		f, _ = a.fallback.GenerateFix(ctx, d, ev)
		f.EngineError = err.Error()
		return f, nil
	}
	return a.fallback.GenerateFix(ctx, d, ev)
}

// #endregion fix

// #region refine

func (a *Adapter) Refine(ctx context.Context, fix FixProposal, feedback string) (FixProposal, error) {
	if a.primary != nil {
		pctx, cancel := a.primaryCtx(ctx)
		f, err := a.primary.Refine(pctx, fix, feedback)
		cancel()
		if err == nil {
			return f, nil
		}
		log.Printf("[DIAG] fix refinement failed (%v), using rule engine", err)
		f, _ = a.fallback.Refine(ctx, fix, feedback)
		f.EngineError = err.Error()
		return f, nil
	}
	return a.fallback.Refine(ctx, fix, feedback)
}

// #endregion refine
