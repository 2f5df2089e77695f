package diagnose

// #region imports
import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/danielpatrickdp/opsagent/internal/classify"
)

// #endregion imports

// #region engine

// RuleEngine is the deterministic fallback: canned but structured
// diagnoses and fixes per fault type. It never returns an error, so
// the pipeline always has something to propose even with no reasoning
// backend configured.
type RuleEngine struct{}

func NewRuleEngine() *RuleEngine { return &RuleEngine{} }

// #endregion engine

// #region diagnose

var lineHintRE = regexp.MustCompile(`line (\d+)`)

func (e *RuleEngine) Diagnose(_ context.Context, ev Evidence) (Diagnosis, error) {
	handler := ev.HandlerFile
	if handler == "" {
		handler = "handler.py"
	}
	config := ev.ConfigFile
	if config == "" {
		config = "config.json"
	}

	var d Diagnosis
	switch ev.FaultType {
	case classify.FaultCrash:
		d = Diagnosis{
			RootCause:   "Application process is down and not accepting connections",
			Explanation: "Health checks cannot reach the service, which indicates the process exited or was killed.",
			Reasoning:   "Connection-level failure with no HTTP response points at a dead process rather than application logic.",
			Category:    "crash",
		}
	case classify.FaultBadConfig:
		d = Diagnosis{
			RootCause:   fmt.Sprintf("Configuration file %s is corrupted or contains invalid JSON", config),
			Explanation: "The service is running but fails on startup config parsing, so requests error out.",
			Reasoning:   "A config parse error in the health report means the file content changed to something unparseable.",
			Category:    "config",
			FileAtFault: config,
		}
	case classify.FaultBug:
		d = Diagnosis{
			RootCause:   fmt.Sprintf("Bug in %s raising an exception at request time", handler),
			Explanation: "Requests reach the handler and fail with an uncaught exception, a code-level defect.",
			Reasoning:   "The traceback shows an exception raised inside the request handler, not an infrastructure issue.",
			Category:    "bug",
			FileAtFault: handler,
			LineHint:    lineHintFromTraceback(ev.Health.Traceback, handler),
		}
	case classify.FaultSlow:
		d = Diagnosis{
			RootCause:   fmt.Sprintf("Blocking sleep call in %s degrading response time", handler),
			Explanation: "The service answers but far outside its latency budget, which suggests a blocking call in the request path.",
			Reasoning:   "Latency regression without errors usually means an added sleep or blocking I/O call in the handler.",
			Category:    "performance",
			FileAtFault: handler,
		}
	default:
		d = Diagnosis{
			RootCause:   "Unrecognized failure mode, manual investigation required",
			Reasoning:   "None of the known fault signatures matched the observed symptoms.",
			Category:    "unknown",
		}
	}
	return d, nil
}

// lineHintFromTraceback pulls the first "line N" reference for the
// named file out of a traceback.
func lineHintFromTraceback(traceback, file string) string {
	for _, ln := range strings.Split(traceback, "\n") {
		if !strings.Contains(ln, file) {
			continue
		}
		if m := lineHintRE.FindStringSubmatch(ln); m != nil {
			return m[1]
		}
	}
	return ""
}

// #endregion diagnose

// #region fix

func (e *RuleEngine) GenerateFix(_ context.Context, d Diagnosis, ev Evidence) (FixProposal, error) {
	handler := ev.HandlerFile
	if handler == "" {
		handler = "handler.py"
	}
	config := ev.ConfigFile
	if config == "" {
		config = "config.json"
	}

	var f FixProposal
	switch d.Category {
	case "crash":
		f = FixProposal{
			Description: "Restart the application process and verify it accepts connections again",
			Code:        "restart service process",
			Test:        "poll /health until the service reports healthy",
			RiskLevel:   "low",
		}
	case "config":
		f = FixProposal{
			Description: fmt.Sprintf("Restore %s from the last known-good backup and reload the service", config),
			Diff:        fmt.Sprintf("--- %s (corrupted)\n+++ %s (restored from backup)", config, config),
			Code:        fmt.Sprintf("restore %s from backup", config),
			Test:        "parse the restored config as JSON and poll /health",
			RiskLevel:   "low",
		}
	case "bug":
		f = FixProposal{
			Description: fmt.Sprintf("Revert %s to the last known-good version to remove the defective change", handler),
			Diff:        fmt.Sprintf("--- %s (broken)\n+++ %s (restored from backup)", handler, handler),
			Code:        fmt.Sprintf("restore %s from backup", handler),
			Test:        "issue a request through the handler and assert a 200 response",
			RiskLevel:   "medium",
		}
	case "performance":
		f = FixProposal{
			Description: fmt.Sprintf("Remove the blocking delay from %s by restoring the previous version", handler),
			Diff:        fmt.Sprintf("--- %s (slow)\n+++ %s (restored from backup)", handler, handler),
			Code:        fmt.Sprintf("restore %s from backup", handler),
			Test:        "time a request and assert response under the latency budget",
			RiskLevel:   "low",
		}
	default:
		f = FixProposal{
			Description: "No automated fix available, escalate to an engineer for manual investigation",
			RiskLevel:   "high",
		}
	}
	return f, nil
}

// #endregion fix

// #region refine

// Refine for the rule engine simply folds the reviewer feedback into
// the description; there is no reasoning backend to re-prompt.
func (e *RuleEngine) Refine(_ context.Context, fix FixProposal, feedback string) (FixProposal, error) {
	fix.Description = fix.Description + " (revised per feedback: " + feedback + ")"
	return fix, nil
}

// #endregion refine
