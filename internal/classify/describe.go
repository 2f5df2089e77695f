package classify

// #region imports
import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/opsagent/internal/target"
)

// #endregion imports

// #region description

// Description builds the one-line incident description for a fault.
func Description(ft FaultType, h target.Health) string {
	errText := h.Error
	if errText == "" {
		errText = "Unknown"
	}
	switch ft {
	case FaultCrash:
		return fmt.Sprintf("Application process crashed — %s", errText)
	case FaultBadConfig:
		return fmt.Sprintf("Configuration error — %s", errText)
	case FaultBug:
		return fmt.Sprintf("Code error in handler — %s: %s", h.ErrorType, errText)
	case FaultSlow:
		return fmt.Sprintf("Performance degradation — %s", errText)
	}
	return fmt.Sprintf("Application error: %s", errText)
}

// Title builds the short incident title from the raw error.
func Title(h target.Health) string {
	errText := h.Error
	if errText == "" {
		errText = "Unknown error"
	}
	if len(errText) > 80 {
		errText = errText[:80]
	}
	return errText
}

// #endregion description

// #region impact

var impactAnalyses = map[FaultType]string{
	FaultCrash: "CRITICAL IMPACT — Complete Service Outage\n\n" +
		"- All API endpoints are unreachable\n" +
		"- Customers cannot browse products, place orders, or check out\n" +
		"- In-flight transactions may be lost\n" +
		"- Upstream services depending on this API will also fail\n" +
		"- Estimated blast radius: 100% of users",
	FaultBadConfig: "HIGH IMPACT — Configuration Corruption\n\n" +
		"- Application crashes on startup due to invalid config\n" +
		"- Database connection string corrupted — potential data loss\n" +
		"- All API endpoints return HTTP 500 errors\n" +
		"- Estimated blast radius: 100% of users",
	FaultBug: "HIGH IMPACT — Code Defect in Business Logic\n\n" +
		"- Health validation fails — app reports unhealthy\n" +
		"- Undefined function calls raise errors on every request\n" +
		"- Estimated blast radius: 60-80% of API calls",
	FaultSlow: "MEDIUM IMPACT — Performance Degradation\n\n" +
		"- Requests take seconds instead of milliseconds\n" +
		"- Health checks time out, monitoring reports the app down\n" +
		"- No data loss but severe latency for every user\n" +
		"- Estimated blast radius: 100% of users (degraded, not blocked)",
}

// ImpactAnalysis builds the human-readable impact summary for a fault.
func ImpactAnalysis(ft FaultType, sev Severity, h target.Health) string {
	if impact, ok := impactAnalyses[ft]; ok {
		return impact
	}
	errText := h.Error
	if errText == "" {
		errText = "Unknown"
	}
	return fmt.Sprintf("UNKNOWN IMPACT\n\nSeverity: %s\nError: %s", sev, errText)
}

// #endregion impact

// #region evidence

// BuildEvidence assembles the formatted evidence bundle stored on the
// incident: health dump, traceback, and log tail.
func BuildEvidence(h target.Health, logs string) string {
	var parts []string

	dump, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		dump = []byte(h.Error)
	}
	parts = append(parts, fmt.Sprintf("=== HEALTH CHECK ===\n%s", dump))

	if h.Traceback != "" {
		parts = append(parts, fmt.Sprintf("=== TRACEBACK ===\n%s", h.Traceback))
	}
	if logs != "" {
		if len(logs) > 1500 {
			logs = logs[len(logs)-1500:]
		}
		parts = append(parts, fmt.Sprintf("=== APPLICATION LOGS ===\n%s", logs))
	}
	return strings.Join(parts, "\n\n")
}

// #endregion evidence
