package classify

// #region imports
import (
	"strings"

	"github.com/danielpatrickdp/opsagent/internal/target"
)

// #endregion imports

// #region fault-type

// FaultType is the deterministic classification tag for an unhealthy
// signal. It drives deduplication, fallback diagnosis, and recovery
// routing, so the precedence order below must never depend on input
// ordering or randomness.
type FaultType string

const (
	FaultCrash     FaultType = "crash"
	FaultSlow      FaultType = "slow"
	FaultBadConfig FaultType = "bad_config"
	FaultBug       FaultType = "bug"
	FaultUnknown   FaultType = "unknown"
)

// #endregion fault-type

// #region severity

// Severity is the operational blast radius of an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ApprovalSeverity governs which role may approve a fix. It is an
// independent axis from operational severity.
type ApprovalSeverity string

const (
	ApprovalLow     ApprovalSeverity = "low"
	ApprovalMedium  ApprovalSeverity = "medium"
	ApprovalHigh    ApprovalSeverity = "high"
	ApprovalBlocker ApprovalSeverity = "blocker"
)

// #endregion severity

// #region classify

// Fault classifies a health report into a fault type. Precedence is
// fixed and evaluated top to bottom, first match wins:
//
//  1. ProcessDown / ConnectionRefused  → crash
//  2. Timeout                          → slow
//  3. ConfigParseError or config/json keywords in the error → bad_config
//  4. NameError, or NameError/ZeroDivision in the traceback → bug
//  5. time.sleep in the traceback      → slow
//  6. anything else                    → unknown
func Fault(h target.Health) FaultType {
	errLower := strings.ToLower(h.Error)

	switch h.ErrorType {
	case "ProcessDown", "ConnectionRefused":
		return FaultCrash
	case "Timeout":
		return FaultSlow
	case "ConfigParseError":
		return FaultBadConfig
	}

	if strings.Contains(errLower, "config") || strings.Contains(errLower, "json") {
		return FaultBadConfig
	}
	if h.ErrorType == "NameError" ||
		strings.Contains(h.Traceback, "NameError") || strings.Contains(h.Traceback, "ZeroDivision") {
		return FaultBug
	}
	if strings.Contains(h.Traceback, "time.sleep") {
		return FaultSlow
	}
	return FaultUnknown
}

// #endregion classify

// #region severity-mapping

// SeverityFor maps a fault type to operational severity.
func SeverityFor(ft FaultType) Severity {
	switch ft {
	case FaultCrash:
		return SeverityCritical
	case FaultBadConfig, FaultBug:
		return SeverityHigh
	case FaultSlow:
		return SeverityMedium
	default:
		return SeverityMedium
	}
}

// ApprovalSeverityFor derives the approval axis from operational
// severity, then lets fault types with data-loss risk escalate to
// blocker regardless.
func ApprovalSeverityFor(ft FaultType, sev Severity) ApprovalSeverity {
	var as ApprovalSeverity
	switch sev {
	case SeverityCritical:
		as = ApprovalBlocker
	case SeverityHigh, SeverityMedium:
		as = ApprovalMedium
	default:
		as = ApprovalLow
	}
	if ft == FaultCrash || ft == FaultBadConfig {
		as = ApprovalBlocker
	}
	return as
}

// #endregion severity-mapping

// #region rederive-keywords

// Keyword tables for re-deriving a fault type from stored root-cause
// text after a restart. Checked in the same precedence spirit as Fault:
// config before bug before slow before crash.
var rootCauseConfigWords = []string{"config", "json"}
var rootCauseBugWords = []string{"nameerror", "bug", "undefined", "zerodivision"}
var rootCauseSlowWords = []string{"timeout", "sleep", "slow"}
var rootCauseCrashWords = []string{"crash", "process", "killed", "connection refused"}

// #endregion rederive-keywords

// #region rederive

// FromRootCause re-derives the fault type from an incident's stored
// root-cause text. Used to rebuild the dedup guard from persisted
// non-terminal incidents after a restart.
func FromRootCause(rootCause string) FaultType {
	lower := strings.ToLower(rootCause)
	for _, kw := range rootCauseConfigWords {
		if strings.Contains(lower, kw) {
			return FaultBadConfig
		}
	}
	for _, kw := range rootCauseBugWords {
		if strings.Contains(lower, kw) {
			return FaultBug
		}
	}
	for _, kw := range rootCauseSlowWords {
		if strings.Contains(lower, kw) {
			return FaultSlow
		}
	}
	for _, kw := range rootCauseCrashWords {
		if strings.Contains(lower, kw) {
			return FaultCrash
		}
	}
	return FaultUnknown
}

// #endregion rederive
