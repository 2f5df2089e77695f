package orchestrator

// #region imports
import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/danielpatrickdp/opsagent/internal/classify"
	"github.com/danielpatrickdp/opsagent/internal/diagnose"
	"github.com/danielpatrickdp/opsagent/internal/safety"
	"github.com/danielpatrickdp/opsagent/internal/sandbox"
	"github.com/danielpatrickdp/opsagent/internal/target"
)

// #endregion imports

// #region collaborators

// Target is the monitored application's control surface.
type Target interface {
	HealthCheck(ctx context.Context) target.Health
	Logs(ctx context.Context, limit int) string
	ReadFile(ctx context.Context, name string) string
	Recover(ctx context.Context, faultType string) (target.RecoveryResult, error)
	Restart(ctx context.Context) error
	InjectFault(ctx context.Context, faultType string) (target.InjectResult, error)
}

// Sandbox stages and tests candidate fixes in isolation.
type Sandbox interface {
	Apply(ctx context.Context, fixCode string) sandbox.Result
	Run(ctx context.Context, testCode string) sandbox.Result
}

// SafetyChecker vets a proposed fix before anyone sees it.
type SafetyChecker interface {
	Check(ctx context.Context, sctx safety.Context, fixText string) safety.Result
}

// Notifier pushes events to connected observers.
type Notifier interface {
	Broadcast(eventType string, data any)
	SendTo(user, eventType string, data any)
}

// Announcer speaks alerts; implementations swallow their own errors.
type Announcer interface {
	Announce(ctx context.Context, script string)
}

// Engine is satisfied by the diagnose.Adapter.
type Engine = diagnose.Engine

// #endregion collaborators

// #region config

type Config struct {
	Enabled             bool
	MonitorInterval     time.Duration
	VerifyDelay         time.Duration
	VerifyAttempts      int
	AutoFixThreshold    float64
	EscalationThreshold float64
	HandlerFile         string
	ConfigFile          string
	ServiceName         string
}

// DefaultConfig reads thresholds and intervals from the environment.
// Kill switch: set ORCHESTRATOR_ENABLED=false to disable the loop.
func DefaultConfig() Config {
	cfg := Config{
		Enabled:             os.Getenv("ORCHESTRATOR_ENABLED") != "false",
		MonitorInterval:     envDuration("MONITOR_INTERVAL", 5*time.Second),
		VerifyDelay:         envDuration("VERIFY_DELAY", 2*time.Second),
		VerifyAttempts:      4,
		AutoFixThreshold:    envFloat("AUTO_FIX_THRESHOLD", 0.85),
		EscalationThreshold: envFloat("ESCALATION_THRESHOLD", 0.5),
		HandlerFile:         "handler.py",
		ConfigFile:          "config.json",
		ServiceName:         "demo-app",
	}
	if v := os.Getenv("TARGET_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	return cfg
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// #endregion config

// #region events

// incidentEvent is what gets broadcast on every lifecycle change.
type incidentEvent struct {
	IncidentID string                    `json:"incident_id"`
	Status     string                    `json:"status"`
	FaultType  classify.FaultType        `json:"fault_type,omitempty"`
	Severity   classify.Severity         `json:"severity,omitempty"`
	Approval   classify.ApprovalSeverity `json:"approval_severity,omitempty"`
	Title      string                    `json:"title,omitempty"`
	Confidence float64                   `json:"confidence,omitempty"`
	Detail     string                    `json:"detail,omitempty"`
}

// #endregion events
