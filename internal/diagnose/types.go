package diagnose

// #region imports
import (
	"context"

	"github.com/danielpatrickdp/opsagent/internal/classify"
	"github.com/danielpatrickdp/opsagent/internal/target"
)

// #endregion imports

// #region evidence

// Evidence is the bundle handed to an engine: the failing health
// report plus whatever context could be gathered from the app.
type Evidence struct {
	Health        target.Health
	FaultType     classify.FaultType
	Logs          string
	HandlerFile   string // name of the request-handler source file
	HandlerSource string
	ConfigFile    string // name of the config file
	ConfigSource  string
}

// #endregion evidence

// #region diagnosis

// Diagnosis is a structured root-cause analysis.
type Diagnosis struct {
	RootCause   string `json:"root_cause"`
	Explanation string `json:"explanation,omitempty"`
	Reasoning   string `json:"reasoning"`
	Category    string `json:"category"`
	FileAtFault string `json:"file_at_fault,omitempty"`
	LineHint    string `json:"line_hint,omitempty"`
	EngineError string `json:"engine_error,omitempty"` // set when the reasoning engine failed and the fallback answered
}

// #endregion diagnosis

// #region fix

// FixProposal is a structured candidate remediation.
type FixProposal struct {
	Description string `json:"fix_description"`
	Diff        string `json:"fix_diff"`
	Code        string `json:"fix_code"`
	Test        string `json:"test_code"`
	RiskLevel   string `json:"risk_level"`
	EngineError string `json:"engine_error,omitempty"`
}

// #endregion fix

// #region engine

// Engine produces diagnoses and fixes. Implementations: the
// reasoning-engine-backed LLMEngine and the deterministic RuleEngine.
// The Adapter selects between them at call time by success, not by
// configuration.
type Engine interface {
	Diagnose(ctx context.Context, ev Evidence) (Diagnosis, error)
	GenerateFix(ctx context.Context, d Diagnosis, ev Evidence) (FixProposal, error)
	Refine(ctx context.Context, fix FixProposal, feedback string) (FixProposal, error)
}

// #endregion engine
