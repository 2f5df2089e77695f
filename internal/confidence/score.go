package confidence

// #region imports
import (
	"fmt"
	"log"
	"math"

	"github.com/danielpatrickdp/opsagent/internal/classify"
)

// #endregion imports

// #region inputs

// History supplies the approval track record for a diagnosis category,
// fed by recorded human decisions.
type History interface {
	ApprovalRate(incidentType string) (approved, total int, err error)
}

// Inputs are the per-incident facts the scorer weighs.
type Inputs struct {
	Category     string // diagnosis category
	FileAtFault  bool
	TestPassed   bool
	FixApplied   bool
	SafetyPassed bool
	SafetyScore  float64
	Severity     classify.Severity
}

// Factor records one contribution to a score, for display alongside
// the final number.
type Factor struct {
	Name  string  `json:"name"`
	Delta float64 `json:"delta"`
}

// #endregion inputs

// #region scorer

// Scorer turns incident facts plus the historical approval rate into
// a confidence in [0, 1]. The result drives routing: auto-fix above
// the high threshold, escalation below the low one.
type Scorer struct {
	history History // may be nil
}

func NewScorer(history History) *Scorer { return &Scorer{history: history} }

var severityPenalty = map[classify.Severity]float64{
	classify.SeverityLow:      0,
	classify.SeverityMedium:   -0.05,
	classify.SeverityHigh:     -0.1,
	classify.SeverityCritical: -0.15,
}

// Score is deterministic for fixed inputs and history.
func (s *Scorer) Score(in Inputs) (float64, []Factor) {
	score := 0.5
	factors := []Factor{{Name: "base", Delta: 0.5}}
	add := func(name string, delta float64) {
		score += delta
		factors = append(factors, Factor{Name: name, Delta: delta})
	}

	if in.Category != "" && in.Category != "unknown" {
		add("diagnosis categorized", 0.1)
	}
	if in.FileAtFault {
		add("fault localized to a file", 0.05)
	}
	if in.TestPassed {
		add("sandbox test passed", 0.15)
	}
	if in.FixApplied {
		add("fix applied in sandbox", 0.05)
	}
	if in.SafetyPassed {
		add("safety checks passed", 0.1)
	}
	add("safety score", 0.1*in.SafetyScore)
	if p := severityPenalty[in.Severity]; p != 0 {
		add(fmt.Sprintf("severity %s", in.Severity), p)
	}

	if s.history != nil {
		approved, total, err := s.history.ApprovalRate(in.Category)
		switch {
		case err != nil:
			log.Printf("[CONF] approval history unavailable: %v", err)
		case total > 0:
			delta := clamp((float64(approved)/float64(total)-0.5)*0.2, -0.1, 0.1)
			add(fmt.Sprintf("approval history %d/%d", approved, total), delta)
		}
	}

	return clamp(round3(score), 0, 1), factors
}

// #endregion scorer

// #region helpers

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// #endregion helpers
