package diagnose

import (
	"context"
	"strings"
	"testing"

	"github.com/danielpatrickdp/opsagent/internal/classify"
	"github.com/danielpatrickdp/opsagent/internal/target"
)

func TestRuleEngine_CategoriesPerFault(t *testing.T) {
	e := NewRuleEngine()
	tests := []struct {
		ft       classify.FaultType
		category string
	}{
		{classify.FaultCrash, "crash"},
		{classify.FaultBadConfig, "config"},
		{classify.FaultBug, "bug"},
		{classify.FaultSlow, "performance"},
		{classify.FaultUnknown, "unknown"},
	}
	for _, tt := range tests {
		d, err := e.Diagnose(context.Background(), Evidence{FaultType: tt.ft})
		if err != nil {
			t.Fatalf("diagnose %s: %v", tt.ft, err)
		}
		if d.Category != tt.category {
			t.Errorf("%s category = %s, want %s", tt.ft, d.Category, tt.category)
		}
		if d.RootCause == "" || d.Reasoning == "" {
			t.Errorf("%s produced empty diagnosis: %+v", tt.ft, d)
		}
	}
}

func TestRuleEngine_RootCauseRederivesFaultType(t *testing.T) {
	// the dedup guard rebuild depends on this round trip
	e := NewRuleEngine()
	for _, ft := range []classify.FaultType{
		classify.FaultCrash, classify.FaultBadConfig, classify.FaultBug, classify.FaultSlow,
	} {
		d, _ := e.Diagnose(context.Background(), Evidence{FaultType: ft})
		if got := classify.FromRootCause(d.RootCause); got != ft {
			t.Errorf("FromRootCause(%q) = %s, want %s", d.RootCause, got, ft)
		}
	}
}

func TestRuleEngine_LineHint(t *testing.T) {
	e := NewRuleEngine()
	ev := Evidence{
		FaultType:   classify.FaultBug,
		HandlerFile: "handler.py",
		Health: target.Health{
			Traceback: "Traceback (most recent call last):\n" +
				"  File \"handler.py\", line 42, in handle\n" +
				"NameError: name 'x' is not defined",
		},
	}
	d, _ := e.Diagnose(context.Background(), ev)
	if d.LineHint != "42" {
		t.Errorf("line hint = %q, want 42", d.LineHint)
	}
	if d.FileAtFault != "handler.py" {
		t.Errorf("file at fault = %q", d.FileAtFault)
	}
}

func TestRuleEngine_Deterministic(t *testing.T) {
	e := NewRuleEngine()
	ev := Evidence{FaultType: classify.FaultBadConfig}
	first, _ := e.Diagnose(context.Background(), ev)
	for i := 0; i < 3; i++ {
		if got, _ := e.Diagnose(context.Background(), ev); got != first {
			t.Fatalf("run %d diverged: %+v vs %+v", i, got, first)
		}
	}
}

func TestRuleEngine_FixesMentionRollback(t *testing.T) {
	// every canned fix must clear the safety gate's rollback and
	// coherence checks for its own fault type
	e := NewRuleEngine()
	for _, ft := range []classify.FaultType{
		classify.FaultCrash, classify.FaultBadConfig, classify.FaultBug, classify.FaultSlow,
	} {
		d, _ := e.Diagnose(context.Background(), Evidence{FaultType: ft})
		f, err := e.GenerateFix(context.Background(), d, Evidence{FaultType: ft})
		if err != nil {
			t.Fatalf("fix %s: %v", ft, err)
		}
		if f.Description == "" || f.RiskLevel == "" {
			t.Errorf("%s fix incomplete: %+v", ft, f)
		}
		text := strings.ToLower(f.Description + " " + f.Code)
		if ft != classify.FaultCrash && !strings.Contains(text, "restore") {
			t.Errorf("%s fix has no rollback wording: %q", ft, text)
		}
	}
}

func TestRuleEngine_UnknownFaultEscalates(t *testing.T) {
	e := NewRuleEngine()
	d, _ := e.Diagnose(context.Background(), Evidence{FaultType: classify.FaultUnknown})
	f, _ := e.GenerateFix(context.Background(), d, Evidence{})
	if f.RiskLevel != "high" {
		t.Errorf("unknown fault risk = %s, want high", f.RiskLevel)
	}
	if !strings.Contains(strings.ToLower(f.Description), "escalate") {
		t.Errorf("unknown fault fix = %q", f.Description)
	}
}

func TestRuleEngine_RefineAppendsFeedback(t *testing.T) {
	e := NewRuleEngine()
	fix := FixProposal{Description: "restore config.json from backup"}
	got, err := e.Refine(context.Background(), fix, "also validate the JSON first")
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if !strings.Contains(got.Description, "also validate the JSON first") {
		t.Errorf("feedback not folded in: %q", got.Description)
	}
}
