package classify

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/opsagent/internal/target"
)

func TestTitle_Truncation(t *testing.T) {
	long := strings.Repeat("x", 200)
	if got := Title(target.Health{Error: long}); len(got) != 80 {
		t.Errorf("Title length = %d, want 80", len(got))
	}
	if got := Title(target.Health{}); got != "Unknown error" {
		t.Errorf("empty error Title = %q", got)
	}
}

func TestBuildEvidence_Sections(t *testing.T) {
	h := target.Health{Error: "boom", Traceback: "NameError: x"}
	logs := strings.Repeat("line\n", 500)

	ev := BuildEvidence(h, logs)
	if !strings.Contains(ev, "=== HEALTH CHECK ===") {
		t.Error("missing health section")
	}
	if !strings.Contains(ev, "=== TRACEBACK ===") {
		t.Error("missing traceback section")
	}
	if !strings.Contains(ev, "=== APPLICATION LOGS ===") {
		t.Error("missing logs section")
	}
	// only the newest 1500 bytes of logs survive
	if idx := strings.Index(ev, "=== APPLICATION LOGS ==="); len(ev)-idx > 1600 {
		t.Errorf("log tail not truncated, %d bytes after logs header", len(ev)-idx)
	}
}

func TestImpactAnalysis_KnownAndUnknown(t *testing.T) {
	if got := ImpactAnalysis(FaultCrash, SeverityCritical, target.Health{}); !strings.Contains(got, "CRITICAL IMPACT") {
		t.Errorf("crash impact = %q", got)
	}
	if got := ImpactAnalysis(FaultUnknown, SeverityMedium, target.Health{Error: "odd"}); !strings.Contains(got, "UNKNOWN IMPACT") {
		t.Errorf("unknown impact = %q", got)
	}
}
