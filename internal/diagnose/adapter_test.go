package diagnose

import (
	"context"
	"errors"
	"testing"

	"github.com/danielpatrickdp/opsagent/internal/classify"
)

type failingEngine struct{}

func (failingEngine) Diagnose(context.Context, Evidence) (Diagnosis, error) {
	return Diagnosis{}, errors.New("backend down")
}
func (failingEngine) GenerateFix(context.Context, Diagnosis, Evidence) (FixProposal, error) {
	return FixProposal{}, errors.New("backend down")
}
func (failingEngine) Refine(context.Context, FixProposal, string) (FixProposal, error) {
	return FixProposal{}, errors.New("backend down")
}

func TestAdapter_NoPrimary_UsesRules(t *testing.T) {
	a := NewAdapter(nil)
	d, err := a.Diagnose(context.Background(), Evidence{FaultType: classify.FaultCrash})
	if err != nil {
		t.Fatalf("diagnose: %v", err)
	}
	if d.Category != "crash" || d.EngineError != "" {
		t.Errorf("diagnosis = %+v", d)
	}
}

func TestAdapter_PrimaryFailure_FallsBackAndRecords(t *testing.T) {
	a := NewAdapter(failingEngine{})

	d, err := a.Diagnose(context.Background(), Evidence{FaultType: classify.FaultBug})
	if err != nil {
		t.Fatalf("diagnose must not error on fallback: %v", err)
	}
	if d.Category != "bug" {
		t.Errorf("category = %s", d.Category)
	}
	if d.EngineError != "backend down" {
		t.Errorf("engine error not recorded: %q", d.EngineError)
	}

	f, err := a.GenerateFix(context.Background(), d, Evidence{FaultType: classify.FaultBug})
	if err != nil {
		t.Fatalf("fix must not error on fallback: %v", err)
	}
	if f.Description == "" || f.EngineError != "backend down" {
		t.Errorf("fix = %+v", f)
	}
}
