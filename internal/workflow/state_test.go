package workflow

import (
	"testing"

	"github.com/rahul/khoj/internal/plan"
)

func TestNext_Routing(t *testing.T) {
	if got := Next(nil); got != TargetPlanner {
		t.Errorf("nil plan: expected planner, got %s", got)
	}
	if got := Next(&plan.Plan{}); got != TargetPlanner {
		t.Errorf("empty plan: expected planner, got %s", got)
	}

	p := &plan.Plan{Steps: []plan.Step{
		{Title: "gather", Kind: plan.KindResearch, ExecutionStatus: plan.StatusPending},
		{Title: "analyze", Kind: plan.KindProcessing, ExecutionStatus: plan.StatusPending},
	}}

	if got := Next(p); got != TargetResearcher {
		t.Errorf("first pending research step: expected researcher, got %s", got)
	}

	p.Complete(0, "findings")
	if got := Next(p); got != TargetProcessor {
		t.Errorf("first pending processing step: expected processor, got %s", got)
	}

	// A failed step is terminal and never re-routed to
	p.Finish(1, plan.StatusFailed, "Step failed due to an unexpected error.", "boom")
	if got := Next(p); got != TargetSynthesizer {
		t.Errorf("all terminal: expected synthesizer, got %s", got)
	}
}

func TestNext_SkippedAndRateLimitedAreTerminal(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{
		{ExecutionStatus: plan.StatusSkipped},
		{ExecutionStatus: plan.StatusRateLimited},
		{ExecutionStatus: plan.StatusCompleted},
	}}
	if got := Next(p); got != TargetSynthesizer {
		t.Errorf("Expected synthesizer once every step is terminal, got %s", got)
	}
}
