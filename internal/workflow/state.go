package workflow

import "github.com/rahul/khoj/internal/plan"

// State is the workflow machine's position in a run.
type State string

const (
	StateCoordinating     State = "coordinating"
	StateInvestigating    State = "investigating"
	StatePlanning         State = "planning"
	StateAwaitingApproval State = "awaiting-approval"
	StateExecutingSteps   State = "executing-steps"
	StateSynthesizing     State = "synthesizing"
	StateDone             State = "done"
	StateAborted          State = "aborted"
)

// Target is where the routing function sends control next.
type Target string

const (
	TargetPlanner     Target = "planner"
	TargetResearcher  Target = "researcher"
	TargetProcessor   Target = "processor"
	TargetSynthesizer Target = "synthesizer"
)

// Next is the routing contract evaluated after every step transition.
// A missing or empty plan goes back to planning; a fully terminal plan
// moves to synthesis; otherwise the first pending step picks its
// executor by kind. No pending step while non-terminal steps remain is
// a mid-transition state and re-routes to planning.
func Next(p *plan.Plan) Target {
	if p == nil || len(p.Steps) == 0 {
		return TargetPlanner
	}
	if p.AllTerminal() {
		return TargetSynthesizer
	}
	i := p.FirstPending()
	if i < 0 {
		return TargetPlanner
	}
	if p.Steps[i].Kind == plan.KindProcessing {
		return TargetProcessor
	}
	return TargetResearcher
}
