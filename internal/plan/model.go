package plan

// StepKind indicates which executor a step is routed to.
type StepKind string

const (
	KindResearch   StepKind = "research"
	KindProcessing StepKind = "processing"
)

// DependencyDetail is how much of a prior step's result a later step
// is allowed to see.
type DependencyDetail string

const (
	DetailNone      DependencyDetail = "none"
	DetailSummary   DependencyDetail = "summary"
	DetailKeyPoints DependencyDetail = "key_points"
	DetailFull      DependencyDetail = "full"
)

// ExecutionStatus tracks a step's lifecycle. A step starts pending and
// transitions exactly once to one of the terminal states.
type ExecutionStatus string

const (
	StatusPending     ExecutionStatus = "pending"
	StatusCompleted   ExecutionStatus = "completed"
	StatusFailed      ExecutionStatus = "failed"
	StatusSkipped     ExecutionStatus = "skipped"
	StatusRateLimited ExecutionStatus = "rate_limited"
)

// Terminal reports whether the status is final.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusSkipped, StatusRateLimited:
		return true
	}
	return false
}

// Step is a single unit of work in a plan. DependsOn holds 0-based
// indices of earlier steps whose results this step needs; the declared
// DependencyDetail bounds how much of those results it receives.
type Step struct {
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Kind             StepKind         `json:"step_type"`
	NeedSearch       bool             `json:"need_search"`
	DependsOn        []int            `json:"depends_on"`
	DependencyDetail DependencyDetail `json:"dependency_type"`
	RequiredInfo     []string         `json:"required_info"`
	ExecutionStatus  ExecutionStatus  `json:"execution_status"`
	Result           string           `json:"execution_res,omitempty"`
	ErrorMessage     string           `json:"error_message,omitempty"`
}

// Plan is the ordered set of steps produced by the planner for one
// topic. Steps are only ever appended or mutated in place, never
// reordered or removed.
type Plan struct {
	Locale           string `json:"locale"`
	Title            string `json:"title"`
	Thought          string `json:"thought"`
	HasEnoughContext bool   `json:"has_enough_context"`
	Steps            []Step `json:"steps"`
}

// AllTerminal reports whether every step has reached a terminal status.
func (p *Plan) AllTerminal() bool {
	for i := range p.Steps {
		if !p.Steps[i].ExecutionStatus.Terminal() {
			return false
		}
	}
	return true
}

// FirstPending returns the index of the first pending step, or -1.
func (p *Plan) FirstPending() int {
	for i := range p.Steps {
		if p.Steps[i].ExecutionStatus == StatusPending {
			return i
		}
	}
	return -1
}

// Complete records a successful result on step i.
func (p *Plan) Complete(i int, result string) {
	p.Steps[i].ExecutionStatus = StatusCompleted
	p.Steps[i].Result = result
}

// Finish records a terminal non-success outcome on step i, with a
// placeholder result so downstream consumers see the gap.
func (p *Plan) Finish(i int, status ExecutionStatus, result, errMsg string) {
	p.Steps[i].ExecutionStatus = status
	p.Steps[i].Result = result
	p.Steps[i].ErrorMessage = errMsg
}
