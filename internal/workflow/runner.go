package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/rahul/khoj/internal/budget"
	"github.com/rahul/khoj/internal/executor"
	"github.com/rahul/khoj/internal/observability"
	"github.com/rahul/khoj/internal/plan"
	"github.com/rahul/khoj/pkg/config"
	"github.com/tmc/langchaingo/llms"
)

// Run is the mutable state of one workflow execution. The plan and
// observation list are owned by the run; messages passed to external
// calls are always freshly trimmed snapshots.
type Run struct {
	ID             string
	Topic          string
	Locale         string
	Background     string
	Plan           *plan.Plan
	Observations   []string
	PlanIterations int
	State          State
	FinalReport    string
}

// Checkpointer persists run snapshots after state transitions. A nil
// checkpointer disables persistence.
type Checkpointer interface {
	SaveRun(r *Run) error
	SaveStep(runID string, index int, s *plan.Step) error
	AppendObservation(runID string, index int, text string) error
}

// RunContext carries everything a run needs, resolved once at run
// construction: configuration, the budget manager, the stage executor
// registry, prompts, logging and optional persistence. Components never
// re-read configuration mid-run.
type RunContext struct {
	Config       *config.Config
	Model        string
	Budget       *budget.Manager
	Executors    map[plan.StepKind]executor.StepExecutor
	Prompts      *PromptManager
	Logger       *observability.Logger
	Checkpointer Checkpointer
}

// Runner drives one topic through the workflow states. Coordinator,
// Investigator and Approval are optional; a nil Approval auto-accepts.
type Runner struct {
	rc *RunContext

	Planner      Planner
	Synthesizer  Synthesizer
	Coordinator  Coordinator
	Investigator Investigator
	Approval     ApprovalHandler
}

func NewRunner(rc *RunContext, planner Planner, synthesizer Synthesizer) *Runner {
	return &Runner{rc: rc, Planner: planner, Synthesizer: synthesizer}
}

// Execute runs the full workflow for a topic. The run always reaches
// synthesis unless planning aborts on its very first iteration (or the
// approval channel returns invalid input); per-step failures never
// bubble past the scheduler.
func (r *Runner) Execute(ctx context.Context, topic string) (*Run, error) {
	run := &Run{
		ID:     uuid.NewString(),
		Topic:  topic,
		Locale: "en-US",
		State:  StateCoordinating,
	}

	if r.Coordinator != nil {
		handoff, err := r.Coordinator.Coordinate(ctx, topic)
		if err != nil {
			log.Printf("Coordinator failed: %v (continuing with raw topic)", err)
		} else if !handoff.Accepted {
			run.State = StateDone
			run.FinalReport = handoff.Reply
			return run, nil
		} else {
			run.Topic = handoff.Topic
			run.Locale = handoff.Locale
		}
	}

	if r.rc.Config.Workflow.EnableBackgroundInvestigation && r.Investigator != nil {
		run.State = StateInvestigating
		result, err := r.Investigator.Investigate(ctx, run.Topic)
		if err != nil {
			log.Printf("Background investigation failed: %v (planning without it)", err)
		} else {
			run.Background = r.capBackground(result)
		}
	}

	messages := r.planningMessages(run)
	degraded, err := r.planLoop(ctx, run, messages)
	if err != nil {
		run.State = StateAborted
		return run, err
	}

	if !degraded && run.Plan != nil && !run.Plan.HasEnoughContext {
		r.executeSteps(ctx, run)
	}

	return run, r.synthesize(ctx, run)
}

func (r *Runner) planningMessages(run *Run) []llms.MessageContent {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(r.rc.Prompts.Get("planner"))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(fmt.Sprintf("Research topic: %s\nLocale: %s", run.Topic, run.Locale))},
		},
	}
	if run.Background != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart("Background investigation results of the topic:\n" + run.Background)},
		})
	}
	return messages
}

// planLoop generates and, unless auto-accepted, reviews the plan until
// it is accepted or the iteration budget runs out. Unparseable planner
// output aborts the run only when no plan has ever been produced.
// degraded means no plan was accepted and the run must move straight to
// synthesis without executing the last (rejected) plan's steps.
func (r *Runner) planLoop(ctx context.Context, run *Run, messages []llms.MessageContent) (degraded bool, err error) {
	maxIterations := r.rc.Config.Workflow.MaxPlanIterations

	for {
		if run.PlanIterations > maxIterations {
			if run.Plan != nil && len(run.Plan.Steps) > 0 {
				log.Printf("Plan iteration budget exhausted after %d iterations, moving to synthesis", run.PlanIterations)
				return true, nil
			}
			return false, fmt.Errorf("plan iteration budget exhausted after %d iterations with no usable plan", run.PlanIterations)
		}

		run.State = StatePlanning
		trimmed, tr := r.rc.Budget.Trim(messages, r.rc.Model, "planning")
		r.rc.Logger.LogTrim(run.ID, "planning", string(tr.Action), tr.InputTokens, tr.OutputTokens, tr.Budget)

		raw, genErr := r.Planner.GeneratePlan(ctx, trimmed)
		if genErr == nil {
			r.rc.Logger.LogLLM(run.ID, "planning", len(trimmed), raw)
		}

		var parsed *plan.Plan
		if genErr == nil {
			parsed, genErr = plan.Parse(raw)
		}
		if genErr != nil {
			if run.PlanIterations == 0 {
				return false, fmt.Errorf("planning failed on first iteration: %w", genErr)
			}
			log.Printf("Planning failed on iteration %d: %v (synthesizing from completed steps)", run.PlanIterations, genErr)
			return true, nil
		}

		if violations := plan.ValidateDependencies(parsed); len(violations) > 0 {
			r.rc.Logger.LogValidation(run.ID, violations)
			repaired := plan.RepairDependencies(parsed)
			for _, msg := range repaired {
				log.Printf("Dependency repair: %s", msg)
			}
		}

		run.Plan = parsed
		run.PlanIterations++
		if parsed.Locale != "" {
			run.Locale = parsed.Locale
		}
		r.rc.Logger.LogPlan(run.ID, run.PlanIterations, parsed.Title, len(parsed.Steps))
		r.checkpoint(run)

		if parsed.HasEnoughContext {
			return false, nil
		}
		if r.rc.Config.Workflow.AutoAcceptPlan || r.Approval == nil {
			return false, nil
		}

		run.State = StateAwaitingApproval
		decision, err := r.Approval.Review(ctx, raw)
		if err != nil {
			return false, fmt.Errorf("plan review abandoned: %w", err)
		}

		decision = strings.TrimSpace(decision)
		upper := strings.ToUpper(decision)
		switch {
		case strings.HasPrefix(upper, DecisionAccepted):
			return false, nil
		case strings.HasPrefix(upper, DecisionEditPrefix):
			feedback := strings.TrimSpace(decision[len(DecisionEditPrefix):])
			messages = append(messages, llms.MessageContent{
				Role:  llms.ChatMessageTypeHuman,
				Parts: []llms.ContentPart{llms.TextPart("Plan feedback: " + feedback)},
			})
		default:
			return false, fmt.Errorf("unsupported plan review decision %q", decision)
		}
	}
}

// executeSteps walks the plan strictly in order, one step at a time,
// re-evaluating the routing function after every transition. Executor
// failures are recorded on the step and never stop the walk.
func (r *Runner) executeSteps(ctx context.Context, run *Run) {
	run.State = StateExecutingSteps

	for {
		target := Next(run.Plan)
		r.rc.Logger.LogRouting(run.ID, string(target))

		switch target {
		case TargetSynthesizer:
			return
		case TargetPlanner:
			// All remaining steps are non-pending but not all terminal;
			// with single-shot status transitions this cannot happen.
			log.Printf("Routing reached planner mid-execution, moving to synthesis")
			return
		}

		i := run.Plan.FirstPending()
		step := &run.Plan.Steps[i]

		exec, ok := r.rc.Executors[step.Kind]
		if !ok {
			run.Plan.Finish(i, plan.StatusFailed, "Step failed: no executor for kind.",
				fmt.Sprintf("no executor registered for kind %q", step.Kind))
		} else {
			input := fmt.Sprintf("# Research Topic\n\n%s\n\n%s\n\n## Locale\n\n%s",
				run.Plan.Title, plan.BuildStepContext(run.Plan, i), run.Locale)

			outcome := executor.Run(ctx, exec, input)
			if outcome.Status == plan.StatusCompleted {
				run.Plan.Complete(i, outcome.Result)
			} else {
				run.Plan.Finish(i, outcome.Status, outcome.Result, outcome.Reason)
				log.Printf("Step %d %q finished as %s: %s", i, step.Title, outcome.Status, outcome.Reason)
			}
		}

		run.Observations = append(run.Observations, step.Result)
		r.rc.Logger.LogStep(run.ID, i, step.Title, string(step.ExecutionStatus))
		if r.rc.Checkpointer != nil {
			if err := r.rc.Checkpointer.SaveStep(run.ID, i, step); err != nil {
				log.Printf("Checkpoint step failed: %v", err)
			}
			if err := r.rc.Checkpointer.AppendObservation(run.ID, len(run.Observations)-1, step.Result); err != nil {
				log.Printf("Checkpoint observation failed: %v", err)
			}
		}
	}
}

// synthesize produces the final report from the compacted observation
// history and the plan summary.
func (r *Runner) synthesize(ctx context.Context, run *Run) error {
	run.State = StateSynthesizing

	compacted := r.rc.Budget.CompactObservations(run.Observations)

	title := run.Topic
	thought := ""
	if run.Plan != nil {
		title = run.Plan.Title
		thought = run.Plan.Thought
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(r.rc.Prompts.Get("synthesizer"))},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(fmt.Sprintf(
				"# Research Requirements\n\n## Task\n\n%s\n\n## Description\n\n%s\n\n## Locale\n\n%s",
				title, thought, run.Locale))},
		},
	}
	for _, obs := range compacted {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart("Below are some observations for the research task:\n\n" + obs)},
		})
	}

	trimmed, tr := r.rc.Budget.Trim(messages, r.rc.Model, "synthesis")
	r.rc.Logger.LogTrim(run.ID, "synthesis", string(tr.Action), tr.InputTokens, tr.OutputTokens, tr.Budget)

	report, err := r.Synthesizer.Synthesize(ctx, trimmed)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	run.FinalReport = report
	run.State = StateDone
	r.checkpoint(run)
	return nil
}

// capBackground bounds background investigation text by the stage's
// token budget using a rough token-to-char conversion, keeping the
// leading results.
func (r *Runner) capBackground(text string) string {
	maxChars := r.rc.Budget.Budget(r.rc.Model, "background_investigation") * 4
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "\n\n[... results truncated ...]"
}

func (r *Runner) checkpoint(run *Run) {
	if r.rc.Checkpointer == nil {
		return
	}
	if err := r.rc.Checkpointer.SaveRun(run); err != nil {
		log.Printf("Checkpoint run failed: %v", err)
	}
}
