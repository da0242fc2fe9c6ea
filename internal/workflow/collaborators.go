package workflow

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rahul/khoj/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

// Approval decisions accepted on the human-approval channel. Anything
// else is a fatal input error.
const (
	DecisionAccepted   = "[ACCEPTED]"
	DecisionEditPrefix = "[EDIT_PLAN]"
)

// Planner generates plan text (ideally JSON) from the planning context.
type Planner interface {
	GeneratePlan(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// Synthesizer writes the final report from the budget-compacted
// synthesis context.
type Synthesizer interface {
	Synthesize(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// Handoff is the coordinator's verdict on a topic.
type Handoff struct {
	Accepted bool
	Topic    string
	Locale   string
	Reply    string
}

// Coordinator classifies the user's input before planning starts. A
// refused topic ends the run without a plan.
type Coordinator interface {
	Coordinate(ctx context.Context, topic string) (Handoff, error)
}

// Investigator performs the optional pre-planning background search.
type Investigator interface {
	Investigate(ctx context.Context, topic string) (string, error)
}

// ApprovalHandler suspends the run for an external plan review. The
// returned decision must be [ACCEPTED] or [EDIT_PLAN] with feedback.
type ApprovalHandler interface {
	Review(ctx context.Context, planText string) (string, error)
}

// LLMPlanner backs the Planner interface with a model call.
type LLMPlanner struct {
	Model llms.Model
}

func (p *LLMPlanner) GeneratePlan(ctx context.Context, messages []llms.MessageContent) (string, error) {
	resp, err := p.Model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("planner returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// LLMSynthesizer backs the Synthesizer interface with a model call.
type LLMSynthesizer struct {
	Model llms.Model
}

func (s *LLMSynthesizer) Synthesize(ctx context.Context, messages []llms.MessageContent) (string, error) {
	resp, err := s.Model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("synthesizer returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// LLMCoordinator asks the model to either hand the topic off to the
// planner (via tool call) or reply directly, ending the run.
type LLMCoordinator struct {
	Model        llms.Model
	SystemPrompt string
}

var handoffTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "handoff_to_planner",
		Description: "Hand the research topic off to the planner.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"research_topic": map[string]any{
					"type":        "string",
					"description": "The topic of the research task",
				},
				"locale": map[string]any{
					"type":        "string",
					"description": "The user's detected locale, e.g. en-US",
				},
			},
			"required": []string{"research_topic", "locale"},
		},
	},
}

func (c *LLMCoordinator) Coordinate(ctx context.Context, topic string) (Handoff, error) {
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextPart(c.SystemPrompt)}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(topic)}},
	}

	resp, err := c.Model.GenerateContent(ctx, messages, llms.WithTools([]llms.Tool{handoffTool}))
	if err != nil {
		return Handoff{}, err
	}
	if len(resp.Choices) == 0 {
		return Handoff{}, fmt.Errorf("coordinator returned no choices")
	}

	choice := resp.Choices[0]
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall.Name != "handoff_to_planner" {
			continue
		}
		var args struct {
			ResearchTopic string `json:"research_topic"`
			Locale        string `json:"locale"`
		}
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
			continue
		}
		h := Handoff{Accepted: true, Topic: args.ResearchTopic, Locale: args.Locale}
		if h.Topic == "" {
			h.Topic = topic
		}
		if h.Locale == "" {
			h.Locale = "en-US"
		}
		return h, nil
	}

	return Handoff{Accepted: false, Reply: choice.Content}, nil
}

// ToolInvestigator runs the background investigation through a search
// tool instead of a model call.
type ToolInvestigator struct {
	Search tools.Tool
}

func (t *ToolInvestigator) Investigate(ctx context.Context, topic string) (string, error) {
	args, err := json.Marshal(map[string]string{"query": topic})
	if err != nil {
		return "", err
	}
	return t.Search.Execute(ctx, string(args))
}

// AutoApprove accepts every plan; used when auto_accept_plan is set.
type AutoApprove struct{}

func (AutoApprove) Review(ctx context.Context, planText string) (string, error) {
	return DecisionAccepted, nil
}

// ConsoleApproval shows the plan on Out and reads the reviewer's
// decision from In. An empty line counts as acceptance.
type ConsoleApproval struct {
	In  io.Reader
	Out io.Writer
}

func (c *ConsoleApproval) Review(ctx context.Context, planText string) (string, error) {
	fmt.Fprintf(c.Out, "\n--- Proposed plan ---\n%s\n---------------------\n", planText)
	fmt.Fprintf(c.Out, "Reply %s to run it, or %s <feedback> to revise: ", DecisionAccepted, DecisionEditPrefix)

	reader := bufio.NewReader(c.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read decision: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return DecisionAccepted, nil
	}
	return line, nil
}
