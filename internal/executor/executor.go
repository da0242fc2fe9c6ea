package executor

import (
	"context"
	"fmt"
	"log"

	"github.com/rahul/khoj/internal/governance"
	"github.com/rahul/khoj/internal/plan"
	"github.com/rahul/khoj/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

// StepExecutor runs one step of a plan against an external model. The
// input is the already-assembled, dependency-bounded context text.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, input string) (string, error)
}

// Run invokes an executor and converts its result or error into a
// tagged Outcome for the scheduler. Oversized results are truncated
// before they are stored anywhere. A panicking executor is converted
// into a failed outcome rather than unwinding through the scheduler.
func Run(ctx context.Context, exec StepExecutor, input string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = OutcomeForError(fmt.Errorf("executor panic: %v", r))
		}
	}()
	result, err := exec.ExecuteStep(ctx, input)
	if err != nil {
		return OutcomeForError(err)
	}
	return Outcome{
		Status: plan.StatusCompleted,
		Result: TruncateResult(result),
	}
}

// ResearchExecutor is a tool-calling agent loop bounded by a step
// iteration ceiling. Each tool call is gated by the policy engine; a
// denied call is surfaced to the model as a tool error so the loop can
// route around it.
type ResearchExecutor struct {
	Model         llms.Model
	Registry      *tools.Registry
	Policy        governance.PolicyEngine
	SystemPrompt  string
	MaxIterations int
}

func NewResearchExecutor(model llms.Model, registry *tools.Registry, policy governance.PolicyEngine, systemPrompt string, maxIterations int) *ResearchExecutor {
	if maxIterations <= 0 {
		maxIterations = 25
	}
	return &ResearchExecutor{
		Model:         model,
		Registry:      registry,
		Policy:        policy,
		SystemPrompt:  systemPrompt,
		MaxIterations: maxIterations,
	}
}

func (e *ResearchExecutor) ExecuteStep(ctx context.Context, input string) (string, error) {
	var messages []llms.MessageContent
	if e.SystemPrompt != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(e.SystemPrompt)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(input)},
	})

	llmTools := e.Registry.Definitions()

	var finalResponse string

	for i := 0; i < e.MaxIterations; i++ {
		resp, err := e.Model.GenerateContent(ctx, messages, llms.WithTools(llmTools))
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("model returned no choices")
		}

		choice := resp.Choices[0]

		var assistantParts []llms.ContentPart
		if choice.Content != "" {
			assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: assistantParts,
		})

		// No tool calls means this is the final answer
		if len(choice.ToolCalls) == 0 {
			finalResponse = choice.Content
			break
		}

		for _, tc := range choice.ToolCalls {
			result := e.executeToolCall(ctx, tc)
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       tc.FunctionCall.Name,
						Content:    result,
					},
				},
			})
		}
	}

	if finalResponse == "" {
		return "", fmt.Errorf("research agent exhausted %d iterations without a final answer", e.MaxIterations)
	}
	return finalResponse, nil
}

func (e *ResearchExecutor) executeToolCall(ctx context.Context, tc llms.ToolCall) string {
	name := tc.FunctionCall.Name
	args := tc.FunctionCall.Arguments

	tool := e.Registry.Get(name)
	if tool == nil {
		return fmt.Sprintf("Error: Tool %s not found", name)
	}

	if e.Policy != nil {
		verdict, err := e.Policy.Evaluate(ctx, governance.Request{Tool: name, Arguments: args})
		if err != nil {
			return fmt.Sprintf("Error: policy evaluation failed: %v", err)
		}
		if verdict.Effect == governance.EffectDeny {
			log.Printf("Policy denied tool %s: %s", name, verdict.Reason)
			return fmt.Sprintf("Error: tool call denied: %s", verdict.Reason)
		}
	}

	log.Printf("Executing tool %s with args: %s", name, args)
	res, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return res
}

// ProcessingExecutor handles analysis steps that work purely over the
// supplied context, with no tool access.
type ProcessingExecutor struct {
	Model        llms.Model
	SystemPrompt string
}

func NewProcessingExecutor(model llms.Model, systemPrompt string) *ProcessingExecutor {
	return &ProcessingExecutor{Model: model, SystemPrompt: systemPrompt}
}

func (e *ProcessingExecutor) ExecuteStep(ctx context.Context, input string) (string, error) {
	var messages []llms.MessageContent
	if e.SystemPrompt != "" {
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(e.SystemPrompt)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(input)},
	})

	resp, err := e.Model.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}
