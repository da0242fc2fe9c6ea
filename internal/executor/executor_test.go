package executor

import (
	"context"
	"testing"

	"github.com/rahul/khoj/internal/governance"
	"github.com/rahul/khoj/internal/plan"
	"github.com/rahul/khoj/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

// scriptedModel replays canned responses in order.
type scriptedModel struct {
	responses []*llms.ContentResponse
	calls     int
	seen      [][]llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.seen = append(m.seen, messages)
	if m.calls >= len(m.responses) {
		m.calls++
		return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "done"}}}, nil
	}
	r := m.responses[m.calls]
	m.calls++
	return r, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

type fakeTool struct {
	name   string
	called int
	result string
}

func (f *fakeTool) Name() string               { return f.name }
func (f *fakeTool) Description() string        { return "fake tool" }
func (f *fakeTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (f *fakeTool) Execute(ctx context.Context, input string) (string, error) {
	f.called++
	return f.result, nil
}

func toolCallResponse(name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:           "call-1",
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
		}},
	}}}
}

func finalResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func TestResearchExecutor_ToolLoop(t *testing.T) {
	search := &fakeTool{name: "web_search", result: "three results about tidal energy"}
	registry := tools.NewRegistry()
	registry.Register(search)

	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("web_search", `{"query":"tidal energy capacity"}`),
		finalResponse("Tidal capacity reached 1.2GW in 2025."),
	}}

	exec := NewResearchExecutor(model, registry, nil, "researcher prompt", 5)
	out, err := exec.ExecuteStep(context.Background(), "Gather deployment figures")
	if err != nil {
		t.Fatalf("ExecuteStep failed: %v", err)
	}
	if out != "Tidal capacity reached 1.2GW in 2025." {
		t.Errorf("Expected final answer, got %q", out)
	}
	if search.called != 1 {
		t.Errorf("Expected one tool call, got %d", search.called)
	}

	// The second model call must see the tool response
	last := model.seen[1]
	found := false
	for _, msg := range last {
		for _, part := range msg.Parts {
			if tr, ok := part.(llms.ToolCallResponse); ok && tr.Content == search.result {
				found = true
			}
		}
	}
	if !found {
		t.Error("Tool result was not fed back into the conversation")
	}
}

func TestResearchExecutor_PolicyDeniesTool(t *testing.T) {
	reader := &fakeTool{name: "read_page", result: "should never run"}
	registry := tools.NewRegistry()
	registry.Register(reader)

	gov := governance.NewDefaultPolicyEngine()
	if err := gov.DenyArguments(`https?://localhost`); err != nil {
		t.Fatal(err)
	}

	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("read_page", `{"url":"http://localhost:8080/admin"}`),
		finalResponse("Could not access the page."),
	}}

	exec := NewResearchExecutor(model, registry, gov, "", 5)
	if _, err := exec.ExecuteStep(context.Background(), "Read the admin page"); err != nil {
		t.Fatalf("ExecuteStep failed: %v", err)
	}
	if reader.called != 0 {
		t.Error("Denied tool must not execute")
	}
}

func TestResearchExecutor_IterationCeiling(t *testing.T) {
	search := &fakeTool{name: "web_search", result: "more results"}
	registry := tools.NewRegistry()
	registry.Register(search)

	// The model keeps calling tools and never settles on an answer
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("web_search", `{"query":"a"}`),
		toolCallResponse("web_search", `{"query":"b"}`),
		toolCallResponse("web_search", `{"query":"c"}`),
	}}

	exec := NewResearchExecutor(model, registry, nil, "", 3)
	if _, err := exec.ExecuteStep(context.Background(), "never-ending task"); err == nil {
		t.Fatal("Expected an error after exhausting the iteration ceiling")
	}
}

func TestRun_MapsErrorsToOutcomes(t *testing.T) {
	model := &scriptedModel{responses: nil}
	out := Run(context.Background(), NewProcessingExecutor(model, ""), "analyze this")
	if out.Status != plan.StatusCompleted || out.Result != "done" {
		t.Errorf("Expected completed outcome, got %+v", out)
	}
}

// A provider can return a 200 with an empty choice list; the step must
// fail cleanly instead of crashing the run.
func TestResearchExecutor_EmptyChoices(t *testing.T) {
	registry := tools.NewRegistry()
	model := &scriptedModel{responses: []*llms.ContentResponse{
		{Choices: nil},
	}}

	exec := NewResearchExecutor(model, registry, nil, "", 5)
	out := Run(context.Background(), exec, "gather data")
	if out.Status != plan.StatusFailed {
		t.Fatalf("Expected failed outcome, got %+v", out)
	}
	if out.Reason == "" {
		t.Error("Failed outcome must carry a reason")
	}
}

type panickingExecutor struct{}

func (panickingExecutor) ExecuteStep(ctx context.Context, input string) (string, error) {
	panic("executor blew up")
}

func TestRun_RecoversExecutorPanic(t *testing.T) {
	out := Run(context.Background(), panickingExecutor{}, "gather data")
	if out.Status != plan.StatusFailed {
		t.Errorf("Expected failed outcome from a panicking executor, got %+v", out)
	}
}
