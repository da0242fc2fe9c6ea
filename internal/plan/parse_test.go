package plan

import (
	"errors"
	"testing"
)

func TestParse_PlainJSON(t *testing.T) {
	raw := `{
		"locale": "en-US",
		"title": "Quantum computing overview",
		"thought": "Needs current sources",
		"has_enough_context": false,
		"steps": [
			{"title": "Find recent papers", "description": "Search for 2025 publications", "step_type": "research", "need_search": true},
			{"title": "Compare approaches", "description": "Contrast the findings", "step_type": "processing", "depends_on": [0], "dependency_type": "full"}
		]
	}`

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if p.Title != "Quantum computing overview" {
		t.Errorf("Expected title to survive, got %q", p.Title)
	}
	if len(p.Steps) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(p.Steps))
	}
	// Every step starts pending
	for i, s := range p.Steps {
		if s.ExecutionStatus != StatusPending {
			t.Errorf("Step %d: expected pending, got %s", i, s.ExecutionStatus)
		}
	}
	if p.Steps[0].DependencyDetail != DetailNone {
		t.Errorf("Expected missing dependency_type to default to none, got %s", p.Steps[0].DependencyDetail)
	}
}

func TestParse_MarkdownFences(t *testing.T) {
	raw := "```json\n{\"title\": \"Fenced\", \"steps\": [{\"title\": \"a\", \"description\": \"b\"}]}\n```"

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed on fenced output: %v", err)
	}
	if p.Title != "Fenced" {
		t.Errorf("Expected title Fenced, got %q", p.Title)
	}
	if p.Steps[0].Kind != KindResearch {
		t.Errorf("Expected missing step_type to default to research, got %s", p.Steps[0].Kind)
	}
}

func TestParse_SurroundingProse(t *testing.T) {
	raw := "Here is the plan you asked for:\n{\"title\": \"Wrapped\", \"steps\": []}\nLet me know if it needs changes."

	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed on prose-wrapped output: %v", err)
	}
	if p.Title != "Wrapped" {
		t.Errorf("Expected title Wrapped, got %q", p.Title)
	}
}

func TestParse_Unparsable(t *testing.T) {
	for _, raw := range []string{"", "no json here at all", "{broken", "```\ntext\n```"} {
		_, err := Parse(raw)
		if !errors.Is(err, ErrUnparsable) {
			t.Errorf("Parse(%q): expected ErrUnparsable, got %v", raw, err)
		}
	}
}
