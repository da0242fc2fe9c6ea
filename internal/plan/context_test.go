package plan

import (
	"strings"
	"testing"
)

func TestBuildStepContext_NoneIsolatesStep(t *testing.T) {
	p := &Plan{Steps: []Step{
		{Title: "gather", ExecutionStatus: StatusCompleted, Result: "SECRET EARLIER FINDING"},
		{Title: "independent check", Description: "verify from scratch", DependsOn: []int{0}, DependencyDetail: DetailNone},
	}}

	got := BuildStepContext(p, 1)
	if strings.Contains(got, "SECRET EARLIER FINDING") {
		t.Errorf("Detail none must not leak prior results:\n%s", got)
	}
	if !strings.Contains(got, "# Current Task") || !strings.Contains(got, "independent check") {
		t.Errorf("Expected task section, got:\n%s", got)
	}
}

func TestBuildStepContext_Full(t *testing.T) {
	p := &Plan{Steps: []Step{
		{Title: "gather", ExecutionStatus: StatusCompleted, Result: "finding body"},
		{Title: "analyze", DependsOn: []int{0}, DependencyDetail: DetailFull},
	}}

	got := BuildStepContext(p, 1)
	if !strings.Contains(got, "<finding>\nfinding body\n</finding>") {
		t.Errorf("Expected full finding inline, got:\n%s", got)
	}
	if !strings.Contains(got, "# Relevant Previous Findings") {
		t.Errorf("Expected findings header, got:\n%s", got)
	}
}

func TestBuildStepContext_NonCompletedDependency(t *testing.T) {
	p := &Plan{Steps: []Step{
		{Title: "gather", ExecutionStatus: StatusSkipped, Result: "Step skipped due to content safety restrictions."},
		{Title: "analyze", DependsOn: []int{0}, DependencyDetail: DetailFull},
	}}

	got := BuildStepContext(p, 1)
	if !strings.Contains(got, "(status: skipped)") {
		t.Errorf("Expected status note for skipped dependency, got:\n%s", got)
	}
	if !strings.Contains(got, "No usable result from this step.") {
		t.Errorf("Expected placeholder note, got:\n%s", got)
	}
}

func TestSummarizeResult(t *testing.T) {
	if got := SummarizeResult("", 500); got != "No results available" {
		t.Errorf("Expected empty-result placeholder, got %q", got)
	}
	if got := SummarizeResult("short", 500); got != "short" {
		t.Errorf("Expected short result untouched, got %q", got)
	}

	// Long results prefer headings and bullets
	long := "# Findings\n" + strings.Repeat("filler prose line about nothing in particular\n", 30) +
		"- key bullet one\n- key bullet two\n"
	got := SummarizeResult(long, 500)
	if len(got) > 500+len("...") {
		t.Errorf("Summary exceeds cap: %d chars", len(got))
	}
	if !strings.Contains(got, "# Findings") {
		t.Errorf("Expected heading retained, got:\n%s", got)
	}
}

func TestExtractRequiredInfo(t *testing.T) {
	result := "Market size reached $4.2B in 2025.\nGrowth follows adoption.\n\nCompetitors include Acme and Initech.\n"

	got := ExtractRequiredInfo(result, []string{"market_size", "regulation"})
	if !strings.Contains(got, "### market_size") || !strings.Contains(got, "$4.2B") {
		t.Errorf("Expected market size match with data, got:\n%s", got)
	}
	// The line after a match is included as context
	if !strings.Contains(got, "Growth follows adoption.") {
		t.Errorf("Expected trailing context line, got:\n%s", got)
	}
	if !strings.Contains(got, "### regulation\nNo specific data found") {
		t.Errorf("Expected explicit miss for regulation, got:\n%s", got)
	}

	if got := ExtractRequiredInfo(result, nil); got != "No specific information requested" {
		t.Errorf("Expected placeholder for empty topics, got %q", got)
	}
}
