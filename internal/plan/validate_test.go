package plan

import (
	"strings"
	"testing"
)

func planWithDeps() *Plan {
	return &Plan{
		Title: "Dependency checks",
		Steps: []Step{
			{Title: "gather", DependencyDetail: DetailNone},
			{Title: "analyze", DependsOn: []int{0}, DependencyDetail: DetailFull},
			{Title: "report", DependsOn: []int{1}, DependencyDetail: DetailSummary},
		},
	}
}

func TestValidateDependencies_Valid(t *testing.T) {
	if errs := ValidateDependencies(planWithDeps()); len(errs) != 0 {
		t.Errorf("Expected no violations, got %v", errs)
	}
}

func TestValidateDependencies_ForwardDependency(t *testing.T) {
	p := planWithDeps()
	p.Steps[1].DependsOn = []int{2}

	errs := ValidateDependencies(p)
	if len(errs) != 1 {
		t.Fatalf("Expected exactly one violation, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "forward dependency") {
		t.Errorf("Expected forward dependency message, got %q", errs[0])
	}
}

func TestValidateDependencies_OutOfRangeIndex(t *testing.T) {
	p := planWithDeps()
	p.Steps[1].DependsOn = []int{5}

	errs := ValidateDependencies(p)
	if len(errs) != 1 {
		t.Fatalf("Expected exactly one violation, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "invalid dependency index") {
		t.Errorf("Expected invalid index message, got %q", errs[0])
	}

	p.Steps[1].DependsOn = []int{-1}
	errs = ValidateDependencies(p)
	if len(errs) != 1 || !strings.Contains(errs[0], "invalid dependency index") {
		t.Errorf("Expected invalid index message for negative index, got %v", errs)
	}
}

func TestValidateDependencies_SelfDependency(t *testing.T) {
	p := planWithDeps()
	p.Steps[1].DependsOn = []int{1}

	errs := ValidateDependencies(p)
	if len(errs) != 1 || !strings.Contains(errs[0], "depend on itself") {
		t.Errorf("Expected self dependency violation, got %v", errs)
	}
}

func TestValidateDependencies_KeyPointsWithoutRequiredInfo(t *testing.T) {
	p := planWithDeps()
	p.Steps[2].DependencyDetail = DetailKeyPoints

	errs := ValidateDependencies(p)
	if len(errs) != 1 || !strings.Contains(errs[0], "required_info") {
		t.Errorf("Expected required_info violation, got %v", errs)
	}

	// With required_info declared the same plan is valid
	p.Steps[2].RequiredInfo = []string{"market size"}
	if errs := ValidateDependencies(p); len(errs) != 0 {
		t.Errorf("Expected no violations after declaring required_info, got %v", errs)
	}
}

func TestRepairDependencies(t *testing.T) {
	p := planWithDeps()
	p.Steps[1].DependsOn = []int{0, 2, 1, -1}
	p.Steps[2].DependencyDetail = DetailKeyPoints

	msgs := RepairDependencies(p)
	if len(msgs) != 4 {
		t.Fatalf("Expected 4 repair messages, got %d: %v", len(msgs), msgs)
	}
	if len(p.Steps[1].DependsOn) != 1 || p.Steps[1].DependsOn[0] != 0 {
		t.Errorf("Expected only the backward edge to survive, got %v", p.Steps[1].DependsOn)
	}
	if p.Steps[2].DependencyDetail != DetailSummary {
		t.Errorf("Expected key_points without required_info downgraded to summary, got %s", p.Steps[2].DependencyDetail)
	}

	// A repaired plan validates clean
	if errs := ValidateDependencies(p); len(errs) != 0 {
		t.Errorf("Expected repaired plan to validate, got %v", errs)
	}
}
