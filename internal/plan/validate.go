package plan

import "fmt"

// ValidateDependencies checks every step's dependency declaration and
// returns human-readable violation messages. An empty slice means the
// plan is valid. A dependency index must point at an earlier step;
// forward and self references would deadlock the scheduler's ordering
// guarantee.
func ValidateDependencies(p *Plan) []string {
	var errs []string

	for i := range p.Steps {
		step := &p.Steps[i]

		for _, dep := range step.DependsOn {
			switch {
			case dep < 0 || dep >= len(p.Steps):
				errs = append(errs, fmt.Sprintf(
					"step %d %q has invalid dependency index %d",
					i, step.Title, dep))
			case dep == i:
				errs = append(errs, fmt.Sprintf(
					"step %d %q cannot depend on itself", i, step.Title))
			case dep > i:
				errs = append(errs, fmt.Sprintf(
					"step %d %q cannot depend on step %d (forward dependency)",
					i, step.Title, dep))
			}
		}

		if step.DependencyDetail == DetailKeyPoints && len(step.RequiredInfo) == 0 {
			errs = append(errs, fmt.Sprintf(
				"step %d %q uses key_points dependency but declares no required_info",
				i, step.Title))
		}
	}

	return errs
}

// RepairDependencies drops invalid dependency edges in place so a plan
// with violations is still runnable, and returns a message per dropped
// edge. key_points steps without required_info are downgraded to
// summary detail.
func RepairDependencies(p *Plan) []string {
	var dropped []string

	for i := range p.Steps {
		step := &p.Steps[i]

		kept := step.DependsOn[:0]
		for _, dep := range step.DependsOn {
			if dep >= 0 && dep < i {
				kept = append(kept, dep)
				continue
			}
			dropped = append(dropped, fmt.Sprintf(
				"dropped dependency %d -> %d from step %q", i, dep, step.Title))
		}
		step.DependsOn = kept

		if step.DependencyDetail == DetailKeyPoints && len(step.RequiredInfo) == 0 {
			step.DependencyDetail = DetailSummary
			dropped = append(dropped, fmt.Sprintf(
				"downgraded step %q from key_points to summary (no required_info)",
				step.Title))
		}
	}

	return dropped
}
