package plan

import (
	"fmt"
	"strings"
)

// summaryCap bounds the heuristic summary of a dependency's result.
const summaryCap = 500

// keyPointMatches is the maximum matching lines included per requested
// topic when a step declares key_points detail.
const keyPointMatches = 3

// BuildStepContext assembles the input text for step i's executor. Only
// the dependency information the step declares is included; the rest of
// the run history never leaks into the call.
func BuildStepContext(p *Plan, i int) string {
	step := &p.Steps[i]

	if len(step.DependsOn) == 0 || step.DependencyDetail == DetailNone {
		return currentTaskSection(step)
	}

	var b strings.Builder
	b.WriteString("# Relevant Previous Findings\n\n")

	for _, dep := range step.DependsOn {
		if dep < 0 || dep >= len(p.Steps) {
			continue
		}
		depStep := &p.Steps[dep]

		if depStep.ExecutionStatus != StatusCompleted {
			fmt.Fprintf(&b, "## Step %d: %s (status: %s)\n\nNo usable result from this step.\n\n",
				dep+1, depStep.Title, depStep.ExecutionStatus)
			continue
		}

		switch step.DependencyDetail {
		case DetailSummary:
			fmt.Fprintf(&b, "## Step %d: %s\n\n%s\n\n",
				dep+1, depStep.Title, SummarizeResult(depStep.Result, summaryCap))
		case DetailKeyPoints:
			fmt.Fprintf(&b, "## Step %d: %s\n\n%s\n\n",
				dep+1, depStep.Title, ExtractRequiredInfo(depStep.Result, step.RequiredInfo))
		default: // full, and anything unrecognized
			fmt.Fprintf(&b, "## Step %d: %s\n\n<finding>\n%s\n</finding>\n\n",
				dep+1, depStep.Title, depStep.Result)
		}
	}

	b.WriteString(currentTaskSection(step))
	return b.String()
}

func currentTaskSection(step *Step) string {
	return fmt.Sprintf("# Current Task\n\n## Title\n\n%s\n\n## Description\n\n%s",
		step.Title, step.Description)
}

// SummarizeResult produces a cheap extractive summary of a step result.
// Heading-like and bulleted lines are preferred up to maxLen; plain text
// only fills the first half of the budget.
func SummarizeResult(result string, maxLen int) string {
	if result == "" {
		return "No results available"
	}
	if len(result) <= maxLen {
		return result
	}

	var picked []string
	used := 0
	for _, line := range strings.Split(result, "\n") {
		trimmed := strings.TrimSpace(line)
		structural := strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "*") ||
			strings.HasPrefix(trimmed, "-") ||
			strings.HasPrefix(trimmed, "•")

		if structural {
			if used+len(line) < maxLen {
				picked = append(picked, line)
				used += len(line)
			}
		} else if used < maxLen/2 {
			picked = append(picked, line)
			used += len(line)
		}

		if used >= maxLen {
			break
		}
	}

	summary := strings.Join(picked, "\n")
	if len(summary) > maxLen {
		summary = summary[:maxLen] + "..."
	}
	return summary
}

// ExtractRequiredInfo scans a step result for lines matching each
// requested topic, including up to keyPointMatches matching lines plus
// one trailing context line each. Topics with no match are reported
// explicitly rather than omitted, so the executor knows the data is
// missing instead of guessing.
func ExtractRequiredInfo(result string, requiredInfo []string) string {
	if len(requiredInfo) == 0 {
		return "No specific information requested"
	}

	lines := strings.Split(result, "\n")
	sections := make([]string, 0, len(requiredInfo))

	for _, topic := range requiredInfo {
		terms := strings.Fields(strings.ToLower(strings.ReplaceAll(topic, "_", " ")))

		var matches []string
		for i, line := range lines {
			if len(matches) >= keyPointMatches*2 {
				break
			}
			lower := strings.ToLower(line)
			hit := false
			for _, term := range terms {
				if strings.Contains(lower, term) {
					hit = true
					break
				}
			}
			if !hit {
				continue
			}
			matches = append(matches, strings.TrimSpace(line))
			if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" {
				matches = append(matches, strings.TrimSpace(lines[i+1]))
			}
		}

		if len(matches) > 0 {
			if len(matches) > keyPointMatches*2 {
				matches = matches[:keyPointMatches*2]
			}
			sections = append(sections, fmt.Sprintf("### %s\n%s", topic, strings.Join(matches, "\n")))
		} else {
			sections = append(sections, fmt.Sprintf("### %s\nNo specific data found", topic))
		}
	}

	return strings.Join(sections, "\n\n")
}
