package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparsable means the planner's output could not be repaired into
// structured plan data. The workflow treats this as fatal only on the
// very first planning iteration.
var ErrUnparsable = errors.New("planner output is not a valid plan")

// Parse decodes planner output into a Plan. Models routinely wrap the
// JSON in markdown fences or surround it with prose, so the raw text is
// repaired before decoding. Every step starts pending.
func Parse(raw string) (*Plan, error) {
	cleaned := RepairJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty output", ErrUnparsable)
	}

	var p Plan
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	for i := range p.Steps {
		if p.Steps[i].ExecutionStatus == "" {
			p.Steps[i].ExecutionStatus = StatusPending
		}
		if p.Steps[i].DependencyDetail == "" {
			p.Steps[i].DependencyDetail = DetailNone
		}
		if p.Steps[i].Kind == "" {
			p.Steps[i].Kind = KindResearch
		}
	}

	return &p, nil
}

// RepairJSON strips markdown code fences and any prose before the first
// brace or after the last one. It does not attempt structural repair of
// the JSON itself.
func RepairJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
