package executor

import (
	"fmt"
	"strings"

	"github.com/rahul/khoj/internal/plan"
)

// FailureClass buckets a provider error by what the run should do
// about it. No class aborts the run; each maps to a terminal step
// status and a placeholder result.
type FailureClass int

const (
	FailureContentPolicy FailureClass = iota
	FailureRateLimit
	FailureBadRequest
	FailureOther
)

var contentPolicyKeywords = []string{
	"content exists risk",
	"content safety",
	"content moderation",
	"inappropriate content",
	"harmful content",
	"content_filter",
}

var rateLimitKeywords = []string{
	"429",
	"rate limit",
	"rate_limit",
	"too many requests",
	"quota exceeded",
}

var badRequestKeywords = []string{
	"400",
	"bad request",
	"badrequesterror",
	"invalid request",
}

// Classify maps a provider error onto a failure class. Content-policy
// rejections are checked before the generic 400 bucket because
// providers report both through the same status code.
func Classify(err error) FailureClass {
	msg := strings.ToLower(err.Error())

	for _, kw := range contentPolicyKeywords {
		if strings.Contains(msg, kw) {
			return FailureContentPolicy
		}
	}
	for _, kw := range rateLimitKeywords {
		if strings.Contains(msg, kw) {
			return FailureRateLimit
		}
	}
	for _, kw := range badRequestKeywords {
		if strings.Contains(msg, kw) {
			return FailureBadRequest
		}
	}
	return FailureOther
}

// Outcome is the tagged result of one step execution, returned to the
// scheduler instead of letting provider errors unwind through it.
type Outcome struct {
	Status plan.ExecutionStatus
	Result string
	Reason string
}

// OutcomeForError applies the failure policy: content-policy blocks
// skip the step, rate limits mark it rate_limited, everything else
// fails it. All three leave a clearly-labeled placeholder result so
// downstream steps and synthesis see the step produced no usable data.
func OutcomeForError(err error) Outcome {
	switch Classify(err) {
	case FailureContentPolicy:
		return Outcome{
			Status: plan.StatusSkipped,
			Result: "Step skipped due to content safety restrictions.",
			Reason: fmt.Sprintf("Content policy: %v", err),
		}
	case FailureRateLimit:
		return Outcome{
			Status: plan.StatusRateLimited,
			Result: "Step not executed due to provider rate limit.",
			Reason: fmt.Sprintf("Rate limit: %v", err),
		}
	case FailureBadRequest:
		return Outcome{
			Status: plan.StatusFailed,
			Result: "Step failed due to a malformed provider request.",
			Reason: fmt.Sprintf("Bad request: %v", err),
		}
	default:
		return Outcome{
			Status: plan.StatusFailed,
			Result: "Step failed due to an unexpected error.",
			Reason: fmt.Sprintf("Unexpected error: %v", err),
		}
	}
}

// resultCap bounds a raw step result before it is stored, independent
// of the budget manager's later compaction.
const resultCap = 50000

// TruncateResult keeps the head and tail of an oversized result with a
// marker noting how much was elided.
func TruncateResult(s string) string {
	if len(s) <= resultCap {
		return s
	}
	half := resultCap / 2
	elided := len(s) - resultCap
	return s[:half] + fmt.Sprintf("\n\n[... %d characters elided ...]\n\n", elided) + s[len(s)-half:]
}
