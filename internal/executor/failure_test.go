package executor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rahul/khoj/internal/plan"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  string
		want FailureClass
	}{
		{"API returned 400: content exists risk", FailureContentPolicy},
		{"finish_reason: content_filter", FailureContentPolicy},
		{"429 Too Many Requests", FailureRateLimit},
		{"quota exceeded for this key", FailureRateLimit},
		{"400 Bad Request: missing field", FailureBadRequest},
		{"connection reset by peer", FailureOther},
	}
	for _, tc := range cases {
		if got := Classify(errors.New(tc.err)); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

// Content-policy rejections often arrive as 400s; the policy check must
// win over the generic bad-request bucket.
func TestClassify_ContentPolicyBeats400(t *testing.T) {
	err := errors.New("400 bad request: content safety violation")
	if got := Classify(err); got != FailureContentPolicy {
		t.Errorf("Expected content policy class, got %v", got)
	}
}

func TestOutcomeForError(t *testing.T) {
	cases := []struct {
		err         string
		status      plan.ExecutionStatus
		placeholder string
	}{
		{"content moderation blocked the request", plan.StatusSkipped, "Step skipped due to content safety restrictions."},
		{"rate limit reached", plan.StatusRateLimited, "Step not executed due to provider rate limit."},
		{"invalid request payload", plan.StatusFailed, "Step failed due to a malformed provider request."},
		{"dial tcp: i/o timeout", plan.StatusFailed, "Step failed due to an unexpected error."},
	}
	for _, tc := range cases {
		out := OutcomeForError(errors.New(tc.err))
		if out.Status != tc.status {
			t.Errorf("OutcomeForError(%q): status %s, want %s", tc.err, out.Status, tc.status)
		}
		if out.Result != tc.placeholder {
			t.Errorf("OutcomeForError(%q): result %q, want %q", tc.err, out.Result, tc.placeholder)
		}
		if !out.Status.Terminal() {
			t.Errorf("OutcomeForError(%q): status %s is not terminal", tc.err, out.Status)
		}
		if out.Reason == "" {
			t.Errorf("OutcomeForError(%q): reason must carry the original error", tc.err)
		}
	}
}

func TestTruncateResult(t *testing.T) {
	short := strings.Repeat("a", resultCap)
	if got := TruncateResult(short); got != short {
		t.Error("Result at the cap must pass through unchanged")
	}

	long := strings.Repeat("h", resultCap) + strings.Repeat("t", resultCap)
	got := TruncateResult(long)
	if !strings.HasPrefix(got, "h") || !strings.HasSuffix(got, "t") {
		t.Error("Truncation must keep both head and tail")
	}
	marker := fmt.Sprintf("[... %d characters elided ...]", resultCap)
	if !strings.Contains(got, marker) {
		t.Errorf("Expected marker %q in truncated result", marker)
	}
}
