package budget

import (
	"fmt"
	"log"

	"github.com/rahul/khoj/internal/tokens"
	"github.com/rahul/khoj/pkg/config"
	"github.com/tmc/langchaingo/llms"
)

// minBudget is the floor applied to every derived budget, even when the
// configured reserve exceeds the model limit.
const minBudget = 1000

// avgEntryTokens is the per-entry size estimate used by the heuristic
// fallback when token counting is unavailable.
const avgEntryTokens = 100

// TrimAction describes what Trim did to the context.
type TrimAction string

const (
	ActionNone     TrimAction = "none"
	ActionTrimmed  TrimAction = "trimmed"
	ActionFallback TrimAction = "fallback"
)

// TrimResult reports the outcome of one Trim call for diagnostics. A
// no-op must be distinguishable from a trim that happened to keep
// everything.
type TrimResult struct {
	Action         TrimAction
	Budget         int
	InputTokens    int
	OutputTokens   int
	InputMessages  int
	OutputMessages int
}

func (r TrimResult) String() string {
	return fmt.Sprintf("%s: messages %d -> %d, tokens %d -> %d (budget %d)",
		r.Action, r.InputMessages, r.OutputMessages, r.InputTokens, r.OutputTokens, r.Budget)
}

// Manager bounds the context passed into external model calls. It is
// built once per workflow run from resolved configuration and never
// returns an error to the caller: on internal counting failure it
// degrades to a message-count heuristic and logs the degradation.
type Manager struct {
	cfg *config.Config

	// counterFor is swappable in tests to simulate counter failure.
	counterFor func(model string) tokens.Counter
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:        cfg,
		counterFor: tokens.ForModel,
	}
}

// Budget resolves the input-token budget for a (model, stage) pair:
// the stage's configured max_tokens when present, otherwise derived
// from the model limit, safety margin and output reserve.
func (m *Manager) Budget(model, stage string) int {
	strategy, ok := m.cfg.Strategy(stage)
	if ok && strategy.MaxTokens > 0 {
		return strategy.MaxTokens
	}

	limit := m.cfg.ModelLimit(model)
	margin := m.cfg.TokenManagement.SafetyMargin
	b := int(float64(limit)*(1-margin)) - strategy.ReserveForOutput
	if b < minBudget {
		b = minBudget
	}
	return b
}

// Trim returns a context whose counted tokens fit the (model, stage)
// budget, removing whole messages in the stage's configured direction.
// The input slice is never mutated; the run loop holds only the latest
// snapshot. A non-empty input never trims to an empty output.
func (m *Manager) Trim(messages []llms.MessageContent, model, stage string) ([]llms.MessageContent, TrimResult) {
	res := TrimResult{
		Action:        ActionNone,
		Budget:        m.Budget(model, stage),
		InputMessages: len(messages),
	}

	if !m.cfg.TokenManagement.Enabled || len(messages) == 0 {
		res.OutputMessages = len(messages)
		return messages, res
	}

	strategy, _ := m.cfg.Strategy(stage)

	counted, err := m.countMessages(messages, model)
	if err != nil {
		log.Printf("Warning: token counting failed for stage %s: %v (degrading to heuristic trim)", stage, err)
		out := m.fallbackTrim(messages, res.Budget, strategy.IncludeSystem)
		res.Action = ActionFallback
		res.OutputMessages = len(out)
		return out, res
	}
	res.InputTokens = counted

	if counted <= res.Budget {
		res.OutputTokens = counted
		res.OutputMessages = len(messages)
		return messages, res
	}

	out := m.trimToBudget(messages, model, res.Budget, strategy)
	res.Action = ActionTrimmed
	res.OutputMessages = len(out)
	if n, err := m.countMessages(out, model); err == nil {
		res.OutputTokens = n
	}
	return out, res
}

// trimToBudget drops whole messages until the remainder fits. Direction
// "last" drops the oldest first, "first" drops the newest first. When
// include_system is set the leading system message survives either
// direction.
func (m *Manager) trimToBudget(messages []llms.MessageContent, model string, budget int, strategy config.TrimmingStrategy) []llms.MessageContent {
	var pinned []llms.MessageContent
	rest := messages
	if strategy.IncludeSystem && len(messages) > 0 && messages[0].Role == llms.ChatMessageTypeSystem {
		pinned = messages[:1]
		rest = messages[1:]
	}

	keepFirst := strategy.Direction == "first"

	for len(rest) > 0 {
		candidate := append(append([]llms.MessageContent{}, pinned...), rest...)
		n, err := m.countMessages(candidate, model)
		if err != nil {
			return m.fallbackTrim(messages, budget, strategy.IncludeSystem)
		}
		if n <= budget {
			return candidate
		}
		if keepFirst {
			rest = rest[:len(rest)-1]
		} else {
			rest = rest[1:]
		}
	}

	// Everything else was dropped; keep at least the pinned message, or
	// the single most essential message when there is none.
	if len(pinned) > 0 {
		return pinned
	}
	if keepFirst {
		return messages[:1]
	}
	return messages[len(messages)-1:]
}

// fallbackTrim keeps the pinned system message plus the most recent N
// messages, N derived from the budget and an average entry estimate.
func (m *Manager) fallbackTrim(messages []llms.MessageContent, budget int, includeSystem bool) []llms.MessageContent {
	maxMessages := budget / avgEntryTokens
	if maxMessages < 1 {
		maxMessages = 1
	}
	if len(messages) <= maxMessages {
		return messages
	}

	var pinned []llms.MessageContent
	rest := messages
	if includeSystem && messages[0].Role == llms.ChatMessageTypeSystem {
		pinned = messages[:1]
		rest = messages[1:]
	}
	if len(rest) > maxMessages {
		rest = rest[len(rest)-maxMessages:]
	}
	return append(append([]llms.MessageContent{}, pinned...), rest...)
}

// countMessages counts with the model's counter, converting a panicking
// tokenizer into an error so Trim can degrade instead of crash.
func (m *Manager) countMessages(messages []llms.MessageContent, model string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("token counter panic: %v", r)
		}
	}()
	counter := m.counterFor(model)
	if counter == nil {
		return 0, fmt.Errorf("no counter for model %s", model)
	}
	return counter.CountMessages(messages), nil
}
