package tokens

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
)

// Per-message overheads approximating role and formatting cost. Batch
// counting must stay additive (sum of entries plus these constants) so
// the budget manager's trim loop is monotonic and terminating.
const (
	textOverhead      = 5
	roleOverhead      = 3
	structureOverhead = 2
)

// Counter counts tokens for one model family. Implementations are pure:
// the same input always yields the same count.
type Counter interface {
	CountText(text string) int
	CountMessages(messages []llms.MessageContent) int
}

// tiktokenModels maps model name fragments to tiktoken model names.
// Ordered most-specific-first so a name like "gpt-4o-2024-11-20"
// always resolves to the same encoding.
var tiktokenModels = []struct {
	fragment string
	model    string
}{
	{"gpt-4o", "gpt-4o"},
	{"gpt-4", "gpt-4"},
	{"gpt-3.5-turbo", "gpt-3.5-turbo"},
}

// charsPerToken holds character-per-token ratios per model family for
// the approximate counter.
var charsPerToken = map[string]float64{
	"gemini":   3.5,
	"deepseek": 4.0,
	"claude":   3.8,
	"qwen":     4.2,
	"llama":    4.0,
	"default":  4.0,
}

var (
	cacheMu sync.RWMutex
	cache   = map[string]Counter{}
)

// ForModel returns the best available counter for a model name: exact
// tiktoken counting for matching families, a character-ratio
// approximation otherwise. Instances are cached per model name; the
// cache only avoids reconstruction cost and never changes results.
func ForModel(model string) Counter {
	cacheMu.RLock()
	c, ok := cache[model]
	cacheMu.RUnlock()
	if ok {
		return c
	}

	c = newCounter(model)

	cacheMu.Lock()
	cache[model] = c
	cacheMu.Unlock()
	return c
}

func newCounter(model string) Counter {
	lower := strings.ToLower(model)
	if tkModel, ok := tiktokenModelFor(lower); ok {
		if tc, err := NewTiktokenCounter(tkModel); err == nil {
			return tc
		}
	}
	return NewApproximateCounter(ratioFor(lower))
}

// tiktokenModelFor resolves a lowercased model name to its tiktoken
// model by fragment match, first entry wins.
func tiktokenModelFor(lowerModel string) (string, bool) {
	for _, entry := range tiktokenModels {
		if strings.Contains(lowerModel, entry.fragment) {
			return entry.model, true
		}
	}
	return "", false
}

func ratioFor(lowerModel string) float64 {
	for family, ratio := range charsPerToken {
		if family != "default" && strings.Contains(lowerModel, family) {
			return ratio
		}
	}
	return charsPerToken["default"]
}

// TiktokenCounter counts tokens with the model's actual subword
// encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return &TiktokenCounter{encoding: enc}, nil
}

func (c *TiktokenCounter) CountText(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

func (c *TiktokenCounter) CountMessages(messages []llms.MessageContent) int {
	total := 0
	for i := range messages {
		total += c.CountText(MessageText(&messages[i])) + roleOverhead + structureOverhead
	}
	return total
}

// ApproximateCounter estimates tokens from character count. It is the
// fallback for model families without an available tokenizer.
type ApproximateCounter struct {
	CharsPerToken float64
}

func NewApproximateCounter(ratio float64) *ApproximateCounter {
	if ratio <= 0 {
		ratio = charsPerToken["default"]
	}
	return &ApproximateCounter{CharsPerToken: ratio}
}

func (c *ApproximateCounter) CountText(text string) int {
	if text == "" {
		return 0
	}
	n := int(float64(len(text))/c.CharsPerToken) + textOverhead
	if n < 1 {
		n = 1
	}
	return n
}

func (c *ApproximateCounter) CountMessages(messages []llms.MessageContent) int {
	total := 0
	for i := range messages {
		total += c.CountText(MessageText(&messages[i])) + roleOverhead + structureOverhead
	}
	return total
}

// MessageText flattens a message's text parts for counting. Tool call
// payloads count through their textual representation only.
func MessageText(msg *llms.MessageContent) string {
	var b strings.Builder
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			b.WriteString(p.Text)
		case llms.ToolCallResponse:
			b.WriteString(p.Content)
		case llms.ToolCall:
			if p.FunctionCall != nil {
				b.WriteString(p.FunctionCall.Name)
				b.WriteString(p.FunctionCall.Arguments)
			}
		}
	}
	return b.String()
}
