package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan       EventType = "plan"
	EventTypeStep       EventType = "step"
	EventTypeRouting    EventType = "routing"
	EventTypeTrim       EventType = "trim"
	EventTypeBudget     EventType = "budget"
	EventTypeValidation EventType = "validation"
	EventTypeCheckpoint EventType = "checkpoint"
	EventTypeLLM        EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. LLM traffic is additionally
// mirrored to a size-capped jsonl file for later inspection.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(runID string, iteration int, title string, steps int) {
	l.Log(Event{
		Type:  EventTypePlan,
		RunID: runID,
		Data: map[string]any{
			"iteration": iteration,
			"title":     title,
			"steps":     steps,
		},
	})
}

func (l *Logger) LogStep(runID string, index int, title, status string) {
	l.Log(Event{
		Type:  EventTypeStep,
		RunID: runID,
		Data: map[string]any{
			"index":  index,
			"title":  title,
			"status": status,
		},
	})
}

func (l *Logger) LogRouting(runID, target string) {
	l.Log(Event{
		Type:  EventTypeRouting,
		RunID: runID,
		Data:  map[string]string{"target": target},
	})
}

func (l *Logger) LogTrim(runID, stage, action string, inputTokens, outputTokens, budget int) {
	l.Log(Event{
		Type:  EventTypeTrim,
		RunID: runID,
		Stage: stage,
		Data: map[string]any{
			"action":        action,
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
			"budget":        budget,
		},
	})
}

func (l *Logger) LogValidation(runID string, messages []string) {
	l.Log(Event{
		Type:  EventTypeValidation,
		RunID: runID,
		Data:  map[string]any{"messages": messages},
	})
}

func (l *Logger) LogLLM(runID, stage string, prompt any, response string) {
	l.Log(Event{
		Type:  EventTypeLLM,
		RunID: runID,
		Stage: stage,
		Data: map[string]any{
			"prompt":   prompt,
			"response": response,
		},
	})
}
