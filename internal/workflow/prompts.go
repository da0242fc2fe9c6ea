package workflow

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// PromptManager loads stage prompts from a directory of markdown files
// (planner.md, researcher.md, processor.md, synthesizer.md,
// coordinator.md). A missing file falls back to a built-in default so
// the workflow can always run.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

var defaultPrompts = map[string]string{
	"planner": "You are a research planner. Given a topic, produce a JSON plan with " +
		"locale, title, thought, has_enough_context, and steps. Each step has title, " +
		"description, step_type (research or processing), need_search, depends_on " +
		"(indices of earlier steps), dependency_type (none, summary, key_points or full) " +
		"and required_info (topics, mandatory for key_points). Respond with JSON only.",
	"researcher": "You are a researcher. Use the available tools to gather the " +
		"information the current task asks for, then answer with your findings. " +
		"Track sources and list them in a References section at the end.",
	"processor": "You are an analyst. Work only from the material in the prompt; " +
		"do not invent data. Produce the processed output the task asks for.",
	"synthesizer": "You are a report writer. Combine the research observations into " +
		"a final report with key points, an overview, detailed analysis and citations. " +
		"Note any steps that were skipped or failed.",
	"coordinator": "You are a coordinator. If the user message is a research topic, " +
		"call handoff_to_planner with the topic and the user's locale. Otherwise reply " +
		"conversationally without calling the tool.",
}

// Get returns the prompt for a stage, preferring an on-disk override.
func (pm *PromptManager) Get(stage string) string {
	if pm.Directory != "" {
		path := filepath.Join(pm.Directory, stage+".md")
		data, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
		if !os.IsNotExist(err) {
			log.Printf("Warning: failed to read prompt file %s: %v", path, err)
		}
	}
	return defaultPrompts[stage]
}
