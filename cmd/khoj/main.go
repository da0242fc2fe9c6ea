package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rahul/khoj/internal/budget"
	"github.com/rahul/khoj/internal/executor"
	"github.com/rahul/khoj/internal/governance"
	"github.com/rahul/khoj/internal/observability"
	"github.com/rahul/khoj/internal/plan"
	"github.com/rahul/khoj/internal/store"
	"github.com/rahul/khoj/internal/tools"
	"github.com/rahul/khoj/internal/workflow"
	"github.com/rahul/khoj/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: khoj <research topic>")
		os.Exit(1)
	}
	topic := strings.Join(os.Args[1:], " ")

	cfg := config.Load("config.yaml")

	// Initialize Tools
	registry := tools.NewRegistry()

	searchTool, err := tools.NewWebSearchTool(cfg.Workflow.MaxSearchResults)
	if err != nil {
		log.Printf("Warning: Failed to initialize search tool: %v", err)
	} else {
		registry.Register(searchTool)
	}

	registry.Register(tools.NewPageReaderTool())

	renderTool := tools.NewRenderTool()
	registry.Register(renderTool)
	defer renderTool.Close()

	prompts := workflow.NewPromptManager(cfg.App.PromptDir)

	gov := governance.NewDefaultPolicyEngine()
	// Keep research traffic off internal addresses
	_ = gov.DenyArguments(`https?://(localhost|127\.0\.0\.1|0\.0\.0\.0|10\.|192\.168\.)`)
	_ = gov.DenyArguments(`https?://\S*\.internal`)

	logger := observability.NewLogger()

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	rc := &workflow.RunContext{
		Config:  cfg,
		Model:   pCfg.Model,
		Budget:  budget.NewManager(cfg),
		Prompts: prompts,
		Logger:  logger,
		Executors: map[plan.StepKind]executor.StepExecutor{
			plan.KindResearch: executor.NewResearchExecutor(
				llm, registry, gov, prompts.Get("researcher"), cfg.Workflow.MaxStepIterations),
			plan.KindProcessing: executor.NewProcessingExecutor(
				llm, prompts.Get("processor")),
		},
	}

	if cfg.Memory.Type == "sqlite" && cfg.Memory.Path != "" {
		checkpoints, err := store.NewCheckpointStore(cfg.Memory.Path)
		if err != nil {
			log.Fatal(err)
		}
		defer checkpoints.Close()
		rc.Checkpointer = checkpoints
	}

	runner := workflow.NewRunner(rc,
		&workflow.LLMPlanner{Model: llm},
		&workflow.LLMSynthesizer{Model: llm},
	)
	runner.Coordinator = &workflow.LLMCoordinator{Model: llm, SystemPrompt: prompts.Get("coordinator")}
	if cfg.Workflow.EnableBackgroundInvestigation && searchTool != nil {
		runner.Investigator = &workflow.ToolInvestigator{Search: searchTool}
	}
	if cfg.Workflow.AutoAcceptPlan {
		runner.Approval = workflow.AutoApprove{}
	} else {
		runner.Approval = &workflow.ConsoleApproval{In: os.Stdin, Out: os.Stdout}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := runner.Execute(ctx, topic)
	if err != nil {
		log.Fatalf("Run %s aborted: %v", run.ID, err)
	}

	fmt.Println(run.FinalReport)
}
