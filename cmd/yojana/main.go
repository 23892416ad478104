package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rahul/yojana/memory"
	"github.com/rahul/yojana/observability"
	"github.com/rahul/yojana/pkg/config"
	"github.com/rahul/yojana/planner"
	"github.com/rahul/yojana/policy"
	"github.com/rahul/yojana/store"
	"github.com/rahul/yojana/tools"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: yojana <goal>")
	}
	goal := strings.Join(os.Args[1:], " ")

	cfg := config.LoadConfig("config.yaml")

	// Initialize LLM (using default enabled provider)
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}

	var llm *openai.LLM
	var err error
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

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		log.Fatal(err)
	}

	mem, err := memory.NewService(cfg.Memory.Path, embedder)
	if err != nil {
		log.Fatal(err)
	}
	defer mem.Close()

	plans, err := store.NewPlanStore(cfg.Store.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer plans.Close()

	gov := policy.NewDefaultEngine()
	// Default safety rules: Block dangerous destructive patterns in tool input
	_ = gov.DenyArguments(`rm\s+-rf`)
	_ = gov.DenyArguments(`mkfs`)
	_ = gov.DenyArguments(`shutdown`)
	_ = gov.DenyArguments(`reboot`)

	logger := observability.NewLogger()

	orch := planner.NewOrchestrator(llm, embedder, mem, plans, gov, logger)
	if cfg.Planner.Temperature > 0 {
		orch.Temperature = cfg.Planner.Temperature
	}
	if cfg.Planner.MaxTokens > 0 {
		orch.MaxTokens = cfg.Planner.MaxTokens
	}

	searchTool, err := tools.NewSearchTool()
	if err != nil {
		log.Printf("Warning: Failed to initialize search tool: %v", err)
		tools.Install(orch, tools.NewWikipediaTool(), tools.NewScraperTool())
	} else {
		tools.Install(orch, searchTool, tools.NewWikipediaTool(), tools.NewScraperTool())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan, err := orch.CreatePlan(ctx, goal, nil)
	if err != nil {
		log.Fatalf("planning failed: %v", err)
	}

	fmt.Println(plan.Render())

	result, err := orch.ExecuteFullPlan(ctx, plan.ID)
	if err != nil {
		log.Fatalf("execution failed: %v", err)
	}

	fmt.Println(result.Summary)

	if result.Deadlocked() {
		fmt.Println("Execution halted with unfinished steps:")
		for _, s := range result.Stuck {
			fmt.Printf("  %s (%s)", s.StepID, s.Status)
			if s.Capability != "" {
				fmt.Printf(" waiting on %s", s.Capability)
			}
			fmt.Println()
		}
	}
}
