package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"

	"ai-storystudio-be/internal/config"
	"ai-storystudio-be/internal/repository/filestore"
	"ai-storystudio-be/internal/repository/memory"
	"ai-storystudio-be/pkg/llm/factory"
	"ai-storystudio-be/pkg/story"
	"ai-storystudio-be/pkg/story/engine"
	"ai-storystudio-be/pkg/story/interpret"
	"ai-storystudio-be/pkg/story/judge"
	"ai-storystudio-be/pkg/story/plan"
	"ai-storystudio-be/pkg/story/revise"
	"ai-storystudio-be/pkg/story/tell"
	"ai-storystudio-be/pkg/telemetry"
)

// cliSink prints stage events as colored progress lines.
type cliSink struct{}

func (cliSink) Emit(event telemetry.StageEvent) {
	line := fmt.Sprintf("  [%s] %s (%dms)", event.Stage, event.Name, event.DurationMs())
	if ok, present := event.Metadata["ok"].(bool); present && !ok {
		color.Red(line)
		return
	}
	color.Blue(line)
}

func main() {
	cfg := config.Load()
	pipelineLog := log.New(os.Stderr, "[studio] ", log.LstdFlags)

	baseURL := cfg.Ai.OllamaBaseURL
	if cfg.Ai.LLMProvider == "openai" {
		baseURL = cfg.Ai.OpenAIBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, baseURL, cfg.Ai.OpenAIAPIKey)
	if err != nil {
		color.Red("Failed to initialize LLM provider: %v", err)
		os.Exit(1)
	}

	sessions := memory.NewStorySessionRepository()
	prefs := filestore.NewPreferenceRepository(cfg.Store.PreferencePath)

	eng := engine.NewEngine(
		interpret.NewInterpreter(llmProvider, pipelineLog),
		plan.NewPlanner(llmProvider, pipelineLog),
		tell.NewStoryteller(llmProvider, cfg.Ai.DraftTemperature, pipelineLog),
		judge.NewEvaluator(llmProvider, judge.Thresholds{
			PerDimension: cfg.Engine.DimensionThreshold,
			Aggregate:    cfg.Engine.AggregateThreshold,
		}, pipelineLog),
		revise.NewController(llmProvider, pipelineLog),
		sessions,
		prefs,
		cliSink{},
		engine.Config{
			MaxIterations:    cfg.Engine.MaxIterations,
			MaxRetries:       cfg.Engine.MaxRetries,
			RetryBackoff:     cfg.Engine.RetryBackoff,
			InterpretTimeout: cfg.Engine.InterpretTimeout,
			PlanTimeout:      cfg.Engine.PlanTimeout,
			DraftTimeout:     cfg.Engine.DraftTimeout,
			JudgeTimeout:     cfg.Engine.JudgeTimeout,
			ReviseTimeout:    cfg.Engine.ReviseTimeout,
		},
		pipelineLog,
	)

	reader := bufio.NewReader(os.Stdin)

	color.Cyan("🌙 Story Studio (%s / %s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	color.Cyan("What bedtime story would you like tonight?")
	fmt.Print("> ")
	request, _ := reader.ReadString('\n')
	request = strings.TrimSpace(request)
	if request == "" {
		color.Red("No request given, nothing to do.")
		os.Exit(1)
	}

	session := story.NewSession(request)
	if err := eng.Run(context.Background(), session); err != nil {
		color.Red("Pipeline failed: %v", err)
		os.Exit(1)
	}

	printOutcome(session)

	if session.State != story.StateFinalized {
		return
	}

	// Optional refinement round: feedback adjusts both this story and the
	// stored preferences for the next one.
	color.Cyan("\nAny feedback? (press Enter to keep the story as is)")
	fmt.Print("> ")
	feedback, _ := reader.ReadString('\n')
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		color.Green("Good night! 🌙")
		return
	}

	if err := eng.ApplyFeedback(context.Background(), session, feedback); err != nil {
		color.Red("Failed to apply feedback: %v", err)
		os.Exit(1)
	}

	color.Cyan("\n━━━ Revised story ━━━\n")
	fmt.Println(session.FinalStory)
	color.Green("\nGood night! 🌙")
}

func printOutcome(session *story.Session) {
	switch session.State {
	case story.StateFinalized:
		if session.BestEffort {
			color.Yellow("\nFinalized (best effort after %d drafts)", len(session.DraftHistory))
		} else {
			color.Green("\nFinalized after %d draft(s)", len(session.DraftHistory))
		}
		color.Cyan("\n━━━ %s ━━━\n", titleLine(session))
		fmt.Println(session.FinalStory)
	case story.StateFailed:
		color.Red("\nSession failed: %s", session.FailureReason)
	case story.StateAborted:
		color.Yellow("\nSession aborted")
	}
}

func titleLine(session *story.Session) string {
	if session.RequestSpec != nil && session.RequestSpec.Theme != "" {
		return session.RequestSpec.Theme
	}
	return "Tonight's story"
}
