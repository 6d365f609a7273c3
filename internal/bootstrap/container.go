package bootstrap

import (
	"log"
	"os"
	"time"

	"ai-storystudio-be/internal/config"
	"ai-storystudio-be/internal/controller"
	"ai-storystudio-be/internal/pkg/logger"
	"ai-storystudio-be/internal/repository/contract"
	"ai-storystudio-be/internal/repository/filestore"
	"ai-storystudio-be/internal/repository/implementation"
	"ai-storystudio-be/internal/repository/memory"
	"ai-storystudio-be/internal/repository/redisrepo"
	"ai-storystudio-be/internal/service"
	"ai-storystudio-be/pkg/llm/factory"
	"ai-storystudio-be/pkg/story/engine"
	"ai-storystudio-be/pkg/story/interpret"
	"ai-storystudio-be/pkg/story/judge"
	"ai-storystudio-be/pkg/story/plan"
	"ai-storystudio-be/pkg/story/revise"
	"ai-storystudio-be/pkg/story/tell"
	"ai-storystudio-be/pkg/telemetry"

	pktNats "ai-storystudio-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	StoryController controller.IStoryController

	// Background Services (Exposed for main.go to run)
	TelemetryService service.ITelemetryService

	// Core facades exposed for the CLI and for graceful shutdown
	Engine    *engine.Engine
	Sessions  contract.StorySessionRepository
	SysLogger logger.ILogger
	NatsPub   *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	pipelineLog := log.New(os.Stdout, "[pipeline] ", log.LstdFlags)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM Provider
	baseURL := cfg.Ai.OllamaBaseURL
	if cfg.Ai.LLMProvider == "openai" {
		baseURL = cfg.Ai.OpenAIBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		baseURL,
		cfg.Ai.OpenAIAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Session Store
	var sessionRepo contract.StorySessionRepository
	switch cfg.Store.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Fatalf("[FATAL] Invalid REDIS_URL: %v", err)
		}
		client := redis.NewClient(opts)
		ttl := time.Duration(cfg.Store.RedisTTLHours) * time.Hour
		sessionRepo = redisrepo.NewStorySessionRepository(client, ttl)
		log.Printf("[INFO] Using Session Store: REDIS (ttl %s)", ttl)
	case "postgres":
		if db == nil {
			log.Fatalf("[FATAL] SESSION_STORE=postgres requires DB_CONNECTION_STRING")
		}
		sessionRepo = implementation.NewStorySessionRepository(db)
		log.Printf("[INFO] Using Session Store: POSTGRES")
	default:
		sessionRepo = memory.NewStorySessionRepository()
		log.Printf("[INFO] Using Session Store: MEMORY")
	}

	prefRepo := filestore.NewPreferenceRepository(cfg.Store.PreferencePath)

	// 5. NATS relay (optional)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	}

	// 6. Telemetry sinks: structured log always, event bus for the relay
	sink := telemetry.MultiSink{
		telemetry.NewZapSink(sysLogger.Raw()),
		telemetry.NewBusSink(pubSub, cfg.App.TelemetryTopic),
	}

	// 7. Pipeline collaborators
	interpreter := interpret.NewInterpreter(llmProvider, pipelineLog)
	planner := plan.NewPlanner(llmProvider, pipelineLog)
	storyteller := tell.NewStoryteller(llmProvider, cfg.Ai.DraftTemperature, pipelineLog)
	evaluator := judge.NewEvaluator(llmProvider, judge.Thresholds{
		PerDimension: cfg.Engine.DimensionThreshold,
		Aggregate:    cfg.Engine.AggregateThreshold,
	}, pipelineLog)
	reviser := revise.NewController(llmProvider, pipelineLog)

	eng := engine.NewEngine(
		interpreter,
		planner,
		storyteller,
		evaluator,
		reviser,
		sessionRepo,
		prefRepo,
		sink,
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

	// 8. Services & Controllers
	storyService := service.NewStoryService(eng, sessionRepo, sysLogger)
	telemetryService := service.NewTelemetryService(pubSub, cfg.App.TelemetryTopic, natsPub, sysLogger)

	return &Container{
		StoryController:  controller.NewStoryController(storyService),
		TelemetryService: telemetryService,
		Engine:           eng,
		Sessions:         sessionRepo,
		SysLogger:        sysLogger,
		NatsPub:          natsPub,
	}
}
