package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Store  StoreConfig
	Ai     AIConfig
	Engine EngineConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	TelemetryTopic     string
}

type StoreConfig struct {
	// Backend selects the artifact store: "memory", "redis" or "postgres"
	Backend        string
	DBConnection   string
	RedisTTLHours  int
	PreferencePath string
}

type AIConfig struct {
	LLMProvider   string // "ollama" or "openai"
	LLMModel      string // e.g. "llama3", "gpt-4o-mini"
	OllamaBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	// DraftTemperature is the storyteller's sampling temperature
	DraftTemperature float64
}

type EngineConfig struct {
	MaxIterations      int
	MaxRetries         int
	RetryBackoff       time.Duration
	InterpretTimeout   time.Duration
	PlanTimeout        time.Duration
	DraftTimeout       time.Duration
	JudgeTimeout       time.Duration
	ReviseTimeout      time.Duration
	DimensionThreshold float64
	AggregateThreshold float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			TelemetryTopic:     getEnv("TELEMETRY_TOPIC_NAME", "STORY_TELEMETRY"),
		},
		Store: StoreConfig{
			Backend:        getEnv("SESSION_STORE", "memory"),
			DBConnection:   getEnv("DB_CONNECTION_STRING", ""),
			RedisTTLHours:  getEnvAsInt("SESSION_REDIS_TTL_HOURS", 72),
			PreferencePath: getEnv("PREFERENCE_PATH", "data/user_prefs.json"),
		},
		Ai: AIConfig{
			LLMProvider:      getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:         getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
			DraftTemperature: getEnvAsFloat("DRAFT_TEMPERATURE", 0.4),
		},
		Engine: EngineConfig{
			MaxIterations:      getEnvAsInt("ENGINE_MAX_ITERATIONS", 3),
			MaxRetries:         getEnvAsInt("ENGINE_MAX_RETRIES", 2),
			RetryBackoff:       getEnvAsDuration("ENGINE_RETRY_BACKOFF", 500*time.Millisecond),
			InterpretTimeout:   getEnvAsDuration("ENGINE_INTERPRET_TIMEOUT", 60*time.Second),
			PlanTimeout:        getEnvAsDuration("ENGINE_PLAN_TIMEOUT", 60*time.Second),
			DraftTimeout:       getEnvAsDuration("ENGINE_DRAFT_TIMEOUT", 180*time.Second),
			JudgeTimeout:       getEnvAsDuration("ENGINE_JUDGE_TIMEOUT", 90*time.Second),
			ReviseTimeout:      getEnvAsDuration("ENGINE_REVISE_TIMEOUT", 180*time.Second),
			DimensionThreshold: getEnvAsFloat("JUDGE_DIMENSION_THRESHOLD", 5.0),
			AggregateThreshold: getEnvAsFloat("JUDGE_AGGREGATE_THRESHOLD", 7.0),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
