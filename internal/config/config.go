package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the grading service.
type Config struct {
	AppName    string
	AppEnv     string
	AppPort    string
	LogLevel   string
	DataDir    string
	SQLitePath string

	DatabaseURL string
	RedisURL    string
	NATSURL     string

	EmbeddingProvider  string
	EmbeddingModel     string
	EmbeddingBaseURL   string
	EmbeddingCacheSize int
	EmbeddingCacheTTL  time.Duration
	EmbeddingSerialize bool

	LLMProvider  string
	LLMTimeout   time.Duration
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	ProgressCacheTTL     time.Duration
	GradeCacheTTL        time.Duration
	GradeRateLimitPerMin int
	CoverageConcurrency  int
	ImportMaxUploadBytes int64
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UsesSQLite reports whether storage falls back to the embedded sqlite file.
func (c Config) UsesSQLite() bool {
	return strings.TrimSpace(c.DatabaseURL) == ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Provider credentials keep their conventional unprefixed names.
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("gemini.model", "GEMINI_MODEL")
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.model", "OPENAI_MODEL")

	v.SetDefault("app.name", "AI Auto Grader")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8000")
	v.SetDefault("log.level", "info")
	v.SetDefault("data.dir", "data")
	v.SetDefault("database.sqlite_path", "data/grader.db")
	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "all-minilm")
	v.SetDefault("embedding.cache_size", 1024)
	v.SetDefault("embedding.cache_ttl", "1h")
	v.SetDefault("embedding.serialize", false)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("gemini.model", "gemini-1.5-pro")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("progress.cache_ttl", "5m")
	v.SetDefault("grade.cache_ttl", "10m")
	v.SetDefault("rate_limit.grade_per_minute", 60)
	v.SetDefault("grading.coverage_concurrency", 4)
	v.SetDefault("import.max_upload_bytes", 5*1024*1024)

	embeddingTTL, err := parseDuration(v, "embedding.cache_ttl", time.Hour)
	if err != nil {
		return Config{}, err
	}
	llmTimeout, err := parseDuration(v, "llm.timeout", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	progressTTL, err := parseDuration(v, "progress.cache_ttl", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	gradeTTL, err := parseDuration(v, "grade.cache_ttl", 10*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:    v.GetString("app.name"),
		AppEnv:     v.GetString("app.env"),
		AppPort:    v.GetString("app.port"),
		LogLevel:   strings.ToLower(v.GetString("log.level")),
		DataDir:    v.GetString("data.dir"),
		SQLitePath: v.GetString("database.sqlite_path"),

		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),

		EmbeddingProvider:  strings.ToLower(v.GetString("embedding.provider")),
		EmbeddingModel:     v.GetString("embedding.model"),
		EmbeddingBaseURL:   v.GetString("embedding.base_url"),
		EmbeddingCacheSize: v.GetInt("embedding.cache_size"),
		EmbeddingCacheTTL:  embeddingTTL,
		EmbeddingSerialize: v.GetBool("embedding.serialize"),

		LLMProvider:  strings.ToLower(v.GetString("llm.provider")),
		LLMTimeout:   llmTimeout,
		GeminiAPIKey: strings.TrimSpace(v.GetString("gemini.api_key")),
		GeminiModel:  v.GetString("gemini.model"),
		OpenAIAPIKey: strings.TrimSpace(v.GetString("openai.api_key")),
		OpenAIModel:  v.GetString("openai.model"),

		ProgressCacheTTL:     progressTTL,
		GradeCacheTTL:        gradeTTL,
		GradeRateLimitPerMin: v.GetInt("rate_limit.grade_per_minute"),
		CoverageConcurrency:  v.GetInt("grading.coverage_concurrency"),
		ImportMaxUploadBytes: v.GetInt64("import.max_upload_bytes"),
	}

	switch cfg.EmbeddingProvider {
	case "hash", "ollama", "openai", "gemini":
	default:
		return Config{}, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}

	switch cfg.LLMProvider {
	case "gemini", "openai":
	default:
		return Config{}, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}

	if cfg.GradeRateLimitPerMin <= 0 {
		cfg.GradeRateLimitPerMin = 60
	}

	if cfg.CoverageConcurrency <= 0 {
		cfg.CoverageConcurrency = 4
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}
