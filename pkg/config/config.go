package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGigaChat = "gigachat"
	ProviderOpenAI   = "openai"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	LLM      LLMConfig
	Splitter SplitterConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

type LLMConfig struct {
	Provider          string // gigachat | openai
	MaxRetries        int
	Timeout           time.Duration
	// RequestsPerSecond throttles model calls; 0 disables throttling.
	RequestsPerSecond float64
	Burst             int
	GigaChat          GigaChatConfig
	OpenAI            OpenAIConfig
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// SplitterConfig mirrors the tunables of splitter.Config.
type SplitterConfig struct {
	BoundaryThreshold float64
	PairExcerptChars  int
	BatchPageChars    int
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work too (Docker/K8s).
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "300"))
	bodyLimitMB, _ := strconv.Atoi(getEnv("SERVER_BODY_LIMIT_MB", "64"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	maxRetries, _ := strconv.Atoi(getEnv("LLM_MAX_RETRIES", "2"))
	llmTimeout, _ := strconv.Atoi(getEnv("LLM_TIMEOUT_SECONDS", "120"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true"
	burst, _ := strconv.Atoi(getEnv("LLM_BURST", "1"))

	rps, err := strconv.ParseFloat(getEnv("LLM_REQUESTS_PER_SECOND", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_REQUESTS_PER_SECOND: %w", err)
	}

	threshold, err := strconv.ParseFloat(getEnv("SPLIT_BOUNDARY_THRESHOLD", "0.6"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SPLIT_BOUNDARY_THRESHOLD: %w", err)
	}
	pairChars, _ := strconv.Atoi(getEnv("SPLIT_PAIR_EXCERPT_CHARS", "1500"))
	batchChars, _ := strconv.Atoi(getEnv("SPLIT_BATCH_PAGE_CHARS", "3000"))

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
			BodyLimit:    bodyLimitMB * 1024 * 1024,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "doc_splitter"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
		},
		LLM: LLMConfig{
			Provider:          getEnv("LLM_PROVIDER", ProviderGigaChat),
			MaxRetries:        maxRetries,
			Timeout:           time.Duration(llmTimeout) * time.Second,
			RequestsPerSecond: rps,
			Burst:             burst,
			GigaChat: GigaChatConfig{
				APIKey:             getEnv("GIGACHAT_API_KEY", ""),
				Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
				Model:              getEnv("GIGACHAT_MODEL", "GigaChat-Max"),
				InsecureSkipVerify: insecureSkipVerify,
			},
			OpenAI: OpenAIConfig{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   getEnv("OPENAI_MODEL", "gpt-4o"),
			},
		},
		Splitter: SplitterConfig{
			BoundaryThreshold: threshold,
			PairExcerptChars:  pairChars,
			BatchPageChars:    batchChars,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGigaChat, ProviderOpenAI:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGigaChat, ProviderOpenAI, c.LLM.Provider)
	}
	if c.LLM.RequestsPerSecond < 0 {
		return fmt.Errorf("LLM_REQUESTS_PER_SECOND must not be negative, got %v", c.LLM.RequestsPerSecond)
	}
	if c.Splitter.BoundaryThreshold < 0 || c.Splitter.BoundaryThreshold > 1 {
		return fmt.Errorf("SPLIT_BOUNDARY_THRESHOLD must be within [0,1], got %v", c.Splitter.BoundaryThreshold)
	}
	if c.Splitter.PairExcerptChars <= 0 {
		return fmt.Errorf("SPLIT_PAIR_EXCERPT_CHARS must be positive, got %d", c.Splitter.PairExcerptChars)
	}
	if c.Splitter.BatchPageChars <= 0 {
		return fmt.Errorf("SPLIT_BATCH_PAGE_CHARS must be positive, got %d", c.Splitter.BatchPageChars)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
