package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/infra/validation"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/retry"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
)

type Config struct {
	Env           string `env:"ENV"`
	Port          string `env:"PORT" validate:"required,numeric"`
	LogLevel      string `env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	DefaultLocale string `env:"DEFAULT_LOCALE" validate:"required"`
	OTelEnabled   bool   `env:"OTEL_ENABLED"`
	Provider      string `env:"LLM_PROVIDER" validate:"required,oneof=gemini openai genai"`

	Gemini GeminiConfig
	OpenAI OpenAIConfig
	LLM    LLMConfig
	Retry  RetryConfig
}

type GeminiConfig struct {
	APIKey     string `env:"GEMINI_API_KEY"`
	APIURL     string `env:"GEMINI_API_URL" validate:"omitempty,url"`
	Model      string `env:"GEMINI_MODEL" validate:"required"`
	KeyInQuery bool   `env:"GEMINI_KEY_IN_QUERY"`
}

// OpenAIConfig covers any chat completions endpoint; Groq is the default.
type OpenAIConfig struct {
	APIKey string `env:"GROQ_API_KEY"`
	APIURL string `env:"GROQ_API_URL" validate:"omitempty,url"`
	Model  string `env:"CHAT_MODEL" validate:"required"`
}

type LLMConfig struct {
	Timeout           time.Duration `env:"LLM_TIMEOUT" validate:"gt=0"`
	RequestsPerSecond float64       `env:"LLM_REQUESTS_PER_SECOND" validate:"gte=0"`
	StreamPacing      time.Duration `env:"STREAM_PACING" validate:"gte=0"`
}

type RetryConfig struct {
	MaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" validate:"gte=1,lte=10"`
	MinDelay    time.Duration `env:"RETRY_MIN_DELAY" validate:"gte=0"`
	MaxDelay    time.Duration `env:"RETRY_MAX_DELAY" validate:"gte=0"`
}

// Policy converts the retry settings to a retry.Policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.DefaultPolicy().
		WithMaxAttempts(r.MaxAttempts).
		WithDelays(r.MinDelay, r.MaxDelay)
}

// Load reads the environment, after a .env file when one exists, and validates it.
// Missing, unparsable or invalid settings are reported as *domain.ConfigurationError.
// The API key and base URL of the active provider have no defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &domain.ConfigurationError{Key: ".env", Reason: err.Error()}
	}

	var p envParser
	cfg := &Config{
		Env:           getEnv("ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en-IN"),
		OTelEnabled:   p.getBool("OTEL_ENABLED", false),
		Provider:      strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		Gemini: GeminiConfig{
			APIKey:     getSecret("GEMINI_API_KEY", "GEMINI_API_KEY_FILE", ""),
			APIURL:     getEnv("GEMINI_API_URL", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			KeyInQuery: p.getBool("GEMINI_KEY_IN_QUERY", true),
		},
		OpenAI: OpenAIConfig{
			APIKey: getSecretWithAlt("GROQ_API_KEY", "OPENAI_API_KEY", ""),
			APIURL: getEnvWithAlt("GROQ_API_URL", "OPENAI_API_URL", ""),
			Model:  getEnv("CHAT_MODEL", "llama3-70b-8192"),
		},
		LLM: LLMConfig{
			Timeout:           p.getDuration("LLM_TIMEOUT", 60*time.Second),
			RequestsPerSecond: p.getFloat("LLM_REQUESTS_PER_SECOND", 2),
			StreamPacing:      p.getDuration("STREAM_PACING", 0),
		},
		Retry: RetryConfig{
			MaxAttempts: p.getInt("RETRY_MAX_ATTEMPTS", 3),
			MinDelay:    p.getDuration("RETRY_MIN_DELAY", time.Second),
			MaxDelay:    p.getDuration("RETRY_MAX_DELAY", 5*time.Second),
		},
	}
	if p.err != nil {
		return nil, p.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field rules and that the active provider has a key and a base URL.
func (c *Config) Validate() error {
	violations, err := validation.NewWithTagName("env").Check(c)
	if err != nil {
		return &domain.ConfigurationError{Key: "config", Reason: err.Error()}
	}
	if len(violations) > 0 {
		v := violations[0]
		return &domain.ConfigurationError{Key: v.Field, Reason: strings.TrimPrefix(v.Message, v.Field+" ")}
	}

	if c.Retry.MinDelay > c.Retry.MaxDelay {
		return &domain.ConfigurationError{Key: "RETRY_MIN_DELAY", Reason: fmt.Sprintf("must not exceed RETRY_MAX_DELAY (%s)", c.Retry.MaxDelay)}
	}

	switch c.Provider {
	case ProviderGemini, ProviderGenAI:
		if c.Gemini.APIKey == "" {
			return &domain.ConfigurationError{Key: "GEMINI_API_KEY", Reason: "is required for provider " + c.Provider}
		}
		if c.Gemini.APIURL == "" {
			return &domain.ConfigurationError{Key: "GEMINI_API_URL", Reason: "is required for provider " + c.Provider}
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return &domain.ConfigurationError{Key: "GROQ_API_KEY", Reason: "is required for provider " + c.Provider}
		}
		if c.OpenAI.APIURL == "" {
			return &domain.ConfigurationError{Key: "GROQ_API_URL", Reason: "is required for provider " + c.Provider}
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getSecretWithAlt(key, altKey, fallback string) string {
	if value := getSecret(key, key+"_FILE", ""); value != "" {
		return value
	}
	return getSecret(altKey, altKey+"_FILE", fallback)
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

// envParser reads typed settings and keeps the first value that fails to parse.
type envParser struct {
	err error
}

func (p *envParser) fail(key, value, want string) {
	if p.err == nil {
		p.err = &domain.ConfigurationError{Key: key, Reason: fmt.Sprintf("%q is not %s", value, want)}
	}
}

func (p *envParser) getInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, "an integer")
		return fallback
	}
	return parsed
}

func (p *envParser) getFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, value, "a number")
		return fallback
	}
	return parsed
}

// getDuration accepts Go durations ("1500ms") or bare milliseconds ("1500").
func (p *envParser) getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	p.fail(key, value, "a duration")
	return fallback
}

func (p *envParser) getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, "a boolean")
		return fallback
	}
	return parsed
}
