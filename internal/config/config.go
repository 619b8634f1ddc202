package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Telegram TelegramConfig
	Ai       AIConfig
	Session  SessionConfig
}

type AppConfig struct {
	Environment  string
	LogFilePath  string
	LogLevel     string
	OpsPort      string // empty disables the ops HTTP server
	NatsURL      string // empty disables event forwarding
	OtelEnabled  bool
	OtelEndpoint string
}

type TelegramConfig struct {
	BotToken             string `env:"TELEGRAM_BOT_TOKEN" validate:"required"`
	MaxConcurrentUpdates int
}

type AIConfig struct {
	LLMProvider    string        `env:"LLM_PROVIDER" validate:"oneof=openrouter ollama"`
	APIKey         string        `env:"OPENROUTER_API_KEY" validate:"required_unless=LLMProvider ollama"`
	APIURL         string        `env:"OPENROUTER_API_URL" validate:"required,url"`
	Model          string        `env:"OPENROUTER_MODEL" validate:"required"`
	Referer        string
	Title          string
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" validate:"gt=0"`
	MaxAttempts    int           `env:"MAX_ATTEMPTS" validate:"min=1"`
	InitialBackoff time.Duration
}

type SessionConfig struct {
	SystemPromptPath  string
	InactiveThreshold time.Duration
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" validate:"gt=0"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	provider := getEnv("LLM_PROVIDER", "openrouter")
	apiURL := "https://openrouter.ai/api/v1/chat/completions"
	if provider == "ollama" {
		apiURL = "http://localhost:11434"
	}

	return &Config{
		App: AppConfig{
			Environment:  getEnv("GO_ENV", "development"),
			LogFilePath:  getEnv("LOG_FILE_PATH", "logs/bot.log"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			OpsPort:      getEnv("OPS_PORT", "8080"),
			NatsURL:      getEnv("NATS_URL", ""),
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Telegram: TelegramConfig{
			BotToken:             getEnv("TELEGRAM_BOT_TOKEN", ""),
			MaxConcurrentUpdates: getEnvAsInt("MAX_CONCURRENT_UPDATES", 32),
		},
		Ai: AIConfig{
			LLMProvider:    provider,
			APIKey:         getEnv("OPENROUTER_API_KEY", ""),
			APIURL:         getEnv("OPENROUTER_API_URL", apiURL),
			Model:          getEnv("OPENROUTER_MODEL", ""),
			Referer:        getEnv("OPENROUTER_REFERER", ""),
			Title:          getEnv("OPENROUTER_TITLE", ""),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
			MaxAttempts:    getEnvAsInt("MAX_ATTEMPTS", 3),
			InitialBackoff: getEnvAsDuration("INITIAL_BACKOFF", 2*time.Second),
		},
		Session: SessionConfig{
			SystemPromptPath:  getEnv("SYSTEM_PROMPT_PATH", "data/system_prompt.txt"),
			InactiveThreshold: getEnvAsDuration("INACTIVE_THRESHOLD", 24*time.Hour),
			CleanupInterval:   getEnvAsDuration("CLEANUP_INTERVAL", 6*time.Hour),
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their environment variable.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("env"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required", "required_unless":
		return fmt.Errorf("%s is required", fe.Field())
	case "min":
		return fmt.Errorf("%s must be >= %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "gt":
		return fmt.Errorf("%s must be positive, got %v", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// LoadSystemPrompt reads the system instruction once at startup.
func LoadSystemPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt %s: %w", path, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("system prompt %s is empty", path)
	}
	return prompt, nil
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
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
