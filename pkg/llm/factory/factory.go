package factory

import (
	"fmt"
	"time"

	"career-bot/pkg/llm"
	"career-bot/pkg/llm/ollama"
	"career-bot/pkg/llm/openrouter"
)

type ProviderConfig struct {
	Provider string // "openrouter" or "ollama"
	Model    string
	APIURL   string // completion endpoint for openrouter, base URL for ollama
	APIKey   string
	Referer  string
	Title    string
	Timeout  time.Duration
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "", "openrouter":
		p := openrouter.NewOpenRouterProvider(cfg.APIURL, cfg.APIKey, cfg.Model, cfg.Timeout)
		p.Referer = cfg.Referer
		p.Title = cfg.Title
		return p, nil
	case "ollama":
		return ollama.NewOllamaProvider(cfg.APIURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
