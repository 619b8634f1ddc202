// check_api sends one prompt through the same retrying client the bot
// uses, to verify the API key and model before deploying.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"career-bot/internal/config"
	"career-bot/internal/pkg/logger"
	"career-bot/internal/reply"
	"career-bot/pkg/llm"
	"career-bot/pkg/llm/factory"

	"github.com/fatih/color"
)

func main() {
	question := flag.String("q", "Какие направления подготовки есть в ПВГУС?", "user message to send")
	verbose := flag.Bool("v", false, "log every attempt")
	flag.Parse()

	cfg := config.Load()

	color.Cyan("🚀 Checking completion API (%s, model %s)\n", cfg.Ai.LLMProvider, cfg.Ai.Model)

	systemPrompt, err := config.LoadSystemPrompt(cfg.Session.SystemPromptPath)
	if err != nil {
		color.Yellow("System prompt unavailable (%v), using a placeholder", err)
		systemPrompt = "You are a helpful assistant."
	}

	provider, err := factory.NewLLMProvider(factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.Model,
		APIURL:   cfg.Ai.APIURL,
		APIKey:   cfg.Ai.APIKey,
		Referer:  cfg.Ai.Referer,
		Title:    cfg.Ai.Title,
		Timeout:  cfg.Ai.RequestTimeout,
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}

	log := logger.NewNopLogger()
	if *verbose {
		log = logger.NewZapLogger("", false, "debug")
	}
	client := reply.NewClient(provider, reply.Policy{
		MaxAttempts:  cfg.Ai.MaxAttempts,
		InitialDelay: cfg.Ai.InitialBackoff,
	}, log)

	history := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: *question},
	}

	color.Yellow("\n> %s", *question)
	start := time.Now()
	text, err := client.Reply(context.Background(), history, func() {
		color.Yellow("  retrying...")
	})
	if err != nil {
		color.Red("Failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
		var replyErr *reply.Error
		if errors.As(err, &replyErr) {
			color.Red("Kind: %s, status: %d, attempts: %d", replyErr.Kind, replyErr.StatusCode, replyErr.Attempts)
		}
		color.Red("User would see: %s", reply.UserMessage(err))
		os.Exit(1)
	}

	color.Green("OK in %s\n", time.Since(start).Round(time.Millisecond))
	color.White(text)
}
