package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"career-bot/internal/config"
	"career-bot/internal/constant"
	"career-bot/internal/handler"
	"career-bot/internal/pkg/logger"
	"career-bot/internal/reaper"
	"career-bot/internal/reply"
	"career-bot/internal/server"
	"career-bot/internal/service"
	"career-bot/internal/session"
	"career-bot/internal/transport/telegram"
	"career-bot/pkg/llm/factory"

	pktNats "career-bot/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	Logger logger.ILogger
	Store  *session.Store
	Bot    *handler.Bot

	// Background services (run by main)
	Poller        *telegram.Poller
	Reaper        *reaper.Reaper
	EventConsumer service.IEventConsumer
	OpsServer     *server.Server // nil when OPS_PORT is empty

	pubSub *gochannel.GoChannel
	nats   *pktNats.Publisher
}

// NewContainer wires every component. It contacts Telegram to verify the
// bot token and, when configured, connects to NATS.
func NewContainer(cfg *config.Config, systemPrompt string, sysLogger logger.ILogger) (*Container, error) {
	// 1. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	eventPublisher := service.NewEventPublisher(constant.EventTopic, pubSub, sysLogger)

	var natsPublisher *pktNats.Publisher
	var forwarder service.Forwarder
	if cfg.App.NatsURL != "" {
		p, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "NATS unavailable, events stay in-process", map[string]interface{}{"error": err.Error()})
		} else {
			natsPublisher = p
			forwarder = p
		}
	}
	eventConsumer := service.NewEventConsumer(constant.EventTopic, pubSub, forwarder, sysLogger)

	// 2. Completion API
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
		return nil, err
	}
	replyClient := reply.NewClient(provider, reply.Policy{
		MaxAttempts:  cfg.Ai.MaxAttempts,
		InitialDelay: cfg.Ai.InitialBackoff,
	}, sysLogger)

	// 3. Sessions and handlers
	store := session.NewStore(systemPrompt)

	api, err := telegram.NewBotAPI(cfg.Telegram.BotToken, sysLogger)
	if err != nil {
		return nil, err
	}
	messenger := telegram.NewMessenger(api, sysLogger)
	bot := handler.NewBot(store, replyClient, messenger, eventPublisher, sysLogger)

	c := &Container{
		Logger:        sysLogger,
		Store:         store,
		Bot:           bot,
		Poller:        telegram.NewPoller(api, bot, cfg.Telegram.MaxConcurrentUpdates, sysLogger),
		Reaper:        reaper.New(store, cfg.Session.CleanupInterval, cfg.Session.InactiveThreshold, eventPublisher, sysLogger),
		EventConsumer: eventConsumer,
		pubSub:        pubSub,
		nats:          natsPublisher,
	}
	if cfg.App.OpsPort != "" {
		c.OpsServer = server.New(cfg.App.OpsPort, store, sysLogger)
	}

	sysLogger.Info("BOOTSTRAP", "Container ready", map[string]interface{}{
		"bot":          api.Self.UserName,
		"provider":     cfg.Ai.LLMProvider,
		"model":        cfg.Ai.Model,
		"max_attempts": cfg.Ai.MaxAttempts,
		"nats":         natsPublisher != nil,
	})
	return c, nil
}

// Close drops every session and releases the event bus.
func (c *Container) Close(_ context.Context) error {
	c.Store.Close()

	var errs []error
	if err := c.pubSub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event bus: %w", err))
	}
	if c.nats != nil {
		c.nats.Close()
	}
	return errors.Join(errs...)
}
