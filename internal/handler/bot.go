// Package handler routes inbound chat updates to the command handlers and
// the free-text turn, and always answers the user.
package handler

import (
	"context"
	"fmt"
	"runtime/debug"

	"career-bot/internal/constant"
	"career-bot/internal/metrics"
	"career-bot/internal/pkg/logger"
	"career-bot/internal/reply"
	"career-bot/internal/service"
	"career-bot/internal/session"
	"career-bot/pkg/events"
	"career-bot/pkg/llm"
)

// Update is one inbound chat event, already decoded by the transport.
type Update struct {
	UserID int64
	ChatID int64
	Text   string
	// Command is the bot command without the leading slash, empty for plain text.
	Command string
}

// Messenger delivers outbound messages. Every text goes out with the
// standard reply keyboard.
type Messenger interface {
	SendTyping(ctx context.Context, chatID int64) error
	SendText(ctx context.Context, chatID int64, text string, markdown bool) error
}

type Replier interface {
	Reply(ctx context.Context, history []llm.Message, onRetry func()) (string, error)
}

type Bot struct {
	store     *session.Store
	replier   Replier
	messenger Messenger
	events    service.IEventPublisher
	logger    logger.ILogger
}

func NewBot(store *session.Store, replier Replier, messenger Messenger, publisher service.IEventPublisher, log logger.ILogger) *Bot {
	return &Bot{
		store:     store,
		replier:   replier,
		messenger: messenger,
		events:    publisher,
		logger:    log,
	}
}

// Dispatch handles one update. It never panics; a failure inside a handler
// still produces an apology for the user.
func (b *Bot) Dispatch(ctx context.Context, upd Update) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanicsTotal.Inc()
			b.logger.Error("BOT", "Recovered from panic in update handler", map[string]interface{}{
				"user_id": upd.UserID,
				"panic":   fmt.Sprint(r),
				"stack":   string(debug.Stack()),
			})
			b.send(ctx, upd.ChatID, constant.UnknownErrorMessage, false)
		}
		metrics.ActiveSessions.Set(float64(b.store.Len()))
	}()

	switch upd.Command {
	case constant.CommandStart:
		metrics.UpdatesTotal.WithLabelValues("start").Inc()
		b.HandleStart(ctx, upd)
	case constant.CommandHelp:
		metrics.UpdatesTotal.WithLabelValues("help").Inc()
		b.HandleHelp(ctx, upd)
	case constant.CommandReset:
		metrics.UpdatesTotal.WithLabelValues("reset").Inc()
		b.HandleReset(ctx, upd)
	case "":
		if upd.Text == "" {
			metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
			return
		}
		metrics.UpdatesTotal.WithLabelValues("message").Inc()
		b.HandleMessage(ctx, upd)
	default:
		metrics.UpdatesTotal.WithLabelValues("ignored").Inc()
		b.logger.Debug("BOT", "Ignoring unknown command", map[string]interface{}{"user_id": upd.UserID, "command": upd.Command})
	}
}

// HandleStart starts the conversation over and greets the user.
func (b *Bot) HandleStart(ctx context.Context, upd Update) {
	b.resetSession(ctx, upd, constant.CommandStart)
	b.send(ctx, upd.ChatID, constant.WelcomeMessage, false)
}

// HandleReset is /start with a different confirmation.
func (b *Bot) HandleReset(ctx context.Context, upd Update) {
	b.resetSession(ctx, upd, constant.CommandReset)
	b.send(ctx, upd.ChatID, constant.ResetMessage, false)
}

// HandleHelp only refreshes the idle clock. It does not wait for the
// user's turn lock, so help is answered even while a reply is pending.
func (b *Bot) HandleHelp(ctx context.Context, upd Update) {
	b.store.Touch(upd.UserID)

	b.send(ctx, upd.ChatID, constant.HelpMessage, true)
}

func (b *Bot) resetSession(ctx context.Context, upd Update, command string) {
	_, created, release := b.store.Lock(upd.UserID)
	defer release()

	b.store.Reset(upd.UserID)
	b.events.Publish(ctx, events.New(constant.EventSessionReset, map[string]interface{}{
		"user_id": upd.UserID,
		"command": command,
		"created": created,
	}))
}

func (b *Bot) typing(ctx context.Context, chatID int64) {
	if err := b.messenger.SendTyping(ctx, chatID); err != nil {
		b.logger.Debug("BOT", "Failed to send typing indicator", map[string]interface{}{"chat_id": chatID, "error": err.Error()})
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markdown bool) {
	if err := b.messenger.SendText(ctx, chatID, text, markdown); err != nil {
		b.logger.Error("BOT", "Failed to deliver message", map[string]interface{}{"chat_id": chatID, "error": err.Error()})
	}
}

// noopPublisher is used when no event bus is wired.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Event) {}

var _ service.IEventPublisher = noopPublisher{}

// NoopEvents returns a publisher that drops everything.
func NoopEvents() service.IEventPublisher {
	return noopPublisher{}
}

var _ Replier = (*reply.Client)(nil)
