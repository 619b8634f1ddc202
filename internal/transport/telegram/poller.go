package telegram

import (
	"context"
	"fmt"

	"career-bot/internal/handler"
	"career-bot/internal/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

const pollTimeoutSeconds = 60

type Dispatcher interface {
	Dispatch(ctx context.Context, upd handler.Update)
}

// Poller long-polls getUpdates and hands updates to the dispatcher, at most
// maxConcurrent at a time. Updates from one user are handled in the order
// they arrived.
type Poller struct {
	api      *tgbotapi.BotAPI
	dispatch *orderedDispatch
	logger   logger.ILogger
}

// NewBotAPI authenticates against Telegram and routes the library's own
// logging through log.
func NewBotAPI(token string, log logger.ILogger) (*tgbotapi.BotAPI, error) {
	if err := tgbotapi.SetLogger(botLogger{log: log}); err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth failed: %w", err)
	}
	return api, nil
}

func NewPoller(api *tgbotapi.BotAPI, bot Dispatcher, maxConcurrent int, log logger.ILogger) *Poller {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Poller{
		api:      api,
		dispatch: newOrderedDispatch(bot, semaphore.NewWeighted(int64(maxConcurrent))),
		logger:   log,
	}
}

// Run polls until ctx is done, then waits for in-flight updates.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	updates := p.api.GetUpdatesChan(cfg)

	p.logger.Info("TELEGRAM", "Polling for updates", map[string]interface{}{"bot": p.api.Self.UserName})

	defer p.dispatch.Wait()

	for {
		select {
		case <-ctx.Done():
			p.api.StopReceivingUpdates()
			p.logger.Info("TELEGRAM", "Stopped polling", nil)
			return nil
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			upd, ok := ToUpdate(raw)
			if !ok {
				continue
			}
			p.dispatch.Submit(ctx, upd)
		}
	}
}

// ToUpdate extracts the fields the bot uses. Updates without a text
// message from a user are skipped.
func ToUpdate(raw tgbotapi.Update) (handler.Update, bool) {
	msg := raw.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return handler.Update{}, false
	}
	upd := handler.Update{
		UserID: msg.From.ID,
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}
	if msg.IsCommand() {
		upd.Command = msg.Command()
	}
	return upd, true
}

// botLogger adapts the library's Printf-style logger.
type botLogger struct {
	log logger.ILogger
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Debug("TELEGRAM", fmt.Sprint(v...), nil)
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log.Debug("TELEGRAM", fmt.Sprintf(format, v...), nil)
}
