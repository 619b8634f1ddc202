// Package telegram binds the bot to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"career-bot/internal/constant"
	"career-bot/internal/handler"
	"career-bot/internal/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLength is Telegram's limit for one text message, in characters.
const MaxMessageLength = 4096

// Sender is the part of *tgbotapi.BotAPI the messenger needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Messenger struct {
	api      Sender
	keyboard tgbotapi.ReplyKeyboardMarkup
	logger   logger.ILogger
}

var _ handler.Messenger = (*Messenger)(nil)

func NewMessenger(api Sender, log logger.ILogger) *Messenger {
	return &Messenger{
		api:      api,
		keyboard: Keyboard(),
		logger:   log,
	}
}

// Keyboard builds the persistent reply keyboard.
func Keyboard() tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(constant.KeyboardLayout))
	for _, row := range constant.KeyboardLayout {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func (m *Messenger) SendTyping(_ context.Context, chatID int64) error {
	_, err := m.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

// SendText delivers text, split into several messages when it is too long.
// Markdown that Telegram refuses to parse is resent as plain text.
func (m *Messenger) SendText(_ context.Context, chatID int64, text string, markdown bool) error {
	for _, chunk := range splitText(text, MaxMessageLength) {
		if err := m.sendChunk(chatID, chunk, markdown); err != nil {
			return err
		}
	}
	return nil
}

func (m *Messenger) sendChunk(chatID int64, text string, markdown bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = m.keyboard
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	_, err := m.api.Send(msg)
	if err == nil || !markdown || !isParseError(err) {
		return err
	}

	m.logger.Warn("TELEGRAM", "Markdown rejected, resending as plain text", map[string]interface{}{
		"chat_id": chatID,
		"error":   err.Error(),
	})
	msg.ParseMode = ""
	_, err = m.api.Send(msg)
	return err
}

func isParseError(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "can't parse entities")
}

// splitText cuts text into pieces of at most limit runes, preferring to
// break after a newline.
func splitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
