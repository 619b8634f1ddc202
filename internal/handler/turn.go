package handler

import (
	"context"
	"errors"
	"time"

	"career-bot/internal/constant"
	"career-bot/internal/reply"
	"career-bot/pkg/events"
	"career-bot/pkg/llm"
)

type TurnState string

const (
	TurnNoSession           TurnState = "no_session"
	TurnSessionCreated      TurnState = "session_created"
	TurnUserAppended        TurnState = "history_appended_user"
	TurnAwaitingReply       TurnState = "awaiting_reply"
	TurnAssistantAppended   TurnState = "history_appended_assistant"
	TurnTerminalMessageSent TurnState = "terminal_message_sent"
)

// HandleMessage runs one free-text turn and returns the state it ended in:
// TurnAssistantAppended on success, TurnTerminalMessageSent when the user
// got an apology instead. The user's lock is held for the whole turn so
// concurrent messages from one user are answered in order.
func (b *Bot) HandleMessage(ctx context.Context, upd Update) TurnState {
	start := time.Now()
	state := TurnNoSession
	advance := func(next TurnState) {
		b.logger.Debug("BOT", "Turn state changed", map[string]interface{}{
			"user_id": upd.UserID,
			"from":    string(state),
			"to":      string(next),
		})
		state = next
	}

	sess, created, release := b.store.Lock(upd.UserID)
	defer release()

	if created {
		advance(TurnSessionCreated)
		b.events.Publish(ctx, events.New(constant.EventSessionCreated, map[string]interface{}{"user_id": upd.UserID}))
	}

	b.store.Touch(upd.UserID)
	mark := len(sess.History())
	completed := false
	// The unanswered question is dropped on any exit short of success,
	// panics included, so history holds only complete exchanges.
	defer func() {
		if !completed {
			b.store.TruncateTo(upd.UserID, mark)
		}
	}()
	b.store.Append(upd.UserID, llm.RoleUser, upd.Text)
	advance(TurnUserAppended)

	b.typing(ctx, upd.ChatID)
	advance(TurnAwaitingReply)

	text, err := b.replier.Reply(ctx, b.store.History(upd.UserID), func() {
		b.typing(ctx, upd.ChatID)
	})
	if err != nil {
		fields := map[string]interface{}{
			"user_id":     upd.UserID,
			"duration_ms": time.Since(start).Milliseconds(),
			"error":       err.Error(),
		}
		var rerr *reply.Error
		if errors.As(err, &rerr) {
			fields["kind"] = string(rerr.Kind)
			fields["attempts"] = rerr.Attempts
		}
		b.logger.Warn("BOT", "Turn failed", fields)
		b.events.Publish(ctx, events.New(constant.EventReplyFailed, fields))

		b.send(ctx, upd.ChatID, reply.UserMessage(err), false)
		advance(TurnTerminalMessageSent)
		return state
	}

	b.store.Append(upd.UserID, llm.RoleAssistant, text)
	completed = true
	advance(TurnAssistantAppended)

	b.logger.Info("BOT", "Turn completed", map[string]interface{}{
		"user_id":     upd.UserID,
		"duration_ms": time.Since(start).Milliseconds(),
		"reply_len":   len(text),
	})
	b.events.Publish(ctx, events.New(constant.EventReplySucceeded, map[string]interface{}{
		"user_id":     upd.UserID,
		"duration_ms": time.Since(start).Milliseconds(),
	}))

	b.send(ctx, upd.ChatID, text, true)
	return state
}
