// Package reply turns a conversation history into one assistant message,
// retrying soft failures with exponential backoff.
package reply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"career-bot/internal/metrics"
	"career-bot/internal/pkg/logger"
	"career-bot/pkg/llm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Option func(*Client)

func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		c.sleep = s
	}
}

type Client struct {
	provider llm.LLMProvider
	policy   Policy
	sleep    Sleeper
	logger   logger.ILogger
	tracer   trace.Tracer
}

func NewClient(provider llm.LLMProvider, policy Policy, log logger.ILogger, opts ...Option) *Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	c := &Client{
		provider: provider,
		policy:   policy,
		sleep:    SleepContext,
		logger:   log,
		tracer:   otel.Tracer("career-bot/reply"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reply returns the assistant text for history. onRetry, if set, runs
// before every backoff wait. On failure the error is a *Error.
func (c *Client) Reply(ctx context.Context, history []llm.Message, onRetry func()) (string, error) {
	ctx, span := c.tracer.Start(ctx, "reply.Reply", trace.WithAttributes(
		attribute.Int("reply.history_len", len(history)),
		attribute.Int("reply.max_attempts", c.policy.MaxAttempts),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ReplyDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	state := StateAttempting
	for attempt := 1; ; attempt++ {
		text, err := c.provider.Chat(ctx, history)
		if err == nil {
			state = StateSucceeded
			metrics.ReplyAttemptsTotal.WithLabelValues("ok").Inc()
			metrics.RepliesTotal.WithLabelValues("succeeded").Inc()
			span.SetAttributes(attribute.Int("reply.attempts", attempt), attribute.String("reply.state", state.String()))
			return text, nil
		}

		kind, status := Classify(err)
		metrics.ReplyAttemptsTotal.WithLabelValues(string(kind)).Inc()

		decision := c.policy.Next(kind, attempt)
		if ctx.Err() != nil {
			decision = Decision{State: StateExhausted}
		}
		state = decision.State

		details := map[string]interface{}{
			"kind":         kind,
			"attempt":      attempt,
			"max_attempts": c.policy.MaxAttempts,
			"error":        err.Error(),
		}
		if status != 0 {
			details["status"] = status
			var statusErr *llm.StatusError
			if errors.As(err, &statusErr) {
				details["body"] = statusErr.Body
			}
		}

		if state == StateExhausted {
			failure := &Error{Kind: kind, StatusCode: status, Attempts: attempt, Err: err}
			c.logger.Error("REPLY", "Completion failed", details)
			metrics.RepliesTotal.WithLabelValues(string(kind)).Inc()
			span.SetAttributes(attribute.Int("reply.attempts", attempt), attribute.String("reply.kind", string(kind)))
			span.RecordError(err)
			span.SetStatus(codes.Error, string(kind))
			return "", failure
		}

		details["delay_seconds"] = decision.Delay.Seconds()
		c.logger.Warn("REPLY", "Completion attempt failed, backing off", details)

		if onRetry != nil {
			onRetry()
		}
		if sleepErr := c.sleep(ctx, decision.Delay); sleepErr != nil {
			metrics.RepliesTotal.WithLabelValues(string(kind)).Inc()
			span.RecordError(sleepErr)
			span.SetStatus(codes.Error, "backoff interrupted")
			return "", &Error{
				Kind:       kind,
				StatusCode: status,
				Attempts:   attempt,
				Err:        fmt.Errorf("backoff interrupted: %w (last error: %v)", sleepErr, err),
			}
		}
	}
}
