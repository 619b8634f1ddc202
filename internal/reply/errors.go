package reply

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"career-bot/internal/constant"
	"career-bot/pkg/llm"
)

// Error is the terminal failure of a reply after the retry budget, or
// immediately for client errors.
type Error struct {
	// Kind of the last failed attempt.
	Kind Kind
	// StatusCode is set when the last attempt got an HTTP response.
	StatusCode int
	Attempts   int
	// Err is the underlying error (never shown to the user).
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reply failed: %s (status %d) after %d attempt(s): %v", e.Kind, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("reply failed: %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the apology to send to the end user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindRateLimited:
		return constant.RateLimitedMessage
	case KindServerError:
		return constant.ServerErrorMessage
	case KindTimeout:
		return constant.TimeoutMessage
	case KindConnectionError:
		return constant.ConnectionErrorMessage
	case KindClientError:
		return constant.ClientErrorMessage
	default:
		return constant.UnknownErrorMessage
	}
}

// UserMessage picks the apology for any error; non-reply errors get the
// generic one.
func UserMessage(err error) string {
	var replyErr *Error
	if errors.As(err, &replyErr) {
		return replyErr.UserMessage()
	}
	return constant.UnknownErrorMessage
}

// Classify maps a provider error to a failure kind and, when there was an
// HTTP response, its status code.
func Classify(err error) (Kind, int) {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return KindRateLimited, statusErr.StatusCode
		case statusErr.StatusCode >= 500 && statusErr.StatusCode < 600:
			return KindServerError, statusErr.StatusCode
		default:
			return KindClientError, statusErr.StatusCode
		}
	}

	// Shutdown, not the network: *url.Error wraps the cancellation too.
	if errors.Is(err, context.Canceled) {
		return KindUnknownError, 0
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout, 0
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout, 0
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindConnectionError, 0
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnectionError, 0
	}

	return KindUnknownError, 0
}
