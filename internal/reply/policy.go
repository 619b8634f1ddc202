package reply

import "time"

// Kind classifies a failed completion attempt.
type Kind string

const (
	KindRateLimited     Kind = "rate_limited"
	KindServerError     Kind = "server_error"
	KindTimeout         Kind = "timeout"
	KindConnectionError Kind = "connection_error"
	KindClientError     Kind = "client_error"
	KindUnknownError    Kind = "unknown_error"
)

// Retryable reports whether another attempt may follow a failure of this kind.
func (k Kind) Retryable() bool {
	return k != KindClientError
}

// State is a step of the retry state machine.
type State int

const (
	StateAttempting State = iota
	StateBackingOff
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackingOff:
		return "backing_off"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Decision is what follows a failed attempt.
type Decision struct {
	State State
	Delay time.Duration
}

// Policy is the retry budget and backoff schedule. It does no I/O.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
	}
}

// Delay is the wait after the given failed attempt (1-based):
// InitialDelay * 2^(attempt-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	return p.InitialDelay << shift
}

// Next decides what happens after attempt failed with kind.
func (p Policy) Next(kind Kind, attempt int) Decision {
	if !kind.Retryable() || attempt >= p.MaxAttempts {
		return Decision{State: StateExhausted}
	}
	return Decision{State: StateBackingOff, Delay: p.Delay(attempt)}
}
