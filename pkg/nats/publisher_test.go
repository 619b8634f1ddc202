package nats

import (
	"testing"

	"career-bot/internal/pkg/logger"
	"career-bot/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.SESSIONS_REAPED", Subject(events.New("SESSIONS_REAPED", nil)))
}

func TestStreamSetupFailureIsLogged(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the stream setup timeout")
	}
	core, logs := observer.New(zapcore.DebugLevel)

	// nothing listens here; the client keeps retrying in the background
	p, err := NewPublisher("nats://127.0.0.1:1", logger.NewFromZap(zap.New(core)))
	require.NoError(t, err)
	defer p.Close()

	entries := logs.FilterMessage("Failed to ensure stream EVENTS").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "NATS", entries[0].ContextMap()["module"])
}
