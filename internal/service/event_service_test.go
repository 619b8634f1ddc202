package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"career-bot/internal/constant"
	"career-bot/internal/pkg/logger"
	"career-bot/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForwarder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakeForwarder) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeForwarder) received() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Event, len(f.events))
	copy(out, f.events)
	return out
}

func newBus(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestEventsReachForwarder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newBus(t)
	fwd := &fakeForwarder{}
	log := logger.NewNopLogger()

	require.NoError(t, NewEventConsumer(constant.EventTopic, bus, fwd, log).Consume(ctx))
	pub := NewEventPublisher(constant.EventTopic, bus, log)

	pub.Publish(ctx, events.New(constant.EventSessionReset, map[string]interface{}{"user_id": float64(42)}))
	pub.Publish(ctx, events.New(constant.EventSessionsReaped, map[string]interface{}{"removed": float64(3)}))

	assert.Eventually(t, func() bool { return len(fwd.received()) == 2 }, time.Second, 10*time.Millisecond)

	// delivery order across publishes is not guaranteed by gochannel
	byType := map[string]events.Event{}
	for _, e := range fwd.received() {
		byType[e.EventType()] = e
	}
	require.Contains(t, byType, constant.EventSessionReset)
	require.Contains(t, byType, constant.EventSessionsReaped)
	assert.Equal(t, float64(42), byType[constant.EventSessionReset].Payload()["user_id"])
}

func TestForwarderErrorDoesNotStopConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newBus(t)
	fwd := &fakeForwarder{err: errors.New("nats down")}
	log := logger.NewNopLogger()

	require.NoError(t, NewEventConsumer(constant.EventTopic, bus, fwd, log).Consume(ctx))
	pub := NewEventPublisher(constant.EventTopic, bus, log)

	for i := 0; i < 3; i++ {
		pub.Publish(ctx, events.New(constant.EventReplyFailed, nil))
	}

	assert.Eventually(t, func() bool { return len(fwd.received()) == 3 }, time.Second, 10*time.Millisecond)
}

func TestPublishWithoutSubscriber(t *testing.T) {
	bus := newBus(t)
	pub := NewEventPublisher(constant.EventTopic, bus, logger.NewNopLogger())

	// no subscriber: the message is dropped, the caller is not blocked
	done := make(chan struct{})
	go func() {
		pub.Publish(context.Background(), events.New(constant.EventReplySucceeded, nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without subscribers")
	}
}
