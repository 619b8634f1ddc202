// FILE: internal/service/event_service.go
package service

import (
	"context"
	"time"

	"career-bot/internal/pkg/logger"
	"career-bot/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// IEventPublisher emits bot lifecycle events. Publishing never fails the
// caller; errors are logged.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

type IEventConsumer interface {
	Consume(ctx context.Context) error
}

// Forwarder ships events outside the process (NATS JetStream in production).
type Forwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type eventPublisher struct {
	publisher message.Publisher
	topicName string
	logger    logger.ILogger
}

func NewEventPublisher(topicName string, publisher message.Publisher, log logger.ILogger) IEventPublisher {
	return &eventPublisher{
		publisher: publisher,
		topicName: topicName,
		logger:    log,
	}
}

func (ep *eventPublisher) Publish(_ context.Context, event events.Event) {
	payload, err := events.Marshal(event)
	if err != nil {
		ep.logger.Warn("EVENTS", "Failed to marshal event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
		return
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if err := ep.publisher.Publish(ep.topicName, msg); err != nil {
		ep.logger.Warn("EVENTS", "Failed to publish event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
	}
}

type eventConsumer struct {
	subscriber message.Subscriber
	topicName  string
	forwarder  Forwarder
	logger     logger.ILogger
}

// NewEventConsumer logs every event and hands it to forwarder when one is
// configured. forwarder may be nil.
func NewEventConsumer(topicName string, subscriber message.Subscriber, forwarder Forwarder, log logger.ILogger) IEventConsumer {
	return &eventConsumer{
		subscriber: subscriber,
		topicName:  topicName,
		forwarder:  forwarder,
		logger:     log,
	}
}

func (ec *eventConsumer) Consume(ctx context.Context) error {
	messages, err := ec.subscriber.Subscribe(ctx, ec.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ec.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (ec *eventConsumer) processMessage(ctx context.Context, msg *message.Message) {
	// Events are diagnostics: always Ack, a failed forward is only logged.
	defer msg.Ack()

	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		ec.logger.Warn("EVENTS", "Dropping undecodable event", map[string]interface{}{"message_id": msg.UUID, "error": err.Error()})
		return
	}

	ec.logger.Info("EVENTS", event.EventType(), event.Payload())

	if ec.forwarder == nil {
		return
	}
	fwdCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ec.forwarder.Publish(fwdCtx, event); err != nil {
		ec.logger.Warn("EVENTS", "Failed to forward event", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
	}
}
