package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-storystudio-be/internal/pkg/logger"
	natspkg "ai-storystudio-be/pkg/nats"
	"ai-storystudio-be/pkg/telemetry"
)

type ITelemetryService interface {
	Consume(ctx context.Context) error
}

// telemetryService drains the in-process telemetry topic, writes every stage
// event to the structured log, and relays it to JetStream when a publisher is
// configured. Relay failures are logged and dropped; telemetry never blocks
// the pipeline.
type telemetryService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	natsPub   *natspkg.Publisher
	logger    logger.ILogger
}

func NewTelemetryService(
	pubSub *gochannel.GoChannel,
	topicName string,
	natsPub *natspkg.Publisher,
	log logger.ILogger,
) ITelemetryService {
	return &telemetryService{
		pubSub:    pubSub,
		topicName: topicName,
		natsPub:   natsPub,
		logger:    log,
	}
}

func (ts *telemetryService) Consume(ctx context.Context) error {
	messages, err := ts.pubSub.Subscribe(ctx, ts.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ts.processMessage(msg)
		}
	}()

	return nil
}

func (ts *telemetryService) processMessage(msg *message.Message) {
	var event telemetry.StageEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		ts.logger.Warn("telemetry", "failed to unmarshal stage event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed messages must not be redelivered
		return
	}

	ts.logger.Info("telemetry", event.Name, event.Payload())

	if ts.natsPub != nil {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ts.natsPub.Publish(pubCtx, event); err != nil {
			ts.logger.Warn("telemetry", "failed to relay stage event to nats", map[string]interface{}{
				"event": event.Name,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
