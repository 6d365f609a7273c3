package telemetry

import (
	"encoding/json"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// BusSink publishes stage events onto an in-process watermill bus so
// consumers (log relay, NATS forwarder) can process them off the pipeline's
// critical path. Publish errors are logged and dropped.
type BusSink struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewBusSink(pubSub *gochannel.GoChannel, topic string) *BusSink {
	return &BusSink{pubSub: pubSub, topic: topic}
}

func (s *BusSink) Emit(event StageEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WARN] Telemetry event marshal failed: %v", err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(s.topic, msg); err != nil {
		log.Printf("[WARN] Telemetry publish failed: %v", err)
	}
}
