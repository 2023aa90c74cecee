package messaging

import (
	"context"
	"time"

	"github.com/wyfcoding/runtracker/internal/runs/domain"
	"github.com/wyfcoding/runtracker/pkg/mq"
)

// envelope 发送到 Kafka 的事件外层结构
type envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    domain.RunEvent `json:"payload"`
}

type kafkaEventPublisher struct {
	sender mq.Sender
	topic  string
}

// NewKafkaEventPublisher 领域事件发布到指定 topic，消息 key 为序列 ID
func NewKafkaEventPublisher(sender mq.Sender, topic string) domain.EventPublisher {
	return &kafkaEventPublisher{sender: sender, topic: topic}
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, event domain.RunEvent) error {
	return p.sender.SendMessage(ctx, p.topic, event.AggregateID(), envelope{
		Type:       event.EventType(),
		OccurredAt: event.OccurredAt(),
		Payload:    event,
	})
}
