// Package mq 提供 Kafka producer/consumer 通用实现，支持重试与死信队列
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wyfcoding/runtracker/pkg/config"
	"github.com/wyfcoding/runtracker/pkg/logger"
)

// Sender 发送消息的最小接口
type Sender interface {
	SendMessage(ctx context.Context, topic string, key string, value any) error
}

// KafkaProducer Kafka 生产者
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg config.KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		AllowAutoTopicCreation: true,
		Balancer:               &kafka.Hash{},
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}

	logger.Info(context.Background(), "Kafka producer created successfully", "brokers", cfg.Brokers)
	return &KafkaProducer{writer: writer}
}

// SendMessage 发送单条 JSON 消息
func (kp *KafkaProducer) SendMessage(ctx context.Context, topic string, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}
	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error(ctx, "Failed to send Kafka message", "topic", topic, "key", key, "error", err)
		return err
	}

	logger.Debug(ctx, "Kafka message sent", "topic", topic, "key", key)
	return nil
}

// Close 关闭生产者
func (kp *KafkaProducer) Close() error {
	return kp.writer.Close()
}

// Message Kafka 消息结构
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Value     []byte
	Time      time.Time
}

// UnmarshalPayload 将消息值解析为 JSON
func (m *Message) UnmarshalPayload(dest any) error {
	return json.Unmarshal(m.Value, dest)
}

// Handler 消息处理函数，返回错误时消息进入死信队列
type Handler func(ctx context.Context, msg *Message) error

// messageReader kafka.Reader 的子集
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer Kafka 消费者
type KafkaConsumer struct {
	reader messageReader
	topic  string
	dlq    *DeadLetterQueue
}

// NewConsumer 创建 Kafka 消费者
func NewConsumer(cfg config.KafkaConfig, topic string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.GroupID,
		SessionTimeout: time.Duration(cfg.SessionTimeout) * time.Second,
		StartOffset:    kafka.LastOffset,
		MaxBytes:       10e6, // 10MB
	})

	logger.Info(context.Background(), "Kafka consumer created successfully",
		"brokers", cfg.Brokers,
		"topic", topic,
		"group_id", cfg.GroupID,
	)
	return &KafkaConsumer{reader: reader, topic: topic}
}

// WithDeadLetterQueue 设置死信队列
func (kc *KafkaConsumer) WithDeadLetterQueue(dlq *DeadLetterQueue) *KafkaConsumer {
	kc.dlq = dlq
	return kc
}

// Run 循环消费直到 ctx 结束。消息按顺序处理，处理完（成功或进入死信队列）后提交偏移量。
func (kc *KafkaConsumer) Run(ctx context.Context, handle Handler) error {
	for {
		km, err := kc.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Error(ctx, "Failed to fetch Kafka message", "topic", kc.topic, "error", err)
			return err
		}

		msg := &Message{
			Topic:     km.Topic,
			Partition: km.Partition,
			Offset:    km.Offset,
			Key:       string(km.Key),
			Value:     km.Value,
			Time:      km.Time,
		}
		if herr := handle(ctx, msg); herr != nil {
			logger.Warn(ctx, "Kafka message handling failed",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", herr,
			)
			if kc.dlq != nil {
				if derr := kc.dlq.Send(ctx, msg, "handler error", herr); derr != nil {
					return derr
				}
			}
		}

		if err := kc.reader.CommitMessages(ctx, km); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Close 关闭消费者
func (kc *KafkaConsumer) Close() error {
	return kc.reader.Close()
}

// DeadLetterQueue 死信队列处理
type DeadLetterQueue struct {
	sender Sender
	topic  string
}

// NewDeadLetterQueue 创建死信队列
func NewDeadLetterQueue(sender Sender, topic string) *DeadLetterQueue {
	return &DeadLetterQueue{
		sender: sender,
		topic:  topic,
	}
}

// DeadLetter 死信消息内容
type DeadLetter struct {
	OriginalTopic  string    `json:"original_topic"`
	OriginalKey    string    `json:"original_key"`
	OriginalValue  string    `json:"original_value"`
	OriginalOffset int64     `json:"original_offset"`
	OriginalTime   time.Time `json:"original_time"`
	FailureReason  string    `json:"failure_reason"`
	FailureError   string    `json:"failure_error"`
	FailedAt       time.Time `json:"failure_timestamp"`
}

// Send 发送消息到死信队列
func (dlq *DeadLetterQueue) Send(ctx context.Context, original *Message, reason string, err error) error {
	return dlq.sender.SendMessage(ctx, dlq.topic, original.Key, DeadLetter{
		OriginalTopic:  original.Topic,
		OriginalKey:    original.Key,
		OriginalValue:  string(original.Value),
		OriginalOffset: original.Offset,
		OriginalTime:   original.Time,
		FailureReason:  reason,
		FailureError:   err.Error(),
		FailedAt:       time.Now(),
	})
}
