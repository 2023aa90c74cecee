package domain

import (
	"context"
	"time"
)

// 事件类型
const (
	SeriesCreatedEventType = "runs.series.created"
	SeriesDeletedEventType = "runs.series.deleted"
	RangeAdjustedEventType = "runs.range.adjusted"
)

// RunEvent 领域事件接口
type RunEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// BaseEvent 基础事件结构
type BaseEvent struct {
	SeriesID  string    `json:"series_id"`
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt 返回事件发生时间
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID 序列 ID，作为消息 key 保证同一序列有序
func (e BaseEvent) AggregateID() string { return e.SeriesID }

// SeriesCreatedEvent 序列创建事件
type SeriesCreatedEvent struct {
	BaseEvent
	Epoch    string `json:"epoch"`
	Length   int    `json:"length"`
	TickSize string `json:"tick_size"`
}

// EventType 返回事件类型
func (e SeriesCreatedEvent) EventType() string { return SeriesCreatedEventType }

// SeriesDeletedEvent 序列删除事件
type SeriesDeletedEvent struct {
	BaseEvent
	Epoch string `json:"epoch"`
}

// EventType 返回事件类型
func (e SeriesDeletedEvent) EventType() string { return SeriesDeletedEventType }

// RangeAdjustedEvent 区间调整事件
type RangeAdjustedEvent struct {
	BaseEvent
	A          int    `json:"a"`
	B          int    `json:"b"`
	DeltaTicks int64  `json:"delta_ticks"`
	Delta      string `json:"delta"`
	Version    uint64 `json:"version"`
}

// EventType 返回事件类型
func (e RangeAdjustedEvent) EventType() string { return RangeAdjustedEventType }

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, event RunEvent) error
}
