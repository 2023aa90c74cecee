package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/runtracker/internal/runs/domain"
)

type captureSender struct {
	topic, key string
	body       []byte
}

func (c *captureSender) SendMessage(ctx context.Context, topic, key string, value any) error {
	c.topic, c.key = topic, key
	var err error
	c.body, err = json.Marshal(value)
	return err
}

func TestPublishEnvelope(t *testing.T) {
	sender := &captureSender{}
	p := NewKafkaEventPublisher(sender, "runtracker.events")

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := p.Publish(context.Background(), domain.RangeAdjustedEvent{
		BaseEvent:  domain.BaseEvent{SeriesID: "AAPL", Timestamp: ts},
		A:          2,
		B:          3,
		DeltaTicks: -2,
		Delta:      "-0.02",
		Version:    1,
	})
	require.NoError(t, err)
	require.Equal(t, "runtracker.events", sender.topic)
	require.Equal(t, "AAPL", sender.key)

	var got struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(sender.body, &got))
	require.Equal(t, domain.RangeAdjustedEventType, got.Type)
	require.Equal(t, "AAPL", got.Payload["series_id"])
	require.Equal(t, float64(-2), got.Payload["delta_ticks"])
}
