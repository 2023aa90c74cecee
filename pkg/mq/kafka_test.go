package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type fakeSender struct {
	topics []string
	values []any
}

func (f *fakeSender) SendMessage(ctx context.Context, topic, key string, value any) error {
	f.topics = append(f.topics, topic)
	f.values = append(f.values, value)
	return nil
}

func TestConsumerRunCommitsAndDeadLetters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		msgs: []kafka.Message{
			{Topic: "cmds", Offset: 1, Key: []byte("AAPL"), Value: []byte(`{"op":"query"}`)},
			{Topic: "cmds", Offset: 2, Key: []byte("AAPL"), Value: []byte(`not json`)},
			{Topic: "cmds", Offset: 3, Key: []byte("MSFT"), Value: []byte(`{"op":"adjust"}`)},
		},
		cancel: cancel,
	}
	sender := &fakeSender{}
	kc := (&KafkaConsumer{reader: reader, topic: "cmds"}).
		WithDeadLetterQueue(NewDeadLetterQueue(sender, "cmds.dlq"))

	var ops []string
	err := kc.Run(ctx, func(ctx context.Context, msg *Message) error {
		var payload struct {
			Op string `json:"op"`
		}
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		ops = append(ops, payload.Op)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"query", "adjust"}, ops)
	require.Equal(t, []int64{1, 2, 3}, reader.committed)
	require.Equal(t, []string{"cmds.dlq"}, sender.topics)

	dl, ok := sender.values[0].(DeadLetter)
	require.True(t, ok)
	require.Equal(t, int64(2), dl.OriginalOffset)
	require.Equal(t, "not json", dl.OriginalValue)
}

func TestConsumerRunWithoutDeadLetterQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{
		msgs:   []kafka.Message{{Offset: 9}},
		cancel: cancel,
	}
	kc := &KafkaConsumer{reader: reader}
	err := kc.Run(ctx, func(ctx context.Context, msg *Message) error {
		return errors.New("always fails")
	})
	require.NoError(t, err)
	require.Equal(t, []int64{9}, reader.committed)
}
