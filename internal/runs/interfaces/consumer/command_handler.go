package consumer

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/wyfcoding/runtracker/internal/runs/application"
	"github.com/wyfcoding/runtracker/pkg/logger"
	"github.com/wyfcoding/runtracker/pkg/metrics"
	"github.com/wyfcoding/runtracker/pkg/mq"
)

// ErrUnknownOp 命令类型不是 adjust 或 query
var ErrUnknownOp = errors.New("unknown command op")

// RunCommandMessage 命令主题上的消息体
type RunCommandMessage struct {
	SeriesID   string `json:"series_id"`
	Op         string `json:"op"`
	A          int    `json:"a"`
	B          int    `json:"b"`
	Delta      string `json:"delta,omitempty"`
	DeltaTicks *int64 `json:"delta_ticks,omitempty"`
}

// CommandHandler 把 Kafka 命令消息转换为应用层调用。
// 返回的错误由消费者送入死信队列。
type CommandHandler struct {
	cmd     *application.RunCommandService
	query   *application.RunQueryService
	metrics metrics.MetricsCollector
	// 查询结果回写，可以为 nil
	replies    mq.Sender
	replyTopic string
}

func NewCommandHandler(cmd *application.RunCommandService, query *application.RunQueryService, m metrics.MetricsCollector) *CommandHandler {
	return &CommandHandler{cmd: cmd, query: query, metrics: m}
}

// WithReplies 查询结果发送到 topic
func (h *CommandHandler) WithReplies(sender mq.Sender, topic string) *CommandHandler {
	h.replies = sender
	h.replyTopic = topic
	return h
}

// Handle 实现 mq.Handler
func (h *CommandHandler) Handle(ctx context.Context, msg *mq.Message) error {
	var cmd RunCommandMessage
	if err := msg.UnmarshalPayload(&cmd); err != nil {
		h.record("invalid", err)
		return errors.Wrap(err, "decode run command")
	}
	if cmd.SeriesID == "" {
		cmd.SeriesID = msg.Key
	}
	defer logger.LogDuration(ctx, "run command handled", "op", cmd.Op, "series_id", cmd.SeriesID, "offset", msg.Offset)()

	var err error
	switch cmd.Op {
	case "adjust":
		err = h.adjust(ctx, cmd)
	case "query":
		err = h.longest(ctx, cmd)
	default:
		err = errors.Wrapf(ErrUnknownOp, "%q", cmd.Op)
	}
	h.record(cmd.Op, err)
	return err
}

func (h *CommandHandler) adjust(ctx context.Context, cmd RunCommandMessage) error {
	res, err := h.cmd.AdjustRange(ctx, application.AdjustRangeCommand{
		SeriesID:   cmd.SeriesID,
		A:          cmd.A,
		B:          cmd.B,
		Delta:      cmd.Delta,
		DeltaTicks: cmd.DeltaTicks,
	})
	if err != nil {
		return err
	}
	logger.Debug(ctx, "adjust command applied", "series_id", res.SeriesID, "version", res.Version)
	return nil
}

func (h *CommandHandler) longest(ctx context.Context, cmd RunCommandMessage) error {
	res, err := h.query.LongestRun(ctx, application.LongestRunQuery{SeriesID: cmd.SeriesID, A: cmd.A, B: cmd.B})
	if err != nil {
		return err
	}
	if h.replies == nil {
		logger.Info(ctx, "longest run", "series_id", res.SeriesID, "a", res.A, "b", res.B, "length", res.Length)
		return nil
	}
	return h.replies.SendMessage(ctx, h.replyTopic, res.SeriesID, res)
}

func (h *CommandHandler) record(op string, err error) {
	if h.metrics != nil {
		h.metrics.RecordCommand(op, err)
	}
}
