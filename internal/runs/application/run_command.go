package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/runtracker/internal/runs/domain"
	"github.com/wyfcoding/runtracker/pkg/logger"
	"github.com/wyfcoding/runtracker/pkg/metrics"
)

// RunCommandService 处理序列的写操作（Commands）
type RunCommandService struct {
	repo            domain.SeriesRepository
	publisher       domain.EventPublisher
	logger          *slog.Logger
	metrics         *metrics.Metrics
	defaultTickSize decimal.Decimal
}

// NewRunCommandService 构造函数。publisher、l、m 可以为 nil。
func NewRunCommandService(
	repo domain.SeriesRepository,
	publisher domain.EventPublisher,
	l *slog.Logger,
	m *metrics.Metrics,
	defaultTickSize decimal.Decimal,
) *RunCommandService {
	if l == nil {
		l = logger.Get()
	}
	return &RunCommandService{
		repo:            repo,
		publisher:       publisher,
		logger:          l,
		metrics:         m,
		defaultTickSize: defaultTickSize,
	}
}

// CreateSeries 创建并保存序列
func (s *RunCommandService) CreateSeries(ctx context.Context, cmd CreateSeriesCommand) (*SeriesDTO, error) {
	tick := s.defaultTickSize
	if cmd.TickSize != "" {
		var err error
		if tick, err = decimal.NewFromString(cmd.TickSize); err != nil {
			return nil, errors.Wrapf(domain.ErrInvalidSeries, "tick size %q", cmd.TickSize)
		}
	}

	var (
		series *domain.Series
		err    error
	)
	switch {
	case len(cmd.Prices) > 0:
		prices := make([]decimal.Decimal, len(cmd.Prices))
		for i, p := range cmd.Prices {
			if prices[i], err = decimal.NewFromString(p); err != nil {
				return nil, errors.Wrapf(domain.ErrInvalidSeries, "price #%d %q", i+1, p)
			}
		}
		series, err = domain.NewSeries(cmd.ID, tick, prices)
	case len(cmd.Ticks) > 0:
		series, err = domain.NewSeriesFromTicks(cmd.ID, tick, cmd.Ticks)
	default:
		series, err = domain.NewUniformSeries(cmd.ID, tick, cmd.Length, cmd.Initial)
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, series); err != nil {
		return nil, err
	}
	s.refreshSeriesGauge(ctx)

	logger.Attach(ctx, s.logger).InfoContext(ctx, "series created",
		"series_id", series.ID,
		"length", series.Len(),
		"tick_size", series.TickSize.String(),
	)
	s.publish(ctx, domain.SeriesCreatedEvent{
		BaseEvent: domain.BaseEvent{SeriesID: series.ID, Timestamp: time.Now()},
		Epoch:     series.Epoch,
		Length:    series.Len(),
		TickSize:  series.TickSize.String(),
	})
	return toSeriesDTO(series, false), nil
}

// AdjustRange 区间调整
func (s *RunCommandService) AdjustRange(ctx context.Context, cmd AdjustRangeCommand) (*AdjustmentDTO, error) {
	series, err := s.repo.Get(ctx, cmd.SeriesID)
	if err != nil {
		return nil, err
	}

	var k int64
	if cmd.DeltaTicks != nil {
		k = *cmd.DeltaTicks
	} else {
		delta, perr := decimal.NewFromString(cmd.Delta)
		if perr != nil {
			return nil, errors.Wrapf(domain.ErrInvalidSeries, "delta %q", cmd.Delta)
		}
		if k, err = series.TicksOf(delta); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	version, err := series.AdjustTicks(cmd.A, cmd.B, k)
	s.metrics.RecordAdjustment(err, time.Since(start).Seconds())
	if err != nil {
		logger.Attach(ctx, s.logger).WarnContext(ctx, "range adjustment rejected",
			"series_id", cmd.SeriesID, "a", cmd.A, "b", cmd.B, "error", err)
		return nil, err
	}

	logger.Attach(ctx, s.logger).DebugContext(ctx, "range adjusted",
		"series_id", cmd.SeriesID, "a", cmd.A, "b", cmd.B, "delta_ticks", k, "version", version)
	if k != 0 {
		s.publish(ctx, domain.RangeAdjustedEvent{
			BaseEvent:  domain.BaseEvent{SeriesID: series.ID, Timestamp: time.Now()},
			A:          cmd.A,
			B:          cmd.B,
			DeltaTicks: k,
			Delta:      decimal.NewFromInt(k).Mul(series.TickSize).String(),
			Version:    version,
		})
	}
	return &AdjustmentDTO{
		SeriesID:   series.ID,
		A:          cmd.A,
		B:          cmd.B,
		DeltaTicks: k,
		Version:    version,
	}, nil
}

// DeleteSeries 删除序列
func (s *RunCommandService) DeleteSeries(ctx context.Context, id string) error {
	series, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshSeriesGauge(ctx)

	logger.Attach(ctx, s.logger).InfoContext(ctx, "series deleted", "series_id", id)
	s.publish(ctx, domain.SeriesDeletedEvent{
		BaseEvent: domain.BaseEvent{SeriesID: id, Timestamp: time.Now()},
		Epoch:     series.Epoch,
	})
	return nil
}

// publish 事件发布失败只记录日志，序列状态已经生效
func (s *RunCommandService) publish(ctx context.Context, event domain.RunEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Attach(ctx, s.logger).ErrorContext(ctx, "failed to publish event",
			"type", event.EventType(), "series_id", event.AggregateID(), "error", err)
	}
}

func (s *RunCommandService) refreshSeriesGauge(ctx context.Context) {
	if n, err := s.repo.Count(ctx); err == nil {
		s.metrics.SetSeriesActive(n)
	}
}
