package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/runtracker/internal/runs/domain"
	"github.com/wyfcoding/runtracker/pkg/logger"
	"github.com/wyfcoding/runtracker/pkg/metrics"
)

// RunQueryService 处理序列的读操作（Queries）
type RunQueryService struct {
	repo    domain.SeriesRepository
	cache   domain.RunCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRunQueryService 构造函数。cache、l、m 可以为 nil。
func NewRunQueryService(repo domain.SeriesRepository, cache domain.RunCache, l *slog.Logger, m *metrics.Metrics) *RunQueryService {
	if l == nil {
		l = logger.Get()
	}
	return &RunQueryService{
		repo:    repo,
		cache:   cache,
		logger:  l,
		metrics: m,
	}
}

// LongestRun 查询区间 [A, B] 内最长非递减连续段。
// 缓存键包含版本号，命中的结果一定对应某一时刻的真实状态。
func (s *RunQueryService) LongestRun(ctx context.Context, q LongestRunQuery) (*LongestRunDTO, error) {
	series, err := s.repo.Get(ctx, q.SeriesID)
	if err != nil {
		return nil, err
	}

	key := domain.RunKey{SeriesID: series.ID, Epoch: series.Epoch, Version: series.Version(), A: q.A, B: q.B}
	if s.cache != nil {
		n, ok, cerr := s.cache.Get(ctx, key)
		if cerr != nil {
			logger.Attach(ctx, s.logger).WarnContext(ctx, "run cache lookup failed", "series_id", q.SeriesID, "error", cerr)
		}
		s.metrics.RecordCacheLookup(ok)
		if ok {
			return &LongestRunDTO{SeriesID: series.ID, A: q.A, B: q.B, Length: n, Version: key.Version, Cached: true}, nil
		}
	}

	start := time.Now()
	n, version, err := series.LongestRun(q.A, q.B)
	s.metrics.RecordQuery(err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		key.Version = version
		if perr := s.cache.Put(ctx, key, n); perr != nil {
			logger.Attach(ctx, s.logger).WarnContext(ctx, "run cache store failed", "series_id", q.SeriesID, "error", perr)
		}
	}
	return &LongestRunDTO{SeriesID: series.ID, A: q.A, B: q.B, Length: n, Version: version}, nil
}

// GetSeries 序列快照（含全部价格）
func (s *RunQueryService) GetSeries(ctx context.Context, id string) (*SeriesDTO, error) {
	series, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSeriesDTO(series, true), nil
}

// ListSeries 全部序列概要（不含价格）
func (s *RunQueryService) ListSeries(ctx context.Context) ([]*SeriesDTO, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*SeriesDTO, 0, len(all))
	for _, series := range all {
		out = append(out, toSeriesDTO(series, false))
	}
	return out, nil
}

func toSeriesDTO(series *domain.Series, withValues bool) *SeriesDTO {
	dto := &SeriesDTO{
		ID:        series.ID,
		Epoch:     series.Epoch,
		TickSize:  series.TickSize.String(),
		Length:    series.Len(),
		CreatedAt: series.CreatedAt,
	}
	if !withValues {
		dto.Version = series.Version()
		return dto
	}
	ticks, version := series.Snapshot()
	dto.Version = version
	dto.Ticks = ticks
	dto.Prices = make([]string, len(ticks))
	for i, t := range ticks {
		dto.Prices[i] = decimal.NewFromInt(t).Mul(series.TickSize).String()
	}
	return dto
}
