package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/wyfcoding/runtracker/internal/runs/domain"
)

type inMemorySeriesRepository struct {
	series map[string]*domain.Series
	mu     sync.RWMutex
}

// NewSeriesRepository 进程内序列仓储，不做持久化
func NewSeriesRepository() domain.SeriesRepository {
	return &inMemorySeriesRepository{
		series: make(map[string]*domain.Series),
	}
}

func (r *inMemorySeriesRepository) Save(ctx context.Context, s *domain.Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.series[s.ID]; ok {
		return errors.Wrapf(domain.ErrSeriesExists, "series %q", s.ID)
	}
	r.series[s.ID] = s
	return nil
}

func (r *inMemorySeriesRepository) Get(ctx context.Context, id string) (*domain.Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.series[id]; ok {
		return s, nil
	}
	return nil, errors.Wrapf(domain.ErrSeriesNotFound, "series %q", id)
}

func (r *inMemorySeriesRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.series[id]; !ok {
		return errors.Wrapf(domain.ErrSeriesNotFound, "series %q", id)
	}
	delete(r.series, id)
	return nil
}

func (r *inMemorySeriesRepository) List(ctx context.Context) ([]*domain.Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Series, 0, len(r.series))
	for _, s := range r.series {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *inMemorySeriesRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.series), nil
}
