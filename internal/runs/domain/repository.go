package domain

import "context"

// SeriesRepository 序列仓储接口
type SeriesRepository interface {
	// Save 保存新序列，ID 已存在时返回 ErrSeriesExists
	Save(ctx context.Context, s *Series) error
	// Get 获取序列，不存在时返回 ErrSeriesNotFound
	Get(ctx context.Context, id string) (*Series, error)
	// Delete 删除序列，不存在时返回 ErrSeriesNotFound
	Delete(ctx context.Context, id string) error
	// List 按 ID 排序返回全部序列
	List(ctx context.Context) ([]*Series, error)
	// Count 序列数
	Count(ctx context.Context) (int, error)
}

// RunKey 查询缓存键。Epoch + Version 唯一确定序列的一个状态。
type RunKey struct {
	SeriesID string
	Epoch    string
	Version  uint64
	A, B     int
}

// RunCache 查询结果缓存
type RunCache interface {
	Get(ctx context.Context, key RunKey) (int, bool, error)
	Put(ctx context.Context, key RunKey, length int) error
}
