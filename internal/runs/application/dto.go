package application

import "time"

// CreateSeriesCommand 创建序列。Prices、Ticks、Length 三选一，按此顺序优先。
type CreateSeriesCommand struct {
	ID string `json:"id"`
	// TickSize 为空时使用默认值
	TickSize string   `json:"tick_size,omitempty"`
	Prices   []string `json:"prices,omitempty"`
	Ticks    []int64  `json:"ticks,omitempty"`
	// Length 与 Initial 创建所有位置相同的序列
	Length  int   `json:"length,omitempty"`
	Initial int64 `json:"initial,omitempty"`
}

// AdjustRangeCommand 区间 [A, B] 加 Delta（十进制价格）或 DeltaTicks
type AdjustRangeCommand struct {
	SeriesID   string `json:"series_id"`
	A          int    `json:"a"`
	B          int    `json:"b"`
	Delta      string `json:"delta,omitempty"`
	DeltaTicks *int64 `json:"delta_ticks,omitempty"`
}

// LongestRunQuery 区间最长非递减连续段查询
type LongestRunQuery struct {
	SeriesID string `json:"series_id"`
	A        int    `json:"a"`
	B        int    `json:"b"`
}

// SeriesDTO 序列快照
type SeriesDTO struct {
	ID        string    `json:"id"`
	Epoch     string    `json:"epoch"`
	TickSize  string    `json:"tick_size"`
	Length    int       `json:"length"`
	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Prices    []string  `json:"prices,omitempty"`
	Ticks     []int64   `json:"ticks,omitempty"`
}

// AdjustmentDTO 调整结果
type AdjustmentDTO struct {
	SeriesID   string `json:"series_id"`
	A          int    `json:"a"`
	B          int    `json:"b"`
	DeltaTicks int64  `json:"delta_ticks"`
	Version    uint64 `json:"version"`
}

// LongestRunDTO 查询结果
type LongestRunDTO struct {
	SeriesID string `json:"series_id"`
	A        int    `json:"a"`
	B        int    `json:"b"`
	Length   int    `json:"length"`
	Version  uint64 `json:"version"`
	Cached   bool   `json:"cached"`
}
