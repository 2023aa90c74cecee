package domain

import (
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/runtracker/pkg/algos"
)

// Series 一条按位置编号（1..n）的价格序列，支持区间调整与最长非递减连续段查询。
// 内部以最小变动单位（tick）的整数倍存储。
// 线段树查询也会下推懒标记，因此所有操作共用一把互斥锁。
type Series struct {
	ID string
	// Epoch 每次创建唯一，区分同名序列的不同实例
	Epoch     string
	TickSize  decimal.Decimal
	CreatedAt time.Time

	mu      sync.Mutex
	tree    *algos.RunSegmentTree
	version uint64
}

// NewSeries 由十进制价格创建序列，价格必须是 tickSize 的整数倍
func NewSeries(id string, tickSize decimal.Decimal, prices []decimal.Decimal) (*Series, error) {
	if err := validateHeader(id, tickSize); err != nil {
		return nil, err
	}
	ticks := make([]int64, len(prices))
	for i, p := range prices {
		t, err := toTicks(p, tickSize)
		if err != nil {
			return nil, errors.Wrapf(err, "price #%d", i+1)
		}
		ticks[i] = t
	}
	return newSeries(id, tickSize, ticks)
}

// NewSeriesFromTicks 由整数 tick 值创建序列
func NewSeriesFromTicks(id string, tickSize decimal.Decimal, ticks []int64) (*Series, error) {
	if err := validateHeader(id, tickSize); err != nil {
		return nil, err
	}
	return newSeries(id, tickSize, ticks)
}

// NewUniformSeries n 个位置初始值相同
func NewUniformSeries(id string, tickSize decimal.Decimal, n int, initial int64) (*Series, error) {
	if err := validateHeader(id, tickSize); err != nil {
		return nil, err
	}
	tree, err := algos.NewUniformRunSegmentTree(n, initial)
	if err != nil {
		return nil, err
	}
	return wrapTree(id, tickSize, tree), nil
}

func newSeries(id string, tickSize decimal.Decimal, ticks []int64) (*Series, error) {
	tree, err := algos.NewRunSegmentTree(len(ticks), ticks)
	if err != nil {
		return nil, err
	}
	return wrapTree(id, tickSize, tree), nil
}

func wrapTree(id string, tickSize decimal.Decimal, tree *algos.RunSegmentTree) *Series {
	return &Series{
		ID:        id,
		Epoch:     uuid.New().String(),
		TickSize:  tickSize,
		CreatedAt: time.Now(),
		tree:      tree,
	}
}

func validateHeader(id string, tickSize decimal.Decimal) error {
	if id == "" {
		return errors.Wrap(ErrInvalidSeries, "empty series id")
	}
	if !tickSize.IsPositive() {
		return errors.Wrapf(ErrInvalidSeries, "tick size must be positive, got %s", tickSize)
	}
	return nil
}

var (
	minTicks = decimal.NewFromInt(math.MinInt64)
	maxTicks = decimal.NewFromInt(math.MaxInt64)
)

func toTicks(v, tickSize decimal.Decimal) (int64, error) {
	if !v.Mod(tickSize).IsZero() {
		return 0, errors.Wrapf(ErrOffTick, "%s / %s", v, tickSize)
	}
	q := v.Div(tickSize)
	if q.LessThan(minTicks) || q.GreaterThan(maxTicks) {
		return 0, errors.Wrapf(ErrInvalidSeries, "%s / %s = %s ticks overflows int64", v, tickSize, q)
	}
	return q.IntPart(), nil
}

// Len 序列长度
func (s *Series) Len() int {
	return s.tree.Len()
}

// Version 每次成功的非零调整加一
func (s *Series) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// TicksOf 把价格或价格变动换算为 tick 数
func (s *Series) TicksOf(v decimal.Decimal) (int64, error) {
	return toTicks(v, s.TickSize)
}

// Adjust 区间 [a, b] 的价格加 delta
func (s *Series) Adjust(a, b int, delta decimal.Decimal) (uint64, error) {
	k, err := s.TicksOf(delta)
	if err != nil {
		return 0, err
	}
	return s.AdjustTicks(a, b, k)
}

// AdjustTicks 区间 [a, b] 加 k 个 tick，返回调整后的版本号
func (s *Series) AdjustTicks(a, b int, k int64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.AddRange(a, b, k); err != nil {
		return s.version, err
	}
	if k != 0 {
		s.version++
	}
	return s.version, nil
}

// LongestRun 区间 [a, b] 内最长非递减连续段长度，同时返回查询时的版本号
func (s *Series) LongestRun(a, b int) (int, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.tree.LongestNonDecreasing(a, b)
	return n, s.version, err
}

// Tick 位置 i 当前的 tick 值
func (s *Series) Tick(i int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Value(i)
}

// Price 位置 i 当前价格
func (s *Series) Price(i int) (decimal.Decimal, error) {
	t, err := s.Tick(i)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(t).Mul(s.TickSize), nil
}

// Snapshot 当前全部 tick 值及版本号
func (s *Series) Snapshot() ([]int64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Values(), s.version
}

// Prices 当前全部价格
func (s *Series) Prices() []decimal.Decimal {
	ticks, _ := s.Snapshot()
	out := make([]decimal.Decimal, len(ticks))
	for i, t := range ticks {
		out[i] = decimal.NewFromInt(t).Mul(s.TickSize)
	}
	return out
}
