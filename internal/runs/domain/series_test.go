package domain

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func prices(t *testing.T, vs ...string) []decimal.Decimal {
	t.Helper()
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func TestNewSeriesConvertsToTicks(t *testing.T) {
	tick := decimal.RequireFromString("0.05")
	s, err := NewSeries("AAPL", tick, prices(t, "1.00", "1.15", "1.10", "1.10", "1.25"))
	require.NoError(t, err)
	require.Equal(t, 5, s.Len())

	ticks, version := s.Snapshot()
	require.Equal(t, []int64{20, 23, 22, 22, 25}, ticks)
	require.Zero(t, version)

	n, _, err := s.LongestRun(1, 5)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	p, err := s.Price(2)
	require.NoError(t, err)
	require.True(t, p.Equal(decimal.RequireFromString("1.15")))
	require.NotEmpty(t, s.Epoch)
}

func TestNewSeriesRejects(t *testing.T) {
	tick := decimal.RequireFromString("0.01")

	_, err := NewSeries("", tick, prices(t, "1"))
	require.True(t, errors.Is(err, ErrInvalidSeries))

	_, err = NewSeries("X", decimal.Zero, prices(t, "1"))
	require.True(t, errors.Is(err, ErrInvalidSeries))

	_, err = NewSeries("X", tick, prices(t, "1.001"))
	require.True(t, errors.Is(err, ErrOffTick))
	require.True(t, IsInvalidArgument(err))

	_, err = NewSeries("X", tick, nil)
	require.True(t, errors.Is(err, ErrConstruction))

	_, err = NewUniformSeries("X", tick, 0, 1)
	require.True(t, errors.Is(err, ErrConstruction))
}

func TestSeriesAdjust(t *testing.T) {
	s, err := NewSeriesFromTicks("G", decimal.NewFromInt(1), []int64{1, 3, 2, 2, 5})
	require.NoError(t, err)

	v, err := s.Adjust(2, 3, decimal.NewFromInt(-2))
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)

	ticks, _ := s.Snapshot()
	require.Equal(t, []int64{1, 1, 0, 2, 5}, ticks)

	n, version, err := s.LongestRun(1, 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, uint64(1), version)

	// 零调整不改变版本
	v, err = s.AdjustTicks(1, 5, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), v)

	_, err = s.AdjustTicks(0, 5, 1)
	require.True(t, errors.Is(err, ErrInvalidRange))
	require.Equal(t, uint64(1), s.Version())

	_, err = s.Adjust(1, 1, decimal.RequireFromString("0.5"))
	require.True(t, errors.Is(err, ErrOffTick))
}

func TestUniformSeries(t *testing.T) {
	s, err := NewUniformSeries("garden", decimal.NewFromInt(1), 4, 1)
	require.NoError(t, err)
	_, err = s.AdjustTicks(2, 2, 3)
	require.NoError(t, err)

	got := s.Prices()
	require.Len(t, got, 4)
	require.True(t, got[1].Equal(decimal.NewFromInt(4)))

	n, _, err := s.LongestRun(1, 4)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestTickOverflowRejected(t *testing.T) {
	one := decimal.NewFromInt(1)

	// 2^64 + 1 截断后会变成 1
	_, err := NewSeries("X", one, prices(t, "18446744073709551617", "5"))
	require.True(t, errors.Is(err, ErrInvalidSeries))

	_, err = NewSeries("X", one, prices(t, "-9223372036854775809"))
	require.True(t, errors.Is(err, ErrInvalidSeries))

	s, err := NewSeries("X", one, prices(t, "9223372036854775807", "-9223372036854775808"))
	require.NoError(t, err)
	ticks, _ := s.Snapshot()
	require.Equal(t, []int64{math.MaxInt64, math.MinInt64}, ticks)

	// 小 tick 放大后越界
	_, err = NewSeries("X", decimal.RequireFromString("0.001"), prices(t, "9223372036854775.808"))
	require.True(t, errors.Is(err, ErrInvalidSeries))

	_, err = s.Adjust(1, 2, decimal.RequireFromString("18446744073709551617"))
	require.True(t, errors.Is(err, ErrInvalidSeries))
	require.Zero(t, s.Version())
	require.True(t, IsInvalidArgument(err))
}
