package domain

import (
	"github.com/cockroachdb/errors"
	"github.com/wyfcoding/runtracker/pkg/algos"
)

var (
	// ErrSeriesNotFound 序列不存在
	ErrSeriesNotFound = errors.New("series not found")
	// ErrSeriesExists 序列已存在
	ErrSeriesExists = errors.New("series already exists")
	// ErrInvalidSeries 序列参数非法（ID、最小变动单位、价格）
	ErrInvalidSeries = errors.New("invalid series")
	// ErrOffTick 价格或调整量不是最小变动单位的整数倍
	ErrOffTick = errors.New("value is not a multiple of the tick size")

	// ErrInvalidRange 区间越界或 a > b
	ErrInvalidRange = algos.ErrInvalidRange
	// ErrConstruction 序列长度为 0 或初始值不足
	ErrConstruction = algos.ErrConstruction
)

// IsInvalidArgument 调用方参数错误（区间、构建参数、价格）
func IsInvalidArgument(err error) bool {
	return errors.IsAny(err, ErrInvalidRange, ErrConstruction, ErrInvalidSeries, ErrOffTick)
}
