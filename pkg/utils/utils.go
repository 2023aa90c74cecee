// Package utils 通用小工具
package utils

import (
	"context"
	"time"
)

// RetryWithBackoff 带指数退避的重试，最多执行 maxAttempts 次。
// ctx 结束时立即返回 ctx.Err()。
func RetryWithBackoff(ctx context.Context, maxAttempts int, initialDelay, maxDelay time.Duration, fn func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < maxAttempts-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			// 指数退避
			delay = time.Duration(float64(delay) * 1.5)
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}
	return lastErr
}

// Int64Ptr 返回 i 的指针
func Int64Ptr(i int64) *int64 {
	return &i
}
