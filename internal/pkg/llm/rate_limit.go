package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const DefaultConcurrency = int64(5)

// Limiter 限制并发中的模型请求数
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(n int64) *Limiter {
	if n <= 0 {
		n = DefaultConcurrency
	}
	return &Limiter{sem: semaphore.NewWeighted(n)}
}

func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

func (l *Limiter) Release() {
	l.sem.Release(1)
}
