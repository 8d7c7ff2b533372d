package service

import (
	"context"
	"fmt"
	log "log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Handoff 阶段之间的交接契约：取出就绪项、处理单项、提交结果。
// Process 返回普通错误时跳过该项继续，返回 fatal 错误或 Commit 出错时中止整批。
type Handoff[T, O any] interface {
	Ready(ctx context.Context) ([]T, error)
	Process(ctx context.Context, item T) (O, error)
	Commit(ctx context.Context, item T, outcome O) error
}

// Drain 按序处理就绪项，批次之间检查取消
func Drain[T, O any](ctx context.Context, stage string, h Handoff[T, O], onSkip func(item T, err error)) error {
	items, err := h.Ready(ctx)
	if err != nil {
		return fmt.Errorf("%s: load ready items: %w", stage, err)
	}
	for _, item := range items {
		if err = ctx.Err(); err != nil {
			log.WarnContext(ctx, "stage cancelled", "stage", stage, "err", err)
			return err
		}
		outcome, err := h.Process(ctx, item)
		if err != nil {
			if IsFatal(err) {
				return fmt.Errorf("%s: %w", stage, err)
			}
			if onSkip != nil {
				onSkip(item, err)
			}
			continue
		}
		if err = h.Commit(ctx, item, outcome); err != nil {
			return fmt.Errorf("%s: commit: %w", stage, err)
		}
	}
	return nil
}

// Result 所有阶段结果的统一计数视图
type Result interface {
	Counts() map[string]int
}

// Clock 可注入的时间源
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// Rand 可注入的随机源，*rand.Rand 满足该接口
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand 以时间为种子的并发安全随机源
func NewRand() Rand {
	seed := uint64(time.Now().UnixNano())
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewSeededRand 固定种子，测试用
func NewSeededRand(a, b uint64) Rand {
	return rand.New(rand.NewPCG(a, b))
}
