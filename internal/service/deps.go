package service

import (
	"Signalforge/internal/model"
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Locker 跨进程互斥，Redis 实现见 pkg/redis
type Locker interface {
	TryLock(ctx context.Context, key string, value string, expiration time.Duration) (bool, error)
	UnLock(ctx context.Context, key string, value string) error
}

// AuditSink 审计事件落地
type AuditSink interface {
	Record(ctx context.Context, entry *model.AuditLog) error
}

// EventSink 流水线事件下游
type EventSink interface {
	Emit(ctx context.Context, event *model.PipelineEvent) error
}

// PostingSwitch 全局停发开关
type PostingSwitch interface {
	Stopped(ctx context.Context) (bool, error)
	Set(ctx context.Context, stopped bool) error
}

// withLock 持锁执行 fn，拿不到锁返回 ErrLockBusy
func withLock(ctx context.Context, locker Locker, key string, ttl time.Duration, fn func() error) error {
	if locker == nil {
		return fn()
	}
	owner := uuid.NewString()
	ok, err := locker.TryLock(ctx, key, owner, ttl)
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return ErrLockBusy
	}
	defer func() {
		// 释放锁不受调用方取消影响
		if uerr := locker.UnLock(context.WithoutCancel(ctx), key, owner); uerr != nil {
			log.WarnContext(ctx, "release lock failed", "key", key, "err", uerr)
		}
	}()
	return fn()
}

func accountKey(prefix string, accountID uint64) string {
	return prefix + strconv.FormatUint(accountID, 10)
}

func audit(ctx context.Context, sink AuditSink, entry *model.AuditLog) {
	if sink == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := sink.Record(ctx, entry); err != nil {
		log.WarnContext(ctx, "audit record failed", "event", entry.EventType, "err", err)
	}
}

func emit(ctx context.Context, sink EventSink, event *model.PipelineEvent) {
	if sink == nil {
		return
	}
	if err := sink.Emit(ctx, event); err != nil {
		log.WarnContext(ctx, "emit pipeline event failed", "type", event.Type, "err", err)
	}
}

// MemoryLocker 进程内锁，单实例部署与测试使用
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLease
	clock Clock
}

type memoryLease struct {
	owner   string
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryLease), clock: SystemClock}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, value string, expiration time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if lease, ok := l.held[key]; ok && now.Before(lease.expires) {
		return false, nil
	}
	l.held[key] = memoryLease{owner: value, expires: now.Add(expiration)}
	return true, nil
}

func (l *MemoryLocker) UnLock(_ context.Context, key string, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lease, ok := l.held[key]; ok && lease.owner == value {
		delete(l.held, key)
	}
	return nil
}
