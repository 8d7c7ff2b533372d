package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// Locker 基于 SETNX 的互斥锁，value 用于校验持有者
type Locker struct {
	rdb           *redis.Client
	RetryTimes    int
	RetryInterval time.Duration
}

func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, RetryTimes: 1, RetryInterval: 200 * time.Millisecond}
}

// TryLock 尝试加锁，RetryTimes 为 -1 时一直重试直到 ctx 结束
func (l *Locker) TryLock(ctx context.Context, key string, value string, expiration time.Duration) (bool, error) {
	for i := 0; i < l.RetryTimes || l.RetryTimes == -1; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(l.RetryInterval):
			}
		}
		success, err := l.rdb.SetNX(ctx, key, value, expiration).Result()
		if err != nil {
			return false, err
		}
		if success {
			return true, nil
		}
	}
	return false, nil
}

// UnLock 仅当值匹配时释放锁
func (l *Locker) UnLock(ctx context.Context, key string, value string) error {
	return l.rdb.Eval(ctx, unlockScript, []string{key}, value).Err()
}

// Flag 停发开关，键存在即为已停发
type Flag struct {
	rdb *redis.Client
	key string
}

func NewFlag(rdb *redis.Client, key string) *Flag {
	return &Flag{rdb: rdb, key: key}
}

func (f *Flag) Stopped(ctx context.Context) (bool, error) {
	_, err := f.rdb.Get(ctx, f.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (f *Flag) Set(ctx context.Context, stopped bool) error {
	if stopped {
		return f.rdb.Set(ctx, f.key, "1", 0).Err()
	}
	return f.rdb.Del(ctx, f.key).Err()
}
