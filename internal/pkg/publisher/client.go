package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var ErrRejected = errors.New("platform rejected post")

// PostResult 平台返回的帖子标识
type PostResult struct {
	PostID string `json:"post_id"`
	URL    string `json:"url"`
}

// Metrics 平台侧计数
type Metrics struct {
	Impressions int64 `json:"impressions"`
	Likes       int64 `json:"likes"`
	Reposts     int64 `json:"reposts"`
	Replies     int64 `json:"replies"`
	Bookmarks   int64 `json:"bookmarks"`
	Clicks      int64 `json:"clicks"`
}

// Client 发布连接器，replyTo 为空表示独立帖
type Client interface {
	Post(ctx context.Context, text string, replyTo string) (PostResult, error)
	FetchMetrics(ctx context.Context, postID string) (Metrics, error)
}

// Account 连接器需要的账号信息
type Account struct {
	ID     uint64
	Handle string
}

// Provider 按账号构建连接器
type Provider interface {
	For(account Account) (Client, error)
}

var stubSeq atomic.Uint64

// StubClient 不调用外部平台，返回可预期的 id
type StubClient struct {
	Handle    string
	URLPrefix string
	Now       func() time.Time
}

func (c *StubClient) Post(ctx context.Context, text string, replyTo string) (PostResult, error) {
	if err := ctx.Err(); err != nil {
		return PostResult{}, err
	}
	handle := c.Handle
	if handle == "" {
		handle = "signalforge"
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	id := fmt.Sprintf("stub_%s_%s_%d", handle, now().UTC().Format("20060102150405"), stubSeq.Add(1))
	prefix := c.URLPrefix
	if prefix == "" {
		prefix = "https://x.com"
	}
	return PostResult{PostID: id, URL: fmt.Sprintf("%s/%s/status/%s", prefix, handle, id)}, nil
}

func (c *StubClient) FetchMetrics(ctx context.Context, postID string) (Metrics, error) {
	return Metrics{}, ctx.Err()
}

// StubProvider 每个账号一个桩客户端
type StubProvider struct {
	URLPrefix string
}

func (p *StubProvider) For(account Account) (Client, error) {
	return &StubClient{Handle: account.Handle, URLPrefix: p.URLPrefix}, nil
}
