package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/publisher"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCall struct {
	Text    string
	ReplyTo string
}

// fakeClient 记录每次调用，failOn 按调用序号注入错误
type fakeClient struct {
	mu      sync.Mutex
	calls   []fakeCall
	failOn  map[int]error
	failAll error
	fixedID string
	seq     int
	metrics publisher.Metrics
	// beforePost 在记录调用前执行，用于模拟慢调用与并发执行器
	beforePost func(text string)
}

func (c *fakeClient) Post(_ context.Context, text string, replyTo string) (publisher.PostResult, error) {
	if c.beforePost != nil {
		c.beforePost(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.calls)
	c.calls = append(c.calls, fakeCall{Text: text, ReplyTo: replyTo})
	if err, ok := c.failOn[idx]; ok {
		return publisher.PostResult{}, err
	}
	if c.failAll != nil {
		return publisher.PostResult{}, c.failAll
	}
	c.seq++
	id := c.fixedID
	if id == "" {
		id = fmt.Sprintf("p%d", c.seq)
	}
	return publisher.PostResult{PostID: id, URL: "https://x.test/" + id}, nil
}

func (c *fakeClient) FetchMetrics(context.Context, string) (publisher.Metrics, error) {
	if c.failAll != nil {
		return publisher.Metrics{}, c.failAll
	}
	return c.metrics, nil
}

func (c *fakeClient) recorded() []fakeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]fakeCall(nil), c.calls...)
}

type fakeProvider struct {
	client *fakeClient
}

func (p *fakeProvider) For(publisher.Account) (publisher.Client, error) {
	return p.client, nil
}

type publishHarness struct {
	*fixture
	client *fakeClient
	clock  *mutableClock
	audit  *memoryAudit
	events *memoryEvents
	policy Policy
}

func newPublishHarness(t *testing.T) *publishHarness {
	return &publishHarness{
		fixture: newFixture(t),
		client:  &fakeClient{},
		clock:   newClock(testNow),
		audit:   &memoryAudit{},
		events:  &memoryEvents{},
		policy:  DefaultPolicy(),
	}
}

func (h *publishHarness) service(sw PostingSwitch) PublishService {
	return NewPublishService(h.schedule, h.accounts, h.drafts, &fakeProvider{client: h.client}, sw,
		h.audit, h.events, h.policy, h.clock.Now)
}

func TestPublishSingle(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	d := h.draft(t, account.ID, "hello world", model.DraftApproved)
	item := h.dueItem(t, account.ID, d)

	res, err := h.service(nil).PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)
	require.Empty(t, res.Status)

	got := h.reloadItem(t, item.ID)
	require.Equal(t, model.SchedulePosted, got.Status)
	require.Nil(t, got.LockedUntil)
	require.Equal(t, model.DraftPosted, h.reloadDraft(t, d.ID).Status)

	var post model.Post
	require.NoError(t, h.db.First(&post).Error)
	require.Equal(t, "p1", *post.ExternalPostID)
	require.Equal(t, "https://x.test/p1", post.ExternalURL)
	require.False(t, post.IsThread)
	require.Equal(t, []fakeCall{{Text: "hello world"}}, h.client.recorded())
	require.Contains(t, h.audit.types(), model.AuditPostPublished)
	require.Len(t, h.events.events, 1)
	require.Equal(t, model.EventPostPublished, h.events.events[0].Type)

	// 已发布的条目不会再次发布
	res, err = h.service(nil).PublishDue(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.Published)
	require.EqualValues(t, 1, h.countPosts(t))
}

func TestPublishKillSwitch(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	item := h.dueItem(t, account.ID, h.draft(t, account.ID, "hold on", model.DraftApproved))
	ctx := context.Background()

	for name, sw := range map[string]*memorySwitch{
		"redis flag":   {disabled: true},
		"flag unknown": {err: errors.New("redis down")},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := h.service(sw).PublishDue(ctx)
			require.NoError(t, err)
			require.Equal(t, PublishStatusDisabled, res.Status)
		})
	}

	h.policy.PostingDisabled = true
	res, err := h.service(&memorySwitch{}).PublishDue(ctx)
	require.NoError(t, err)
	require.Equal(t, PublishStatusDisabled, res.Status)

	require.Equal(t, model.ScheduleScheduled, h.reloadItem(t, item.ID).Status)
	require.Empty(t, h.client.recorded())
}

func TestSetPostingDisabled(t *testing.T) {
	h := newPublishHarness(t)
	sw := &memorySwitch{}
	svc := h.service(sw)
	ctx := context.Background()

	require.NoError(t, svc.SetPostingDisabled(ctx, true))
	disabled, err := svc.PostingDisabled(ctx)
	require.NoError(t, err)
	require.True(t, disabled)
	require.Contains(t, h.audit.types(), model.AuditPostingSwitched)

	require.ErrorIs(t, h.service(nil).SetPostingDisabled(ctx, true), ErrParamInvalid)
}

func TestPublishBackoffUntilFailed(t *testing.T) {
	h := newPublishHarness(t)
	h.client.failAll = errPlatformDown
	account := h.account(t, "alice", defaultSettings())
	item := h.dueItem(t, account.ID, h.draft(t, account.ID, "flaky", model.DraftApproved))
	svc := h.service(nil)
	ctx := context.Background()

	res, err := svc.PublishDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	got := h.reloadItem(t, item.ID)
	require.Equal(t, model.ScheduleScheduled, got.Status)
	require.Equal(t, 1, got.Attempts)
	require.True(t, got.NextAttemptAt.Equal(testNow.Add(5*time.Minute)))
	require.Contains(t, got.LastError, "platform unavailable")

	// 退避未到期
	res, err = svc.PublishDue(ctx)
	require.NoError(t, err)
	require.Equal(t, PublishResult{}, *res)

	h.clock.Advance(5 * time.Minute)
	_, err = svc.PublishDue(ctx)
	require.NoError(t, err)
	got = h.reloadItem(t, item.ID)
	require.Equal(t, 2, got.Attempts)
	require.True(t, got.NextAttemptAt.Equal(h.clock.Now().Add(10*time.Minute)))

	h.clock.Advance(10 * time.Minute)
	res, err = svc.PublishDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	got = h.reloadItem(t, item.ID)
	require.Equal(t, model.ScheduleFailed, got.Status)
	require.Equal(t, 3, got.Attempts)
	require.Len(t, h.client.recorded(), 3)
	require.Zero(t, h.countPosts(t))
	require.Contains(t, h.audit.types(), model.AuditPublishFailed)
}

func TestPublishThreadResumesFromLastSegment(t *testing.T) {
	h := newPublishHarness(t)
	h.client.failOn = map[int]error{1: errPlatformDown}
	account := h.account(t, "alice", defaultSettings())
	d := h.draft(t, account.ID, "1. alpha\n2. beta\n3. gamma", model.DraftApproved, asThread)
	item := h.dueItem(t, account.ID, d)
	svc := h.service(nil)
	ctx := context.Background()

	res, err := svc.PublishDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	got := h.reloadItem(t, item.ID)
	require.Equal(t, model.SegmentList{{Index: 0, PostID: "p1", URL: "https://x.test/p1"}}, got.Segments)

	h.clock.Advance(5 * time.Minute)
	res, err = svc.PublishDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)

	require.Equal(t, []fakeCall{
		{Text: "alpha"},
		{Text: "beta", ReplyTo: "p1"},
		{Text: "beta", ReplyTo: "p1"},
		{Text: "gamma", ReplyTo: "p2"},
	}, h.client.recorded())

	var post model.Post
	require.NoError(t, h.db.First(&post).Error)
	require.True(t, post.IsThread)
	require.Equal(t, "p3", *post.ExternalPostID)
	require.Len(t, h.reloadItem(t, item.ID).Segments, 3)
}

func TestPublishTwoSegmentThread(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	d := h.draft(t, account.ID, "1. First tweet\n2. Second tweet", model.DraftApproved, asThread)
	h.dueItem(t, account.ID, d)

	res, err := h.service(nil).PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)
	require.Equal(t, []fakeCall{
		{Text: "First tweet"},
		{Text: "Second tweet", ReplyTo: "p1"},
	}, h.client.recorded())

	var post model.Post
	require.NoError(t, h.db.First(&post).Error)
	require.True(t, post.IsThread)
	require.Equal(t, "p2", *post.ExternalPostID)
}

func TestPublishEmptyThreadFailsWithoutCalls(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	item := h.dueItem(t, account.ID, h.draft(t, account.ID, "   ", model.DraftApproved, asThread))

	res, err := h.service(nil).PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	got := h.reloadItem(t, item.ID)
	require.Equal(t, model.ScheduleFailed, got.Status)
	require.Equal(t, ErrEmptyThread.Error(), got.LastError)
	require.Empty(t, h.client.recorded())
}

func TestPublishSkipsDisabledAccount(t *testing.T) {
	h := newPublishHarness(t)
	ctx := context.Background()
	account := h.account(t, "alice", defaultSettings())
	item := h.dueItem(t, account.ID, h.draft(t, account.ID, "muted", model.DraftApproved))
	_, err := h.accounts.UpdateAccount(ctx, account.ID, map[string]any{"is_enabled": false})
	require.NoError(t, err)

	res, err := h.service(nil).PublishDue(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, model.ScheduleSkipped, h.reloadItem(t, item.ID).Status)
	require.Empty(t, h.client.recorded())
}

func TestPublishFailsWhenAttemptsExhausted(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	item := h.dueItem(t, account.ID, h.draft(t, account.ID, "exhausted", model.DraftApproved))
	require.NoError(t, h.db.Model(&model.ScheduleItem{}).Where("id = ?", item.ID).Update("attempts", 3).Error)

	res, err := h.service(nil).PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, model.ScheduleFailed, h.reloadItem(t, item.ID).Status)
	require.Empty(t, h.client.recorded())
}

func TestPublishDuplicateExternalIDSkipped(t *testing.T) {
	h := newPublishHarness(t)
	h.client.fixedID = "same-id"
	account := h.account(t, "alice", defaultSettings())
	first := h.dueItem(t, account.ID, h.draft(t, account.ID, "first post", model.DraftApproved))
	second := h.dueItem(t, account.ID, h.draft(t, account.ID, "second post", model.DraftApproved))

	res, err := h.service(nil).PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Published)
	require.Equal(t, 1, res.Skipped)
	require.Equal(t, model.SchedulePosted, h.reloadItem(t, first.ID).Status)
	require.Equal(t, model.ScheduleSkipped, h.reloadItem(t, second.ID).Status)
	require.EqualValues(t, 1, h.countPosts(t))
}

func TestConcurrentExecutorsPublishOnce(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	h.dueItem(t, account.ID, h.draft(t, account.ID, "race me", model.DraftApproved))

	var wg sync.WaitGroup
	results := make([]*PublishResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = h.service(nil).PublishDue(context.Background())
		}()
	}
	wg.Wait()

	published := 0
	for i := range results {
		require.NoError(t, errs[i])
		published += results[i].Published
	}
	require.Equal(t, 1, published)
	require.EqualValues(t, 1, h.countPosts(t))
	require.Len(t, h.client.recorded(), 1)
}

func (c *fakeClient) texts() []string {
	out := make([]string, 0)
	for _, call := range c.recorded() {
		out = append(out, call.Text)
	}
	return out
}

func TestSlowBatchKeepsLaterClaimsAlive(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	first := h.dueItem(t, account.ID, h.draft(t, account.ID, "first post", model.DraftApproved))
	second := h.dueItem(t, account.ID, h.draft(t, account.ID, "second post", model.DraftApproved))
	ctx := context.Background()

	var other *PublishResult
	var otherErr error
	h.client.beforePost = func(text string) {
		switch text {
		case "first post":
			// 第一条耗时超过租约
			h.clock.Advance(6 * time.Minute)
		case "second post":
			if other == nil {
				other, otherErr = h.service(nil).PublishDue(ctx)
			}
		}
	}

	res, err := h.service(nil).PublishDue(ctx)
	require.NoError(t, err)
	require.NoError(t, otherErr)
	require.Equal(t, 2, res.Published)
	require.Equal(t, PublishResult{}, *other)

	require.Equal(t, []string{"first post", "second post"}, h.client.texts())
	require.EqualValues(t, 2, h.countPosts(t))
	require.Equal(t, model.SchedulePosted, h.reloadItem(t, first.ID).Status)
	require.Equal(t, model.SchedulePosted, h.reloadItem(t, second.ID).Status)
}

func TestLongThreadRenewsLease(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	d := h.draft(t, account.ID, "1. one\n2. two\n3. three", model.DraftApproved, asThread)
	item := h.dueItem(t, account.ID, d)
	ctx := context.Background()

	var other *PublishResult
	var otherErr error
	h.client.beforePost = func(text string) {
		// 每段 3 分钟，整条线程超过 5 分钟租约
		h.clock.Advance(3 * time.Minute)
		if text == "three" && other == nil {
			other, otherErr = h.service(nil).PublishDue(ctx)
		}
	}

	res, err := h.service(nil).PublishDue(ctx)
	require.NoError(t, err)
	require.NoError(t, otherErr)
	require.Equal(t, 1, res.Published)
	require.Equal(t, PublishResult{}, *other)

	require.Equal(t, []fakeCall{
		{Text: "one"},
		{Text: "two", ReplyTo: "p1"},
		{Text: "three", ReplyTo: "p2"},
	}, h.client.recorded())
	require.EqualValues(t, 1, h.countPosts(t))
	require.Equal(t, model.SchedulePosted, h.reloadItem(t, item.ID).Status)
}

func TestThreadStopsWhenLeaseTakenOver(t *testing.T) {
	h := newPublishHarness(t)
	account := h.account(t, "alice", defaultSettings())
	d := h.draft(t, account.ID, "1. one\n2. two\n3. three", model.DraftApproved, asThread)
	item := h.dueItem(t, account.ID, d)

	h.client.beforePost = func(text string) {
		if text == "two" {
			// 其他执行器在此期间接管了条目
			require.NoError(t, h.db.Model(&model.ScheduleItem{}).Where("id = ?", item.ID).
				Update("claim_token", "other-executor").Error)
		}
	}

	res, err := h.service(nil).PublishDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, PublishResult{Skipped: 1}, *res)
	require.Equal(t, []string{"one", "two"}, h.client.texts())

	got := h.reloadItem(t, item.ID)
	require.Equal(t, model.SchedulePublishing, got.Status)
	require.Equal(t, "other-executor", got.ClaimToken)
	require.Len(t, got.Segments, 1)
	require.Zero(t, h.countPosts(t))
}
