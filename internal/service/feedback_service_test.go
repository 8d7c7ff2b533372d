package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/publisher"
	"Signalforge/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func (f *fixture) post(t *testing.T, accountID uint64, d *model.Draft, externalID string) *model.Post {
	t.Helper()
	p := &model.Post{AccountID: accountID, PostedAt: testNow.Add(-time.Hour), Status: model.PostStatusPosted, IsThread: d.IsThread}
	p.DraftID = &d.ID
	if externalID != "" {
		p.ExternalPostID = &externalID
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) metrics(t *testing.T, postID uint64, impressions, likes, reposts int64) {
	t.Helper()
	ok, err := f.posts.InsertDailyMetrics(context.Background(), &model.PostMetricsDaily{
		PostID: postID, MetricDate: testNow, Impressions: impressions, Likes: likes, Reposts: reposts,
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFormatWeights(t *testing.T) {
	p := DefaultPolicy()
	avg := func(format string, impressions float64) repository.FormatAverage {
		return repository.FormatAverage{Format: format, ImpressionsAvg: impressions}
	}

	require.Equal(t, map[string]float64{"thread": 1.5, "tweet_single": 0.5},
		p.FormatWeights([]repository.FormatAverage{avg("thread", 300), avg("tweet_single", 100)}))
	require.Equal(t, map[string]float64{"a": 0.5, "b": 0.5, "c": 2.0},
		p.FormatWeights([]repository.FormatAverage{avg("a", 0), avg("b", 50), avg("c", 250)}))
	require.Equal(t, map[string]float64{"a": 1.0, "b": 1.0},
		p.FormatWeights([]repository.FormatAverage{avg("a", 0), avg("b", 0)}))
	require.Nil(t, p.FormatWeights(nil))
}

func TestRates(t *testing.T) {
	like, repost := Rates(repository.FormatAverage{ImpressionsAvg: 200, LikesAvg: 20, RepostsAvg: 5})
	require.InDelta(t, 0.1, like, 1e-9)
	require.InDelta(t, 0.025, repost, 1e-9)

	like, repost = Rates(repository.FormatAverage{LikesAvg: 3})
	require.Zero(t, like)
	require.Zero(t, repost)
}

func TestLearnTemplates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	settings := defaultSettings()
	settings.FormatWeights = model.WeightMap{"legacy": 1.2}
	account := f.account(t, "alice", settings)

	single := f.draft(t, account.ID, "single post", model.DraftPosted)
	thread := f.draft(t, account.ID, "1. a\n2. b", model.DraftPosted, asThread)
	f.metrics(t, f.post(t, account.ID, single, "s1").ID, 100, 10, 5)
	f.metrics(t, f.post(t, account.ID, thread, "t1").ID, 300, 30, 3)

	audit := &memoryAudit{}
	events := &memoryEvents{}
	svc := NewFeedbackService(f.posts, f.accounts, NewMemoryLocker(), audit, events, DefaultPolicy(),
		func() time.Time { return testNow })
	res, err := svc.LearnTemplates(ctx)
	require.NoError(t, err)
	require.Equal(t, FeedbackResult{Created: 2, Updated: 1}, *res)

	got, err := f.accounts.GetSettings(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, model.WeightMap{"legacy": 1.2, model.FormatThread: 1.5, model.FormatSingle: 0.5}, got.FormatWeights)

	perfs, err := f.posts.ListTemplatePerformance(ctx, account.ID, testNow)
	require.NoError(t, err)
	require.Len(t, perfs, 2)
	for _, perf := range perfs {
		if perf.Format == model.FormatSingle {
			require.InDelta(t, 100, perf.ImpressionsAvg, 1e-9)
			require.InDelta(t, 0.1, perf.LikeRate, 1e-9)
			require.InDelta(t, 0.05, perf.RepostRate, 1e-9)
		}
	}
	require.Contains(t, audit.types(), model.AuditWeightsUpdated)
	require.Len(t, events.events, 1)

	// 同日重复运行不覆盖已有表现记录
	res, err = svc.LearnTemplates(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Created)
}

func TestPullMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.account(t, "alice", nil)
	d := f.draft(t, account.ID, "measured", model.DraftPosted)
	withID := f.post(t, account.ID, d, "ext-1")
	f.post(t, account.ID, f.draft(t, account.ID, "never posted upstream", model.DraftPosted), "")

	client := &fakeClient{metrics: publisher.Metrics{Impressions: 42, Likes: 4, Clicks: 1}}
	svc := NewMetricsService(f.posts, f.accounts, &fakeProvider{client: client}, DefaultPolicy(),
		func() time.Time { return testNow })
	res, err := svc.PullMetrics(ctx)
	require.NoError(t, err)
	require.Equal(t, MetricsResult{Created: 1}, *res)

	var row model.PostMetricsDaily
	require.NoError(t, f.db.Where("post_id = ?", withID.ID).First(&row).Error)
	require.EqualValues(t, 42, row.Impressions)
	require.EqualValues(t, 1, row.Clicks)

	res, err = svc.PullMetrics(ctx)
	require.NoError(t, err)
	require.Equal(t, MetricsResult{}, *res)
}

func TestPullMetricsCountsFailures(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "alice", nil)
	f.post(t, account.ID, f.draft(t, account.ID, "measured", model.DraftPosted), "ext-1")

	svc := NewMetricsService(f.posts, f.accounts, &fakeProvider{client: &fakeClient{failAll: errPlatformDown}},
		DefaultPolicy(), func() time.Time { return testNow })
	res, err := svc.PullMetrics(context.Background())
	require.NoError(t, err)
	require.Equal(t, MetricsResult{Failed: 1}, *res)
}
