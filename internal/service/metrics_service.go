package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/publisher"
	"Signalforge/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"time"
)

type MetricsResult struct {
	Created int `json:"created"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (r *MetricsResult) Counts() map[string]int {
	return map[string]int{"created": r.Created, "failed": r.Failed, "skipped": r.Skipped}
}

type MetricsService interface {
	// PullMetrics 拉取当日还没有指标的帖子
	PullMetrics(ctx context.Context) (*MetricsResult, error)
}

type metricsServiceImpl struct {
	postRepo    repository.PostRepo
	accountRepo repository.AccountRepo
	provider    publisher.Provider
	policy      Policy
	now         Clock
}

func NewMetricsService(postRepo repository.PostRepo, accountRepo repository.AccountRepo, provider publisher.Provider, policy Policy, now Clock) MetricsService {
	return &metricsServiceImpl{postRepo: postRepo, accountRepo: accountRepo, provider: provider, policy: policy, now: now}
}

var errAccountGone = errors.New("post account missing")

func (s *metricsServiceImpl) PullMetrics(ctx context.Context) (*MetricsResult, error) {
	run := &metricsRun{svc: s, day: model.MetricDay(s.now()), result: &MetricsResult{}, accounts: make(map[uint64]*model.Account)}
	if err := Drain[*model.Post, publisher.Metrics](ctx, "analytics", run, func(post *model.Post, err error) {
		if errors.Is(err, errAccountGone) {
			run.result.Skipped++
			return
		}
		run.result.Failed++
		log.ErrorContext(ctx, "analytics fetch failed", "post_id", post.ID, "err", err)
	}); err != nil {
		return run.result, err
	}
	log.InfoContext(ctx, "pull_analytics complete",
		"created", run.result.Created, "failed", run.result.Failed, "skipped", run.result.Skipped)
	return run.result, nil
}

type metricsRun struct {
	svc      *metricsServiceImpl
	day      time.Time
	result   *MetricsResult
	accounts map[uint64]*model.Account
}

func (r *metricsRun) Ready(ctx context.Context) ([]*model.Post, error) {
	return r.svc.postRepo.ListPostsMissingMetrics(ctx, r.day)
}

func (r *metricsRun) Process(ctx context.Context, post *model.Post) (publisher.Metrics, error) {
	account, ok := r.accounts[post.AccountID]
	if !ok {
		var err error
		account, err = r.svc.accountRepo.GetAccount(ctx, post.AccountID)
		if err != nil {
			return publisher.Metrics{}, fatal(err)
		}
		r.accounts[post.AccountID] = account
	}
	if account == nil {
		return publisher.Metrics{}, errAccountGone
	}

	client, err := r.svc.provider.For(publisher.Account{ID: account.ID, Handle: account.Handle})
	if err != nil {
		return publisher.Metrics{}, err
	}
	if timeout := r.svc.policy.CallTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return client.FetchMetrics(ctx, *post.ExternalPostID)
}

func (r *metricsRun) Commit(ctx context.Context, post *model.Post, m publisher.Metrics) error {
	ok, err := r.svc.postRepo.InsertDailyMetrics(ctx, &model.PostMetricsDaily{
		PostID:      post.ID,
		MetricDate:  r.day,
		Impressions: m.Impressions,
		Likes:       m.Likes,
		Reposts:     m.Reposts,
		Replies:     m.Replies,
		Bookmarks:   m.Bookmarks,
		Clicks:      m.Clicks,
	})
	if err != nil {
		return err
	}
	if ok {
		r.result.Created++
	} else {
		r.result.Skipped++
	}
	return nil
}
