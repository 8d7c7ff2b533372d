package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/repository"
	"context"
)

// RangeSummary 工作区 [From, To] 的指标合计
type RangeSummary struct {
	From string `json:"from"`
	To   string `json:"to"`
	repository.MetricsSummary
}

type AnalyticsService interface {
	SummaryForRange(ctx context.Context, workspaceID uint64, days int) (*RangeSummary, error)
	AccountPerformance(ctx context.Context, accountID uint64, days int) ([]*model.TemplatePerformance, error)
	ListIdeas(ctx context.Context, workspaceID uint64, status string, limit int) ([]*model.Idea, error)
	ListDrafts(ctx context.Context, workspaceID uint64, status string, limit int) ([]*model.Draft, error)
	ListPosts(ctx context.Context, workspaceID uint64, limit int) ([]*model.Post, error)
}

type analyticsServiceImpl struct {
	postRepo  repository.PostRepo
	ideaRepo  repository.IdeaRepo
	draftRepo repository.DraftRepo
	now       Clock
}

func NewAnalyticsService(postRepo repository.PostRepo, ideaRepo repository.IdeaRepo, draftRepo repository.DraftRepo, now Clock) AnalyticsService {
	return &analyticsServiceImpl{postRepo: postRepo, ideaRepo: ideaRepo, draftRepo: draftRepo, now: now}
}

const dateLayout = "2006-01-02"

func (s *analyticsServiceImpl) SummaryForRange(ctx context.Context, workspaceID uint64, days int) (*RangeSummary, error) {
	if days < 0 {
		return nil, ErrParamInvalid
	}
	to := model.MetricDay(s.now())
	from := to.AddDate(0, 0, -days)
	sum, err := s.postRepo.SummaryForRange(ctx, workspaceID, from)
	if err != nil {
		return nil, err
	}
	return &RangeSummary{From: from.Format(dateLayout), To: to.Format(dateLayout), MetricsSummary: *sum}, nil
}

func (s *analyticsServiceImpl) AccountPerformance(ctx context.Context, accountID uint64, days int) ([]*model.TemplatePerformance, error) {
	if days < 0 {
		return nil, ErrParamInvalid
	}
	since := model.MetricDay(s.now()).AddDate(0, 0, -days)
	return s.postRepo.ListTemplatePerformance(ctx, accountID, since)
}

func (s *analyticsServiceImpl) ListIdeas(ctx context.Context, workspaceID uint64, status string, limit int) ([]*model.Idea, error) {
	return s.ideaRepo.ListIdeas(ctx, workspaceID, status, pageLimit(limit))
}

func (s *analyticsServiceImpl) ListDrafts(ctx context.Context, workspaceID uint64, status string, limit int) ([]*model.Draft, error) {
	return s.draftRepo.ListDrafts(ctx, workspaceID, status, pageLimit(limit))
}

func (s *analyticsServiceImpl) ListPosts(ctx context.Context, workspaceID uint64, limit int) ([]*model.Post, error) {
	return s.postRepo.ListPosts(ctx, workspaceID, pageLimit(limit))
}

func pageLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
