package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/content"
	"Signalforge/internal/repository"
	"context"
	log "log/slog"
	"math"
	"time"
)

type ScoreResult struct {
	Updated int `json:"updated"`
}

func (r *ScoreResult) Counts() map[string]int {
	return map[string]int{"updated": r.Updated}
}

type ScoringService interface {
	// ScoreIdeas 为所有 new 选题打分并置为 scored
	ScoreIdeas(ctx context.Context) (*ScoreResult, error)
}

type scoringServiceImpl struct {
	ideaRepo repository.IdeaRepo
	policy   Policy
	now      Clock
}

func NewScoringService(ideaRepo repository.IdeaRepo, policy Policy, now Clock) ScoringService {
	return &scoringServiceImpl{ideaRepo: ideaRepo, policy: policy, now: now}
}

// ScoreIdea 标题覆盖度*0.4 + 摘要覆盖度*0.4 + 新鲜度*0.2，保留 4 位小数
func ScoreIdea(idea *model.Idea, now time.Time, windowDays int) float64 {
	score := 0.0
	if idea.Title != "" {
		score += min(float64(content.Length(idea.Title))/120, 1.0) * 0.4
	}
	if idea.Summary != "" {
		score += min(float64(content.Length(idea.Summary))/500, 1.0) * 0.4
	}
	if idea.PublishedAt != nil && windowDays > 0 {
		ageDays := math.Floor(now.Sub(*idea.PublishedAt).Hours() / 24)
		recency := max(0, min(1, 1-ageDays/float64(windowDays)))
		score += recency * 0.2
	}
	return math.Round(score*10000) / 10000
}

func (s *scoringServiceImpl) ScoreIdeas(ctx context.Context) (*ScoreResult, error) {
	run := &scoreRun{svc: s, now: s.now(), result: &ScoreResult{}}
	if err := Drain[*model.Idea, float64](ctx, "score", run, nil); err != nil {
		return run.result, err
	}
	log.InfoContext(ctx, "score_ideas complete", "updated", run.result.Updated)
	return run.result, nil
}

type scoreRun struct {
	svc    *scoringServiceImpl
	now    time.Time
	result *ScoreResult
}

func (r *scoreRun) Ready(ctx context.Context) ([]*model.Idea, error) {
	return r.svc.ideaRepo.ListIdeasByStatus(ctx, model.IdeaNew, 0)
}

func (r *scoreRun) Process(_ context.Context, idea *model.Idea) (float64, error) {
	return ScoreIdea(idea, r.now, r.svc.policy.RecencyWindowDays), nil
}

func (r *scoreRun) Commit(ctx context.Context, idea *model.Idea, score float64) error {
	ok, err := r.svc.ideaRepo.ApplyScore(ctx, idea.ID, score)
	if err != nil {
		return err
	}
	if ok {
		r.result.Updated++
	}
	return nil
}
