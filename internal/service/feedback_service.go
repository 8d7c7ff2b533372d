package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/consts"
	"Signalforge/internal/repository"
	"context"
	"errors"
	log "log/slog"
)

type FeedbackResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

func (r *FeedbackResult) Counts() map[string]int {
	return map[string]int{"created": r.Created, "updated": r.Updated}
}

type FeedbackService interface {
	// LearnTemplates 汇总当日各格式表现并调整账号格式权重
	LearnTemplates(ctx context.Context) (*FeedbackResult, error)
}

type feedbackServiceImpl struct {
	postRepo    repository.PostRepo
	accountRepo repository.AccountRepo
	locker      Locker
	audit       AuditSink
	events      EventSink
	policy      Policy
	now         Clock
}

func NewFeedbackService(
	postRepo repository.PostRepo,
	accountRepo repository.AccountRepo,
	locker Locker,
	audit AuditSink,
	events EventSink,
	policy Policy,
	now Clock,
) FeedbackService {
	return &feedbackServiceImpl{
		postRepo:    postRepo,
		accountRepo: accountRepo,
		locker:      locker,
		audit:       audit,
		events:      events,
		policy:      policy,
		now:         now,
	}
}

// Rates 点赞率与转发率，曝光为 0 时均为 0
func Rates(avg repository.FormatAverage) (likeRate, repostRate float64) {
	if avg.ImpressionsAvg <= 0 {
		return 0, 0
	}
	return avg.LikesAvg / avg.ImpressionsAvg, avg.RepostsAvg / avg.ImpressionsAvg
}

// FormatWeights 各格式曝光均值相对账号整体均值的比值，限制在 [floor, ceiling]
func (p Policy) FormatWeights(averages []repository.FormatAverage) map[string]float64 {
	if len(averages) == 0 {
		return nil
	}
	overall := 0.0
	for _, a := range averages {
		overall += a.ImpressionsAvg
	}
	overall /= float64(len(averages))

	weights := make(map[string]float64, len(averages))
	for _, a := range averages {
		if overall > 0 {
			weights[a.Format] = p.ClampWeight(a.ImpressionsAvg / overall)
		} else {
			weights[a.Format] = 1.0
		}
	}
	return weights
}

func (s *feedbackServiceImpl) LearnTemplates(ctx context.Context) (*FeedbackResult, error) {
	day := model.MetricDay(s.now())
	averages, err := s.postRepo.FormatAverages(ctx, day)
	if err != nil {
		return nil, err
	}

	result := &FeedbackResult{}
	byAccount := make(map[uint64][]repository.FormatAverage)
	order := make([]uint64, 0)
	for _, avg := range averages {
		if err = ctx.Err(); err != nil {
			return result, err
		}
		likeRate, repostRate := Rates(avg)
		ok, err := s.postRepo.InsertTemplatePerformance(ctx, &model.TemplatePerformance{
			AccountID:      avg.AccountID,
			Format:         avg.Format,
			MetricDate:     day,
			ImpressionsAvg: avg.ImpressionsAvg,
			LikeRate:       likeRate,
			RepostRate:     repostRate,
		})
		if err != nil {
			return result, err
		}
		if ok {
			result.Created++
		}
		if _, seen := byAccount[avg.AccountID]; !seen {
			order = append(order, avg.AccountID)
		}
		byAccount[avg.AccountID] = append(byAccount[avg.AccountID], avg)
	}

	for _, accountID := range order {
		weights := s.policy.FormatWeights(byAccount[accountID])
		var updated bool
		err = withLock(ctx, s.locker, accountKey(consts.AccountLock, accountID), s.policy.AccountLockTTL, func() error {
			var err error
			updated, err = s.accountRepo.MergeFormatWeights(ctx, accountID, weights)
			return err
		})
		if errors.Is(err, ErrLockBusy) {
			log.WarnContext(ctx, "account busy, weights not updated", "account_id", accountID)
			continue
		}
		if err != nil {
			return result, err
		}
		if !updated {
			continue
		}
		result.Updated++
		log.InfoContext(ctx, "format weights updated", "account_id", accountID, "weights", weights)
		audit(ctx, s.audit, &model.AuditLog{
			AccountID: &accountID,
			EventType: model.AuditWeightsUpdated,
			Meta:      map[string]any{"weights": weights},
		})
		emit(ctx, s.events, &model.PipelineEvent{
			Type:      model.EventWeightsAdjusted,
			AccountID: accountID,
			Data:      map[string]any{"weights": weights},
			At:        s.now(),
		})
	}

	log.InfoContext(ctx, "learn_templates complete", "created", result.Created, "updated", result.Updated)
	return result, nil
}
