package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/consts"
	"Signalforge/internal/pkg/content"
	"Signalforge/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"slices"
	"strings"
	"time"
)

type ScheduleResult struct {
	Scheduled int `json:"scheduled"`
	Accounts  int `json:"accounts"`
	Skipped   int `json:"skipped"`
}

func (r *ScheduleResult) Counts() map[string]int {
	return map[string]int{"scheduled": r.Scheduled, "accounts": r.Accounts, "skipped": r.Skipped}
}

type SchedulingService interface {
	// SchedulePosts 为每个启用账号分配当日剩余发布时段
	SchedulePosts(ctx context.Context) (*ScheduleResult, error)
	// AccountSchedule 账号某本地日（YYYY-MM-DD，空为今天）的排期
	AccountSchedule(ctx context.Context, accountID uint64, date string) ([]*model.ScheduleItem, error)
}

type schedulingServiceImpl struct {
	accountRepo  repository.AccountRepo
	draftRepo    repository.DraftRepo
	scheduleRepo repository.ScheduleRepo
	locker       Locker
	rnd          Rand
	policy       Policy
	now          Clock
}

func NewSchedulingService(
	accountRepo repository.AccountRepo,
	draftRepo repository.DraftRepo,
	scheduleRepo repository.ScheduleRepo,
	locker Locker,
	rnd Rand,
	policy Policy,
	now Clock,
) SchedulingService {
	return &schedulingServiceImpl{
		accountRepo:  accountRepo,
		draftRepo:    draftRepo,
		scheduleRepo: scheduleRepo,
		locker:       locker,
		rnd:          rnd,
		policy:       policy,
		now:          now,
	}
}

// DayBounds 本地自然日 [start, end)
func DayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// DailyTarget 在 [min, max] 中均匀抽取，配置颠倒时交换
func DailyTarget(settings *model.AccountSettings, rnd Rand) int {
	low, high := settings.DailyPostMin, settings.DailyPostMax
	if low > high {
		low, high = high, low
	}
	if high < 0 {
		return 0
	}
	low = max(low, 0)
	return low + rnd.IntN(high-low+1)
}

// CandidateSlots 每个允许小时内随机取一个时刻，丢弃已过去的，按间隔过滤后升序返回
func CandidateSlots(now time.Time, loc *time.Location, hours []int, spacingHours int, committed []time.Time, rnd Rand) []time.Time {
	local := now.In(loc)
	candidates := make([]time.Time, 0, len(hours))
	for _, hour := range hours {
		minute := rnd.IntN(60)
		second := rnd.IntN(60)
		at := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, second, 0, loc)
		if !at.After(local) {
			continue
		}
		candidates = append(candidates, at.UTC())
	}
	slices.SortFunc(candidates, func(a, b time.Time) int { return a.Compare(b) })

	gap := time.Duration(max(1, spacingHours)) * time.Hour
	tooClose := func(a, b time.Time) bool {
		d := a.Sub(b)
		if d < 0 {
			d = -d
		}
		return d < gap
	}

	spaced := make([]time.Time, 0, len(candidates))
	for _, c := range candidates {
		if slices.ContainsFunc(committed, func(t time.Time) bool { return tooClose(c, t) }) {
			continue
		}
		if len(spaced) > 0 && tooClose(c, spaced[len(spaced)-1]) {
			continue
		}
		spaced = append(spaced, c)
	}
	return spaced
}

// SlotCaps 剩余时段内线程与链接帖的上限
func SlotCaps(settings *model.AccountSettings, slotsLeft int) (maxThreads, maxLinks int) {
	if slotsLeft <= 0 {
		return 0, 0
	}
	if settings.ThreadRatio > 0 {
		maxThreads = max(1, int(float64(slotsLeft)*settings.ThreadRatio))
	}
	if settings.AllowLinks && settings.LinkPostRatio > 0 {
		maxLinks = max(1, int(float64(slotsLeft)*settings.LinkPostRatio))
	}
	return maxThreads, maxLinks
}

// FilterDrafts 去掉已达上限的线程帖与链接帖
func FilterDrafts(drafts []*model.Draft, maxThreads, maxLinks, threads, links int) []*model.Draft {
	filtered := make([]*model.Draft, 0, len(drafts))
	for _, d := range drafts {
		if d.IsThread && threads >= maxThreads {
			continue
		}
		if content.ContainsLink(d.Content) && links >= maxLinks {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}

// TopicKey 选题标题首词小写
func TopicKey(idea *model.Idea) string {
	if idea == nil {
		return ""
	}
	fields := strings.Fields(idea.Title)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// SelectionWeight max(score, 0.01) * 格式权重 * 话题权重，下限 0.01
func SelectionWeight(d *model.Draft, settings *model.AccountSettings) float64 {
	w := max(d.Score, MinSelectionWeight) * settings.FormatWeights.Get(d.Format)
	if key := TopicKey(d.Idea); key != "" {
		w *= settings.TopicWeights.Get(key)
	}
	return max(w, MinSelectionWeight)
}

// WeightedChoice 按权重随机选取，累积值首次达到抽样值者胜出
func WeightedChoice(drafts []*model.Draft, settings *model.AccountSettings, rnd Rand) *model.Draft {
	if len(drafts) == 0 {
		return nil
	}
	weights := make([]float64, len(drafts))
	total := 0.0
	for i, d := range drafts {
		weights[i] = SelectionWeight(d, settings)
		total += weights[i]
	}
	target := rnd.Float64() * total
	cumulative := 0.0
	for i, d := range drafts {
		cumulative += weights[i]
		if cumulative >= target {
			return d
		}
	}
	return drafts[len(drafts)-1]
}

func (s *schedulingServiceImpl) SchedulePosts(ctx context.Context) (*ScheduleResult, error) {
	run := &scheduleRun{svc: s, result: &ScheduleResult{}}
	if err := Drain[*model.Account, int](ctx, "schedule", run, func(a *model.Account, err error) {
		run.result.Skipped++
		log.InfoContext(ctx, "account skipped", "account_id", a.ID, "reason", err)
	}); err != nil {
		return run.result, err
	}
	log.InfoContext(ctx, "schedule_posts complete",
		"scheduled", run.result.Scheduled, "accounts", run.result.Accounts, "skipped", run.result.Skipped)
	return run.result, nil
}

func (s *schedulingServiceImpl) AccountSchedule(ctx context.Context, accountID uint64, date string) ([]*model.ScheduleItem, error) {
	settings, err := s.accountRepo.GetSettings(ctx, accountID)
	if err != nil {
		return nil, err
	}
	loc := time.UTC
	if settings != nil {
		loc = settings.Location()
	}
	day := s.now()
	if date != "" {
		if day, err = time.ParseInLocation(time.DateOnly, date, loc); err != nil {
			return nil, ErrParamInvalid
		}
	}
	start, end := DayBounds(day, loc)
	return s.scheduleRepo.ListForAccount(ctx, accountID, start, end)
}

type scheduleRun struct {
	svc    *schedulingServiceImpl
	result *ScheduleResult
}

func (r *scheduleRun) Ready(ctx context.Context) ([]*model.Account, error) {
	return r.svc.accountRepo.ListEnabledAccounts(ctx)
}

// Process 在账号锁内完成计数、选槽与落库
func (r *scheduleRun) Process(ctx context.Context, account *model.Account) (int, error) {
	settings, err := r.svc.accountRepo.GetSettings(ctx, account.ID)
	if err != nil {
		return 0, fatal(err)
	}
	if settings == nil {
		return 0, ErrSettingsMissing
	}

	scheduled := 0
	err = withLock(ctx, r.svc.locker, accountKey(consts.AccountLock, account.ID), r.svc.policy.AccountLockTTL, func() error {
		n, err := r.svc.allocate(ctx, account, settings)
		scheduled = n
		return err
	})
	if errors.Is(err, ErrLockBusy) {
		return 0, err
	}
	if err != nil {
		return scheduled, fatal(err)
	}
	return scheduled, nil
}

func (r *scheduleRun) Commit(_ context.Context, _ *model.Account, scheduled int) error {
	r.result.Accounts++
	r.result.Scheduled += scheduled
	return nil
}

func (s *schedulingServiceImpl) allocate(ctx context.Context, account *model.Account, settings *model.AccountSettings) (int, error) {
	now := s.now()
	loc := settings.Location()
	dayStart, dayEnd := DayBounds(now, loc)

	committed, err := s.scheduleRepo.CommittedTimes(ctx, account.ID, dayStart, dayEnd)
	if err != nil {
		return 0, err
	}

	target := DailyTarget(settings, s.rnd)
	remaining := max(0, target-len(committed))
	if remaining == 0 {
		return 0, nil
	}

	slots := CandidateSlots(now, loc, settings.Hours(), settings.MinSpacingHours, committed, s.rnd)
	if len(slots) > remaining {
		slots = slots[:remaining]
	}
	if len(slots) == 0 {
		return 0, nil
	}

	pool, err := s.draftRepo.ListApprovedForAccount(ctx, account.ID)
	if err != nil {
		return 0, err
	}

	scheduled, threads, links := 0, 0, 0
	for _, slot := range slots {
		maxThreads, maxLinks := SlotCaps(settings, remaining-scheduled)
		placed := false
		for !placed {
			candidates := FilterDrafts(pool, maxThreads, maxLinks, threads, links)
			draft := WeightedChoice(candidates, settings, s.rnd)
			if draft == nil {
				log.InfoContext(ctx, "no eligible drafts left", "account_id", account.ID, "scheduled", scheduled)
				return scheduled, nil
			}
			pool = slices.DeleteFunc(pool, func(d *model.Draft) bool { return d.ID == draft.ID })

			ok, err := s.scheduleRepo.CreateSlot(ctx, &model.ScheduleItem{
				AccountID:    account.ID,
				DraftID:      draft.ID,
				ScheduledFor: slot,
			})
			if err != nil {
				return scheduled, err
			}
			if !ok {
				// 草稿已被其他流程取走
				continue
			}
			placed = true
			scheduled++
			if draft.IsThread {
				threads++
			}
			if content.ContainsLink(draft.Content) {
				links++
			}
			log.InfoContext(ctx, "draft scheduled", "account_id", account.ID, "draft_id", draft.ID, "scheduled_for", slot)
		}
	}
	return scheduled, nil
}
