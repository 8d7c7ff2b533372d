package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/content"
	"Signalforge/internal/pkg/publisher"
	"Signalforge/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

const PublishStatusDisabled = "disabled"

type PublishResult struct {
	Status    string `json:"status,omitempty"`
	Published int    `json:"published"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

func (r *PublishResult) Counts() map[string]int {
	return map[string]int{"published": r.Published, "failed": r.Failed, "skipped": r.Skipped}
}

type PublishService interface {
	// PublishDue 认领并发布所有到期排期
	PublishDue(ctx context.Context) (*PublishResult, error)
	// PostingDisabled 配置或 Redis 开关任一关闭即视为停发
	PostingDisabled(ctx context.Context) (bool, error)
	// SetPostingDisabled 切换 Redis 停发开关
	SetPostingDisabled(ctx context.Context, disabled bool) error
}

type publishServiceImpl struct {
	scheduleRepo repository.ScheduleRepo
	accountRepo  repository.AccountRepo
	draftRepo    repository.DraftRepo
	provider     publisher.Provider
	posting      PostingSwitch
	audit        AuditSink
	events       EventSink
	policy       Policy
	now          Clock
}

func NewPublishService(
	scheduleRepo repository.ScheduleRepo,
	accountRepo repository.AccountRepo,
	draftRepo repository.DraftRepo,
	provider publisher.Provider,
	posting PostingSwitch,
	audit AuditSink,
	events EventSink,
	policy Policy,
	now Clock,
) PublishService {
	return &publishServiceImpl{
		scheduleRepo: scheduleRepo,
		accountRepo:  accountRepo,
		draftRepo:    draftRepo,
		provider:     provider,
		posting:      posting,
		audit:        audit,
		events:       events,
		policy:       policy,
		now:          now,
	}
}

func (s *publishServiceImpl) PostingDisabled(ctx context.Context) (bool, error) {
	if s.policy.PostingDisabled {
		return true, nil
	}
	if s.posting == nil {
		return false, nil
	}
	return s.posting.Stopped(ctx)
}

func (s *publishServiceImpl) SetPostingDisabled(ctx context.Context, disabled bool) error {
	if s.posting == nil {
		return ErrParamInvalid
	}
	if err := s.posting.Set(ctx, disabled); err != nil {
		return err
	}
	log.WarnContext(ctx, "posting switch changed", "disabled", disabled)
	audit(ctx, s.audit, &model.AuditLog{
		EventType: model.AuditPostingSwitched,
		Message:   fmt.Sprintf("posting_disabled=%t", disabled),
	})
	return nil
}

func (s *publishServiceImpl) PublishDue(ctx context.Context) (*PublishResult, error) {
	disabled, err := s.PostingDisabled(ctx)
	if err != nil {
		// 开关读取失败时按停发处理
		log.ErrorContext(ctx, "read posting switch failed", "err", err)
		disabled = true
	}
	if disabled {
		log.InfoContext(ctx, "posting disabled, publish skipped")
		return &PublishResult{Status: PublishStatusDisabled}, nil
	}

	run := &publishRun{svc: s, batchAt: s.now(), result: &PublishResult{}}
	if err = Drain[*model.ScheduleItem, publishOutcome](ctx, "publish", run, func(item *model.ScheduleItem, err error) {
		run.result.Skipped++
		log.InfoContext(ctx, "schedule item skipped", "schedule_item_id", item.ID, "reason", err)
	}); err != nil {
		return run.result, err
	}
	log.InfoContext(ctx, "publish_due complete",
		"published", run.result.Published, "failed", run.result.Failed, "skipped", run.result.Skipped)
	return run.result, nil
}

// publishOutcome 单个排期的处理结论
type publishOutcome struct {
	item    *model.ScheduleItem
	account *model.Account
	post    *model.Post
	// status 为空表示发布失败，交给退避逻辑
	status model.ScheduleStatus
	err    error
}

// publishRun 一次批量发布；batchAt 只用于挑选到期条目，认领、租约与退避按处理时的时钟计算
type publishRun struct {
	svc     *publishServiceImpl
	batchAt time.Time
	result  *PublishResult
}

func (r *publishRun) Ready(ctx context.Context) ([]*model.ScheduleItem, error) {
	return r.svc.scheduleRepo.ListDue(ctx, r.batchAt, 0)
}

func (r *publishRun) Process(ctx context.Context, due *model.ScheduleItem) (publishOutcome, error) {
	s := r.svc
	token := uuid.NewString()
	ok, err := s.scheduleRepo.Claim(ctx, due.ID, token, s.now(), s.policy.ClaimLease)
	if err != nil {
		return publishOutcome{}, fatal(err)
	}
	if !ok {
		return publishOutcome{}, ErrNotClaimed
	}

	item, err := s.scheduleRepo.GetItem(ctx, due.ID)
	if err != nil {
		return publishOutcome{}, fatal(err)
	}
	if item == nil || item.ClaimToken != token {
		return publishOutcome{}, ErrNotClaimed
	}
	out := publishOutcome{item: item}

	if item.Attempts >= s.policy.PublishMaxAttempts {
		out.status = model.ScheduleFailed
		out.err = fmt.Errorf("max attempts reached (%d)", item.Attempts)
		return out, nil
	}

	account, err := s.accountRepo.GetAccount(ctx, item.AccountID)
	if err != nil {
		return out, fatal(err)
	}
	if account == nil || !account.IsEnabled {
		out.status = model.ScheduleSkipped
		out.err = errors.New("account missing or disabled")
		return out, nil
	}
	out.account = account

	draft, err := s.draftRepo.GetDraft(ctx, item.DraftID)
	if err != nil {
		return out, fatal(err)
	}
	if draft == nil {
		out.status = model.ScheduleSkipped
		out.err = errors.New("draft missing")
		return out, nil
	}

	post, err := r.publish(ctx, item, account, draft)
	if err != nil {
		if IsFatal(err) || errors.Is(err, ErrNotClaimed) {
			return out, err
		}
		if errors.Is(err, ErrEmptyThread) {
			out.status = model.ScheduleFailed
		}
		out.err = err
		return out, nil
	}
	out.post = post
	out.status = model.SchedulePosted
	return out, nil
}

// publish 单帖一次调用；线程逐段回复上一段，每段成功后立即落库以便重试续发
func (r *publishRun) publish(ctx context.Context, item *model.ScheduleItem, account *model.Account, draft *model.Draft) (*model.Post, error) {
	s := r.svc
	client, err := s.provider.For(publisher.Account{ID: account.ID, Handle: account.Handle})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublisherMissing, err)
	}

	post := &model.Post{
		AccountID: account.ID,
		DraftID:   &draft.ID,
		IsThread:  draft.IsThread,
		Status:    model.PostStatusPosted,
	}

	if !draft.IsThread {
		res, err := r.call(ctx, client, draft.Content, "")
		if err != nil {
			return nil, err
		}
		post.ExternalPostID, post.ExternalURL = &res.PostID, res.URL
		post.PostedAt = s.now()
		return post, nil
	}

	segments := content.SplitThread(draft.Content)
	if len(segments) == 0 {
		return nil, ErrEmptyThread
	}
	posted := item.Segments
	replyTo := ""
	if last, ok := posted.Last(); ok {
		replyTo = last.PostID
		log.InfoContext(ctx, "resuming thread", "schedule_item_id", item.ID, "posted_segments", len(posted))
	}
	for i := len(posted); i < len(segments); i++ {
		res, err := r.call(ctx, client, segments[i], replyTo)
		if err != nil {
			return nil, fmt.Errorf("thread segment %d/%d: %w", i+1, len(segments), err)
		}
		posted = append(posted, model.PostedSegment{Index: i, PostID: res.PostID, URL: res.URL})
		ok, err := s.scheduleRepo.SaveSegments(ctx, item, posted, s.now().Add(s.policy.ClaimLease))
		if err != nil {
			return nil, fatal(err)
		}
		if !ok {
			// 租约已被其他执行器接管，由对方续发剩余分段
			return nil, fmt.Errorf("thread segment %d/%d: %w", i+1, len(segments), ErrNotClaimed)
		}
		item.Segments = posted
		replyTo = res.PostID
	}

	last, _ := posted.Last()
	post.ExternalPostID, post.ExternalURL = &last.PostID, last.URL
	post.PostedAt = s.now()
	return post, nil
}

func (r *publishRun) call(ctx context.Context, client publisher.Client, text, replyTo string) (publisher.PostResult, error) {
	if timeout := r.svc.policy.CallTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return client.Post(ctx, text, replyTo)
}

func (r *publishRun) Commit(ctx context.Context, _ *model.ScheduleItem, out publishOutcome) error {
	s := r.svc
	item := out.item
	switch out.status {
	case model.SchedulePosted:
		ok, err := s.scheduleRepo.Complete(ctx, item, out.post)
		if errors.Is(err, ErrDuplicateExternalID) {
			log.WarnContext(ctx, "external post id already recorded", "schedule_item_id", item.ID)
			return r.finish(ctx, out, model.ScheduleSkipped, item.Attempts, err.Error())
		}
		if err != nil {
			return err
		}
		if !ok {
			r.result.Skipped++
			return nil
		}
		r.result.Published++
		log.InfoContext(ctx, "post published",
			"schedule_item_id", item.ID, "account_id", item.AccountID, "external_post_id", *out.post.ExternalPostID)
		audit(ctx, s.audit, &model.AuditLog{
			WorkspaceID: out.account.WorkspaceID,
			AccountID:   &item.AccountID,
			EventType:   model.AuditPostPublished,
			Message:     out.post.ExternalURL,
			Meta:        map[string]any{"draft_id": item.DraftID, "post_id": out.post.ID},
		})
		emit(ctx, s.events, &model.PipelineEvent{
			Type:           model.EventPostPublished,
			AccountID:      item.AccountID,
			DraftID:        item.DraftID,
			ScheduleItemID: item.ID,
			ExternalPostID: *out.post.ExternalPostID,
			At:             out.post.PostedAt,
		})
		return nil
	case model.ScheduleSkipped:
		return r.finish(ctx, out, model.ScheduleSkipped, item.Attempts, out.err.Error())
	case model.ScheduleFailed:
		attempts := item.Attempts
		if errors.Is(out.err, ErrEmptyThread) {
			attempts++
		}
		return r.finish(ctx, out, model.ScheduleFailed, attempts, out.err.Error())
	}
	return r.retry(ctx, out)
}

// retry 失败计数加一，达到上限转 failed，否则退避后退回 scheduled
func (r *publishRun) retry(ctx context.Context, out publishOutcome) error {
	item := out.item
	attempts := item.Attempts + 1
	lastError := out.err.Error()
	log.WarnContext(ctx, "publish attempt failed",
		"schedule_item_id", item.ID, "attempts", attempts, "err", out.err)

	if attempts >= r.svc.policy.PublishMaxAttempts {
		return r.finish(ctx, out, model.ScheduleFailed, attempts, lastError)
	}
	next := r.svc.now().Add(r.svc.policy.Backoff(attempts))
	ok, err := r.svc.scheduleRepo.Release(ctx, item, attempts, next, lastError)
	if err != nil {
		return err
	}
	if !ok {
		r.result.Skipped++
		return nil
	}
	r.result.Failed++
	r.notifyFailure(ctx, out, attempts, false)
	return nil
}

func (r *publishRun) finish(ctx context.Context, out publishOutcome, to model.ScheduleStatus, attempts int, lastError string) error {
	ok, err := r.svc.scheduleRepo.Finish(ctx, out.item, to, attempts, lastError)
	if err != nil {
		return err
	}
	if !ok || to == model.ScheduleSkipped {
		r.result.Skipped++
		return nil
	}
	r.result.Failed++
	r.notifyFailure(ctx, out, attempts, true)
	return nil
}

func (r *publishRun) notifyFailure(ctx context.Context, out publishOutcome, attempts int, final bool) {
	item := out.item
	entry := &model.AuditLog{
		AccountID: &item.AccountID,
		EventType: model.AuditPublishFailed,
		Message:   out.err.Error(),
		Meta:      map[string]any{"schedule_item_id": item.ID, "attempts": attempts, "final": final},
	}
	if out.account != nil {
		entry.WorkspaceID = out.account.WorkspaceID
	}
	audit(ctx, r.svc.audit, entry)
	emit(ctx, r.svc.events, &model.PipelineEvent{
		Type:           model.EventPublishFailed,
		AccountID:      item.AccountID,
		DraftID:        item.DraftID,
		ScheduleItemID: item.ID,
		Data:           map[string]any{"attempts": attempts, "final": final, "error": out.err.Error()},
		At:             r.svc.now(),
	})
}
