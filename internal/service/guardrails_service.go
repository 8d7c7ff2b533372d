package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/content"
	"Signalforge/internal/repository"
	"context"
	log "log/slog"
)

// 拒绝原因
const (
	ReasonLength           = "length"
	ReasonThreadLength     = "thread_length"
	ReasonSafety           = "safety"
	ReasonLinkPolicy       = "link_policy"
	ReasonThreadLimit      = "thread_limit"
	ReasonThreadRatio      = "thread_ratio"
	ReasonSourceSimilarity = "source_similarity"
	ReasonSimilarity       = "similarity"
)

type GuardrailResult struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

func (r *GuardrailResult) Counts() map[string]int {
	return map[string]int{"approved": r.Approved, "rejected": r.Rejected, "skipped": r.Skipped}
}

// Verdict 审核结论，Reason 为空表示通过
type Verdict struct {
	Reason string
}

func (v Verdict) Approved() bool {
	return v.Reason == ""
}

type GuardrailsService interface {
	// CheckDrafts 审核所有 draft 状态的草稿
	CheckDrafts(ctx context.Context) (*GuardrailResult, error)
}

type guardrailsServiceImpl struct {
	draftRepo   repository.DraftRepo
	accountRepo repository.AccountRepo
	audit       AuditSink
	policy      Policy
}

func NewGuardrailsService(draftRepo repository.DraftRepo, accountRepo repository.AccountRepo, audit AuditSink, policy Policy) GuardrailsService {
	return &guardrailsServiceImpl{draftRepo: draftRepo, accountRepo: accountRepo, audit: audit, policy: policy}
}

// Evaluate 按顺序执行各项检查，首个失败项即为拒绝原因
func (p Policy) Evaluate(draft *model.Draft, settings *model.AccountSettings, pool []repository.DraftText) Verdict {
	if draft.IsThread {
		for _, seg := range content.SplitThread(draft.Content) {
			if content.Length(seg) > p.MaxSegmentLength {
				return Verdict{Reason: ReasonThreadLength}
			}
		}
	} else if content.Length(draft.Content) > p.MaxSingleLength {
		return Verdict{Reason: ReasonLength}
	}

	if p.Blocklist != nil && p.Blocklist.Contains(draft.Content) {
		return Verdict{Reason: ReasonSafety}
	}

	if content.ContainsLink(draft.Content) {
		if settings == nil || !settings.AllowLinks || settings.LinkPostRatio <= 0 {
			return Verdict{Reason: ReasonLinkPolicy}
		}
	}

	if draft.IsThread && settings != nil {
		declared := draft.ThreadCount
		if declared == 0 {
			declared = len(content.SplitThread(draft.Content))
		}
		if declared > settings.MaxThreadLen {
			return Verdict{Reason: ReasonThreadLimit}
		}
		if settings.ThreadRatio <= 0 {
			return Verdict{Reason: ReasonThreadRatio}
		}
	}

	if draft.Idea != nil {
		for _, source := range []string{draft.Idea.Summary, draft.Idea.RawContent} {
			if content.IsSimilar(draft.Content, source, p.SourceSimilarity) {
				return Verdict{Reason: ReasonSourceSimilarity}
			}
		}
	}

	for _, other := range pool {
		if other.ID == draft.ID {
			continue
		}
		if content.IsSimilar(draft.Content, other.Content, p.DraftSimilarity) {
			return Verdict{Reason: ReasonSimilarity}
		}
	}

	return Verdict{}
}

func (s *guardrailsServiceImpl) CheckDrafts(ctx context.Context) (*GuardrailResult, error) {
	run := &guardrailsRun{svc: s, result: &GuardrailResult{}, settings: make(map[uint64]*model.AccountSettings)}
	if err := Drain[*model.Draft, Verdict](ctx, "guardrails", run, nil); err != nil {
		return run.result, err
	}
	log.InfoContext(ctx, "guardrails_check complete",
		"approved", run.result.Approved, "rejected", run.result.Rejected, "skipped", run.result.Skipped)
	return run.result, nil
}

type guardrailsRun struct {
	svc      *guardrailsServiceImpl
	result   *GuardrailResult
	pool     []repository.DraftText
	settings map[uint64]*model.AccountSettings
}

func (r *guardrailsRun) Ready(ctx context.Context) ([]*model.Draft, error) {
	drafts, err := r.svc.draftRepo.ListDraftsByStatus(ctx, model.DraftPending, 0)
	if err != nil {
		return nil, err
	}
	r.pool, err = r.svc.draftRepo.ListDraftTexts(ctx, model.ActiveDraftStatuses)
	return drafts, err
}

func (r *guardrailsRun) Process(ctx context.Context, draft *model.Draft) (Verdict, error) {
	var settings *model.AccountSettings
	if draft.AccountID != nil {
		cached, ok := r.settings[*draft.AccountID]
		if !ok {
			var err error
			cached, err = r.svc.accountRepo.GetSettings(ctx, *draft.AccountID)
			if err != nil {
				return Verdict{}, fatal(err)
			}
			r.settings[*draft.AccountID] = cached
		}
		settings = cached
	}
	return r.svc.policy.Evaluate(draft, settings, r.pool), nil
}

func (r *guardrailsRun) Commit(ctx context.Context, draft *model.Draft, verdict Verdict) error {
	if verdict.Approved() {
		ok, err := r.svc.draftRepo.Approve(ctx, draft.ID)
		if err != nil {
			return err
		}
		if ok {
			r.result.Approved++
		} else {
			r.result.Skipped++
		}
		return nil
	}

	ok, err := r.svc.draftRepo.Reject(ctx, draft.ID, verdict.Reason)
	if err != nil {
		return err
	}
	if !ok {
		r.result.Skipped++
		return nil
	}
	r.result.Rejected++
	r.dropFromPool(draft.ID)
	log.InfoContext(ctx, "draft rejected", "draft_id", draft.ID, "reason", verdict.Reason)
	audit(ctx, r.svc.audit, &model.AuditLog{
		WorkspaceID: draft.WorkspaceID,
		AccountID:   draft.AccountID,
		EventType:   model.AuditDraftRejected,
		Message:     verdict.Reason,
		Meta:        map[string]any{"draft_id": draft.ID},
	})
	return nil
}

// dropFromPool 已拒绝的草稿不再参与相似度比对
func (r *guardrailsRun) dropFromPool(id uint64) {
	for i, d := range r.pool {
		if d.ID == id {
			r.pool = append(r.pool[:i], r.pool[i+1:]...)
			return
		}
	}
}
