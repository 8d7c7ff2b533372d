package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/content"
	"Signalforge/internal/pkg/feed"
	"Signalforge/internal/pkg/minio"
	"Signalforge/internal/repository"
	"context"
	"errors"
	log "log/slog"
)

// Archiver 原始订阅源归档，MinIO 实现见 pkg/minio
type Archiver interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

type IngestResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (r *IngestResult) Counts() map[string]int {
	return map[string]int{"inserted": r.Inserted, "skipped": r.Skipped, "failed": r.Failed}
}

type IngestService interface {
	// IngestSources 拉取所有启用的订阅源并写入选题
	IngestSources(ctx context.Context) (*IngestResult, error)
	CreateSource(ctx context.Context, source *model.Source) error
	ListSources(ctx context.Context, workspaceID uint64) ([]*model.Source, error)
}

type ingestServiceImpl struct {
	sourceRepo  repository.SourceRepo
	accountRepo repository.AccountRepo
	ideaRepo    repository.IdeaRepo
	fetcher     feed.Fetcher
	enricher    feed.Enricher
	archive     Archiver
	policy      Policy
	now         Clock
}

// NewIngestService enricher、archive 可为 nil
func NewIngestService(
	sourceRepo repository.SourceRepo,
	accountRepo repository.AccountRepo,
	ideaRepo repository.IdeaRepo,
	fetcher feed.Fetcher,
	enricher feed.Enricher,
	archive Archiver,
	policy Policy,
	now Clock,
) IngestService {
	return &ingestServiceImpl{
		sourceRepo:  sourceRepo,
		accountRepo: accountRepo,
		ideaRepo:    ideaRepo,
		fetcher:     fetcher,
		enricher:    enricher,
		archive:     archive,
		policy:      policy,
		now:         now,
	}
}

// IdeaFingerprint 标题、链接、摘要共同决定选题唯一性
func IdeaFingerprint(e feed.Entry) string {
	return content.Fingerprint(e.Title, e.URL, e.Summary)
}

func (s *ingestServiceImpl) CreateSource(ctx context.Context, source *model.Source) error {
	if source.URL == "" {
		return ErrParamInvalid
	}
	if source.Type == "" {
		source.Type = model.SourceTypeRSS
	}
	if source.AccountID != nil {
		account, err := s.accountRepo.GetAccount(ctx, *source.AccountID)
		if err != nil {
			return err
		}
		if account == nil || account.WorkspaceID != source.WorkspaceID {
			return ErrAccountNotFound
		}
	}
	return s.sourceRepo.CreateSource(ctx, source)
}

func (s *ingestServiceImpl) ListSources(ctx context.Context, workspaceID uint64) ([]*model.Source, error) {
	return s.sourceRepo.ListSources(ctx, workspaceID)
}

// errSourceInactive 订阅源所属账号缺失或已停用
var errSourceInactive = errors.New("source account missing or disabled")

func (s *ingestServiceImpl) IngestSources(ctx context.Context) (*IngestResult, error) {
	run := &ingestRun{svc: s, result: &IngestResult{}}
	if err := Drain[*model.Source, *feed.Result](ctx, "ingest", run, func(src *model.Source, err error) {
		if errors.Is(err, errSourceInactive) {
			log.DebugContext(ctx, "source skipped", "source_id", src.ID)
			return
		}
		run.result.Failed++
		log.ErrorContext(ctx, "feed fetch failed", "source_id", src.ID, "url", src.URL, "err", err)
	}); err != nil {
		return run.result, err
	}
	log.InfoContext(ctx, "ingest_sources complete",
		"inserted", run.result.Inserted, "skipped", run.result.Skipped, "failed", run.result.Failed)
	return run.result, nil
}

type ingestRun struct {
	svc    *ingestServiceImpl
	result *IngestResult
}

func (r *ingestRun) Ready(ctx context.Context) ([]*model.Source, error) {
	return r.svc.sourceRepo.ListEnabledSources(ctx)
}

func (r *ingestRun) Process(ctx context.Context, src *model.Source) (*feed.Result, error) {
	s := r.svc
	if src.AccountID != nil {
		account, err := s.accountRepo.GetAccount(ctx, *src.AccountID)
		if err != nil {
			return nil, fatal(err)
		}
		if account == nil || !account.IsEnabled {
			return nil, errSourceInactive
		}
	}

	fetchCtx, cancel := r.bounded(ctx)
	defer cancel()
	res, err := s.fetcher.Fetch(fetchCtx, src.URL)
	if err != nil {
		return nil, err
	}

	if s.archive != nil && len(res.Raw) > 0 {
		key := minio.ObjectKey(src.ID, s.now())
		if _, err = s.archive.Put(ctx, key, res.Raw, "application/xml"); err != nil {
			log.WarnContext(ctx, "archive feed failed", "source_id", src.ID, "err", err)
		}
	}

	if s.enricher != nil {
		for i := range res.Entries {
			r.enrich(ctx, &res.Entries[i])
		}
	}
	return res, nil
}

// enrich 条目缺少正文时抓取原文，失败不影响入库
func (r *ingestRun) enrich(ctx context.Context, entry *feed.Entry) {
	if entry.Content != "" || entry.URL == "" {
		return
	}
	enrichCtx, cancel := r.bounded(ctx)
	defer cancel()
	text, err := r.svc.enricher.Extract(enrichCtx, entry.URL)
	if err != nil {
		log.DebugContext(ctx, "article extraction failed", "url", entry.URL, "err", err)
		return
	}
	entry.Content = text
}

func (r *ingestRun) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := r.svc.policy.CallTimeout; timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func (r *ingestRun) Commit(ctx context.Context, src *model.Source, res *feed.Result) error {
	for _, entry := range res.Entries {
		idea := &model.Idea{
			WorkspaceID: src.WorkspaceID,
			AccountID:   src.AccountID,
			SourceID:    &src.ID,
			Title:       entry.Title,
			Summary:     entry.Summary,
			URL:         entry.URL,
			PublishedAt: entry.PublishedAt,
			RawContent:  entry.Content,
			Fingerprint: IdeaFingerprint(entry),
			Status:      model.IdeaNew,
		}
		ok, err := r.svc.ideaRepo.InsertIdea(ctx, idea)
		if err != nil {
			return err
		}
		if ok {
			r.result.Inserted++
		} else {
			r.result.Skipped++
		}
	}
	return r.svc.sourceRepo.MarkIngested(ctx, src.ID, r.svc.now())
}
