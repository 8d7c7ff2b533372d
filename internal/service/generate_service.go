package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/content"
	"Signalforge/internal/pkg/llm"
	"Signalforge/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
)

// DefaultThreadMaxChars 线程整体字符预算
const DefaultThreadMaxChars = 1000

// DraftFormat 生成格式：提示词模板名即格式名
type DraftFormat struct {
	Name     string
	MaxChars int
	IsThread bool
}

// Formats 内置格式，预算与审核阈值保持一致
func (p Policy) Formats() map[string]DraftFormat {
	return map[string]DraftFormat{
		model.FormatSingle: {Name: model.FormatSingle, MaxChars: p.MaxSingleLength},
		model.FormatThread: {Name: model.FormatThread, MaxChars: DefaultThreadMaxChars, IsThread: true},
	}
}

type GenerateResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r *GenerateResult) Counts() map[string]int {
	return map[string]int{"created": r.Created, "skipped": r.Skipped, "failed": r.Failed}
}

type GenerateService interface {
	// GenerateDrafts 为已打分且无草稿的选题生成草稿
	GenerateDrafts(ctx context.Context) (*GenerateResult, error)
}

type generateServiceImpl struct {
	ideaRepo  repository.IdeaRepo
	draftRepo repository.DraftRepo
	generator llm.Generator
	prompts   llm.Prompts
	format    DraftFormat
	policy    Policy
}

func NewGenerateService(
	ideaRepo repository.IdeaRepo,
	draftRepo repository.DraftRepo,
	generator llm.Generator,
	prompts llm.Prompts,
	format string,
	policy Policy,
) (GenerateService, error) {
	if format == "" {
		format = model.FormatSingle
	}
	f, ok := policy.Formats()[format]
	if !ok {
		return nil, fmt.Errorf("unknown draft format %q", format)
	}
	if _, ok = prompts[format]; !ok {
		return nil, fmt.Errorf("prompt template for %q not loaded", format)
	}
	return &generateServiceImpl{
		ideaRepo:  ideaRepo,
		draftRepo: draftRepo,
		generator: generator,
		prompts:   prompts,
		format:    f,
		policy:    policy,
	}, nil
}

var errEmptyOutput = errors.New("generator returned empty content")

func (s *generateServiceImpl) GenerateDrafts(ctx context.Context) (*GenerateResult, error) {
	run := &generateRun{svc: s, result: &GenerateResult{}}
	if err := Drain[*model.Idea, *model.Draft](ctx, "generate", run, func(idea *model.Idea, err error) {
		if errors.Is(err, errEmptyOutput) {
			run.result.Skipped++
			return
		}
		run.result.Failed++
		log.WarnContext(ctx, "draft generation failed", "idea_id", idea.ID, "err", err)
	}); err != nil {
		return run.result, err
	}
	log.InfoContext(ctx, "generate_drafts complete",
		"created", run.result.Created, "skipped", run.result.Skipped, "failed", run.result.Failed)
	return run.result, nil
}

type generateRun struct {
	svc    *generateServiceImpl
	result *GenerateResult
}

func (r *generateRun) Ready(ctx context.Context) ([]*model.Idea, error) {
	return r.svc.ideaRepo.ListScoredWithoutDraft(ctx, 0)
}

func (r *generateRun) Process(ctx context.Context, idea *model.Idea) (*model.Draft, error) {
	s := r.svc
	prompt := llm.Render(s.prompts[s.format.Name], map[string]string{
		"title":   idea.Title,
		"summary": idea.Summary,
		"url":     idea.URL,
	})

	genCtx := ctx
	if s.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.policy.CallTimeout)
		defer cancel()
	}
	text, err := s.generator.Generate(genCtx, prompt, s.format.MaxChars)
	if err != nil {
		return nil, err
	}
	text = llm.Truncate(text, s.format.MaxChars)
	if text == "" {
		return nil, errEmptyOutput
	}

	threadCount := 1
	if s.format.IsThread {
		threadCount = len(content.SplitThread(text))
	}
	return &model.Draft{
		WorkspaceID:        idea.WorkspaceID,
		AccountID:          idea.AccountID,
		IdeaID:             &idea.ID,
		Content:            text,
		ContentFingerprint: content.Fingerprint(text),
		Format:             s.format.Name,
		IsThread:           s.format.IsThread,
		ThreadCount:        threadCount,
		Score:              idea.Score,
		Status:             model.DraftPending,
	}, nil
}

func (r *generateRun) Commit(ctx context.Context, idea *model.Idea, draft *model.Draft) error {
	ok, err := r.svc.draftRepo.CreateFromIdea(ctx, draft)
	if err != nil {
		return err
	}
	if !ok {
		r.result.Skipped++
		log.DebugContext(ctx, "duplicate draft content", "idea_id", idea.ID)
		return nil
	}
	r.result.Created++
	return nil
}
