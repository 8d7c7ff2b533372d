package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/repository"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	p := DefaultPolicy()
	linkSettings := &model.AccountSettings{AllowLinks: true, LinkPostRatio: 0.5, ThreadRatio: 0.5, MaxThreadLen: 3}
	idea := &model.Idea{Summary: "the quick brown fox jumps over the lazy dog"}

	tests := []struct {
		name     string
		draft    *model.Draft
		settings *model.AccountSettings
		pool     []repository.DraftText
		want     string
	}{
		{
			name:  "passes",
			draft: &model.Draft{ID: 1, Content: "an original thought about compilers"},
			want:  "",
		},
		{
			name:  "single too long",
			draft: &model.Draft{ID: 1, Content: strings.Repeat("a", 241)},
			want:  ReasonLength,
		},
		{
			name:  "single at limit",
			draft: &model.Draft{ID: 1, Content: strings.Repeat("a", 240)},
			want:  "",
		},
		{
			name:     "thread segment too long",
			draft:    &model.Draft{ID: 1, IsThread: true, ThreadCount: 2, Content: "1. short\n2. " + strings.Repeat("b", 261)},
			settings: linkSettings,
			want:     ReasonThreadLength,
		},
		{
			name:  "unsafe",
			draft: &model.Draft{ID: 1, Content: "they are vermin"},
			want:  ReasonSafety,
		},
		{
			name:  "link without settings",
			draft: &model.Draft{ID: 1, Content: "read https://example.com"},
			want:  ReasonLinkPolicy,
		},
		{
			name:     "link allowed",
			draft:    &model.Draft{ID: 1, Content: "read https://example.com"},
			settings: linkSettings,
			want:     "",
		},
		{
			name:     "links disallowed",
			draft:    &model.Draft{ID: 1, Content: "read http://example.com"},
			settings: &model.AccountSettings{AllowLinks: false, LinkPostRatio: 1},
			want:     ReasonLinkPolicy,
		},
		{
			name:     "thread too many segments",
			draft:    &model.Draft{ID: 1, IsThread: true, ThreadCount: 4, Content: "1. a\n2. b\n3. c\n4. d"},
			settings: linkSettings,
			want:     ReasonThreadLimit,
		},
		{
			name:     "threads disabled",
			draft:    &model.Draft{ID: 1, IsThread: true, ThreadCount: 2, Content: "1. a\n2. b"},
			settings: &model.AccountSettings{MaxThreadLen: 5},
			want:     ReasonThreadRatio,
		},
		{
			name:  "thread policy skipped without settings",
			draft: &model.Draft{ID: 1, IsThread: true, ThreadCount: 9, Content: "1. a\n2. b"},
			want:  "",
		},
		{
			name:  "copies source",
			draft: &model.Draft{ID: 1, Content: "The quick brown fox jumps over the lazy dog", Idea: idea},
			want:  ReasonSourceSimilarity,
		},
		{
			name:  "near duplicate of another draft",
			draft: &model.Draft{ID: 1, Content: "rust and go are both fine choices"},
			pool:  []repository.DraftText{{ID: 2, Content: "Rust and Go are both fine choices"}},
			want:  ReasonSimilarity,
		},
		{
			name:  "ignores itself",
			draft: &model.Draft{ID: 1, Content: "rust and go are both fine choices"},
			pool:  []repository.DraftText{{ID: 1, Content: "rust and go are both fine choices"}},
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, p.Evaluate(tt.draft, tt.settings, tt.pool).Reason)
		})
	}
}

func TestEvaluateOverriddenThresholds(t *testing.T) {
	p := DefaultPolicy()
	p.MaxSingleLength = 10
	require.Equal(t, ReasonLength, p.Evaluate(&model.Draft{Content: "eleven char"}, nil, nil).Reason)
}

func TestCheckDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.account(t, "alice", defaultSettings())
	first := f.draft(t, account.ID, "a fresh take on build caches", model.DraftPending)
	unsafe := f.draft(t, account.ID, "exterminate them all", model.DraftPending)
	second := f.draft(t, account.ID, "a fresh take on build caches!", model.DraftPending)
	rejected := f.draft(t, account.ID, "the same words as an old rejected draft", model.DraftRejected)
	echo := f.draft(t, account.ID, "The same words as an old rejected draft", model.DraftPending)

	audit := &memoryAudit{}
	svc := NewGuardrailsService(f.drafts, f.accounts, audit, DefaultPolicy())
	res, err := svc.CheckDrafts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Approved)
	require.Equal(t, 2, res.Rejected)

	// 近似的一对中先审核的被拒，之后另一条不再与之比对
	got := f.reloadDraft(t, first.ID)
	require.Equal(t, model.DraftRejected, got.Status)
	require.Equal(t, ReasonSimilarity, got.RejectReason)
	require.Equal(t, model.DraftApproved, f.reloadDraft(t, second.ID).Status)

	got = f.reloadDraft(t, unsafe.ID)
	require.Equal(t, model.DraftRejected, got.Status)
	require.Equal(t, ReasonSafety, got.RejectReason)

	// 已拒绝的草稿不参与相似度比对
	require.Equal(t, model.DraftApproved, f.reloadDraft(t, echo.ID).Status)
	require.Equal(t, model.DraftRejected, f.reloadDraft(t, rejected.ID).Status)
	require.Equal(t, []string{model.AuditDraftRejected, model.AuditDraftRejected}, audit.types())

	// 再次运行不改变任何草稿
	res, err = svc.CheckDrafts(ctx)
	require.NoError(t, err)
	require.Equal(t, GuardrailResult{}, *res)
}
