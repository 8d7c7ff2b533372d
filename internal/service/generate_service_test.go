package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/llm"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var testPrompts = llm.Prompts{
	model.FormatSingle: "Write a post about {title}: {summary} ({url})",
	model.FormatThread: "Write a thread about {title}",
}

type scriptedGenerator struct {
	outputs map[string]string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.outputs[prompt], nil
}

func TestGenerateDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idea := f.idea(t, "compilers", model.IdeaScored)

	svc, err := NewGenerateService(f.ideas, f.drafts, &llm.StubGenerator{Seed: "test"}, testPrompts, "", DefaultPolicy())
	require.NoError(t, err)
	res, err := svc.GenerateDrafts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)

	drafts, err := f.drafts.ListDraftsByStatus(ctx, model.DraftPending, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	d := drafts[0]
	require.Equal(t, idea.ID, *d.IdeaID)
	require.Equal(t, model.FormatSingle, d.Format)
	require.False(t, d.IsThread)
	require.LessOrEqual(t, len([]rune(d.Content)), DefaultMaxSingleLength)
	require.Contains(t, d.Content, "SignalForge draft")

	ideas, err := f.ideas.ListIdeasByStatus(ctx, model.IdeaDrafted, 0)
	require.NoError(t, err)
	require.Len(t, ideas, 1)

	res, err = svc.GenerateDrafts(ctx)
	require.NoError(t, err)
	require.Equal(t, GenerateResult{}, *res)
}

func TestGenerateDraftsSkipsEmptyAndDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.idea(t, "alpha", model.IdeaScored)
	f.idea(t, "beta", model.IdeaScored)
	f.idea(t, "gamma", model.IdeaScored)

	render := func(title string) string {
		return llm.Render(testPrompts[model.FormatSingle], map[string]string{
			"title": title, "summary": "summary of " + title, "url": "",
		})
	}
	gen := &scriptedGenerator{outputs: map[string]string{
		render("alpha"): "same output",
		render("beta"):  "  same   OUTPUT ",
		render("gamma"): "   ",
	}}
	svc, err := NewGenerateService(f.ideas, f.drafts, gen, testPrompts, model.FormatSingle, DefaultPolicy())
	require.NoError(t, err)

	res, err := svc.GenerateDrafts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	require.Equal(t, 2, res.Skipped)
	require.Len(t, gen.prompts, 3)

	dup, err := f.ideas.ListIdeasByStatus(ctx, model.IdeaDuplicate, 0)
	require.NoError(t, err)
	require.Len(t, dup, 1)
	require.Equal(t, "beta", dup[0].Title)

	// 重复的选题不再调用模型，空输出的选题下轮重试
	res, err = svc.GenerateDrafts(ctx)
	require.NoError(t, err)
	require.Equal(t, GenerateResult{Skipped: 1}, *res)
	require.Len(t, gen.prompts, 4)
	require.Equal(t, render("gamma"), gen.prompts[3])
}

func TestGenerateDraftsCountsGeneratorFailures(t *testing.T) {
	f := newFixture(t)
	f.idea(t, "alpha", model.IdeaScored)

	svc, err := NewGenerateService(f.ideas, f.drafts, &scriptedGenerator{err: errors.New("rate limited")},
		testPrompts, model.FormatSingle, DefaultPolicy())
	require.NoError(t, err)
	res, err := svc.GenerateDrafts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)

	ideas, err := f.ideas.ListIdeasByStatus(context.Background(), model.IdeaScored, 0)
	require.NoError(t, err)
	require.Len(t, ideas, 1)
}

func TestGenerateThreadFormat(t *testing.T) {
	f := newFixture(t)
	f.idea(t, "threads", model.IdeaScored)
	gen := &scriptedGenerator{outputs: map[string]string{
		"Write a thread about threads": "1. first point\n2. second point\n3. third point",
	}}
	svc, err := NewGenerateService(f.ideas, f.drafts, gen, testPrompts, model.FormatThread, DefaultPolicy())
	require.NoError(t, err)

	_, err = svc.GenerateDrafts(context.Background())
	require.NoError(t, err)
	drafts, err := f.drafts.ListDraftsByStatus(context.Background(), model.DraftPending, 0)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.True(t, drafts[0].IsThread)
	require.Equal(t, 3, drafts[0].ThreadCount)
}

func TestNewGenerateServiceRejectsUnknownFormat(t *testing.T) {
	_, err := NewGenerateService(nil, nil, &llm.StubGenerator{}, testPrompts, "video", DefaultPolicy())
	require.Error(t, err)
	_, err = NewGenerateService(nil, nil, &llm.StubGenerator{}, llm.Prompts{}, model.FormatSingle, DefaultPolicy())
	require.Error(t, err)
}
