package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/feed"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	feeds   map[string]*feed.Result
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*feed.Result, error) {
	f.fetched = append(f.fetched, url)
	res, ok := f.feeds[url]
	if !ok {
		return nil, errors.New("404")
	}
	return res, nil
}

type fakeEnricher struct {
	text string
}

func (e *fakeEnricher) Extract(context.Context, string) (string, error) {
	return e.text, nil
}

type memoryArchive struct {
	objects map[string][]byte
}

func (a *memoryArchive) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	a.objects[name] = data
	return name, nil
}

func TestIngestSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	account := f.account(t, "alice", nil)
	disabled := f.account(t, "bob", nil)
	_, err := f.accounts.UpdateAccount(ctx, disabled.ID, map[string]any{"is_enabled": false})
	require.NoError(t, err)

	published := testNow.Add(-time.Hour)
	fetcher := &fakeFetcher{feeds: map[string]*feed.Result{
		"https://blog.test/rss": {
			Raw: []byte("<rss/>"),
			Entries: []feed.Entry{
				{Title: "Post one", URL: "https://blog.test/1", Summary: "first", PublishedAt: &published},
				{Title: "Post two", URL: "https://blog.test/2", Summary: "second", Content: "full body"},
				{Title: "Post one", URL: "https://blog.test/1", Summary: "first"},
			},
		},
		"https://muted.test/rss": {Entries: []feed.Entry{{Title: "never", URL: "https://muted.test/1"}}},
	}}
	for _, src := range []*model.Source{
		{WorkspaceID: 1, AccountID: &account.ID, URL: "https://blog.test/rss", IsEnabled: true},
		{WorkspaceID: 1, URL: "https://broken.test/rss", IsEnabled: true},
		{WorkspaceID: 1, AccountID: &disabled.ID, URL: "https://muted.test/rss", IsEnabled: true},
	} {
		require.NoError(t, f.sources.CreateSource(ctx, src))
	}

	archive := &memoryArchive{objects: map[string][]byte{}}
	svc := NewIngestService(f.sources, f.accounts, f.ideas, fetcher, &fakeEnricher{text: "extracted"}, archive,
		DefaultPolicy(), func() time.Time { return testNow })
	res, err := svc.IngestSources(ctx)
	require.NoError(t, err)
	require.Equal(t, IngestResult{Inserted: 2, Skipped: 1, Failed: 1}, *res)
	require.NotContains(t, fetcher.fetched, "https://muted.test/rss")
	require.Len(t, archive.objects, 1)

	ideas, err := f.ideas.ListIdeasByStatus(ctx, model.IdeaNew, 0)
	require.NoError(t, err)
	require.Len(t, ideas, 2)
	require.Equal(t, "extracted", ideas[0].RawContent)
	require.Equal(t, "full body", ideas[1].RawContent)
	require.Equal(t, account.ID, *ideas[0].AccountID)
	require.True(t, ideas[0].PublishedAt.Equal(published))

	sources, err := svc.ListSources(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, sources[0].LastIngestedAt)
	require.Nil(t, sources[1].LastIngestedAt)

	// 重复拉取只计入 skipped
	res, err = svc.IngestSources(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Inserted)
	require.Equal(t, 3, res.Skipped)
}

func TestIdeaFingerprintNormalizes(t *testing.T) {
	a := IdeaFingerprint(feed.Entry{Title: "Hello  World", URL: "https://x.test", Summary: "S"})
	b := IdeaFingerprint(feed.Entry{Title: "hello world", URL: "https://X.test", Summary: "s "})
	require.Equal(t, a, b)
}

func TestCreateSourceValidates(t *testing.T) {
	f := newFixture(t)
	svc := NewIngestService(f.sources, f.accounts, f.ideas, &fakeFetcher{}, nil, nil, DefaultPolicy(), SystemClock)
	ctx := context.Background()

	require.ErrorIs(t, svc.CreateSource(ctx, &model.Source{WorkspaceID: 1}), ErrParamInvalid)
	missing := uint64(99)
	require.ErrorIs(t, svc.CreateSource(ctx, &model.Source{WorkspaceID: 1, URL: "https://x.test", AccountID: &missing}), ErrAccountNotFound)

	foreign := f.account(t, "alice", nil)
	require.ErrorIs(t, svc.CreateSource(ctx, &model.Source{WorkspaceID: 2, URL: "https://x.test", AccountID: &foreign.ID}), ErrAccountNotFound)

	src := &model.Source{WorkspaceID: 1, URL: "https://x.test", IsEnabled: true}
	require.NoError(t, svc.CreateSource(ctx, src))
	require.Equal(t, model.SourceTypeRSS, src.Type)
}
