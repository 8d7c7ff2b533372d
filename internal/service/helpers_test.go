package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/content"
	"Signalforge/internal/pkg/database"
	"Signalforge/internal/repository"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	accounts repository.AccountRepo
	sources  repository.SourceRepo
	ideas    repository.IdeaRepo
	drafts   repository.DraftRepo
	schedule repository.ScheduleRepo
	posts    repository.PostRepo
}

func newFixture(t *testing.T) *fixture {
	db := database.NewTestDB(t)
	return &fixture{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		sources:  repository.NewSourceRepository(db),
		ideas:    repository.NewIdeaRepository(db),
		drafts:   repository.NewDraftRepository(db),
		schedule: repository.NewScheduleRepository(db),
		posts:    repository.NewPostRepository(db),
	}
}

func defaultSettings() *model.AccountSettings {
	return &model.AccountSettings{
		Timezone:        "UTC",
		DailyPostMin:    1,
		DailyPostMax:    3,
		AllowedHours:    model.HourSet{9, 11, 13, 15, 17},
		MinSpacingHours: 2,
		MaxThreadLen:    5,
	}
}

func (f *fixture) account(t *testing.T, handle string, settings *model.AccountSettings) *model.Account {
	t.Helper()
	ctx := context.Background()
	account := &model.Account{WorkspaceID: 1, Handle: handle, IsEnabled: true}
	require.NoError(t, f.accounts.CreateAccount(ctx, account))
	if settings != nil {
		settings.AccountID = account.ID
		require.NoError(t, f.accounts.UpsertSettings(ctx, settings))
	}
	return account
}

func (f *fixture) idea(t *testing.T, title string, status model.IdeaStatus) *model.Idea {
	t.Helper()
	idea := &model.Idea{
		WorkspaceID: 1,
		Title:       title,
		Summary:     "summary of " + title,
		Fingerprint: content.Fingerprint(title),
		Status:      status,
	}
	require.NoError(t, f.db.Create(idea).Error)
	return idea
}

type draftOpt func(*model.Draft)

func asThread(d *model.Draft) {
	d.IsThread = true
	d.Format = model.FormatThread
	d.ThreadCount = len(content.SplitThread(d.Content))
}

func withScore(score float64) draftOpt {
	return func(d *model.Draft) { d.Score = score }
}

func withIdea(idea *model.Idea) draftOpt {
	return func(d *model.Draft) { d.IdeaID = &idea.ID }
}

func (f *fixture) draft(t *testing.T, accountID uint64, text string, status model.DraftStatus, opts ...draftOpt) *model.Draft {
	t.Helper()
	d := &model.Draft{
		WorkspaceID:        1,
		AccountID:          &accountID,
		Content:            text,
		ContentFingerprint: content.Fingerprint(text),
		Format:             model.FormatSingle,
		ThreadCount:        1,
		Score:              0.5,
		Status:             status,
	}
	for _, opt := range opts {
		opt(d)
	}
	require.NoError(t, f.db.Create(d).Error)
	return d
}

// dueItem 已到期的排期
func (f *fixture) dueItem(t *testing.T, accountID uint64, d *model.Draft) *model.ScheduleItem {
	t.Helper()
	item := &model.ScheduleItem{AccountID: accountID, DraftID: d.ID, ScheduledFor: testNow.Add(-time.Minute)}
	ok, err := f.schedule.CreateSlot(context.Background(), item)
	require.NoError(t, err)
	require.True(t, ok)
	return item
}

func (f *fixture) reloadItem(t *testing.T, id uint64) *model.ScheduleItem {
	t.Helper()
	item, err := f.schedule.GetItem(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item
}

func (f *fixture) reloadDraft(t *testing.T, id uint64) *model.Draft {
	t.Helper()
	d, err := f.drafts.GetDraft(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func (f *fixture) countPosts(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Post{}).Count(&n).Error)
	return n
}

// mutableClock 测试中可推进的时钟
type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *mutableClock {
	return &mutableClock{now: t}
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// scriptedRand 按脚本依次返回，脚本用尽后返回 0
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return min(v, n-1)
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, entry *model.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *memoryAudit) types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.EventType)
	}
	return out
}

type memoryEvents struct {
	mu     sync.Mutex
	events []*model.PipelineEvent
}

func (e *memoryEvents) Emit(_ context.Context, event *model.PipelineEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

type memorySwitch struct {
	disabled bool
	err      error
}

func (s *memorySwitch) Stopped(context.Context) (bool, error) {
	return s.disabled, s.err
}

func (s *memorySwitch) Set(_ context.Context, stopped bool) error {
	s.disabled = stopped
	return nil
}

var errPlatformDown = errors.New("platform unavailable")
