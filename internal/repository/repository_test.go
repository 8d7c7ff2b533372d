package repository

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/content"
	"Signalforge/internal/pkg/database"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func seedDraft(t *testing.T, db *gorm.DB, accountID uint64, text string, status model.DraftStatus) *model.Draft {
	t.Helper()
	d := &model.Draft{
		WorkspaceID:        1,
		AccountID:          &accountID,
		Content:            text,
		ContentFingerprint: content.Fingerprint(text),
		Format:             model.FormatSingle,
		Status:             status,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

func seedAccount(t *testing.T, db *gorm.DB) *model.Account {
	t.Helper()
	a := &model.Account{WorkspaceID: 1, Handle: "alice", IsEnabled: true}
	require.NoError(t, NewAccountRepository(db).CreateAccount(context.Background(), a))
	return a
}

func TestCasStatusRejectsIllegalTransition(t *testing.T) {
	db := database.NewTestDB(t)
	d := seedDraft(t, db, 1, "x", model.DraftPending)

	_, err := casStatus(db, &model.Draft{}, d.ID, model.DraftPending, model.DraftPosted, nil)
	require.ErrorIs(t, err, model.ErrIllegalTransition)

	ok, err := casStatus(db, &model.Draft{}, d.ID, model.DraftApproved, model.DraftScheduled, nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCreateSlotRequiresApprovedDraft(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()
	a := seedAccount(t, db)
	pending := seedDraft(t, db, a.ID, "pending", model.DraftPending)
	approved := seedDraft(t, db, a.ID, "approved", model.DraftApproved)

	ok, err := repo.CreateSlot(ctx, &model.ScheduleItem{AccountID: a.ID, DraftID: pending.ID, ScheduledFor: now})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.CreateSlot(ctx, &model.ScheduleItem{AccountID: a.ID, DraftID: approved.ID, ScheduledFor: now})
	require.NoError(t, err)
	require.True(t, ok)

	// 同一草稿不会被排两次
	ok, err = repo.CreateSlot(ctx, &model.ScheduleItem{AccountID: a.ID, DraftID: approved.ID, ScheduledFor: now.Add(time.Hour)})
	require.NoError(t, err)
	require.False(t, ok)

	var n int64
	require.NoError(t, db.Model(&model.ScheduleItem{}).Count(&n).Error)
	require.EqualValues(t, 1, n)
}

func TestClaimLease(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()
	a := seedAccount(t, db)
	item := &model.ScheduleItem{AccountID: a.ID, DraftID: seedDraft(t, db, a.ID, "d", model.DraftApproved).ID, ScheduledFor: now.Add(-time.Minute)}
	ok, err := repo.CreateSlot(ctx, item)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Claim(ctx, item.ID, "worker-a", now, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.Claim(ctx, item.ID, "worker-b", now, 5*time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	due, err := repo.ListDue(ctx, now.Add(time.Minute), 0)
	require.NoError(t, err)
	require.Empty(t, due)

	// 租约过期后可被其他执行器接管
	later := now.Add(6 * time.Minute)
	due, err = repo.ListDue(ctx, later, 0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	ok, err = repo.Claim(ctx, item.ID, "worker-b", later, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// 被接管后原持有者的写入全部失效
	item.ClaimToken = "worker-a"
	ok, err = repo.SaveSegments(ctx, item, model.SegmentList{{Index: 0, PostID: "a1"}}, later.Add(5*time.Minute))
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = repo.Release(ctx, item, 1, later, "timeout")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = repo.Complete(ctx, item, &model.Post{AccountID: a.ID, PostedAt: later})
	require.NoError(t, err)
	require.False(t, ok)

	got, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, "worker-b", got.ClaimToken)
	require.Equal(t, model.SchedulePublishing, got.Status)
	require.Empty(t, got.Segments)
}

func TestSaveSegmentsRenewsLease(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()
	a := seedAccount(t, db)
	item := &model.ScheduleItem{AccountID: a.ID, DraftID: seedDraft(t, db, a.ID, "d", model.DraftApproved).ID, ScheduledFor: now.Add(-time.Minute)}
	_, err := repo.CreateSlot(ctx, item)
	require.NoError(t, err)

	ok, err := repo.Claim(ctx, item.ID, "worker-a", now, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	item.ClaimToken = "worker-a"

	// 每段落库都把租约顺延到该时刻之后
	at := now.Add(4 * time.Minute)
	ok, err = repo.SaveSegments(ctx, item, model.SegmentList{{Index: 0, PostID: "a1"}}, at.Add(5*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	due, err := repo.ListDue(ctx, now.Add(6*time.Minute), 0)
	require.NoError(t, err)
	require.Empty(t, due)
	ok, err = repo.Claim(ctx, item.ID, "worker-b", now.Add(6*time.Minute), 5*time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, got.Segments, 1)
	require.True(t, got.LockedUntil.Equal(at.Add(5*time.Minute)))
}

func TestCompleteAndCommittedTimes(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()
	a := seedAccount(t, db)
	d := seedDraft(t, db, a.ID, "d", model.DraftApproved)
	item := &model.ScheduleItem{AccountID: a.ID, DraftID: d.ID, ScheduledFor: now.Add(-time.Minute)}
	_, err := repo.CreateSlot(ctx, item)
	require.NoError(t, err)

	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	times, err := repo.CommittedTimes(ctx, a.ID, dayStart, dayStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, times, 1)

	ok, err := repo.Claim(ctx, item.ID, "worker-a", now, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	item.ClaimToken = "worker-a"
	ext := "ext-1"
	post := &model.Post{AccountID: a.ID, DraftID: &d.ID, ExternalPostID: &ext, PostedAt: now, Status: model.PostStatusPosted}
	ok, err = repo.Complete(ctx, item, post)
	require.NoError(t, err)
	require.True(t, ok)

	// 条目已是 posted，只按帖子计一次
	times, err = repo.CommittedTimes(ctx, a.ID, dayStart, dayStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, times, 1)
	require.True(t, times[0].Equal(now))

	var got model.Draft
	require.NoError(t, db.First(&got, d.ID).Error)
	require.Equal(t, model.DraftPosted, got.Status)

	// 未认领的条目不能完成
	ok, err = repo.Complete(ctx, item, &model.Post{AccountID: a.ID, PostedAt: now})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompleteDuplicateExternalID(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()
	a := seedAccount(t, db)
	ext := "dup"
	require.NoError(t, db.Create(&model.Post{AccountID: a.ID, ExternalPostID: &ext, PostedAt: now}).Error)

	item := &model.ScheduleItem{AccountID: a.ID, DraftID: seedDraft(t, db, a.ID, "d", model.DraftApproved).ID, ScheduledFor: now}
	_, err := repo.CreateSlot(ctx, item)
	require.NoError(t, err)
	_, err = repo.Claim(ctx, item.ID, "worker-a", now, time.Minute)
	require.NoError(t, err)
	item.ClaimToken = "worker-a"

	ok, err := repo.Complete(ctx, item, &model.Post{AccountID: a.ID, ExternalPostID: &ext, PostedAt: now})
	require.ErrorIs(t, err, ErrDuplicateExternalID)
	require.False(t, ok)

	got, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, model.SchedulePublishing, got.Status)
}

func TestInsertIdeaIgnoresDuplicateFingerprint(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewIdeaRepository(db)
	ctx := context.Background()

	idea := func() *model.Idea {
		return &model.Idea{WorkspaceID: 1, Title: "t", Fingerprint: "fp", Status: model.IdeaNew}
	}
	ok, err := repo.InsertIdea(ctx, idea())
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.InsertIdea(ctx, idea())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMergeFormatWeights(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()
	a := seedAccount(t, db)

	ok, err := repo.MergeFormatWeights(ctx, a.ID, map[string]float64{"thread": 1.5})
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.UpsertSettings(ctx, &model.AccountSettings{
		AccountID: a.ID, Timezone: "UTC", FormatWeights: model.WeightMap{"tweet_single": 0.7},
	}))
	ok, err = repo.MergeFormatWeights(ctx, a.ID, map[string]float64{"thread": 1.5})
	require.NoError(t, err)
	require.True(t, ok)

	s, err := repo.GetSettings(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, model.WeightMap{"tweet_single": 0.7, "thread": 1.5}, s.FormatWeights)
	require.Equal(t, model.DefaultAllowedHours, s.Hours())
}
