package repository

import (
	"Signalforge/internal/model"
	"context"
	"errors"
	"slices"
	"time"

	"gorm.io/gorm"
)

type ScheduleRepo interface {
	CommittedTimes(ctx context.Context, accountID uint64, start, end time.Time) ([]time.Time, error)
	CreateSlot(ctx context.Context, item *model.ScheduleItem) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduleItem, error)
	Claim(ctx context.Context, id uint64, token string, now time.Time, lease time.Duration) (bool, error)
	GetItem(ctx context.Context, id uint64) (*model.ScheduleItem, error)
	SaveSegments(ctx context.Context, item *model.ScheduleItem, segments model.SegmentList, lockedUntil time.Time) (bool, error)
	Complete(ctx context.Context, item *model.ScheduleItem, post *model.Post) (bool, error)
	Finish(ctx context.Context, item *model.ScheduleItem, to model.ScheduleStatus, attempts int, lastError string) (bool, error)
	Release(ctx context.Context, item *model.ScheduleItem, attempts int, nextAttemptAt time.Time, lastError string) (bool, error)
	ListForAccount(ctx context.Context, accountID uint64, start, end time.Time) ([]*model.ScheduleItem, error)
}

type scheduleRepoImpl struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepo {
	return &scheduleRepoImpl{db: db}
}

// CommittedTimes 当日已占用的时间点：排期中/发布中的条目加已发布的帖子
func (r *scheduleRepoImpl) CommittedTimes(ctx context.Context, accountID uint64, start, end time.Time) ([]time.Time, error) {
	db := r.db.WithContext(ctx)
	start, end = start.UTC(), end.UTC()

	var itemTimes []time.Time
	err := db.Model(&model.ScheduleItem{}).
		Where("account_id = ? AND status IN ?", accountID,
			[]string{string(model.ScheduleScheduled), string(model.SchedulePublishing)}).
		Where("scheduled_for >= ? AND scheduled_for < ?", start, end).
		Pluck("scheduled_for", &itemTimes).Error
	if err != nil {
		return nil, err
	}

	var postTimes []time.Time
	err = db.Model(&model.Post{}).
		Where("account_id = ?", accountID).
		Where("posted_at >= ? AND posted_at < ?", start, end).
		Pluck("posted_at", &postTimes).Error
	if err != nil {
		return nil, err
	}

	times := append(itemTimes, postTimes...)
	slices.SortFunc(times, func(a, b time.Time) int { return a.Compare(b) })
	return times, nil
}

// CreateSlot 同一事务内创建排期并将草稿 approved -> scheduled
func (r *scheduleRepoImpl) CreateSlot(ctx context.Context, item *model.ScheduleItem) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := casStatus(tx, &model.Draft{}, item.DraftID, model.DraftApproved, model.DraftScheduled, nil)
		if err != nil {
			return err
		}
		if !ok {
			return errRollback
		}
		item.Status = model.ScheduleScheduled
		item.ScheduledFor = item.ScheduledFor.UTC()
		return tx.Create(item).Error
	})
	if errors.Is(err, errRollback) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return err == nil, err
}

// ListDue 到期可执行的条目，含租约过期的 publishing
func (r *scheduleRepoImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduleItem, error) {
	now = now.UTC()
	items := make([]*model.ScheduleItem, 0)
	q := r.db.WithContext(ctx).
		Where(r.db.
			Where("status = ? AND scheduled_for <= ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)",
				string(model.ScheduleScheduled), now, now).
			Or("status = ? AND locked_until < ?", string(model.SchedulePublishing), now)).
		Order("scheduled_for ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return items, q.Find(&items).Error
}

// Claim 认领条目并写入持有者，只有一个执行器能成功
func (r *scheduleRepoImpl) Claim(ctx context.Context, id uint64, token string, now time.Time, lease time.Duration) (bool, error) {
	now = now.UTC()
	result := r.db.WithContext(ctx).Model(&model.ScheduleItem{}).
		Where("id = ?", id).
		Where(r.db.
			Where("status = ? AND scheduled_for <= ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)",
				string(model.ScheduleScheduled), now, now).
			Or("status = ? AND locked_until < ?", string(model.SchedulePublishing), now)).
		Updates(map[string]any{
			"status":       string(model.SchedulePublishing),
			"locked_until": now.Add(lease),
			"claim_token":  token,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *scheduleRepoImpl) GetItem(ctx context.Context, id uint64) (*model.ScheduleItem, error) {
	return firstOrNil[model.ScheduleItem](r.db.WithContext(ctx), id)
}

// SaveSegments 线程分段发布后立即落库并续租，租约已被接管时返回 false
func (r *scheduleRepoImpl) SaveSegments(ctx context.Context, item *model.ScheduleItem, segments model.SegmentList, lockedUntil time.Time) (bool, error) {
	result := owned(r.db.WithContext(ctx), item).Model(&model.ScheduleItem{}).
		Where("id = ? AND status = ?", item.ID, string(model.SchedulePublishing)).
		Updates(map[string]any{"segments": segments, "locked_until": lockedUntil.UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// owned 只允许当前租约持有者改写条目
func owned(tx *gorm.DB, item *model.ScheduleItem) *gorm.DB {
	return tx.Where("claim_token = ?", item.ClaimToken)
}

// Complete 同一事务内写入帖子、条目 publishing -> posted、草稿 scheduled -> posted
func (r *scheduleRepoImpl) Complete(ctx context.Context, item *model.ScheduleItem, post *model.Post) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := casStatus(owned(tx, item), &model.ScheduleItem{}, item.ID, model.SchedulePublishing, model.SchedulePosted,
			map[string]any{"locked_until": nil, "attempts": item.Attempts, "last_error": ""})
		if err != nil {
			return err
		}
		if !ok {
			return errRollback
		}
		if err = tx.Create(post).Error; err != nil {
			return err
		}
		if _, err = casStatus(tx, &model.Draft{}, item.DraftID, model.DraftScheduled, model.DraftPosted, nil); err != nil {
			return err
		}
		return nil
	})
	switch {
	case errors.Is(err, errRollback):
		return false, nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return false, ErrDuplicateExternalID
	}
	return err == nil, err
}

// Finish 认领后进入终态 (failed / skipped)
func (r *scheduleRepoImpl) Finish(ctx context.Context, item *model.ScheduleItem, to model.ScheduleStatus, attempts int, lastError string) (bool, error) {
	return casStatus(owned(r.db.WithContext(ctx), item), &model.ScheduleItem{}, item.ID, model.SchedulePublishing, to,
		map[string]any{"attempts": attempts, "last_error": lastError, "locked_until": nil})
}

// Release 失败后退回 scheduled 等待退避重试
func (r *scheduleRepoImpl) Release(ctx context.Context, item *model.ScheduleItem, attempts int, nextAttemptAt time.Time, lastError string) (bool, error) {
	return casStatus(owned(r.db.WithContext(ctx), item), &model.ScheduleItem{}, item.ID, model.SchedulePublishing, model.ScheduleScheduled,
		map[string]any{
			"attempts":        attempts,
			"last_error":      lastError,
			"next_attempt_at": nextAttemptAt.UTC(),
			"locked_until":    nil,
		})
}

func (r *scheduleRepoImpl) ListForAccount(ctx context.Context, accountID uint64, start, end time.Time) ([]*model.ScheduleItem, error) {
	items := make([]*model.ScheduleItem, 0)
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("scheduled_for >= ? AND scheduled_for < ?", start.UTC(), end.UTC()).
		Order("scheduled_for ASC").
		Find(&items).Error
	return items, err
}
