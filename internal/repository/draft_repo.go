package repository

import (
	"Signalforge/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// DraftText 相似度比对用的精简草稿
type DraftText struct {
	ID      uint64
	Content string
}

type DraftRepo interface {
	CreateFromIdea(ctx context.Context, draft *model.Draft) (bool, error)
	GetDraft(ctx context.Context, id uint64) (*model.Draft, error)
	ListDraftsByStatus(ctx context.Context, status model.DraftStatus, limit int) ([]*model.Draft, error)
	ListDraftTexts(ctx context.Context, statuses []model.DraftStatus) ([]DraftText, error)
	ListApprovedForAccount(ctx context.Context, accountID uint64) ([]*model.Draft, error)
	ListDrafts(ctx context.Context, workspaceID uint64, status string, limit int) ([]*model.Draft, error)
	Approve(ctx context.Context, id uint64) (bool, error)
	Reject(ctx context.Context, id uint64, reason string) (bool, error)
}

type draftRepoImpl struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) DraftRepo {
	return &draftRepoImpl{db: db}
}

// CreateFromIdea 同一事务内插入草稿并将选题 scored -> drafted；
// 内容指纹重复时选题转 duplicate 并返回 false
func (r *draftRepoImpl) CreateFromIdea(ctx context.Context, draft *model.Draft) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := insertIgnore(tx, draft, "content_fingerprint")
		if err != nil {
			return err
		}
		if !inserted {
			if draft.IdeaID != nil {
				_, err = casStatus(tx, &model.Idea{}, *draft.IdeaID, model.IdeaScored, model.IdeaDuplicate, nil)
			}
			return err
		}
		if draft.IdeaID != nil {
			ok, err := casStatus(tx, &model.Idea{}, *draft.IdeaID, model.IdeaScored, model.IdeaDrafted, nil)
			if err != nil {
				return err
			}
			if !ok {
				return errRollback
			}
		}
		created = true
		return nil
	})
	if errors.Is(err, errRollback) {
		return false, nil
	}
	return created, err
}

func (r *draftRepoImpl) GetDraft(ctx context.Context, id uint64) (*model.Draft, error) {
	return firstOrNil[model.Draft](r.db.WithContext(ctx).Preload("Idea"), id)
}

func (r *draftRepoImpl) ListDraftsByStatus(ctx context.Context, status model.DraftStatus, limit int) ([]*model.Draft, error) {
	drafts := make([]*model.Draft, 0)
	q := r.db.WithContext(ctx).Preload("Idea").Where("status = ?", string(status)).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return drafts, q.Find(&drafts).Error
}

func (r *draftRepoImpl) ListDraftTexts(ctx context.Context, statuses []model.DraftStatus) ([]DraftText, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	texts := make([]DraftText, 0)
	err := r.db.WithContext(ctx).Model(&model.Draft{}).
		Select("id", "content").
		Where("status IN ?", values).
		Order("id ASC").
		Find(&texts).Error
	return texts, err
}

func (r *draftRepoImpl) ListApprovedForAccount(ctx context.Context, accountID uint64) ([]*model.Draft, error) {
	drafts := make([]*model.Draft, 0)
	err := r.db.WithContext(ctx).Preload("Idea").
		Where("account_id = ? AND status = ?", accountID, string(model.DraftApproved)).
		Order("id ASC").
		Find(&drafts).Error
	return drafts, err
}

func (r *draftRepoImpl) ListDrafts(ctx context.Context, workspaceID uint64, status string, limit int) ([]*model.Draft, error) {
	drafts := make([]*model.Draft, 0)
	q := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return drafts, q.Order("id DESC").Limit(limit).Find(&drafts).Error
}

func (r *draftRepoImpl) Approve(ctx context.Context, id uint64) (bool, error) {
	return casStatus(r.db.WithContext(ctx), &model.Draft{}, id, model.DraftPending, model.DraftApproved, nil)
}

func (r *draftRepoImpl) Reject(ctx context.Context, id uint64, reason string) (bool, error) {
	return casStatus(r.db.WithContext(ctx), &model.Draft{}, id, model.DraftPending, model.DraftRejected,
		map[string]any{"reject_reason": reason})
}
