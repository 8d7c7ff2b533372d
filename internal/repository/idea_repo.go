package repository

import (
	"Signalforge/internal/model"
	"context"

	"gorm.io/gorm"
)

type IdeaRepo interface {
	InsertIdea(ctx context.Context, idea *model.Idea) (bool, error)
	ListIdeasByStatus(ctx context.Context, status model.IdeaStatus, limit int) ([]*model.Idea, error)
	ListScoredWithoutDraft(ctx context.Context, limit int) ([]*model.Idea, error)
	ListIdeas(ctx context.Context, workspaceID uint64, status string, limit int) ([]*model.Idea, error)
	ApplyScore(ctx context.Context, id uint64, score float64) (bool, error)
}

type ideaRepoImpl struct {
	db *gorm.DB
}

func NewIdeaRepository(db *gorm.DB) IdeaRepo {
	return &ideaRepoImpl{db: db}
}

// InsertIdea 按指纹去重插入，重复时返回 false
func (r *ideaRepoImpl) InsertIdea(ctx context.Context, idea *model.Idea) (bool, error) {
	return insertIgnore(r.db.WithContext(ctx), idea, "fingerprint")
}

func (r *ideaRepoImpl) ListIdeasByStatus(ctx context.Context, status model.IdeaStatus, limit int) ([]*model.Idea, error) {
	ideas := make([]*model.Idea, 0)
	q := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return ideas, q.Find(&ideas).Error
}

// ListScoredWithoutDraft 已评分且尚未生成草稿的选题
func (r *ideaRepoImpl) ListScoredWithoutDraft(ctx context.Context, limit int) ([]*model.Idea, error) {
	ideas := make([]*model.Idea, 0)
	q := r.db.WithContext(ctx).
		Where("status = ?", string(model.IdeaScored)).
		Where("NOT EXISTS (SELECT 1 FROM drafts WHERE drafts.idea_id = ideas.id)").
		Order("score DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return ideas, q.Find(&ideas).Error
}

func (r *ideaRepoImpl) ListIdeas(ctx context.Context, workspaceID uint64, status string, limit int) ([]*model.Idea, error) {
	ideas := make([]*model.Idea, 0)
	q := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return ideas, q.Order("id DESC").Limit(limit).Find(&ideas).Error
}

// ApplyScore 写入分数并 new -> scored
func (r *ideaRepoImpl) ApplyScore(ctx context.Context, id uint64, score float64) (bool, error) {
	return casStatus(r.db.WithContext(ctx), &model.Idea{}, id, model.IdeaNew, model.IdeaScored,
		map[string]any{"score": score})
}
