package repository

import (
	"Signalforge/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type SourceRepo interface {
	CreateSource(ctx context.Context, source *model.Source) error
	ListEnabledSources(ctx context.Context) ([]*model.Source, error)
	ListSources(ctx context.Context, workspaceID uint64) ([]*model.Source, error)
	MarkIngested(ctx context.Context, id uint64, at time.Time) error
}

type sourceRepoImpl struct {
	db *gorm.DB
}

func NewSourceRepository(db *gorm.DB) SourceRepo {
	return &sourceRepoImpl{db: db}
}

func (r *sourceRepoImpl) CreateSource(ctx context.Context, source *model.Source) error {
	return r.db.WithContext(ctx).Create(source).Error
}

func (r *sourceRepoImpl) ListEnabledSources(ctx context.Context) ([]*model.Source, error) {
	sources := make([]*model.Source, 0)
	err := r.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("id ASC").
		Find(&sources).Error
	return sources, err
}

func (r *sourceRepoImpl) ListSources(ctx context.Context, workspaceID uint64) ([]*model.Source, error) {
	sources := make([]*model.Source, 0)
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("id ASC").
		Find(&sources).Error
	return sources, err
}

func (r *sourceRepoImpl) MarkIngested(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Source{}).
		Where("id = ?", id).
		Update("last_ingested_at", at.UTC()).Error
}
