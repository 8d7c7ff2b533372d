package repository

import (
	"Signalforge/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountRepo interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	UpdateAccount(ctx context.Context, id uint64, fields map[string]any) (bool, error)
	GetAccount(ctx context.Context, id uint64) (*model.Account, error)
	ListEnabledAccounts(ctx context.Context) ([]*model.Account, error)
	ListAccounts(ctx context.Context, workspaceID uint64) ([]*model.Account, error)
	GetSettings(ctx context.Context, accountID uint64) (*model.AccountSettings, error)
	UpsertSettings(ctx context.Context, settings *model.AccountSettings) error
	MergeFormatWeights(ctx context.Context, accountID uint64, weights map[string]float64) (bool, error)
}

type accountRepoImpl struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepo {
	return &accountRepoImpl{db: db}
}

func (r *accountRepoImpl) CreateAccount(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepoImpl) UpdateAccount(ctx context.Context, id uint64, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return true, nil
	}
	result := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected == 1, result.Error
}

// GetAccount 不存在时返回 nil, nil
func (r *accountRepoImpl) GetAccount(ctx context.Context, id uint64) (*model.Account, error) {
	return firstOrNil[model.Account](r.db.WithContext(ctx), id)
}

func (r *accountRepoImpl) ListEnabledAccounts(ctx context.Context) ([]*model.Account, error) {
	accounts := make([]*model.Account, 0)
	err := r.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Order("id ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *accountRepoImpl) ListAccounts(ctx context.Context, workspaceID uint64) ([]*model.Account, error) {
	accounts := make([]*model.Account, 0)
	err := r.db.WithContext(ctx).
		Preload("Settings").
		Where("workspace_id = ?", workspaceID).
		Order("id ASC").
		Find(&accounts).Error
	return accounts, err
}

// GetSettings 账号未配置时返回 nil, nil
func (r *accountRepoImpl) GetSettings(ctx context.Context, accountID uint64) (*model.AccountSettings, error) {
	return firstOrNil[model.AccountSettings](r.db.WithContext(ctx).Where("account_id = ?", accountID))
}

// UpsertSettings 以 account_id 为键整体覆盖
func (r *accountRepoImpl) UpsertSettings(ctx context.Context, settings *model.AccountSettings) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"timezone", "daily_post_min", "daily_post_max", "allowed_hours",
			"min_spacing_hours", "allow_links", "link_post_ratio", "thread_ratio",
			"max_thread_len", "format_weights", "topic_weights", "updated_at",
		}),
	}).Create(settings).Error
}

// MergeFormatWeights 读-改-写 format_weights，调用方需持有账号锁
func (r *accountRepoImpl) MergeFormatWeights(ctx context.Context, accountID uint64, weights map[string]float64) (bool, error) {
	updated := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := firstOrNil[model.AccountSettings](tx.Where("account_id = ?", accountID))
		if err != nil || settings == nil {
			return err
		}
		merged := make(model.WeightMap, len(settings.FormatWeights)+len(weights))
		for k, v := range settings.FormatWeights {
			merged[k] = v
		}
		for k, v := range weights {
			merged[k] = v
		}
		if err = tx.Model(&model.AccountSettings{}).
			Where("id = ?", settings.ID).
			Update("format_weights", merged).Error; err != nil {
			return err
		}
		updated = true
		return nil
	})
	return updated, err
}
