package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/consts"
	"Signalforge/internal/repository"
	"context"
	"time"
)

// AccountUpdate 为 nil 的字段保持不变
type AccountUpdate struct {
	Name      *string
	Handle    *string
	IsEnabled *bool
	Settings  *model.AccountSettings
}

type AccountService interface {
	CreateAccount(ctx context.Context, account *model.Account, settings *model.AccountSettings) error
	UpdateAccount(ctx context.Context, accountID uint64, update *AccountUpdate) (*model.Account, error)
	ListAccounts(ctx context.Context, workspaceID uint64) ([]*model.Account, error)
	// GetAccount 账号不属于该工作区时按不存在处理
	GetAccount(ctx context.Context, workspaceID, accountID uint64) (*model.Account, error)
}

type accountServiceImpl struct {
	accountRepo repository.AccountRepo
	locker      Locker
	policy      Policy
}

func NewAccountService(accountRepo repository.AccountRepo, locker Locker, policy Policy) AccountService {
	return &accountServiceImpl{accountRepo: accountRepo, locker: locker, policy: policy}
}

// ValidateSettings 时区可解析，配比在 [0,1]
func ValidateSettings(settings *model.AccountSettings) error {
	if settings.Timezone != "" {
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			return ErrParamInvalid
		}
	}
	if settings.DailyPostMin < 0 || settings.DailyPostMax < 0 || settings.MinSpacingHours < 0 || settings.MaxThreadLen < 0 {
		return ErrParamInvalid
	}
	for _, ratio := range []float64{settings.LinkPostRatio, settings.ThreadRatio} {
		if ratio < 0 || ratio > 1 {
			return ErrParamInvalid
		}
	}
	return nil
}

func (s *accountServiceImpl) CreateAccount(ctx context.Context, account *model.Account, settings *model.AccountSettings) error {
	if account.Handle == "" {
		return ErrParamInvalid
	}
	if settings != nil {
		if err := ValidateSettings(settings); err != nil {
			return err
		}
	}
	if err := s.accountRepo.CreateAccount(ctx, account); err != nil {
		return err
	}
	if settings == nil {
		return nil
	}
	settings.AccountID = account.ID
	if err := s.accountRepo.UpsertSettings(ctx, settings); err != nil {
		return err
	}
	account.Settings = settings
	return nil
}

func (s *accountServiceImpl) UpdateAccount(ctx context.Context, accountID uint64, update *AccountUpdate) (*model.Account, error) {
	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	fields := make(map[string]any)
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Handle != nil && *update.Handle != "" {
		fields["handle"] = *update.Handle
	}
	if update.IsEnabled != nil {
		fields["is_enabled"] = *update.IsEnabled
	}
	if _, err = s.accountRepo.UpdateAccount(ctx, accountID, fields); err != nil {
		return nil, err
	}

	if update.Settings != nil {
		if err = ValidateSettings(update.Settings); err != nil {
			return nil, err
		}
		update.Settings.AccountID = accountID
		// 与排期、权重调整互斥
		err = withLock(ctx, s.locker, accountKey(consts.AccountLock, accountID), s.policy.AccountLockTTL, func() error {
			return s.accountRepo.UpsertSettings(ctx, update.Settings)
		})
		if err != nil {
			return nil, err
		}
	}

	account, err = s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		account.Settings, err = s.accountRepo.GetSettings(ctx, accountID)
	}
	return account, err
}

func (s *accountServiceImpl) ListAccounts(ctx context.Context, workspaceID uint64) ([]*model.Account, error) {
	return s.accountRepo.ListAccounts(ctx, workspaceID)
}

func (s *accountServiceImpl) GetAccount(ctx context.Context, workspaceID, accountID uint64) (*model.Account, error) {
	account, err := s.accountRepo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil || account.WorkspaceID != workspaceID {
		return nil, ErrAccountNotFound
	}
	account.Settings, err = s.accountRepo.GetSettings(ctx, accountID)
	return account, err
}
