package dto

import (
	"Signalforge/internal/model"
	"time"
)

// AccountSettingsDTO 发布策略，缺省字段按零值写入
type AccountSettingsDTO struct {
	Timezone        string             `json:"timezone" validate:"omitempty,max=64"`
	DailyPostMin    int                `json:"daily_post_min" validate:"min=0,max=48"`
	DailyPostMax    int                `json:"daily_post_max" validate:"min=0,max=48"`
	AllowedHours    []int              `json:"allowed_hours" validate:"max=24,dive,min=0,max=23"`
	MinSpacingHours int                `json:"min_spacing_hours" validate:"min=0,max=23"`
	AllowLinks      bool               `json:"allow_links"`
	LinkPostRatio   float64            `json:"link_post_ratio" validate:"min=0,max=1"`
	ThreadRatio     float64            `json:"thread_ratio" validate:"min=0,max=1"`
	MaxThreadLen    int                `json:"max_thread_len" validate:"min=0,max=25"`
	FormatWeights   map[string]float64 `json:"format_weights,omitempty"`
	TopicWeights    map[string]float64 `json:"topic_weights,omitempty"`
}

type CreateAccountDTO struct {
	Handle    string              `json:"handle" binding:"required" validate:"min=1,max=64"`
	Name      string              `json:"name" validate:"max=128"`
	IsEnabled *bool               `json:"is_enabled"`
	Settings  *AccountSettingsDTO `json:"settings"`
}

// UpdateAccountDTO 为空的字段保持不变
type UpdateAccountDTO struct {
	Handle    *string             `json:"handle" validate:"omitempty,min=1,max=64"`
	Name      *string             `json:"name" validate:"omitempty,max=128"`
	IsEnabled *bool               `json:"is_enabled"`
	Settings  *AccountSettingsDTO `json:"settings"`
}

type AccountDTO struct {
	ID          uint64              `json:"id"`
	WorkspaceID uint64              `json:"workspace_id"`
	Handle      string              `json:"handle"`
	Name        string              `json:"name"`
	IsEnabled   bool                `json:"is_enabled"`
	CreatedAt   time.Time           `json:"created_at"`
	Settings    *AccountSettingsDTO `json:"settings,omitempty"`
}

// ToModel 转换为可直接落库的发布策略
func (d *AccountSettingsDTO) ToModel() *model.AccountSettings {
	if d == nil {
		return nil
	}
	return &model.AccountSettings{
		Timezone:        d.Timezone,
		DailyPostMin:    d.DailyPostMin,
		DailyPostMax:    d.DailyPostMax,
		AllowedHours:    model.HourSet(d.AllowedHours),
		MinSpacingHours: d.MinSpacingHours,
		AllowLinks:      d.AllowLinks,
		LinkPostRatio:   d.LinkPostRatio,
		ThreadRatio:     d.ThreadRatio,
		MaxThreadLen:    d.MaxThreadLen,
		FormatWeights:   model.WeightMap(d.FormatWeights),
		TopicWeights:    model.WeightMap(d.TopicWeights),
	}
}

func NewAccountSettingsDTO(s *model.AccountSettings) *AccountSettingsDTO {
	if s == nil {
		return nil
	}
	return &AccountSettingsDTO{
		Timezone:        s.Timezone,
		DailyPostMin:    s.DailyPostMin,
		DailyPostMax:    s.DailyPostMax,
		AllowedHours:    s.Hours(),
		MinSpacingHours: s.MinSpacingHours,
		AllowLinks:      s.AllowLinks,
		LinkPostRatio:   s.LinkPostRatio,
		ThreadRatio:     s.ThreadRatio,
		MaxThreadLen:    s.MaxThreadLen,
		FormatWeights:   s.FormatWeights,
		TopicWeights:    s.TopicWeights,
	}
}

func NewAccountDTO(a *model.Account) *AccountDTO {
	return &AccountDTO{
		ID:          a.ID,
		WorkspaceID: a.WorkspaceID,
		Handle:      a.Handle,
		Name:        a.Name,
		IsEnabled:   a.IsEnabled,
		CreatedAt:   a.CreatedAt,
		Settings:    NewAccountSettingsDTO(a.Settings),
	}
}
