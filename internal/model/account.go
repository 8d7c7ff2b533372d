package model

import (
	"slices"
	"time"
)

type Account struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	WorkspaceID uint64    `gorm:"not null;index:idx_account_workspace" json:"workspace_id"`
	Handle      string    `gorm:"type:varchar(64);not null" json:"handle"`
	Name        string    `gorm:"type:varchar(128)" json:"name"`
	IsEnabled   bool      `gorm:"not null" json:"is_enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Settings *AccountSettings `gorm:"foreignKey:AccountID;references:ID" json:"settings,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

type AccountSettings struct {
	ID              uint64    `gorm:"primaryKey" json:"id"`
	AccountID       uint64    `gorm:"not null;uniqueIndex:uk_settings_account" json:"account_id"`
	Timezone        string    `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	DailyPostMin    int       `gorm:"not null" json:"daily_post_min"`
	DailyPostMax    int       `gorm:"not null" json:"daily_post_max"`
	AllowedHours    HourSet   `gorm:"type:json" json:"allowed_hours"`
	MinSpacingHours int       `gorm:"not null" json:"min_spacing_hours"`
	AllowLinks      bool      `gorm:"not null" json:"allow_links"`
	LinkPostRatio   float64   `gorm:"not null" json:"link_post_ratio"`
	ThreadRatio     float64   `gorm:"not null" json:"thread_ratio"`
	MaxThreadLen    int       `gorm:"not null" json:"max_thread_len"`
	FormatWeights   WeightMap `gorm:"type:json" json:"format_weights"`
	TopicWeights    WeightMap `gorm:"type:json" json:"topic_weights"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (AccountSettings) TableName() string {
	return "account_settings"
}

// DefaultAllowedHours 未配置允许时段时的默认值
var DefaultAllowedHours = []int{9, 11, 13, 15, 17}

// Hours 过滤非法小时并去重排序，为空时回退默认值
func (s *AccountSettings) Hours() []int {
	seen := make(map[int]bool, len(s.AllowedHours))
	hours := make([]int, 0, len(s.AllowedHours))
	for _, h := range s.AllowedHours {
		if h < 0 || h > 23 || seen[h] {
			continue
		}
		seen[h] = true
		hours = append(hours, h)
	}
	if len(hours) == 0 {
		return append([]int(nil), DefaultAllowedHours...)
	}
	slices.Sort(hours)
	return hours
}

// Location 解析时区，非法时回退 UTC
func (s *AccountSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
