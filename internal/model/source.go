package model

import (
	"time"
)

const SourceTypeRSS = "rss"

type Source struct {
	ID             uint64     `gorm:"primaryKey" json:"id"`
	WorkspaceID    uint64     `gorm:"not null;uniqueIndex:uk_source_workspace_url" json:"workspace_id"`
	AccountID      *uint64    `gorm:"index:idx_source_account" json:"account_id"`
	Type           string     `gorm:"type:varchar(16);not null;default:'rss'" json:"type"`
	URL            string     `gorm:"type:varchar(512);not null;uniqueIndex:uk_source_workspace_url" json:"url"`
	IsEnabled      bool       `gorm:"not null" json:"is_enabled"`
	LastIngestedAt *time.Time `json:"last_ingested_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Source) TableName() string {
	return "sources"
}
