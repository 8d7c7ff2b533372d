package model

import (
	"time"
)

type Idea struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	WorkspaceID uint64     `gorm:"not null;index:idx_idea_workspace" json:"workspace_id"`
	AccountID   *uint64    `json:"account_id"`
	SourceID    *uint64    `json:"source_id"`
	Title       string     `gorm:"type:varchar(512);not null" json:"title"`
	Summary     string     `gorm:"type:text" json:"summary"`
	URL         string     `gorm:"type:varchar(1024)" json:"url"`
	PublishedAt *time.Time `json:"published_at"`
	RawContent  string     `gorm:"type:text" json:"raw_content"`
	Fingerprint string     `gorm:"type:varchar(64);not null;uniqueIndex:uk_idea_fingerprint" json:"fingerprint"`
	Score       float64    `gorm:"not null;default:0" json:"score"`
	Status      IdeaStatus `gorm:"type:varchar(16);not null;default:'new';index:idx_idea_status" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Idea) TableName() string {
	return "ideas"
}
