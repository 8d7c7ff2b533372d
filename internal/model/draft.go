package model

import (
	"time"
)

const (
	FormatSingle = "tweet_single"
	FormatThread = "thread"
)

type Draft struct {
	ID                 uint64      `gorm:"primaryKey" json:"id"`
	WorkspaceID        uint64      `gorm:"not null;index:idx_draft_workspace" json:"workspace_id"`
	AccountID          *uint64     `gorm:"index:idx_draft_account_status" json:"account_id"`
	IdeaID             *uint64     `gorm:"index:idx_draft_idea" json:"idea_id"`
	Content            string      `gorm:"type:text;not null" json:"content"`
	ContentFingerprint string      `gorm:"type:varchar(64);not null;uniqueIndex:uk_draft_fingerprint" json:"content_fingerprint"`
	Format             string      `gorm:"type:varchar(32);not null;default:'tweet_single'" json:"format"`
	IsThread           bool        `gorm:"not null;default:false" json:"is_thread"`
	ThreadCount        int         `gorm:"not null;default:0" json:"thread_count"`
	Score              float64     `gorm:"not null;default:0" json:"score"`
	Status             DraftStatus `gorm:"type:varchar(16);not null;default:'draft';index:idx_draft_account_status" json:"status"`
	RejectReason       string      `gorm:"type:varchar(64)" json:"reject_reason"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`

	Idea *Idea `gorm:"foreignKey:IdeaID;references:ID" json:"idea,omitempty"`
}

func (Draft) TableName() string {
	return "drafts"
}
