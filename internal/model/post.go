package model

import (
	"time"
)

type Post struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	AccountID      uint64    `gorm:"not null;index:idx_post_account_time" json:"account_id"`
	DraftID        *uint64   `gorm:"index:idx_post_draft" json:"draft_id"`
	ExternalPostID *string   `gorm:"type:varchar(64);uniqueIndex:uk_post_external_id" json:"external_post_id"`
	ExternalURL    string    `gorm:"type:varchar(512)" json:"external_url"`
	PostedAt       time.Time `gorm:"not null;index:idx_post_account_time" json:"posted_at"`
	IsThread       bool      `gorm:"not null;default:false" json:"is_thread"`
	Status         string    `gorm:"type:varchar(16);not null;default:'posted'" json:"status"`
	CreatedAt      time.Time `json:"created_at"`

	Draft *Draft `gorm:"foreignKey:DraftID;references:ID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Post) TableName() string {
	return "posts"
}
