package dto

import "time"

type CreateSourceDTO struct {
	URL       string  `json:"url" binding:"required" validate:"url,max=512"`
	Type      string  `json:"type" validate:"omitempty,oneof=rss"`
	AccountID *uint64 `json:"account_id"`
	IsEnabled *bool   `json:"is_enabled"`
}

type SourceDTO struct {
	ID             uint64     `json:"id"`
	AccountID      *uint64    `json:"account_id"`
	Type           string     `json:"type"`
	URL            string     `json:"url"`
	IsEnabled      bool       `json:"is_enabled"`
	LastIngestedAt *time.Time `json:"last_ingested_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
