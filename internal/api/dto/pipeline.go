package dto

import "time"

// PostingSwitchDTO disabled=true 为停发
type PostingSwitchDTO struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

type PostingStateDTO struct {
	Disabled bool `json:"disabled"`
}

// JobDTO 任务列表项
type JobDTO struct {
	Name    string      `json:"name"`
	Running bool        `json:"running"`
	Last    interface{} `json:"last,omitempty"`
}

// ListQuery 列表接口通用查询参数
type ListQuery struct {
	Status string `form:"status" validate:"omitempty,max=16"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

type RangeQuery struct {
	Days int `form:"days" validate:"omitempty,min=0,max=365"`
}

type ScheduleQuery struct {
	Date string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

type AuditQuery struct {
	AccountID uint64 `form:"account_id"`
	EventType string `form:"event_type" validate:"omitempty,max=64"`
	Limit     int64  `form:"limit" validate:"omitempty,min=1,max=200"`
}

type IdeaDTO struct {
	ID          uint64     `json:"id"`
	AccountID   *uint64    `json:"account_id"`
	SourceID    *uint64    `json:"source_id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at"`
	Score       float64    `json:"score"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

type DraftDTO struct {
	ID           uint64    `json:"id"`
	AccountID    *uint64   `json:"account_id"`
	IdeaID       *uint64   `json:"idea_id"`
	Content      string    `json:"content"`
	Format       string    `json:"format"`
	IsThread     bool      `json:"is_thread"`
	ThreadCount  int       `json:"thread_count"`
	Score        float64   `json:"score"`
	Status       string    `json:"status"`
	RejectReason string    `json:"reject_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type PostDTO struct {
	ID             uint64    `json:"id"`
	AccountID      uint64    `json:"account_id"`
	DraftID        *uint64   `json:"draft_id"`
	ExternalPostID *string   `json:"external_post_id"`
	ExternalURL    string    `json:"external_url"`
	PostedAt       time.Time `json:"posted_at"`
	IsThread       bool      `json:"is_thread"`
	Status         string    `json:"status"`
}

type ScheduleItemDTO struct {
	ID            uint64     `json:"id"`
	AccountID     uint64     `json:"account_id"`
	DraftID       uint64     `json:"draft_id"`
	ScheduledFor  time.Time  `json:"scheduled_for"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt *time.Time `json:"next_attempt_at"`
	LastError     string     `json:"last_error,omitempty"`
}
