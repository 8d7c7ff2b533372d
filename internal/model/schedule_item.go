package model

import (
	"time"
)

type ScheduleItem struct {
	ID            uint64         `gorm:"primaryKey" json:"id"`
	AccountID     uint64         `gorm:"not null;index:idx_schedule_account_time" json:"account_id"`
	DraftID       uint64         `gorm:"not null;uniqueIndex:uk_schedule_draft" json:"draft_id"`
	ScheduledFor  time.Time      `gorm:"not null;index:idx_schedule_account_time;index:idx_schedule_due" json:"scheduled_for"`
	Status        ScheduleStatus `gorm:"type:varchar(16);not null;default:'scheduled';index:idx_schedule_due" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time     `json:"next_attempt_at"`
	LockedUntil   *time.Time     `json:"locked_until"`
	// ClaimToken 当前持有租约的执行器
	ClaimToken    string         `gorm:"type:varchar(64)" json:"-"`
	LastError     string         `gorm:"type:text" json:"last_error"`
	Segments      SegmentList    `gorm:"type:json" json:"segments"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (ScheduleItem) TableName() string {
	return "schedule_items"
}
