package model

import (
	"time"
)

type PostMetricsDaily struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	PostID      uint64    `gorm:"not null;uniqueIndex:uk_post_metric_date" json:"post_id"`
	MetricDate  time.Time `gorm:"type:date;not null;uniqueIndex:uk_post_metric_date" json:"metric_date"`
	Impressions int64     `gorm:"not null;default:0" json:"impressions"`
	Likes       int64     `gorm:"not null;default:0" json:"likes"`
	Reposts     int64     `gorm:"not null;default:0" json:"reposts"`
	Replies     int64     `gorm:"not null;default:0" json:"replies"`
	Bookmarks   int64     `gorm:"not null;default:0" json:"bookmarks"`
	Clicks      int64     `gorm:"not null;default:0" json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PostMetricsDaily) TableName() string {
	return "post_metrics_daily"
}

// TemplatePerformance 按 (账号, 格式, 日期) 聚合的表现，写入后不覆盖
type TemplatePerformance struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	AccountID      uint64    `gorm:"not null;uniqueIndex:uk_template_perf" json:"account_id"`
	Format         string    `gorm:"type:varchar(32);not null;uniqueIndex:uk_template_perf" json:"format"`
	MetricDate     time.Time `gorm:"type:date;not null;uniqueIndex:uk_template_perf" json:"metric_date"`
	ImpressionsAvg float64   `gorm:"not null;default:0" json:"impressions_avg"`
	LikeRate       float64   `gorm:"not null;default:0" json:"like_rate"`
	RepostRate     float64   `gorm:"not null;default:0" json:"repost_rate"`
	CreatedAt      time.Time `json:"created_at"`
}

func (TemplatePerformance) TableName() string {
	return "template_performance"
}

// MetricDay 截断到 UTC 零点
func MetricDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
