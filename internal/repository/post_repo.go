package repository

import (
	"Signalforge/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

// FormatAverage 按 (账号, 格式) 聚合的当日均值
type FormatAverage struct {
	AccountID      uint64
	Format         string
	ImpressionsAvg float64
	LikesAvg       float64
	RepostsAvg     float64
}

// MetricsSummary 工作区区间汇总
type MetricsSummary struct {
	Impressions int64 `json:"impressions"`
	Likes       int64 `json:"likes"`
	Reposts     int64 `json:"reposts"`
	Replies     int64 `json:"replies"`
	Bookmarks   int64 `json:"bookmarks"`
	Clicks      int64 `json:"clicks"`
}

type PostRepo interface {
	ListPosts(ctx context.Context, workspaceID uint64, limit int) ([]*model.Post, error)
	ListPostsMissingMetrics(ctx context.Context, day time.Time) ([]*model.Post, error)
	InsertDailyMetrics(ctx context.Context, metrics *model.PostMetricsDaily) (bool, error)
	FormatAverages(ctx context.Context, day time.Time) ([]FormatAverage, error)
	InsertTemplatePerformance(ctx context.Context, perf *model.TemplatePerformance) (bool, error)
	ListTemplatePerformance(ctx context.Context, accountID uint64, since time.Time) ([]*model.TemplatePerformance, error)
	SummaryForRange(ctx context.Context, workspaceID uint64, since time.Time) (*MetricsSummary, error)
}

type postRepoImpl struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepo {
	return &postRepoImpl{db: db}
}

func (r *postRepoImpl) ListPosts(ctx context.Context, workspaceID uint64, limit int) ([]*model.Post, error) {
	posts := make([]*model.Post, 0)
	err := r.db.WithContext(ctx).
		Joins("JOIN accounts ON accounts.id = posts.account_id").
		Where("accounts.workspace_id = ?", workspaceID).
		Order("posts.posted_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// ListPostsMissingMetrics 有平台 id 且当天还没有指标行的帖子
func (r *postRepoImpl) ListPostsMissingMetrics(ctx context.Context, day time.Time) ([]*model.Post, error) {
	posts := make([]*model.Post, 0)
	err := r.db.WithContext(ctx).
		Where("external_post_id IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM post_metrics_daily m WHERE m.post_id = posts.id AND m.metric_date = ?)",
			model.MetricDay(day)).
		Order("id ASC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepoImpl) InsertDailyMetrics(ctx context.Context, metrics *model.PostMetricsDaily) (bool, error) {
	metrics.MetricDate = model.MetricDay(metrics.MetricDate)
	return insertIgnore(r.db.WithContext(ctx), metrics, "post_id", "metric_date")
}

// FormatAverages 当日指标按 (草稿格式, 帖子账号) 求均值
func (r *postRepoImpl) FormatAverages(ctx context.Context, day time.Time) ([]FormatAverage, error) {
	rows := make([]FormatAverage, 0)
	err := r.db.WithContext(ctx).
		Table("post_metrics_daily AS m").
		Select("p.account_id AS account_id, d.format AS format, "+
			"AVG(m.impressions) AS impressions_avg, AVG(m.likes) AS likes_avg, AVG(m.reposts) AS reposts_avg").
		Joins("JOIN posts p ON p.id = m.post_id").
		Joins("JOIN drafts d ON d.id = p.draft_id").
		Where("m.metric_date = ?", model.MetricDay(day)).
		Group("p.account_id, d.format").
		Order("p.account_id ASC, d.format ASC").
		Scan(&rows).Error
	return rows, err
}

// InsertTemplatePerformance 已存在则保留原值
func (r *postRepoImpl) InsertTemplatePerformance(ctx context.Context, perf *model.TemplatePerformance) (bool, error) {
	perf.MetricDate = model.MetricDay(perf.MetricDate)
	return insertIgnore(r.db.WithContext(ctx), perf, "account_id", "format", "metric_date")
}

func (r *postRepoImpl) ListTemplatePerformance(ctx context.Context, accountID uint64, since time.Time) ([]*model.TemplatePerformance, error) {
	perfs := make([]*model.TemplatePerformance, 0)
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND metric_date >= ?", accountID, model.MetricDay(since)).
		Order("metric_date DESC, format ASC").
		Find(&perfs).Error
	return perfs, err
}

func (r *postRepoImpl) SummaryForRange(ctx context.Context, workspaceID uint64, since time.Time) (*MetricsSummary, error) {
	var summary MetricsSummary
	err := r.db.WithContext(ctx).
		Table("post_metrics_daily AS m").
		Select("COALESCE(SUM(m.impressions), 0) AS impressions, COALESCE(SUM(m.likes), 0) AS likes, "+
			"COALESCE(SUM(m.reposts), 0) AS reposts, COALESCE(SUM(m.replies), 0) AS replies, "+
			"COALESCE(SUM(m.bookmarks), 0) AS bookmarks, COALESCE(SUM(m.clicks), 0) AS clicks").
		Joins("JOIN posts p ON p.id = m.post_id").
		Joins("JOIN accounts a ON a.id = p.account_id").
		Where("a.workspace_id = ? AND m.metric_date >= ?", workspaceID, model.MetricDay(since)).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
