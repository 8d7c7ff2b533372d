package model

import (
	"time"
)

const (
	AuditDraftRejected   = "draft_rejected"
	AuditPublishFailed   = "publish_failed"
	AuditPostPublished   = "post_published"
	AuditWeightsUpdated  = "format_weights_updated"
	AuditPostingSwitched = "posting_switched"
)

// AuditLog 流水线审计事件，存 MongoDB
type AuditLog struct {
	WorkspaceID uint64         `bson:"workspace_id" json:"workspace_id"`
	AccountID   *uint64        `bson:"account_id,omitempty" json:"account_id,omitempty"`
	EventType   string         `bson:"event_type" json:"event_type"`
	Message     string         `bson:"message" json:"message"`
	Meta        map[string]any `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
}

// PipelineModels 需要迁移的关系表
func PipelineModels() []any {
	return []any{
		&Account{}, &AccountSettings{}, &Source{}, &Idea{}, &Draft{},
		&ScheduleItem{}, &Post{}, &PostMetricsDaily{}, &TemplatePerformance{},
	}
}

const (
	EventPostPublished   = "post.published"
	EventPublishFailed   = "post.failed"
	EventJobFinished     = "job.finished"
	EventWeightsAdjusted = "weights.adjusted"
)

// PipelineEvent 推送到消息队列的流水线事件
type PipelineEvent struct {
	Type           string         `json:"type"`
	AccountID      uint64         `json:"account_id,omitempty"`
	DraftID        uint64         `json:"draft_id,omitempty"`
	ScheduleItemID uint64         `json:"schedule_item_id,omitempty"`
	ExternalPostID string         `json:"external_post_id,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	At             time.Time      `json:"at"`
}
