package mongo

import (
	"Signalforge/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditFilter 查询条件，零值字段不参与过滤
type AuditFilter struct {
	WorkspaceID uint64
	AccountID   uint64
	EventType   string
	Since       time.Time
	Limit       int64
}

type AuditRepo interface {
	Record(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]*model.AuditLog, error)
	EnsureIndexes(ctx context.Context) error
}

type auditRepoImpl struct {
	col *mongo.Collection
}

func NewAuditRepo(db *mongo.Database, collection string) AuditRepo {
	return NewAuditRepoWithCollection(db.Collection(collection))
}

func NewAuditRepoWithCollection(col *mongo.Collection) AuditRepo {
	return &auditRepoImpl{col: col}
}

// Record 追加一条审计事件
func (s *auditRepoImpl) Record(ctx context.Context, entry *model.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, entry)
	return err
}

// List 按时间倒序
func (s *auditRepoImpl) List(ctx context.Context, filter AuditFilter) ([]*model.AuditLog, error) {
	query := bson.M{}
	if filter.WorkspaceID != 0 {
		query["workspace_id"] = filter.WorkspaceID
	}
	if filter.AccountID != 0 {
		query["account_id"] = filter.AccountID
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if !filter.Since.IsZero() {
		query["created_at"] = bson.M{"$gte": filter.Since}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	list := make([]*model.AuditLog, 0)
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// EnsureIndexes 工作区+时间、账号+事件类型两组索引
func (s *auditRepoImpl) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "workspace_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "event_type", Value: 1}}},
	})
	return err
}
