package mongo

import (
	"Signalforge/internal/model"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestAuditRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewAuditRepoWithCollection(mt.Coll)

		entry := &model.AuditLog{WorkspaceID: 1, EventType: model.AuditDraftRejected, Message: "blocked term"}
		require.NoError(t, repo.Record(context.Background(), entry))
		require.False(t, entry.CreatedAt.IsZero())
	})

	mt.Run("record error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key",
		}))
		repo := NewAuditRepoWithCollection(mt.Coll)

		err := repo.Record(context.Background(), &model.AuditLog{WorkspaceID: 1})
		require.Error(t, err)
	})

	mt.Run("list", func(mt *mtest.T) {
		at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "workspace_id", Value: int64(1)},
			{Key: "event_type", Value: model.AuditPostPublished},
			{Key: "message", Value: "posted"},
			{Key: "created_at", Value: at},
		})
		last := mtest.CreateCursorResponse(0, ns, mtest.NextBatch)
		mt.AddMockResponses(first, last)
		repo := NewAuditRepoWithCollection(mt.Coll)

		list, err := repo.List(context.Background(), AuditFilter{WorkspaceID: 1, EventType: model.AuditPostPublished})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, model.AuditPostPublished, list[0].EventType)
		require.Equal(t, uint64(1), list[0].WorkspaceID)
		require.True(t, list[0].CreatedAt.Equal(at))
	})
}
