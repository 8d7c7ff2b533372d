package minio

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// Archive 原始订阅源归档
type Archive struct {
	client *minio.Client
	bucket string
}

// ObjectKey feeds/<source>/<yyyy/mm/dd>/<unix>.xml
func ObjectKey(sourceID uint64, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("feeds/%d/%s/%d.xml", sourceID, at.Format("2006/01/02"), at.Unix())
}

// Put 上传原始文档，返回对象名
func (a *Archive) Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	uploadInfo, err := a.client.PutObject(ctx, a.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return uploadInfo.Key, nil
}
