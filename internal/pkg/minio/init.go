package minio

import (
	"Signalforge/internal/api/config"
	"context"
	"fmt"
	log "log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// Init 初始化 MinIO 客户端并确保归档桶存在
func Init(ctx context.Context, cfg config.MinIOConfig) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.ArchiveBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to minio server: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.ArchiveBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.ArchiveBucket, err)
		}
	}

	archive := &Archive{client: client, bucket: cfg.ArchiveBucket}
	if cfg.RetentionDays > 0 {
		if err = archive.ensureLifecycle(ctx, cfg.RetentionDays); err != nil {
			return nil, err
		}
	}
	return archive, nil
}

func (a *Archive) ensureLifecycle(ctx context.Context, days int) error {
	lcConfig, err := a.client.GetBucketLifecycle(ctx, a.bucket)
	if err != nil {
		lcConfig = lifecycle.NewConfiguration()
	}

	for _, rule := range lcConfig.Rules {
		// 判定条件：状态开启 + 全桶匹配(无Prefix) + 过期天数一致
		if rule.Status == "Enabled" &&
			int(rule.Expiration.Days) == days &&
			rule.RuleFilter.Prefix == "" {
			log.Info("检测到已存在兼容的过期策略", "ruleID", rule.ID)
			return nil
		}
	}

	lcConfig.Rules = append(lcConfig.Rules, lifecycle.Rule{
		ID:     "FeedArchiveExpireRule",
		Status: "Enabled",
		Expiration: lifecycle.Expiration{
			Days: lifecycle.ExpirationDays(days),
		},
	})
	if err = a.client.SetBucketLifecycle(ctx, a.bucket, lcConfig); err != nil {
		return fmt.Errorf("设置生命周期失败: %w", err)
	}
	log.Info("已设置归档桶过期策略", "bucket", a.bucket, "days", days)
	return nil
}
