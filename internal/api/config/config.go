package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

var replacer = strings.NewReplacer(".", "_")

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix("SIGNALFORGE")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

// SetDefaults 所有策略常量的默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logger.level", "info")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_lifetime", 30)

	v.SetDefault("mongo.audit_collection", "audit_log")
	v.SetDefault("minio.archive_bucket", "signalforge-feeds")
	v.SetDefault("minio.retention_days", 30)

	v.SetDefault("llm.seed", "signalforge")
	v.SetDefault("llm.max_concurrency", 4)
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.prompts_path", "./configs/prompts")
	v.SetDefault("llm.default_format", "tweet_single")

	v.SetDefault("kafka.trigger.topic", "signalforge.jobs")
	v.SetDefault("kafka.trigger.group_id", "signalforge-trigger")
	v.SetDefault("kafka.events.topic", "signalforge.events")
	v.SetDefault("kafka.consumer.session_timeout", 30)
	v.SetDefault("kafka.consumer.heartbeat_interval", 3)
	v.SetDefault("kafka.consumer.rebalance_timeout", 60)

	v.SetDefault("jwt.issuer", "signalforge")

	v.SetDefault("feed.timeout_seconds", 15)
	v.SetDefault("feed.user_agent", "signalforge-ingest/1.0")
	v.SetDefault("feed.enrich", false)
	v.SetDefault("feed.archive", false)
	v.SetDefault("feed.render_js", false)

	v.SetDefault("publisher.timeout_seconds", 15)
	v.SetDefault("publisher.failure_threshold", 5)
	v.SetDefault("publisher.failure_window", 10)
	v.SetDefault("publisher.breaker_delay_seconds", 30)
	v.SetDefault("publisher.stub_url_prefix", "https://x.com")

	v.SetDefault("pipeline.posting_disabled", false)
	v.SetDefault("pipeline.safety_blocklist", "")
	v.SetDefault("pipeline.publish_max_attempts", 3)
	v.SetDefault("pipeline.backoff_base_minutes", 5)
	v.SetDefault("pipeline.backoff_cap_minutes", 60)
	v.SetDefault("pipeline.claim_lease_seconds", 300)
	v.SetDefault("pipeline.max_single_length", 240)
	v.SetDefault("pipeline.max_segment_length", 260)
	v.SetDefault("pipeline.draft_similarity", 0.85)
	v.SetDefault("pipeline.source_similarity", 0.8)
	v.SetDefault("pipeline.weight_floor", 0.5)
	v.SetDefault("pipeline.weight_ceiling", 2.0)
	v.SetDefault("pipeline.account_lock_seconds", 60)
	v.SetDefault("pipeline.recency_window_days", 7)
	v.SetDefault("pipeline.summary_lookback_days", 7)
	v.SetDefault("pipeline.posting_switch_key", "signalforge:posting_disabled")
	v.SetDefault("pipeline.distributed_locks", true)
	v.SetDefault("pipeline.external_call_timeout_seconds", 15)

	v.SetDefault("jobs.ingest", "0 0 * * * *")
	v.SetDefault("jobs.score", "0 5 * * * *")
	v.SetDefault("jobs.generate", "0 10 */2 * * *")
	v.SetDefault("jobs.guardrails", "0 15 * * * *")
	v.SetDefault("jobs.schedule", "0 20 * * * *")
	v.SetDefault("jobs.publish", "0 * * * * *")
	v.SetDefault("jobs.analytics", "0 0 1 * * *")
	v.SetDefault("jobs.feedback", "0 0 2 * * *")
	v.SetDefault("jobs.lock_seconds", 1800)
}
