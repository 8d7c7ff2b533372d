package config

// Config 配置主体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Logstash  LogstashConfig  `mapstructure:"logstash"`
	DB        DBConfig        `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

// DBConfig 数据库配置，driver 可选 mysql / postgres / sqlite
type DBConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoConfig struct {
	URL             string `mapstructure:"url"`
	Database        string `mapstructure:"database"`
	AuditCollection string `mapstructure:"audit_collection"`
}

// MinIOConfig MinIO配置，ArchiveBucket 存放原始订阅源
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	ArchiveBucket string `mapstructure:"archive_bucket"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LLMConfig 为空 URL 时使用确定性的桩生成器
type LLMConfig struct {
	URL            string `mapstructure:"url"`
	TextModel      string `mapstructure:"text_model"`
	ApiKey         string `mapstructure:"api_key"`
	Seed           string `mapstructure:"seed"`
	MaxConcurrency int64  `mapstructure:"max_concurrency"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	PromptsPath    string `mapstructure:"prompts_path"`
	DefaultFormat  string `mapstructure:"default_format"`
}

type KafkaConfig struct {
	Enable   bool                 `mapstructure:"enable"`
	Brokers  []string             `mapstructure:"brokers"`
	Sasl     SaslConfig           `mapstructure:"sasl"`
	Consumer ConsumerConfig       `mapstructure:"consumer"`
	Trigger  KafkaTriggerConsumer `mapstructure:"trigger"`
	Events   KafkaEventsProducer  `mapstructure:"events"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
}

type KafkaTriggerConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type KafkaEventsProducer struct {
	Topic string `mapstructure:"topic"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type FeedConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	Enrich         bool   `mapstructure:"enrich"`
	Archive        bool   `mapstructure:"archive"`
	RenderJS       bool   `mapstructure:"render_js"`
}

// PublisherConfig BaseURL 为空时使用桩客户端
type PublisherConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	Token            string `mapstructure:"token"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	FailureThreshold uint   `mapstructure:"failure_threshold"`
	FailureWindow    uint   `mapstructure:"failure_window"`
	BreakerDelaySecs int    `mapstructure:"breaker_delay_seconds"`
	StubURLPrefix    string `mapstructure:"stub_url_prefix"`
}

// PipelineConfig 流水线策略常量，均可覆盖
type PipelineConfig struct {
	PostingDisabled         bool    `mapstructure:"posting_disabled"`
	PublishMaxAttempts      int     `mapstructure:"publish_max_attempts"`
	BackoffBaseMinutes      int     `mapstructure:"backoff_base_minutes"`
	BackoffCapMinutes       int     `mapstructure:"backoff_cap_minutes"`
	ClaimLeaseSeconds       int     `mapstructure:"claim_lease_seconds"`
	SafetyBlocklist         string  `mapstructure:"safety_blocklist"`
	MaxSingleLength         int     `mapstructure:"max_single_length"`
	MaxSegmentLength        int     `mapstructure:"max_segment_length"`
	DraftSimilarity         float64 `mapstructure:"draft_similarity"`
	SourceSimilarity        float64 `mapstructure:"source_similarity"`
	WeightFloor             float64 `mapstructure:"weight_floor"`
	WeightCeiling           float64 `mapstructure:"weight_ceiling"`
	AccountLockSeconds      int     `mapstructure:"account_lock_seconds"`
	RecencyWindowDays       int     `mapstructure:"recency_window_days"`
	SummaryLookbackDays     int     `mapstructure:"summary_lookback_days"`
	PostingSwitchKey        string  `mapstructure:"posting_switch_key"`
	DistributedLocks        bool    `mapstructure:"distributed_locks"`
	ExternalCallTimeoutSecs int     `mapstructure:"external_call_timeout_seconds"`
}

// JobsConfig cron 表达式（含秒），空串表示只接受手动触发
type JobsConfig struct {
	Ingest      string `mapstructure:"ingest"`
	Score       string `mapstructure:"score"`
	Generate    string `mapstructure:"generate"`
	Guardrails  string `mapstructure:"guardrails"`
	Schedule    string `mapstructure:"schedule"`
	Publish     string `mapstructure:"publish"`
	Analytics   string `mapstructure:"analytics"`
	Feedback    string `mapstructure:"feedback"`
	LockSeconds int    `mapstructure:"lock_seconds"`
}
