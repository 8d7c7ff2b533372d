package wire

import (
	"Signalforge/internal/api"
	"Signalforge/internal/api/config"
	"Signalforge/internal/api/handler"
	"Signalforge/internal/api/middleware"
	"Signalforge/internal/job"
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/consts"
	"Signalforge/internal/pkg/cron"
	"Signalforge/internal/pkg/feed"
	"Signalforge/internal/pkg/kafka"
	"Signalforge/internal/pkg/llm"
	"Signalforge/internal/pkg/mongo"
	"Signalforge/internal/pkg/publisher"
	"Signalforge/internal/pkg/redis"
	"Signalforge/internal/pkg/security"
	"Signalforge/internal/repository"
	"Signalforge/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const metricsNamespace = "signalforge"

// Infra 外部连接，除 DB 外均可为空
type Infra struct {
	DB *gorm.DB
	// Redis 为空时使用进程内锁，停发开关只读配置
	Redis *goredis.Client
	// Mongo 为空时不落审计
	Mongo   *mongodriver.Database
	Archive service.Archiver
	Events  service.EventSink
	Metrics *prometheus.Registry
}

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
	Registry     *job.Registry
}

func BuildApplication(cfg *config.Config, infra *Infra) (*ApplicationContainer, error) {
	db := infra.DB
	policy := service.PolicyFromConfig(cfg.Pipeline)
	now := service.Clock(service.SystemClock)

	sourceRepo := repository.NewSourceRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	ideaRepo := repository.NewIdeaRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	postRepo := repository.NewPostRepository(db)

	var locker service.Locker = service.NewMemoryLocker()
	var posting service.PostingSwitch
	if infra.Redis != nil {
		if cfg.Pipeline.DistributedLocks {
			locker = redis.NewLocker(infra.Redis)
		}
		posting = redis.NewFlag(infra.Redis, cfg.Pipeline.PostingSwitchKey)
	}

	var auditSink service.AuditSink
	var auditReader handler.AuditReader
	if infra.Mongo != nil {
		auditRepo := mongo.NewAuditRepo(infra.Mongo, cfg.Mongo.AuditCollection)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			log.Warn("ensure audit indexes failed", "err", err)
		}
		cancel()
		auditSink = auditRepo
		auditReader = auditRepo
	}

	feedTimeout := time.Duration(cfg.Feed.TimeoutSeconds) * time.Second
	fetcher := feed.NewHTTPFetcher(feedTimeout, cfg.Feed.UserAgent)
	var enricher feed.Enricher
	if cfg.Feed.Enrich {
		enricher = feed.NewArticleEnricher(feedTimeout, cfg.Feed.UserAgent, cfg.Feed.RenderJS)
	}

	generator, err := llm.NewGenerator(cfg.LLM)
	if err != nil {
		return nil, err
	}
	prompts, err := llm.LoadPrompts(cfg.LLM.PromptsPath, model.FormatSingle, model.FormatThread)
	if err != nil {
		return nil, err
	}

	provider := newProvider(cfg.Publisher)

	ingestSvc := service.NewIngestService(sourceRepo, accountRepo, ideaRepo, fetcher, enricher, infra.Archive, policy, now)
	scoringSvc := service.NewScoringService(ideaRepo, policy, now)
	generateSvc, err := service.NewGenerateService(ideaRepo, draftRepo, generator, prompts, cfg.LLM.DefaultFormat, policy)
	if err != nil {
		return nil, err
	}
	guardrailsSvc := service.NewGuardrailsService(draftRepo, accountRepo, auditSink, policy)
	schedulingSvc := service.NewSchedulingService(accountRepo, draftRepo, scheduleRepo, locker, service.NewRand(), policy, now)
	publishSvc := service.NewPublishService(scheduleRepo, accountRepo, draftRepo, provider, posting, auditSink, infra.Events, policy, now)
	metricsSvc := service.NewMetricsService(postRepo, accountRepo, provider, policy, now)
	feedbackSvc := service.NewFeedbackService(postRepo, accountRepo, locker, auditSink, infra.Events, policy, now)
	accountSvc := service.NewAccountService(accountRepo, locker, policy)
	analyticsSvc := service.NewAnalyticsService(postRepo, ideaRepo, draftRepo, now)

	var reg prometheus.Registerer
	if infra.Metrics != nil {
		reg = infra.Metrics
	}
	registry := job.NewRegistry(locker, time.Duration(cfg.Jobs.LockSeconds)*time.Second, infra.Events,
		job.NewMetrics(metricsNamespace, reg), now)
	registry.Register(consts.StageIngest, job.Stage(ingestSvc.IngestSources))
	registry.Register(consts.StageScore, job.Stage(scoringSvc.ScoreIdeas))
	registry.Register(consts.StageGenerate, job.Stage(generateSvc.GenerateDrafts))
	registry.Register(consts.StageGuardrails, job.Stage(guardrailsSvc.CheckDrafts))
	registry.Register(consts.StageSchedule, job.Stage(schedulingSvc.SchedulePosts))
	registry.Register(consts.StagePublish, job.Stage(publishSvc.PublishDue))
	registry.Register(consts.StageAnalytics, job.Stage(metricsSvc.PullMetrics))
	registry.Register(consts.StageFeedback, job.Stage(feedbackSvc.LearnTemplates))

	tokens, err := security.NewTokenSigner(cfg.JWT)
	if err != nil {
		return nil, err
	}

	handlers := &api.HandlersGroup{
		JobHandler:      handler.NewJobHandler(registry),
		PipelineHandler: handler.NewPipelineHandler(publishSvc),
		AccountHandler:  handler.NewAccountHandler(accountSvc, schedulingSvc, analyticsSvc, cfg.Pipeline.SummaryLookbackDays),
		ContentHandler:  handler.NewContentHandler(ingestSvc, analyticsSvc, auditReader, cfg.Pipeline.SummaryLookbackDays),
		Tokens:          tokens,
	}
	if infra.Metrics != nil {
		handlers.HTTPMetrics = middleware.NewHTTPMetrics(metricsNamespace, infra.Metrics)
		handlers.MetricsHandler = gin.WrapH(promhttp.HandlerFor(infra.Metrics, promhttp.HandlerOpts{}))
	}

	router := api.SetupRouter(handlers, cfg.Logstash)

	var kafkaMgr *kafka.ConsumerManager
	if cfg.Kafka.Enable {
		kafkaMgr, err = kafka.NewConsumerManager(cfg.Kafka, registry)
		if err != nil {
			return nil, err
		}
	}

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		CronMgr:      cron.NewCronManager(registry, cfg.Jobs),
		Registry:     registry,
	}, nil
}

// newProvider 未配置平台地址时使用桩客户端
func newProvider(cfg config.PublisherConfig) publisher.Provider {
	if cfg.BaseURL == "" {
		return &publisher.StubProvider{URLPrefix: cfg.StubURLPrefix}
	}
	return publisher.NewHTTPProvider(cfg.BaseURL, cfg.Token, time.Duration(cfg.TimeoutSeconds)*time.Second,
		publisher.BreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			FailureWindow:    cfg.FailureWindow,
			Delay:            time.Duration(cfg.BreakerDelaySecs) * time.Second,
		})
}
