package main

import (
	"Signalforge/internal/api/config"
	"Signalforge/internal/pkg/cron"
	"Signalforge/internal/pkg/database"
	"Signalforge/internal/pkg/kafka"
	"Signalforge/internal/pkg/logger"
	"Signalforge/internal/pkg/minio"
	"Signalforge/internal/pkg/mongo"
	"Signalforge/internal/pkg/redis"
	"Signalforge/internal/wire"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 加载配置
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	// 初始化日志
	logger.InitLogger(cfg.Logger, cfg.Logstash)

	// 数据库连接
	dbCfg := cfg.DB
	db, err := database.NewGormDB(&dbCfg)
	if err != nil {
		log.Error("Fatal error: failed to create database connection", "err", err)
		panic(err)
	}

	infra := &wire.Infra{DB: db}

	// Redis 连接，未配置时锁退化为进程内
	if cfg.Redis.Addr != "" {
		infra.Redis, err = redis.InitRedis(cfg.Redis)
		if err != nil {
			log.Error("Fatal error: failed to create redis connection", "err", err)
			panic(err)
		}
	} else {
		log.Warn("redis not configured, using in-process locks")
	}

	// Mongo 连接，承载审计日志
	if cfg.Mongo.URL != "" {
		infra.Mongo, err = mongo.InitMongo(cfg.Mongo)
		if err != nil {
			log.Error("Fatal error: failed to create mongo connection", "err", err)
			panic(err)
		}
	}

	// MinIO 连接，仅归档原始订阅源时需要
	if cfg.Feed.Archive {
		initCtx, initCancel := context.WithTimeout(context.Background(), 15*time.Second)
		archive, archiveErr := minio.Init(initCtx, cfg.MinIO)
		initCancel()
		if archiveErr != nil {
			log.Error("Fatal error: failed to initialize MinIO", "err", archiveErr)
			panic(archiveErr)
		}
		infra.Archive = archive
	}

	// Kafka 事件生产者
	var producer *kafka.EventProducer
	if cfg.Kafka.Enable {
		producer, err = kafka.NewEventProducer(cfg.Kafka)
		if err != nil {
			log.Error("Fatal error: failed to create kafka producer", "err", err)
			panic(err)
		}
		infra.Events = producer
		defer func() {
			if closeErr := producer.Close(); closeErr != nil {
				log.Error("Failed to close kafka producer", "err", closeErr)
			}
		}()
	}

	// Prometheus
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	infra.Metrics = reg

	// 依赖注入
	app, err := wire.BuildApplication(cfg, infra)
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// 定时任务
	err = cron.InitCron(app.CronMgr)
	if err != nil {
		log.Error("Fatal error: failed to start cron jobs", "err", err)
		panic(err)
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Cron Jobs stopping...")
		app.CronMgr.Stop()
		return nil
	})

	// Kafka 任务触发消费者
	if app.KafkaManager != nil {
		g.Go(func() error {
			log.Info("Kafka Consumers starting...")
			return app.KafkaManager.Start(ctx)
		})
	}

	// HTTP 服务器
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("HTTP Server starting...", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 优雅退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP Server shutdown failed", "err", err)
		}
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	log.Info("App exited successfully.")
}
