package cron

import (
	"Signalforge/internal/api/config"
	"Signalforge/internal/job"
	"Signalforge/internal/pkg/consts"
	"fmt"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine   *cron.Cron
	registry *job.Registry
	specs    map[string]string
}

func NewCronManager(registry *job.Registry, jobsCfg config.JobsConfig) *Manager {
	logger := slogCronLogger{}
	return &Manager{
		engine: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		registry: registry,
		specs:    Specs(jobsCfg),
	}
}

// Specs 任务名到 cron 表达式，空表达式表示不定时执行
func Specs(jobsCfg config.JobsConfig) map[string]string {
	return map[string]string{
		consts.StageIngest:     jobsCfg.Ingest,
		consts.StageScore:      jobsCfg.Score,
		consts.StageGenerate:   jobsCfg.Generate,
		consts.StageGuardrails: jobsCfg.Guardrails,
		consts.StageSchedule:   jobsCfg.Schedule,
		consts.StagePublish:    jobsCfg.Publish,
		consts.StageAnalytics:  jobsCfg.Analytics,
		consts.StageFeedback:   jobsCfg.Feedback,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	for _, j := range s.registry.Jobs() {
		spec := s.specs[j.Name()]
		if spec == "" {
			log.Info("cron job disabled", "job", j.Name())
			continue
		}
		if _, err := s.engine.AddJob(spec, j); err != nil {
			return fmt.Errorf("register cron job %s (%s): %w", j.Name(), spec, err)
		}
		log.Info("cron job registered", "job", j.Name(), "spec", spec)
	}
	return nil
}

// Entries 已注册的定时任务数
func (s *Manager) Entries() int {
	return len(s.engine.Entries())
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}

// slogCronLogger 让 cron 内部日志走 slog
type slogCronLogger struct{}

func (slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug("cron: "+msg, keysAndValues...)
}

func (slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
