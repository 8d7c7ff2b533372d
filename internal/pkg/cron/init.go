package cron

import log "log/slog"

// InitCron 注册并启动，没有任何定时任务时不启动引擎
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return err
	}
	if mgr.Entries() == 0 {
		log.Warn("no cron jobs configured, relying on HTTP/Kafka triggers")
		return nil
	}
	log.Info("Cron Jobs starting...", "entries", mgr.Entries())
	mgr.Start()
	return nil
}
