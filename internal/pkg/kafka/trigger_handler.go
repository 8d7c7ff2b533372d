package kafka

import (
	"Signalforge/internal/job"
	"Signalforge/internal/pkg/logger"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// JobRunner 按名称执行流水线任务
type JobRunner interface {
	Run(ctx context.Context, name string) (*job.Summary, error)
}

// TriggerHandler 消费触发 topic，逐条执行任务
type TriggerHandler struct {
	runner JobRunner
}

func NewTriggerHandler(runner JobRunner) *TriggerHandler {
	return &TriggerHandler{runner: runner}
}

func (s *TriggerHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("trigger consumer setup")
	return nil
}

func (s *TriggerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("trigger consumer cleanup")
	return nil
}

func (s *TriggerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-trigger consume claim", "partition", claim.Partition())
	return consumeEach(session, claim, s.logic)
}

// logic 解析失败与任务忙碌都不重试，任务本身的错误已记录在任务日志里
func (s *TriggerHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	trigger, err := DecodeTrigger(msg)
	if err != nil {
		return errors.WithMessage(err, "skip malformed trigger")
	}
	ctx = logger.WithTrace(ctx, "kafka-trigger")
	summary, err := s.runner.Run(ctx, trigger.Job)
	if job.IsBusy(err) {
		log.InfoContext(ctx, "triggered job busy", "job", trigger.Job)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "run job %s", trigger.Job)
	}
	log.InfoContext(ctx, "triggered job finished", "job", trigger.Job,
		"status", summary.Status, "counts", summary.Counts, "requested_by", trigger.RequestedBy)
	return nil
}
