package kafka

import (
	"Signalforge/internal/api/config"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理任务触发消费者
type ConsumerManager struct {
	triggerConsumer sarama.ConsumerGroup
	triggerHandler  sarama.ConsumerGroupHandler
	topic           string
}

// NewConsumerManager 构造函数
func NewConsumerManager(kafkaCfg config.KafkaConfig, runner JobRunner) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(kafkaCfg)

	triggerConsumer, err := sarama.NewConsumerGroup(kafkaCfg.Brokers, kafkaCfg.Trigger.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		triggerConsumer: triggerConsumer,
		triggerHandler:  NewTriggerHandler(runner),
		topic:           kafkaCfg.Trigger.Topic,
	}, nil
}

// Start 阻塞消费直到 ctx 取消
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.triggerConsumer.Errors() {
			log.Error("Error from trigger consumer group", "err", err)
		}
	}()

	go func() {
		log.Info("Trigger consumer started", "topic", m.topic)
		for {
			if err := m.triggerConsumer.Consume(ctx, []string{m.topic}, m.triggerHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.triggerConsumer.Close(); err != nil {
		log.Error("Failed to close trigger consumer", "err", err)
	}
	return nil
}
