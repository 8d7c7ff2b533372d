package kafka

import (
	"Signalforge/internal/api/config"
	"Signalforge/internal/model"
	"context"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// EventProducer 把流水线事件写入事件 topic
type EventProducer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewEventProducer(kafkaCfg config.KafkaConfig) (*EventProducer, error) {
	producer, err := sarama.NewSyncProducer(kafkaCfg.Brokers, newSaramaConfig(kafkaCfg))
	if err != nil {
		return nil, errors.Wrap(err, "create event producer")
	}
	return NewEventProducerWith(producer, kafkaCfg.Events.Topic), nil
}

func NewEventProducerWith(producer sarama.SyncProducer, topic string) *EventProducer {
	return &EventProducer{producer: producer, topic: topic}
}

// Emit 同一账号的事件落在同一分区
func (p *EventProducer) Emit(_ context.Context, event *model.PipelineEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encode pipeline event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(eventKey(event)),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err = p.producer.SendMessage(msg); err != nil {
		return errors.Wrapf(err, "send %s event", event.Type)
	}
	return nil
}

func (p *EventProducer) Close() error {
	return p.producer.Close()
}

func eventKey(event *model.PipelineEvent) string {
	if event.AccountID != 0 {
		return "account-" + strconv.FormatUint(event.AccountID, 10)
	}
	if name, ok := event.Data["job"].(string); ok {
		return "job-" + name
	}
	return event.Type
}
