package kafka

import (
	"strings"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// TriggerMessage 触发 topic 的消息体，例如 {"job":"publish"}
type TriggerMessage struct {
	Job         string `json:"job"`
	RequestedBy string `json:"requested_by,omitempty"`
}

var errEmptyJob = errors.New("trigger message without job name")

// DecodeTrigger 解析触发消息
func DecodeTrigger(msg *sarama.ConsumerMessage) (*TriggerMessage, error) {
	var trigger TriggerMessage
	if err := json.Unmarshal(msg.Value, &trigger); err != nil {
		return nil, errors.Wrapf(err, "decode trigger at %s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	trigger.Job = strings.TrimSpace(strings.ToLower(trigger.Job))
	if trigger.Job == "" {
		return nil, errors.WithStack(errEmptyJob)
	}
	return &trigger, nil
}
