package kafka

import (
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// consumeEach 按序处理消息，处理结果不影响位点提交
func consumeEach(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := logic(session.Context(), msg); err != nil {
				log.Error("process message error", "topic", msg.Topic, "offset", msg.Offset, "err", err)
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
