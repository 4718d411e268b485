// internal/service/outbox/infrastructure/kafka_transport.go
package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"marketplace/internal/pkg/mq"
	"marketplace/internal/service/outbox/domain"
)

// KafkaTransport 把出站事件写入 Kafka。
// 消息 Key 是 AggregateID，配合哈希分区保证同一聚合进同一分区。
type KafkaTransport struct {
	writer *kafka.Writer
}

func NewKafkaTransport(writer *kafka.Writer) *KafkaTransport {
	return &KafkaTransport{writer: writer}
}

var _ domain.Transport = (*KafkaTransport)(nil)

func (t *KafkaTransport) Send(ctx context.Context, event *domain.DomainEvent) error {
	value, err := json.Marshal(event.Payload)
	if err != nil {
		return errors.Wrapf(err, "marshal event %s payload failed", event.EventID)
	}

	err = mq.ProduceMessage(ctx, t.writer, []byte(event.AggregateID.String()), value,
		kafka.Header{Key: "event-id", Value: []byte(event.EventID.String())},
		kafka.Header{Key: "event-type", Value: []byte(event.EventType)},
		kafka.Header{Key: "sequence-number", Value: []byte(strconv.FormatInt(event.SequenceNumber, 10))},
	)
	return errors.Wrapf(err, "produce event %s failed", event.EventID)
}
