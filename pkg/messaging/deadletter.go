package messaging

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/dmehra2102/order-inventory-saga/pkg/metrics"
)

const (
	HeaderOriginalTopic     = "kafka_dlt-original-topic"
	HeaderOriginalPartition = "kafka_dlt-original-partition"
	HeaderOriginalOffset    = "kafka_dlt-original-offset"
	HeaderExceptionMessage  = "kafka_dlt-exception-message"
	HeaderReason            = "kafka_dlt-reason"
)

// Reasons recorded on dead-lettered messages.
const (
	ReasonRejected  = "rejected"
	ReasonExhausted = "retries_exhausted"
)

func DeadLetterTopic(topic string) string {
	return topic + ".DLQ"
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type DeadLetterPublisher struct {
	log    *slog.Logger
	writer Writer
}

func NewDeadLetterPublisher(log *slog.Logger, writer Writer) *DeadLetterPublisher {
	return &DeadLetterPublisher{log: log, writer: writer}
}

// Publish copies msg to its dead-letter topic, keeping key, value and headers.
func (p *DeadLetterPublisher) Publish(ctx context.Context, msg kafka.Message, reason string, cause error) error {
	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
		kafka.Header{Key: HeaderReason, Value: []byte(reason)},
	)

	dl := kafka.Message{
		Topic:   DeadLetterTopic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, dl); err != nil {
		return err
	}
	p.log.Warn("message dead-lettered",
		"topic", dl.Topic,
		"key", string(msg.Key),
		"offset", msg.Offset,
		"reason", reason,
		"err", cause,
	)
	return nil
}

// DeadLetterLogger drains a dead-letter topic and records every message.
type DeadLetterLogger struct {
	log    *slog.Logger
	reader Reader
}

func NewDeadLetterLogger(log *slog.Logger, reader Reader) *DeadLetterLogger {
	return &DeadLetterLogger{log: log, reader: reader}
}

func (l *DeadLetterLogger) Run(ctx context.Context) error {
	defer l.reader.Close()
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		metrics.DeadLetters.WithLabelValues(headers[HeaderOriginalTopic]).Inc()
		l.log.Error("dead letter message received",
			"original_topic", headers[HeaderOriginalTopic],
			"original_partition", headers[HeaderOriginalPartition],
			"original_offset", headers[HeaderOriginalOffset],
			"reason", headers[HeaderReason],
			"exception_message", headers[HeaderExceptionMessage],
			"key", string(msg.Key),
			"value", string(msg.Value),
		)

		if err := l.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			l.log.Error("dead letter commit failed", "err", err)
		}
	}
}
