package bus

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Kafka is a bus backed by kafka brokers.
type Kafka struct {
	brokers []string
	writer  *kafka.Writer
}

func NewKafka(brokers []string) *Kafka {
	return &Kafka{
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Reader starts consuming from the latest offset, as consumers only care about new events.
func (k *Kafka) Reader(topic, group string) (Reader, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.brokers,
		Topic:       topic,
		GroupID:     group,
		StartOffset: kafka.LastOffset,
	})
	return &kafkaReader{reader: r}, nil
}

func (k *Kafka) Writer() Writer {
	return kafkaWriter{writer: k.writer}
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

type kafkaReader struct {
	reader *kafka.Reader
}

func (r *kafkaReader) ReadMessage(ctx context.Context) (Message, error) {
	m, err := r.reader.ReadMessage(ctx)
	if err != nil {
		return Message{}, err
	}

	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}

	return Message{
		Topic:   m.Topic,
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
	}, nil
}

func (r *kafkaReader) Close() error {
	return r.reader.Close()
}

type kafkaWriter struct {
	writer *kafka.Writer
}

func (w kafkaWriter) WriteMessages(ctx context.Context, msgs ...Message) error {
	out := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		headers := make([]kafka.Header, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		out = append(out, kafka.Message{
			Topic:   msg.Topic,
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: headers,
		})
	}
	return w.writer.WriteMessages(ctx, out...)
}

// Close is a no-op: the shared writer is closed with the bus.
func (w kafkaWriter) Close() error {
	return nil
}
