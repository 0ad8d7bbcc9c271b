package ingest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer lazily manages writers per topic.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes messages to the given topic, creating a writer if
// necessary.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writerForTopic(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// EventPublisher delivers ActivityIngested events to a Kafka topic, keyed
// by uuid so replays for one activity stay in partition order.
type EventPublisher struct {
	producer messageWriter
	topic    string
}

// NewEventPublisher builds an EventPublisher.
func NewEventPublisher(producer *KafkaProducer, topic string) *EventPublisher {
	return &EventPublisher{producer: producer, topic: topic}
}

// Publish implements Publisher.
func (p *EventPublisher) Publish(ctx context.Context, event ActivityIngested) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.UUID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("activity.ingested")},
		},
	}
	return p.producer.WriteMessages(ctx, p.topic, msg)
}
