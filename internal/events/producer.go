package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const workflowTopic = "concierge-workflow-events"

// Producer publishes workflow events. Publishing is best-effort; the
// workflow engine logs failures and moves on (eventual consistency).
type Producer struct {
	writer  *kafka.Writer
	brokers []string
	logger  *zap.Logger
}

// NewProducer accepts a comma-separated broker list.
func NewProducer(brokers string, logger *zap.Logger) (*Producer, error) {
	addrs := strings.Split(brokers, ",")
	writer := &kafka.Writer{
		Addr:     kafka.TCP(addrs...),
		Topic:    workflowTopic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{
		writer:  writer,
		brokers: addrs,
		logger:  logger,
	}, nil
}

func (p *Producer) PublishReturnCreated(event ReturnCreatedEvent) error {
	return p.publish(event.EventID, "return_created", event)
}

func (p *Producer) PublishCaseCreated(event CaseCreatedEvent) error {
	return p.publish(event.EventID, "case_created", event)
}

func (p *Producer) PublishCaseStatusChanged(event CaseStatusChangedEvent) error {
	return p.publish(event.EventID, "case_status_changed", event)
}

func (p *Producer) publish(key, eventType string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			zap.String("event_type", eventType),
			zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_type", eventType),
			zap.String("event_id", key),
			zap.Error(err))
		return err
	}

	p.logger.Info("Event published",
		zap.String("event_type", eventType),
		zap.String("event_id", key))
	return nil
}

// HealthCheck dials the first broker to confirm it is reachable.
func (p *Producer) HealthCheck() error {
	conn, err := kafka.Dial("tcp", p.brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
