package repository

import (
	"context"
	"time"

	pkgkafka "MarketPulse/pkg/kafka"
)

// refreshEvent is the payload broadcast after a ticker's candle series
// changes. Downstream pipelines use it to invalidate their own caches
// instead of polling.
type refreshEvent struct {
	Symbol     string   `json:"symbol"`
	Timeframes []string `json:"timeframes"`
	At         string   `json:"at"`
}

// KafkaEventPublisher implements EventPublisher over the Kafka producer.
// Events are keyed by symbol so one ticker's events stay ordered.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

// PublishRefresh broadcasts a candles-refreshed event for symbol.
func (p *KafkaEventPublisher) PublishRefresh(ctx context.Context, symbol string, timeframes []string) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), refreshEvent{
		Symbol:     symbol,
		Timeframes: timeframes,
		At:         time.Now().UTC().Format(time.RFC3339),
	})
}

// Close closes the underlying producer.
func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}
