package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// Publisher forwards events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type redisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher publishes events as JSON on a Redis pub/sub channel.
func NewRedisPublisher(client *redis.Client, channel string) Publisher {
	return &redisPublisher{client: client, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.Publish(ctx, p.channel, body).Err()
}

// Close is a no-op; the client is owned by persistence.Redis.
func (p *redisPublisher) Close() error { return nil }

type amqpPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewAMQPPublisher dials RabbitMQ and declares a durable queue for events.
func NewAMQPPublisher(url, queue string) (Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("rabbitmq queue is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &amqpPublisher{conn: conn, channel: ch, queue: queue}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Type),
		Timestamp:    event.Timestamp,
		Body:         body,
	})
}

// Close closes the underlying channel and connection.
func (p *amqpPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NewPublisher picks RabbitMQ for amqp:// URLs and Redis pub/sub otherwise.
func NewPublisher(brokerURL, topic string, client *redis.Client) (Publisher, error) {
	if strings.HasPrefix(brokerURL, "amqp://") || strings.HasPrefix(brokerURL, "amqps://") {
		return NewAMQPPublisher(brokerURL, topic)
	}
	if client == nil {
		return nil, errors.New("redis client required for pub/sub events")
	}
	return NewRedisPublisher(client, topic), nil
}
