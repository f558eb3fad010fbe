package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nguyentantai21042004/vidscribe/internal/config"
	"github.com/nguyentantai21042004/vidscribe/internal/logger"
)

const queueSize = 256

// redisClient is the subset of *redis.Client used here.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

type redisPublisher struct {
	client redisClient
	prefix string
	queue  chan Event
	logger logger.Logger
}

// NewRedis connects to Redis and returns a Publisher that sends each event
// as JSON on channel <prefix><taskId>.
func NewRedis(ctx context.Context, cfg config.EventsConfig, log logger.Logger) (Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisPublisher(client, cfg.ChannelPrefix, log), nil
}

func newRedisPublisher(client redisClient, prefix string, log logger.Logger) *redisPublisher {
	return &redisPublisher{
		client: client,
		prefix: prefix,
		queue:  make(chan Event, queueSize),
		logger: log,
	}
}

// Publish enqueues e, dropping it when the queue is full.
func (p *redisPublisher) Publish(ctx context.Context, e Event) {
	select {
	case p.queue <- e:
	default:
		p.logger.Warn(ctx, "Event queue full, dropping %s event for task %s", e.Status, e.TaskID)
	}
}

func (p *redisPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.queue:
			p.send(ctx, e)
		}
	}
}

func (p *redisPublisher) send(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Error(ctx, "Failed to encode event: %v", err)
		return
	}
	if err := p.client.Publish(ctx, p.Channel(e.TaskID), payload).Err(); err != nil {
		p.logger.Warn(ctx, "Failed to publish event for task %s: %v", e.TaskID, err)
	}
}

// Channel returns the Pub/Sub channel for a task.
func (p *redisPublisher) Channel(taskID string) string {
	return p.prefix + taskID
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
