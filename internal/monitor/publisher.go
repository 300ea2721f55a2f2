package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/edgegate/edgegate/internal/models"
)

const eventRetention = 5 * time.Minute

// Publisher mirrors attack events into a Redis time series and publishes
// HIGH-threat alerts on a pub/sub channel so external dashboards can
// subscribe. All operations are best-effort.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *logrus.Logger
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(addr, channel string, logger *logrus.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &Publisher{client: client, channel: channel, logger: logger}, nil
}

// PublishAttack adds the event to the attacks time series, trimming
// entries older than the retention window.
func (p *Publisher) PublishAttack(ctx context.Context, event models.AttackEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).Error("failed to marshal attack event for redis")
		return
	}

	key := "edgegate:attacks"
	pipe := p.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(event.Timestamp.Unix()),
		Member: string(data),
	})
	cutoff := event.Timestamp.Add(-eventRetention).Unix()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff))
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.WithError(err).Error("failed to mirror attack event to redis")
	}
}

// PublishAlert pushes an alert onto the configured pub/sub channel.
func (p *Publisher) PublishAlert(ctx context.Context, alert models.Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		p.logger.WithError(err).Error("failed to marshal alert for redis")
		return
	}
	if err := p.client.Publish(ctx, p.channel, string(data)).Err(); err != nil {
		p.logger.WithError(err).Error("failed to publish alert to redis")
	}
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
