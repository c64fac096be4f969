package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/raaihank/order-etl/internal/etl"
)

// RedisConfig contains summary publishing configuration
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	URL        string        `yaml:"url" mapstructure:"url"`
	Key        string        `yaml:"key" mapstructure:"key"`
	MaxHistory int64         `yaml:"max_history" mapstructure:"max_history"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Published is the JSON document stored for each run.
type Published struct {
	Source     string          `json:"source"`
	FinishedAt time.Time       `json:"finished_at"`
	Summary    *etl.RunSummary `json:"summary"`
}

// RedisPublisher pushes run summaries to Redis: <key>:latest holds the last
// run and <key>:history the newest MaxHistory runs.
type RedisPublisher struct {
	client *redis.Client
	config *RedisConfig
	logger *zap.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(config *RedisConfig, logger *zap.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	publisher := NewRedisPublisherFromClient(client, config, logger)

	ctx, cancel := context.WithTimeout(context.Background(), publisher.timeout())
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Summary publisher initialized",
		zap.String("redis_url", maskRedisURL(config.URL)),
		zap.String("key", config.Key))

	return publisher, nil
}

// NewRedisPublisherFromClient wraps an existing client.
func NewRedisPublisherFromClient(client *redis.Client, config *RedisConfig, logger *zap.Logger) *RedisPublisher {
	if config.Key == "" {
		config.Key = "orderetl:runs"
	}
	if config.MaxHistory <= 0 {
		config.MaxHistory = 50
	}
	return &RedisPublisher{client: client, config: config, logger: logger}
}

// Publish stores the summary of one run.
func (p *RedisPublisher) Publish(ctx context.Context, source string, summary *etl.RunSummary) error {
	data, err := json.Marshal(Published{
		Source:     source,
		FinishedAt: time.Now().UTC(),
		Summary:    summary,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	historyKey := p.config.Key + ":history"
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.config.Key+":latest", data, 0)
	pipe.LPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, 0, p.config.MaxHistory-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish summary: %w", err)
	}

	p.logger.Debug("Run summary published", zap.String("key", p.config.Key))
	return nil
}

// Close closes the Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func (p *RedisPublisher) timeout() time.Duration {
	if p.config.Timeout > 0 {
		return p.config.Timeout
	}
	return 5 * time.Second
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := strings.Index(url, "://")
	userStart := 0
	if scheme >= 0 {
		userStart = scheme + 3
	}
	if at < userStart {
		return url
	}
	colon := strings.Index(url[userStart:at], ":")
	if colon < 0 {
		return url[:userStart] + "***" + url[at:]
	}
	return url[:userStart+colon+1] + "***" + url[at:]
}
