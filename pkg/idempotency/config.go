package idempotency

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Defaults follow the Stripe idempotency conventions: 255-character keys,
// a short lock window, 24h replay retention, 1MB cached responses.
const (
	DefaultMaxKeyLength    = 255
	DefaultLockTimeout     = 5 * time.Minute
	DefaultRetentionPeriod = 24 * time.Hour
	DefaultMaxResponseSize = 1 * 1024 * 1024
)

// Config controls the HTTP idempotency middleware.
type Config struct {
	ServiceName string
	Repository  KeyRepository

	// RequireKey rejects mutating requests that carry no Idempotency-Key
	// header. When false such requests bypass the middleware entirely.
	RequireKey bool

	// OnlyMutating limits the middleware to POST, PUT, PATCH and DELETE.
	OnlyMutating bool

	// UserIDExtractor, when set, scopes keys to the authenticated user so
	// two users may reuse the same key value without colliding.
	UserIDExtractor func(*gin.Context) string

	MaxKeyLength    int
	LockTimeout     time.Duration
	RetentionPeriod time.Duration

	// MaxResponseSize caps the cached response body. Larger bodies are
	// served to the first caller as-is but cached as a truncation marker.
	MaxResponseSize int

	Metrics *Metrics
}

// DefaultConfig returns middleware settings for the given service, with
// keys optional and checks limited to mutating methods.
func DefaultConfig(serviceName string, repository KeyRepository) *Config {
	return &Config{
		ServiceName:     serviceName,
		Repository:      repository,
		OnlyMutating:    true,
		MaxKeyLength:    DefaultMaxKeyLength,
		LockTimeout:     DefaultLockTimeout,
		RetentionPeriod: DefaultRetentionPeriod,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// ConsumerConfig controls Kafka message deduplication for one topic and
// consumer group.
type ConsumerConfig struct {
	ServiceName   string
	Topic         string
	ConsumerGroup string
	Repository    MessageRepository

	// RetentionPeriod bounds how long processed message IDs are kept. A
	// redelivery arriving after this window would be handled again.
	RetentionPeriod time.Duration

	Metrics *Metrics
}

// DefaultConsumerConfig returns deduplication settings with the default
// retention window.
func DefaultConsumerConfig(serviceName, topic, consumerGroup string, repository MessageRepository) *ConsumerConfig {
	return &ConsumerConfig{
		ServiceName:     serviceName,
		Topic:           topic,
		ConsumerGroup:   consumerGroup,
		Repository:      repository,
		RetentionPeriod: DefaultRetentionPeriod,
	}
}
