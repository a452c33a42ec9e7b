package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config holds connection settings. Monitor, when set, receives every
// command the driver issues; NewCommandMonitor builds one wired to metrics,
// tracing and query logs.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64

	Username string
	Password string
	AuthDB   string

	ReplicaSet string

	Monitor *event.CommandMonitor
}

func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "import_schedule",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    100,
		MinPoolSize:    10,
	}
}

// Client owns one driver connection pool and the service database handle.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewClient connects and verifies the primary is reachable before
// returning, so startup fails fast on a bad URI.
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	opts := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.ConnectTimeout).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize)

	if config.Username != "" && config.Password != "" {
		opts.SetAuth(options.Credential{
			Username:   config.Username,
			Password:   config.Password,
			AuthSource: config.AuthDB,
		})
	}
	if config.ReplicaSet != "" {
		opts.SetReplicaSet(config.ReplicaSet)
	}
	if config.Monitor != nil {
		opts.SetMonitor(config.Monitor)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Client{
		client:   client,
		database: client.Database(config.Database),
	}, nil
}

func (c *Client) Database() *mongo.Database {
	return c.database
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// HealthCheck pings the primary; used by the readiness probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}
