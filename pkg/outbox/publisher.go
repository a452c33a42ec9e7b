package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/kafka"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/metrics"
)

// PublisherConfig tunes the relay loop. Retention bounds how long published
// events stay queryable before the sweep removes them; the collection's TTL
// index is the backstop when the relay is down.
type PublisherConfig struct {
	PollInterval  time.Duration
	BatchSize     int
	SweepInterval time.Duration
	Retention     time.Duration
}

func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval:  1 * time.Second,
		BatchSize:     100,
		SweepInterval: 1 * time.Hour,
		Retention:     7 * 24 * time.Hour,
	}
}

// Publisher relays stored events to Kafka in the background. Publish
// failures increment the event's retry count and the event is picked up
// again on a later poll, so delivery is at-least-once.
type Publisher struct {
	repo      Repository
	producer  *kafka.InstrumentedProducer
	logger    *logging.Logger
	metrics   *metrics.Metrics
	poll      time.Duration
	batchSize int
	sweepEach time.Duration
	retention time.Duration

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}

	relayed int
	failed  int
}

func NewPublisher(
	repo Repository,
	producer *kafka.InstrumentedProducer,
	logger *logging.Logger,
	metrics *metrics.Metrics,
	config *PublisherConfig,
) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}
	defaults := DefaultPublisherConfig()
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}

	return &Publisher{
		repo:      repo,
		producer:  producer,
		logger:    logger.WithComponent("outbox"),
		metrics:   metrics,
		poll:      config.PollInterval,
		batchSize: config.BatchSize,
		sweepEach: config.SweepInterval,
		retention: config.Retention,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the relay loop. It returns an error if already running.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("publisher already running")
	}
	p.running = true

	p.logger.Info("Starting outbox publisher",
		"interval", p.poll, "batchSize", p.batchSize, "retention", p.retention)
	go p.run(ctx)
	return nil
}

// Stop signals the loop and waits until it drains out.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher not running")
	}
	p.mu.Unlock()

	close(p.stopCh)
	<-p.stoppedCh

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("Outbox publisher stopped", "relayed", p.relayed, "failed", p.failed)
	return nil
}

func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.stoppedCh)

	poll := time.NewTicker(p.poll)
	defer poll.Stop()
	sweep := time.NewTicker(p.sweepEach)
	defer sweep.Stop()

	for {
		select {
		case <-poll.C:
			p.drain(ctx)
		case <-sweep.C:
			if err := p.repo.DeletePublished(ctx, p.retention); err != nil {
				p.logger.WithError(err).Error("Failed to sweep published events")
			}
		case <-p.stopCh:
			return
		case <-ctx.Done():
			p.logger.Info("Publisher context cancelled")
			return
		}
	}
}

// drain relays one batch of unpublished events in creation order.
func (p *Publisher) drain(ctx context.Context) {
	events, err := p.repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to load unpublished events")
		return
	}

	if p.metrics != nil {
		p.metrics.SetOutboxPending(len(events))
	}

	for _, event := range events {
		if p.relay(ctx, event) {
			p.relayed++
		} else {
			p.failed++
		}
	}
}

// relay publishes one event and records the outcome. Failed events keep
// their row with an incremented retry count; successful ones are stamped
// published.
func (p *Publisher) relay(ctx context.Context, event *OutboxEvent) bool {
	start := time.Now()
	err := p.publish(ctx, event)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordOutboxPublish(event.EventType, err == nil, duration)
	}

	if err != nil {
		p.logger.WithError(err).Error("Failed to relay outbox event",
			"eventId", event.ID,
			"eventType", event.EventType,
			"aggregateId", event.AggregateID,
			"retryCount", event.RetryCount,
		)
		if retryErr := p.repo.IncrementRetry(ctx, event.ID, err.Error()); retryErr != nil {
			p.logger.WithError(retryErr).Error("Failed to record retry", "eventId", event.ID)
		}
		if p.metrics != nil {
			p.metrics.RecordOutboxRetry(event.EventType)
		}
		return false
	}

	if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
		p.logger.WithError(err).Error("Failed to mark event published", "eventId", event.ID)
	}
	p.logger.Info("Relayed outbox event",
		"eventId", event.ID,
		"eventType", event.EventType,
		"topic", event.Topic,
		"durationMs", duration.Milliseconds(),
	)
	return true
}

func (p *Publisher) publish(ctx context.Context, event *OutboxEvent) error {
	cloudEvent, err := event.ToCloudEvent()
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return p.producer.PublishEvent(ctx, event.Topic, cloudEvent)
}
