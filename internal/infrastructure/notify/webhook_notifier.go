package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/metrics"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/resilience"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
)

const webhookTimeout = 10 * time.Second

// WebhookNotifier delivers notifications by POSTing JSON to the user's
// webhook endpoint. All sends share one circuit breaker so a dead endpoint
// cannot stall event consumption.
type WebhookNotifier struct {
	client  *http.Client
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewWebhookNotifier creates a webhook notifier with a 10 second request
// timeout. The breaker trips after 5 consecutive failures and probes again
// after 30 seconds.
func NewWebhookNotifier(logger *logging.Logger, m *metrics.Metrics) *WebhookNotifier {
	config := &resilience.CircuitBreakerConfig{
		Name:                  "webhook-notifier",
		MaxRequests:           1,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.8,
		MinRequestsToTrip:     20,
	}

	var slogLogger *slog.Logger
	if logger != nil && logger.Logger != nil {
		slogLogger = logger.Logger
	} else {
		slogLogger = slog.Default()
	}

	return &WebhookNotifier{
		client:  &http.Client{Timeout: webhookTimeout},
		breaker: resilience.NewCircuitBreaker(config, slogLogger),
		logger:  logger,
		metrics: m,
	}
}

// Send posts the notification to the webhook URL. Any non-2xx response
// counts as a failure.
func (n *WebhookNotifier) Send(ctx context.Context, webhookURL string, notification application.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = n.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, n.post(ctx, webhookURL, payload)
	})

	if n.metrics != nil {
		n.metrics.RecordNotificationDispatched("webhook", err == nil)
	}
	return err
}

func (n *WebhookNotifier) post(ctx context.Context, webhookURL string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
