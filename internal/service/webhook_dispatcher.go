package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wagate/internal/metrics"
	"wagate/internal/models"
	"wagate/internal/retry"

	"github.com/sirupsen/logrus"
)

// WebhookDispatcher fans a payload out to subscriber URLs. Deliveries run in
// parallel and are fire-and-forget from the caller's perspective: a failing
// URL never affects its siblings and never propagates back.
type WebhookDispatcher struct {
	client     *http.Client
	backoffCfg retry.BackoffConfig
	logger     *logrus.Logger
}

func NewWebhookDispatcher(timeout time.Duration, retryCfg models.RetryConfig, logger *logrus.Logger) *WebhookDispatcher {
	backoffCfg := retry.BackoffConfig{
		InitialDelay: time.Duration(retryCfg.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(retryCfg.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  retryCfg.MaxAttempts,
		Jitter:       true,
	}
	if backoffCfg.MaxAttempts <= 0 {
		backoffCfg.MaxAttempts = 1
	}

	return &WebhookDispatcher{
		client:     &http.Client{Timeout: timeout},
		backoffCfg: backoffCfg,
		logger:     logger,
	}
}

// Deliver pushes the payload as JSON to every URL. It returns as soon as the
// deliveries are started.
func (d *WebhookDispatcher) Deliver(ctx context.Context, urls []string, payload interface{}) {
	if len(urls) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.WithError(err).Error("Failed to marshal webhook payload")
		return
	}

	for _, url := range urls {
		go d.deliverOne(ctx, url, body)
	}
}

func (d *WebhookDispatcher) deliverOne(ctx context.Context, url string, body []byte) {
	start := time.Now()
	backoff := retry.NewBackoff(d.backoffCfg)

	err := backoff.Retry(ctx, func() error {
		return d.post(ctx, url, body)
	})

	registry := metrics.GetRegistry()
	registry.RecordTimer("webhook_delivery_duration", time.Since(start), nil)

	if err != nil {
		registry.IncrementCounter("webhook_deliveries_failed_total", nil, "Webhook deliveries that exhausted retries")
		d.logger.WithError(err).WithField("url", url).Warn("Webhook delivery failed")
		return
	}
	registry.IncrementCounter("webhook_deliveries_total", nil, "Successful webhook deliveries")
}

func (d *WebhookDispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
