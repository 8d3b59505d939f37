// Package rewards talks to the streaming platform's channel-points API: it
// reports the outcome of a redemption and keeps the viewer-facing reward
// catalog in line with the session.
package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Status is the final state of a redemption.
type Status string

const (
	StatusFulfilled Status = "FULFILLED"
	StatusCanceled  Status = "CANCELED"
)

// StatusReporter marks redemptions fulfilled or canceled.
type StatusReporter interface {
	UpdateStatus(ctx context.Context, broadcasterID, rewardID, redemptionID string, status Status) error
}

// HelixOptions configures HelixClient.
type HelixOptions struct {
	BaseURL       string
	ClientID      string
	AccessToken   string
	RatePerSecond int
	Timeout       time.Duration
	RetryCount    int
	RetryDelay    time.Duration
}

// HelixClient reports redemption status over the Helix REST API.
type HelixClient struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	accessToken string
	limiter     *rate.Limiter
	retryCount  int
	retryDelay  time.Duration
	logger      *zap.Logger
}

func NewHelixClient(opts HelixOptions, logger *zap.Logger) *HelixClient {
	transport := &http.Transport{
		MaxIdleConns:    10,
		MaxConnsPerHost: 4,
		IdleConnTimeout: 90 * time.Second,
	}

	ratePerSec := opts.RatePerSecond
	if ratePerSec < 1 {
		ratePerSec = 1
	}

	return &HelixClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		clientID:    opts.ClientID,
		accessToken: opts.AccessToken,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount:  opts.RetryCount,
		retryDelay:  opts.RetryDelay,
		logger:      logger,
	}
}

type statusBody struct {
	Status Status `json:"status"`
}

// UpdateStatus sets the redemption status, retrying rate-limit and server
// errors with exponential backoff.
func (c *HelixClient) UpdateStatus(ctx context.Context, broadcasterID, rewardID, redemptionID string, status Status) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("reward_id", rewardID)
	q.Set("id", redemptionID)
	endpoint := fmt.Sprintf("%s/channel_points/custom_rewards/redemptions?%s", c.baseURL, q.Encode())

	payload, err := json.Marshal(statusBody{Status: status})
	if err != nil {
		return fmt.Errorf("encoding body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying status update", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Client-Id", c.clientID)
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Read body before closing for error messages
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			c.logger.Debug("redemption status updated",
				zap.String("redemption_id", redemptionID),
				zap.String("status", string(status)),
			)
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return ErrAuthFailed
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = ErrRateLimited
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		default:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// NoopReporter is used when rewards are disabled.
type NoopReporter struct{}

// UpdateStatus is a no-op.
func (NoopReporter) UpdateStatus(_ context.Context, _, _, _ string, _ Status) error {
	return nil
}

// NewReporter returns a HelixClient when enabled, otherwise a NoopReporter.
func NewReporter(enabled bool, opts HelixOptions, logger *zap.Logger) StatusReporter {
	if !enabled {
		return NoopReporter{}
	}
	return NewHelixClient(opts, logger)
}
