package rewards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/state"
)

// Catalog actions.
const (
	ActionRecreate = "recreate"
	ActionRemove   = "remove"
)

// Entry is one viewer-facing reward.
type Entry struct {
	Title           string `json:"title"`
	Cost            int    `json:"cost"`
	CooldownEnabled bool   `json:"cooldown_enabled"`
	CooldownSec     int    `json:"cooldown_sec"`
}

// CatalogRequest asks the platform collaborator to rebuild or drop the
// rewards owned by the director.
type CatalogRequest struct {
	Action  string        `json:"action"`
	Prompt  string        `json:"prompt"`
	Entries []Entry       `json:"entries,omitempty"`
	Session state.Session `json:"session"`
}

// Publisher delivers catalog requests.
type Publisher interface {
	Publish(ctx context.Context, req CatalogRequest) error
}

// WebhookPublisher posts catalog requests as JSON to a webhook.
type WebhookPublisher struct {
	httpClient *http.Client
	url        string
	token      string
	logger     *zap.Logger
}

func NewWebhookPublisher(url, token string, timeout time.Duration, logger *zap.Logger) *WebhookPublisher {
	return &WebhookPublisher{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		token:      token,
		logger:     logger,
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, creq CatalogRequest) error {
	payload, err := json.Marshal(creq)
	if err != nil {
		return fmt.Errorf("encoding catalog request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending catalog request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("catalog request failed with status: %d", resp.StatusCode)
	}

	p.logger.Debug("catalog request sent",
		zap.String("action", creq.Action),
		zap.Int("entries", len(creq.Entries)),
	)
	return nil
}

// NoopPublisher drops catalog requests.
type NoopPublisher struct{}

// Publish is a no-op.
func (NoopPublisher) Publish(_ context.Context, _ CatalogRequest) error {
	return nil
}

// NewPublisher returns a WebhookPublisher when a webhook is configured.
func NewPublisher(enabled bool, webhook, token string, timeout time.Duration, logger *zap.Logger) Publisher {
	if !enabled || webhook == "" {
		return NoopPublisher{}
	}
	return NewWebhookPublisher(webhook, token, timeout, logger)
}

// CatalogOptions is the static part of the catalog.
type CatalogOptions struct {
	Prompt            string
	Cameras           []Entry
	RandomTitle       string
	RandomCost        int
	FriendCost        int
	FriendCooldownSec int
}

// CatalogSyncer turns session signals into catalog requests. Signals never
// block; signals arriving while a request is in flight collapse into one.
type CatalogSyncer struct {
	opts      CatalogOptions
	state     state.Reader
	publisher Publisher
	logger    *zap.Logger

	mu      sync.Mutex
	pending string
	wake    chan struct{}
}

func NewCatalogSyncer(opts CatalogOptions, st state.Reader, publisher Publisher, logger *zap.Logger) *CatalogSyncer {
	return &CatalogSyncer{
		opts:      opts,
		state:     st,
		publisher: publisher,
		logger:    logger,
		wake:      make(chan struct{}, 1),
	}
}

// Recreate schedules a rebuild of the catalog.
func (s *CatalogSyncer) Recreate() { s.signal(ActionRecreate) }

// Remove schedules removal of the catalog.
func (s *CatalogSyncer) Remove() { s.signal(ActionRemove) }

func (s *CatalogSyncer) signal(action string) {
	s.mu.Lock()
	s.pending = action
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run publishes pending requests until ctx is cancelled.
func (s *CatalogSyncer) Run(ctx context.Context) {
	s.logger.Info("catalog syncer starting")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("catalog syncer stopping")
			return
		case <-s.wake:
			s.Flush(ctx)
		}
	}
}

// Flush publishes the pending request, if any.
func (s *CatalogSyncer) Flush(ctx context.Context) {
	s.mu.Lock()
	action := s.pending
	s.pending = ""
	s.mu.Unlock()
	if action == "" {
		return
	}

	req := s.build(action)
	if err := s.publisher.Publish(ctx, req); err != nil {
		s.logger.Error("catalog sync failed",
			zap.String("action", action),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("catalog synced",
		zap.String("action", action),
		zap.Int("entries", len(req.Entries)),
	)
}

// build assembles the request from configuration and the session state.
func (s *CatalogSyncer) build(action string) CatalogRequest {
	req := CatalogRequest{
		Action:  action,
		Prompt:  s.opts.Prompt,
		Session: s.state.Session(),
	}
	if action == ActionRemove {
		return req
	}

	req.Entries = append(req.Entries, s.opts.Cameras...)
	if s.opts.RandomTitle != "" {
		req.Entries = append(req.Entries, Entry{Title: s.opts.RandomTitle, Cost: s.opts.RandomCost})
	}
	for _, f := range s.state.Friends() {
		req.Entries = append(req.Entries, Entry{
			Title:           f.Nickname,
			Cost:            s.opts.FriendCost,
			CooldownEnabled: s.opts.FriendCooldownSec > 0,
			CooldownSec:     s.opts.FriendCooldownSec,
		})
	}
	return req
}
