package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/pkg/config"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

const defaultSlackAPIURL = "https://slack.com/api"

// SlackClient creates channels through the conversations API. Create
// calls are spaced by the configured minimum interval because the
// create endpoint is heavily rate limited.
type SlackClient struct {
	cfg    config.SlackConfig
	apiURL string
	http   *http.Client
	logger *zap.Logger

	mu         sync.Mutex
	lastCreate time.Time
}

type SlackOption func(*SlackClient)

// WithSlackAPIURL points the client at a different API host, used by
// tests.
func WithSlackAPIURL(apiURL string) SlackOption {
	return func(c *SlackClient) {
		c.apiURL = strings.TrimRight(apiURL, "/")
	}
}

func NewSlackClient(cfg config.SlackConfig, logger *zap.Logger, opts ...SlackOption) *SlackClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &SlackClient{
		cfg:    cfg,
		apiURL: defaultSlackAPIURL,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// CreateChannelIfNotExists creates a public channel. Returns false
// without error when the name is already taken.
func (c *SlackClient) CreateChannelIfNotExists(ctx context.Context, name string) (bool, error) {
	if err := c.throttleCreate(ctx); err != nil {
		return false, err
	}

	form := url.Values{"name": {name}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/conversations.create", strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
			"slack conversations.create failed")
	}
	defer resp.Body.Close()

	var body slackResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode slack response: %w", err)
	}
	if body.OK {
		return true, nil
	}
	if body.Error == "name_taken" {
		return false, nil
	}
	return false, appErrors.Clone(appErrors.ErrUpstream,
		fmt.Sprintf("slack conversations.create failed: %s", body.Error))
}

// throttleCreate blocks until the minimum interval since the previous
// create call has passed.
func (c *SlackClient) throttleCreate(ctx context.Context) error {
	if c.cfg.MinCreateInterval <= 0 {
		return nil
	}

	c.mu.Lock()
	wait := c.cfg.MinCreateInterval - time.Since(c.lastCreate)
	if c.lastCreate.IsZero() {
		wait = 0
	}
	c.lastCreate = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	c.logger.Debug("throttling slack create call", zap.Duration("wait", wait))
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
