package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/pkg/config"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

// OfficeClient talks to the presentation service's admin API.
type OfficeClient struct {
	cfg    config.OfficeConfig
	http   *http.Client
	logger *zap.Logger
}

func NewOfficeClient(cfg config.OfficeConfig, logger *zap.Logger) *OfficeClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficeClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Publish replaces the full office layout. The endpoint swaps the
// layout atomically on the server side, so a failed call leaves the
// previous layout live.
func (c *OfficeClient) Publish(ctx context.Context, office *dto.Office) error {
	payload, err := json.Marshal(office)
	if err != nil {
		return fmt.Errorf("encode office: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/admin/replaceOffice", strings.TrimRight(c.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)

	c.logger.Info("replacing office layout",
		zap.Int("rooms", len(office.Rooms)), zap.Int("groups", len(office.Groups)))
	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
			"replacing office failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return appErrors.Clone(appErrors.ErrUpstream,
			fmt.Sprintf("replacing office failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}
	return nil
}
