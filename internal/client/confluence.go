package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/pkg/config"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

// ConfluenceClient wraps the content REST API with basic auth.
type ConfluenceClient struct {
	cfg    config.ConfluenceConfig
	http   *http.Client
	logger *zap.Logger
}

func NewConfluenceClient(cfg config.ConfluenceConfig, logger *zap.Logger) *ConfluenceClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfluenceClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type confluencePage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Links struct {
		TinyUI string `json:"tinyui"`
	} `json:"_links"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

type confluenceSearch struct {
	Results []confluencePage `json:"results"`
}

// GetPageBody returns a page's storage-format body.
func (c *ConfluenceClient) GetPageBody(ctx context.Context, pageID string) (string, error) {
	var page confluencePage
	err := c.get(ctx, fmt.Sprintf("/rest/api/content/%s", pageID),
		url.Values{"expand": {"body.storage"}}, &page)
	if err != nil {
		return "", err
	}
	return page.Body.Storage.Value, nil
}

// FindLinkForPage returns the tiny link of the page with the given
// title, or "" when the space has no such page.
func (c *ConfluenceClient) FindLinkForPage(ctx context.Context, spaceKey, title string) (string, error) {
	var search confluenceSearch
	err := c.get(ctx, "/rest/api/content",
		url.Values{"spaceKey": {spaceKey}, "title": {title}}, &search)
	if err != nil {
		return "", err
	}
	if len(search.Results) == 0 {
		return "", nil
	}
	return c.cfg.BaseURL + search.Results[0].Links.TinyUI, nil
}

// CreateSessionPage creates a page under the configured parent and
// returns its tiny link.
func (c *ConfluenceClient) CreateSessionPage(ctx context.Context, title, body string) (string, error) {
	payload := map[string]any{
		"type":      "page",
		"space":     map[string]string{"key": c.cfg.SpaceKey},
		"title":     title,
		"ancestors": []map[string]string{{"id": c.cfg.ParentPageID}},
		"body": map[string]any{
			"storage": map[string]string{
				"value":          body,
				"representation": "storage",
			},
		},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.cfg.BaseURL, "/")+"/rest/api/content", bytes.NewReader(encoded))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.SetBasicAuth(c.cfg.User, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
			fmt.Sprintf("creating confluence page %q failed", title))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", appErrors.Clone(appErrors.ErrUpstream,
			fmt.Sprintf("creating confluence page %q failed with status %d", title, resp.StatusCode))
	}

	var page confluencePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return "", fmt.Errorf("decode confluence response: %w", err)
	}
	return c.cfg.BaseURL + page.Links.TinyUI, nil
}

// ListSessionPages returns the titles of all pages under the parent
// page.
func (c *ConfluenceClient) ListSessionPages(ctx context.Context) ([]string, error) {
	var search confluenceSearch
	err := c.get(ctx, fmt.Sprintf("/rest/api/content/%s/child/page", c.cfg.ParentPageID),
		url.Values{"limit": {"10000"}}, &search)
	if err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(search.Results))
	for _, page := range search.Results {
		titles = append(titles, page.Title)
	}
	return titles, nil
}

func (c *ConfluenceClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.User, c.cfg.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
			fmt.Sprintf("confluence request %s failed", path))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return appErrors.Clone(appErrors.ErrUpstream,
			fmt.Sprintf("confluence request %s failed with status %d", path, resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
