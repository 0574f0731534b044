package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/pkg/config"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

const (
	defaultZoomAPIURL = "https://api.zoom.us/v2"
	zoomPageSize      = 300
)

// ZoomClient wraps the v2 REST API with bearer-token auth. List calls
// walk all pages.
type ZoomClient struct {
	cfg    config.ZoomConfig
	apiURL string
	http   *http.Client
	logger *zap.Logger
}

type ZoomOption func(*ZoomClient)

// WithZoomAPIURL points the client at a different API host, used by
// tests.
func WithZoomAPIURL(apiURL string) ZoomOption {
	return func(c *ZoomClient) {
		c.apiURL = strings.TrimRight(apiURL, "/")
	}
}

func NewZoomClient(cfg config.ZoomConfig, logger *zap.Logger, opts ...ZoomOption) *ZoomClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ZoomClient{
		cfg:    cfg,
		apiURL: defaultZoomAPIURL,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type zoomPage struct {
	PageCount    int             `json:"page_count"`
	PageNumber   int             `json:"page_number"`
	PageSize     int             `json:"page_size"`
	TotalRecords int             `json:"total_records"`
	Users        json.RawMessage `json:"users"`
	Meetings     json.RawMessage `json:"meetings"`
}

// ListUsers returns every user of the account.
func (c *ZoomClient) ListUsers(ctx context.Context) ([]dto.ZoomUser, error) {
	var users []dto.ZoomUser
	err := c.paginate(ctx, "/users", nil, func(page *zoomPage) error {
		var batch []dto.ZoomUser
		if err := json.Unmarshal(page.Users, &batch); err != nil {
			return fmt.Errorf("decode users page: %w", err)
		}
		users = append(users, batch...)
		return nil
	})
	return users, err
}

// GetUser returns the detailed view of one user, including the host
// key.
func (c *ZoomClient) GetUser(ctx context.Context, userID string) (*dto.ZoomUserDetail, error) {
	var detail dto.ZoomUserDetail
	if err := c.get(ctx, "/users/"+userID, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListUpcomingMeetings returns every upcoming meeting of the user.
func (c *ZoomClient) ListUpcomingMeetings(ctx context.Context, userID string) ([]dto.ZoomMeeting, error) {
	var meetings []dto.ZoomMeeting
	params := url.Values{"type": {"upcoming"}}
	err := c.paginate(ctx, fmt.Sprintf("/users/%s/meetings", userID), params, func(page *zoomPage) error {
		var batch []dto.ZoomMeeting
		if err := json.Unmarshal(page.Meetings, &batch); err != nil {
			return fmt.Errorf("decode meetings page: %w", err)
		}
		meetings = append(meetings, batch...)
		return nil
	})
	return meetings, err
}

// CreateMeeting schedules a meeting for the user.
func (c *ZoomClient) CreateMeeting(ctx context.Context, userID string, meetingReq *dto.ZoomMeetingRequest) (*dto.ZoomMeeting, error) {
	payload, err := json.Marshal(meetingReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/users/%s/meetings", c.apiURL, userID), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.JWT)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
			"creating zoom meeting failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, appErrors.Clone(appErrors.ErrUpstream,
			fmt.Sprintf("creating zoom meeting failed with status %d", resp.StatusCode))
	}

	var meeting dto.ZoomMeeting
	if err := json.NewDecoder(resp.Body).Decode(&meeting); err != nil {
		return nil, fmt.Errorf("decode zoom meeting: %w", err)
	}
	return &meeting, nil
}

// paginate walks every page of a list endpoint, handing each page to
// collect.
func (c *ZoomClient) paginate(ctx context.Context, path string, params url.Values, collect func(*zoomPage) error) error {
	pageNumber := 0
	for {
		query := url.Values{}
		for key, values := range params {
			query[key] = values
		}
		query.Set("page_size", strconv.Itoa(zoomPageSize))
		query.Set("page_number", strconv.Itoa(pageNumber+1))

		var page zoomPage
		if err := c.get(ctx, path, query, &page); err != nil {
			return err
		}
		if err := collect(&page); err != nil {
			return err
		}

		c.logger.Debug("received zoom page",
			zap.String("path", path),
			zap.Int("page", page.PageNumber),
			zap.Int("pages", page.PageCount))

		pageNumber = page.PageNumber
		if page.PageCount <= page.PageNumber {
			return nil
		}
	}
}

func (c *ZoomClient) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.apiURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.JWT)

	resp, err := c.http.Do(req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
			fmt.Sprintf("zoom request %s failed", path))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return appErrors.Clone(appErrors.ErrUpstream,
			fmt.Sprintf("zoom request %s failed with status %d", path, resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
