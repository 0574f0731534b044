package client

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/service"
	"github.com/openretreat/office-sync/pkg/cache"
	"github.com/openretreat/office-sync/pkg/config"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

const defaultSheetsBaseURL = "https://docs.google.com"

// SheetsClient downloads sheets through the spreadsheet CSV export
// endpoint. No credentials are needed for link-shared spreadsheets.
type SheetsClient struct {
	cfg      config.SpreadsheetConfig
	baseURL  string
	http     *http.Client
	snapshot *cache.SnapshotCache
	logger   *zap.Logger
}

type SheetsOption func(*SheetsClient)

// WithSheetsBaseURL points the client at a different host, used by
// tests to target a local server.
func WithSheetsBaseURL(baseURL string) SheetsOption {
	return func(c *SheetsClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithSnapshotCache enables short-lived caching of downloaded CSV.
func WithSnapshotCache(snapshot *cache.SnapshotCache) SheetsOption {
	return func(c *SheetsClient) {
		c.snapshot = snapshot
	}
}

func NewSheetsClient(cfg config.SpreadsheetConfig, logger *zap.Logger, opts ...SheetsOption) *SheetsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &SheetsClient{
		cfg:     cfg,
		baseURL: defaultSheetsBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchSheet downloads one sheet as CSV and decodes it into a raw
// sheet. The first record is the header row; every following record
// becomes a cell map keyed by header, cells trimmed.
func (c *SheetsClient) FetchSheet(ctx context.Context, sheetName string) (*service.RawSheet, error) {
	data, cached := c.snapshot.Get(ctx, c.cfg.ID, sheetName)
	if !cached {
		var err error
		data, err = c.download(ctx, sheetName)
		if err != nil {
			return nil, err
		}
		if err := c.snapshot.Set(ctx, c.cfg.ID, sheetName, data); err != nil {
			c.logger.Warn("caching sheet snapshot failed", zap.Error(err))
		}
	} else {
		c.logger.Debug("serving sheet from snapshot cache", zap.String("sheet", sheetName))
	}

	return parseCSV(data)
}

func (c *SheetsClient) download(ctx context.Context, sheetName string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/spreadsheets/u/0/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		c.baseURL, c.cfg.ID, url.QueryEscape(sheetName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	c.logger.Info("downloading sheet", zap.String("sheet", sheetName))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
			fmt.Sprintf("downloading sheet %q failed", sheetName))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.Clone(appErrors.ErrUpstream,
			fmt.Sprintf("downloading sheet %q failed with status %d", sheetName, resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}

func parseCSV(data []byte) (*service.RawSheet, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDecode.Code, appErrors.ErrDecode.Status,
			"sheet is not valid csv")
	}
	if len(records) == 0 {
		return &service.RawSheet{Columns: []string{}, Rows: []map[string]string{}}, nil
	}

	columns := make([]string, len(records[0]))
	for i, cell := range records[0] {
		columns[i] = strings.TrimSpace(cell)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(columns))
		for i, column := range columns {
			if i < len(record) {
				row[column] = strings.TrimSpace(record[i])
			} else {
				row[column] = ""
			}
		}
		rows = append(rows, row)
	}

	return &service.RawSheet{Columns: columns, Rows: rows}, nil
}
