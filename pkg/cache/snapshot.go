package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps the raw CSV of a fetched sheet for a short TTL so
// closely spaced runs and previews do not hammer the spreadsheet export
// endpoint. Misses are never errors: the caller falls back to fetching.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func (c *SnapshotCache) key(spreadsheetID, sheetName string) string {
	return fmt.Sprintf("office-sync:sheet:%s:%s", spreadsheetID, sheetName)
}

// Get returns the cached CSV payload, or ok=false on a miss or any
// transport error.
func (c *SnapshotCache) Get(ctx context.Context, spreadsheetID, sheetName string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(spreadsheetID, sheetName)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores the CSV payload under the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, spreadsheetID, sheetName string, data []byte) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, c.key(spreadsheetID, sheetName), data, c.ttl).Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
