package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/pagemind/core/internal/models"
	"github.com/pagemind/core/internal/modules/metrics"
	redisc "github.com/pagemind/core/internal/pkg/redis"
)

// DefaultTTL bounds summary staleness. Expiry is enforced by the store, not
// by application code.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "summary:"

// Cache is the cache-aside store for summary records, keyed by URL
// fingerprint. It owns the serialization boundary: records cross into flat
// hash fields here and nowhere else.
type Cache struct {
	rc      *redisc.Client
	metrics *metrics.Service
}

func NewCache(rc *redisc.Client, m *metrics.Service) *Cache {
	return &Cache{rc: rc, metrics: m}
}

// Get looks a record up by fingerprint and counts the outcome. Absence is a
// normal result, never an error. A hit comes back with FromCache forced true.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*models.SummaryRecord, bool, error) {
	fields, err := c.rc.HGetAll(ctx, keyPrefix+fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("read summary: %w", err)
	}
	if len(fields) == 0 {
		c.metrics.CacheMiss(ctx)
		return nil, false, nil
	}

	rec, err := models.ParseSummaryFields(fields)
	if err != nil {
		return nil, false, fmt.Errorf("summary %s: %w", fingerprint, err)
	}

	c.metrics.CacheHit(ctx)
	rec.FromCache = true
	return rec, true, nil
}

// Peek reads a record without touching the hit/miss counters. Room listings
// resolve their index through this path; only cache-aside lookups count.
func (c *Cache) Peek(ctx context.Context, fingerprint string) (*models.SummaryRecord, bool, error) {
	fields, err := c.rc.HGetAll(ctx, keyPrefix+fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("read summary: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}

	rec, err := models.ParseSummaryFields(fields)
	if err != nil {
		return nil, false, fmt.Errorf("summary %s: %w", fingerprint, err)
	}
	return rec, true, nil
}

// Put writes the record and arms its expiry. Redundant puts for the same
// fingerprint are last-writer-wins; legitimate re-puts only happen after
// expiry, and fingerprint collisions are accepted risk.
func (c *Cache) Put(ctx context.Context, rec *models.SummaryRecord, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	fields, err := rec.Fields()
	if err != nil {
		return err
	}

	key := keyPrefix + rec.URLHash
	if err := c.rc.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	if err := c.rc.Expire(ctx, key, ttl); err != nil {
		return fmt.Errorf("expire summary: %w", err)
	}
	return nil
}
