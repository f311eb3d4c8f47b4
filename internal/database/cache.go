package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

// Cache key constants
const (
	SearchResultsKey = "placefinder:results:%d"
)

// Cache keeps serialized copies of persisted search results in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func resultsKey(queryID uint) string {
	return fmt.Sprintf(SearchResultsKey, queryID)
}

// GetResults returns the cached results of a query or ErrCacheMiss.
func (c *Cache) GetResults(ctx context.Context, queryID uint) ([]models.SearchResult, error) {
	data, err := c.client.Get(ctx, resultsKey(queryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached results: %w", err)
	}

	results := []models.SearchResult{}
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached results: %w", err)
	}
	for i := range results {
		results[i].SearchQueryID = queryID
	}
	return results, nil
}

// SetResults caches the results of a query for the configured TTL.
func (c *Cache) SetResults(ctx context.Context, queryID uint, results []models.SearchResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal search results: %w", err)
	}

	return c.client.Set(ctx, resultsKey(queryID), data, c.ttl).Err()
}

// InvalidateResults removes the cached results of a query.
func (c *Cache) InvalidateResults(ctx context.Context, queryID uint) error {
	return c.client.Del(ctx, resultsKey(queryID)).Err()
}
