package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/wfr-racing/slicks/pkg/redis"
)

// TTL for the cached registry; discovery refreshes it well before expiry
const registryTTL = 7 * 24 * time.Hour

// Storage caches the latest discovered signal names in Redis so agents can
// share a discovery result instead of re-scanning the store
type Storage struct {
	redis  redis.Client
	logger *slog.Logger
}

// NewStorage creates a registry storage handler
func NewStorage(redisClient redis.Client, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		redis:  redisClient,
		logger: logger,
	}
}

// StoreSignals replaces the cached registry with the given names
func (s *Storage) StoreSignals(ctx context.Context, signals []string) error {
	jsonData, err := json.Marshal(Union(signals))
	if err != nil {
		return fmt.Errorf("failed to marshal signal registry: %w", err)
	}

	key := redis.SignalRegistryKey()
	if err := s.redis.Set(ctx, key, jsonData, registryTTL); err != nil {
		return fmt.Errorf("failed to store signal registry: %w", err)
	}

	// Metadata is best effort: a failed stamp must not lose the registry
	metaKey := redis.RegistryMetaKey()
	stamp := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	if err := s.redis.HSet(ctx, metaKey, "lastDiscovery", stamp); err != nil {
		s.logger.Warn("Failed to update registry metadata", "error", err)
	} else if err := s.redis.Expire(ctx, metaKey, registryTTL); err != nil {
		s.logger.Warn("Failed to set TTL on registry metadata", "error", err)
	}

	return nil
}

// LoadSignals returns the cached registry. A missing cache yields an empty
// list, not an error.
func (s *Storage) LoadSignals(ctx context.Context) ([]string, error) {
	val, err := s.redis.Get(ctx, redis.SignalRegistryKey())
	if errors.Is(err, redis.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load signal registry: %w", err)
	}

	var signals []string
	if err := json.Unmarshal([]byte(val), &signals); err != nil {
		return nil, fmt.Errorf("failed to parse signal registry: %w", err)
	}
	return signals, nil
}

// MergeSignals unions the given names into the cached registry and returns
// the merged, sorted result
func (s *Storage) MergeSignals(ctx context.Context, signals []string) ([]string, error) {
	existing, err := s.LoadSignals(ctx)
	if err != nil {
		return nil, err
	}
	merged := Union(existing, signals)
	if err := s.StoreSignals(ctx, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
