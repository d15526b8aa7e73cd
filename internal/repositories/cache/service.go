// Package cache holds the redis-backed read cache for account snapshots.
// Entries are only ever read by query paths; balance mutations always go to
// the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"paycore/internal/models"
	cachekeys "paycore/internal/utils/cache"

	"github.com/redis/go-redis/v9"
)

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Account snapshots
func (s *CacheService) GetAccount(ctx context.Context, id string) (*models.Account, bool, error) {
	var account models.Account
	found, err := s.Get(ctx, cachekeys.AccountKey(id), &account)
	if err != nil || !found {
		return nil, false, err
	}
	return &account, true, nil
}

func (s *CacheService) SetAccount(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errors.New("cannot cache nil account")
	}
	return s.Set(ctx, cachekeys.AccountKey(account.ID), account)
}

func (s *CacheService) InvalidateAccount(ctx context.Context, id string) error {
	return s.Delete(ctx, cachekeys.AccountKey(id))
}

// HealthCheck pings redis.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
