package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "tenant:settings"
	bumpChannel    = "tenant.settings.bump"
)

// Cache keeps settings in Redis under per-tenant versioned keys. Bumping the version orphans the
// old entry, which then expires through its TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func versionKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:version", cacheKeyPrefix, tenantID)
}

// Version returns the tenant's cache version, initialising it when missing.
func (c *Cache) Version(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(tenantID)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the settings key for the tenant's current version.
func (c *Cache) BuildKey(ctx context.Context, tenantID uuid.UUID) (string, error) {
	ver, err := c.Version(ctx, tenantID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:v%d", cacheKeyPrefix, tenantID, ver), nil
}

// Fetch loads cached settings or populates the entry using loader. Loader errors are returned
// as-is and nothing is cached.
func (c *Cache) Fetch(ctx context.Context, tenantID uuid.UUID, loader func(context.Context) (Settings, error)) (Settings, error) {
	if loader == nil {
		return Settings{}, errors.New("tenant: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.BuildKey(ctx, tenantID)
	if err != nil {
		return Settings{}, err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return Decode(payload)
	}
	if !errors.Is(err, redis.Nil) {
		return Settings{}, err
	}
	s, err := loader(ctx)
	if err != nil {
		return Settings{}, err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return Settings{}, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Bump invalidates a tenant's entry by incrementing its version and announces the change.
func (c *Cache) Bump(ctx context.Context, tenantID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, versionKey(tenantID)).Err(); err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, tenantID.String()).Err()
}

// Subscribe calls fn with the tenant id of every bump until ctx is done.
func (c *Cache) Subscribe(ctx context.Context, fn func(uuid.UUID)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if id, err := uuid.Parse(msg.Payload); err == nil {
					fn(id)
				}
			}
		}
	}()
	return nil
}
