// Package cache fronts the professional directory and service catalog with
// Redis so session creation does not hit the backend on every visit.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

const (
	professionalKeyPrefix = "booking:professional:"
	servicesKeyPrefix     = "booking:services:"
	defaultTTL            = 5 * time.Minute
)

// Catalog is a read-through cache over a directory and a catalog. Redis
// failures fall through to the wrapped source.
type Catalog struct {
	client    *redis.Client
	directory booking.ProfessionalDirectory
	catalog   booking.ServiceCatalog
	ttl       time.Duration
	logger    *logging.Logger
}

var (
	_ booking.ProfessionalDirectory = (*Catalog)(nil)
	_ booking.ServiceCatalog        = (*Catalog)(nil)
)

// NewCatalog wraps directory and catalog.
func NewCatalog(client *redis.Client, directory booking.ProfessionalDirectory, catalog booking.ServiceCatalog, ttl time.Duration, logger *logging.Logger) *Catalog {
	if client == nil || directory == nil || catalog == nil {
		panic("cache: redis client, directory and catalog required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Catalog{
		client:    client,
		directory: directory,
		catalog:   catalog,
		ttl:       ttl,
		logger:    logger,
	}
}

// GetByID returns the cached profile or loads and stores it. Not-found
// answers are not cached.
func (c *Catalog) GetByID(ctx context.Context, id string) (*booking.Professional, error) {
	key := professionalKeyPrefix + id
	var cached booking.Professional
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	prof, err := c.directory.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, prof)
	return prof, nil
}

// GetByProfessional returns the cached service list or loads and stores it.
func (c *Catalog) GetByProfessional(ctx context.Context, professionalID string) ([]booking.Service, error) {
	key := servicesKeyPrefix + professionalID
	var cached []booking.Service
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	services, err := c.catalog.GetByProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, services)
	return services, nil
}

// Invalidate drops the cached profile and services of a professional.
func (c *Catalog) Invalidate(ctx context.Context, professionalID string) error {
	if err := c.client.Del(ctx, professionalKeyPrefix+professionalID, servicesKeyPrefix+professionalID).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", professionalID, err)
	}
	return nil
}

func (c *Catalog) load(ctx context.Context, key string, out any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("catalog cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Catalog) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
