package shard

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Cluster holds one open gorm handle per shard, in shard order.
type Cluster struct {
	shards []*gorm.DB
	router *Router
}

// NewCluster wraps already-opened shard connections. The slice order defines
// shard indices and must match the deployment's DSN order.
func NewCluster(shards []*gorm.DB) (*Cluster, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("at least one shard connection is required")
	}
	router, err := NewRouter(len(shards))
	if err != nil {
		return nil, err
	}
	return &Cluster{shards: shards, router: router}, nil
}

// Router returns the account-to-shard router for this cluster
func (c *Cluster) Router() *Router {
	return c.router
}

// DB returns the gorm handle for a shard index
func (c *Cluster) DB(shard int) (*gorm.DB, error) {
	if shard < 0 || shard >= len(c.shards) {
		return nil, fmt.Errorf("shard %d out of range [0,%d)", shard, len(c.shards))
	}
	return c.shards[shard], nil
}

// ForAccount returns the gorm handle owning the given account's data
func (c *Cluster) ForAccount(accountID string) *gorm.DB {
	return c.shards[c.router.ShardFor(accountID)]
}

// ShardCount returns the number of shards in the cluster
func (c *Cluster) ShardCount() int {
	return len(c.shards)
}

// Each runs fn against every shard, stopping at the first error
func (c *Cluster) Each(fn func(shard int, db *gorm.DB) error) error {
	for i, db := range c.shards {
		if err := fn(i, db); err != nil {
			return fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return nil
}

// Ping verifies connectivity to every shard
func (c *Cluster) Ping(ctx context.Context) error {
	return c.Each(func(_ int, db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
}

// Close closes every shard connection, returning the first error seen
func (c *Cluster) Close() error {
	var firstErr error
	for i, db := range c.shards {
		sqlDB, err := db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("shard %d: %w", i, err)
			}
			continue
		}
		if err := sqlDB.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shard %d: %w", i, err)
		}
	}
	return firstErr
}
