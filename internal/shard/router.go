// Package shard maps account ids onto a fixed set of database shards and
// owns the per-shard connection handles.
package shard

import (
	"fmt"
	"hash/fnv"
)

// Router deterministically assigns an account to a shard. The same account
// id always lands on the same shard for a given shard count, across
// restarts and across processes.
type Router struct {
	shardCount int
}

// NewRouter creates a Router for a fixed number of shards
func NewRouter(shardCount int) (*Router, error) {
	if shardCount <= 0 {
		return nil, fmt.Errorf("shard count must be positive, got %d", shardCount)
	}
	return &Router{shardCount: shardCount}, nil
}

// ShardFor returns the shard index for an account id
func (r *Router) ShardFor(accountID string) int {
	h := fnv.New32a()
	h.Write([]byte(accountID))
	return int(h.Sum32() % uint32(r.shardCount))
}

// ShardCount returns the number of shards this router spreads over
func (r *Router) ShardCount() int {
	return r.shardCount
}
