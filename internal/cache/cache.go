// Package cache provides a single-node TTL cache for fully normalized
// emails. Entries expire on a fixed TTL; mutations must invalidate
// explicitly. There is no cross-process invalidation.
package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/syncwell/mailsync-backend/internal/models"
)

// DefaultTTL is the fixed lifetime of a cached email
const DefaultTTL = 5 * time.Minute

// EmailCache caches emails keyed by (account, message) pair
type EmailCache struct {
	store *gocache.Cache
	ttl   time.Duration
}

// New creates an EmailCache with the given TTL. Non-positive TTLs fall back
// to the default.
func New(ttl time.Duration) *EmailCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EmailCache{
		store: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Get returns the cached email for an (account, message) pair, if present
func (c *EmailCache) Get(accountID, messageID string) (*models.Email, bool) {
	v, ok := c.store.Get(key(accountID, messageID))
	if !ok {
		return nil, false
	}
	email, ok := v.(*models.Email)
	return email, ok
}

// Set stores an email under its (account, message) pair for the fixed TTL
func (c *EmailCache) Set(email *models.Email) {
	c.store.Set(key(email.AccountID, email.MessageID), email, c.ttl)
}

// Delete removes an (account, message) pair from the cache
func (c *EmailCache) Delete(accountID, messageID string) {
	c.store.Delete(key(accountID, messageID))
}

// ItemCount returns the number of cached entries, including not yet
// evicted expired ones
func (c *EmailCache) ItemCount() int {
	return c.store.ItemCount()
}

// Flush drops every cached entry
func (c *EmailCache) Flush() {
	c.store.Flush()
}

// TTL returns the configured entry lifetime
func (c *EmailCache) TTL() time.Duration {
	return c.ttl
}

func key(accountID, messageID string) string {
	return fmt.Sprintf("email:%s:%s", accountID, messageID)
}
