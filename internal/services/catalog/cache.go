// Package catalog caches platform-wide OAuth2 client metadata.
//
// The catalog changes rarely, so entries are served from memory until they
// expire or are evicted by size. Eviction can happen at any time and only
// costs a re-fetch. Catalog edits, such as `clients register` run from
// another process, become visible once the cached entry expires.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tenantrx/recordsapi/internal/repository"
)

// Defaults used when the configuration leaves size or ttl unset.
const (
	DefaultSize = 512
	DefaultTTL  = 10 * time.Minute
)

// ClientInfo is the cached view of an OAuth2 client.
type ClientInfo struct {
	ClientID    string   `json:"client_id"`
	DisplayName string   `json:"display_name"`
	Scopes      []string `json:"scopes"`
	FirstParty  bool     `json:"first_party"`
}

// Cache is a read-through cache over the client metadata repository.
type Cache struct {
	repo    repository.OAuthClientRepository
	entries *expirable.LRU[string, ClientInfo]
}

// NewCache creates a cache of at most size entries living for ttl.
func NewCache(repo repository.OAuthClientRepository, size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		repo:    repo,
		entries: expirable.NewLRU[string, ClientInfo](size, nil, ttl),
	}
}

// Lookup returns client metadata, fetching it on a miss. Unknown clients
// fail with an error wrapping repository.ErrNotFound and are not cached.
func (c *Cache) Lookup(ctx context.Context, clientID string) (ClientInfo, error) {
	if info, ok := c.entries.Get(clientID); ok {
		return info, nil
	}

	client, err := c.repo.GetByClientID(ctx, clientID)
	if err != nil {
		return ClientInfo{}, fmt.Errorf("catalog lookup: %w", err)
	}

	info := ClientInfo{
		ClientID:    client.ClientID,
		DisplayName: client.DisplayName,
		Scopes:      append([]string(nil), client.Scopes...),
		FirstParty:  client.FirstParty,
	}
	c.entries.Add(clientID, info)
	return info, nil
}

// Len reports the number of live entries.
func (c *Cache) Len() int { return c.entries.Len() }
