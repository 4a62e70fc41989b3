package auth0

import (
	"context"
	"sync"
	"time"

	"github.com/semanticallynull/bikerecovery-backend/internal/clock"
)

type cachedProfile struct {
	profile *Profile
	expires time.Time
}

// Cache keeps profiles per access token for a while. Auth0 rate limits
// /userinfo per user, and the dashboard asks for the profile on every load.
// Failed lookups are not cached.
type Cache struct {
	next  Client
	ttl   time.Duration
	clock clock.Clock

	mu      sync.Mutex
	entries map[string]cachedProfile
}

func NewCache(next Client, ttl time.Duration, clk clock.Clock) *Cache {
	return &Cache{
		next:    next,
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]cachedProfile),
	}
}

func (c *Cache) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.entries[accessToken]
	if ok && now.Before(e.expires) {
		c.mu.Unlock()
		return e.profile, nil
	}
	delete(c.entries, accessToken)
	c.mu.Unlock()

	p, err := c.next.Profile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[accessToken] = cachedProfile{profile: p, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return p, nil
}
