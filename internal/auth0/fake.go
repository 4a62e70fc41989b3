package auth0

import (
	"context"
	"sync"
)

// FakeClient serves profiles from memory, keyed by access token.
type FakeClient struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	calls    int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		profiles: make(map[string]*Profile),
	}
}

func (c *FakeClient) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if p, ok := c.profiles[accessToken]; ok {
		return p, nil
	}
	return nil, ErrTokenRejected
}

func (c *FakeClient) AddProfile(accessToken string, p *Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[accessToken] = p
}

// Calls is the number of lookups served so far.
func (c *FakeClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
