// Package auth0 looks up agent profiles for authenticated requests.
package auth0

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrProfileUnavailable = errors.New("failed to fetch user profile")
	// ErrTokenRejected means Auth0 refused the access token. It wraps
	// ErrProfileUnavailable.
	ErrTokenRejected = fmt.Errorf("%w: token rejected", ErrProfileUnavailable)
)

// Profile is the subset of Auth0's /userinfo response used to put a name on
// the agent who handed a bike in.
type Profile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nickname      string `json:"nickname"`
}

// DisplayName is the best human readable name for the agent.
func (p *Profile) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.Nickname != "":
		return p.Nickname
	case p.Email != "":
		return p.Email
	}
	return p.Sub
}

type Client interface {
	Profile(ctx context.Context, accessToken string) (*Profile, error)
}

// HTTPClient calls the tenant's /userinfo endpoint.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(domain string) *HTTPClient {
	return &HTTPClient{
		baseURL: "https://" + strings.TrimSuffix(domain, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrTokenRejected
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrProfileUnavailable, resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	if p.Sub == "" {
		return nil, fmt.Errorf("%w: profile has no subject", ErrProfileUnavailable)
	}
	return &p, nil
}
