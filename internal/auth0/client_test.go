package auth0

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikerecovery-backend/internal/clock"
)

func TestProfile(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path != "/userinfo":
			w.WriteHeader(http.StatusNotFound)
		case r.Header.Get("Authorization") == "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"auth0|1","name":"Robin Agent","email":"robin@example.com"}`))
		case r.Header.Get("Authorization") == "Bearer anonymous":
			_, _ = w.Write([]byte(`{"name":"nobody"}`))
		case r.Header.Get("Authorization") == "Bearer flaky":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(strings.TrimPrefix(srv.URL, "https://"))
	c.httpClient = srv.Client()

	p, err := c.Profile(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "auth0|1", p.Sub)
	assert.Equal(t, "Robin Agent", p.DisplayName())

	_, err = c.Profile(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrTokenRejected)
	assert.ErrorIs(t, err, ErrProfileUnavailable)

	_, err = c.Profile(context.Background(), "flaky")
	assert.ErrorIs(t, err, ErrProfileUnavailable)
	assert.NotErrorIs(t, err, ErrTokenRejected)

	_, err = c.Profile(context.Background(), "anonymous")
	assert.ErrorIs(t, err, ErrProfileUnavailable)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "nick", (&Profile{Sub: "s", Nickname: "nick"}).DisplayName())
	assert.Equal(t, "a@b.c", (&Profile{Sub: "s", Email: "a@b.c"}).DisplayName())
	assert.Equal(t, "s", (&Profile{Sub: "s"}).DisplayName())
}

func TestCache(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	fake := NewFakeClient()
	fake.AddProfile("token", &Profile{Sub: "auth0|2", Name: "Sam"})
	cache := NewCache(fake, time.Minute, clk)

	for range 3 {
		p, err := cache.Profile(context.Background(), "token")
		require.NoError(t, err)
		assert.Equal(t, "Sam", p.Name)
	}
	assert.Equal(t, 1, fake.Calls())

	clk.Advance(2 * time.Minute)
	_, err := cache.Profile(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Calls(), "expired entries are fetched again")

	_, err = cache.Profile(context.Background(), "other")
	assert.ErrorIs(t, err, ErrTokenRejected)
	_, err = cache.Profile(context.Background(), "other")
	assert.ErrorIs(t, err, ErrTokenRejected)
	assert.Equal(t, 4, fake.Calls(), "failures are not cached")
}
