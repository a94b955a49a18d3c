package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, fetches *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret-1", r.PostForm.Get("client_secret"))
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "model.read", r.PostForm.Get("scope"))

		*fetches++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + time.Now().Format("150405.000000"),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func newTestCache(srv *httptest.Server) *TokenCache {
	return NewTokenCache(TokenConfig{
		TokenURL:     srv.URL,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		Scope:        "model.read",
		Margin:       300 * time.Second,
	}, srv.Client())
}

func TestTokenCacheFreshnessBoundary(t *testing.T) {
	fetches := 0
	srv := newTokenServer(t, &fetches)
	defer srv.Close()

	cache := newTestCache(srv)
	now := time.Unix(1_000_000, 0)
	cache.now = func() time.Time { return now }

	first, err := cache.Token()
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	// Stored expiry is fetch time + expires_in - margin.
	staleAt := now.Add(3600*time.Second - 300*time.Second)

	// One second before the margin boundary: still the cached token.
	now = staleAt.Add(-time.Second)
	again, err := cache.Token()
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, fetches)

	// One second past the boundary: a fresh token must be fetched.
	now = staleAt.Add(time.Second)
	fresh, err := cache.Token()
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, 2, fetches)
}

func TestTokenCacheReusesWhileFresh(t *testing.T) {
	fetches := 0
	srv := newTokenServer(t, &fetches)
	defer srv.Close()

	cache := newTestCache(srv)
	for i := 0; i < 5; i++ {
		_, err := cache.Token()
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fetches)
}

func TestTokenCacheRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusUnauthorized)
	}))
	defer srv.Close()

	cache := NewTokenCache(TokenConfig{TokenURL: srv.URL}, srv.Client())
	_, err := cache.Token()

	var fetchErr *TokenFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusUnauthorized, fetchErr.StatusCode)
	assert.Contains(t, fetchErr.Reason, "invalid_client")
}

func TestTokenCacheMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	cache := NewTokenCache(TokenConfig{TokenURL: srv.URL}, srv.Client())
	_, err := cache.Token()

	var fetchErr *TokenFetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestTokenCacheMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	}))
	defer srv.Close()

	cache := NewTokenCache(TokenConfig{TokenURL: srv.URL}, srv.Client())
	_, err := cache.Token()

	var fetchErr *TokenFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Reason, "access_token")
}
