package gateway

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultRefreshMargin is how long before the reported expiry a cached
// token is considered stale.
const DefaultRefreshMargin = 300 * time.Second

// TokenConfig holds the client-credentials settings for the gateway's
// OAuth token endpoint.
type TokenConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	GrantType    string
	Scope        string
	Margin       time.Duration
}

// TokenCache lazily fetches and caches a bearer token, refreshing it
// before expiry. It implements oauth2.TokenSource. The cached token is
// replaced on refresh, never mutated, so a caller that already holds
// the old pointer is unaffected mid-request.
type TokenCache struct {
	cfg    TokenConfig
	client *http.Client
	now    func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

var _ oauth2.TokenSource = (*TokenCache)(nil)

func NewTokenCache(cfg TokenConfig, client *http.Client) *TokenCache {
	if cfg.Margin <= 0 {
		cfg.Margin = DefaultRefreshMargin
	}
	if cfg.GrantType == "" {
		cfg.GrantType = "client_credentials"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenCache{cfg: cfg, client: client, now: time.Now}
}

// Token returns the cached token while it is still fresh (its stored
// expiry already has the refresh margin subtracted), otherwise fetches
// and caches a replacement.
func (c *TokenCache) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.now().Before(c.token.Expiry) {
		return c.token, nil
	}

	tok, err := c.fetch()
	if err != nil {
		return nil, err
	}
	c.token = tok
	return tok, nil
}

func (c *TokenCache) fetch() (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", c.cfg.GrantType)
	if c.cfg.Scope != "" {
		form.Set("scope", c.cfg.Scope)
	}

	resp, err := c.client.Post(c.cfg.TokenURL,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TokenFetchError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TokenFetchError{StatusCode: resp.StatusCode, Reason: strings.TrimSpace(string(body))}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &TokenFetchError{StatusCode: resp.StatusCode, Reason: fmt.Sprintf("malformed token response: %v", err)}
	}
	if payload.AccessToken == "" {
		return nil, &TokenFetchError{StatusCode: resp.StatusCode, Reason: "token response has no access_token"}
	}

	return &oauth2.Token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		Expiry:      c.now().Add(time.Duration(payload.ExpiresIn)*time.Second - c.cfg.Margin),
	}, nil
}

// NewHTTPClient builds an HTTP client, optionally trusting an extra CA
// certificate for TLS against private gateways.
func NewHTTPClient(caCertPath string) (*http.Client, error) {
	if caCertPath == "" {
		return &http.Client{Timeout: 120 * time.Second}, nil
	}

	pem, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from %s", caCertPath)
	}

	return &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		},
	}, nil
}
