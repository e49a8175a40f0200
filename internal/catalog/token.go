package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidemark-labs/spillview/internal/core/domain"
	"github.com/tidemark-labs/spillview/internal/core/ports/driven"
	"github.com/tidemark-labs/spillview/internal/logger"
)

// ExpirySkew is the safety margin before the server-reported expiry at
// which a cached token is considered stale.
const ExpirySkew = 60 * time.Second

// tokenTimeout bounds a single token-endpoint round trip.
const tokenTimeout = 30 * time.Second

// Ensure TokenCache implements the provider port.
var _ driven.TokenProvider = (*TokenCache)(nil)

// refreshCall is the shared pending future for one in-flight refresh.
// Concurrent callers wait on done and read the same result, so at most
// one network round trip happens per refresh cycle.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// TokenCache owns a single OAuth2 client-credentials token. It
// refreshes on expiry, deduplicates concurrent refresh requests and
// keeps the token in memory only; a process restart starts cold.
type TokenCache struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	now          func() time.Time

	mu       sync.Mutex
	token    string
	expiry   time.Time
	inflight *refreshCall
}

// TokenOption customises a TokenCache.
type TokenOption func(*TokenCache)

// WithHTTPClient sets the HTTP client used for token requests.
func WithHTTPClient(c *http.Client) TokenOption {
	return func(t *TokenCache) { t.httpClient = c }
}

// WithClock sets the time source. Useful for testing expiry handling.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenCache) { t.now = now }
}

// NewTokenCache creates a token cache for the given identity endpoint
// and client credentials.
func NewTokenCache(tokenURL, clientID, clientSecret string, opts ...TokenOption) *TokenCache {
	t := &TokenCache{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: tokenTimeout},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetToken returns the cached token if it is still fresh, otherwise
// performs exactly one network refresh even under concurrent callers:
// the first caller starts the refresh and publishes a shared pending
// future; everyone else awaits that same future.
func (t *TokenCache) GetToken(ctx context.Context) (string, error) {
	if t.clientID == "" || t.clientSecret == "" {
		return "", &AuthError{Message: "missing client credentials", Err: domain.ErrAuthRequired}
	}

	t.mu.Lock()
	if t.token != "" && t.now().Before(t.expiry.Add(-ExpirySkew)) {
		token := t.token
		t.mu.Unlock()
		return token, nil
	}

	if call := t.inflight; call != nil {
		t.mu.Unlock()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-call.done:
			return call.token, call.err
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	t.inflight = call
	t.mu.Unlock()

	token, expiry, err := t.refresh(ctx)

	t.mu.Lock()
	// A failed refresh must clear the pending marker so a later call
	// can retry; otherwise one failure would wedge the cache forever.
	t.inflight = nil
	if err == nil {
		t.token = token
		t.expiry = expiry
	}
	t.mu.Unlock()

	call.token = token
	call.err = err
	close(call.done)

	return token, err
}

// Clear forces the next GetToken to refresh unconditionally. Called
// after an upstream 401 to recover from a revoked or stale token.
func (t *TokenCache) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiry = time.Time{}
}

// refresh performs the client-credentials grant: an HTTPS
// form-encoded POST answered with {access_token, expires_in,
// token_type}.
func (t *TokenCache) refresh(ctx context.Context) (string, time.Time, error) {
	logger.Debug("Refreshing catalog access token")

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", t.clientID)
	data.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return "", time.Time{}, &AuthError{
				Message: fmt.Sprintf("token endpoint rejected request: %s - %s", errResp.Error, errResp.Description),
			}
		}
		return "", time.Time{}, &AuthError{
			Message: fmt.Sprintf("token endpoint returned status %d", resp.StatusCode),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", time.Time{}, &AuthError{Message: "token endpoint returned empty access token"}
	}

	expiry := t.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	logger.Debug("Token refreshed, valid for %ds", tokenResp.ExpiresIn)
	return tokenResp.AccessToken, expiry, nil
}
