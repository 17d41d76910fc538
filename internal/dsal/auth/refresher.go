package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Coordinator guards one backend client's OAuth token so that concurrent
// callers observing a stale token coalesce into exactly one refresh
// request (spec §5: "OAuth refresh is single-flight per client"; testable
// property §8.6).
type Coordinator struct {
	mu   sync.RWMutex
	auth Auth

	refresher TokenRefresher
	onUpdate  TokenUpdateCallback
	connID    string

	group singleflight.Group
}

// NewCoordinator wires a Coordinator for one connection's client.
func NewCoordinator(initial Auth, connID string, refresher TokenRefresher, onUpdate TokenUpdateCallback) *Coordinator {
	return &Coordinator{
		auth:      initial,
		refresher: refresher,
		onUpdate:  onUpdate,
		connID:    connID,
	}
}

// Current returns a snapshot of the current Auth.
func (c *Coordinator) Current() Auth {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// EnsureFresh runs the pre-request refresh step of §4.8: if the current
// token is stale, it refreshes (coalescing concurrent callers via
// singleflight) before returning. Returns the fresh access token.
func (c *Coordinator) EnsureFresh(ctx context.Context) (string, error) {
	c.mu.RLock()
	current := c.auth
	c.mu.RUnlock()

	if !current.IsStale(time.Now()) {
		return current.AccessToken, nil
	}

	return c.refresh(ctx)
}

// ReactiveRefresh implements §4.8 step 3: a normal request returning HTTP
// 401 triggers exactly one refresh-and-retry cycle. Call this once after
// observing a 401; a second 401 from the caller's retry must be surfaced,
// not retried again.
func (c *Coordinator) ReactiveRefresh(ctx context.Context) (string, error) {
	return c.refresh(ctx)
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	v, err, _ := c.group.Do(c.connID, func() (any, error) {
		c.mu.RLock()
		refreshToken := c.auth.RefreshToken
		c.mu.RUnlock()

		if refreshToken == "" {
			return "", fmt.Errorf("oauth2 refresh: no refresh token available")
		}

		result, err := c.refresher.Refresh(refreshToken)
		if err != nil {
			return "", fmt.Errorf("oauth2 refresh: %w", err)
		}

		c.mu.Lock()
		c.auth.AccessToken = result.AccessToken
		if result.RefreshToken != "" {
			c.auth.RefreshToken = result.RefreshToken
		}
		c.auth.ExpiresAt.Valid = true
		c.auth.ExpiresAt.V.Time = result.ExpiresAt
		c.mu.Unlock()

		if c.onUpdate != nil {
			if err := c.onUpdate(c.connID, result); err != nil {
				return "", fmt.Errorf("persist refreshed token: %w", err)
			}
		}

		return result.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
