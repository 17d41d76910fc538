package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rakunlabs/at/internal/dsal/uri"
	"github.com/worldline-go/types"
)

type countingRefresher struct {
	calls int32
}

func (r *countingRefresher) Refresh(refreshToken string) (RefreshResult, error) {
	atomic.AddInt32(&r.calls, 1)
	return RefreshResult{
		AccessToken:  "new-token",
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func TestEnsureFresh_SingleFlightUnderConcurrentStaleCallers(t *testing.T) {
	initial := Auth{
		Method:       uri.AuthOAuth2,
		AccessToken:  "old-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    types.NewTimeNull(types.NewTime(time.Now().Add(-time.Minute))),
	}

	var persisted int32
	refresher := &countingRefresher{}
	coord := NewCoordinator(initial, "conn-1", refresher, func(connectionID string, result RefreshResult) error {
		atomic.AddInt32(&persisted, 1)
		return nil
	})

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			tok, err := coord.EnsureFresh(context.Background())
			if err != nil {
				t.Errorf("EnsureFresh: %v", err)
				return
			}
			tokens[idx] = tok
		}(i)
	}
	wg.Wait()

	if refresher.calls != 1 {
		t.Fatalf("expected exactly 1 refresh call under %d concurrent stale callers, got %d", n, refresher.calls)
	}
	for i, tok := range tokens {
		if tok != "new-token" {
			t.Fatalf("caller %d observed token %q, want new-token", i, tok)
		}
	}
}

func TestEnsureFresh_FreshTokenSkipsRefresh(t *testing.T) {
	initial := Auth{
		Method:       uri.AuthOAuth2,
		AccessToken:  "still-good",
		RefreshToken: "refresh-token",
		ExpiresAt:    types.NewTimeNull(types.NewTime(time.Now().Add(time.Hour))),
	}
	refresher := &countingRefresher{}
	coord := NewCoordinator(initial, "conn-1", refresher, nil)

	tok, err := coord.EnsureFresh(context.Background())
	if err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	if tok != "still-good" {
		t.Fatalf("expected unchanged token, got %q", tok)
	}
	if refresher.calls != 0 {
		t.Fatalf("expected no refresh call for a fresh token, got %d", refresher.calls)
	}
}

func TestReactiveRefresh_NoRefreshTokenFails(t *testing.T) {
	initial := Auth{Method: uri.AuthOAuth2, AccessToken: "expired"}
	coord := NewCoordinator(initial, "conn-1", &countingRefresher{}, nil)

	if _, err := coord.ReactiveRefresh(context.Background()); err == nil {
		t.Fatal("expected error when no refresh token is available")
	}
}
