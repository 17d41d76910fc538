// Package auth implements the typed credential variants of spec §3/§4.2
// and the stale-token check used by the OAuth refresh protocol (§4.8).
//
// This package performs no network I/O — refresh is a protocol executed by
// the accessors that use OAuth2 (see accessor/googledocs), parameterized by
// the TokenRefresher contract defined here.
package auth

import (
	"time"

	"github.com/rakunlabs/at/internal/dsal/uri"
	"github.com/worldline-go/types"
)

// StaleWindow is the lead time before expiry at which a token is treated as
// stale and eligible for refresh (spec §4.2: "within a five-minute window").
// It is a package variable, so callers can assign a different window.
var StaleWindow = 5 * time.Minute

// Auth is the single canonical tagged-union credential type (Open Question
// 2 in spec §9 resolved: one type replaces the source's ambiguous
// AuthConfig/DataSourceAuth split).
type Auth struct {
	Method uri.AuthMethod

	// apiKey
	Key string

	// basic — refs resolve against an external secret store (out of scope;
	// DSAL only carries the ref strings).
	UsernameRef string
	PasswordRef string

	// bearer
	TokenRef string

	// oauth2
	AccessToken  string
	RefreshToken string
	ExpiresAt    types.Null[types.Time]
	Scopes       []string
}

// Validate checks an Auth record against its declared Method per spec §4.2.
func (a Auth) Validate() bool {
	switch a.Method {
	case uri.AuthNone, "":
		return true
	case uri.AuthAPIKey:
		return a.Key != ""
	case uri.AuthBasic:
		return a.UsernameRef != "" && a.PasswordRef != ""
	case uri.AuthBearer:
		return a.TokenRef != ""
	case uri.AuthOAuth2:
		return a.AccessToken != ""
	case uri.AuthCustom:
		return true
	default:
		return false
	}
}

// IsStale reports whether an oauth2 Auth's access token is within
// StaleWindow of expiry (or already expired). Non-oauth2 auths are never
// stale.
func (a Auth) IsStale(now time.Time) bool {
	if a.Method != uri.AuthOAuth2 {
		return false
	}
	if !a.ExpiresAt.Valid {
		return false
	}
	return !now.Before(a.ExpiresAt.V.Time.Add(-StaleWindow))
}

// RefreshResult is what a TokenRefresher produces: the new in-memory token
// triple to mutate onto the Auth record and persist via the callback.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string // empty means "unchanged"
	ExpiresAt    time.Time
}

// TokenRefresher exchanges a refresh token for a new access token. In
// accessor/googledocs it posts a refresh_token form to the configured
// exchange URI over klient; kept as an interface here
// so the Auth Store itself performs no network I/O (spec §4.2).
type TokenRefresher interface {
	Refresh(refreshToken string) (RefreshResult, error)
}

// TokenUpdateCallback persists a refreshed token triple into the owning
// Connection/Project (spec §4.8 step 2: "invoke the token-update callback
// with the new values"). The callback's contract is persistence only; it
// must not perform the refresh itself.
type TokenUpdateCallback func(connectionID string, result RefreshResult) error
