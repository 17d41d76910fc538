package auth

import (
	"testing"
	"time"

	"github.com/rakunlabs/at/internal/dsal/uri"
	"github.com/worldline-go/types"
)

func TestValidate_PerMethod(t *testing.T) {
	cases := []struct {
		name string
		a    Auth
		want bool
	}{
		{"none", Auth{Method: uri.AuthNone}, true},
		{"empty method treated as none", Auth{}, true},
		{"apiKey with key", Auth{Method: uri.AuthAPIKey, Key: "k"}, true},
		{"apiKey missing key", Auth{Method: uri.AuthAPIKey}, false},
		{"basic with both refs", Auth{Method: uri.AuthBasic, UsernameRef: "u", PasswordRef: "p"}, true},
		{"basic missing password ref", Auth{Method: uri.AuthBasic, UsernameRef: "u"}, false},
		{"bearer with token ref", Auth{Method: uri.AuthBearer, TokenRef: "t"}, true},
		{"bearer missing token ref", Auth{Method: uri.AuthBearer}, false},
		{"oauth2 with access token", Auth{Method: uri.AuthOAuth2, AccessToken: "tok"}, true},
		{"oauth2 missing access token", Auth{Method: uri.AuthOAuth2}, false},
		{"custom always valid", Auth{Method: uri.AuthCustom}, true},
		{"unknown method invalid", Auth{Method: uri.AuthMethod("bogus")}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Validate(); got != tc.want {
				t.Fatalf("Validate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsStale_NonOAuth2NeverStale(t *testing.T) {
	a := Auth{Method: uri.AuthAPIKey, Key: "k"}
	if a.IsStale(time.Now()) {
		t.Fatal("non-oauth2 auth must never be reported stale")
	}
}

func TestIsStale_NoExpiryNeverStale(t *testing.T) {
	a := Auth{Method: uri.AuthOAuth2, AccessToken: "tok"}
	if a.IsStale(time.Now()) {
		t.Fatal("oauth2 auth with no expiry set must not be reported stale")
	}
}

func TestIsStale_WithinWindowIsStale(t *testing.T) {
	now := time.Now()
	a := Auth{
		Method:    uri.AuthOAuth2,
		ExpiresAt: types.NewTimeNull(types.NewTime(now.Add(StaleWindow / 2))),
	}
	if !a.IsStale(now) {
		t.Fatal("expected token expiring within the stale window to be stale")
	}
}

func TestIsStale_WellBeforeWindowIsFresh(t *testing.T) {
	now := time.Now()
	a := Auth{
		Method:    uri.AuthOAuth2,
		ExpiresAt: types.NewTimeNull(types.NewTime(now.Add(StaleWindow * 10))),
	}
	if a.IsStale(now) {
		t.Fatal("expected token expiring well after the stale window to be fresh")
	}
}

func TestIsStale_AlreadyExpiredIsStale(t *testing.T) {
	now := time.Now()
	a := Auth{
		Method:    uri.AuthOAuth2,
		ExpiresAt: types.NewTimeNull(types.NewTime(now.Add(-time.Hour))),
	}
	if !a.IsStale(now) {
		t.Fatal("expected already-expired token to be stale")
	}
}
