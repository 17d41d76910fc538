package connection

import (
	"encoding/json"
	"time"

	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/uri"
	"github.com/worldline-go/types"
)

// Record is the JSON-serializable shape of a Connection (spec §6
// "Persisted state"). ToJSON copies config and auth so a caller mutating
// the returned Record cannot reach back into the live Connection; the
// reverse direction is AuthFromRecord plus registry.FromRecord.
type Record struct {
	ID           string         `json:"id"`
	ProviderType string         `json:"providerType"`
	AccessMethod string         `json:"accessMethod"`
	Name         string         `json:"name"`
	Config       map[string]any `json:"config"`
	Auth         *AuthRecord    `json:"auth,omitempty"`
	Enabled      bool           `json:"enabled"`
	IsPrimary    bool           `json:"isPrimary"`
	Priority     int            `json:"priority"`
}

// AuthRecord is the JSON shape of auth.Auth.
type AuthRecord struct {
	Method       string     `json:"method"`
	Key          string     `json:"key,omitempty"`
	UsernameRef  string     `json:"usernameRef,omitempty"`
	PasswordRef  string     `json:"passwordRef,omitempty"`
	TokenRef     string     `json:"tokenRef,omitempty"`
	AccessToken  string     `json:"accessToken,omitempty"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Scopes       []string   `json:"scopes,omitempty"`
}

func toAuthRecord(a auth.Auth) *AuthRecord {
	if a.Method == "" {
		return nil
	}
	r := &AuthRecord{
		Method:       string(a.Method),
		Key:          a.Key,
		UsernameRef:  a.UsernameRef,
		PasswordRef:  a.PasswordRef,
		TokenRef:     a.TokenRef,
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		Scopes:       append([]string(nil), a.Scopes...),
	}
	if a.ExpiresAt.Valid {
		t := a.ExpiresAt.V.Time
		r.ExpiresAt = &t
	}
	return r
}

func fromAuthRecord(r *AuthRecord) auth.Auth {
	if r == nil {
		return auth.Auth{}
	}
	a := auth.Auth{
		Method:       uri.AuthMethod(r.Method),
		Key:          r.Key,
		UsernameRef:  r.UsernameRef,
		PasswordRef:  r.PasswordRef,
		TokenRef:     r.TokenRef,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		Scopes:       append([]string(nil), r.Scopes...),
	}
	if r.ExpiresAt != nil {
		a.ExpiresAt = types.NewTimeNull(types.NewTime(*r.ExpiresAt))
	}
	return a
}

// ToJSON serializes the Connection to a Record.
func (c *Connection) ToJSON() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Record{
		ID:           c.id,
		ProviderType: string(c.provider.ProviderType),
		AccessMethod: string(c.provider.AccessMethod),
		Name:         c.name,
		Config:       copyConfig(c.config),
		Auth:         toAuthRecord(c.auth),
		Enabled:      c.enabled,
		IsPrimary:    c.isPrimary,
		Priority:     c.priority,
	}
}

// MarshalJSON implements json.Marshaler via ToJSON.
func (c *Connection) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.ToJSON())
}

// AuthFromRecord exposes fromAuthRecord to callers outside this package
// (the Registry reconstructs Connections from persisted Records and needs
// to decode the embedded AuthRecord the same way ToJSON encodes it).
func AuthFromRecord(r *AuthRecord) auth.Auth { return fromAuthRecord(r) }
