// Package connstore defines the persistence contract for Connection Records
// (spec §6 "Persisted state") and the glue that lets a refreshed OAuth2
// token write itself back into storage (spec §4.8 step 2).
package connstore

import (
	"context"
	"errors"

	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/connection"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// ErrNotFound is returned by Get/Update/UpdateAuth when no record matches.
// Deleting an id that does not exist is not an error.
var ErrNotFound = errors.New("connstore: connection record not found")

// Store persists connection.Record values, scoped to an owning project
// (spec §3 "Lifecycles" — Connections optionally back-reference a Project).
// Both the postgres and sqlite backends implement this identically; the
// Registry and adminapi depend only on this interface.
type Store interface {
	ListRecords(ctx context.Context, projectID string) ([]connection.Record, error)
	GetRecord(ctx context.Context, id string) (*connection.Record, error)
	CreateRecord(ctx context.Context, projectID string, rec connection.Record) error
	UpdateRecord(ctx context.Context, id string, rec connection.Record) error
	DeleteRecord(ctx context.Context, id string) error

	// UpdateAuth overwrites only the Auth sub-record of an existing
	// connection, used by the OAuth token-update callback so a refresh
	// never clobbers a concurrent config/name edit (spec §4.8 step 2).
	UpdateAuth(ctx context.Context, id string, rec *connection.AuthRecord) error

	Close()
}

// NewTokenUpdateCallback adapts a Store into the auth.TokenUpdateCallback
// contract consumed by accessor/googledocs's refresh protocol. The callback
// performs persistence only — it must never initiate a refresh itself
// (spec §4.8 step 2).
func NewTokenUpdateCallback(store Store) auth.TokenUpdateCallback {
	return func(connectionID string, result auth.RefreshResult) error {
		ctx := context.Background()

		existing, err := store.GetRecord(ctx, connectionID)
		if err != nil {
			return err
		}

		rec := &connection.AuthRecord{Method: string(uri.AuthOAuth2)}
		if existing != nil && existing.Auth != nil {
			*rec = *existing.Auth
		}

		rec.AccessToken = result.AccessToken
		if result.RefreshToken != "" {
			rec.RefreshToken = result.RefreshToken
		}
		if !result.ExpiresAt.IsZero() {
			rec.ExpiresAt = &result.ExpiresAt
		}

		return store.UpdateAuth(ctx, connectionID, rec)
	}
}
