package connstore

import (
	"context"
	"testing"
	"time"

	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/connection"
)

type fakeStore struct {
	records map[string]connection.Record
}

func newFakeStore() *fakeStore { return &fakeStore{records: map[string]connection.Record{}} }

func (f *fakeStore) ListRecords(ctx context.Context, projectID string) ([]connection.Record, error) {
	var out []connection.Record
	for _, r := range f.records {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) GetRecord(ctx context.Context, id string) (*connection.Record, error) {
	r, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (f *fakeStore) CreateRecord(ctx context.Context, projectID string, rec connection.Record) error {
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeStore) UpdateRecord(ctx context.Context, id string, rec connection.Record) error {
	if _, ok := f.records[id]; !ok {
		return ErrNotFound
	}
	f.records[id] = rec
	return nil
}

func (f *fakeStore) UpdateAuth(ctx context.Context, id string, rec *connection.AuthRecord) error {
	r, ok := f.records[id]
	if !ok {
		return ErrNotFound
	}
	r.Auth = rec
	f.records[id] = r
	return nil
}

func (f *fakeStore) DeleteRecord(ctx context.Context, id string) error {
	delete(f.records, id)
	return nil
}

func (f *fakeStore) Close() {}

func TestTokenUpdateCallback_PreservesRefreshTokenWhenUnchanged(t *testing.T) {
	store := newFakeStore()
	store.records["c1"] = connection.Record{
		ID:   "c1",
		Auth: &connection.AuthRecord{Method: "oauth2", AccessToken: "old-access", RefreshToken: "old-refresh"},
	}

	cb := NewTokenUpdateCallback(store)
	err := cb("c1", auth.RefreshResult{AccessToken: "new-access", ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}

	got := store.records["c1"].Auth
	if got.AccessToken != "new-access" {
		t.Fatalf("expected access token updated, got %q", got.AccessToken)
	}
	if got.RefreshToken != "old-refresh" {
		t.Fatalf("expected refresh token preserved when result carries no new one, got %q", got.RefreshToken)
	}
}

func TestTokenUpdateCallback_OverwritesRefreshTokenWhenProvided(t *testing.T) {
	store := newFakeStore()
	store.records["c1"] = connection.Record{
		ID:   "c1",
		Auth: &connection.AuthRecord{Method: "oauth2", AccessToken: "old-access", RefreshToken: "old-refresh"},
	}

	cb := NewTokenUpdateCallback(store)
	err := cb("c1", auth.RefreshResult{AccessToken: "new-access", RefreshToken: "new-refresh"})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}

	got := store.records["c1"].Auth
	if got.RefreshToken != "new-refresh" {
		t.Fatalf("expected refresh token overwritten, got %q", got.RefreshToken)
	}
}

func TestTokenUpdateCallback_UnknownConnectionFails(t *testing.T) {
	store := newFakeStore()
	cb := NewTokenUpdateCallback(store)
	if err := cb("missing", auth.RefreshResult{AccessToken: "x"}); err == nil {
		t.Fatal("expected error for unknown connection id")
	}
}
