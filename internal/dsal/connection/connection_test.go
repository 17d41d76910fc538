package connection

import (
	"testing"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/provider"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

type stubAccessor struct{ accessor.ResourceAccessor }

type countingResolver struct {
	calls int
	acc   accessor.ResourceAccessor
	err   error
}

func (r *countingResolver) GetAccessor(conn *Connection) (accessor.ResourceAccessor, error) {
	r.calls++
	return r.acc, r.err
}

func testProvider() *provider.Provider {
	return provider.New(
		uri.ProviderFilesystem,
		uri.BB,
		"Filesystem",
		"local filesystem",
		"bb+filesystem+{name}://{path}",
		nil,
		uri.AuthNone,
		uri.Capabilities{Coarse: []uri.Coarse{uri.CoarseRead}},
		"",
		func(conn provider.ConnectionLike) (accessor.ResourceAccessor, error) { return nil, nil },
	)
}

func TestNew_ConfigIsDefensivelyCopied(t *testing.T) {
	p := testProvider()
	cfg := map[string]any{"root": "/data"}
	c := New("id1", p, "local", cfg, auth.Auth{}, true, false, 0, "", nil)

	cfg["root"] = "/mutated"
	if got := c.Config()["root"]; got != "/data" {
		t.Fatalf("expected config to be isolated from caller mutation, got %v", got)
	}

	c.Config()["root"] = "/mutated-again"
	if got := c.Config()["root"]; got != "/data" {
		t.Fatalf("expected Config() to return a fresh copy each call, got %v", got)
	}
}

func TestUpdate_ChangesOnlyGivenFields(t *testing.T) {
	p := testProvider()
	c := New("id1", p, "local", map[string]any{"root": "/data"}, auth.Auth{}, true, false, 5, "", nil)

	newName := "renamed"
	c.Update(UpdateFields{Name: &newName})

	if c.Name() != "renamed" {
		t.Fatalf("expected name updated, got %q", c.Name())
	}
	if c.Priority() != 5 {
		t.Fatalf("expected priority untouched, got %d", c.Priority())
	}
	if c.ID() != "id1" {
		t.Fatalf("id must never change, got %q", c.ID())
	}
	if c.ProviderType() != string(uri.ProviderFilesystem) {
		t.Fatalf("providerType must never change, got %q", c.ProviderType())
	}
	if c.AccessMethod() != uri.BB {
		t.Fatalf("accessMethod must never change, got %q", c.AccessMethod())
	}
}

func TestUpdate_InvalidatesCachedAccessor(t *testing.T) {
	p := testProvider()
	resolver := &countingResolver{acc: stubAccessor{}}
	c := New("id1", p, "local", nil, auth.Auth{}, true, false, 0, "", resolver)

	if _, err := c.GetResourceAccessor(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.GetResourceAccessor(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected resolver called once before update, got %d", resolver.calls)
	}

	newCfg := map[string]any{"root": "/other"}
	c.Update(UpdateFields{Config: newCfg})

	if _, err := c.GetResourceAccessor(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver.calls != 2 {
		t.Fatalf("expected resolver re-invoked after config update, got %d", resolver.calls)
	}
}

func TestGetUriPrefixAndForResource(t *testing.T) {
	p := testProvider()
	c := New("id1", p, "local", nil, auth.Auth{}, true, false, 0, "", nil)

	if got, want := c.GetUriPrefix(), "bb+filesystem+local://"; got != want {
		t.Fatalf("prefix: got %q want %q", got, want)
	}
	if got, want := c.GetUriForResource("a/b.txt"), "bb+filesystem+local://a/b.txt"; got != want {
		t.Fatalf("uri: got %q want %q", got, want)
	}

	already := "bb+filesystem+local://a/b.txt"
	if got := c.GetUriForResource(already); got != already {
		t.Fatalf("expected already-prefixed uri unchanged, got %q", got)
	}
}

func TestToJSONAndAuthFromRecordRoundTrip(t *testing.T) {
	p := testProvider()
	a := auth.Auth{Method: uri.AuthBearer, AccessToken: "tok"}
	c := New("id1", p, "local", map[string]any{"root": "/data"}, a, true, true, 3, "proj1", nil)

	rec := c.ToJSON()
	if rec.ID != "id1" || rec.Name != "local" || rec.Config["root"] != "/data" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Auth == nil || rec.Auth.Method != "bearer" || rec.Auth.AccessToken != "tok" {
		t.Fatalf("unexpected auth record: %+v", rec.Auth)
	}

	restored := AuthFromRecord(rec.Auth)
	if restored.Method != uri.AuthBearer || restored.AccessToken != "tok" {
		t.Fatalf("round trip mismatch: %+v", restored)
	}
}

func TestGetResourceAccessor_CachesAcrossCalls(t *testing.T) {
	p := testProvider()
	resolver := &countingResolver{acc: stubAccessor{}}
	c := New("id1", p, "local", nil, auth.Auth{}, true, false, 0, "", resolver)

	a1, err := c.GetResourceAccessor()
	if err != nil {
		t.Fatal(err)
	}
	a2, err := c.GetResourceAccessor()
	if err != nil {
		t.Fatal(err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected exactly one resolve, got %d", resolver.calls)
	}
	if a1 != a2 {
		t.Fatal("expected identical cached accessor across calls")
	}

	c.InvalidateCachedAccessor()
	if _, err := c.GetResourceAccessor(); err != nil {
		t.Fatal(err)
	}
	if resolver.calls != 2 {
		t.Fatalf("expected re-resolve after invalidation, got %d", resolver.calls)
	}
}
