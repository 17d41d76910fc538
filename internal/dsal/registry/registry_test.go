package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/rakunlabs/at/internal/dsal/provider"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

func testOptions(t *testing.T, builds *int) Options {
	t.Helper()
	return Options{
		Variant:  "default",
		Manifest: DefaultManifest(),
		Builtins: map[string]BuiltinFactory{
			pluginKey("filesystem", "bb"): func() *provider.Provider {
				*builds++
				return provider.New(uri.ProviderFilesystem, uri.BB, "Filesystem", "", "", nil, uri.AuthNone, uri.Capabilities{}, "", nil)
			},
		},
	}
}

func TestInit_RegistersBuiltins(t *testing.T) {
	var builds int
	r := New(testOptions(t, &builds))
	if err := r.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	p, ok := r.GetProvider("filesystem", uri.BB)
	if !ok {
		t.Fatal("expected filesystem provider to be registered")
	}
	if p.Name != "Filesystem" {
		t.Fatalf("unexpected provider: %+v", p)
	}
}

func TestInit_SingleFlight(t *testing.T) {
	var builds int
	var mu sync.Mutex
	opts := Options{
		Variant:  "default",
		Manifest: DefaultManifest(),
		Builtins: map[string]BuiltinFactory{
			pluginKey("filesystem", "bb"): func() *provider.Provider {
				mu.Lock()
				builds++
				mu.Unlock()
				return provider.New(uri.ProviderFilesystem, uri.BB, "Filesystem", "", "", nil, uri.AuthNone, uri.Capabilities{}, "", nil)
			},
		},
	}
	r := New(opts)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_ = r.Init(context.Background())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if builds != 1 {
		t.Fatalf("expected exactly 1 build under %d concurrent Init calls, got %d", n, builds)
	}
}

func TestGetProvider_SearchesBBBeforeMCP(t *testing.T) {
	r := New(Options{Builtins: map[string]BuiltinFactory{}})
	bbP := provider.New(uri.ProviderType("dup"), uri.BB, "BB Dup", "", "", nil, uri.AuthNone, uri.Capabilities{}, "", nil)
	mcpP := provider.New(uri.ProviderType("dup"), uri.MCP, "MCP Dup", "", "", nil, uri.AuthNone, uri.Capabilities{}, "", nil)
	r.register(bbP)
	r.register(mcpP)

	p, ok := r.GetProvider("dup", "")
	if !ok || p.Name != "BB Dup" {
		t.Fatalf("expected bb provider to win lookup, got %+v", p)
	}
}
