package factory

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/connection"
	"github.com/rakunlabs/at/internal/dsal/provider"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

type stubAccessor struct{ accessor.ResourceAccessor }

func countingProvider(builds *int32, am uri.AccessMethod) *provider.Provider {
	return provider.New(
		uri.ProviderFilesystem,
		am,
		"Filesystem",
		"",
		"",
		nil,
		uri.AuthNone,
		uri.Capabilities{},
		"",
		func(conn provider.ConnectionLike) (accessor.ResourceAccessor, error) {
			atomic.AddInt32(builds, 1)
			return stubAccessor{}, nil
		},
	)
}

func TestGetAccessor_CachesAcrossRepeatedCalls(t *testing.T) {
	ResetInstanceForTest()
	f := Instance()

	var builds int32
	p := countingProvider(&builds, uri.BB)
	c := connection.New("c1", p, "local", nil, auth.Auth{}, true, false, 0, "", nil)

	a1, err := f.GetAccessor(c)
	if err != nil {
		t.Fatal(err)
	}
	a2, err := f.GetAccessor(c)
	if err != nil {
		t.Fatal(err)
	}
	if builds != 1 {
		t.Fatalf("expected exactly one build, got %d", builds)
	}
	if a1 != a2 {
		t.Fatal("expected same cached accessor object across repeated calls")
	}
}

func TestGetAccessor_SingleBuildUnderConcurrentFirstCallers(t *testing.T) {
	ResetInstanceForTest()
	f := Instance()

	var builds int32
	p := countingProvider(&builds, uri.BB)
	c := connection.New("c2", p, "local", nil, auth.Auth{}, true, false, 0, "", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.GetAccessor(c); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if builds != 1 {
		t.Fatalf("expected exactly one build across concurrent callers, got %d", builds)
	}
}

func TestClearConnectionCache_ForcesRebuildForThatConnectionOnly(t *testing.T) {
	ResetInstanceForTest()
	f := Instance()

	var buildsA, buildsB int32
	pA := countingProvider(&buildsA, uri.BB)
	pB := countingProvider(&buildsB, uri.BB)
	cA := connection.New("a", pA, "a", nil, auth.Auth{}, true, false, 0, "", nil)
	cB := connection.New("b", pB, "b", nil, auth.Auth{}, true, false, 0, "", nil)

	if _, err := f.GetAccessor(cA); err != nil {
		t.Fatal(err)
	}
	if _, err := f.GetAccessor(cB); err != nil {
		t.Fatal(err)
	}

	f.ClearConnectionCache("a")

	if _, err := f.GetAccessor(cA); err != nil {
		t.Fatal(err)
	}
	if _, err := f.GetAccessor(cB); err != nil {
		t.Fatal(err)
	}

	if buildsA != 2 {
		t.Fatalf("expected connection a rebuilt after its cache was cleared, got %d builds", buildsA)
	}
	if buildsB != 1 {
		t.Fatalf("expected connection b untouched, got %d builds", buildsB)
	}
}

func TestClearCache_ForcesRebuildForAllConnections(t *testing.T) {
	ResetInstanceForTest()
	f := Instance()

	var builds int32
	p := countingProvider(&builds, uri.BB)
	c := connection.New("c3", p, "local", nil, auth.Auth{}, true, false, 0, "", nil)

	if _, err := f.GetAccessor(c); err != nil {
		t.Fatal(err)
	}
	f.ClearCache()
	if _, err := f.GetAccessor(c); err != nil {
		t.Fatal(err)
	}

	if builds != 2 {
		t.Fatalf("expected rebuild after ClearCache, got %d builds", builds)
	}
}

func TestCacheFor_RoutesByAccessMethod(t *testing.T) {
	ResetInstanceForTest()
	f := Instance()

	var buildsBB, buildsMCP int32
	pBB := countingProvider(&buildsBB, uri.BB)
	pMCP := countingProvider(&buildsMCP, uri.MCP)
	cBB := connection.New("bb1", pBB, "local", nil, auth.Auth{}, true, false, 0, "", nil)
	cMCP := connection.New("mcp1", pMCP, "local", nil, auth.Auth{}, true, false, 0, "", nil)

	if _, err := f.GetAccessor(cBB); err != nil {
		t.Fatal(err)
	}
	if _, err := f.GetAccessor(cMCP); err != nil {
		t.Fatal(err)
	}

	if _, ok := f.bb["bb1"]; !ok {
		t.Fatal("expected bb connection cached under bb map")
	}
	if _, ok := f.mcp["mcp1"]; !ok {
		t.Fatal("expected mcp connection cached under mcp map")
	}
}
