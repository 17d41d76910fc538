package uri

import "testing"

func TestParse_RoundTripsWithConstruct(t *testing.T) {
	u := Construct("bb", "filesystem", "local", "src/main.go")
	p, err := Parse(u)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.AccessMethod != BB || p.ProviderType != "filesystem" || p.ConnectionName != "local" || p.ResourcePath != "src/main.go" {
		t.Fatalf("unexpected parse result: %+v", p)
	}
}

func TestParse_RejectsMalformedScheme(t *testing.T) {
	cases := []string{
		"nope",
		"bb+filesystem://missing-connection-name-segment",
		"weird+filesystem+local://path",
		"bb+://local://path",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("expected error parsing %q", c)
		}
	}
}

func TestForResource_LeavesAlreadyPrefixedURIUnchanged(t *testing.T) {
	full := Construct("bb", "notion", "work", "page/123")
	if got := ForResource("bb", "notion", "work", full); got != full {
		t.Fatalf("ForResource modified an already-prefixed uri: %q", got)
	}
}

func TestResourcePathFor_MismatchReturnsUriNotForConnection(t *testing.T) {
	full := Construct("bb", "filesystem", "local", "a.txt")
	_, err := ResourcePathFor(full, "bb", "filesystem", "other")
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestInvariant_ParseOfGetUriForResource(t *testing.T) {
	// Mirrors testable property §1: parse(getUriForResource(path)) =
	// (accessMethod, providerType, name, path) for all valid paths.
	paths := []string{"a.txt", "dir/sub/file.md", "x"}
	for _, path := range paths {
		full := ForResource(MCP, "filesystem", "conn-name", path)
		p, err := Parse(full)
		if err != nil {
			t.Fatalf("Parse(%q): %v", full, err)
		}
		if p.AccessMethod != MCP || p.ProviderType != "filesystem" || p.ConnectionName != "conn-name" || p.ResourcePath != path {
			t.Fatalf("round trip mismatch for %q: %+v", path, p)
		}
	}
}
