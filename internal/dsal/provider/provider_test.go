package provider

import (
	"testing"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

type stubConn struct {
	id, providerType, name string
	accessMethod            uri.AccessMethod
	config                  map[string]any
}

func (s stubConn) ID() string                    { return s.id }
func (s stubConn) ProviderType() string          { return s.providerType }
func (s stubConn) AccessMethod() uri.AccessMethod { return s.accessMethod }
func (s stubConn) Name() string                  { return s.name }
func (s stubConn) Config() map[string]any        { return s.config }
func (s stubConn) Auth() (uri.AuthMethod, string, string, string) {
	return uri.AuthNone, "", "", ""
}

func newTestProvider(built *bool) *Provider {
	return New(
		uri.ProviderFilesystem,
		uri.BB,
		"Filesystem",
		"local filesystem",
		"bb+filesystem+{name}://{path}",
		[]ConfigField{
			{Name: "root", Type: "string", Required: true},
			{Name: "strict", Type: "bool", Required: false},
		},
		uri.AuthNone,
		uri.Capabilities{Coarse: []uri.Coarse{uri.CoarseRead, uri.CoarseList}},
		"",
		func(conn ConnectionLike) (accessor.ResourceAccessor, error) {
			if built != nil {
				*built = true
			}
			return nil, nil
		},
	)
}

func TestValidateConfig_RequiredFieldMissing(t *testing.T) {
	p := newTestProvider(nil)
	if p.ValidateConfig(map[string]any{}) {
		t.Fatal("expected false when required field missing")
	}
}

func TestValidateConfig_WrongType(t *testing.T) {
	p := newTestProvider(nil)
	if p.ValidateConfig(map[string]any{"root": 123}) {
		t.Fatal("expected false when required field has wrong type")
	}
}

func TestValidateConfig_EmptyStringFailsRequired(t *testing.T) {
	p := newTestProvider(nil)
	if p.ValidateConfig(map[string]any{"root": ""}) {
		t.Fatal("expected false for empty required string")
	}
}

func TestValidateConfig_OptionalFieldMayBeAbsent(t *testing.T) {
	p := newTestProvider(nil)
	if !p.ValidateConfig(map[string]any{"root": "/data"}) {
		t.Fatal("expected true when only required fields are present")
	}
}

func TestValidateConfig_AllPresentAndTyped(t *testing.T) {
	p := newTestProvider(nil)
	if !p.ValidateConfig(map[string]any{"root": "/data", "strict": true}) {
		t.Fatal("expected true when all fields present and well-typed")
	}
}

func TestValidateAuth_NoneAlwaysPasses(t *testing.T) {
	p := newTestProvider(nil)
	if !p.ValidateAuth(uri.AuthBearer, false) {
		t.Fatal("expected AuthNone provider to accept any auth state")
	}
}

func TestValidateAuth_MethodMismatch(t *testing.T) {
	p := newTestProvider(nil)
	p.AuthMethod = uri.AuthOAuth2
	if p.ValidateAuth(uri.AuthBearer, true) {
		t.Fatal("expected false on auth method mismatch")
	}
}

func TestValidateAuth_MethodMatchesButInvalid(t *testing.T) {
	p := newTestProvider(nil)
	p.AuthMethod = uri.AuthOAuth2
	if p.ValidateAuth(uri.AuthOAuth2, false) {
		t.Fatal("expected false when auth record itself is invalid")
	}
}

func TestValidateAuth_MethodMatchesAndValid(t *testing.T) {
	p := newTestProvider(nil)
	p.AuthMethod = uri.AuthOAuth2
	if !p.ValidateAuth(uri.AuthOAuth2, true) {
		t.Fatal("expected true when method matches and record is valid")
	}
}

func TestCreateAccessor_ProviderTypeMismatch(t *testing.T) {
	built := false
	p := newTestProvider(&built)
	conn := stubConn{id: "c1", providerType: "notion", accessMethod: uri.BB}
	if _, err := p.CreateAccessor(conn); err == nil {
		t.Fatal("expected error on provider type mismatch")
	}
	if built {
		t.Fatal("factory func must not run on mismatch")
	}
}

func TestCreateAccessor_AccessMethodMismatch(t *testing.T) {
	built := false
	p := newTestProvider(&built)
	conn := stubConn{id: "c1", providerType: "filesystem", accessMethod: uri.MCP}
	if _, err := p.CreateAccessor(conn); err == nil {
		t.Fatal("expected error on access method mismatch")
	}
	if built {
		t.Fatal("factory func must not run on mismatch")
	}
}

func TestCreateAccessor_Matches(t *testing.T) {
	built := false
	p := newTestProvider(&built)
	conn := stubConn{id: "c1", providerType: "filesystem", accessMethod: uri.BB}
	if _, err := p.CreateAccessor(conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !built {
		t.Fatal("expected factory func to run")
	}
}

func TestHasCapability(t *testing.T) {
	p := newTestProvider(nil)
	if !p.HasCapability(uri.CoarseRead) {
		t.Fatal("expected read capability")
	}
	if p.HasCapability(uri.CoarseWrite) {
		t.Fatal("did not expect write capability")
	}
}
