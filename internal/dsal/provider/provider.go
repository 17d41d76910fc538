// Package provider implements the Data Source Provider contract (spec
// §3/§4.5): stateless descriptors of a backend kind, one per (providerType,
// accessMethod) pair.
package provider

import (
	"fmt"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// ConfigField describes one required configuration key for validateConfig.
type ConfigField struct {
	Name     string
	Type     string // "string", "bool", "int"
	Required bool
}

// ConnectionLike is the minimal view of a Connection a Provider needs to
// build an accessor, expressed as an interface to avoid an import cycle
// with package connection.
type ConnectionLike interface {
	ID() string
	ProviderType() string
	AccessMethod() uri.AccessMethod
	Name() string
	Config() map[string]any
	Auth() (method uri.AuthMethod, accessToken, refreshToken string, key string)
}

// AccessorFactoryFn builds a ResourceAccessor for one connection instance.
type AccessorFactoryFn func(conn ConnectionLike) (accessor.ResourceAccessor, error)

// Provider is immutable for the process lifetime (spec §3 "Lifecycles").
type Provider struct {
	ProviderType uri.ProviderType
	AccessMethod uri.AccessMethod

	Name        string
	Description string
	URITemplate string

	RequiredConfig []ConfigField
	AuthMethod     uri.AuthMethod
	Capabilities   uri.Capabilities

	// Guidance is structured help text consumed by higher layers (e.g. a
	// chat assistant describing how to use this data source to a user).
	Guidance string

	newAccessor AccessorFactoryFn
}

// New constructs a Provider. newAccessor must be non-nil.
func New(providerType uri.ProviderType, accessMethod uri.AccessMethod, name, description, uriTemplate string, required []ConfigField, authMethod uri.AuthMethod, caps uri.Capabilities, guidance string, newAccessor AccessorFactoryFn) *Provider {
	return &Provider{
		ProviderType:   providerType,
		AccessMethod:   accessMethod,
		Name:           name,
		Description:    description,
		URITemplate:    uriTemplate,
		RequiredConfig: required,
		AuthMethod:     authMethod,
		Capabilities:   caps,
		Guidance:       guidance,
		newAccessor:    newAccessor,
	}
}

// ValidateConfig returns true iff all required fields are present and
// well-typed (spec §4.5). Type checking is a shallow kind check — this
// mirrors the teacher's own hand-rolled config validation (no schema
// library in the pack was ever imported for this purpose).
func (p *Provider) ValidateConfig(cfg map[string]any) bool {
	for _, f := range p.RequiredConfig {
		if !f.Required {
			continue
		}
		v, ok := cfg[f.Name]
		if !ok {
			return false
		}
		if !typeMatches(v, f.Type) {
			return false
		}
	}
	return true
}

func typeMatches(v any, want string) bool {
	switch want {
	case "string":
		s, ok := v.(string)
		return ok && s != ""
	case "bool":
		_, ok := v.(bool)
		return ok
	case "int":
		switch v.(type) {
		case int, int32, int64, float64:
			return true
		}
		return false
	default:
		return true
	}
}

// ValidateAuth returns true iff auth.Validate() agrees with p.AuthMethod's
// declared variant (spec §4.5). The provider only checks the method tag
// matches; the variant-specific field check is the Auth Store's job
// (package auth).
func (p *Provider) ValidateAuth(authMethod uri.AuthMethod, valid bool) bool {
	if p.AuthMethod == uri.AuthNone {
		return true
	}
	return authMethod == p.AuthMethod && valid
}

// CreateAccessor fails if conn's provider type does not match this
// Provider's (spec §4.5).
func (p *Provider) CreateAccessor(conn ConnectionLike) (accessor.ResourceAccessor, error) {
	if conn.ProviderType() != string(p.ProviderType) {
		return nil, fmt.Errorf("provider %s cannot create accessor for connection of type %s", p.ProviderType, conn.ProviderType())
	}
	if conn.AccessMethod() != p.AccessMethod {
		return nil, fmt.Errorf("provider %s/%s access method mismatch with connection %s/%s", p.ProviderType, p.AccessMethod, conn.ProviderType(), conn.AccessMethod())
	}
	return p.newAccessor(conn)
}

// HasCapability mirrors Capabilities.HasCoarse for Provider call sites
// that only care about the coarse set (testable property §8.2).
func (p *Provider) HasCapability(c uri.Coarse) bool {
	return p.Capabilities.HasCoarse(c)
}
