// Package connection implements the Connection type (spec §3/§4.6): a
// mostly-immutable configured instance of a Provider.
package connection

import (
	"sync"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/provider"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// AccessorResolver is implemented by the Accessor Factory (package
// factory); Connection depends on it only through this interface to avoid
// an import cycle (factory depends on connection.Connection's exported
// surface).
type AccessorResolver interface {
	GetAccessor(conn *Connection) (accessor.ResourceAccessor, error)
}

// Connection is a configured instance of a Provider (spec §3). AccessMethod,
// ProviderType and Capabilities are derived from Provider and read-only;
// the id never changes after construction; Config is defensively copied on
// ingress and egress.
type Connection struct {
	id       string
	provider *provider.Provider

	mu        sync.Mutex
	name      string
	config    map[string]any
	auth      auth.Auth
	enabled   bool
	isPrimary bool
	priority  int

	// projectID is the optional back-reference to an owning Project, used
	// for OAuth token write-back (spec §3 "Lifecycles").
	projectID string

	resolver       AccessorResolver
	cachedAccessor accessor.ResourceAccessor
}

// New constructs a Connection bound to a Provider. id must be stable and
// caller-supplied (e.g. minted by the Registry via ulid).
func New(id string, p *provider.Provider, name string, cfg map[string]any, a auth.Auth, enabled, isPrimary bool, priority int, projectID string, resolver AccessorResolver) *Connection {
	return &Connection{
		id:        id,
		provider:  p,
		name:      name,
		config:    copyConfig(cfg),
		auth:      a,
		enabled:   enabled,
		isPrimary: isPrimary,
		priority:  priority,
		projectID: projectID,
		resolver:  resolver,
	}
}

func copyConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}

func (c *Connection) ID() string                 { return c.id }
func (c *Connection) AccessMethod() uri.AccessMethod { return c.provider.AccessMethod }
func (c *Connection) ProviderType() string       { return string(c.provider.ProviderType) }
func (c *Connection) Provider() *provider.Provider { return c.provider }
func (c *Connection) Capabilities() uri.Capabilities { return c.provider.Capabilities }
func (c *Connection) ProjectID() string          { return c.projectID }

func (c *Connection) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Connection) Config() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyConfig(c.config)
}

func (c *Connection) Auth() (uri.AuthMethod, string, string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth.Method, c.auth.AccessToken, c.auth.RefreshToken, c.auth.Key
}

func (c *Connection) AuthRecord() auth.Auth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth
}

func (c *Connection) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Connection) IsPrimary() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isPrimary
}

func (c *Connection) Priority() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priority
}

// Update is Connection's only mutable surface. It must not change id,
// providerType, or accessMethod (spec §4.6) — those fields are simply not
// parameters of UpdateFields.
type UpdateFields struct {
	Name      *string
	Config    map[string]any
	Auth      *auth.Auth
	Enabled   *bool
	IsPrimary *bool
	Priority  *int
}

func (c *Connection) Update(fields UpdateFields) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fields.Name != nil {
		c.name = *fields.Name
	}
	if fields.Config != nil {
		c.config = copyConfig(fields.Config)
	}
	if fields.Auth != nil {
		c.auth = *fields.Auth
	}
	if fields.Enabled != nil {
		c.enabled = *fields.Enabled
	}
	if fields.IsPrimary != nil {
		c.isPrimary = *fields.IsPrimary
	}
	if fields.Priority != nil {
		c.priority = *fields.Priority
	}

	// Config/auth changed: invalidate the cached accessor so subsequent
	// calls pick up the new configuration.
	c.cachedAccessor = nil
}

// GetUriPrefix returns "<accessMethod>+<providerType>+<name>://".
func (c *Connection) GetUriPrefix() string {
	c.mu.Lock()
	name := c.name
	c.mu.Unlock()
	return uri.Prefix(c.provider.AccessMethod, string(c.provider.ProviderType), name)
}

// GetUriForResource returns a fully-qualified URI, unchanged if
// resourcePath already carries a scheme prefix (spec §3).
func (c *Connection) GetUriForResource(resourcePath string) string {
	c.mu.Lock()
	name := c.name
	c.mu.Unlock()
	return uri.ForResource(c.provider.AccessMethod, string(c.provider.ProviderType), name, resourcePath)
}

// GetResourceAccessor lazily resolves the accessor via the Factory and
// caches it on the Connection itself, layering on top of the Factory's
// own connection-id cache for cheap re-lookup (spec §4.6, §3 "Lifecycles").
func (c *Connection) GetResourceAccessor() (accessor.ResourceAccessor, error) {
	c.mu.Lock()
	if c.cachedAccessor != nil {
		a := c.cachedAccessor
		c.mu.Unlock()
		return a, nil
	}
	c.mu.Unlock()

	a, err := c.resolver.GetAccessor(c)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cachedAccessor = a
	c.mu.Unlock()

	return a, nil
}

// InvalidateCachedAccessor clears only this Connection's own cache layer
// (the Factory's cache is cleared separately via clearConnectionCache).
func (c *Connection) InvalidateCachedAccessor() {
	c.mu.Lock()
	c.cachedAccessor = nil
	c.mu.Unlock()
}
