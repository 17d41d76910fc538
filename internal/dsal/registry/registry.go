// Package registry implements the Registry singleton (spec §3/§4.7):
// discovers providers (built-in, plug-in, MCP-discovered), validates
// config/auth, and constructs Connections.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/connection"
	"github.com/rakunlabs/at/internal/dsal/provider"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// MCPServerInfo describes one server as reported by the MCP manager (spec
// §4.7 step 5).
type MCPServerInfo struct {
	ServerID      string
	ResourceCount int
	Capabilities  uri.Capabilities
}

// MCPManager is the minimal view of the external MCP manager the Registry
// needs; the real transport lives outside this module's scope (spec §1
// Non-goals: "the Model-Context-Protocol transport itself").
type MCPManager interface {
	ListServers(ctx context.Context) ([]MCPServerInfo, error)
	LoadResource(ctx context.Context, serverID, path string) (string, error)
	ListResources(ctx context.Context, serverID string) ([]string, error)
}

// BuiltinFactory builds one built-in Provider. Concrete builders live in
// builtins.go, one per backend package (filesystem, notion, googledocs).
type BuiltinFactory func() *provider.Provider

// Options configures a Registry at construction time (spec §4.7 step 1:
// "read global config to discover user plug-in directories and product
// variant").
type Options struct {
	Variant     string
	PluginDirs  []string
	Manifest    Manifest
	BuiltinTree string // import-path prefix identifying the built-in tree
	Builtins    map[string]BuiltinFactory
	MCP         MCPManager
}

// Registry is the process-wide provider/connection directory.
type Registry struct {
	opts Options

	mu      sync.RWMutex
	bb      map[string]*provider.Provider // key: providerType (bb access method)
	mcp     map[string]*provider.Provider // key: providerType (mcp access method)
	mcpInfo map[string]MCPServerInfo

	initOnce sync.Once
	initErr  error
}

// New constructs an uninitialized Registry. Call Init before use; the
// lookup and connection methods do not run it implicitly.
func New(opts Options) *Registry {
	if opts.Builtins == nil {
		opts.Builtins = map[string]BuiltinFactory{}
	}
	return &Registry{
		opts:    opts,
		bb:      make(map[string]*provider.Provider),
		mcp:     make(map[string]*provider.Provider),
		mcpInfo: make(map[string]MCPServerInfo),
	}
}

// Init runs the five-step initialization sequence exactly once, even
// under concurrent callers (spec §4.7, §5, testable property §8.7): the
// registry holds a pending-init future (sync.Once) and every concurrent
// caller awaits the same result.
func (r *Registry) Init(ctx context.Context) error {
	r.initOnce.Do(func() {
		r.initErr = r.init(ctx)
	})
	return r.initErr
}

func (r *Registry) init(ctx context.Context) error {
	// Step 2+3: load manifest, instantiate built-ins enabled for the
	// configured variant.
	for _, entry := range r.opts.Manifest.enabledFor(r.opts.Variant) {
		factory, ok := r.opts.Builtins[pluginKey(entry.ProviderType, entry.AccessMethod)]
		if !ok {
			continue
		}
		p := factory()
		r.register(p)
	}

	// Step 4: scan plug-in directories. A descriptor is honoured only when
	// its providerType/accessMethod names a known built-in factory and its
	// importPath lies outside the built-in tree; that built-in provider is
	// then registered again. No code from the plug-in directory is loaded.
	for _, info := range discoverPlugins(r.opts.PluginDirs) {
		factory, ok := r.opts.Builtins[pluginKey(info.ProviderType, info.AccessMethod)]
		if !ok {
			continue
		}
		if !isOverride(r.opts.BuiltinTree, info) {
			continue
		}
		r.register(factory())
	}

	// Step 5: query the MCP manager; register a GenericMCPProvider per
	// server exposing at least one resource.
	if r.opts.MCP != nil {
		servers, err := r.opts.MCP.ListServers(ctx)
		if err != nil {
			return fmt.Errorf("registry: list mcp servers: %w", err)
		}
		for _, s := range servers {
			if s.ResourceCount < 1 {
				continue
			}
			r.mu.Lock()
			r.mcpInfo[s.ServerID] = s
			r.mcp[s.ServerID] = newGenericMCPProvider(s, r.opts.MCP)
			r.mu.Unlock()
		}
	}

	return nil
}

func (r *Registry) register(p *provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.AccessMethod == uri.MCP {
		r.mcp[string(p.ProviderType)] = p
		return
	}
	r.bb[string(p.ProviderType)] = p
}

// GetProvider searches bb-providers first, then mcp-providers (spec
// §4.7: "Provider lookup accepts (providerType, accessMethod?) and
// searches bb-providers first, then mcp-providers"). accessMethod may be
// empty to search both.
func (r *Registry) GetProvider(providerType string, accessMethod uri.AccessMethod) (*provider.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if accessMethod == "" || accessMethod == uri.BB {
		if p, ok := r.bb[providerType]; ok {
			return p, true
		}
	}
	if accessMethod == "" || accessMethod == uri.MCP {
		if p, ok := r.mcp[providerType]; ok {
			return p, true
		}
	}
	return nil, false
}

// ListProviders returns every registered provider, optionally filtering
// MCP providers to an allow-list of server ids (spec §4.7: "used to
// enforce feature gates"). A nil allowList means no filtering.
func (r *Registry) ListProviders(mcpAllowList []string) []*provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var allow map[string]bool
	if mcpAllowList != nil {
		allow = make(map[string]bool, len(mcpAllowList))
		for _, id := range mcpAllowList {
			allow[id] = true
		}
	}

	out := make([]*provider.Provider, 0, len(r.bb)+len(r.mcp))
	for _, p := range r.bb {
		out = append(out, p)
	}
	for id, p := range r.mcp {
		if allow != nil && !allow[id] {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderType < out[j].ProviderType })
	return out
}

// CreateConnectionOptions parameterizes CreateConnection.
type CreateConnectionOptions struct {
	Auth      *auth.Auth
	Enabled   bool
	IsPrimary bool
	Priority  int
	ProjectID string
}

// CreateConnection validates config and (if provided) auth before
// constructing the Connection (spec §4.7).
func (r *Registry) CreateConnection(accessMethod uri.AccessMethod, providerType, name string, config map[string]any, opts CreateConnectionOptions, resolver connection.AccessorResolver) (*connection.Connection, error) {
	p, ok := r.GetProvider(providerType, accessMethod)
	if !ok {
		return nil, fmt.Errorf("registry: no provider for %s/%s", accessMethod, providerType)
	}

	if !p.ValidateConfig(config) {
		return nil, fmt.Errorf("registry: invalid config for provider %s/%s", accessMethod, providerType)
	}

	var a auth.Auth
	if opts.Auth != nil {
		a = *opts.Auth
		if !a.Validate() {
			return nil, fmt.Errorf("registry: invalid auth for provider %s/%s", accessMethod, providerType)
		}
		if !p.ValidateAuth(a.Method, true) {
			return nil, fmt.Errorf("registry: auth method %s does not match provider %s/%s", a.Method, accessMethod, providerType)
		}
	}

	id := ulid.Make().String()
	return connection.New(id, p, name, config, a, opts.Enabled, opts.IsPrimary, opts.Priority, opts.ProjectID, resolver), nil
}

// FromRecord reconstructs a Connection from a persisted Record (spec §6
// "Persisted state"), resolving its Provider through this Registry.
func (r *Registry) FromRecord(rec connection.Record, resolver connection.AccessorResolver) (*connection.Connection, error) {
	p, ok := r.GetProvider(rec.ProviderType, uri.AccessMethod(rec.AccessMethod))
	if !ok {
		return nil, fmt.Errorf("registry: no provider for %s/%s", rec.AccessMethod, rec.ProviderType)
	}
	a := connection.AuthFromRecord(rec.Auth)
	return connection.New(rec.ID, p, rec.Name, rec.Config, a, rec.Enabled, rec.IsPrimary, rec.Priority, "", resolver), nil
}

// ─── Process-wide singleton ───

var (
	instanceMu sync.Mutex
	instance   *Registry
)

// Instance returns the process-wide Registry singleton, constructing (but
// not initializing) it on first call with opts. Subsequent calls ignore
// opts and return the existing instance.
func Instance(opts Options) *Registry {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = New(opts)
	}
	return instance
}

// ResetInstanceForTest replaces the process-wide singleton, for test
// isolation (spec §9's test-override requirement).
func ResetInstanceForTest(opts Options) *Registry {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = New(opts)
	return instance
}
