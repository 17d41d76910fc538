// Package dsalconfig is the DSAL subsystem's own chu-based configuration
// surface: registry plugin discovery, per-provider config blocks, and the
// connection store. It is loaded as a sub-tree of the host application's
// configuration, mirroring the teacher's internal/config package's style.
package dsalconfig

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"
)

// Config is the root of the DSAL configuration tree (spec §4.7, §6).
type Config struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	// Registry configures plugin discovery and the active manifest variant
	// (spec §4.7 "Registry").
	Registry Registry `cfg:"registry"`

	// Providers holds static per-(providerType) configuration blocks. They
	// are loaded with the rest of the tree; nothing in this module reads
	// them, so they do not create providers or connections.
	Providers map[string]ProviderConfig `cfg:"providers"`

	Store Store `cfg:"store"`
}

// Registry mirrors spec §4.7's Options, expressed as a loadable config
// section rather than a Go literal.
type Registry struct {
	// Variant selects which manifest entries are enabled (e.g. "default",
	// "enterprise"); empty means "default".
	Variant string `cfg:"variant" default:"default"`

	// ManifestPath, if set, overrides the built-in DefaultManifest with a
	// YAML file on disk (registry.ParseManifest).
	ManifestPath string `cfg:"manifest_path"`

	// PluginDirs are filesystem roots scanned for *.datasource plugin
	// descriptors (spec §4.7 "Plugin discovery").
	PluginDirs []string `cfg:"plugin_dirs"`
}

// ProviderConfig is one static provider config block, keyed by provider
// name in the Providers map.
type ProviderConfig struct {
	ProviderType string         `cfg:"provider_type" json:"providerType"`
	AccessMethod string         `cfg:"access_method" json:"accessMethod"`
	Config       map[string]any `cfg:"config" json:"config"`

	// AuthMethod/AuthConfig describe a single static credential; like the
	// rest of ProviderConfig they are loaded but not read.
	AuthMethod string         `cfg:"auth_method" json:"authMethod"`
	AuthConfig map[string]any `cfg:"auth_config" json:"authConfig" log:"-"`
}

// Store configures the connstore persistence backend (spec §6 "Persisted
// state"). Exactly one of Postgres/SQLite should be set; SQLite is assumed
// when neither is configured, matching the teacher's Store section shape.
type Store struct {
	Postgres *StorePostgres `cfg:"postgres"`
	SQLite   *StoreSQLite   `cfg:"sqlite"`

	// EncryptionKey enables AES-256-GCM encryption of stored auth secrets
	// (access/refresh tokens, api keys) via internal/crypto, the same way
	// the host application encrypts LLM provider keys.
	EncryptionKey string `cfg:"encryption_key" log:"-"`
}

type StorePostgres struct {
	TablePrefix     *string        `cfg:"table_prefix"`
	Datasource      string         `cfg:"datasource" log:"-"`
	Schema          string         `cfg:"schema"`
	ConnMaxLifetime *time.Duration `cfg:"conn_max_lifetime"`
	MaxIdleConns    *int           `cfg:"max_idle_conns"`
	MaxOpenConns    *int           `cfg:"max_open_conns"`

	Migrate Migrate `cfg:"migrate"`
}

type StoreSQLite struct {
	TablePrefix *string `cfg:"table_prefix"`
	Datasource  string  `cfg:"datasource"`

	Migrate Migrate `cfg:"migrate"`
}

type Migrate struct {
	Datasource string            `cfg:"datasource" log:"-"`
	Schema     string            `cfg:"schema"`
	Table      string            `cfg:"table"`
	Values     map[string]string `cfg:"values"`
}

// Load reads the DSAL config sub-tree from path using the "DSAL_" env
// prefix, separate from the host application's "AT_" prefix so the two
// subsystems never collide on an env var name.
func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if err := chu.Load(ctx, path, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix("DSAL_")))); err != nil {
		return nil, err
	}

	if cfg.LogLevel != "" {
		if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
		}
	}

	slog.Info("loaded dsal configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}
