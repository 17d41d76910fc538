package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/rakunlabs/at/internal/connstore"
	connpostgres "github.com/rakunlabs/at/internal/connstore/postgres"
	connsqlite "github.com/rakunlabs/at/internal/connstore/sqlite"
	atcrypto "github.com/rakunlabs/at/internal/crypto"
	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/factory"
	"github.com/rakunlabs/at/internal/dsal/registry"
	"github.com/rakunlabs/at/internal/dsalconfig"
)

var (
	name    = "dsalctl"
	version = "v0.0.0"
)

func main() {
	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

func run(ctx context.Context) error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: %s <list-connections|load|search> [flags]", name)
	}
	cmd := os.Args[1]

	cfg, err := dsalconfig.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open connection store: %w", err)
	}
	defer store.Close()

	reg, fac, err := buildRegistry(ctx, cfg, store)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}

	switch cmd {
	case "list-connections":
		return cmdListConnections(ctx, store)
	case "load":
		return cmdLoad(ctx, os.Args[2:], store, reg, fac)
	case "search":
		return cmdSearch(ctx, os.Args[2:], store, reg, fac)
	default:
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func openStore(ctx context.Context, cfg *dsalconfig.Config) (connstore.Store, error) {
	var encKey []byte
	if cfg.Store.EncryptionKey != "" {
		key, err := atcrypto.DeriveKey(cfg.Store.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("derive encryption key: %w", err)
		}
		encKey = key
	}

	switch {
	case cfg.Store.Postgres != nil:
		return connpostgres.New(ctx, cfg.Store.Postgres, encKey)
	case cfg.Store.SQLite != nil:
		return connsqlite.New(ctx, cfg.Store.SQLite, encKey)
	default:
		return connsqlite.New(ctx, &dsalconfig.StoreSQLite{Datasource: "dsalctl.db"}, encKey)
	}
}

func buildRegistry(ctx context.Context, cfg *dsalconfig.Config, store connstore.Store) (*registry.Registry, *factory.Factory, error) {
	manifest := registry.DefaultManifest()
	if cfg.Registry.ManifestPath != "" {
		data, err := os.ReadFile(cfg.Registry.ManifestPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read manifest: %w", err)
		}
		manifest, err = registry.ParseManifest(data)
		if err != nil {
			return nil, nil, err
		}
	}

	reg := registry.New(registry.Options{
		Variant:    cfg.Registry.Variant,
		PluginDirs: cfg.Registry.PluginDirs,
		Manifest:   manifest,
		Builtins: registry.DefaultBuiltins(registry.GoogleDocsProviderOptions{
			OnUpdate: connstore.NewTokenUpdateCallback(store),
		}),
	})
	if err := reg.Init(ctx); err != nil {
		return nil, nil, err
	}

	return reg, factory.New(), nil
}

func cmdListConnections(ctx context.Context, store connstore.Store) error {
	records, err := store.ListRecords(ctx, "")
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%s\t%s/%s\t%s\n", rec.ID, rec.AccessMethod, rec.ProviderType, rec.Name)
	}
	return nil
}

func resolveConnection(ctx context.Context, id string, store connstore.Store, reg *registry.Registry, fac *factory.Factory) (accessor.ResourceAccessor, error) {
	rec, err := store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	conn, err := reg.FromRecord(*rec, fac)
	if err != nil {
		return nil, err
	}
	return conn.GetResourceAccessor()
}

func cmdLoad(ctx context.Context, args []string, store connstore.Store, reg *registry.Registry, fac *factory.Factory) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	connID := fs.String("connection", "", "connection id")
	uri := fs.String("uri", "", "resource uri or path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *connID == "" || *uri == "" {
		return fmt.Errorf("load requires -connection and -uri")
	}

	acc, err := resolveConnection(ctx, *connID, store, reg, fac)
	if err != nil {
		return err
	}

	res, err := acc.LoadResource(ctx, *uri, accessor.LoadOptions{})
	if err != nil {
		return err
	}

	return printJSON(res)
}

func cmdSearch(ctx context.Context, args []string, store connstore.Store, reg *registry.Registry, fac *factory.Factory) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	connID := fs.String("connection", "", "connection id")
	query := fs.String("query", "", "search query")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *connID == "" {
		return fmt.Errorf("search requires -connection")
	}

	acc, err := resolveConnection(ctx, *connID, store, reg, fac)
	if err != nil {
		return err
	}

	res, err := acc.SearchResources(ctx, *query, accessor.SearchOptions{})
	if err != nil {
		return err
	}

	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encode result", "error", err)
		return err
	}
	return nil
}
