package registry

import (
	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/accessor/filesystem"
	"github.com/rakunlabs/at/internal/dsal/accessor/googledocs"
	"github.com/rakunlabs/at/internal/dsal/accessor/notion"
	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/provider"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

func cfgString(cfg map[string]any, key string) string {
	v, _ := cfg[key].(string)
	return v
}

func cfgBool(cfg map[string]any, key string) bool {
	v, _ := cfg[key].(bool)
	return v
}

// FilesystemProvider builds the built-in bb/filesystem Provider (spec §4.4
// "Filesystem accessor").
func FilesystemProvider() *provider.Provider {
	required := []provider.ConfigField{
		{Name: "dataSourceRoot", Type: "string", Required: true},
		{Name: "strictRoot", Type: "bool", Required: false},
		{Name: "followSymlinks", Type: "bool", Required: false},
	}
	build := func(conn provider.ConnectionLike) (accessor.ResourceAccessor, error) {
		cfg := conn.Config()
		return filesystem.New(conn.Name(), filesystem.Config{
			DataSourceRoot: cfgString(cfg, "dataSourceRoot"),
			StrictRoot:     cfgBool(cfg, "strictRoot"),
			FollowSymlinks: cfgBool(cfg, "followSymlinks"),
		})
	}
	return provider.New(
		uri.ProviderFilesystem, uri.BB,
		"Filesystem", "Local POSIX filesystem rooted at a configured directory", "file://<path>",
		required, uri.AuthNone, filesystem.Capabilities,
		"Reads, writes, lists and searches files under a single root directory; paths may never escape the root.",
		build,
	)
}

// NotionProvider builds the built-in bb/notion Provider (spec §4.4 "Notion
// accessor").
func NotionProvider() *provider.Provider {
	required := []provider.ConfigField{
		{Name: "workspaceId", Type: "string", Required: true},
	}
	build := func(conn provider.ConnectionLike) (accessor.ResourceAccessor, error) {
		cfg := conn.Config()
		_, _, _, key := conn.Auth()
		return notion.New(conn.Name(), notion.Config{
			WorkspaceID: cfgString(cfg, "workspaceId"),
			APIKey:      key,
		})
	}
	return provider.New(
		uri.ProviderNotion, uri.BB,
		"Notion", "Notion workspace pages and databases", "page/<id> or database/<id>",
		required, uri.AuthAPIKey, notion.Capabilities,
		"Reads and edits Notion pages through the Portable Text model; no coarse write, only block-level edits.",
		build,
	)
}

// GoogleDocsProviderOptions parameterizes GoogleDocsProvider with the
// pieces that must flow from outside the registry (spec §4.8: the refresh
// protocol needs a persistence callback bound to the connection store).
type GoogleDocsProviderOptions struct {
	ClientID     string
	ClientSecret string
	OnUpdate     auth.TokenUpdateCallback
}

// GoogleDocsProvider builds the built-in bb/googledocs Provider (spec §4.4
// "Google Docs accessor", §4.8 OAuth2 refresh protocol).
func GoogleDocsProvider(opts GoogleDocsProviderOptions) *provider.Provider {
	required := []provider.ConfigField{
		{Name: "folderId", Type: "string", Required: false},
		{Name: "driveId", Type: "string", Required: false},
		{Name: "refreshExchangeUri", Type: "string", Required: false},
	}
	build := func(conn provider.ConnectionLike) (accessor.ResourceAccessor, error) {
		cfg := conn.Config()
		method, accessToken, refreshToken, _ := conn.Auth()
		initial := auth.Auth{
			Method:       method,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		}
		// A *connection.Connection also carries expiry and scopes, which the
		// Coordinator's stale check reads before each request.
		if full, ok := conn.(interface{ AuthRecord() auth.Auth }); ok {
			initial = full.AuthRecord()
		}
		return googledocs.New(conn.Name(), conn.ID(), googledocs.Config{
			FolderID:           cfgString(cfg, "folderId"),
			DriveID:            cfgString(cfg, "driveId"),
			RefreshExchangeURI: cfgString(cfg, "refreshExchangeUri"),
			ClientID:           opts.ClientID,
			ClientSecret:       opts.ClientSecret,
		}, initial, opts.OnUpdate)
	}
	return provider.New(
		uri.ProviderGoogleDocs, uri.BB,
		"Google Docs", "Google Docs documents within a Drive folder", "document/<id> or folder/<id>",
		required, uri.AuthOAuth2, googledocs.Capabilities,
		"Reads and edits Google Docs via the Docs and Drive APIs; refreshes expiring OAuth2 tokens transparently.",
		build,
	)
}

// DefaultBuiltins returns the Builtins map for the three built-in bb
// providers, keyed the way Registry.init expects (spec §4.7 step 2/3).
func DefaultBuiltins(gdocs GoogleDocsProviderOptions) map[string]BuiltinFactory {
	return map[string]BuiltinFactory{
		pluginKey("filesystem", "bb"): FilesystemProvider,
		pluginKey("notion", "bb"):     NotionProvider,
		pluginKey("googledocs", "bb"): func() *provider.Provider { return GoogleDocsProvider(gdocs) },
	}
}
