package registry

import (
	"context"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	mcpaccessor "github.com/rakunlabs/at/internal/dsal/accessor/mcp"
	"github.com/rakunlabs/at/internal/dsal/provider"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// managerAdapter narrows the Registry's MCPManager to the smaller surface
// accessor/mcp.Manager expects.
type managerAdapter struct {
	mgr MCPManager
}

func (m managerAdapter) LoadResource(ctx context.Context, serverID, path string) (string, error) {
	return m.mgr.LoadResource(ctx, serverID, path)
}

func (m managerAdapter) ListResources(ctx context.Context, serverID string) ([]string, error) {
	return m.mgr.ListResources(ctx, serverID)
}

// newGenericMCPProvider builds a Provider wrapping one discovered MCP
// server (spec §4.7 step 5).
func newGenericMCPProvider(info MCPServerInfo, mgr MCPManager) *provider.Provider {
	caps := info.Capabilities
	if len(caps.Coarse) == 0 {
		caps.Coarse = []uri.Coarse{uri.CoarseRead, uri.CoarseList}
	}
	adapter := managerAdapter{mgr: mgr}

	return provider.New(
		uri.ProviderType(info.ServerID),
		uri.MCP,
		info.ServerID,
		"Externally-managed MCP server",
		"mcp+"+info.ServerID+"+<connectionName>://<resourcePath>",
		nil,
		uri.AuthNone,
		caps,
		"",
		func(conn provider.ConnectionLike) (accessor.ResourceAccessor, error) {
			return mcpaccessor.New(info.ServerID, adapter, caps), nil
		},
	)
}
