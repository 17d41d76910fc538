// Package mcp implements the generic MCP accessor (spec §4.4 "Generic MCP
// accessor"): a thin delegator over an externally-managed Model-Context-
// Protocol server.
package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsalerr"
	"github.com/rakunlabs/at/internal/dsal/ptext"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// Manager is the minimal MCP-manager surface this accessor delegates to.
// The transport itself is out of scope (spec §1 Non-goals).
type Manager interface {
	LoadResource(ctx context.Context, serverID, path string) (string, error)
	ListResources(ctx context.Context, serverID string) ([]string, error)
}

// Accessor delegates load/list to Manager and refuses everything else
// not declared in caps.
type Accessor struct {
	serverID string
	manager  Manager
	caps     uri.Capabilities
}

// New constructs an Accessor for one MCP server. caps defaults to
// {read, list} when empty, per spec §4.4.
func New(serverID string, manager Manager, caps uri.Capabilities) *Accessor {
	if len(caps.Coarse) == 0 {
		caps.Coarse = []uri.Coarse{uri.CoarseRead, uri.CoarseList}
	}
	return &Accessor{serverID: serverID, manager: manager, caps: caps}
}

func (a *Accessor) HasCapability(c uri.Coarse) bool { return a.caps.HasCoarse(c) }

func (a *Accessor) IsResourceWithinDataSource(u string) bool {
	p, err := uri.Parse(u)
	if err != nil {
		return false
	}
	return p.AccessMethod == uri.MCP
}

func (a *Accessor) ResourceExists(ctx context.Context, u string, opts accessor.ExistsOptions) bool {
	res, err := a.LoadResource(ctx, u, accessor.LoadOptions{})
	return err == nil && res.Content != ""
}

func (a *Accessor) EnsureResourcePathExists(ctx context.Context, u string) error {
	return dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: ensureResourcePathExists is not supported by generic mcp accessors")
}

func (a *Accessor) LoadResource(ctx context.Context, u string, opts accessor.LoadOptions) (accessor.LoadResult, error) {
	if !a.HasCapability(uri.CoarseRead) {
		return accessor.LoadResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: read not declared by this server")
	}
	path := resourcePath(u)
	content, err := a.manager.LoadResource(ctx, a.serverID, path)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "mcp: loadResource", err)
	}
	return accessor.LoadResult{Content: content}, nil
}

func (a *Accessor) ListResources(ctx context.Context, opts accessor.ListOptions) (accessor.ListResult, error) {
	if !a.HasCapability(uri.CoarseList) {
		return accessor.ListResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: list not declared by this server")
	}
	paths, err := a.manager.ListResources(ctx, a.serverID)
	if err != nil {
		return accessor.ListResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "mcp: listResources", err)
	}
	out := make([]accessor.ResourceInfo, 0, len(paths))
	for _, p := range paths {
		out = append(out, accessor.ResourceInfo{
			URI:          uri.ForResource(uri.MCP, a.serverID, a.serverID, p),
			Name:         p,
			ModifiedTime: time.Time{},
		})
	}
	return accessor.ListResult{Resources: out}, nil
}

func (a *Accessor) SearchResources(ctx context.Context, query string, opts accessor.SearchOptions) (accessor.SearchResult, error) {
	if !a.HasCapability(uri.CoarseSearch) {
		return accessor.SearchResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: search not declared by this server")
	}
	return accessor.SearchResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: search delegation is server-specific and not implemented generically")
}

func (a *Accessor) WriteResource(ctx context.Context, u string, content []byte, opts accessor.WriteOptions) (accessor.WriteResult, error) {
	if !a.HasCapability(uri.CoarseWrite) {
		return accessor.WriteResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: write not declared by this server")
	}
	return accessor.WriteResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: write delegation is server-specific and not implemented generically")
}

func (a *Accessor) EditResource(ctx context.Context, path string, ops []ptext.Operation, opts accessor.EditOptions) (accessor.EditResult, error) {
	if !a.HasCapability(uri.CoarseBlockEdit) {
		return accessor.EditResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: blockEdit not declared by this server")
	}
	return accessor.EditResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: edit delegation is server-specific and not implemented generically")
}

func (a *Accessor) MoveResource(ctx context.Context, src, dst string, opts accessor.WriteOptions) (accessor.MoveResult, error) {
	if !a.HasCapability(uri.CoarseMove) {
		return accessor.MoveResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: move not declared by this server")
	}
	return accessor.MoveResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: move delegation is server-specific and not implemented generically")
}

func (a *Accessor) DeleteResource(ctx context.Context, u string, opts accessor.DeleteOptions) (accessor.DeleteResult, error) {
	if !a.HasCapability(uri.CoarseDelete) {
		return accessor.DeleteResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: delete not declared by this server")
	}
	return accessor.DeleteResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "mcp: delete delegation is server-specific and not implemented generically")
}

func (a *Accessor) GetMetadata(ctx context.Context) accessor.DataSourceMetadata {
	return accessor.DataSourceMetadata{}
}

func resourcePath(u string) string {
	p, err := uri.Parse(u)
	if err != nil {
		return strings.TrimPrefix(u, "mcp+")
	}
	return p.ResourcePath
}
