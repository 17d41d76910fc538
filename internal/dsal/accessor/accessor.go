// Package accessor defines the common ResourceAccessor contract executed
// by every backend-specific accessor (spec §4.4). Concrete backends live
// in accessor/filesystem, accessor/notion, accessor/googledocs and
// accessor/mcp.
package accessor

import (
	"context"
	"time"

	"github.com/rakunlabs/at/internal/dsal/ptext"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// LoadOptions parameterizes loadResource.
type LoadOptions struct {
	Range    *ByteRange
	Encoding string // e.g. "utf-8"; empty means backend default
}

// ByteRange is an inclusive-exclusive [Start, End) byte range for partial
// reads.
type ByteRange struct {
	Start int64
	End   int64 // 0 means "read to EOF"
}

// LoadResult is the common shape returned by loadResource.
type LoadResult struct {
	Content    string
	Bytes      []byte // set instead of Content for binary loads
	IsBinary   bool
	Blocks     *ptext.Document // set for block-structured backends
	Metadata   map[string]any
	IsPartial  bool
}

// ExistsOptions parameterizes resourceExists.
type ExistsOptions struct {
	IsFile *bool
}

// ListOptions parameterizes listResources.
type ListOptions struct {
	Path      string
	Depth     int
	PageSize  int
	PageToken string
}

// ResourceInfo is one entry in a listResources result.
type ResourceInfo struct {
	URI          string
	Name         string
	IsDir        bool
	Size         int64
	ModifiedTime time.Time
	Metadata     map[string]any
}

// Pagination carries the opaque continuation token, if any.
type Pagination struct {
	NextPageToken string
	HasMore       bool
}

// ListResult is the return shape of listResources.
type ListResult struct {
	Resources  []ResourceInfo
	Pagination *Pagination
}

// SearchOptions parameterizes searchResources.
type SearchOptions struct {
	ContentPattern  string
	ResourcePattern string
	CaseSensitive   bool
	DateAfter       *time.Time
	DateBefore      *time.Time
	PageSize        int
	ContextLines    int
}

// SearchMatch is one hit in a searchResources result.
type SearchMatch struct {
	URI      string
	Snippets []string
	Metadata map[string]any
}

// SearchResult is the return shape of searchResources, including a
// best-effort partial-failure message (spec §7: "search overall returns a
// partial result with errorMessage populated").
type SearchResult struct {
	Matches      []SearchMatch
	TotalMatches int
	ErrorMessage string
}

// WriteOptions parameterizes writeResource and moveResource.
type WriteOptions struct {
	Overwrite               bool
	CreateMissingDirectories bool
}

// WriteResult is the return shape of writeResource.
type WriteResult struct {
	Success      bool
	URI          string
	Metadata     map[string]any
	BytesWritten int64
}

// EditOptions parameterizes editResource.
type EditOptions struct {
	CreateIfMissing bool
}

// EditResult is the return shape of editResource.
type EditResult struct {
	OperationResults []ptext.OperationResult
	Metadata         map[string]any
}

// MoveResult is the return shape of moveResource.
type MoveResult struct {
	Success  bool
	Src      string
	Dst      string
	Metadata map[string]any
}

// DeleteOptions parameterizes deleteResource.
type DeleteOptions struct {
	Recursive bool
}

// DeleteResult is the return shape of deleteResource.
type DeleteResult struct {
	Success bool
	URI     string
	Type    string // "file" or "directory", best effort
}

// DataSourceMetadata is the best-effort metadata bundle returned by
// getMetadata(); it never fails (spec §4.4), so every field is optional.
type DataSourceMetadata struct {
	TotalFiles       int
	TotalDirectories int
	DeepestDepth     int
	LargestFileSize  int64
	ExtensionCounts  map[string]int
	OldestModified   *time.Time
	NewestModified   *time.Time
	Capabilities     CapabilityProbe
	ContentAnalysis  ContentAnalysis
	Extra            map[string]any
}

// CapabilityProbe records what the filesystem accessor's metadata
// collection actually verified by attempting a small write+delete in the
// data-source root (spec §4.4).
type CapabilityProbe struct {
	CanWrite       bool
	CanDelete      bool
	GitignoreFound bool
	BBIgnoreFound  bool
}

// ContentAnalysis summarizes file content classes seen during metadata
// collection.
type ContentAnalysis struct {
	TextFiles      int
	BinaryFiles    int
	EmptyFiles     int
	HasVeryLarge   bool // any file >= 10MB
}

// ResourceAccessor is the common contract every backend-specific accessor
// implements (spec §4.4 table). Methods beyond a backend's declared
// capability set must fail with dsalerr.CapabilityUnsupported rather than
// silently no-op.
type ResourceAccessor interface {
	IsResourceWithinDataSource(u string) bool
	ResourceExists(ctx context.Context, u string, opts ExistsOptions) bool
	EnsureResourcePathExists(ctx context.Context, u string) error

	LoadResource(ctx context.Context, u string, opts LoadOptions) (LoadResult, error)
	ListResources(ctx context.Context, opts ListOptions) (ListResult, error)
	SearchResources(ctx context.Context, query string, opts SearchOptions) (SearchResult, error)
	WriteResource(ctx context.Context, u string, content []byte, opts WriteOptions) (WriteResult, error)
	EditResource(ctx context.Context, path string, ops []ptext.Operation, opts EditOptions) (EditResult, error)
	MoveResource(ctx context.Context, src, dst string, opts WriteOptions) (MoveResult, error)
	DeleteResource(ctx context.Context, u string, opts DeleteOptions) (DeleteResult, error)

	GetMetadata(ctx context.Context) DataSourceMetadata
	HasCapability(c uri.Coarse) bool
}
