// Package filesystem implements the filesystem accessor (spec §4.4
// "Filesystem accessor"): POSIX-relative paths rooted at dataSourceRoot,
// with gitignore/bbignore-aware walks, paginated listing, range reads and
// a snippet-producing search.
package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsalerr"
	"github.com/rakunlabs/at/internal/dsal/ptext"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// Capabilities advertised by every filesystem connection (spec §4.4).
var Capabilities = uri.Capabilities{
	Coarse: []uri.Coarse{uri.CoarseRead, uri.CoarseWrite, uri.CoarseList, uri.CoarseSearch, uri.CoarseMove, uri.CoarseDelete},
	Load:   []uri.Load{uri.LoadPlainText},
	Search: []uri.Search{uri.SearchText, uri.SearchRegex},
}

// defaultExcludes are always applied regardless of gitignore/.bbignore
// presence (spec §4.4: "built-in default excludes").
var defaultExcludes = []string{".git", "node_modules", "dist", "build", ".trash"}

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".pdf": true, ".zip": true, ".tar": true, ".gz": true,
	".exe": true, ".dll": true, ".so": true, ".bin": true, ".woff": true,
	".woff2": true, ".ttf": true, ".eot": true, ".mp3": true, ".mp4": true,
	".mov": true, ".class": true, ".o": true, ".a": true,
}

// Accessor implements accessor.ResourceAccessor rooted at a single
// directory.
type Accessor struct {
	root           string
	connectionName string
	strictRoot     bool
	followSymlinks bool
	ignore         *ignoreSet
}

// Config mirrors the filesystem provider's recognised configuration keys
// (spec §6).
type Config struct {
	DataSourceRoot string
	StrictRoot     bool
	FollowSymlinks bool
}

// New constructs a filesystem Accessor. connectionName is embedded in
// every URI this accessor produces.
func New(connectionName string, cfg Config) (*Accessor, error) {
	abs, err := filepath.Abs(cfg.DataSourceRoot)
	if err != nil {
		return nil, dsalerr.Wrap(dsalerr.IoError, "filesystem: resolve root", err)
	}
	return &Accessor{
		root:           abs,
		connectionName: connectionName,
		strictRoot:     cfg.StrictRoot,
		followSymlinks: cfg.FollowSymlinks,
		ignore:         loadIgnoreSet(abs),
	}, nil
}

func (a *Accessor) HasCapability(c uri.Coarse) bool { return Capabilities.HasCoarse(c) }

// resolve turns a resource path (or a fully-qualified URI) into an
// absolute filesystem path, refusing traversal outside root (testable
// property §8.3, scenario S2).
func (a *Accessor) resolve(u string) (string, error) {
	rel, err := a.relPath(u)
	if err != nil {
		return "", err
	}
	if strings.Contains(rel, "..") {
		return "", dsalerr.New(dsalerr.InvalidUri, "filesystem: path contains '..'")
	}
	if filepath.IsAbs(rel) {
		return "", dsalerr.New(dsalerr.InvalidUri, "filesystem: absolute paths are not allowed")
	}
	full := filepath.Join(a.root, rel)
	if a.strictRoot {
		full = filepath.Clean(full)
		if full != a.root && !strings.HasPrefix(full, a.root+string(os.PathSeparator)) {
			return "", dsalerr.New(dsalerr.InvalidUri, "filesystem: resolved path escapes data source root")
		}
	}
	return full, nil
}

func (a *Accessor) relPath(u string) (string, error) {
	if uri.HasPrefix(u) {
		p, err := uri.Parse(u)
		if err != nil {
			return "", err
		}
		if p.ConnectionName != a.connectionName {
			return "", dsalerr.New(dsalerr.UriNotForConnection, "filesystem: uri does not belong to this connection")
		}
		return p.ResourcePath, nil
	}
	return u, nil
}

func (a *Accessor) IsResourceWithinDataSource(u string) bool {
	_, err := a.resolve(u)
	return err == nil
}

func (a *Accessor) ResourceExists(ctx context.Context, u string, opts accessor.ExistsOptions) bool {
	full, err := a.resolve(u)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	if opts.IsFile != nil && *opts.IsFile != !info.IsDir() {
		return false
	}
	return true
}

func (a *Accessor) EnsureResourcePathExists(ctx context.Context, u string) error {
	full, err := a.resolve(u)
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(full), 0o755)
}

func (a *Accessor) LoadResource(ctx context.Context, u string, opts accessor.LoadOptions) (accessor.LoadResult, error) {
	if err := ctx.Err(); err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.Cancelled, "filesystem: load", err)
	}
	full, err := a.resolve(u)
	if err != nil {
		return accessor.LoadResult{}, err
	}

	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.NotFound, "filesystem: load", err)
		}
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: load", err)
	}
	defer f.Close()

	if opts.Range != nil {
		if _, err := f.Seek(opts.Range.Start, 0); err != nil {
			return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: seek", err)
		}
		if opts.Range.End == 0 {
			rest, err := io.ReadAll(f)
			if err != nil {
				return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: read range", err)
			}
			return accessor.LoadResult{Content: string(rest), IsPartial: true}, nil
		}
		n := opts.Range.End - opts.Range.Start
		buf := make([]byte, n)
		read, err := f.Read(buf)
		if err != nil && read == 0 {
			return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: read range", err)
		}
		return accessor.LoadResult{Content: string(buf[:read]), IsPartial: true}, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: read", err)
	}
	if isBinary(full, data) {
		return accessor.LoadResult{Bytes: data, IsBinary: true}, nil
	}
	return accessor.LoadResult{Content: string(data)}, nil
}

func (a *Accessor) ListResources(ctx context.Context, opts accessor.ListOptions) (accessor.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return accessor.ListResult{}, dsalerr.Wrap(dsalerr.Cancelled, "filesystem: list", err)
	}

	base := a.root
	if opts.Path != "" {
		full, err := a.resolve(opts.Path)
		if err != nil {
			return accessor.ListResult{}, err
		}
		base = full
	}

	var all []accessor.ResourceInfo
	walkErr := filepath.Walk(base, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			all = append(all, accessor.ResourceInfo{URI: p, Metadata: map[string]any{"error": "(metadata unavailable)"}})
			return nil
		}
		if p == base {
			return nil
		}
		rel, _ := filepath.Rel(a.root, p)
		rel = filepath.ToSlash(rel)
		if a.isExcluded(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if opts.Depth > 0 && strings.Count(rel, "/") >= opts.Depth {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		all = append(all, accessor.ResourceInfo{
			URI:          uri.ForResource(uri.BB, string(uri.ProviderFilesystem), a.connectionName, rel),
			Name:         info.Name(),
			IsDir:        info.IsDir(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
		return nil
	})
	if walkErr != nil {
		return accessor.ListResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: walk", walkErr)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].URI < all[j].URI })

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = len(all)
	}
	start := 0
	if opts.PageToken != "" {
		n, err := strconv.Atoi(opts.PageToken)
		if err != nil {
			return accessor.ListResult{}, dsalerr.New(dsalerr.InvalidQuery, "filesystem: invalid page token")
		}
		start = n
	}
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	page := all[start:end]
	pag := &accessor.Pagination{}
	if end < len(all) {
		pag.NextPageToken = strconv.Itoa(end)
		pag.HasMore = true
	}

	return accessor.ListResult{Resources: page, Pagination: pag}, nil
}

func (a *Accessor) SearchResources(ctx context.Context, query string, opts accessor.SearchOptions) (accessor.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return accessor.SearchResult{}, dsalerr.Wrap(dsalerr.Cancelled, "filesystem: search", err)
	}
	matcher, err := newSearchMatcher(query, opts)
	if err != nil {
		return accessor.SearchResult{}, dsalerr.Wrap(dsalerr.InvalidQuery, "filesystem: search", err)
	}

	var matches []accessor.SearchMatch
	var errMsg strings.Builder
	total := 0

	walkErr := filepath.Walk(a.root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(a.root, p)
		rel = filepath.ToSlash(rel)
		if a.isExcluded(rel, false) {
			return nil
		}
		if opts.ResourcePattern != "" {
			ok, _ := filepath.Match(opts.ResourcePattern, filepath.Base(rel))
			if !ok {
				return nil
			}
		}
		data, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(&errMsg, "skip %s: %v; ", rel, err)
			return nil
		}
		if isBinary(p, data) {
			return nil
		}
		snippets := matcher.findSnippets(string(data))
		if len(snippets) == 0 {
			return nil
		}
		total++
		matches = append(matches, accessor.SearchMatch{
			URI:      uri.ForResource(uri.BB, string(uri.ProviderFilesystem), a.connectionName, rel),
			Snippets: snippets,
		})
		return nil
	})
	if walkErr != nil {
		return accessor.SearchResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: search walk", walkErr)
	}

	return accessor.SearchResult{Matches: matches, TotalMatches: total, ErrorMessage: errMsg.String()}, nil
}

func (a *Accessor) WriteResource(ctx context.Context, u string, content []byte, opts accessor.WriteOptions) (accessor.WriteResult, error) {
	full, err := a.resolve(u)
	if err != nil {
		return accessor.WriteResult{}, err
	}
	if !opts.Overwrite {
		if _, statErr := os.Stat(full); statErr == nil {
			return accessor.WriteResult{}, dsalerr.New(dsalerr.AlreadyExists, "filesystem: destination exists and overwrite is false")
		}
	}
	if opts.CreateMissingDirectories {
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return accessor.WriteResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: mkdir", err)
		}
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return accessor.WriteResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: write", err)
	}
	return accessor.WriteResult{Success: true, URI: u, BytesWritten: int64(len(content))}, nil
}

func (a *Accessor) EditResource(ctx context.Context, path string, ops []ptext.Operation, opts accessor.EditOptions) (accessor.EditResult, error) {
	return accessor.EditResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "filesystem: block edit operations are not supported, it advertises coarse write only")
}

func (a *Accessor) MoveResource(ctx context.Context, src, dst string, opts accessor.WriteOptions) (accessor.MoveResult, error) {
	srcFull, err := a.resolve(src)
	if err != nil {
		return accessor.MoveResult{}, err
	}
	dstFull, err := a.resolve(dst)
	if err != nil {
		return accessor.MoveResult{}, err
	}
	if !opts.Overwrite {
		if _, statErr := os.Stat(dstFull); statErr == nil {
			return accessor.MoveResult{}, dsalerr.New(dsalerr.AlreadyExists, "filesystem: move destination exists and overwrite is false")
		}
	}
	if opts.CreateMissingDirectories {
		if err := os.MkdirAll(filepath.Dir(dstFull), 0o755); err != nil {
			return accessor.MoveResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: mkdir", err)
		}
	}
	if err := os.Rename(srcFull, dstFull); err != nil {
		if os.IsNotExist(err) {
			return accessor.MoveResult{}, dsalerr.Wrap(dsalerr.NotFound, "filesystem: move", err)
		}
		return accessor.MoveResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: move", err)
	}
	return accessor.MoveResult{Success: true, Src: src, Dst: dst}, nil
}

func (a *Accessor) DeleteResource(ctx context.Context, u string, opts accessor.DeleteOptions) (accessor.DeleteResult, error) {
	full, err := a.resolve(u)
	if err != nil {
		return accessor.DeleteResult{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return accessor.DeleteResult{}, dsalerr.Wrap(dsalerr.NotFound, "filesystem: delete", err)
		}
		return accessor.DeleteResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: delete", err)
	}

	if info.IsDir() {
		entries, _ := os.ReadDir(full)
		if len(entries) > 0 && !opts.Recursive {
			return accessor.DeleteResult{}, dsalerr.New(dsalerr.NotEmpty, "filesystem: directory not empty, pass Recursive to delete anyway")
		}
		if err := os.RemoveAll(full); err != nil {
			return accessor.DeleteResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: delete", err)
		}
		return accessor.DeleteResult{Success: true, URI: u, Type: "directory"}, nil
	}

	if err := os.Remove(full); err != nil {
		return accessor.DeleteResult{}, dsalerr.Wrap(dsalerr.IoError, "filesystem: delete", err)
	}
	return accessor.DeleteResult{Success: true, URI: u, Type: "file"}, nil
}

func (a *Accessor) GetMetadata(ctx context.Context) accessor.DataSourceMetadata {
	meta := accessor.DataSourceMetadata{
		ExtensionCounts: map[string]int{},
		Capabilities: accessor.CapabilityProbe{
			GitignoreFound: a.ignore.gitignoreFound,
			BBIgnoreFound:  a.ignore.bbignoreFound,
		},
	}

	probePath := filepath.Join(a.root, ".dsal-probe-tmp")
	if err := os.WriteFile(probePath, []byte("probe"), 0o644); err == nil {
		meta.Capabilities.CanWrite = true
		if os.Remove(probePath) == nil {
			meta.Capabilities.CanDelete = true
		}
	}

	_ = filepath.Walk(a.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if p == a.root {
			return nil
		}
		rel, _ := filepath.Rel(a.root, p)
		rel = filepath.ToSlash(rel)
		if a.isExcluded(rel, info.IsDir()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		depth := strings.Count(rel, "/") + 1
		if depth > meta.DeepestDepth {
			meta.DeepestDepth = depth
		}
		if info.IsDir() {
			meta.TotalDirectories++
			return nil
		}
		meta.TotalFiles++
		if info.Size() > meta.LargestFileSize {
			meta.LargestFileSize = info.Size()
		}
		ext := filepath.Ext(rel)
		meta.ExtensionCounts[ext]++

		mt := info.ModTime()
		if meta.OldestModified == nil || mt.Before(*meta.OldestModified) {
			meta.OldestModified = &mt
		}
		if meta.NewestModified == nil || mt.After(*meta.NewestModified) {
			meta.NewestModified = &mt
		}

		if info.Size() == 0 {
			meta.ContentAnalysis.EmptyFiles++
		} else if binaryExtensions[ext] {
			meta.ContentAnalysis.BinaryFiles++
		} else {
			meta.ContentAnalysis.TextFiles++
		}
		if info.Size() >= 10*1024*1024 {
			meta.ContentAnalysis.HasVeryLarge = true
		}
		return nil
	})

	return meta
}

func (a *Accessor) isExcluded(rel string, isDir bool) bool {
	base := filepath.Base(rel)
	for _, d := range defaultExcludes {
		if base == d {
			return true
		}
	}
	return a.ignore.matches(rel, isDir)
}

func isBinary(path string, data []byte) bool {
	if binaryExtensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	return bytes.IndexByte(sample, 0) != -1 || !utf8.Valid(sample)
}
