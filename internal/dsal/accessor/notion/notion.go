// Package notion implements the Notion accessor (spec §4.4 "Notion
// accessor"): resource paths of the form <kind>/<id>, destructive
// replace-all writes, and edits routed through Portable Text.
package notion

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/convert"
	"github.com/rakunlabs/at/internal/dsalerr"
	"github.com/rakunlabs/at/internal/dsal/ptext"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// Capabilities advertised by every Notion connection (spec §4.4: "notably
// not write in the coarse sense").
var Capabilities = uri.Capabilities{
	Coarse: []uri.Coarse{uri.CoarseBlockRead, uri.CoarseBlockEdit, uri.CoarseList, uri.CoarseSearch, uri.CoarseDelete},
	Load:   []uri.Load{uri.LoadStructured},
	Edit:   []uri.Edit{uri.EditSearchReplace, uri.EditBlock, uri.EditTextFormatting},
	Search: []uri.Search{uri.SearchText},
}

// Config mirrors the notion provider's recognised configuration keys
// (spec §6).
type Config struct {
	WorkspaceID string
	APIKey      string
}

// Accessor implements accessor.ResourceAccessor against the public Notion
// REST API.
type Accessor struct {
	connectionName string
	workspaceID    string
	client         *client
}

// New constructs a Notion Accessor.
func New(connectionName string, cfg Config) (*Accessor, error) {
	c, err := newClient(cfg.APIKey)
	if err != nil {
		return nil, dsalerr.Wrap(dsalerr.IoError, "notion: build client", err)
	}
	return &Accessor{connectionName: connectionName, workspaceID: cfg.WorkspaceID, client: c}, nil
}

func (a *Accessor) HasCapability(c uri.Coarse) bool { return Capabilities.HasCoarse(c) }

type kind string

const (
	kindPage      kind = "page"
	kindDatabase  kind = "database"
	kindWorkspace kind = "workspace"
	kindBlock     kind = "block"
	kindUser      kind = "user"
	kindComment   kind = "comment"
)

func (a *Accessor) resourcePath(u string) (kind, string, error) {
	p, err := uri.Parse(u)
	if err != nil {
		// bare "<kind>/<id>" resource path, not a full URI
		parts := strings.SplitN(u, "/", 2)
		if len(parts) != 2 {
			return "", "", dsalerr.New(dsalerr.InvalidUri, "notion: expected <kind>/<id>")
		}
		return kind(parts[0]), parts[1], nil
	}
	if p.ConnectionName != a.connectionName {
		return "", "", dsalerr.New(dsalerr.UriNotForConnection, "notion: uri does not belong to this connection")
	}
	parts := strings.SplitN(p.ResourcePath, "/", 2)
	if len(parts) != 2 {
		return "", "", dsalerr.New(dsalerr.InvalidUri, "notion: expected <kind>/<id>")
	}
	return kind(parts[0]), parts[1], nil
}

func (a *Accessor) IsResourceWithinDataSource(u string) bool {
	_, _, err := a.resourcePath(u)
	return err == nil
}

func (a *Accessor) ResourceExists(ctx context.Context, u string, opts accessor.ExistsOptions) bool {
	k, id, err := a.resourcePath(u)
	if err != nil {
		return false
	}
	_, status, err := a.client.do(ctx, http.MethodGet, endpointFor(k, id), nil)
	return err == nil && status < 300
}

func (a *Accessor) EnsureResourcePathExists(ctx context.Context, u string) error {
	return dsalerr.New(dsalerr.CapabilityUnsupported, "notion: ensureResourcePathExists has no meaning for remote page ids")
}

func endpointFor(k kind, id string) string {
	switch k {
	case kindPage:
		return "/pages/" + id
	case kindDatabase:
		return "/databases/" + id
	case kindBlock:
		return "/blocks/" + id
	case kindUser:
		return "/users/" + id
	default:
		return ""
	}
}

func (a *Accessor) LoadResource(ctx context.Context, u string, opts accessor.LoadOptions) (accessor.LoadResult, error) {
	k, id, err := a.resourcePath(u)
	if err != nil {
		return accessor.LoadResult{}, err
	}

	switch k {
	case kindPage:
		return a.loadPage(ctx, id)
	case kindDatabase:
		return a.loadDatabase(ctx, id)
	case kindWorkspace:
		return a.loadWorkspace(ctx)
	case kindBlock:
		return a.loadBlock(ctx, id)
	case kindUser:
		return a.loadUser(ctx, id)
	default:
		return accessor.LoadResult{}, dsalerr.New(dsalerr.InvalidUri, "notion: unknown resource kind "+string(k))
	}
}

func (a *Accessor) loadPage(ctx context.Context, id string) (accessor.LoadResult, error) {
	page, status, err := a.client.do(ctx, http.MethodGet, "/pages/"+id, nil)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: get page", err)
	}
	if status == http.StatusNotFound {
		return accessor.LoadResult{}, dsalerr.New(dsalerr.NotFound, "notion: page not found")
	}
	if status >= 400 {
		return accessor.LoadResult{}, dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("notion: get page status %d", status))
	}

	blocks, err := a.fetchAllBlockChildren(ctx, id)
	if err != nil {
		return accessor.LoadResult{}, err
	}
	doc := convert.NotionBlocksToPortableText(blocks)

	md := convert.ToMarkdown(doc)
	return accessor.LoadResult{
		Content:  md,
		Blocks:   &doc,
		Metadata: map[string]any{"title": pageTitle(page), "page": page},
	}, nil
}

func (a *Accessor) loadDatabase(ctx context.Context, id string) (accessor.LoadResult, error) {
	db, status, err := a.client.do(ctx, http.MethodGet, "/databases/"+id, nil)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: get database", err)
	}
	if status == http.StatusNotFound {
		return accessor.LoadResult{}, dsalerr.New(dsalerr.NotFound, "notion: database not found")
	}

	result, _, err := a.client.do(ctx, http.MethodPost, "/databases/"+id+"/query", map[string]any{})
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: query database", err)
	}

	return accessor.LoadResult{
		Content:  fmt.Sprintf("Database with %d pages", len(asSlice(result["results"]))),
		Metadata: map[string]any{"database": db, "results": result["results"]},
	}, nil
}

func (a *Accessor) loadWorkspace(ctx context.Context) (accessor.LoadResult, error) {
	result, _, err := a.client.do(ctx, http.MethodPost, "/search", map[string]any{})
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: workspace search", err)
	}
	var pages, databases []any
	for _, r := range asSlice(result["results"]) {
		m, _ := r.(map[string]any)
		if m["object"] == "database" {
			databases = append(databases, m)
		} else {
			pages = append(pages, m)
		}
	}
	return accessor.LoadResult{
		Content:  fmt.Sprintf("Workspace: %d pages, %d databases", len(pages), len(databases)),
		Metadata: map[string]any{"pages": pages, "databases": databases},
	}, nil
}

func (a *Accessor) loadBlock(ctx context.Context, id string) (accessor.LoadResult, error) {
	block, status, err := a.client.do(ctx, http.MethodGet, "/blocks/"+id, nil)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: get block", err)
	}
	if status == http.StatusNotFound {
		return accessor.LoadResult{}, dsalerr.New(dsalerr.NotFound, "notion: block not found")
	}
	children, err := a.fetchAllBlockChildren(ctx, id)
	if err != nil {
		return accessor.LoadResult{}, err
	}
	return accessor.LoadResult{
		Metadata: map[string]any{"block": block, "childCount": len(children)},
	}, nil
}

func (a *Accessor) loadUser(ctx context.Context, id string) (accessor.LoadResult, error) {
	user, status, err := a.client.do(ctx, http.MethodGet, "/users/"+id, nil)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: get user", err)
	}
	if status == http.StatusNotFound {
		return accessor.LoadResult{}, dsalerr.New(dsalerr.NotFound, "notion: user not found")
	}
	return accessor.LoadResult{Metadata: map[string]any{"user": user}}, nil
}

// fetchAllBlockChildren paginates /blocks/{id}/children and converts each
// raw block into convert.NotionBlock, preserving unrecognized types'
// payload for round-trip fidelity (testable property §8.5).
func (a *Accessor) fetchAllBlockChildren(ctx context.Context, id string) ([]convert.NotionBlock, error) {
	var out []convert.NotionBlock
	cursor := ""
	for {
		path := "/blocks/" + id + "/children?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + cursor
		}
		resp, status, err := a.client.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, dsalerr.Wrap(dsalerr.UpstreamError, "notion: list block children", err)
		}
		if status >= 400 {
			return nil, dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("notion: list block children status %d", status))
		}
		for _, r := range asSlice(resp["results"]) {
			m, _ := r.(map[string]any)
			out = append(out, rawToNotionBlock(m))
		}
		if hasMore, _ := resp["has_more"].(bool); !hasMore {
			break
		}
		cursor, _ = resp["next_cursor"].(string)
		if cursor == "" {
			break
		}
	}
	return out, nil
}

func rawToNotionBlock(m map[string]any) convert.NotionBlock {
	nb := convert.NotionBlock{}
	nb.ID, _ = m["id"].(string)
	nb.Type, _ = m["type"].(string)

	body, _ := m[nb.Type].(map[string]any)
	if body != nil {
		if rtList := asSlice(body["rich_text"]); rtList != nil {
			nb.Texts = extractRichText(rtList)
		}
		nb.Language, _ = body["language"].(string)
	}

	switch nb.Type {
	case "heading_1", "heading_2", "heading_3", "paragraph", "quote", "code", "bulleted_list_item", "numbered_list_item", "divider", "table_of_contents":
		// known types: nothing further to preserve
	default:
		nb.Raw = m
	}

	return nb
}

func extractRichText(items []any) []convert.NotionRichText {
	var out []convert.NotionRichText
	for _, it := range items {
		m, _ := it.(map[string]any)
		if m == nil {
			continue
		}
		text := ""
		if t, ok := m["plain_text"].(string); ok {
			text = t
		}
		ann, _ := m["annotations"].(map[string]any)
		rt := convert.NotionRichText{Content: text}
		if ann != nil {
			rt.Bold, _ = ann["bold"].(bool)
			rt.Italic, _ = ann["italic"].(bool)
			rt.Strike, _ = ann["strikethrough"].(bool)
			rt.Code, _ = ann["code"].(bool)
		}
		if href, ok := m["href"].(string); ok {
			rt.LinkURL = href
		}
		out = append(out, rt)
	}
	return out
}

func pageTitle(page map[string]any) string {
	props, _ := page["properties"].(map[string]any)
	for _, v := range props {
		pm, _ := v.(map[string]any)
		if pm == nil || pm["type"] != "title" {
			continue
		}
		titles := asSlice(pm["title"])
		var b strings.Builder
		for _, t := range titles {
			tm, _ := t.(map[string]any)
			if s, ok := tm["plain_text"].(string); ok {
				b.WriteString(s)
			}
		}
		return b.String()
	}
	return ""
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func (a *Accessor) ListResources(ctx context.Context, opts accessor.ListOptions) (accessor.ListResult, error) {
	body := map[string]any{}
	if opts.PageSize > 0 {
		body["page_size"] = opts.PageSize
	}
	if opts.PageToken != "" {
		body["start_cursor"] = opts.PageToken
	}
	resp, _, err := a.client.do(ctx, http.MethodPost, "/search", body)
	if err != nil {
		return accessor.ListResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: list via search", err)
	}

	var out []accessor.ResourceInfo
	for _, r := range asSlice(resp["results"]) {
		m, _ := r.(map[string]any)
		id, _ := m["id"].(string)
		object, _ := m["object"].(string)
		out = append(out, accessor.ResourceInfo{
			URI:  uri.ForResource(uri.BB, string(uri.ProviderNotion), a.connectionName, object+"/"+id),
			Name: pageTitle(m),
		})
	}

	pag := &accessor.Pagination{}
	if hasMore, _ := resp["has_more"].(bool); hasMore {
		pag.NextPageToken, _ = resp["next_cursor"].(string)
		pag.HasMore = true
	}

	return accessor.ListResult{Resources: out, Pagination: pag}, nil
}

func (a *Accessor) SearchResources(ctx context.Context, query string, opts accessor.SearchOptions) (accessor.SearchResult, error) {
	body := map[string]any{"query": query}
	resp, _, err := a.client.do(ctx, http.MethodPost, "/search", body)
	if err != nil {
		return accessor.SearchResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: search", err)
	}

	var re *regexp.Regexp
	if opts.ContentPattern != "" {
		re, err = regexp.Compile(opts.ContentPattern)
		if err != nil {
			return accessor.SearchResult{}, dsalerr.Wrap(dsalerr.InvalidQuery, "notion: compile content pattern", err)
		}
	}

	var matches []accessor.SearchMatch
	var errMsg strings.Builder
	for _, r := range asSlice(resp["results"]) {
		m, _ := r.(map[string]any)
		id, _ := m["id"].(string)
		object, _ := m["object"].(string)

		if !dateMatches(m, opts) {
			continue
		}

		if re != nil {
			// loading each candidate page to apply a content regex
			// multiplies API calls; used sparingly per spec §4.4.
			res, err := a.loadPage(ctx, id)
			if err != nil {
				fmt.Fprintf(&errMsg, "skip %s: %v; ", id, err)
				continue
			}
			if !re.MatchString(res.Content) {
				continue
			}
		}

		matches = append(matches, accessor.SearchMatch{
			URI: uri.ForResource(uri.BB, string(uri.ProviderNotion), a.connectionName, object+"/"+id),
		})
	}

	return accessor.SearchResult{Matches: matches, TotalMatches: len(matches), ErrorMessage: errMsg.String()}, nil
}

func dateMatches(m map[string]any, opts accessor.SearchOptions) bool {
	if opts.DateAfter == nil && opts.DateBefore == nil {
		return true
	}
	ts, _ := m["last_edited_time"].(string)
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return true
	}
	if opts.DateAfter != nil && t.Before(*opts.DateAfter) {
		return false
	}
	if opts.DateBefore != nil && t.After(*opts.DateBefore) {
		return false
	}
	return true
}

// WriteResource always fails with CapabilityUnsupported: coarse write is
// not advertised. Page content is changed through EditResource.
func (a *Accessor) WriteResource(ctx context.Context, u string, content []byte, opts accessor.WriteOptions) (accessor.WriteResult, error) {
	return accessor.WriteResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "notion: coarse write is not advertised, use editResource")
}

// EditResource loads the page, converts to Portable Text, applies ops,
// converts back, and replaces page content (spec §4.4).
func (a *Accessor) EditResource(ctx context.Context, path string, ops []ptext.Operation, opts accessor.EditOptions) (accessor.EditResult, error) {
	k, id, err := a.resourcePath(path)
	if err != nil {
		return accessor.EditResult{}, err
	}
	if k != kindPage {
		return accessor.EditResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "notion: editResource is only supported for pages")
	}

	blocks, err := a.fetchAllBlockChildren(ctx, id)
	if err != nil {
		return accessor.EditResult{}, err
	}
	doc := convert.NotionBlocksToPortableText(blocks)

	newDoc, results := ptext.Apply(doc, ops)
	newBlocks := convert.PortableTextToNotionBlocks(newDoc)

	if err := a.replaceAllBlocks(ctx, id, blocks, newBlocks); err != nil {
		return accessor.EditResult{}, err
	}

	return accessor.EditResult{OperationResults: results}, nil
}

// replaceAllBlocks buffers the new append payload before issuing deletes,
// per spec §5: "Implementations must document this and, where possible,
// buffer the appends before issuing deletes."
func (a *Accessor) replaceAllBlocks(ctx context.Context, pageID string, existing, next []convert.NotionBlock) error {
	payload := notionBlocksToAppendPayload(next)

	for _, b := range existing {
		if _, status, err := a.client.do(ctx, http.MethodDelete, "/blocks/"+b.ID, nil); err != nil {
			return dsalerr.Wrap(dsalerr.UpstreamError, "notion: delete block", err)
		} else if status >= 400 && status != http.StatusNotFound {
			return dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("notion: delete block status %d", status))
		}
	}

	if _, status, err := a.client.do(ctx, http.MethodPatch, "/blocks/"+pageID+"/children", payload); err != nil {
		return dsalerr.Wrap(dsalerr.UpstreamError, "notion: append blocks", err)
	} else if status >= 400 {
		return dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("notion: append blocks status %d", status))
	}
	return nil
}

func notionBlocksToAppendPayload(blocks []convert.NotionBlock) map[string]any {
	children := make([]any, 0, len(blocks))
	for _, b := range blocks {
		if b.Raw != nil {
			children = append(children, b.Raw)
			continue
		}
		body := map[string]any{"rich_text": richTextPayload(b.Texts)}
		if b.Type == "code" {
			body["language"] = b.Language
		}
		children = append(children, map[string]any{
			"object": "block",
			"type":   b.Type,
			b.Type:   body,
		})
	}
	return map[string]any{"children": children}
}

func richTextPayload(texts []convert.NotionRichText) []any {
	out := make([]any, 0, len(texts))
	for _, rt := range texts {
		out = append(out, map[string]any{
			"type": "text",
			"text": map[string]any{"content": rt.Content},
			"annotations": map[string]any{
				"bold":          rt.Bold,
				"italic":        rt.Italic,
				"strikethrough": rt.Strike,
				"code":          rt.Code,
			},
		})
	}
	return out
}

func (a *Accessor) MoveResource(ctx context.Context, src, dst string, opts accessor.WriteOptions) (accessor.MoveResult, error) {
	return accessor.MoveResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "notion: move is not advertised")
}

func (a *Accessor) DeleteResource(ctx context.Context, u string, opts accessor.DeleteOptions) (accessor.DeleteResult, error) {
	k, id, err := a.resourcePath(u)
	if err != nil {
		return accessor.DeleteResult{}, err
	}
	if k != kindPage && k != kindBlock {
		return accessor.DeleteResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "notion: delete is only supported for pages and blocks")
	}
	if _, status, err := a.client.do(ctx, http.MethodDelete, endpointFor(k, id), nil); err != nil {
		return accessor.DeleteResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "notion: delete", err)
	} else if status == http.StatusNotFound {
		return accessor.DeleteResult{}, dsalerr.New(dsalerr.NotFound, "notion: resource not found")
	} else if status >= 400 {
		return accessor.DeleteResult{}, dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("notion: delete status %d", status))
	}
	return accessor.DeleteResult{Success: true, URI: u, Type: string(k)}, nil
}

func (a *Accessor) GetMetadata(ctx context.Context) accessor.DataSourceMetadata {
	return accessor.DataSourceMetadata{Extra: map[string]any{"workspaceId": a.workspaceID}}
}
