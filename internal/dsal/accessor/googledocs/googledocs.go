// Package googledocs implements the Google Docs accessor (spec §4.4
// "Google Docs accessor"): document/folder/search/drive resource paths,
// OAuth2-guarded Docs and Drive API access, and edits emitted as a Docs
// batchUpdate script.
package googledocs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/convert"
	"github.com/rakunlabs/at/internal/dsalerr"
	"github.com/rakunlabs/at/internal/dsal/ptext"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// Capabilities advertised by every Google Docs connection (spec §4.4).
var Capabilities = uri.Capabilities{
	Coarse: []uri.Coarse{uri.CoarseBlockRead, uri.CoarseBlockEdit, uri.CoarseList, uri.CoarseSearch, uri.CoarseDelete},
	Load:   []uri.Load{uri.LoadStructured},
	Edit:   []uri.Edit{uri.EditSearchReplace, uri.EditBlock, uri.EditTextFormatting, uri.EditParagraphFormat},
	Search: []uri.Search{uri.SearchText},
}

// Config mirrors the googledocs provider's recognised configuration keys
// (spec §6).
type Config struct {
	FolderID           string
	DriveID            string
	RefreshExchangeURI string
	ClientID           string
	ClientSecret       string
}

// Accessor implements accessor.ResourceAccessor against the public Docs
// API v1 and Drive API v3.
type Accessor struct {
	connectionName string
	folderID       string
	driveID        string
	client         *client
	coord          *auth.Coordinator
}

// New constructs a Google Docs Accessor. initial is the connection's
// current oauth2 Auth record; connID identifies it to the Coordinator's
// single-flight group; onUpdate persists refreshed tokens (spec §4.8
// step 2: "callback's contract is to persist tokens to the owning
// Project's stored connection").
func New(connectionName, connID string, cfg Config, initial auth.Auth, onUpdate auth.TokenUpdateCallback) (*Accessor, error) {
	exchanger, err := newTokenExchanger(cfg.RefreshExchangeURI, cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return nil, dsalerr.Wrap(dsalerr.IoError, "googledocs: build token exchanger", err)
	}
	coord := auth.NewCoordinator(initial, connID, exchanger, onUpdate)

	c, err := newClient(coord)
	if err != nil {
		return nil, dsalerr.Wrap(dsalerr.IoError, "googledocs: build client", err)
	}

	return &Accessor{
		connectionName: connectionName,
		folderID:       cfg.FolderID,
		driveID:        cfg.DriveID,
		client:         c,
		coord:          coord,
	}, nil
}

func (a *Accessor) HasCapability(c uri.Coarse) bool { return Capabilities.HasCoarse(c) }

type kind string

const (
	kindDocument kind = "document"
	kindFolder   kind = "folder"
	kindSearch   kind = "search"
	kindDrive    kind = "drive"
)

func (a *Accessor) resourcePath(u string) (kind, string, error) {
	var raw string
	if p, err := uri.Parse(u); err == nil {
		if p.ConnectionName != a.connectionName {
			return "", "", dsalerr.New(dsalerr.UriNotForConnection, "googledocs: uri does not belong to this connection")
		}
		raw = p.ResourcePath
	} else {
		raw = u
	}

	parts := strings.SplitN(raw, "/", 2)
	k := kind(parts[0])
	id := ""
	if len(parts) == 2 {
		id = parts[1]
	}
	switch k {
	case kindDocument, kindFolder, kindSearch, kindDrive:
		return k, id, nil
	default:
		return "", "", dsalerr.New(dsalerr.InvalidUri, "googledocs: unknown resource kind "+string(k))
	}
}

func (a *Accessor) IsResourceWithinDataSource(u string) bool {
	_, _, err := a.resourcePath(u)
	return err == nil
}

func (a *Accessor) ResourceExists(ctx context.Context, u string, opts accessor.ExistsOptions) bool {
	k, id, err := a.resourcePath(u)
	if err != nil || k != kindDocument {
		return false
	}
	_, status, err := a.client.doWithAuth(ctx, a.client.drive, http.MethodGet, "/files/"+id, nil)
	return err == nil && status < 300
}

func (a *Accessor) EnsureResourcePathExists(ctx context.Context, u string) error {
	return dsalerr.New(dsalerr.CapabilityUnsupported, "googledocs: ensureResourcePathExists has no meaning for remote document ids")
}

func (a *Accessor) LoadResource(ctx context.Context, u string, opts accessor.LoadOptions) (accessor.LoadResult, error) {
	k, id, err := a.resourcePath(u)
	if err != nil {
		return accessor.LoadResult{}, err
	}
	switch k {
	case kindDocument:
		return a.loadDocument(ctx, id)
	case kindFolder:
		return a.loadFolder(ctx, id)
	case kindDrive:
		return a.loadDriveOverview(ctx)
	default:
		return accessor.LoadResult{}, dsalerr.New(dsalerr.InvalidUri, "googledocs: load is not supported for kind "+string(k))
	}
}

func (a *Accessor) loadDocument(ctx context.Context, id string) (accessor.LoadResult, error) {
	doc, status, err := a.client.doWithAuth(ctx, a.client.docs, http.MethodGet, "/documents/"+id, nil)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: get document", err)
	}
	if status == http.StatusNotFound {
		return accessor.LoadResult{}, dsalerr.New(dsalerr.NotFound, "googledocs: document not found")
	}
	if status >= 400 {
		return accessor.LoadResult{}, dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("googledocs: get document status %d", status))
	}

	paragraphs := extractParagraphs(doc)
	ptdoc := convert.DocumentToPortableText(paragraphs)
	md := convert.ToMarkdown(ptdoc)

	meta, _, _ := a.client.doWithAuth(ctx, a.client.drive, http.MethodGet, "/files/"+id+"?fields=name,modifiedTime,size", nil)

	return accessor.LoadResult{
		Content:  md,
		Blocks:   &ptdoc,
		Metadata: map[string]any{"title": doc["title"], "drive": meta},
	}, nil
}

func extractParagraphs(doc map[string]any) []convert.DocParagraph {
	body, _ := doc["body"].(map[string]any)
	if body == nil {
		return nil
	}
	elements, _ := body["content"].([]any)
	var out []convert.DocParagraph
	for _, el := range elements {
		m, _ := el.(map[string]any)
		para, _ := m["paragraph"].(map[string]any)
		if para == nil {
			continue
		}
		style, _ := para["paragraphStyle"].(map[string]any)
		named, _ := style["namedStyleType"].(string)

		dp := convert.DocParagraph{NamedStyleType: named}
		elems, _ := para["elements"].([]any)
		for _, e := range elems {
			em, _ := e.(map[string]any)
			tr, _ := em["textRun"].(map[string]any)
			if tr == nil {
				continue
			}
			content, _ := tr["content"].(string)
			ts, _ := tr["textStyle"].(map[string]any)
			run := convert.DocTextRun{Content: content}
			if ts != nil {
				run.Bold, _ = ts["bold"].(bool)
				run.Italic, _ = ts["italic"].(bool)
				run.Underline, _ = ts["underline"].(bool)
				run.Strike, _ = ts["strikethrough"].(bool)
			}
			dp.Runs = append(dp.Runs, run)
		}
		out = append(out, dp)
	}
	return out
}

func (a *Accessor) loadFolder(ctx context.Context, id string) (accessor.LoadResult, error) {
	q := url.QueryEscape(fmt.Sprintf("mimeType='application/vnd.google-apps.document' and '%s' in parents and trashed=false", id))
	resp, _, err := a.client.doWithAuth(ctx, a.client.drive, http.MethodGet, "/files?q="+q, nil)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: list folder", err)
	}
	files, _ := resp["files"].([]any)
	return accessor.LoadResult{
		Content:  fmt.Sprintf("Folder with %d documents", len(files)),
		Metadata: map[string]any{"files": files},
	}, nil
}

func (a *Accessor) loadDriveOverview(ctx context.Context) (accessor.LoadResult, error) {
	resp, _, err := a.client.doWithAuth(ctx, a.client.drive, http.MethodGet, "/about?fields=user,storageQuota", nil)
	if err != nil {
		return accessor.LoadResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: drive about", err)
	}
	return accessor.LoadResult{Metadata: resp}, nil
}

func (a *Accessor) ListResources(ctx context.Context, opts accessor.ListOptions) (accessor.ListResult, error) {
	q := "mimeType='application/vnd.google-apps.document' and trashed=false"
	if a.folderID != "" {
		q = fmt.Sprintf("%s and '%s' in parents", q, a.folderID)
	}
	path := "/files?q=" + url.QueryEscape(q)
	if opts.PageSize > 0 {
		path += fmt.Sprintf("&pageSize=%d", opts.PageSize)
	}
	if opts.PageToken != "" {
		path += "&pageToken=" + url.QueryEscape(opts.PageToken)
	}

	resp, _, err := a.client.doWithAuth(ctx, a.client.drive, http.MethodGet, path, nil)
	if err != nil {
		return accessor.ListResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: list files", err)
	}

	var out []accessor.ResourceInfo
	for _, f := range asSlice(resp["files"]) {
		m, _ := f.(map[string]any)
		id, _ := m["id"].(string)
		name, _ := m["name"].(string)
		out = append(out, accessor.ResourceInfo{
			URI:  uri.ForResource(uri.BB, string(uri.ProviderGoogleDocs), a.connectionName, "document/"+id),
			Name: name,
		})
	}

	pag := &accessor.Pagination{}
	if token, ok := resp["nextPageToken"].(string); ok && token != "" {
		pag.NextPageToken = token
		pag.HasMore = true
	}

	return accessor.ListResult{Resources: out, Pagination: pag}, nil
}

func (a *Accessor) SearchResources(ctx context.Context, query string, opts accessor.SearchOptions) (accessor.SearchResult, error) {
	q := fmt.Sprintf("mimeType='application/vnd.google-apps.document' and trashed=false and fullText contains '%s'", escapeDriveQuery(query))
	if opts.DateAfter != nil {
		q += fmt.Sprintf(" and modifiedTime > '%s'", opts.DateAfter.Format(time.RFC3339))
	}
	if opts.DateBefore != nil {
		q += fmt.Sprintf(" and modifiedTime < '%s'", opts.DateBefore.Format(time.RFC3339))
	}

	resp, _, err := a.client.doWithAuth(ctx, a.client.drive, http.MethodGet, "/files?q="+url.QueryEscape(q), nil)
	if err != nil {
		return accessor.SearchResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: search", err)
	}

	var matches []accessor.SearchMatch
	for _, f := range asSlice(resp["files"]) {
		m, _ := f.(map[string]any)
		id, _ := m["id"].(string)
		matches = append(matches, accessor.SearchMatch{
			URI: uri.ForResource(uri.BB, string(uri.ProviderGoogleDocs), a.connectionName, "document/"+id),
		})
	}

	return accessor.SearchResult{Matches: matches, TotalMatches: len(matches)}, nil
}

func escapeDriveQuery(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// WriteResource replaces the document body with a delete-then-insert
// batch update (spec §4.4: "delete the current body range [1,
// endIndex-1), insert the new text at index 1").
func (a *Accessor) WriteResource(ctx context.Context, u string, content []byte, opts accessor.WriteOptions) (accessor.WriteResult, error) {
	k, id, err := a.resourcePath(u)
	if err != nil {
		return accessor.WriteResult{}, err
	}
	if k != kindDocument {
		return accessor.WriteResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "googledocs: write is only supported for documents")
	}

	endIndex, err := a.bodyEndIndex(ctx, id)
	if err != nil {
		return accessor.WriteResult{}, err
	}

	requests := []map[string]any{}
	if endIndex > 1 {
		requests = append(requests, map[string]any{
			"deleteContentRange": map[string]any{"range": map[string]any{"startIndex": 1, "endIndex": endIndex - 1}},
		})
	}
	requests = append(requests, map[string]any{
		"insertText": map[string]any{"location": map[string]any{"index": 1}, "text": string(content)},
	})

	if _, status, err := a.client.doWithAuth(ctx, a.client.docs, http.MethodPost, "/documents/"+id+":batchUpdate", map[string]any{"requests": requests}); err != nil {
		return accessor.WriteResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: batch update", err)
	} else if status >= 400 {
		return accessor.WriteResult{}, dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("googledocs: batch update status %d", status))
	}

	return accessor.WriteResult{Success: true, URI: u, BytesWritten: int64(len(content))}, nil
}

func (a *Accessor) bodyEndIndex(ctx context.Context, id string) (int, error) {
	doc, _, err := a.client.doWithAuth(ctx, a.client.docs, http.MethodGet, "/documents/"+id, nil)
	if err != nil {
		return 0, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: get document for end index", err)
	}
	body, _ := doc["body"].(map[string]any)
	elements, _ := body["content"].([]any)
	if len(elements) == 0 {
		return 1, nil
	}
	last, _ := elements[len(elements)-1].(map[string]any)
	if endIndex, ok := last["endIndex"].(float64); ok {
		return int(endIndex), nil
	}
	return 1, nil
}

// EditResource routes through Portable Text and the operation algebra,
// emitting a batch update script (spec §4.4).
func (a *Accessor) EditResource(ctx context.Context, path string, ops []ptext.Operation, opts accessor.EditOptions) (accessor.EditResult, error) {
	k, id, err := a.resourcePath(path)
	if err != nil {
		return accessor.EditResult{}, err
	}
	if k != kindDocument {
		return accessor.EditResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "googledocs: editResource is only supported for documents")
	}

	doc, status, err := a.client.doWithAuth(ctx, a.client.docs, http.MethodGet, "/documents/"+id, nil)
	if err != nil {
		return accessor.EditResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: get document", err)
	}
	if status >= 400 {
		return accessor.EditResult{}, dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("googledocs: get document status %d", status))
	}

	paragraphs := extractParagraphs(doc)
	ptdoc := convert.DocumentToPortableText(paragraphs)

	endIndex, err := a.bodyEndIndex(ctx, id)
	if err != nil {
		return accessor.EditResult{}, err
	}

	newDoc, results := ptext.Apply(ptdoc, ops)
	batch := convert.PortableTextToBatchUpdate(newDoc, endIndex)

	requests := make([]any, 0, len(batch))
	for _, r := range batch {
		requests = append(requests, r)
	}

	if _, status, err := a.client.doWithAuth(ctx, a.client.docs, http.MethodPost, "/documents/"+id+":batchUpdate", map[string]any{"requests": requests}); err != nil {
		return accessor.EditResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: batch update", err)
	} else if status >= 400 {
		return accessor.EditResult{}, dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("googledocs: batch update status %d", status))
	}

	return accessor.EditResult{OperationResults: results}, nil
}

func (a *Accessor) MoveResource(ctx context.Context, src, dst string, opts accessor.WriteOptions) (accessor.MoveResult, error) {
	return accessor.MoveResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "googledocs: move is not advertised")
}

func (a *Accessor) DeleteResource(ctx context.Context, u string, opts accessor.DeleteOptions) (accessor.DeleteResult, error) {
	k, id, err := a.resourcePath(u)
	if err != nil {
		return accessor.DeleteResult{}, err
	}
	if k != kindDocument {
		return accessor.DeleteResult{}, dsalerr.New(dsalerr.CapabilityUnsupported, "googledocs: delete is only supported for documents")
	}
	if _, status, err := a.client.doWithAuth(ctx, a.client.drive, http.MethodDelete, "/files/"+id, nil); err != nil {
		return accessor.DeleteResult{}, dsalerr.Wrap(dsalerr.UpstreamError, "googledocs: delete", err)
	} else if status == http.StatusNotFound {
		return accessor.DeleteResult{}, dsalerr.New(dsalerr.NotFound, "googledocs: document not found")
	} else if status >= 400 {
		return accessor.DeleteResult{}, dsalerr.New(dsalerr.UpstreamError, fmt.Sprintf("googledocs: delete status %d", status))
	}
	return accessor.DeleteResult{Success: true, URI: u, Type: "document"}, nil
}

func (a *Accessor) GetMetadata(ctx context.Context) accessor.DataSourceMetadata {
	return accessor.DataSourceMetadata{Extra: map[string]any{"folderId": a.folderID, "driveId": a.driveID}}
}
