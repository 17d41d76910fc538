package adminapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsal/connection"
	"github.com/rakunlabs/at/internal/dsal/ptext"
	"github.com/rakunlabs/at/internal/dsalerr"
)

// resolveConnection loads the connection named by the "connectionId" query
// parameter and resolves its accessor, writing an error response itself on
// failure so callers can just return.
func (s *Server) resolveConnection(w http.ResponseWriter, r *http.Request) (*connection.Connection, accessor.ResourceAccessor, bool) {
	id := r.URL.Query().Get("connectionId")
	if id == "" {
		httpResponse(w, "connectionId query parameter is required", http.StatusBadRequest)
		return nil, nil, false
	}

	rec, err := s.store.GetRecord(r.Context(), id)
	if err != nil {
		httpResponseErr(w, err)
		return nil, nil, false
	}

	conn, err := s.registry.FromRecord(*rec, s.factory)
	if err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return nil, nil, false
	}

	acc, err := conn.GetResourceAccessor()
	if err != nil {
		httpResponseErr(w, err)
		return nil, nil, false
	}

	return conn, acc, true
}

// LoadResourceAPI handles GET /api/v1/dsal/resources/load.
func (s *Server) LoadResourceAPI(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := s.resolveConnection(w, r)
	if !ok {
		return
	}

	u := r.URL.Query().Get("uri")
	if u == "" {
		httpResponse(w, "uri query parameter is required", http.StatusBadRequest)
		return
	}

	var opts accessor.LoadOptions
	opts.Encoding = r.URL.Query().Get("encoding")
	if start := r.URL.Query().Get("rangeStart"); start != "" {
		s, err := strconv.ParseInt(start, 10, 64)
		if err != nil {
			httpResponse(w, "invalid rangeStart", http.StatusBadRequest)
			return
		}
		e, _ := strconv.ParseInt(r.URL.Query().Get("rangeEnd"), 10, 64)
		opts.Range = &accessor.ByteRange{Start: s, End: e}
	}

	res, err := acc.LoadResource(r.Context(), u, opts)
	if err != nil {
		httpResponseErr(w, err)
		return
	}
	httpResponseJSON(w, res, http.StatusOK)
}

// ListResourcesAPI handles GET /api/v1/dsal/resources/list.
func (s *Server) ListResourcesAPI(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := s.resolveConnection(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	opts := accessor.ListOptions{
		Path:      q.Get("path"),
		PageToken: q.Get("pageToken"),
	}
	if depth := q.Get("depth"); depth != "" {
		d, err := strconv.Atoi(depth)
		if err != nil {
			httpResponse(w, "invalid depth", http.StatusBadRequest)
			return
		}
		opts.Depth = d
	}
	if pageSize := q.Get("pageSize"); pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil {
			httpResponse(w, "invalid pageSize", http.StatusBadRequest)
			return
		}
		opts.PageSize = n
	}

	res, err := acc.ListResources(r.Context(), opts)
	if err != nil {
		httpResponseErr(w, err)
		return
	}
	httpResponseJSON(w, res, http.StatusOK)
}

// SearchResourcesAPI handles GET /api/v1/dsal/resources/search.
func (s *Server) SearchResourcesAPI(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := s.resolveConnection(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	query := q.Get("query")

	opts := accessor.SearchOptions{
		ContentPattern:  q.Get("contentPattern"),
		ResourcePattern: q.Get("resourcePattern"),
		CaseSensitive:   q.Get("caseSensitive") == "true",
	}
	if pageSize := q.Get("pageSize"); pageSize != "" {
		n, err := strconv.Atoi(pageSize)
		if err != nil {
			httpResponse(w, "invalid pageSize", http.StatusBadRequest)
			return
		}
		opts.PageSize = n
	}
	if contextLines := q.Get("contextLines"); contextLines != "" {
		n, err := strconv.Atoi(contextLines)
		if err != nil {
			httpResponse(w, "invalid contextLines", http.StatusBadRequest)
			return
		}
		opts.ContextLines = n
	}

	res, err := acc.SearchResources(r.Context(), query, opts)
	if err != nil {
		httpResponseErr(w, err)
		return
	}
	httpResponseJSON(w, res, http.StatusOK)
}

type writeRequest struct {
	URI                      string `json:"uri"`
	Content                  string `json:"content"`
	Overwrite                bool   `json:"overwrite"`
	CreateMissingDirectories bool   `json:"createMissingDirectories"`
}

// WriteResourceAPI handles POST /api/v1/dsal/resources/write.
func (s *Server) WriteResourceAPI(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := s.resolveConnection(w, r)
	if !ok {
		return
	}

	var req writeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.URI == "" {
		httpResponse(w, "uri is required", http.StatusBadRequest)
		return
	}

	res, err := acc.WriteResource(r.Context(), req.URI, []byte(req.Content), accessor.WriteOptions{
		Overwrite:                req.Overwrite,
		CreateMissingDirectories: req.CreateMissingDirectories,
	})
	if err != nil {
		httpResponseErr(w, err)
		return
	}
	httpResponseJSON(w, res, http.StatusOK)
}

type editRequest struct {
	Path            string           `json:"path"`
	Operations      []ptext.Operation `json:"operations"`
	CreateIfMissing bool             `json:"createIfMissing"`
}

// EditResourceAPI handles POST /api/v1/dsal/resources/edit.
func (s *Server) EditResourceAPI(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := s.resolveConnection(w, r)
	if !ok {
		return
	}

	var req editRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		httpResponse(w, "path is required", http.StatusBadRequest)
		return
	}

	res, err := acc.EditResource(r.Context(), req.Path, req.Operations, accessor.EditOptions{
		CreateIfMissing: req.CreateIfMissing,
	})
	if err != nil {
		httpResponseErr(w, err)
		return
	}
	httpResponseJSON(w, res, http.StatusOK)
}

type moveRequest struct {
	Src       string `json:"src"`
	Dst       string `json:"dst"`
	Overwrite bool   `json:"overwrite"`
}

// MoveResourceAPI handles POST /api/v1/dsal/resources/move.
func (s *Server) MoveResourceAPI(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := s.resolveConnection(w, r)
	if !ok {
		return
	}

	var req moveRequest
	if err := decodeJSONBody(r, &req); err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Src == "" || req.Dst == "" {
		httpResponse(w, "src and dst are required", http.StatusBadRequest)
		return
	}

	res, err := acc.MoveResource(r.Context(), req.Src, req.Dst, accessor.WriteOptions{Overwrite: req.Overwrite})
	if err != nil {
		httpResponseErr(w, err)
		return
	}
	httpResponseJSON(w, res, http.StatusOK)
}

// DeleteResourceAPI handles DELETE /api/v1/dsal/resources.
func (s *Server) DeleteResourceAPI(w http.ResponseWriter, r *http.Request) {
	_, acc, ok := s.resolveConnection(w, r)
	if !ok {
		return
	}

	u := r.URL.Query().Get("uri")
	if u == "" {
		httpResponse(w, "uri query parameter is required", http.StatusBadRequest)
		return
	}
	recursive := r.URL.Query().Get("recursive") == "true"

	res, err := acc.DeleteResource(r.Context(), u, accessor.DeleteOptions{Recursive: recursive})
	if err != nil {
		httpResponseErr(w, err)
		return
	}
	httpResponseJSON(w, res, http.StatusOK)
}

func decodeJSONBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return dsalerr.New(dsalerr.InvalidQuery, "request body is required")
	}
	return json.Unmarshal(body, v)
}
