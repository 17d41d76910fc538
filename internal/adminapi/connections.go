package adminapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rakunlabs/at/internal/dsal/auth"
	"github.com/rakunlabs/at/internal/dsal/connection"
	"github.com/rakunlabs/at/internal/dsal/registry"
	"github.com/rakunlabs/at/internal/dsal/uri"
)

// ─── Provider discovery ───

type providerResponse struct {
	ProviderType   string              `json:"providerType"`
	AccessMethod   string              `json:"accessMethod"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	URITemplate    string              `json:"uriTemplate"`
	AuthMethod     string              `json:"authMethod"`
	Capabilities   uriCapabilitiesView `json:"capabilities"`
	RequiredConfig []configFieldView   `json:"requiredConfig"`
}

type uriCapabilitiesView struct {
	Coarse []string `json:"coarse"`
	Load   []string `json:"load"`
	Edit   []string `json:"edit"`
	Search []string `json:"search"`
}

type configFieldView struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// ListProvidersAPI handles GET /api/v1/dsal/providers.
func (s *Server) ListProvidersAPI(w http.ResponseWriter, r *http.Request) {
	providers := s.registry.ListProviders(nil)
	out := make([]providerResponse, 0, len(providers))
	for _, p := range providers {
		fields := make([]configFieldView, 0, len(p.RequiredConfig))
		for _, f := range p.RequiredConfig {
			fields = append(fields, configFieldView{Name: f.Name, Type: f.Type, Required: f.Required})
		}
		out = append(out, providerResponse{
			ProviderType: string(p.ProviderType),
			AccessMethod: string(p.AccessMethod),
			Name:         p.Name,
			Description:  p.Description,
			URITemplate:  p.URITemplate,
			AuthMethod:   string(p.AuthMethod),
			Capabilities: uriCapabilitiesView{
				Coarse: toStrings(p.Capabilities.Coarse),
				Load:   toStrings(p.Capabilities.Load),
				Edit:   toStrings(p.Capabilities.Edit),
				Search: toStrings(p.Capabilities.Search),
			},
			RequiredConfig: fields,
		})
	}
	httpResponseJSON(w, struct {
		Providers []providerResponse `json:"providers"`
	}{out}, http.StatusOK)
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

// ─── Connection CRUD ───

// connectionRequest is the JSON body for creating/updating a connection.
type connectionRequest struct {
	AccessMethod string         `json:"accessMethod"`
	ProviderType string         `json:"providerType"`
	Name         string         `json:"name"`
	Config       map[string]any `json:"config"`
	Auth         *authRequest   `json:"auth"`
	Enabled      bool           `json:"enabled"`
	IsPrimary    bool           `json:"isPrimary"`
	Priority     int            `json:"priority"`
	ProjectID    string         `json:"projectId"`
}

type authRequest struct {
	Method       string `json:"method"`
	Key          string `json:"key"`
	UsernameRef  string `json:"usernameRef"`
	PasswordRef  string `json:"passwordRef"`
	TokenRef     string `json:"tokenRef"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (a *authRequest) toAuth() auth.Auth {
	if a == nil {
		return auth.Auth{}
	}
	return auth.Auth{
		Method:       uri.AuthMethod(a.Method),
		Key:          a.Key,
		UsernameRef:  a.UsernameRef,
		PasswordRef:  a.PasswordRef,
		TokenRef:     a.TokenRef,
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
	}
}

// ListConnectionsAPI handles GET /api/v1/dsal/connections.
func (s *Server) ListConnectionsAPI(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	records, err := s.store.ListRecords(r.Context(), projectID)
	if err != nil {
		slog.Error("list connections failed", "error", err)
		httpResponse(w, fmt.Sprintf("failed to list connections: %v", err), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []connection.Record{}
	}
	httpResponseJSON(w, struct {
		Connections []connection.Record `json:"connections"`
	}{records}, http.StatusOK)
}

// GetConnectionAPI handles GET /api/v1/dsal/connections/{id}.
func (s *Server) GetConnectionAPI(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpResponse(w, "connection id is required", http.StatusBadRequest)
		return
	}

	rec, err := s.store.GetRecord(r.Context(), id)
	if err != nil {
		httpResponseErr(w, err)
		return
	}
	httpResponseJSON(w, rec, http.StatusOK)
}

// CreateConnectionAPI handles POST /api/v1/dsal/connections.
func (s *Server) CreateConnectionAPI(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpResponse(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	var req connectionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpResponse(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	var authPtr *auth.Auth
	if req.Auth != nil {
		a := req.Auth.toAuth()
		authPtr = &a
	}

	conn, err := s.registry.CreateConnection(
		uri.AccessMethod(req.AccessMethod),
		req.ProviderType,
		req.Name,
		req.Config,
		registry.CreateConnectionOptions{
			Auth:      authPtr,
			Enabled:   req.Enabled,
			IsPrimary: req.IsPrimary,
			Priority:  req.Priority,
			ProjectID: req.ProjectID,
		},
		s.factory,
	)
	if err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := conn.ToJSON()
	if err := s.store.CreateRecord(r.Context(), req.ProjectID, rec); err != nil {
		slog.Error("create connection failed", "error", err)
		httpResponse(w, fmt.Sprintf("failed to persist connection: %v", err), http.StatusInternalServerError)
		return
	}

	httpResponseJSON(w, rec, http.StatusCreated)
}

// UpdateConnectionAPI handles PUT /api/v1/dsal/connections/{id}.
func (s *Server) UpdateConnectionAPI(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpResponse(w, "connection id is required", http.StatusBadRequest)
		return
	}

	existing, err := s.store.GetRecord(r.Context(), id)
	if err != nil {
		httpResponseErr(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpResponse(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	var req connectionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpResponse(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	p, ok := s.registry.GetProvider(existing.ProviderType, uri.AccessMethod(existing.AccessMethod))
	if !ok {
		httpResponse(w, fmt.Sprintf("no provider for %s/%s", existing.AccessMethod, existing.ProviderType), http.StatusBadRequest)
		return
	}
	if !p.ValidateConfig(req.Config) {
		httpResponse(w, fmt.Sprintf("invalid config for provider %s/%s", existing.AccessMethod, existing.ProviderType), http.StatusBadRequest)
		return
	}

	var rec connection.AuthRecord
	if req.Auth != nil {
		a := req.Auth.toAuth()
		if !a.Validate() {
			httpResponse(w, "invalid auth", http.StatusBadRequest)
			return
		}
		if !p.ValidateAuth(a.Method, true) {
			httpResponse(w, fmt.Sprintf("auth method %s does not match provider %s/%s", a.Method, existing.AccessMethod, existing.ProviderType), http.StatusBadRequest)
			return
		}
		rec = connection.AuthRecord{
			Method:       string(a.Method),
			Key:          a.Key,
			UsernameRef:  a.UsernameRef,
			PasswordRef:  a.PasswordRef,
			TokenRef:     a.TokenRef,
			AccessToken:  a.AccessToken,
			RefreshToken: a.RefreshToken,
		}
		existing.Auth = &rec
	}

	existing.Name = req.Name
	existing.Config = req.Config
	existing.Enabled = req.Enabled
	existing.IsPrimary = req.IsPrimary
	existing.Priority = req.Priority

	if err := s.store.UpdateRecord(r.Context(), id, *existing); err != nil {
		httpResponseErr(w, err)
		return
	}

	s.factory.ClearConnectionCache(id)

	httpResponseJSON(w, existing, http.StatusOK)
}

// DeleteConnectionAPI handles DELETE /api/v1/dsal/connections/{id}.
func (s *Server) DeleteConnectionAPI(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpResponse(w, "connection id is required", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteRecord(r.Context(), id); err != nil {
		httpResponseErr(w, err)
		return
	}
	s.factory.ClearConnectionCache(id)

	httpResponse(w, "deleted", http.StatusOK)
}
