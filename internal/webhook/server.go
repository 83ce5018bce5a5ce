// internal/webhook/server.go
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/City-of-Helsinki/helfi-gredi-dam/pkg/gredi"
)

// RefreshHandler refreshes one asset's local state.
type RefreshHandler func(ctx context.Context, assetID string) error

// Server is a lightweight HTTP surface for the daemon: health, manual
// refresh triggers, and a search proxy for host-side tooling.
type Server struct {
	client  *gredi.Client
	refresh RefreshHandler
	mux     *http.ServeMux
}

// NewServer creates a webhook Server. refresh is invoked for POST
// /refresh/{assetID}.
func NewServer(client *gredi.Client, refresh RefreshHandler) *Server {
	s := &Server{
		client:  client,
		refresh: refresh,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /refresh/", s.handleRefresh)
	s.mux.HandleFunc("GET /api/assets", s.handleSearch)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	assetID := strings.TrimPrefix(r.URL.Path, "/refresh/")
	if assetID == "" || strings.Contains(assetID, "/") {
		http.Error(w, `{"error":"asset id required"}`, http.StatusBadRequest)
		return
	}

	if err := s.refresh(r.Context(), assetID); err != nil {
		slog.Error("refresh failed", "asset_id", assetID, "error", err)
		http.Error(w, `{"error":"refresh failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "asset_id": assetID})
}

// assetResponse is the JSON shape of one search result.
type assetResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Width    string `json:"width,omitempty"`
	Height   string `json:"height,omitempty"`
	Modified string `json:"modified,omitempty"`
	Preview  string `json:"preview,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	opts := gredi.SearchOptions{
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort"),
		SortOrder: r.URL.Query().Get("order"),
	}
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if q := r.URL.Query().Get("offset"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			opts.Offset = n
		}
	}

	assets, err := s.client.SearchAssets(r.Context(), opts)
	if err != nil {
		slog.Error("search failed", "error", err)
		http.Error(w, `{"error":"search failed"}`, http.StatusBadGateway)
		return
	}

	result := make([]assetResponse, 0, len(assets))
	for _, asset := range assets {
		result = append(result, assetResponse{
			ID:       asset.ID,
			Name:     asset.Name,
			MimeType: asset.MimeType,
			Width:    asset.Width,
			Height:   asset.Height,
			Modified: asset.Metadata("modified"),
			Preview:  asset.PreviewLink,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
