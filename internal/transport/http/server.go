package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	sloghttp "github.com/samber/slog-http"

	addomain "github.com/popmarket/popmarket/internal/modules/ad/domain"
	adService "github.com/popmarket/popmarket/internal/modules/ad/service"
	catalogDomain "github.com/popmarket/popmarket/internal/modules/catalog/domain"
	catalogService "github.com/popmarket/popmarket/internal/modules/catalog/service"
	feedService "github.com/popmarket/popmarket/internal/modules/feed/service"
	"github.com/popmarket/popmarket/internal/modules/location"
	"github.com/popmarket/popmarket/internal/shared/config"
	apperrors "github.com/popmarket/popmarket/internal/shared/errors"
)

const maxMultipartMemory = 32 << 20

// Server is the Mini-App REST API plus the RSS feed endpoint
type Server struct {
	cfg     *config.Config
	ads     *adService.Service
	catalog *catalogService.Service
	feed    *feedService.Service
	logger  *slog.Logger
}

// New creates the HTTP server
func New(cfg *config.Config, ads *adService.Service, catalog *catalogService.Service, feed *feedService.Service) *Server {
	return &Server{
		cfg:     cfg,
		ads:     ads,
		catalog: catalog,
		feed:    feed,
		logger:  slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Handler builds the route table wrapped in logging and recovery
// middleware. Exposed separately so tests can drive it via httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ads", s.handleListAds)
	mux.HandleFunc("POST /api/ads", s.handleCreateAd)
	mux.HandleFunc("GET /api/ads/{id}", s.handleGetAd)
	mux.HandleFunc("PATCH /api/ads/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("DELETE /api/ads/{id}", s.handleDeleteAd)
	mux.HandleFunc("GET /api/cities", s.handleCities)
	mux.HandleFunc("GET /rss", s.handleRSS)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := sloghttp.Recovery(mux)
	handler = sloghttp.New(s.logger)(handler)
	return handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.HTTPPort)
	s.logger.Info("HTTP server starting", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

type listResponse struct {
	Ads          []*addomain.Ad             `json:"ads"`
	Empty        catalogDomain.EmptyState   `json:"empty,omitempty"`
	Presentation catalogDomain.Presentation `json:"presentation"`
}

func (s *Server) handleListAds(w http.ResponseWriter, r *http.Request) {
	// Read-after-write clients call this after every mutation; the
	// generation counter in the catalog makes overlapping fetches safe
	if err := s.catalog.Refresh(r.Context()); err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	state := catalogDomain.FilterState{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("category"),
		Type:     r.URL.Query().Get("type"),
		Mode:     catalogDomain.ParseViewMode(r.URL.Query().Get("view")),
	}

	result := s.catalog.Visible(state)
	s.writeJSON(w, http.StatusOK, listResponse{
		Ads:          result.Ads,
		Empty:        result.Empty,
		Presentation: catalogDomain.PresentationFor(state.Mode),
	})
}

func (s *Server) handleGetAd(w http.ResponseWriter, r *http.Request) {
	ad, err := s.ads.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ad)
}

func (s *Server) handleCreateAd(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	payload := addomain.NewAd{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       parsePrice(r.FormValue("price")),
		Category:    addomain.Category(strings.ToLower(r.FormValue("category"))),
		Types:       parseTypes(r.Form["ad_type"]),
		Location:    r.FormValue("location"),
		ContactInfo: r.FormValue("contact_info"),
	}

	raw, err := readImages(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ad, err := s.ads.Create(r.Context(), user, payload, raw)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ad)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err)
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	status, err := addomain.ParseStatus(body.Status)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.ads.UpdateStatus(r.Context(), user, r.PathValue("id"), status); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (s *Server) handleDeleteAd(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err)
		return
	}

	if err := s.ads.Delete(r.Context(), user, r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"cities": location.Cities,
		"other":  location.Other,
	})
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	feed, err := s.feed.GenerateFeed(r.Context(), s.cfg.WebAppURL)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// writeServiceError maps service failures onto HTTP statuses. An
// ownership mismatch is reported with the same shape as any other
// backend rejection.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAdNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, apperrors.ErrNotOwner):
		s.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, apperrors.ErrUnauthorized):
		s.writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, apperrors.ErrCreateInFlight):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, apperrors.ErrInvalidPayload),
		errors.Is(err, apperrors.ErrTooManyImages),
		errors.Is(err, apperrors.ErrImageTooLarge):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		s.writeError(w, http.StatusBadGateway, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func parsePrice(s string) float64 {
	// Invalid input parses to zero and is rejected by payload validation
	price, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
	if err != nil {
		return 0
	}
	return price
}

func parseTypes(values []string) []addomain.AdType {
	var types []addomain.AdType
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				types = append(types, addomain.AdType(part))
			}
		}
	}
	return types
}

func readImages(r *http.Request) ([]adService.RawImage, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	files := r.MultipartForm.File["images"]
	raw := make([]adService.RawImage, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		raw = append(raw, adService.RawImage{Name: header.Filename, Data: data})
	}
	return raw, nil
}
