// Package server exposes the member dataset over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nzambello/plone-map/internal/model"
	"github.com/nzambello/plone-map/internal/query"
)

// Options configures the HTTP read layer.
type Options struct {
	ProfilePrefix string
	CORSOrigins   []string
	Icon          query.MarkerIcon
	Cluster       bool
	ShowTooltip   bool
	ShowPopup     bool
}

// Server serves one immutable dataset. The members slice is never modified
// after New returns, so handlers share it without locking.
type Server struct {
	members []model.Member
	opts    Options
	index   *query.Index
}

// New creates a Server over members.
func New(members []model.Member, opts Options) *Server {
	if members == nil {
		members = []model.Member{}
	}
	return &Server{
		members: members,
		opts:    opts,
		index:   query.NewIndex(query.Markers(members, opts.ProfilePrefix)),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/members", s.handleMembers)
		r.Get("/markers", s.handleMarkers)
		r.Get("/markers.geojson", s.handleMarkersGeoJSON)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"members": len(s.members),
		"markers": s.index.Len(),
	})
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	p := query.ParamsFromValues(r.URL.Query())
	writeJSON(w, http.StatusOK, query.Run(s.members, p))
}

// MarkersResponse is the payload of the map view.
type MarkersResponse struct {
	Markers     []query.Marker   `json:"markers"`
	Bounds      *query.BBox      `json:"bounds"`
	Icon        query.MarkerIcon `json:"icon"`
	Cluster     bool             `json:"cluster"`
	ShowTooltip bool             `json:"showTooltip"`
	ShowPopup   bool             `json:"showPopup"`
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	markers, ok := s.markersFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MarkersResponse{
		Markers:     markers,
		Bounds:      query.Bounds(markers),
		Icon:        s.opts.Icon,
		Cluster:     s.opts.Cluster,
		ShowTooltip: s.opts.ShowTooltip,
		ShowPopup:   s.opts.ShowPopup,
	})
}

func (s *Server) handleMarkersGeoJSON(w http.ResponseWriter, r *http.Request) {
	markers, ok := s.markersFor(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(query.FeatureCollection(markers)); err != nil {
		zap.L().Warn("server: encode geojson", zap.Error(err))
	}
}

// markersFor applies the member filters and the optional bbox viewport. It
// writes a 400 and returns false when the bbox is malformed.
func (s *Server) markersFor(w http.ResponseWriter, r *http.Request) ([]query.Marker, bool) {
	values := r.URL.Query()
	p := query.ParamsFromValues(values)
	markers := query.Markers(query.Filter(s.members, p), s.opts.ProfilePrefix)

	raw := values.Get("bbox")
	if raw == "" {
		return markers, true
	}
	box, err := query.ParseBBox(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}
	inBox, err := s.index.Within(box)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return nil, false
	}

	visible := make(map[string]struct{}, len(inBox))
	for _, m := range inBox {
		visible[m.ID] = struct{}{}
	}
	out := make([]query.Marker, 0, len(markers))
	for _, m := range markers {
		if _, ok := visible[m.ID]; ok && box.Contains(m.Latitude, m.Longitude) {
			out = append(out, m)
		}
	}
	return out, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
