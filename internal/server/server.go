package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mapdesk/internal/controller"
	"mapdesk/internal/geocode"
	"mapdesk/internal/layers"
)

//go:embed web/index.html
var document []byte

// Options configure the document server
type Options struct {
	// Addr is the listen address; port 0 picks a free one
	Addr string

	// AllowAllOrigins accepts cross-origin API and websocket calls
	AllowAllOrigins bool

	// Tiles, when set, is mounted at TilesPrefix
	Tiles http.Handler
}

// TilesPrefix is where the tile proxy is mounted
const TilesPrefix = "/tiles"

// Server serves the map document and bridges it to the controller
type Server struct {
	ctrl     *controller.Controller
	opts     Options
	log      *zap.Logger
	router   chi.Router
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
}

// New creates a document server for ctrl
func New(ctrl *controller.Controller, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		ctrl: ctrl,
		opts: opts,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
		},
	}
	if opts.AllowAllOrigins {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates the chi router with all routes
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.log))
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
	if s.opts.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/", s.handleDocument)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebsocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/cities", s.handleCities)
		r.Post("/search", s.handleSearch)
		r.Post("/world", s.handleWorld)
		r.Post("/layers", s.handleLayers)
	})

	if s.opts.Tiles != nil {
		r.Mount(TilesPrefix, s.opts.Tiles)
	}

	return r
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address and serves in the background.
// It returns the base URL of the document.
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", s.opts.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("document server stopped", zap.Error(err))
		}
	}()

	url := "http://" + ln.Addr().String() + "/"
	s.log.Info("document server listening", zap.String("url", url))
	return url, nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(document)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	data, err := layers.CitiesGeoJSON().MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Write(data)
}

// SearchRequest is the body of POST /api/search
type SearchRequest struct {
	Query string `json:"query"`
}

// PlaceResponse describes an applied search result
type PlaceResponse struct {
	Lat         float64               `json:"lat"`
	Lon         float64               `json:"lon"`
	DisplayName string                `json:"displayName"`
	BoundingBox *controller.Bounds    `json:"boundingBox,omitempty"`
	View        *controller.ViewState `json:"view"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	place, err := s.ctrl.Search(r.Context(), req.Query)
	switch {
	case errors.Is(err, controller.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
		return
	case errors.Is(err, controller.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case place == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, placeResponse(place, s.ctrl.Snapshot().View))
}

func placeResponse(p *geocode.Place, view *controller.ViewState) *PlaceResponse {
	resp := &PlaceResponse{
		Lat:         p.Lat(),
		Lon:         p.Lon(),
		DisplayName: p.DisplayName,
		View:        view,
	}
	if p.BoundingBox != nil {
		b := p.BoundingBox
		resp.BoundingBox = &controller.Bounds{South: b.Min.Lat(), North: b.Max.Lat(), West: b.Min.Lon(), East: b.Max.Lon()}
	}
	return resp
}

func (s *Server) handleWorld(w http.ResponseWriter, r *http.Request) {
	s.ctrl.ResetWorld()
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot().View)
}

// LayerRequest is the body of POST /api/layers
type LayerRequest struct {
	Layer   string `json:"layer"`
	Visible bool   `json:"visible"`
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	var req LayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ctrl.SetOverlayVisible(req.Layer, req.Visible); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot().Layers)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(msg)})
}

// accessLog writes one zap line per request
func accessLog(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			log.Debug("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(started)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
