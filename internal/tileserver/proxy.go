package tileserver

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mapdesk/pkg/tiles"
)

// Tile is one fetched tile image
type Tile struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// call is an in-flight upstream fetch shared by concurrent requests
type call struct {
	done chan struct{}
	tile *Tile
	err  error
}

// Proxy forwards tile requests to the upstream sources with an identifying
// User-Agent. Nothing is stored: concurrent requests for the same tile
// share one upstream fetch and that is all.
type Proxy struct {
	sources   map[string]tiles.Source
	userAgent string
	client    *http.Client
	log       *zap.Logger

	inFlight   map[string]*call
	inFlightMu sync.Mutex
}

// NewProxy creates a proxy for the named sources
func NewProxy(sources map[string]tiles.Source, userAgent string, log *zap.Logger) *Proxy {
	if log == nil {
		log = zap.NewNop()
	}
	src := make(map[string]tiles.Source, len(sources))
	for k, v := range sources {
		src[k] = v
	}
	return &Proxy{
		sources:   src,
		userAgent: userAgent,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:      log,
		inFlight: make(map[string]*call),
	}
}

// Local rewrites the named source so the document fetches through the
// proxy mounted at prefix.
func (p *Proxy) Local(prefix, name string) tiles.Source {
	s := p.sources[name]
	s.URLTemplate = strings.TrimRight(prefix, "/") + "/" + name + "/{z}/{x}/{y}"
	s.Subdomains = nil
	return s
}

// Routes returns the handler serving /{source}/{z}/{x}/{y}
func (p *Proxy) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/{source}/{z}/{x}/{y}", p.handleTile)
	return r
}

// GetTile fetches one tile from the named source
func (p *Proxy) GetTile(name string, coord tiles.TileCoord) (*Tile, error) {
	src, ok := p.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown tile source %q", name)
	}

	key := name + "/" + coord.String()

	p.inFlightMu.Lock()
	if c, exists := p.inFlight[key]; exists {
		p.inFlightMu.Unlock()
		<-c.done // Wait for the in-flight request to complete
		return c.tile, c.err
	}

	c := &call{done: make(chan struct{})}
	p.inFlight[key] = c
	p.inFlightMu.Unlock()

	c.tile, c.err = p.fetchTile(src.URL(coord))

	p.inFlightMu.Lock()
	delete(p.inFlight, key)
	close(c.done)
	p.inFlightMu.Unlock()

	return c.tile, c.err
}

// fetchTile downloads a tile from upstream
func (p *Proxy) fetchTile(url string) (*Tile, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile server returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile data: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/png"
	}
	return &Tile{Data: data, ContentType: ct, CacheControl: resp.Header.Get("Cache-Control")}, nil
}

// handleTile serves tile requests: /{source}/{zoom}/{x}/{y}[.png]
func (p *Proxy) handleTile(w http.ResponseWriter, r *http.Request) {
	coord, err := parseCoord(chi.URLParam(r, "z"), chi.URLParam(r, "x"), chi.URLParam(r, "y"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := chi.URLParam(r, "source")
	if _, ok := p.sources[name]; !ok {
		http.Error(w, "Unknown tile source", http.StatusNotFound)
		return
	}

	tile, err := p.GetTile(name, coord)
	if err != nil {
		p.log.Debug("tile fetch failed", zap.String("source", name), zap.String("tile", coord.String()), zap.Error(err))
		http.Error(w, fmt.Sprintf("Failed to get tile: %v", err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", tile.ContentType)
	if tile.CacheControl != "" {
		w.Header().Set("Cache-Control", tile.CacheControl)
	}
	w.Write(tile.Data)
}

func parseCoord(zs, xs, ys string) (tiles.TileCoord, error) {
	zoom, err := strconv.Atoi(zs)
	if err != nil {
		return tiles.TileCoord{}, fmt.Errorf("Invalid zoom")
	}

	x, err := strconv.Atoi(xs)
	if err != nil {
		return tiles.TileCoord{}, fmt.Errorf("Invalid x")
	}

	// Remove image extension if present
	ys = strings.TrimSuffix(strings.TrimSuffix(ys, ".png"), "@2x")
	y, err := strconv.Atoi(ys)
	if err != nil {
		return tiles.TileCoord{}, fmt.Errorf("Invalid y")
	}

	coord := tiles.TileCoord{X: x, Y: y, Zoom: zoom}
	if !coord.Valid() {
		return tiles.TileCoord{}, fmt.Errorf("Tile %s out of range", coord)
	}
	return coord, nil
}
