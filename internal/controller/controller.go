// Package controller owns the map view, the layer arrangement and the
// search marker, and applies every user and network triggered transition.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"mapdesk/internal/borders"
	"mapdesk/internal/camera"
	"mapdesk/internal/geocode"
	"mapdesk/internal/layers"
	"mapdesk/pkg/tiles"
)

var (
	// ErrNotFound is returned when the geocoder has no match
	ErrNotFound = errors.New("not found")

	// ErrSuperseded is returned by a search whose result arrived after a
	// newer search was issued; the result is discarded.
	ErrSuperseded = errors.New("search superseded by a newer one")

	// ErrUnknownLayer is returned when toggling an overlay that does not exist
	ErrUnknownLayer = errors.New("unknown overlay")
)

// Geocoder resolves a free-text query to at most one place
type Geocoder interface {
	Search(ctx context.Context, query string) (*geocode.Place, error)
}

// BorderSource provides the border overlay and announces replacements
type BorderSource interface {
	Current() *borders.Overlay
	Subscribe(fn borders.Listener)
}

// Options configure a controller
type Options struct {
	Basemap tiles.Source
	Roads   tiles.Source

	// SearchMaxZoom caps the zoom of a search result
	SearchMaxZoom int

	ViewportWidth  int
	ViewportHeight int
}

// DefaultOptions match the stock document
func DefaultOptions() Options {
	return Options{
		Basemap:        tiles.DarkBasemap(),
		Roads:          tiles.OSMRoads(),
		SearchMaxZoom:  8,
		ViewportWidth:  1200,
		ViewportHeight: 800,
	}
}

type searchMarker struct {
	location orb.Point
	label    string
}

// Controller is the map interaction controller. It is safe for
// concurrent use. Listeners run while the controller lock is held so
// they observe events in state order; they must not block or call back
// into the controller.
type Controller struct {
	geocoder Geocoder
	log      *zap.Logger
	maxZoom  int

	mu       sync.Mutex
	view     *camera.Camera
	layers   *layers.Set
	control  *layers.Control
	visible  map[string]bool
	borders  *borders.Overlay
	marker   *searchMarker
	searchID uint64
	cancel   context.CancelFunc

	listeners map[int]func(Event)
	nextID    int
}

// New creates and initializes a controller: whole-world view, basemap,
// visible cities, border placeholder, hidden roads, and an expanded layer
// control over them. The controller rebuilds its layer control whenever
// src reports a new border overlay.
func New(opts Options, geocoder Geocoder, src BorderSource, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SearchMaxZoom <= 0 {
		opts.SearchMaxZoom = 8
	}

	set := layers.NewSet(opts.Basemap, opts.Roads)
	c := &Controller{
		geocoder: geocoder,
		log:      log,
		maxZoom:  opts.SearchMaxZoom,
		view:     camera.NewWorldCamera(opts.ViewportWidth, opts.ViewportHeight),
		layers:   set,
		visible: map[string]bool{
			layers.CitiesName:  true,
			layers.BordersName: false,
			layers.RoadsName:   false,
		},
		borders:   &borders.Overlay{},
		listeners: make(map[int]func(Event)),
	}
	c.control = layers.NewControlForSet(set)

	if src != nil {
		// Subscribe before reading Current so a load landing in between
		// is delivered one way or the other.
		src.Subscribe(c.onBordersChanged)
		if cur := src.Current(); cur != nil {
			c.mu.Lock()
			if cur.Generation > c.borders.Generation {
				c.replaceBorders(cur)
			}
			c.mu.Unlock()
		}
	}
	return c
}

// Subscribe registers fn for state events and returns a function that
// removes it.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// emit must be called with c.mu held
func (c *Controller) emit(t EventType, data any) {
	ev := Event{Type: t, Data: data}
	for _, fn := range c.listeners {
		fn(ev)
	}
}

// Search geocodes query and moves the view to the match. Blank queries
// are ignored. Only the most recently issued search is ever applied:
// issuing a new one cancels the previous request, and a result that
// arrives late is discarded with ErrSuperseded.
func (c *Controller) Search(ctx context.Context, query string) (*geocode.Place, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}

	c.mu.Lock()
	c.searchID++
	id := c.searchID
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	place, err := c.geocoder.Search(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.searchID {
		c.log.Debug("dropping superseded search", zap.String("query", q), zap.Uint64("search", id))
		return nil, ErrSuperseded
	}
	c.cancel = nil

	if err != nil && errors.Is(err, context.Canceled) {
		// The caller gave up; nobody is waiting for an alert.
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	if err != nil {
		c.log.Warn("search failed", zap.String("query", q), zap.Error(err))
		c.emit(EventAlert, &AlertState{Kind: AlertError, Message: "Search failed: " + err.Error()})
		return nil, fmt.Errorf("search %q: %w", q, err)
	}
	if place == nil {
		c.emit(EventAlert, &AlertState{Kind: AlertNotFound, Message: "Not found"})
		return nil, ErrNotFound
	}

	if place.BoundingBox != nil {
		c.view.FitBounds(*place.BoundingBox, c.maxZoom)
	} else {
		c.view.SetView(place.Lat(), place.Lon(), c.maxZoom)
	}

	// At most one search marker: the previous one goes first.
	c.marker = &searchMarker{location: place.Location, label: place.DisplayName}

	c.log.Info("search applied",
		zap.String("query", q),
		zap.String("place", place.DisplayName),
		zap.Bool("fit", place.BoundingBox != nil),
		zap.Int("zoom", c.view.Zoom))

	c.emit(EventView, viewState(c.view, c.maxZoom))
	c.emit(EventMarker, c.markerState())
	return place, nil
}

// ResetWorld returns to the whole-world view and clears the search
// marker. Overlay visibility is left alone.
func (c *Controller) ResetWorld() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.view.Reset()
	c.emit(EventView, viewState(c.view, c.maxZoom))

	if c.marker != nil {
		c.marker = nil
		c.emit(EventMarker, nil)
	}
}

// SetOverlayVisible toggles an overlay by its control name
func (c *Controller) SetOverlayVisible(name string, visible bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.visible[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	if c.visible[name] == visible {
		return nil
	}
	c.visible[name] = visible
	c.emit(EventLayers, c.layersState())
	return nil
}

// SyncView records a pan or zoom made in the document. Nothing is emitted
// since the document already shows it.
func (c *Controller) SyncView(lat, lon float64, zoom int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.SetView(lat, lon, zoom)
}

// SetViewport records the document's map size, used for bounds fitting
func (c *Controller) SetViewport(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.SetViewport(width, height)
}

// Snapshot returns the full current state
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// SubscribeWithSnapshot registers fn and hands it the current snapshot
// first, with no event able to slip in between.
func (c *Controller) SubscribeWithSnapshot(fn func(Event)) func() {
	c.mu.Lock()
	fn(Event{Type: EventSnapshot, Data: c.snapshot()})
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) snapshot() *Snapshot {
	return &Snapshot{
		View:      viewState(c.view, c.maxZoom),
		Marker:    c.markerState(),
		Layers:    c.layersState(),
		Borders:   bordersState(c.borders),
		Cities:    layers.CitiesGeoJSON(),
		CityStyle: layers.CityMarker,
	}
}

// ActiveControl returns the layer control currently attached
func (c *Controller) ActiveControl() *layers.Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.control
}

// BorderOverlay returns the border overlay currently bound
func (c *Controller) BorderOverlay() *layers.Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layers.Borders
}

func (c *Controller) onBordersChanged(o *borders.Overlay) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.Generation <= c.borders.Generation {
		return
	}
	c.replaceBorders(o)
	c.emit(EventBorders, bordersState(c.borders))
	c.emit(EventLayers, c.layersState())
}

// replaceBorders swaps the overlay and rebuilds the layer control, which
// only knows the overlay references it was constructed with.
func (c *Controller) replaceBorders(o *borders.Overlay) {
	c.borders = o
	c.layers.ReplaceBorders(o.Generation)

	old := c.control
	old.Remove()
	c.control = layers.NewControlForSet(c.layers)

	c.log.Debug("layer control rebuilt",
		zap.String("old", old.ID.String()),
		zap.String("new", c.control.ID.String()),
		zap.Uint64("borders", o.Generation))
}

func (c *Controller) markerState() *MarkerState {
	if c.marker == nil {
		return nil
	}
	return &MarkerState{
		Lat:       c.marker.location.Lat(),
		Lon:       c.marker.location.Lon(),
		Label:     c.marker.label,
		PopupOpen: true,
		Style:     layers.SearchMarker,
	}
}

func (c *Controller) layersState() *LayersState {
	st := &LayersState{
		ControlID: c.control.ID.String(),
		Collapsed: c.control.Collapsed,
		Basemaps:  c.control.Basemaps,
	}
	for _, o := range c.control.Overlays {
		st.Overlays = append(st.Overlays, OverlayState{
			Name:       o.Name,
			Kind:       o.Kind,
			Visible:    c.visible[o.Name],
			Generation: o.Generation,
			Source:     o.Source,
		})
	}
	return st
}
