package controller

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"mapdesk/internal/borders"
	"mapdesk/internal/camera"
	"mapdesk/internal/layers"
	"mapdesk/pkg/tiles"
)

// EventType names a state change pushed to the document
type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventView     EventType = "view"
	EventMarker   EventType = "marker"
	EventBorders  EventType = "borders"
	EventLayers   EventType = "layers"
	EventAlert    EventType = "alert"
)

// Event is one state change. Data is one of the *State types below; a
// marker event with nil Data means the search marker was removed.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Bounds is a rectangle in the order the geocoder reports it
type Bounds struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

func boundsFrom(b orb.Bound) *Bounds {
	return &Bounds{South: b.Min.Lat(), North: b.Max.Lat(), West: b.Min.Lon(), East: b.Max.Lon()}
}

// ViewState is the MapView as the document should apply it. When Fit is
// set the document fits to it with MaxZoom; otherwise it sets center/zoom.
// Visible is the rectangle the viewport covers at that center and zoom;
// West > East when it straddles the antimeridian.
type ViewState struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Zoom    int     `json:"zoom"`
	Fit     *Bounds `json:"fit,omitempty"`
	MaxZoom int     `json:"maxZoom,omitempty"`
	Visible Bounds  `json:"visible"`
}

func viewState(c *camera.Camera, maxZoom int) *ViewState {
	v := &ViewState{Lat: c.Lat, Lon: c.Lon, Zoom: c.Zoom, Visible: *boundsFrom(c.VisibleBounds())}
	if c.Fit != nil {
		v.Fit = boundsFrom(*c.Fit)
		v.MaxZoom = maxZoom
	}
	return v
}

// MarkerState is the single search marker
type MarkerState struct {
	Lat       float64            `json:"lat"`
	Lon       float64            `json:"lon"`
	Label     string             `json:"label"`
	PopupOpen bool               `json:"popupOpen"`
	Style     layers.MarkerStyle `json:"style"`
}

// OverlayState is one entry of the layer control
type OverlayState struct {
	Name       string        `json:"name"`
	Kind       layers.Kind   `json:"kind"`
	Visible    bool          `json:"visible"`
	Generation uint64        `json:"generation"`
	Source     *tiles.Source `json:"source,omitempty"`
}

// LayersState describes the active layer control
type LayersState struct {
	ControlID string            `json:"controlId"`
	Collapsed bool              `json:"collapsed"`
	Basemaps  []*layers.Basemap `json:"basemaps"`
	Overlays  []OverlayState    `json:"overlays"`
}

// BordersState carries the polygons of the current border overlay
type BordersState struct {
	Generation uint64                     `json:"generation"`
	Style      layers.PathStyle           `json:"style"`
	Features   *geojson.FeatureCollection `json:"features"`
}

func bordersState(o *borders.Overlay) *BordersState {
	fc := o.Features
	if fc == nil {
		fc = geojson.NewFeatureCollection()
	}
	return &BordersState{Generation: o.Generation, Style: layers.BorderPath, Features: fc}
}

// AlertKind separates an empty search from a failed one
type AlertKind string

const (
	AlertNotFound AlertKind = "not_found"
	AlertError    AlertKind = "error"
)

// AlertState is a blocking notification for the user
type AlertState struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

// Snapshot is the complete controller state sent to a fresh document
type Snapshot struct {
	View      *ViewState                 `json:"view"`
	Marker    *MarkerState               `json:"marker"`
	Layers    *LayersState               `json:"layers"`
	Borders   *BordersState              `json:"borders"`
	Cities    *geojson.FeatureCollection `json:"cities"`
	CityStyle layers.MarkerStyle         `json:"cityStyle"`
}
