package layers

import (
	"github.com/google/uuid"

	"mapdesk/pkg/tiles"
)

// Overlay names as shown in the layer control
const (
	CitiesName  = "Cities"
	BordersName = "Borders (load online)"
	RoadsName   = "Roads (OSM overlay)"
)

// Kind tells the document how to draw a layer
type Kind string

const (
	KindTiles   Kind = "tiles"
	KindMarkers Kind = "markers"
	KindGeoJSON Kind = "geojson"
)

// Basemap is an always-visible background layer
type Basemap struct {
	Name   string       `json:"name"`
	Source tiles.Source `json:"source"`
}

// Overlay is an optional, independently togglable layer.
// Data overlays are identified by Generation: a rebuilt overlay is a new
// *Overlay with a higher generation, never a mutation of the old one.
type Overlay struct {
	Name       string        `json:"name"`
	Kind       Kind          `json:"kind"`
	Source     *tiles.Source `json:"source,omitempty"`
	Generation uint64        `json:"generation"`
}

// MarkerStyle mirrors Leaflet circle-marker path options
type MarkerStyle struct {
	Radius      float64 `json:"radius"`
	Color       string  `json:"color,omitempty"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
}

// PathStyle mirrors Leaflet polyline/polygon path options
type PathStyle struct {
	Color   string  `json:"color"`
	Weight  float64 `json:"weight"`
	Opacity float64 `json:"opacity"`
	Fill    bool    `json:"fill"`
}

var (
	CityMarker = MarkerStyle{Radius: 8, Weight: 1, Opacity: 1, FillOpacity: 0.9}

	// SearchMarker stands out from city markers: larger, accent colored, stroked
	SearchMarker = MarkerStyle{Radius: 9, Color: "#ffd166", Weight: 2, Opacity: 1, FillOpacity: 0.2}

	BorderPath = PathStyle{Color: "#6dd3ff", Weight: 1, Opacity: 0.8, Fill: false}
)

// Set is the layer arrangement the controller owns
type Set struct {
	Basemap *Basemap
	Cities  *Overlay
	Borders *Overlay
	Roads   *Overlay
}

// NewSet builds the initial arrangement: basemap, cities, an empty border
// placeholder and the road tiles.
func NewSet(basemap, roads tiles.Source) *Set {
	return &Set{
		Basemap: &Basemap{Name: basemap.Name, Source: basemap},
		Cities:  &Overlay{Name: CitiesName, Kind: KindMarkers},
		Borders: &Overlay{Name: BordersName, Kind: KindGeoJSON},
		Roads:   &Overlay{Name: RoadsName, Kind: KindTiles, Source: &roads},
	}
}

// Overlays returns the overlays in control order
func (s *Set) Overlays() []*Overlay {
	return []*Overlay{s.Cities, s.Borders, s.Roads}
}

// ReplaceBorders swaps in a new border overlay identity
func (s *Set) ReplaceBorders(generation uint64) *Overlay {
	s.Borders = &Overlay{Name: BordersName, Kind: KindGeoJSON, Generation: generation}
	return s.Borders
}

// Control is the layer-visibility control. It captures the overlay
// references it was built with and does not observe later changes.
type Control struct {
	ID        uuid.UUID
	Basemaps  []*Basemap
	Overlays  []*Overlay
	Collapsed bool

	removed bool
}

// NewControl builds an always-expanded control bound to the given layers
func NewControl(basemaps []*Basemap, overlays []*Overlay) *Control {
	bound := make([]*Overlay, len(overlays))
	copy(bound, overlays)
	base := make([]*Basemap, len(basemaps))
	copy(base, basemaps)
	return &Control{
		ID:       uuid.New(),
		Basemaps: base,
		Overlays: bound,
	}
}

// NewControlForSet binds a control to the current contents of s
func NewControlForSet(s *Set) *Control {
	return NewControl([]*Basemap{s.Basemap}, s.Overlays())
}

// Remove detaches the control. Removing twice is harmless.
func (c *Control) Remove() {
	c.removed = true
}

// Active reports whether the control is still attached
func (c *Control) Active() bool {
	return !c.removed
}

// Binds reports whether the control holds this exact overlay reference
func (c *Control) Binds(o *Overlay) bool {
	for _, b := range c.Overlays {
		if b == o {
			return true
		}
	}
	return false
}
