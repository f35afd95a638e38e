package tiles

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// TileSize is the edge length of a standard slippy map tile in pixels
	TileSize = 256

	// MaxZoom is the deepest zoom served by the configured tile sources
	MaxZoom = 19
)

// TileCoord represents a tile coordinate in the slippy map format
type TileCoord struct {
	X    int
	Y    int
	Zoom int
}

func (t TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}

// Valid reports whether the tile exists in the pyramid: x and y within
// [0, 2^zoom) for a zoom in [0, MaxZoom].
func (t TileCoord) Valid() bool {
	if t.Zoom < 0 || t.Zoom > MaxZoom {
		return false
	}
	n := 1 << t.Zoom
	return t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

// Source describes a raster tile endpoint in Leaflet template form
type Source struct {
	Name        string   `json:"name" koanf:"name" yaml:"name"`
	URLTemplate string   `json:"url" koanf:"url" yaml:"url"`
	Subdomains  []string `json:"subdomains" koanf:"subdomains" yaml:"subdomains"`
	Attribution string   `json:"attribution,omitempty" koanf:"attribution" yaml:"attribution,omitempty"`
	Opacity     float64  `json:"opacity" koanf:"opacity" yaml:"opacity"`
}

// DarkBasemap is the always-on background layer
func DarkBasemap() Source {
	return Source{
		Name:        "Dark",
		URLTemplate: "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}@2x.png",
		Subdomains:  []string{"a", "b", "c", "d"},
		Attribution: "&copy; OpenStreetMap contributors",
		Opacity:     1,
	}
}

// OSMRoads is the optional road overlay, drawn at reduced opacity
func OSMRoads() Source {
	return Source{
		Name:        "Roads (OSM overlay)",
		URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Subdomains:  []string{"a", "b", "c"},
		Opacity:     0.65,
	}
}

// URL expands the template for a tile. The subdomain is picked the same
// way Leaflet does it so both sides hit the same host for a given tile.
func (s Source) URL(t TileCoord) string {
	sub := ""
	if len(s.Subdomains) > 0 {
		idx := (t.X + t.Y) % len(s.Subdomains)
		if idx < 0 {
			idx += len(s.Subdomains)
		}
		sub = s.Subdomains[idx]
	}
	r := strings.NewReplacer(
		"{s}", sub,
		"{z}", strconv.Itoa(t.Zoom),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	)
	return r.Replace(s.URLTemplate)
}

// Validate checks that the template carries the placeholders a tile layer needs
func (s Source) Validate() error {
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(s.URLTemplate, p) {
			return fmt.Errorf("tile source %q: url template missing %s", s.Name, p)
		}
	}
	if strings.Contains(s.URLTemplate, "{s}") && len(s.Subdomains) == 0 {
		return fmt.Errorf("tile source %q: url template uses {s} but no subdomains are set", s.Name)
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		return fmt.Errorf("tile source %q: opacity %v out of range [0,1]", s.Name, s.Opacity)
	}
	return nil
}
