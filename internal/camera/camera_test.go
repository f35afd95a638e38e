package camera

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNewWorldCamera(t *testing.T) {
	c := NewWorldCamera(1200, 800)
	if c.Lat != 20 || c.Lon != 0 || c.Zoom != 2 {
		t.Errorf("expected (20, 0) zoom 2, got (%v, %v) zoom %d", c.Lat, c.Lon, c.Zoom)
	}
	if c.Fit != nil {
		t.Error("world view should carry no fit bounds")
	}
}

func TestResetClearsFit(t *testing.T) {
	c := NewWorldCamera(1200, 800)
	c.FitBounds(orb.Bound{Min: orb.Point{29.5, -1.5}, Max: orb.Point{35.0, 4.3}}, 8)
	c.Reset()

	if c.Lat != WorldLat || c.Lon != WorldLon || c.Zoom != WorldZoom {
		t.Errorf("reset: got (%v, %v) zoom %d", c.Lat, c.Lon, c.Zoom)
	}
	if c.Fit != nil {
		t.Error("reset should clear fit bounds")
	}
}

func TestZoomClamp(t *testing.T) {
	c := NewWorldCamera(1200, 800)
	c.ZoomTo(40)
	if c.Zoom != MaxZoom {
		t.Errorf("expected zoom %d, got %d", MaxZoom, c.Zoom)
	}
	c.ZoomTo(-3)
	if c.Zoom != MinZoom {
		t.Errorf("expected zoom %d, got %d", MinZoom, c.Zoom)
	}
}

func TestSetViewWrapsLongitude(t *testing.T) {
	c := NewWorldCamera(1200, 800)
	c.SetView(89, 190, 5)
	if !near(c.Lon, -170, 1e-9) {
		t.Errorf("expected lon -170, got %v", c.Lon)
	}
	if c.Lat != maxMercatorLat {
		t.Errorf("expected lat clamped to %v, got %v", maxMercatorLat, c.Lat)
	}
}

func TestFitBoundsUganda(t *testing.T) {
	c := NewWorldCamera(1200, 800)
	b := orb.Bound{Min: orb.Point{29.5, -1.5}, Max: orb.Point{35.0, 4.3}}

	c.FitBounds(b, 8)

	if c.Zoom > 8 {
		t.Errorf("zoom %d exceeds cap 8", c.Zoom)
	}
	if c.Zoom != 7 {
		t.Errorf("expected zoom 7 for a 1200x800 viewport, got %d", c.Zoom)
	}
	if c.Fit == nil || *c.Fit != b {
		t.Errorf("fit bounds: got %v, want %v", c.Fit, b)
	}
	if !near(c.Lon, 32.25, 1e-9) {
		t.Errorf("center lon: got %v, want 32.25", c.Lon)
	}
	if c.Lat < -1.5 || c.Lat > 4.3 {
		t.Errorf("center lat %v outside bounds", c.Lat)
	}

	// The whole rectangle must be on screen.
	visible := c.VisibleBounds()
	for _, p := range []orb.Point{b.Min, b.Max} {
		if !visible.Contains(p) {
			t.Errorf("corner %v outside visible bounds %v", p, visible)
		}
	}
}

func TestFitBoundsCapsSmallPlaces(t *testing.T) {
	c := NewWorldCamera(1200, 800)
	b := orb.Bound{Min: orb.Point{32.58, 0.34}, Max: orb.Point{32.59, 0.35}}

	c.FitBounds(b, 8)

	if c.Zoom != 8 {
		t.Errorf("expected zoom capped at 8, got %d", c.Zoom)
	}
}

func TestFitBoundsDegenerate(t *testing.T) {
	c := NewWorldCamera(1200, 800)
	p := orb.Point{2.35, 48.85}

	c.FitBounds(orb.Bound{Min: p, Max: p}, 8)

	if c.Zoom != 8 {
		t.Errorf("point bound should use the cap, got zoom %d", c.Zoom)
	}
	if !near(c.Lat, 48.85, 1e-9) || !near(c.Lon, 2.35, 1e-9) {
		t.Errorf("center: got (%v, %v)", c.Lat, c.Lon)
	}
}

func TestFitBoundsAntimeridian(t *testing.T) {
	c := NewWorldCamera(1200, 800)
	// Fiji-like rectangle crossing 180
	b := orb.Bound{Min: orb.Point{177, -21}, Max: orb.Point{-178, -12}}

	c.FitBounds(b, 8)

	if c.Zoom < 4 {
		t.Errorf("antimeridian rectangle should not zoom out to the world, got %d", c.Zoom)
	}
	if !near(math.Abs(c.Lon), 179.5, 1e-9) {
		t.Errorf("center lon: got %v, want ±179.5", c.Lon)
	}
}

func TestVisibleBounds(t *testing.T) {
	c := NewCamera(51.5, -0.12, 10, 1200, 800)

	lon, lat := c.screenToGeo(600, 400)
	if !near(lon, -0.12, 1e-9) || !near(lat, 51.5, 1e-9) {
		t.Errorf("viewport center maps to (%v, %v)", lon, lat)
	}

	b := c.VisibleBounds()
	if !b.Contains(orb.Point{c.Lon, c.Lat}) {
		t.Errorf("visible bounds %v should contain center", b)
	}
	if b.Min.Lon() >= b.Max.Lon() || b.Min.Lat() >= b.Max.Lat() {
		t.Errorf("visible bounds not ordered: %v", b)
	}
	// 1200px at zoom 10 spans 1200/(256*1024) of the world
	if want := 360 * 1200.0 / (256 * 1024); !near(b.Max.Lon()-b.Min.Lon(), want, 1e-9) {
		t.Errorf("longitude span: got %v, want %v", b.Max.Lon()-b.Min.Lon(), want)
	}
}

func TestVisibleBoundsWholeWorld(t *testing.T) {
	// 1024px of world in a 1200px viewport
	c := NewWorldCamera(1200, 800)
	b := c.VisibleBounds()

	if b.Min.Lon() != -180 || b.Max.Lon() != 180 {
		t.Errorf("expected full longitude range, got %v", b)
	}
	if !b.Contains(orb.Point{c.Lon, c.Lat}) {
		t.Errorf("visible bounds %v should contain center", b)
	}
}

func TestVisibleBoundsAntimeridian(t *testing.T) {
	c := NewCamera(0, 179.5, 6, 1200, 800)
	b := c.VisibleBounds()

	if b.Max.Lon() >= b.Min.Lon() {
		t.Errorf("expected a wrapped rectangle, got %v", b)
	}
	if b.Min.Lon() < 160 || b.Min.Lon() > 179.5 || b.Max.Lon() < -180 || b.Max.Lon() > -160 {
		t.Errorf("unexpected longitude range %v", b)
	}
}
