package camera

import (
	"math"

	"github.com/paulmach/orb"

	"mapdesk/pkg/tiles"
)

const (
	MinZoom = 1
	MaxZoom = 18

	// WorldLat, WorldLon and WorldZoom frame the whole-world view
	WorldLat  = 20.0
	WorldLon  = 0.0
	WorldZoom = 2

	maxMercatorLat = 85.0511
)

// Camera represents the map viewport shown by the document
type Camera struct {
	// Geographic position (center of view)
	Lat float64
	Lon float64

	// Integer zoom level, Leaflet snapping
	Zoom int

	// Viewport dimensions in CSS pixels
	ViewportWidth  int
	ViewportHeight int

	// Fit is the rectangle the latest transition fitted to, if any.
	// The document fits to it directly so its own rounding wins.
	Fit *orb.Bound
}

// NewCamera creates a new camera centered on given coordinates
func NewCamera(lat, lon float64, zoom int, width, height int) *Camera {
	c := &Camera{
		ViewportWidth:  width,
		ViewportHeight: height,
	}
	c.SetView(lat, lon, zoom)
	return c
}

// NewWorldCamera creates a camera on the whole-world view
func NewWorldCamera(width, height int) *Camera {
	return NewCamera(WorldLat, WorldLon, WorldZoom, width, height)
}

// SetViewport updates the viewport dimensions
func (c *Camera) SetViewport(width, height int) {
	if width > 0 {
		c.ViewportWidth = width
	}
	if height > 0 {
		c.ViewportHeight = height
	}
}

// SetView centers the camera on a point at the given zoom
func (c *Camera) SetView(lat, lon float64, zoom int) {
	c.Lat = lat
	c.Lon = lon
	c.Fit = nil
	c.ZoomTo(zoom)
	c.clampPosition()
}

// Reset returns to the whole-world view
func (c *Camera) Reset() {
	c.SetView(WorldLat, WorldLon, WorldZoom)
}

// ZoomTo sets a specific zoom level
func (c *Camera) ZoomTo(zoom int) {
	c.Zoom = clampZoom(zoom)
}

// FitBounds frames b using the largest zoom at which the whole rectangle
// fits the viewport, never exceeding maxZoom.
func (c *Camera) FitBounds(b orb.Bound, maxZoom int) {
	zoom := c.BoundsZoom(b)
	if zoom > maxZoom {
		zoom = maxZoom
	}

	// Center is taken in projected space, as the document does
	minX, minY := project(b.Max.Lat(), b.Min.Lon())
	maxX, maxY := project(b.Min.Lat(), eastOf(b))
	lat, lon := unproject((minX+maxX)/2, (minY+maxY)/2)

	c.SetView(lat, lon, zoom)
	fit := b
	c.Fit = &fit
}

// BoundsZoom returns the largest zoom at which b fits the viewport
func (c *Camera) BoundsZoom(b orb.Bound) int {
	minX, minY := project(b.Max.Lat(), b.Min.Lon())
	maxX, maxY := project(b.Min.Lat(), eastOf(b))

	// Extent at zoom 0, in pixels
	w := (maxX - minX) * tiles.TileSize
	h := (maxY - minY) * tiles.TileSize
	if w <= 0 && h <= 0 {
		return MaxZoom
	}

	scale := math.Inf(1)
	if w > 0 {
		scale = float64(c.ViewportWidth) / w
	}
	if h > 0 {
		scale = math.Min(scale, float64(c.ViewportHeight)/h)
	}
	if scale <= 0 {
		return MinZoom
	}

	return clampZoom(int(math.Floor(math.Log2(scale))))
}

// VisibleBounds returns the geographic rectangle covered by the viewport.
// A viewport wider than the world reports the full longitude range; one
// straddling the antimeridian has Max.Lon < Min.Lon, as eastOf expects.
func (c *Camera) VisibleBounds() orb.Bound {
	west, north := c.screenToGeo(0, 0)
	east, south := c.screenToGeo(float64(c.ViewportWidth), float64(c.ViewportHeight))

	if east-west >= 360 {
		west, east = -180, 180
	} else {
		west, east = wrapLon(west), wrapLon(east)
	}
	return orb.Bound{
		Min: orb.Point{west, south},
		Max: orb.Point{east, north},
	}
}

// screenToGeo converts viewport pixels to unwrapped geographic coordinates
func (c *Camera) screenToGeo(screenX, screenY float64) (lon, lat float64) {
	worldSize := c.worldSize()
	cx, cy := project(c.Lat, c.Lon)

	worldX := cx*worldSize + screenX - float64(c.ViewportWidth)/2
	worldY := cy*worldSize + screenY - float64(c.ViewportHeight)/2

	lat, lon = unproject(worldX/worldSize, worldY/worldSize)
	return lon, lat
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

func (c *Camera) worldSize() float64 {
	return math.Pow(2, float64(c.Zoom)) * tiles.TileSize
}

// clampPosition ensures the camera stays within valid bounds
func (c *Camera) clampPosition() {
	c.Lon = wrapLon(c.Lon)

	if c.Lat > maxMercatorLat {
		c.Lat = maxMercatorLat
	}
	if c.Lat < -maxMercatorLat {
		c.Lat = -maxMercatorLat
	}
}

func clampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// eastOf unwraps a rectangle crossing the antimeridian
func eastOf(b orb.Bound) float64 {
	if b.Max.Lon() < b.Min.Lon() {
		return b.Max.Lon() + 360
	}
	return b.Max.Lon()
}

// project maps lat/lon to Web Mercator in [0,1] world units
func project(lat, lon float64) (x, y float64) {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	x = (lon + 180.0) / 360.0
	latRad := lat * math.Pi / 180.0
	y = (1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0
	return x, y
}

func unproject(x, y float64) (lat, lon float64) {
	lon = x*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y)))
	lat = latRad * 180.0 / math.Pi
	return lat, lon
}
