package layers

import (
	"fmt"
	"html"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// City is one fixed marker record
type City struct {
	Name       string
	Population string
	Location   orb.Point
}

// Label returns the popup content bound to the city's marker
func (c City) Label() string {
	name := c.Name
	if name == "" {
		name = "City"
	}
	pop := ""
	if c.Population != "" {
		pop = " — pop: " + c.Population
	}
	return fmt.Sprintf(`<strong>%s</strong><div style="font-size:12px;color:#9aa0a6">%s</div>`,
		html.EscapeString(name), html.EscapeString(pop))
}

var cities = []City{
	{"New York, USA", "8.4M", orb.Point{-74.0060, 40.7128}},
	{"London, UK", "9.0M", orb.Point{-0.1276, 51.5074}},
	{"Tokyo, Japan", "14M", orb.Point{139.6917, 35.6895}},
	{"Nairobi, Kenya", "4.4M", orb.Point{36.8219, -1.2921}},
	{"Kampala, Uganda", "1.7M", orb.Point{32.5825, 0.3476}},
	{"Sydney, Australia", "5.3M", orb.Point{151.2093, -33.8688}},
	{"Paris, France", "2.1M", orb.Point{2.3522, 48.8566}},
	{"Cairo, Egypt", "9.5M", orb.Point{31.2357, 30.0444}},
	{"Beijing, China", "21M", orb.Point{116.4074, 39.9042}},
	{"Moscow, Russia", "12.5M", orb.Point{37.6173, 55.7558}},
	{"Rio de Janeiro, Brazil", "6.7M", orb.Point{-43.1729, -22.9068}},
}

// Cities returns a copy of the fixed marker set, in display order
func Cities() []City {
	out := make([]City, len(cities))
	copy(out, cities)
	return out
}

// CitiesGeoJSON renders the marker set as a point FeatureCollection with
// name, pop and label properties.
func CitiesGeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cities {
		f := geojson.NewFeature(c.Location)
		f.Properties["name"] = c.Name
		f.Properties["pop"] = c.Population
		f.Properties["label"] = c.Label()
		fc.Append(f)
	}
	return fc
}
