package tiles

import (
	"strings"
	"testing"
)

func TestSourceURLSubdomains(t *testing.T) {
	s := Source{
		URLTemplate: "https://{s}.example.com/{z}/{x}/{y}.png",
		Subdomains:  []string{"a", "b", "c"},
	}

	tests := []struct {
		coord TileCoord
		want  string
	}{
		{TileCoord{X: 0, Y: 0, Zoom: 1}, "https://a.example.com/1/0/0.png"},
		{TileCoord{X: 1, Y: 0, Zoom: 1}, "https://b.example.com/1/1/0.png"},
		{TileCoord{X: 1, Y: 1, Zoom: 1}, "https://c.example.com/1/1/1.png"},
		{TileCoord{X: 2, Y: 1, Zoom: 2}, "https://a.example.com/2/2/1.png"},
		{TileCoord{X: 5, Y: 3, Zoom: 4}, "https://c.example.com/4/5/3.png"},
	}

	for _, tt := range tests {
		t.Run(tt.coord.String(), func(t *testing.T) {
			if got := s.URL(tt.coord); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSourceURLWithoutSubdomains(t *testing.T) {
	s := Source{URLTemplate: "/tiles/roads/{z}/{x}/{y}"}
	if got := s.URL(TileCoord{X: 3, Y: 2, Zoom: 5}); got != "/tiles/roads/5/3/2" {
		t.Errorf("unexpected url %q", got)
	}
}

func TestDefaultSourcesValidate(t *testing.T) {
	for _, s := range []Source{DarkBasemap(), OSMRoads()} {
		if err := s.Validate(); err != nil {
			t.Errorf("%s: %v", s.Name, err)
		}
	}
}

func TestSourceValidate(t *testing.T) {
	tests := []struct {
		name    string
		source  Source
		wantErr string
	}{
		{"missing z", Source{URLTemplate: "https://x/{x}/{y}.png"}, "missing {z}"},
		{"missing y", Source{URLTemplate: "https://x/{z}/{x}.png"}, "missing {y}"},
		{"subdomain placeholder without subdomains", Source{URLTemplate: "https://{s}.x/{z}/{x}/{y}.png"}, "no subdomains"},
		{"opacity above one", Source{URLTemplate: "https://x/{z}/{x}/{y}.png", Opacity: 1.5}, "opacity"},
		{"negative opacity", Source{URLTemplate: "https://x/{z}/{x}/{y}.png", Opacity: -0.1}, "opacity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestTileCoordValid(t *testing.T) {
	tests := []struct {
		coord TileCoord
		want  bool
	}{
		{TileCoord{X: 0, Y: 0, Zoom: 0}, true},
		{TileCoord{X: 1, Y: 0, Zoom: 0}, false},
		{TileCoord{X: 3, Y: 3, Zoom: 2}, true},
		{TileCoord{X: 4, Y: 0, Zoom: 2}, false},
		{TileCoord{X: 0, Y: -1, Zoom: 2}, false},
		{TileCoord{X: 0, Y: 0, Zoom: -1}, false},
		{TileCoord{X: 0, Y: 0, Zoom: MaxZoom}, true},
		{TileCoord{X: 0, Y: 0, Zoom: MaxZoom + 1}, false},
	}

	for _, tt := range tests {
		if got := tt.coord.Valid(); got != tt.want {
			t.Errorf("%+v: got %v, want %v", tt.coord, got, tt.want)
		}
	}
}
