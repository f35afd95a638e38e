// Package borders loads the country-boundary document and publishes each
// successfully built polygon overlay to its subscribers.
package borders

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"
)

// LabelProperty is the feature property the computed label is stored under
const LabelProperty = "label"

// Overlay is one built set of country polygons. A loaded overlay is never
// mutated; a refresh produces a new Overlay with a higher Generation.
type Overlay struct {
	Generation uint64
	Features   *geojson.FeatureCollection
}

// Len returns the number of polygons in the overlay
func (o *Overlay) Len() int {
	if o == nil || o.Features == nil {
		return 0
	}
	return len(o.Features.Features)
}

// Listener is notified after a successful load replaced the overlay
type Listener func(*Overlay)

// Loader fetches the boundary document and keeps the latest overlay
type Loader struct {
	url       string
	userAgent string
	labelKeys []string
	client    *http.Client
	log       *zap.Logger

	mu         sync.RWMutex
	current    *Overlay
	generation uint64
	listeners  []Listener

	wg sync.WaitGroup
}

// NewLoader creates a loader with an empty overlay. labelKeys are tried in
// order when labelling a polygon.
func NewLoader(url, userAgent string, labelKeys []string, timeout time.Duration, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	keys := make([]string, len(labelKeys))
	copy(keys, labelKeys)
	return &Loader{
		url:       url,
		userAgent: userAgent,
		labelKeys: keys,
		client:    &http.Client{Timeout: timeout},
		log:       log,
		current:   &Overlay{Features: geojson.NewFeatureCollection()},
	}
}

// Current returns the latest overlay. Before the first successful load it
// is empty with generation 0.
func (l *Loader) Current() *Overlay {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Subscribe registers fn for overlay replacements
func (l *Loader) Subscribe(fn Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Start runs one load immediately and one more after refreshDelay, both in
// the background. The delayed load fires regardless of how the first went.
// A zero delay skips the refresh.
func (l *Loader) Start(ctx context.Context, refreshDelay time.Duration) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.Load(ctx)
	}()

	if refreshDelay <= 0 {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		timer := time.NewTimer(refreshDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			l.Load(ctx)
		}
	}()
}

// Wait blocks until background loads started by Start have finished
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Load fetches and parses the boundary document. On success the overlay is
// replaced and listeners are notified. On failure one warning is logged and
// the current overlay is left untouched.
func (l *Loader) Load(ctx context.Context) (*Overlay, error) {
	fc, err := l.fetchAndParse(ctx)
	if err != nil {
		l.log.Warn("could not load country borders", zap.String("url", l.url), zap.Error(err))
		return nil, err
	}

	l.mu.Lock()
	l.generation++
	o := &Overlay{Generation: l.generation, Features: fc}
	l.current = o
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()

	l.log.Info("country borders loaded",
		zap.Uint64("generation", o.Generation),
		zap.Int("polygons", o.Len()))

	for _, fn := range listeners {
		fn(o)
	}
	return o, nil
}

// fetchAndParse downloads the document and builds the labelled polygons
func (l *Loader) fetchAndParse(ctx context.Context) (*geojson.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip error: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	rawData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	src, err := geojson.UnmarshalFeatureCollection(rawData)
	if err != nil {
		return nil, fmt.Errorf("geojson parse error: %w", err)
	}

	return l.extractPolygons(src), nil
}

// extractPolygons keeps polygonal features and attaches their labels
func (l *Loader) extractPolygons(src *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	skipped := 0

	for _, f := range src.Features {
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			skipped++
			continue
		}

		props := geojson.Properties{}
		for k, v := range f.Properties {
			props[k] = v
		}
		if label := Label(f.Properties, l.labelKeys); label != "" {
			props[LabelProperty] = label
		}

		polygon := geojson.NewFeature(f.Geometry)
		polygon.ID = f.ID
		polygon.Properties = props
		out.Append(polygon)
	}

	if skipped > 0 {
		l.log.Debug("skipped non-polygon border features", zap.Int("count", skipped))
	}
	return out
}

// Label returns the first non-empty string value among keys, or "" when
// none of them is present.
func Label(props geojson.Properties, keys []string) string {
	for _, k := range keys {
		if s, ok := props[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
