package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skratchdot/open-golang/open"
	"go.uber.org/zap"

	"mapdesk/internal/borders"
	"mapdesk/internal/config"
	"mapdesk/internal/controller"
	"mapdesk/internal/geocode"
	"mapdesk/internal/server"
	"mapdesk/internal/tileserver"
	"mapdesk/pkg/tiles"
)

// Mode selects where the document is shown
type Mode int

const (
	// ModeWindow hosts the document in a native webview window
	ModeWindow Mode = iota
	// ModeBrowser opens the document in the system browser
	ModeBrowser
	// ModeHeadless only serves the document
	ModeHeadless
)

type App struct {
	cfg *config.Config
	log *zap.Logger

	loader     *borders.Loader
	geocoder   *geocode.Client
	controller *controller.Controller
	server     *server.Server

	url    string
	ctx    context.Context
	cancel context.CancelFunc
}

// New wires the controller, border loader and document server, and starts
// serving. Border loading starts immediately in the background.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	app.geocoder = geocode.NewClient(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout, log.Named("geocode"))
	app.loader = borders.NewLoader(cfg.Borders.URL, cfg.Borders.UserAgent, cfg.Borders.LabelKeys, cfg.Borders.Timeout, log.Named("borders"))

	basemap, roads := cfg.Tiles.Basemap, cfg.Tiles.Roads
	var tileHandler http.Handler
	if cfg.Tiles.Proxy {
		proxy := tileserver.NewProxy(map[string]tiles.Source{
			"basemap": basemap,
			"roads":   roads,
		}, cfg.Tiles.UserAgent, log.Named("tiles"))
		basemap = proxy.Local(server.TilesPrefix, "basemap")
		roads = proxy.Local(server.TilesPrefix, "roads")
		tileHandler = proxy.Routes()
	}

	app.controller = controller.New(controller.Options{
		Basemap:        basemap,
		Roads:          roads,
		SearchMaxZoom:  cfg.Geocoder.MaxZoom,
		ViewportWidth:  cfg.Window.Width,
		ViewportHeight: cfg.Window.Height,
	}, app.geocoder, app.loader, log.Named("controller"))

	app.server = server.New(app.controller, server.Options{
		Addr:            cfg.Server.Addr,
		AllowAllOrigins: cfg.Server.AllowAllOrigins,
		Tiles:           tileHandler,
	}, log.Named("server"))

	url, err := app.server.Start()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("document server: %w", err)
	}
	app.url = url

	app.loader.Start(ctx, cfg.Borders.RefreshDelay)

	return app, nil
}

// Run shows the document and blocks until the window closes or, for the
// browser and headless modes, until the process is interrupted.
func (app *App) Run(mode Mode) error {
	switch mode {
	case ModeWindow:
		app.log.Info("opening window",
			zap.String("title", app.cfg.Window.Title),
			zap.Int("width", app.cfg.Window.Width),
			zap.Int("height", app.cfg.Window.Height))
		return runWindow(app.cfg.Window, app.url)
	case ModeBrowser:
		if err := open.Run(app.url); err != nil {
			return fmt.Errorf("open browser: %w", err)
		}
		app.log.Info("document opened in browser", zap.String("url", app.url))
	default:
		app.log.Info("serving headless", zap.String("url", app.url))
	}

	ctx, stop := signal.NotifyContext(app.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}

// Cleanup stops background loads and the document server
func (app *App) Cleanup() {
	app.cancel()
	app.loader.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.server.Shutdown(ctx); err != nil {
		app.log.Warn("document server shutdown", zap.Error(err))
	}
	_ = app.log.Sync()
}
