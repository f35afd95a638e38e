//go:build cgo

package app

import (
	"runtime"

	webview "github.com/webview/webview_go"

	"mapdesk/internal/config"
)

// runWindow hosts url in a single native webview window and blocks until
// it is closed. Must run on the main OS thread.
func runWindow(cfg config.Window, url string) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	w := webview.New(cfg.Debug)
	defer w.Destroy()

	w.SetTitle(cfg.Title)
	w.SetSize(cfg.Width, cfg.Height, webview.HintNone)
	w.Navigate(url)
	w.Run()
	return nil
}
