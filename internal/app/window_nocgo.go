//go:build !cgo

package app

import (
	"errors"

	"mapdesk/internal/config"
)

// runWindow needs the system webview, which is only reachable through cgo
func runWindow(cfg config.Window, url string) error {
	return errors.New("native window unavailable in a build without cgo; use --browser or serve")
}
