package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mapdesk/internal/app"
	"mapdesk/internal/config"
	"mapdesk/internal/logs"
)

// The native window must be driven from the main OS thread
func init() {
	runtime.LockOSThread()
}

var (
	cfgFile string
	verbose bool
	browser bool
	addr    string
)

var rootCmd = &cobra.Command{
	Use:   "mapdesk",
	Short: "Desktop world map with place search",
	Long: `mapdesk opens a window showing a dark world map with city markers,
optional country borders and road tiles, and a search box that geocodes
place names and moves the map to them.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := app.ModeWindow
		if browser {
			mode = app.ModeBrowser
		}
		return run(mode)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the map document without opening a window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(app.ModeHeadless)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "mapdesk.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "document server address (overrides config)")
	rootCmd.Flags().BoolVar(&browser, "browser", false, "open the map in the system browser instead of a window")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, logs.New("mapdesk", cfg.Log), nil
}

func run(mode app.Mode) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer application.Cleanup()

	return application.Run(mode)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
