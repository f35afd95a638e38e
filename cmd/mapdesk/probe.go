package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mapdesk/internal/borders"
	"mapdesk/internal/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode [place]",
	Short: "Resolve a place name the way the search box does",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGeocode,
}

var bordersCmd = &cobra.Command{
	Use:   "borders",
	Short: "Fetch the country-border document and list its labels",
	RunE:  runBorders,
}

func init() {
	geocodeCmd.Flags().Bool("json", false, "output the match as JSON")
	bordersCmd.Flags().Int("limit", 15, "number of labels to print")
	rootCmd.AddCommand(geocodeCmd, bordersCmd)
}

func runGeocode(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	query := strings.Join(args, " ")

	client := geocode.NewClient(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout, log.Named("geocode"))
	place, err := client.Search(context.Background(), query)
	if err != nil {
		return err
	}
	if place == nil {
		fmt.Println("Not found")
		return nil
	}

	if jsonOutput {
		out := map[string]any{
			"lat":          place.Lat(),
			"lon":          place.Lon(),
			"display_name": place.DisplayName,
		}
		if b := place.BoundingBox; b != nil {
			out["boundingbox"] = []float64{b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon()}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("%s\n  at (%.4f, %.4f)\n", place.DisplayName, place.Lat(), place.Lon())
	if b := place.BoundingBox; b != nil {
		fmt.Printf("  bounds south=%.4f north=%.4f west=%.4f east=%.4f\n", b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon())
	}
	return nil
}

func runBorders(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	limit, _ := cmd.Flags().GetInt("limit")

	loader := borders.NewLoader(cfg.Borders.URL, cfg.Borders.UserAgent, cfg.Borders.LabelKeys, cfg.Borders.Timeout, log.Named("borders"))
	overlay, err := loader.Load(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("=== Polygons: %d ===\n", overlay.Len())
	unlabelled := 0
	for i, f := range overlay.Features.Features {
		label, ok := f.Properties[borders.LabelProperty].(string)
		if !ok {
			unlabelled++
			continue
		}
		if i < limit {
			fmt.Printf("  %s (%s)\n", label, f.Geometry.GeoJSONType())
		}
	}
	fmt.Printf("\n=== Unlabelled: %d ===\n", unlabelled)
	return nil
}
