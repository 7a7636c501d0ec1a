// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command weatherctl looks up one weather reading and prints it as JSON.
//
// The orchestrator shells out to this binary (via WEATHER_CLI_PATH) when
// the weather API is unreachable, so the output shape matches the
// service's normalized reading exactly. It is also handy on its own:
//
//	weatherctl --city "Hanoi"
//	weatherctl --city "Da Nang" --mode future --relative 2
//	weatherctl --city "London" --mode historical --date 2026-08-20
//
// # Environment Variables
//
//   - OWM_API_KEY: OpenWeatherMap API key (required)
//   - GEOCODE_ENDPOINT: Nominatim-compatible geocoder (optional)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/factlens/factlens/pkg/validation"
	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/geocode"
	"github.com/factlens/factlens/services/orchestrator/weather"
)

var (
	flagCity     string
	flagMode     string
	flagRelative int
	flagDate     string
	flagPart     string
)

var rootCmd = &cobra.Command{
	Use:   "weatherctl",
	Short: "Look up a weather reading and print it as JSON",
	RunE:  runLookup,

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&flagCity, "city", "", "city name (required)")
	rootCmd.Flags().StringVar(&flagMode, "mode", "present", "present, future, or historical")
	rootCmd.Flags().IntVar(&flagRelative, "relative", 0, "day offset from today (e.g. 1 for tomorrow, -1 for yesterday)")
	rootCmd.Flags().StringVar(&flagDate, "date", "", "target date as YYYY-MM-DD")
	rootCmd.Flags().StringVar(&flagPart, "part", "", "daypart: morning, afternoon, evening, or night")
	_ = rootCmd.MarkFlagRequired("city")
}

func runLookup(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateCityName(flagCity); err != nil {
		return err
	}
	if err := validation.ValidateISODate(flagDate); err != nil {
		return err
	}
	switch flagMode {
	case "present", "future", "historical":
	default:
		return fmt.Errorf("invalid mode %q (must be present, future, or historical)", flagMode)
	}

	provider, err := weather.NewProvider(geocode.NewResolver())
	if err != nil {
		return err
	}

	date := flagDate
	if date == "" && flagRelative != 0 {
		date = time.Now().UTC().AddDate(0, 0, flagRelative).Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var reading *datatypes.WeatherReading
	switch flagMode {
	case "historical":
		reading, err = provider.Historical(ctx, flagCity, date)
	case "future":
		reading, err = provider.Forecast(ctx, flagCity, date, datatypes.PartOfDay(flagPart))
	default:
		reading, err = provider.Current(ctx, flagCity)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reading)
}

// writeError prints one JSON error object so failures stay as
// machine-readable as successes for the calling process.
func writeError(w io.Writer, err error) {
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func main() {
	// Logs go to stderr so stdout stays parseable JSON.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := rootCmd.Execute(); err != nil {
		writeError(os.Stderr, err)
		os.Exit(1)
	}
}
