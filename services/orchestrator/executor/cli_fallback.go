// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
)

// CLIFallback shells out to the local weather helper binary when the
// weather API is unreachable. The helper prints one JSON object in the
// WeatherReading shape.
type CLIFallback struct {
	binary string
}

// NewCLIFallback reads WEATHER_CLI_PATH; empty disables the fallback
// (returns nil, which the executor treats as absent).
func NewCLIFallback() *CLIFallback {
	path := os.Getenv("WEATHER_CLI_PATH")
	if path == "" {
		slog.Info("WEATHER_CLI_PATH not set, weather CLI fallback disabled")
		return nil
	}
	return &CLIFallback{binary: path}
}

// Lookup implements the WeatherFallback interface.
func (c *CLIFallback) Lookup(ctx context.Context, params datatypes.WeatherParams) (*datatypes.WeatherReading, error) {
	args := []string{"--city", params.CityCanonical}

	mode := "present"
	switch {
	case params.DaysAhead != nil && *params.DaysAhead < 0:
		mode = "historical"
	case params.DaysAhead != nil && *params.DaysAhead > 0:
		mode = "future"
	}
	args = append(args, "--mode", mode)
	if params.DaysAhead != nil {
		args = append(args, "--relative", strconv.Itoa(*params.DaysAhead))
	}
	if params.Date != "" {
		args = append(args, "--date", params.Date)
	}

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("weather CLI failed: %w (stderr: %s)", err, stderr.String())
	}

	var reading datatypes.WeatherReading
	if err := json.Unmarshal(stdout.Bytes(), &reading); err != nil {
		return nil, fmt.Errorf("decoding weather CLI output: %w", err)
	}
	if reading.Location == "" && reading.Description == "" {
		return nil, fmt.Errorf("weather CLI returned an empty reading")
	}
	return &reading, nil
}
