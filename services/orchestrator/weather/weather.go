// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package weather adapts an OpenWeatherMap-shaped API into normalized
// Readings. Timestamps are converted to the target city's local timezone
// using the offset the provider reports, never a fixed zone.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/geocode"
)

var tracer = otel.Tracer("factlens.orchestrator.weather")

// Sentinel failures the executor translates into L1 statuses.
var (
	ErrInvalidLocation        = errors.New("location could not be resolved")
	ErrHistoricalDateRequired = errors.New("historical weather requires a date")
	ErrNoData                 = errors.New("provider returned no data")
)

const owmDefaultBaseURL = "https://api.openweathermap.org"

// Part-of-day selection windows in local hours, [start, end).
var partOfDayWindows = map[datatypes.PartOfDay][2]int{
	datatypes.PartOfDayMorning:   {6, 12},
	datatypes.PartOfDayAfternoon: {12, 18},
	datatypes.PartOfDayEvening:   {18, 24},
	datatypes.PartOfDayNight:     {20, 24},
}

// Provider issues current, forecast, and historical weather queries.
type Provider struct {
	baseURL    string
	apiKey     string
	resolver   *geocode.Resolver
	httpClient *http.Client
}

// NewProvider reads OWM_API_KEY (or the container secret) and
// OWM_BASE_URL. An empty key returns an error: unlike search providers,
// the weather tool has no sibling to fall back to.
func NewProvider(resolver *geocode.Resolver) (*Provider, error) {
	apiKey := os.Getenv("OWM_API_KEY")
	if apiKey == "" {
		if content, err := os.ReadFile("/run/secrets/owm_api_key"); err == nil {
			apiKey = strings.TrimSpace(string(content))
			slog.Info("Read the OpenWeatherMap API Key from container secrets")
		} else {
			return nil, fmt.Errorf("OWM_API_KEY environment variable not set")
		}
	}
	baseURL := os.Getenv("OWM_BASE_URL")
	if baseURL == "" {
		baseURL = owmDefaultBaseURL
	}
	return &Provider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		resolver:   resolver,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// =============================================================================
// Provider response shapes
// =============================================================================

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  int     `json:"humidity"`
}

type owmWind struct {
	Speed float64 `json:"speed"`
}

type owmCurrentResponse struct {
	Weather  []owmCondition `json:"weather"`
	Main     owmMain        `json:"main"`
	Wind     owmWind        `json:"wind"`
	Dt       int64          `json:"dt"`
	Timezone int            `json:"timezone"` // shift from UTC in seconds
	Name     string         `json:"name"`
}

type owmForecastResponse struct {
	List []struct {
		Dt      int64          `json:"dt"`
		Main    owmMain        `json:"main"`
		Weather []owmCondition `json:"weather"`
		Wind    owmWind        `json:"wind"`
	} `json:"list"`
	City struct {
		Name     string `json:"name"`
		Timezone int    `json:"timezone"`
	} `json:"city"`
}

type owmTimeMachineResponse struct {
	TimezoneOffset int `json:"timezone_offset"`
	Data           []struct {
		Dt        int64          `json:"dt"`
		Temp      float64        `json:"temp"`
		FeelsLike float64        `json:"feels_like"`
		Humidity  int            `json:"humidity"`
		WindSpeed float64        `json:"wind_speed"`
		Weather   []owmCondition `json:"weather"`
	} `json:"data"`
}

// =============================================================================
// Operations
// =============================================================================

// Current returns the present reading for a city.
func (p *Provider) Current(ctx context.Context, city string) (*datatypes.WeatherReading, error) {
	ctx, span := tracer.Start(ctx, "weather.Current")
	defer span.End()
	span.SetAttributes(attribute.String("weather.city", city))

	loc, err := p.resolve(ctx, city)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("lat", formatCoord(loc.Lat))
	params.Set("lon", formatCoord(loc.Lon))
	params.Set("units", "metric")
	params.Set("appid", p.apiKey)

	var resp owmCurrentResponse
	if err := p.getJSON(ctx, "/data/2.5/weather", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Weather) == 0 {
		return nil, ErrNoData
	}

	local := time.Unix(resp.Dt, 0).UTC().Add(time.Duration(resp.Timezone) * time.Second)
	return &datatypes.WeatherReading{
		Location:     loc.EnglishName,
		Date:         local.Format("2006-01-02"),
		Time:         local.Format("15:04"),
		TemperatureC: resp.Main.Temp,
		FeelsLikeC:   resp.Main.FeelsLike,
		Description:  resp.Weather[0].Description,
		MainCategory: resp.Weather[0].Main,
		HumidityPct:  resp.Main.Humidity,
		WindMS:       resp.Wind.Speed,
		Source:       "openweathermap",
	}, nil
}

// Forecast returns the reading for a target date, optionally narrowed to
// a daypart. Entry selection: first entry on the target date inside the
// daypart window (local time); failing that, the soonest future entry;
// failing that, the last entry the provider has.
func (p *Provider) Forecast(ctx context.Context, city, targetDate string, part datatypes.PartOfDay) (*datatypes.WeatherReading, error) {
	ctx, span := tracer.Start(ctx, "weather.Forecast")
	defer span.End()
	span.SetAttributes(
		attribute.String("weather.city", city),
		attribute.String("weather.target_date", targetDate),
	)

	loc, err := p.resolve(ctx, city)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("lat", formatCoord(loc.Lat))
	params.Set("lon", formatCoord(loc.Lon))
	params.Set("units", "metric")
	params.Set("appid", p.apiKey)

	var resp owmForecastResponse
	if err := p.getJSON(ctx, "/data/2.5/forecast", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.List) == 0 {
		return nil, ErrNoData
	}

	tz := time.Duration(resp.City.Timezone) * time.Second
	now := time.Now().UTC()

	pick := -1
	for i, entry := range resp.List {
		local := time.Unix(entry.Dt, 0).UTC().Add(tz)
		if local.Format("2006-01-02") != targetDate {
			continue
		}
		if !inWindow(local.Hour(), part) {
			continue
		}
		pick = i
		break
	}
	if pick < 0 {
		// Soonest future entry, else the final one.
		for i, entry := range resp.List {
			if time.Unix(entry.Dt, 0).UTC().After(now) {
				pick = i
				break
			}
		}
		if pick < 0 {
			pick = len(resp.List) - 1
		}
	}

	entry := resp.List[pick]
	if len(entry.Weather) == 0 {
		return nil, ErrNoData
	}
	local := time.Unix(entry.Dt, 0).UTC().Add(tz)
	return &datatypes.WeatherReading{
		Location:     loc.EnglishName,
		Date:         local.Format("2006-01-02"),
		Time:         local.Format("15:04"),
		TemperatureC: entry.Main.Temp,
		FeelsLikeC:   entry.Main.FeelsLike,
		Description:  entry.Weather[0].Description,
		MainCategory: entry.Weather[0].Main,
		HumidityPct:  entry.Main.Humidity,
		WindMS:       entry.Wind.Speed,
		Source:       "openweathermap",
	}, nil
}

// Historical returns the reading for a past date. The date is mandatory.
func (p *Provider) Historical(ctx context.Context, city, date string) (*datatypes.WeatherReading, error) {
	ctx, span := tracer.Start(ctx, "weather.Historical")
	defer span.End()

	if date == "" {
		return nil, ErrHistoricalDateRequired
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("invalid historical date %q: %w", date, err)
	}

	loc, err := p.resolve(ctx, city)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("lat", formatCoord(loc.Lat))
	params.Set("lon", formatCoord(loc.Lon))
	params.Set("units", "metric")
	params.Set("appid", p.apiKey)
	// Noon UTC keeps the sample inside the requested day for any offset
	// the provider reports back.
	params.Set("dt", strconv.FormatInt(day.Add(12*time.Hour).Unix(), 10))

	var resp owmTimeMachineResponse
	if err := p.getJSON(ctx, "/data/3.0/onecall/timemachine", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Weather) == 0 {
		return nil, ErrNoData
	}

	entry := resp.Data[0]
	local := time.Unix(entry.Dt, 0).UTC().Add(time.Duration(resp.TimezoneOffset) * time.Second)
	return &datatypes.WeatherReading{
		Location:     loc.EnglishName,
		Date:         local.Format("2006-01-02"),
		Time:         local.Format("15:04"),
		TemperatureC: entry.Temp,
		FeelsLikeC:   entry.FeelsLike,
		Description:  entry.Weather[0].Description,
		MainCategory: entry.Weather[0].Main,
		HumidityPct:  entry.Humidity,
		WindMS:       entry.WindSpeed,
		Source:       "openweathermap",
	}, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (p *Provider) resolve(ctx context.Context, city string) (*geocode.Location, error) {
	if city == "" {
		return nil, ErrInvalidLocation
	}
	loc := p.resolver.Resolve(ctx, city)
	if loc == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, city)
	}
	return loc, nil
}

func (p *Provider) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building weather request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("weather provider returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// inWindow reports whether a local hour falls inside a daypart window.
// No daypart means any hour matches.
func inWindow(hour int, part datatypes.PartOfDay) bool {
	if part == "" {
		return true
	}
	window, ok := partOfDayWindows[part]
	if !ok {
		return true
	}
	return hour >= window[0] && hour < window[1]
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
