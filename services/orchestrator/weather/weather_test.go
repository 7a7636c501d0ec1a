// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/factlens/factlens/services/orchestrator/datatypes"
	"github.com/factlens/factlens/services/orchestrator/geocode"
)

const geocodeHit = `[{
	"display_name": "Hanoi, Vietnam",
	"lat": "21.0285",
	"lon": "105.8542",
	"namedetails": {"name:en": "Hanoi"}
}]`

// UTC+7, matching Vietnamese cities.
const tzOffsetSeconds = 25200

// newTestProvider stands up a geocoder stub and an OpenWeatherMap stub
// and builds a Provider against them.
func newTestProvider(t *testing.T, owmHandler http.HandlerFunc) *Provider {
	t.Helper()

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geocodeHit))
	}))
	t.Cleanup(nominatim.Close)
	t.Setenv("GEOCODE_ENDPOINT", nominatim.URL)

	owm := httptest.NewServer(owmHandler)
	t.Cleanup(owm.Close)
	t.Setenv("OWM_API_KEY", "test-key")
	t.Setenv("OWM_BASE_URL", owm.URL)

	p, err := NewProvider(geocode.NewResolver())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	return p
}

func TestNewProvider_MissingKey(t *testing.T) {
	t.Setenv("OWM_API_KEY", "")
	if _, err := NewProvider(geocode.NewResolver()); err == nil {
		t.Error("NewProvider() = nil error without an API key")
	}
}

// =============================================================================
// Current
// =============================================================================

func TestCurrent(t *testing.T) {
	// 18:30 UTC on Aug 24 is 01:30 on Aug 25 in a UTC+7 city.
	dt := time.Date(2026, 8, 24, 18, 30, 0, 0, time.UTC).Unix()
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/weather" {
			t.Errorf("path = %q, want /data/2.5/weather", r.URL.Path)
		}
		if r.URL.Query().Get("appid") != "test-key" || r.URL.Query().Get("units") != "metric" {
			t.Errorf("query = %v, want appid and metric units", r.URL.Query())
		}
		fmt.Fprintf(w, `{
			"weather": [{"main": "Rain", "description": "light rain"}],
			"main": {"temp": 31.4, "feels_like": 36.2, "humidity": 78},
			"wind": {"speed": 3.1},
			"dt": %d,
			"timezone": %d,
			"name": "Hanoi"
		}`, dt, tzOffsetSeconds)
	})

	reading, err := p.Current(context.Background(), "Hanoi")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if reading.Location != "Hanoi" {
		t.Errorf("Location = %q, want Hanoi", reading.Location)
	}
	if reading.Date != "2026-08-25" || reading.Time != "01:30" {
		t.Errorf("local stamp = %s %s, want 2026-08-25 01:30", reading.Date, reading.Time)
	}
	if reading.TemperatureC != 31.4 || reading.HumidityPct != 78 {
		t.Errorf("reading = %+v, want temp 31.4 / humidity 78", reading)
	}
	if reading.Description != "light rain" || reading.MainCategory != "Rain" {
		t.Errorf("conditions = %q/%q", reading.Description, reading.MainCategory)
	}
	if reading.Source != "openweathermap" {
		t.Errorf("Source = %q", reading.Source)
	}
}

func TestCurrent_EmptyCity(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be queried for an empty city")
	})
	if _, err := p.Current(context.Background(), ""); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("error = %v, want ErrInvalidLocation", err)
	}
}

func TestCurrent_UnresolvableCity(t *testing.T) {
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(nominatim.Close)
	t.Setenv("GEOCODE_ENDPOINT", nominatim.URL)
	t.Setenv("OWM_API_KEY", "test-key")

	p, err := NewProvider(geocode.NewResolver())
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if _, err := p.Current(context.Background(), "Atlantis"); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("error = %v, want ErrInvalidLocation", err)
	}
}

func TestCurrent_NotFoundIsNoData(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := p.Current(context.Background(), "Hanoi"); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

// =============================================================================
// Forecast
// =============================================================================

func forecastEntry(localHour int, day time.Time, temp float64) string {
	dt := day.Add(time.Duration(localHour)*time.Hour - tzOffsetSeconds*time.Second).Unix()
	return fmt.Sprintf(`{
		"dt": %d,
		"main": {"temp": %v, "feels_like": %v, "humidity": 70},
		"weather": [{"main": "Clouds", "description": "scattered clouds"}],
		"wind": {"speed": 2.0}
	}`, dt, temp, temp)
}

func TestForecast_PicksDaypartWindow(t *testing.T) {
	target := time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour)
	targetDate := target.Format("2006-01-02")
	list := strings.Join([]string{
		forecastEntry(9, target, 30),  // morning, outside the window
		forecastEntry(15, target, 34), // afternoon hit
		forecastEntry(21, target, 28),
	}, ",")

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/2.5/forecast" {
			t.Errorf("path = %q, want /data/2.5/forecast", r.URL.Path)
		}
		fmt.Fprintf(w, `{"list": [%s], "city": {"name": "Hanoi", "timezone": %d}}`, list, tzOffsetSeconds)
	})

	reading, err := p.Forecast(context.Background(), "Hanoi", targetDate, datatypes.PartOfDayAfternoon)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if reading.TemperatureC != 34 {
		t.Errorf("TemperatureC = %v, want the 15:00 entry (34)", reading.TemperatureC)
	}
	if reading.Date != targetDate {
		t.Errorf("Date = %q, want %q", reading.Date, targetDate)
	}
}

func TestForecast_NoDaypartTakesFirstOnDate(t *testing.T) {
	target := time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour)
	list := strings.Join([]string{
		forecastEntry(9, target, 30),
		forecastEntry(15, target, 34),
	}, ",")

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"list": [%s], "city": {"timezone": %d}}`, list, tzOffsetSeconds)
	})

	reading, err := p.Forecast(context.Background(), "Hanoi", target.Format("2006-01-02"), "")
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if reading.TemperatureC != 30 {
		t.Errorf("TemperatureC = %v, want the first entry on the date (30)", reading.TemperatureC)
	}
}

func TestForecast_FallsBackToSoonestFuture(t *testing.T) {
	now := time.Now().UTC()
	past := forecastEntry(0, now.Add(-6*time.Hour).Truncate(time.Hour), 20)
	future := forecastEntry(0, now.Add(6*time.Hour).Truncate(time.Hour), 26)

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"list": [%s, %s], "city": {"timezone": 0}}`, past, future)
	})

	// No entry matches this date, so the soonest future entry wins.
	reading, err := p.Forecast(context.Background(), "Hanoi", "1999-01-01", datatypes.PartOfDayMorning)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if reading.TemperatureC != 26 {
		t.Errorf("TemperatureC = %v, want the future entry (26)", reading.TemperatureC)
	}
}

func TestForecast_EmptyList(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"list": [], "city": {}}`)
	})
	if _, err := p.Forecast(context.Background(), "Hanoi", "2026-08-25", ""); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

// =============================================================================
// Historical
// =============================================================================

func TestHistorical(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	wantDt := day.Add(12 * time.Hour).Unix()

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/data/3.0/onecall/timemachine" {
			t.Errorf("path = %q, want the timemachine endpoint", r.URL.Path)
		}
		if got := r.URL.Query().Get("dt"); got != fmt.Sprint(wantDt) {
			t.Errorf("dt = %s, want noon UTC (%d)", got, wantDt)
		}
		fmt.Fprintf(w, `{
			"timezone_offset": %d,
			"data": [{
				"dt": %d,
				"temp": 29.5,
				"feels_like": 33.0,
				"humidity": 80,
				"wind_speed": 1.5,
				"weather": [{"main": "Clear", "description": "clear sky"}]
			}]
		}`, tzOffsetSeconds, wantDt)
	})

	reading, err := p.Historical(context.Background(), "Hanoi", "2024-03-15")
	if err != nil {
		t.Fatalf("Historical() error = %v", err)
	}
	if reading.Date != "2024-03-15" || reading.Time != "19:00" {
		t.Errorf("local stamp = %s %s, want 2024-03-15 19:00", reading.Date, reading.Time)
	}
	if reading.TemperatureC != 29.5 || reading.WindMS != 1.5 {
		t.Errorf("reading = %+v", reading)
	}
}

func TestHistorical_DateRequired(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be queried without a date")
	})
	if _, err := p.Historical(context.Background(), "Hanoi", ""); !errors.Is(err, ErrHistoricalDateRequired) {
		t.Errorf("error = %v, want ErrHistoricalDateRequired", err)
	}
}

func TestHistorical_InvalidDate(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be queried for a malformed date")
	})
	if _, err := p.Historical(context.Background(), "Hanoi", "15/03/2024"); err == nil {
		t.Error("expected error for malformed date")
	}
}

// =============================================================================
// Helpers
// =============================================================================

func TestInWindow(t *testing.T) {
	tests := []struct {
		hour int
		part datatypes.PartOfDay
		want bool
	}{
		{6, datatypes.PartOfDayMorning, true},
		{11, datatypes.PartOfDayMorning, true},
		{12, datatypes.PartOfDayMorning, false}, // end is exclusive
		{12, datatypes.PartOfDayAfternoon, true},
		{19, datatypes.PartOfDayEvening, true},
		{19, datatypes.PartOfDayNight, false},
		{22, datatypes.PartOfDayNight, true},
		{3, "", true},
		{3, datatypes.PartOfDay("dawn"), true}, // unknown part never filters
	}

	for _, tt := range tests {
		if got := inWindow(tt.hour, tt.part); got != tt.want {
			t.Errorf("inWindow(%d, %q) = %v, want %v", tt.hour, tt.part, got, tt.want)
		}
	}
}

func TestFormatCoord(t *testing.T) {
	if got := formatCoord(21.0285); got != "21.0285" {
		t.Errorf("formatCoord() = %q", got)
	}
	if got := formatCoord(105.85); got != "105.8500" {
		t.Errorf("formatCoord() = %q, want fixed 4 decimals", got)
	}
}
