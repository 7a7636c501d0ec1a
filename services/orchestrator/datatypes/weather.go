// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// WeatherReading is a normalized observation or forecast for one city at
// one point in time. Date and Time are expressed in the target city's
// local timezone, derived from the provider's timezone offset for that
// location.
type WeatherReading struct {
	Location     string  `json:"location"`
	Date         string  `json:"date"` // YYYY-MM-DD, local
	Time         string  `json:"time"` // HH:MM, local
	TemperatureC float64 `json:"temperature_c"`
	FeelsLikeC   float64 `json:"feels_like_c"`
	Description  string  `json:"description"`
	MainCategory string  `json:"main_category"`
	HumidityPct  int     `json:"humidity_pct"`
	WindMS       float64 `json:"wind_ms"`
	Source       string  `json:"source"`
}
