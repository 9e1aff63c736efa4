// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config reads the dashboard's optional YAML configuration file.
package config

import (
	"github.com/AleutianAI/dietdash/services/dashboard/telemetry"
)

// DefaultPort is the HTTP port used when none is configured.
const DefaultPort = 8000

// Config is the on-disk configuration. Every key is optional; missing keys
// keep the value from DefaultConfig.
type Config struct {
	Port      int             `yaml:"port" validate:"min=1,max=65535"`
	Debug     bool            `yaml:"debug"`
	Data      DataConfig      `yaml:"data"`
	UI        UIConfig        `yaml:"ui"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

// DataConfig holds the input file paths, relative to the working directory
// unless absolute.
type DataConfig struct {
	Respondents   string `yaml:"respondents" validate:"required"`
	Supplementary string `yaml:"supplementary" validate:"required"`
	Proportions   string `yaml:"proportions" validate:"required"`
	Boundaries    string `yaml:"boundaries" validate:"required"`
}

// UIConfig controls the initial page state and the map rendering.
type UIConfig struct {
	DefaultDiet   string  `yaml:"default_diet" validate:"required"`
	EmbedGeometry bool    `yaml:"embed_geometry"`
	ColorRangeMin float64 `yaml:"color_range_min" validate:"gte=0"`
	ColorRangeMax float64 `yaml:"color_range_max" validate:"gtfield=ColorRangeMin"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`
	OTLPEndpoint   string `yaml:"otlp_endpoint" validate:"omitempty,hostname_port"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
}

// HTTPConfig limits the chart endpoints. A RateLimit of 0 disables limiting.
type HTTPConfig struct {
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" validate:"gte=1"`
}

// LogConfig controls log output. An empty Dir disables the log file.
type LogConfig struct {
	Dir  string `yaml:"dir"`
	JSON bool   `yaml:"json"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Port: DefaultPort,
		Data: DataConfig{
			Respondents:   "data.csv",
			Supplementary: "supple_agg_df.xlsx",
			Proportions:   "dietary_data_proportioned.xlsx",
			Boundaries:    "naturalearth_lowres.geojson",
		},
		UI: UIConfig{
			DefaultDiet:   "Vegans",
			ColorRangeMin: 0,
			ColorRangeMax: 200,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterPrometheus,
			OTLPEndpoint:   "localhost:4317",
			OTLPInsecure:   true,
		},
		HTTP: HTTPConfig{
			RateLimit: 0,
			RateBurst: 5,
		},
	}
}
