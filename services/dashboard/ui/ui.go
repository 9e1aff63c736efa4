// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ui embeds the dashboard page.
//
// The page is two side-by-side panels, each a title, a radio selector and a
// chart region. Figures are fetched from the chart API and drawn with
// Plotly in the browser.
package ui

import (
	"embed"
	"html/template"

	"github.com/AleutianAI/dietdash/services/dashboard/observability"
	"github.com/AleutianAI/dietdash/services/dashboard/panels"
)

// PageTemplate is the name of the dashboard page template.
const PageTemplate = "index.html"

//go:embed templates/*.html
var templates embed.FS

// Templates parses the embedded page templates for gin's SetHTMLTemplate.
func Templates() (*template.Template, error) {
	return template.ParseFS(templates, "templates/*.html")
}

// Panel is one panel as rendered by the page.
type Panel struct {
	Title      string
	SelectorID string
	ChartID    string
	Options    []string
	Selected   string
}

// Page is the data for PageTemplate.
type Page struct {
	Title   string
	APIBase string
	Panels  []Panel
}

// NewPage lays out the two panels from the selector options.
func NewPage(opts panels.Options, apiBase string) Page {
	return Page{
		Title:   "Diet Impact Dashboard",
		APIBase: apiBase,
		Panels: []Panel{
			{
				Title:      panels.SunburstTitle,
				SelectorID: panels.MetricSelectorID,
				ChartID:    string(observability.PanelSunburst),
				Options:    opts.Metrics,
				Selected:   opts.DefaultMetric,
			},
			{
				Title:      panels.ChoroplethTitle,
				SelectorID: panels.DietSelectorID,
				ChartID:    string(observability.PanelChoropleth),
				Options:    opts.Diets,
				Selected:   opts.DefaultDiet,
			},
		},
	}
}
