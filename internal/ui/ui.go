// Package ui serves the single-page dashboard. The page is rendered once
// from an embedded template; all interaction happens through fetch calls
// to the JSON API.
package ui

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// Dashboard renders the query page.
type Dashboard struct {
	tmpl   *template.Template
	logger *zap.Logger
}

// PageData carries template values for one render.
type PageData struct {
	ServiceName    string
	ExampleQueries []string
}

// NewDashboard parses the embedded template. Fails only when the embedded
// asset is broken, which a test catches at build time.
func NewDashboard(logger *zap.Logger) (*Dashboard, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, err
	}
	return &Dashboard{tmpl: tmpl, logger: logger}, nil
}

// ServeHTTP renders the dashboard page.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := PageData{
		ServiceName: "Agent Dashboard",
		ExampleQueries: []string{
			"weather in Mumbai today",
			"temperature in Tokyo",
			"what are the latest developments in fusion energy",
			"explain how vector databases work",
		},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.tmpl.Execute(w, data); err != nil && d.logger != nil {
		d.logger.Error("dashboard render failed", zap.Error(err))
	}
}
