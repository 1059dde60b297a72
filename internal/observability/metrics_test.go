package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCityLabel(t *testing.T) {
	SetTrackedCities([]string{"Mumbai", " Delhi ", "bangalore"})
	defer SetTrackedCities(nil)

	tests := []struct {
		in   string
		want string
	}{
		{"mumbai", "mumbai"},
		{"Mumbai", "mumbai"},
		{"  Delhi", "delhi"},
		{"Bangalore", "bangalore"},
		{"Paris", "other"},
		{"", "other"},
	}
	for _, tc := range tests {
		if got := CityLabel(tc.in); got != tc.want {
			t.Errorf("CityLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCityLabelWithoutAllowList(t *testing.T) {
	SetTrackedCities(nil)
	if got := CityLabel("mumbai"); got != "other" {
		t.Fatalf("CityLabel with empty allow-list = %q, want other", got)
	}
}

func TestMetricsHandlerServesRegistry(t *testing.T) {
	RecordResearchQuery()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	MetricsHandler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("metrics endpoint status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "queriesTotal") {
		t.Error("metrics output missing queriesTotal")
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("metrics output missing runtime collector series")
	}
}
