package weather

import (
	"fmt"
	"strings"

	"github.com/kjstillabower/agent-dashboard/internal/models"
)

// realisticTemps supplies a plausible Celsius reading per city when search
// text yielded no usable temperature. Not live data.
var realisticTemps = map[string]int{
	"mumbai":    27,
	"delhi":     32,
	"bangalore": 24,
	"chennai":   30,
	"new york":  22,
	"london":    16,
}

const defaultRealisticTemp = 25

// fallbackEntry is a static per-city record used when live lookup fails
// entirely.
type fallbackEntry struct {
	tempC     int
	tempF     int
	condition string
	humidity  string
	wind      string
	icon      string
}

var fallbackTable = map[string]fallbackEntry{
	"mumbai":    {27, 81, "Light Rain", "89%", "10 km/h", "🌧️"},
	"delhi":     {32, 90, "Hazy", "75%", "8 km/h", "🌫️"},
	"bangalore": {24, 75, "Pleasant", "70%", "5 km/h", "🌤️"},
}

const fallbackDefaultCity = "mumbai"

// RealisticTemp returns a plausible Celsius temperature for the location.
func RealisticTemp(location string) int {
	if t, ok := realisticTemps[strings.ToLower(strings.TrimSpace(location))]; ok {
		return t
	}
	return defaultRealisticTemp
}

// Fallback builds a WeatherReport from the static table. Unknown cities get
// the default city's values with the requested location name. reason is
// kept on the record for diagnostics; the same location and reason always
// produce the same report.
func Fallback(location, reason string) models.WeatherReport {
	entry, ok := fallbackTable[strings.ToLower(strings.TrimSpace(location))]
	if !ok {
		entry = fallbackTable[fallbackDefaultCity]
	}
	return models.WeatherReport{
		Location:       titleWords(location),
		TemperatureC:   entry.tempC,
		TemperatureF:   entry.tempF,
		Condition:      entry.condition,
		Icon:           entry.icon,
		Description:    fmt.Sprintf("%d°C (%d°F), %s", entry.tempC, entry.tempF, entry.condition),
		Humidity:       entry.humidity,
		Wind:           entry.wind,
		Source:         "Static Fallback",
		FallbackReason: reason,
		Error:          false,
	}
}

func titleWords(s string) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
