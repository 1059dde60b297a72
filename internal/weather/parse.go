package weather

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// tempPatterns match Celsius readings in search-result text, tried in order.
var tempPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)°c`),
	regexp.MustCompile(`(\d+)° celsius`),
	regexp.MustCompile(`temperature.*?(\d+)°`),
	regexp.MustCompile(`currently.*?(\d+)°`),
}

// Plausible Celsius range. Search pages mix in Fahrenheit readings and
// unrelated numbers; anything outside this band is discarded.
const (
	minPlausibleC = 10
	maxPlausibleC = 50
)

// maxAveraged caps how many accepted readings contribute to the average.
const maxAveraged = 3

// conditionTable maps substrings of search text to display labels.
// Ordered so that compound labels win over their substrings
// ("partly cloudy" before "cloudy", "light rain" before "rain").
var conditionTable = []struct {
	keyword string
	label   string
}{
	{"partly cloudy", "Partly Cloudy"},
	{"light rain", "Light Rain"},
	{"thunderstorm", "Thunderstorm"},
	{"drizzle", "Drizzling"},
	{"overcast", "Overcast"},
	{"cloudy", "Cloudy"},
	{"sunny", "Sunny"},
	{"clear", "Clear"},
	{"rain", "Rainy"},
	{"mist", "Misty"},
}

// DefaultCondition is used when no condition keyword appears in the text.
const DefaultCondition = "Partly Cloudy"

var conditionIcons = map[string]string{
	"Clear":         "☀️",
	"Sunny":         "☀️",
	"Partly Cloudy": "⛅",
	"Cloudy":        "☁️",
	"Rainy":         "🌧️",
	"Light Rain":    "🌧️",
}

const defaultIcon = "🌤️"

// ParseTemperatureC extracts a Celsius temperature from free search text.
// Collects matches from all patterns over the lower-cased text, keeps only
// plausible readings, and averages the first three accepted. Returns
// ok=false when nothing plausible was found.
func ParseTemperatureC(text string) (int, bool) {
	lower := strings.ToLower(text)

	var accepted []int
	for _, pattern := range tempPatterns {
		for _, m := range pattern.FindAllStringSubmatch(lower, -1) {
			v, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if v < minPlausibleC || v > maxPlausibleC {
				continue
			}
			accepted = append(accepted, v)
		}
	}
	if len(accepted) == 0 {
		return 0, false
	}

	n := len(accepted)
	if n > maxAveraged {
		n = maxAveraged
	}
	sum := 0
	for _, v := range accepted[:n] {
		sum += v
	}
	return int(math.Round(float64(sum) / float64(n))), true
}

// ExtractCondition derives a display condition from search text by ordered
// substring match, defaulting to DefaultCondition.
func ExtractCondition(text string) string {
	lower := strings.ToLower(text)
	for _, c := range conditionTable {
		if strings.Contains(lower, c.keyword) {
			return c.label
		}
	}
	return DefaultCondition
}

// IconFor returns the display icon for a condition label.
func IconFor(condition string) string {
	if icon, ok := conditionIcons[condition]; ok {
		return icon
	}
	return defaultIcon
}

// CelsiusToFahrenheit converts and rounds to the nearest degree.
func CelsiusToFahrenheit(c int) int {
	return int(math.Round(float64(c)*9/5 + 32))
}
