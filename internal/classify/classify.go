package classify

import (
	"regexp"
	"strings"
	"unicode"
)

// weatherKeywords triggers the weather path when any appears in the query.
var weatherKeywords = []string{
	"weather", "temperature", "cloudy", "rainy", "sunny", "forecast", "climate",
}

// locationPatterns are tried in order against the lower-cased query.
// First capture group is the location phrase.
var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:weather|temperature)\s+(?:in|at|for)\s+([\w\s]+)`),
	regexp.MustCompile(`(?:forecast|climate)\s+(?:in|at|for)\s+([\w\s]+)`),
}

// temporalWords are stripped from the tail of an extracted location phrase.
var temporalWords = regexp.MustCompile(`\b(today|tomorrow|now)\b`)

// cityKeywords maps bare city mentions to canonical names when no
// pattern matched.
var cityKeywords = []struct {
	keyword string
	city    string
}{
	{"mumbai", "Mumbai"},
	{"delhi", "Delhi"},
	{"bangalore", "Bangalore"},
	{"new york", "New York"},
}

// DefaultCity is returned when no location can be extracted from a query.
const DefaultCity = "Mumbai"

// IsWeatherQuery reports whether the query should take the weather path.
// Pure substring check over the lower-cased text.
func IsWeatherQuery(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range weatherKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// ExtractLocation guesses a location name from free query text. Tries the
// location patterns in order, strips trailing temporal words, and
// title-cases the result. Falls back to the city keyword map, then to
// DefaultCity. Always returns a non-empty string.
func ExtractLocation(query string) string {
	q := strings.ToLower(query)

	for _, pattern := range locationPatterns {
		m := pattern.FindStringSubmatch(q)
		if m == nil {
			continue
		}
		location := strings.TrimSpace(m[1])
		location = strings.TrimSpace(temporalWords.ReplaceAllString(location, ""))
		if location != "" {
			return titleCase(location)
		}
	}

	for _, ck := range cityKeywords {
		if strings.Contains(q, ck.keyword) {
			return ck.city
		}
	}
	return DefaultCity
}

// titleCase upper-cases the first rune of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
