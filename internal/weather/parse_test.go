package weather

import "testing"

func TestParseTemperatureC(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   int
		wantOK bool
	}{
		{
			name:   "single plausible reading",
			text:   "currently 22°c in the city",
			want:   22,
			wantOK: true,
		},
		{
			name:   "implausible reading rejected",
			text:   "it is 22°c today, felt like 75°c yesterday",
			want:   22,
			wantOK: true,
		},
		{
			name:   "averages first three accepted",
			text:   "20°c then 24°c then 28°c then 40°c",
			want:   24,
			wantOK: true,
		},
		{
			name:   "rounds average",
			text:   "20°c and 25°c",
			want:   23, // 22.5 rounds up
			wantOK: true,
		},
		{
			name:   "celsius spelled out",
			text:   "about 18° celsius with wind",
			want:   18,
			wantOK: true,
		},
		{
			name:   "temperature prefix pattern",
			text:   "the temperature reached 31° this afternoon",
			want:   31,
			wantOK: true,
		},
		{
			name:   "below range rejected",
			text:   "dropped to 5°c overnight",
			wantOK: false,
		},
		{
			name:   "no temperature at all",
			text:   "humid with a light breeze",
			wantOK: false,
		},
		{
			name:   "mixed case input",
			text:   "Currently 30°C in Mumbai",
			want:   30,
			wantOK: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseTemperatureC(tc.text)
			if ok != tc.wantOK {
				t.Fatalf("ParseTemperatureC(%q) ok = %v, want %v", tc.text, ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("ParseTemperatureC(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestExtractCondition(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"skies are partly cloudy today", "Partly Cloudy"},
		{"cloudy with showers", "Cloudy"},
		{"expect light rain this evening", "Light Rain"},
		{"heavy rain warning", "Rainy"},
		{"Sunny and warm", "Sunny"},
		{"thunderstorm approaching", "Thunderstorm"},
		{"nothing weather related here", DefaultCondition},
	}
	for _, tc := range tests {
		if got := ExtractCondition(tc.text); got != tc.want {
			t.Errorf("ExtractCondition(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		c, f int
	}{
		{0, 32},
		{27, 81},
		{32, 90},
		{16, 61},
	}
	for _, tc := range tests {
		if got := CelsiusToFahrenheit(tc.c); got != tc.f {
			t.Errorf("CelsiusToFahrenheit(%d) = %d, want %d", tc.c, got, tc.f)
		}
	}
}

func TestIconFor(t *testing.T) {
	if got := IconFor("Sunny"); got != "☀️" {
		t.Errorf("IconFor(Sunny) = %q", got)
	}
	if got := IconFor("Hazy"); got != defaultIcon {
		t.Errorf("IconFor(unknown) = %q, want default", got)
	}
}
