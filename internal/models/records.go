package models

// WeatherReport is the display record produced by the weather resolver.
// Built per query from parsed search text or the static fallback table;
// never persisted.
type WeatherReport struct {
	Location       string `json:"location"`
	TemperatureC   int    `json:"temperatureC"`
	TemperatureF   int    `json:"temperatureF"`
	Condition      string `json:"condition"`
	Icon           string `json:"icon"`
	Description    string `json:"description"`
	Humidity       string `json:"humidity"`
	Wind           string `json:"wind"`
	Source         string `json:"source"`
	FallbackReason string `json:"fallbackReason,omitempty"`
	Error          bool   `json:"error"`
}

// CodeBlock is one executed-code section reconstructed from the agent's
// console transcript. Step indices are assigned sequentially per run,
// starting at 1.
type CodeBlock struct {
	Step        int    `json:"step"`
	Code        string `json:"code"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// LogEntry is a timestamped live-log line ("[HH:MM:SS] message").
type LogEntry string

// RunTrace is everything captured from one agent invocation: the final
// answer, the code blocks scraped from the transcript, and the live log.
// Rebuilt from scratch on every run.
type RunTrace struct {
	RunID           string      `json:"runId"`
	Query           string      `json:"query"`
	Answer          string      `json:"answer"`
	Failed          bool        `json:"failed"`
	CodeBlocks      []CodeBlock `json:"codeBlocks"`
	Logs            []LogEntry  `json:"logs"`
	DurationSeconds float64     `json:"durationSeconds"`
}

// QueryResponse is the API response for a classified query. Exactly one
// of Weather or Trace is set, matching Mode.
type QueryResponse struct {
	Mode    string         `json:"mode"` // "weather" or "research"
	Weather *WeatherReport `json:"weather,omitempty"`
	Trace   *RunTrace      `json:"trace,omitempty"`
}
