// Package trace reconstructs step and code-block records from the console
// transcript of an external agent run. The transcript format is not a
// stable API; the markers below match what the agent currently prints,
// and the scraper degrades to an empty result when they stop appearing.
package trace

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kjstillabower/agent-dashboard/internal/models"
)

const (
	// stepBanner opens each reasoning step in the agent's console output.
	stepBanner = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━ Step"
	// codeBlockMarker precedes the code the agent is about to execute.
	codeBlockMarker = "─ Executing parsed code:"
	// blockSeparator closes a code block.
	blockSeparator = "────────────────────────────────────────────────"
)

var (
	stepNumberRe = regexp.MustCompile(`Step (\d+)`)
	durationRe   = regexp.MustCompile(`Duration ([\d.]+) seconds`)
)

// blockState tracks whether the scanner is inside a code block.
type blockState int

const (
	outsideBlock blockState = iota
	insideBlock
)

// Scraper turns one captured transcript into ordered code blocks and
// timestamped log entries. Aside from the clock, the scrape is a pure
// function of the transcript: the same text always yields the same
// blocks and the same log messages.
type Scraper struct {
	now func() time.Time
}

// NewScraper creates a Scraper using the wall clock.
func NewScraper() *Scraper {
	return &Scraper{now: time.Now}
}

// NewScraperWithClock creates a Scraper with an injected clock. For tests.
func NewScraperWithClock(now func() time.Time) *Scraper {
	return &Scraper{now: now}
}

// Scrape walks the transcript line by line. Block accumulation and
// step/duration detection are independent: a step banner is logged even
// mid-block because the banner check runs first, mirroring the agent's
// actual interleaving.
//
// A block still open at end of input is discarded, not emitted; partial
// code would render as a broken snippet. The drop is logged so it stays
// observable.
func (s *Scraper) Scrape(transcript string) ([]models.CodeBlock, []models.LogEntry) {
	var (
		blocks  []models.CodeBlock
		logs    []models.LogEntry
		state   = outsideBlock
		current []string
		stepIdx = 1
	)

	for _, raw := range strings.Split(transcript, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case strings.Contains(line, stepBanner):
			if m := stepNumberRe.FindStringSubmatch(line); m != nil {
				logs = append(logs, s.entry(fmt.Sprintf("step %s detected", m[1])))
			}

		case strings.Contains(line, codeBlockMarker):
			state = insideBlock
			current = current[:0]
			logs = append(logs, s.entry("code execution block found"))

		case strings.Contains(line, blockSeparator) && state == insideBlock:
			if len(current) > 0 {
				blocks = append(blocks, models.CodeBlock{
					Step:        stepIdx,
					Code:        strings.Join(current, "\n"),
					Type:        "real_execution",
					Description: fmt.Sprintf("Agent Execution - Step %d", stepIdx),
				})
				logs = append(logs, s.entry(fmt.Sprintf("captured code block %d", stepIdx)))
				stepIdx++
			}
			state = outsideBlock
			current = current[:0]

		case state == insideBlock && line != "":
			current = append(current, line)

		case strings.Contains(line, "Duration") && strings.Contains(line, "seconds"):
			if m := durationRe.FindStringSubmatch(line); m != nil {
				logs = append(logs, s.entry(fmt.Sprintf("step duration: %ss", m[1])))
			}
		}
	}

	if state == insideBlock && len(current) > 0 {
		logs = append(logs, s.entry("discarding unterminated code block"))
	}

	return blocks, logs
}

// entry formats a timestamped live-log line.
func (s *Scraper) entry(message string) models.LogEntry {
	return models.LogEntry(fmt.Sprintf("[%s] %s", s.now().Format("15:04:05"), message))
}

// Entry exposes log formatting for callers that append their own
// lifecycle lines around a scrape.
func (s *Scraper) Entry(message string) models.LogEntry {
	return s.entry(message)
}
