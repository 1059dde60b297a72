package trace

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kjstillabower/agent-dashboard/internal/models"
)

// fixedClock returns a scraper whose log timestamps never change, so
// scrapes compare equal across runs.
func fixedClock() *Scraper {
	at := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	return NewScraperWithClock(func() time.Time { return at })
}

// transcript joins lines the way the agent's console output arrives.
func transcript(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

var twoBlockTranscript = transcript(
	stepBanner+" 1 ━━━━━━━━━━━━━━━━━━━━",
	" "+codeBlockMarker+" ──────────",
	`  results = web_search("golang generics")`,
	"  print(results)",
	" "+blockSeparator,
	"Duration 3.42 seconds",
	stepBanner+" 2 ━━━━━━━━━━━━━━━━━━━━",
	" "+codeBlockMarker+" ──────────",
	"  final_answer(summary)",
	" "+blockSeparator,
	"Duration 1.08 seconds",
)

func TestScrapeTwoWellFormedBlocks(t *testing.T) {
	blocks, logs := fixedClock().Scrape(twoBlockTranscript)

	want := []models.CodeBlock{
		{
			Step:        1,
			Code:        "results = web_search(\"golang generics\")\nprint(results)",
			Type:        "real_execution",
			Description: "Agent Execution - Step 1",
		},
		{
			Step:        2,
			Code:        "final_answer(summary)",
			Type:        "real_execution",
			Description: "Agent Execution - Step 2",
		},
	}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}

	joined := joinLogs(logs)
	for _, fragment := range []string{
		"step 1 detected", "step 2 detected",
		"captured code block 1", "captured code block 2",
		"step duration: 3.42s", "step duration: 1.08s",
	} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("logs missing %q:\n%s", fragment, joined)
		}
	}
}

func TestScrapeIsIdempotent(t *testing.T) {
	s := fixedClock()
	blocks1, logs1 := s.Scrape(twoBlockTranscript)
	blocks2, logs2 := s.Scrape(twoBlockTranscript)

	if diff := cmp.Diff(blocks1, blocks2); diff != "" {
		t.Fatalf("blocks differ between identical scrapes:\n%s", diff)
	}
	if diff := cmp.Diff(logs1, logs2); diff != "" {
		t.Fatalf("logs differ between identical scrapes:\n%s", diff)
	}
}

func TestScrapeUnterminatedBlockIsDropped(t *testing.T) {
	in := transcript(
		" "+codeBlockMarker+" ──────────",
		"  x = compute()",
		"  print(x)",
	)
	blocks, logs := fixedClock().Scrape(in)
	if len(blocks) != 0 {
		t.Fatalf("blocks = %d, want 0 for unterminated block", len(blocks))
	}
	if !strings.Contains(joinLogs(logs), "discarding unterminated code block") {
		t.Error("drop of unterminated block not logged")
	}
}

func TestScrapeUnterminatedTailAfterCompleteBlock(t *testing.T) {
	in := transcript(
		" "+codeBlockMarker+" ──────────",
		"first()",
		" "+blockSeparator,
		" "+codeBlockMarker+" ──────────",
		"second()",
	)
	blocks, _ := fixedClock().Scrape(in)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1 (only the terminated block)", len(blocks))
	}
	if blocks[0].Step != 1 || blocks[0].Code != "first()" {
		t.Fatalf("unexpected surviving block: %+v", blocks[0])
	}
}

func TestScrapeEmptyBlockEmitsNothing(t *testing.T) {
	in := transcript(
		" "+codeBlockMarker+" ──────────",
		" "+blockSeparator,
	)
	blocks, _ := fixedClock().Scrape(in)
	if len(blocks) != 0 {
		t.Fatalf("blocks = %d, want 0 for empty block", len(blocks))
	}
}

func TestScrapeSeparatorOutsideBlockIgnored(t *testing.T) {
	in := transcript(
		" "+blockSeparator,
		"plain output line",
	)
	blocks, logs := fixedClock().Scrape(in)
	if len(blocks) != 0 {
		t.Fatalf("blocks = %d, want 0", len(blocks))
	}
	if len(logs) != 0 {
		t.Fatalf("logs = %v, want none for plain output", logs)
	}
}

func TestScrapeBlankLinesInsideBlockSkipped(t *testing.T) {
	in := transcript(
		" "+codeBlockMarker+" ──────────",
		"a = 1",
		"",
		"b = 2",
		" "+blockSeparator,
	)
	blocks, _ := fixedClock().Scrape(in)
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	if blocks[0].Code != "a = 1\nb = 2" {
		t.Fatalf("Code = %q, blank lines should be dropped", blocks[0].Code)
	}
}

func TestScrapeStepBannerInsideBlockStillDetected(t *testing.T) {
	in := transcript(
		" "+codeBlockMarker+" ──────────",
		"work()",
		stepBanner+" 7 ━━━━━━━━━━━━━━━━━━━━",
		" "+blockSeparator,
	)
	blocks, logs := fixedClock().Scrape(in)
	if len(blocks) != 1 || blocks[0].Code != "work()" {
		t.Fatalf("blocks = %+v, banner line must not be accumulated", blocks)
	}
	if !strings.Contains(joinLogs(logs), "step 7 detected") {
		t.Error("step banner inside block not logged")
	}
}

func TestEntryFormat(t *testing.T) {
	entry := fixedClock().Entry("hello")
	if string(entry) != "[10:30:00] hello" {
		t.Fatalf("Entry = %q, want [10:30:00] hello", entry)
	}
}

func joinLogs(logs []models.LogEntry) string {
	parts := make([]string, len(logs))
	for i, l := range logs {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}
