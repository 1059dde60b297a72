package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/agent-dashboard/internal/agent"
	"github.com/kjstillabower/agent-dashboard/internal/models"
	"github.com/kjstillabower/agent-dashboard/internal/trace"
)

type stubAgent struct {
	result  agent.Result
	err     error
	gotCtx  context.Context
	gotQry  string
}

func (s *stubAgent) Run(ctx context.Context, query string) (agent.Result, error) {
	s.gotCtx = ctx
	s.gotQry = query
	return s.result, s.err
}

func (s *stubAgent) Available() error { return nil }

func fixedScraper() *trace.Scraper {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return trace.NewScraperWithClock(func() time.Time { return at })
}

func TestExecuteSuccessAssemblesTrace(t *testing.T) {
	transcript := strings.Join([]string{
		" ─ Executing parsed code: ──────────",
		"print('hi')",
		" " + strings.Repeat("─", 48),
		"Final answer: hi",
	}, "\n")
	stub := &stubAgent{result: agent.Result{Answer: "hi", Transcript: transcript}}
	r := New(stub, fixedScraper(), 0, nil)

	tr := r.Execute(context.Background(), "say hi")

	if tr.Failed {
		t.Fatal("Failed = true on successful run")
	}
	if tr.Answer != "hi" {
		t.Errorf("Answer = %q, want hi", tr.Answer)
	}
	if tr.RunID == "" {
		t.Error("RunID empty")
	}
	if len(tr.CodeBlocks) != 1 || tr.CodeBlocks[0].Code != "print('hi')" {
		t.Fatalf("CodeBlocks = %+v, want single print block", tr.CodeBlocks)
	}
	joined := joinLogs(tr.Logs)
	for _, fragment := range []string{
		"agent execution started",
		"processing query: say hi",
		"captured code block 1",
		"captured 1 code blocks",
	} {
		if !strings.Contains(joined, fragment) {
			t.Errorf("logs missing %q:\n%s", fragment, joined)
		}
	}
	if stub.gotQry != "say hi" {
		t.Errorf("agent received query %q", stub.gotQry)
	}
}

func TestExecuteAgentErrorBecomesFailedTrace(t *testing.T) {
	stub := &stubAgent{err: errors.New("boom")}
	r := New(stub, fixedScraper(), 0, nil)

	tr := r.Execute(context.Background(), "anything")

	if !tr.Failed {
		t.Fatal("Failed = false, want true")
	}
	if tr.Answer != "Execution failed: boom" {
		t.Errorf("Answer = %q, want formatted error string", tr.Answer)
	}
	if len(tr.CodeBlocks) != 0 {
		t.Errorf("CodeBlocks = %d, want 0 on failure", len(tr.CodeBlocks))
	}
	if !strings.Contains(joinLogs(tr.Logs), "execution error: boom") {
		t.Error("logs missing execution error entry")
	}
}

func TestExecuteAppliesTimeout(t *testing.T) {
	stub := &stubAgent{result: agent.Result{Answer: "ok"}}
	r := New(stub, fixedScraper(), time.Minute, nil)

	r.Execute(context.Background(), "q")

	if stub.gotCtx == nil {
		t.Fatal("agent context not captured")
	}
	if _, ok := stub.gotCtx.Deadline(); !ok {
		t.Error("agent context has no deadline despite configured timeout")
	}
}

func joinLogs(logs []models.LogEntry) string {
	parts := make([]string, len(logs))
	for i, l := range logs {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}
