// Package runner drives one external agent run end to end: invoke,
// capture, scrape, and assemble the trace the dashboard renders.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/agent-dashboard/internal/agent"
	"github.com/kjstillabower/agent-dashboard/internal/models"
	"github.com/kjstillabower/agent-dashboard/internal/observability"
	"github.com/kjstillabower/agent-dashboard/internal/trace"
)

// Runner wraps the agent with capture and scraping. One Execute call is
// one blocking agent invocation; there is no retry and no queueing.
type Runner struct {
	agent   agent.Agent
	scraper *trace.Scraper
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Runner. timeout bounds each agent run (0 = unbounded).
func New(a agent.Agent, scraper *trace.Scraper, timeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{agent: a, scraper: scraper, timeout: timeout, logger: logger, now: time.Now}
}

// Execute runs the query through the agent and returns the assembled
// trace. This is the single error boundary for the research path: an
// agent failure becomes a trace whose answer is the formatted error
// string, never a returned error.
func (r *Runner) Execute(ctx context.Context, query string) models.RunTrace {
	runID := uuid.NewString()
	logs := []models.LogEntry{
		r.scraper.Entry("agent execution started"),
		r.scraper.Entry("processing query: " + query),
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := r.now()
	result, err := r.agent.Run(ctx, query)
	elapsed := r.now().Sub(start)
	observability.AgentRunDuration.Observe(elapsed.Seconds())

	if err != nil {
		observability.AgentRunsTotal.WithLabelValues("error").Inc()
		if r.logger != nil {
			r.logger.Error("agent run failed",
				zap.String("run_id", runID),
				zap.Duration("duration", elapsed),
				zap.Error(err))
		}
		logs = append(logs, r.scraper.Entry(fmt.Sprintf("execution error: %v", err)))
		return models.RunTrace{
			RunID:           runID,
			Query:           query,
			Answer:          fmt.Sprintf("Execution failed: %v", err),
			Failed:          true,
			Logs:            logs,
			DurationSeconds: elapsed.Seconds(),
		}
	}

	blocks, scrapeLogs := r.scraper.Scrape(result.Transcript)
	logs = append(logs, scrapeLogs...)
	logs = append(logs,
		r.scraper.Entry(fmt.Sprintf("execution completed in %.2fs", elapsed.Seconds())),
		r.scraper.Entry(fmt.Sprintf("captured %d code blocks", len(blocks))),
	)

	observability.AgentRunsTotal.WithLabelValues("success").Inc()
	observability.CodeBlocksCaptured.Observe(float64(len(blocks)))
	if r.logger != nil {
		r.logger.Info("agent run complete",
			zap.String("run_id", runID),
			zap.Duration("duration", elapsed),
			zap.Int("code_blocks", len(blocks)))
	}

	return models.RunTrace{
		RunID:           runID,
		Query:           query,
		Answer:          result.Answer,
		CodeBlocks:      blocks,
		Logs:            logs,
		DurationSeconds: elapsed.Seconds(),
	}
}
