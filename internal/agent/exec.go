package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// finalAnswerMarker is printed by the agent CLI ahead of its answer.
var finalAnswerMarker = "Final answer:"

// ErrNoCommand is returned when constructing an ExecAgent without a command.
var ErrNoCommand = errors.New("agent command is required")

// tokenEnvVar carries the inference credential into the agent process.
const tokenEnvVar = "HF_TOKEN"

// ExecAgent invokes the external agent as a subprocess, one run per
// query. stdout and stderr are interleaved into a single transcript the
// way they appear on a terminal.
type ExecAgent struct {
	command string
	args    []string
	token   string
}

// NewExecAgent creates an ExecAgent. args are passed before the query;
// token, when non-empty, is exported to the child as HF_TOKEN.
func NewExecAgent(command string, args []string, token string) (*ExecAgent, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrNoCommand
	}
	return &ExecAgent{command: command, args: args, token: token}, nil
}

// Available checks the agent command can be resolved on PATH.
func (a *ExecAgent) Available() error {
	if _, err := exec.LookPath(a.command); err != nil {
		return fmt.Errorf("agent command %q: %w", a.command, err)
	}
	return nil
}

// Run executes the agent once with the query as its final argument.
// The process's combined console output becomes the transcript; the
// final answer is extracted from the transcript's marker line. A non-zero
// exit returns the partial transcript alongside the error.
func (a *ExecAgent) Run(ctx context.Context, query string) (Result, error) {
	args := append(append([]string{}, a.args...), query)
	cmd := exec.CommandContext(ctx, a.command, args...)

	// Same writer for both streams: os/exec serializes writes when
	// Stdout and Stderr compare equal, so the transcript interleaves
	// the way it would on a terminal.
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if a.token != "" {
		cmd.Env = append(os.Environ(), tokenEnvVar+"="+a.token)
	}

	err := cmd.Run()
	transcript := buf.String()
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("agent run: %w", ctx.Err())
		} else {
			err = fmt.Errorf("agent run: %w", err)
		}
		return Result{Transcript: transcript}, err
	}

	answer := ExtractFinalAnswer(transcript)
	if answer == "" {
		answer = transcriptTail(transcript)
	}
	return Result{
		Answer:     answer,
		Transcript: transcript,
	}, nil
}

// transcriptTail returns the last non-empty line, used when the agent
// never printed the final-answer marker.
func transcriptTail(transcript string) string {
	lines := strings.Split(strings.TrimSpace(transcript), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// ExtractFinalAnswer pulls the text after the last "Final answer:" marker.
// Returns the empty string when the marker never appears; callers decide
// how to present a run with no answer.
func ExtractFinalAnswer(transcript string) string {
	idx := strings.LastIndex(transcript, finalAnswerMarker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(transcript[idx+len(finalAnswerMarker):])
}
