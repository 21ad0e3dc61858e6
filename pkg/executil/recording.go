package executil

import (
	"context"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// Key returns the lookup key used by RecordingExecutor response maps:
// the command name joined with its first argument (e.g. "gh api",
// "git merge-base"), or just the command name when there are no args.
func (c RecordedCommand) Key() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}
	return c.Cmd + " " + c.Args[0]
}

// RecordingExecutor captures commands for testing.
// Configure Outputs, Results, and Errors maps to control return values.
// Keys match RecordedCommand.Key.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs maps command keys to combined output for Run/RunDir.
	Outputs map[string][]byte

	// Results maps command keys to split results for RunSplit.
	Results map[string]Result

	// Errors maps command keys to spawn errors.
	Errors map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	rec := e.record("", cmd, args...)
	return e.Outputs[rec.Key()], e.Errors[rec.Key()]
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	rec := e.record(dir, cmd, args...)
	return e.Outputs[rec.Key()], e.Errors[rec.Key()]
}

// RunSplit records the command and returns the configured Result.
func (e *RecordingExecutor) RunSplit(ctx context.Context, dir, cmd string, args ...string) (Result, error) {
	rec := e.record(dir, cmd, args...)
	return e.Results[rec.Key()], e.Errors[rec.Key()]
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) RecordedCommand {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := RecordedCommand{Dir: dir, Cmd: cmd, Args: args}
	e.Commands = append(e.Commands, rec)
	return rec
}

// CalledWith reports whether any recorded command's full argv contains the
// given substring. Useful for asserting on interpolated query bodies.
func (e *RecordingExecutor) CalledWith(substr string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rec := range e.Commands {
		full := rec.Cmd + " " + strings.Join(rec.Args, " ")
		if strings.Contains(full, substr) {
			return true
		}
	}
	return false
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
