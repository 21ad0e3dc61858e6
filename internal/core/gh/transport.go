// Package gh talks to GitHub through the gh CLI, spawned as a subprocess.
// REST calls go through `gh api`, GraphQL through `gh api graphql`.
package gh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/perch/internal/core/logging"
	"github.com/colonyops/perch/pkg/executil"
	"github.com/colonyops/perch/pkg/jsonwalk"
)

const (
	// pollInterval is how often Wait re-checks a pending call.
	pollInterval = 10 * time.Millisecond
	// awaitTimeout is the hard ceiling on Wait.
	awaitTimeout = 30 * time.Second
)

// ErrTimeout is returned by Wait when a call does not complete within the
// await ceiling. The underlying process keeps running; its result is dropped.
var ErrTimeout = errors.New("timeout waiting for gh")

// Client invokes the gh CLI.
type Client struct {
	ghPath string
	host   string // optional GH_HOST-style hostname for gh api
	exec   executil.Executor
	log    zerolog.Logger
}

// NewClient creates a gh client. host may be empty for github.com.
func NewClient(ghPath, host string, exec executil.Executor) *Client {
	return &Client{
		ghPath: ghPath,
		host:   host,
		exec:   exec,
		log:    logging.Component("gh"),
	}
}

// Call is a handle to one in-flight gh invocation. Its result is available
// once Done reports true.
type Call struct {
	done atomic.Bool
	mu   sync.Mutex
	text string
	err  error
}

// Done reports whether the call has completed.
func (c *Call) Done() bool { return c.done.Load() }

// Result returns the call's outcome. Valid only after Done is true;
// before completion it returns empty values.
func (c *Call) Result() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.err
}

func (c *Call) finish(text string, err error) {
	c.mu.Lock()
	c.text = text
	c.err = err
	c.mu.Unlock()
	c.done.Store(true)
}

// Wait blocks until the call completes, polling every pollInterval up to
// awaitTimeout, and returns ErrTimeout if the ceiling is reached first.
func (c *Call) Wait() (string, error) {
	deadline := time.Now().Add(awaitTimeout)
	for !c.done.Load() {
		if time.Now().After(deadline) {
			return "", ErrTimeout
		}
		time.Sleep(pollInterval)
	}
	return c.Result()
}

// Exec spawns gh with the given arguments and returns immediately. The
// returned Call completes when the process exits: exit 0 yields stdout,
// non-zero yields the trimmed stderr as the error.
func (c *Client) Exec(ctx context.Context, args ...string) *Call {
	call := &Call{}
	argv := c.argv(args)

	go func() {
		res, err := c.exec.RunSplit(ctx, "", c.ghPath, argv...)
		if err != nil {
			c.log.Error().Err(err).Strs("args", argv).Msg("gh spawn failed")
			call.finish("", err)
			return
		}
		if res.Failed() {
			c.log.Debug().Int("exit", res.ExitCode).Str("stderr", res.ErrorText()).Msg("gh exited non-zero")
			call.finish("", errors.New(res.ErrorText()))
			return
		}
		call.finish(res.Stdout, nil)
	}()

	return call
}

// ExecThen spawns gh and invokes fn with the result when the process exits.
// fn runs on the completion goroutine.
func (c *Client) ExecThen(ctx context.Context, args []string, fn func(string, error)) {
	call := c.Exec(ctx, args...)
	go fn(call.Wait())
}

// Output runs gh to completion and returns its stdout.
func (c *Client) Output(ctx context.Context, args ...string) (string, error) {
	return c.Exec(ctx, args...).Wait()
}

// OutputJSON runs gh to completion and decodes its stdout as JSON.
// A decode failure surfaces the offending raw output in the error.
func (c *Client) OutputJSON(ctx context.Context, args ...string) (jsonwalk.Value, error) {
	text, err := c.Output(ctx, args...)
	if err != nil {
		return jsonwalk.Value{}, err
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return jsonwalk.Value{}, fmt.Errorf("decode gh output: %w: %s", err, snippet(text))
	}
	return jsonwalk.Wrap(decoded), nil
}

// argv injects the hostname flag for api calls when a host override is set.
func (c *Client) argv(args []string) []string {
	if c.host == "" || len(args) == 0 || args[0] != "api" {
		return args
	}
	out := make([]string, 0, len(args)+2)
	out = append(out, args[0], "--hostname", c.host)
	out = append(out, args[1:]...)
	return out
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
