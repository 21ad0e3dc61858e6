package gh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/perch/pkg/executil"
)

// scriptedExecutor returns queued results in order, recording each argv.
type scriptedExecutor struct {
	mu       sync.Mutex
	queue    []executil.Result
	spawnErr error
	delay    time.Duration
	argvs    [][]string
}

func (e *scriptedExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	res, err := e.RunSplit(ctx, "", cmd, args...)
	return []byte(res.Stdout), err
}

func (e *scriptedExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	res, err := e.RunSplit(ctx, dir, cmd, args...)
	return []byte(res.Stdout), err
}

func (e *scriptedExecutor) RunSplit(ctx context.Context, dir, cmd string, args ...string) (executil.Result, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.argvs = append(e.argvs, append([]string{cmd}, args...))
	if e.spawnErr != nil {
		return executil.Result{}, e.spawnErr
	}
	if len(e.queue) == 0 {
		return executil.Result{}, nil
	}
	res := e.queue[0]
	e.queue = e.queue[1:]
	return res, nil
}

func newTestClient(exec executil.Executor) *Client {
	return NewClient("gh", "", exec)
}

func TestOutput_Success(t *testing.T) {
	exec := &scriptedExecutor{queue: []executil.Result{{Stdout: "hello\n"}}}
	c := newTestClient(exec)

	out, err := c.Output(context.Background(), "pr", "view")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestOutput_NonZeroExitSurfacesStderr(t *testing.T) {
	exec := &scriptedExecutor{queue: []executil.Result{{Stderr: "not logged in\n", ExitCode: 1}}}
	c := newTestClient(exec)

	_, err := c.Output(context.Background(), "pr", "view")
	require.Error(t, err)
	assert.Equal(t, "not logged in", err.Error())
}

func TestOutputJSON_DecodeFailureSurfacesRawOutput(t *testing.T) {
	exec := &scriptedExecutor{queue: []executil.Result{{Stdout: "this is not json"}}}
	c := newTestClient(exec)

	_, err := c.OutputJSON(context.Background(), "api", "graphql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "this is not json")
}

func TestExec_CallCompletesAsynchronously(t *testing.T) {
	exec := &scriptedExecutor{
		queue: []executil.Result{{Stdout: "late"}},
		delay: 30 * time.Millisecond,
	}
	c := newTestClient(exec)

	call := c.Exec(context.Background(), "pr", "view")
	assert.False(t, call.Done(), "call should still be pending right after Exec")

	out, err := call.Wait()
	require.NoError(t, err)
	assert.Equal(t, "late", out)
	assert.True(t, call.Done())
}

func TestExecThen_DeliversContinuation(t *testing.T) {
	exec := &scriptedExecutor{queue: []executil.Result{{Stdout: "done"}}}
	c := newTestClient(exec)

	got := make(chan string, 1)
	c.ExecThen(context.Background(), []string{"pr", "view"}, func(out string, err error) {
		require.NoError(t, err)
		got <- out
	})

	select {
	case out := <-got:
		assert.Equal(t, "done", out)
	case <-time.After(time.Second):
		t.Fatal("continuation never fired")
	}
}

func TestExec_SpawnFailure(t *testing.T) {
	exec := &scriptedExecutor{spawnErr: errors.New("gh: command not found")}
	c := newTestClient(exec)

	_, err := c.Output(context.Background(), "pr", "view")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not found")
}

func TestArgv_HostInjectedForAPICalls(t *testing.T) {
	exec := &scriptedExecutor{queue: []executil.Result{{Stdout: "{}"}, {Stdout: "ok"}}}
	c := NewClient("gh", "github.example.com", exec)

	_, err := c.Output(context.Background(), "api", "graphql", "-f", "query=...")
	require.NoError(t, err)
	require.Len(t, exec.argvs, 1)
	assert.Equal(t, []string{"gh", "api", "--hostname", "github.example.com", "graphql", "-f", "query=..."}, exec.argvs[0])

	// Non-api invocations are left alone.
	_, err = c.Output(context.Background(), "pr", "view")
	require.NoError(t, err)
	assert.Equal(t, []string{"gh", "pr", "view"}, exec.argvs[1])
}

func TestGqlString_EncodesFreeText(t *testing.T) {
	assert.Equal(t, `"plain"`, gqlString("plain"))
	assert.Equal(t, `"has \"quotes\" and\nnewlines"`, gqlString("has \"quotes\" and\nnewlines"))
}

func TestIsStaleReference(t *testing.T) {
	assert.True(t, IsStaleReference(errors.New(`GraphQL: Could not resolve to a node with the global id of 'PRR_x' (addPullRequestReviewThread)`)))
	assert.True(t, IsStaleReference(errors.New("the given id could not be resolved")))
	assert.False(t, IsStaleReference(errors.New("network unreachable")))
	assert.False(t, IsStaleReference(nil))
}
