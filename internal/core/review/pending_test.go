package review

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStale = errors.New("GraphQL: Could not resolve to a node with the global id of 'PRR_x'")

type fakePendingAPI struct {
	shaErr    error
	createErr error
	creates   int
	shaCalls  int
	nextDBID  int64
}

func (f *fakePendingAPI) LatestCommitSHA(ctx context.Context, owner, repo string, number int) (string, error) {
	f.shaCalls++
	if f.shaErr != nil {
		return "", f.shaErr
	}
	return "head123", nil
}

func (f *fakePendingAPI) CreateReview(ctx context.Context, prID, commitSHA string) (string, int64, error) {
	if f.createErr != nil {
		return "", 0, f.createErr
	}
	f.creates++
	f.nextDBID++
	return fmt.Sprintf("PRR_%d", f.creates), f.nextDBID, nil
}

var testRef = PRRef{Owner: "acme", Repo: "widgets", Number: 42, NodeID: "PR_42"}

func TestGetOrCreate_ReturnsCachedWithoutAPICalls(t *testing.T) {
	api := &fakePendingAPI{}
	m := NewPendingManager(api)
	m.Set(PendingReview{ID: "PRR_cached", DatabaseID: 5})

	rev, err := m.GetOrCreate(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "PRR_cached", rev.ID)
	assert.Zero(t, api.shaCalls)
	assert.Zero(t, api.creates)
}

func TestGetOrCreate_CreatesAnchoredToLatestCommit(t *testing.T) {
	api := &fakePendingAPI{}
	m := NewPendingManager(api)

	rev, err := m.GetOrCreate(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, "PRR_1", rev.ID)
	assert.Equal(t, 1, api.shaCalls)

	// Second call hits the cache.
	again, err := m.GetOrCreate(context.Background(), testRef)
	require.NoError(t, err)
	assert.Equal(t, rev, again)
	assert.Equal(t, 1, api.creates)
}

func TestGetOrCreate_PropagatesSHAFailure(t *testing.T) {
	api := &fakePendingAPI{shaErr: errors.New("no commits")}
	m := NewPendingManager(api)

	_, err := m.GetOrCreate(context.Background(), testRef)
	require.Error(t, err)
	assert.Nil(t, m.Cached())
}

func TestRun_SuccessFirstTry(t *testing.T) {
	m := NewPendingManager(&fakePendingAPI{})
	m.Set(PendingReview{ID: "PRR_ok"})

	var calls int
	err := m.Run(context.Background(), testRef, func(reviewID string) error {
		calls++
		assert.Equal(t, "PRR_ok", reviewID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRun_StaleOnceRecreatesAndRetries(t *testing.T) {
	api := &fakePendingAPI{}
	m := NewPendingManager(api)
	m.Set(PendingReview{ID: "PRR_stale"})

	var seen []string
	err := m.Run(context.Background(), testRef, func(reviewID string) error {
		seen = append(seen, reviewID)
		if reviewID == "PRR_stale" {
			return errStale
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"PRR_stale", "PRR_1"}, seen)
	assert.Equal(t, 1, api.creates, "exactly one recreate cycle")
}

func TestRun_SecondStaleFailureIsTerminal(t *testing.T) {
	api := &fakePendingAPI{}
	m := NewPendingManager(api)
	m.Set(PendingReview{ID: "PRR_stale"})

	var calls int
	err := m.Run(context.Background(), testRef, func(reviewID string) error {
		calls++
		return errStale
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still unresolvable")

	assert.Equal(t, 2, calls, "one retry, then terminal")
	assert.Equal(t, 1, api.creates, "exactly one recreate cycle, no loop")
	assert.Nil(t, m.Cached(), "stale cache is dropped")
}

func TestRun_NonStaleFailureIsNotRetried(t *testing.T) {
	m := NewPendingManager(&fakePendingAPI{})
	m.Set(PendingReview{ID: "PRR_ok"})

	boom := errors.New("network unreachable")
	var calls int
	err := m.Run(context.Background(), testRef, func(reviewID string) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.NotNil(t, m.Cached(), "non-stale failures keep the cache")
}

func TestInvalidateIfPending(t *testing.T) {
	m := NewPendingManager(&fakePendingAPI{})
	m.Set(PendingReview{ID: "PRR_1"})

	m.InvalidateIfPending(StatePublished)
	assert.NotNil(t, m.Cached())

	m.InvalidateIfPending(StatePending)
	assert.Nil(t, m.Cached())
}
