package review

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/perch/internal/core/gh"
	"github.com/colonyops/perch/internal/core/logging"
)

// PendingAPI is the slice of the GitHub client the lifecycle needs.
type PendingAPI interface {
	LatestCommitSHA(ctx context.Context, owner, repo string, number int) (string, error)
	CreateReview(ctx context.Context, prID, commitSHA string) (id string, databaseID int64, err error)
}

// PRRef identifies the pull request a pending review belongs to.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
	NodeID string // GraphQL id of the PR
}

// PendingManager owns the cached pending review and the stale-reference
// retry policy every review-addressed mutation runs through. The mutex
// serializes get-or-create so two concurrent mutations cannot race to
// create two server-side reviews.
type PendingManager struct {
	mu     sync.Mutex
	api    PendingAPI
	cached *PendingReview
	log    zerolog.Logger
}

// NewPendingManager creates a manager with an empty cache.
func NewPendingManager(api PendingAPI) *PendingManager {
	return &PendingManager{
		api: api,
		log: logging.Component("pending-review"),
	}
}

// Cached returns the cached pending review, or nil. The cache is advisory:
// the server may have invalidated the review since it was stored.
func (m *PendingManager) Cached() *PendingReview {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		return nil
	}
	cp := *m.cached
	return &cp
}

// Set stores a pending review found in a fetched payload.
func (m *PendingManager) Set(pr PendingReview) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = &pr
}

// Clear drops the cached pending review.
func (m *PendingManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
}

// GetOrCreate returns the cached pending review, creating one anchored to
// the PR's latest commit when the cache is empty.
func (m *PendingManager) GetOrCreate(ctx context.Context, ref PRRef) (PendingReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		return *m.cached, nil
	}

	sha, err := m.api.LatestCommitSHA(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return PendingReview{}, fmt.Errorf("resolve head commit: %w", err)
	}

	id, dbID, err := m.api.CreateReview(ctx, ref.NodeID, sha)
	if err != nil {
		return PendingReview{}, fmt.Errorf("create review: %w", err)
	}

	m.log.Debug().Str("review_id", id).Str("commit", sha).Msg("created pending review")
	m.cached = &PendingReview{ID: id, DatabaseID: dbID}
	return *m.cached, nil
}

// Run executes a mutation that addresses the pending review by id. On a
// stale-reference failure the cache is cleared, the review recreated, and
// the mutation retried exactly once; a second stale failure is terminal.
func (m *PendingManager) Run(ctx context.Context, ref PRRef, mutate func(reviewID string) error) error {
	return m.attempt(ctx, ref, mutate, true)
}

func (m *PendingManager) attempt(ctx context.Context, ref PRRef, mutate func(reviewID string) error, allowRetry bool) error {
	rev, err := m.GetOrCreate(ctx, ref)
	if err != nil {
		return err
	}

	err = mutate(rev.ID)
	if err == nil {
		return nil
	}

	if !gh.IsStaleReference(err) {
		return err
	}

	m.log.Warn().Str("review_id", rev.ID).Bool("retrying", allowRetry).Msg("pending review id is stale")
	m.Clear()
	if !allowRetry {
		return fmt.Errorf("pending review still unresolvable after recreate: %w", err)
	}
	return m.attempt(ctx, ref, mutate, false)
}

// InvalidateIfPending conservatively clears the cache after deleting a
// comment whose state was PENDING: removing a review's last pending comment
// can make the server silently delete the review too.
func (m *PendingManager) InvalidateIfPending(state string) {
	if state == StatePending {
		m.log.Debug().Msg("deleted a pending comment; dropping cached review")
		m.Clear()
	}
}
