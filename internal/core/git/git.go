// Package git provides an abstraction for the git operations a review
// session needs: resolving the repository identity, finding the merge
// base, and reading file contents at specific commits.
package git

import "context"

// Git defines git operations needed by perch.
type Git interface {
	// RemoteURL returns the URL of the named remote for dir.
	RemoteURL(ctx context.Context, dir, remote string) (string, error)
	// Fetch updates the named remote so merge-base and show see PR commits.
	Fetch(ctx context.Context, dir, remote string) error
	// MergeBase returns the common ancestor of two commits.
	MergeBase(ctx context.Context, dir, base, head string) (string, error)
	// ShowFile returns the contents of path at rev. A path absent at rev
	// (added or deleted file) yields empty content and no error.
	ShowFile(ctx context.Context, dir, rev, path string) (string, error)
	// DiffFile returns the unified diff of one path between two commits.
	DiffFile(ctx context.Context, dir, from, to, path string) (string, error)
}
