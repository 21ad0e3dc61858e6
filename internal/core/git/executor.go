package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/perch/pkg/executil"
)

// Executor implements Git using the git command-line tool.
type Executor struct {
	gitPath string
	exec    executil.Executor
}

// NewExecutor creates a new git executor with the specified git binary path.
func NewExecutor(gitPath string, exec executil.Executor) *Executor {
	return &Executor{gitPath: gitPath, exec: exec}
}

func (e *Executor) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "remote", "get-url", remote)
	if err != nil {
		return "", fmt.Errorf("get remote url: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) Fetch(ctx context.Context, dir, remote string) error {
	if _, err := e.exec.RunDir(ctx, dir, e.gitPath, "fetch", remote); err != nil {
		return fmt.Errorf("fetch %s: %w", remote, err)
	}
	return nil
}

func (e *Executor) MergeBase(ctx context.Context, dir, base, head string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "merge-base", base, head)
	if err != nil {
		return "", fmt.Errorf("merge-base %s %s: %w", base, head, err)
	}
	sha := strings.TrimSpace(string(out))
	if sha == "" {
		return "", fmt.Errorf("merge-base %s %s: no common ancestor", base, head)
	}
	return sha, nil
}

func (e *Executor) ShowFile(ctx context.Context, dir, rev, path string) (string, error) {
	res, err := e.exec.RunSplit(ctx, dir, e.gitPath, "show", rev+":"+path)
	if err != nil {
		return "", fmt.Errorf("show %s:%s: %w", rev, path, err)
	}
	if res.Failed() {
		// "exists on disk, but not in <rev>" and "does not exist" both mean
		// the file has no content on this side of the diff.
		stderr := res.ErrorText()
		if strings.Contains(stderr, "does not exist") || strings.Contains(stderr, "exists on disk") {
			return "", nil
		}
		return "", fmt.Errorf("show %s:%s: %s", rev, path, stderr)
	}
	return res.Stdout, nil
}

func (e *Executor) DiffFile(ctx context.Context, dir, from, to, path string) (string, error) {
	out, err := e.exec.RunDir(ctx, dir, e.gitPath, "diff", from, to, "--", path)
	if err != nil {
		return "", fmt.Errorf("diff %s..%s -- %s: %w", from, to, path, err)
	}
	return string(out), nil
}

// ParseSlug extracts the "owner/repo" slug from a git remote URL.
// Both SSH (git@github.com:owner/repo.git) and HTTPS
// (https://github.com/owner/repo.git) forms are supported.
func ParseSlug(remoteURL string) (string, error) {
	url := strings.TrimSpace(remoteURL)
	url = strings.TrimSuffix(url, ".git")

	if idx := strings.Index(url, "://"); idx != -1 {
		// https://host/owner/repo
		parts := strings.Split(url[idx+3:], "/")
		if len(parts) >= 3 {
			return parts[len(parts)-2] + "/" + parts[len(parts)-1], nil
		}
		return "", fmt.Errorf("cannot parse remote url %q", remoteURL)
	}

	if idx := strings.Index(url, ":"); idx != -1 {
		// git@host:owner/repo
		rest := url[idx+1:]
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return rest, nil
		}
	}

	return "", fmt.Errorf("cannot parse remote url %q", remoteURL)
}
