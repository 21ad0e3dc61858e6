// Package commands wires the CLI verbs. Each verb lives in its own
// cmd_*.go file and registers itself on the root command.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/colonyops/perch/internal/core/config"
	"github.com/colonyops/perch/internal/core/gh"
	"github.com/colonyops/perch/internal/core/git"
	"github.com/colonyops/perch/pkg/executil"
)

// Flags holds global flag values plus the collaborators the Before hook
// builds for every command.
type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// Config is loaded in the Before hook and available to all commands.
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "perch", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "perch")
}

// repoContext is everything a PR-addressed command needs: the repository
// slug split into owner/repo, the directory it was resolved from, and the
// clients configured for it (including any per-repo host override).
type repoContext struct {
	Owner  string
	Repo   string
	Dir    string
	Remote string
	GH     *gh.Client
	Git    git.Git
}

// resolveRepo locates the repository at the current working directory,
// parses its remote into a slug, and applies per-repo overrides from config.
func resolveRepo(ctx context.Context, cfg *config.Config) (*repoContext, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	exec := &executil.RealExecutor{}
	gitExec := git.NewExecutor(cfg.GitPath, exec)

	remote := cfg.Remote
	url, err := gitExec.RemoteURL(ctx, dir, remote)
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository with remote %q: %w", remote, err)
	}

	slug, err := git.ParseSlug(url)
	if err != nil {
		return nil, err
	}

	override := cfg.ForRepo(slug)
	if override.Remote != "" && override.Remote != remote {
		remote = override.Remote
		url, err = gitExec.RemoteURL(ctx, dir, remote)
		if err != nil {
			return nil, fmt.Errorf("remote %q from repo override: %w", remote, err)
		}
		if slug, err = git.ParseSlug(url); err != nil {
			return nil, err
		}
	}

	owner, repo, err := splitSlug(slug)
	if err != nil {
		return nil, err
	}

	return &repoContext{
		Owner:  owner,
		Repo:   repo,
		Dir:    dir,
		Remote: remote,
		GH:     gh.NewClient(cfg.GhPath, override.GhHost, exec),
		Git:    gitExec,
	}, nil
}

func splitSlug(slug string) (owner, repo string, err error) {
	for i := range slug {
		if slug[i] == '/' {
			return slug[:i], slug[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("malformed repository slug %q", slug)
}

// resolvePRNumber returns the explicit argument, or infers the PR from the
// checked-out branch when no argument was given.
func resolvePRNumber(ctx context.Context, c *repoContext, arg int) (int, error) {
	if arg > 0 {
		return arg, nil
	}
	n, err := c.GH.CurrentPRNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("no PR number given and none found for the current branch: %w", err)
	}
	return n, nil
}
