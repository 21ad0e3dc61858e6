package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "/tmp/data")
	require.NoError(t, err)

	assert.Equal(t, "gh", cfg.GhPath)
	assert.Equal(t, "git", cfg.GitPath)
	assert.Equal(t, "origin", cfg.Remote)
	assert.Equal(t, "/tmp/data", cfg.DataDir)
	assert.Equal(t, ActionNextFile, cfg.Keybindings["]f"].Action)
}

func TestLoad_UserOverridesKeybinding(t *testing.T) {
	path := writeConfig(t, `
keybindings:
  "]f":
    action: next-comment
    help: custom
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, ActionNextComment, cfg.Keybindings["]f"].Action)
	// Untouched defaults survive the merge.
	assert.Equal(t, ActionPrevFile, cfg.Keybindings["[f"].Action)
}

func TestLoad_UnknownActionRejected(t *testing.T) {
	path := writeConfig(t, `
keybindings:
  "x":
    action: explode
`)

	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown action")
}

func TestForRepo_GlobMatching(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repos = []RepoOverride{
		{Pattern: "acme/*", Remote: "upstream"},
		{Pattern: "**", GhHost: "github.example.com"},
	}

	assert.Equal(t, "upstream", cfg.ForRepo("acme/widgets").Remote)
	assert.Equal(t, "github.example.com", cfg.ForRepo("other/thing").GhHost)
	defaults := DefaultConfig()
	assert.Equal(t, RepoOverride{}, defaults.ForRepo("acme/widgets"))
}

func TestValidate_BadPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Repos = []RepoOverride{{Pattern: "[bad"}}
	require.Error(t, cfg.Validate())
}
