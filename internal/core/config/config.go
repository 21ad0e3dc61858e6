// Package config handles configuration loading and validation for perch.
package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Built-in action names for keybindings. Each maps to one review session
// operation.
const (
	ActionNextFile     = "next-file"
	ActionPrevFile     = "prev-file"
	ActionNextComment  = "next-comment"
	ActionPrevComment  = "prev-comment"
	ActionReload       = "reload"
	ActionReloadFile   = "reload-file"
	ActionAddComment   = "add-comment"
	ActionAddGeneral   = "add-general-comment"
	ActionEditComment  = "edit-comment"
	ActionDelComment   = "delete-comment"
	ActionReply        = "reply"
	ActionGotoFile     = "goto-file"
	ActionApprove      = "approve"
	ActionRequest      = "request-changes"
	ActionComment      = "comment"
	ActionReact        = "react"
	ActionUnreact      = "unreact"
	ActionCloseList    = "close-comments-panel"
	ActionCloseSession = "close-review"
)

// defaultKeybindings provides built-in keybindings that users can override.
var defaultKeybindings = map[string]Keybinding{
	"]f": {Action: ActionNextFile, Help: "next file"},
	"[f": {Action: ActionPrevFile, Help: "prev file"},
	"]c": {Action: ActionNextComment, Help: "next comment"},
	"[c": {Action: ActionPrevComment, Help: "prev comment"},
	"r":  {Action: ActionReload, Help: "reload"},
	"rf": {Action: ActionReloadFile, Help: "reload file"},
	"ca": {Action: ActionAddComment, Help: "add comment"},
	"cA": {Action: ActionAddGeneral, Help: "general comment"},
	"ce": {Action: ActionEditComment, Help: "edit comment"},
	"cd": {Action: ActionDelComment, Help: "delete comment", Confirm: "Delete this comment?"},
	"cr": {Action: ActionReply, Help: "reply"},
	"gf": {Action: ActionGotoFile, Help: "goto file"},
	"sa": {Action: ActionApprove, Help: "approve", Confirm: "Approve this pull request?"},
	"sr": {Action: ActionRequest, Help: "request changes"},
	"sc": {Action: ActionComment, Help: "submit comment review"},
	"+":  {Action: ActionReact, Help: "react"},
	"-":  {Action: ActionUnreact, Help: "remove reaction"},
	"qc": {Action: ActionCloseList, Help: "close comments"},
	"q":  {Action: ActionCloseSession, Help: "quit review"},
}

var knownActions = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, kb := range defaultKeybindings {
		m[kb.Action] = struct{}{}
	}
	return m
}()

// Config holds the application configuration.
type Config struct {
	GhPath      string                `yaml:"gh_path"`
	GitPath     string                `yaml:"git_path"`
	Remote      string                `yaml:"remote"`
	Keybindings map[string]Keybinding `yaml:"keybindings"`
	Repos       []RepoOverride        `yaml:"repos"`
	DataDir     string                `yaml:"-"` // set by caller, not from config file
}

// Keybinding defines a TUI keybinding action.
type Keybinding struct {
	Action  string `yaml:"action"`  // built-in action name
	Help    string `yaml:"help"`    // help text shown in TUI
	Confirm string `yaml:"confirm"` // confirmation prompt (empty = no confirm)
}

// RepoOverride applies settings to repositories whose owner/repo slug
// matches Pattern (doublestar glob, e.g. "acme/*").
type RepoOverride struct {
	Pattern string `yaml:"pattern"`
	Remote  string `yaml:"remote"`  // git remote to resolve the slug from
	GhHost  string `yaml:"gh_host"` // value for GH_HOST when calling gh
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GhPath:      "gh",
		GitPath:     "git",
		Remote:      "origin",
		Keybindings: map[string]Keybinding{},
	}
}

// Load reads configuration from the given path, merging over defaults.
// A missing file is not an error; defaults apply.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.Keybindings = mergeKeybindings(defaultKeybindings, cfg.Keybindings)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.GhPath == "" {
		c.GhPath = "gh"
	}
	if c.GitPath == "" {
		c.GitPath = "git"
	}
	if c.Remote == "" {
		c.Remote = "origin"
	}
}

// Validate checks the configuration for unknown actions and bad patterns.
func (c *Config) Validate() error {
	for key, kb := range c.Keybindings {
		if _, ok := knownActions[kb.Action]; !ok {
			return fmt.Errorf("keybinding %q: unknown action %q", key, kb.Action)
		}
	}
	for _, ro := range c.Repos {
		if ro.Pattern == "" {
			return fmt.Errorf("repo override missing pattern")
		}
		if !doublestar.ValidatePattern(ro.Pattern) {
			return fmt.Errorf("repo override: invalid pattern %q", ro.Pattern)
		}
	}
	return nil
}

// ForRepo returns the first override whose pattern matches the owner/repo
// slug, or a zero RepoOverride when none match.
func (c *Config) ForRepo(slug string) RepoOverride {
	for _, ro := range c.Repos {
		ok, err := doublestar.Match(ro.Pattern, slug)
		if err == nil && ok {
			return ro
		}
	}
	return RepoOverride{}
}

// mergeKeybindings overlays user keybindings onto the defaults.
func mergeKeybindings(defaults, user map[string]Keybinding) map[string]Keybinding {
	merged := make(map[string]Keybinding, len(defaults)+len(user))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range user {
		merged[k] = v
	}
	return merged
}
