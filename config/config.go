// Package config holds gitcore's settings and the workspace table. Both live
// in one YAML file under the config directory.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zhubert/gitcore/paths"
)

// Defaults applied when a setting is absent from the file.
const (
	DefaultMaxDiffBytes int64 = 500_000
	DefaultLogLimit           = 50
	DefaultRootsDepth         = 2
	DefaultRemote             = "origin"
)

// Pull strategies accepted by pull_strategy.
const (
	PullMerge  = "merge"
	PullRebase = "rebase"
)

// GitHubSettings configures the GitHub client.
type GitHubSettings struct {
	BaseURL  string   `yaml:"base_url,omitempty"`  // Enterprise API root, e.g. https://ghe.example.com/api/v3/
	TokenEnv []string `yaml:"token_env,omitempty"` // Env vars checked for a token, in order
	UseGHCLI *bool    `yaml:"use_gh_cli,omitempty"`
}

// Config holds the application configuration
type Config struct {
	MaxDiffBytes int64          `yaml:"max_diff_bytes,omitempty"` // Per-file diff size above which hunks are dropped
	LogLimit     int            `yaml:"log_limit,omitempty"`      // Default number of log entries
	RootsDepth   int            `yaml:"roots_depth,omitempty"`    // Default depth for nested root discovery
	Pull         string         `yaml:"pull_strategy,omitempty"`  // "merge" or "rebase"
	Remote       string         `yaml:"remote,omitempty"`         // Preferred remote name
	GitHub       GitHubSettings `yaml:"github,omitempty"`

	Workspaces map[string]string `yaml:"workspaces,omitempty"` // Workspace ID -> base directory

	mu       sync.RWMutex
	filePath string
}

// New returns a Config with every default applied and no file behind it.
func New() *Config {
	cfg := &Config{}
	cfg.ensureInitialized()
	return cfg
}

// Load reads settings.yaml from the config directory, or returns defaults if
// it doesn't exist.
func Load() (*Config, error) {
	path, err := paths.SettingsFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from path. A missing file yields defaults bound
// to path so a later Save creates it.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{filePath: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg.ensureInitialized()
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Validate first so negative values are reported rather than defaulted.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.ensureInitialized()

	return cfg, nil
}

// ensureInitialized fills in defaults for zero values.
//
// Not thread-safe: only called before the Config is shared.
func (c *Config) ensureInitialized() {
	if c.MaxDiffBytes == 0 {
		c.MaxDiffBytes = DefaultMaxDiffBytes
	}
	if c.LogLimit == 0 {
		c.LogLimit = DefaultLogLimit
	}
	if c.RootsDepth == 0 {
		c.RootsDepth = DefaultRootsDepth
	}
	if c.Pull == "" {
		c.Pull = PullMerge
	}
	if c.Remote == "" {
		c.Remote = DefaultRemote
	}
	if len(c.GitHub.TokenEnv) == 0 {
		c.GitHub.TokenEnv = []string{"GITHUB_TOKEN", "GH_TOKEN"}
	}
	if c.Workspaces == nil {
		c.Workspaces = make(map[string]string)
	}
}

// Validate checks that the config is internally consistent.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.MaxDiffBytes < 0 {
		return fmt.Errorf("max_diff_bytes must not be negative: %d", c.MaxDiffBytes)
	}
	if c.LogLimit < 0 {
		return fmt.Errorf("log_limit must not be negative: %d", c.LogLimit)
	}
	if c.RootsDepth < 0 {
		return fmt.Errorf("roots_depth must not be negative: %d", c.RootsDepth)
	}
	switch c.Pull {
	case "", PullMerge, PullRebase:
	default:
		return fmt.Errorf("unknown pull_strategy %q (want %q or %q)", c.Pull, PullMerge, PullRebase)
	}

	ids := slices.Sorted(maps.Keys(c.Workspaces))
	for i, id := range ids {
		if id == "" {
			return fmt.Errorf("workspace with empty ID found")
		}
		dir := c.Workspaces[id]
		if dir == "" {
			return fmt.Errorf("workspace %s has empty directory", id)
		}
		for _, other := range ids[i+1:] {
			if SamePath(dir, c.Workspaces[other]) {
				return fmt.Errorf("workspaces %s and %s share directory %s", id, other, dir)
			}
		}
	}

	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filePath == "" {
		return fmt.Errorf("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.filePath, data, 0644)
}

// SetFilePath sets the config file path (for testing).
func (c *Config) SetFilePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filePath = path
}

// FilePath returns the file the config is saved to.
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// AddWorkspace maps id to dir. The directory is stored as an absolute path.
// Re-adding an id replaces its directory; mapping a second id to a directory
// already taken by another workspace is an error.
func (c *Config) AddWorkspace(id, dir string) error {
	if id == "" {
		return fmt.Errorf("workspace ID must not be empty")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if other, ok := findWorkspaceByDir(c.Workspaces, absDir); ok && other != id {
		return fmt.Errorf("directory %s already belongs to workspace %s", absDir, other)
	}
	if c.Workspaces == nil {
		c.Workspaces = make(map[string]string)
	}
	c.Workspaces[id] = absDir
	return nil
}

// RemoveWorkspace removes a workspace from the config.
// Returns true if the workspace was found and removed, false otherwise.
func (c *Config) RemoveWorkspace(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.Workspaces[id]; !ok {
		return false
	}
	delete(c.Workspaces, id)
	return true
}

// WorkspaceDir returns the base directory registered for id.
func (c *Config) WorkspaceDir(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dir, ok := c.Workspaces[id]
	return dir, ok
}

// WorkspaceForDir returns the ID of the workspace containing dir: the one
// registered for dir itself, else the one registered for its nearest ancestor.
func (c *Config) WorkspaceForDir(dir string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return findWorkspaceContaining(c.Workspaces, dir)
}

// WorkspaceIDs returns the registered workspace IDs in sorted order.
func (c *Config) WorkspaceIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.Workspaces))
}

// GetMaxDiffBytes returns the per-file diff size threshold.
func (c *Config) GetMaxDiffBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.MaxDiffBytes <= 0 {
		return DefaultMaxDiffBytes
	}
	return c.MaxDiffBytes
}

// SetMaxDiffBytes sets the per-file diff size threshold.
func (c *Config) SetMaxDiffBytes(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MaxDiffBytes = n
}

// GetLogLimit returns the default log page size, defaulting to 50
func (c *Config) GetLogLimit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.LogLimit <= 0 {
		return DefaultLogLimit
	}
	return c.LogLimit
}

// GetRootsDepth returns the default nested-root discovery depth.
func (c *Config) GetRootsDepth() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.RootsDepth <= 0 {
		return DefaultRootsDepth
	}
	return c.RootsDepth
}

// GetPullStrategy returns "merge" or "rebase".
func (c *Config) GetPullStrategy() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Pull == PullRebase {
		return PullRebase
	}
	return PullMerge
}

// SetPullStrategy sets the pull strategy. Unknown values are rejected.
func (c *Config) SetPullStrategy(strategy string) error {
	if strategy != PullMerge && strategy != PullRebase {
		return fmt.Errorf("unknown pull strategy %q", strategy)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Pull = strategy
	return nil
}

// GetRemote returns the preferred remote name, defaulting to "origin"
func (c *Config) GetRemote() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Remote == "" {
		return DefaultRemote
	}
	return c.Remote
}

// GetGitHub returns a copy of the GitHub settings.
func (c *Config) GetGitHub() GitHubSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	gh := c.GitHub
	gh.TokenEnv = slices.Clone(c.GitHub.TokenEnv)
	return gh
}

// UseGH reports whether `gh auth token` may be consulted for a token.
func (s GitHubSettings) UseGH() bool {
	return s.UseGHCLI == nil || *s.UseGHCLI
}
