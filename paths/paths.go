// Package paths resolves where gitcore keeps its settings and logs.
//
// Settings (settings.yaml, including the workspace table) live in the config
// directory; logs live under the state directory. The layout is chosen once
// per process:
//  1. GITCORE_HOME, if set, holds everything (flat layout)
//  2. ~/.gitcore, if it already exists (flat layout)
//  3. XDG_CONFIG_HOME / XDG_STATE_HOME, if either is set
//  4. ~/.gitcore otherwise
package paths

import (
	"os"
	"path/filepath"
	"sync"
)

// HomeEnv overrides every other resolution rule when set.
const HomeEnv = "GITCORE_HOME"

const (
	appDir       = "gitcore"
	flatDirName  = ".gitcore"
	settingsFile = "settings.yaml"
	logsDirName  = "logs"
)

// Layout is the resolved location of gitcore's files.
type Layout struct {
	ConfigDir string `json:"configDir"`
	StateDir  string `json:"stateDir"`
	Flat      bool   `json:"flat"` // config and state share one directory
}

// SettingsFile returns the path of settings.yaml.
func (l Layout) SettingsFile() string {
	return filepath.Join(l.ConfigDir, settingsFile)
}

// LogsDir returns the directory log files are written to.
func (l Layout) LogsDir() string {
	return filepath.Join(l.StateDir, logsDirName)
}

func flat(dir string) Layout {
	return Layout{ConfigDir: dir, StateDir: dir, Flat: true}
}

// resolveLayout applies the resolution order against an environment, a home
// directory and a directory-existence check.
func resolveLayout(getenv func(string) string, home string, isDir func(string) bool) Layout {
	if dir := getenv(HomeEnv); dir != "" {
		return flat(dir)
	}

	flatDir := filepath.Join(home, flatDirName)
	if isDir(flatDir) {
		return flat(flatDir)
	}

	xdgConfig, xdgState := getenv("XDG_CONFIG_HOME"), getenv("XDG_STATE_HOME")
	if xdgConfig == "" && xdgState == "" {
		return flat(flatDir)
	}
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	if xdgState == "" {
		xdgState = filepath.Join(home, ".local", "state")
	}
	return Layout{
		ConfigDir: filepath.Join(xdgConfig, appDir),
		StateDir:  filepath.Join(xdgState, appDir),
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

var (
	mu       sync.Mutex
	resolved *Layout
)

// Resolve returns the process-wide layout, computing it on first use.
func Resolve() (Layout, error) {
	mu.Lock()
	defer mu.Unlock()

	if resolved != nil {
		return *resolved, nil
	}

	var home string
	if os.Getenv(HomeEnv) == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return Layout{}, err
		}
		home = h
	}

	l := resolveLayout(os.Getenv, home, isDir)
	resolved = &l
	return l, nil
}

// SettingsFilePath returns the full path to settings.yaml.
func SettingsFilePath() (string, error) {
	l, err := Resolve()
	if err != nil {
		return "", err
	}
	return l.SettingsFile(), nil
}

// LogsDir returns the directory for log files.
func LogsDir() (string, error) {
	l, err := Resolve()
	if err != nil {
		return "", err
	}
	return l.LogsDir(), nil
}

// Reset clears the cached layout. Tests call it after changing the environment.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resolved = nil
}
