package config

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SamePath reports whether a and b name the same filesystem entry. Symlinks
// and case-insensitive filesystems are handled by comparing file identity;
// paths that cannot be stat'd only match when the strings are equal.
func SamePath(a, b string) bool {
	if a == b {
		return true
	}
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}

// canonicalDir returns dir made absolute with symlinks resolved. A directory
// that no longer exists is returned absolute and cleaned.
func canonicalDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Clean(dir)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// within reports whether dir is base or lies below it.
func within(base, dir string) bool {
	rel, err := filepath.Rel(base, dir)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// findWorkspaceByDir returns the workspace registered for exactly dir.
// Callers must hold the config lock.
func findWorkspaceByDir(workspaces map[string]string, dir string) (string, bool) {
	for _, id := range slices.Sorted(maps.Keys(workspaces)) {
		if SamePath(workspaces[id], dir) {
			return id, true
		}
	}
	return "", false
}

// findWorkspaceContaining returns the workspace whose directory is dir or its
// nearest ancestor, so nested workspaces resolve to the innermost one.
// Callers must hold the config lock.
func findWorkspaceContaining(workspaces map[string]string, dir string) (string, bool) {
	if id, ok := findWorkspaceByDir(workspaces, dir); ok {
		return id, true
	}

	target := canonicalDir(dir)
	best, bestLen := "", -1
	for id, d := range workspaces {
		base := canonicalDir(d)
		if !within(base, target) {
			continue
		}
		if len(base) > bestLen || (len(base) == bestLen && id < best) {
			best, bestLen = id, len(base)
		}
	}
	return best, bestLen >= 0
}
