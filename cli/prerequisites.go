// Package cli checks the external command-line tools gitcore shells out to.
package cli

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	pexec "github.com/zhubert/gitcore/exec"
)

// Prerequisite represents an external CLI tool
type Prerequisite struct {
	Name        string // Command name (e.g., "git", "gh")
	Required    bool   // Whether gitcore can run without it
	Description string // Human-readable description
	InstallURL  string // URL for installation instructions
	MinVersion  string // Oldest supported version, "" for any
}

// DefaultPrerequisites returns the tools gitcore uses. git 2.11 is the first
// release with `status --porcelain=v2`.
func DefaultPrerequisites() []Prerequisite {
	return []Prerequisite{
		{
			Name:        "git",
			Required:    true,
			Description: "Git version control",
			InstallURL:  "https://git-scm.com/downloads",
			MinVersion:  "2.11",
		},
		{
			Name:        "gh",
			Required:    false, // Only a token source for GitHub requests
			Description: "GitHub CLI (optional, supplies a GitHub token)",
			InstallURL:  "https://cli.github.com",
		},
	}
}

// CheckResult contains the result of checking a prerequisite
type CheckResult struct {
	Prerequisite Prerequisite
	Found        bool
	Path         string // Path to the executable if found
	Version      string // Version number if it could be read
	Error        error
}

// OK reports whether the tool was found and is recent enough.
func (r CheckResult) OK() bool {
	return r.Found && r.Error == nil
}

// Checker looks tools up on PATH and asks them for their version.
type Checker struct {
	executor pexec.CommandExecutor
	lookPath func(string) (string, error)
}

// NewChecker creates a Checker that runs version probes through executor.
func NewChecker(executor pexec.CommandExecutor) *Checker {
	return &Checker{executor: executor, lookPath: exec.LookPath}
}

// Check verifies that a CLI tool is available in PATH and meets its minimum
// version.
func (c *Checker) Check(ctx context.Context, prereq Prerequisite) CheckResult {
	result := CheckResult{Prerequisite: prereq}

	path, err := c.lookPath(prereq.Name)
	if err != nil {
		result.Error = fmt.Errorf("%s not found in PATH", prereq.Name)
		return result
	}
	result.Found = true
	result.Path = path

	out, err := c.executor.Output(ctx, "", prereq.Name, "--version")
	if err == nil {
		result.Version = parseVersion(string(out))
	}

	if prereq.MinVersion != "" && result.Version != "" && !versionAtLeast(result.Version, prereq.MinVersion) {
		result.Error = fmt.Errorf("%s %s is older than the supported minimum %s", prereq.Name, result.Version, prereq.MinVersion)
	}
	return result
}

// CheckAll verifies all prerequisites and returns results
func (c *Checker) CheckAll(ctx context.Context, prereqs []Prerequisite) []CheckResult {
	results := make([]CheckResult, len(prereqs))
	for i, prereq := range prereqs {
		results[i] = c.Check(ctx, prereq)
	}
	return results
}

// ValidateRequired returns an error describing every required tool that is
// missing or too old, nil if there are none.
func ValidateRequired(results []CheckResult) error {
	var problems []string

	for _, r := range results {
		if !r.Prerequisite.Required || r.OK() {
			continue
		}
		problems = append(problems, fmt.Sprintf("  - %s (%s): %v\n    Install: %s",
			r.Prerequisite.Name, r.Prerequisite.Description, r.Error, r.Prerequisite.InstallURL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("missing required CLI tools:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// parseVersion extracts the first dotted version number from a tool's
// --version output, e.g. "git version 2.43.0" or "gh version 2.40.1 (2023-12-13)".
func parseVersion(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return versionPattern.FindString(line)
}

// versionAtLeast compares dotted version numbers component by component.
func versionAtLeast(have, want string) bool {
	h := strings.Split(have, ".")
	w := strings.Split(want, ".")
	for i := range max(len(h), len(w)) {
		hv, wv := component(h, i), component(w, i)
		if hv != wv {
			return hv > wv
		}
	}
	return true
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(parts[i])
	return n
}

// FormatCheckResults formats check results for display
func FormatCheckResults(results []CheckResult) string {
	var sb strings.Builder

	sb.WriteString("CLI Prerequisites:\n")
	for _, r := range results {
		status := "✓"
		if !r.OK() {
			if r.Prerequisite.Required {
				status = "✗"
			} else {
				status = "○"
			}
		}

		fmt.Fprintf(&sb, "  %s %s", status, r.Prerequisite.Name)
		switch {
		case r.Found && r.Version != "":
			fmt.Fprintf(&sb, " (%s)", r.Version)
		case !r.Found && r.Prerequisite.Required:
			sb.WriteString(" [REQUIRED]")
		case !r.Found:
			sb.WriteString(" [optional]")
		}
		if r.Found && r.Error != nil {
			fmt.Fprintf(&sb, " [%v]", r.Error)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
