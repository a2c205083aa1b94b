package cli

import (
	"context"
	"errors"
	"strings"
	"testing"

	pexec "github.com/zhubert/gitcore/exec"
)

// newTestChecker finds exactly the tools in installed and answers
// --version from the mock.
func newTestChecker(mock *pexec.MockExecutor, installed ...string) *Checker {
	c := NewChecker(mock)
	c.lookPath = func(name string) (string, error) {
		for _, n := range installed {
			if n == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	return c
}

func TestDefaultPrerequisites(t *testing.T) {
	prereqs := DefaultPrerequisites()

	byName := make(map[string]Prerequisite)
	for _, p := range prereqs {
		byName[p.Name] = p
	}
	if git, ok := byName["git"]; !ok || !git.Required || git.MinVersion == "" {
		t.Errorf("git should be required with a minimum version, got %+v", git)
	}
	if gh, ok := byName["gh"]; !ok || gh.Required {
		t.Errorf("gh should be optional, got %+v", gh)
	}
}

func TestCheck_Found(t *testing.T) {
	mock := pexec.NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"--version"}, pexec.MockResponse{Stdout: []byte("git version 2.43.0\n")})

	result := newTestChecker(mock, "git").Check(context.Background(), DefaultPrerequisites()[0])

	if !result.OK() {
		t.Fatalf("expected git to pass, got %+v", result)
	}
	if result.Path != "/usr/bin/git" || result.Version != "2.43.0" {
		t.Errorf("result = %+v", result)
	}
}

func TestCheck_TooOld(t *testing.T) {
	mock := pexec.NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"--version"}, pexec.MockResponse{Stdout: []byte("git version 2.7.4\n")})

	result := newTestChecker(mock, "git").Check(context.Background(), DefaultPrerequisites()[0])

	if !result.Found || result.OK() {
		t.Fatalf("git 2.7.4 should be found but rejected, got %+v", result)
	}
	if !strings.Contains(result.Error.Error(), "2.11") {
		t.Errorf("error should name the minimum: %v", result.Error)
	}
}

func TestCheck_UnreadableVersionIsAccepted(t *testing.T) {
	mock := pexec.NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"--version"}, pexec.MockResponse{Err: errors.New("exit status 129")})

	result := newTestChecker(mock, "git").Check(context.Background(), DefaultPrerequisites()[0])
	if !result.OK() || result.Version != "" {
		t.Errorf("result = %+v", result)
	}
}

func TestCheck_NonExistingCommand(t *testing.T) {
	result := newTestChecker(pexec.NewMockExecutor(nil)).Check(context.Background(), Prerequisite{
		Name:       "definitely-not-a-real-command-12345",
		Required:   true,
		InstallURL: "http://example.com",
	})

	if result.Found || result.Path != "" {
		t.Errorf("Check should not find a missing command, got %+v", result)
	}
	if result.Error == nil {
		t.Error("Check should return error for non-existing command")
	}
}

func TestCheck_RealPath(t *testing.T) {
	// Exercises exec.LookPath; git is needed by the rest of the suite anyway.
	result := NewChecker(pexec.NewRealExecutor()).Check(context.Background(), Prerequisite{Name: "git", Required: true})
	if !result.Found {
		t.Skip("git not found in PATH, skipping")
	}
	if result.Version == "" {
		t.Error("expected a version from git --version")
	}
}

func TestValidateRequired(t *testing.T) {
	mock := pexec.NewMockExecutor(nil)
	mock.AddExactMatch("git", []string{"--version"}, pexec.MockResponse{Stdout: []byte("git version 2.43.0\n")})
	ctx := context.Background()

	t.Run("optional missing", func(t *testing.T) {
		results := newTestChecker(mock, "git").CheckAll(ctx, DefaultPrerequisites())
		if err := ValidateRequired(results); err != nil {
			t.Errorf("missing gh should not fail validation: %v", err)
		}
	})

	t.Run("required missing", func(t *testing.T) {
		results := newTestChecker(mock, "gh").CheckAll(ctx, DefaultPrerequisites())
		err := ValidateRequired(results)
		if err == nil {
			t.Fatal("ValidateRequired should fail without git")
		}
		if !strings.Contains(err.Error(), "git") || !strings.Contains(err.Error(), "git-scm.com") {
			t.Errorf("error should name git and its install URL: %v", err)
		}
	})
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		have, want string
		ok         bool
	}{
		{"2.43.0", "2.11", true},
		{"2.11", "2.11", true},
		{"2.11.0", "2.11", true},
		{"2.9.5", "2.11", false},
		{"1.99", "2.0", false},
		{"10.0", "9.9.9", true},
	}
	for _, tt := range tests {
		if got := versionAtLeast(tt.have, tt.want); got != tt.ok {
			t.Errorf("versionAtLeast(%q, %q) = %v, want %v", tt.have, tt.want, got, tt.ok)
		}
	}
}

func TestParseVersion(t *testing.T) {
	tests := map[string]string{
		"git version 2.43.0\n":                     "2.43.0",
		"gh version 2.40.1 (2023-12-13)\nhttps://": "2.40.1",
		"git version 2.39.3 (Apple Git-145)":       "2.39.3",
		"no digits here":                           "",
	}
	for in, want := range tests {
		if got := parseVersion(in); got != want {
			t.Errorf("parseVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCheckResults(t *testing.T) {
	results := []CheckResult{
		{
			Prerequisite: Prerequisite{Name: "found-cmd", Required: true},
			Found:        true,
			Version:      "1.0.0",
		},
		{
			Prerequisite: Prerequisite{Name: "old-cmd", Required: true},
			Found:        true,
			Version:      "0.1",
			Error:        errors.New("too old"),
		},
		{
			Prerequisite: Prerequisite{Name: "missing-required", Required: true},
		},
		{
			Prerequisite: Prerequisite{Name: "missing-optional"},
		},
	}

	output := FormatCheckResults(results)

	for _, want := range []string{"CLI Prerequisites", "✓ found-cmd (1.0.0)", "✗ old-cmd (0.1) [too old]", "✗ missing-required [REQUIRED]", "○ missing-optional [optional]"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}
