package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// svc creates a new GitService for testing (used by integration tests)
var svc = NewGitService()

// ctx is a background context for testing
var ctx = context.Background()

// gitCmd runs git in dir and fails the test on error.
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// writeFile writes content to a path relative to dir, creating parents.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

// initRepo creates an empty repository on branch main with a test identity.
func initRepo(t *testing.T) string {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "Test User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

// createTestRepo creates a temporary git repository with one commit
// containing test.txt.
func createTestRepo(t *testing.T) string {
	t.Helper()

	dir := initRepo(t)
	writeFile(t, dir, "test.txt", "test content\n")
	gitCmd(t, dir, "add", ".")
	gitCmd(t, dir, "commit", "-q", "-m", "Initial commit")
	return dir
}

// createTestRepoWithRemote creates a repository whose main branch is pushed
// to a bare origin and tracks it.
func createTestRepoWithRemote(t *testing.T) (repoPath, remotePath string) {
	t.Helper()

	remotePath, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	gitCmd(t, remotePath, "init", "-q", "--bare")
	gitCmd(t, remotePath, "symbolic-ref", "HEAD", "refs/heads/main")

	repoPath = createTestRepo(t)
	gitCmd(t, repoPath, "remote", "add", "origin", remotePath)
	gitCmd(t, repoPath, "push", "-q", "-u", "origin", "main")
	return repoPath, remotePath
}

// cloneRepo clones remotePath into a fresh directory with a test identity.
func cloneRepo(t *testing.T, remotePath string) string {
	t.Helper()

	parent, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	dir := filepath.Join(parent, "clone")
	gitCmd(t, parent, "clone", "-q", remotePath, dir)
	gitCmd(t, dir, "config", "user.email", "other@example.com")
	gitCmd(t, dir, "config", "user.name", "Other User")
	gitCmd(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("KindOf(%v) = %s, want %s", err, got, want)
	}
}
