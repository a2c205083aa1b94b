package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pexec "github.com/zhubert/gitcore/exec"
	"github.com/zhubert/gitcore/logger"
)

// emptyTree is the hash of git's empty tree object. Diffs against it stand in
// for diffs against an unborn HEAD or a root commit's missing parent.
const emptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// GitService provides git operations with explicit dependency injection.
// Instead of using a package-level executor variable, each GitService instance
// holds its own executor, enabling proper testing and avoiding global state.
type GitService struct {
	executor pexec.CommandExecutor
}

// NewGitService creates a new GitService with the default real executor.
func NewGitService() *GitService {
	return &GitService{executor: pexec.NewRealExecutor()}
}

// NewGitServiceWithExecutor creates a new GitService with a custom executor.
// This is primarily used for testing where a mock executor is needed.
func NewGitServiceWithExecutor(exec pexec.CommandExecutor) *GitService {
	return &GitService{executor: exec}
}

// CommandError is a failed git invocation.
type CommandError struct {
	Args   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	sub := ""
	if len(e.Args) > 0 {
		sub = " " + e.Args[0]
	}
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("git%s: %s", sub, msg)
	}
	return fmt.Sprintf("git%s: %v", sub, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExitCode returns the process exit status, or -1 when the command did not
// exit normally.
func (e *CommandError) ExitCode() int {
	var coder interface{ ExitCode() int }
	if errors.As(e.Err, &coder) {
		return coder.ExitCode()
	}
	return -1
}

// exitCode returns the exit status carried by err, -1 if none.
func exitCode(err error) int {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.ExitCode()
	}
	return -1
}

// stderrOf returns the trimmed stderr of a failed invocation.
func stderrOf(err error) string {
	var ce *CommandError
	if errors.As(err, &ce) {
		return strings.TrimSpace(ce.Stderr)
	}
	return ""
}

// outputOf returns stdout and stderr of a failed invocation as one string.
func outputOf(err error) string {
	var ce *CommandError
	if errors.As(err, &ce) {
		return strings.TrimSpace(ce.Stderr + "\n" + ce.Stdout)
	}
	return ""
}

// run executes git in dir and returns its stdout. A non-zero exit is
// returned as *CommandError along with whatever stdout was produced.
func (s *GitService) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	start := time.Now()
	stdout, stderr, err := s.executor.Run(ctx, dir, "git", args...)
	logger.WithComponent("git").Debug("git", "dir", dir, "args", args, "duration", time.Since(start), "error", err)
	if err != nil {
		return stdout, &CommandError{Args: args, Stdout: string(stdout), Stderr: string(stderr), Err: err}
	}
	return stdout, nil
}

// succeeds runs git and reports whether it exited zero.
func (s *GitService) succeeds(ctx context.Context, dir string, args ...string) bool {
	_, err := s.run(ctx, dir, args...)
	return err == nil
}

// hasHead reports whether HEAD points at a commit (false in a fresh repo).
func (s *GitService) hasHead(ctx context.Context, root string) bool {
	return s.succeeds(ctx, root, "rev-parse", "--verify", "--quiet", "HEAD^{commit}")
}

// baseRef returns HEAD, or the empty tree when HEAD is unborn.
func (s *GitService) baseRef(ctx context.Context, root string) string {
	if s.hasHead(ctx, root) {
		return "HEAD"
	}
	return emptyTree
}

// splitNul splits NUL-terminated output, dropping the trailing empty field.
func splitNul(out []byte) []string {
	trimmed := strings.TrimSuffix(string(out), "\x00")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\x00")
}
