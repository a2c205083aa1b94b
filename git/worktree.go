package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhubert/gitcore/logger"
)

// cleanPath turns a caller-supplied path into a slash-separated path
// relative to root, rejecting anything that escapes the repository.
func cleanPath(op, root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalid(op, ErrInvalidPath, "empty path")
	}
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return "", invalid(op, ErrInvalidPath, p)
		}
		p = rel
	}
	p = filepath.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return "", invalid(op, ErrInvalidPath, p+" is outside the repository")
	}
	if p == ".git" || strings.HasPrefix(p, ".git"+string(filepath.Separator)) {
		return "", invalid(op, ErrInvalidPath, p)
	}
	return filepath.ToSlash(p), nil
}

// literal turns a cleaned path into a pathspec git matches byte for byte,
// with no glob or magic interpretation.
func literal(p string) string {
	return ":(literal)" + p
}

// inWorktree reports whether path exists on disk (a dangling symlink counts).
func inWorktree(root, path string) bool {
	_, err := os.Lstat(filepath.Join(root, filepath.FromSlash(path)))
	return err == nil
}

// inIndex reports whether path, or anything below it, is in the index.
func (s *GitService) inIndex(ctx context.Context, root, path string) bool {
	return s.succeeds(ctx, root, "ls-files", "--error-unmatch", "--", literal(path))
}

// inHead reports whether HEAD has an entry at path.
func (s *GitService) inHead(ctx context.Context, root, path string) bool {
	return s.succeeds(ctx, root, "cat-file", "-e", "HEAD:"+path)
}

// StageFile adds the working tree state of path, including deletion, to the index.
func (s *GitService) StageFile(ctx context.Context, root, path string) error {
	const op = "stage"

	p, err := cleanPath(op, root, path)
	if err != nil {
		return err
	}
	if !inWorktree(root, p) && !s.inIndex(ctx, root, p) {
		return notFound(op, ErrPathNotFound, p)
	}
	if _, err := s.run(ctx, root, "add", "-A", "--", literal(p)); err != nil {
		return ioError(op, err)
	}
	logger.WithComponent("git").Info("staged file", "root", root, "path", p)
	return nil
}

// StageAll stages every change in the working tree, untracked files included.
func (s *GitService) StageAll(ctx context.Context, root string) error {
	if _, err := s.run(ctx, root, "add", "-A"); err != nil {
		return ioError("stage all", err)
	}
	logger.WithComponent("git").Info("staged all changes", "root", root)
	return nil
}

// UnstageFile resets the index entry for path to HEAD, leaving the working
// tree alone. In a repository without commits the entry is removed instead.
func (s *GitService) UnstageFile(ctx context.Context, root, path string) error {
	const op = "unstage"

	p, err := cleanPath(op, root, path)
	if err != nil {
		return err
	}
	head := s.hasHead(ctx, root)
	known := s.inIndex(ctx, root, p) || (head && s.inHead(ctx, root, p)) || inWorktree(root, p)
	if !known {
		return notFound(op, ErrPathNotFound, p)
	}

	args := []string{"reset", "-q", "HEAD", "--", literal(p)}
	if !head {
		args = []string{"rm", "--cached", "-r", "-q", "--ignore-unmatch", "--", literal(p)}
	}
	if _, err := s.run(ctx, root, args...); err != nil {
		return ioError(op, err)
	}
	logger.WithComponent("git").Info("unstaged file", "root", root, "path", p)
	return nil
}

// UnstageAll empties the staging area back to HEAD.
func (s *GitService) UnstageAll(ctx context.Context, root string) error {
	args := []string{"reset", "-q"}
	if !s.hasHead(ctx, root) {
		args = []string{"rm", "--cached", "-r", "-q", "--ignore-unmatch", "--", "."}
	}
	if _, err := s.run(ctx, root, args...); err != nil {
		return ioError("unstage all", err)
	}
	logger.WithComponent("git").Info("unstaged all changes", "root", root)
	return nil
}

// RevertFile discards working tree changes to path. Tracked paths are
// restored from the index; untracked paths are deleted. Irreversible.
func (s *GitService) RevertFile(ctx context.Context, root, path string) error {
	const op = "revert"

	p, err := cleanPath(op, root, path)
	if err != nil {
		return err
	}

	switch {
	case s.inIndex(ctx, root, p):
		if _, err := s.run(ctx, root, "checkout", "-q", "--", literal(p)); err != nil {
			return ioError(op, err)
		}
	case inWorktree(root, p):
		if _, err := s.run(ctx, root, "clean", "-f", "-d", "-q", "--", literal(p)); err != nil {
			return ioError(op, err)
		}
	default:
		return notFound(op, ErrPathNotFound, p)
	}

	logger.WithComponent("git").Info("reverted file", "root", root, "path", p)
	return nil
}

// RevertAll discards every unstaged change, untracked files included.
// Staged changes survive. Irreversible.
func (s *GitService) RevertAll(ctx context.Context, root string) error {
	const op = "revert all"

	tracked, err := s.run(ctx, root, "ls-files", "-z")
	if err != nil {
		return ioError(op, err)
	}
	if len(tracked) > 0 {
		if _, err := s.run(ctx, root, "checkout", "-q", "--", "."); err != nil {
			return ioError(op, err)
		}
	}
	if _, err := s.run(ctx, root, "clean", "-f", "-d", "-q"); err != nil {
		return ioError(op, err)
	}
	logger.WithComponent("git").Info("reverted all changes", "root", root)
	return nil
}
