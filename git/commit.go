package git

import (
	"context"
	"errors"
	"strings"

	"github.com/zhubert/gitcore/logger"
)

// HasStagedChanges reports whether the index differs from HEAD.
func (s *GitService) HasStagedChanges(ctx context.Context, root string) (bool, error) {
	if !s.hasHead(ctx, root) {
		out, err := s.run(ctx, root, "ls-files", "-z")
		if err != nil {
			return false, err
		}
		return len(out) > 0, nil
	}

	_, err := s.run(ctx, root, "diff", "--cached", "--quiet", "--no-ext-diff")
	switch code := exitCode(err); {
	case err == nil:
		return false, nil
	case code == 1:
		return true, nil
	default:
		return false, err
	}
}

// Commit records the staged changes with message and returns the new
// commit's sha.
func (s *GitService) Commit(ctx context.Context, root, message string) (string, error) {
	const op = "commit"
	log := logger.WithComponent("git")

	message = strings.TrimSpace(message)
	if message == "" {
		return "", invalid(op, ErrEmptyMessage, "")
	}

	staged, err := s.HasStagedChanges(ctx, root)
	if err != nil {
		return "", ioError(op, err)
	}
	if !staged {
		return "", conflict(op, ErrNothingStaged, "")
	}

	if _, err := s.run(ctx, root, "commit", "-q", "-m", message); err != nil {
		msg := outputOf(err)
		if msg == "" {
			return "", ioError(op, err)
		}
		if strings.Contains(msg, "Please tell me who you are") || strings.Contains(msg, "empty ident") {
			msg = "git identity is not configured (set user.name and user.email): " + msg
		}
		log.Warn("commit failed", "root", root, "error", msg)
		return "", ioError(op, errors.New(msg))
	}

	out, err := s.run(ctx, root, "rev-parse", "HEAD")
	if err != nil {
		return "", ioError(op, err)
	}
	sha := strings.TrimSpace(string(out))
	log.Info("commit created", "root", root, "sha", sha)
	return sha, nil
}
