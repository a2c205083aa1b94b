package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/zhubert/gitcore/logger"
)

// Discovery depth limits for nested roots.
const (
	DefaultRootsDepth = 2
	MaxRootsDepth     = 6
)

// skipDirs are never descended into when looking for nested roots.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// ResolveRoot returns the top of the working tree that contains dir. When dir
// is not inside a repository, the shallowest repository below dir is used
// instead, so a workspace that wraps a single checkout still resolves.
func (s *GitService) ResolveRoot(ctx context.Context, dir string) (string, error) {
	const op = "resolve root"

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", invalid(op, ErrInvalidPath, dir)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", notFound(op, ErrRepositoryNotFound, abs+" is not a directory")
	}

	root, err := s.enclosingRoot(ctx, abs)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return "", err
	}

	nested, walkErr := walkRoots(ctx, abs, DefaultRootsDepth+1)
	if walkErr != nil {
		return "", ioError(op, walkErr)
	}
	if len(nested) == 0 {
		return "", notFound(op, ErrRepositoryNotFound, abs)
	}
	return nested[0], nil
}

// enclosingRoot finds the repository containing dir with go-git. Repositories
// go-git cannot open (unsupported extensions, odd layouts) fall back to
// `git rev-parse --show-toplevel`.
func (s *GitService) enclosingRoot(ctx context.Context, dir string) (string, error) {
	const op = "resolve root"

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return "", err
	}
	if err == nil {
		wt, wtErr := repo.Worktree()
		if errors.Is(wtErr, gogit.ErrIsBareRepository) {
			return "", notFound(op, ErrRepositoryNotFound, dir+" is a bare repository")
		}
		if wtErr == nil {
			return filepath.Clean(wt.Filesystem.Root()), nil
		}
		err = wtErr
	}

	logger.WithComponent("git").Debug("go-git could not open repository, asking git", "dir", dir, "error", err)
	out, runErr := s.run(ctx, dir, "rev-parse", "--show-toplevel")
	if runErr != nil {
		return "", notFound(op, ErrRepositoryNotFound, dir)
	}
	return filepath.Clean(strings.TrimSpace(string(out))), nil
}

// ListRoots returns every repository root at most depth directories below
// dir, dir itself included, sorted by path. Unreadable directories are
// skipped.
func (s *GitService) ListRoots(ctx context.Context, dir string, depth int) ([]string, error) {
	const op = "list roots"

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, invalid(op, ErrInvalidPath, dir)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, notFound(op, ErrWorkspaceNotFound, abs)
	}

	roots, err := walkRoots(ctx, abs, clampDepth(depth))
	if err != nil {
		return nil, ioError(op, err)
	}
	slices.Sort(roots)
	return roots, nil
}

func clampDepth(depth int) int {
	if depth < 0 {
		return DefaultRootsDepth
	}
	return min(depth, MaxRootsDepth)
}

// walkRoots walks breadth-first from dir, returning repository roots in
// discovery order: shallower first, lexical within a level.
func walkRoots(ctx context.Context, dir string, depth int) ([]string, error) {
	log := logger.WithComponent("git")

	type item struct {
		path  string
		depth int
	}
	var roots []string
	queue := []item{{dir, 0}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(cur.path)
		if err != nil {
			log.Debug("skipping unreadable directory", "path", cur.path, "error", err)
			continue
		}

		for _, e := range entries {
			if e.Name() == ".git" {
				roots = append(roots, cur.path)
				break
			}
		}

		if cur.depth >= depth {
			continue
		}
		// os.ReadDir sorts by name, so each level is queued in lexical order.
		for _, e := range entries {
			if !e.IsDir() || skipDirs[e.Name()] {
				continue
			}
			queue = append(queue, item{filepath.Join(cur.path, e.Name()), cur.depth + 1})
		}
	}
	return roots, nil
}
