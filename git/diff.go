package git

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zhubert/gitcore/logger"
)

// untrackedDiffWorkers bounds concurrent `git diff --no-index` processes.
const untrackedDiffWorkers = 4

// diffArgs pins the output format regardless of user configuration
// (external diff tools, color, custom prefixes).
var diffArgs = []string{"diff", "--no-color", "--no-ext-diff", "--src-prefix=a/", "--dst-prefix=b/"}

// CommitDiff is the change a commit made relative to one of its parents.
type CommitDiff struct {
	SHA     string     `json:"sha"`
	Parents []string   `json:"parents"`
	Parent  string     `json:"parent,omitempty"` // parent diffed against; empty for a root commit
	Files   []FileDiff `json:"files"`
}

// CollectWorkspaceDiff returns the combined unified diff of the working tree
// against HEAD, staged and unstaged changes together, followed by diffs that
// add each untracked file. The text is git's output, unmodified.
func (s *GitService) CollectWorkspaceDiff(ctx context.Context, root string) (string, error) {
	const op = "workspace diff"

	out, err := s.run(ctx, root, append(slices.Clone(diffArgs), s.baseRef(ctx, root))...)
	if err != nil {
		return "", ioError(op, err)
	}

	untracked, err := s.untrackedFiles(ctx, root)
	if err != nil {
		return "", ioError(op, err)
	}
	texts, err := s.untrackedDiffs(ctx, root, untracked)
	if err != nil {
		return "", ioError(op, err)
	}

	var b strings.Builder
	b.Write(out)
	for _, t := range texts {
		b.WriteString(t)
	}
	return b.String(), nil
}

// FileDiffs returns a structured diff per changed file, tracked and
// untracked, ordered by path. Files whose diff text is longer than maxBytes
// come back marked TooLarge with no hunks; maxBytes <= 0 disables the limit.
func (s *GitService) FileDiffs(ctx context.Context, root string, maxBytes int64) ([]FileDiff, error) {
	const op = "file diffs"

	out, err := s.run(ctx, root, append(slices.Clone(diffArgs), "-M", s.baseRef(ctx, root))...)
	if err != nil {
		return nil, ioError(op, err)
	}
	files := ParseUnifiedDiff(string(out))

	untracked, err := s.untrackedFiles(ctx, root)
	if err != nil {
		return nil, ioError(op, err)
	}
	texts, err := s.untrackedDiffs(ctx, root, untracked)
	if err != nil {
		return nil, ioError(op, err)
	}
	for i, t := range texts {
		parsed := ParseUnifiedDiff(t)
		if len(parsed) == 0 {
			// Empty files produce no diff text under --no-index.
			parsed = []FileDiff{{Path: untracked[i], Kind: ChangeAdded, Hunks: []DiffHunk{}}}
		}
		files = append(files, parsed...)
	}

	slices.SortStableFunc(files, func(a, b FileDiff) int { return strings.Compare(a.Path, b.Path) })
	return ApplySizeLimit(files, maxBytes), nil
}

// CommitDiff returns the changes introduced by sha. A root commit is diffed
// against the empty tree, an ordinary commit against its parent, and a merge
// commit yields one CommitDiff per parent in parent order.
func (s *GitService) CommitDiff(ctx context.Context, root, sha string, maxBytes int64) ([]CommitDiff, error) {
	const op = "commit diff"

	sha = strings.TrimSpace(sha)
	if sha == "" || strings.HasPrefix(sha, "-") || strings.ContainsAny(sha, " \t\n") {
		return nil, invalid(op, ErrCommitNotFound, "invalid commit reference "+sha)
	}

	out, err := s.run(ctx, root, "rev-parse", "--verify", "--quiet", sha+"^{commit}")
	if err != nil {
		return nil, notFound(op, ErrCommitNotFound, sha)
	}
	full := strings.TrimSpace(string(out))

	out, err = s.run(ctx, root, "rev-list", "--parents", "-n", "1", full)
	if err != nil {
		return nil, ioError(op, err)
	}
	fields := strings.Fields(string(out))
	parents := []string{}
	if len(fields) > 1 {
		parents = fields[1:]
	}

	bases := parents
	if len(bases) == 0 {
		bases = []string{emptyTree}
	}

	diffs := make([]CommitDiff, 0, len(bases))
	for _, base := range bases {
		text, err := s.run(ctx, root, append(slices.Clone(diffArgs), "-M", base, full)...)
		if err != nil {
			return nil, ioError(op, err)
		}
		cd := CommitDiff{
			SHA:     full,
			Parents: parents,
			Files:   ApplySizeLimit(ParseUnifiedDiff(string(text)), maxBytes),
		}
		if base != emptyTree {
			cd.Parent = base
		}
		diffs = append(diffs, cd)
	}
	return diffs, nil
}

// ApplySizeLimit marks every file whose raw diff exceeds maxBytes as
// TooLarge, dropping its hunks and text but keeping path and kind.
func ApplySizeLimit(files []FileDiff, maxBytes int64) []FileDiff {
	if maxBytes <= 0 {
		return files
	}
	for i := range files {
		if int64(len(files[i].Diff)) > maxBytes {
			files[i].TooLarge = true
			files[i].Hunks = []DiffHunk{}
			files[i].Diff = ""
		}
	}
	return files
}

// untrackedFiles lists untracked, non-ignored files relative to root. Nested
// repositories, which git reports as "dir/", are separate roots and are left
// out.
func (s *GitService) untrackedFiles(ctx context.Context, root string) ([]string, error) {
	out, err := s.run(ctx, root, "ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return nil, err
	}
	files := splitNul(out)
	return slices.DeleteFunc(files, func(p string) bool { return strings.HasSuffix(p, "/") }), nil
}

// untrackedDiffs produces an "added file" diff for each path, in input
// order. Exit status 1 from --no-index means the files differ, unless git
// printed no diff and complained on stderr, in which case it could not read
// the file.
func (s *GitService) untrackedDiffs(ctx context.Context, root string, paths []string) ([]string, error) {
	texts := make([]string, len(paths))
	if len(paths) == 0 {
		return texts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(untrackedDiffWorkers)
	for i, p := range paths {
		g.Go(func() error {
			args := append(slices.Clone(diffArgs), "--no-index", "--", "/dev/null", p)
			out, err := s.run(gctx, root, args...)
			if err != nil && (exitCode(err) != 1 || (len(out) == 0 && stderrOf(err) != "")) {
				logger.WithComponent("git").Warn("untracked diff failed", "root", root, "path", p, "error", err)
				return err
			}
			texts[i] = string(out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return texts, nil
}
