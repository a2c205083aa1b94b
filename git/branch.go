package git

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/zhubert/gitcore/logger"
)

// BranchInfo describes a local or remote-tracking branch.
type BranchInfo struct {
	Name       string `json:"name"` // "main" for local, "origin/main" for remote-tracking
	IsCurrent  bool   `json:"isCurrent"`
	IsRemote   bool   `json:"isRemote"`
	Upstream   string `json:"upstream,omitempty"`
	SHA        string `json:"sha"`
	LastCommit int64  `json:"lastCommit"` // committer time of the tip, unix seconds
}

const branchFormat = "%(refname)%00%(objectname)%00%(upstream:short)%00%(HEAD)%00%(committerdate:unix)"

// ListBranches returns local branches followed by remote-tracking branches,
// each group sorted by name. Symbolic remote HEADs are left out.
func (s *GitService) ListBranches(ctx context.Context, root string) ([]BranchInfo, error) {
	out, err := s.run(ctx, root, "for-each-ref", "--format="+branchFormat, "refs/heads", "refs/remotes")
	if err != nil {
		return nil, ioError("list branches", err)
	}

	branches := []BranchInfo{}
	for line := range strings.SplitSeq(strings.TrimSpace(string(out)), "\n") {
		f := strings.Split(line, "\x00")
		if len(f) != 5 {
			continue
		}
		b := BranchInfo{
			SHA:       f[1],
			Upstream:  f[2],
			IsCurrent: f[3] == "*",
		}
		b.LastCommit, _ = strconv.ParseInt(f[4], 10, 64)
		switch {
		case strings.HasPrefix(f[0], "refs/heads/"):
			b.Name = strings.TrimPrefix(f[0], "refs/heads/")
		case strings.HasPrefix(f[0], "refs/remotes/"):
			b.Name = strings.TrimPrefix(f[0], "refs/remotes/")
			b.IsRemote = true
			if strings.HasSuffix(b.Name, "/HEAD") {
				continue
			}
		default:
			continue
		}
		branches = append(branches, b)
	}
	return branches, nil
}

// CurrentBranch returns the checked-out branch, or "" when HEAD is detached.
// An unborn branch is still reported by name.
func (s *GitService) CurrentBranch(ctx context.Context, root string) string {
	out, err := s.run(ctx, root, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// validBranchName rejects names git would read as options before asking
// git itself whether the name is a legal ref.
func (s *GitService) validBranchName(ctx context.Context, op, root, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid(op, ErrInvalidName, "empty branch name")
	}
	if strings.HasPrefix(name, "-") {
		return invalid(op, ErrInvalidName, name)
	}
	if !s.succeeds(ctx, root, "check-ref-format", "--branch", name) {
		return invalid(op, ErrInvalidName, name)
	}
	return nil
}

func (s *GitService) localBranchExists(ctx context.Context, root, name string) bool {
	return s.succeeds(ctx, root, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
}

// CreateBranch creates name at HEAD without switching to it.
func (s *GitService) CreateBranch(ctx context.Context, root, name string) error {
	const op = "create branch"

	if err := s.validBranchName(ctx, op, root, name); err != nil {
		return err
	}
	if s.localBranchExists(ctx, root, name) {
		return conflict(op, ErrBranchExists, name)
	}
	if !s.hasHead(ctx, root) {
		return conflict(op, ErrCommitNotFound, "cannot branch before the first commit")
	}
	if _, err := s.run(ctx, root, "branch", name); err != nil {
		return ioError(op, err)
	}
	logger.WithComponent("git").Info("created branch", "root", root, "branch", name)
	return nil
}

// CheckoutBranch switches to name. A local branch is checked out directly;
// otherwise a remote-tracking branch of the same name (or the given
// "remote/branch") is checked out as a new local branch tracking it. Local
// changes that would be overwritten abort the checkout and nothing is forced.
func (s *GitService) CheckoutBranch(ctx context.Context, root, name string) error {
	const op = "checkout"

	if err := s.validBranchName(ctx, op, root, name); err != nil {
		return err
	}

	var args []string
	local := name
	if s.localBranchExists(ctx, root, name) {
		args = []string{"checkout", "-q", name, "--"}
	} else if remoteRef, localName, ok := s.findRemoteBranch(ctx, root, name); ok {
		local = localName
		if s.localBranchExists(ctx, root, localName) {
			args = []string{"checkout", "-q", localName, "--"}
		} else {
			args = []string{"checkout", "-q", "-b", localName, "--track", remoteRef}
		}
	} else {
		return notFound(op, ErrBranchNotFound, name)
	}

	if _, err := s.run(ctx, root, args...); err != nil {
		msg := outputOf(err)
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "would be overwritten") || strings.Contains(lower, "commit your changes or stash") {
			return conflict(op, ErrDirtyWorkingTree, msg)
		}
		return ioError(op, err)
	}
	logger.WithComponent("git").Info("checked out branch", "root", root, "branch", local)
	return nil
}

// findRemoteBranch looks for a remote-tracking branch matching name, either
// given in full ("origin/feature") or by branch name alone. origin wins when
// several remotes carry the branch. It returns the remote ref and the local
// branch name to create.
func (s *GitService) findRemoteBranch(ctx context.Context, root, name string) (remoteRef, local string, ok bool) {
	remotes := s.remoteNames(ctx, root)

	for _, r := range remotes {
		if rest, found := strings.CutPrefix(name, r+"/"); found && rest != "" &&
			s.succeeds(ctx, root, "show-ref", "--verify", "--quiet", "refs/remotes/"+name) {
			return name, rest, true
		}
	}
	for _, r := range remotes {
		if s.succeeds(ctx, root, "show-ref", "--verify", "--quiet", "refs/remotes/"+r+"/"+name) {
			return r + "/" + name, name, true
		}
	}
	return "", "", false
}

// remoteNames lists configured remotes, origin first and the rest by name.
func (s *GitService) remoteNames(ctx context.Context, root string) []string {
	out, err := s.run(ctx, root, "remote")
	if err != nil {
		return nil
	}
	names := strings.Fields(string(out))
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == DefaultRemote:
			return -1
		case b == DefaultRemote:
			return 1
		}
		return strings.Compare(a, b)
	})
	return names
}
