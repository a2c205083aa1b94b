package git

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/zhubert/gitcore/logger"
)

// DefaultRemote is the remote used when none is configured.
const DefaultRemote = "origin"

// PullStrategy selects how Pull reconciles local and remote history.
type PullStrategy string

const (
	PullMerge  PullStrategy = "merge"
	PullRebase PullStrategy = "rebase"
)

// Sync steps reported through Error.Step.
const (
	StepFetch = "fetch"
	StepPull  = "pull"
	StepPush  = "push"
)

// Remote is a configured git remote.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RemoteInfo is the hosting location parsed from a remote URL.
type RemoteInfo struct {
	Host  string `json:"host"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// ResolveRemote picks the remote a repository talks to: preferred (origin
// when empty) if configured, else the first remote hosted on github.com, else
// the first remote by name. The zero Remote means the repository has none.
func (s *GitService) ResolveRemote(ctx context.Context, root, preferred string) (Remote, error) {
	if preferred == "" {
		preferred = DefaultRemote
	}

	remotes, err := s.listRemotes(ctx, root)
	if err != nil {
		return Remote{}, ioError("resolve remote", err)
	}
	if len(remotes) == 0 {
		return Remote{}, nil
	}
	if i := slices.IndexFunc(remotes, func(r Remote) bool { return r.Name == preferred }); i >= 0 {
		return remotes[i], nil
	}
	if i := slices.IndexFunc(remotes, func(r Remote) bool {
		info, ok := ParseRemoteURL(r.URL)
		return ok && info.Host == "github.com"
	}); i >= 0 {
		return remotes[i], nil
	}
	return remotes[0], nil
}

// listRemotes reads remotes from the repository config with go-git, sorted
// by name. Remotes without a URL are skipped.
func (s *GitService) listRemotes(ctx context.Context, root string) ([]Remote, error) {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return s.listRemotesCLI(ctx, root)
	}
	list, err := repo.Remotes()
	if err != nil {
		return s.listRemotesCLI(ctx, root)
	}

	var remotes []Remote
	for _, r := range list {
		cfg := r.Config()
		if len(cfg.URLs) == 0 {
			continue
		}
		remotes = append(remotes, Remote{Name: cfg.Name, URL: cfg.URLs[0]})
	}
	slices.SortFunc(remotes, func(a, b Remote) int { return strings.Compare(a.Name, b.Name) })
	return remotes, nil
}

// listRemotesCLI is the fallback for repositories go-git cannot read.
func (s *GitService) listRemotesCLI(ctx context.Context, root string) ([]Remote, error) {
	var remotes []Remote
	for _, name := range s.remoteNames(ctx, root) {
		out, err := s.run(ctx, root, "remote", "get-url", name)
		if err != nil {
			continue
		}
		remotes = append(remotes, Remote{Name: name, URL: strings.TrimSpace(string(out))})
	}
	slices.SortFunc(remotes, func(a, b Remote) int { return strings.Compare(a.Name, b.Name) })
	return remotes, nil
}

// ParseRemoteURL extracts host, owner and repository name from a remote URL.
// It understands scp-like SSH ("git@github.com:owner/repo.git") and URL forms
// (https, http, ssh, git). Local paths and file URLs do not parse.
func ParseRemoteURL(raw string) (RemoteInfo, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RemoteInfo{}, false
	}

	var host, path string
	if !strings.Contains(raw, "://") {
		// scp-like: [user@]host:path, but not a Windows drive or local path.
		hostPart, p, ok := strings.Cut(raw, ":")
		if !ok || strings.Contains(hostPart, "/") || len(hostPart) <= 1 {
			return RemoteInfo{}, false
		}
		if _, h, found := strings.Cut(hostPart, "@"); found {
			hostPart = h
		}
		host, path = hostPart, p
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return RemoteInfo{}, false
		}
		switch u.Scheme {
		case "https", "http", "ssh", "git", "git+ssh", "ssh+git":
		default:
			return RemoteInfo{}, false
		}
		host, path = u.Hostname(), u.Path
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if host == "" || len(parts) < 2 {
		return RemoteInfo{}, false
	}
	owner, repo := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || repo == "" {
		return RemoteInfo{}, false
	}
	return RemoteInfo{Host: strings.ToLower(host), Owner: owner, Repo: repo}, true
}

// remoteOrDefault resolves the remote name used by fetch, pull and push.
func (s *GitService) remoteOrDefault(ctx context.Context, op, root, name string) (string, error) {
	r, err := s.ResolveRemote(ctx, root, name)
	if err != nil {
		return "", err
	}
	if r.Name == "" {
		return "", NewError(KindNoRemoteConfigured, op, ErrNoRemote)
	}
	if name != "" && r.Name != name {
		return "", notFound(op, ErrNoRemote, name)
	}
	return r.Name, nil
}

// upstream returns the upstream of the current branch, "" when unset.
func (s *GitService) upstream(ctx context.Context, root string) string {
	out, err := s.run(ctx, root, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Fetch updates remote-tracking branches from remote, pruning deleted ones.
// An empty remote selects the default.
func (s *GitService) Fetch(ctx context.Context, root, remote string) error {
	const op = "fetch"

	name, err := s.remoteOrDefault(ctx, op, root, remote)
	if err != nil {
		return err
	}
	if _, err := s.run(ctx, root, "fetch", "--prune", name); err != nil {
		return classifyRemote(op, outputOf(err), err)
	}
	logger.WithComponent("git").Info("fetched", "root", root, "remote", name)
	return nil
}

// Pull integrates the remote counterpart of the current branch using
// strategy. A branch with neither an upstream nor a same-named branch on the
// remote has nothing to pull and succeeds. A rebase that stops on conflicts
// is aborted; a conflicted merge is left in place for the user to resolve.
func (s *GitService) Pull(ctx context.Context, root, remote string, strategy PullStrategy) error {
	const op = "pull"
	log := logger.WithComponent("git")

	name, err := s.remoteOrDefault(ctx, op, root, remote)
	if err != nil {
		return err
	}

	var args []string
	switch strategy {
	case PullRebase:
		args = []string{"pull", "--rebase"}
	case PullMerge, "":
		args = []string{"pull", "--no-rebase", "--no-edit"}
	default:
		return invalid(op, errors.New("unknown pull strategy"), string(strategy))
	}

	if s.upstream(ctx, root) == "" {
		branch := s.CurrentBranch(ctx, root)
		if branch == "" || !s.succeeds(ctx, root, "show-ref", "--verify", "--quiet", "refs/remotes/"+name+"/"+branch) {
			log.Debug("nothing to pull", "root", root, "remote", name, "branch", branch)
			return nil
		}
		args = append(args, name, branch)
	}

	if _, err := s.run(ctx, root, args...); err != nil {
		e := classifyRemote(op, outputOf(err), err)
		if strategy == PullRebase && errors.Is(e, ErrMergeConflict) {
			if _, abortErr := s.run(ctx, root, "rebase", "--abort"); abortErr != nil {
				log.Warn("rebase abort failed", "root", root, "error", abortErr)
			}
		}
		return e
	}
	log.Info("pulled", "root", root, "remote", name, "strategy", string(strategy))
	return nil
}

// Push publishes the current branch. A branch without an upstream is pushed
// to remote under its own name and the upstream is set.
func (s *GitService) Push(ctx context.Context, root, remote string) error {
	const op = "push"

	name, err := s.remoteOrDefault(ctx, op, root, remote)
	if err != nil {
		return err
	}

	args := []string{"push"}
	if s.upstream(ctx, root) == "" {
		args = []string{"push", "-u", name, "HEAD"}
	}
	if _, err := s.run(ctx, root, args...); err != nil {
		return classifyRemote(op, outputOf(err), err)
	}
	logger.WithComponent("git").Info("pushed", "root", root, "remote", name)
	return nil
}

// SyncOptions configures Sync.
type SyncOptions struct {
	Remote   string
	Strategy PullStrategy
}

// Sync runs fetch, pull and push in order and stops at the first failure.
// The returned *Error names the failing step, so a failed pull never pushes.
func (s *GitService) Sync(ctx context.Context, root string, opts SyncOptions) error {
	const op = "sync"

	steps := []struct {
		name string
		fn   func() error
	}{
		{StepFetch, func() error { return s.Fetch(ctx, root, opts.Remote) }},
		{StepPull, func() error { return s.Pull(ctx, root, opts.Remote, opts.Strategy) }},
		{StepPush, func() error { return s.Push(ctx, root, opts.Remote) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			logger.WithComponent("git").Warn("sync stopped", "root", root, "step", step.name, "error", err)
			return withStep(op, step.name, err)
		}
	}
	return nil
}

func withStep(op, step string, err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		e = NewError(KindIO, op, err)
	}
	out := *e
	out.Op = op
	out.Step = step
	if e.Op != "" && e.Op != op {
		out.Err = e
	}
	return &out
}
