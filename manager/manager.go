// Package manager exposes workspace-keyed git and GitHub operations. Each
// call resolves its workspace through the Registry and runs under the
// workspace guard: reads share it, mutations hold it exclusively.
package manager

import (
	"context"

	"github.com/zhubert/gitcore/config"
	"github.com/zhubert/gitcore/ghapi"
	"github.com/zhubert/gitcore/git"
	"github.com/zhubert/gitcore/logger"
)

// Compile-time interface satisfaction checks.
var (
	_ Config = (*config.Config)(nil)
	_ GitHub = (*ghapi.Client)(nil)
)

// Config defines the settings the Manager reads.
// This decouples Manager from the concrete config.Config struct.
//
// *config.Config satisfies this interface implicitly.
type Config interface {
	WorkspaceSource
	AddWorkspace(id, dir string) error
	RemoveWorkspace(id string) bool
	GetMaxDiffBytes() int64
	GetLogLimit() int
	GetRootsDepth() int
	GetPullStrategy() string
	GetRemote() string
}

// GitHub is the read-only GitHub API used for enrichment.
type GitHub interface {
	RepoFromRemote(remoteURL string) (ghapi.Repo, error)
	Issues(ctx context.Context, repo ghapi.Repo) (*ghapi.IssuesResponse, error)
	PullRequests(ctx context.Context, repo ghapi.Repo) (*ghapi.PullRequestsResponse, error)
	PullRequestDiff(ctx context.Context, repo ghapi.Repo, number int) (*ghapi.PullRequestDiff, error)
	PullRequestComments(ctx context.Context, repo ghapi.Repo, number int) ([]ghapi.PullRequestComment, error)
}

// Manager is the operation surface over all open workspaces.
type Manager struct {
	config   Config
	git      *git.GitService
	github   GitHub
	registry *Registry
}

// New creates a Manager.
func New(cfg Config, gitSvc *git.GitService, gh GitHub) *Manager {
	return &Manager{
		config:   cfg,
		git:      gitSvc,
		github:   gh,
		registry: NewRegistry(cfg, gitSvc),
	}
}

// Registry returns the workspace registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// OpenWorkspace registers dir under id and resolves its repository root.
// Reopening an id with a new directory re-resolves it.
func (m *Manager) OpenWorkspace(ctx context.Context, id, dir string) (string, error) {
	if err := m.config.AddWorkspace(id, dir); err != nil {
		return "", git.NewError(git.KindInvalidInput, "open workspace", err)
	}
	m.registry.Invalidate(id)
	e, err := m.registry.GetOrCreate(ctx, id)
	if err != nil {
		return "", err
	}
	return e.Root, nil
}

// CloseWorkspace forgets a workspace. It reports whether it was known.
func (m *Manager) CloseWorkspace(id string) bool {
	removed := m.registry.Remove(id)
	return m.config.RemoveWorkspace(id) || removed
}

// shared and exclusive run fn on the workspace's repository root.
func shared[T any](ctx context.Context, m *Manager, id, op string, fn func(ctx context.Context, root string) (T, error)) (T, error) {
	return guarded(ctx, m.registry, id, op, false, func(ctx context.Context, e *Entry) (T, error) {
		return fn(ctx, e.Root)
	})
}

func exclusive(ctx context.Context, m *Manager, id, op string, fn func(ctx context.Context, root string) error) error {
	return m.registry.WithExclusive(ctx, id, op, func(ctx context.Context, e *Entry) error {
		return fn(ctx, e.Root)
	})
}

// GetGitStatus returns the working-tree status.
func (m *Manager) GetGitStatus(ctx context.Context, id string) (*git.StatusReport, error) {
	return shared(ctx, m, id, "status", m.git.Status)
}

// StageGitFile stages one path.
func (m *Manager) StageGitFile(ctx context.Context, id, path string) error {
	return exclusive(ctx, m, id, "stage", func(ctx context.Context, root string) error {
		return m.git.StageFile(ctx, root, path)
	})
}

// StageGitAll stages every change.
func (m *Manager) StageGitAll(ctx context.Context, id string) error {
	return exclusive(ctx, m, id, "stage all", m.git.StageAll)
}

// UnstageGitFile removes one path from the index, keeping the working copy.
func (m *Manager) UnstageGitFile(ctx context.Context, id, path string) error {
	return exclusive(ctx, m, id, "unstage", func(ctx context.Context, root string) error {
		return m.git.UnstageFile(ctx, root, path)
	})
}

// UnstageGitAll clears the index back to HEAD.
func (m *Manager) UnstageGitAll(ctx context.Context, id string) error {
	return exclusive(ctx, m, id, "unstage all", m.git.UnstageAll)
}

// RevertGitFile discards unstaged changes to one path.
func (m *Manager) RevertGitFile(ctx context.Context, id, path string) error {
	return exclusive(ctx, m, id, "revert", func(ctx context.Context, root string) error {
		return m.git.RevertFile(ctx, root, path)
	})
}

// RevertGitAll discards all unstaged changes.
func (m *Manager) RevertGitAll(ctx context.Context, id string) error {
	return exclusive(ctx, m, id, "revert all", m.git.RevertAll)
}

// CommitGit commits the index and returns the new commit's SHA.
func (m *Manager) CommitGit(ctx context.Context, id, message string) (string, error) {
	var sha string
	err := exclusive(ctx, m, id, "commit", func(ctx context.Context, root string) error {
		var err error
		sha, err = m.git.Commit(ctx, root, message)
		return err
	})
	return sha, err
}

// remoteName is the name of the remote fetch, pull and push talk to, "" when
// the repository has none.
func (m *Manager) remoteName(ctx context.Context, e *Entry) (string, error) {
	r, err := m.remote(ctx, e)
	if err != nil {
		return "", err
	}
	return r.Name, nil
}

// remoteOp runs a remote-changing operation and drops the cached remote.
func (m *Manager) remoteOp(ctx context.Context, id, op string, fn func(ctx context.Context, root, remote string) error) error {
	return m.registry.WithExclusive(ctx, id, op, func(ctx context.Context, e *Entry) error {
		defer e.clearRemote()
		name, err := m.remoteName(ctx, e)
		if err != nil {
			return err
		}
		return fn(ctx, e.Root, name)
	})
}

// PushGit pushes the current branch.
func (m *Manager) PushGit(ctx context.Context, id string) error {
	return m.remoteOp(ctx, id, "push", m.git.Push)
}

// PullGit pulls the current branch using the configured strategy.
func (m *Manager) PullGit(ctx context.Context, id string) error {
	return m.remoteOp(ctx, id, "pull", func(ctx context.Context, root, remote string) error {
		return m.git.Pull(ctx, root, remote, git.PullStrategy(m.config.GetPullStrategy()))
	})
}

// FetchGit fetches from the remote.
func (m *Manager) FetchGit(ctx context.Context, id string) error {
	return m.remoteOp(ctx, id, "fetch", m.git.Fetch)
}

// SyncGit fetches, pulls and pushes. A failure names the step it stopped at.
func (m *Manager) SyncGit(ctx context.Context, id string) error {
	return m.remoteOp(ctx, id, "sync", func(ctx context.Context, root, remote string) error {
		return m.git.Sync(ctx, root, git.SyncOptions{
			Remote:   remote,
			Strategy: git.PullStrategy(m.config.GetPullStrategy()),
		})
	})
}

// ListGitRoots lists the repositories under the workspace directory. A
// negative depth selects the configured default.
func (m *Manager) ListGitRoots(ctx context.Context, id string, depth int) ([]string, error) {
	dir, err := m.registry.Dir(id)
	if err != nil {
		return nil, err
	}
	if depth < 0 {
		depth = m.config.GetRootsDepth()
	}
	return m.git.ListRoots(ctx, dir, depth)
}

// GetWorkspaceDiff returns the working tree's combined diff against HEAD as
// plain text.
func (m *Manager) GetWorkspaceDiff(ctx context.Context, id string) (string, error) {
	return shared(ctx, m, id, "workspace diff", m.git.CollectWorkspaceDiff)
}

// GetGitDiffs returns the working tree's changes per file.
func (m *Manager) GetGitDiffs(ctx context.Context, id string) ([]git.FileDiff, error) {
	return shared(ctx, m, id, "diffs", func(ctx context.Context, root string) ([]git.FileDiff, error) {
		return m.git.FileDiffs(ctx, root, m.config.GetMaxDiffBytes())
	})
}

// GetGitLog returns recent history. A non-positive limit selects the
// configured default.
func (m *Manager) GetGitLog(ctx context.Context, id string, limit int) (*git.LogResponse, error) {
	if limit <= 0 {
		limit = m.config.GetLogLimit()
	}
	return shared(ctx, m, id, "log", func(ctx context.Context, root string) (*git.LogResponse, error) {
		return m.git.Log(ctx, root, limit)
	})
}

// GetGitCommitDiff returns a commit's changes, one CommitDiff per parent.
func (m *Manager) GetGitCommitDiff(ctx context.Context, id, sha string) ([]git.CommitDiff, error) {
	return shared(ctx, m, id, "commit diff", func(ctx context.Context, root string) ([]git.CommitDiff, error) {
		return m.git.CommitDiff(ctx, root, sha, m.config.GetMaxDiffBytes())
	})
}

// remote resolves the entry's remote, caching it on the entry.
func (m *Manager) remote(ctx context.Context, e *Entry) (git.Remote, error) {
	if r, ok := e.cachedRemote(); ok {
		return r, nil
	}
	r, err := m.git.ResolveRemote(ctx, e.Root, m.config.GetRemote())
	if err != nil {
		return git.Remote{}, err
	}
	e.setRemote(r)
	return r, nil
}

// GetGitRemote returns the remote the workspace talks to. The zero Remote
// means none is configured.
func (m *Manager) GetGitRemote(ctx context.Context, id string) (git.Remote, error) {
	return guarded(ctx, m.registry, id, "remote", false, m.remote)
}

// gitHubRepo resolves the workspace's remote to a GitHub repository under the
// shared guard. The API call itself happens outside the guard.
func (m *Manager) gitHubRepo(ctx context.Context, id string) (ghapi.Repo, error) {
	r, err := m.GetGitRemote(ctx, id)
	if err != nil {
		return ghapi.Repo{}, err
	}
	repo, err := m.github.RepoFromRemote(r.URL)
	if err != nil {
		logger.WithWorkspace(id).Debug("github unavailable", "remote", r.URL, "error", err)
		return ghapi.Repo{}, err
	}
	return repo, nil
}

// GetGitHubIssues lists open issues of the workspace's GitHub repository.
func (m *Manager) GetGitHubIssues(ctx context.Context, id string) (*ghapi.IssuesResponse, error) {
	repo, err := m.gitHubRepo(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.github.Issues(ctx, repo)
}

// GetGitHubPullRequests lists open pull requests.
func (m *Manager) GetGitHubPullRequests(ctx context.Context, id string) (*ghapi.PullRequestsResponse, error) {
	repo, err := m.gitHubRepo(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.github.PullRequests(ctx, repo)
}

// GetGitHubPullRequestDiff returns a pull request's diff per file.
func (m *Manager) GetGitHubPullRequestDiff(ctx context.Context, id string, number int) (*ghapi.PullRequestDiff, error) {
	repo, err := m.gitHubRepo(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.github.PullRequestDiff(ctx, repo, number)
}

// GetGitHubPullRequestComments returns a pull request's review comments.
func (m *Manager) GetGitHubPullRequestComments(ctx context.Context, id string, number int) ([]ghapi.PullRequestComment, error) {
	repo, err := m.gitHubRepo(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.github.PullRequestComments(ctx, repo, number)
}

// ListGitBranches lists local and remote-tracking branches.
func (m *Manager) ListGitBranches(ctx context.Context, id string) ([]git.BranchInfo, error) {
	return shared(ctx, m, id, "branches", m.git.ListBranches)
}

// CheckoutGitBranch switches to name, creating a tracking branch from a
// remote branch of that name when no local one exists.
func (m *Manager) CheckoutGitBranch(ctx context.Context, id, name string) error {
	return m.registry.WithExclusive(ctx, id, "checkout", func(ctx context.Context, e *Entry) error {
		defer e.clearRemote()
		return m.git.CheckoutBranch(ctx, e.Root, name)
	})
}

// CreateGitBranch creates name at HEAD without switching to it.
func (m *Manager) CreateGitBranch(ctx context.Context, id, name string) error {
	return m.registry.WithExclusive(ctx, id, "create branch", func(ctx context.Context, e *Entry) error {
		defer e.clearRemote()
		return m.git.CreateBranch(ctx, e.Root, name)
	})
}
