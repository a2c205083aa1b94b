// Package git provides the repository operations behind a workspace: root
// discovery, status and staging, diffs, history, branches, and remote sync.
//
// The package is organized into focused modules:
//   - service.go: GitService struct, constructor, and the git runner
//   - errors.go: Error, Kind, and the sentinel reasons
//   - discover.go: Repository root resolution and nested root listing
//   - status.go: Porcelain v2 status parsing
//   - worktree.go: Stage, unstage, and revert
//   - commit.go: Commit
//   - diff.go: Workspace and commit diffs with size shaping
//   - parse.go: Unified diff parsing
//   - log.go: Paginated history
//   - branch.go: Branch listing, creation, and checkout
//   - remote.go: Fetch, pull, push, sync, and remote resolution
package git
