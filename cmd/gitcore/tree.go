package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhubert/gitcore/git"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				report, err := a.mgr.GetGitStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.printer.result(report, func() { printStatus(a.printer, report) })
			})
		},
	}
}

func printStatus(p *printer, r *git.StatusReport) {
	switch {
	case r.Detached:
		p.printf("HEAD detached at %s\n", shortSHA(r.Head))
	default:
		p.printf("On branch %s\n", p.styles.Bold.Render(r.Branch))
	}
	if r.Upstream != "" {
		p.printf("Tracking %s (ahead %d, behind %d)\n", r.Upstream, r.Ahead, r.Behind)
	}
	if r.Clean() {
		p.printf("%s\n", p.styles.Success.Render("Nothing to commit, working tree clean"))
		return
	}

	section := func(title string, keep func(git.FileStatus) bool, code func(git.FileStatus) string) {
		var rows []git.FileStatus
		for _, f := range r.Files {
			if keep(f) {
				rows = append(rows, f)
			}
		}
		if len(rows) == 0 {
			return
		}
		p.printf("\n%s\n", p.styles.Bold.Render(title))
		for _, f := range rows {
			name := f.Path
			if f.OldPath != "" {
				name = f.OldPath + " -> " + f.Path
			}
			p.printf("  %s %s %s\n", code(f), name, p.styles.Dim.Render(fmt.Sprintf("+%d -%d", f.Additions, f.Deletions)))
		}
	}
	section("Conflicted:", func(f git.FileStatus) bool { return f.Conflicted },
		func(git.FileStatus) string { return p.styles.Error.Render("U") })
	section("Staged:", func(f git.FileStatus) bool { return f.Staged && !f.Conflicted },
		func(f git.FileStatus) string { return p.styles.Added.Render(f.Index) })
	section("Not staged:", func(f git.FileStatus) bool { return f.Unstaged && !f.Conflicted },
		func(f git.FileStatus) string { return p.styles.Removed.Render(f.Worktree) })
	section("Untracked:", func(f git.FileStatus) bool { return f.Untracked },
		func(git.FileStatus) string { return p.styles.Dim.Render("?") })

	p.printf("\n%s\n", p.styles.Dim.Render(fmt.Sprintf("%d files, +%d -%d", len(r.Files), r.TotalAdditions, r.TotalDeletions)))
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// partialError is a multi-path mutation that failed after some paths were
// already applied. Those changes stay in place.
type partialError struct {
	verb    string
	applied []string
	err     error
}

func (e *partialError) Error() string {
	return fmt.Sprintf("%v (already %s: %s)", e.err, e.verb, strings.Join(e.applied, ", "))
}

func (e *partialError) Unwrap() error { return e.err }

// eachPath applies fn to paths in order, stopping at the first failure.
func eachPath(verb string, paths []string, fn func(path string) error) error {
	for i, path := range paths {
		if err := fn(path); err != nil {
			if i == 0 {
				return err
			}
			return &partialError{verb: verb, applied: slices.Clone(paths[:i]), err: err}
		}
	}
	return nil
}

func newStageCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "stage [path...]",
		Short: "Stage files for the next commit",
		Long: `Stage files for the next commit. Deleted files are staged as removals.

Examples:
  gitcore stage src/main.go   # Stage one file
  gitcore stage --all         # Stage every change, including untracked files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				if all || len(args) == 0 {
					if err := a.mgr.StageGitAll(cmd.Context(), id); err != nil {
						return err
					}
					return a.printer.done("Staged all changes")
				}
				if err := eachPath("staged", args, func(path string) error {
					return a.mgr.StageGitFile(cmd.Context(), id, path)
				}); err != nil {
					return err
				}
				return a.printer.done(fmt.Sprintf("Staged %d file(s)", len(args)))
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "A", false, "Stage every change")
	return cmd
}

func newUnstageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unstage [path...]",
		Short: "Remove files from the index, keeping working copy changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				if len(args) == 0 {
					if err := a.mgr.UnstageGitAll(cmd.Context(), id); err != nil {
						return err
					}
					return a.printer.done("Unstaged all changes")
				}
				if err := eachPath("unstaged", args, func(path string) error {
					return a.mgr.UnstageGitFile(cmd.Context(), id, path)
				}); err != nil {
					return err
				}
				return a.printer.done(fmt.Sprintf("Unstaged %d file(s)", len(args)))
			})
		},
	}
}

func newRevertCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "revert [path...]",
		Short: "Discard unstaged changes",
		Long: `Discard unstaged changes to files. Staged changes are kept; untracked
files given by path are deleted.

Examples:
  gitcore revert notes.txt   # Discard changes to one file
  gitcore revert --all       # Discard every unstaged change`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				if all {
					if err := a.mgr.RevertGitAll(cmd.Context(), id); err != nil {
						return err
					}
					return a.printer.done("Reverted all unstaged changes")
				}
				if len(args) == 0 {
					return git.NewError(git.KindInvalidInput, "revert", fmt.Errorf("%w: give a path or --all", git.ErrInvalidPath))
				}
				if err := eachPath("reverted", args, func(path string) error {
					return a.mgr.RevertGitFile(cmd.Context(), id, path)
				}); err != nil {
					return err
				}
				return a.printer.done(fmt.Sprintf("Reverted %d file(s)", len(args)))
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Discard every unstaged change")
	return cmd
}

func newCommitCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit staged changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				sha, err := a.mgr.CommitGit(cmd.Context(), id, message)
				if err != nil {
					return err
				}
				return a.printer.result(map[string]any{"sha": sha}, func() {
					a.printer.printf("%s %s\n", a.printer.styles.Success.Render("Committed"), shortSHA(sha))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	return cmd
}

func newDiffCmd() *cobra.Command {
	var text bool
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show working tree changes against HEAD",
		Long: `Show working tree changes against HEAD, including untracked files.

With --text the combined unified diff is written verbatim, suitable for
piping into another tool.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				if text {
					diff, err := a.mgr.GetWorkspaceDiff(cmd.Context(), id)
					if err != nil {
						return err
					}
					return a.printer.result(map[string]any{"diff": diff}, func() { a.printer.printf("%s", diff) })
				}
				files, err := a.mgr.GetGitDiffs(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.printer.result(files, func() {
					for _, f := range files {
						a.printer.printDiff(f)
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "Write the combined diff as plain text")
	return cmd
}
