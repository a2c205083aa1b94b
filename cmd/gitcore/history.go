package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zhubert/gitcore/git"
)

func newLogCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent commits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				resp, err := a.mgr.GetGitLog(cmd.Context(), id, limit)
				if err != nil {
					return err
				}
				return a.printer.result(resp, func() {
					p := a.printer
					for _, e := range resp.Entries {
						when := time.Unix(e.Timestamp, 0).Format("2006-01-02")
						p.printf("%s %s %s %s\n", p.styles.Warning.Render(e.ShortSHA), p.styles.Dim.Render(when), e.Subject, p.styles.Dim.Render("<"+e.Author+">"))
					}
					if resp.HasMore {
						p.printf("%s\n", p.styles.Dim.Render("... more commits not shown"))
					}
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of commits (defaults to the log_limit setting)")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <sha>",
		Short: "Show the changes a commit introduced",
		Long: `Show the changes a commit introduced. A merge commit is shown once per
parent; a root commit against the empty tree.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				diffs, err := a.mgr.GetGitCommitDiff(cmd.Context(), id, args[0])
				if err != nil {
					return err
				}
				return a.printer.result(diffs, func() {
					p := a.printer
					for _, d := range diffs {
						parent := "root commit"
						if d.Parent != "" {
							parent = "parent " + shortSHA(d.Parent)
						}
						p.printf("%s %s\n", p.styles.Warning.Render("commit "+d.SHA), p.styles.Dim.Render("("+parent+")"))
						for _, f := range d.Files {
							p.printDiff(f)
						}
					}
				})
			})
		},
	}
}

func newBranchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch [name]",
		Short: "List branches, or create one",
		Long: `List local and remote-tracking branches. With a name, create a branch at
HEAD without switching to it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				if len(args) == 1 {
					if err := a.mgr.CreateGitBranch(cmd.Context(), id, args[0]); err != nil {
						return err
					}
					return a.printer.done("Created branch " + args[0])
				}
				branches, err := a.mgr.ListGitBranches(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.printer.result(branches, func() { printBranches(a.printer, branches) })
			})
		},
	}
	return cmd
}

func printBranches(p *printer, branches []git.BranchInfo) {
	for _, b := range branches {
		marker := " "
		name := b.Name
		switch {
		case b.IsCurrent:
			marker = "*"
			name = p.styles.Success.Render(name)
		case b.IsRemote:
			name = p.styles.Removed.Render(name)
		}
		p.printf("%s %s %s", marker, name, p.styles.Dim.Render(shortSHA(b.SHA)))
		if b.Upstream != "" {
			p.printf(" %s", p.styles.Dim.Render("["+b.Upstream+"]"))
		}
		p.printf("\n")
	}
}

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <branch>",
		Short: "Switch branches",
		Long: `Switch to a local branch. When only a remote branch of that name exists a
local tracking branch is created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				if err := a.mgr.CheckoutGitBranch(cmd.Context(), id, args[0]); err != nil {
					return err
				}
				return a.printer.done("Switched to " + args[0])
			})
		},
	}
}
