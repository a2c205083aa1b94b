package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhubert/gitcore/git"
)

func newIssuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issues",
		Short: "List open GitHub issues for the workspace's remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				resp, err := a.mgr.GetGitHubIssues(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.printer.result(resp, func() {
					p := a.printer
					for _, is := range resp.Items {
						labels := ""
						if len(is.Labels) > 0 {
							labels = " " + p.styles.Dim.Render("["+strings.Join(is.Labels, ", ")+"]")
						}
						p.printf("%s %s%s %s\n", p.styles.Warning.Render(fmt.Sprintf("#%d", is.Number)), is.Title, labels, p.styles.Dim.Render("@"+is.Author))
					}
				})
			})
		},
	}
}

func parsePRNumber(op, arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || n <= 0 {
		return 0, git.NewError(git.KindInvalidInput, op, fmt.Errorf("invalid pull request number %q", arg))
	}
	return n, nil
}

func newPRsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prs",
		Aliases: []string{"pr"},
		Short:   "List open pull requests for the workspace's remote",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				resp, err := a.mgr.GetGitHubPullRequests(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.printer.result(resp, func() {
					p := a.printer
					for _, pr := range resp.Items {
						draft := ""
						if pr.Draft {
							draft = p.styles.Dim.Render(" (draft)")
						}
						p.printf("%s %s%s %s\n", p.styles.Warning.Render(fmt.Sprintf("#%d", pr.Number)), pr.Title, draft,
							p.styles.Dim.Render(pr.Head+" -> "+pr.Base+" @"+pr.Author))
					}
				})
			})
		},
	}
	cmd.AddCommand(newPRDiffCmd(), newPRCommentsCmd())
	return cmd
}

func newPRDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <number>",
		Short: "Show a pull request's diff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				n, err := parsePRNumber("pull request diff", args[0])
				if err != nil {
					return err
				}
				d, err := a.mgr.GetGitHubPullRequestDiff(cmd.Context(), id, n)
				if err != nil {
					return err
				}
				return a.printer.result(d, func() {
					for _, f := range d.Files {
						a.printer.printf("%s %s\n", a.printer.styles.Bold.Render(f.Path), a.printer.styles.Dim.Render("("+f.Status+")"))
						a.printer.printf("%s", f.Diff)
					}
				})
			})
		},
	}
}

func newPRCommentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comments <number>",
		Short: "Show a pull request's review comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				n, err := parsePRNumber("pull request comments", args[0])
				if err != nil {
					return err
				}
				comments, err := a.mgr.GetGitHubPullRequestComments(cmd.Context(), id, n)
				if err != nil {
					return err
				}
				return a.printer.result(comments, func() {
					p := a.printer
					for _, c := range comments {
						where := ""
						if c.Path != "" {
							where = fmt.Sprintf(" %s:%d", c.Path, c.Line)
						}
						p.printf("%s%s\n  %s\n", p.styles.Bold.Render("@"+c.Author), p.styles.Dim.Render(where), c.Body)
					}
				})
			})
		},
	}
}
