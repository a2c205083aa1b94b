package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRemoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remote",
		Short: "Show the remote the workspace syncs with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				r, err := a.mgr.GetGitRemote(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.printer.result(r, func() {
					if r.Name == "" {
						a.printer.printf("%s\n", a.printer.styles.Dim.Render("No remote configured"))
						return
					}
					a.printer.printf("%s %s\n", a.printer.styles.Bold.Render(r.Name), r.URL)
				})
			})
		},
	}
}

// remoteCmd builds a command that runs one remote operation.
func remoteCmd(use, short, message string, op func(a *app, ctx context.Context, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				if err := op(a, cmd.Context(), id); err != nil {
					return err
				}
				return a.printer.done(message)
			})
		},
	}
}

func newFetchCmd() *cobra.Command {
	return remoteCmd("fetch", "Fetch from the remote, pruning deleted branches", "Fetched",
		func(a *app, ctx context.Context, id string) error { return a.mgr.FetchGit(ctx, id) })
}

func newPullCmd() *cobra.Command {
	return remoteCmd("pull", "Pull the current branch using the pull_strategy setting", "Pulled",
		func(a *app, ctx context.Context, id string) error { return a.mgr.PullGit(ctx, id) })
}

func newPushCmd() *cobra.Command {
	return remoteCmd("push", "Push the current branch, setting its upstream if needed", "Pushed",
		func(a *app, ctx context.Context, id string) error { return a.mgr.PushGit(ctx, id) })
}

func newSyncCmd() *cobra.Command {
	cmd := remoteCmd("sync", "Fetch, pull and push", "Synced",
		func(a *app, ctx context.Context, id string) error { return a.mgr.SyncGit(ctx, id) })
	cmd.Long = `Fetch, pull and push in order, stopping at the first step that fails.
A failed pull never pushes. With --json the error names the failed step.`
	return cmd
}
