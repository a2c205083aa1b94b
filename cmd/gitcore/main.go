// Package main provides the entry point for the gitcore CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zhubert/gitcore/config"
	pexec "github.com/zhubert/gitcore/exec"
	"github.com/zhubert/gitcore/ghapi"
	"github.com/zhubert/gitcore/git"
	"github.com/zhubert/gitcore/logger"
	"github.com/zhubert/gitcore/manager"
)

// Build info set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	if len(commit) > 7 {
		return fmt.Sprintf("%s (%s)", version, commit[:7])
	}
	return fmt.Sprintf("%s (%s)", version, commit)
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer logger.Close()

	err := fang.Execute(ctx, newRootCmd(), fang.WithVersion(buildVersion()))
	return exitCode(err)
}

// newRootCmd creates the root command for the gitcore CLI.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitcore",
		Short: "Inspect and change git workspaces",
		Long: `gitcore runs status, staging, diff, commit, branch and sync operations
against registered workspaces, and reads issues and pull requests from GitHub.

A workspace is selected with --workspace. Without it the registered workspace
containing the current directory is used, or the directory itself.

All commands support --json for structured output.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("workspace", "w", "", "Workspace ID (defaults to the current directory)")
	cmd.PersistentFlags().String("config", "", "Settings file (defaults to settings.yaml in the config directory)")
	cmd.PersistentFlags().Bool("debug", false, "Log at debug level")
	cmd.PersistentFlags().Bool("log-stderr", false, "Write logs to stderr instead of the log file")

	lipgloss.SetHasDarkBackground(true)

	cmd.AddGroup(&cobra.Group{ID: "tree", Title: "Working Tree Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "history", Title: "History Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "remote", Title: "Remote Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "github", Title: "GitHub Commands:"})
	cmd.AddGroup(&cobra.Group{ID: "admin", Title: "Admin Commands:"})

	addGroupedCommand(cmd, newStatusCmd(), "tree")
	addGroupedCommand(cmd, newStageCmd(), "tree")
	addGroupedCommand(cmd, newUnstageCmd(), "tree")
	addGroupedCommand(cmd, newRevertCmd(), "tree")
	addGroupedCommand(cmd, newCommitCmd(), "tree")
	addGroupedCommand(cmd, newDiffCmd(), "tree")

	addGroupedCommand(cmd, newLogCmd(), "history")
	addGroupedCommand(cmd, newShowCmd(), "history")
	addGroupedCommand(cmd, newBranchCmd(), "history")
	addGroupedCommand(cmd, newCheckoutCmd(), "history")

	addGroupedCommand(cmd, newRemoteCmd(), "remote")
	addGroupedCommand(cmd, newFetchCmd(), "remote")
	addGroupedCommand(cmd, newPullCmd(), "remote")
	addGroupedCommand(cmd, newPushCmd(), "remote")
	addGroupedCommand(cmd, newSyncCmd(), "remote")

	addGroupedCommand(cmd, newIssuesCmd(), "github")
	addGroupedCommand(cmd, newPRsCmd(), "github")

	addGroupedCommand(cmd, newWorkspaceCmd(), "admin")
	addGroupedCommand(cmd, newRootsCmd(), "admin")
	addGroupedCommand(cmd, newDoctorCmd(), "admin")

	return cmd
}

func addGroupedCommand(parent *cobra.Command, child *cobra.Command, groupID string) {
	child.GroupID = groupID
	parent.AddCommand(child)
}

func boolFlag(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

// app is the state shared by one command invocation.
type app struct {
	cfg     *config.Config
	mgr     *manager.Manager
	printer *printer
}

// newApp loads settings, sets up logging and builds the manager.
func newApp(cmd *cobra.Command) (*app, error) {
	p := newPrinter(cmd)

	if boolFlag(cmd, "log-stderr") {
		logger.InitWriter(cmd.ErrOrStderr())
	}
	logger.SetDebug(boolFlag(cmd, "debug"))

	var (
		cfg *config.Config
		err error
	)
	if path := stringFlag(cmd, "config"); path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, p.fail(git.NewError(git.KindInvalidInput, "load settings", err))
	}

	executor := pexec.NewRealExecutor()
	mgr := manager.New(cfg, git.NewGitServiceWithExecutor(executor), ghapi.New(cfg, executor))
	return &app{cfg: cfg, mgr: mgr, printer: p}, nil
}

// workspace returns the workspace the command targets. Without --workspace
// the current directory is opened under its absolute path unless a
// registered workspace contains it.
func (a *app) workspace(cmd *cobra.Command) (string, error) {
	if id := stringFlag(cmd, "workspace"); id != "" {
		return id, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", a.printer.fail(git.NewError(git.KindIO, "workspace", err))
	}
	if id, ok := a.cfg.WorkspaceForDir(cwd); ok {
		return id, nil
	}
	id := filepath.Clean(cwd)
	if _, err := a.mgr.OpenWorkspace(cmd.Context(), id, cwd); err != nil {
		return "", a.printer.fail(err)
	}
	return id, nil
}

// withWorkspace runs fn for the targeted workspace and reports its error.
func withWorkspace(cmd *cobra.Command, fn func(a *app, id string) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	id, err := a.workspace(cmd)
	if err != nil {
		return err
	}
	if err := fn(a, id); err != nil {
		return a.printer.fail(err)
	}
	return nil
}
