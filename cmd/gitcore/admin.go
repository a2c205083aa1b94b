package main

import (
	"github.com/spf13/cobra"

	"github.com/zhubert/gitcore/cli"
	pexec "github.com/zhubert/gitcore/exec"
	"github.com/zhubert/gitcore/git"
	"github.com/zhubert/gitcore/logger"
	"github.com/zhubert/gitcore/paths"
)

func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage registered workspaces",
	}
	cmd.AddCommand(newWorkspaceAddCmd(), newWorkspaceRemoveCmd(), newWorkspaceListCmd())
	return cmd
}

func newWorkspaceAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <dir>",
		Short: "Register a directory as a workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			root, err := a.mgr.OpenWorkspace(cmd.Context(), args[0], args[1])
			if err != nil {
				return a.printer.fail(err)
			}
			if err := a.cfg.Save(); err != nil {
				return a.printer.fail(git.NewError(git.KindIO, "save settings", err))
			}
			return a.printer.result(map[string]any{"id": args[0], "root": root}, func() {
				a.printer.printf("%s %s -> %s\n", a.printer.styles.Success.Render("Added"), args[0], root)
			})
		},
	}
}

func newWorkspaceRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Forget a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if !a.mgr.CloseWorkspace(args[0]) {
				return a.printer.fail(git.NewError(git.KindNotFound, "workspace", git.ErrWorkspaceNotFound))
			}
			if err := a.cfg.Save(); err != nil {
				return a.printer.fail(git.NewError(git.KindIO, "save settings", err))
			}
			return a.printer.done("Removed " + args[0])
		},
	}
}

func newWorkspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			type row struct {
				ID  string `json:"id"`
				Dir string `json:"dir"`
			}
			rows := []row{}
			for _, id := range a.cfg.WorkspaceIDs() {
				dir, _ := a.cfg.WorkspaceDir(id)
				rows = append(rows, row{ID: id, Dir: dir})
			}
			return a.printer.result(rows, func() {
				for _, r := range rows {
					a.printer.printf("%s %s\n", a.printer.styles.Bold.Render(r.ID), r.Dir)
				}
			})
		},
	}
}

func newRootsCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "roots",
		Short: "List git repositories nested in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorkspace(cmd, func(a *app, id string) error {
				roots, err := a.mgr.ListGitRoots(cmd.Context(), id, depth)
				if err != nil {
					return err
				}
				return a.printer.result(roots, func() {
					for _, r := range roots {
						a.printer.printf("%s\n", r)
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&depth, "depth", -1, "Directory levels to search (defaults to the roots_depth setting)")
	return cmd
}

func newDoctorCmd() *cobra.Command {
	var clearLogs bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that git and gh are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrinter(cmd)
			cleared := 0
			if clearLogs {
				n, err := logger.ClearLogs()
				if err != nil {
					return p.fail(git.NewError(git.KindIO, "clear logs", err))
				}
				cleared = n
			}
			results := cli.NewChecker(pexec.NewRealExecutor()).CheckAll(cmd.Context(), cli.DefaultPrerequisites())

			type check struct {
				Name     string `json:"name"`
				Required bool   `json:"required"`
				Found    bool   `json:"found"`
				Path     string `json:"path,omitempty"`
				Version  string `json:"version,omitempty"`
				Error    string `json:"error,omitempty"`
			}
			checks := make([]check, 0, len(results))
			for _, r := range results {
				c := check{Name: r.Prerequisite.Name, Required: r.Prerequisite.Required, Found: r.Found, Path: r.Path, Version: r.Version}
				if r.Error != nil {
					c.Error = r.Error.Error()
				}
				checks = append(checks, c)
			}
			layout, err := paths.Resolve()
			if err != nil {
				return p.fail(git.NewError(git.KindIO, "doctor", err))
			}
			settings := layout.SettingsFile()
			if path := stringFlag(cmd, "config"); path != "" {
				settings = path
			}

			body := map[string]any{
				"checks":       checks,
				"settings":     settings,
				"logs":         layout.LogsDir(),
				"log":          logger.Path(),
				"cleared_logs": cleared,
			}
			if err := p.result(body, func() {
				p.printf("%s", cli.FormatCheckResults(results))
				p.printf("\n%s %s\n%s %s\n", p.styles.Bold.Render("Settings:"), settings, p.styles.Bold.Render("Logs:"), layout.LogsDir())
				if clearLogs {
					p.printf("Removed %d log file(s)\n", cleared)
				}
			}); err != nil {
				return err
			}
			if err := cli.ValidateRequired(results); err != nil {
				return p.fail(git.NewError(git.KindIO, "doctor", err))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearLogs, "clear-logs", false, "Remove gitcore log files before checking")
	return cmd
}
