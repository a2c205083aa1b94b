package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/zhubert/gitcore/git"
)

// Exit codes:
// 0 = Success
// 1 = User error (bad arguments, not found, GitHub unavailable)
// 2 = System error (git, filesystem, network, auth, GitHub API)
// 3 = Conflict (nothing staged, dirty tree, merge conflict, rejected push)
const (
	exitSuccess     = 0
	exitUserError   = 1
	exitSystemError = 2
	exitConflict    = 3
)

// exitError is an error that has already been reported to the user.
type exitError struct {
	code  int
	cause error
}

func (e *exitError) Error() string { return e.cause.Error() }
func (e *exitError) Unwrap() error { return e.cause }

func codeForKind(kind git.Kind) int {
	switch kind {
	case git.KindConflict:
		return exitConflict
	case git.KindIO, git.KindNetwork, git.KindAuth, git.KindGitHubAPI:
		return exitSystemError
	default:
		return exitUserError
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitUserError
}

type styles struct {
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Bold    lipgloss.Style
	Dim     lipgloss.Style
	Added   lipgloss.Style
	Removed lipgloss.Style
	Hunk    lipgloss.Style
}

// printer writes command results as JSON or styled text.
type printer struct {
	w      io.Writer
	errW   io.Writer
	json   bool
	styles styles
}

func newPrinter(cmd *cobra.Command) *printer {
	out := cmd.OutOrStdout()
	s := styles{}
	if isTTY(out) {
		s = styles{
			Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
			Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
			Bold:    lipgloss.NewStyle().Bold(true),
			Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
			Added:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
			Removed: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
			Hunk:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		}
	}
	return &printer{
		w:      out,
		errW:   cmd.ErrOrStderr(),
		json:   boolFlag(cmd, "json"),
		styles: s,
	}
}

// isTTY checks if a writer is a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// result writes data as JSON, or calls human to render it.
func (p *printer) result(data any, human func()) error {
	if p.json {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	}
	human()
	return nil
}

// done reports a mutation without a payload.
func (p *printer) done(message string) error {
	return p.result(map[string]any{"ok": true, "message": message}, func() {
		fmt.Fprintln(p.w, p.styles.Success.Render(message))
	})
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// fail reports err and returns it wrapped with its exit code. JSON errors
// carry the kind, the failing sync step, the GitHub status and the paths a
// partial multi-path mutation already applied.
func (p *printer) fail(err error) error {
	var done *exitError
	if errors.As(err, &done) {
		return err
	}

	kind := git.KindOf(err)
	code := codeForKind(kind)

	if p.json {
		body := map[string]any{"error": err.Error(), "kind": kind, "code": code}
		var gerr *git.Error
		if errors.As(err, &gerr) {
			if gerr.Step != "" {
				body["step"] = gerr.Step
			}
			if gerr.Status != 0 {
				body["status"] = gerr.Status
			}
		}
		var partial *partialError
		if errors.As(err, &partial) {
			body["applied"] = partial.applied
		}
		data, _ := json.Marshal(body)
		fmt.Fprintln(p.w, string(data))
	} else {
		fmt.Fprintf(p.errW, "%s: %s\n", p.styles.Error.Render("Error"), err)
		switch kind {
		case git.KindAuth:
			fmt.Fprintln(p.errW, p.styles.Dim.Render("Check your git credentials and try again."))
		case git.KindNetwork:
			fmt.Fprintln(p.errW, p.styles.Dim.Render("The remote could not be reached; retry when the network is available."))
		}
	}
	return &exitError{code: code, cause: err}
}

// printDiff writes a unified diff with added and removed lines colored.
func (p *printer) printDiff(f git.FileDiff) {
	title := f.Path
	if f.OldPath != "" {
		title = f.OldPath + " -> " + f.Path
	}
	p.printf("%s %s\n", p.styles.Bold.Render(title), p.styles.Dim.Render(fmt.Sprintf("(%s, +%d -%d)", f.Kind, f.Additions, f.Deletions)))
	switch {
	case f.Binary:
		p.printf("  %s\n", p.styles.Dim.Render("binary file"))
		return
	case f.TooLarge:
		p.printf("  %s\n", p.styles.Warning.Render("diff too large to display"))
		return
	}
	for _, h := range f.Hunks {
		p.printf("%s\n", p.styles.Hunk.Render(h.Header))
		for _, l := range h.Lines {
			switch l.Kind {
			case git.LineAdded:
				p.printf("%s\n", p.styles.Added.Render("+"+l.Content))
			case git.LineRemoved:
				p.printf("%s\n", p.styles.Removed.Render("-"+l.Content))
			default:
				p.printf(" %s\n", l.Content)
			}
		}
	}
}
