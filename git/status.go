package git

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// maxCountedFileSize bounds how much of an untracked file is read to count
// its lines for the status totals.
const maxCountedFileSize = 1 << 20

// FileStatus is one changed path in a StatusReport.
type FileStatus struct {
	Path       string `json:"path"`
	OldPath    string `json:"oldPath,omitempty"`
	Index      string `json:"index"`    // X code: M, A, D, R, C, T, U or "."
	Worktree   string `json:"worktree"` // Y code, same alphabet
	Staged     bool   `json:"staged"`
	Unstaged   bool   `json:"unstaged"`
	Untracked  bool   `json:"untracked"`
	Conflicted bool   `json:"conflicted"`
	Additions  int    `json:"additions"`
	Deletions  int    `json:"deletions"`
}

// Deleted reports whether the path is gone from the index or the working tree.
func (f FileStatus) Deleted() bool {
	return f.Index == "D" || f.Worktree == "D"
}

// StatusReport is the working tree state of a repository.
type StatusReport struct {
	Branch         string       `json:"branch"` // empty when detached
	Head           string       `json:"head"`   // commit sha, empty when unborn
	Detached       bool         `json:"detached"`
	Upstream       string       `json:"upstream,omitempty"`
	Ahead          int          `json:"ahead"`
	Behind         int          `json:"behind"`
	Files          []FileStatus `json:"files"`
	TotalAdditions int          `json:"totalAdditions"`
	TotalDeletions int          `json:"totalDeletions"`
}

// Clean reports whether nothing is staged, modified, or untracked.
func (r *StatusReport) Clean() bool {
	return len(r.Files) == 0
}

// Lookup returns the entry for path.
func (r *StatusReport) Lookup(path string) (FileStatus, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return FileStatus{}, false
}

func (r *StatusReport) filter(keep func(FileStatus) bool) []string {
	var out []string
	for _, f := range r.Files {
		if keep(f) {
			out = append(out, f.Path)
		}
	}
	return out
}

// StagedPaths returns paths with changes in the index.
func (r *StatusReport) StagedPaths() []string {
	return r.filter(func(f FileStatus) bool { return f.Staged })
}

// UnstagedPaths returns tracked paths with working tree changes.
func (r *StatusReport) UnstagedPaths() []string {
	return r.filter(func(f FileStatus) bool { return f.Unstaged })
}

// UntrackedPaths returns paths git does not track.
func (r *StatusReport) UntrackedPaths() []string {
	return r.filter(func(f FileStatus) bool { return f.Untracked })
}

// DeletedPaths returns paths deleted in the index or working tree.
func (r *StatusReport) DeletedPaths() []string {
	return r.filter(FileStatus.Deleted)
}

// Status reports branch tracking info and every changed path under root.
func (s *GitService) Status(ctx context.Context, root string) (*StatusReport, error) {
	const op = "status"

	out, err := s.run(ctx, root, "status", "--porcelain=v2", "--branch", "-z", "--untracked-files=all")
	if err != nil {
		return nil, ioError(op, err)
	}
	report := parsePorcelainV2(out)

	base := emptyTree
	if report.Head != "" {
		base = "HEAD"
	}
	if err := s.fillLineCounts(ctx, root, base, report); err != nil {
		return nil, ioError(op, err)
	}
	return report, nil
}

// parsePorcelainV2 parses `git status --porcelain=v2 --branch -z`.
func parsePorcelainV2(out []byte) *StatusReport {
	report := &StatusReport{Files: []FileStatus{}}
	fields := splitNul(out)

	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if entry == "" {
			continue
		}
		switch entry[0] {
		case '#':
			parseBranchHeader(report, entry)
		case '1':
			parts := strings.SplitN(entry, " ", 9)
			if len(parts) == 9 {
				report.Files = append(report.Files, trackedEntry(parts[1], parts[8], ""))
			}
		case '2':
			parts := strings.SplitN(entry, " ", 10)
			if len(parts) == 10 {
				orig := ""
				if i+1 < len(fields) {
					i++
					orig = fields[i]
				}
				report.Files = append(report.Files, trackedEntry(parts[1], parts[9], orig))
			}
		case 'u':
			parts := strings.SplitN(entry, " ", 11)
			if len(parts) == 11 {
				f := trackedEntry(parts[1], parts[10], "")
				f.Conflicted = true
				report.Files = append(report.Files, f)
			}
		case '?':
			report.Files = append(report.Files, FileStatus{
				Path:      entry[2:],
				Index:     "?",
				Worktree:  "?",
				Untracked: true,
			})
		}
	}
	return report
}

func parseBranchHeader(report *StatusReport, line string) {
	key, value, _ := strings.Cut(strings.TrimPrefix(line, "# "), " ")
	switch key {
	case "branch.oid":
		if value != "(initial)" {
			report.Head = value
		}
	case "branch.head":
		if value == "(detached)" {
			report.Detached = true
		} else {
			report.Branch = value
		}
	case "branch.upstream":
		report.Upstream = value
	case "branch.ab":
		for _, part := range strings.Fields(value) {
			n, err := strconv.Atoi(part[1:])
			if err != nil {
				continue
			}
			switch part[0] {
			case '+':
				report.Ahead = n
			case '-':
				report.Behind = n
			}
		}
	}
}

func trackedEntry(xy, path, orig string) FileStatus {
	x, y := ".", "."
	if len(xy) == 2 {
		x, y = xy[:1], xy[1:]
	}
	return FileStatus{
		Path:     path,
		OldPath:  orig,
		Index:    x,
		Worktree: y,
		Staged:   x != ".",
		Unstaged: y != ".",
	}
}

// fillLineCounts adds per-file and total line counts. Tracked files are
// counted against base; untracked files by reading them.
func (s *GitService) fillLineCounts(ctx context.Context, root, base string, report *StatusReport) error {
	if len(report.Files) == 0 {
		return nil
	}
	out, err := s.run(ctx, root, "diff", "--numstat", "--no-renames", "--no-ext-diff", "-z", base)
	if err != nil {
		return err
	}
	counts := parseNumstat(out)

	for i := range report.Files {
		f := &report.Files[i]
		if f.Untracked {
			f.Additions = countLines(filepath.Join(root, f.Path))
		} else if c, ok := counts[f.Path]; ok {
			f.Additions, f.Deletions = c[0], c[1]
		}
		report.TotalAdditions += f.Additions
		report.TotalDeletions += f.Deletions
	}
	return nil
}

// parseNumstat parses `git diff --numstat -z --no-renames`. Binary files
// report "-" and count as zero.
func parseNumstat(out []byte) map[string][2]int {
	counts := make(map[string][2]int)
	for _, rec := range splitNul(out) {
		parts := strings.SplitN(strings.TrimLeft(rec, "\n"), "\t", 3)
		if len(parts) != 3 {
			continue
		}
		add, _ := strconv.Atoi(parts[0])
		del, _ := strconv.Atoi(parts[1])
		counts[parts[2]] = [2]int{add, del}
	}
	return counts
}

// countLines counts newline-terminated lines in a small text file. Binary,
// oversized, and unreadable files count as zero.
func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() || info.Size() > maxCountedFileSize {
		return 0
	}
	data, err := io.ReadAll(bufio.NewReader(f))
	if err != nil || slices.Contains(data, 0) {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}
