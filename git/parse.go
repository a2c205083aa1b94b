package git

import (
	"strconv"
	"strings"
)

// ChangeKind is how a file changed between two trees.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// LineKind classifies a line within a hunk.
type LineKind string

const (
	LineContext LineKind = "context"
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
)

// DiffLine is one line of a hunk.
type DiffLine struct {
	Kind    LineKind `json:"kind"`
	Content string   `json:"content"`
	OldLine int      `json:"oldLine,omitempty"` // 0 for added lines
	NewLine int      `json:"newLine,omitempty"` // 0 for removed lines
	// NoNewline marks a line followed by "\ No newline at end of file".
	NoNewline bool `json:"noNewline,omitempty"`
}

// DiffHunk is a contiguous block of changes.
type DiffHunk struct {
	OldStart int        `json:"oldStart"`
	OldLines int        `json:"oldLines"`
	NewStart int        `json:"newStart"`
	NewLines int        `json:"newLines"`
	Header   string     `json:"header"`
	Lines    []DiffLine `json:"lines"`
}

// FileDiff is the change to a single file. Path is relative to the
// repository root. Hunks is empty when Binary or TooLarge is set.
type FileDiff struct {
	Path      string     `json:"path"`
	OldPath   string     `json:"oldPath,omitempty"`
	Kind      ChangeKind `json:"kind"`
	OldRef    string     `json:"oldRef,omitempty"` // blob id before, from the index line
	NewRef    string     `json:"newRef,omitempty"` // blob id after
	OldMode   string     `json:"oldMode,omitempty"`
	NewMode   string     `json:"newMode,omitempty"`
	Binary    bool       `json:"binary"`
	TooLarge  bool       `json:"tooLarge"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
	Hunks     []DiffHunk `json:"hunks"`
	Diff      string     `json:"diff,omitempty"` // raw unified diff text for this file
}

// ParseUnifiedDiff splits git-style unified diff output into per-file diffs.
// Hunk bodies are consumed by their line counts, so content lines that look
// like headers are never misread.
func ParseUnifiedDiff(text string) []FileDiff {
	var files []FileDiff
	if text == "" {
		return files
	}

	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	var cur *FileDiff
	var raw []string
	var hunk *DiffHunk
	oldLeft, newLeft := 0, 0
	oldLine, newLine := 0, 0

	flushHunk := func() {
		if cur != nil && hunk != nil {
			cur.Hunks = append(cur.Hunks, *hunk)
		}
		hunk = nil
	}
	flushFile := func() {
		flushHunk()
		if cur == nil {
			return
		}
		if cur.Kind == "" {
			cur.Kind = ChangeModified
		}
		if cur.Path == "" {
			cur.Path = cur.OldPath
		}
		if cur.Kind != ChangeRenamed {
			cur.OldPath = ""
		}
		cur.Diff = strings.Join(raw, "\n") + "\n"
		files = append(files, *cur)
		cur, raw = nil, nil
	}

	for _, line := range lines {
		// Inside a hunk every line belongs to it until both counts run out.
		if hunk != nil && (oldLeft > 0 || newLeft > 0 || strings.HasPrefix(line, `\`)) {
			raw = append(raw, line)
			if strings.HasPrefix(line, `\`) {
				if n := len(hunk.Lines); n > 0 {
					hunk.Lines[n-1].NoNewline = true
				}
				continue
			}
			var dl DiffLine
			content := ""
			if len(line) > 0 {
				content = line[1:]
			}
			switch {
			case strings.HasPrefix(line, "+"):
				dl = DiffLine{Kind: LineAdded, Content: content, NewLine: newLine}
				newLine++
				newLeft--
				cur.Additions++
			case strings.HasPrefix(line, "-"):
				dl = DiffLine{Kind: LineRemoved, Content: content, OldLine: oldLine}
				oldLine++
				oldLeft--
				cur.Deletions++
			default:
				dl = DiffLine{Kind: LineContext, Content: content, OldLine: oldLine, NewLine: newLine}
				oldLine++
				newLine++
				oldLeft--
				newLeft--
			}
			hunk.Lines = append(hunk.Lines, dl)
			continue
		}

		if strings.HasPrefix(line, "diff --git ") {
			flushFile()
			cur = &FileDiff{}
			cur.OldPath, cur.Path = parseGitHeaderPaths(strings.TrimPrefix(line, "diff --git "))
			raw = []string{line}
			continue
		}
		if cur == nil {
			continue
		}
		raw = append(raw, line)

		switch {
		case strings.HasPrefix(line, "@@ "):
			flushHunk()
			h, ok := parseHunkHeader(line)
			if !ok {
				continue
			}
			hunk = &h
			oldLeft, newLeft = h.OldLines, h.NewLines
			oldLine, newLine = h.OldStart, h.NewStart
		case strings.HasPrefix(line, "new file mode "):
			cur.Kind = ChangeAdded
			cur.NewMode = strings.TrimPrefix(line, "new file mode ")
		case strings.HasPrefix(line, "deleted file mode "):
			cur.Kind = ChangeDeleted
			cur.OldMode = strings.TrimPrefix(line, "deleted file mode ")
		case strings.HasPrefix(line, "old mode "):
			cur.OldMode = strings.TrimPrefix(line, "old mode ")
		case strings.HasPrefix(line, "new mode "):
			cur.NewMode = strings.TrimPrefix(line, "new mode ")
		case strings.HasPrefix(line, "rename from "):
			cur.Kind = ChangeRenamed
			cur.OldPath = unquotePath(strings.TrimPrefix(line, "rename from "))
		case strings.HasPrefix(line, "rename to "):
			cur.Kind = ChangeRenamed
			cur.Path = unquotePath(strings.TrimPrefix(line, "rename to "))
		case strings.HasPrefix(line, "copy to "):
			cur.Kind = ChangeAdded
			cur.Path = unquotePath(strings.TrimPrefix(line, "copy to "))
		case strings.HasPrefix(line, "index "):
			parseIndexLine(cur, strings.TrimPrefix(line, "index "))
		case strings.HasPrefix(line, "Binary files "), line == "GIT binary patch":
			cur.Binary = true
		case strings.HasPrefix(line, "--- "):
			if p := strings.TrimPrefix(line, "--- "); p != "/dev/null" {
				cur.OldPath = stripPrefix(unquotePath(p), "a/")
			}
		case strings.HasPrefix(line, "+++ "):
			if p := strings.TrimPrefix(line, "+++ "); p != "/dev/null" {
				cur.Path = stripPrefix(unquotePath(p), "b/")
			}
		}
	}
	flushFile()

	for i := range files {
		if files[i].Binary {
			files[i].Hunks = nil
		}
		if files[i].Hunks == nil {
			files[i].Hunks = []DiffHunk{}
		}
	}
	return files
}

// parseGitHeaderPaths extracts the two paths from the rest of a
// "diff --git a/x b/y" line.
func parseGitHeaderPaths(rest string) (oldPath, newPath string) {
	if strings.HasPrefix(rest, `"`) {
		if a, remaining, ok := cutQuoted(rest); ok {
			b := strings.TrimSpace(remaining)
			return stripPrefix(a, "a/"), stripPrefix(unquotePath(b), "b/")
		}
	}
	// Same name on both sides: "a/<n> b/<n>".
	if n := (len(rest) - 5) / 2; n > 0 && len(rest) == 2*n+5 &&
		strings.HasPrefix(rest, "a/") && rest[2+n:2+n+3] == " b/" && rest[2:2+n] == rest[5+n:] {
		return rest[2 : 2+n], rest[5+n:]
	}
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return stripPrefix(rest[:i], "a/"), unquotePath(rest[i+3:])
	}
	return rest, rest
}

func parseHunkHeader(line string) (DiffHunk, bool) {
	h := DiffHunk{Header: line}
	body, _, ok := strings.Cut(strings.TrimPrefix(line, "@@ "), " @@")
	if !ok {
		return h, false
	}
	fields := strings.Fields(body)
	if len(fields) < 2 {
		return h, false
	}
	var okOld, okNew bool
	h.OldStart, h.OldLines, okOld = parseRange(strings.TrimPrefix(fields[0], "-"))
	h.NewStart, h.NewLines, okNew = parseRange(strings.TrimPrefix(fields[1], "+"))
	return h, okOld && okNew
}

// parseRange parses "start,count" or "start" (count 1).
func parseRange(s string) (start, count int, ok bool) {
	startStr, countStr, hasCount := strings.Cut(s, ",")
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, false
	}
	if !hasCount {
		return start, 1, true
	}
	count, err = strconv.Atoi(countStr)
	if err != nil {
		return 0, 0, false
	}
	return start, count, true
}

// parseIndexLine reads "abc123..def456 100644".
func parseIndexLine(f *FileDiff, rest string) {
	refs, mode, _ := strings.Cut(rest, " ")
	oldRef, newRef, ok := strings.Cut(refs, "..")
	if !ok {
		return
	}
	f.OldRef, f.NewRef = oldRef, newRef
	if mode != "" && f.OldMode == "" && f.NewMode == "" {
		f.OldMode, f.NewMode = mode, mode
	}
}

func stripPrefix(p, prefix string) string {
	return strings.TrimPrefix(strings.TrimSuffix(p, "\t"), prefix)
}

// unquotePath undoes git's C-style quoting of unusual paths.
func unquotePath(p string) string {
	p = strings.TrimSuffix(p, "\t")
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if s, err := strconv.Unquote(p); err == nil {
			return s
		}
	}
	return p
}

// cutQuoted splits a leading quoted string off s.
func cutQuoted(s string) (string, string, bool) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			unq, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return "", "", false
			}
			return unq, s[i+1:], true
		}
	}
	return "", "", false
}
