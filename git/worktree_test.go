package git

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStatus_Clean(t *testing.T) {
	repo := createTestRepo(t)

	report, err := svc.Status(ctx, repo)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !report.Clean() {
		t.Errorf("expected clean status, got %+v", report.Files)
	}
	if report.Branch != "main" {
		t.Errorf("Branch = %q, want main", report.Branch)
	}
	if report.Head == "" {
		t.Error("expected Head to be set")
	}
}

func TestStatus_MixedChanges(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "keep.txt", "one\n")
	gitCmd(t, repo, "add", "keep.txt")
	gitCmd(t, repo, "commit", "-q", "-m", "add keep")

	writeFile(t, repo, "test.txt", "changed\nmore\n")
	writeFile(t, repo, "staged.txt", "a\nb\nc\n")
	gitCmd(t, repo, "add", "staged.txt")
	writeFile(t, repo, "dir/new.txt", "x\n")
	if err := os.Remove(filepath.Join(repo, "keep.txt")); err != nil {
		t.Fatal(err)
	}

	report, err := svc.Status(ctx, repo)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	if diff := cmp.Diff([]string{"staged.txt"}, report.StagedPaths()); diff != "" {
		t.Errorf("StagedPaths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dir/new.txt"}, report.UntrackedPaths()); diff != "" {
		t.Errorf("UntrackedPaths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"keep.txt"}, report.DeletedPaths()); diff != "" {
		t.Errorf("DeletedPaths mismatch (-want +got):\n%s", diff)
	}

	mod, ok := report.Lookup("test.txt")
	if !ok || !mod.Unstaged || mod.Staged {
		t.Errorf("test.txt entry = %+v, %v", mod, ok)
	}
	if mod.Additions != 2 || mod.Deletions != 1 {
		t.Errorf("test.txt counts = +%d -%d, want +2 -1", mod.Additions, mod.Deletions)
	}
	staged, _ := report.Lookup("staged.txt")
	if staged.Additions != 3 {
		t.Errorf("staged.txt additions = %d, want 3", staged.Additions)
	}
	untracked, _ := report.Lookup("dir/new.txt")
	if untracked.Additions != 1 {
		t.Errorf("dir/new.txt additions = %d, want 1", untracked.Additions)
	}
	if report.TotalAdditions != 6 || report.TotalDeletions != 2 {
		t.Errorf("totals = +%d -%d, want +6 -2", report.TotalAdditions, report.TotalDeletions)
	}
}

func TestStatus_UnbornHead(t *testing.T) {
	repo := initRepo(t)
	writeFile(t, repo, "a.txt", "hello\n")

	report, err := svc.Status(ctx, repo)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if report.Head != "" {
		t.Errorf("Head = %q, want empty", report.Head)
	}
	if report.Branch != "main" {
		t.Errorf("Branch = %q, want main", report.Branch)
	}
	if diff := cmp.Diff([]string{"a.txt"}, report.UntrackedPaths()); diff != "" {
		t.Errorf("UntrackedPaths mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePorcelainV2_RenameAndConflict(t *testing.T) {
	out := "# branch.oid abc123\x00" +
		"# branch.head feature\x00" +
		"# branch.upstream origin/feature\x00" +
		"# branch.ab +2 -1\x00" +
		"2 R. N... 100644 100644 100644 1111 1111 R100 new name.txt\x00old name.txt\x00" +
		"u UU N... 100644 100644 100644 100644 aaaa bbbb cccc both.txt\x00" +
		"? untracked.txt\x00"

	report := parsePorcelainV2([]byte(out))

	if report.Head != "abc123" || report.Branch != "feature" || report.Upstream != "origin/feature" {
		t.Errorf("header = %+v", report)
	}
	if report.Ahead != 2 || report.Behind != 1 {
		t.Errorf("ahead/behind = %d/%d, want 2/1", report.Ahead, report.Behind)
	}

	want := []FileStatus{
		{Path: "new name.txt", OldPath: "old name.txt", Index: "R", Worktree: ".", Staged: true},
		{Path: "both.txt", Index: "U", Worktree: "U", Staged: true, Unstaged: true, Conflicted: true},
		{Path: "untracked.txt", Index: "?", Worktree: "?", Untracked: true},
	}
	if diff := cmp.Diff(want, report.Files); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePorcelainV2_Detached(t *testing.T) {
	report := parsePorcelainV2([]byte("# branch.oid abc\x00# branch.head (detached)\x00"))
	if !report.Detached || report.Branch != "" {
		t.Errorf("expected detached with no branch, got %+v", report)
	}
}

// The scenario every client exercises first: new file, stage, commit, log.
func TestStageCommitLog_NewFile(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "a.txt", "alpha\n")

	report, err := svc.Status(ctx, repo)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if f, ok := report.Lookup("a.txt"); !ok || !f.Untracked {
		t.Fatalf("a.txt should be untracked, got %+v", f)
	}

	if err := svc.StageFile(ctx, repo, "a.txt"); err != nil {
		t.Fatalf("StageFile failed: %v", err)
	}
	report, _ = svc.Status(ctx, repo)
	if f, ok := report.Lookup("a.txt"); !ok || !f.Staged || f.Untracked {
		t.Fatalf("a.txt should be staged, got %+v", f)
	}

	sha, err := svc.Commit(ctx, repo, "add a")
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if len(sha) != 40 {
		t.Errorf("sha = %q, want 40 hex chars", sha)
	}

	log, err := svc.Log(ctx, repo, 1)
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(log.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(log.Entries))
	}
	if log.Entries[0].Subject != "add a" || log.Entries[0].SHA != sha {
		t.Errorf("entry = %+v", log.Entries[0])
	}
	if !log.HasMore {
		t.Error("expected HasMore with the initial commit behind it")
	}
}

func TestStageUnstage_RoundTrip(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "test.txt", "modified\n")
	writeFile(t, repo, "new.txt", "new\n")

	before, err := svc.Status(ctx, repo)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	for _, p := range []string{"test.txt", "new.txt"} {
		if err := svc.StageFile(ctx, repo, p); err != nil {
			t.Fatalf("StageFile(%s) failed: %v", p, err)
		}
		if err := svc.UnstageFile(ctx, repo, p); err != nil {
			t.Fatalf("UnstageFile(%s) failed: %v", p, err)
		}
	}

	after, err := svc.Status(ctx, repo)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if diff := cmp.Diff(before.Files, after.Files); diff != "" {
		t.Errorf("status changed after stage/unstage (-before +after):\n%s", diff)
	}
}

func TestUnstage_UnbornHead(t *testing.T) {
	repo := initRepo(t)
	writeFile(t, repo, "a.txt", "a\n")

	if err := svc.StageFile(ctx, repo, "a.txt"); err != nil {
		t.Fatalf("StageFile failed: %v", err)
	}
	if err := svc.UnstageFile(ctx, repo, "a.txt"); err != nil {
		t.Fatalf("UnstageFile failed: %v", err)
	}
	report, _ := svc.Status(ctx, repo)
	if f, _ := report.Lookup("a.txt"); !f.Untracked {
		t.Errorf("a.txt should be untracked again, got %+v", f)
	}
}

func TestStageDeletedFile(t *testing.T) {
	repo := createTestRepo(t)
	if err := os.Remove(filepath.Join(repo, "test.txt")); err != nil {
		t.Fatal(err)
	}
	if err := svc.StageFile(ctx, repo, "test.txt"); err != nil {
		t.Fatalf("StageFile on deleted path failed: %v", err)
	}
	report, _ := svc.Status(ctx, repo)
	if f, _ := report.Lookup("test.txt"); f.Index != "D" {
		t.Errorf("expected staged deletion, got %+v", f)
	}
}

func TestStageAll_Idempotent(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "test.txt", "modified\n")
	writeFile(t, repo, "b/new.txt", "new\n")

	if err := svc.StageAll(ctx, repo); err != nil {
		t.Fatalf("StageAll failed: %v", err)
	}
	first, _ := svc.Status(ctx, repo)
	if err := svc.StageAll(ctx, repo); err != nil {
		t.Fatalf("second StageAll failed: %v", err)
	}
	second, _ := svc.Status(ctx, repo)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("StageAll not idempotent (-first +second):\n%s", diff)
	}
	if len(first.StagedPaths()) != 2 {
		t.Errorf("StagedPaths = %v, want 2 entries", first.StagedPaths())
	}
}

func TestUnstageAll(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "test.txt", "modified\n")
	writeFile(t, repo, "new.txt", "new\n")
	gitCmd(t, repo, "add", "-A")

	if err := svc.UnstageAll(ctx, repo); err != nil {
		t.Fatalf("UnstageAll failed: %v", err)
	}
	report, _ := svc.Status(ctx, repo)
	if staged := report.StagedPaths(); len(staged) != 0 {
		t.Errorf("StagedPaths = %v, want none", staged)
	}
	if len(report.Files) != 2 {
		t.Errorf("expected working tree changes to survive, got %+v", report.Files)
	}
}

func TestStageFile_Errors(t *testing.T) {
	repo := createTestRepo(t)

	tests := []struct {
		name   string
		path   string
		kind   Kind
		reason error
	}{
		{"missing", "nope.txt", KindNotFound, ErrPathNotFound},
		{"empty", "  ", KindInvalidInput, ErrInvalidPath},
		{"escape", "../outside.txt", KindInvalidInput, ErrInvalidPath},
		{"git dir", ".git/config", KindInvalidInput, ErrInvalidPath},
		{"root", ".", KindInvalidInput, ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.StageFile(ctx, repo, tt.path)
			requireKind(t, err, tt.kind)
			if !errors.Is(err, tt.reason) {
				t.Errorf("error %v does not wrap %v", err, tt.reason)
			}
		})
	}
}

func TestStageFile_AbsolutePath(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "abs.txt", "x\n")

	if err := svc.StageFile(ctx, repo, filepath.Join(repo, "abs.txt")); err != nil {
		t.Fatalf("StageFile with absolute path failed: %v", err)
	}
	report, _ := svc.Status(ctx, repo)
	if f, _ := report.Lookup("abs.txt"); !f.Staged {
		t.Errorf("abs.txt not staged: %+v", f)
	}
}

func TestRevertFile(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "test.txt", "scribbled\n")
	writeFile(t, repo, "junk.txt", "junk\n")

	if err := svc.RevertFile(ctx, repo, "test.txt"); err != nil {
		t.Fatalf("RevertFile(tracked) failed: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(repo, "test.txt"))
	if string(data) != "test content\n" {
		t.Errorf("test.txt = %q, want original content", data)
	}

	if err := svc.RevertFile(ctx, repo, "junk.txt"); err != nil {
		t.Fatalf("RevertFile(untracked) failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(repo, "junk.txt")); !os.IsNotExist(err) {
		t.Errorf("junk.txt should be removed, stat err = %v", err)
	}

	requireKind(t, svc.RevertFile(ctx, repo, "ghost.txt"), KindNotFound)
}

func TestSinglePathOps_PathIsLiteral(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "a.go", "a\n")
	writeFile(t, repo, "b.go", "b\n")
	gitCmd(t, repo, "add", ".")
	gitCmd(t, repo, "commit", "-q", "-m", "add go files")
	writeFile(t, repo, "a.go", "a edited\n")
	writeFile(t, repo, "b.go", "b edited\n")

	for _, p := range []string{"*.go", "*", "?.go", ":(glob)*.go"} {
		requireKind(t, svc.RevertFile(ctx, repo, p), KindNotFound)
		requireKind(t, svc.StageFile(ctx, repo, p), KindNotFound)
	}
	for _, name := range []string{"a.go", "b.go"} {
		data, _ := os.ReadFile(filepath.Join(repo, name))
		if !strings.HasSuffix(string(data), "edited\n") {
			t.Errorf("%s = %q, edits should survive", name, data)
		}
	}
	report, _ := svc.Status(ctx, repo)
	if staged := report.StagedPaths(); len(staged) != 0 {
		t.Errorf("nothing should be staged, got %v", staged)
	}

	// A file whose name looks like a pattern is addressed by that name only.
	writeFile(t, repo, "[a].go", "bracket\n")
	if err := svc.StageFile(ctx, repo, "[a].go"); err != nil {
		t.Fatalf("StageFile([a].go) failed: %v", err)
	}
	report, _ = svc.Status(ctx, repo)
	if diff := cmp.Diff([]string{"[a].go"}, report.StagedPaths()); diff != "" {
		t.Errorf("staged paths mismatch (-want +got):\n%s", diff)
	}
	if err := svc.UnstageFile(ctx, repo, "[a].go"); err != nil {
		t.Fatalf("UnstageFile([a].go) failed: %v", err)
	}
	if err := svc.RevertFile(ctx, repo, "[a].go"); err != nil {
		t.Fatalf("RevertFile([a].go) failed: %v", err)
	}
	if data, _ := os.ReadFile(filepath.Join(repo, "a.go")); string(data) != "a edited\n" {
		t.Errorf("a.go = %q, reverting [a].go must not touch it", data)
	}
}

func TestRevertAll_KeepsStaged(t *testing.T) {
	repo := createTestRepo(t)
	writeFile(t, repo, "staged.txt", "keep me\n")
	gitCmd(t, repo, "add", "staged.txt")
	writeFile(t, repo, "test.txt", "scribbled\n")
	writeFile(t, repo, "junk/file.txt", "junk\n")

	if err := svc.RevertAll(ctx, repo); err != nil {
		t.Fatalf("RevertAll failed: %v", err)
	}
	report, _ := svc.Status(ctx, repo)
	want := []FileStatus{{Path: "staged.txt", Index: "A", Worktree: ".", Staged: true, Additions: 1}}
	if diff := cmp.Diff(want, report.Files); diff != "" {
		t.Errorf("Files mismatch (-want +got):\n%s", diff)
	}
}

func TestCommit_Errors(t *testing.T) {
	repo := createTestRepo(t)

	_, err := svc.Commit(ctx, repo, "   \n")
	requireKind(t, err, KindInvalidInput)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}

	_, err2 := svc.Commit(ctx, repo, "nothing here")
	requireKind(t, err2, KindConflict)
	if !errors.Is(err2, ErrNothingStaged) {
		t.Errorf("expected ErrNothingStaged, got %v", err2)
	}

	// Unstaged edits alone are still nothing to commit.
	writeFile(t, repo, "test.txt", "edited\n")
	_, err3 := svc.Commit(ctx, repo, "still nothing")
	if !errors.Is(err3, ErrNothingStaged) {
		t.Errorf("expected ErrNothingStaged with only unstaged edits, got %v", err3)
	}
}

func TestCommit_FirstCommit(t *testing.T) {
	repo := initRepo(t)
	writeFile(t, repo, "a.txt", "a\n")
	gitCmd(t, repo, "add", "a.txt")

	staged, err := svc.HasStagedChanges(ctx, repo)
	if err != nil || !staged {
		t.Fatalf("HasStagedChanges = %v, %v; want true", staged, err)
	}
	if _, err := svc.Commit(ctx, repo, "root"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestCleanPath(t *testing.T) {
	root := filepath.FromSlash("/repo")
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a.txt", "a.txt", false},
		{"dir/../b.txt", "b.txt", false},
		{"./c/d.txt", "c/d.txt", false},
		{filepath.Join(root, "x", "y.txt"), "x/y.txt", false},
		{"..", "", true},
		{"../z", "", true},
		{".git", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := cleanPath("test", root, tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("cleanPath(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("cleanPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
