package git

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const sampleDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,4 +1,4 @@ package main
 package main
-func old() {}
+func new() {}

-- not a header
+++ also not a header
diff --git a/gone.txt b/gone.txt
deleted file mode 100644
index 3333333..0000000
--- a/gone.txt
+++ /dev/null
@@ -1 +0,0 @@
-bye
\ No newline at end of file
diff --git a/old.txt b/new.txt
similarity index 90%
rename from old.txt
rename to new.txt
index 4444444..5555555 100644
--- a/old.txt
+++ b/new.txt
@@ -2 +2 @@
-two
+TWO
diff --git a/img.png b/img.png
new file mode 100644
index 0000000..6666666
Binary files /dev/null and b/img.png differ
`

func TestParseUnifiedDiff(t *testing.T) {
	files := ParseUnifiedDiff(sampleDiff)
	if len(files) != 4 {
		t.Fatalf("got %d files, want 4", len(files))
	}

	main := files[0]
	if main.Path != "main.go" || main.Kind != ChangeModified || main.OldPath != "" {
		t.Errorf("main.go header = %+v", main)
	}
	if main.OldRef != "1111111" || main.NewRef != "2222222" || main.NewMode != "100644" {
		t.Errorf("main.go refs = %s..%s mode %s", main.OldRef, main.NewRef, main.NewMode)
	}
	if len(main.Hunks) != 1 {
		t.Fatalf("main.go hunks = %d", len(main.Hunks))
	}
	wantLines := []DiffLine{
		{Kind: LineContext, Content: "package main", OldLine: 1, NewLine: 1},
		{Kind: LineRemoved, Content: "func old() {}", OldLine: 2},
		{Kind: LineAdded, Content: "func new() {}", NewLine: 2},
		{Kind: LineContext, Content: "", OldLine: 3, NewLine: 3},
		{Kind: LineRemoved, Content: "- not a header", OldLine: 4},
		{Kind: LineAdded, Content: "++ also not a header", NewLine: 4},
	}
	if diff := cmp.Diff(wantLines, main.Hunks[0].Lines); diff != "" {
		t.Errorf("main.go lines mismatch (-want +got):\n%s", diff)
	}
	if main.Additions != 2 || main.Deletions != 2 {
		t.Errorf("main.go counts = +%d -%d", main.Additions, main.Deletions)
	}

	gone := files[1]
	if gone.Path != "gone.txt" || gone.Kind != ChangeDeleted || gone.OldMode != "100644" {
		t.Errorf("gone.txt = %+v", gone)
	}
	if l := gone.Hunks[0].Lines; len(l) != 1 || !l[0].NoNewline {
		t.Errorf("gone.txt lines = %+v", l)
	}

	renamed := files[2]
	if renamed.Kind != ChangeRenamed || renamed.OldPath != "old.txt" || renamed.Path != "new.txt" {
		t.Errorf("rename = %+v", renamed)
	}
	if h := renamed.Hunks[0]; h.OldStart != 2 || h.OldLines != 1 || h.NewStart != 2 || h.NewLines != 1 {
		t.Errorf("rename hunk = %+v", h)
	}

	img := files[3]
	if img.Path != "img.png" || img.Kind != ChangeAdded || !img.Binary || img.Hunks == nil || len(img.Hunks) != 0 {
		t.Errorf("img.png = %+v", img)
	}
}

func TestParseUnifiedDiff_RawTextPerFile(t *testing.T) {
	files := ParseUnifiedDiff(sampleDiff)

	var joined string
	for _, f := range files {
		joined += f.Diff
	}
	if joined != sampleDiff {
		t.Errorf("per-file raw text does not reassemble the input:\n%s", joined)
	}
}

func TestParseUnifiedDiff_Empty(t *testing.T) {
	if files := ParseUnifiedDiff(""); len(files) != 0 {
		t.Errorf("got %d files from empty input", len(files))
	}
}

func TestParseUnifiedDiff_ModeChangeOnly(t *testing.T) {
	text := "diff --git a/run.sh b/run.sh\nold mode 100644\nnew mode 100755\n"
	files := ParseUnifiedDiff(text)
	want := []FileDiff{{
		Path:    "run.sh",
		Kind:    ChangeModified,
		OldMode: "100644",
		NewMode: "100755",
		Hunks:   []DiffHunk{},
		Diff:    text,
	}}
	if diff := cmp.Diff(want, files, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGitHeaderPaths(t *testing.T) {
	tests := []struct {
		rest         string
		wantOld, wantNew string
	}{
		{"a/x.txt b/x.txt", "x.txt", "x.txt"},
		{"a/dir with b/ in it b/dir with b/ in it", "dir with b/ in it", "dir with b/ in it"},
		{"a/old.txt b/new.txt", "old.txt", "new.txt"},
		{`"a/tab\there" "b/tab\there"`, "tab\there", "tab\there"},
	}
	for _, tt := range tests {
		gotOld, gotNew := parseGitHeaderPaths(tt.rest)
		if gotOld != tt.wantOld || gotNew != tt.wantNew {
			t.Errorf("parseGitHeaderPaths(%q) = %q, %q; want %q, %q", tt.rest, gotOld, gotNew, tt.wantOld, tt.wantNew)
		}
	}
}

func TestParseHunkHeader(t *testing.T) {
	tests := []struct {
		line string
		want DiffHunk
		ok   bool
	}{
		{"@@ -1,3 +1,4 @@", DiffHunk{OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 4}, true},
		{"@@ -5 +5,0 @@ func x()", DiffHunk{OldStart: 5, OldLines: 1, NewStart: 5, NewLines: 0}, true},
		{"@@ -0,0 +1 @@", DiffHunk{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 1}, true},
		{"@@ garbage @@", DiffHunk{}, false},
	}
	for _, tt := range tests {
		got, ok := parseHunkHeader(tt.line)
		if ok != tt.ok {
			t.Errorf("parseHunkHeader(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		tt.want.Header = tt.line
		if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("parseHunkHeader(%q) mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}
