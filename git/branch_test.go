package git

import (
	"errors"
	"testing"
)

func TestListBranches(t *testing.T) {
	repo, _ := createTestRepoWithRemote(t)
	gitCmd(t, repo, "branch", "feature")

	branches, err := svc.ListBranches(ctx, repo)
	if err != nil {
		t.Fatalf("ListBranches failed: %v", err)
	}

	var names []string
	for _, b := range branches {
		names = append(names, b.Name)
	}
	if len(branches) != 3 {
		t.Fatalf("branches = %v, want feature, main, origin/main", names)
	}

	feature, main, remote := branches[0], branches[1], branches[2]
	if feature.Name != "feature" || feature.IsCurrent || feature.IsRemote {
		t.Errorf("feature = %+v", feature)
	}
	if main.Name != "main" || !main.IsCurrent || main.Upstream != "origin/main" {
		t.Errorf("main = %+v", main)
	}
	if remote.Name != "origin/main" || !remote.IsRemote || remote.IsCurrent {
		t.Errorf("origin/main = %+v", remote)
	}
	if main.SHA == "" || main.SHA != remote.SHA || main.LastCommit == 0 {
		t.Errorf("tip info missing: %+v", main)
	}
}

func TestListBranches_SkipsRemoteHead(t *testing.T) {
	repo, _ := createTestRepoWithRemote(t)
	gitCmd(t, repo, "remote", "set-head", "origin", "main")

	branches, err := svc.ListBranches(ctx, repo)
	if err != nil {
		t.Fatalf("ListBranches failed: %v", err)
	}
	for _, b := range branches {
		if b.Name == "origin/HEAD" {
			t.Error("origin/HEAD should not be listed")
		}
	}
}

func TestCreateBranch(t *testing.T) {
	repo := createTestRepo(t)

	if err := svc.CreateBranch(ctx, repo, "feature/x"); err != nil {
		t.Fatalf("CreateBranch failed: %v", err)
	}
	if got := svc.CurrentBranch(ctx, repo); got != "main" {
		t.Errorf("CreateBranch switched branches: current = %q", got)
	}

	err := svc.CreateBranch(ctx, repo, "feature/x")
	requireKind(t, err, KindConflict)
	if !errors.Is(err, ErrBranchExists) {
		t.Errorf("expected ErrBranchExists, got %v", err)
	}
}

func TestCreateBranch_InvalidNames(t *testing.T) {
	repo := createTestRepo(t)

	for _, name := range []string{"", "  ", "-D", "bad..name", "ends.lock", "has space", "tilde~1", "trailing/"} {
		err := svc.CreateBranch(ctx, repo, name)
		requireKind(t, err, KindInvalidInput)
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("CreateBranch(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestCheckoutBranch_NotFoundLeavesHead(t *testing.T) {
	repo := createTestRepo(t)
	before := gitCmd(t, repo, "rev-parse", "HEAD")

	err := svc.CheckoutBranch(ctx, repo, "does-not-exist")
	requireKind(t, err, KindNotFound)
	if !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("expected ErrBranchNotFound, got %v", err)
	}
	if got := svc.CurrentBranch(ctx, repo); got != "main" {
		t.Errorf("current branch = %q, want main", got)
	}
	if after := gitCmd(t, repo, "rev-parse", "HEAD"); after != before {
		t.Errorf("HEAD moved from %s to %s", before, after)
	}
}

func TestCheckoutBranch_Local(t *testing.T) {
	repo := createTestRepo(t)
	gitCmd(t, repo, "branch", "feature")

	if err := svc.CheckoutBranch(ctx, repo, "feature"); err != nil {
		t.Fatalf("CheckoutBranch failed: %v", err)
	}
	if got := svc.CurrentBranch(ctx, repo); got != "feature" {
		t.Errorf("current branch = %q, want feature", got)
	}
}

func TestCheckoutBranch_FromRemote(t *testing.T) {
	repo, remote := createTestRepoWithRemote(t)
	gitCmd(t, repo, "checkout", "-q", "-b", "topic")
	writeFile(t, repo, "topic.txt", "topic\n")
	gitCmd(t, repo, "add", "topic.txt")
	gitCmd(t, repo, "commit", "-q", "-m", "topic")
	gitCmd(t, repo, "push", "-q", "origin", "topic")

	clone := cloneRepo(t, remote)
	if err := svc.CheckoutBranch(ctx, clone, "topic"); err != nil {
		t.Fatalf("CheckoutBranch(topic) failed: %v", err)
	}
	if got := svc.CurrentBranch(ctx, clone); got != "topic" {
		t.Errorf("current branch = %q, want topic", got)
	}
	if up := gitCmd(t, clone, "rev-parse", "--abbrev-ref", "topic@{upstream}"); up != "origin/topic" {
		t.Errorf("upstream = %q, want origin/topic", up)
	}

	other := cloneRepo(t, remote)
	if err := svc.CheckoutBranch(ctx, other, "origin/topic"); err != nil {
		t.Fatalf("CheckoutBranch(origin/topic) failed: %v", err)
	}
	if got := svc.CurrentBranch(ctx, other); got != "topic" {
		t.Errorf("current branch = %q, want topic", got)
	}
}

func TestCheckoutBranch_DirtyWorkingTree(t *testing.T) {
	repo := createTestRepo(t)
	gitCmd(t, repo, "checkout", "-q", "-b", "feature")
	writeFile(t, repo, "test.txt", "feature version\n")
	gitCmd(t, repo, "commit", "-q", "-am", "feature change")
	gitCmd(t, repo, "checkout", "-q", "main")
	writeFile(t, repo, "test.txt", "uncommitted local edit\n")

	err := svc.CheckoutBranch(ctx, repo, "feature")
	requireKind(t, err, KindConflict)
	if !errors.Is(err, ErrDirtyWorkingTree) {
		t.Errorf("expected ErrDirtyWorkingTree, got %v", err)
	}
	if got := svc.CurrentBranch(ctx, repo); got != "main" {
		t.Errorf("current branch = %q, want main", got)
	}
}

func TestCurrentBranch_Detached(t *testing.T) {
	repo := createTestRepo(t)
	gitCmd(t, repo, "checkout", "-q", "--detach")

	if got := svc.CurrentBranch(ctx, repo); got != "" {
		t.Errorf("CurrentBranch on detached HEAD = %q, want empty", got)
	}
}
