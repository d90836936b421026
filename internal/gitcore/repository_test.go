package gitcore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBranchesNested(t *testing.T) {
	gitDir := t.TempDir()
	repo := &Repository{gitDir: gitDir, logger: discardLogger()}

	writeRef(t, gitDir, "refs/heads/main", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n")
	writeRef(t, gitDir, "refs/heads/feature/login", "  bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb  \n")
	writeRef(t, gitDir, "refs/tags/v1.0", "cccccccccccccccccccccccccccccccccccccccc\n")

	branches, err := repo.Branches()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(branches) != 2 {
		t.Fatalf("expected 2 branches, got %#v", branches)
	}
	if branches["main"] != "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("unexpected main head: %s", branches["main"])
	}
	if branches["feature/login"] != "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Fatalf("unexpected feature/login head: %s", branches["feature/login"])
	}
}

func TestBranchesNoHeadsDirectory(t *testing.T) {
	repo := &Repository{gitDir: t.TempDir(), logger: discardLogger()}

	branches, err := repo.Branches()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(branches) != 0 {
		t.Fatalf("expected no branches, got %#v", branches)
	}
}

func TestBranchesSkipsBrokenSymref(t *testing.T) {
	gitDir := t.TempDir()
	repo := &Repository{gitDir: gitDir, logger: discardLogger()}

	writeRef(t, gitDir, "refs/heads/main", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n")
	writeRef(t, gitDir, "refs/heads/alias", "ref: refs/heads/main\n")
	writeRef(t, gitDir, "refs/heads/dangling", "ref: refs/heads/nowhere\n")

	branches, err := repo.Branches()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if branches["alias"] != branches["main"] {
		t.Fatalf("expected alias to resolve to main, got %#v", branches)
	}
	if _, ok := branches["dangling"]; ok {
		t.Fatalf("expected dangling symref to be skipped")
	}
}

func TestResolveRefSelfLoop(t *testing.T) {
	gitDir := t.TempDir()
	repo := &Repository{gitDir: gitDir}
	writeRef(t, gitDir, "refs/heads/loop", "ref: refs/heads/loop\n")

	if _, err := repo.resolveRef(filepath.Join(gitDir, "refs", "heads", "loop"), 0); err == nil {
		t.Fatalf("expected error for self-referencing symref")
	}
}

func TestNewRepositoryWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755); err != nil {
		t.Fatalf("failed to create .git: %v", err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	repo, err := NewRepository(nested)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.GitDir() != filepath.Join(root, ".git") {
		t.Fatalf("unexpected git dir: %s", repo.GitDir())
	}
	if repo.WorkDir() != root || repo.Name() != filepath.Base(root) {
		t.Fatalf("unexpected work dir: %s", repo.WorkDir())
	}
}

func TestNewRepositoryGitFile(t *testing.T) {
	root := t.TempDir()
	actual := filepath.Join(root, "storage", "worktree.git")
	if err := os.MkdirAll(actual, 0o755); err != nil {
		t.Fatalf("failed to create git dir: %v", err)
	}
	work := filepath.Join(root, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatalf("failed to create work dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(work, ".git"), []byte("gitdir: ../storage/worktree.git\n"), 0o644); err != nil {
		t.Fatalf("failed to write .git file: %v", err)
	}

	repo, err := NewRepository(work)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.GitDir() != actual {
		t.Fatalf("unexpected git dir: %s", repo.GitDir())
	}
}

func TestNewRepositoryNotFound(t *testing.T) {
	_, err := NewRepository(t.TempDir())
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("expected ErrNotRepository, got %v", err)
	}
}

func writeRef(t *testing.T, gitDir, name, content string) {
	t.Helper()

	path := filepath.Join(gitDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create refs directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write ref file: %v", err)
	}
}
