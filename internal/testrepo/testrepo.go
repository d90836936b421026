// Package testrepo creates throwaway Git repositories with loose objects for
// tests. Commits are written directly through go-git's object storage, so
// histories of any shape can be produced without a working tree.
package testrepo

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/rybkr/gittopo/internal/gitcore"
)

// Repo is a repository under a test's temporary directory.
type Repo struct {
	t    testing.TB
	Dir  string
	repo *git.Repository
	tree plumbing.Hash
	tick int64
}

// New initialises an empty non-bare repository.
func New(t testing.TB) *Repo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repository: %v", err)
	}

	r := &Repo{t: t, Dir: dir, repo: repo}
	r.tree = r.store(&object.Tree{})
	return r
}

// GitDir returns the path of the .git directory.
func (r *Repo) GitDir() string {
	return filepath.Join(r.Dir, ".git")
}

// Commit writes a commit object with the given parents and returns its id.
func (r *Repo) Commit(message string, parents ...gitcore.Hash) gitcore.Hash {
	r.t.Helper()

	r.tick++
	sig := object.Signature{
		Name:  "Jane Doe",
		Email: "jane@example.com",
		When:  time.Unix(1713800000+r.tick, 0).UTC(),
	}

	parentHashes := make([]plumbing.Hash, len(parents))
	for i, p := range parents {
		parentHashes[i] = plumbing.NewHash(string(p))
	}

	h := r.store(&object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message + "\n",
		TreeHash:     r.tree,
		ParentHashes: parentHashes,
	})
	return gitcore.Hash(h.String())
}

// Branch points refs/heads/<name> at id.
func (r *Repo) Branch(name string, id gitcore.Hash) {
	r.t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(string(id)))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("failed to set branch %s: %v", name, err)
	}
}

// RemoveObject deletes the loose object file for id, as in a shallow clone.
func (r *Repo) RemoveObject(id gitcore.Hash) {
	r.t.Helper()

	if err := os.Remove(r.objectPath(id)); err != nil {
		r.t.Fatalf("failed to remove object %s: %v", id, err)
	}
}

// CorruptObject replaces the loose object file for id with bytes that are not zlib data.
func (r *Repo) CorruptObject(id gitcore.Hash) {
	r.t.Helper()

	path := r.objectPath(id)
	if err := os.Chmod(path, 0o644); err != nil {
		r.t.Fatalf("failed to chmod object %s: %v", id, err)
	}
	if err := os.WriteFile(path, []byte("corrupt"), 0o644); err != nil {
		r.t.Fatalf("failed to corrupt object %s: %v", id, err)
	}
}

// Forge writes a commit object under an arbitrary name, bypassing content
// addressing. It makes histories possible that Git itself cannot produce,
// such as cycles.
func (r *Repo) Forge(id gitcore.Hash, parents ...gitcore.Hash) {
	r.t.Helper()

	var payload bytes.Buffer
	fmt.Fprintf(&payload, "tree %s\n", r.tree)
	for _, p := range parents {
		fmt.Fprintf(&payload, "parent %s\n", p)
	}
	payload.WriteString("author Jane Doe <jane@example.com> 1713800000 +0000\n")
	payload.WriteString("committer Jane Doe <jane@example.com> 1713800000 +0000\n\nforged\n")

	var raw bytes.Buffer
	zw := zlib.NewWriter(&raw)
	fmt.Fprintf(zw, "commit %d\x00", payload.Len())
	zw.Write(payload.Bytes())
	if err := zw.Close(); err != nil {
		r.t.Fatalf("failed to compress forged object: %v", err)
	}

	path := r.objectPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("failed to create object directory: %v", err)
	}
	if err := os.WriteFile(path, raw.Bytes(), 0o444); err != nil {
		r.t.Fatalf("failed to write forged object %s: %v", id, err)
	}
}

func (r *Repo) objectPath(id gitcore.Hash) string {
	s := string(id)
	return filepath.Join(r.GitDir(), "objects", s[:2], s[2:])
}

type encoder interface {
	Encode(o plumbing.EncodedObject) error
}

func (r *Repo) store(e encoder) plumbing.Hash {
	r.t.Helper()

	obj := r.repo.Storer.NewEncodedObject()
	if err := e.Encode(obj); err != nil {
		r.t.Fatalf("failed to encode object: %v", err)
	}
	h, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("failed to store object: %v", err)
	}
	return h
}
