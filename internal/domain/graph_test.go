package domain

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rybkr/gittopo/internal/gitcore"
	"github.com/rybkr/gittopo/internal/render"
	"github.com/rybkr/gittopo/internal/testrepo"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func openRepository(t *testing.T, dir string) *gitcore.Repository {
	t.Helper()

	repo, err := gitcore.NewRepository(dir, gitcore.WithLogger(discard))
	require.NoError(t, err)
	return repo
}

func logOf(t *testing.T, dir string) string {
	t.Helper()

	snap, err := BuildSnapshot(openRepository(t, dir), discard)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, snap.WriteLog(&out, render.Options{}))
	return out.String()
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestSingleRootCommit(t *testing.T) {
	fx := testrepo.New(t)
	root := fx.Commit("initial")
	fx.Branch("main", root)

	assert.Equal(t, lines(string(root)+" main"), logOf(t, fx.Dir))
}

func TestBranchingHistory(t *testing.T) {
	fx := testrepo.New(t)
	a := fx.Commit("A")
	b := fx.Commit("B", a)
	c := fx.Commit("C", b)
	d := fx.Commit("D", b)
	fx.Branch("main", c)
	fx.Branch("feature", d)

	snap, err := BuildSnapshot(openRepository(t, fx.Dir), discard)
	require.NoError(t, err)
	assert.ElementsMatch(t, []gitcore.Hash{a, b, c, d}, snap.Order)

	// feature is walked first, so D is created before C and released first.
	assert.Equal(t, []gitcore.Hash{a, b, d, c}, snap.Order)

	var out bytes.Buffer
	require.NoError(t, snap.WriteLog(&out, render.Options{}))
	assert.Equal(t, lines(
		string(c)+" main",
		string(b)+" =",
		"",
		"=",
		string(d)+" feature",
		string(b),
		string(a),
	), out.String())
}

func TestNestedBranchNamesAndSharedHeads(t *testing.T) {
	fx := testrepo.New(t)
	root := fx.Commit("root")
	tip := fx.Commit("tip", root)
	fx.Branch("main", tip)
	fx.Branch("release/v1", tip)
	fx.Branch("feature/old", root)

	assert.Equal(t, lines(
		string(tip)+" main release/v1",
		string(root)+" feature/old",
	), logOf(t, fx.Dir))
}

func TestMergeHistory(t *testing.T) {
	fx := testrepo.New(t)
	base := fx.Commit("base")
	left := fx.Commit("left", base)
	right := fx.Commit("right", base)
	merge := fx.Commit("merge", left, right)
	fx.Branch("main", merge)

	snap, err := BuildSnapshot(openRepository(t, fx.Dir), discard)
	require.NoError(t, err)

	pos := make(map[gitcore.Hash]int)
	for i, id := range snap.Order {
		pos[id] = i
	}
	assert.Less(t, pos[base], pos[left])
	assert.Less(t, pos[base], pos[right])
	assert.Less(t, pos[left], pos[merge])
	assert.Less(t, pos[right], pos[merge])

	node, ok := snap.Graph.Node(merge)
	require.True(t, ok)
	assert.ElementsMatch(t, []gitcore.Hash{left, right}, node.SortedParents())
}

func TestMissingParentObject(t *testing.T) {
	fx := testrepo.New(t)
	a := fx.Commit("A")
	b := fx.Commit("B", a)
	c := fx.Commit("C", b)
	fx.Branch("main", c)
	fx.RemoveObject(a)

	snap, err := BuildSnapshot(openRepository(t, fx.Dir), discard)
	require.NoError(t, err)
	assert.Equal(t, []gitcore.Hash{b, c}, snap.Order)

	node, ok := snap.Graph.Node(b)
	require.True(t, ok)
	assert.Empty(t, node.SortedParents())
	_, ok = snap.Graph.Node(a)
	assert.False(t, ok)

	var out bytes.Buffer
	require.NoError(t, snap.WriteLog(&out, render.Options{}))
	assert.Equal(t, lines(string(c)+" main", string(b)), out.String())
}

func TestCorruptObjectFails(t *testing.T) {
	fx := testrepo.New(t)
	a := fx.Commit("A")
	b := fx.Commit("B", a)
	fx.Branch("main", b)
	fx.CorruptObject(a)

	_, err := BuildSnapshot(openRepository(t, fx.Dir), discard)
	assert.ErrorIs(t, err, gitcore.ErrCorruptObject)
}

func TestNoBranches(t *testing.T) {
	fx := testrepo.New(t)
	fx.Commit("dangling")

	assert.Empty(t, logOf(t, fx.Dir))
}

func TestDeterministicOutput(t *testing.T) {
	fx := testrepo.New(t)
	r1 := fx.Commit("r1")
	r2 := fx.Commit("r2")
	x := fx.Commit("x", r1)
	y := fx.Commit("y", r2, x)
	z := fx.Commit("z", r1)
	fx.Branch("a", y)
	fx.Branch("b", z)
	fx.Branch("c/d", r2)

	first := logOf(t, fx.Dir)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, logOf(t, fx.Dir))
	}
}

func TestView(t *testing.T) {
	fx := testrepo.New(t)
	a := fx.Commit("first commit\n\nbody")
	b := fx.Commit("second", a)
	fx.Branch("main", b)

	repo := openRepository(t, fx.Dir)
	snap, err := BuildSnapshot(repo, discard)
	require.NoError(t, err)

	view, err := snap.View(repo)
	require.NoError(t, err)
	require.Len(t, view.Nodes, 2)

	assert.Equal(t, b, view.Nodes[0].Hash)
	assert.Equal(t, []string{"main"}, view.Nodes[0].Branches)
	assert.Equal(t, "second", view.Nodes[0].Summary)
	assert.Equal(t, "Jane Doe", view.Nodes[0].Author)
	assert.Equal(t, "first commit", view.Nodes[1].Summary)
	assert.Equal(t, []Edge{{Source: b, Target: a}}, view.Edges)
}
