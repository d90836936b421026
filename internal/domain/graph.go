// Package domain runs one full pass over a repository: branch heads are
// expanded into the commit graph, ordered, and handed to the renderer or the
// JSON view.
package domain

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/rybkr/gittopo/internal/gitcore"
	"github.com/rybkr/gittopo/internal/graph"
	"github.com/rybkr/gittopo/internal/render"
)

// Repository is the read-only view of a repository that a run needs.
type Repository interface {
	graph.ObjectStore
	Branches() (map[string]gitcore.Hash, error)
}

// CommitReader resolves full commit metadata for the JSON view.
type CommitReader interface {
	ReadCommit(id gitcore.Hash) (*gitcore.Commit, bool, error)
}

// Snapshot is the result of one run: the graph, its topological order and the
// branch heads it was built from.
type Snapshot struct {
	Graph    *graph.Graph
	Order    []gitcore.Hash
	Branches map[string]gitcore.Hash
}

// BuildSnapshot reads the branch heads of repo and builds and sorts the commit
// graph reachable from them. Branches are traversed in name order, each with
// its own seen set over the shared registry.
func BuildSnapshot(repo Repository, logger *slog.Logger) (*Snapshot, error) {
	branches, err := repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("reading branches: %w", err)
	}

	names := make([]string, 0, len(branches))
	for name := range branches {
		names = append(names, name)
	}
	slices.Sort(names)

	g := graph.New(graph.WithLogger(logger))
	for _, name := range names {
		if err := g.Traverse(repo, branches[name], graph.NewSeenSet()); err != nil {
			return nil, fmt.Errorf("walking branch %s: %w", name, err)
		}
	}

	order, err := g.TopoSort()
	if err != nil {
		return nil, err
	}
	logger.Debug("built commit graph", "branches", len(branches), "commits", len(order), "missing", len(g.Missing()))

	return &Snapshot{
		Graph:    g,
		Order:    order,
		Branches: branches,
	}, nil
}

// WriteLog renders the snapshot in segmented log form.
func (s *Snapshot) WriteLog(w io.Writer, opts render.Options) error {
	return render.Log(w, s.Order, s.Graph, s.Branches, opts)
}

type GraphView struct {
	Nodes    []NodeView              `json:"nodes"`
	Edges    []Edge                  `json:"edges"`
	Branches map[string]gitcore.Hash `json:"branches"`
}

type NodeView struct {
	Hash     gitcore.Hash   `json:"hash"`
	Parents  []gitcore.Hash `json:"parents,omitempty"`
	Children []gitcore.Hash `json:"children,omitempty"`
	Branches []string       `json:"branches,omitempty"`
	Author   string         `json:"author"`
	Date     time.Time      `json:"date"`
	Summary  string         `json:"summary"`
}

type Edge struct {
	Source gitcore.Hash `json:"source"`
	Target gitcore.Hash `json:"target"`
}

// View returns the snapshot as JSON-friendly nodes, newest first, with one
// edge per child -> parent link.
func (s *Snapshot) View(commits CommitReader) (*GraphView, error) {
	labels := render.BranchLabels(s.Branches)
	view := &GraphView{
		Nodes:    make([]NodeView, 0, len(s.Order)),
		Edges:    make([]Edge, 0),
		Branches: s.Branches,
	}

	for i := len(s.Order) - 1; i >= 0; i-- {
		id := s.Order[i]
		node, ok := s.Graph.Node(id)
		if !ok {
			return nil, fmt.Errorf("commit %s is not in the graph", id)
		}

		nv := NodeView{
			Hash:     id,
			Parents:  node.SortedParents(),
			Children: node.SortedChildren(),
			Branches: labels[id],
		}
		commit, found, err := commits.ReadCommit(id)
		if err != nil {
			return nil, fmt.Errorf("parsing commit %s: %w", id, err)
		}
		if found {
			nv.Author = commit.Author.Name
			nv.Date = commit.Author.When
			nv.Summary = commit.Summary()
		}
		view.Nodes = append(view.Nodes, nv)

		for _, parent := range nv.Parents {
			view.Edges = append(view.Edges, Edge{Source: id, Target: parent})
		}
	}

	return view, nil
}
