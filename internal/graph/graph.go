// Package graph rebuilds the commit DAG from parent references and orders it
// topologically.
package graph

import (
	"io"
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/rybkr/gittopo/internal/gitcore"
)

// Node is one commit in the graph. Edges are stored by identifier on both
// endpoints; the Graph alone owns node values.
type Node struct {
	ID       gitcore.Hash
	Parents  mapset.Set[gitcore.Hash]
	Children mapset.Set[gitcore.Hash]

	// declared holds the parent lines of the commit object, including parents
	// whose objects are unavailable and therefore never become edges.
	declared []gitcore.Hash
	seq      int
}

// SortedParents returns the node's parent identifiers in lexicographic order.
func (n *Node) SortedParents() []gitcore.Hash {
	return sortedSet(n.Parents)
}

// SortedChildren returns the node's child identifiers in lexicographic order.
func (n *Node) SortedChildren() []gitcore.Hash {
	return sortedSet(n.Children)
}

func sortedSet(s mapset.Set[gitcore.Hash]) []gitcore.Hash {
	ids := s.ToSlice()
	slices.Sort(ids)
	return ids
}

// Graph is the node registry for one run. Iteration follows node creation order.
type Graph struct {
	nodes   *linkedhashmap.Map
	missing mapset.Set[gitcore.Hash]
	logger  *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for traversal diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:   linkedhashmap.New(),
		missing: mapset.NewThreadUnsafeSet[gitcore.Hash](),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Len returns the number of nodes in the registry.
func (g *Graph) Len() int {
	return g.nodes.Size()
}

// Node looks up the node for id.
func (g *Graph) Node(id gitcore.Hash) (*Node, bool) {
	v, ok := g.nodes.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Node), true
}

// IDs returns every node identifier in creation order.
func (g *Graph) IDs() []gitcore.Hash {
	ids := make([]gitcore.Hash, 0, g.nodes.Size())
	it := g.nodes.Iterator()
	for it.Next() {
		ids = append(ids, it.Key().(gitcore.Hash))
	}
	return ids
}

// Nodes returns every node in creation order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, g.nodes.Size())
	it := g.nodes.Iterator()
	for it.Next() {
		nodes = append(nodes, it.Value().(*Node))
	}
	return nodes
}

// Missing returns the identifiers that were referenced but had no object.
func (g *Graph) Missing() []gitcore.Hash {
	return sortedSet(g.missing)
}

func (g *Graph) add(id gitcore.Hash, declared []gitcore.Hash) *Node {
	node := &Node{
		ID:       id,
		Parents:  mapset.NewThreadUnsafeSet[gitcore.Hash](),
		Children: mapset.NewThreadUnsafeSet[gitcore.Hash](),
		declared: declared,
		seq:      g.nodes.Size(),
	}
	g.nodes.Put(id, node)
	return node
}

// link records parent -> child on both endpoints.
func (g *Graph) link(parent, child *Node) {
	child.Parents.Add(parent.ID)
	parent.Children.Add(child.ID)
}
