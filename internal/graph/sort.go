package graph

import (
	"cmp"
	"errors"
	"slices"

	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"github.com/rybkr/gittopo/internal/gitcore"
)

// ErrCycle is returned when the graph cannot be fully ordered.
var ErrCycle = errors.New("cycle detected or missing commits")

// TopoSort orders every node so each parent precedes all of its children,
// using Kahn's algorithm. Roots are seeded in node creation order and the
// children of a dequeued node are released in creation order, so the result
// is deterministic for a given object store and ref set.
func (g *Graph) TopoSort() ([]gitcore.Hash, error) {
	nodes := g.Nodes()

	inDegree := make(map[gitcore.Hash]int, len(nodes))
	for _, node := range nodes {
		for _, child := range node.Children.ToSlice() {
			inDegree[child]++
		}
	}

	queue := linkedlistqueue.New()
	for _, node := range nodes {
		if inDegree[node.ID] == 0 {
			queue.Enqueue(node.ID)
		}
	}

	order := make([]gitcore.Hash, 0, len(nodes))
	for !queue.Empty() {
		v, _ := queue.Dequeue()
		id := v.(gitcore.Hash)
		order = append(order, id)

		node, _ := g.Node(id)
		for _, child := range g.byCreation(node.Children.ToSlice()) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue.Enqueue(child)
			}
		}
	}

	if len(order) != len(nodes) {
		g.logger.Debug("topological sort incomplete", "ordered", len(order), "nodes", len(nodes))
		return nil, ErrCycle
	}
	return order, nil
}

// byCreation sorts ids by the order their nodes were created. Identifiers
// without a node sort last, lexicographically.
func (g *Graph) byCreation(ids []gitcore.Hash) []gitcore.Hash {
	seq := func(id gitcore.Hash) int {
		if node, ok := g.Node(id); ok {
			return node.seq
		}
		return g.Len()
	}
	slices.SortFunc(ids, func(a, b gitcore.Hash) int {
		if sa, sb := seq(a), seq(b); sa != sb {
			return cmp.Compare(sa, sb)
		}
		return cmp.Compare(a, b)
	})
	return ids
}
