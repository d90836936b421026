package graph

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emirpasic/gods/stacks/arraystack"

	"github.com/rybkr/gittopo/internal/gitcore"
)

// ObjectStore resolves an identifier to its loose object. found is false,
// with a nil error, when the object is not present.
type ObjectStore interface {
	ReadObject(id gitcore.Hash) (obj *gitcore.Object, found bool, err error)
}

// NewSeenSet returns a visited set for one Traverse call.
func NewSeenSet() mapset.Set[gitcore.Hash] {
	return mapset.NewThreadUnsafeSet[gitcore.Hash]()
}

// Traverse adds every commit reachable from head to the graph, walking parent
// references depth first with an explicit stack. seen belongs to this call
// only; nodes and edges already in the registry are reused without re-reading
// their objects. Missing objects end that line of history silently.
func (g *Graph) Traverse(store ObjectStore, head gitcore.Hash, seen mapset.Set[gitcore.Hash]) error {
	stack := arraystack.New()
	stack.Push(head)

	visited := 0
	for !stack.Empty() {
		v, _ := stack.Pop()
		id := v.(gitcore.Hash)

		if seen.Contains(id) {
			continue
		}
		seen.Add(id)

		node, ok, err := g.fetch(store, id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		visited++

		for _, parentID := range node.declared {
			parent, ok, err := g.fetch(store, parentID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}

			g.link(parent, node)
			if !seen.Contains(parentID) {
				stack.Push(parentID)
			}
		}
	}

	g.logger.Debug("traversed branch head", "head", head.Short(), "visited", visited, "nodes", g.Len())
	return nil
}

// fetch returns the registered node for id, creating it from the object store
// on first sight.
func (g *Graph) fetch(store ObjectStore, id gitcore.Hash) (*Node, bool, error) {
	if node, ok := g.Node(id); ok {
		return node, true, nil
	}
	if g.missing.Contains(id) {
		return nil, false, nil
	}

	obj, found, err := store.ReadObject(id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read commit %s: %w", id, err)
	}
	if !found {
		g.logger.Debug("object not found, treating as history boundary", "id", id)
		g.missing.Add(id)
		return nil, false, nil
	}

	return g.add(id, gitcore.ParseParents(obj.Data)), true, nil
}
