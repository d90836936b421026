// Package render prints a topologically ordered commit graph as a segmented
// log, newest commits first.
package render

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rybkr/gittopo/internal/gitcore"
	"github.com/rybkr/gittopo/internal/graph"
)

const bridgeMarker = "="

// Options controls decoration of the output. The zero value renders plain text.
type Options struct {
	Color bool
}

// Log writes order, reversed so descendants come first, one commit per line
// followed by the names of branches pointing at it. Whenever the next printed
// commit is not a parent of the current one, a bridge block is written: the
// current commit's parents and "=", a blank line, then "=" and the children of
// the commit that starts the next segment.
func Log(w io.Writer, order []gitcore.Hash, g *graph.Graph, branches map[string]gitcore.Hash, opts Options) error {
	printed := slices.Clone(order)
	slices.Reverse(printed)

	labels := BranchLabels(branches)
	pal := newPalette(opts.Color)
	bw := bufio.NewWriter(w)

	newSegment := false
	for i, id := range printed {
		node, ok := g.Node(id)
		if !ok {
			return fmt.Errorf("commit %s is not in the graph", id)
		}

		if newSegment {
			fmt.Fprintln(bw, bridgeMarker+joinHashes(node.SortedChildren()))
			newSegment = false
		}

		line := pal.hash(string(id))
		for _, name := range labels[id] {
			line += " " + pal.branch(name)
		}
		fmt.Fprintln(bw, line)

		if i+1 < len(printed) && !node.Parents.Contains(printed[i+1]) {
			fmt.Fprintln(bw, joinHashes(node.SortedParents())+" "+bridgeMarker)
			fmt.Fprintln(bw)
			newSegment = true
		}
	}

	return bw.Flush()
}

// BranchLabels inverts a branch map into commit -> sorted branch names.
func BranchLabels(branches map[string]gitcore.Hash) map[gitcore.Hash][]string {
	labels := make(map[gitcore.Hash][]string)
	for name, id := range branches {
		labels[id] = append(labels[id], name)
	}
	for _, names := range labels {
		slices.Sort(names)
	}
	return labels
}

func joinHashes(ids []gitcore.Hash) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, " ")
}
