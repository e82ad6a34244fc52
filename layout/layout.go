// Package layout assigns 2D positions to graph nodes using a layered
// topological heuristic: roots sit at layer 0, every other node sits one
// layer below its deepest predecessor, and layers are spread horizontally
// and centered within a fixed canvas width.
//
// Assign is a pure function of its inputs. Layout is recomputed only when a
// snapshot changes, never on filter or viewport interaction.
package layout

import (
	"sort"

	"github.com/innominatus/graphview/graph"
)

// Config carries the spacing constants for coordinate assignment.
type Config struct {
	CanvasWidth  float64
	LayerSpacing float64
	NodeSpacing  float64
	Margin       float64
}

// DefaultConfig matches the canvas geometry of the platform UI.
func DefaultConfig() Config {
	return Config{
		CanvasWidth:  1200,
		LayerSpacing: 140,
		NodeSpacing:  180,
		Margin:       60,
	}
}

// Result is the positioned output of one layout pass.
type Result struct {
	// Nodes contains every input node exactly once, each with a Position.
	Nodes []graph.Node
	// Layers holds node IDs per layer, in stable input order.
	Layers [][]string
}

// PositionOf returns the assigned position for a node ID.
func (r *Result) PositionOf(id string) (graph.Position, bool) {
	for _, n := range r.Nodes {
		if n.ID == id && n.Position != nil {
			return *n.Position, true
		}
	}
	return graph.Position{}, false
}

// Assign computes layer assignments and coordinates for the given nodes and
// edges. It is deterministic: ties are broken by input order. Edges whose
// endpoints do not both resolve to input nodes are ignored, as are
// self-loops. Nodes never reached by the traversal (disconnected remnants
// of cycles) are appended to one final overflow layer so no node is ever
// dropped.
func Assign(nodes []graph.Node, edges []graph.Edge, cfg Config) *Result {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	// Adjacency and indegree over resolvable, non-self edges only.
	out := make([][]int, len(nodes))
	indegree := make([]int, len(nodes))
	for _, e := range edges {
		si, ok := index[e.Source]
		if !ok {
			continue
		}
		ti, ok := index[e.Target]
		if !ok || si == ti {
			continue
		}
		out[si] = append(out[si], ti)
		indegree[ti]++
	}

	layerOf := make([]int, len(nodes))
	visited := make([]bool, len(nodes))
	var layers [][]int

	bucket := func(i int) {
		visited[i] = true
		l := layerOf[i]
		for len(layers) <= l {
			layers = append(layers, nil)
		}
		layers[l] = append(layers[l], i)
	}

	// Seed with all zero-indegree nodes at layer 0. A fully cyclic graph
	// has none; place every node at layer 0 instead so the pass always
	// produces output.
	var queue []int
	for i := range nodes {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	if len(queue) == 0 && len(nodes) > 0 {
		for i := range nodes {
			bucket(i)
		}
	}

	// Process a node once all its predecessors have settled. Its layer is
	// the maximum over predecessors' layer+1, so it is always drawn below
	// every predecessor. FIFO order within a layer preserves input order.
	remaining := make([]int, len(nodes))
	copy(remaining, indegree)
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		bucket(i)

		for _, j := range out[i] {
			if layerOf[j] < layerOf[i]+1 {
				layerOf[j] = layerOf[i] + 1
			}
			remaining[j]--
			if remaining[j] == 0 {
				queue = append(queue, j)
			}
		}
	}

	// Totality: anything the traversal never settled (cycles hanging off
	// the DAG, nodes unreachable from any root) goes into one final
	// overflow layer, in input order.
	var overflow []int
	for i := range nodes {
		if !visited[i] {
			overflow = append(overflow, i)
		}
	}
	if len(overflow) > 0 {
		layers = append(layers, overflow)
	}

	// Ties within a layer break by original input order, keeping the
	// layout stable across recomputations.
	for _, b := range layers {
		sort.Ints(b)
	}

	result := &Result{
		Nodes:  make([]graph.Node, len(nodes)),
		Layers: make([][]string, len(layers)),
	}
	copy(result.Nodes, nodes)

	for li, row := range layers {
		y := float64(li)*cfg.LayerSpacing + cfg.Margin
		rowWidth := float64(len(row)-1) * cfg.NodeSpacing
		startX := (cfg.CanvasWidth - rowWidth) / 2

		ids := make([]string, len(row))
		for pos, i := range row {
			ids[pos] = nodes[i].ID
			result.Nodes[i].Position = &graph.Position{
				X: startX + float64(pos)*cfg.NodeSpacing,
				Y: y,
			}
		}
		result.Layers[li] = ids
	}

	return result
}
