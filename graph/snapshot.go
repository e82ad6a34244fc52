package graph

import (
	"time"

	"github.com/innominatus/graphview/errors"
)

// Snapshot is one complete (nodes, edges) graph state at a point in time.
//
// Snapshots are immutable once published: Replace and ApplyPatch return a
// new Snapshot and never mutate the receiver, so holders of an old snapshot
// can safely compare against it. Exactly one generation of prior per-node
// status is retained to derive the "recently changed" highlight set.
type Snapshot struct {
	Nodes      []Node    `json:"nodes"`
	Edges      []Edge    `json:"edges"`
	FetchedAt  time.Time `json:"fetched_at"`
	Generation uint64    `json:"generation"`

	// prevStatus maps node ID to that node's status in the previous
	// generation. Discarded when the next snapshot arrives.
	prevStatus map[string]string
}

// NewSnapshot builds the base snapshot from an initial fetch.
func NewSnapshot(nodes []Node, edges []Edge, fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		Nodes:     nodes,
		Edges:     edges,
		FetchedAt: fetchedAt,
	}
}

// Validate reports invariant violations in the snapshot. Duplicate node IDs
// are an error; dangling edges are not (they are skipped downstream), but
// they are counted so callers can log them.
func (s *Snapshot) Validate() (danglingEdges int, err error) {
	seen := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if seen[n.ID] {
			return 0, errors.Newf("duplicate node id %q in snapshot", n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range s.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			danglingEdges++
		}
	}
	return danglingEdges, nil
}

// NodeByID returns the node with the given ID, if present.
func (s *Snapshot) NodeByID(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode reports whether a node with the given ID exists.
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.NodeByID(id)
	return ok
}

// nodeIDSet builds the set of node IDs in the snapshot.
func (s *Snapshot) nodeIDSet() map[string]bool {
	ids := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		ids[n.ID] = true
	}
	return ids
}

// ResolvableEdges returns the edges whose source and target both resolve to
// nodes in this snapshot. Dangling edges are silently skipped.
func (s *Snapshot) ResolvableEdges() []Edge {
	ids := s.nodeIDSet()
	edges := make([]Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		if ids[e.Source] && ids[e.Target] {
			edges = append(edges, e)
		}
	}
	return edges
}

// statusMap captures the current per-node status for diffing.
func (s *Snapshot) statusMap() map[string]string {
	m := make(map[string]string, len(s.Nodes))
	for _, n := range s.Nodes {
		m[n.ID] = n.Status
	}
	return m
}

// Replace produces the next generation with a wholesale new node/edge set,
// retaining this snapshot's status map for change detection.
func (s *Snapshot) Replace(nodes []Node, edges []Edge, at time.Time) *Snapshot {
	return &Snapshot{
		Nodes:      nodes,
		Edges:      edges,
		FetchedAt:  at,
		Generation: s.Generation + 1,
		prevStatus: s.statusMap(),
	}
}

// ApplyPatch produces the next generation with a single node's status
// updated. Patching a node ID that is not present is a no-op and returns
// the receiver unchanged — not an error, per the stream contract.
//
// Only the patched node is copied; all other nodes and all edges keep their
// slice backing via a fresh header, so unrelated entries compare
// reference-equal across generations.
func (s *Snapshot) ApplyPatch(nodeID, status string, at time.Time) *Snapshot {
	idx := -1
	for i, n := range s.Nodes {
		if n.ID == nodeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}

	nodes := make([]Node, len(s.Nodes))
	copy(nodes, s.Nodes)
	nodes[idx].Status = status

	return &Snapshot{
		Nodes:      nodes,
		Edges:      s.Edges,
		FetchedAt:  at,
		Generation: s.Generation + 1,
		prevStatus: s.statusMap(),
	}
}

// ChangedSince returns the IDs of nodes whose status differs from the
// previous generation. Derived, never stored: the base snapshot (no prior
// generation) reports nothing changed.
func (s *Snapshot) ChangedSince() map[string]bool {
	changed := make(map[string]bool)
	if s.prevStatus == nil {
		return changed
	}
	for _, n := range s.Nodes {
		if prev, ok := s.prevStatus[n.ID]; !ok || prev != n.Status {
			changed[n.ID] = true
		}
	}
	return changed
}

// Stats returns node/edge counts for display and logging.
func (s *Snapshot) Stats() Stats {
	return Stats{TotalNodes: len(s.Nodes), TotalEdges: len(s.Edges)}
}
