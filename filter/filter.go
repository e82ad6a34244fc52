// Package filter maintains the facet filter and search state for the graph
// view. Filtering narrows the visible node set without touching the
// underlying snapshot and never triggers a re-layout.
package filter

import (
	"strings"

	"github.com/innominatus/graphview/graph"
)

// Facet is one togglable filter dimension.
type Facet string

const (
	FacetNodeType     Facet = "node_type"
	FacetStatus       Facet = "status"
	FacetResourceType Facet = "resource_type"
	FacetProvider     Facet = "provider"
	FacetState        Facet = "state"
	FacetHealth       Facet = "health"
)

// AllFacets lists the facets in display order.
var AllFacets = []Facet{
	FacetNodeType,
	FacetStatus,
	FacetResourceType,
	FacetProvider,
	FacetState,
	FacetHealth,
}

// State holds the current toggles and search text. Every facet value
// defaults to enabled; values are discovered dynamically as snapshots
// arrive, so a provider first seen mid-session shows up as a new toggle,
// enabled.
type State struct {
	toggles map[Facet]map[string]bool
	search  string
}

// NewState creates an empty filter state with every facet all-enabled.
func NewState() *State {
	toggles := make(map[Facet]map[string]bool, len(AllFacets))
	for _, f := range AllFacets {
		toggles[f] = make(map[string]bool)
	}
	return &State{toggles: toggles}
}

// facetValue extracts the node's value for a facet. ok is false when the
// facet does not apply to the node — a node lacking a metadata field is
// never excluded by that facet.
func facetValue(n graph.Node, f Facet) (string, bool) {
	switch f {
	case FacetNodeType:
		return n.Type.String(), true
	case FacetStatus:
		if n.Status == "" {
			return "", false
		}
		return n.Status, true
	case FacetResourceType:
		if n.Metadata.ResourceType == "" {
			return "", false
		}
		return n.Metadata.ResourceType, true
	case FacetProvider:
		if n.Metadata.Provider == "" {
			return "", false
		}
		return n.Metadata.Provider, true
	case FacetState:
		if n.Metadata.State == "" {
			return "", false
		}
		return n.Metadata.State, true
	case FacetHealth:
		if n.Metadata.Health == "" {
			return "", false
		}
		return n.Metadata.Health, true
	default:
		return "", false
	}
}

// Observe registers every facet value present in the snapshot, defaulting
// newly seen values to enabled. Known values keep their current toggle.
func (s *State) Observe(snap *graph.Snapshot) {
	if snap == nil {
		return
	}
	for _, n := range snap.Nodes {
		for _, f := range AllFacets {
			v, ok := facetValue(n, f)
			if !ok {
				continue
			}
			if _, known := s.toggles[f][v]; !known {
				s.toggles[f][v] = true
			}
		}
	}
}

// SetEnabled toggles one facet value. Unknown values are registered with
// the given setting.
func (s *State) SetEnabled(f Facet, value string, enabled bool) {
	s.toggles[f][value] = enabled
}

// Enabled reports the toggle for a facet value. Values never observed
// default to enabled.
func (s *State) Enabled(f Facet, value string) bool {
	if v, known := s.toggles[f][value]; known {
		return v
	}
	return true
}

// Values returns the known values for a facet with their toggles.
func (s *State) Values(f Facet) map[string]bool {
	out := make(map[string]bool, len(s.toggles[f]))
	for v, enabled := range s.toggles[f] {
		out[v] = enabled
	}
	return out
}

// SetSearch sets the free-text search. Matching is case-insensitive on the
// display name and independent of the facet toggles.
func (s *State) SetSearch(text string) {
	s.search = strings.ToLower(strings.TrimSpace(text))
}

// Search returns the current search text.
func (s *State) Search() string {
	return s.search
}

// Clear resets every facet to fully enabled and clears the search text.
// The facet key set survives: known providers and types remain as toggles,
// just re-enabled.
func (s *State) Clear() {
	for _, values := range s.toggles {
		for v := range values {
			values[v] = true
		}
	}
	s.search = ""
}

// Visible reports whether the node passes every applicable facet and the
// search text. Facets are conjunctive: one disabled facet value hides the
// node regardless of the others.
func (s *State) Visible(n graph.Node) bool {
	for _, f := range AllFacets {
		v, ok := facetValue(n, f)
		if !ok {
			continue
		}
		if !s.Enabled(f, v) {
			return false
		}
	}
	if s.search != "" && !strings.Contains(strings.ToLower(n.Name), s.search) {
		return false
	}
	return true
}

// VisibleNodes returns the nodes of the snapshot passing the filter, in
// snapshot order.
func (s *State) VisibleNodes(snap *graph.Snapshot) []graph.Node {
	if snap == nil {
		return nil
	}
	out := make([]graph.Node, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if s.Visible(n) {
			out = append(out, n)
		}
	}
	return out
}

// VisibleEdges returns the resolvable edges whose endpoints are both
// visible. Hiding a node hides its edges.
func (s *State) VisibleEdges(snap *graph.Snapshot) []graph.Edge {
	if snap == nil {
		return nil
	}
	visible := make(map[string]bool)
	for _, n := range s.VisibleNodes(snap) {
		visible[n.ID] = true
	}
	out := make([]graph.Edge, 0, len(snap.Edges))
	for _, e := range snap.ResolvableEdges() {
		if visible[e.Source] && visible[e.Target] {
			out = append(out, e)
		}
	}
	return out
}
