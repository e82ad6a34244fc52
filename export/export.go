// Package export renders the current graph state into portable formats.
//
// JSON, DOT, Mermaid, and SVG are produced client-side from the positioned
// graph; PNG stays a server-side export because rasterizing is not worth a
// native dependency here.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/graph"
	"github.com/innominatus/graphview/layout"
)

// LocalFormats lists the formats this package renders without the server.
var LocalFormats = []string{"json", "dot", "mermaid", "svg"}

// Document is one exportable graph state: positioned nodes plus the
// resolvable edges between them.
type Document struct {
	App         string       `json:"app"`
	GeneratedAt time.Time    `json:"generated_at"`
	Nodes       []graph.Node `json:"nodes"`
	Edges       []graph.Edge `json:"edges"`
	Stats       graph.Stats  `json:"stats"`
}

// FromSnapshot builds a document from a snapshot, laying it out with the
// given config. Dangling edges are dropped from the document.
func FromSnapshot(app string, snap *graph.Snapshot, cfg layout.Config) *Document {
	if snap == nil {
		return &Document{App: app, GeneratedAt: time.Now(), Nodes: []graph.Node{}, Edges: []graph.Edge{}}
	}
	edges := snap.ResolvableEdges()
	result := layout.Assign(snap.Nodes, edges, cfg)
	return &Document{
		App:         app,
		GeneratedAt: time.Now(),
		Nodes:       result.Nodes,
		Edges:       edges,
		Stats:       graph.Stats{TotalNodes: len(result.Nodes), TotalEdges: len(edges)},
	}
}

// Render produces the document in the requested local format.
func (d *Document) Render(format string) ([]byte, error) {
	switch format {
	case "json":
		return d.JSON(true)
	case "dot":
		return []byte(d.DOT()), nil
	case "mermaid":
		return []byte(d.Mermaid()), nil
	case "svg":
		return []byte(d.SVG()), nil
	default:
		return nil, errors.NewInvalidRequestError("no local renderer for format %q", format)
	}
}

// JSON renders the document as JSON, pretty-printed for humans or compact
// for machine consumption.
func (d *Document) JSON(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(d, "", "  ")
	}
	return json.Marshal(d)
}

// sanitizeID makes a node ID safe for DOT and Mermaid identifiers:
// alphanumerics and underscore survive, everything else becomes an
// underscore. The mapping is lossy; identifiers() resolves collisions.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, id)
}

// identifiers assigns each node a unique diagram identifier. Distinct node
// IDs can sanitize to the same string ("a-b" and "a_b"); later claimants
// get a numeric suffix so the diagram never merges nodes.
func (d *Document) identifiers() map[string]string {
	ids := make(map[string]string, len(d.Nodes))
	taken := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		base := sanitizeID(n.ID)
		id := base
		for i := 2; taken[id]; i++ {
			id = fmt.Sprintf("%s_%d", base, i)
		}
		ids[n.ID] = id
		taken[id] = true
	}
	return ids
}

// DOT renders the graph in Graphviz dot syntax, one subgraph rank per
// status class color.
func (d *Document) DOT() string {
	ids := d.identifiers()

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", d.App)
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=rounded];\n")

	for _, n := range d.Nodes {
		fmt.Fprintf(&b, "  %s [label=%q, color=%q];\n",
			ids[n.ID], n.Name, statusColor(n.StatusClass()))
	}
	for _, e := range d.Edges {
		label := e.Relationship
		if label != "" {
			fmt.Fprintf(&b, "  %s -> %s [label=%q];\n", ids[e.Source], ids[e.Target], label)
		} else {
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[e.Source], ids[e.Target])
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid renders the graph as a top-down Mermaid flowchart.
func (d *Document) Mermaid() string {
	ids := d.identifiers()

	var b strings.Builder
	b.WriteString("flowchart TD\n")
	for _, n := range d.Nodes {
		fmt.Fprintf(&b, "  %s[%q]\n", ids[n.ID], n.Name)
	}
	for _, e := range d.Edges {
		if e.Relationship != "" {
			fmt.Fprintf(&b, "  %s -->|%s| %s\n", ids[e.Source], e.Relationship, ids[e.Target])
		} else {
			fmt.Fprintf(&b, "  %s --> %s\n", ids[e.Source], ids[e.Target])
		}
	}
	return b.String()
}

// statusColor maps a status class to its display color.
func statusColor(c graph.StatusClass) string {
	switch c {
	case graph.StatusSuccess:
		return "#22c55e"
	case graph.StatusInProgress:
		return "#3b82f6"
	case graph.StatusFailure:
		return "#ef4444"
	default:
		return "#9ca3af"
	}
}

const (
	svgNodeWidth  = 140.0
	svgNodeHeight = 44.0
)

// SVG renders the positioned graph as a standalone SVG document: one rect
// per node at its assigned coordinate, one line per edge between node
// centers.
func (d *Document) SVG() string {
	width, height := d.bounds()

	pos := make(map[string]graph.Position, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.Position != nil {
			pos[n.ID] = *n.Position
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`+"\n",
		width, height, width, height)
	b.WriteString("  <g stroke=\"#94a3b8\" stroke-width=\"1.5\">\n")
	for _, e := range d.Edges {
		from, okF := pos[e.Source]
		to, okT := pos[e.Target]
		if !okF || !okT {
			continue
		}
		fmt.Fprintf(&b, `    <line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>`+"\n",
			from.X, from.Y, to.X, to.Y)
	}
	b.WriteString("  </g>\n")
	for _, n := range d.Nodes {
		p, ok := pos[n.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, `  <rect x="%.1f" y="%.1f" width="%.0f" height="%.0f" rx="8" fill="%s" opacity="0.9"/>`+"\n",
			p.X-svgNodeWidth/2, p.Y-svgNodeHeight/2, svgNodeWidth, svgNodeHeight, statusColor(n.StatusClass()))
		fmt.Fprintf(&b, `  <text x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="12">%s</text>`+"\n",
			p.X, p.Y+4, escapeXML(n.Name))
	}
	b.WriteString("</svg>\n")
	return b.String()
}

// bounds computes the SVG canvas size from the assigned positions.
func (d *Document) bounds() (width, height float64) {
	width, height = 400, 300
	for _, n := range d.Nodes {
		if n.Position == nil {
			continue
		}
		if x := n.Position.X + svgNodeWidth; x > width {
			width = x
		}
		if y := n.Position.Y + svgNodeHeight*2; y > height {
			height = y
		}
	}
	return width, height
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// SupportedLocally reports whether a format renders without the server.
func SupportedLocally(format string) bool {
	for _, f := range LocalFormats {
		if f == format {
			return true
		}
	}
	return false
}
