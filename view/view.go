// Package view renders graph snapshots to the terminal: a layered listing
// of nodes with status symbols, plus connection state, change markers, and
// critical-path highlighting.
package view

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/innominatus/graphview/filter"
	"github.com/innominatus/graphview/graph"
	"github.com/innominatus/graphview/layout"
)

// Options controls what a single render pass shows.
type Options struct {
	// Live is true while the update stream is connected. Offline renders
	// keep showing the last snapshot, marked stale.
	Live bool

	// Changed marks node IDs whose status changed in the latest update.
	Changed map[string]bool

	// CriticalPath marks node IDs on the server-computed critical path.
	CriticalPath map[string]bool

	// Filter, when set, narrows the rendered nodes and edges.
	Filter *filter.State

	// Layout overrides the layer geometry; nil uses the engine defaults.
	Layout *layout.Config
}

// Renderer writes snapshot views to a terminal.
type Renderer struct {
	out       io.Writer
	verbosity int
}

// NewRenderer creates a renderer writing to stdout.
func NewRenderer(verbosity int) *Renderer {
	return &Renderer{out: os.Stdout, verbosity: verbosity}
}

// NewRendererTo creates a renderer writing to the given writer.
func NewRendererTo(out io.Writer, verbosity int) *Renderer {
	return &Renderer{out: out, verbosity: verbosity}
}

// statusSymbol maps a status class to its terminal glyph.
func statusSymbol(c graph.StatusClass) string {
	switch c {
	case graph.StatusSuccess:
		return pterm.Green("✓")
	case graph.StatusInProgress:
		return pterm.Cyan("◐")
	case graph.StatusFailure:
		return pterm.Red("✗")
	default:
		return pterm.Gray("○")
	}
}

// connectionLabel formats the stream state for the header.
func connectionLabel(live bool) string {
	if live {
		return pterm.Green("● live")
	}
	return pterm.Yellow("○ offline (stale)")
}

// nodeLine formats one node row: symbol, name, type, and any markers.
func nodeLine(n graph.Node, opts Options) string {
	var b strings.Builder
	b.WriteString(statusSymbol(n.StatusClass()))
	b.WriteString(" ")
	name := n.Name
	if name == "" {
		name = n.ID
	}
	if opts.CriticalPath[n.ID] {
		b.WriteString(pterm.Yellow(name))
	} else {
		b.WriteString(name)
	}
	fmt.Fprintf(&b, " %s", pterm.Gray("("+n.Type.String()+")"))
	if n.Status != "" {
		fmt.Fprintf(&b, " %s", pterm.Gray(n.Status))
	}
	if opts.Changed[n.ID] {
		b.WriteString(" " + pterm.LightMagenta("*"))
	}
	if opts.CriticalPath[n.ID] {
		b.WriteString(" " + pterm.Yellow("◆"))
	}
	return b.String()
}

// Render writes the snapshot as a layered listing. Layers come from the
// layout assignment so the terminal view and the exported diagrams agree
// on structure.
func (r *Renderer) Render(app string, snap *graph.Snapshot, opts Options) {
	if snap == nil {
		fmt.Fprintf(r.out, "%s %s\n", pterm.LightCyan(app), connectionLabel(opts.Live))
		fmt.Fprintln(r.out, pterm.Gray("  no graph data yet"))
		return
	}

	nodes := snap.Nodes
	edges := snap.ResolvableEdges()
	if opts.Filter != nil {
		nodes = opts.Filter.VisibleNodes(snap)
		edges = opts.Filter.VisibleEdges(snap)
	}

	fmt.Fprintf(r.out, "%s %s %s\n",
		pterm.LightCyan(app),
		connectionLabel(opts.Live),
		pterm.Gray(fmt.Sprintf("gen %d", snap.Generation)))

	layoutCfg := layout.DefaultConfig()
	if opts.Layout != nil {
		layoutCfg = *opts.Layout
	}
	result := layout.Assign(nodes, edges, layoutCfg)
	byID := make(map[string]graph.Node, len(result.Nodes))
	for _, n := range result.Nodes {
		byID[n.ID] = n
	}
	for i, layer := range result.Layers {
		fmt.Fprintf(r.out, "%s\n", pterm.Gray(fmt.Sprintf("  layer %d", i)))
		for _, id := range layer {
			fmt.Fprintf(r.out, "    %s\n", nodeLine(byID[id], opts))
		}
	}

	if r.verbosity >= 1 {
		for _, e := range edges {
			rel := e.Relationship
			if rel == "" {
				rel = "→"
			}
			fmt.Fprintf(r.out, "  %s\n", pterm.Gray(fmt.Sprintf("%s -[%s]-> %s", e.Source, rel, e.Target)))
		}
	}

	summary := fmt.Sprintf("  %d nodes, %d edges", len(nodes), len(edges))
	if dangling := len(snap.Edges) - len(snap.ResolvableEdges()); dangling > 0 {
		summary += fmt.Sprintf(", %d dangling", dangling)
	}
	if hidden := len(snap.Nodes) - len(nodes); hidden > 0 {
		summary += fmt.Sprintf(", %d filtered out", hidden)
	}
	fmt.Fprintln(r.out, pterm.Gray(summary))
}

// HistoryRow is one generation record for history output. The history
// store's records convert into this shape so the renderer stays free of
// storage concerns.
type HistoryRow struct {
	RecordedAt time.Time
	Generation uint64
	NodeCount  int
	EdgeCount  int
	Source     string
}

// RenderHistory writes recent generation history rows.
func (r *Renderer) RenderHistory(rows []HistoryRow) {
	if len(rows) == 0 {
		fmt.Fprintln(r.out, pterm.Gray("  no history recorded"))
		return
	}
	for _, row := range rows {
		fmt.Fprintf(r.out, "  %s gen %d  %d nodes  %d edges  %s\n",
			pterm.Gray(row.RecordedAt.Format("15:04:05")),
			row.Generation, row.NodeCount, row.EdgeCount,
			pterm.Gray(row.Source))
	}
}
