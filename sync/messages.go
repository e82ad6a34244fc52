package sync

import (
	"encoding/json"

	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/graph"
)

// wireFrame is the superset of the two inbound message shapes. The stream
// delivers either a full replacement ({nodes, edges}) or a partial patch
// ({node, status} with {node, state} as the fallback key).
type wireFrame struct {
	Nodes  []graph.Node `json:"nodes"`
	Edges  []graph.Edge `json:"edges"`
	NodeID string       `json:"node"`
	Status string       `json:"status"`
	State  string       `json:"state"`
}

// frameKind classifies a decoded frame.
type frameKind int

const (
	frameFullReplace frameKind = iota
	framePartialPatch
)

// frame is a classified inbound message ready to apply.
type frame struct {
	kind   frameKind
	nodes  []graph.Node
	edges  []graph.Edge
	nodeID string
	status string
}

// decodeFrame parses one stream message. Frames that are not valid JSON or
// that match neither shape return an error; the caller logs and drops them
// without tearing down the connection.
func decodeFrame(data []byte) (frame, error) {
	var w wireFrame
	if err := json.Unmarshal(data, &w); err != nil {
		return frame{}, errors.Wrap(err, "stream frame is not valid JSON")
	}

	// Full replace requires both lists to be present; an empty graph is a
	// legitimate replacement.
	if w.Nodes != nil && w.Edges != nil {
		return frame{kind: frameFullReplace, nodes: w.Nodes, edges: w.Edges}, nil
	}

	if w.NodeID != "" {
		status := w.Status
		if status == "" {
			status = w.State
		}
		if status == "" {
			return frame{}, errors.Newf("patch for node %q carries neither status nor state", w.NodeID)
		}
		return frame{kind: framePartialPatch, nodeID: w.NodeID, status: status}, nil
	}

	return frame{}, errors.New("stream frame matches no known message shape")
}
