package graph

import (
	"encoding/json"
	"strings"
)

// NodeType is the closed set of entity kinds that appear in a dependency
// graph. Unknown wire values decode to TypeUnknown rather than failing the
// snapshot, so a newer server never breaks an older client.
type NodeType string

const (
	TypeSpec     NodeType = "spec"
	TypeWorkflow NodeType = "workflow"
	TypeStep     NodeType = "step"
	TypeResource NodeType = "resource"
	TypeProvider NodeType = "provider"
	TypeUnknown  NodeType = "unknown"
)

// AllNodeTypes lists the known node types in display order.
var AllNodeTypes = []NodeType{
	TypeSpec,
	TypeWorkflow,
	TypeStep,
	TypeResource,
	TypeProvider,
}

// ParseNodeType maps a wire type string onto the closed enum.
func ParseNodeType(s string) NodeType {
	switch NodeType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeSpec:
		return TypeSpec
	case TypeWorkflow:
		return TypeWorkflow
	case TypeStep:
		return TypeStep
	case TypeResource:
		return TypeResource
	case TypeProvider:
		return TypeProvider
	default:
		return TypeUnknown
	}
}

// String returns the wire representation of the node type.
func (t NodeType) String() string {
	return string(t)
}

// UnmarshalJSON normalizes inbound type strings onto the closed enum.
func (t *NodeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseNodeType(s)
	return nil
}

// StatusClass buckets the free-form per-node status strings the server emits
// into the four classes the render layer distinguishes.
type StatusClass int

const (
	StatusPending StatusClass = iota
	StatusInProgress
	StatusSuccess
	StatusFailure
)

var statusClasses = map[string]StatusClass{
	"succeeded":    StatusSuccess,
	"completed":    StatusSuccess,
	"running":      StatusInProgress,
	"provisioning": StatusInProgress,
	"failed":       StatusFailure,
	"error":        StatusFailure,
}

// ClassifyStatus maps a raw status string to its class. Anything not in the
// lookup table is pending.
func ClassifyStatus(status string) StatusClass {
	if class, ok := statusClasses[strings.ToLower(strings.TrimSpace(status))]; ok {
		return class
	}
	return StatusPending
}

// String returns a short name for the status class.
func (c StatusClass) String() string {
	switch c {
	case StatusSuccess:
		return "success"
	case StatusInProgress:
		return "in-progress"
	case StatusFailure:
		return "failure"
	default:
		return "pending"
	}
}
