package graph

import (
	"encoding/json"
	"time"
)

// Node represents an entity in the dependency graph.
type Node struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     NodeType  `json:"type"`
	Status   string    `json:"status,omitempty"`
	Metadata Metadata  `json:"metadata,omitempty"`
	Position *Position `json:"position,omitempty"` // Absent until laid out
}

// StatusClass returns the render class for the node's current status.
func (n Node) StatusClass() StatusClass {
	return ClassifyStatus(n.Status)
}

// Edge represents a directed relationship between two nodes, referencing
// them by ID. An edge whose endpoints do not resolve within the same
// snapshot is skipped by layout and rendering, never an error.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship,omitempty"` // e.g. "contains", "depends_on"
}

// Position is a 2D layout coordinate assigned by the layout engine.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Metadata carries the optional per-node fields the server attaches.
// Known fields are typed; anything else lands in Extra so decode never
// loses data from a newer server.
type Metadata struct {
	Provider     string     `json:"provider,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	State        string     `json:"state,omitempty"`
	Health       string     `json:"health,omitempty"`
	StepNumber   int        `json:"step_number,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// metadataKnown mirrors Metadata's typed fields for two-pass decoding.
type metadataKnown struct {
	Provider     string     `json:"provider,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
	State        string     `json:"state,omitempty"`
	Health       string     `json:"health,omitempty"`
	StepNumber   int        `json:"step_number,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

var metadataKnownKeys = map[string]bool{
	"provider": true, "resource_type": true, "state": true, "health": true,
	"step_number": true, "duration": true, "started_at": true, "completed_at": true,
}

// UnmarshalJSON decodes the typed fields and retains unknown keys in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var known metadataKnown
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{
		Provider:     known.Provider,
		ResourceType: known.ResourceType,
		State:        known.State,
		Health:       known.Health,
		StepNumber:   known.StepNumber,
		Duration:     known.Duration,
		StartedAt:    known.StartedAt,
		CompletedAt:  known.CompletedAt,
	}
	for k, v := range raw {
		if !metadataKnownKeys[k] {
			if m.Extra == nil {
				m.Extra = make(map[string]json.RawMessage)
			}
			m.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON emits typed fields plus retained unknown keys.
func (m Metadata) MarshalJSON() ([]byte, error) {
	known := metadataKnown{
		Provider:     m.Provider,
		ResourceType: m.ResourceType,
		State:        m.State,
		Health:       m.Health,
		StepNumber:   m.StepNumber,
		Duration:     m.Duration,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
	base, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(m.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	if merged == nil {
		merged = make(map[string]json.RawMessage)
	}
	for k, v := range m.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// IsZero reports whether no metadata field is set.
func (m Metadata) IsZero() bool {
	return m.Provider == "" && m.ResourceType == "" && m.State == "" &&
		m.Health == "" && m.StepNumber == 0 && m.Duration == "" &&
		m.StartedAt == nil && m.CompletedAt == nil && len(m.Extra) == 0
}

// Stats summarizes a snapshot for display and logging.
type Stats struct {
	TotalNodes int `json:"total_nodes,omitempty"`
	TotalEdges int `json:"total_edges,omitempty"`
}

// NodeDetails is the closed sum of per-type detail views. The render layer
// switches exhaustively over the concrete types instead of comparing type
// strings.
type NodeDetails interface {
	nodeDetails()
}

// SpecDetails describes a score spec node.
type SpecDetails struct{ Node Node }

// WorkflowDetails describes a workflow node.
type WorkflowDetails struct{ Node Node }

// StepDetails describes a workflow step node.
type StepDetails struct {
	Node       Node
	StepNumber int
	Duration   string
}

// ResourceDetails describes a provisioned resource node.
type ResourceDetails struct {
	Node         Node
	ResourceType string
	Provider     string
	State        string
	Health       string
}

// ProviderDetails describes a provider node.
type ProviderDetails struct{ Node Node }

// UnknownDetails is returned for node types this client does not know.
type UnknownDetails struct{ Node Node }

func (SpecDetails) nodeDetails()     {}
func (WorkflowDetails) nodeDetails() {}
func (StepDetails) nodeDetails()     {}
func (ResourceDetails) nodeDetails() {}
func (ProviderDetails) nodeDetails() {}
func (UnknownDetails) nodeDetails()  {}

// Details returns the typed detail view for the node.
func (n Node) Details() NodeDetails {
	switch n.Type {
	case TypeSpec:
		return SpecDetails{Node: n}
	case TypeWorkflow:
		return WorkflowDetails{Node: n}
	case TypeStep:
		return StepDetails{Node: n, StepNumber: n.Metadata.StepNumber, Duration: n.Metadata.Duration}
	case TypeResource:
		return ResourceDetails{
			Node:         n,
			ResourceType: n.Metadata.ResourceType,
			Provider:     n.Metadata.Provider,
			State:        n.Metadata.State,
			Health:       n.Metadata.Health,
		}
	case TypeProvider:
		return ProviderDetails{Node: n}
	default:
		return UnknownDetails{Node: n}
	}
}
