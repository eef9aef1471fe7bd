package executor

import "fmt"

// Request is the decoded shape of an execute request body, common to
// both the sync and streaming HTTP endpoints.
type Request struct {
	Nodes   []WireNode        `json:"nodes"`
	Edges   []WireEdge        `json:"edges"`
	EnvVars map[string]string `json:"env_vars,omitempty"`
}

// WireNode is one node as it arrives over the wire: Type is the node
// kind tag ("function"|"variable"|"list"|"view") and Data is the
// kind-specific blob described by Node.
type WireNode struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// WireEdge is one edge as it arrives over the wire.
type WireEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}

// ToGraph converts a decoded request into the executor's internal
// Graph representation. Unrecognized node types are rejected up front
// as a graph-structural error rather than silently defaulting to one
// kind, since a bad kind tag is a malformed request, not a per-node
// runtime failure.
func (req Request) ToGraph() (*Graph, error) {
	nodes := make([]Node, 0, len(req.Nodes))
	for _, wn := range req.Nodes {
		kind, err := parseKind(wn.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", wn.ID, err)
		}
		nodes = append(nodes, Node{ID: wn.ID, Kind: kind, Data: wn.Data})
	}

	edges := make([]Edge, 0, len(req.Edges))
	for _, we := range req.Edges {
		sourceHandle := we.SourceHandle
		if sourceHandle == "" {
			sourceHandle = "output"
		}
		edges = append(edges, Edge{
			Source:       we.Source,
			SourceHandle: sourceHandle,
			Target:       we.Target,
			TargetHandle: we.TargetHandle,
		})
	}

	return &Graph{Nodes: nodes, Edges: edges, EnvVars: req.EnvVars}, nil
}

func parseKind(t string) (Kind, error) {
	switch Kind(t) {
	case KindFunction, KindVariable, KindList, KindView:
		return Kind(t), nil
	default:
		return "", fmt.Errorf("unrecognized node type %q", t)
	}
}
