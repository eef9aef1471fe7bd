package observability

// Semantic conventions for the graph-execution domain: attribute, span, and
// event names, kept consistent across the executor, registry, and HTTP
// layers.

// --- Node / Graph Attributes ---

const (
	AttrNodeID     = "node.id"
	AttrNodeName   = "node.name"
	AttrNodeKind   = "node.kind"   // function | variable | list | view
	AttrNodeHandle = "node.handle"
	AttrNodeNumber = "node.number"
	AttrNodeStatus = "node.status"

	AttrGraphNodeCount = "graph.node_count"
	AttrGraphEdgeCount = "graph.edge_count"
)

// --- Operation Attributes ---

const (
	AttrOpName = "op.name"
	AttrOpKind = "op.kind" // plain | progress | stream
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPPath       = "http.path"
)

// --- General Attributes ---

const (
	AttrError     = "error"
	AttrErrorType = "error.type"
	AttrDuration  = "duration"
	AttrStatus    = "status"
)

// --- Span Names ---

const (
	SpanGraphExecute  = "graph.execute"
	SpanNodeExecute   = "node.execute"
	SpanOpInvoke      = "op.invoke"
	SpanHTTPRequest   = "http.request"
	SpanSchemaScan    = "schema.scan"
)

// --- Event Names ---

const (
	EventNodeDispatch  = "node.dispatch"
	EventNodeComplete  = "node.complete"
	EventNodeError     = "node.error"
	EventProgressTick  = "node.progress_tick"
	EventStreamChunk   = "node.stream_chunk"
)
