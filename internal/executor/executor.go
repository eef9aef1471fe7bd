package executor

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nodegraph/nodegraph-server/internal/coerce"
	"github.com/nodegraph/nodegraph-server/internal/observability"
	"github.com/nodegraph/nodegraph-server/internal/ops"
	"github.com/nodegraph/nodegraph-server/internal/report"
	"github.com/nodegraph/nodegraph-server/internal/schema"
)

// nodeOutputValue is one entry of the executor's Output Table: the
// value (or handle-indexed mapping, for a multi-output function node)
// produced by one node. The Output Table is owned exclusively by
// Execute, built incrementally, and discarded when the iterator is
// exhausted.
type nodeOutputValue struct {
	multi   bool
	value   any
	handles map[string]any
}

// Execute runs a submitted graph to completion, yielding one Event per
// state transition in strict dispatch order. Iteration stops early,
// without error, if the consumer's yield returns false (it closed the
// SSE connection, say), draining any in-flight worker before returning
// so nothing is left blocked on a channel send.
//
// The second iter.Seq2 value is non-nil only for errors the caller must
// treat as the terminal frame of the stream (graph-structural errors);
// per-node failures are reported as Event values with Status ==
// StatusError and a nil error, since the execution continues past them.
func Execute(ctx context.Context, g *Graph, registry *ops.Registry) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		provider := observability.ProviderFromContext(ctx)
		execCtx, execSpan := provider.StartSpan(ctx, observability.SpanGraphExecute,
			observability.Int(observability.AttrGraphNodeCount, len(g.Nodes)),
			observability.Int(observability.AttrGraphEdgeCount, len(g.Edges)))
		defer execSpan.End()

		adj, err := buildAdjacency(g)
		if err != nil {
			execSpan.RecordError(err)
			execSpan.SetStatus(observability.StatusError, "graph structural error")
			yield(Event{Status: StatusError, Error: err.Error()}, err)
			return
		}

		order, err := topoOrder(adj)
		if err != nil {
			execSpan.RecordError(err)
			execSpan.SetStatus(observability.StatusError, "cycle detected")
			yield(Event{Status: StatusError, Error: err.Error()}, err)
			return
		}

		if len(g.EnvVars) > 0 {
			envGuard.Lock()
			restore := applyEnv(g.EnvVars)
			defer func() {
				restore()
				envGuard.Unlock()
			}()
		}

		outputs := make(map[string]nodeOutputValue, len(order))
		results := make(map[string]any)

		for i, id := range order {
			node := adj.nodes[id]
			nodeNumber := i + 1

			var ok bool
			switch node.Kind {
			case KindVariable:
				ok = runVariableNode(execCtx, yield, node, nodeNumber, outputs)
			case KindList:
				ok = runListNode(execCtx, yield, adj, node, nodeNumber, outputs)
			case KindView:
				ok = runViewNode(execCtx, yield, adj, node, nodeNumber, outputs, results)
			case KindFunction:
				ok = runFunctionNode(execCtx, yield, adj, registry, node, nodeNumber, outputs)
			default:
				ok = true
			}
			if !ok {
				execSpan.SetStatus(observability.StatusError, "consumer stopped early")
				return
			}
		}

		execSpan.SetStatus(observability.StatusOK, "")
		yield(Event{Status: StatusDone, Results: results}, nil)
	}
}

// --- Variable ---

func runVariableNode(ctx context.Context, yield func(Event, error) bool, node Node, nodeNumber int, outputs map[string]nodeOutputValue) bool {
	provider := observability.ProviderFromContext(ctx)
	_, span := provider.StartSpan(ctx, observability.SpanNodeExecute,
		observability.String(observability.AttrNodeID, node.ID),
		observability.String(observability.AttrNodeKind, "variable"),
		observability.Int(observability.AttrNodeNumber, nodeNumber))
	defer span.End()

	if !yield(Event{Status: StatusExecuting, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID}, nil) {
		return false
	}

	declaredType, _ := node.Data["declaredType"].(string)
	if declaredType == "" {
		declaredType = string(schema.TypeStr)
	}
	raw := node.Data["value"]

	value, coerceErr := coerce.Value(schema.Type(declaredType), raw, nil)
	if coerceErr != nil {
		outputs[node.ID] = nodeOutputValue{value: nil}
		span.RecordError(coerceErr)
		span.SetStatus(observability.StatusError, "coercion failed")
		return yield(Event{Status: StatusError, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID, Error: coerceErr.Error()}, nil)
	}

	llmMessageFormat, _ := node.Data["llmMessageFormat"].(bool)
	textContentFormat, _ := node.Data["textContentFormat"].(bool)
	role, _ := node.Data["role"].(string)
	if role == "" {
		role = "user"
	}

	output := wrapVariable(schema.Type(declaredType), value, llmMessageFormat, textContentFormat, role)
	outputs[node.ID] = nodeOutputValue{value: output}
	span.SetStatus(observability.StatusOK, "")

	return yield(Event{Status: StatusCompleted, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID, Output: output}, nil)
}

// wrapVariable applies the semantic wrapping a variable node's flags
// request. llmMessageFormat and textContentFormat are mutually distinct
// legacy conventions; when neither is set, the coerced value passes
// through unchanged.
func wrapVariable(declaredType schema.Type, value any, llmMessageFormat, textContentFormat bool, role string) any {
	switch {
	case llmMessageFormat && declaredType == schema.TypeImage:
		return map[string]any{
			"role": role,
			"content": []any{
				map[string]any{
					"type": "image_url",
					"image_url": map[string]any{
						"url": value,
					},
				},
			},
		}
	case llmMessageFormat:
		return map[string]any{"role": role, "content": value}
	case textContentFormat:
		return map[string]any{"type": "text", "content": value}
	default:
		return value
	}
}

// --- List ---

func runListNode(ctx context.Context, yield func(Event, error) bool, adj *adjacency, node Node, nodeNumber int, outputs map[string]nodeOutputValue) bool {
	provider := observability.ProviderFromContext(ctx)
	_, span := provider.StartSpan(ctx, observability.SpanNodeExecute,
		observability.String(observability.AttrNodeID, node.ID),
		observability.String(observability.AttrNodeKind, "list"),
		observability.Int(observability.AttrNodeNumber, nodeNumber))
	defer span.End()

	if !yield(Event{Status: StatusExecuting, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID}, nil) {
		return false
	}

	type indexed struct {
		index int
		edge  Edge
	}
	var slots []indexed
	for _, e := range adj.inEdgesIdx[node.ID] {
		idx, ok := parseListIndex(e.TargetHandle)
		if !ok {
			continue
		}
		slots = append(slots, indexed{index: idx, edge: e})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].index < slots[j].index })

	values := make([]any, 0, len(slots))
	for _, s := range slots {
		v, err := resolveUpstream(outputs, s.edge)
		if err != nil {
			outputs[node.ID] = nodeOutputValue{value: nil}
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "upstream resolution failed")
			return yield(Event{Status: StatusError, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID, Error: err.Error()}, nil)
		}
		values = append(values, v)
	}

	outputs[node.ID] = nodeOutputValue{value: values}
	span.SetStatus(observability.StatusOK, "")
	return yield(Event{Status: StatusCompleted, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID, Output: values}, nil)
}

func parseListIndex(handle string) (int, bool) {
	const prefix = "input-"
	if !strings.HasPrefix(handle, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(handle, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}

// --- View ---

func runViewNode(ctx context.Context, yield func(Event, error) bool, adj *adjacency, node Node, nodeNumber int, outputs map[string]nodeOutputValue, results map[string]any) bool {
	provider := observability.ProviderFromContext(ctx)
	_, span := provider.StartSpan(ctx, observability.SpanNodeExecute,
		observability.String(observability.AttrNodeID, node.ID),
		observability.String(observability.AttrNodeKind, "view"),
		observability.Int(observability.AttrNodeNumber, nodeNumber))
	defer span.End()

	if !yield(Event{Status: StatusExecuting, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID}, nil) {
		return false
	}

	var value any
	if e, ok := adj.inEdges[node.ID]["input"]; ok {
		v, err := resolveUpstream(outputs, e)
		if err != nil {
			outputs[node.ID] = nodeOutputValue{value: nil}
			results[node.ID] = nil
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "upstream resolution failed")
			return yield(Event{Status: StatusError, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID, Error: err.Error()}, nil)
		}
		value = v
	}

	outputs[node.ID] = nodeOutputValue{value: value}
	results[node.ID] = value
	span.SetStatus(observability.StatusOK, "")

	return yield(Event{Status: StatusCompleted, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: node.ID, Output: value}, nil)
}

// --- Function ---

func runFunctionNode(ctx context.Context, yield func(Event, error) bool, adj *adjacency, registry *ops.Registry, node Node, nodeNumber int, outputs map[string]nodeOutputValue) bool {
	name, _ := node.Data["function"].(string)

	provider := observability.ProviderFromContext(ctx)
	ctx, span := provider.StartSpan(ctx, observability.SpanNodeExecute,
		observability.String(observability.AttrNodeID, node.ID),
		observability.String(observability.AttrNodeKind, "function"),
		observability.Int(observability.AttrNodeNumber, nodeNumber),
		observability.String(observability.AttrOpName, name))
	defer span.End()

	kind, found := registry.Kind(name)
	if !found {
		outputs[node.ID] = nodeOutputValue{value: nil}
		err := fmt.Errorf("unknown operation %q", name)
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "unknown operation")
		if !yield(Event{Status: StatusExecuting, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: name, Inputs: map[string]any{}}, nil) {
			return false
		}
		return yield(Event{Status: StatusError, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: name, Error: err.Error()}, nil)
	}
	span.SetAttributes(observability.String(observability.AttrOpKind, string(kind)))

	var fnSchema ops.FunctionSchema
	switch kind {
	case ops.KindPlain:
		op, _ := registry.Plain(name)
		fnSchema = op.Schema()
	case ops.KindProgress:
		op, _ := registry.Progress(name)
		fnSchema = op.Schema()
	case ops.KindStream:
		op, _ := registry.Stream(name)
		fnSchema = op.Schema()
	}

	literalParams, _ := node.Data["params"].(map[string]any)
	args, err := resolveFunctionArgs(adj, node.ID, literalParams, fnSchema.Params, outputs)
	if err != nil {
		outputs[node.ID] = nodeOutputValue{value: nil}
		span.RecordError(err)
		span.SetStatus(observability.StatusError, "argument resolution failed")
		if !yield(Event{Status: StatusExecuting, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: name, Inputs: map[string]any{}}, nil) {
			return false
		}
		return yield(Event{Status: StatusError, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: name, Error: err.Error()}, nil)
	}

	if !yield(Event{Status: StatusExecuting, NodeID: node.ID, NodeNumber: nodeNumber, NodeName: name, Inputs: args}, nil) {
		return false
	}

	provider.Counter("nodegraph.node.dispatch").Add(ctx, 1,
		observability.String(observability.AttrOpName, name),
		observability.String(observability.AttrOpKind, string(kind)))

	switch kind {
	case ops.KindPlain:
		op, _ := registry.Plain(name)
		invokeCtx, invokeSpan := provider.StartSpan(ctx, observability.SpanOpInvoke, observability.String(observability.AttrOpName, name))
		start := time.Now()
		out, err := op.Invoke(invokeCtx, args)
		provider.Histogram("nodegraph.op.invoke.duration").Record(ctx, time.Since(start).Seconds(),
			observability.String(observability.AttrOpName, name))
		if err != nil {
			invokeSpan.RecordError(err)
			invokeSpan.SetStatus(observability.StatusError, "invocation failed")
		} else {
			invokeSpan.SetStatus(observability.StatusOK, "")
		}
		invokeSpan.End()
		ok := finishFunctionNode(yield, node.ID, nodeNumber, name, fnSchema, out, err, outputs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, "invocation failed")
		} else {
			span.SetStatus(observability.StatusOK, "")
		}
		return ok

	case ops.KindProgress:
		op, _ := registry.Progress(name)
		return runProgressNode(ctx, yield, op, node.ID, nodeNumber, name, fnSchema, args, outputs)

	case ops.KindStream:
		op, _ := registry.Stream(name)
		return runStreamNode(ctx, yield, op, node.ID, nodeNumber, name, fnSchema, args, outputs)
	}

	return true
}

// resolveFunctionArgs builds the coerced keyword argument map for a
// function node's declared parameters, per the four-step resolution
// rule: upstream edge, then literal node data, then schema default,
// then (implicitly, by omission from the map) the underlying
// operation's own default.
func resolveFunctionArgs(adj *adjacency, nodeID string, literalParams map[string]any, params []schema.Param, outputs map[string]nodeOutputValue) (map[string]any, error) {
	args := make(map[string]any, len(params))

	for _, p := range params {
		var (
			raw    any
			isSet  bool
		)

		if e, ok := adj.inEdges[nodeID][p.Name]; ok {
			v, err := resolveUpstream(outputs, e)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
			}
			raw, isSet = v, true
		} else if v, ok := literalParams[p.Name]; ok {
			raw, isSet = v, true
		} else if p.Default != nil {
			raw, isSet = p.Default, true
		}

		if !isSet {
			continue
		}

		coerced, err := coerce.Value(p.Type, raw, p.LiteralValues)
		if err != nil {
			return nil, &coerce.Error{Param: p.Name, Type: p.Type, Err: err}
		}
		args[p.Name] = coerced
	}

	return args, nil
}

func resolveUpstream(outputs map[string]nodeOutputValue, e Edge) (any, error) {
	out, ok := outputs[e.Source]
	if !ok {
		return nil, fmt.Errorf("upstream node %q has not produced a value", e.Source)
	}
	if out.multi {
		v, ok := out.handles[e.SourceHandle]
		if !ok {
			return nil, fmt.Errorf("source node %q has no output handle %q", e.Source, e.SourceHandle)
		}
		return v, nil
	}
	return out.value, nil
}

// finishFunctionNode records an operation's result (or failure), for any
// of the three operation kinds, into
// the Output Table and emits the terminal per-node event. It also
// enforces the multi-output contract: when the schema declares more
// than one return, the returned value must be a mapping containing
// every declared key.
func finishFunctionNode(yield func(Event, error) bool, nodeID string, nodeNumber int, name string, fnSchema ops.FunctionSchema, out any, invokeErr error, outputs map[string]nodeOutputValue) bool {
	if invokeErr != nil {
		outputs[nodeID] = nodeOutputValue{value: nil}
		return yield(Event{Status: StatusError, NodeID: nodeID, NodeNumber: nodeNumber, NodeName: name, Error: invokeErr.Error()}, nil)
	}

	if len(fnSchema.Returns) > 1 {
		produced, ok := out.(map[string]any)
		if !ok {
			outputs[nodeID] = nodeOutputValue{value: nil}
			return yield(Event{Status: StatusError, NodeID: nodeID, NodeNumber: nodeNumber, NodeName: name, Error: fmt.Sprintf("operation %q declares multiple outputs but did not return a mapping", name)}, nil)
		}
		handles := make(map[string]any, len(fnSchema.Returns))
		for _, r := range fnSchema.Returns {
			v, present := produced[r.Name]
			if !present {
				outputs[nodeID] = nodeOutputValue{value: nil}
				return yield(Event{Status: StatusError, NodeID: nodeID, NodeNumber: nodeNumber, NodeName: name, Error: fmt.Sprintf("operation %q did not produce declared output %q", name, r.Name)}, nil)
			}
			handles[r.Name] = v
		}
		outputs[nodeID] = nodeOutputValue{multi: true, handles: handles}
		return yield(Event{Status: StatusCompleted, NodeID: nodeID, NodeNumber: nodeNumber, NodeName: name, Output: produced}, nil)
	}

	outputs[nodeID] = nodeOutputValue{value: out}
	return yield(Event{Status: StatusCompleted, NodeID: nodeID, NodeNumber: nodeNumber, NodeName: name, Output: out}, nil)
}

// runProgressNode dispatches a progress operation on a dedicated worker
// goroutine while the main path pumps reporter ticks onto the event
// stream, per the executor's single-reader/single-writer worker
// orchestration. The worker is joined before the node reaches a
// terminal state.
func runProgressNode(ctx context.Context, yield func(Event, error) bool, op ops.ProgressOperation, nodeID string, nodeNumber int, name string, fnSchema ops.FunctionSchema, args map[string]any, outputs map[string]nodeOutputValue) bool {
	updates := make(chan report.ProgressUpdate, 16)
	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)

	reporter := &report.ProgressReporter{Sink: func(u report.ProgressUpdate) { updates <- u }}

	provider := observability.ProviderFromContext(ctx)
	go func() {
		invokeCtx, invokeSpan := provider.StartSpan(ctx, observability.SpanOpInvoke, observability.String(observability.AttrOpName, name))
		start := time.Now()
		out, err := op.Invoke(invokeCtx, args, reporter)
		provider.Histogram("nodegraph.op.invoke.duration").Record(ctx, time.Since(start).Seconds(),
			observability.String(observability.AttrOpName, name))
		if err != nil {
			invokeSpan.RecordError(err)
			invokeSpan.SetStatus(observability.StatusError, "invocation failed")
		} else {
			invokeSpan.SetStatus(observability.StatusOK, "")
		}
		invokeSpan.End()
		close(updates)
		done <- result{value: out, err: err}
	}()

	for u := range updates {
		if !yield(Event{
			Status:          StatusProgress,
			NodeID:          nodeID,
			NodeNumber:      nodeNumber,
			NodeName:        name,
			Progress:        u.Percent,
			ProgressMessage: u.Message,
		}, nil) {
			// Keep draining so the worker is not blocked writing to updates,
			// but stop yielding further events to the now-gone consumer.
			for range updates {
			}
			<-done
			return false
		}
	}

	res := <-done
	return finishFunctionNode(yield, nodeID, nodeNumber, name, fnSchema, res.value, res.err, outputs)
}

// runStreamNode mirrors runProgressNode for chunk-emitting operations,
// accumulating the running text alongside each chunk per the streaming
// event's wire shape.
func runStreamNode(ctx context.Context, yield func(Event, error) bool, op ops.StreamOperation, nodeID string, nodeNumber int, name string, fnSchema ops.FunctionSchema, args map[string]any, outputs map[string]nodeOutputValue) bool {
	chunks := make(chan string, 16)
	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)

	reporter := &report.StreamReporter{Sink: func(chunk string) { chunks <- chunk }}

	provider := observability.ProviderFromContext(ctx)
	go func() {
		invokeCtx, invokeSpan := provider.StartSpan(ctx, observability.SpanOpInvoke, observability.String(observability.AttrOpName, name))
		start := time.Now()
		out, err := op.Invoke(invokeCtx, args, reporter)
		provider.Histogram("nodegraph.op.invoke.duration").Record(ctx, time.Since(start).Seconds(),
			observability.String(observability.AttrOpName, name))
		if err != nil {
			invokeSpan.RecordError(err)
			invokeSpan.SetStatus(observability.StatusError, "invocation failed")
		} else {
			invokeSpan.SetStatus(observability.StatusOK, "")
		}
		invokeSpan.End()
		close(chunks)
		done <- result{value: out, err: err}
	}()

	var accumulated strings.Builder
	for chunk := range chunks {
		accumulated.WriteString(chunk)
		if !yield(Event{
			Status:         StatusStreaming,
			NodeID:         nodeID,
			NodeNumber:     nodeNumber,
			NodeName:       name,
			StreamingText:  accumulated.String(),
			StreamingChunk: chunk,
		}, nil) {
			for range chunks {
			}
			<-done
			return false
		}
	}

	res := <-done
	return finishFunctionNode(yield, nodeID, nodeNumber, name, fnSchema, res.value, res.err, outputs)
}
