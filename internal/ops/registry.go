// Package ops is the Operation Registry and the registration half of the
// Schema Introspector (see internal/schema for the reflection half).
//
// A nodepack — a Go package implementing the operations the executor can
// dispatch to — registers each operation from its own init() by calling
// RegisterPlain, RegisterProgress, or RegisterStream with a parameter
// struct type argument (used only to derive the FunctionSchema's
// parameter list) and the callable itself. The server then calls Build()
// once at startup to freeze the pending registrations into three
// disjoint, read-only, name-indexed maps — a direct realization of
// Design Note "Dynamic dispatch by string name": lookup is a map index,
// never reflection keyed off a string.
package ops

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nodegraph/nodegraph-server/internal/report"
	"github.com/nodegraph/nodegraph-server/internal/schema"
)

// Kind identifies which of the three invocation shapes an operation has.
type Kind string

const (
	KindPlain    Kind = "plain"
	KindProgress Kind = "progress"
	KindStream   Kind = "stream"
)

// Return describes one named output of an operation. A single-output
// operation has exactly one Return named "output"; a multi-output
// (AnnotatedDict) operation has one Return per declared key.
type Return struct {
	Name string      `json:"name"`
	Type schema.Type `json:"type"`
}

// FunctionSchema is the immutable description of one registered
// operation, produced once at registry build time and never mutated
// thereafter.
type FunctionSchema struct {
	Name      string         `json:"name"`
	Filepath  string         `json:"filepath"`
	Docstring string         `json:"docstring"`
	Kind      Kind           `json:"kind"`
	Params    []schema.Param `json:"params"`
	Returns   []Return       `json:"returns"`
}

// PlainFunc is a synchronous operation body: given the coerced keyword
// arguments, produce a value or fail.
type PlainFunc func(ctx context.Context, args map[string]any) (any, error)

// ProgressFunc is a long-running operation body that narrates its own
// completion via a progress reporter installed fresh for this one
// invocation.
type ProgressFunc func(ctx context.Context, args map[string]any, reporter *report.ProgressReporter) (any, error)

// StreamFunc is a token-streaming operation body that emits text chunks
// via a stream reporter installed fresh for this one invocation.
type StreamFunc func(ctx context.Context, args map[string]any, reporter *report.StreamReporter) (any, error)

// PlainOperation, ProgressOperation, and StreamOperation are the three
// capability interfaces the registry indexes. Each pairs an operation's
// schema with its invocation shape.
type PlainOperation interface {
	Schema() FunctionSchema
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

type ProgressOperation interface {
	Schema() FunctionSchema
	Invoke(ctx context.Context, args map[string]any, reporter *report.ProgressReporter) (any, error)
}

type StreamOperation interface {
	Schema() FunctionSchema
	Invoke(ctx context.Context, args map[string]any, reporter *report.StreamReporter) (any, error)
}

type plainOp struct {
	schema FunctionSchema
	fn     PlainFunc
}

func (o *plainOp) Schema() FunctionSchema { return o.schema }
func (o *plainOp) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return o.fn(ctx, args)
}

type progressOp struct {
	schema FunctionSchema
	fn     ProgressFunc
}

func (o *progressOp) Schema() FunctionSchema { return o.schema }
func (o *progressOp) Invoke(ctx context.Context, args map[string]any, reporter *report.ProgressReporter) (any, error) {
	return o.fn(ctx, args, reporter)
}

type streamOp struct {
	schema FunctionSchema
	fn     StreamFunc
}

func (o *streamOp) Schema() FunctionSchema { return o.schema }
func (o *streamOp) Invoke(ctx context.Context, args map[string]any, reporter *report.StreamReporter) (any, error) {
	return o.fn(ctx, args, reporter)
}

// Meta carries the registration-time metadata the Go type system cannot
// derive by itself: the docstring, the nodepack-relative origin path, and
// the operation's declared outputs. Returns defaults to a single
// {Name: "output", Type: "any"} entry when left empty, matching the
// spec's "defaults to 'output' for single-output ops" rule.
type Meta struct {
	Doc      string
	Filepath string
	Returns  []Return
}

func (m Meta) resolveReturns() []Return {
	if len(m.Returns) > 0 {
		return m.Returns
	}
	return []Return{{Name: "output", Type: schema.TypeAny}}
}

// --- Registration (called from nodepack init()) ---

type pendingEntry struct {
	name string
	kind Kind
	op   any // *plainOp | *progressOp | *streamOp
}

var (
	pendingMu sync.Mutex
	pending   []pendingEntry
)

// RegisterPlain registers a synchronous operation. P is a struct type
// used only to derive the parameter schema via reflection (see
// internal/schema.Generate); it is never instantiated or passed to fn.
func RegisterPlain[P any](name string, fn PlainFunc, meta Meta) {
	fs := FunctionSchema{
		Name:      name,
		Filepath:  meta.Filepath,
		Docstring: meta.Doc,
		Kind:      KindPlain,
		Params:    schema.Generate[P](),
		Returns:   meta.resolveReturns(),
	}
	register(name, KindPlain, &plainOp{schema: fs, fn: fn})
}

// RegisterProgress registers a progress operation. See RegisterPlain for
// the meaning of P.
func RegisterProgress[P any](name string, fn ProgressFunc, meta Meta) {
	fs := FunctionSchema{
		Name:      name,
		Filepath:  meta.Filepath,
		Docstring: meta.Doc,
		Kind:      KindProgress,
		Params:    schema.Generate[P](),
		Returns:   meta.resolveReturns(),
	}
	register(name, KindProgress, &progressOp{schema: fs, fn: fn})
}

// RegisterStream registers a stream operation. See RegisterPlain for the
// meaning of P.
func RegisterStream[P any](name string, fn StreamFunc, meta Meta) {
	fs := FunctionSchema{
		Name:      name,
		Filepath:  meta.Filepath,
		Docstring: meta.Doc,
		Kind:      KindStream,
		Params:    schema.Generate[P](),
		Returns:   meta.resolveReturns(),
	}
	register(name, KindStream, &streamOp{schema: fs, fn: fn})
}

func register(name string, kind Kind, op any) {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	pending = append(pending, pendingEntry{name: name, kind: kind, op: op})
}

// --- Registry ---

// Registry holds the three disjoint, kind-partitioned operation maps.
// It is built once at server start by Build and is safe for unlimited
// concurrent lookups thereafter; nothing mutates it after construction.
type Registry struct {
	plain    map[string]PlainOperation
	progress map[string]ProgressOperation
	stream   map[string]StreamOperation
	schemas  []FunctionSchema
}

// Plain looks up a plain operation by name.
func (r *Registry) Plain(name string) (PlainOperation, bool) {
	op, ok := r.plain[name]
	return op, ok
}

// Progress looks up a progress operation by name.
func (r *Registry) Progress(name string) (ProgressOperation, bool) {
	op, ok := r.progress[name]
	return op, ok
}

// Stream looks up a stream operation by name.
func (r *Registry) Stream(name string) (StreamOperation, bool) {
	op, ok := r.stream[name]
	return op, ok
}

// Kind reports which kind (if any) an operation name was registered
// under. The function node in a submitted graph does not itself declare
// its kind; the registry is the single source of truth for it.
func (r *Registry) Kind(name string) (Kind, bool) {
	if _, ok := r.plain[name]; ok {
		return KindPlain, true
	}
	if _, ok := r.progress[name]; ok {
		return KindProgress, true
	}
	if _, ok := r.stream[name]; ok {
		return KindStream, true
	}
	return "", false
}

// Schemas returns the full, order-stable list of FunctionSchema values
// owned by the registry, for the schema-listing HTTP endpoint.
func (r *Registry) Schemas() []FunctionSchema {
	return r.schemas
}

// Build freezes all operations registered so far (across every imported
// nodepack's init()) into an immutable Registry. A duplicate name within
// or across kinds is a schema error: it is logged by the caller via the
// returned error slice and the later registration is skipped, but Build
// itself never fails outright — a bad unit never aborts the whole
// registry, per the introspector's non-fatal failure policy.
func Build() (*Registry, []error) {
	pendingMu.Lock()
	entries := make([]pendingEntry, len(pending))
	copy(entries, pending)
	pendingMu.Unlock()

	reg := &Registry{
		plain:    make(map[string]PlainOperation),
		progress: make(map[string]ProgressOperation),
		stream:   make(map[string]StreamOperation),
	}

	var errs []error
	seen := make(map[string]bool)

	for _, entry := range entries {
		if seen[entry.name] {
			errs = append(errs, fmt.Errorf("duplicate operation name %q: keeping first registration", entry.name))
			continue
		}
		seen[entry.name] = true

		switch entry.kind {
		case KindPlain:
			op := entry.op.(*plainOp)
			reg.plain[entry.name] = op
			reg.schemas = append(reg.schemas, op.schema)
		case KindProgress:
			op := entry.op.(*progressOp)
			reg.progress[entry.name] = op
			reg.schemas = append(reg.schemas, op.schema)
		case KindStream:
			op := entry.op.(*streamOp)
			reg.stream[entry.name] = op
			reg.schemas = append(reg.schemas, op.schema)
		}
	}

	sort.Slice(reg.schemas, func(i, j int) bool { return reg.schemas[i].Name < reg.schemas[j].Name })

	return reg, errs
}
