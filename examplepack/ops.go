// Package examplepack registers a small set of plain, progress, and
// stream operations exercising every kind the executor dispatches. It
// plays the role a real operations tree would: a nodepack that calls
// internal/ops.Register* from its own init(), the Go-idiomatic
// substitute for the filesystem-scan-and-dynamically-import convention
// a dynamic-language original would use.
package examplepack

import (
	"context"
	"fmt"

	"github.com/nodegraph/nodegraph-server/internal/ops"
)

func init() {
	ops.RegisterPlain[addParams]("add", add, ops.Meta{
		Doc: "Adds two numbers.",
	})
	ops.RegisterPlain[addParams]("multiply", multiply, ops.Meta{
		Doc: "Multiplies two numbers.",
	})
	ops.RegisterPlain[divideParams]("divide", divide, ops.Meta{
		Doc: "Divides a by b.",
	})
	ops.RegisterPlain[splitNameParams]("split_name", splitName, ops.Meta{
		Doc: "Splits a full name into first and last parts.",
		Returns: []ops.Return{
			{Name: "first", Type: "str"},
			{Name: "last", Type: "str"},
		},
	})
}

type addParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func add(_ context.Context, args map[string]any) (any, error) {
	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)
	return a + b, nil
}

func multiply(_ context.Context, args map[string]any) (any, error) {
	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)
	return a * b, nil
}

type divideParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func divide(_ context.Context, args map[string]any) (any, error) {
	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)
	if b == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return a / b, nil
}

type splitNameParams struct {
	FullName string `json:"full_name"`
}

func splitName(_ context.Context, args map[string]any) (any, error) {
	full, _ := args["full_name"].(string)
	var first, last string
	for i, r := range full {
		if r == ' ' {
			first = full[:i]
			last = full[i+1:]
			break
		}
	}
	if first == "" {
		first = full
	}
	return map[string]any{"first": first, "last": last}, nil
}
