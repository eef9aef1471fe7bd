package examplepack

import (
	"context"

	"github.com/nodegraph/nodegraph-server/internal/ops"
	"github.com/nodegraph/nodegraph-server/internal/report"
)

func init() {
	ops.RegisterProgress[countToParams]("count_to", countTo, ops.Meta{
		Doc: "Reports ten evenly spaced progress ticks, then returns its target.",
	})
}

type countToParams struct {
	Target int64 `json:"target" node:"default=42"`
}

// countTo narrates ten evenly spaced ticks from 0.1 to 1.0 before
// returning its target, exercising the progress reporter's fidelity
// invariant: the emitted sequence must equal what this body reports.
func countTo(_ context.Context, args map[string]any, reporter *report.ProgressReporter) (any, error) {
	target, _ := args["target"].(int64)

	const steps = 10
	for i := 1; i <= steps; i++ {
		reporter.ReportCount(i, steps, "")
	}

	return target, nil
}
