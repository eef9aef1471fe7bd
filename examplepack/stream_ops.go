package examplepack

import (
	"context"
	"strings"

	"github.com/nodegraph/nodegraph-server/internal/ops"
	"github.com/nodegraph/nodegraph-server/internal/report"
)

func init() {
	ops.RegisterStream[echoChunksParams]("echo_chunks", echoChunks, ops.Meta{
		Doc: "Emits its input text split on spaces, as a chunk sequence, then returns the joined text.",
	})
}

type echoChunksParams struct {
	Text string `json:"text"`
}

// echoChunks splits Text on spaces (keeping the separator attached to
// the preceding word, like "Hello ", "World" for "Hello World") and
// emits each piece as it goes, returning the full text once finished.
func echoChunks(_ context.Context, args map[string]any, reporter *report.StreamReporter) (any, error) {
	text, _ := args["text"].(string)

	var chunks []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == ' ' {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	for _, chunk := range chunks {
		reporter.Emit(chunk)
	}

	return text, nil
}
