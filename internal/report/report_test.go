package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressReporter_Report(t *testing.T) {
	var got []ProgressUpdate
	r := &ProgressReporter{Sink: func(u ProgressUpdate) { got = append(got, u) }}

	r.Report(0.5, "halfway")

	assert.Equal(t, []ProgressUpdate{{Percent: 0.5, Message: "halfway"}}, got)
}

func TestProgressReporter_ReportCount(t *testing.T) {
	var got []ProgressUpdate
	r := &ProgressReporter{Sink: func(u ProgressUpdate) { got = append(got, u) }}

	r.ReportCount(3, 10, "working")
	r.ReportCount(5, 0, "no total")

	assert.Equal(t, 0.3, got[0].Percent)
	assert.Equal(t, 0.0, got[1].Percent)
}

func TestProgressReporter_NilSafe(t *testing.T) {
	var r *ProgressReporter
	assert.NotPanics(t, func() { r.Report(1, "x") })

	r2 := &ProgressReporter{}
	assert.NotPanics(t, func() { r2.Report(1, "x") })
}

func TestStreamReporter_Emit(t *testing.T) {
	var got []string
	r := &StreamReporter{Sink: func(chunk string) { got = append(got, chunk) }}

	r.Emit("Hel")
	r.Emit("")
	r.Emit("lo")

	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestStreamReporter_NilSafe(t *testing.T) {
	var r *StreamReporter
	assert.NotPanics(t, func() { r.Emit("x") })

	r2 := &StreamReporter{}
	assert.NotPanics(t, func() { r2.Emit("x") })
}
