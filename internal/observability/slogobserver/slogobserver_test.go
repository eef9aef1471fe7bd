package slogobserver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nodegraph/nodegraph-server/internal/observability"
)

func TestObserver_ImplementsProvider(t *testing.T) {
	var _ observability.Provider = (*Observer)(nil)
}

func TestObserver_New_NilLoggerFallsBack(t *testing.T) {
	obs := New(nil)
	if obs == nil {
		t.Fatal("New(nil) returned nil")
	}
}

func TestObserver_StartSpan_LogsStart(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := New(logger)

	_, span := obs.StartSpan(context.Background(), "test-span", observability.Int("count", 42))
	if span == nil {
		t.Fatal("StartSpan returned nil span")
	}

	output := buf.String()
	if !strings.Contains(output, "test-span") || !strings.Contains(output, "span.start") {
		t.Errorf("expected span start event in output, got: %s", output)
	}
}

func TestObserver_Span_End_LogsDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := New(logger)

	_, span := obs.StartSpan(context.Background(), "test-span")
	buf.Reset()
	span.End()

	output := buf.String()
	if !strings.Contains(output, "span.end") || !strings.Contains(output, "duration") {
		t.Errorf("expected span end event with duration, got: %s", output)
	}
}

func TestObserver_Span_SetStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := New(logger)

	_, span := obs.StartSpan(context.Background(), "test-span")
	span.SetStatus(observability.StatusError, "boom")
	buf.Reset()
	span.End()

	output := buf.String()
	if !strings.Contains(output, "error") || !strings.Contains(output, "boom") {
		t.Errorf("expected error status and description in output, got: %s", output)
	}
}

func TestObserver_Span_RecordError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))
	obs := New(logger)

	_, span := obs.StartSpan(context.Background(), "test-span")
	span.RecordError(errors.New("disk full"))

	output := buf.String()
	if !strings.Contains(output, "disk full") {
		t.Errorf("expected error message in output, got: %s", output)
	}
}

func TestObserver_Span_RecordError_NilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))
	obs := New(logger)

	_, span := obs.StartSpan(context.Background(), "test-span")
	span.RecordError(nil)

	if buf.Len() != 0 {
		t.Errorf("expected no output for nil error, got: %s", buf.String())
	}
}

func TestObserver_Counter_Accumulates(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := New(logger)
	ctx := context.Background()

	counter := obs.Counter("nodegraph.node.dispatch")
	counter.Add(ctx, 10)
	counter.Add(ctx, 5)
	counter.Add(ctx, 3)

	output := buf.String()
	if !strings.Contains(output, "18") {
		t.Errorf("expected accumulated value 18 in output, got: %s", output)
	}
}

func TestObserver_Counter_SameNameSharesState(t *testing.T) {
	obs := New(nil)
	ctx := context.Background()

	a := obs.Counter("same")
	b := obs.Counter("same")
	a.Add(ctx, 10)
	b.Add(ctx, 5)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs2 := New(logger)
	c := obs2.Counter("same")
	d := obs2.Counter("same")
	c.Add(ctx, 1)
	d.Add(ctx, 1)

	if !strings.Contains(buf.String(), "2") {
		t.Errorf("expected counters retrieved by the same name to share accumulated state, got: %s", buf.String())
	}
}

func TestObserver_Histogram_RecordsValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := New(logger)

	histogram := obs.Histogram("nodegraph.op.invoke.duration")
	histogram.Record(context.Background(), 1.23)

	output := buf.String()
	if !strings.Contains(output, "1.23") {
		t.Errorf("expected recorded value in output, got: %s", output)
	}
}

func TestObserver_Logging_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	obs := New(logger)
	ctx := context.Background()

	obs.Debug(ctx, "debug message")
	obs.Info(ctx, "info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Errorf("debug message should be filtered out, got: %s", output)
	}
	if !strings.Contains(output, "info message") {
		t.Errorf("info message should be present, got: %s", output)
	}
}

func TestObserver_ConcurrentAccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := New(logger)
	ctx := context.Background()

	done := make(chan bool)
	for i := 0; i < 50; i++ {
		go func(id int) {
			_, span := obs.StartSpan(ctx, "concurrent-span")
			span.SetAttributes(observability.Int("id", id))
			span.End()

			obs.Counter("concurrent-counter").Add(ctx, 1)
			obs.Histogram("concurrent-histogram").Record(ctx, float64(id))
			obs.Info(ctx, "concurrent message", observability.Int("id", id))

			done <- true
		}(i)
	}
	for i := 0; i < 50; i++ {
		<-done
	}
}

func TestLevelFromEnv_DefaultsToInfo(t *testing.T) {
	t.Setenv("NODEGRAPH_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "")

	if got := LevelFromEnv(); got != slog.LevelInfo {
		t.Errorf("expected default level Info, got %v", got)
	}
}

func TestLevelFromEnv_ReadsNodegraphVar(t *testing.T) {
	t.Setenv("NODEGRAPH_LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_LEVEL", "ERROR")

	if got := LevelFromEnv(); got != slog.LevelDebug {
		t.Errorf("expected NODEGRAPH_LOG_LEVEL to take precedence, got %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
