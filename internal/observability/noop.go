package observability

import "context"

// NoOp returns a Provider whose every operation does nothing. It is the
// fallback ProviderFromContext returns when nothing was attached to the
// context, so call sites never need a nil check before using one.
func NoOp() Provider { return noopProvider{} }

type noopProvider struct{}

var _ Provider = noopProvider{}

func (noopProvider) StartSpan(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopProvider) Counter(name string) Counter     { return noopCounter{} }
func (noopProvider) Histogram(name string) Histogram { return noopHistogram{} }

func (noopProvider) Trace(ctx context.Context, msg string, attrs ...Attribute) {}
func (noopProvider) Debug(ctx context.Context, msg string, attrs ...Attribute) {}
func (noopProvider) Info(ctx context.Context, msg string, attrs ...Attribute)  {}
func (noopProvider) Warn(ctx context.Context, msg string, attrs ...Attribute)  {}
func (noopProvider) Error(ctx context.Context, msg string, attrs ...Attribute) {}

type noopSpan struct{}

func (noopSpan) End()                                          {}
func (noopSpan) SetAttributes(attrs ...Attribute)              {}
func (noopSpan) SetStatus(code StatusCode, description string) {}
func (noopSpan) RecordError(err error)                         {}
func (noopSpan) AddEvent(name string, attrs ...Attribute)      {}

type noopCounter struct{}

func (noopCounter) Add(ctx context.Context, value int64, attrs ...Attribute) {}

type noopHistogram struct{}

func (noopHistogram) Record(ctx context.Context, value float64, attrs ...Attribute) {}
