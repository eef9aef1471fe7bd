package observability

import "context"

type contextKey string

const (
	spanContextKey     contextKey = "span"
	observerContextKey contextKey = "observer"
)

// SpanFromContext extracts a Span from the context, or nil if absent.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return nil
	}
	span, _ := ctx.Value(spanContextKey).(Span)
	return span
}

// ContextWithSpan returns a new context with the given span attached.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, spanContextKey, span)
}

// ProviderFromContext extracts a Provider from the context, falling back
// to NoOp() if none was attached so callers never see a nil Provider.
func ProviderFromContext(ctx context.Context) Provider {
	if ctx == nil {
		return NoOp()
	}
	provider, ok := ctx.Value(observerContextKey).(Provider)
	if !ok {
		return NoOp()
	}
	return provider
}

// ContextWithProvider returns a new context with the given provider attached.
func ContextWithProvider(ctx context.Context, provider Provider) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, observerContextKey, provider)
}
