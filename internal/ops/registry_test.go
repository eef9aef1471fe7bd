package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noParams struct{}

func TestBuild_PlainLookupAndSchema(t *testing.T) {
	resetPending(t)

	RegisterPlain[noParams]("registry_test_plain", func(_ context.Context, args map[string]any) (any, error) {
		return "ok", nil
	}, Meta{Doc: "a test op"})

	reg, errs := Build()
	assert.Empty(t, errs)

	op, ok := reg.Plain("registry_test_plain")
	require.True(t, ok)

	out, err := op.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	kind, ok := reg.Kind("registry_test_plain")
	require.True(t, ok)
	assert.Equal(t, KindPlain, kind)

	assert.Equal(t, []Return{{Name: "output", Type: "any"}}, op.Schema().Returns)
}

func TestBuild_DuplicateNameIsNonFatal(t *testing.T) {
	resetPending(t)

	RegisterPlain[noParams]("registry_test_dup", func(_ context.Context, args map[string]any) (any, error) {
		return "first", nil
	}, Meta{})
	RegisterPlain[noParams]("registry_test_dup", func(_ context.Context, args map[string]any) (any, error) {
		return "second", nil
	}, Meta{})

	reg, errs := Build()
	require.Len(t, errs, 1)

	op, ok := reg.Plain("registry_test_dup")
	require.True(t, ok)
	out, _ := op.Invoke(context.Background(), nil)
	assert.Equal(t, "first", out)
}

func TestBuild_UnknownNameNotFound(t *testing.T) {
	resetPending(t)
	reg, _ := Build()
	_, ok := reg.Kind("does_not_exist")
	assert.False(t, ok)
}

// resetPending clears package-level registration state between tests so
// each test's expectations are independent of registration order.
func resetPending(t *testing.T) {
	t.Helper()
	pendingMu.Lock()
	pending = nil
	pendingMu.Unlock()
}
