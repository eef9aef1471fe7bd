package coerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodegraph/nodegraph-server/internal/schema"
)

func TestValue_Idempotence(t *testing.T) {
	cases := []struct {
		name string
		typ  schema.Type
		in   any
	}{
		{"int", schema.TypeInt, int64(7)},
		{"float", schema.TypeFloat, 3.5},
		{"str", schema.TypeStr, "hello"},
		{"bool", schema.TypeBool, true},
		{"list", schema.TypeList, []any{"a", "b"}},
		{"dict", schema.TypeDict, map[string]any{"k": "v"}},
		{"any", schema.TypeAny, 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Value(tc.typ, tc.in, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.in, out)
		})
	}
}

func TestValue_StringConversions(t *testing.T) {
	out, err := Value(schema.TypeInt, "41", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(41), out)

	out, err = Value(schema.TypeFloat, "3.25", nil)
	require.NoError(t, err)
	assert.Equal(t, 3.25, out)

	out, err = Value(schema.TypeBool, "true", nil)
	require.NoError(t, err)
	assert.Equal(t, true, out)
}

func TestValue_BoolNeverCoercesThroughInt(t *testing.T) {
	_, err := Value(schema.TypeInt, true, nil)
	assert.Error(t, err)

	_, err = Value(schema.TypeFloat, false, nil)
	assert.Error(t, err)

	_, err = Value(schema.TypeBool, 1, nil)
	assert.Error(t, err)
}

func TestValue_ListFromJSONString(t *testing.T) {
	out, err := Value(schema.TypeList, `[1,2,3]`, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, out)
}

func TestValue_ListFromRepairableJSON(t *testing.T) {
	out, err := Value(schema.TypeList, `[1,2,3,]`, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, out)
}

func TestValue_DictFromJSONString(t *testing.T) {
	out, err := Value(schema.TypeDict, `{"a":1}`, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0}, out)
}

func TestValue_Literal(t *testing.T) {
	out, err := Value(schema.TypeLiteral, "red", []string{"red", "green", "blue"})
	require.NoError(t, err)
	assert.Equal(t, "red", out)

	_, err = Value(schema.TypeLiteral, "purple", []string{"red", "green", "blue"})
	assert.Error(t, err)
}

func TestValue_Image(t *testing.T) {
	out, err := Value(schema.TypeImage, "data:image/png;base64,AAAA", nil)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", out)

	_, err = Value(schema.TypeImage, 123, nil)
	assert.Error(t, err)
}
