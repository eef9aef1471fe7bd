package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exampleParams struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count" node:"default=3"`
	Ratio   float64 `json:"ratio" node:"default=0.5"`
	Enabled bool    `json:"enabled" node:"default=true"`
	Color   string  `json:"color" node:"type=literal,enum=red|green|blue"`
	hidden  string  // unexported, must be skipped
}

func TestGenerate(t *testing.T) {
	params := Generate[exampleParams]()

	byName := make(map[string]Param, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}

	require.Contains(t, byName, "name")
	assert.Equal(t, TypeStr, byName["name"].Type)

	require.Contains(t, byName, "count")
	assert.Equal(t, TypeInt, byName["count"].Type)
	assert.EqualValues(t, 3, byName["count"].Default)

	require.Contains(t, byName, "ratio")
	assert.Equal(t, TypeFloat, byName["ratio"].Type)
	assert.EqualValues(t, 0.5, byName["ratio"].Default)

	require.Contains(t, byName, "enabled")
	assert.Equal(t, TypeBool, byName["enabled"].Type)
	assert.Equal(t, true, byName["enabled"].Default)

	require.Contains(t, byName, "color")
	assert.Equal(t, TypeLiteral, byName["color"].Type)
	assert.Equal(t, []string{"red", "green", "blue"}, byName["color"].LiteralValues)

	_, exported := byName["hidden"]
	assert.False(t, exported)
}

func TestGenerate_NonStructReturnsNil(t *testing.T) {
	assert.Nil(t, Generate[int]())
}
