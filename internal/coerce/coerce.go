// Package coerce implements the Type Coercer: it turns raw, client-supplied
// parameter values (typically JSON-decoded primitives or strings) into
// values of an operation's declared parameter type. Coercion failure is
// always a node-level error, never a schema or registry error — the
// caller is expected to wrap a returned error as such.
package coerce

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kaptinlin/jsonrepair"

	"github.com/nodegraph/nodegraph-server/internal/schema"
)

// Error describes a single parameter coercion failure.
type Error struct {
	Param string
	Type  schema.Type
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("coerce parameter %q to %s: %v", e.Param, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Value coerces raw into a value of declared type t. literalValues is only
// consulted when t is schema.TypeLiteral.
func Value(t schema.Type, raw any, literalValues []string) (any, error) {
	switch t {
	case schema.TypeInt:
		return coerceInt(raw)
	case schema.TypeFloat:
		return coerceFloat(raw)
	case schema.TypeStr:
		return coerceStr(raw)
	case schema.TypeBool:
		return coerceBool(raw)
	case schema.TypeList:
		return coerceJSONShaped[[]any](raw)
	case schema.TypeDict:
		return coerceJSONShaped[map[string]any](raw)
	case schema.TypeLiteral:
		return coerceLiteral(raw, literalValues)
	case schema.TypeImage:
		return coerceImage(raw)
	case schema.TypeAny:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown declared type %q", t)
	}
}

func coerceInt(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		// A boolean source is never coerced through the integer conversion,
		// even though true/false would convert cleanly to 1/0.
		return nil, fmt.Errorf("boolean value %v cannot be coerced to int", v)
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q as int: %w", v, err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to int", raw)
	}
}

func coerceFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return nil, fmt.Errorf("boolean value %v cannot be coerced to float", v)
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q as float: %w", v, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to float", raw)
	}
}

func coerceStr(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("parse %q as bool: %w", v, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to bool", raw)
	}
}

// coerceJSONShaped passes raw through unchanged if it already has shape T,
// otherwise parses it (expecting a JSON string), repairing malformed JSON
// before giving up.
func coerceJSONShaped[T any](raw any) (any, error) {
	if v, ok := raw.(T); ok {
		return v, nil
	}

	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %T to %T", raw, *new(T))
	}

	var out T
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out, nil
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON and repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON even after repair: %w", err)
	}
	return out, nil
}

func coerceLiteral(raw any, literalValues []string) (any, error) {
	s, err := coerceStr(raw)
	if err != nil {
		return nil, err
	}
	str := s.(string)
	for _, v := range literalValues {
		if v == str {
			return str, nil
		}
	}
	return nil, fmt.Errorf("value %q is not one of the admissible literal values %v", str, literalValues)
}

func coerceImage(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %T to image (expected a data-URL string)", raw)
	}
	return s, nil
}
