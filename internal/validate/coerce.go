package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/danmuck/osclink/internal/protocol/ndarray"
	"github.com/danmuck/osclink/internal/signature"
)

func coerce(typ signature.DeclaredType, v any) (any, error) {
	switch typ.Kind {
	case signature.TypeAny, signature.TypeObject:
		return v, nil
	case signature.TypeInt:
		return toInt(v)
	case signature.TypeFloat:
		return toFloat(v)
	case signature.TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, fmt.Errorf("expected string, got %s", typeName(v))
	case signature.TypeBool:
		return toBool(v)
	case signature.TypeBytes:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
		return nil, fmt.Errorf("expected bytes, got %s", typeName(v))
	case signature.TypeSplat:
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected a group of values, got %s", typeName(v))
		}
		if typ.N > 0 && len(list) != typ.N {
			return nil, fmt.Errorf("expected %d values, got %d", typ.N, len(list))
		}
		return list, nil
	case signature.TypeNumericArray:
		switch x := v.(type) {
		case *ndarray.Array:
			return x, nil
		case []any:
			arr, err := ndarray.FromMap(map[string]any{"data": x})
			if err != nil {
				return nil, err
			}
			return arr, nil
		case map[string]any:
			arr, err := ndarray.FromMap(x)
			if err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("expected numeric array, got %s", typeName(v))
	}
	return nil, fmt.Errorf("unknown declared type %s", typ)
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1<<63 {
			return int64(x), nil
		}
		return nil, fmt.Errorf("expected int, got fractional number %v", x)
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected int, got %q", x)
		}
		return n, nil
	}
	return nil, fmt.Errorf("expected int, got %s", typeName(v))
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case bool:
		if x {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("expected float, got %q", x)
		}
		return f, nil
	}
	return nil, fmt.Errorf("expected float, got %s", typeName(v))
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "t", "yes", "y", "on":
			return true, nil
		case "0", "false", "f", "no", "n", "off":
			return false, nil
		}
	}
	return nil, fmt.Errorf("expected bool, got %s", describe(v))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case int64, int, int32:
		return "int"
	case float64, float32:
		return "float"
	case string:
		return "string"
	case []byte:
		return "bytes"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	case *ndarray.Array:
		return "ndarray"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func describe(v any) string {
	switch v.(type) {
	case string, int64, float64:
		return fmt.Sprintf("%s %v", typeName(v), v)
	}
	return typeName(v)
}
