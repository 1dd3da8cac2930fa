// Package listing derives the visible page of a list screen from a full
// snapshot of entities: free-text filter, optional category filter, stable
// sort and pagination. Every function is pure and safe for concurrent use.
package listing

import (
	"fmt"
	"strconv"
	"time"
)

// Record is a row whose fields can be looked up by their wire name.
// Field reports false when the field is absent or holds no value.
type Record interface {
	Field(name string) (any, bool)
}

// Entity is a loosely typed row, for example a decoded JSON object.
type Entity map[string]any

// Field implements Record.
func (e Entity) Field(name string) (any, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String renders a field value the way it is compared during search and sort.
func String(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
