package mock

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hanpama/graphmock/internal/response"
	"github.com/hanpama/graphmock/internal/schema"
	"github.com/hanpama/graphmock/internal/validator"
)

// ScalarFunc produces the stand-in value for a scalar field. field is the
// schema field name and path the response path of the value.
type ScalarFunc func(field string, path response.Path) any

// pageSizeArguments are the argument names read as list length hints.
var pageSizeArguments = []string{"first", "last", "count", "limit", "size", "pageSize", "perPage", "take"}

// epoch anchors synthesized dates.
var epoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// pageHint returns the list length requested by a page-size argument,
// clamped to [1, max].
func pageHint(args map[string]any, max int) (int, bool) {
	for _, name := range pageSizeArguments {
		v, ok := args[name]
		if !ok {
			continue
		}
		n, ok := asInt(v)
		if !ok {
			continue
		}
		if n < 1 {
			n = 1
		}
		if n > max {
			n = max
		}
		return n, true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

// seed derives a stable number from a response path.
func seed(path response.Path) uint64 {
	h := fnv.New64a()
	h.Write([]byte(path.String()))
	return h.Sum64()
}

func (st *synthesis) synthesizeScalar(t *schema.Type, sel *validator.Selection, path response.Path) any {
	if fn, ok := st.scalars[t.Name]; ok {
		return fn(sel.Name, path)
	}
	return standIn(t.Name, sel.Name, path)
}

// standIn returns the default stand-in value for a scalar type.
func standIn(typeName, field string, path response.Path) any {
	n := seed(path)
	switch typeName {
	case "String":
		return fmt.Sprintf("%s %d", field, n%1000)
	case "Int":
		return int(n%100) + 1
	case "Float":
		return float64(n%100000) / 100
	case "Boolean":
		return n%2 == 0
	case "ID", "UUID":
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(path.String())).String()
	case "DateTime", "Timestamp":
		return dateOf(n).Format(time.RFC3339)
	case "Date":
		return dateOf(n).Format(time.DateOnly)
	case "Time":
		return dateOf(n).Format(time.TimeOnly)
	case "URL", "URI":
		return fmt.Sprintf("https://example.com/%s/%d", strings.ToLower(field), n%1000)
	case "Email":
		return fmt.Sprintf("%s%d@example.com", strings.ToLower(field), n%1000)
	case "JSON":
		return map[string]any{field: fmt.Sprintf("%s %d", field, n%1000)}
	case "BigInt", "Long":
		return int64(n % 1_000_000_000_000)
	default:
		return fmt.Sprintf("%s %d", field, n%1000)
	}
}

// dateOf spreads seeds over five years from epoch, whole seconds only.
func dateOf(n uint64) time.Time {
	const span = 5 * 365 * 24 * 60 * 60
	return epoch.Add(time.Duration(n%span) * time.Second)
}
