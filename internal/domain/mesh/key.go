// Package mesh builds the content mesh: an in-memory graph of content nodes,
// one per fetched record, linked by the relations the schema declares.
//
// A mesh is built once per ingestion run from fully fetched collections and
// is read-only afterwards, so it may be shared freely between goroutines.
package mesh

import (
	"encoding/json"
	"strconv"
)

// Record is one fetched item, as decoded from the content API.
type Record map[string]any

// KeyOf normalises a primary or foreign key value to its string form.
//
// Strings are used as is, numbers are formatted without exponent or trailing
// zeros, and an expanded related object is reduced to its pkField value.
// The second result is false for nil, empty, or unsupported values.
func KeyOf(v any, pkField string) (string, bool) {
	switch k := v.(type) {
	case nil:
		return "", false
	case string:
		return k, k != ""
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(k), 'f', -1, 32), true
	case json.Number:
		return k.String(), k != ""
	case int:
		return strconv.Itoa(k), true
	case int32:
		return strconv.FormatInt(int64(k), 10), true
	case int64:
		return strconv.FormatInt(k, 10), true
	case uint:
		return strconv.FormatUint(uint64(k), 10), true
	case uint64:
		return strconv.FormatUint(k, 10), true
	case Record:
		return KeyOf(k[pkField], pkField)
	case map[string]any:
		return KeyOf(k[pkField], pkField)
	default:
		return "", false
	}
}
