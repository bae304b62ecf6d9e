package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// String renders a decoded JSON scalar as text. Maps and lists yield "".
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	}
	return ""
}

// Int reads a non-negative integer from a decoded scalar. Negative values
// yield their absolute value, and anything that does not parse yields 0.
func Int(v any) int64 {
	var n int64
	switch t := v.(type) {
	case float64:
		n = int64(t)
	case int:
		n = int64(t)
	case int64:
		n = t
	case int32:
		n = int64(t)
	case json.Number:
		n, _ = t.Int64()
	case string:
		s := strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			n = int64(f)
		}
	case bool:
		if t {
			n = 1
		}
	}
	if n < 0 {
		return -n
	}
	return n
}

// Bool reads a truthy value the way loosely typed documents express it.
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s != "" && s != "0" && s != "false"
	case nil:
		return false
	}
	return Int(v) != 0
}

// ParseIDList turns a comma or space separated string, or a list of scalars,
// into positive unique IDs in first-seen order.
func ParseIDList(v any) []int64 {
	var raw []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		raw = t
	case []int64:
		for _, id := range t {
			raw = append(raw, id)
		}
	case string:
		for _, part := range strings.FieldsFunc(t, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}) {
			raw = append(raw, part)
		}
	default:
		raw = []any{t}
	}

	seen := make(map[int64]bool, len(raw))
	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		id := Int(item)
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// Strings reads a list of scalars, or a single scalar, as text values.
func Strings(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := String(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []int64:
		out := make([]string, len(t))
		for i, id := range t {
			out[i] = strconv.FormatInt(id, 10)
		}
		return out
	}
	if s := String(v); s != "" {
		return []string{s}
	}
	return nil
}
