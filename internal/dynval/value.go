package dynval

import (
	"strconv"
	"strings"
)

// Value is a resolved tag: a scalar, or a list of IDs for tags that name a
// set. Only a string that is exactly one tag can produce a list.
type Value struct {
	Scalar any
	List   []int64
	IsList bool
}

func scalar(v any) Value     { return Value{Scalar: v} }
func list(ids []int64) Value { return Value{List: ids, IsList: true} }

// Native returns the value in the shape a decoded JSON document would hold
// it: a string, an int64, or a []any of int64.
func (v Value) Native() any {
	if !v.IsList {
		if v.Scalar == nil {
			return ""
		}
		return v.Scalar
	}
	out := make([]any, len(v.List))
	for i, id := range v.List {
		out[i] = id
	}
	return out
}

// String is the textual form used when a tag is embedded in other text.
// Lists are comma joined.
func (v Value) String() string {
	if v.IsList {
		parts := make([]string, len(v.List))
		for i, id := range v.List {
			parts[i] = strconv.FormatInt(id, 10)
		}
		return strings.Join(parts, ",")
	}
	switch s := v.Scalar.(type) {
	case nil:
		return ""
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}
