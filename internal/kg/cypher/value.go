package cypher

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueKind discriminates the property value union.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueBool
	ValueList
)

// Value is a property value as it appears in statement text. Keeping an
// explicit union (rather than interface{}) makes list and string literal
// handling unambiguous when statements are rewritten.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	List []Value
}

func StringValue(s string) Value  { return Value{Kind: ValueString, Str: s} }
func NumberValue(f float64) Value { return Value{Kind: ValueNumber, Num: f} }
func BoolValue(b bool) Value      { return Value{Kind: ValueBool, Bool: b} }
func ListValue(vs ...Value) Value { return Value{Kind: ValueList, List: vs} }

// Literal renders the value back into statement text. Strings are single
// quoted with embedded quotes and backslashes escaped.
func (v Value) Literal() string {
	switch v.Kind {
	case ValueString:
		return quote(v.Str)
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueList:
		parts := make([]string, 0, len(v.List))
		for _, item := range v.List {
			parts = append(parts, item.Literal())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "''"
}

// Canonical returns a stable text form used when composing identity keys.
// Unlike Literal it does not quote strings, so 'Alice' and "Alice" compare equal.
func (v Value) Canonical() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueList:
		parts := make([]string, 0, len(v.List))
		for _, item := range v.List {
			parts = append(parts, item.Canonical())
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return ""
}

func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	default:
		return v.Str == other.Str && v.Num == other.Num && v.Bool == other.Bool
	}
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// Prop is one key/value pair of a property map. Order is preserved so
// rewritten statements keep the source's property order.
type Prop struct {
	Key string
	Val Value
}

type PropList []Prop

func (ps PropList) Get(key string) (Value, bool) {
	for _, p := range ps {
		if p.Key == key {
			return p.Val, true
		}
	}
	return Value{}, false
}

func (ps PropList) Has(key string) bool {
	_, ok := ps.Get(key)
	return ok
}

// Literal renders the whole map, e.g. {name: 'Alice', kg: 'social'}.
func (ps PropList) Literal() string {
	if len(ps) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Key, p.Val.Literal()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
