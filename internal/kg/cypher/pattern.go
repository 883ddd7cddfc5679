package cypher

import (
	"fmt"
	"strconv"
	"strings"
)

// RefKind separates node references from edge references.
type RefKind int

const (
	NodeRef RefKind = iota
	EdgeRef
)

// Clause records which clause a pattern appeared under. The planner treats
// create/merge patterns as declarations and match patterns as bindings.
type Clause string

const (
	ClauseNone   Clause = ""
	ClauseMatch  Clause = "match"
	ClauseCreate Clause = "create"
	ClauseMerge  Clause = "merge"
)

// EntityRef is a node or edge pattern found in statement text, with enough
// span information to rewrite the text in place.
type EntityRef struct {
	Kind    RefKind
	Var     string
	Labels  []string // node references
	RelType string   // edge references
	Props   PropList
	Src     string // edge endpoint variables
	Dst     string
	SrcIdx  int // indices of the endpoint refs within the statement; -1 for nodes
	DstIdx  int
	Clause  Clause

	Start      int // byte span of the whole pattern
	End        int
	PropsStart int // span of the {...} map including braces; -1 when absent
	PropsEnd   int
	InsertAt   int // where a property map could be inserted (before ')' or ']')
}

// IsBareVar reports a pattern like (a): a variable reference with no label,
// type, or properties. Those refer to earlier bindings and are never tagged.
func (r EntityRef) IsBareVar() bool {
	return r.Kind == NodeRef && len(r.Labels) == 0 && len(r.Props) == 0 && r.Var != ""
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func skipSpace(src string, pos int) int {
	for pos < len(src) {
		switch src[pos] {
		case ' ', '\t', '\r', '\n':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func scanIdent(src string, pos int) (string, int) {
	start := pos
	if pos >= len(src) || !isIdentStart(src[pos]) {
		return "", pos
	}
	for pos < len(src) && isIdentPart(src[pos]) {
		pos++
	}
	return src[start:pos], pos
}

// scanString consumes a quoted literal starting at pos and returns the
// unescaped content. src[pos] must be the opening quote.
func scanString(src string, pos int) (string, int, error) {
	q := src[pos]
	pos++
	var b strings.Builder
	for pos < len(src) {
		c := src[pos]
		if c == '\\' && pos+1 < len(src) {
			b.WriteByte(src[pos+1])
			pos += 2
			continue
		}
		if c == q {
			return b.String(), pos + 1, nil
		}
		b.WriteByte(c)
		pos++
	}
	return "", pos, fmt.Errorf("unterminated string literal")
}

func parseValue(src string, pos int) (Value, int, error) {
	pos = skipSpace(src, pos)
	if pos >= len(src) {
		return Value{}, pos, fmt.Errorf("expected value")
	}
	c := src[pos]
	switch {
	case c == '\'' || c == '"':
		s, next, err := scanString(src, pos)
		if err != nil {
			return Value{}, next, err
		}
		return StringValue(s), next, nil

	case c == '[':
		pos++
		var items []Value
		for {
			pos = skipSpace(src, pos)
			if pos < len(src) && src[pos] == ']' {
				return ListValue(items...), pos + 1, nil
			}
			v, next, err := parseValue(src, pos)
			if err != nil {
				return Value{}, next, err
			}
			items = append(items, v)
			pos = skipSpace(src, next)
			if pos < len(src) && src[pos] == ',' {
				pos++
				continue
			}
			if pos < len(src) && src[pos] == ']' {
				return ListValue(items...), pos + 1, nil
			}
			return Value{}, pos, fmt.Errorf("expected ',' or ']' in list literal")
		}

	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		start := pos
		pos++
		for pos < len(src) {
			c := src[pos]
			if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' ||
				((c == '-' || c == '+') && (src[pos-1] == 'e' || src[pos-1] == 'E')) {
				pos++
				continue
			}
			break
		}
		f, err := strconv.ParseFloat(src[start:pos], 64)
		if err != nil {
			return Value{}, pos, fmt.Errorf("bad number literal %q", src[start:pos])
		}
		return NumberValue(f), pos, nil

	case isIdentStart(c):
		word, next := scanIdent(src, pos)
		switch strings.ToLower(word) {
		case "true":
			return BoolValue(true), next, nil
		case "false":
			return BoolValue(false), next, nil
		case "null":
			return StringValue(""), next, nil
		}
		return Value{}, pos, fmt.Errorf("unsupported value token %q", word)
	}
	return Value{}, pos, fmt.Errorf("unsupported value starting with %q", string(c))
}

// parseProps consumes a {key: value, ...} map. src[pos] must be '{'.
// Returns the list plus the position just past the closing brace.
func parseProps(src string, pos int) (PropList, int, error) {
	pos++ // '{'
	var props PropList
	for {
		pos = skipSpace(src, pos)
		if pos < len(src) && src[pos] == '}' {
			return props, pos + 1, nil
		}
		key, next := scanIdent(src, pos)
		if key == "" {
			return nil, pos, fmt.Errorf("expected property key")
		}
		pos = skipSpace(src, next)
		if pos >= len(src) || src[pos] != ':' {
			return nil, pos, fmt.Errorf("expected ':' after property key %q", key)
		}
		v, next, err := parseValue(src, pos+1)
		if err != nil {
			return nil, next, err
		}
		props = append(props, Prop{Key: key, Val: v})
		pos = skipSpace(src, next)
		if pos < len(src) && src[pos] == ',' {
			pos++
			continue
		}
		if pos < len(src) && src[pos] == '}' {
			return props, pos + 1, nil
		}
		return nil, pos, fmt.Errorf("expected ',' or '}' in property map")
	}
}

// parseNodePattern tries to read (var:Label {props}) starting at the opening
// parenthesis. It fails (without consuming input) on anything that is not a
// node pattern, such as arithmetic grouping or function arguments.
func parseNodePattern(src string, pos int) (EntityRef, int, bool) {
	ref := EntityRef{Kind: NodeRef, Start: pos, PropsStart: -1, PropsEnd: -1, SrcIdx: -1, DstIdx: -1}
	i := skipSpace(src, pos+1)

	if v, next := scanIdent(src, i); v != "" {
		ref.Var = v
		i = next
	}
	for {
		i = skipSpace(src, i)
		if i < len(src) && src[i] == ':' {
			label, next := scanIdent(src, skipSpace(src, i+1))
			if label == "" {
				return EntityRef{}, pos, false
			}
			ref.Labels = append(ref.Labels, label)
			i = next
			continue
		}
		break
	}
	i = skipSpace(src, i)
	if i < len(src) && src[i] == '{' {
		props, next, err := parseProps(src, i)
		if err != nil {
			return EntityRef{}, pos, false
		}
		ref.PropsStart = i
		ref.PropsEnd = next
		ref.Props = props
		i = skipSpace(src, next)
	}
	if i >= len(src) || src[i] != ')' {
		return EntityRef{}, pos, false
	}
	ref.InsertAt = i
	ref.End = i + 1
	return ref, i + 1, true
}

// parseEdgePattern tries to read -[var:TYPE {props}]-> (either direction)
// starting at the '-' or '<' that follows a node pattern.
func parseEdgePattern(src string, pos int) (ref EntityRef, next int, pointsLeft bool, ok bool) {
	ref = EntityRef{Kind: EdgeRef, Start: pos, PropsStart: -1, PropsEnd: -1, SrcIdx: -1, DstIdx: -1}
	i := pos
	if i < len(src) && src[i] == '<' {
		pointsLeft = true
		i++
	}
	if i >= len(src) || src[i] != '-' {
		return EntityRef{}, pos, false, false
	}
	i = skipSpace(src, i+1)
	if i >= len(src) || src[i] != '[' {
		return EntityRef{}, pos, false, false
	}
	i = skipSpace(src, i+1)
	if v, n := scanIdent(src, i); v != "" {
		ref.Var = v
		i = n
	}
	i = skipSpace(src, i)
	if i < len(src) && src[i] == ':' {
		t, n := scanIdent(src, skipSpace(src, i+1))
		if t == "" {
			return EntityRef{}, pos, false, false
		}
		ref.RelType = t
		i = n
	}
	i = skipSpace(src, i)
	if i < len(src) && src[i] == '{' {
		props, n, err := parseProps(src, i)
		if err != nil {
			return EntityRef{}, pos, false, false
		}
		ref.PropsStart = i
		ref.PropsEnd = n
		ref.Props = props
		i = skipSpace(src, n)
	}
	if i >= len(src) || src[i] != ']' {
		return EntityRef{}, pos, false, false
	}
	ref.InsertAt = i
	i++
	if i >= len(src) || src[i] != '-' {
		return EntityRef{}, pos, false, false
	}
	i++
	if !pointsLeft && i < len(src) && src[i] == '>' {
		i++
	}
	ref.End = i
	return ref, i, pointsLeft, true
}

// skipParenGroup advances past a balanced parenthesized group, honoring
// string literals. Used to step over function calls and grouping that are
// not node patterns.
func skipParenGroup(src string, pos int) int {
	depth := 0
	for pos < len(src) {
		switch src[pos] {
		case '\'', '"':
			_, next, err := scanString(src, pos)
			if err != nil {
				return len(src)
			}
			pos = next
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return pos + 1
			}
		}
		pos++
	}
	return pos
}
