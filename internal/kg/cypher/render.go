package cypher

import "strings"

// NodePattern renders (v:Label {props}). Empty parts are omitted.
func NodePattern(varName string, labels []string, props PropList) string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(varName)
	for _, l := range labels {
		b.WriteByte(':')
		b.WriteString(l)
	}
	if len(props) > 0 {
		if b.Len() > 1 {
			b.WriteByte(' ')
		}
		b.WriteString(props.Literal())
	}
	b.WriteByte(')')
	return b.String()
}

// EdgePattern renders -[v:TYPE {props}]-> for insertion between two node
// patterns. Direction is always left to right; callers order the endpoints.
func EdgePattern(varName, relType string, props PropList) string {
	var b strings.Builder
	b.WriteString("-[")
	b.WriteString(varName)
	if relType != "" {
		b.WriteByte(':')
		b.WriteString(relType)
	}
	if len(props) > 0 {
		b.WriteByte(' ')
		b.WriteString(props.Literal())
	}
	b.WriteString("]->")
	return b.String()
}

// RenderRef renders a node or edge reference in isolation.
func RenderRef(r EntityRef) string {
	if r.Kind == EdgeRef {
		return EdgePattern(r.Var, r.RelType, r.Props)
	}
	return NodePattern(r.Var, r.Labels, r.Props)
}

// InsertProp splices key: value into the pattern at ref's span inside raw,
// returning the rewritten statement text. When the pattern already has a
// property map the pair is appended to it; otherwise a new map is added
// just before the closing delimiter.
func InsertProp(raw string, ref EntityRef, key string, val Value) string {
	pair := key + ": " + val.Literal()
	if ref.PropsStart >= 0 {
		// Insert before the closing brace.
		at := ref.PropsEnd - 1
		sep := ", "
		if len(ref.Props) == 0 {
			sep = ""
		}
		return raw[:at] + sep + pair + raw[at:]
	}
	at := ref.InsertAt
	lead := " "
	if at > 0 && (raw[at-1] == '(' || raw[at-1] == '[') {
		lead = ""
	}
	return raw[:at] + lead + "{" + pair + "}" + raw[at:]
}
