package cypher

import "strings"

// Kind classifies a statement by the mutation clauses it carries.
type Kind int

const (
	KindRead Kind = iota
	KindMatch
	KindCreate
	KindMerge
	KindMatchCreate
	KindMatchMerge
)

func (k Kind) String() string {
	switch k {
	case KindMatch:
		return "match"
	case KindCreate:
		return "create"
	case KindMerge:
		return "merge"
	case KindMatchCreate:
		return "match_create"
	case KindMatchMerge:
		return "match_merge"
	}
	return "read"
}

// Mutates reports whether executing the statement writes to the store.
func (k Kind) Mutates() bool {
	switch k {
	case KindCreate, KindMerge, KindMatchCreate, KindMatchMerge:
		return true
	}
	return false
}

// Statement is one executable unit of a batch: its text plus the metadata
// the tagger, planner, and resolver need. Refs hold byte spans into Raw, so
// a Statement must be re-parsed after any text rewrite.
type Statement struct {
	Raw             string
	Kind            Kind
	HasResultClause bool
	Refs            []EntityRef
}

// Parse scans a single statement (already split and comment-free) and
// extracts its clause structure and entity references. It is deliberately
// not a full grammar: anything that does not look like a node or edge
// pattern is stepped over untouched.
func Parse(raw string) *Statement {
	st := &Statement{Raw: raw}

	var hasMatch, hasCreate, hasMerge bool
	clause := ClauseNone
	pos := 0
	prevIdentEnd := -1 // end offset of the last identifier, to spot calls like count(...)
	prevKeyword := false

	for pos < len(raw) {
		c := raw[pos]
		switch {
		case c == '\'' || c == '"':
			_, next, err := scanString(raw, pos)
			if err != nil {
				pos = len(raw)
				continue
			}
			pos = next

		case isIdentStart(c):
			word, next := scanIdent(raw, pos)
			prevKeyword = true
			switch strings.ToUpper(word) {
			case "MATCH":
				hasMatch = true
				clause = ClauseMatch
			case "CREATE":
				hasCreate = true
				clause = ClauseCreate
			case "MERGE":
				hasMerge = true
				clause = ClauseMerge
			case "RETURN":
				st.HasResultClause = true
				clause = ClauseNone
			case "OPTIONAL":
				// clause set by the MATCH that follows
			case "WHERE", "WITH", "SET", "DELETE", "DETACH", "UNWIND", "ORDER", "LIMIT":
				clause = ClauseNone
			default:
				prevKeyword = false
			}
			prevIdentEnd = next
			pos = next

		case c == '(':
			if prevIdentEnd == pos && !prevKeyword {
				// Function call, e.g. count(r) or type(r); not a pattern.
				pos = skipParenGroup(raw, pos)
				prevIdentEnd = -1
				continue
			}
			pos = st.parseChain(raw, pos, clause)
			prevIdentEnd = -1

		default:
			prevIdentEnd = -1
			pos++
		}
	}

	st.Kind = classify(hasMatch, hasCreate, hasMerge, st.HasResultClause)
	return st
}

// parseChain reads a node pattern and any (edge, node) pairs chained onto
// it, recording refs in source order. Returns the position after the chain,
// or after the skipped group when the text is not a pattern.
func (st *Statement) parseChain(raw string, pos int, clause Clause) int {
	node, next, ok := parseNodePattern(raw, pos)
	if !ok {
		return skipParenGroup(raw, pos)
	}
	node.Clause = clause
	st.Refs = append(st.Refs, node)
	lastIdx := len(st.Refs) - 1

	for {
		i := skipSpace(raw, next)
		if i >= len(raw) || (raw[i] != '-' && raw[i] != '<') {
			return next
		}
		edge, afterEdge, pointsLeft, ok := parseEdgePattern(raw, i)
		if !ok {
			return next
		}
		to, afterNode, ok := parseNodePattern(raw, skipSpace(raw, afterEdge))
		if !ok {
			return next
		}
		edge.Clause = clause
		to.Clause = clause
		edgeIdx := len(st.Refs)
		toIdx := edgeIdx + 1
		if pointsLeft {
			edge.Src, edge.Dst = to.Var, st.Refs[lastIdx].Var
			edge.SrcIdx, edge.DstIdx = toIdx, lastIdx
		} else {
			edge.Src, edge.Dst = st.Refs[lastIdx].Var, to.Var
			edge.SrcIdx, edge.DstIdx = lastIdx, toIdx
		}
		st.Refs = append(st.Refs, edge, to)
		lastIdx = toIdx
		next = afterNode
	}
}

func classify(hasMatch, hasCreate, hasMerge, hasReturn bool) Kind {
	switch {
	case hasMatch && hasMerge:
		return KindMatchMerge
	case hasMatch && hasCreate:
		return KindMatchCreate
	case hasMerge:
		// A statement mixing CREATE and MERGE without MATCH is treated as
		// merge-kind: upsert semantics dominate for replay safety.
		return KindMerge
	case hasCreate:
		return KindCreate
	case hasMatch:
		return KindMatch
	}
	return KindRead
}

// Nodes returns the node references in source order.
func (st *Statement) Nodes() []EntityRef {
	var out []EntityRef
	for _, r := range st.Refs {
		if r.Kind == NodeRef {
			out = append(out, r)
		}
	}
	return out
}

// Edges returns the edge references in source order.
func (st *Statement) Edges() []EntityRef {
	var out []EntityRef
	for _, r := range st.Refs {
		if r.Kind == EdgeRef {
			out = append(out, r)
		}
	}
	return out
}

// Declared returns the references this statement brings into existence:
// patterns under a CREATE or MERGE clause that carry a label, type, or
// properties of their own.
func (st *Statement) Declared() []EntityRef {
	var out []EntityRef
	for _, r := range st.Refs {
		if r.Clause != ClauseCreate && r.Clause != ClauseMerge {
			continue
		}
		if r.Kind == NodeRef && r.IsBareVar() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// BoundVars maps every variable the statement binds (in any clause) to its
// node reference. Edge variables are excluded: they cannot anchor endpoints.
func (st *Statement) BoundVars() map[string]EntityRef {
	out := make(map[string]EntityRef)
	for _, r := range st.Refs {
		if r.Kind == NodeRef && r.Var != "" && !r.IsBareVar() {
			if _, seen := out[r.Var]; !seen {
				out[r.Var] = r
			}
		}
	}
	return out
}

// VarNames lists distinct node variables in source order; the resolver uses
// this to map result columns back to handles.
func (st *Statement) VarNames() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range st.Refs {
		if r.Var == "" || seen[r.Var] {
			continue
		}
		seen[r.Var] = true
		out = append(out, r.Var)
	}
	return out
}
