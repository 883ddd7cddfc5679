package memstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/storygraph/kgraph-backend/internal/graphstore"
	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
)

// bound is one variable binding within a result row under construction.
type bound struct {
	isEdge bool
	id     int64
}

type env map[string]bound

func (e env) clone() env {
	out := make(env, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	return out
}

// run evaluates one statement. Callers hold the store lock.
func (s *Store) run(text string) (*graphstore.RowSet, error) {
	st := cypher.Parse(text)
	tail, err := parseTail(text)
	if err != nil {
		return nil, err
	}

	rows := []env{{}}
	stats := graphstore.Stats{}
	processed := make([]bool, len(st.Refs))

	for i, ref := range st.Refs {
		if processed[i] {
			continue
		}
		if ref.Kind == cypher.NodeRef {
			rows, err = s.stepNode(rows, st.Refs, i, &stats)
			processed[i] = true
		} else {
			// Endpoints first, whichever side of the arrow they are on.
			for _, j := range []int{ref.SrcIdx, ref.DstIdx} {
				if j >= 0 && j < len(st.Refs) && !processed[j] {
					if rows, err = s.stepNode(rows, st.Refs, j, &stats); err != nil {
						return nil, err
					}
					processed[j] = true
				}
			}
			rows, err = s.stepEdge(rows, st.Refs, i, &stats)
			processed[i] = true
		}
		if err != nil {
			return nil, err
		}
	}

	if len(tail.deleteVars) > 0 {
		s.applyDelete(rows, tail, &stats)
	}

	rs := &graphstore.RowSet{Stats: stats}
	if len(tail.returnItems) > 0 {
		if err := s.project(rs, rows, tail); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// stepNode expands each row by the candidate nodes matching the pattern at
// refs[idx], honoring its clause. Anonymous patterns bind under a synthetic
// name so edges can anchor to them.
func (s *Store) stepNode(rows []env, refs []cypher.EntityRef, idx int, stats *graphstore.Stats) ([]env, error) {
	ref := refs[idx]
	name := bindName(ref.Var, idx)

	if ref.IsBareVar() {
		var out []env
		for _, row := range rows {
			if _, ok := row[ref.Var]; ok {
				out = append(out, row)
				continue
			}
			// Declarations must reference an earlier binding; match clauses
			// scan the whole graph.
			if ref.Clause == cypher.ClauseCreate || ref.Clause == cypher.ClauseMerge {
				return nil, fmt.Errorf("variable %q is not bound", ref.Var)
			}
			for _, id := range s.nodeIDs() {
				next := row.clone()
				next[ref.Var] = bound{id: id}
				out = append(out, next)
			}
		}
		return out, nil
	}

	var out []env
	for _, row := range rows {
		if b, ok := row[name]; ok {
			// Re-reference of an already bound variable: keep the row only if
			// the bound node still matches the pattern.
			if n := s.nodes[b.id]; n != nil && n.matches(ref.Labels, ref.Props) {
				out = append(out, row)
			}
			continue
		}
		switch ref.Clause {
		case cypher.ClauseCreate:
			n := s.newNode(ref.Labels, ref.Props)
			stats.NodesCreated++
			next := row.clone()
			next[name] = bound{id: n.id}
			out = append(out, next)

		case cypher.ClauseMerge:
			matched := false
			for _, id := range s.nodeIDs() {
				if s.nodes[id].matches(ref.Labels, ref.Props) {
					next := row.clone()
					next[name] = bound{id: id}
					out = append(out, next)
					matched = true
					break
				}
			}
			if !matched {
				n := s.newNode(ref.Labels, ref.Props)
				stats.NodesCreated++
				next := row.clone()
				next[name] = bound{id: n.id}
				out = append(out, next)
			}

		default: // match and read clauses filter
			for _, id := range s.nodeIDs() {
				if s.nodes[id].matches(ref.Labels, ref.Props) {
					next := row.clone()
					next[name] = bound{id: id}
					out = append(out, next)
				}
			}
		}
	}
	return out, nil
}

func (s *Store) stepEdge(rows []env, refs []cypher.EntityRef, idx int, stats *graphstore.Stats) ([]env, error) {
	ref := refs[idx]
	name := bindName(ref.Var, idx)
	srcName := endpointName(refs, ref.SrcIdx, ref.Src)
	dstName := endpointName(refs, ref.DstIdx, ref.Dst)

	var out []env
	for _, row := range rows {
		src, okSrc := row[srcName]
		dst, okDst := row[dstName]
		if !okSrc || !okDst {
			return nil, fmt.Errorf("edge endpoint %q or %q is not bound", srcName, dstName)
		}
		switch ref.Clause {
		case cypher.ClauseCreate:
			e := s.newEdge(ref.RelType, ref.Props, src.id, dst.id)
			stats.EdgesCreated++
			next := row.clone()
			next[name] = bound{isEdge: true, id: e.id}
			out = append(out, next)

		case cypher.ClauseMerge:
			matched := false
			for _, id := range s.edgeIDs() {
				e := s.edges[id]
				if e.src == src.id && e.dst == dst.id && e.matches(ref.RelType, ref.Props) {
					next := row.clone()
					next[name] = bound{isEdge: true, id: id}
					out = append(out, next)
					matched = true
					break
				}
			}
			if !matched {
				e := s.newEdge(ref.RelType, ref.Props, src.id, dst.id)
				stats.EdgesCreated++
				next := row.clone()
				next[name] = bound{isEdge: true, id: e.id}
				out = append(out, next)
			}

		default:
			for _, id := range s.edgeIDs() {
				e := s.edges[id]
				if e.src == src.id && e.dst == dst.id && e.matches(ref.RelType, ref.Props) {
					next := row.clone()
					next[name] = bound{isEdge: true, id: id}
					out = append(out, next)
				}
			}
		}
	}
	return out, nil
}

func (s *Store) applyDelete(rows []env, tail tailClauses, stats *graphstore.Stats) {
	deletedNodes := make(map[int64]bool)
	deletedEdges := make(map[int64]bool)
	for _, row := range rows {
		for _, v := range tail.deleteVars {
			b, ok := row[v]
			if !ok {
				continue
			}
			if b.isEdge {
				deletedEdges[b.id] = true
				continue
			}
			deletedNodes[b.id] = true
			if tail.detach {
				for id, e := range s.edges {
					if e.src == b.id || e.dst == b.id {
						deletedEdges[id] = true
					}
				}
			}
		}
	}
	for id := range deletedEdges {
		delete(s.edges, id)
		stats.EdgesDeleted++
	}
	for id := range deletedNodes {
		delete(s.nodes, id)
		stats.NodesDeleted++
	}
}

func bindName(varName string, idx int) string {
	if varName != "" {
		return varName
	}
	return "#" + strconv.Itoa(idx)
}

func endpointName(refs []cypher.EntityRef, idx int, varName string) string {
	if idx >= 0 && idx < len(refs) && refs[idx].Var != "" {
		return refs[idx].Var
	}
	if varName != "" {
		return varName
	}
	return "#" + strconv.Itoa(idx)
}

// project builds the result rows for a RETURN clause. Items are plain
// variables, var.prop projections, type(var), or count(...) aggregates; a
// count item groups the rows by the remaining items, Cypher style.
func (s *Store) project(rs *graphstore.RowSet, rows []env, tail tailClauses) error {
	rs.Columns = append([]string(nil), tail.returnItems...)

	hasCount := false
	for _, item := range tail.returnItems {
		if isCountItem(item) {
			hasCount = true
		}
	}

	if hasCount {
		type group struct {
			row   graphstore.Row
			count float64
		}
		groups := make(map[string]*group)
		var order []string
		for _, row := range rows {
			out := graphstore.Row{}
			var keyParts []string
			for _, item := range tail.returnItems {
				if isCountItem(item) {
					continue
				}
				v, err := s.evalItem(row, item)
				if err != nil {
					return err
				}
				out[item] = v
				keyParts = append(keyParts, fmt.Sprint(v))
			}
			key := strings.Join(keyParts, "\x1f")
			g, ok := groups[key]
			if !ok {
				g = &group{row: out}
				groups[key] = g
				order = append(order, key)
			}
			g.count++
		}
		for _, key := range order {
			g := groups[key]
			for _, item := range tail.returnItems {
				if isCountItem(item) {
					g.row[item] = g.count
				}
			}
			rs.Rows = append(rs.Rows, g.row)
		}
	} else {
		for _, row := range rows {
			out := graphstore.Row{}
			for _, item := range tail.returnItems {
				v, err := s.evalItem(row, item)
				if err != nil {
					return err
				}
				out[item] = v
			}
			rs.Rows = append(rs.Rows, out)
		}
	}

	if tail.orderBy != "" {
		col := tail.orderBy
		sort.SliceStable(rs.Rows, func(i, j int) bool {
			less := lessValue(rs.Rows[i][col], rs.Rows[j][col])
			if tail.orderDesc {
				return lessValue(rs.Rows[j][col], rs.Rows[i][col])
			}
			return less
		})
	}
	if tail.limit >= 0 && len(rs.Rows) > tail.limit {
		rs.Rows = rs.Rows[:tail.limit]
	}
	return nil
}

func (s *Store) evalItem(row env, item string) (any, error) {
	switch {
	case strings.HasPrefix(item, "type(") && strings.HasSuffix(item, ")"):
		v := strings.TrimSpace(item[len("type(") : len(item)-1])
		b, ok := row[v]
		if !ok || !b.isEdge {
			return nil, fmt.Errorf("type() argument %q is not a bound relationship", v)
		}
		if e := s.edges[b.id]; e != nil {
			return e.relType, nil
		}
		return nil, nil

	case strings.Contains(item, "."):
		parts := strings.SplitN(item, ".", 2)
		b, ok := row[strings.TrimSpace(parts[0])]
		if !ok {
			return nil, fmt.Errorf("variable %q is not bound", parts[0])
		}
		key := strings.TrimSpace(parts[1])
		if b.isEdge {
			if e := s.edges[b.id]; e != nil {
				if v, ok := e.props[key]; ok {
					return valueToAny(v), nil
				}
			}
			return nil, nil
		}
		if n := s.nodes[b.id]; n != nil {
			if v, ok := n.props[key]; ok {
				return valueToAny(v), nil
			}
		}
		return nil, nil

	default:
		b, ok := row[item]
		if !ok {
			return nil, fmt.Errorf("variable %q is not bound", item)
		}
		if b.isEdge {
			if e := s.edges[b.id]; e != nil {
				return e.entity(), nil
			}
		} else if n := s.nodes[b.id]; n != nil {
			return n.entity(), nil
		}
		return nil, nil
	}
}

func isCountItem(item string) bool {
	return strings.HasPrefix(item, "count(") && strings.HasSuffix(item, ")")
}

func lessValue(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

// tailClauses holds the non-pattern clauses of a statement.
type tailClauses struct {
	returnItems []string
	orderBy     string
	orderDesc   bool
	limit       int
	deleteVars  []string
	detach      bool
}

// parseTail scans the statement text for RETURN, ORDER BY, LIMIT, and
// (DETACH) DELETE clauses, skipping string literals.
func parseTail(text string) (tailClauses, error) {
	tail := tailClauses{limit: -1}
	pos := 0
	for pos < len(text) {
		c := text[pos]
		switch {
		case c == '\'' || c == '"':
			next, err := skipString(text, pos)
			if err != nil {
				return tail, err
			}
			pos = next

		case isWordStart(c):
			word, next := scanWord(text, pos)
			switch strings.ToUpper(word) {
			case "DETACH":
				tail.detach = true
			case "DELETE":
				tail.deleteVars, next = scanVarList(text, next)
			case "RETURN":
				tail.returnItems, next = scanItemList(text, next)
			case "ORDER":
				by, afterBy := scanWord(text, skipWS(text, next))
				if strings.ToUpper(by) == "BY" {
					var items []string
					items, next = scanItemList(text, afterBy)
					if len(items) > 0 {
						tail.orderBy = items[0]
					}
					desc, afterDesc := scanWord(text, skipWS(text, next))
					switch strings.ToUpper(desc) {
					case "DESC":
						tail.orderDesc = true
						next = afterDesc
					case "ASC":
						next = afterDesc
					}
				}
			case "LIMIT":
				numStart := skipWS(text, next)
				numEnd := numStart
				for numEnd < len(text) && text[numEnd] >= '0' && text[numEnd] <= '9' {
					numEnd++
				}
				if numEnd > numStart {
					n, err := strconv.Atoi(text[numStart:numEnd])
					if err != nil {
						return tail, err
					}
					tail.limit = n
					next = numEnd
				}
			}
			pos = next

		default:
			pos++
		}
	}
	return tail, nil
}

// scanItemList reads comma-separated return items, stopping at a clause
// keyword. Parentheses keep function arguments together.
func scanItemList(text string, pos int) ([]string, int) {
	var items []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			items = append(items, s)
		}
		cur.Reset()
	}
	for pos < len(text) {
		c := text[pos]
		switch {
		case c == '\'' || c == '"':
			next, err := skipString(text, pos)
			if err != nil {
				next = len(text)
			}
			cur.WriteString(text[pos:next])
			pos = next
		case c == '(':
			depth++
			cur.WriteByte(c)
			pos++
		case c == ')':
			depth--
			cur.WriteByte(c)
			pos++
		case c == ',' && depth == 0:
			flush()
			pos++
		case isWordStart(c) && depth == 0:
			word, next := scanWord(text, pos)
			switch strings.ToUpper(word) {
			case "ORDER", "LIMIT", "DETACH", "DELETE", "MATCH", "CREATE", "MERGE", "RETURN", "ASC", "DESC":
				flush()
				return items, pos
			}
			cur.WriteString(word)
			pos = next
		default:
			cur.WriteByte(c)
			pos++
		}
	}
	flush()
	return items, pos
}

func scanVarList(text string, pos int) ([]string, int) {
	items, next := scanItemList(text, pos)
	return items, next
}

func skipString(text string, pos int) (int, error) {
	q := text[pos]
	pos++
	for pos < len(text) {
		if text[pos] == '\\' {
			pos += 2
			continue
		}
		if text[pos] == q {
			return pos + 1, nil
		}
		pos++
	}
	return pos, fmt.Errorf("unterminated string literal")
}

func skipWS(text string, pos int) int {
	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\n' || text[pos] == '\r') {
		pos++
	}
	return pos
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func scanWord(text string, pos int) (string, int) {
	start := pos
	for pos < len(text) {
		c := text[pos]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			pos++
			continue
		}
		break
	}
	return text[start:pos], pos
}
