package planner

import (
	"fmt"
	"strings"

	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
	"github.com/storygraph/kgraph-backend/internal/kg/identity"
	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
	"github.com/storygraph/kgraph-backend/internal/kg/tagger"
)

// Planner enforces idempotence for a batch. The underlying store's create
// operation is not idempotent on its own; this is the sole place where
// create statements are downgraded to merge form when their identity keys
// are already known, and where standalone edge creations are anchored to
// their endpoints by identity lookup.
type Planner struct {
	Namespace    string
	PrimaryProps []string
}

// Item is one executable statement of the plan. A source statement may
// expand into several items (mixed declarations split into merge-then-create,
// edge attachments peeled off into match+merge form); they share SourceIndex.
type Item struct {
	SourceIndex  int
	Statement    *cypher.Statement
	DeclaredKeys []identity.Key
	Err          error // UnresolvedVariable; the item must not execute
}

// binding ties a statement variable to the identity it resolves to and a
// pattern that re-locates it in a later statement.
type binding struct {
	key     identity.Key
	pattern string
}

// Plan rewrites the tagged statements of a batch into replay-safe form.
// known is not mutated; the returned set is the caller's set plus every
// identity the plan declares.
func (p *Planner) Plan(stmts []Source, known identity.KeySet) ([]Item, identity.KeySet) {
	keys := known.Clone()
	vars := make(map[string]binding) // batch-level variable bindings
	var items []Item

	for _, src := range stmts {
		st := src.Statement
		if st == nil {
			continue
		}
		planned, declared, locals, err := p.planOne(st, keys, vars)
		if err != nil {
			items = append(items, Item{SourceIndex: src.Index, Statement: st, Err: err})
			continue
		}
		for i := range planned {
			planned[i].SourceIndex = src.Index
		}
		items = append(items, planned...)
		for _, k := range declared {
			keys.Add(k)
		}
		for v, b := range locals {
			vars[v] = b
		}
	}
	return items, keys
}

// Source pairs a statement with its position in the original batch.
type Source struct {
	Index     int
	Statement *cypher.Statement
}

func (p *Planner) planOne(st *cypher.Statement, known identity.KeySet, vars map[string]binding) (items []Item, declared []identity.Key, locals map[string]binding, err error) {
	locals = make(map[string]binding)

	// Local bindings: every identifiable node pattern in the statement,
	// matched or declared, can anchor an edge.
	nodeKeys := make([]identity.Key, len(st.Refs))
	for i, ref := range st.Refs {
		if ref.Kind != cypher.NodeRef {
			continue
		}
		k := identity.NodeKey(ref, p.Namespace, p.PrimaryProps)
		nodeKeys[i] = k
		if ref.Var != "" && !k.IsZero() {
			if _, seen := locals[ref.Var]; !seen {
				locals[ref.Var] = binding{key: k, pattern: cypher.RenderRef(ref)}
			}
		}
	}

	// Resolve edge endpoints: statement-local first, then variables bound by
	// earlier statements in the batch.
	type plannedEdge struct {
		ref      cypher.EntityRef
		key      identity.Key
		src, dst binding
		srcVar   string
		dstVar   string
		local    bool // both endpoints bound within this statement
	}
	var edges []plannedEdge
	for _, ref := range st.Refs {
		if ref.Kind != cypher.EdgeRef || (ref.Clause != cypher.ClauseCreate && ref.Clause != cypher.ClauseMerge) {
			continue
		}
		src, srcLocal, ok := resolveEndpoint(st, nodeKeys, locals, vars, ref.SrcIdx, ref.Src)
		if !ok {
			return nil, nil, nil, kgerr.New(kgerr.UnresolvedVariable,
				"edge %s references undeclared variable %q", renderEdgeLabel(ref), ref.Src)
		}
		dst, dstLocal, ok := resolveEndpoint(st, nodeKeys, locals, vars, ref.DstIdx, ref.Dst)
		if !ok {
			return nil, nil, nil, kgerr.New(kgerr.UnresolvedVariable,
				"edge %s references undeclared variable %q", renderEdgeLabel(ref), ref.Dst)
		}
		edges = append(edges, plannedEdge{
			ref:    ref,
			key:    identity.EdgeKey(ref, p.Namespace, src.key, dst.key),
			src:    src,
			dst:    dst,
			srcVar: endpointVar(ref.Src, "src"),
			dstVar: endpointVar(ref.Dst, "dst"),
			local:  srcLocal && dstLocal,
		})
	}

	// Partition declared nodes by collision with the known set.
	var mergeNodes, createNodes []cypher.EntityRef
	for i, ref := range st.Refs {
		if ref.Kind != cypher.NodeRef || ref.IsBareVar() {
			continue
		}
		switch ref.Clause {
		case cypher.ClauseMerge:
			mergeNodes = append(mergeNodes, ref)
			declared = append(declared, nodeKeys[i])
		case cypher.ClauseCreate:
			if known.Has(nodeKeys[i]) {
				mergeNodes = append(mergeNodes, ref)
			} else {
				createNodes = append(createNodes, ref)
			}
			declared = append(declared, nodeKeys[i])
		}
	}
	for _, e := range edges {
		declared = append(declared, e.key)
	}

	// Decide whether the statement can run untouched. Rewrites are needed
	// when a create collides with a known identity, when a created edge is
	// already known (replay), or when an edge leans on a variable bound by
	// an earlier statement.
	needsRewrite := false
	if len(mergeNodes) > 0 && containsClause(st, cypher.ClauseCreate) {
		needsRewrite = true
	}
	for _, e := range edges {
		if !e.local {
			needsRewrite = true
		}
		if e.ref.Clause == cypher.ClauseCreate && known.Has(e.key) {
			needsRewrite = true
		}
	}

	if !needsRewrite {
		return []Item{{Statement: st, DeclaredKeys: declared}}, declared, locals, nil
	}

	// Regenerate in replay-safe form, preserving declared order:
	// merges for pre-existing identities, then creates for new ones, then
	// one match+merge statement per edge.
	if len(mergeNodes) > 0 {
		var b strings.Builder
		for i, ref := range mergeNodes {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("MERGE ")
			b.WriteString(cypher.RenderRef(ref))
		}
		items = append(items, Item{Statement: cypher.Parse(b.String())})
	}
	if len(createNodes) > 0 {
		parts := make([]string, 0, len(createNodes))
		for _, ref := range createNodes {
			parts = append(parts, cypher.RenderRef(ref))
		}
		items = append(items, Item{Statement: cypher.Parse("CREATE " + strings.Join(parts, ", "))})
	}
	for _, e := range edges {
		items = append(items, Item{Statement: cypher.Parse(p.renderEdgeStatement(e.srcVar, e.dstVar, e.src, e.dst, e.ref))})
	}

	// Attach per-item declared keys for the resolver's post-condition check.
	for i := range items {
		for _, ref := range items[i].Statement.Declared() {
			if ref.Kind == cypher.NodeRef {
				items[i].DeclaredKeys = append(items[i].DeclaredKeys, identity.NodeKey(ref, p.Namespace, p.PrimaryProps))
			}
		}
	}
	return items, declared, locals, nil
}

// resolveEndpoint finds the binding for one edge endpoint: the adjacent
// pattern when it is identifiable, otherwise the named variable from this
// statement or an earlier one.
func resolveEndpoint(st *cypher.Statement, nodeKeys []identity.Key, locals map[string]binding, vars map[string]binding, idx int, varName string) (binding, bool, bool) {
	if idx >= 0 && idx < len(st.Refs) && !nodeKeys[idx].IsZero() {
		return binding{key: nodeKeys[idx], pattern: cypher.RenderRef(st.Refs[idx])}, true, true
	}
	if varName != "" {
		if b, ok := locals[varName]; ok {
			return b, true, true
		}
		if b, ok := vars[varName]; ok {
			return b, false, true
		}
	}
	return binding{}, false, false
}

// renderEdgeStatement emits MATCH src MATCH dst MERGE (src)-[:T]->(dst).
// Edges are always merged here so replaying the batch cannot duplicate
// relationships.
func (p *Planner) renderEdgeStatement(srcVar, dstVar string, src, dst binding, edge cypher.EntityRef) string {
	var b strings.Builder
	b.WriteString("MATCH ")
	b.WriteString(withVar(src.pattern, srcVar))
	if srcVar != dstVar {
		b.WriteString(" MATCH ")
		b.WriteString(withVar(dst.pattern, dstVar))
	}
	b.WriteString(" MERGE (")
	b.WriteString(srcVar)
	b.WriteByte(')')
	b.WriteString(cypher.EdgePattern(edge.Var, edge.RelType, edge.Props))
	b.WriteByte('(')
	b.WriteString(dstVar)
	b.WriteByte(')')
	return b.String()
}

// withVar rewrites a rendered node pattern to bind the given variable name.
func withVar(pattern, varName string) string {
	st := cypher.Parse("MATCH " + pattern)
	nodes := st.Nodes()
	if len(nodes) != 1 {
		return pattern
	}
	n := nodes[0]
	return cypher.NodePattern(varName, n.Labels, n.Props)
}

func endpointVar(varName, fallback string) string {
	if varName != "" {
		return varName
	}
	return fallback
}

func containsClause(st *cypher.Statement, clause cypher.Clause) bool {
	for _, r := range st.Refs {
		if r.Clause == clause {
			return true
		}
	}
	return false
}

func renderEdgeLabel(ref cypher.EntityRef) string {
	if ref.RelType != "" {
		return fmt.Sprintf("[:%s]", ref.RelType)
	}
	if ref.Var != "" {
		return fmt.Sprintf("[%s]", ref.Var)
	}
	return "[]"
}

// IdentityPattern renders the lookup pattern for a persisted identity key:
// the label, the primary property, and the namespace tag. The resolver uses
// it for synthesized lookups; rewritten edge statements use the richer
// pattern captured at binding time.
func IdentityPattern(varName string, key identity.Key) string {
	props := cypher.PropList{
		{Key: key.PropName, Val: cypher.StringValue(key.PropValue)},
		{Key: tagger.PropName, Val: cypher.StringValue(key.Namespace)},
	}
	var labels []string
	if key.Label != "" {
		labels = []string{key.Label}
	}
	return cypher.NodePattern(varName, labels, props)
}
