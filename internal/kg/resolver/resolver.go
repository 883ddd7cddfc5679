// Package resolver turns executed statements back into entity handles. A
// mutating statement that declares entities must prove they exist: either
// its own RETURN rows carry them, or the resolver looks them up by identity.
package resolver

import (
	"context"

	"github.com/storygraph/kgraph-backend/internal/graphstore"
	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
	"github.com/storygraph/kgraph-backend/internal/kg/identity"
	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
	"github.com/storygraph/kgraph-backend/internal/kg/planner"
)

// EntityHandle pairs a statement variable with the stored entity it ended
// up bound to.
type EntityHandle struct {
	Var    string
	Key    identity.Key
	Entity graphstore.Entity
}

type Resolver struct {
	Store        graphstore.Store
	Namespace    string
	PrimaryProps []string
}

// Resolve maps the result of one executed statement to handles for every
// identifiable entity the statement declared, nodes and edges alike.
// Declared nodes absent from the result rows are looked up by identity; a
// lookup that comes back empty means the write did not take effect and fails
// with PostConditionFailed. Edge handles only surface from result rows.
func (r *Resolver) Resolve(ctx context.Context, st *cypher.Statement, rs *graphstore.RowSet) ([]EntityHandle, error) {
	if !st.Kind.Mutates() {
		return nil, nil
	}

	fromRows := make(map[string]graphstore.Entity)
	if st.HasResultClause && !rs.Empty() {
		for col, v := range rs.Rows[0] {
			if e, ok := v.(graphstore.Entity); ok {
				fromRows[col] = e
			}
		}
	}

	nodeKeys := make([]identity.Key, len(st.Refs))
	varKeys := make(map[string]identity.Key)
	for i, ref := range st.Refs {
		if ref.Kind != cypher.NodeRef {
			continue
		}
		k := identity.NodeKey(ref, r.Namespace, r.PrimaryProps)
		nodeKeys[i] = k
		if ref.Var != "" && !k.IsZero() {
			if _, ok := varKeys[ref.Var]; !ok {
				varKeys[ref.Var] = k
			}
		}
	}

	var handles []EntityHandle
	var missing []lookup
	seen := make(map[string]bool)

	for i, ref := range st.Refs {
		if ref.Clause != cypher.ClauseCreate && ref.Clause != cypher.ClauseMerge {
			continue
		}

		if ref.Kind == cypher.EdgeRef {
			if ref.Var == "" || seen["edge:"+ref.Var] {
				continue
			}
			if e, ok := fromRows[ref.Var]; ok {
				seen["edge:"+ref.Var] = true
				handles = append(handles, EntityHandle{
					Var:    ref.Var,
					Key:    r.edgeKey(nodeKeys, varKeys, ref),
					Entity: e,
				})
			}
			continue
		}

		if ref.IsBareVar() {
			continue
		}
		key := nodeKeys[i]
		if key.IsZero() || seen[key.String()] {
			continue
		}
		seen[key.String()] = true

		if ref.Var != "" {
			if e, ok := fromRows[ref.Var]; ok {
				handles = append(handles, EntityHandle{Var: ref.Var, Key: key, Entity: e})
				continue
			}
		}
		varName := ref.Var
		if varName == "" {
			varName = "n"
		}
		missing = append(missing, lookup{
			varName: varName,
			key:     key,
			text:    "MATCH " + planner.IdentityPattern(varName, key) + " RETURN " + varName,
		})
	}

	if len(missing) == 0 {
		return handles, nil
	}

	results, err := r.executeLookups(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i, lk := range missing {
		rs := results[i]
		if rs.Empty() {
			return nil, kgerr.New(kgerr.PostConditionFailed,
				"entity %s {%s: %q} not found after write", lk.key.Label, lk.key.PropName, lk.key.PropValue)
		}
		e, ok := rs.Rows[0].Entity(lk.varName)
		if !ok {
			return nil, kgerr.New(kgerr.PostConditionFailed,
				"lookup for %q returned no entity column", lk.varName)
		}
		handles = append(handles, EntityHandle{Var: lk.varName, Key: lk.key, Entity: e})
	}
	return handles, nil
}

// edgeKey derives an edge's identity from its endpoint bindings: the
// adjacent pattern when identifiable, otherwise the variable's first
// identifiable binding in the statement.
func (r *Resolver) edgeKey(nodeKeys []identity.Key, varKeys map[string]identity.Key, ref cypher.EntityRef) identity.Key {
	src := endpointKey(nodeKeys, varKeys, ref.SrcIdx, ref.Src)
	dst := endpointKey(nodeKeys, varKeys, ref.DstIdx, ref.Dst)
	return identity.EdgeKey(ref, r.Namespace, src, dst)
}

func endpointKey(nodeKeys []identity.Key, varKeys map[string]identity.Key, idx int, varName string) identity.Key {
	if idx >= 0 && idx < len(nodeKeys) && !nodeKeys[idx].IsZero() {
		return nodeKeys[idx]
	}
	if varName != "" {
		if k, ok := varKeys[varName]; ok {
			return k
		}
	}
	return identity.Key{}
}

// lookup is one synthesized identity query.
type lookup struct {
	varName string
	key     identity.Key
	text    string
}

func (r *Resolver) executeLookups(ctx context.Context, lookups []lookup) ([]*graphstore.RowSet, error) {
	texts := make([]string, len(lookups))
	for i, lk := range lookups {
		texts[i] = lk.text
	}
	if bs, ok := r.Store.(graphstore.BatchStore); ok {
		return bs.ExecuteBatch(ctx, texts)
	}
	out := make([]*graphstore.RowSet, len(texts))
	for i, text := range texts {
		rs, err := r.Store.Execute(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = rs
	}
	return out, nil
}
