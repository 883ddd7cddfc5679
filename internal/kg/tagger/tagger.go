package tagger

import (
	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
)

// PropName is the property that partitions one physical store into logical
// graphs. Every node and edge written by the engine carries exactly one.
const PropName = "kg"

// Tag rewrites the statement text so that every node pattern, and every
// edge pattern under a CREATE or MERGE clause, carries the namespace
// property. Match-clause edges are left untagged: their endpoints are
// already scoped, and tagging relationships would over-restrict lookups.
//
// A pattern that already carries the property with a different value is a
// NamespaceConflict; the error is fatal for this statement only. Bare
// variable references like (a) are never tagged.
func Tag(st *cypher.Statement, namespace string) (*cypher.Statement, error) {
	raw := st.Raw

	// Walk refs in reverse source order so earlier byte spans stay valid
	// while the text grows.
	for i := len(st.Refs) - 1; i >= 0; i-- {
		ref := st.Refs[i]
		if !taggable(ref) {
			continue
		}
		if existing, ok := ref.Props.Get(PropName); ok {
			if existing.Kind != cypher.ValueString || existing.Str != namespace {
				return nil, kgerr.New(kgerr.NamespaceConflict,
					"statement tags %q as %s, ingest namespace is %q",
					ref.Var, existing.Literal(), namespace)
			}
			continue
		}
		raw = cypher.InsertProp(raw, ref, PropName, cypher.StringValue(namespace))
	}

	if raw == st.Raw {
		return st, nil
	}
	return cypher.Parse(raw), nil
}

func taggable(ref cypher.EntityRef) bool {
	switch ref.Kind {
	case cypher.NodeRef:
		return !ref.IsBareVar()
	case cypher.EdgeRef:
		if ref.Clause != cypher.ClauseCreate && ref.Clause != cypher.ClauseMerge {
			return false
		}
		return ref.RelType != "" || len(ref.Props) > 0
	}
	return false
}
