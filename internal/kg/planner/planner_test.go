package planner

import (
	"strings"
	"testing"

	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
	"github.com/storygraph/kgraph-backend/internal/kg/identity"
	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
	"github.com/storygraph/kgraph-backend/internal/kg/tagger"
)

func tagged(t *testing.T, raw string) *cypher.Statement {
	t.Helper()
	st, err := tagger.Tag(cypher.Parse(raw), "social")
	if err != nil {
		t.Fatalf("tag %q: %v", raw, err)
	}
	return st
}

func plan(t *testing.T, known identity.KeySet, raws ...string) ([]Item, identity.KeySet) {
	t.Helper()
	p := &Planner{Namespace: "social"}
	var srcs []Source
	for i, raw := range raws {
		srcs = append(srcs, Source{Index: i, Statement: tagged(t, raw)})
	}
	if known == nil {
		known = identity.NewKeySet()
	}
	return p.Plan(srcs, known)
}

func TestPlan_FreshCreateUntouched(t *testing.T) {
	items, keys := plan(t, nil, "CREATE (a:Person {name:'Dave'})")
	if len(items) != 1 || items[0].Err != nil {
		t.Fatalf("unexpected plan: %+v", items)
	}
	if !strings.HasPrefix(items[0].Statement.Raw, "CREATE") {
		t.Fatalf("fresh create should stay a create: %q", items[0].Statement.Raw)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 declared key, got %d", len(keys))
	}
}

func TestPlan_KnownCreateBecomesMerge(t *testing.T) {
	_, keys := plan(t, nil, "CREATE (a:Person {name:'Dave'})")
	items, _ := plan(t, keys, "CREATE (a:Person {name:'Dave'})")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0].Statement.Raw
	if !strings.HasPrefix(got, "MERGE") || strings.Contains(got, "CREATE") {
		t.Fatalf("known create should be downgraded to merge: %q", got)
	}
}

func TestPlan_MixedDeclarationSplits(t *testing.T) {
	known := identity.NewKeySet()
	known.Add(identity.Key{Label: "Person", PropName: "name", PropValue: "Old", Namespace: "social"})

	items, _ := plan(t, known, "CREATE (a:Person {name:'Old'}), (b:Person {name:'New'})")
	if len(items) != 2 {
		t.Fatalf("expected split into 2 items, got %d: %+v", len(items), items)
	}
	if items[0].SourceIndex != 0 || items[1].SourceIndex != 0 {
		t.Fatalf("split items must keep the source index")
	}
	if !strings.HasPrefix(items[0].Statement.Raw, "MERGE") {
		t.Fatalf("merge statement must come first: %q", items[0].Statement.Raw)
	}
	if !strings.HasPrefix(items[1].Statement.Raw, "CREATE") {
		t.Fatalf("create statement must come second: %q", items[1].Statement.Raw)
	}
	if !strings.Contains(items[0].Statement.Raw, "Old") || !strings.Contains(items[1].Statement.Raw, "New") {
		t.Fatalf("wrong partition: %q / %q", items[0].Statement.Raw, items[1].Statement.Raw)
	}
}

func TestPlan_ReplayOfCreateWithEdge(t *testing.T) {
	script := "CREATE (a:Person {name:'A'})-[:KNOWS]->(b:Person {name:'B'})"
	_, keys := plan(t, nil, script)
	items, _ := plan(t, keys, script)

	if len(items) < 2 {
		t.Fatalf("replay should split nodes and edge: %+v", items)
	}
	for _, it := range items {
		if strings.Contains(it.Statement.Raw, "CREATE") {
			t.Fatalf("replayed statement must not create: %q", it.Statement.Raw)
		}
	}
	last := items[len(items)-1].Statement.Raw
	if !strings.Contains(last, "MATCH") || !strings.Contains(last, "MERGE") || !strings.Contains(last, "KNOWS") {
		t.Fatalf("edge must be re-attached via match+merge: %q", last)
	}
}

func TestPlan_CrossStatementEdge(t *testing.T) {
	items, _ := plan(t, nil,
		"CREATE (a:Person {name:'Alice'})",
		"CREATE (b:Person {name:'Bob'})",
		"CREATE (a)-[:KNOWS]->(b)",
	)
	var edgeItem *Item
	for i := range items {
		if items[i].SourceIndex == 2 {
			edgeItem = &items[i]
		}
	}
	if edgeItem == nil || edgeItem.Err != nil {
		t.Fatalf("edge statement should plan cleanly: %+v", items)
	}
	raw := edgeItem.Statement.Raw
	if !strings.Contains(raw, "MATCH (a:Person {name: 'Alice', kg: 'social'})") {
		t.Fatalf("source endpoint not anchored: %q", raw)
	}
	if !strings.Contains(raw, "MERGE (a)-[:KNOWS {kg: 'social'}]->(b)") {
		t.Fatalf("edge not merged: %q", raw)
	}
}

func TestPlan_UnresolvedVariable(t *testing.T) {
	items, _ := plan(t, nil, "CREATE (a)-[:KNOWS]->(b)")
	if len(items) != 1 || items[0].Err == nil {
		t.Fatalf("expected a failed item, got %+v", items)
	}
	if !kgerr.IsKind(items[0].Err, kgerr.UnresolvedVariable) {
		t.Fatalf("expected UnresolvedVariable, got %v", items[0].Err)
	}
}

func TestPlan_MatchBindingCarriesForward(t *testing.T) {
	items, _ := plan(t, nil,
		"MATCH (a:Person {name:'Alice'}) RETURN a",
		"CREATE (b:Person {name:'Bob'})",
		"CREATE (a)-[:KNOWS]->(b)",
	)
	for _, it := range items {
		if it.Err != nil {
			t.Fatalf("unexpected error: %v", it.Err)
		}
	}
}

func TestPlan_MergeStatementUntouched(t *testing.T) {
	raw := "MERGE (s {name: 'Ahab', kg: 'social'}) MERGE (o {name: 'Whale', kg: 'social'}) MERGE (s)-[r:HUNTS]->(o) RETURN s, r, o"
	items, keys := plan(t, nil, raw)
	if len(items) != 1 {
		t.Fatalf("merge statement should not split: %+v", items)
	}
	if items[0].Statement.Raw != tagged(t, raw).Raw {
		t.Fatalf("merge statement should be untouched: %q", items[0].Statement.Raw)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 2 node keys and 1 edge key, got %d", len(keys))
	}
}

func TestPlan_KnownSetNotMutated(t *testing.T) {
	known := identity.NewKeySet()
	_, updated := plan(t, known, "CREATE (a:Person {name:'Dave'})")
	if len(known) != 0 {
		t.Fatalf("caller's key set must not be mutated")
	}
	if len(updated) == 0 {
		t.Fatalf("updated set must carry the new keys")
	}
}
