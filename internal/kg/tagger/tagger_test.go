package tagger

import (
	"strings"
	"testing"

	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
)

func mustTag(t *testing.T, raw, ns string) string {
	t.Helper()
	st, err := Tag(cypher.Parse(raw), ns)
	if err != nil {
		t.Fatalf("Tag(%q): %v", raw, err)
	}
	return st.Raw
}

func TestTag_InsertsIntoExistingMap(t *testing.T) {
	out := mustTag(t, "CREATE (a:Person {name:'Dave'})", "social")
	if !strings.Contains(out, "kg: 'social'") {
		t.Fatalf("namespace not inserted: %q", out)
	}
}

func TestTag_AddsMapWhenAbsent(t *testing.T) {
	out := mustTag(t, "CREATE (a:Person)", "social")
	if out != "CREATE (a:Person {kg: 'social'})" {
		t.Fatalf("unexpected rewrite: %q", out)
	}
}

func TestTag_EdgeInCreateClause(t *testing.T) {
	out := mustTag(t, "CREATE (a {name:'A'})-[:KNOWS]->(b {name:'B'})", "social")
	if !strings.Contains(out, "[:KNOWS {kg: 'social'}]") {
		t.Fatalf("edge not tagged: %q", out)
	}
	if strings.Count(out, "kg: 'social'") != 3 {
		t.Fatalf("expected 3 tags, got: %q", out)
	}
}

func TestTag_MatchFilterScoped(t *testing.T) {
	out := mustTag(t, "MATCH (a {name:'Alice'}) RETURN a", "social")
	if !strings.Contains(out, "{name:'Alice', kg: 'social'}") {
		t.Fatalf("match predicate not scoped: %q", out)
	}
}

func TestTag_MatchEdgeLeftAlone(t *testing.T) {
	out := mustTag(t, "MATCH (a {name:'A'})-[r:KNOWS]->(b {name:'B'}) RETURN r", "social")
	if strings.Contains(out, "KNOWS {kg") {
		t.Fatalf("match-clause edge should not be tagged: %q", out)
	}
}

func TestTag_BareVarSkipped(t *testing.T) {
	out := mustTag(t, "MATCH (a {name:'A'}) MATCH (b {name:'B'}) CREATE (a)-[:KNOWS]->(b)", "social")
	if strings.Contains(out, "(a {kg") || strings.Contains(out, "(b {kg") {
		t.Fatalf("bare variable references must stay untouched: %q", out)
	}
	if !strings.Contains(out, "[:KNOWS {kg: 'social'}]") {
		t.Fatalf("created edge should be tagged: %q", out)
	}
}

func TestTag_MatchingExplicitTagAccepted(t *testing.T) {
	raw := "CREATE (a {name:'A', kg: 'social'})"
	out := mustTag(t, raw, "social")
	if out != raw {
		t.Fatalf("already-tagged statement should be unchanged: %q", out)
	}
}

func TestTag_ConflictRejected(t *testing.T) {
	_, err := Tag(cypher.Parse("CREATE (a {name:'A', kg: 'events'})"), "social")
	if !kgerr.IsKind(err, kgerr.NamespaceConflict) {
		t.Fatalf("expected NamespaceConflict, got %v", err)
	}
}

func TestTag_Idempotent(t *testing.T) {
	once := mustTag(t, "CREATE (a:Person {name:'Dave'})", "social")
	twice := mustTag(t, once, "social")
	if once != twice {
		t.Fatalf("tagging is not idempotent: %q vs %q", once, twice)
	}
}
