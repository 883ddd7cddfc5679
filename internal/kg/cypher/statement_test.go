package cypher

import (
	"strings"
	"testing"
)

func TestParse_Kinds(t *testing.T) {
	cases := []struct {
		raw  string
		want Kind
	}{
		{"CREATE (a:Person {name:'Dave'})", KindCreate},
		{"MERGE (a {name:'Dave'})", KindMerge},
		{"MATCH (a {name:'Dave'}) RETURN a", KindMatch},
		{"MATCH (a {name:'A'}) MATCH (b {name:'B'}) CREATE (a)-[:KNOWS]->(b)", KindMatchCreate},
		{"MATCH (a {name:'A'}) MERGE (a)-[:KNOWS]->(a)", KindMatchMerge},
		{"RETURN 1", KindRead},
	}
	for _, tc := range cases {
		if got := Parse(tc.raw).Kind; got != tc.want {
			t.Errorf("Parse(%q).Kind = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParse_NodeRefs(t *testing.T) {
	st := Parse("CREATE (a:Person {name: 'Alice', age: 30, tags: ['x','y']})")
	nodes := st.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node ref, got %d", len(nodes))
	}
	n := nodes[0]
	if n.Var != "a" || len(n.Labels) != 1 || n.Labels[0] != "Person" {
		t.Fatalf("unexpected ref: %+v", n)
	}
	if v, ok := n.Props.Get("name"); !ok || v.Str != "Alice" {
		t.Fatalf("name property not parsed: %+v", n.Props)
	}
	if v, ok := n.Props.Get("age"); !ok || v.Num != 30 {
		t.Fatalf("age property not parsed: %+v", n.Props)
	}
	if v, ok := n.Props.Get("tags"); !ok || v.Kind != ValueList || len(v.List) != 2 {
		t.Fatalf("list property not parsed: %+v", n.Props)
	}
	if n.Clause != ClauseCreate {
		t.Fatalf("clause = %q, want create", n.Clause)
	}
}

func TestParse_EdgeChain(t *testing.T) {
	st := Parse("CREATE (a {name:'A'})-[r:KNOWS {since: 2020}]->(b {name:'B'})")
	edges := st.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if e.RelType != "KNOWS" || e.Src != "a" || e.Dst != "b" {
		t.Fatalf("unexpected edge: %+v", e)
	}
	if v, ok := e.Props.Get("since"); !ok || v.Num != 2020 {
		t.Fatalf("edge props not parsed: %+v", e.Props)
	}
	if len(st.Nodes()) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(st.Nodes()))
	}
}

func TestParse_ReversedEdge(t *testing.T) {
	st := Parse("CREATE (a {name:'A'})<-[:KNOWS]-(b {name:'B'})")
	edges := st.Edges()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if edges[0].Src != "b" || edges[0].Dst != "a" {
		t.Fatalf("direction not normalized: %+v", edges[0])
	}
}

func TestParse_FunctionCallNotAPattern(t *testing.T) {
	st := Parse("MATCH (n {kg:'s'}) OPTIONAL MATCH (n)-[r]-() WITH n.name as node_name, count(r) as edge_count RETURN node_name, edge_count")
	for _, ref := range st.Refs {
		if ref.Kind == NodeRef && ref.Var == "r" {
			t.Fatalf("count(r) parsed as node pattern")
		}
	}
	if !st.HasResultClause {
		t.Fatalf("RETURN not detected")
	}
}

func TestParse_BareVarDetection(t *testing.T) {
	st := Parse("CREATE (a)-[:KNOWS]->(b)")
	nodes := st.Nodes()
	if len(nodes) != 2 || !nodes[0].IsBareVar() || !nodes[1].IsBareVar() {
		t.Fatalf("bare vars not detected: %+v", nodes)
	}
	if len(st.Declared()) != 1 {
		// only the edge is a declaration
		t.Fatalf("declared = %+v", st.Declared())
	}
}

func TestInsertProp(t *testing.T) {
	raw := "CREATE (a:Person {name:'Dave'})-[:KNOWS]->(b:Person)"
	st := Parse(raw)

	withProps := st.Refs[0]
	out := InsertProp(raw, withProps, "kg", StringValue("social"))
	if !strings.Contains(out, "{name:'Dave', kg: 'social'}") {
		t.Fatalf("insert into existing map failed: %q", out)
	}

	// Re-parse since spans shifted, then tag the bare-labeled node.
	st = Parse(out)
	var target EntityRef
	for _, r := range st.Refs {
		if r.Var == "b" {
			target = r
		}
	}
	out = InsertProp(out, target, "kg", StringValue("social"))
	if !strings.Contains(out, "(b:Person {kg: 'social'})") {
		t.Fatalf("insert of fresh map failed: %q", out)
	}
}

func TestValueLiteralRoundTrip(t *testing.T) {
	v := ListValue(StringValue("a'b"), NumberValue(1.5), BoolValue(true))
	lit := v.Literal()
	if lit != `['a\'b', 1.5, true]` {
		t.Fatalf("unexpected literal: %s", lit)
	}
	parsed, _, err := parseValue(lit, 0)
	if err != nil {
		t.Fatalf("parse back failed: %v", err)
	}
	if !parsed.Equal(v) {
		t.Fatalf("round trip mismatch: %+v vs %+v", parsed, v)
	}
}
