package cypher

import (
	"strings"
	"testing"

	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
)

func TestSplitStatements_CommentsStripped(t *testing.T) {
	src := "CREATE (a {x:1}); // comment\nCREATE (b {x:2});"
	stmts, err := SplitStatements(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %#v", len(stmts), stmts)
	}
	for _, s := range stmts {
		if strings.Contains(s, "comment") {
			t.Fatalf("comment text leaked into statement: %q", s)
		}
	}
	if stmts[0] != "CREATE (a {x:1})" || stmts[1] != "CREATE (b {x:2})" {
		t.Fatalf("unexpected statements: %#v", stmts)
	}
}

func TestSplitStatements_SemicolonInString(t *testing.T) {
	src := `CREATE (a {name: "a;b"});`
	stmts, err := SplitStatements(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d: %#v", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], "a;b") {
		t.Fatalf("embedded semicolon lost: %q", stmts[0])
	}
}

func TestSplitStatements_BlockComment(t *testing.T) {
	src := "CREATE (a {x:1}) /* not ; a terminator */ ;CREATE (b {x:2})"
	stmts, err := SplitStatements(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %#v", len(stmts), stmts)
	}
	if strings.Contains(stmts[0], "terminator") {
		t.Fatalf("block comment leaked: %q", stmts[0])
	}
}

func TestSplitStatements_ListLiteral(t *testing.T) {
	src := "CREATE (a {tags: ['x', 'y;z']});"
	stmts, err := SplitStatements(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d: %#v", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], "y;z") {
		t.Fatalf("list content lost: %q", stmts[0])
	}
}

func TestSplitStatements_TrailingSemicolonOptional(t *testing.T) {
	stmts, err := SplitStatements("CREATE (a {x:1}); CREATE (b {x:2})")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
}

func TestSplitStatements_BlankSegmentsDropped(t *testing.T) {
	stmts, err := SplitStatements("; // only a comment\n ; /* block */ ; CREATE (a {x:1});")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d: %#v", len(stmts), stmts)
	}
}

func TestSplitStatements_UnterminatedLiterals(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"string", `CREATE (a {name: "broken});`},
		{"block comment", "CREATE (a {x:1}); /* open"},
		{"list", "CREATE (a {tags: ['x'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stmts, err := SplitStatements(tc.src)
			if err == nil {
				t.Fatalf("expected error, got statements %#v", stmts)
			}
			if !kgerr.IsKind(err, kgerr.UnterminatedLiteral) {
				t.Fatalf("expected UnterminatedLiteral, got %v", err)
			}
			if stmts != nil {
				t.Fatalf("no statements should be returned on parse failure")
			}
		})
	}
}

func TestScanner_Restartable(t *testing.T) {
	src := "CREATE (a {x:1}); CREATE (b {x:2});"
	for run := 0; run < 2; run++ {
		sc := NewScanner(src)
		n := 0
		for sc.Scan() {
			n++
		}
		if err := sc.Err(); err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if n != 2 {
			t.Fatalf("run %d: expected 2 statements, got %d", run, n)
		}
	}
}
