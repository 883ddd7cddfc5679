package triples

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	in := []Triple{
		{Subject: "  Ahab ", Predicate: " hunts ", Object: " the whale "},
		{Subject: "Ishmael", Predicate: "", Object: "narrator"},
		{Subject: "", Predicate: "x", Object: "y"},
	}
	out := Normalize(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 complete triple, got %d", len(out))
	}
	if out[0] != (Triple{Subject: "Ahab", Predicate: "hunts", Object: "the whale"}) {
		t.Fatalf("unexpected triple: %+v", out[0])
	}
}

func TestRelType(t *testing.T) {
	cases := map[string]string{
		"hunts":          "HUNTS",
		"is married to":  "IS_MARRIED_TO",
		"works-at":       "WORKS_AT",
		"  lives  in  ":  "LIVES_IN",
		"42nd president": "REL_42ND_PRESIDENT",
		"!!!":            "RELATED_TO",
		"":               "RELATED_TO",
	}
	for in, want := range cases {
		if got := RelType(in); got != want {
			t.Errorf("RelType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScript(t *testing.T) {
	got := Script([]Triple{{Subject: "Ahab", Predicate: "hunts", Object: "Moby Dick"}})
	want := "MERGE (s {name: 'Ahab'}) MERGE (o {name: 'Moby Dick'}) MERGE (s)-[r:HUNTS]->(o) RETURN s, r, o;\n"
	if got != want {
		t.Fatalf("unexpected script:\n%q\nwant\n%q", got, want)
	}
}

func TestScript_QuotesEscaped(t *testing.T) {
	got := Script([]Triple{{Subject: "O'Brien", Predicate: "wrote", Object: "report"}})
	if !strings.Contains(got, `'O\'Brien'`) {
		t.Fatalf("quote not escaped: %q", got)
	}
}

func TestDecode_MappingsAndLists(t *testing.T) {
	doc := `
- subject: Ahab
  predicate: hunts
  object: Moby Dick
- [Ishmael, narrates, Moby Dick]
`
	ts, err := Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 {
		t.Fatalf("expected 2 triples, got %d", len(ts))
	}
	if ts[1].Predicate != "narrates" {
		t.Fatalf("list form not decoded: %+v", ts[1])
	}
}

func TestDecode_SingleTriple(t *testing.T) {
	for _, doc := range []string{
		`{subject: a, predicate: b, object: c}`,
		`[a, b, c]`,
	} {
		ts, err := Decode([]byte(doc))
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		if len(ts) != 1 || ts[0] != (Triple{Subject: "a", Predicate: "b", Object: "c"}) {
			t.Fatalf("%s: unexpected triples: %+v", doc, ts)
		}
	}
}

func TestDecode_ListFieldsFanOut(t *testing.T) {
	doc := `
subject: Ahab
predicate: hunts
object: [Moby Dick, the sea]
`
	ts, err := Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 {
		t.Fatalf("expected 2 triples, got %d: %+v", len(ts), ts)
	}
	if ts[0].Object != "Moby Dick" || ts[1].Object != "the sea" {
		t.Fatalf("fan-out wrong: %+v", ts)
	}
}

func TestDecode_JSONIsValidInput(t *testing.T) {
	doc := `[{"subject": "a", "predicate": "b", "object": "c"}]`
	ts, err := Decode([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 1 || ts[0].Object != "c" {
		t.Fatalf("unexpected triples: %+v", ts)
	}
}
