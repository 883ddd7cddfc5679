// Package triples converts subject/predicate/object facts into the merge
// statements the ingestion engine understands.
package triples

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
)

// Triple is one fact. In YAML or JSON input a triple is either a mapping
// with subject/predicate/object keys or a three-element list.
type Triple struct {
	Subject   string `json:"subject" yaml:"subject"`
	Predicate string `json:"predicate" yaml:"predicate"`
	Object    string `json:"object" yaml:"object"`
}

func (t *Triple) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		if len(value.Content) != 3 {
			return fmt.Errorf("triple list must have 3 elements, got %d", len(value.Content))
		}
		if err := value.Content[0].Decode(&t.Subject); err != nil {
			return err
		}
		if err := value.Content[1].Decode(&t.Predicate); err != nil {
			return err
		}
		return value.Content[2].Decode(&t.Object)
	}
	type plain Triple
	return value.Decode((*plain)(t))
}

func (t Triple) complete() bool {
	return t.Subject != "" && t.Predicate != "" && t.Object != ""
}

// Normalize trims whitespace and drops incomplete triples.
func Normalize(in []Triple) []Triple {
	out := make([]Triple, 0, len(in))
	for _, t := range in {
		t.Subject = strings.TrimSpace(t.Subject)
		t.Predicate = strings.TrimSpace(t.Predicate)
		t.Object = strings.TrimSpace(t.Object)
		if t.complete() {
			out = append(out, t)
		}
	}
	return out
}

// Decode parses a YAML or JSON document of triples. Accepted shapes: a
// list of triples, a single triple, and mappings whose fields are scalars
// or lists (list fields fan out into one triple per combination).
func Decode(data []byte) ([]Triple, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("triples: decode: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]

	items := []*yaml.Node{root}
	if root.Kind == yaml.SequenceNode {
		// A 3-element sequence of scalars is a single triple, not a list.
		if !isScalarTripleList(root) {
			items = root.Content
		}
	}

	var out []Triple
	for _, item := range items {
		ts, err := decodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("triples: decode: %w", err)
		}
		out = append(out, ts...)
	}
	return Normalize(out), nil
}

func isScalarTripleList(n *yaml.Node) bool {
	if len(n.Content) != 3 {
		return false
	}
	for _, c := range n.Content {
		if c.Kind != yaml.ScalarNode {
			return false
		}
	}
	return true
}

// decodeItem expands one document item into triples. Mapping fields may be
// scalars or lists; list fields multiply out.
func decodeItem(n *yaml.Node) ([]Triple, error) {
	if n.Kind == yaml.SequenceNode {
		var t Triple
		if err := n.Decode(&t); err != nil {
			return nil, err
		}
		return []Triple{t}, nil
	}

	var fields struct {
		Subject   stringList `yaml:"subject"`
		Predicate stringList `yaml:"predicate"`
		Object    stringList `yaml:"object"`
	}
	if err := n.Decode(&fields); err != nil {
		return nil, err
	}

	var out []Triple
	for _, s := range fields.Subject {
		for _, p := range fields.Predicate {
			for _, o := range fields.Object {
				out = append(out, Triple{Subject: s, Predicate: p, Object: o})
			}
		}
	}
	return out, nil
}

// stringList decodes a scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*l = stringList{s}
	return nil
}

// Script renders the triples as one statement per fact, ready for ingestion.
// Subjects and objects merge by name; the relationship type is the sanitized
// predicate.
func Script(ts []Triple) string {
	var b strings.Builder
	for _, t := range ts {
		if !t.complete() {
			continue
		}
		fmt.Fprintf(&b, "MERGE (s {name: %s}) MERGE (o {name: %s}) MERGE (s)-[r:%s]->(o) RETURN s, r, o;\n",
			cypher.StringValue(t.Subject).Literal(),
			cypher.StringValue(t.Object).Literal(),
			RelType(t.Predicate),
		)
	}
	return b.String()
}

// RelType maps a free-text predicate to a relationship type: upper case,
// word characters only.
func RelType(predicate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(predicate)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '\t':
			if n := b.Len(); n > 0 && b.String()[n-1] != '_' {
				b.WriteByte('_')
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "RELATED_TO"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "REL_" + out
	}
	return out
}
