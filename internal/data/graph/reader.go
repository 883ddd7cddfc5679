// Package graph reads back and maintains ingested namespaces.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/storygraph/kgraph-backend/internal/graphstore"
	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
	"github.com/storygraph/kgraph-backend/internal/kg/tagger"
	"github.com/storygraph/kgraph-backend/internal/kg/triples"
	"github.com/storygraph/kgraph-backend/internal/platform/logger"
)

type Reader struct {
	store graphstore.Store
	log   *logger.Logger
}

func NewReader(store graphstore.Store, log *logger.Logger) *Reader {
	return &Reader{store: store, log: log.With("component", "graph")}
}

func nsLiteral(namespace string) string {
	return cypher.StringValue(namespace).Literal()
}

// AllTriples lists every named relationship in a namespace as
// subject/predicate/object rows.
func (r *Reader) AllTriples(ctx context.Context, namespace string) ([]triples.Triple, error) {
	ns := nsLiteral(namespace)
	text := fmt.Sprintf(
		"MATCH (a {%[1]s: %[2]s})-[rel]->(b {%[1]s: %[2]s}) RETURN a.name, type(rel), b.name",
		tagger.PropName, ns,
	)
	rs, err := r.store.Execute(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("graph: all triples: %w", err)
	}

	out := make([]triples.Triple, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		t := triples.Triple{
			Subject:   stringAt(row, "a.name"),
			Predicate: stringAt(row, "type(rel)"),
			Object:    stringAt(row, "b.name"),
		}
		if t.Subject != "" && t.Predicate != "" && t.Object != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// NodeDegree is a node name with its relationship count.
type NodeDegree struct {
	Name   string `json:"name"`
	Degree int    `json:"degree"`
}

// TopNodes returns the most connected nodes of a namespace, by total degree.
func (r *Reader) TopNodes(ctx context.Context, namespace string, limit int) ([]NodeDegree, error) {
	if limit <= 0 {
		limit = 10
	}
	ns := nsLiteral(namespace)
	queries := []string{
		fmt.Sprintf("MATCH (n {%s: %s})-[rel]->(m) RETURN n.name, count(rel)", tagger.PropName, ns),
		fmt.Sprintf("MATCH (m)-[rel]->(n {%s: %s}) RETURN n.name, count(rel)", tagger.PropName, ns),
	}

	degrees := make(map[string]int)
	for _, text := range queries {
		rs, err := r.store.Execute(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("graph: top nodes: %w", err)
		}
		for _, row := range rs.Rows {
			name := stringAt(row, "n.name")
			if name == "" {
				continue
			}
			if c, ok := row["count(rel)"].(float64); ok {
				degrees[name] += int(c)
			}
		}
	}

	out := make([]NodeDegree, 0, len(degrees))
	for name, d := range degrees {
		out = append(out, NodeDegree{Name: name, Degree: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Counts returns the node and relationship totals of a namespace.
func (r *Reader) Counts(ctx context.Context, namespace string) (nodes, edges int, err error) {
	ns := nsLiteral(namespace)

	rs, err := r.store.Execute(ctx, fmt.Sprintf("MATCH (n {%s: %s}) RETURN count(n)", tagger.PropName, ns))
	if err != nil {
		return 0, 0, fmt.Errorf("graph: counts: %w", err)
	}
	nodes = countAt(rs, "count(n)")

	rs, err = r.store.Execute(ctx, fmt.Sprintf(
		"MATCH (a {%[1]s: %[2]s})-[rel]->(b {%[1]s: %[2]s}) RETURN count(rel)", tagger.PropName, ns))
	if err != nil {
		return 0, 0, fmt.Errorf("graph: counts: %w", err)
	}
	edges = countAt(rs, "count(rel)")
	return nodes, edges, nil
}

// DropNamespace deletes every node of the namespace along with its
// relationships and returns the deletion counters.
func (r *Reader) DropNamespace(ctx context.Context, namespace string) (graphstore.Stats, error) {
	text := fmt.Sprintf("MATCH (n {%s: %s}) DETACH DELETE n", tagger.PropName, nsLiteral(namespace))
	rs, err := r.store.Execute(ctx, text)
	if err != nil {
		return graphstore.Stats{}, fmt.Errorf("graph: drop namespace: %w", err)
	}
	r.log.Info("namespace dropped",
		"namespace", namespace,
		"nodes_deleted", rs.Stats.NodesDeleted,
		"edges_deleted", rs.Stats.EdgesDeleted,
	)
	return rs.Stats, nil
}

func stringAt(row graphstore.Row, col string) string {
	s, _ := row[col].(string)
	return s
}

func countAt(rs *graphstore.RowSet, col string) int {
	if rs.Empty() {
		return 0
	}
	if c, ok := rs.Rows[0][col].(float64); ok {
		return int(c)
	}
	return 0
}
