// Package memstore is an in-memory property graph that executes the same
// statement dialect the ingestion engine emits. It backs unit tests and the
// memory store mode, where no external graph database is configured.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/storygraph/kgraph-backend/internal/graphstore"
	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
)

type node struct {
	id     int64
	labels []string
	props  map[string]cypher.Value
}

type edge struct {
	id       int64
	relType  string
	props    map[string]cypher.Value
	src, dst int64
}

// Store holds the graph. All methods are safe for concurrent use; each
// statement executes atomically under the store lock.
type Store struct {
	mu     sync.Mutex
	nextID int64
	nodes  map[int64]*node
	edges  map[int64]*edge
}

func New() *Store {
	return &Store{
		nodes: make(map[int64]*node),
		edges: make(map[int64]*edge),
	}
}

// Execute runs one statement and returns its rows.
func (s *Store) Execute(ctx context.Context, text string) (*graphstore.RowSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(text)
}

// ExecuteBatch runs the statements sequentially under one lock acquisition.
func (s *Store) ExecuteBatch(ctx context.Context, texts []string) ([]*graphstore.RowSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*graphstore.RowSet, 0, len(texts))
	for _, text := range texts {
		rs, err := s.run(text)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

// NodeCount returns the number of stored nodes.
func (s *Store) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// EdgeCount returns the number of stored relationships.
func (s *Store) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

func (s *Store) newNode(labels []string, props cypher.PropList) *node {
	s.nextID++
	n := &node{id: s.nextID, labels: append([]string(nil), labels...), props: toMap(props)}
	s.nodes[n.id] = n
	return n
}

func (s *Store) newEdge(relType string, props cypher.PropList, src, dst int64) *edge {
	s.nextID++
	e := &edge{id: s.nextID, relType: relType, props: toMap(props), src: src, dst: dst}
	s.edges[e.id] = e
	return e
}

// nodeIDs returns node ids in insertion order, for deterministic matching.
func (s *Store) nodeIDs() []int64 {
	ids := make([]int64, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) edgeIDs() []int64 {
	ids := make([]int64, 0, len(s.edges))
	for id := range s.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func toMap(props cypher.PropList) map[string]cypher.Value {
	m := make(map[string]cypher.Value, len(props))
	for _, p := range props {
		m[p.Key] = p.Val
	}
	return m
}

func (n *node) matches(labels []string, props cypher.PropList) bool {
	for _, want := range labels {
		found := false
		for _, have := range n.labels {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return matchProps(n.props, props)
}

func (e *edge) matches(relType string, props cypher.PropList) bool {
	if relType != "" && e.relType != relType {
		return false
	}
	return matchProps(e.props, props)
}

func matchProps(have map[string]cypher.Value, want cypher.PropList) bool {
	for _, p := range want {
		v, ok := have[p.Key]
		if !ok || !v.Equal(p.Val) {
			return false
		}
	}
	return true
}

func (n *node) entity() graphstore.Entity {
	return graphstore.Entity{
		ElementID: strconv.FormatInt(n.id, 10),
		Labels:    append([]string(nil), n.labels...),
		Props:     propsToAny(n.props),
	}
}

func (e *edge) entity() graphstore.Entity {
	return graphstore.Entity{
		ElementID: strconv.FormatInt(e.id, 10),
		Type:      e.relType,
		Props:     propsToAny(e.props),
	}
}

func propsToAny(m map[string]cypher.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v cypher.Value) any {
	switch v.Kind {
	case cypher.ValueString:
		return v.Str
	case cypher.ValueNumber:
		return v.Num
	case cypher.ValueBool:
		return v.Bool
	case cypher.ValueList:
		items := make([]any, 0, len(v.List))
		for _, item := range v.List {
			items = append(items, valueToAny(item))
		}
		return items
	}
	return nil
}
