package graphstore

import "context"

// Entity is a node or relationship as returned by a store. Props values are
// plain Go types: string, float64, bool, or []any.
type Entity struct {
	ElementID string
	Labels    []string // nodes
	Type      string   // relationships
	Props     map[string]any
}

// Label returns the first label of a node, or the relationship type.
func (e Entity) Label() string {
	if e.Type != "" {
		return e.Type
	}
	if len(e.Labels) > 0 {
		return e.Labels[0]
	}
	return ""
}

// StringProp returns the named property rendered as a string, or "".
func (e Entity) StringProp(key string) string {
	v, ok := e.Props[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Row maps result column names to values. Values are Entity for whole nodes
// and relationships, or plain Go types for projected properties.
type Row map[string]any

// Entity returns the named column as an Entity when it holds one.
func (r Row) Entity(col string) (Entity, bool) {
	e, ok := r[col].(Entity)
	return e, ok
}

// Stats carries the mutation counters of one executed statement.
type Stats struct {
	NodesCreated  int
	EdgesCreated  int
	NodesDeleted  int
	EdgesDeleted  int
	PropertiesSet int
}

// RowSet is the full result of executing one statement.
type RowSet struct {
	Columns []string
	Rows    []Row
	Stats   Stats
}

// Empty reports whether the result carries no rows.
func (rs *RowSet) Empty() bool { return rs == nil || len(rs.Rows) == 0 }

// Store executes one statement against a property graph and returns its
// rows. Implementations are safe for concurrent use.
type Store interface {
	Execute(ctx context.Context, text string) (*RowSet, error)
}

// BatchStore is implemented by stores that can run several read statements
// in one round trip. The result resolver uses it to batch its synthesized
// lookups; stores without it fall back to sequential Execute calls.
type BatchStore interface {
	Store
	ExecuteBatch(ctx context.Context, texts []string) ([]*RowSet, error)
}
