package identity

import (
	"sort"
	"strings"

	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
)

// PrimaryProps are the property names, in precedence order, that identify a
// node or edge. The first one present in a pattern's property map becomes
// the identity property. Overridable through app config.
var DefaultPrimaryProps = []string{"id", "name", "key"}

// Key identifies one logical graph element: two references with equal Keys
// must resolve to the same underlying node or edge, within and across
// batches.
type Key struct {
	Label     string // node label or edge type
	PropName  string
	PropValue string // canonical text form
	Namespace string
	Edge      bool
	// Edge keys fold in the endpoint identities so the same relation between
	// different nodes stays distinct.
	SrcKey string
	DstKey string
}

// String is the canonical serialized form, safe to persist and compare.
func (k Key) String() string {
	kind := "n"
	if k.Edge {
		kind = "e"
	}
	parts := []string{kind, k.Label, k.PropName, k.PropValue, k.Namespace}
	if k.Edge {
		parts = append(parts, k.SrcKey, k.DstKey)
	}
	return strings.Join(parts, "\x1f")
}

func (k Key) IsZero() bool { return k.Label == "" && k.PropValue == "" }

// NodeKey derives the identity of a node reference, or a zero Key when the
// reference has no primary property to identify it by.
func NodeKey(ref cypher.EntityRef, namespace string, primaryProps []string) Key {
	if ref.Kind != cypher.NodeRef {
		return Key{}
	}
	if len(primaryProps) == 0 {
		primaryProps = DefaultPrimaryProps
	}
	label := ""
	if len(ref.Labels) > 0 {
		label = ref.Labels[0]
	}
	for _, name := range primaryProps {
		if v, ok := ref.Props.Get(name); ok {
			return Key{
				Label:     label,
				PropName:  name,
				PropValue: v.Canonical(),
				Namespace: namespace,
			}
		}
	}
	return Key{}
}

// EdgeKey derives the identity of an edge given the already-derived keys of
// its endpoints. Zero endpoint keys yield a zero Key: an edge between
// unidentifiable nodes cannot be deduplicated.
func EdgeKey(ref cypher.EntityRef, namespace string, src, dst Key) Key {
	if ref.Kind != cypher.EdgeRef || ref.RelType == "" || src.IsZero() || dst.IsZero() {
		return Key{}
	}
	return Key{
		Label:     ref.RelType,
		Namespace: namespace,
		Edge:      true,
		SrcKey:    src.String(),
		DstKey:    dst.String(),
	}
}

// KeySet is the explicit "known existing" state threaded through an ingest
// call: supplied by the caller, grown as the batch declares entities, and
// returned for the caller to persist.
type KeySet map[string]struct{}

func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		if k != "" {
			s[k] = struct{}{}
		}
	}
	return s
}

func (s KeySet) Has(k Key) bool {
	if k.IsZero() {
		return false
	}
	_, ok := s[k.String()]
	return ok
}

func (s KeySet) Add(k Key) {
	if !k.IsZero() {
		s[k.String()] = struct{}{}
	}
}

func (s KeySet) AddString(k string) {
	if k != "" {
		s[k] = struct{}{}
	}
}

// Clone returns an independent copy so callers' sets are never mutated.
func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Strings returns the canonical members in sorted order.
func (s KeySet) Strings() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
