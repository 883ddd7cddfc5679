// Package keystore persists the known-identity sets between ingestion
// batches, one set per namespace.
package keystore

import (
	"context"
	"sync"

	"github.com/storygraph/kgraph-backend/internal/kg/identity"
)

type KeyStore interface {
	// Load returns the known set for a namespace; an empty set when the
	// namespace has never been written.
	Load(ctx context.Context, namespace string) (identity.KeySet, error)
	// Save stores the set, replacing what was there.
	Save(ctx context.Context, namespace string, keys identity.KeySet) error
	// Drop removes the set for a namespace.
	Drop(ctx context.Context, namespace string) error
}

// Memory is the in-process implementation, used in memory store mode and in
// tests.
type Memory struct {
	mu   sync.Mutex
	sets map[string]identity.KeySet
}

func NewMemory() *Memory {
	return &Memory{sets: make(map[string]identity.KeySet)}
}

func (m *Memory) Load(ctx context.Context, namespace string) (identity.KeySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sets[namespace]; ok {
		return s.Clone(), nil
	}
	return identity.NewKeySet(), nil
}

func (m *Memory) Save(ctx context.Context, namespace string, keys identity.KeySet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[namespace] = keys.Clone()
	return nil
}

func (m *Memory) Drop(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, namespace)
	return nil
}
