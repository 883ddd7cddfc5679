// Package services holds the application-facing operations composed from
// the engine packages.
package services

import (
	"context"
	"fmt"

	"github.com/storygraph/kgraph-backend/internal/data/graph"
	"github.com/storygraph/kgraph-backend/internal/graphstore"
	"github.com/storygraph/kgraph-backend/internal/keystore"
	"github.com/storygraph/kgraph-backend/internal/kg/ingest"
	"github.com/storygraph/kgraph-backend/internal/kg/triples"
	"github.com/storygraph/kgraph-backend/internal/platform/logger"
)

// GraphService runs ingestion batches and reads namespaces back. It owns the
// known-key lifecycle: load before a batch, persist what the batch declared.
type GraphService struct {
	log    *logger.Logger
	coord  *ingest.Coordinator
	keys   keystore.KeyStore
	reader *graph.Reader
}

func NewGraphService(store graphstore.Store, keys keystore.KeyStore, log *logger.Logger, primaryProps []string) *GraphService {
	return &GraphService{
		log:    log.With("service", "GraphService"),
		coord:  ingest.NewCoordinator(store, log, primaryProps),
		keys:   keys,
		reader: graph.NewReader(store, log),
	}
}

// IngestScript runs a statement script against a namespace.
func (s *GraphService) IngestScript(ctx context.Context, namespace, script string) (*ingest.Report, error) {
	known, err := s.keys.Load(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("load keys for %q: %w", namespace, err)
	}
	report, err := s.coord.Ingest(ctx, script, namespace, known)
	if err != nil {
		return report, err
	}
	if err := s.keys.Save(ctx, namespace, report.Keys); err != nil {
		return report, fmt.Errorf("save keys for %q: %w", namespace, err)
	}
	return report, nil
}

// IngestTriples normalizes the facts and ingests their rendered script.
func (s *GraphService) IngestTriples(ctx context.Context, namespace string, ts []triples.Triple) (*ingest.Report, error) {
	ts = triples.Normalize(ts)
	if len(ts) == 0 {
		return nil, fmt.Errorf("no complete triples in request")
	}
	return s.IngestScript(ctx, namespace, triples.Script(ts))
}

func (s *GraphService) AllTriples(ctx context.Context, namespace string) ([]triples.Triple, error) {
	return s.reader.AllTriples(ctx, namespace)
}

func (s *GraphService) TopNodes(ctx context.Context, namespace string, limit int) ([]graph.NodeDegree, error) {
	return s.reader.TopNodes(ctx, namespace, limit)
}

func (s *GraphService) Counts(ctx context.Context, namespace string) (nodes, edges int, err error) {
	return s.reader.Counts(ctx, namespace)
}

// DropNamespace deletes the namespace's graph and its persisted key set.
func (s *GraphService) DropNamespace(ctx context.Context, namespace string) (graphstore.Stats, error) {
	stats, err := s.reader.DropNamespace(ctx, namespace)
	if err != nil {
		return stats, err
	}
	if err := s.keys.Drop(ctx, namespace); err != nil {
		return stats, fmt.Errorf("drop keys for %q: %w", namespace, err)
	}
	return stats, nil
}
