// Package ingest coordinates a batch run: split the script, tag every
// statement with the target namespace, plan replay-safe rewrites, execute
// against the store, and resolve the written entities.
package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/storygraph/kgraph-backend/internal/graphstore"
	"github.com/storygraph/kgraph-backend/internal/kg/cypher"
	"github.com/storygraph/kgraph-backend/internal/kg/identity"
	"github.com/storygraph/kgraph-backend/internal/kg/kgerr"
	"github.com/storygraph/kgraph-backend/internal/kg/planner"
	"github.com/storygraph/kgraph-backend/internal/kg/resolver"
	"github.com/storygraph/kgraph-backend/internal/kg/tagger"
	"github.com/storygraph/kgraph-backend/internal/platform/ctxutil"
	"github.com/storygraph/kgraph-backend/internal/platform/logger"
)

// Coordinator runs ingestion batches against one store. Namespace and known
// keys are per-call state, so a single Coordinator serves every graph.
type Coordinator struct {
	store        graphstore.Store
	log          *logger.Logger
	primaryProps []string
}

func NewCoordinator(store graphstore.Store, log *logger.Logger, primaryProps []string) *Coordinator {
	return &Coordinator{
		store:        store,
		log:          log.With("component", "ingest"),
		primaryProps: primaryProps,
	}
}

// StatementResult is the outcome of one source statement. Executed holds the
// statement texts actually sent to the store, after tagging and rewriting.
type StatementResult struct {
	Index    int
	Source   string
	Kind     string
	Executed []string
	Rows     *graphstore.RowSet
	Entities []resolver.EntityHandle
	Err      error
}

func (r StatementResult) Failed() bool { return r.Err != nil }

// Report is the outcome of one batch.
type Report struct {
	BatchID   string
	Namespace string
	Results   []StatementResult
	// Keys is the caller's known set plus every identity the batch
	// successfully declared; persist it and pass it to the next batch.
	Keys identity.KeySet
}

func (r *Report) FailedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Failed() {
			n++
		}
	}
	return n
}

// Ingest runs one script against the namespace. Statement-level failures
// are recorded and the batch continues; a split failure or a cancelled
// context aborts the whole batch.
func (c *Coordinator) Ingest(ctx context.Context, script, namespace string, known identity.KeySet) (*Report, error) {
	batchID := uuid.NewString()
	log := c.log.With("batch_id", batchID, "namespace", namespace)
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.RequestID != "" {
			log = log.With("request_id", td.RequestID)
		}
		if td.TraceID != "" {
			log = log.With("trace_id", td.TraceID)
		}
	}

	raws, err := cypher.SplitStatements(script)
	if err != nil {
		log.Warn("batch rejected", "error", err)
		return nil, err
	}
	if known == nil {
		known = identity.NewKeySet()
	}

	report := &Report{BatchID: batchID, Namespace: namespace}
	p := &planner.Planner{Namespace: namespace, PrimaryProps: c.primaryProps}
	res := &resolver.Resolver{Store: c.store, Namespace: namespace, PrimaryProps: c.primaryProps}

	// Tag everything up front; tagging failures surface as per-statement
	// results but keep their statements out of the plan.
	var sources []planner.Source
	results := make([]StatementResult, len(raws))
	for i, raw := range raws {
		results[i] = StatementResult{Index: i, Source: raw}
		st, err := tagger.Tag(cypher.Parse(raw), namespace)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Kind = st.Kind.String()
		sources = append(sources, planner.Source{Index: i, Statement: st})
	}

	items, keys := p.Plan(sources, known)

	// committed holds identities that must survive statement failures: the
	// caller's known set plus everything declared by items that executed
	// cleanly. Only a failed item's own new declarations are dropped.
	committed := known.Clone()

	for _, item := range items {
		r := &results[item.SourceIndex]
		if r.Err != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Results = results
			report.Keys = keys
			return report, err
		}
		if item.Err != nil {
			r.Err = item.Err
			dropKeys(keys, item.DeclaredKeys, committed)
			continue
		}

		text := item.Statement.Raw
		r.Executed = append(r.Executed, text)
		rs, err := c.store.Execute(ctx, text)
		if err != nil {
			r.Err = kgerr.Wrap(kgerr.StoreError, err)
			dropKeys(keys, item.DeclaredKeys, committed)
			log.Warn("statement failed", "index", item.SourceIndex, "error", err)
			continue
		}
		if r.Rows == nil || !rs.Empty() {
			r.Rows = rs
		}

		handles, err := res.Resolve(ctx, item.Statement, rs)
		if err != nil {
			r.Err = err
			dropKeys(keys, item.DeclaredKeys, committed)
			log.Warn("post-condition failed", "index", item.SourceIndex, "error", err)
			continue
		}
		r.Entities = append(r.Entities, handles...)
		for _, k := range item.DeclaredKeys {
			committed.Add(k)
		}
	}

	report.Results = results
	report.Keys = keys
	log.Info("batch ingested",
		"statements", len(raws),
		"failed", report.FailedCount(),
	)
	return report, nil
}

// dropKeys removes a failed item's declarations so the returned set only
// claims identities that were actually written. Keys in the committed set
// refer to entities that exist regardless of this failure and stay put.
func dropKeys(keys identity.KeySet, declared []identity.Key, committed identity.KeySet) {
	for _, k := range declared {
		if k.IsZero() || committed.Has(k) {
			continue
		}
		delete(keys, k.String())
	}
}
