package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/storygraph/kgraph-backend/internal/app"
	"github.com/storygraph/kgraph-backend/internal/kg/ingest"
	"github.com/storygraph/kgraph-backend/internal/kg/triples"
)

func main() {
	_ = godotenv.Load()

	namespace := flag.String("namespace", "", "ingest every file into this one namespace, in order (default: one namespace per file, named after the file)")
	flag.Parse()

	a, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// With file arguments the binary ingests them and exits; without, it
	// serves the HTTP API.
	if files := flag.Args(); len(files) > 0 {
		if err := ingestFiles(ctx, a, *namespace, files); err != nil {
			a.Log.Error("ingestion failed", "error", err)
			a.Close()
			os.Exit(1)
		}
		return
	}

	if err := a.Run(ctx); err != nil {
		a.Log.Error("server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}

// ingestFiles loads the given files. With an explicit namespace the files
// share it and run in order, so later files see the identities declared by
// earlier ones. Otherwise each file gets its own namespace, named after the
// file, and the files run concurrently.
func ingestFiles(ctx context.Context, a *app.App, namespace string, files []string) error {
	if namespace != "" {
		for _, path := range files {
			if err := ingestFile(ctx, a, namespace, path); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range files {
		path := path
		g.Go(func() error {
			return ingestFile(ctx, a, fileNamespace(path), path)
		})
	}
	return g.Wait()
}

// fileNamespace derives a namespace from a file path: the base name without
// its extension.
func fileNamespace(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ingestFile loads one file into the namespace. YAML and JSON files are
// treated as triple lists; anything else as a statement script.
func ingestFile(ctx context.Context, a *app.App, namespace, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var report *ingest.Report
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		ts, err := triples.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		report, err = a.Graph.IngestTriples(ctx, namespace, ts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	default:
		report, err = a.Graph.IngestScript(ctx, namespace, string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	a.Log.Info("file ingested",
		"file", path,
		"namespace", namespace,
		"batch_id", report.BatchID,
		"statements", len(report.Results),
		"failed", report.FailedCount(),
	)
	for _, res := range report.Results {
		if res.Failed() {
			a.Log.Warn("statement failed", "file", path, "index", res.Index, "error", res.Err)
		}
	}
	if n := report.FailedCount(); n > 0 {
		return fmt.Errorf("%s: %d statements failed", path, n)
	}
	return nil
}
