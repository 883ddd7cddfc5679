package neo4jdb

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/storygraph/kgraph-backend/internal/graphstore"
	"github.com/storygraph/kgraph-backend/internal/platform/envutil"
	"github.com/storygraph/kgraph-backend/internal/platform/logger"
)

// Client wraps the bolt driver and adapts it to the graphstore contracts.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
	log      *logger.Logger
}

// NewFromEnv connects using NEO4J_* variables. A missing NEO4J_URI returns
// (nil, nil) so the caller can fall back to another store mode.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("neo4jdb: logger required")
	}

	uri := envutil.String("NEO4J_URI", "")
	if uri == "" {
		return nil, nil
	}

	user := envutil.String("NEO4J_USER", "neo4j")
	password := envutil.String("NEO4J_PASSWORD", "")
	database := envutil.String("NEO4J_DATABASE", "")
	timeout := time.Duration(envutil.Int("NEO4J_TIMEOUT_SECONDS", 10)) * time.Second
	maxPool := envutil.Int("NEO4J_MAX_POOL_SIZE", 50)

	auth := neo4j.BasicAuth(user, password, "")
	driver, err := neo4j.NewDriverWithContext(uri, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: init driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jdb: verify connectivity: %w", err)
	}

	return &Client{
		Driver:   driver,
		Database: database,
		log:      log.With("client", "Neo4jDB"),
	}, nil
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}

// Execute runs one statement in its own write transaction.
func (c *Client) Execute(ctx context.Context, text string) (*graphstore.RowSet, error) {
	results, err := c.ExecuteBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// ExecuteBatch runs the statements sequentially inside one write
// transaction, so a batch of resolver lookups costs a single round of
// session setup.
func (c *Client) ExecuteBatch(ctx context.Context, texts []string) ([]*graphstore.RowSet, error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.Database})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		results := make([]*graphstore.RowSet, 0, len(texts))
		for _, text := range texts {
			res, err := tx.Run(ctx, text, nil)
			if err != nil {
				return nil, err
			}
			rs, err := collect(ctx, res)
			if err != nil {
				return nil, err
			}
			results = append(results, rs)
		}
		return results, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jdb: execute: %w", err)
	}
	return out.([]*graphstore.RowSet), nil
}

func collect(ctx context.Context, res neo4j.ResultWithContext) (*graphstore.RowSet, error) {
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	rs := &graphstore.RowSet{}
	for _, rec := range records {
		if rs.Columns == nil {
			rs.Columns = rec.Keys
		}
		row := graphstore.Row{}
		for i, key := range rec.Keys {
			row[key] = convertValue(rec.Values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return nil, err
	}
	counters := summary.Counters()
	rs.Stats = graphstore.Stats{
		NodesCreated:  counters.NodesCreated(),
		EdgesCreated:  counters.RelationshipsCreated(),
		NodesDeleted:  counters.NodesDeleted(),
		EdgesDeleted:  counters.RelationshipsDeleted(),
		PropertiesSet: counters.PropertiesSet(),
	}
	return rs, nil
}

func convertValue(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		return graphstore.Entity{
			ElementID: t.GetElementId(),
			Labels:    t.Labels,
			Props:     t.Props,
		}
	case neo4j.Relationship:
		return graphstore.Entity{
			ElementID: t.GetElementId(),
			Type:      t.Type,
			Props:     t.Props,
		}
	case int64:
		return float64(t)
	default:
		return v
	}
}
