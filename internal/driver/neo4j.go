package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/logger"
)

// Neo4jDriver wraps the bolt driver and applies a bounded timeout to
// every call. The graph store is a derived projection, so calls must
// fail fast instead of holding up the primary request path.
type Neo4jDriver struct {
	Driver  neo4j.DriverWithContext
	timeout time.Duration
	logger  *zap.Logger
}

func NewNeo4jDriver(uri, username, password string, timeout time.Duration) (*Neo4jDriver, error) {
	d, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := d.VerifyConnectivity(ctx); err != nil {
		return nil, err
	}

	log := logger.Get()
	log.Info("Connected to graph store", zap.String("uri", uri))

	return &Neo4jDriver{Driver: d, timeout: timeout, logger: log}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX user_id IF NOT EXISTS FOR (u:User) ON (u.id);",
		"CREATE INDEX entity_id IF NOT EXISTS FOR (e:Entity) ON (e.id);",
		"CREATE INDEX entity_kind IF NOT EXISTS FOR (e:Entity) ON (e.kind);",
		"CREATE INDEX role_title IF NOT EXISTS FOR (r:Role) ON (r.title);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// Index might already exist on older servers without IF NOT EXISTS.
			d.logger.Warn("failed to create index", zap.String("query", q), zap.Error(err))
		}
	}
	return nil
}
