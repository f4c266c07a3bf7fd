package driver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphDriver abstracts the secondary graph store so the projection
// logic can run against a real server or a test double.
type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}
