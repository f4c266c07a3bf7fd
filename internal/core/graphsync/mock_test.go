package graphsync

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type executedQuery struct {
	query  string
	params map[string]interface{}
}

// mockDriver records every executed query and replays canned results
// keyed by query string.
type mockDriver struct {
	executed []executedQuery
	results  map[string]neo4j.EagerResult
	err      error
}

func newMockDriver() *mockDriver {
	return &mockDriver{results: map[string]neo4j.EagerResult{}}
}

func (m *mockDriver) ExecuteQuery(_ context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.executed = append(m.executed, executedQuery{query: query, params: params})
	if m.err != nil {
		return neo4j.EagerResult{}, m.err
	}
	if result, ok := m.results[query]; ok {
		return result, nil
	}
	return neo4j.EagerResult{}, nil
}

func (m *mockDriver) BuildIndices(context.Context) error { return nil }

func (m *mockDriver) Close(context.Context) error { return nil }

func (m *mockDriver) queries() []string {
	out := make([]string, len(m.executed))
	for i, e := range m.executed {
		out[i] = e.query
	}
	return out
}

func makeRecord(keys []string, values []interface{}) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}
