package graphsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/vitaegraph/vitae/internal/core/model"
	"github.com/vitaegraph/vitae/internal/core/resolver"
	"github.com/vitaegraph/vitae/internal/driver"
	"github.com/vitaegraph/vitae/internal/logger"
)

// ErrWriteQuery is returned when a custom query starts with a write verb.
var ErrWriteQuery = errors.New("write queries are not permitted")

var writeVerbs = []string{"CREATE", "DELETE", "SET", "MERGE", "REMOVE"}

// ValidateReadOnly rejects a custom query outright when its text begins
// with a write verb, whether or not whitespace follows the verb (Cypher
// accepts `CREATE(n)`). This runs before any parameter binding or
// execution.
func ValidateReadOnly(query string) error {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return fmt.Errorf("%w: empty query", ErrWriteQuery)
	}
	for _, verb := range writeVerbs {
		if !strings.HasPrefix(q, verb) {
			continue
		}
		// a longer identifier sharing the prefix is not the verb
		if rest := q[len(verb):]; rest != "" && isIdentByte(rest[0]) {
			continue
		}
		return fmt.Errorf("%w: query starts with %s", ErrWriteQuery, verb)
	}
	return nil
}

// isIdentByte reports whether b continues an identifier in the
// uppercased query text.
func isIdentByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z')
}

// Manager projects canonical relational state into the graph store and
// answers traversal and aggregate queries over the projection.
type Manager struct {
	driver driver.GraphDriver
	logger *zap.Logger
}

func New(d driver.GraphDriver) *Manager {
	return &Manager{driver: d, logger: logger.Get()}
}

// BuildIndices delegates to the driver.
func (m *Manager) BuildIndices(ctx context.Context) error {
	return m.driver.BuildIndices(ctx)
}

// SyncUserData performs a full idempotent resync of one user's snapshot.
// Every node and edge write is a MERGE keyed by relational id, so
// syncing twice with identical input leaves the graph unchanged.
func (m *Manager) SyncUserData(ctx context.Context, snapshot *model.ProfessionalSnapshot) error {
	if snapshot == nil || snapshot.UserID == "" {
		return errors.New("snapshot has no user")
	}

	_, err := m.driver.ExecuteQuery(ctx, driver.SyncUserNodeQuery, map[string]interface{}{
		"id":        snapshot.UserID,
		"synced_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to sync user node: %w", err)
	}

	for _, rel := range snapshot.Relations {
		if err := m.syncRelation(ctx, snapshot.UserID, rel); err != nil {
			return err
		}
	}

	return m.syncRoleTransitions(ctx, snapshot)
}

func (m *Manager) syncRelation(ctx context.Context, userID string, rel model.EntityRelation) error {
	_, err := m.driver.ExecuteQuery(ctx, driver.SyncEntityNodeQuery, map[string]interface{}{
		"id":              rel.Entity.ID,
		"name":            rel.Entity.Name,
		"name_normalized": resolver.Normalize(rel.Entity.Name),
		"kind":            string(rel.Entity.Kind),
	})
	if err != nil {
		return fmt.Errorf("failed to sync entity node %s: %w", rel.Entity.ID, err)
	}

	params := map[string]interface{}{
		"user_id":    userID,
		"entity_id":  rel.Entity.ID,
		"event_id":   rel.Event.ID,
		"valid_from": rel.Event.ValidFrom.Format(time.RFC3339),
		"valid_to":   formatOptional(rel.Event.ValidTo),
	}

	var query string
	switch rel.Event.RelationType {
	case model.RelationWorkedAt:
		query = driver.SyncWorkedAtQuery
		params["role"] = metaString(rel.Event.Metadata, "role")
	case model.RelationHasSkill:
		query = driver.SyncHasSkillQuery
		params["proficiency"] = metaString(rel.Event.Metadata, "proficiency")
	case model.RelationStudiedAt:
		query = driver.SyncStudiedAtQuery
		params["degree"] = metaString(rel.Event.Metadata, "degree")
		params["field"] = metaString(rel.Event.Metadata, "field")
	default:
		query = driver.SyncPursuesQuery
	}

	if _, err := m.driver.ExecuteQuery(ctx, query, params); err != nil {
		return fmt.Errorf("failed to sync edge %s: %w", rel.Event.ID, err)
	}

	if rel.Event.RelationType == model.RelationWorkedAt {
		if role := metaString(rel.Event.Metadata, "role"); role != "" {
			_, err := m.driver.ExecuteQuery(ctx, driver.SyncRoleNodeQuery, map[string]interface{}{
				"user_id":    userID,
				"title":      resolver.Normalize(role),
				"event_id":   rel.Event.ID,
				"valid_from": rel.Event.ValidFrom.Format(time.RFC3339),
			})
			if err != nil {
				return fmt.Errorf("failed to sync role node: %w", err)
			}
		}
	}

	return nil
}

// syncRoleTransitions links consecutive role titles of one user so
// career path search has edges to walk. Keyed by user, so resync is
// idempotent.
func (m *Manager) syncRoleTransitions(ctx context.Context, snapshot *model.ProfessionalSnapshot) error {
	type roleStep struct {
		title    string
		entityID string
		from     time.Time
	}

	var steps []roleStep
	for _, rel := range snapshot.Relations {
		if rel.Event.RelationType != model.RelationWorkedAt {
			continue
		}
		role := metaString(rel.Event.Metadata, "role")
		if role == "" {
			continue
		}
		steps = append(steps, roleStep{
			title:    resolver.Normalize(role),
			entityID: rel.Entity.ID,
			from:     rel.Event.ValidFrom,
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].from.Before(steps[j].from) })

	for i := 1; i < len(steps); i++ {
		if steps[i-1].title == steps[i].title {
			continue
		}
		_, err := m.driver.ExecuteQuery(ctx, driver.SyncRoleTransitionQuery, map[string]interface{}{
			"from_title":    steps[i-1].title,
			"to_title":      steps[i].title,
			"user_id":       snapshot.UserID,
			"via_entity_id": steps[i].entityID,
		})
		if err != nil {
			return fmt.Errorf("failed to sync role transition: %w", err)
		}
	}
	return nil
}

// Network returns a user's entities and the edges pointing at them.
func (m *Manager) Network(ctx context.Context, userID string) (*model.ProfessionalNetwork, error) {
	result, err := m.driver.ExecuteQuery(ctx, driver.GetUserNetworkQuery,
		map[string]interface{}{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to query network: %w", err)
	}

	network := &model.ProfessionalNetwork{
		Nodes: []model.NetworkNode{{ID: userID, Label: userID, Kind: "user"}},
		Edges: []model.NetworkEdge{},
	}

	seen := map[string]bool{}
	for _, record := range result.Records {
		id := recordString(record, "id")
		if !seen[id] {
			seen[id] = true
			network.Nodes = append(network.Nodes, model.NetworkNode{
				ID:    id,
				Label: recordString(record, "name"),
				Kind:  recordString(record, "kind"),
			})
		}
		network.Edges = append(network.Edges, model.NetworkEdge{
			ID:       recordString(record, "event_id"),
			SourceID: userID,
			TargetID: id,
			Type:     recordString(record, "relation"),
		})
	}
	return network, nil
}

// Colleagues finds users who shared an employer with overlapping tenure.
func (m *Manager) Colleagues(ctx context.Context, userID string) ([]model.Colleague, error) {
	result, err := m.driver.ExecuteQuery(ctx, driver.GetColleaguesQuery,
		map[string]interface{}{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to query colleagues: %w", err)
	}

	now := time.Now().UTC()
	colleagues := []model.Colleague{}
	for _, record := range result.Records {
		months := tenureOverlapMonths(
			recordTime(record, "a_from"), recordTimeOptional(record, "a_to"),
			recordTime(record, "b_from"), recordTimeOptional(record, "b_to"),
			now,
		)
		if months <= 0 {
			continue
		}
		colleagues = append(colleagues, model.Colleague{
			UserID:        recordString(record, "user_id"),
			Company:       recordString(record, "company"),
			OverlapMonths: months,
		})
	}
	return colleagues, nil
}

// CareerPaths searches the role transition graph between two titles.
func (m *Manager) CareerPaths(ctx context.Context, fromRole, toRole string) ([]model.CareerPath, error) {
	result, err := m.driver.ExecuteQuery(ctx, driver.GetCareerPathsQuery, map[string]interface{}{
		"from_title": resolver.Normalize(fromRole),
		"to_title":   resolver.Normalize(toRole),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query career paths: %w", err)
	}

	paths := []model.CareerPath{}
	for _, record := range result.Records {
		raw, _ := record.Get("roles")
		var roles []string
		if list, ok := raw.([]interface{}); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					roles = append(roles, s)
				}
			}
		}
		paths = append(paths, model.CareerPath{
			Roles: roles,
			Hops:  int(recordInt(record, "hops")),
		})
	}
	return paths, nil
}

// SkillMigration mines transition frequency away from a skill across users.
func (m *Manager) SkillMigration(ctx context.Context, skill string) ([]model.SkillMigration, error) {
	result, err := m.driver.ExecuteQuery(ctx, driver.GetSkillMigrationQuery,
		map[string]interface{}{"skill": resolver.Normalize(skill)})
	if err != nil {
		return nil, fmt.Errorf("failed to query skill migration: %w", err)
	}

	migrations := []model.SkillMigration{}
	for _, record := range result.Records {
		migrations = append(migrations, model.SkillMigration{
			FromSkill: recordString(record, "from_skill"),
			ToSkill:   recordString(record, "to_skill"),
			Count:     recordInt(record, "count"),
		})
	}
	return migrations, nil
}

// Stats counts projection nodes and edges by label and type.
func (m *Manager) Stats(ctx context.Context) (*model.GraphStats, error) {
	stats := &model.GraphStats{
		NodeCounts: map[string]int64{},
		EdgeCounts: map[string]int64{},
	}

	nodes, err := m.driver.ExecuteQuery(ctx, driver.GetNodeStatsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query node stats: %w", err)
	}
	for _, record := range nodes.Records {
		stats.NodeCounts[recordString(record, "label")] = recordInt(record, "count")
	}

	edges, err := m.driver.ExecuteQuery(ctx, driver.GetEdgeStatsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query edge stats: %w", err)
	}
	for _, record := range edges.Records {
		stats.EdgeCounts[recordString(record, "type")] = recordInt(record, "count")
	}
	return stats, nil
}

// CustomQuery runs a caller-supplied read query. The write-verb guard
// fires before any execution attempt.
func (m *Manager) CustomQuery(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	result, err := m.driver.ExecuteQuery(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute custom query: %w", err)
	}

	rows := []map[string]interface{}{}
	for _, record := range result.Records {
		row := map[string]interface{}{}
		for i, key := range record.Keys {
			row[key] = record.Values[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Cleanup removes a user's projection entirely. Non-production only.
func (m *Manager) Cleanup(ctx context.Context, userID string) error {
	_, err := m.driver.ExecuteQuery(ctx, driver.CleanupUserQuery,
		map[string]interface{}{"user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to cleanup user projection: %w", err)
	}
	m.logger.Info("removed user projection", zap.String("user_id", userID))
	return nil
}

func formatOptional(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func metaString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

func recordString(record *neo4j.Record, key string) string {
	v, _ := record.Get(key)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func recordInt(record *neo4j.Record, key string) int64 {
	v, _ := record.Get(key)
	if n, ok := v.(int64); ok {
		return n
	}
	return 0
}

func recordTime(record *neo4j.Record, key string) time.Time {
	t, _ := time.Parse(time.RFC3339, recordString(record, key))
	return t
}

func recordTimeOptional(record *neo4j.Record, key string) *time.Time {
	v, _ := record.Get(key)
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func tenureOverlapMonths(aFrom time.Time, aTo *time.Time, bFrom time.Time, bTo *time.Time, now time.Time) int {
	start := aFrom
	if bFrom.After(start) {
		start = bFrom
	}
	end := now
	if aTo != nil {
		end = *aTo
	}
	if bTo != nil && bTo.Before(end) {
		end = *bTo
	}
	if !end.After(start) {
		return 0
	}
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}
