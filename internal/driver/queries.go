package driver

// Projection writes are MERGE-keyed by the stable relational ids, so a
// resync with unchanged input never grows the graph.
const (
	SyncUserNodeQuery = `
		MERGE (u:User {id: $id})
		SET u.synced_at = $synced_at
		RETURN u.id AS id
	`

	SyncEntityNodeQuery = `
		MERGE (e:Entity {id: $id})
		SET e.name = $name,
			e.name_normalized = $name_normalized,
			e.kind = $kind
		RETURN e.id AS id
	`

	SyncWorkedAtQuery = `
		MATCH (u:User {id: $user_id})
		MATCH (e:Entity {id: $entity_id})
		MERGE (u)-[r:WORKED_AT {event_id: $event_id}]->(e)
		SET r.valid_from = $valid_from,
			r.valid_to = $valid_to,
			r.role = $role
		RETURN r.event_id AS event_id
	`

	SyncHasSkillQuery = `
		MATCH (u:User {id: $user_id})
		MATCH (e:Entity {id: $entity_id})
		MERGE (u)-[r:HAS_SKILL {event_id: $event_id}]->(e)
		SET r.valid_from = $valid_from,
			r.valid_to = $valid_to,
			r.proficiency = $proficiency
		RETURN r.event_id AS event_id
	`

	SyncStudiedAtQuery = `
		MATCH (u:User {id: $user_id})
		MATCH (e:Entity {id: $entity_id})
		MERGE (u)-[r:STUDIED_AT {event_id: $event_id}]->(e)
		SET r.valid_from = $valid_from,
			r.valid_to = $valid_to,
			r.degree = $degree,
			r.field = $field
		RETURN r.event_id AS event_id
	`

	SyncPursuesQuery = `
		MATCH (u:User {id: $user_id})
		MATCH (e:Entity {id: $entity_id})
		MERGE (u)-[r:PURSUES {event_id: $event_id}]->(e)
		SET r.valid_from = $valid_from,
			r.valid_to = $valid_to
		RETURN r.event_id AS event_id
	`

	SyncRoleNodeQuery = `
		MATCH (u:User {id: $user_id})
		MERGE (role:Role {title: $title})
		MERGE (u)-[r:HELD_ROLE {event_id: $event_id}]->(role)
		SET r.valid_from = $valid_from
		RETURN role.title AS title
	`

	SyncRoleTransitionQuery = `
		MATCH (a:Role {title: $from_title})
		MATCH (b:Role {title: $to_title})
		MERGE (a)-[t:TRANSITIONED_TO {user_id: $user_id}]->(b)
		SET t.via_entity_id = $via_entity_id
		RETURN t.user_id AS user_id
	`

	GetUserNetworkQuery = `
		MATCH (u:User {id: $user_id})-[r]->(e:Entity)
		RETURN e.id AS id, e.name AS name, e.kind AS kind,
		       type(r) AS relation, r.event_id AS event_id
	`

	GetColleaguesQuery = `
		MATCH (u:User {id: $user_id})-[r1:WORKED_AT]->(c:Entity {kind: 'company'})<-[r2:WORKED_AT]-(other:User)
		WHERE other.id <> $user_id
		RETURN other.id AS user_id, c.name AS company,
		       r1.valid_from AS a_from, r1.valid_to AS a_to,
		       r2.valid_from AS b_from, r2.valid_to AS b_to
	`

	GetCareerPathsQuery = `
		MATCH p = (a:Role {title: $from_title})-[:TRANSITIONED_TO*1..4]->(b:Role {title: $to_title})
		RETURN [n IN nodes(p) | n.title] AS roles, length(p) AS hops
		ORDER BY hops ASC
		LIMIT 10
	`

	GetSkillMigrationQuery = `
		MATCH (s:Entity {kind: 'skill', name_normalized: $skill})<-[r1:HAS_SKILL]-(u:User)-[r2:HAS_SKILL]->(next:Entity {kind: 'skill'})
		WHERE next.id <> s.id AND r2.valid_from > r1.valid_from
		RETURN s.name AS from_skill, next.name AS to_skill, count(DISTINCT u.id) AS count
		ORDER BY count DESC
		LIMIT 10
	`

	GetNodeStatsQuery = `
		MATCH (n)
		RETURN labels(n)[0] AS label, count(n) AS count
	`

	GetEdgeStatsQuery = `
		MATCH ()-[r]->()
		RETURN type(r) AS type, count(r) AS count
	`

	CleanupUserQuery = `
		MATCH (u:User {id: $user_id})
		DETACH DELETE u
	`
)
