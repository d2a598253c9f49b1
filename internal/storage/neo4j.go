package storage

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nick-dorsch/planner/internal/codec"
	"github.com/nick-dorsch/planner/pkg/models"
)

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore keeps each task as a (:Task) node. Nesting is a
// (child)-[:HAS_PARENT]->(parent) edge and sibling order is the node's
// position in the flattened forest.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	schema   codec.Schema
}

// OpenNeo4j connects to the server described by cfg and checks
// connectivity.
func OpenNeo4j(ctx context.Context, cfg Neo4jConfig, schema codec.Schema) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return NewNeo4jStore(driver, cfg.Database, schema), nil
}

func NewNeo4jStore(driver neo4j.DriverWithContext, database string, schema codec.Schema) *Neo4jStore {
	return &Neo4jStore{driver: driver, database: database, schema: schema}
}

func (s *Neo4jStore) Name() string { return "neo4j" }

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) Load(ctx context.Context) (string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task) "+
				"OPTIONAL MATCH (t)-[:HAS_PARENT]->(p:Task) "+
				"RETURN t.id AS id, t.title AS title, t.description AS description, "+
				"t.completed AS completed, t.createdAt AS createdAt, t.updatedAt AS updatedAt, "+
				"t.dueDate AS dueDate, t.category AS category, t.priority AS priority, p.id AS parentId "+
				"ORDER BY t.position",
			nil,
		)
		if err != nil {
			return nil, err
		}

		var rows []codec.Row
		for res.Next(ctx) {
			m := res.Record().AsMap()
			completed, _ := m["completed"].(bool)
			rows = append(rows, codec.Row{
				ID:          str(m, "id"),
				Title:       str(m, "title"),
				Description: str(m, "description"),
				Completed:   completed,
				CreatedAt:   codec.ParseTimestamp(str(m, "createdAt")),
				UpdatedAt:   codec.ParseTimestamp(str(m, "updatedAt")),
				DueDate:     str(m, "dueDate"),
				ParentID:    str(m, "parentId"),
				Category:    models.ParseCategory(str(m, "category")),
				Priority:    models.ParsePriority(str(m, "priority")),
			})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return "", loadError(s.Name(), fmt.Errorf("failed to read tasks: %w", err))
	}

	rows := result.([]codec.Row)
	if len(rows) == 0 {
		return "", nil
	}
	f, _ := codec.Build(rows, codec.WithForwardReferences())
	return codec.Encode(f, s.schema), nil
}

// Save replaces every (:Task) node with the forest in text, in a single
// write transaction.
func (s *Neo4jStore) Save(ctx context.Context, text string) error {
	f, _ := codec.Decode(text)
	rows := codec.Rows(f)

	nodes := make([]map[string]any, 0, len(rows))
	var links []map[string]any
	for i, r := range rows {
		nodes = append(nodes, map[string]any{
			"id":          r.ID,
			"title":       r.Title,
			"description": r.Description,
			"completed":   r.Completed,
			"createdAt":   codec.FormatTimestamp(r.CreatedAt),
			"updatedAt":   codec.FormatTimestamp(r.UpdatedAt),
			"dueDate":     r.DueDate,
			"category":    string(r.Category),
			"priority":    string(r.Priority),
			"position":    int64(i),
		})
		if r.ParentID != "" {
			links = append(links, map[string]any{"id": r.ID, "parentId": r.ParentID})
		}
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, "MATCH (t:Task) DETACH DELETE t", nil); err != nil {
			return nil, err
		}
		if len(nodes) > 0 {
			if _, err := tx.Run(ctx,
				"UNWIND $nodes AS n CREATE (t:Task) SET t = n",
				map[string]any{"nodes": nodes},
			); err != nil {
				return nil, err
			}
		}
		if len(links) > 0 {
			if _, err := tx.Run(ctx,
				"UNWIND $links AS l "+
					"MATCH (c:Task {id: l.id}), (p:Task {id: l.parentId}) "+
					"CREATE (c)-[:HAS_PARENT]->(p)",
				map[string]any{"links": links},
			); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return saveError(s.Name(), fmt.Errorf("failed to write tasks: %w", err))
	}
	return nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
