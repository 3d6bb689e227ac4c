package neo4j

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/codefinder/internal/graph"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jRepository implements graph.Repository using Neo4j.
type Neo4jRepository struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j connects and verifies connectivity.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver}, nil
}

const (
	mergeRepository = "MERGE (u:User {login: $user}) " +
		"MERGE (r:Repository {full_name: $repo}) " +
		"MERGE (u)-[:OWNS]->(r)"

	mergeFile = "MERGE (r:Repository {full_name: $repo}) " +
		"MERGE (f:File {repository: $repo, path: $path}) " +
		"SET f.url = $url, f.blob_sha = $sha " +
		"MERGE (r)-[:CONTAINS]->(f)"

	mergeChunks = "MATCH (f:File {repository: $repo, path: $path}) " +
		"UNWIND $ids AS id " +
		"MERGE (c:Chunk {id: id}) " +
		"MERGE (f)-[:HAS_CHUNK]->(c)"
)

// StoreProvenance writes one transaction per repository.
func (r *Neo4jRepository) StoreProvenance(ctx context.Context, p *graph.Provenance) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, repo := range p.Repositories {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			if _, err := tx.Run(ctx, mergeRepository, map[string]any{"user": p.User, "repo": repo.FullName}); err != nil {
				return nil, err
			}
			for _, f := range repo.Files {
				params := map[string]any{"repo": repo.FullName, "path": f.Path, "url": f.URL, "sha": f.BlobSHA}
				if _, err := tx.Run(ctx, mergeFile, params); err != nil {
					return nil, err
				}
				if len(f.ChunkIDs) == 0 {
					continue
				}
				ids := make([]any, len(f.ChunkIDs))
				for i, id := range f.ChunkIDs {
					ids[i] = id
				}
				if _, err := tx.Run(ctx, mergeChunks, map[string]any{"repo": repo.FullName, "path": f.Path, "ids": ids}); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		if err != nil {
			return fmt.Errorf("store repository %s: %w", repo.FullName, err)
		}
	}
	return nil
}

func (r *Neo4jRepository) ChunksForFile(ctx context.Context, repository, path string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (:File {repository: $repo, path: $path})-[:HAS_CHUNK]->(c:Chunk) RETURN c.id ORDER BY c.id",
			map[string]any{"repo": repository, "path": path})
		if err != nil {
			return nil, err
		}
		var ids []string
		for records.Next(ctx) {
			id, _ := records.Record().Get("c.id")
			if s, ok := id.(string); ok {
				ids = append(ids, s)
			}
		}
		return ids, records.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var _ graph.Repository = (*Neo4jRepository)(nil)
