// Package neo4j implements store.GraphStore on a Neo4j property graph.
// Ordering is encoded as FIRST_*/NEXT_* relationship chains because the
// graph has no ordered adjacency; see the store package docs.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Storage is the Neo4j-backed graph store. Safe for concurrent use; the
// driver pools sessions internally.
type Storage struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewStorageParams configures the Neo4j connection.
type NewStorageParams struct {
	URI      string
	Username string
	Password string
	Database string // empty means the server default
}

// NewStorage connects to Neo4j, verifies connectivity, and creates the
// lookup indexes the writers and readers depend on.
func NewStorage(ctx context.Context, params NewStorageParams) (*Storage, error) {
	driver, err := neo4j.NewDriverWithContext(params.URI, neo4j.BasicAuth(params.Username, params.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach neo4j: %w", err)
	}

	s := &Storage{
		driver:   driver,
		database: params.Database,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying driver.
func (s *Storage) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS FOR (n:Chunk) ON (n.uuid)",
		"CREATE INDEX IF NOT EXISTS FOR (n:Page) ON (n.uuid)",
		"CREATE INDEX IF NOT EXISTS FOR (n:Page) ON (n.title)",
		"CREATE INDEX IF NOT EXISTS FOR (n:Section) ON (n.uuid)",
		"CREATE INDEX IF NOT EXISTS FOR (n:Section) ON (n.parent_uuid, n.name)",
		"CREATE INDEX IF NOT EXISTS FOR (n:Category) ON (n.uuid)",
		"CREATE INDEX IF NOT EXISTS FOR (n:Category) ON (n.title)",
	}
	for _, stmt := range statements {
		if _, err := s.run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// run executes one Cypher statement. Every store operation is a single
// statement; per-statement atomicity is the only transactional guarantee
// the write protocol relies on.
func (s *Storage) run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	return neo4j.ExecuteQuery(
		ctx,
		s.driver,
		query,
		params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
	)
}

// singleString extracts one string column from a single-record result.
func singleString(result *neo4j.EagerResult, key string) (string, error) {
	if len(result.Records) == 0 {
		return "", fmt.Errorf("no record returned for %q", key)
	}
	value, ok := result.Records[0].Get(key)
	if !ok {
		return "", fmt.Errorf("missing column %q", key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("column %q is not a string", key)
	}
	return str, nil
}
