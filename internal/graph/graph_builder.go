package graph

import (
	"context"
	"fmt"

	"mod-localizer/internal/keypath"
	"mod-localizer/internal/unit"
	"mod-localizer/internal/worker"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const upsertBatch = 1000

// Connect opens a driver and verifies connectivity.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")
	return driver, nil
}

// Indexer records which definitions a mod declares and which of their
// fields carry translatable text.
type Indexer struct {
	driver neo4j.DriverWithContext
}

// NewIndexer creates a new indexer.
func NewIndexer(driver neo4j.DriverWithContext) *Indexer {
	return &Indexer{driver: driver}
}

// EnsureSchema creates uniqueness constraints.
func (ix *Indexer) EnsureSchema(ctx context.Context) error {
	session := ix.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (m:Mod) REQUIRE m.name IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (d:Def) REQUIRE (d.defType, d.defName) IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (f:Field) REQUIRE f.key IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

const upsertCypher = `
UNWIND $rows AS row
MERGE (m:Mod {name: $mod})
MERGE (d:Def {defType: row.defType, defName: row.defName})
MERGE (m)-[:DECLARES]->(d)
MERGE (f:Field {key: row.key})
SET f.tag = row.tag, f.text = row.text, f.file = row.file
MERGE (d)-[:HAS_TEXT]->(f)
`

// IndexUnits upserts the Mod, Def and Field nodes for DefInjected units.
// Keyed units have no owning definition and are skipped.
func (ix *Indexer) IndexUnits(ctx context.Context, mod string, units []unit.TranslationUnit) (int, error) {
	rows := fieldRows(units)
	if len(rows) == 0 {
		return 0, nil
	}

	session := ix.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, batch := range worker.Chunk(rows, upsertBatch) {
		if _, err := session.Run(ctx, upsertCypher, map[string]any{"mod": mod, "rows": lo.ToAnySlice(batch)}); err != nil {
			return 0, fmt.Errorf("upsert fields: %w", err)
		}
	}

	log.Info().Str("mod", mod).Int("fields", len(rows)).Msg("Indexed definitions")
	return len(rows), nil
}

// fieldRows builds the Cypher parameter rows for units.
func fieldRows(units []unit.TranslationUnit) []map[string]any {
	var rows []map[string]any
	for _, u := range units {
		if u.Kind != unit.DefInjected {
			continue
		}
		defType, canonical := keypath.Split(u.Key)
		if u.DefType != "" {
			defType = u.DefType
		}
		rows = append(rows, map[string]any{
			"key":     defType + "/" + canonical,
			"defType": defType,
			"defName": keypath.DefName(canonical),
			"tag":     u.Tag,
			"text":    u.Text,
			"file":    u.SourceFile,
		})
	}
	return rows
}
