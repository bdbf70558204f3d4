package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Field is an indexed translatable field.
type Field struct {
	Key  string
	Tag  string
	Text string
	File string
}

// DefSummary counts the indexed fields of one definition.
type DefSummary struct {
	DefType string
	DefName string
	Fields  int
}

// Querier reads the definition index.
type Querier struct {
	driver neo4j.DriverWithContext
}

// NewQuerier creates a new querier.
func NewQuerier(driver neo4j.DriverWithContext) *Querier {
	return &Querier{driver: driver}
}

// FieldsOfDef lists the translatable fields of one definition.
func (q *Querier) FieldsOfDef(ctx context.Context, defType, defName string) ([]Field, error) {
	session := q.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (d:Def {defType: $defType, defName: $defName})-[:HAS_TEXT]->(f:Field)
		RETURN f.key AS key, f.tag AS tag, f.text AS text, f.file AS file
		ORDER BY f.key
	`, map[string]any{"defType": defType, "defName": defName})
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}

	var fields []Field
	for result.Next(ctx) {
		record := result.Record()
		key, _ := record.Get("key")
		tag, _ := record.Get("tag")
		text, _ := record.Get("text")
		file, _ := record.Get("file")
		fields = append(fields, Field{
			Key:  fmt.Sprintf("%v", key),
			Tag:  fmt.Sprintf("%v", tag),
			Text: fmt.Sprintf("%v", text),
			File: fmt.Sprintf("%v", file),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read fields: %w", err)
	}
	return fields, nil
}

// DefsOfMod summarises every definition a mod declares.
func (q *Querier) DefsOfMod(ctx context.Context, mod string) ([]DefSummary, error) {
	session := q.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (:Mod {name: $mod})-[:DECLARES]->(d:Def)
		OPTIONAL MATCH (d)-[:HAS_TEXT]->(f:Field)
		RETURN d.defType AS defType, d.defName AS defName, count(f) AS fields
		ORDER BY defType, defName
	`, map[string]any{"mod": mod})
	if err != nil {
		return nil, fmt.Errorf("query defs: %w", err)
	}

	var defs []DefSummary
	for result.Next(ctx) {
		record := result.Record()
		defType, _ := record.Get("defType")
		defName, _ := record.Get("defName")
		n, _ := record.Get("fields")
		count, _ := n.(int64)
		defs = append(defs, DefSummary{
			DefType: fmt.Sprintf("%v", defType),
			DefName: fmt.Sprintf("%v", defName),
			Fields:  int(count),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("read defs: %w", err)
	}

	log.Debug().Str("mod", mod).Int("defs", len(defs)).Msg("Graph query complete")
	return defs, nil
}
