package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tieubaoca/policy-assistant/types"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// ApplySchema creates the documents, chunks, lexical index and interaction
// tables for driver ("postgres" or "sqlite"). Statements are idempotent.
func ApplySchema(ctx context.Context, db *sql.DB, driver string) error {
	content, err := schemaFS.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for driver %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("apply %s schema: %w", driver, err)
	}
	return nil
}

var passageColumns = []string{
	"c.id",
	"c.document_id",
	"c.ordinal",
	"COALESCE(c.section, '')",
	"c.content",
	"d.title",
	"d.source",
	"COALESCE(d.url, '')",
}

func queryPassages(ctx context.Context, db *sql.DB, builder sq.SelectBuilder, limit int) ([]types.Passage, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	passages := make([]types.Passage, 0, limit)
	for rows.Next() {
		var p types.Passage
		if err := rows.Scan(
			&p.ChunkID,
			&p.DocumentID,
			&p.Ordinal,
			&p.Section,
			&p.Text,
			&p.Title,
			&p.Source,
			&p.URL,
			&p.Score,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return passages, nil
}
