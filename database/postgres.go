package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/tieubaoca/policy-assistant/types"
)

// OpenPostgres opens a pooled connection to dsn and verifies it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresIndex ranks chunks by ts_rank_cd against the search_vector column
// computed at ingestion time.
type PostgresIndex struct {
	db *sql.DB
}

var _ LexicalIndex = (*PostgresIndex)(nil)

func NewPostgresIndex(db *sql.DB) *PostgresIndex {
	return &PostgresIndex{db: db}
}

func (s *PostgresIndex) Search(ctx context.Context, query string, limit int) ([]types.Passage, error) {
	if len(searchTerms(query)) == 0 || limit <= 0 {
		return []types.Passage{}, nil
	}

	builder := sq.Select(passageColumns...).
		Column("ts_rank_cd(c.search_vector, query) AS score").
		From("chunks c").
		Join("documents d ON d.id = c.document_id").
		JoinClause("CROSS JOIN plainto_tsquery('english', ?) AS query", query).
		Where("c.search_vector @@ query").
		Where(sq.Eq{"d.status": string(types.DOCUMENT_STATUS_COMPLETED)}).
		OrderBy("score DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)

	return queryPassages(ctx, s.db, builder, limit)
}
