package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tieubaoca/policy-assistant/types"
)

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// SQLiteIndex ranks chunks with FTS5 bm25. bm25 is lower-is-better, so the
// score is negated.
type SQLiteIndex struct {
	db *sql.DB
}

var _ LexicalIndex = (*SQLiteIndex)(nil)

func NewSQLiteIndex(db *sql.DB) *SQLiteIndex {
	return &SQLiteIndex{db: db}
}

func (s *SQLiteIndex) Search(ctx context.Context, query string, limit int) ([]types.Passage, error) {
	match := ftsExpression(query)
	if match == "" || limit <= 0 {
		return []types.Passage{}, nil
	}

	ranked := sq.Select("chunk_id", "-bm25(chunks_fts) AS score").
		From("chunks_fts").
		Where("chunks_fts MATCH ?", match)

	builder := sq.Select(passageColumns...).
		Column("f.score").
		FromSelect(ranked, "f").
		Join("chunks c ON c.id = f.chunk_id").
		Join("documents d ON d.id = c.document_id").
		Where(sq.Eq{"d.status": string(types.DOCUMENT_STATUS_COMPLETED)}).
		OrderBy("f.score DESC").
		Limit(uint64(limit))

	return queryPassages(ctx, s.db, builder, limit)
}

// ftsExpression quotes every term and ORs them so user punctuation never
// reaches the FTS5 query parser.
func ftsExpression(query string) string {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}
