package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/tieubaoca/policy-assistant/types"
)

const interactionsTable = "interactions"

type sqlInteractionRepo struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

// NewPostgresInteractionRepo stores interactions in Postgres; citations go
// into a JSONB column.
func NewPostgresInteractionRepo(db *sql.DB) InteractionRepo {
	return &sqlInteractionRepo{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// NewSQLiteInteractionRepo stores interactions in SQLite; citations are JSON text.
func NewSQLiteInteractionRepo(db *sql.DB) InteractionRepo {
	return &sqlInteractionRepo{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

func (r *sqlInteractionRepo) Record(ctx context.Context, interaction *types.Interaction) (string, error) {
	prepare(interaction)
	citations, err := json.Marshal(interaction.Citations)
	if err != nil {
		return "", fmt.Errorf("encode citations: %w", err)
	}

	_, err = r.builder.Insert(interactionsTable).
		Columns("id", "session_id", "user_email", "question", "answer", "citations", "feedback", "created_at").
		Values(
			interaction.ID,
			interaction.SessionID,
			nullString(interaction.UserEmail),
			interaction.Question,
			interaction.Answer,
			string(citations),
			string(interaction.Feedback),
			interaction.CreatedAt,
		).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("insert interaction: %w", err)
	}
	return interaction.ID, nil
}

func (r *sqlInteractionRepo) ApplyFeedback(ctx context.Context, id string, feedback types.Feedback) error {
	res, err := r.builder.Update(interactionsTable).
		Set("feedback", string(feedback)).
		Where(sq.Eq{"id": id}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqlInteractionRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*types.Interaction, error) {
	query := r.builder.
		Select("id", "session_id", "user_email", "question", "answer", "citations", "feedback", "created_at").
		From(interactionsTable).
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("created_at ASC", "id ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	interactions := make([]*types.Interaction, 0)
	for rows.Next() {
		var (
			interaction types.Interaction
			email       sql.NullString
			citations   []byte
			feedback    string
		)
		if err := rows.Scan(
			&interaction.ID,
			&interaction.SessionID,
			&email,
			&interaction.Question,
			&interaction.Answer,
			&citations,
			&feedback,
			&interaction.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if email.Valid {
			interaction.UserEmail = &email.String
		}
		interaction.Feedback = types.Feedback(feedback)
		if err := json.Unmarshal(citations, &interaction.Citations); err != nil {
			return nil, fmt.Errorf("decode citations of %s: %w", interaction.ID, err)
		}
		if interaction.Citations == nil {
			interaction.Citations = []types.Citation{}
		}
		interactions = append(interactions, &interaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return interactions, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
