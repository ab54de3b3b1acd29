package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tieubaoca/policy-assistant/types"
)

// ErrNotFound is returned when no interaction has the requested id.
var ErrNotFound = errors.New("interaction not found")

// InteractionRepo persists answered interactions. Record is insert-only;
// ApplyFeedback is the only mutation and touches the feedback field alone.
type InteractionRepo interface {
	Record(ctx context.Context, interaction *types.Interaction) (string, error)
	ApplyFeedback(ctx context.Context, id string, feedback types.Feedback) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*types.Interaction, error)
}

// prepare fills the server-assigned fields before insert.
func prepare(interaction *types.Interaction) {
	if interaction.ID == "" {
		interaction.ID = uuid.NewString()
	}
	if interaction.CreatedAt == 0 {
		interaction.CreatedAt = time.Now().UnixMilli()
	}
	if interaction.Feedback == "" {
		interaction.Feedback = types.FEEDBACK_UNSET
	}
	if interaction.Citations == nil {
		interaction.Citations = []types.Citation{}
	}
}
