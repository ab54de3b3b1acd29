package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tieubaoca/policy-assistant/types"
)

type interactionRepo struct {
	collection *mongo.Collection
}

func NewInteractionRepo(collection *mongo.Collection) InteractionRepo {
	return &interactionRepo{
		collection: collection,
	}
}

func (r *interactionRepo) Record(ctx context.Context, interaction *types.Interaction) (string, error) {
	prepare(interaction)
	if _, err := r.collection.InsertOne(ctx, interaction); err != nil {
		return "", fmt.Errorf("insert interaction: %w", err)
	}
	return interaction.ID, nil
}

func (r *interactionRepo) ApplyFeedback(ctx context.Context, id string, feedback types.Feedback) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"feedback": feedback}},
	)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *interactionRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*types.Interaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find interactions: %w", err)
	}
	defer cursor.Close(ctx)

	interactions := make([]*types.Interaction, 0)
	for cursor.Next(ctx) {
		var interaction types.Interaction
		if err := cursor.Decode(&interaction); err != nil {
			return nil, fmt.Errorf("decode interaction: %w", err)
		}
		interactions = append(interactions, &interaction)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return interactions, nil
}
