package database

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tieubaoca/policy-assistant/types"
)

const (
	DocumentsCollection    = "documents"
	ChunksCollection       = "chunks"
	InteractionsCollection = "interactions"
)

// NewMongoClient connects and pings the deployment at uri.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetBSONOptions(
			&options.BSONOptions{
				ObjectIDAsHexString: true,
			},
		))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// MongoIndex ranks chunks with the collection's text index (textScore).
type MongoIndex struct {
	chunks *mongo.Collection
}

var _ LexicalIndex = (*MongoIndex)(nil)

func NewMongoIndex(db *mongo.Database) *MongoIndex {
	return &MongoIndex{chunks: db.Collection(ChunksCollection)}
}

type mongoChunkHit struct {
	ID         string               `bson:"_id"`
	DocumentID string               `bson:"document_id"`
	Ordinal    int                  `bson:"ordinal"`
	Section    string               `bson:"section"`
	Text       string               `bson:"text"`
	Score      float64              `bson:"score"`
	Document   types.PolicyDocument `bson:"document"`
}

func (s *MongoIndex) Search(ctx context.Context, query string, limit int) ([]types.Passage, error) {
	terms := searchTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return []types.Passage{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: strings.Join(terms, " ")}}}}}},
		{{Key: "$addFields", Value: bson.D{{Key: "score", Value: bson.D{{Key: "$meta", Value: "textScore"}}}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: DocumentsCollection},
			{Key: "localField", Value: "document_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "document"},
		}}},
		{{Key: "$unwind", Value: "$document"}},
		{{Key: "$match", Value: bson.D{{Key: "document.status", Value: string(types.DOCUMENT_STATUS_COMPLETED)}}}},
		{{Key: "$sort", Value: bson.D{{Key: "score", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := s.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer cursor.Close(ctx)

	passages := make([]types.Passage, 0, limit)
	for cursor.Next(ctx) {
		var hit mongoChunkHit
		if err := cursor.Decode(&hit); err != nil {
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		passages = append(passages, types.Passage{
			ChunkID:    hit.ID,
			DocumentID: hit.DocumentID,
			Ordinal:    hit.Ordinal,
			Section:    hit.Section,
			Text:       hit.Text,
			Title:      hit.Document.Title,
			Source:     hit.Document.Source,
			URL:        hit.Document.URL,
			Score:      hit.Score,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return passages, nil
}

// EnsureMongoIndexes creates the text index the search depends on plus the
// lookup indexes for documents and interactions.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ChunksCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "text", Value: "text"}, {Key: "section", Value: "text"}},
			Options: options.Index().
				SetName("chunks_text").
				SetDefaultLanguage("english").
				SetWeights(bson.D{{Key: "text", Value: 1}, {Key: "section", Value: 2}}),
		},
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "ordinal", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create chunk indexes: %w", err)
	}

	_, err = db.Collection(DocumentsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create document indexes: %w", err)
	}

	_, err = db.Collection(InteractionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create interaction indexes: %w", err)
	}
	return nil
}
