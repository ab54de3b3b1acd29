package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/tieubaoca/policy-assistant/config"
	"github.com/tieubaoca/policy-assistant/types"
)

var (
	CHUNK_CLASS        = "PolicyChunk"
	CHUNK_CLASS_OBJECT = &models.Class{
		Class: CHUNK_CLASS,
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "documentId", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "ordinal", DataType: []string{"int"}},
			{Name: "section", DataType: []string{"text"}},
			{Name: "text", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "url", DataType: []string{"text"}, Tokenization: "field"},
			{Name: "status", DataType: []string{"text"}, Tokenization: "field"},
		},
		// Lexical only: BM25 over the inverted index, no vectorizer.
		Vectorizer: "none",
	}
)

// WeaviateStore ranks chunks with Weaviate's BM25 search. Chunk objects
// carry their document's title, source, url and status.
type WeaviateStore struct {
	client *weaviate.Client
}

var _ LexicalIndex = (*WeaviateStore)(nil)

func NewWeaviateStore(config config.WeaviateStoreConfig) (*WeaviateStore, error) {
	var scheme string
	if strings.HasPrefix(config.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(config.Host, scheme+"://")
	cfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if config.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{
			Value: config.APIKey,
		}
		cfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     config.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateStore{client: client}, nil
}

// EnsureSchema creates the chunk class when it does not exist yet.
func (s *WeaviateStore) EnsureSchema(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	for _, class := range schema.Classes {
		if class.Class == CHUNK_CLASS {
			return nil
		}
	}
	if err := s.client.Schema().ClassCreator().WithClass(CHUNK_CLASS_OBJECT).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", CHUNK_CLASS, err)
	}
	return nil
}

func (s *WeaviateStore) Search(ctx context.Context, query string, limit int) ([]types.Passage, error) {
	terms := searchTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return []types.Passage{}, nil
	}

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "documentId"},
		{Name: "ordinal"},
		{Name: "section"},
		{Name: "text"},
		{Name: "title"},
		{Name: "source"},
		{Name: "url"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "score"}}},
	}
	bm25 := s.client.GraphQL().Bm25ArgBuilder().
		WithQuery(strings.Join(terms, " ")).
		WithProperties("text", "section^2")
	where := filters.Where().
		WithPath([]string{"status"}).
		WithOperator(filters.Equal).
		WithValueText(string(types.DOCUMENT_STATUS_COMPLETED))

	result, err := s.client.GraphQL().Get().
		WithClassName(CHUNK_CLASS).
		WithFields(fields...).
		WithBM25(bm25).
		WithWhere(where).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("bm25 search: %s", result.Errors[0].Message)
	}

	passages := make([]types.Passage, 0, limit)
	get, _ := result.Data["Get"].(map[string]interface{})
	items, _ := get[CHUNK_CLASS].([]interface{})
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		p := types.Passage{
			ChunkID:    stringField(obj, "chunkId"),
			DocumentID: stringField(obj, "documentId"),
			Section:    stringField(obj, "section"),
			Text:       stringField(obj, "text"),
			Title:      stringField(obj, "title"),
			Source:     stringField(obj, "source"),
			URL:        stringField(obj, "url"),
		}
		if ordinal, ok := obj["ordinal"].(float64); ok {
			p.Ordinal = int(ordinal)
		}
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			// score is serialized as a string by the GraphQL API
			p.Score, _ = strconv.ParseFloat(stringField(additional, "score"), 64)
		}
		passages = append(passages, p)
	}
	return passages, nil
}

func stringField(obj map[string]interface{}, key string) string {
	v, _ := obj[key].(string)
	return v
}
