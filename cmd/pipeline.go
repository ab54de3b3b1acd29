package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/config"
	"github.com/tieubaoca/policy-assistant/database"
	"github.com/tieubaoca/policy-assistant/repository"
	"github.com/tieubaoca/policy-assistant/service"
)

// connections caches one client per driver+url so the lexical index and
// the interaction store share a pool when they point at the same database.
type connections struct {
	mongoClients map[string]*mongo.Client
	sqlDBs       map[string]*sql.DB
	closers      []func()
}

func newConnections() *connections {
	return &connections{
		mongoClients: make(map[string]*mongo.Client),
		sqlDBs:       make(map[string]*sql.DB),
	}
}

func (c *connections) mongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	if client, ok := c.mongoClients[uri]; ok {
		return client, nil
	}
	client, err := database.NewMongoClient(ctx, uri)
	if err != nil {
		return nil, err
	}
	c.mongoClients[uri] = client
	c.closers = append(c.closers, func() { _ = client.Disconnect(context.Background()) })
	return client, nil
}

func (c *connections) sqlDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	key := driver + "|" + dsn
	if db, ok := c.sqlDBs[key]; ok {
		return db, nil
	}
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case config.DriverPostgres:
		db, err = database.OpenPostgres(ctx, dsn)
	case config.DriverSQLite:
		db, err = database.OpenSQLite(dsn)
	default:
		err = fmt.Errorf("unsupported sql driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	c.sqlDBs[key] = db
	c.closers = append(c.closers, func() { _ = db.Close() })
	return db, nil
}

func (c *connections) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func (c *connections) lexicalIndex(ctx context.Context, cfg config.DatabaseConfig) (database.LexicalIndex, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := c.mongoClient(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		return database.NewMongoIndex(client.Database(cfg.Name)), nil
	case config.DriverPostgres:
		db, err := c.sqlDB(ctx, cfg.Driver, cfg.URL)
		if err != nil {
			return nil, err
		}
		return database.NewPostgresIndex(db), nil
	case config.DriverSQLite:
		db, err := c.sqlDB(ctx, cfg.Driver, cfg.URL)
		if err != nil {
			return nil, err
		}
		return database.NewSQLiteIndex(db), nil
	case config.DriverWeaviate:
		return database.NewWeaviateStore(cfg.Weaviate)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func (c *connections) interactionRepo(ctx context.Context, store config.StoreConfig, dbName string) (repository.InteractionRepo, error) {
	switch store.Driver {
	case config.DriverMongo:
		client, err := c.mongoClient(ctx, store.URL)
		if err != nil {
			return nil, err
		}
		return repository.NewInteractionRepo(client.Database(dbName).Collection(database.InteractionsCollection)), nil
	case config.DriverPostgres:
		db, err := c.sqlDB(ctx, store.Driver, store.URL)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresInteractionRepo(db), nil
	case config.DriverSQLite:
		db, err := c.sqlDB(ctx, store.Driver, store.URL)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLiteInteractionRepo(db), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", store.Driver)
}

func newLLMClient(ctx context.Context, cfg config.LLMConfig) (service.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return service.NewOpenAIService(cfg.Endpoint, cfg.APIKey(), cfg.Model, cfg.Temperature), nil
	case config.ProviderGemini:
		return service.NewGeminiService(ctx, cfg.APIKey(), cfg.Model, cfg.Temperature)
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
}

// buildChatService wires the pipeline from cfg. An incomplete config yields
// a service that answers every chat with the misconfiguration response;
// configured reports which one was built.
func buildChatService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (chat service.ChatService, configured bool, closeFn func(), err error) {
	if verr := cfg.Validate(); verr != nil {
		logger.Error("configuration incomplete, chat disabled", zap.Error(verr))
		return service.NewChatService(nil, nil, nil, nil, cfg.Store.RecordTimeout, logger), false, func() {}, nil
	}

	conns := newConnections()
	defer func() {
		if err != nil {
			conns.Close()
		}
	}()

	index, err := conns.lexicalIndex(ctx, cfg.Database)
	if err != nil {
		return nil, false, nil, fmt.Errorf("open lexical index: %w", err)
	}
	repo, err := conns.interactionRepo(ctx, cfg.Store, cfg.Database.Name)
	if err != nil {
		return nil, false, nil, fmt.Errorf("open interaction store: %w", err)
	}
	llm, err := newLLMClient(ctx, cfg.LLM)
	if err != nil {
		return nil, false, nil, fmt.Errorf("create llm client: %w", err)
	}
	if closer, ok := llm.(interface{ Close() error }); ok {
		conns.closers = append(conns.closers, func() { _ = closer.Close() })
	}

	logger.Info("pipeline ready",
		zap.String("index", cfg.Database.Driver),
		zap.String("store", cfg.Store.Driver),
		zap.String("llm", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
	)
	chat = service.NewChatService(
		service.NewPrivacyGate(),
		service.NewRetriever(index, cfg.Retrieval.Limit, cfg.Retrieval.Timeout, logger),
		service.NewAnswerGenerator(llm, cfg.LLM.Timeout, cfg.LLM.RequestsPerMinute, logger),
		repo,
		cfg.Store.RecordTimeout,
		logger,
	)
	return chat, true, conns.Close, nil
}
