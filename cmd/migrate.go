/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/config"
	"github.com/tieubaoca/policy-assistant/database"
)

// migrateCmd creates the tables, indexes and classes the pipeline reads
// from and writes to. Ingestion fills them.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the lexical index and interaction store schema",
	Long: `Creates, for the configured backends:
  mongo     text index on chunks, interactions session index
  postgres  documents/chunks tables with a tsvector column, interactions table
  sqlite    documents/chunks tables, FTS5 table and triggers, interactions table
  weaviate  the PolicyChunk class`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		ctx := cmd.Context()

		conns := newConnections()
		defer conns.Close()

		targets := []migrateTarget{{cfg.Database.Driver, cfg.Database.URL}}
		if store := (migrateTarget{cfg.Store.Driver, cfg.Store.URL}); store.driver != "" && store != targets[0] {
			targets = append(targets, store)
		}

		for _, target := range targets {
			switch target.driver {
			case config.DriverMongo:
				client, err := conns.mongoClient(ctx, target.url)
				if err != nil {
					return err
				}
				if err := database.EnsureMongoIndexes(ctx, client.Database(cfg.Database.Name)); err != nil {
					return err
				}
			case config.DriverPostgres, config.DriverSQLite:
				db, err := conns.sqlDB(ctx, target.driver, target.url)
				if err != nil {
					return err
				}
				if err := database.ApplySchema(ctx, db, target.driver); err != nil {
					return err
				}
			case config.DriverWeaviate:
				store, err := database.NewWeaviateStore(cfg.Database.Weaviate)
				if err != nil {
					return err
				}
				if err := store.EnsureSchema(ctx); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported driver %q", target.driver)
			}
			logger.Info("schema ready", zap.String("driver", target.driver))
		}
		return nil
	},
}

type migrateTarget struct {
	driver string
	url    string
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
