package main

import (
	"context"
	"time"

	mongoMigration "roomdesk/internal/migrations/mongo"
	postgresMigration "roomdesk/internal/migrations/postgres"
	"roomdesk/pkg/config"
)

const JobName = "migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	defer cfg.GracefulShutdown()

	var err error
	switch cfg.StorageBackend {
	case config.BackendMongo:
		cfg.SetMongo()
		err = mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log)
	case config.BackendPostgres:
		cfg.SetPostgres()
		err = postgresMigration.EnsureSchema(ctx, cfg.Client.Postgres, cfg.Log)
	default:
		cfg.Log.Info("Nothing to migrate", "backend", cfg.StorageBackend)
		return
	}

	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration failed", "backend", cfg.StorageBackend, "error", err)
	}
	cfg.Log.Info("Migration completed", "backend", cfg.StorageBackend)
}
