package main

import (
	"context"

	"roomdesk/internal/catalog"
	"roomdesk/internal/liveupdates"
	postgresMigration "roomdesk/internal/migrations/postgres"
	"roomdesk/internal/reservations/availability"
	"roomdesk/internal/reservations/events"
	"roomdesk/internal/reservations/handler"
	"roomdesk/internal/reservations/policy"
	"roomdesk/internal/reservations/repository"
	"roomdesk/internal/reservations/scheduler"
	"roomdesk/internal/reservations/service"
	"roomdesk/internal/reservations/validator"
	"roomdesk/pkg/app"
	"roomdesk/pkg/config"
	"roomdesk/pkg/kafka"
	kafka_config "roomdesk/pkg/kafka/config"
	kafka_middleware "roomdesk/pkg/kafka/middleware"
	"roomdesk/pkg/sealer"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Reservations service", "instance_id", cfg.InstanceID)

	ctx, cancel := context.WithCancel(context.Background())
	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(cfg.GracefulShutdown)
	serverApp.OnShutdown(cancel)

	repo, source := initStorage(cfg)

	store := catalog.NewStore()
	loader := catalog.NewLoader(source, store, cfg.Log, cfg.CatalogRefreshInterval, cfg.CatalogRetryDelay)

	p, err := policy.New(cfg.OperatingOpen, cfg.OperatingClose, cfg.MinBookingDuration, cfg.Location())
	if err != nil {
		cfg.Log.Fatal("Invalid booking policy", "error", err)
	}

	var kcfg *kafka_config.Config
	if cfg.KafkaEnabled {
		if kcfg, err = kafka_config.Load(); err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kcfg.LogConfiguration(cfg.Log)
	}

	publisher := initPublisher(cfg, kcfg, serverApp)
	reservationService := service.NewReservationService(
		repo,
		store,
		validator.NewConflictValidator(p, cfg.Log),
		validator.NewReservationValidator(cfg.Log, cfg.MinPasswordLength),
		sealer.New(cfg.PasswordHashCost),
		publisher,
		cfg,
	)

	refresher := scheduler.NewRefresher(reservationService, availability.NewEngine(p), cfg.Log, cfg.StatusRefreshInterval)
	reservationService.SetNotifier(refresher)
	loader.OnLoad(refresher.Trigger)

	if err := loader.Start(ctx); err != nil {
		cfg.Log.Fatal("Failed to start catalog loader", "error", err)
	}
	serverApp.OnShutdown(loader.Stop)

	if err := refresher.Start(ctx); err != nil {
		cfg.Log.Fatal("Failed to start status refresher", "error", err)
	}
	serverApp.OnShutdown(refresher.Stop)

	if kcfg != nil {
		startSubscriber(ctx, cfg, kcfg, refresher, serverApp)
		startLiveFeed(ctx, cfg, kcfg, refresher, serverApp)
	}

	serverApp.SetApp(
		handler.NewReservationHandler(reservationService, refresher, cfg.Log),
		handler.NewHealthHandler(repo, store, cfg.Log),
	)
	serverApp.Run()
}

// initStorage returns the reservation repository and catalog source for the
// configured backend. CATALOG_ROOMS overrides the backend's catalog.
func initStorage(cfg *config.Config) (repository.ReservationRepository, catalog.Source) {
	var (
		repo   repository.ReservationRepository
		source catalog.Source
	)

	switch cfg.StorageBackend {
	case config.BackendMongo:
		cfg.SetMongo()
		repo = repository.NewMongoReservationRepository(cfg)
		source = catalog.NewMongoSource(cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
	case config.BackendPostgres:
		cfg.SetPostgres()
		if err := postgresMigration.EnsureSchema(context.Background(), cfg.Client.Postgres, cfg.Log); err != nil {
			cfg.Log.Fatal("Failed to ensure Postgres schema", "error", err)
		}
		repo = repository.NewPostgresReservationRepository(cfg.Client.Postgres)
		source = catalog.NewPostgresSource(cfg.Client.Postgres)
	default:
		repo = repository.NewMemoryReservationRepository()
	}

	if cfg.CatalogRooms != "" || source == nil {
		static, err := catalog.NewStaticSource(cfg.CatalogRooms, cfg.CatalogTeams)
		if err != nil {
			cfg.Log.Fatal("Invalid static catalog", "error", err)
		}
		source = static
	}

	cfg.Log.Info("Storage initialized", "backend", cfg.StorageBackend)
	return repo, source
}

func initPublisher(cfg *config.Config, kcfg *kafka_config.Config, serverApp *app.Application) events.Publisher {
	if kcfg == nil {
		return events.NewNoopPublisher()
	}

	producer, err := kafka.NewProducer(kcfg, cfg.ReservationEventsTopic, "", cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kcfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	publisher := events.NewKafkaPublisher(producer, cfg.InstanceID)
	serverApp.OnShutdown(func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Warn("Failed to close reservation event publisher", "error", err)
		}
	})
	return publisher
}

func startSubscriber(ctx context.Context, cfg *config.Config, kcfg *kafka_config.Config, refresher *scheduler.Refresher, serverApp *app.Application) {
	consumer, err := kafka.NewConsumer(
		kcfg,
		cfg.ReservationEventsTopic,
		cfg.ReservationEventsGroup+"-"+cfg.InstanceID,
		events.NewSubscriberHandler(cfg.InstanceID, refresher, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kcfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			cfg.Log.Error("Reservation event consumer stopped", "error", err)
		}
	}()
	serverApp.OnShutdown(func() {
		if err := consumer.Close(); err != nil {
			cfg.Log.Warn("Failed to close reservation event consumer", "error", err)
		}
	})
}

func startLiveFeed(ctx context.Context, cfg *config.Config, kcfg *kafka_config.Config, refresher *scheduler.Refresher, serverApp *app.Application) {
	link := liveupdates.NewLink(liveupdates.NewKafkaDialer(kcfg, cfg.LiveStatusTopic), cfg.LiveReconnectDelay, cfg.Log)
	link.OnConnect(refresher.Trigger)
	feed := liveupdates.NewStatusFeed(refresher, link, cfg.InstanceID, cfg.Log)

	if err := link.Start(ctx); err != nil {
		cfg.Log.Fatal("Failed to start live status link", "error", err)
	}
	if err := feed.Start(ctx); err != nil {
		cfg.Log.Fatal("Failed to start live status feed", "error", err)
	}

	// Hooks run in reverse, so the feed stops before the link closes.
	serverApp.OnShutdown(link.Close)
	serverApp.OnShutdown(feed.Stop)
}
