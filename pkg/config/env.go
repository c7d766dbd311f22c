package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvStorageBackend    = "STORAGE_BACKEND"
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"
	EnvPostgresDSN       = "POSTGRES_DSN"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvOperatingOpen        = "OPERATING_OPEN"
	EnvOperatingClose       = "OPERATING_CLOSE"
	EnvMinBookingDuration   = "MIN_BOOKING_DURATION"
	EnvTimeZone             = "TIME_ZONE"
	EnvEnforceBookingWindow = "ENFORCE_BOOKING_WINDOW"
	EnvPasswordHashCost     = "PASSWORD_HASH_COST"
	EnvMinPasswordLength    = "MIN_PASSWORD_LENGTH"

	EnvStatusRefreshInterval = "STATUS_REFRESH_INTERVAL"

	EnvCatalogRooms           = "CATALOG_ROOMS"
	EnvCatalogTeams           = "CATALOG_TEAMS"
	EnvCatalogRefreshInterval = "CATALOG_REFRESH_INTERVAL"
	EnvCatalogRetryDelay      = "CATALOG_RETRY_DELAY"

	EnvKafkaEnabled           = "KAFKA_ENABLED"
	EnvReservationEventsTopic = "RESERVATION_EVENTS_TOPIC"
	EnvReservationEventsGroup = "RESERVATION_EVENTS_GROUP"
	EnvLiveStatusTopic        = "LIVE_STATUS_TOPIC"
	EnvLiveReconnectDelay     = "LIVE_RECONNECT_DELAY"
	EnvInstanceID             = "INSTANCE_ID"
)
