package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"roomdesk/pkg/client"
	"roomdesk/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	timeRegex        = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	mongoURIRegex    = regexp.MustCompile(`^mongodb(\+srv)?://`)
	postgresDSNRegex = regexp.MustCompile(`^postgres(ql)?://`)
	credentialRegex  = regexp.MustCompile(`((?:mongodb(?:\+srv)?|postgres(?:ql)?)://)[^:/@]+:[^@]+@`)
)

type Config struct {
	Port string

	StorageBackend    string
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration
	PostgresDSN       string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	OperatingOpen        string
	OperatingClose       string
	MinBookingDuration   time.Duration
	TimeZone             string
	EnforceBookingWindow bool
	PasswordHashCost     int
	MinPasswordLength    int

	StatusRefreshInterval time.Duration

	CatalogRooms           string
	CatalogTeams           string
	CatalogRefreshInterval time.Duration
	CatalogRetryDelay      time.Duration

	KafkaEnabled           bool
	ReservationEventsTopic string
	ReservationEventsGroup string
	LiveStatusTopic        string
	LiveReconnectDelay     time.Duration
	InstanceID             string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		StorageBackend:    strings.ToLower(getEnvStr(EnvStorageBackend, DefaultStorageBackend)),
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		PostgresDSN:       getEnvStr(EnvPostgresDSN, DefaultPostgresDSN),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		OperatingOpen:        getEnvStr(EnvOperatingOpen, DefaultOperatingOpen),
		OperatingClose:       getEnvStr(EnvOperatingClose, DefaultOperatingClose),
		MinBookingDuration:   getEnvDuration(EnvMinBookingDuration, DefaultMinBookingDuration),
		TimeZone:             getEnvStr(EnvTimeZone, DefaultTimeZone),
		EnforceBookingWindow: getEnvBool(EnvEnforceBookingWindow, DefaultEnforceBookingWindow),
		PasswordHashCost:     getEnvNum(EnvPasswordHashCost, DefaultPasswordHashCost),
		MinPasswordLength:    getEnvNum(EnvMinPasswordLength, DefaultMinPasswordLength),

		StatusRefreshInterval: getEnvDuration(EnvStatusRefreshInterval, DefaultStatusRefreshInterval),

		CatalogRooms:           getEnvStr(EnvCatalogRooms, ""),
		CatalogTeams:           getEnvStr(EnvCatalogTeams, ""),
		CatalogRefreshInterval: getEnvDuration(EnvCatalogRefreshInterval, DefaultCatalogRefreshInterval),
		CatalogRetryDelay:      getEnvDuration(EnvCatalogRetryDelay, DefaultCatalogRetryDelay),

		KafkaEnabled:           getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		ReservationEventsTopic: getEnvStr(EnvReservationEventsTopic, DefaultReservationEventsTopic),
		ReservationEventsGroup: getEnvStr(EnvReservationEventsGroup, DefaultReservationEventsGroup),
		LiveStatusTopic:        getEnvStr(EnvLiveStatusTopic, DefaultLiveStatusTopic),
		LiveReconnectDelay:     getEnvDuration(EnvLiveReconnectDelay, DefaultLiveReconnectDelay),
		InstanceID:             getEnvStr(EnvInstanceID, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = serviceName + "-" + uuid.NewString()[:8]
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.MongoConnTimeout)
}

// Location resolves TimeZone. Validate guarantees it loads.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StorageBackend {
	case BackendMemory:
	case BackendMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !mongoURIRegex.MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case BackendPostgres:
		if !postgresDSNRegex.MatchString(cfg.PostgresDSN) {
			errors = append(errors, fmt.Sprintf("PostgresDSN must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresDSN)))
		}
	default:
		errors = append(errors, fmt.Sprintf("StorageBackend must be one of [memory, mongo, postgres], got: %s", cfg.StorageBackend))
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	openOK := timeRegex.MatchString(cfg.OperatingOpen)
	closeOK := timeRegex.MatchString(cfg.OperatingClose)
	if !openOK {
		errors = append(errors, fmt.Sprintf("OperatingOpen must be in HH:MM format (00:00-23:59), got: %s", cfg.OperatingOpen))
	}
	if !closeOK && cfg.OperatingClose != "24:00" {
		errors = append(errors, fmt.Sprintf("OperatingClose must be in HH:MM format (00:00-24:00), got: %s", cfg.OperatingClose))
	}
	if openOK && (closeOK || cfg.OperatingClose == "24:00") && clockMinutes(cfg.OperatingClose) <= clockMinutes(cfg.OperatingOpen) {
		errors = append(errors, fmt.Sprintf("OperatingClose (%s) must be after OperatingOpen (%s)", cfg.OperatingClose, cfg.OperatingOpen))
	}
	if cfg.MinBookingDuration <= 0 || cfg.MinBookingDuration%time.Minute != 0 {
		errors = append(errors, fmt.Sprintf("MinBookingDuration must be a positive whole number of minutes, got: %s", cfg.MinBookingDuration))
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("TimeZone must be a valid IANA zone name, got: %s", cfg.TimeZone))
	}
	if cfg.PasswordHashCost < bcrypt.MinCost || cfg.PasswordHashCost > bcrypt.MaxCost {
		errors = append(errors, fmt.Sprintf("PasswordHashCost must be between %d and %d, got: %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.PasswordHashCost))
	}
	if cfg.MinPasswordLength < 1 {
		errors = append(errors, fmt.Sprintf("MinPasswordLength must be positive, got: %d", cfg.MinPasswordLength))
	}

	if cfg.StatusRefreshInterval <= 0 {
		errors = append(errors, fmt.Sprintf("StatusRefreshInterval must be positive, got: %s", cfg.StatusRefreshInterval))
	}
	if cfg.CatalogRefreshInterval <= 0 {
		errors = append(errors, fmt.Sprintf("CatalogRefreshInterval must be positive, got: %s", cfg.CatalogRefreshInterval))
	}
	if cfg.CatalogRetryDelay <= 0 {
		errors = append(errors, fmt.Sprintf("CatalogRetryDelay must be positive, got: %s", cfg.CatalogRetryDelay))
	}

	if cfg.KafkaEnabled {
		if cfg.ReservationEventsTopic == "" {
			errors = append(errors, "ReservationEventsTopic cannot be empty when Kafka is enabled")
		}
		if cfg.ReservationEventsGroup == "" {
			errors = append(errors, "ReservationEventsGroup cannot be empty when Kafka is enabled")
		}
		if cfg.LiveStatusTopic == "" {
			errors = append(errors, "LiveStatusTopic cannot be empty when Kafka is enabled")
		}
	}
	if cfg.LiveReconnectDelay <= 0 {
		errors = append(errors, fmt.Sprintf("LiveReconnectDelay must be positive, got: %s", cfg.LiveReconnectDelay))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"storage_backend", cfg.StorageBackend,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_dsn", redactURI(cfg.PostgresDSN),
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"operating_open", cfg.OperatingOpen,
		"operating_close", cfg.OperatingClose,
		"min_booking_duration", cfg.MinBookingDuration,
		"time_zone", cfg.TimeZone,
		"enforce_booking_window", cfg.EnforceBookingWindow,
		"status_refresh_interval", cfg.StatusRefreshInterval,
		"catalog_static", cfg.CatalogRooms != "",
		"kafka_enabled", cfg.KafkaEnabled,
		"reservation_events_topic", cfg.ReservationEventsTopic,
		"live_status_topic", cfg.LiveStatusTopic,
		"live_reconnect_delay", cfg.LiveReconnectDelay,
		"instance_id", cfg.InstanceID,
	)
}

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func clockMinutes(hhmm string) int {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return -1
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil {
		return -1
	}
	return h*60 + m
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 50
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
