package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"

	"github.com/Rath300/research-collab/pkg/database"
	"github.com/Rath300/research-collab/pkg/tracing/exporters"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"research-collab-api"`
	Version                       string   `env:"APP_VERSION" env-default:"dev"`
	Port                          int      `env:"PORT" env-default:"3000"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	MaxBodyBytes                  string   `env:"HTTP_SERVER_MAX_BODY" env-default:"12M"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	Database Database
	Auth     Auth
	Redis    Redis
	Realtime Realtime
	Kafka    Kafka
	Storage  Storage
	Tracing  Tracing
	Search   Search
}

type Database struct {
	// Driver is "postgres" or "sqlite"
	Driver string `env:"DB_DRIVER" env-default:"postgres"`
	// DSN overrides the discrete connection settings
	DSN      string `env:"DB_DSN" env-default:""`
	Host     string `env:"DB_HOST" env-default:""`
	Port     string `env:"DB_PORT" env-default:"5432"`
	UserName string `env:"DB_USER_NAME" env-default:""`
	Password string `env:"DB_PASSWORD" env-default:""`
	Name     string `env:"DB_NAME" env-default:"research_collab"`
	SSLMode  string `env:"DB_SSL_MODE" env-default:"disable"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`

	MigrationFolderPath   string `env:"DB_MIGRATION_FOLDER_PATH" env-default:""`
	MigrationVersion      int    `env:"DB_MIGRATION_VERSION" env-default:"0"`
	MigrationForce        int    `env:"DB_MIGRATION_FORCE" env-default:"0"`
	MigrationAutoRollback bool   `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`
	MigrateOnStart        bool   `env:"DB_MIGRATE_ON_START" env-default:"true"`
}

type Auth struct {
	// Enabled false trusts X-Tenant-ID and X-User-ID headers
	Enabled bool `env:"AUTH_ENABLED" env-default:"false"`
	// Mode is "oidc" (issuer discovery) or "jwt" (shared HS256 secret)
	Mode      string `env:"AUTH_MODE" env-default:"oidc"`
	IssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	ClientID  string `env:"AUTH_CLIENT_ID" env-default:""`
	JWTSecret string `env:"AUTH_JWT_SECRET" env-default:""`
	// DefaultTenantID is used when tokens carry no tenant claim
	DefaultTenantID string `env:"AUTH_DEFAULT_TENANT_ID" env-default:""`
}

type Redis struct {
	Enabled  bool   `env:"REDIS_ENABLED" env-default:"true"`
	Host     string `env:"REDIS_HOST" env-default:"localhost"`
	Port     int    `env:"REDIS_PORT" env-default:"6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type Realtime struct {
	ChannelPrefix    string        `env:"REALTIME_CHANNEL_PREFIX" env-default:"realtime"`
	SubscribeTimeout time.Duration `env:"REALTIME_SUBSCRIBE_TIMEOUT" env-default:"5s"`
}

type Kafka struct {
	Enabled           bool     `env:"KAFKA_ENABLED" env-default:"false"`
	Brokers           []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	ChangeFeedTopics  []string `env:"KAFKA_CHANGE_FEED_TOPICS" env-default:"researchcollab.public.messages,researchcollab.public.user_notifications,researchcollab.public.matches"`
	ConsumerGroup     string   `env:"KAFKA_CONSUMER_GROUP" env-default:"research-collab-relay"`
	NotificationTopic string   `env:"KAFKA_NOTIFICATION_TOPIC" env-default:"user-notifications"`
	BatchTimeoutMs    int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	RequiredAcks      int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
}

type Storage struct {
	Enabled           bool   `env:"STORAGE_ENABLED" env-default:"false"`
	Endpoint          string `env:"STORAGE_ENDPOINT" env-default:""`
	Region            string `env:"STORAGE_REGION" env-default:"us-east-1"`
	AccessKeyID       string `env:"STORAGE_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey   string `env:"STORAGE_SECRET_ACCESS_KEY" env-default:""`
	PublicBaseURL     string `env:"STORAGE_PUBLIC_BASE_URL" env-default:""`
	AvatarBucket      string `env:"STORAGE_AVATAR_BUCKET" env-default:"avatars"`
	ProjectFileBucket string `env:"STORAGE_PROJECT_FILE_BUCKET" env-default:"project-files"`
	MaxUploadBytes    int    `env:"STORAGE_MAX_UPLOAD_BYTES" env-default:"10485760"`
}

type Tracing struct {
	Endpoint string `env:"OTLP_ENDPOINT" env-default:""`
	Protocol string `env:"OTLP_PROTOCOL" env-default:"grpc"`
	Insecure bool   `env:"OTLP_INSECURE" env-default:"true"`
}

type Search struct {
	Timeout               time.Duration `env:"LITERATURE_TIMEOUT" env-default:"10s"`
	RatePerSecond         float64       `env:"LITERATURE_RATE_PER_SECOND" env-default:"3"`
	ContactEmail          string        `env:"LITERATURE_CONTACT_EMAIL" env-default:""`
	CoreAPIKey            string        `env:"LITERATURE_CORE_API_KEY" env-default:""`
	SemanticScholarAPIKey string        `env:"LITERATURE_SEMANTIC_SCHOLAR_API_KEY" env-default:""`
	MaxResultsPerSource   int           `env:"LITERATURE_MAX_RESULTS_PER_SOURCE" env-default:"10"`
}

// Load reads optional .env files and binds the environment into a Config.
// Missing .env files are ignored; a malformed one is an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabaseConfig converts the bound settings for database.Connect.
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Driver:          c.Database.Driver,
		DSN:             c.Database.DSN,
		Host:            c.Database.Host,
		Port:            c.Database.Port,
		User:            c.Database.UserName,
		Password:        c.Database.Password,
		Name:            c.Database.Name,
		SSLMode:         c.Database.SSLMode,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

func (c *Config) MigrationConfig() *database.MigrationConfig {
	return &database.MigrationConfig{
		FolderPath:   c.Database.MigrationFolderPath,
		Version:      uint(c.Database.MigrationVersion),
		Force:        c.Database.MigrationForce,
		AutoRollback: c.Database.MigrationAutoRollback,
	}
}

func (c *Config) OTLPConfig() exporters.OTLPConfig {
	return exporters.OTLPConfig{
		Endpoint: c.Tracing.Endpoint,
		Protocol: c.Tracing.Protocol,
		Insecure: c.Tracing.Insecure,
	}
}

// Validate checks the settings every process needs. Database settings are
// always required; optional components are checked where they are built.
func (c *Config) Validate() error {
	return c.DatabaseConfig().Validate()
}
