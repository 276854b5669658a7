package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Ledger  LedgerConfig
	Indexer IndexerConfig
	GCP     GCPConfig
	PubSub  PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGRICHAIN_APP_ENV" required:"true"`
	Port         string `envconfig:"AGRICHAIN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGRICHAIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGRICHAIN_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"AGRICHAIN_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AGRICHAIN_DB_DSN"`
	Driver string `envconfig:"AGRICHAIN_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"AGRICHAIN_DB_HOST"`
	Port     int    `envconfig:"AGRICHAIN_DB_PORT" default:"5432"`
	User     string `envconfig:"AGRICHAIN_DB_USER"`
	Password string `envconfig:"AGRICHAIN_DB_PASSWORD"`
	Name     string `envconfig:"AGRICHAIN_DB_NAME"`
	SSLMode  string `envconfig:"AGRICHAIN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGRICHAIN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGRICHAIN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGRICHAIN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGRICHAIN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRICHAIN_REDIS_URL"`
	Address      string        `envconfig:"AGRICHAIN_REDIS_ADDR"`
	Password     string        `envconfig:"AGRICHAIN_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRICHAIN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRICHAIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRICHAIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRICHAIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRICHAIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRICHAIN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// LedgerConfig tunes the ledger state machine and verification reads.
type LedgerConfig struct {
	HarvestDateSkew time.Duration `envconfig:"AGRICHAIN_LEDGER_HARVEST_DATE_SKEW" default:"24h"`
	VerifyTimeout   time.Duration `envconfig:"AGRICHAIN_LEDGER_VERIFY_TIMEOUT" default:"5s"`
}

// IndexerConfig tunes the reconciler follower and backfill.
type IndexerConfig struct {
	Consumer       string        `envconfig:"AGRICHAIN_INDEXER_CONSUMER" default:"product-indexer"`
	BatchSize      int           `envconfig:"AGRICHAIN_INDEXER_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"AGRICHAIN_INDEXER_POLL_INTERVAL" default:"500ms"`
	FetchRetries   int           `envconfig:"AGRICHAIN_INDEXER_FETCH_RETRIES" default:"5"`
	FetchBackoff   time.Duration `envconfig:"AGRICHAIN_INDEXER_FETCH_BACKOFF" default:"200ms"`
	ClaimTTL       time.Duration `envconfig:"AGRICHAIN_INDEXER_CLAIM_TTL" default:"720h"`
	BackfillOnBoot bool          `envconfig:"AGRICHAIN_INDEXER_BACKFILL_ON_BOOT" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"AGRICHAIN_GCP_PROJECT_ID"`
}

// PubSubConfig names the relay topic for external ledger event consumers.
type PubSubConfig struct {
	LedgerTopic    string        `envconfig:"AGRICHAIN_PUBSUB_LEDGER_TOPIC" default:"agrichain-ledger-events"`
	BatchSize      int           `envconfig:"AGRICHAIN_PUBSUB_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"AGRICHAIN_PUBSUB_POLL_INTERVAL" default:"500ms"`
	PublishTimeout time.Duration `envconfig:"AGRICHAIN_PUBSUB_PUBLISH_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"AGRICHAIN_PUBSUB_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.Driver == DriverSQLite {
		db.DSN = "file::memory:?cache=shared"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
