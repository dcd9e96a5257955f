package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StoragePostgres = "postgres"
	StorageSqlite   = "sqlite"

	TransportAMQP      = "amqp"
	TransportWebsocket = "ws"

	minSecretLen = 16
)

type Config struct {
	DB        *DBconfig
	Storage   *Storageconfig
	RabbitMq  *RabbitMqconfig
	Redis     *Redisconfig
	Transport *Transportconfig
	Auth      *Authconfig
	Srv       *Serviceconfig
	Matching  *Matchingconfig
	Log       *Loggerconfig
}

type DBconfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	MaxRetries int
	MaxConns   int
}

type Storageconfig struct {
	Driver     string
	SqlitePath string
}

type RabbitMqconfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type Redisconfig struct {
	Addr     string
	Password string
	DB       int
}

type Transportconfig struct {
	Kind string
}

type Authconfig struct {
	JwtSecret string
}

type Serviceconfig struct {
	Port              string
	ExternalURL       string
	KeepAliveInterval time.Duration
}

type Matchingconfig struct {
	DriversGroupID      string
	RequestTimeout      time.Duration
	SweepInterval       time.Duration
	ClaimWindow         time.Duration
	MaxRequestsPerRider int
	RideCodePrefix      string
	InboxShards         int
}

type Loggerconfig struct {
	Level string
}

func New() (*Config, error) {
	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			fmt.Fprintf(os.Stderr, "using default %s=%v\n", key, def)
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			fmt.Fprintf(os.Stderr, "using default %s=%v\n", key, def)
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid %s, using default %v\n", key, def)
			return def
		}
		return val
	}

	getEnvDuration := func(key string, def time.Duration) time.Duration {
		valStr := os.Getenv(key)
		if valStr == "" {
			fmt.Fprintf(os.Stderr, "using default %s=%v\n", key, def)
			return def
		}
		val, err := time.ParseDuration(valStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid %s, using default %v\n", key, def)
			return def
		}
		return val
	}

	cnf := &Config{
		DB: &DBconfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "tujane"),
			Password:   getEnv("DB_PASSWORD", "tujane"),
			Database:   getEnv("DB_NAME", "tujane"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 5),
			MaxConns:   getEnvInt("DB_MAX_CONNS", 10),
		},
		Storage: &Storageconfig{
			Driver:     getEnv("STORAGE_DRIVER", StoragePostgres),
			SqlitePath: getEnv("SQLITE_PATH", "tujane.db"),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
		Redis: &Redisconfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Transport: &Transportconfig{
			Kind: getEnv("TRANSPORT", TransportAMQP),
		},
		Auth: &Authconfig{
			JwtSecret: os.Getenv("JWT_SECRET"),
		},
		Srv: &Serviceconfig{
			Port:              getEnv("PORT", "3000"),
			ExternalURL:       os.Getenv("RENDER_EXTERNAL_URL"),
			KeepAliveInterval: getEnvDuration("KEEP_ALIVE_INTERVAL", 12*time.Minute),
		},
		Matching: &Matchingconfig{
			DriversGroupID:      getEnv("DRIVERS_GROUP_ID", "120363385914840853@g.us"),
			RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 5*time.Minute),
			SweepInterval:       getEnvDuration("SWEEP_INTERVAL", time.Minute),
			ClaimWindow:         getEnvDuration("CLAIM_WINDOW", 20*time.Minute),
			MaxRequestsPerRider: getEnvInt("MAX_REQUESTS_PER_RIDER", 3),
			RideCodePrefix:      getEnv("RIDE_CODE_PREFIX", "TUJ"),
			InboxShards:         getEnvInt("INBOX_SHARDS", 8),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}

	if err := cnf.validate(); err != nil {
		return nil, err
	}

	return cnf, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StoragePostgres, StorageSqlite:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.Transport.Kind {
	case TransportAMQP, TransportWebsocket:
	default:
		return fmt.Errorf("unknown TRANSPORT %q", c.Transport.Kind)
	}

	if c.Matching.MaxRequestsPerRider < 1 {
		return fmt.Errorf("MAX_REQUESTS_PER_RIDER must be positive")
	}
	if c.Matching.InboxShards < 1 {
		return fmt.Errorf("INBOX_SHARDS must be positive")
	}
	if c.Matching.SweepInterval <= 0 || c.Matching.RequestTimeout <= 0 || c.Matching.ClaimWindow <= 0 {
		return fmt.Errorf("matching durations must be positive")
	}
	if c.Srv.ExternalURL != "" && c.Srv.KeepAliveInterval <= 0 {
		return fmt.Errorf("KEEP_ALIVE_INTERVAL must be positive")
	}
	// operator and bridge tokens are signed with it
	if len(c.Auth.JwtSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be set to at least %d bytes", minSecretLen)
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *DBconfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// URL builds the amqp connection string.
func (c *RabbitMqconfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.VHost,
	)
}
