package config

import (
	"fmt"
	"time"

	"github.com/utafrali/RegistryGo/internal/domain"
	"github.com/utafrali/RegistryGo/internal/service"
	pkgconfig "github.com/utafrali/RegistryGo/pkg/config"
)

// Config holds all configuration for the registry service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"REGISTRY_HTTP_PORT" envDefault:"8010"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"registry"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"registry_secret"`
	PostgresDB   string `env:"REGISTRY_DB_NAME" envDefault:"registry_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Redis (registrar message queue)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Legal document service. Empty disables document archiving.
	LegalDocServiceURL string `env:"LEGAL_DOC_SERVICE_URL" envDefault:""`

	// Token granting the registry operator role on the API.
	AdminAPIToken string `env:"ADMIN_API_TOKEN" envDefault:""`

	// Domain lifecycle policy
	ExpireWarningPeriodDays   int  `env:"EXPIRE_WARNING_PERIOD_DAYS" envDefault:"15"`
	RedemptionGracePeriodDays int  `env:"REDEMPTION_GRACE_PERIOD_DAYS" envDefault:"30"`
	PendingConfirmationHours  int  `env:"EXPIRE_PENDING_CONFIRMATION_HOURS" envDefault:"48"`
	DaysToRenewBeforeExpire   int  `env:"DAYS_TO_RENEW_BEFORE_EXPIRE" envDefault:"90"`
	TransferWaitHours         int  `env:"TRANSFER_WAIT_HOURS" envDefault:"0"`
	VerifyRegistrantChange    bool `env:"VERIFY_REGISTRANT_CHANGE" envDefault:"true"`
	VerifyDelete              bool `env:"VERIFY_DELETE" envDefault:"true"`

	// Structural validation limits
	MinNameservers   int `env:"MIN_NAMESERVERS" envDefault:"2"`
	MaxNameservers   int `env:"MAX_NAMESERVERS" envDefault:"11"`
	MinAdminContacts int `env:"MIN_ADMIN_CONTACTS" envDefault:"1"`
	MaxAdminContacts int `env:"MAX_ADMIN_CONTACTS" envDefault:"10"`
	MinTechContacts  int `env:"MIN_TECH_CONTACTS" envDefault:"0"`
	MaxTechContacts  int `env:"MAX_TECH_CONTACTS" envDefault:"10"`
	MaxDNSKeys       int `env:"MAX_DNS_KEYS" envDefault:"8"`

	// Lifecycle sweep interval
	SweepIntervalMins int `env:"SWEEP_INTERVAL_MINUTES" envDefault:"10"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load registry config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.ExpireWarningPeriodDays < 0 || c.RedemptionGracePeriodDays < 0 {
		return fmt.Errorf("lifecycle periods must not be negative")
	}
	if c.PendingConfirmationHours < 1 {
		return fmt.Errorf("EXPIRE_PENDING_CONFIRMATION_HOURS must be at least 1")
	}
	if c.TransferWaitHours < 0 {
		return fmt.Errorf("TRANSFER_WAIT_HOURS must not be negative")
	}
	if c.MinNameservers > c.MaxNameservers {
		return fmt.Errorf("MIN_NAMESERVERS exceeds MAX_NAMESERVERS")
	}
	if c.MinAdminContacts > c.MaxAdminContacts {
		return fmt.Errorf("MIN_ADMIN_CONTACTS exceeds MAX_ADMIN_CONTACTS")
	}
	if c.MinTechContacts > c.MaxTechContacts {
		return fmt.Errorf("MIN_TECH_CONTACTS exceeds MAX_TECH_CONTACTS")
	}
	if c.SweepIntervalMins < 1 {
		return fmt.Errorf("SWEEP_INTERVAL_MINUTES must be at least 1")
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// Policy assembles the domain lifecycle policy from the configured knobs.
func (c *Config) Policy() service.Policy {
	return service.Policy{
		ExpireWarningPeriod:       time.Duration(c.ExpireWarningPeriodDays) * 24 * time.Hour,
		RedemptionGracePeriod:     time.Duration(c.RedemptionGracePeriodDays) * 24 * time.Hour,
		PendingConfirmationWindow: time.Duration(c.PendingConfirmationHours) * time.Hour,
		DaysToRenewBeforeExpire:   c.DaysToRenewBeforeExpire,
		TransferWaitHours:         c.TransferWaitHours,
		VerifyRegistrantChange:    c.VerifyRegistrantChange,
		VerifyDelete:              c.VerifyDelete,
		Limits: domain.ValidationLimits{
			MinNameservers:   c.MinNameservers,
			MaxNameservers:   c.MaxNameservers,
			MinAdminContacts: c.MinAdminContacts,
			MaxAdminContacts: c.MaxAdminContacts,
			MinTechContacts:  c.MinTechContacts,
			MaxTechContacts:  c.MaxTechContacts,
			MaxDNSKeys:       c.MaxDNSKeys,
		},
	}
}

// SweepInterval returns the lifecycle sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMins) * time.Minute
}
