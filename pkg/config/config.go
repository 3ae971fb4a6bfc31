package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App              AppConfig
	Service          ServiceConfig
	DB               DBConfig
	Redis            RedisConfig
	JWT              JWTConfig
	Password         PasswordConfig
	AuthRateLimit    AuthRateLimitConfig
	PaymentRateLimit PaymentRateLimitConfig
	ContactRateLimit ContactRateLimitConfig
	FeatureFlags     FeatureFlagsConfig
	Eventing         EventingConfig
	GCP              GCPConfig
	GCS              GCSConfig
	PubSub           PubSubConfig
	BigQuery         BigQueryConfig
	SMTP             SMTPConfig
	WhatsApp         WhatsAppConfig
	Outbox           OutboxConfig
	Cron             CronConfig
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
	Env            string `envconfig:"TECBUNNY_APP_ENV" required:"true"`
	Port           string `envconfig:"TECBUNNY_APP_PORT" required:"true"`
	LogLevel       string `envconfig:"TECBUNNY_LOG_LEVEL" default:"info"`
	LogWarnStack   bool   `envconfig:"TECBUNNY_LOG_WARN_STACK" default:"false"`
	PublicBaseURL  string `envconfig:"TECBUNNY_PUBLIC_BASE_URL" default:"https://api.tecbunny.com"`
	StorefrontURL  string `envconfig:"TECBUNNY_STOREFRONT_URL" default:"https://www.tecbunny.com"`
	AllowedOrigins string `envconfig:"TECBUNNY_CORS_ALLOWED_ORIGINS" default:"https://www.tecbunny.com"`
	OrderNumPrefix string `envconfig:"TECBUNNY_ORDER_NUMBER_PREFIX" default:"TB"`
	SupportEmail   string `envconfig:"TECBUNNY_SUPPORT_EMAIL" default:"support@tecbunny.com"`
	SupportPhone   string `envconfig:"TECBUNNY_SUPPORT_PHONE"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Origins splits the configured comma-separated CORS origins.
func (a AppConfig) Origins() []string {
	parts := strings.Split(a.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"TECBUNNY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TECBUNNY_DB_DSN"`
	Driver string `envconfig:"TECBUNNY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TECBUNNY_DB_HOST"`
	LegacyPort     int    `envconfig:"TECBUNNY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TECBUNNY_DB_USER"`
	LegacyPassword string `envconfig:"TECBUNNY_DB_PASSWORD"`
	LegacyName     string `envconfig:"TECBUNNY_DB_NAME"`
	LegacySSLMode  string `envconfig:"TECBUNNY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TECBUNNY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TECBUNNY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TECBUNNY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TECBUNNY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TECBUNNY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TECBUNNY_REDIS_ADDR"`
	Password     string        `envconfig:"TECBUNNY_REDIS_PASSWORD"`
	DB           int           `envconfig:"TECBUNNY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TECBUNNY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TECBUNNY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TECBUNNY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TECBUNNY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TECBUNNY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TECBUNNY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TECBUNNY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TECBUNNY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TECBUNNY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TECBUNNY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TECBUNNY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TECBUNNY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TECBUNNY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TECBUNNY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	OTPWindow          time.Duration `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_OTP_WINDOW" default:"5m"`
	OTPEmailLimit      int           `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_OTP_EMAIL_LIMIT" default:"3"`
	OTPIPLimit         int           `envconfig:"TECBUNNY_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"10"`
}

type PaymentRateLimitConfig struct {
	Window    time.Duration `envconfig:"TECBUNNY_PAYMENT_RATE_LIMIT_WINDOW" default:"1m"`
	UserLimit int           `envconfig:"TECBUNNY_PAYMENT_RATE_LIMIT_USER_LIMIT" default:"5"`
	IPLimit   int           `envconfig:"TECBUNNY_PAYMENT_RATE_LIMIT_IP_LIMIT" default:"15"`
}

type ContactRateLimitConfig struct {
	Window  time.Duration `envconfig:"TECBUNNY_CONTACT_RATE_LIMIT_WINDOW" default:"10m"`
	IPLimit int           `envconfig:"TECBUNNY_CONTACT_RATE_LIMIT_IP_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TECBUNNY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TECBUNNY_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"TECBUNNY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TECBUNNY_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"TECBUNNY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TECBUNNY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"TECBUNNY_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"TECBUNNY_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"TECBUNNY_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"TECBUNNY_PUBSUB_DOMAIN_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"TECBUNNY_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	CommissionSubscription   string `envconfig:"TECBUNNY_PUBSUB_COMMISSION_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"TECBUNNY_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
	MediaCleanupTopic        string `envconfig:"TECBUNNY_PUBSUB_MEDIA_CLEANUP_TOPIC" required:"true"`
	MediaCleanupSubscription string `envconfig:"TECBUNNY_PUBSUB_MEDIA_CLEANUP_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"TECBUNNY_BIGQUERY_DATASET" default:"tecbunny"`
	OrderEventsTable string `envconfig:"TECBUNNY_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type SMTPConfig struct {
	Host        string `envconfig:"TECBUNNY_SMTP_HOST"`
	Port        int    `envconfig:"TECBUNNY_SMTP_PORT" default:"587"`
	Username    string `envconfig:"TECBUNNY_SMTP_USERNAME"`
	Password    string `envconfig:"TECBUNNY_SMTP_PASSWORD"`
	FromName    string `envconfig:"TECBUNNY_SMTP_FROM_NAME" default:"TecBunny"`
	FromAddress string `envconfig:"TECBUNNY_SMTP_FROM_ADDRESS" default:"orders@tecbunny.com"`
}

type WhatsAppConfig struct {
	BaseURL       string        `envconfig:"TECBUNNY_WHATSAPP_BASE_URL" default:"https://graph.facebook.com/v18.0"`
	PhoneNumberID string        `envconfig:"TECBUNNY_WHATSAPP_PHONE_NUMBER_ID"`
	AccessToken   string        `envconfig:"TECBUNNY_WHATSAPP_ACCESS_TOKEN"`
	Timeout       time.Duration `envconfig:"TECBUNNY_WHATSAPP_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TECBUNNY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TECBUNNY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TECBUNNY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"TECBUNNY_CRON_INTERVAL" default:"10m"`
	PaymentReconcileAfter time.Duration `envconfig:"TECBUNNY_CRON_PAYMENT_RECONCILE_AFTER" default:"15m"`
	PendingOrderTTL       time.Duration `envconfig:"TECBUNNY_CRON_PENDING_ORDER_TTL" default:"24h"`
	OutboxRetention       time.Duration `envconfig:"TECBUNNY_CRON_OUTBOX_RETENTION" default:"168h"`
	NotificationRetention time.Duration `envconfig:"TECBUNNY_CRON_NOTIFICATION_RETENTION" default:"2160h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
