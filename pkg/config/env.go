package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "tecbunny"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv = "TECBUNNY_APP_ENV"
	EnvPort   = "TECBUNNY_APP_PORT"

	EnvDBDSN  = "TECBUNNY_DB_DSN"
	EnvDBHost = "TECBUNNY_DB_HOST"
	EnvDBUser = "TECBUNNY_DB_USER"
	EnvDBName = "TECBUNNY_DB_NAME"

	EnvRedisURL = "TECBUNNY_REDIS_URL"

	EnvJWTSecret              = "TECBUNNY_JWT_SECRET"
	EnvJWTIssuer              = "TECBUNNY_JWT_ISSUER"
	EnvJWTExpMins             = "TECBUNNY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "TECBUNNY_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "TECBUNNY_GCP_PROJECT_ID"
	EnvGCSBucket    = "TECBUNNY_GCS_BUCKET_NAME"

	EnvPubSubDomainTopic     = "TECBUNNY_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationSub = "TECBUNNY_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubCommissionSub   = "TECBUNNY_PUBSUB_COMMISSION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub    = "TECBUNNY_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvPubSubMediaTopic      = "TECBUNNY_PUBSUB_MEDIA_CLEANUP_TOPIC"
	EnvPubSubMediaSub        = "TECBUNNY_PUBSUB_MEDIA_CLEANUP_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
