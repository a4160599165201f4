package config

const (
	EnvPrefix = "BAZAAR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv   = "BAZAAR_APP_ENV"
	EnvPort     = "BAZAAR_APP_PORT"
	EnvDBDSN    = "BAZAAR_DB_DSN"
	EnvDBHost   = "BAZAAR_DB_HOST"
	EnvDBUser   = "BAZAAR_DB_USER"
	EnvDBName   = "BAZAAR_DB_NAME"
	EnvRedisURL = "BAZAAR_REDIS_URL"

	EnvJWTSecret = "BAZAAR_JWT_SECRET"
	EnvJWTIssuer = "BAZAAR_JWT_ISSUER"

	EnvLogisticsBaseURL  = "BAZAAR_LOGISTICS_BASE_URL"
	EnvLogisticsEmail    = "BAZAAR_LOGISTICS_EMAIL"
	EnvLogisticsPassword = "BAZAAR_LOGISTICS_PASSWORD"

	EnvPaymentsPublicBaseURL = "BAZAAR_PAYMENTS_PUBLIC_BASE_URL"
	EnvPubSubNotification    = "BAZAAR_PUBSUB_NOTIFICATION_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
