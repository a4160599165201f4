package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Logistics    LogisticsConfig
	Payments     PaymentsConfig
	PhonePe      PhonePeConfig
	Razorpay     RazorpayConfig
	SabPaisa     SabPaisaConfig
	Cron         CronConfig
	OTP          OTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every inconsistent setting at once so a bad deploy shows
// the full list in one crash log.
func (c *Config) validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.DB.Driver == DBDriverPostgres || c.DB.Driver == DBDriverSQLite,
		"BAZAAR_DB_DRIVER must be %q or %q, got %q", DBDriverPostgres, DBDriverSQLite, c.DB.Driver)
	check(c.App.LogFormat == "json" || c.App.LogFormat == "console",
		"BAZAAR_LOG_FORMAT must be json or console, got %q", c.App.LogFormat)
	check(c.JWT.ExpirationMinutes > 0, "BAZAAR_JWT_EXPIRATION_MINUTES must be positive")
	check(c.Cron.Interval > 0, "BAZAAR_CRON_INTERVAL must be positive")
	check(c.Cron.LockTTL >= time.Minute, "BAZAAR_CRON_LOCK_TTL must be at least 1m")
	check(c.OTP.MaxAttempts > 0, "BAZAAR_OTP_MAX_ATTEMPTS must be positive")
	check(!c.PubSub.Enabled() || c.GCP.ProjectID != "",
		"BAZAAR_GCP_PROJECT_ID is required when BAZAAR_PUBSUB_NOTIFICATION_TOPIC is set")
	check(!(c.App.IsProd() && c.OTP.RevealCodes), "BAZAAR_OTP_REVEAL_CODES cannot be enabled in prod")
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"BAZAAR_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZAAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZAAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZAAR_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"BAZAAR_LOG_FORMAT" default:"json"`
	// CORSOrigins is a comma separated allow list.
	CORSOrigins []string `envconfig:"BAZAAR_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZAAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAAR_DB_DSN"`
	Driver string `envconfig:"BAZAAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZAAR_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAAR_DB_USER"`
	LegacyPassword string `envconfig:"BAZAAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BAZAAR_DB_SLOW_QUERY_THRESHOLD" default:"300ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZAAR_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZAAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BAZAAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BAZAAR_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"BAZAAR_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string        `envconfig:"BAZAAR_PUBSUB_NOTIFICATION_TOPIC"`
	PublishTimeout    time.Duration `envconfig:"BAZAAR_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
	// OrderByUser keeps one user's notifications in publish order.
	OrderByUser bool `envconfig:"BAZAAR_PUBSUB_ORDER_BY_USER" default:"true"`
}

// Enabled reports whether notification fan-out to Pub/Sub is configured.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.NotificationTopic) != ""
}

type LogisticsConfig struct {
	BaseURL         string        `envconfig:"BAZAAR_LOGISTICS_BASE_URL" required:"true"`
	Email           string        `envconfig:"BAZAAR_LOGISTICS_EMAIL" required:"true"`
	Password        string        `envconfig:"BAZAAR_LOGISTICS_PASSWORD" required:"true"`
	AuthTimeout     time.Duration `envconfig:"BAZAAR_LOGISTICS_AUTH_TIMEOUT" default:"10s"`
	ShipmentTimeout time.Duration `envconfig:"BAZAAR_LOGISTICS_SHIPMENT_TIMEOUT" default:"30s"`
	FallbackPincode string        `envconfig:"BAZAAR_LOGISTICS_FALLBACK_PINCODE" default:"110001"`
}

type PaymentsConfig struct {
	// PublicBaseURL is where gateways redirect and post callbacks.
	PublicBaseURL string        `envconfig:"BAZAAR_PAYMENTS_PUBLIC_BASE_URL" required:"true"`
	CallbackTTL   time.Duration `envconfig:"BAZAAR_PAYMENTS_CALLBACK_TTL" default:"24h"`
}

type PhonePeConfig struct {
	AuthURL       string        `envconfig:"BAZAAR_PHONEPE_AUTH_URL" default:"https://api.phonepe.com/apis/identity-manager/v1/oauth/token"`
	BaseURL       string        `envconfig:"BAZAAR_PHONEPE_BASE_URL" default:"https://api.phonepe.com/apis/pg"`
	ClientID      string        `envconfig:"BAZAAR_PHONEPE_CLIENT_ID"`
	ClientSecret  string        `envconfig:"BAZAAR_PHONEPE_CLIENT_SECRET"`
	ClientVersion string        `envconfig:"BAZAAR_PHONEPE_CLIENT_VERSION" default:"1"`
	Timeout       time.Duration `envconfig:"BAZAAR_PHONEPE_TIMEOUT" default:"30s"`
	// CallbackUsername/CallbackPassword are the credentials configured on the
	// PhonePe dashboard; callbacks carry sha256(username:password).
	CallbackUsername string `envconfig:"BAZAAR_PHONEPE_CALLBACK_USERNAME"`
	CallbackPassword string `envconfig:"BAZAAR_PHONEPE_CALLBACK_PASSWORD"`
}

type RazorpayConfig struct {
	BaseURL   string        `envconfig:"BAZAAR_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	KeyID     string        `envconfig:"BAZAAR_RAZORPAY_KEY_ID"`
	KeySecret string        `envconfig:"BAZAAR_RAZORPAY_KEY_SECRET"`
	Timeout   time.Duration `envconfig:"BAZAAR_RAZORPAY_TIMEOUT" default:"30s"`
	// WebhookSecret falls back to KeySecret when unset.
	WebhookSecret string `envconfig:"BAZAAR_RAZORPAY_WEBHOOK_SECRET"`
}

type SabPaisaConfig struct {
	InitURL           string        `envconfig:"BAZAAR_SABPAISA_INIT_URL" default:"https://securepay.sabpaisa.in/SabPaisa/sabPaisaInit?v=1"`
	StatusURL         string        `envconfig:"BAZAAR_SABPAISA_STATUS_URL" default:"https://txnenquiry.sabpaisa.in/SPTxtnEnquiry/getTxnStatusByClientxnId"`
	ClientCode        string        `envconfig:"BAZAAR_SABPAISA_CLIENT_CODE"`
	AESKey            string        `envconfig:"BAZAAR_SABPAISA_AES_KEY"`
	AESIV             string        `envconfig:"BAZAAR_SABPAISA_AES_IV"`
	TransUserName     string        `envconfig:"BAZAAR_SABPAISA_TRANS_USER_NAME"`
	TransUserPassword string        `envconfig:"BAZAAR_SABPAISA_TRANS_USER_PASSWORD"`
	MCC               string        `envconfig:"BAZAAR_SABPAISA_MCC" default:"5411"`
	Timeout           time.Duration `envconfig:"BAZAAR_SABPAISA_TIMEOUT" default:"30s"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"BAZAAR_CRON_INTERVAL" default:"15m"`
	LockTTL        time.Duration `envconfig:"BAZAAR_CRON_LOCK_TTL" default:"10m"`
	TrackingBatch  int           `envconfig:"BAZAAR_CRON_TRACKING_BATCH" default:"100"`
	WarehouseBatch int           `envconfig:"BAZAAR_CRON_WAREHOUSE_BATCH" default:"25"`
}

type OTPConfig struct {
	TTL         time.Duration `envconfig:"BAZAAR_OTP_TTL" default:"5m"`
	MaxAttempts int           `envconfig:"BAZAAR_OTP_MAX_ATTEMPTS" default:"5"`
	// RevealCodes logs generated codes for local testing; refused in prod.
	RevealCodes bool `envconfig:"BAZAAR_OTP_REVEAL_CODES" default:"false"`
	// IPLimit bounds OTP requests per client IP within IPWindow.
	IPLimit  int           `envconfig:"BAZAAR_OTP_IP_LIMIT" default:"20"`
	IPWindow time.Duration `envconfig:"BAZAAR_OTP_IP_WINDOW" default:"10m"`
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
