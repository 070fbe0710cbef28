package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Usage        UsageConfig
	Upload       UploadConfig
	OCR          OCRConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.FeatureFlags.apply(&cfg.DB)
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Usage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EXTRAITEXTO_APP_ENV" required:"true"`
	Port         string `envconfig:"EXTRAITEXTO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"EXTRAITEXTO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EXTRAITEXTO_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"EXTRAITEXTO_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
	ShutdownTimeout time.Duration `envconfig:"EXTRAITEXTO_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig describes the relational store. An empty DSN with no legacy parts
// leaves the store unconfigured rather than failing the boot.
type DBConfig struct {
	DSN    string `envconfig:"EXTRAITEXTO_DB_DSN"`
	Driver string `envconfig:"EXTRAITEXTO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EXTRAITEXTO_DB_HOST"`
	LegacyPort     int    `envconfig:"EXTRAITEXTO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EXTRAITEXTO_DB_USER"`
	LegacyPassword string `envconfig:"EXTRAITEXTO_DB_PASSWORD"`
	LegacyName     string `envconfig:"EXTRAITEXTO_DB_NAME"`
	LegacySSLMode  string `envconfig:"EXTRAITEXTO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EXTRAITEXTO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EXTRAITEXTO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EXTRAITEXTO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EXTRAITEXTO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	QueryTimeout    time.Duration `envconfig:"EXTRAITEXTO_DB_QUERY_TIMEOUT" default:"5s"`
}

// Configured reports whether enough settings exist to open a connection.
func (db DBConfig) Configured() bool {
	return db.DSN != ""
}

type RedisConfig struct {
	URL          string        `envconfig:"EXTRAITEXTO_REDIS_URL"`
	Address      string        `envconfig:"EXTRAITEXTO_REDIS_ADDR"`
	Password     string        `envconfig:"EXTRAITEXTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"EXTRAITEXTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EXTRAITEXTO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EXTRAITEXTO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EXTRAITEXTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EXTRAITEXTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EXTRAITEXTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// AuthConfig verifies access tokens minted by the identity provider.
type AuthConfig struct {
	JWTSecret string `envconfig:"EXTRAITEXTO_AUTH_JWT_SECRET" required:"true"`
	Issuer    string `envconfig:"EXTRAITEXTO_AUTH_ISSUER"`
	Audience  string `envconfig:"EXTRAITEXTO_AUTH_AUDIENCE" default:"authenticated"`
}

type UsageConfig struct {
	FreeFallbackLimit  int `envconfig:"EXTRAITEXTO_USAGE_FREE_FALLBACK_LIMIT" default:"3"`
	UnlimitedThreshold int `envconfig:"EXTRAITEXTO_USAGE_UNLIMITED_THRESHOLD" default:"1000"`
	RecordAttempts     int `envconfig:"EXTRAITEXTO_USAGE_RECORD_ATTEMPTS" default:"2"`
	HistoryLimit       int `envconfig:"EXTRAITEXTO_USAGE_HISTORY_LIMIT" default:"30"`
}

func (u UsageConfig) validate() error {
	if u.FreeFallbackLimit <= 0 {
		return fmt.Errorf("%s must be positive", EnvUsageFreeFallbackLimit)
	}
	if u.UnlimitedThreshold <= 0 {
		return fmt.Errorf("%s must be positive", EnvUsageUnlimitedThreshold)
	}
	if u.RecordAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvUsageRecordAttempts)
	}
	return nil
}

type UploadConfig struct {
	MaxUploadMB       int      `envconfig:"EXTRAITEXTO_MAX_UPLOAD_MB" default:"10"`
	AllowedExtensions []string `envconfig:"EXTRAITEXTO_UPLOAD_EXTENSIONS" default:"jpg,jpeg,png,pdf"`
}

// MaxBytes returns the upload ceiling in bytes.
func (u UploadConfig) MaxBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 0
	}
	return int64(u.MaxUploadMB) * 1024 * 1024
}

type OCRConfig struct {
	Engine         string        `envconfig:"EXTRAITEXTO_OCR_ENGINE" default:"tesseract"`
	Timeout        time.Duration `envconfig:"EXTRAITEXTO_OCR_TIMEOUT" default:"60s"`
	TessdataPrefix string        `envconfig:"EXTRAITEXTO_OCR_TESSDATA_PREFIX"`
	PDFMaxPages    int           `envconfig:"EXTRAITEXTO_OCR_PDF_MAX_PAGES" default:"50"`
}

type RateLimitConfig struct {
	IdempotencyTTL      time.Duration `envconfig:"EXTRAITEXTO_IDEMPOTENCY_TTL" default:"24h"`
	ExtractionWindow    time.Duration `envconfig:"EXTRAITEXTO_RATE_LIMIT_EXTRACTION_WINDOW" default:"1m"`
	ExtractionUserLimit int           `envconfig:"EXTRAITEXTO_RATE_LIMIT_EXTRACTION_USER_LIMIT" default:"10"`
	ExtractionIPLimit   int           `envconfig:"EXTRAITEXTO_RATE_LIMIT_EXTRACTION_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EXTRAITEXTO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EXTRAITEXTO_AUTO_MIGRATE" default:"false"`
}

// apply switches the store to a local SQLite file when UseSQLite is set.
func (f FeatureFlagsConfig) apply(db *DBConfig) {
	if !f.UseSQLite {
		return
	}
	db.Driver = DBDriverSQLite
	if db.DSN == "" {
		db.DSN = DefaultSQLiteDSN
	}
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.LegacyHost == "" && db.LegacyUser == "" && db.LegacyName == "" {
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
