package config

// EnvPrefix is handed to envconfig; every field carries its full name in tags.
const EnvPrefix = "EXTRAITEXTO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:extraitexto.db?_busy_timeout=5000&_journal_mode=WAL"
)

const (
	EnvAppEnv   = "EXTRAITEXTO_APP_ENV"
	EnvPort     = "EXTRAITEXTO_APP_PORT"
	EnvLogLevel = "EXTRAITEXTO_LOG_LEVEL"

	EnvDBDSN  = "EXTRAITEXTO_DB_DSN"
	EnvDBHost = "EXTRAITEXTO_DB_HOST"
	EnvDBUser = "EXTRAITEXTO_DB_USER"
	EnvDBName = "EXTRAITEXTO_DB_NAME"

	EnvRedisURL = "EXTRAITEXTO_REDIS_URL"

	EnvUseSQLite = "EXTRAITEXTO_USE_SQLITE"

	EnvAuthJWTSecret = "EXTRAITEXTO_AUTH_JWT_SECRET"
	EnvAuthIssuer    = "EXTRAITEXTO_AUTH_ISSUER"

	EnvUsageFreeFallbackLimit  = "EXTRAITEXTO_USAGE_FREE_FALLBACK_LIMIT"
	EnvUsageUnlimitedThreshold = "EXTRAITEXTO_USAGE_UNLIMITED_THRESHOLD"
	EnvUsageRecordAttempts     = "EXTRAITEXTO_USAGE_RECORD_ATTEMPTS"

	EnvMaxUploadMB      = "EXTRAITEXTO_MAX_UPLOAD_MB"
	EnvUploadExtensions = "EXTRAITEXTO_UPLOAD_EXTENSIONS"
	EnvOCRTimeout       = "EXTRAITEXTO_OCR_TIMEOUT"
	EnvOCRPDFMaxPages   = "EXTRAITEXTO_OCR_PDF_MAX_PAGES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
