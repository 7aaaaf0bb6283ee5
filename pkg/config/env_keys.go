package config

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "VENDIMIA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv    = "VENDIMIA_APP_ENV"
	EnvPort      = "VENDIMIA_APP_PORT"
	EnvDBDSN     = "VENDIMIA_DB_DSN"
	EnvDBHost    = "VENDIMIA_DB_HOST"
	EnvDBUser    = "VENDIMIA_DB_USER"
	EnvDBName    = "VENDIMIA_DB_NAME"
	EnvRedisURL  = "VENDIMIA_REDIS_URL"
	EnvJWTSecret = "VENDIMIA_JWT_SECRET"
	EnvJWTIssuer = "VENDIMIA_JWT_ISSUER"
)

var componentDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
