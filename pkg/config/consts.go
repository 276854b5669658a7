package config

// EnvPrefix namespaces every environment variable read by envconfig.
const EnvPrefix = "AGRICHAIN"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv = "AGRICHAIN_APP_ENV"
	EnvPort   = "AGRICHAIN_APP_PORT"
	EnvDBDSN  = "AGRICHAIN_DB_DSN"
	EnvDBHost = "AGRICHAIN_DB_HOST"
	EnvDBUser = "AGRICHAIN_DB_USER"
	EnvDBName = "AGRICHAIN_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
