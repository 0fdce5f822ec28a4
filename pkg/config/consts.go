package config

// EnvPrefix is applied by envconfig when resolving variables.
const EnvPrefix = "nuptio"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "NUPTIO_DB_DSN"
	EnvDBHost = "NUPTIO_DB_HOST"
	EnvDBUser = "NUPTIO_DB_USER"
	EnvDBName = "NUPTIO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
