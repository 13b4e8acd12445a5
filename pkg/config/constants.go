package config

const (
	EnvPrefix = "VENDORLEDGER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "VENDORLEDGER_APP_ENV"
	EnvPort         = "VENDORLEDGER_APP_PORT"
	EnvLogLevel     = "VENDORLEDGER_LOG_LEVEL"
	EnvLogWarnStack = "VENDORLEDGER_LOG_WARN_STACK"

	EnvDBDSN      = "VENDORLEDGER_DB_DSN"
	EnvDBHost     = "VENDORLEDGER_DB_HOST"
	EnvDBPort     = "VENDORLEDGER_DB_PORT"
	EnvDBUser     = "VENDORLEDGER_DB_USER"
	EnvDBPassword = "VENDORLEDGER_DB_PASSWORD"
	EnvDBName     = "VENDORLEDGER_DB_NAME"
	EnvDBSSLMode  = "VENDORLEDGER_DB_SSLMODE"

	EnvRedisURL  = "VENDORLEDGER_REDIS_URL"
	EnvRedisAddr = "VENDORLEDGER_REDIS_ADDR"

	EnvJWTSecret  = "VENDORLEDGER_JWT_SECRET"
	EnvJWTIssuer  = "VENDORLEDGER_JWT_ISSUER"
	EnvJWTExpMins = "VENDORLEDGER_JWT_EXPIRATION_MINUTES"

	EnvPayoutMinAmount      = "VENDORLEDGER_PAYOUT_MIN_AMOUNT"
	EnvPayoutMaxBulkBatch   = "VENDORLEDGER_PAYOUT_MAX_BULK_BATCH"
	EnvCommissionMaxPercent = "VENDORLEDGER_COMMISSION_MAX_PERCENT"

	EnvGCPProjectID           = "VENDORLEDGER_GCP_PROJECT_ID"
	EnvPubSubSettlementTopic  = "VENDORLEDGER_PUBSUB_SETTLEMENT_TOPIC"
	EnvOutboxPublishBatchSize = "VENDORLEDGER_OUTBOX_PUBLISH_BATCH_SIZE"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
