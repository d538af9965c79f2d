package config

import (
	"strings"
	"time"

	"github.com/bedrock-gateway/bedrock-assumerole/common/env"
)

var (
	// ServerPort overrides the --port flag when running inside container or PaaS environments.
	ServerPort = strings.TrimSpace(env.String("PORT", ""))
	// GinMode allows forcing Gin into release mode (or other modes) without recompiling.
	GinMode = strings.TrimSpace(env.String("GIN_MODE", ""))

	// DebugEnabled toggles verbose structured logging when DEBUG=true.
	DebugEnabled = env.Bool("DEBUG", false)
	// DebugSQLEnabled toggles per-query SQL logging when DEBUG_SQL=true.
	DebugSQLEnabled = env.Bool("DEBUG_SQL", false)
	// OnlyOneLogFile writes all logs into a single file instead of one file per day.
	OnlyOneLogFile = env.Bool("ONLY_ONE_LOG_FILE", false)

	// APIToken guards the /api/bedrock routes with a bearer token when non-empty.
	APIToken = strings.TrimSpace(env.String("API_TOKEN", ""))
	// CorsAllowOrigins lists the comma separated origins accepted by the CORS middleware; empty allows all.
	CorsAllowOrigins = strings.TrimSpace(env.String("CORS_ALLOW_ORIGINS", ""))
	// APIAllowedSubnets restricts /api/bedrock to comma separated CIDRs when non-empty.
	APIAllowedSubnets = strings.TrimSpace(env.String("API_ALLOWED_SUBNETS", ""))
	// ShutdownTimeout bounds how long the server drains in-flight work on SIGTERM.
	ShutdownTimeout = time.Duration(env.Int("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second
)

// AWS base credentials. Requests may override any of them with explicit values.
var (
	// AWSAccessKeyID is the long-lived access key used to call STS.
	AWSAccessKeyID = env.String("AWS_ACCESS_KEY_ID", "")
	// AWSSecretAccessKey pairs with AWSAccessKeyID.
	AWSSecretAccessKey = env.String("AWS_SECRET_ACCESS_KEY", "")
	// AWSRoleArn is the role assumed before every Bedrock call.
	AWSRoleArn = env.String("AWS_ROLE_ARN", "")
	// AWSRegion is the Bedrock region.
	AWSRegion = env.String("AWS_REGION", "")
	// AWSRoleDurationSeconds is the lifetime requested for temporary credentials.
	AWSRoleDurationSeconds = env.Int("AWS_ROLE_DURATION_SECONDS", 3600)
	// AWSRoleSessionName is sent as RoleSessionName on AssumeRole.
	AWSRoleSessionName = strings.TrimSpace(env.String("AWS_ROLE_SESSION_NAME", "bedrock-assumerole-session"))
	// AWSChatRoleSessionName is the RoleSessionName used by the chat endpoint.
	AWSChatRoleSessionName = strings.TrimSpace(env.String("AWS_CHAT_ROLE_SESSION_NAME", "bedrock-assumerole-chat-session"))
)

// Application inference profile settings.
var (
	// InferenceProfileAccountID enables profile ARNs when non-empty.
	InferenceProfileAccountID = env.String("APPLICATION_INFERENCE_PROFILE_ACCOUNT_ID", "")
	// InferenceProfileID is the legacy single profile applied to every model without a per-model entry.
	InferenceProfileID = env.String("APPLICATION_INFERENCE_PROFILE_ID", "")
	// InferenceProfilesJSON maps model ids to profile ids, e.g. {"us.anthropic.claude-...": "abc123"}.
	InferenceProfilesJSON = env.String("APPLICATION_INFERENCE_PROFILES_JSON", "")
)

var (
	// CredentialExpiryBuffer is how long before expiry a cached credential stops being reused.
	CredentialExpiryBuffer = time.Duration(env.Int("CREDENTIAL_EXPIRY_BUFFER_SECONDS", 300)) * time.Second
	// CredentialCacheRedisPrefix namespaces cached temporary credentials in Redis.
	CredentialCacheRedisPrefix = env.String("CREDENTIAL_CACHE_REDIS_PREFIX", "bedrock:sts:")

	// BatchConcurrency bounds how many batch items are invoked at once; 1 keeps items sequential.
	BatchConcurrency = func() int {
		v := env.Int("BATCH_CONCURRENCY", 1)
		if v < 1 {
			return 1
		}
		return v
	}()
	// DefaultMaxTokens is used by the invoke endpoint when a request omits max_tokens.
	DefaultMaxTokens = env.Int("DEFAULT_MAX_TOKEN", 1000)
	// DefaultChatMaxTokens is used by the chat endpoint when a request omits max_tokens.
	DefaultChatMaxTokens = env.Int("DEFAULT_CHAT_MAX_TOKEN", 4096)
	// DefaultTemperature applies to both endpoints when temperature is omitted.
	DefaultTemperature = env.Float64("DEFAULT_TEMPERATURE", 0.7)
	// InvokeTimeout bounds a single Bedrock invocation.
	InvokeTimeout = time.Duration(env.Int("INVOKE_TIMEOUT_SECONDS", 120)) * time.Second

	// MaxInlineImageSizeMB limits the size (MB) of base64 images accepted by the invoke endpoint.
	MaxInlineImageSizeMB = func() int {
		v := env.Int("MAX_INLINE_IMAGE_SIZE_MB", 30)
		if v < 0 {
			panic("MAX_INLINE_IMAGE_SIZE_MB must not be negative")
		}
		return v
	}()
)

var (
	// RedisConnString defines the Redis connection string; leaving it empty keeps the credential cache in memory.
	RedisConnString = strings.TrimSpace(env.String("REDIS_CONN_STRING", ""))
	// RedisMasterName switches Redis into sentinel/cluster mode when set.
	RedisMasterName = env.String("REDIS_MASTER_NAME", "")
	// RedisPassword authenticates the cluster client.
	RedisPassword = env.String("REDIS_PASSWORD", "")

	// SQLDSN provides the invocation log DSN; empty indicates that SQLite should be used.
	SQLDSN = strings.TrimSpace(env.String("SQL_DSN", ""))
	// SQLitePath specifies the SQLite database file path when SQL_DSN is absent.
	SQLitePath = env.String("SQLITE_PATH", "bedrock-assumerole.db")
	// SQLiteBusyTimeout is the busy timeout in milliseconds for SQLite.
	SQLiteBusyTimeout = env.Int("SQLITE_BUSY_TIMEOUT", 3000)
	// SQLMaxIdleConns is the idle pool size.
	SQLMaxIdleConns = env.Int("SQL_MAX_IDLE_CONNS", 20)
	// SQLMaxOpenConns is the open pool size.
	SQLMaxOpenConns = env.Int("SQL_MAX_OPEN_CONNS", 100)
	// SQLMaxLifetimeSeconds recycles pooled connections.
	SQLMaxLifetimeSeconds = env.Int("SQL_MAX_LIFETIME", 60)
	// InvocationLogEnabled records every Bedrock invocation in the database.
	InvocationLogEnabled = env.Bool("INVOCATION_LOG_ENABLED", true)
	// InvocationLogRetentionDays deletes invocation logs older than this many days; 0 keeps them forever.
	InvocationLogRetentionDays = env.Int("INVOCATION_LOG_RETENTION_DAYS", 0)

	// EnablePrometheusMetrics exposes the /metrics endpoint for Prometheus scrapers when true.
	EnablePrometheusMetrics = env.Bool("ENABLE_PROMETHEUS_METRICS", true)
)
