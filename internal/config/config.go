package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported verification store backends.
const (
	StoreDynamo = "dynamo"
	StoreRedis  = "redis"
)

// Supported notifier backends.
const (
	NotifierSMTP = "smtp"
	NotifierSNS  = "sns"
)

// Defaults for the one-time code policy.
const (
	DefaultOTPLength            = 6
	DefaultOTPExpirationMinutes = 5
	DefaultOTPMaxAttempts       = 3
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	// VerificationStore selects the backend for pending codes: "dynamo" or "redis".
	VerificationStore string
	RedisURL          string
	// Notifier selects code delivery: "smtp" mails the code directly, "sns"
	// publishes it to SNSTopicARN for a downstream mail worker.
	Notifier          string
	SNSRegion         string
	SNSTopicARN       string
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	SMTPHost          string
	SMTPPort          string
	SMTPFrom          string
	SMTPUsername      string
	SMTPPassword      string
	OTP               OTPConfig
	RateLimit         RateLimitConfig
	AllowedOrigins    []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Sessions      string // empty disables the revocation check in the auth middleware
	Verifications string
}

// OTPConfig is the immutable code policy shared by request and confirm.
type OTPConfig struct {
	Length            int
	ExpirationMinutes int
	MaxAttempts       int
}

// WithDefaults replaces non-positive fields with the package defaults.
func (c OTPConfig) WithDefaults() OTPConfig {
	if c.Length <= 0 {
		c.Length = DefaultOTPLength
	}
	if c.ExpirationMinutes <= 0 {
		c.ExpirationMinutes = DefaultOTPExpirationMinutes
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultOTPMaxAttempts
	}
	return c
}

// RateLimitConfig is the per-client request budget applied to each code endpoint.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:      os.Getenv("DYNAMO_TABLE_SESSIONS"),
			Verifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "verifications"),
		},
		VerificationStore: strings.ToLower(getEnv("VERIFICATION_STORE", StoreDynamo)),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		Notifier:          strings.ToLower(getEnv("NOTIFIER", NotifierSMTP)),
		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:       getEnv("SNS_TOPIC_ARN", ""),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "1025"),
		SMTPFrom:          getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		OTP: OTPConfig{
			Length:            getEnvInt("OTP_LENGTH", DefaultOTPLength),
			ExpirationMinutes: getEnvInt("OTP_EXPIRATION_MINUTES", DefaultOTPExpirationMinutes),
			MaxAttempts:       getEnvInt("OTP_MAX_ATTEMPTS", DefaultOTPMaxAttempts),
		}.WithDefaults(),
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 3),
			Window:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
