package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer       string // Required: issuer claim for session tokens
	SigningKey   string // Optional: path to Ed25519 PKCS8 PEM; ephemeral keypair when unset
	DatabaseFile string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)
	MailEndpoint string // Optional: mail relay URL; codes are logged when unset

	SessionTTL        time.Duration // Session token lifetime (default: 12h)
	CodeTTL           time.Duration // One-time code lifetime (default: 10m)
	ChallengeTTL      time.Duration // Second-factor challenge lifetime (default: 5m)
	ActiveWindow      time.Duration // Trailing window for derived active sessions (default: 24h)
	TrustedDeviceSkip bool          // Skip second-factor challenge on trusted devices (default: off)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "loomhr-auth"),
		SigningKey:   os.Getenv("AUTH_SIGNING_KEY_FILE"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		MailEndpoint: os.Getenv("AUTH_MAIL_ENDPOINT"),

		SessionTTL:        getEnvDurationOrDefault("AUTH_SESSION_TTL", 12*time.Hour),
		CodeTTL:           getEnvDurationOrDefault("AUTH_CODE_TTL", 10*time.Minute),
		ChallengeTTL:      getEnvDurationOrDefault("AUTH_CHALLENGE_TTL", 5*time.Minute),
		ActiveWindow:      getEnvDurationOrDefault("AUTH_ACTIVE_WINDOW", 24*time.Hour),
		TrustedDeviceSkip: getEnvBoolOrDefault("AUTH_TRUSTED_DEVICE_SKIP", false),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
