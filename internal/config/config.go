package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DevMode       bool
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	SessionCookieName string
	BookingCookieName string

	// Chat rate limiting (requests per second per client, with burst)
	ChatRateLimit float64
	ChatRateBurst int

	// Conversation history cap, in user+assistant turn pairs.
	HistoryMaxTurns int

	CORSAllowedOrigins []string

	// Timezone used for all appointment times shown to users.
	TargetTimezone string

	// LLM provider configuration
	LLMProvider      string
	BedrockModelID   string
	GeminiAPIKey     string
	GeminiModelID    string
	LLMTimeout       time.Duration
	AWSRegion        string
	AWSAccessKeyID   string
	AWSSecretKey     string
	AWSEndpointOverride string

	// Email provider configuration
	EmailProvider     string
	SESFromEmail      string
	SESFromName       string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Therapist search (OpenStreetMap backends)
	TherapistSearchEnabled  bool
	NominatimBaseURL        string
	OverpassBaseURL         string
	TherapistSearchUserAgent string

	AdminJWTSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "mh_session"),
		BookingCookieName: getEnv("BOOKING_COOKIE_NAME", "mh_booking_session"),

		ChatRateLimit: getEnvAsFloat("CHAT_RATE_LIMIT", 1.0),
		ChatRateBurst: getEnvAsInt("CHAT_RATE_BURST", 5),

		HistoryMaxTurns: getEnvAsInt("CONVERSATION_HISTORY_MAX_TURNS", 20),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		TargetTimezone: getEnv("TARGET_TIMEZONE", "Europe/Stockholm"),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "bedrock"))),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		AWSRegion:           getEnv("AWS_REGION", "eu-north-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "MH Skills Coach"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "MH Skills Coach"),

		TherapistSearchEnabled:   getEnvAsBool("THERAPIST_SEARCH_ENABLED", true),
		NominatimBaseURL:         getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
		OverpassBaseURL:          getEnv("OVERPASS_BASE_URL", "https://overpass-api.de"),
		TherapistSearchUserAgent: getEnv("THERAPIST_SEARCH_USER_AGENT", "mh-skills-coach/0.1 (dev)"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
