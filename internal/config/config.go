package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port      string
	Prod      bool
	MongoURI  string
	MongoDB   string
	JWTSecret string
	// Session tokens are the only self-issued credential; rotating the
	// secret invalidates everything outstanding.
	SessionTTLDays  int
	RedisAddr       string
	RateLimitPerMin int
	RabbitURL       string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	OAuthStateSecret   string
	FrontendURL        string

	// Identity platform (the Auth store).
	IdentityBaseURL string
	IdentityAPIKey  string
	ProjectID       string
	IdentityJWKSURL string
	GoogleJWKSURL   string

	AllowedOrigins []string
	APIKeys        []string
	DefaultAPIKey  string
}

func Load() Config {
	return Config{
		Port:            getenv("APP_PORT", "8080"),
		Prod:            getenv("APP_ENV", "dev") == "prod",
		MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getenv("MONGO_DB", "task_db"),
		JWTSecret:       getenv("JWT", "default_secret_key"),
		SessionTTLDays:  atoi(getenv("SESSION_TTL_DAYS", "7")),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "30")),
		RabbitURL:       getenv("RABBIT_URL", ""),

		GoogleClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getenv("GOOGLE_REDIRECT_URI", "http://localhost:8080/auth/google/callback"),
		OAuthStateSecret:   getenv("OAUTH_STATE_SECRET", "default_state_secret"),
		FrontendURL:        getenv("FRONTEND_URL", "http://localhost:4200"),

		IdentityBaseURL: getenv("IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
		IdentityAPIKey:  getenv("IDENTITY_API_KEY", ""),
		ProjectID:       getenv("IDENTITY_PROJECT_ID", ""),
		IdentityJWKSURL: getenv("IDENTITY_JWKS_URL", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"),
		GoogleJWKSURL:   getenv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),

		AllowedOrigins: split(getenv("ALLOWED_ORIGINS", "http://localhost:4200")),
		APIKeys:        split(getenv("API_KEYS", "")),
		DefaultAPIKey:  getenv("DEFAULT_API_KEY", ""),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func split(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
