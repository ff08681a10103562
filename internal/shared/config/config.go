package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	// Presence of DatabaseURL switches persistence from the in-memory
	// store to Postgres.
	DatabaseURL string

	SupabaseURL string
	SupabaseKey string

	GoogleDriveClientID     string
	GoogleDriveClientSecret string
	GoogleDriveRedirectURL  string
	GoogleDriveRefreshToken string

	OpenAIAPIKey string
	LLMModel     string

	// UploadDir is where multipart uploads are spooled before routing.
	UploadDir string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                    getEnv("PORT", "8080"),
		CORSAllowOrigin:         splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:                     env,
		DatabaseURL:             dbURL,
		SupabaseURL:             getEnv("SUPABASE_URL", ""),
		SupabaseKey:             getEnv("SUPABASE_KEY", ""),
		GoogleDriveClientID:     getEnv("GOOGLE_DRIVE_CLIENT_ID", ""),
		GoogleDriveClientSecret: getEnv("GOOGLE_DRIVE_CLIENT_SECRET", ""),
		GoogleDriveRedirectURL:  getEnv("GOOGLE_DRIVE_REDIRECT_URI", "http://localhost:8080/oauth2callback"),
		GoogleDriveRefreshToken: getEnv("GOOGLE_DRIVE_REFRESH_TOKEN", ""),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		LLMModel:                getEnv("LLM_MODEL", "gpt-4o"),
		UploadDir:               getEnv("UPLOAD_DIR", "./uploads"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}
