package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port          string
	PublicBaseURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret string

	// OpenAI
	OpenAIAPIKey string
	OpenAIAPIURL string
	DefaultModel string

	// Uploads
	UploadDir   string
	MaxUploadMB int
}

func Load() *Config {
	// Optional .env for local development; ignored when absent
	godotenv.Load()

	maxUpload, _ := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10"))
	return &Config{
		Port:          getEnv("PORT", "8090"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8090"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBName:        getEnv("DB_NAME", "chatforge_db"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIURL:  getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		DefaultModel:  getEnv("OPENAI_MODEL", "gpt-4"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadMB:   maxUpload,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
