package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort        string
	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string
	FrontendOrigin    string
	OpenAIBaseURL     string
	RedisURL          string
	DatabaseURL       string
	LogFile           string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads the environment (plus an optional .env file) once at
// startup. The result is immutable for the process lifetime.
func Load() (*Config, error) {
	godotenv.Load()

	requests, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "10"))
	if err != nil || requests <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %q", os.Getenv("RATE_LIMIT_REQUESTS"))
	}

	windowSeconds, err := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW", "60"))
	if err != nil || windowSeconds <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %q", os.Getenv("RATE_LIMIT_WINDOW"))
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		SupabaseURL:       getEnv("VITE_SUPABASE_URL", ""),
		SupabaseAnonKey:   getEnv("VITE_SUPABASE_ANON_KEY", ""),
		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		FrontendOrigin:    getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		LogFile:           getEnv("LOG_FILE", "app.log"),
		RateLimitRequests: requests,
		RateLimitWindow:   time.Duration(windowSeconds) * time.Second,
	}, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}
