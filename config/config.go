package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config struct holds application configuration
// This is a simple way to make config accessible globally.
type Config struct {
	DatabaseURL  string
	JWTSecret    string
	Port         int
	GeminiAPIKey string
	GeminiModel  string
	Location     *time.Location
}

// AppConfig holds the application-wide configuration
var AppConfig Config

const (
	defaultPort        = 3000
	defaultGeminiModel = "gemini-2.5-flash-lite"
)

// Load reads .env (when present) and the environment into AppConfig.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		Port:         getEnvInt("PORT", defaultPort),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", defaultGeminiModel),
		Location:     time.Local,
	}

	if tz := os.Getenv("FORECAST_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, errors.New("FORECAST_TIMEZONE is not a valid IANA zone: " + tz)
		}
		cfg.Location = loc
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is not set")
	}

	AppConfig = cfg
	return cfg, nil
}

// Now returns the current time in the configured forecast zone.
func (c Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		log.Printf("Invalid %s=%q, using %d", key, val, defaultVal)
	}
	return defaultVal
}
