package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type AppConfig struct {
	Port        string
	DatabaseURL string
	FrontendURL string

	JWTSecret          string
	JWTExpirationHours int
	BcryptCost         int

	Admin AdminSeed

	CloudinaryURL    string
	VimeoAccessToken string

	Email EmailConfig
	Mongo MongoConfig
	OAuth GoogleOAuthConfig

	CORSAllowedOrigins     []string
	SubscriptionExpiryCron   string
	SubscriptionReminderCron string
}

type AdminSeed struct {
	Email    string
	Password string
	FullName string
}

type EmailConfig struct {
	BrevoAPIKey string
	SenderEmail string
	SenderName  string
}

// MongoConfig is optional; an empty URI disables the progress journal.
type MongoConfig struct {
	URI      string
	Database string
}

type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (g GoogleOAuthConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

// LoadEnv loads a .env file into the process environment if one exists.
func LoadEnv(envFile string) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("⚠️ .env file not found, reading from system environment variables")
	}
}

// Load reads the application configuration from the environment. Call LoadEnv first.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:               GetEnv("PORT", "8080"),
		DatabaseURL:        GetEnv("DATABASE_URL", ""),
		FrontendURL:        GetEnv("FRONTEND_URL", "http://localhost:5173"),
		JWTSecret:          GetEnv("JWT_SECRET", ""),
		JWTExpirationHours: GetIntEnv("JWT_EXPIRATION_HOURS", 72),
		BcryptCost:         GetIntEnv("BCRYPT_COST", bcrypt.DefaultCost),
		Admin: AdminSeed{
			Email:    GetEnv("ADMIN_EMAIL", ""),
			Password: GetEnv("ADMIN_PASSWORD", ""),
			FullName: GetEnv("ADMIN_FULL_NAME", "Aiqda Admin"),
		},
		CloudinaryURL:    GetEnv("CLOUDINARY_URL", ""),
		VimeoAccessToken: GetEnv("VIMEO_ACCESS_TOKEN", ""),
		Email: EmailConfig{
			BrevoAPIKey: GetEnv("BREVO_API_KEY", ""),
			SenderEmail: GetEnv("EMAIL_SENDER", ""),
			SenderName:  GetEnv("EMAIL_SENDER_NAME", "Aiqda"),
		},
		Mongo: MongoConfig{
			URI:      GetEnv("MONGO_URI", ""),
			Database: GetEnv("MONGO_DB_NAME", "aiqda"),
		},
		OAuth: GoogleOAuthConfig{
			ClientID:     GetEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: GetEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  GetEnv("GOOGLE_REDIRECT_URL", ""),
		},
		CORSAllowedOrigins:     GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		SubscriptionExpiryCron:   GetEnv("SUBSCRIPTION_EXPIRY_CRON", "@every 1h"),
		SubscriptionReminderCron: GetEnv("SUBSCRIPTION_REMINDER_CRON", "0 9 * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return cfg, nil
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("⚠️ Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func GetBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("⚠️ Invalid boolean value for %s: %s, using default: %t", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetStringSliceEnv splits a comma-separated variable, trimming blanks.
func GetStringSliceEnv(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
