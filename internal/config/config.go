package config

import (
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/crispchris33/security-advisor-chatbot/internal/constants"
)

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
}

// Config holds everything the server needs. DatabaseURL of "memory"
// (or empty) selects the in-memory store.
type Config struct {
	Host        string
	Port        string
	BaseURL     string
	DatabaseURL string

	Google OAuthProvider
	GitHub OAuthProvider

	JWTSecret         string
	AdminPasswordHash string // bcrypt hash for the break-glass admin login
	DefaultAllowance  int
	StaticDir         string
}

// Load reads config.yaml (optional) and applies PORTFOLIO_* env
// overrides on top.
func Load() Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("database.url", "memory")
	viper.SetDefault("chat.default_allowance", constants.DefaultChatAllowance)
	viper.SetDefault("static_dir", "./static")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("WARN: config.yaml not found, using environment variables and defaults")
		} else {
			log.Fatalf("FATAL: error reading configuration file: %v", err)
		}
	}

	c := Config{
		Host:        viper.GetString("server.host"),
		Port:        viper.GetString("server.port"),
		BaseURL:     viper.GetString("server.base_url"),
		DatabaseURL: viper.GetString("database.url"),
		Google: OAuthProvider{
			ClientID:     viper.GetString("oauth.google.client_id"),
			ClientSecret: viper.GetString("oauth.google.client_secret"),
		},
		GitHub: OAuthProvider{
			ClientID:     viper.GetString("oauth.github.client_id"),
			ClientSecret: viper.GetString("oauth.github.client_secret"),
		},
		JWTSecret:         viper.GetString("jwt_secret"),
		AdminPasswordHash: viper.GetString("admin_password_hash"),
		DefaultAllowance:  viper.GetInt("chat.default_allowance"),
		StaticDir:         viper.GetString("static_dir"),
	}

	if v := os.Getenv("PORTFOLIO_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("PORTFOLIO_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("PORTFOLIO_DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("PORTFOLIO_GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("PORTFOLIO_GOOGLE_CLIENT_SECRET"); v != "" {
		c.Google.ClientSecret = v
	}
	if v := os.Getenv("PORTFOLIO_GITHUB_CLIENT_ID"); v != "" {
		c.GitHub.ClientID = v
	}
	if v := os.Getenv("PORTFOLIO_GITHUB_CLIENT_SECRET"); v != "" {
		c.GitHub.ClientSecret = v
	}
	if v := os.Getenv("PORTFOLIO_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("PORTFOLIO_ADMIN_PASSWORD_HASH"); v != "" {
		c.AdminPasswordHash = v
	}

	if c.JWTSecret == "" {
		log.Fatal("FATAL: jwt_secret (or PORTFOLIO_JWT_SECRET) is required")
	}
	if c.DefaultAllowance < 0 {
		log.Fatalf("FATAL: chat.default_allowance must be >= 0, got %d", c.DefaultAllowance)
	}

	return c
}
