package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Supabase  SupabaseConfig  `yaml:"supabase"`
	Airtable  AirtableConfig  `yaml:"airtable"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Auth      AuthConfig      `yaml:"auth"`
	OTP       OTPConfig       `yaml:"otp"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

const (
	StoreBackendPostgres = "postgres"
	StoreBackendREST     = "rest"
)

// StoreConfig selects how the membership and payment tables are reached
type StoreConfig struct {
	Backend string `yaml:"backend"` // "postgres" or "rest"
}

// DatabaseConfig contains PostgreSQL connection settings (Supabase's database)
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// SupabaseConfig contains the PostgREST endpoint settings
type SupabaseConfig struct {
	URL            string `yaml:"url"`
	ServiceRoleKey string `yaml:"service_role_key"`
	Schema         string `yaml:"schema"`
}

// AirtableConfig contains the payment-method directory and member roster settings
type AirtableConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseID       string `yaml:"base_id"`
	Table        string `yaml:"table"`
	MembersTable string `yaml:"members_table"`
	// BaseURL overrides the Airtable API root; empty uses the public API.
	BaseURL string `yaml:"base_url"`
}

// TelegramConfig contains bot settings
type TelegramConfig struct {
	BotToken     string   `yaml:"bot_token"`
	APIEndpoint  string   `yaml:"api_endpoint"`
	AdminChatIDs []string `yaml:"admin_chat_ids"`
	AdminUserIDs []string `yaml:"admin_user_ids"`
	ParseMode    string   `yaml:"parse_mode"` // "HTML", "Markdown" or "MarkdownV2"
}

// AuthConfig contains members page login settings
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	PasswordHash  string `yaml:"password_hash"`
	Password      string `yaml:"-"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// OTPConfig contains verification code settings
type OTPConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

// PaymentsConfig contains payment creation settings
type PaymentsConfig struct {
	DefaultGateway  string `yaml:"default_gateway"`
	CheckoutBaseURL string `yaml:"checkout_base_url"`
}

// SchedulerConfig contains cron specs (with seconds) for the job runner
type SchedulerConfig struct {
	RemindPendingApprovals    string `yaml:"remind_pending_approvals"`
	PurgeExpiredVerifications string `yaml:"purge_expired_verifications"`
	ReminderAfterMinutes      int    `yaml:"reminder_after_minutes"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// LoadDotEnv loads KEY=VALUE pairs from .env files into the process environment.
// Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Load reads configuration from a YAML file. A missing file is tolerated so the
// service can run from environment variables alone.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.hashPassword(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}
	if val := os.Getenv("PORT"); val != "" && c.Server.Port == 0 {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Store
	if val := os.Getenv("STORE_BACKEND"); val != "" {
		c.Store.Backend = val
	}

	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Supabase
	if val := os.Getenv("SUPABASE_URL"); val != "" {
		c.Supabase.URL = val
	}
	if val := os.Getenv("SUPABASE_SERVICE_ROLE_KEY"); val != "" {
		c.Supabase.ServiceRoleKey = val
	}

	// Airtable
	if val := os.Getenv("AIRTABLE_API_KEY"); val != "" {
		c.Airtable.APIKey = val
	}
	if val := os.Getenv("AIRTABLE_BASE_ID"); val != "" {
		c.Airtable.BaseID = val
	}
	if val := firstEnv("AIRTABLE_TABLE", "AIRTABLE_TABLE_NAME"); val != "" {
		c.Airtable.Table = val
	}
	if val := os.Getenv("AIRTABLE_MEMBERS_TABLE"); val != "" {
		c.Airtable.MembersTable = val
	}

	// Telegram
	if val := os.Getenv("TELEGRAM_BOT_TOKEN"); val != "" {
		c.Telegram.BotToken = val
	}
	if val := firstEnv("TELEGRAM_ADMIN_CHAT_ID", "TELEGRAM_ADMIN_IDS"); val != "" {
		c.Telegram.AdminChatIDs = SplitList(val)
	}
	if val := os.Getenv("TELEGRAM_ADMIN_IDS"); val != "" {
		c.Telegram.AdminUserIDs = SplitList(val)
	}
	if val := os.Getenv("TELEGRAM_PARSE_MODE"); val != "" {
		c.Telegram.ParseMode = val
	}

	// Auth
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.Auth.JWTSecret = val
	}
	if val := os.Getenv("MEMBERS_PAGE_PASSWORD"); val != "" {
		c.Auth.Password = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Store.Backend == "" {
		c.Store.Backend = StoreBackendPostgres
	}
	switch c.Store.Backend {
	case StoreBackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "require"
		}
	case StoreBackendREST:
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			return fmt.Errorf("supabase not configured")
		}
		if c.Supabase.Schema == "" {
			c.Supabase.Schema = "public"
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Airtable.Table == "" {
		c.Airtable.Table = "Payments"
	}
	if c.Airtable.MembersTable == "" {
		c.Airtable.MembersTable = "Members"
	}

	switch c.Telegram.ParseMode {
	case "":
		c.Telegram.ParseMode = "HTML"
	case "HTML", "Markdown", "MarkdownV2":
	default:
		return fmt.Errorf("unsupported telegram parse mode: %q", c.Telegram.ParseMode)
	}
	c.Telegram.AdminChatIDs = normalizeList(c.Telegram.AdminChatIDs)
	c.Telegram.AdminUserIDs = normalizeList(c.Telegram.AdminUserIDs)

	if c.Auth.PasswordHash != "" || c.Auth.Password != "" {
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be at least 32 characters")
		}
	}
	if c.Auth.TokenTTLHours == 0 {
		c.Auth.TokenTTLHours = 6
	}

	if c.OTP.TTLMinutes == 0 {
		c.OTP.TTLMinutes = 15
	}

	// Scheduler defaults
	if c.Scheduler.RemindPendingApprovals == "" {
		c.Scheduler.RemindPendingApprovals = "0 0 * * * *" // hourly
	}
	if c.Scheduler.PurgeExpiredVerifications == "" {
		c.Scheduler.PurgeExpiredVerifications = "0 30 3 * * *" // 3:30 AM UTC
	}
	if c.Scheduler.ReminderAfterMinutes == 0 {
		c.Scheduler.ReminderAfterMinutes = 120
	}

	if c.Payments.DefaultGateway == "" {
		c.Payments.DefaultGateway = "bot"
	}
	if c.Payments.CheckoutBaseURL == "" {
		c.Payments.CheckoutBaseURL = "https://example.com/pay"
	}

	return nil
}

func (c *Config) hashPassword() error {
	if c.Auth.Password == "" || c.Auth.PasswordHash != "" {
		c.Auth.Password = ""
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Auth.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash members page password: %w", err)
	}
	c.Auth.PasswordHash = string(hash)
	c.Auth.Password = ""
	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SupabaseRESTURL returns the PostgREST root for the project
func (c *Config) SupabaseRESTURL() string {
	return strings.TrimRight(c.Supabase.URL, "/") + "/rest/v1"
}

// SplitList splits a comma separated value and drops blanks.
func SplitList(val string) []string {
	return normalizeList(strings.Split(val, ","))
}

func normalizeList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}
