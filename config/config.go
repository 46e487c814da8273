package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
)

// MinBcryptCost is the lowest work factor accepted for password digests.
const MinBcryptCost = 10

type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	GRPC      GRPCConfig
	MySQL     MySQLConfig
	JWT       JWTConfig
	Tokens    TokenConfig
	Password  PasswordConfig
	Mail      MailConfig
	NATS      NATSConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

type AppConfig struct {
	Name            string
	FrontendBaseURL string
}

type HTTPConfig struct {
	Host           string
	Port           string
	AllowedOrigins []string
}

type GRPCConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	SessionTTL time.Duration
}

type TokenConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type PasswordConfig struct {
	Policy     PasswordPolicy
	BcryptCost int
}

type MailConfig struct {
	// Transport is one of "smtp", "nats" or "log".
	Transport    string
	From         string
	SenderName   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	NATSSubject  string
}

type NATSConfig struct {
	URL string
}

type RateLimitConfig struct {
	Enabled bool
	// Store is "memory" (per process) or "redis" (shared between replicas).
	Store  string
	RPS    float64
	Burst  int
	Window time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MetricsConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level  string
	Format string
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	cfg := &Config{
		App: AppConfig{
			Name:            getEnv("APP_NAME", "hr_auth"),
			FrontendBaseURL: strings.TrimRight(getEnv("FRONTEND_BASE_URL", "http://localhost:3000"), "/"),
		},
		HTTP: HTTPConfig{
			Host:           getEnv("HTTP_HOST", ""),
			Port:           getEnv("HTTP_PORT", "8080"),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		GRPC: GRPCConfig{
			Host: getEnv("GRPC_HOST", ""),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("MYSQL_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     getBoolEnv("MYSQL_AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			Secret:     jwtSecret,
			Issuer:     getEnv("JWT_ISSUER", "hr-auth"),
			SessionTTL: getDurationEnv("SESSION_TTL", 24*time.Hour),
		},
		Tokens: TokenConfig{
			VerificationTTL: getDurationEnv("VERIFY_TOKEN_TTL", 15*time.Minute),
			ResetTTL:        getDurationEnv("RESET_TOKEN_TTL", 15*time.Minute),
		},
		Password: PasswordConfig{
			Policy:     loadPasswordPolicy(),
			BcryptCost: getIntEnv("BCRYPT_COST", MinBcryptCost),
		},
		Mail: MailConfig{
			Transport:    strings.ToLower(getEnv("MAIL_TRANSPORT", "log")),
			From:         getEnv("MAIL_FROM", "no-reply@localhost"),
			SenderName:   getEnv("MAIL_SENDER_NAME", "HR Portal"),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			NATSSubject:  getEnv("MAIL_NATS_SUBJECT", "hr.mail.outbound"),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
			Store:   strings.ToLower(getEnv("RATE_LIMIT_STORE", "memory")),
			RPS:     getFloatEnv("RATE_LIMIT_RPS", 1),
			Burst:   getIntEnv("RATE_LIMIT_BURST", 10),
			Window:  getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("METRICS_ENABLED", true),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Password.BcryptCost < MinBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d", MinBcryptCost)
	}
	if c.Password.Policy.MinLength < 8 {
		return errors.New("PASSWORD_MIN_LENGTH must be at least 8")
	}
	switch c.Mail.Transport {
	case "smtp", "nats", "log":
	default:
		return fmt.Errorf("unsupported MAIL_TRANSPORT %q", c.Mail.Transport)
	}
	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_STORE %q", c.RateLimit.Store)
	}
	return nil
}

func (c *Config) DSN() string {
	return c.MySQL.DSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv reads a number of minutes.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 8),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", false),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", false),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", false),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", false),
	}
}
