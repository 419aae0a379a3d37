package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/geocoder89/jumpin/internal/domain/profile"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Env     string
	Port    int
	Storage string

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	GoogleCredentialsJSON string
	SpreadsheetID         string
	SheetName             string
	MirrorTimeout         time.Duration

	ScanTTL time.Duration

	CORSOrigins  []string
	OTLPEndpoint string

	DemoEmail    string
	DemoPassword string

	Schools []profile.SchoolOption
}

// fileOverlay is the optional YAML file named by JUMPIN_CONFIG.
type fileOverlay struct {
	SheetName string                 `yaml:"sheetName"`
	Schools   []profile.SchoolOption `yaml:"schools"`
}

// Load reads .env (if any), the process environment and the optional YAML overlay.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := fromEnv()

	if path := os.Getenv("JUMPIN_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func fromEnv() Config {
	return Config{
		Env:     getEnv("APP_ENV", "dev"),
		Port:    getEnvInt("PORT", 8080),
		Storage: getEnv("STORAGE", StoragePostgres),

		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		AccessTTL:  time.Duration(getEnvInt("JWT_ACCESS_TTL_MINUTES", 15)) * time.Minute,
		RefreshTTL: time.Duration(getEnvInt("JWT_REFRESH_TTL_DAYS", 7)) * 24 * time.Hour,

		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_KEY", ""),
		SpreadsheetID:         getEnv("GOOGLE_SPREADSHEET_ID", ""),
		SheetName:             getEnv("SHEET_NAME", "Registrazioni"),
		MirrorTimeout:         time.Duration(getEnvInt("MIRROR_TIMEOUT_SECONDS", 10)) * time.Second,

		ScanTTL: time.Duration(getEnvInt("SCAN_TTL_SECONDS", 120)) * time.Second,

		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		DemoEmail:    getEnv("DEMO_EMAIL", ""),
		DemoPassword: getEnv("DEMO_PASSWORD", ""),

		Schools: profile.DefaultSchools,
	}
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if overlay.SheetName != "" {
		c.SheetName = overlay.SheetName
	}
	if len(overlay.Schools) > 0 {
		c.Schools = overlay.Schools
	}
	return nil
}

// SheetsEnabled reports whether the spreadsheet mirror has credentials to talk to.
func (c Config) SheetsEnabled() bool {
	return c.GoogleCredentialsJSON != "" && c.SpreadsheetID != ""
}

func buildDBURL() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "jumpin")
	pass := getEnv("DB_PASSWORD", "jumpin")
	name := getEnv("DB_NAME", "jumpin")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("config.invalid_int", "key", key, "value", v, "fallback", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
