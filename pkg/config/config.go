package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	RequestTimeout int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`

	CaptchaAPIKey       string  `mapstructure:"CAPTCHA_API_KEY"`
	CaptchaBaseURL      string  `mapstructure:"CAPTCHA_BASE_URL"`
	CaptchaPollInterval int     `mapstructure:"CAPTCHA_POLL_INTERVAL_SECONDS"`
	CaptchaMaxPolls     int     `mapstructure:"CAPTCHA_MAX_POLLS"`
	CaptchaMinBalance   float64 `mapstructure:"CAPTCHA_MIN_BALANCE"`

	RegistryURL       string `mapstructure:"REGISTRY_TARGET_URL"`
	RegistrySiteKey   string `mapstructure:"REGISTRY_SITE_KEY"`
	RegistrationOrder string `mapstructure:"REGISTRY_REGISTRATION_ORDER"`
	TaxInfoURL        string `mapstructure:"TAX_INFO_URL"`

	Headless           bool    `mapstructure:"HEADLESS"`
	MaxBrowserSessions int     `mapstructure:"MAX_BROWSER_SESSIONS"`
	ProxyURLs          string  `mapstructure:"PROXY_URLS"`
	UserAgents         string  `mapstructure:"USER_AGENTS"`
	NavigationRate     float64 `mapstructure:"NAVIGATION_RATE_PER_SECOND"`
	NavigationBurst    int     `mapstructure:"NAVIGATION_BURST"`
	CrawlMaxAttempts   int     `mapstructure:"CRAWL_MAX_ATTEMPTS"`
	NavigationRetries  int     `mapstructure:"NAVIGATION_RETRIES"`
	BackoffBase        float64 `mapstructure:"BACKOFF_BASE_SECONDS"`
	BackoffMax         int     `mapstructure:"BACKOFF_MAX_SECONDS"`
	PageLoadTimeout    int     `mapstructure:"PAGE_LOAD_TIMEOUT_SECONDS"`
	ResultTimeout      int     `mapstructure:"RESULT_TIMEOUT_SECONDS"`
	DownloadDir        string  `mapstructure:"DOWNLOAD_DIR"`
	SnapshotDir        string  `mapstructure:"SNAPSHOT_DIR"`

	PDFLineMargin      float64 `mapstructure:"PDF_LINE_MARGIN"`
	PDFWordMargin      float64 `mapstructure:"PDF_WORD_MARGIN"`
	PDFParagraphMargin float64 `mapstructure:"PDF_PARAGRAPH_MARGIN"`

	DBDriver      string `mapstructure:"DB_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	DBSSLMode     string `mapstructure:"DB_SSLMODE"`
	DBPath        string `mapstructure:"DB_PATH"`
	DBAutoMigrate bool   `mapstructure:"DB_AUTO_MIGRATE"`

	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`
	TaxInfoCacheTTL int    `mapstructure:"TAX_INFO_CACHE_TTL_HOURS"`

	RulesFile string `mapstructure:"RULES_FILE"`
}

var defaults = map[string]any{
	"SERVER_PORT":             "8000",
	"LOG_LEVEL":               "info",
	"REQUEST_TIMEOUT_SECONDS": 600,

	"CAPTCHA_BASE_URL":              "http://2captcha.com",
	"CAPTCHA_POLL_INTERVAL_SECONDS": 5,
	"CAPTCHA_MAX_POLLS":             30,
	"CAPTCHA_MIN_BALANCE":           0.001,

	"REGISTRY_REGISTRATION_ORDER": "NEW,AMEND",
	"TAX_INFO_URL":                "https://masothue.com",

	"HEADLESS":                   true,
	"MAX_BROWSER_SESSIONS":       2,
	"NAVIGATION_RATE_PER_SECOND": 1.0,
	"NAVIGATION_BURST":           2,
	"CRAWL_MAX_ATTEMPTS":         3,
	"NAVIGATION_RETRIES":         3,
	"BACKOFF_BASE_SECONDS":       2.0,
	"BACKOFF_MAX_SECONDS":        30,
	"PAGE_LOAD_TIMEOUT_SECONDS":  60,
	"RESULT_TIMEOUT_SECONDS":     30,

	"PDF_LINE_MARGIN":      0.5,
	"PDF_WORD_MARGIN":      0.1,
	"PDF_PARAGRAPH_MARGIN": 2.0,

	"DB_DRIVER":       "postgres",
	"DB_HOST":         "localhost",
	"DB_SSLMODE":      "disable",
	"DB_PATH":         "companies.db",
	"DB_AUTO_MIGRATE": true,

	"TAX_INFO_CACHE_TTL_HOURS": 24,
}

// Load reads configuration from an optional .env file and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// The .env file is optional, production uses plain environment variables.
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{
		"CAPTCHA_API_KEY", "REGISTRY_TARGET_URL", "REGISTRY_SITE_KEY", "PROXY_URLS", "USER_AGENTS",
		"DOWNLOAD_DIR", "SNAPSHOT_DIR", "DATABASE_URL", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "RULES_FILE",
	} {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the options that have no sensible default.
func (c *Config) Validate() error {
	var errs []error
	if c.CaptchaAPIKey == "" {
		errs = append(errs, errors.New("CAPTCHA_API_KEY is required"))
	}
	if c.RegistryURL == "" {
		errs = append(errs, errors.New("REGISTRY_TARGET_URL is required"))
	}
	if c.RegistrySiteKey == "" {
		errs = append(errs, errors.New("REGISTRY_SITE_KEY is required"))
	}
	switch c.DBDriver {
	case "postgres", "sqlserver", "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.MaxBrowserSessions < 1 {
		errs = append(errs, errors.New("MAX_BROWSER_SESSIONS must be at least 1"))
	}
	return errors.Join(errs...)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	switch c.DBDriver {
	case "postgres":
		port := orDefault(c.DBPort, "5432")
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword), c.DBHost, port, c.DBName, c.DBSSLMode)
	case "sqlserver":
		port := orDefault(c.DBPort, "1433")
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     c.DBHost + ":" + port,
			RawQuery: url.Values{"database": {c.DBName}, "TrustServerCertificate": {"true"}}.Encode(),
		}
		return u.String()
	case "mysql":
		port := orDefault(c.DBPort, "3306")
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4", c.DBUser, c.DBPassword, c.DBHost, port, c.DBName)
	case "sqlite":
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_time_format=sqlite", c.DBPath)
	}
	return ""
}

func (c *Config) PageLoadTimeoutDuration() time.Duration {
	return time.Duration(c.PageLoadTimeout) * time.Second
}

func (c *Config) ResultTimeoutDuration() time.Duration {
	return time.Duration(c.ResultTimeout) * time.Second
}

func (c *Config) BackoffBaseDuration() time.Duration {
	return time.Duration(c.BackoffBase * float64(time.Second))
}

func (c *Config) BackoffMaxDuration() time.Duration {
	return time.Duration(c.BackoffMax) * time.Second
}

// SplitList splits a comma separated option, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
