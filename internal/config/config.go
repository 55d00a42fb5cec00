package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Shops    ShopsConfig
	APIKeys  APIKeysConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	MaxAttempts    int
	RetryMinDelay  time.Duration
	RetryMaxDelay  time.Duration
	CourtesyMin    time.Duration
	CourtesyMax    time.Duration
	RequestTimeout time.Duration
	CacheSize      int
	RespectRobots  bool
	UserAgents     []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	Locale         string
	TimezoneID     string
	AcceptLanguage string
	ViewportMinW   int
	ViewportMaxW   int
	ViewportMinH   int
	ViewportMaxH   int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	Stream       string
	PollInterval time.Duration
	BatchSize    int
}

type ShopsConfig struct {
	OverridesFile string
}

type APIKeysConfig struct {
	AlgoliaAppID    string
	AlgoliaAPIKey   string
	FeefoMerchantID string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Scraper: ScraperConfig{
			MaxAttempts:    getIntOrDefault("SCRAPER_MAX_ATTEMPTS", 10),
			RetryMinDelay:  getDurationOrDefault("SCRAPER_RETRY_MIN_DELAY", 1*time.Second),
			RetryMaxDelay:  getDurationOrDefault("SCRAPER_RETRY_MAX_DELAY", 3*time.Second),
			CourtesyMin:    getDurationOrDefault("SCRAPER_COURTESY_MIN", 1*time.Second),
			CourtesyMax:    getDurationOrDefault("SCRAPER_COURTESY_MAX", 3*time.Second),
			RequestTimeout: getDurationOrDefault("SCRAPER_REQUEST_TIMEOUT", 30*time.Second),
			CacheSize:      getIntOrDefault("SCRAPER_CACHE_SIZE", 256),
			RespectRobots:  getBoolOrDefault("SCRAPER_RESPECT_ROBOTS", false),
			UserAgents:     getStringSliceOrDefault("SCRAPER_USER_AGENTS", defaultUserAgents()),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-GB"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/London"),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-GB,en;q=0.9"),
			ViewportMinW:   getIntOrDefault("BROWSER_VIEWPORT_MIN_WIDTH", 1280),
			ViewportMaxW:   getIntOrDefault("BROWSER_VIEWPORT_MAX_WIDTH", 1920),
			ViewportMinH:   getIntOrDefault("BROWSER_VIEWPORT_MIN_HEIGHT", 720),
			ViewportMaxH:   getIntOrDefault("BROWSER_VIEWPORT_MAX_HEIGHT", 1080),
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "pet_products"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 4)),
		},
		Redis: RedisConfig{
			Enabled:      getBoolOrDefault("REDIS_ENABLED", false),
			Addr:         getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:     getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:           getIntOrDefault("REDIS_DB", 0),
			Stream:       getEnvOrDefault("REDIS_STREAM", "stream:scrape_attempts"),
			PollInterval: getDurationOrDefault("RELAY_POLL_INTERVAL", 5*time.Second),
			BatchSize:    getIntOrDefault("RELAY_BATCH_SIZE", 100),
		},
		Shops: ShopsConfig{
			OverridesFile: getEnvOrDefault("SHOPS_OVERRIDES_FILE", ""),
		},
		APIKeys: APIKeysConfig{
			AlgoliaAppID:    getEnvOrDefault("ALGOLIA_APP_ID", "43KMJYQOGA"),
			AlgoliaAPIKey:   getEnvOrDefault("ALGOLIA_API_KEY", ""),
			FeefoMerchantID: getEnvOrDefault("FEEFO_MERCHANT_ID", "maidenhead-aquatics"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxAttempts < 1 {
		return fmt.Errorf("SCRAPER_MAX_ATTEMPTS must be at least 1")
	}

	if c.Scraper.RetryMinDelay > c.Scraper.RetryMaxDelay {
		return fmt.Errorf("SCRAPER_RETRY_MIN_DELAY cannot be greater than SCRAPER_RETRY_MAX_DELAY")
	}

	if c.Scraper.CourtesyMin > c.Scraper.CourtesyMax {
		return fmt.Errorf("SCRAPER_COURTESY_MIN cannot be greater than SCRAPER_COURTESY_MAX")
	}

	if len(c.Scraper.UserAgents) == 0 {
		return fmt.Errorf("SCRAPER_USER_AGENTS must not be empty")
	}

	if c.Browser.ViewportMinW > c.Browser.ViewportMaxW || c.Browser.ViewportMinH > c.Browser.ViewportMaxH {
		return fmt.Errorf("browser viewport minimum cannot exceed maximum")
	}

	if c.Redis.Enabled && c.Redis.BatchSize < 1 {
		return fmt.Errorf("RELAY_BATCH_SIZE must be at least 1")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, "|") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}

// User agents contain commas, so the list separator is '|'.
func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}
}
