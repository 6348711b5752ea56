package config

import (
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/portdesk/internal/pagination"
)

const appName = "portdesk"

type Config struct {
	APIURL          string        `yaml:"api_url" env:"PORTDESK_API_URL"`
	DBPath          string        `yaml:"db_path" env:"PORTDESK_DB_PATH"`
	LogPath         string        `yaml:"log_path" env:"PORTDESK_LOG_PATH"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
	HTTPTimeout     time.Duration `yaml:"http_timeout" env:"PORTDESK_HTTP_TIMEOUT"`
	Debounce        time.Duration `yaml:"debounce" env:"PORTDESK_DEBOUNCE"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"PORTDESK_SESSION_TTL"`
	PageSize        int           `yaml:"page_size" env:"PORTDESK_PAGE_SIZE"`
	ExportDir       string        `yaml:"export_dir" env:"PORTDESK_EXPORT_DIR"`
	RequestIDHeader string        `yaml:"request_id_header" env:"PORTDESK_REQUEST_ID_HEADER"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	dir := configDir()
	home, _ := os.UserHomeDir()
	return Config{
		APIURL:          "http://localhost:4000",
		DBPath:          filepath.Join(dir, appName+".db"),
		LogPath:         filepath.Join(dir, appName+".log"),
		LogLevel:        "error",
		HTTPTimeout:     15 * time.Second,
		Debounce:        300 * time.Millisecond,
		SessionTTL:      12 * time.Hour,
		PageSize:        5,
		ExportDir:       home,
		RequestIDHeader: "X-Request-ID",
	}
}

// DefaultFile is ~/.config/portdesk/config.yaml.
func DefaultFile() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		cfg = os.TempDir()
	}
	return filepath.Join(cfg, appName)
}

// LoadEnv loads the env files that exist and reports how many were found.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load layers defaults, the YAML file at path (if present), .env files and
// the process environment, in that order.
func Load(path string, envFiles []string) (Config, error) {
	c := Default()
	if path != "" {
		if err := c.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return Config{}, errors.Wrap(err, "load env files")
	}
	if err := env.Parse(&c); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "decode config %s", path)
	}
	return nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("invalid api url %q", c.APIURL)
	}
	if c.HTTPTimeout <= 0 {
		return errors.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.SessionTTL <= 0 {
		return errors.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if !pagination.ValidLimit(c.PageSize) {
		return errors.Errorf("page size %d not in %v", c.PageSize, pagination.PageSizes)
	}
	return nil
}

func (c Config) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}
