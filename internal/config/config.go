package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration values.
type Config struct {
	Env string `yaml:"env" validate:"required,oneof=dev prod"`
	API struct {
		BaseURL string        `yaml:"base_url" validate:"required,url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	} `yaml:"api"`
	HTTP struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"http"`
	Log struct {
		ConsoleLevel string `yaml:"console_level" validate:"required,oneof=debug info warn error"`
		FileLevel    string `yaml:"file_level" validate:"required,oneof=debug info warn error"`
		RemoteLevel  string `yaml:"remote_level" validate:"required,oneof=debug info warn error"`
		File         string `yaml:"file"`
	} `yaml:"log"`
	Cache struct {
		RedisURL      string        `yaml:"redis_url" validate:"omitempty,url"`
		Namespace     string        `yaml:"namespace"`
		MaxEntries    int           `yaml:"max_entries" validate:"gte=0"`
		PurgeInterval time.Duration `yaml:"purge_interval" validate:"gt=0"`
	} `yaml:"cache"`
	Retry struct {
		Max       int           `yaml:"max" validate:"gte=0,lte=10"`
		BaseDelay time.Duration `yaml:"base_delay" validate:"gt=0"`
		MaxDelay  time.Duration `yaml:"max_delay" validate:"gtefield=BaseDelay"`
	} `yaml:"retry"`
	Errors struct {
		// Sink is where reports go: "http" posts to the API, "local" logs them.
		Sink            string `yaml:"sink" validate:"oneof=http local"`
		BufferCapacity  int    `yaml:"buffer_capacity" validate:"gt=0"`
		BufferThreshold int    `yaml:"buffer_threshold" validate:"gte=0,ltefield=BufferCapacity"`
		FlushSchedule   string `yaml:"flush_schedule" validate:"required"`
	} `yaml:"errors"`
	Session struct {
		DBPath string `yaml:"db_path" validate:"required"`
	} `yaml:"session"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

var validate = validator.New()

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	var c Config
	c.Env = "prod"
	c.API.Timeout = 15 * time.Second
	c.HTTP.Addr = ":8080"
	c.Log.ConsoleLevel = "info"
	c.Log.FileLevel = "debug"
	c.Log.RemoteLevel = "warn"
	c.Log.File = "data/logs/portal.log"
	c.Cache.Namespace = "portal:"
	c.Cache.PurgeInterval = time.Minute
	c.Retry.Max = 3
	c.Retry.BaseDelay = time.Second
	c.Retry.MaxDelay = 30 * time.Second
	c.Errors.Sink = "http"
	c.Errors.BufferCapacity = 100
	c.Errors.BufferThreshold = 10
	c.Errors.FlushSchedule = "@every 30s"
	c.Session.DBPath = "data/session.db"
	return c
}

// Load reads configuration from an optional YAML file named by CONFIG_FILE,
// then environment variables and an optional .env file. Environment values
// win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &c); err != nil {
			return Config{}, err
		}
	}
	if err := fromEnv(&c); err != nil {
		return Config{}, err
	}

	c.Log.ConsoleLevel = strings.ToLower(c.Log.ConsoleLevel)
	c.Log.FileLevel = strings.ToLower(c.Log.FileLevel)
	c.Log.RemoteLevel = strings.ToLower(c.Log.RemoteLevel)

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return Config{}, errors.New("TELEGRAM_CHAT_ID required when TELEGRAM_BOT_TOKEN is set")
	}
	return c, nil
}

func loadFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func fromEnv(c *Config) error {
	c.Env = getenv("ENV", c.Env)
	c.API.BaseURL = getenv("API_BASE_URL", c.API.BaseURL)
	c.API.Token = getenv("API_TOKEN", c.API.Token)
	c.HTTP.Addr = getenv("HTTP_ADDR", c.HTTP.Addr)
	c.Log.ConsoleLevel = getenv("LOG_CONSOLE_LEVEL", c.Log.ConsoleLevel)
	c.Log.FileLevel = getenv("LOG_FILE_LEVEL", c.Log.FileLevel)
	c.Log.RemoteLevel = getenv("LOG_REMOTE_LEVEL", c.Log.RemoteLevel)
	c.Log.File = getenv("LOG_FILE", c.Log.File)
	c.Cache.RedisURL = getenv("CACHE_REDIS_URL", c.Cache.RedisURL)
	c.Cache.Namespace = getenv("CACHE_NAMESPACE", c.Cache.Namespace)
	c.Errors.Sink = getenv("ERROR_SINK", c.Errors.Sink)
	c.Errors.FlushSchedule = getenv("ERROR_FLUSH_SCHEDULE", c.Errors.FlushSchedule)
	c.Session.DBPath = getenv("SESSION_DB_PATH", c.Session.DBPath)
	c.Telegram.Token = getenv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)

	return errors.Join(
		durationEnv("API_TIMEOUT", &c.API.Timeout),
		intEnv("CACHE_MAX_ENTRIES", &c.Cache.MaxEntries),
		durationEnv("CACHE_PURGE_INTERVAL", &c.Cache.PurgeInterval),
		intEnv("RETRY_MAX", &c.Retry.Max),
		durationEnv("RETRY_BASE_DELAY", &c.Retry.BaseDelay),
		durationEnv("RETRY_MAX_DELAY", &c.Retry.MaxDelay),
		intEnv("ERROR_BUFFER_CAPACITY", &c.Errors.BufferCapacity),
		intEnv("ERROR_BUFFER_THRESHOLD", &c.Errors.BufferThreshold),
		int64Env("TELEGRAM_CHAT_ID", &c.Telegram.ChatID),
	)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, dst *int) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = n
	return nil
}

func int64Env(k string, dst *int64) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = n
	return nil
}

func durationEnv(k string, dst *time.Duration) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = d
	return nil
}
