package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	OpenAI struct {
		APIKey         string `yaml:"api_key"`
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"openai"`
	JWT struct {
		Secret     string `yaml:"secret"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"jwt"`
	Redis struct {
		Host            string `yaml:"host"`
		Port            int    `yaml:"port"`
		CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	} `yaml:"redis"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	Auth struct {
		BcryptCost int `yaml:"bcrypt_cost"`
	} `yaml:"auth"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// LoadConfig reads configuration from the specified YAML file, applies
// environment variable overrides and validates required settings. A missing
// config file is not an error; environment variables alone can configure
// the service.
func LoadConfig(configPath string) (*Config, error) {
	config := defaults()

	file, err := os.Open(configPath)
	if err == nil {
		defer file.Close()
		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	applyEnv(config)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaults() *Config {
	config := &Config{}
	config.Server.Port = ":8080"
	config.OpenAI.BaseURL = "https://api.openai.com"
	config.OpenAI.TimeoutSeconds = 30
	config.JWT.TTLMinutes = 60
	config.Redis.Host = "localhost"
	config.Redis.Port = 6379
	config.Redis.CacheTTLMinutes = 60
	config.CORS.AllowedOrigins = []string{"*"}
	config.Auth.BcryptCost = 10
	return config
}

func applyEnv(config *Config) {
	if v := os.Getenv("APP_PORT"); v != "" {
		config.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		config.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		config.OpenAI.BaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.JWT.Secret = v
	}
	if v := os.Getenv("JWT_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.JWT.TTLMinutes = n
		}
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		config.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Redis.Port = n
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		config.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Telegram.BotToken = v
	}
}

// validate checks that settings without a usable default are present.
func (c *Config) validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "database.url (DATABASE_URL)")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "openai.api_key (OPENAI_API_KEY)")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret (JWT_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
