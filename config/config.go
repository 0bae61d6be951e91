// config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the full runtime configuration of the server.
type Config struct {
	Port                string        `yaml:"port"`
	Env                 string        `yaml:"env"`
	Database            Database      `yaml:"database"`
	JWTSecret           string        `yaml:"jwt_secret"`
	LLM                 LLM           `yaml:"llm"`
	OpenFoodFacts       OpenFoodFacts `yaml:"openfoodfacts"`
	AllowedOrigins      []string      `yaml:"allowed_origins"`
	EnrichmentQueueSize int           `yaml:"enrichment_queue_size"`
}

type Database struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Port     string `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the postgres connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode)
}

type LLM struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type OpenFoodFacts struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
}

// GetEnv returns the value of an environment variable or the fallback when unset.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Defaults returns the configuration used when neither a file nor env vars set a value.
func Defaults() *Config {
	return &Config{
		Port: "8080",
		Env:  "development",
		Database: Database{
			Host:    "localhost",
			User:    "postgres",
			DBName:  "fitness",
			Port:    "5432",
			SSLMode: "disable",
		},
		LLM: LLM{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		OpenFoodFacts: OpenFoodFacts{
			Enabled: true,
			BaseURL: "https://world.openfoodfacts.org",
		},
		AllowedOrigins:      []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		EnrichmentQueueSize: 100,
	}
}

// Load reads the YAML file at path (if path is non-empty) over the defaults,
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = GetEnv("PORT", c.Port)
	c.Env = GetEnv("ENV", c.Env)

	c.Database.Host = GetEnv("DB_HOST", c.Database.Host)
	c.Database.User = GetEnv("DB_USER", c.Database.User)
	c.Database.Password = GetEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = GetEnv("DB_NAME", c.Database.DBName)
	c.Database.Port = GetEnv("DB_PORT", c.Database.Port)
	c.Database.SSLMode = GetEnv("DB_SSLMODE", c.Database.SSLMode)

	c.JWTSecret = GetEnv("JWT_SECRET", c.JWTSecret)

	c.LLM.APIKey = GetEnv("LLM_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = GetEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = GetEnv("LLM_MODEL", c.LLM.Model)
	if raw := GetEnv("LLM_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid LLM_TIMEOUT %q: %w", raw, err)
		}
		c.LLM.Timeout = d
	}

	if raw := GetEnv("OFF_ENABLED", ""); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid OFF_ENABLED %q: %w", raw, err)
		}
		c.OpenFoodFacts.Enabled = enabled
	}
	c.OpenFoodFacts.BaseURL = GetEnv("OFF_BASE_URL", c.OpenFoodFacts.BaseURL)

	if raw := GetEnv("ALLOWED_ORIGINS", ""); raw != "" {
		origins := []string{}
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}

	if raw := GetEnv("ENRICHMENT_QUEUE_SIZE", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid ENRICHMENT_QUEUE_SIZE %q", raw)
		}
		c.EnrichmentQueueSize = n
	}
	return nil
}
