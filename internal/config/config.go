package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"document-chat/internal/models"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Upload   UploadConfig   `yaml:"upload"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`
	GinMode string `yaml:"gin_mode"`
}

type StoreConfig struct {
	// Driver is "json" (default) or "postgres".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type DatabaseConfig struct {
	// Driver selects the sql connector: "pgdriver" (default) or "postgres" (lib/pq).
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "ollama".
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type PromptConfig struct {
	// MaxChars caps the assembled prompt size in bytes; 0 disables truncation.
	MaxChars int `yaml:"max_chars"`
}

type UploadConfig struct {
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig returns the defaults overlaid with the YAML file at path (if it
// exists) and then with environment variables.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	overrideByEnv(cfg)
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8501",
			GinMode: "release",
		},
		Store: StoreConfig{
			Driver: "json",
			Path:   models.DefaultStorePath,
		},
		Database: DatabaseConfig{
			Driver: "pgdriver",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       models.DefaultModel,
			Temperature: models.DefaultTemperature,
			MaxTokens:   models.DefaultMaxTokens,
		},
		Upload: UploadConfig{
			MaxFileBytes: 20 << 20,
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.LLM.Key = getEnv("OPENAI_API_KEY", cfg.LLM.Key)
	cfg.LLM.Model = getEnv("OPENAI_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("OPENAI_BASE_URL", cfg.LLM.BaseURL)
	cfg.Store.Path = getEnv("STORE_PATH", cfg.Store.Path)
	cfg.Prompt.MaxChars = getEnvAsInt("PROMPT_MAX_CHARS", cfg.Prompt.MaxChars)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		cfg.Server.Addr = ":" + port
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
