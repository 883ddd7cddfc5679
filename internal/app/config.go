package app

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/storygraph/kgraph-backend/internal/platform/envutil"
)

// Config is loaded from an optional YAML file (CONFIG_FILE) with environment
// variables taking precedence.
type Config struct {
	Port           string   `yaml:"port"`
	LogMode        string   `yaml:"log_mode"`
	GinMode        string   `yaml:"gin_mode"`
	StoreMode      string   `yaml:"store_mode"`
	PrimaryProps   []string `yaml:"primary_props"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func defaultConfig() Config {
	return Config{
		Port:      "8080",
		LogMode:   "development",
		StoreMode: "auto",
	}
}

func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := envutil.String("CONFIG_FILE", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.GinMode = envutil.String("GIN_MODE", cfg.GinMode)
	cfg.StoreMode = envutil.String("GRAPH_STORE_MODE", cfg.StoreMode)
	if v := envutil.String("KG_PRIMARY_PROPS", ""); v != "" {
		cfg.PrimaryProps = splitList(v)
	}
	if v := envutil.String("ALLOWED_ORIGINS", ""); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	return cfg, nil
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
