package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ideaforge/ideaforge-backend/internal/pkg/envutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

// Config is the process configuration. A YAML file (CONFIG_PATH,
// default config.yaml when present) supplies the base values and
// environment variables override field by field.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`

	Auth struct {
		JWTSecretKey string `yaml:"jwt_secret_key"`
	} `yaml:"auth"`

	Otel struct {
		ServiceName string `yaml:"service_name"`
		Environment string `yaml:"environment"`
		Version     string `yaml:"version"`
	} `yaml:"otel"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Address = ":8080"
	cfg.Otel.ServiceName = "ideaforge-backend"
	cfg.Otel.Environment = "development"
	return cfg
}

func Load(log *logger.Logger) (*Config, error) {
	cfg := defaults()

	path := envutil.GetEnv("CONFIG_PATH", "config.yaml", nil)
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if uErr := yaml.Unmarshal(raw, cfg); uErr != nil {
			return nil, fmt.Errorf("parse %s: %w", path, uErr)
		}
		if log != nil {
			log.Info("config file loaded", "path", path)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg, log)

	if strings.TrimSpace(cfg.Auth.JWTSecretKey) == "" {
		return nil, fmt.Errorf("jwt secret key not configured")
	}
	return cfg, nil
}

func applyEnv(cfg *Config, log *logger.Logger) {
	if v := envutil.GetEnv("SERVER_ADDRESS", "", nil); v != "" {
		cfg.Server.Address = v
	}
	if v := envutil.GetEnv("JWT_SECRET_KEY", "", nil); v != "" {
		cfg.Auth.JWTSecretKey = v
	}
	if v := envutil.GetEnv("OTEL_SERVICE_NAME", "", nil); v != "" {
		cfg.Otel.ServiceName = v
	}
	if v := envutil.GetEnv("APP_ENV", "", nil); v != "" {
		cfg.Otel.Environment = v
	}
	if v := envutil.GetEnv("APP_VERSION", "", nil); v != "" {
		cfg.Otel.Version = v
	}
}
